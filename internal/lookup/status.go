// Package lookup runs remote Pokémon lookups for one search box and tracks
// the status of the most recently submitted term.
package lookup

import (
	"context"

	"pokedex/internal/domain"
)

// Kind is the phase of a lookup.
type Kind string

// Lookup phases.
const (
	KindIdle    Kind = "idle"
	KindLoading Kind = "loading"
	KindError   Kind = "error"
	KindSettled Kind = "settled"
)

// Status is a snapshot of the controller. Record is only meaningful when Kind
// is KindSettled; a nil Record there means the upstream had no match.
type Status struct {
	Kind    Kind            `json:"kind"`
	Term    string          `json:"term,omitempty"`
	Seq     uint64          `json:"seq"`
	Message string          `json:"message,omitempty"`
	Record  *domain.Pokemon `json:"record,omitempty"`
}

// Source is the remote lookup collaborator. A nil record with a nil error
// means the upstream answered but has no Pokémon by that name.
type Source interface {
	PokemonByName(ctx context.Context, name string) (*domain.Pokemon, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, name string) (*domain.Pokemon, error)

// PokemonByName implements Source.
func (f SourceFunc) PokemonByName(ctx context.Context, name string) (*domain.Pokemon, error) {
	return f(ctx, name)
}
