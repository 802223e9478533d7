// Package domain holds the Pokémon record shapes shared by the upstream client,
// the fetch controller and the presenter.
package domain

// Pokemon is a single record returned by the upstream lookup. JSON field names
// follow the upstream GraphQL schema so responses decode directly.
//
// Every group other than the identity fields is optional. A nil pointer or a
// nil slice means the upstream did not provide it.
type Pokemon struct {
	ID     string `json:"id"`
	Number string `json:"number"`
	Name   string `json:"name"`
	Image  string `json:"image"`

	Weight         *Dimension `json:"weight,omitempty"`
	Height         *Dimension `json:"height,omitempty"`
	Classification *string    `json:"classification,omitempty"`

	Types      []string `json:"types,omitempty"`
	Resistant  []string `json:"resistant,omitempty"`
	Weaknesses []string `json:"weaknesses,omitempty"`

	// FleeRate is a fraction in [0,1].
	FleeRate *float64 `json:"fleeRate,omitempty"`
	MaxCP    *int     `json:"maxCP,omitempty"`
	MaxHP    *int     `json:"maxHP,omitempty"`

	Attacks               *Attacks              `json:"attacks,omitempty"`
	Evolutions            []Evolution           `json:"evolutions,omitempty"`
	EvolutionRequirements *EvolutionRequirement `json:"evolutionRequirements,omitempty"`
}

// Dimension is a minimum/maximum pair such as "6.04kg" - "7.76kg".
type Dimension struct {
	Minimum string `json:"minimum"`
	Maximum string `json:"maximum"`
}

// Attacks groups the fast and special moves of a Pokémon.
type Attacks struct {
	Fast    []Attack `json:"fast,omitempty"`
	Special []Attack `json:"special,omitempty"`
}

// Attack is a single move. Damage is never negative.
type Attack struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Damage int    `json:"damage"`
}

// Evolution is the summary of another Pokémon in the evolution chain, enough
// to link to its own detail view.
type Evolution struct {
	ID     string `json:"id"`
	Number string `json:"number"`
	Name   string `json:"name"`
	Image  string `json:"image"`
}

// EvolutionRequirement is the candy cost of the next evolution.
type EvolutionRequirement struct {
	Amount int    `json:"amount"`
	Name   string `json:"name"`
}

// HasAttacks reports whether at least one fast or special attack is present.
func (p *Pokemon) HasAttacks() bool {
	return p != nil && p.Attacks != nil && (len(p.Attacks.Fast) > 0 || len(p.Attacks.Special) > 0)
}
