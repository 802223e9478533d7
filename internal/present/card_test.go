package present

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"pokedex/internal/domain"
)

func ptr[T any](v T) *T { return &v }

func TestNewCardNil(t *testing.T) {
	if c := NewCard(nil); c != nil {
		t.Errorf("NewCard(nil) = %+v, want nil", c)
	}
}

func TestNewCardOmitsAbsentGroups(t *testing.T) {
	got := NewCard(&domain.Pokemon{ID: "UG9rZW1vbjoxNTE=", Number: "151", Name: "Mew", Image: "mew.jpg"})
	want := &Card{ID: "UG9rZW1vbjoxNTE=", Number: "151", Name: "Mew", Image: "mew.jpg"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("NewCard() mismatch (-want +got):\n%s", diff)
	}
}

func TestNewCardBulbasaur(t *testing.T) {
	rec := &domain.Pokemon{
		ID:             "UG9rZW1vbjowMDE=",
		Number:         "001",
		Name:           "Bulbasaur",
		Image:          "https://img.pokemondb.net/artwork/bulbasaur.jpg",
		Weight:         &domain.Dimension{Minimum: "6.04kg", Maximum: "7.76kg"},
		Height:         &domain.Dimension{Minimum: "0.61m", Maximum: "0.79m"},
		Classification: ptr("Seed Pokémon"),
		Types:          []string{"Grass", "Poison"},
		Resistant:      []string{"Water", "Electric"},
		Weaknesses:     []string{"Fire"},
		FleeRate:       ptr(0.1),
		MaxCP:          ptr(951),
		MaxHP:          ptr(1071),
		Attacks: &domain.Attacks{
			Fast:    []domain.Attack{{Name: "Tackle", Type: "Normal", Damage: 12}, {Name: "Vine Whip", Type: "Grass", Damage: 7}},
			Special: []domain.Attack{{Name: "Power Whip", Type: "Grass", Damage: 70}},
		},
		Evolutions:            []domain.Evolution{{ID: "2", Number: "002", Name: "Ivysaur", Image: "ivysaur.jpg"}},
		EvolutionRequirements: &domain.EvolutionRequirement{Amount: 25, Name: "Bulbasaur candies"},
	}

	want := &Card{
		ID:             "UG9rZW1vbjowMDE=",
		Number:         "001",
		Name:           "Bulbasaur",
		Image:          "https://img.pokemondb.net/artwork/bulbasaur.jpg",
		Classification: "Seed Pokémon",
		Height:         "0.61m - 0.79m",
		Weight:         "6.04kg - 7.76kg",
		Types:          []Badge{{Name: "Grass", Color: "#7AC74C"}, {Name: "Poison", Color: "#A33EA1"}},
		Resistant:      []Badge{{Name: "Water", Color: "#6390F0"}, {Name: "Electric", Color: "#F7D02C"}},
		Weaknesses:     []Badge{{Name: "Fire", Color: "#EE8130"}},
		FleeRate:       "10%",
		MaxCP:          ptr(951),
		MaxHP:          ptr(1071),
		FastAttacks: []Attack{
			{Name: "Tackle", Type: Badge{Name: "Normal", Color: "#A8A77A"}, Damage: 12},
			{Name: "Vine Whip", Type: Badge{Name: "Grass", Color: "#7AC74C"}, Damage: 7},
		},
		SpecialAttacks: []Attack{{Name: "Power Whip", Type: Badge{Name: "Grass", Color: "#7AC74C"}, Damage: 70}},
		Evolutions: []EvolutionLink{{
			Name:      "Ivysaur",
			Number:    "002",
			Image:     "ivysaur.jpg",
			SearchURL: "/?name=Ivysaur",
			DetailURL: "/pokemon/Ivysaur",
		}},
		EvolutionRequirement: "25 Bulbasaur candies",
	}

	if diff := cmp.Diff(want, NewCard(rec)); diff != "" {
		t.Errorf("NewCard() mismatch (-want +got):\n%s", diff)
	}
}

func TestNewCardZeroStatsAreKept(t *testing.T) {
	c := NewCard(&domain.Pokemon{Name: "Magikarp", FleeRate: ptr(0.0), MaxCP: ptr(0)})
	if c.FleeRate != "0%" {
		t.Errorf("FleeRate = %q, want 0%%", c.FleeRate)
	}
	if c.MaxCP == nil || *c.MaxCP != 0 {
		t.Errorf("MaxCP = %v, want 0", c.MaxCP)
	}
}

func TestPercent(t *testing.T) {
	tests := map[float64]string{
		0.045: "4.5%",
		0.1:   "10%",
		0.07:  "7%",
		0.15:  "15%",
		1:     "100%",
		0.333: "33.3%",
	}
	for in, want := range tests {
		if got := Percent(in); got != want {
			t.Errorf("Percent(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestEvolutionURLsEscapeNames(t *testing.T) {
	if got := SearchURL("Mr. Mime"); got != "/?name=Mr.+Mime" {
		t.Errorf("SearchURL = %q", got)
	}
	if got := DetailURL("Mr. Mime"); got != "/pokemon/Mr.%20Mime" {
		t.Errorf("DetailURL = %q", got)
	}
	if got := DetailURL("Nidoran♀"); got != "/pokemon/Nidoran%E2%99%80" {
		t.Errorf("DetailURL = %q", got)
	}
}
