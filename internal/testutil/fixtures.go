package testutil

import "pokedex/internal/domain"

func ptr[T any](v T) *T { return &v }

// Bulbasaur returns a fully populated record.
func Bulbasaur() *domain.Pokemon {
	return &domain.Pokemon{
		ID:             "UG9rZW1vbjowMDE=",
		Number:         "001",
		Name:           "Bulbasaur",
		Image:          "https://img.pokemondb.net/artwork/bulbasaur.jpg",
		Weight:         &domain.Dimension{Minimum: "6.04kg", Maximum: "7.76kg"},
		Height:         &domain.Dimension{Minimum: "0.61m", Maximum: "0.79m"},
		Classification: ptr("Seed Pokémon"),
		Types:          []string{"Grass", "Poison"},
		Resistant:      []string{"Water", "Electric", "Grass", "Fighting", "Fairy"},
		Weaknesses:     []string{"Fire", "Ice", "Flying", "Psychic"},
		FleeRate:       ptr(0.1),
		MaxCP:          ptr(951),
		MaxHP:          ptr(1071),
		Attacks: &domain.Attacks{
			Fast: []domain.Attack{
				{Name: "Tackle", Type: "Normal", Damage: 12},
				{Name: "Vine Whip", Type: "Grass", Damage: 7},
			},
			Special: []domain.Attack{
				{Name: "Power Whip", Type: "Grass", Damage: 70},
				{Name: "Seed Bomb", Type: "Grass", Damage: 40},
				{Name: "Sludge Bomb", Type: "Poison", Damage: 55},
			},
		},
		Evolutions: []domain.Evolution{
			{ID: "UG9rZW1vbjowMDI=", Number: "002", Name: "Ivysaur", Image: "https://img.pokemondb.net/artwork/ivysaur.jpg"},
			{ID: "UG9rZW1vbjowMDM=", Number: "003", Name: "Venusaur", Image: "https://img.pokemondb.net/artwork/venusaur.jpg"},
		},
		EvolutionRequirements: &domain.EvolutionRequirement{Amount: 25, Name: "Bulbasaur candies"},
	}
}

// Pikachu returns a record with a fractional flee rate.
func Pikachu() *domain.Pokemon {
	return &domain.Pokemon{
		ID:       "UG9rZW1vbjowMjU=",
		Number:   "025",
		Name:     "Pikachu",
		Image:    "https://img.pokemondb.net/artwork/pikachu.jpg",
		Types:    []string{"Electric"},
		FleeRate: ptr(0.045),
		MaxCP:    ptr(843),
		MaxHP:    ptr(807),
	}
}

// Mew returns a record with only the identity fields.
func Mew() *domain.Pokemon {
	return &domain.Pokemon{
		ID:     "UG9rZW1vbjoxNTE=",
		Number: "151",
		Name:   "Mew",
		Image:  "https://img.pokemondb.net/artwork/mew.jpg",
	}
}
