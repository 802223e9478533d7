// Package typecolor maps Pokémon type names to their display colors.
package typecolor

import "strings"

// Default is returned for any name outside the 18 elemental types.
const Default = "#999999"

var colors = map[string]string{
	"grass":    "#7AC74C",
	"fire":     "#EE8130",
	"water":    "#6390F0",
	"bug":      "#A6B91A",
	"normal":   "#A8A77A",
	"poison":   "#A33EA1",
	"electric": "#F7D02C",
	"ground":   "#E2BF65",
	"fairy":    "#D685AD",
	"fighting": "#C22E28",
	"psychic":  "#F95587",
	"rock":     "#B6A136",
	"ghost":    "#735797",
	"ice":      "#96D9D6",
	"dragon":   "#6F35FC",
	"steel":    "#B7B7CE",
	"dark":     "#705746",
	"flying":   "#A98FF3",
}

var known = []string{
	"grass", "fire", "water", "bug", "normal", "poison",
	"electric", "ground", "fairy", "fighting", "psychic", "rock",
	"ghost", "ice", "dragon", "steel", "dark", "flying",
}

// ColorOf returns the display color for a type name, ignoring case.
// Unknown names, including the empty string, get Default.
func ColorOf(typeName string) string {
	if c, ok := colors[strings.ToLower(typeName)]; ok {
		return c
	}
	return Default
}

// Known returns the 18 recognized type names, lower-cased, in a stable order.
func Known() []string {
	out := make([]string, len(known))
	copy(out, known)
	return out
}
