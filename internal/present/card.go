package present

import (
	"math"
	"net/url"
	"strconv"

	"pokedex/internal/domain"
	"pokedex/internal/search"
	"pokedex/internal/typecolor"
)

// Card is a found record shaped for display. Absent groups stay zero and are
// omitted by the templates and the JSON encoding.
type Card struct {
	ID     string `json:"id"`
	Number string `json:"number"`
	Name   string `json:"name"`
	Image  string `json:"image"`

	Classification string  `json:"classification,omitempty"`
	Height         string  `json:"height,omitempty"`
	Weight         string  `json:"weight,omitempty"`
	Types          []Badge `json:"types,omitempty"`
	Resistant      []Badge `json:"resistant,omitempty"`
	Weaknesses     []Badge `json:"weaknesses,omitempty"`
	FleeRate       string  `json:"fleeRate,omitempty"`
	MaxCP          *int    `json:"maxCP,omitempty"`
	MaxHP          *int    `json:"maxHP,omitempty"`

	FastAttacks    []Attack `json:"fastAttacks,omitempty"`
	SpecialAttacks []Attack `json:"specialAttacks,omitempty"`

	Evolutions           []EvolutionLink `json:"evolutions,omitempty"`
	EvolutionRequirement string          `json:"evolutionRequirement,omitempty"`
}

// Badge is a type name with its display color.
type Badge struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Attack is a move with its type badge.
type Attack struct {
	Name   string `json:"name"`
	Type   Badge  `json:"type"`
	Damage int    `json:"damage"`
}

// EvolutionLink points at another Pokémon of the chain. SearchURL reloads the
// search page for it; DetailURL opens its own page.
type EvolutionLink struct {
	Name      string `json:"name"`
	Number    string `json:"number"`
	Image     string `json:"image"`
	SearchURL string `json:"searchUrl"`
	DetailURL string `json:"detailUrl"`
}

// NewCard shapes p for display. It returns nil for a nil record.
func NewCard(p *domain.Pokemon) *Card {
	if p == nil {
		return nil
	}
	c := &Card{
		ID:         p.ID,
		Number:     p.Number,
		Name:       p.Name,
		Image:      p.Image,
		Types:      badges(p.Types),
		Resistant:  badges(p.Resistant),
		Weaknesses: badges(p.Weaknesses),
		MaxCP:      p.MaxCP,
		MaxHP:      p.MaxHP,
	}
	if p.Classification != nil {
		c.Classification = *p.Classification
	}
	c.Height = dimension(p.Height)
	c.Weight = dimension(p.Weight)
	if p.FleeRate != nil {
		c.FleeRate = Percent(*p.FleeRate)
	}
	if p.Attacks != nil {
		c.FastAttacks = attacks(p.Attacks.Fast)
		c.SpecialAttacks = attacks(p.Attacks.Special)
	}
	for _, e := range p.Evolutions {
		c.Evolutions = append(c.Evolutions, EvolutionLink{
			Name:      e.Name,
			Number:    e.Number,
			Image:     e.Image,
			SearchURL: SearchURL(e.Name),
			DetailURL: DetailURL(e.Name),
		})
	}
	if r := p.EvolutionRequirements; r != nil {
		c.EvolutionRequirement = strconv.Itoa(r.Amount) + " " + r.Name
	}
	return c
}

// Percent renders a fraction as a percentage with at most two decimals:
// 0.045 becomes "4.5%".
func Percent(fraction float64) string {
	v := math.Round(fraction*100*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + "%"
}

// SearchURL is the search page filtered to name.
func SearchURL(name string) string {
	return "/?" + url.Values{search.ParamName: {name}}.Encode()
}

// DetailURL is the detail page of name.
func DetailURL(name string) string {
	return "/pokemon/" + url.PathEscape(name)
}

func badges(names []string) []Badge {
	if len(names) == 0 {
		return nil
	}
	out := make([]Badge, len(names))
	for i, n := range names {
		out[i] = Badge{Name: n, Color: typecolor.ColorOf(n)}
	}
	return out
}

func attacks(in []domain.Attack) []Attack {
	if len(in) == 0 {
		return nil
	}
	out := make([]Attack, len(in))
	for i, a := range in {
		out[i] = Attack{
			Name:   a.Name,
			Type:   Badge{Name: a.Type, Color: typecolor.ColorOf(a.Type)},
			Damage: a.Damage,
		}
	}
	return out
}

func dimension(d *domain.Dimension) string {
	if d == nil {
		return ""
	}
	return d.Minimum + " - " + d.Maximum
}
