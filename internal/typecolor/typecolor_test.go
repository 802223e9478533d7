package typecolor

import (
	"strings"
	"testing"
)

func TestColorOf(t *testing.T) {
	tests := []struct {
		typeName string
		want     string
	}{
		{"grass", "#7AC74C"},
		{"fire", "#EE8130"},
		{"water", "#6390F0"},
		{"bug", "#A6B91A"},
		{"normal", "#A8A77A"},
		{"poison", "#A33EA1"},
		{"electric", "#F7D02C"},
		{"ground", "#E2BF65"},
		{"fairy", "#D685AD"},
		{"fighting", "#C22E28"},
		{"psychic", "#F95587"},
		{"rock", "#B6A136"},
		{"ghost", "#735797"},
		{"ice", "#96D9D6"},
		{"dragon", "#6F35FC"},
		{"steel", "#B7B7CE"},
		{"dark", "#705746"},
		{"flying", "#A98FF3"},
	}

	for _, tt := range tests {
		t.Run(tt.typeName, func(t *testing.T) {
			for _, variant := range []string{tt.typeName, strings.ToUpper(tt.typeName), strings.ToUpper(tt.typeName[:1]) + tt.typeName[1:]} {
				if got := ColorOf(variant); got != tt.want {
					t.Errorf("ColorOf(%q) = %q, want %q", variant, got, tt.want)
				}
			}
		})
	}
}

func TestColorOfUnknownFallsBack(t *testing.T) {
	for _, in := range []string{"", " ", "default", "Shadow", "grass ", "???", "Feuer"} {
		if got := ColorOf(in); got != Default {
			t.Errorf("ColorOf(%q) = %q, want default %q", in, got, Default)
		}
	}
}

func TestKnownCoversEveryColor(t *testing.T) {
	names := Known()
	if len(names) != 18 {
		t.Fatalf("expected 18 known types, got %d", len(names))
	}
	seen := map[string]bool{}
	for _, n := range names {
		if seen[n] {
			t.Errorf("duplicate type %q", n)
		}
		seen[n] = true
		if ColorOf(n) == Default {
			t.Errorf("known type %q has no color", n)
		}
	}

	names[0] = "mutated"
	if Known()[0] == "mutated" {
		t.Error("Known() must return a copy")
	}
}
