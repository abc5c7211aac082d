package rules

import (
	"math"
	"testing"

	"github.com/andkapach/amora/internal/domain/profile"
)

func TestCompatibilityScoreAgeFactor(t *testing.T) {
	base := profile.Profile{ID: "a", Age: 30}

	equal := CompatibilityScore(base, profile.Profile{ID: "b", Age: 30})
	if equal != 1.0 {
		t.Fatalf("equal ages should score 1.0, got %v", equal)
	}

	prev := equal
	for gap := 1; gap <= 12; gap++ {
		got := CompatibilityScore(base, profile.Profile{ID: "b", Age: 30 + gap})
		if got > prev {
			t.Fatalf("score increased with age gap %d: %v > %v", gap, got, prev)
		}
		prev = got
	}

	atFloor := CompatibilityScore(base, profile.Profile{ID: "b", Age: 41})
	if atFloor != 0.0 {
		t.Fatalf("gap beyond 10 years should floor at 0, got %v", atFloor)
	}
	beyond := CompatibilityScore(base, profile.Profile{ID: "b", Age: 60})
	if beyond != atFloor {
		t.Fatalf("floor should be flat beyond 10 years: %v != %v", beyond, atFloor)
	}
}

func TestCompatibilityScoreSymmetry(t *testing.T) {
	a := profile.Profile{
		ID: "a", Age: 27, Country: "US", City: "NYC",
		Religion: "A", Education: "masters",
		Photos: []string{"x"}, IsVerified: true,
	}
	b := profile.Profile{
		ID: "b", Age: 35, Country: "US", City: "LA",
		Religion: "B", Education: "masters",
		Photos: []string{"", "y"}, IsVerified: false,
	}

	if CompatibilityScore(a, b) != CompatibilityScore(b, a) {
		t.Fatalf("score is not symmetric: %v vs %v", CompatibilityScore(a, b), CompatibilityScore(b, a))
	}
}

func TestCompatibilityScoreStaysInRange(t *testing.T) {
	cases := []struct {
		name string
		a, b profile.Profile
	}{
		{name: "both empty"},
		{
			name: "all factors match",
			a: profile.Profile{
				ID: "a", Age: 30, Country: "US", City: "NYC",
				Religion: "A", Education: "phd",
				Photos: []string{"x"}, IsVerified: true,
			},
			b: profile.Profile{
				ID: "b", Age: 30, Country: "US", City: "NYC",
				Religion: "A", Education: "phd",
				Photos: []string{"y"}, IsVerified: true,
			},
		},
		{
			name: "all factors mismatch",
			a: profile.Profile{
				ID: "a", Age: 18, Country: "US",
				Religion: "A", Education: "phd",
			},
			b: profile.Profile{
				ID: "b", Age: 120, Country: "FR",
				Religion: "B", Education: "none",
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CompatibilityScore(tc.a, tc.b)
			if got < 0 || got > 1 || math.IsNaN(got) {
				t.Fatalf("score out of range: %v", got)
			}
		})
	}
}

func TestCompatibilityScoreNoApplicableFactors(t *testing.T) {
	a := profile.Profile{ID: "a", Age: 30}
	b := profile.Profile{ID: "b", Religion: "A"}
	if got := CompatibilityScore(a, b); got != 0.0 {
		t.Fatalf("no shared factors should score 0, got %v", got)
	}
}

func TestCompatibilityScoreCityOnlyCountsWithCountryMatch(t *testing.T) {
	a := profile.Profile{ID: "a", Country: "US", City: "NYC"}

	sameCountry := CompatibilityScore(a, profile.Profile{ID: "b", Country: "US", City: "LA"})
	if sameCountry != 1.0 {
		t.Fatalf("country match with city mismatch should score 1.0, got %v", sameCountry)
	}

	bothMatch := CompatibilityScore(a, profile.Profile{ID: "b", Country: "US", City: "NYC"})
	if bothMatch != 1.0 {
		t.Fatalf("country and city match should score (1+1)/2 = 1.0, got %v", bothMatch)
	}

	diffCountry := CompatibilityScore(a, profile.Profile{ID: "b", Country: "FR", City: "NYC"})
	if diffCountry != 0.0 {
		t.Fatalf("country mismatch should contribute no factor, got %v", diffCountry)
	}
}

func TestCompatibilityScoreWorkedExample(t *testing.T) {
	// Identical profiles apart from the city: five factors apply (age,
	// country, religion, photos, verified), all at full value.
	a := profile.Profile{
		ID: "a", Age: 30, Country: "US", City: "NYC",
		Religion: "A", Photos: []string{"x"}, IsVerified: true,
	}
	b := a
	b.ID = "b"
	b.City = "LA"

	if got := CompatibilityScore(a, b); got != 1.0 {
		t.Fatalf("worked example should score 1.0, got %v", got)
	}
}

func TestCompatibilityScoreDoesNotMutateInputs(t *testing.T) {
	a := profile.Profile{ID: "a", Age: 30, Photos: []string{"x", ""}}
	b := profile.Profile{ID: "b", Age: 31, Photos: []string{"y"}}
	_ = CompatibilityScore(a, b)

	if a.Age != 30 || b.Age != 31 || a.Photos[0] != "x" || b.Photos[0] != "y" {
		t.Fatalf("inputs were mutated: %+v %+v", a, b)
	}
}
