package rules

import (
	"github.com/andkapach/amora/internal/domain/profile"
)

const maxAgeGapYears = 10.0

// CompatibilityScore computes a 0..1 similarity between two profiles as
// an equal-weight average over the factors both profiles can answer:
// age closeness, shared country (plus an extra point for a shared city
// within that country), religion, education, having photos, and being
// verified. A factor skipped on one side is skipped entirely, so the
// score is symmetric. Returns 0 when no factor applies.
func CompatibilityScore(a, b profile.Profile) float64 {
	var sum float64
	var count int

	if a.Age != 0 && b.Age != 0 {
		gap := float64(a.Age - b.Age)
		if gap < 0 {
			gap = -gap
		}
		if gap > maxAgeGapYears {
			gap = maxAgeGapYears
		}
		sum += (maxAgeGapYears - gap) / maxAgeGapYears
		count++
	}

	// A matching country and a matching city each contribute their own
	// point; an unequal country contributes nothing at all.
	if a.Country != "" && b.Country != "" && a.Country == b.Country {
		sum += 1.0
		count++
		if a.City != "" && b.City != "" && a.City == b.City {
			sum += 1.0
			count++
		}
	}

	if a.Religion != "" && b.Religion != "" {
		if a.Religion == b.Religion {
			sum += 1.0
		}
		count++
	}

	if a.Education != "" && b.Education != "" {
		if a.Education == b.Education {
			sum += 1.0
		}
		count++
	}

	if a.HasPhoto() && b.HasPhoto() {
		sum += 1.0
		count++
	}

	if a.IsVerified && b.IsVerified {
		sum += 1.0
		count++
	}

	if count == 0 {
		return 0.0
	}
	return sum / float64(count)
}
