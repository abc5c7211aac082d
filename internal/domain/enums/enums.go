package enums

import "strings"

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

func ValidGender(raw string) bool {
	switch Gender(strings.ToLower(strings.TrimSpace(raw))) {
	case GenderMale, GenderFemale, GenderOther:
		return true
	default:
		return false
	}
}

// ValidInterest accepts the gender values plus "any".
func ValidInterest(raw string) bool {
	if strings.ToLower(strings.TrimSpace(raw)) == "any" {
		return true
	}
	return ValidGender(raw)
}
