package validate

import "strings"

func Required(value string) bool {
	return strings.TrimSpace(value) != ""
}

// NormalizePhone strips formatting characters and checks the result
// looks like an E.164 number. Returns the canonical "+<digits>" form.
func NormalizePhone(raw string) (string, bool) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return "", false
	}

	var b strings.Builder
	for i, r := range cleaned {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
		case r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return "", false
		}
	}

	digits := b.String()
	if len(digits) < 7 || len(digits) > 15 {
		return "", false
	}
	if digits[0] == '0' {
		return "", false
	}

	return "+" + digits, true
}
