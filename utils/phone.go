package utils

import "strings"

// NormalizePhone menyisakan digit saja ("+55 11 9999-9999" -> "551199999999").
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
