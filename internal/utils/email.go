package utils

import "strings"

// MaskEmail keeps the first and last character of the local part:
// driver@example.com becomes d**r@example.com. Local parts of two characters
// or less are hidden completely.
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}

	local := []rune(email[:at])
	domain := email[at+1:]

	if len(local) <= 2 {
		return RedactionMarker + "@" + domain
	}

	return string(local[0]) + RedactionMarker + string(local[len(local)-1]) + "@" + domain
}
