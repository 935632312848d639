package utils

import "strings"

// IsPhoneLike reports whether s is an E.164 style number such as +998901234567.
func IsPhoneLike(s string) bool {
	return e164LikeRegex.MatchString(strings.TrimSpace(s))
}

// MaskPhone keeps the first 4 and the last 2 characters: +998**...67.
func MaskPhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if len(phone) <= 6 {
		return RedactionMarker
	}

	return phone[:4] + RedactionMarker + "..." + phone[len(phone)-2:]
}
