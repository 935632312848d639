package utils

import (
	"regexp"
	"strings"
)

// RedactionMarker replaces sensitive values in audit payloads.
const RedactionMarker = "**"

var (
	e164LikeRegex = regexp.MustCompile(`^\+[1-9]\d{7,14}$`)

	sensitiveKeys = map[string]bool{
		"phone":      true,
		"phone_e164": true,
		"email":      true,
		"password":   true,
		"code":       true,
		"token":      true,
	}
)

func IsSensitiveKey(key string) bool {
	return sensitiveKeys[strings.ToLower(strings.TrimSpace(key))]
}

// MaskPayload returns a masked deep copy of payload. Values under sensitive
// keys are replaced with RedactionMarker. Phone and email strings under the
// phone and email keys keep their partial mask; secrets never do.
func MaskPayload(payload map[string]interface{}) map[string]interface{} {
	if payload == nil {
		return nil
	}
	masked := make(map[string]interface{}, len(payload))
	for key, value := range payload {
		if IsSensitiveKey(key) {
			masked[key] = maskSensitive(key, value)
			continue
		}
		masked[key] = MaskValue(value)
	}
	return masked
}

// MaskValue masks phone- and email-shaped strings anywhere inside value.
func MaskValue(value interface{}) interface{} {
	switch v := value.(type) {
	case string:
		return MaskString(v)
	case map[string]interface{}:
		return MaskPayload(v)
	case map[string]string:
		converted := make(map[string]interface{}, len(v))
		for key, item := range v {
			converted[key] = item
		}
		return MaskPayload(converted)
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = MaskValue(item)
		}
		return out
	case []string:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = MaskString(item)
		}
		return out
	case []map[string]interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = MaskPayload(item)
		}
		return out
	default:
		return value
	}
}

func MaskString(s string) string {
	switch {
	case IsPhoneLike(s):
		return MaskPhone(s)
	case strings.Contains(s, "@"):
		return MaskEmail(s)
	}
	return s
}

func maskSensitive(key string, value interface{}) interface{} {
	v, ok := value.(string)
	if !ok {
		return RedactionMarker
	}

	switch strings.ToLower(strings.TrimSpace(key)) {
	case "phone", "phone_e164":
		if IsPhoneLike(v) {
			return MaskPhone(v)
		}
	case "email":
		if strings.Contains(v, "@") {
			return MaskEmail(v)
		}
	}
	return RedactionMarker
}
