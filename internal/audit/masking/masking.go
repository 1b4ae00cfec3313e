package masking

import "strings"

const maskToken = "****"

// MaskSecret redacts a secret while keeping a short suffix for correlation.
func MaskSecret(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if len(trimmed) <= 8 {
		return maskToken
	}
	return maskToken + trimmed[len(trimmed)-4:]
}

// MaskEmail keeps the first character of the local part and the domain.
func MaskEmail(value string) string {
	trimmed := strings.TrimSpace(value)
	at := strings.LastIndex(trimmed, "@")
	if at <= 0 {
		return MaskSecret(trimmed)
	}
	return trimmed[:1] + maskToken + trimmed[at:]
}

// MaskMetadata returns a copy of input with sensitive keys redacted.
func MaskMetadata(input map[string]any) map[string]any {
	if len(input) == 0 {
		return nil
	}

	masked := make(map[string]any, len(input))
	for key, value := range input {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		masked[key] = maskValue(key, value)
	}
	return masked
}

func maskValue(key string, value any) any {
	switch cast := value.(type) {
	case string:
		lower := strings.ToLower(key)
		switch {
		case strings.Contains(lower, "email"):
			return MaskEmail(cast)
		case strings.Contains(lower, "signature"), strings.Contains(lower, "secret"), strings.Contains(lower, "key"):
			return MaskSecret(cast)
		}
		return cast
	case map[string]any:
		return MaskMetadata(cast)
	default:
		return value
	}
}
