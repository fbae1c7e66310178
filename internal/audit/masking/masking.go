package masking

import "strings"

const maskToken = "****"

var sensitiveKeys = map[string]struct{}{
	"api_key":    {},
	"credential": {},
	"password":   {},
	"secret":     {},
	"token":      {},
}

// MaskSecret redacts a secret while keeping a minimal suffix for auditing.
func MaskSecret(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}

	prefix, remainder := splitPrefix(trimmed)
	if len(remainder) <= 4 {
		return prefix + maskToken
	}

	return prefix + maskToken + remainder[len(remainder)-4:]
}

// MaskSensitive returns a copy of input where string values under
// credential-like keys are masked. Nested maps are walked.
func MaskSensitive(input map[string]any) map[string]any {
	if len(input) == 0 {
		return map[string]any{}
	}

	out := make(map[string]any, len(input))
	for key, value := range input {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		switch cast := value.(type) {
		case string:
			if isSensitive(trimmedKey) {
				out[trimmedKey] = MaskSecret(cast)
				continue
			}
			out[trimmedKey] = cast
		case map[string]any:
			out[trimmedKey] = MaskSensitive(cast)
		default:
			out[trimmedKey] = value
		}
	}
	return out
}

func isSensitive(key string) bool {
	_, ok := sensitiveKeys[strings.ToLower(key)]
	return ok
}

func splitPrefix(value string) (string, string) {
	lastUnderscore := strings.LastIndex(value, "_")
	if lastUnderscore == -1 || lastUnderscore == len(value)-1 {
		return "", value
	}
	return value[:lastUnderscore+1], value[lastUnderscore+1:]
}
