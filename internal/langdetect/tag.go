package langdetect

import "strings"

// NormalizeCode reduces a language tag to its lowercase primary subtag
// ("he" from "he_IL"). Tags with non-letter subtags yield "".
func NormalizeCode(raw string) string {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return ""
	}

	parts := strings.Split(strings.ReplaceAll(trimmed, "_", "-"), "-")
	primary := ""
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !isASCIILower(part) {
			return ""
		}
		if primary == "" {
			primary = part
		}
	}
	return primary
}

func isASCIILower(value string) bool {
	for _, r := range value {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
