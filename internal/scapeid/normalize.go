package scapeid

import "strings"

// Normalize canonicalizes scape names and their common aliases. Unknown names
// are returned lowercased with separators folded to "-".
func Normalize(name string) string {
	normalized := strings.TrimSpace(strings.ToLower(name))
	normalized = strings.ReplaceAll(normalized, "_", "-")
	normalized = strings.ReplaceAll(normalized, " ", "-")
	normalized = strings.Trim(normalized, "-")
	if normalized == "" {
		return ""
	}
	for _, candidate := range aliasCandidates(normalized) {
		if canonical, ok := canonicalScapeName(candidate); ok {
			return canonical
		}
	}
	return normalized
}

func aliasCandidates(normalized string) []string {
	candidates := []string{normalized}
	if trimmed := strings.Trim(strings.TrimPrefix(normalized, "scape-"), "-"); trimmed != "" && trimmed != normalized {
		candidates = append(candidates, trimmed)
	}
	return candidates
}

func canonicalScapeName(alias string) (string, bool) {
	switch strings.ReplaceAll(alias, "-", "") {
	case "onemax", "countingones", "bitcount":
		return "onemax", true
	case "sphere", "dejong1", "dejongf1":
		return "sphere", true
	default:
		return "", false
	}
}
