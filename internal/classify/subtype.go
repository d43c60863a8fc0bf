package classify

import "strings"

// TokenSubtype extracts the subtype phrase from a token's type line.
// "Token Creature — Goblin" yields "Goblin". Lines without a separator fall
// back to the line itself with the Token keyword stripped.
func TokenSubtype(typeLine string) string {
	for _, sep := range []string{"—", " - "} {
		if idx := strings.LastIndex(typeLine, sep); idx >= 0 {
			tail := strings.TrimSpace(typeLine[idx+len(sep):])
			if tail != "" {
				return tail
			}
		}
	}

	stripped := strings.ReplaceAll(typeLine, "Token", "")
	return strings.TrimSpace(stripped)
}

// IsToken reports whether a type line or layout marks an auxiliary printing
// (token, emblem, art card companion objects)
func IsToken(typeLine, layout string) bool {
	switch layout {
	case "token", "double_faced_token", "emblem":
		return true
	}
	return strings.Contains(typeLine, "Token") || strings.Contains(typeLine, "Emblem")
}

// IsBasicLand reports whether a type line names a basic land
func IsBasicLand(typeLine string) bool {
	return strings.Contains(typeLine, "Basic") && strings.Contains(typeLine, "Land")
}
