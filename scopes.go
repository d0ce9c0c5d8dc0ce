package authcore

import (
	"strings"
)

// ParseScopes parses a space-separated scope string into a slice, dropping
// duplicates.
func ParseScopes(scopeString string) []string {
	if scopeString == "" {
		return nil
	}
	scopes := strings.Fields(scopeString)
	seen := make(map[string]bool)
	result := make([]string, 0, len(scopes))
	for _, s := range scopes {
		if !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	return result
}

// JoinScopes joins a slice of scopes into a space-separated string
func JoinScopes(scopes []string) string {
	return strings.Join(scopes, " ")
}

// MissingScopes returns the scopes in required that granted lacks, in order.
func MissingScopes(granted, required []string) []string {
	grantedSet := make(map[string]bool, len(granted))
	for _, s := range granted {
		grantedSet[s] = true
	}
	var missing []string
	for _, s := range required {
		if !grantedSet[s] {
			missing = append(missing, s)
		}
	}
	return missing
}

// GrantedScopes returns the scopes the provider granted. An omitted scope
// field means the requested scopes were granted unchanged (RFC 6749 §5.1).
func (t *TokenResponse) GrantedScopes(requested []string) []string {
	if t.Scope == "" {
		return requested
	}
	return ParseScopes(t.Scope)
}
