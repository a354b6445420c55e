package domain

import (
	"fmt"
	"strings"
)

// NormalizeHSCode reduces an HS code to its canonical lookup form:
// surrounding whitespace and dots removed, truncated to the 6-digit
// subheading level. Returns an error when the result is empty or
// contains non-digit characters.
func NormalizeHSCode(raw string) (string, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ".", "")
	if len(cleaned) > 6 {
		cleaned = cleaned[:6]
	}
	if cleaned == "" {
		return "", fmt.Errorf("empty HS code")
	}
	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("HS code %q contains non-digit characters", raw)
		}
	}
	return cleaned, nil
}
