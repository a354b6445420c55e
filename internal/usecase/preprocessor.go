package usecase

import (
	"log"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// ProductPreprocessor cleans raw product names before they reach the
// classification pipeline and extracts HS code candidates from model
// responses.
type ProductPreprocessor struct {
	enableDebugLogging bool
}

// Compiled regex patterns for response parsing
var (
	// Matches HS codes written as 4707.90, 470790 or 47079000
	hsCodePattern = regexp.MustCompile(`\b\d{4}\.\d{2}\b|\b\d{6}\b|\b\d{8}\b`)

	// Multiple spaces cleanup
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// maxNameRunes caps cleaned product names before prompting
const maxNameRunes = 200

// NewProductPreprocessor creates a new product preprocessor
func NewProductPreprocessor(enableDebugLogging bool) *ProductPreprocessor {
	return &ProductPreprocessor{
		enableDebugLogging: enableDebugLogging,
	}
}

// CleanName normalizes a raw product name for prompting
// Applies Unicode NFKC normalization, strips control characters,
// collapses whitespace, and caps the length
func (p *ProductPreprocessor) CleanName(name string) string {
	original := name

	// Step 1: Fold Unicode compatibility forms (full-width characters,
	// ligatures) into their canonical equivalents
	cleaned := norm.NFKC.String(name)

	// Step 2: Strip control characters
	cleaned = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, cleaned)

	// Step 3: Normalize whitespace
	cleaned = whitespacePattern.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)

	// Step 4: Limit length, cutting at a word boundary when possible
	if runes := []rune(cleaned); len(runes) > maxNameRunes {
		cleaned = string(runes[:maxNameRunes])
		if lastSpace := strings.LastIndex(cleaned, " "); lastSpace > maxNameRunes/2 {
			cleaned = cleaned[:lastSpace]
		}
	}

	if p.enableDebugLogging {
		log.Printf("[PREPROCESS] Input: %q -> Output: %q", original, cleaned)
	}

	return cleaned
}

// ExtractHSCodes pulls HS code candidates out of a model response.
// Matches are reduced to their 6-digit subheading form, deduplicated,
// and returned in order of first appearance.
func (p *ProductPreprocessor) ExtractHSCodes(text string) []string {
	matches := hsCodePattern.FindAllString(text, -1)

	seen := make(map[string]bool, len(matches))
	var codes []string
	for _, match := range matches {
		code := strings.ReplaceAll(match, ".", "")
		if len(code) > 6 {
			code = code[:6]
		}
		if seen[code] {
			continue
		}
		seen[code] = true
		codes = append(codes, code)
	}

	return codes
}
