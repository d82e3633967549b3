package usecase

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
)

const maxQueryLength = 100

var (
	// "355 ml", "12 fl oz", "1.5 l", "500g"
	sizeQuantityPattern = regexp.MustCompile(`(?i)\b\d+(?:[.,]\d+)?\s*(?:fl\s*oz|oz|ounces?|lbs?|pounds?|ml|cl|l|liters?|litres?|kg|grams?|g)\b`)

	// "12 pack", "pack of 6", "24 ct"
	packCountPattern = regexp.MustCompile(`(?i)\b\d+[-\s]*(?:pack|pk|count|ct)\b|\bpack\s+of\s+\d+\b`)

	// characters the upstream search endpoints reject or treat as operators
	specialCharsRegex = regexp.MustCompile(`[#%+@!^*()=\[\]{}<>|\\~` + "`" + `"]`)

	nonAlphanumericRegex = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
	multipleSpacesRegex  = regexp.MustCompile(`\s+`)
)

// queryNoiseWords never narrow a food search
var queryNoiseWords = map[string]bool{
	"value": true, "family": true, "bonus": true, "new": true, "improved": true,
	"premium": true, "size": true, "jumbo": true, "package": true, "box": true,
	"bag": true, "bottle": true, "jar": true, "carton": true, "pouch": true,
	"food": true, "item": true, "product": true, "brand": true,
}

// QueryPreprocessor cleans free text typed by a user into a catalog search query
type QueryPreprocessor struct {
	log *zap.Logger
}

// NewQueryPreprocessor creates a new query preprocessor
func NewQueryPreprocessor() *QueryPreprocessor {
	return &QueryPreprocessor{log: zap.L().Named("query")}
}

// PreprocessQuery strips sizes, pack counts, noise words and operator characters.
// If nothing meaningful is left the trimmed input is returned instead.
func (p *QueryPreprocessor) PreprocessQuery(query string) string {
	original := strings.TrimSpace(query)
	if original == "" {
		return ""
	}

	cleaned := strings.ReplaceAll(original, "&", " and ")
	cleaned = sizeQuantityPattern.ReplaceAllString(cleaned, " ")
	cleaned = packCountPattern.ReplaceAllString(cleaned, " ")
	cleaned = specialCharsRegex.ReplaceAllString(cleaned, " ")

	words := strings.Fields(cleaned)
	kept := words[:0]
	for _, w := range words {
		if !queryNoiseWords[strings.ToLower(strings.Trim(w, ",.;:-'"))] {
			kept = append(kept, w)
		}
	}
	cleaned = strings.Trim(strings.Join(kept, " "), " ,;:-")

	if cleaned == "" {
		cleaned = original
	}
	if len(cleaned) > maxQueryLength {
		cleaned = strings.ToValidUTF8(cleaned[:maxQueryLength], "")
		if lastSpace := strings.LastIndex(cleaned, " "); lastSpace > maxQueryLength/2 {
			cleaned = cleaned[:lastSpace]
		}
	}

	p.log.Debug("preprocessed query", zap.String("input", original), zap.String("output", cleaned))
	return cleaned
}

// NormalizeQuery is the cache key form of a query: lowercase, alphanumerics only, single spaces
func NormalizeQuery(s string) string {
	if s == "" {
		return ""
	}
	result := strings.ToLower(s)
	result = nonAlphanumericRegex.ReplaceAllString(result, "")
	result = multipleSpacesRegex.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}
