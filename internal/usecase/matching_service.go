package usecase

import (
	"regexp"
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/macrolens/foodrecon/internal/domain"
)

var punctuationRegex = regexp.MustCompile(`[^\p{L}\p{N}\s]`)

// Token weights for scoring
const (
	weightFood        = 3.0
	weightDescriptive = 2.0
	weightDefault     = 1.0
	fuzzyWeightFactor = 0.8
)

const (
	brandMatchBonus     = 15.0
	substringMatchBonus = 10.0
	barcodeMatchScore   = 100.0
	defaultMinPairScore = 60.0
	defaultFuzzyEdits   = 1
)

// foodTerms carry the most weight when comparing names
var foodTerms = map[string]bool{
	"chicken": true, "beef": true, "pork": true, "fish": true, "salmon": true,
	"turkey": true, "tuna": true, "bacon": true, "ham": true, "sausage": true,
	"milk": true, "cheese": true, "yogurt": true, "yoghurt": true, "butter": true,
	"cream": true, "egg": true, "eggs": true, "bread": true, "rice": true,
	"pasta": true, "cereal": true, "oats": true, "flour": true, "noodles": true,
	"apple": true, "banana": true, "orange": true, "tomato": true, "potato": true,
	"juice": true, "soda": true, "cola": true, "coffee": true, "tea": true,
	"water": true, "chips": true, "crackers": true, "cookies": true, "chocolate": true,
	"sauce": true, "ketchup": true, "mayonnaise": true, "honey": true, "jam": true,
	"pizza": true, "soup": true, "salad": true, "beans": true, "peanut": true,
}

// descriptiveTerms carry medium weight
var descriptiveTerms = map[string]bool{
	"whole": true, "skim": true, "reduced": true, "fat": true, "low": true,
	"nonfat": true, "organic": true, "frozen": true, "canned": true, "dried": true,
	"raw": true, "cooked": true, "roasted": true, "smoked": true, "vanilla": true,
	"plain": true, "original": true, "classic": true, "sweet": true, "spicy": true,
	"light": true, "diet": true, "zero": true, "sugar": true, "greek": true,
	"unsweetened": true, "salted": true, "unsalted": true, "lean": true, "protein": true,
}

// pairStopWords are dropped before comparing names
var pairStopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "of": true,
	"in": true, "with": true, "for": true, "by": true, "from": true,
	"oz": true, "fl": true, "lb": true, "ml": true, "kg": true, "g": true,
	"pack": true, "count": true, "ct": true, "can": true, "bottle": true,
	"de": true, "la": true, "le": true, "et": true, "du": true,
}

// MatchConfig holds configuration for cross-catalog pairing
type MatchConfig struct {
	MinConfidenceThreshold float64
	EnableFuzzyMatching    bool
	FuzzyEditDistance      int
}

// MatchingService decides which records from the two catalogs describe the same product
type MatchingService struct {
	minConfidenceThreshold float64
	enableFuzzyMatching    bool
	fuzzyEditDistance      int
	log                    *zap.Logger
}

// FoodPair is one output row of pairing. Either side may be nil when a record had no partner.
type FoodPair struct {
	Primary   *domain.NormalizedFood
	Secondary *domain.NormalizedFood
	Score     float64
}

// NewMatchingService creates a new matching service with the given configuration
func NewMatchingService(config MatchConfig) *MatchingService {
	threshold := config.MinConfidenceThreshold
	if threshold <= 0 {
		threshold = defaultMinPairScore
	}
	edits := config.FuzzyEditDistance
	if edits <= 0 {
		edits = defaultFuzzyEdits
	}
	return &MatchingService{
		minConfidenceThreshold: threshold,
		enableFuzzyMatching:    config.EnableFuzzyMatching,
		fuzzyEditDistance:      edits,
		log:                    zap.L().Named("matching"),
	}
}

// Pair matches primaries against secondaries. A shared barcode always pairs;
// otherwise the best-scoring unused secondary above the threshold does.
// Each record appears in exactly one pair. Output keeps primary order,
// followed by unpaired secondaries in their original order.
func (s *MatchingService) Pair(primaries, secondaries []domain.NormalizedFood) []FoodPair {
	used := make([]bool, len(secondaries))
	partner := make([]int, len(primaries))
	scores := make([]float64, len(primaries))
	for i := range partner {
		partner[i] = -1
	}

	// barcodes first so a name match cannot steal a certain partner
	for i := range primaries {
		for j := range secondaries {
			if !used[j] && sameBarcode(&primaries[i], &secondaries[j]) {
				partner[i], scores[i], used[j] = j, barcodeMatchScore, true
				break
			}
		}
	}

	for i := range primaries {
		if partner[i] >= 0 {
			continue
		}
		best, bestScore := -1, 0.0
		for j := range secondaries {
			if used[j] {
				continue
			}
			score, _ := s.calculateMatchScore(&primaries[i], &secondaries[j])
			if score > bestScore {
				best, bestScore = j, score
			}
		}
		if best >= 0 && bestScore >= s.minConfidenceThreshold {
			partner[i], scores[i], used[best] = best, bestScore, true
			s.log.Debug("paired by name",
				zap.String("primary", primaries[i].GID),
				zap.String("secondary", secondaries[best].GID),
				zap.Float64("score", bestScore))
		}
	}

	pairs := make([]FoodPair, 0, len(primaries)+len(secondaries))
	for i := range primaries {
		p := FoodPair{Primary: &primaries[i], Score: scores[i]}
		if j := partner[i]; j >= 0 {
			p.Secondary = &secondaries[j]
		}
		pairs = append(pairs, p)
	}
	for j := range secondaries {
		if !used[j] {
			pairs = append(pairs, FoodPair{Secondary: &secondaries[j]})
		}
	}
	return pairs
}

func sameBarcode(a, b *domain.NormalizedFood) bool {
	for _, x := range barcodesOf(a) {
		for _, y := range barcodesOf(b) {
			if x == y {
				return true
			}
		}
	}
	return false
}

// barcodesOf returns the record's barcodes with leading zeros stripped so UPC-A and EAN-13 compare equal
func barcodesOf(f *domain.NormalizedFood) []string {
	out := make([]string, 0, len(f.Barcodes)+1)
	for _, b := range append([]string{f.Barcode}, f.Barcodes...) {
		if b = strings.TrimLeft(strings.TrimSpace(b), "0"); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// calculateMatchScore compares two records by weighted token overlap of their names.
// Coverage of the primary's tokens matters most, then coverage of the secondary's,
// then plain Jaccard. Matching brands and substring names add bonuses. Range 0-100.
func (s *MatchingService) calculateMatchScore(primary, secondary *domain.NormalizedFood) (float64, []string) {
	pTokens := tokenize(primary.Name)
	sTokens := tokenize(secondary.Name)
	if len(pTokens) == 0 || len(sTokens) == 0 {
		return 0, nil
	}

	pCoverage, matched := s.weightedCoverage(pTokens, sTokens)
	sCoverage, _ := s.weightedCoverage(sTokens, pTokens)
	jaccard := float64(len(matched)) / float64(findUnion(pTokens, sTokens))

	score := (pCoverage*0.60 + sCoverage*0.20 + jaccard*0.20) * 100

	if pb, sb := foldDiacritics(primary.Brand), foldDiacritics(secondary.Brand); pb != "" && sb != "" {
		if pb == sb || strings.Contains(pb, sb) || strings.Contains(sb, pb) {
			score += brandMatchBonus
		}
	}

	pName, sName := foldDiacritics(primary.Name), foldDiacritics(secondary.Name)
	if len(pName) > 3 && len(sName) > 3 && (strings.Contains(pName, sName) || strings.Contains(sName, pName)) {
		score += substringMatchBonus
	}

	return min(score, 100), matched
}

// weightedCoverage is the weighted fraction of tokens found in other
func (s *MatchingService) weightedCoverage(tokens, other []string) (float64, []string) {
	set := make(map[string]bool, len(other))
	for _, t := range other {
		set[t] = true
	}
	var total, hit float64
	var matched []string
	for _, t := range tokens {
		w := tokenWeight(t)
		total += w
		switch {
		case set[t]:
			hit += w
			matched = append(matched, t)
		case s.enableFuzzyMatching && s.fuzzyHit(t, other):
			hit += w * fuzzyWeightFactor
			matched = append(matched, t)
		}
	}
	if total == 0 {
		return 0, nil
	}
	return hit / total, matched
}

func (s *MatchingService) fuzzyHit(token string, other []string) bool {
	for _, o := range other {
		if fuzzyTokenMatch(token, o, s.fuzzyEditDistance) {
			return true
		}
	}
	return false
}

func tokenWeight(token string) float64 {
	switch {
	case foodTerms[token]:
		return weightFood
	case descriptiveTerms[token]:
		return weightDescriptive
	default:
		return weightDefault
	}
}

// foldDiacritics lowercases and strips combining marks so "Crème" compares equal to "creme"
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return out
}

// tokenize splits a name into folded tokens, dropping punctuation, stop words and numbers
func tokenize(s string) []string {
	cleaned := punctuationRegex.ReplaceAllString(foldDiacritics(s), " ")
	var tokens []string
	seen := make(map[string]bool)
	for _, word := range strings.Fields(cleaned) {
		if len(word) <= 1 || pairStopWords[word] || isNumeric(word) || seen[word] {
			continue
		}
		seen[word] = true
		tokens = append(tokens, word)
	}
	return tokens
}

func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// fuzzyTokenMatch reports whether two tokens are within the edit distance threshold
func fuzzyTokenMatch(token1, token2 string, threshold int) bool {
	if token1 == token2 {
		return true
	}
	if len(token1) < 4 || len(token2) < 4 {
		return false
	}
	lenDiff := len(token1) - len(token2)
	if lenDiff < 0 {
		lenDiff = -lenDiff
	}
	if lenDiff > threshold {
		return false
	}
	return levenshteinDistance(token1, token2) <= threshold
}

func levenshteinDistance(s1, s2 string) int {
	r1, r2 := []rune(s1), []rune(s2)
	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}
	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 1
			if r1[i-1] == r2[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(r2)]
}

func findUnion(tokens1, tokens2 []string) int {
	set := make(map[string]bool, len(tokens1)+len(tokens2))
	for _, t := range tokens1 {
		set[t] = true
	}
	for _, t := range tokens2 {
		set[t] = true
	}
	return len(set)
}
