package identity

import (
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/Lunedor/plex-parity/internal/catalog"
)

const (
	exactYearBonus   = 20.0
	nearYearBonus    = 10.0
	farYearPenalty   = -10.0
	farYearThreshold = 3
	popularityCap    = 50.0
	popularityScale  = 10.0
)

var (
	nonAlnum     = regexp.MustCompile(`[^a-z0-9]+`)
	parenthetics = regexp.MustCompile(`\(.*?\)`)
	lowerCaser   = cases.Lower(language.Und)
)

// Normalize folds a title for comparison: diacritics stripped, lowercased,
// runs of non-alphanumerics collapsed to one space, and trimmed.
func Normalize(value string) string {
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, value)
	if err != nil {
		folded = value
	}
	return strings.TrimSpace(nonAlnum.ReplaceAllString(lowerCaser.String(folded), " "))
}

// Similarity returns a 0..1 ratio of how alike two normalized strings are,
// derived from their Levenshtein distance.
func Similarity(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}
	distance := fuzzy.LevenshteinDistance(a, b)
	return 1 - float64(distance)/float64(longest)
}

// Score ranks a search candidate against the local title and year. Higher is
// better. Candidates without any usable name score -1.
func Score(title string, year int, candidate catalog.SearchResult) float64 {
	score, ok := rank(title, year, candidate)
	if !ok {
		return -1
	}
	return score
}

func rank(title string, year int, candidate catalog.SearchResult) (float64, bool) {
	normalized := Normalize(title)
	best, named := 0.0, false
	for _, name := range []string{candidate.Name, candidate.OriginalName} {
		name = Normalize(name)
		if name == "" {
			continue
		}
		best, named = max(best, Similarity(normalized, name)), true
	}
	if !named {
		return 0, false
	}
	score := best * 100

	if candidateYear := candidate.Year(); year > 0 && candidateYear > 0 {
		diff := int(math.Abs(float64(candidateYear - year)))
		switch {
		case diff == 0:
			score += exactYearBonus
		case diff == 1:
			score += nearYearBonus
		case diff > farYearThreshold:
			score += farYearPenalty
		}
	}

	score += min(max(candidate.Popularity, 0), popularityCap) / popularityScale
	return score, true
}

// SearchQueries returns the title and, when different, the title with
// parenthetical suffixes such as "(US)" or "(2019)" removed.
func SearchQueries(title string) []string {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil
	}
	queries := []string{title}
	stripped := strings.Join(strings.Fields(parenthetics.ReplaceAllString(title, "")), " ")
	if stripped != "" && stripped != title {
		queries = append(queries, stripped)
	}
	return queries
}

// YearCandidates returns the year biases tried for each query: the local
// year, one either side, then no year (0).
func YearCandidates(year int) []int {
	if year <= 0 {
		return []int{0}
	}
	return []int{year, year - 1, year + 1, 0}
}
