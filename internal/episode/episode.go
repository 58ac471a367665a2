package episode

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the ISO calendar date format used by the catalog.
const DateLayout = "2006-01-02"

var codePattern = regexp.MustCompile(`^S(\d{2,})E(\d{2,})$`)

// Code formats a season/episode pair as S01E02.
func Code(season, number int) string {
	return fmt.Sprintf("S%02dE%02d", season, number)
}

// ParseCode splits an S##E## code into its season and episode numbers.
func ParseCode(code string) (season, number int, ok bool) {
	match := codePattern.FindStringSubmatch(strings.TrimSpace(code))
	if match == nil {
		return 0, 0, false
	}
	season, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, 0, false
	}
	number, err = strconv.Atoi(match[2])
	if err != nil {
		return 0, 0, false
	}
	return season, number, true
}

// ValidCode reports whether code is a well-formed S##E## code.
func ValidCode(code string) bool {
	_, _, ok := ParseCode(code)
	return ok
}

// ParseDate parses an ISO YYYY-MM-DD date. Empty or malformed values report false.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	parsed, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

// DateOf truncates t to its calendar date, expressed as UTC midnight so it
// compares cleanly against ParseDate results.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Aired is a compacted catalog episode: its number within the season and air date.
type Aired struct {
	Episode int    `json:"episode"`
	AirDate string `json:"air_date"`
}

// Upcoming pairs an air date with an episode code.
type Upcoming struct {
	Date string `json:"date"`
	Code string `json:"code"`
}

// DaysUntil returns the whole days between today and the upcoming date.
// The second value is false when the date cannot be parsed.
func (u Upcoming) DaysUntil(today time.Time) (int, bool) {
	date, ok := ParseDate(u.Date)
	if !ok {
		return 0, false
	}
	return int(date.Sub(DateOf(today)).Hours() / 24), true
}

// SortUpcoming deduplicates items by (date, code) and sorts them ascending.
func SortUpcoming(items []Upcoming) []Upcoming {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[Upcoming]struct{}, len(items))
	out := make([]Upcoming, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	slices.SortFunc(out, func(a, b Upcoming) int {
		if c := strings.Compare(a.Date, b.Date); c != 0 {
			return c
		}
		return strings.Compare(a.Code, b.Code)
	})
	return out
}

// SortCodes deduplicates and sorts episode codes lexicographically.
func SortCodes(codes []string) []string {
	if len(codes) == 0 {
		return nil
	}
	out := slices.Clone(codes)
	slices.Sort(out)
	return slices.Compact(out)
}

// SeasonOf returns the season number encoded in code, or false for malformed codes.
func SeasonOf(code string) (int, bool) {
	season, _, ok := ParseCode(code)
	return season, ok
}
