package oracle

import (
	"regexp"
	"strconv"
	"strings"
)

// PriceRule mines a USD figure out of a search snippet.
type PriceRule struct {
	Name    string
	pattern *regexp.Regexp
	skip    func(raw string) bool
}

// Match returns the first figure the rule finds in text.
func (r PriceRule) Match(text string) (int64, bool) {
	for _, m := range r.pattern.FindAllStringSubmatch(text, -1) {
		raw := m[1]
		if r.skip != nil && r.skip(raw) {
			continue
		}
		v, err := strconv.ParseInt(strings.ReplaceAll(raw, ",", ""), 10, 64)
		if err != nil {
			continue
		}
		return v, true
	}
	return 0, false
}

// PriceRules are tried in order; the first rule that matches wins.
var PriceRules = []PriceRule{
	{
		Name:    "dollar_amount",
		pattern: regexp.MustCompile(`\$([0-9,]+)`),
	},
	{
		Name:    "bare_number",
		pattern: regexp.MustCompile(`([0-9,]{4,})`),
		skip:    looksLikeYear,
	},
}

// looksLikeYear reports whether a bare run is a four-digit year such as "2025".
func looksLikeYear(raw string) bool {
	if len(raw) != 4 || strings.Contains(raw, ",") {
		return false
	}
	y, err := strconv.Atoi(raw)
	return err == nil && y >= 1900 && y <= 2100
}

// ExtractPrice applies PriceRules to text. It returns false when no rule matches.
func ExtractPrice(text string) (int64, bool) {
	for _, r := range PriceRules {
		if v, ok := r.Match(text); ok {
			return v, true
		}
	}
	return 0, false
}
