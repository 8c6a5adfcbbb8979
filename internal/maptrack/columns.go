package maptrack

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SocDemoAliases maps each canonical socio-demographic field to its
// known alias spellings (Czech study exports mix locales). The
// canonical name itself always counts as an alias; order within a set
// does not matter because matching happens on the dataset side.
var SocDemoAliases = map[string][]string{
	"age":         {"age", "vek", "věk", "years", "ages"},
	"gender":      {"gender", "sex", "pohlavi", "pohlaví"},
	"occupation":  {"occupation", "job", "employment", "zamestnani", "zaměstnání", "profese"},
	"education":   {"education", "vzdelani", "vzdělání", "schooling"},
	"nationality": {"nationality", "narodnost", "národnost", "nation", "country", "citizenship", "statniobcanstvi"},
}

var deaccent = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeColumnName folds a header cell for alias comparison:
// lower-case, diacritics stripped, every non-alphanumeric rune dropped.
func NormalizeColumnName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	if folded, _, err := transform.String(deaccent, s); err == nil {
		s = folded
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ResolveColumnAliases maps canonical field names to the actual dataset
// column that satisfies them. For each canonical field the aliases are
// tried in order (canonical name first) and the first dataset column
// whose normalized name matches wins. Fields with no match are simply
// absent from the result.
func ResolveColumnAliases(columns []string, aliases map[string][]string) map[string]string {
	normalized := make(map[string]string, len(columns))
	for _, col := range columns {
		key := NormalizeColumnName(col)
		if _, ok := normalized[key]; !ok {
			normalized[key] = col
		}
	}

	resolved := make(map[string]string, len(aliases))
	for canonical, set := range aliases {
		candidates := append([]string{canonical}, set...)
		for _, alias := range candidates {
			if col, ok := normalized[NormalizeColumnName(alias)]; ok {
				resolved[canonical] = col
				break
			}
		}
	}
	return resolved
}

// ResolveColumn finds a single canonical field, or "" when no dataset
// column matches any alias.
func ResolveColumn(columns []string, canonical string, aliases []string) string {
	return ResolveColumnAliases(columns, map[string][]string{canonical: aliases})[canonical]
}
