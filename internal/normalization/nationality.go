// Package normalization canonicalizes free-text socio-demographic
// values. Nationality is the only field messy enough to need it:
// respondents answer in Czech, English, native spellings, or ISO codes.
package normalization

import (
	"sort"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// similarityCutoff mirrors the fuzzy-match threshold the study settled
// on: close typo distance, but "czech" must never match "german".
const similarityCutoff = 0.88

var canonicalSynonyms = map[string][]string{
	"Czech":     {"czech", "czech republic", "cesko", "ceska republika", "ceska", "cesky", "cz", "cze", "bohemia"},
	"German":    {"german", "germany", "deutsch", "deutsche", "deutschland", "nemecko", "nemec", "de"},
	"Bosnian":   {"bosnian", "bosnia", "bosna", "bosnian and herzegovinian", "bosnia and herzegovina", "ba"},
	"Turkish":   {"turkish", "turk", "turkiye", "turkey", "tr", "turecko"},
	"Austrian":  {"austrian", "austria", "osterreich", "at"},
	"Slovak":    {"slovak", "slovakia", "slovensko", "sk"},
	"Polish":    {"polish", "poland", "polsko", "pl"},
	"Ukrainian": {"ukrainian", "ukraine", "ukrajina", "ua"},
}

var (
	lookup      map[string]string
	knownTokens []string
	titleCaser  = cases.Title(language.English)
	deaccent    = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

func init() {
	lookup = make(map[string]string)
	for canonical, variants := range canonicalSynonyms {
		lookup[normalizeToken(canonical)] = canonical
		for _, v := range variants {
			lookup[normalizeToken(v)] = canonical
		}
	}
	knownTokens = make([]string, 0, len(lookup))
	for tok := range lookup {
		knownTokens = append(knownTokens, tok)
	}
	sort.Strings(knownTokens)
}

func normalizeToken(value string) string {
	s := strings.ToLower(strings.TrimSpace(value))
	if s == "" {
		return ""
	}
	if folded, _, err := transform.String(deaccent, s); err == nil {
		s = folded
	}
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := false
	for _, r := range s {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace && b.Len() > 0 {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 0
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

// Nationality maps a free-text nationality answer to its canonical
// form. Unknown but usable tokens pass through title-cased; blank
// input yields "".
func Nationality(value string) string {
	token := normalizeToken(value)
	if token == "" {
		return ""
	}

	if direct, ok := lookup[token]; ok {
		return direct
	}

	best := ""
	bestScore := similarityCutoff
	for _, known := range knownTokens {
		if score := similarity(token, known); score >= bestScore {
			best = known
			bestScore = score
		}
	}
	if best != "" {
		return lookup[best]
	}

	return titleCaser.String(token)
}
