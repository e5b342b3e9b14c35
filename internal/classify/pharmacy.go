package classify

import (
	"regexp"
	"strings"
)

// Chain is a pharmacy chain and the spellings it is recognized by. Spellings
// include OCR misreads seen on real labels (1/l, 0/o, rn/m, vv/w).
type Chain struct {
	Canonical string
	Spellings []string
}

// Chains is the pharmacy lookup table. Matching is exact against these
// spellings; there is no fuzzy matching.
var Chains = []Chain{
	{Canonical: "Walgreens", Spellings: []string{"walgreens", "walgreen's", "walgreen", "wa1greens", "valgreens", "walgrens"}},
	{Canonical: "CVS", Spellings: []string{"cvs", "cv5", "cvs/pharmacy"}},
	{Canonical: "Rite Aid", Spellings: []string{"rite aid", "rite-aid", "riteaid", "rlte aid", "rite ald"}},
	{Canonical: "Walmart", Spellings: []string{"walmart", "wal-mart", "wal mart", "wa1mart", "walrnart"}},
	{Canonical: "Costco", Spellings: []string{"costco", "c0stco", "cost co"}},
	{Canonical: "Kroger", Spellings: []string{"kroger", "kr0ger", "kroqer"}},
	{Canonical: "Safeway", Spellings: []string{"safeway", "safevvay", "safe way"}},
	{Canonical: "Publix", Spellings: []string{"publix", "pub1ix", "publlx"}},
	{Canonical: "Target", Spellings: []string{"target pharmacy", "targct pharmacy"}},
	{Canonical: "Sam's Club", Spellings: []string{"sam's club", "sams club", "sam s club", "sam'5 club"}},
}

var (
	chainPatterns = compileChains(Chains)
	rePharmacyKw  = regexp.MustCompile(`(?i)\bpharmacy\b`)
	rePharmacyTag = regexp.MustCompile(`(?i)^\s*pharmacy\s*[:#-]?\s*`)
	reTrailing    = regexp.MustCompile(`[\s,.:#-]+$`)
)

func compileChains(chains []Chain) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(chains))
	for i, c := range chains {
		quoted := make([]string, len(c.Spellings))
		for j, s := range c.Spellings {
			quoted[j] = regexp.QuoteMeta(s)
		}
		out[i] = regexp.MustCompile(`(?i)(?:^|[^a-z0-9])(?:` + strings.Join(quoted, "|") + `)(?:[^a-z0-9]|$)`)
	}
	return out
}

// ChainName returns the canonical chain named on line, if any.
func ChainName(line string) (string, bool) {
	for i, re := range chainPatterns {
		if re.MatchString(line) {
			return Chains[i].Canonical, true
		}
	}
	return "", false
}

// IsPharmacyLine reports a chain name or the word "pharmacy".
func IsPharmacyLine(line string) bool {
	if _, ok := ChainName(line); ok {
		return true
	}
	return rePharmacyKw.MatchString(line)
}

// MatchPharmacy returns the pharmacy named on line. Known chains come back in
// canonical form; otherwise the text before "pharmacy" is used ("SMITH FAMILY
// PHARMACY" -> "SMITH FAMILY"), or the text after a leading "Pharmacy:" tag.
func MatchPharmacy(line string) (string, bool) {
	if name, ok := ChainName(line); ok {
		return name, true
	}
	loc := rePharmacyKw.FindStringIndex(line)
	if loc == nil {
		return "", false
	}
	name := cleanName(line[:loc[0]])
	if name == "" {
		name = cleanName(rePharmacyTag.ReplaceAllString(line, ""))
	}
	if letterCount(name) < 2 {
		return "", false
	}
	return name, true
}

func cleanName(s string) string {
	s = reSpaces.ReplaceAllString(strings.TrimSpace(s), " ")
	return strings.TrimSpace(reTrailing.ReplaceAllString(s, ""))
}
