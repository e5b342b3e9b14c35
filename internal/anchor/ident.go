package anchor

import (
	"regexp"
	"strings"
)

var (
	reRxLabeled  = regexp.MustCompile(`(?i)\b(?:rx|prescription)\s*(?:#|no\.?|num(?:ber)?\.?)?\s*[:#]?\s*(\d[\d-]{4,16}\d)\b`)
	reRxBare     = regexp.MustCompile(`\b(\d{6,8}-\d{4,5})\b`)
	reNDCLabeled = regexp.MustCompile(`(?i)\bndc\s*(?:#|no\.?)?\s*[:#]?\s*(\d{4,5}-\d{3,4}-\d{1,2}|\d{10,11})\b`)
	reNDCBare    = regexp.MustCompile(`\b(\d{4,5}-\d{3,4}-\d{1,2})\b`)

	reLongDigits = regexp.MustCompile(`\d{5,}`)
	reDashedCode = regexp.MustCompile(`\b\d+-\d+-\d+\b`)
)

// RxNumber returns the prescription number: a labeled "Rx#"/"Prescription"
// value first, otherwise a bare NNNNNNN-NNNNN shaped code.
func RxNumber(text string) (string, bool) {
	for _, m := range reRxLabeled.FindAllStringSubmatch(text, -1) {
		if n := digitCount(m[1]); n >= 6 && n <= 14 {
			return m[1], true
		}
	}
	if m := reRxBare.FindStringSubmatch(text); m != nil {
		return m[1], true
	}
	return "", false
}

// NDC returns a National Drug Code: labeled first, then a bare dashed code
// with 10 or 11 digits.
func NDC(text string) (string, bool) {
	if m := reNDCLabeled.FindStringSubmatch(text); m != nil {
		return m[1], true
	}
	for _, m := range reNDCBare.FindAllStringSubmatch(text, -1) {
		if n := digitCount(m[1]); n == 10 || n == 11 {
			return m[1], true
		}
	}
	return "", false
}

// HasIdentifier reports whether line carries an identifier-shaped digit run
// (5+ consecutive digits, a three-group dashed code, or an Rx/NDC match).
func HasIdentifier(line string) bool {
	if reLongDigits.MatchString(line) || reDashedCode.MatchString(line) {
		return true
	}
	if _, ok := RxNumber(line); ok {
		return true
	}
	_, ok := NDC(line)
	return ok
}

func digitCount(s string) int {
	return len(s) - len(strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return -1
		}
		return r
	}, s))
}
