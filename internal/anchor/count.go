package anchor

import (
	"regexp"
	"strconv"
)

var (
	reQuantity  = regexp.MustCompile(`(?i)\b(?:qty|quantity)(?:\s+dispensed)?\.?\s*[:#]?\s*(\d+)\b`)
	reRefills   = regexp.MustCompile(`(?i)\brefills?\b(?:\s+(?:remaining|left|authorized))?\s*[:#]?\s*(\d+)\b`)
	reNoRefills = regexp.MustCompile(`(?i)\bno\s+refills?\b`)
)

// Quantity returns the integer right after a "Qty"/"Quantity" label.
func Quantity(text string) (int, bool) {
	return labeledInt(reQuantity, text)
}

// Refills returns the integer right after a "Refills" label; "No refills" is 0.
func Refills(text string) (int, bool) {
	if n, ok := labeledInt(reRefills, text); ok {
		return n, true
	}
	if reNoRefills.MatchString(text) {
		return 0, true
	}
	return 0, false
}

func labeledInt(re *regexp.Regexp, text string) (int, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
