package classify

import (
	"regexp"
	"strings"
)

var (
	// number followed by a dosage unit; the trailing class keeps "100 GEL" from reading as grams
	reNumberUnit = regexp.MustCompile(`(?i)(\d{1,3}(?:,\d{3})+|\d+(?:\.\d+)?|\.\d+)\s*(mcg|mg|µg|μg|ug|ml|iu|units?|g|%)(?:[^a-z0-9µμ]|$)`)
	reUnitNumber = regexp.MustCompile(`(?i)(?:^|[^a-z0-9])(mcg|mg|µg|μg|ug|ml|iu|units?)\s*[:=]?\s*(\d+(?:\.\d+)?)\b`)
	reUnitWord   = regexp.MustCompile(`(?i)^(?:mcg|mg|µg|μg|ug|ml|iu|units?|g)$`)
	reSpaces     = regexp.MustCompile(`\s+`)
)

// HasDosageUnit reports whether line has a number immediately followed by a
// dosage unit (mg, mcg, µg, g, mL, IU, units, %).
func HasDosageUnit(line string) bool { return reNumberUnit.MatchString(line) }

// StripDosageUnit removes every number+unit run from line and collapses the
// remaining whitespace: "PROGESTERONE MICRO 100MG" -> "PROGESTERONE MICRO".
func StripDosageUnit(line string) string {
	var b strings.Builder
	last := 0
	for _, m := range reNumberUnit.FindAllStringSubmatchIndex(line, -1) {
		b.WriteString(line[last:m[2]])
		b.WriteByte(' ')
		last = m[5]
	}
	b.WriteString(line[last:])
	return strings.TrimSpace(reSpaces.ReplaceAllString(b.String(), " "))
}

// Strength scans text for a dose: number-then-unit first, then
// unit-then-number. The result is rendered as "100 mg" (or "0.1%").
func Strength(text string) (string, bool) {
	if m := reNumberUnit.FindStringSubmatch(text); m != nil {
		return FormatStrength(m[1], m[2]), true
	}
	if m := reUnitNumber.FindStringSubmatch(text); m != nil {
		return FormatStrength(m[2], m[1]), true
	}
	return "", false
}

// FormatStrength renders a number and a unit in canonical spelling.
func FormatStrength(number, unit string) string {
	n := strings.ReplaceAll(strings.TrimSpace(number), ",", "")
	if strings.HasPrefix(n, ".") {
		n = "0" + n
	}
	u := CanonicalUnit(unit)
	if u == "%" {
		return n + u
	}
	return n + " " + u
}

// CanonicalUnit maps OCR spellings of a dosage unit to one form.
func CanonicalUnit(unit string) string {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "mg":
		return "mg"
	case "mcg", "µg", "μg", "ug":
		return "mcg"
	case "g":
		return "g"
	case "ml":
		return "mL"
	case "iu":
		return "IU"
	case "unit":
		return "unit"
	case "units":
		return "units"
	case "%":
		return "%"
	default:
		return strings.TrimSpace(unit)
	}
}

func isUnitWord(token string) bool { return reUnitWord.MatchString(token) }
