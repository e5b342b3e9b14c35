package classify

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	reDosageForm   = regexp.MustCompile(`(?i)\b(?:capsules?|caps?|tablets?|tabs?|solution|cream|ointment|micro)\b`)
	reStreetKw     = regexp.MustCompile(`(?i)\b(?:street|st|avenue|ave|road|rd|boulevard|blvd|lane|ln|drive|highway|hwy|parkway|pkwy|suite|ste|route)\b`)
	reCityStateZip = regexp.MustCompile(`\b[A-Z]{2}\s+\d{5}(?:-\d{4})?\b`)
	reAdminKw      = regexp.MustCompile(`(?i)\b(?:qty|quantity|refills?|pharmacy|prescriber|prescribed|doctor|dr|take|insert|apply|use|bedtime|nightly|every|patient|rx|ndc|mfg|mfr|manufacturer|manufactured|filled|discard|expires?|tel|phone)\b`)
	reActionVerb   = regexp.MustCompile(`(?i)\b(?:take|insert|apply|inhale|instill|use)\b`)
	reDirStop      = regexp.MustCompile(`(?i)\b(?:qty|quantity|refills?|rx|patient|prescriber|prescribed|doctor|dr|manufacturer|manufactured|mfg|mfr|ndc)\b`)
	reDoctorToken  = regexp.MustCompile(`(?i)\b(?:dr\.?|doctor)(?:\s|$)`)
	reNameToken    = regexp.MustCompile(`^[A-Za-z]+\.?$`)
)

// drugSuffixes are endings common in generic drug names.
var drugSuffixes = []string{
	"ine", "ol", "one", "ide", "ate", "ium", "pam", "pril", "sartan", "statin",
	"cillin", "mycin", "azole", "formin", "dipine", "vir",
}

// HasDosageForm reports a dosage-form word (capsule, tablet, ...) or "micro".
func HasDosageForm(line string) bool { return reDosageForm.MatchString(line) }

// HasDrugSuffix reports whether any word in line ends like a drug name.
func HasDrugSuffix(line string) bool {
	for _, tok := range strings.FieldsFunc(strings.ToLower(line), func(r rune) bool { return !unicode.IsLetter(r) }) {
		for _, suf := range drugSuffixes {
			if len(tok) >= len(suf)+3 && strings.HasSuffix(tok, suf) {
				return true
			}
		}
	}
	return false
}

// HasStreetKeyword reports a street-type word (St, Ave, Road, Suite, ...).
func HasStreetKeyword(line string) bool { return reStreetKw.MatchString(line) }

// IsAddressLine reports a postal-address line: a street keyword or a
// "ST 12345" state/ZIP tail.
func IsAddressLine(line string) bool {
	return HasStreetKeyword(line) || reCityStateZip.MatchString(line)
}

// HasAdminKeyword reports label boilerplate that never names the drug.
func HasAdminKeyword(line string) bool { return reAdminKw.MatchString(line) }

// HasActionVerb reports the verbs that open a directions block.
func HasActionVerb(line string) bool { return reActionVerb.MatchString(line) }

// HasDirectionsStop reports administrative markers that end a directions block.
func HasDirectionsStop(line string) bool { return reDirStop.MatchString(line) }

// HasDoctorToken reports a "Dr."/"Doctor" token.
func HasDoctorToken(line string) bool { return reDoctorToken.MatchString(line) }

// IsPersonName reports a line shaped like a person's name: 2-4 tokens, each
// purely alphabetic with an optional trailing period, and no dosage words.
func IsPersonName(line string) bool {
	tokens := strings.Fields(line)
	if len(tokens) < 2 || len(tokens) > 4 {
		return false
	}
	for _, tok := range tokens {
		if !reNameToken.MatchString(tok) {
			return false
		}
		// a lone "G" is a middle initial, not grams
		if bare := strings.TrimSuffix(tok, "."); len(bare) > 1 && isUnitWord(bare) {
			return false
		}
	}
	return !HasDosageForm(line)
}

// DigitCount counts ASCII digits in line.
func DigitCount(line string) int {
	n := 0
	for _, r := range line {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

func letterCount(line string) int {
	n := 0
	for _, r := range line {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}
