package constants

import "strings"

// DocumentKind selects which extractor runs on a transcript.
type DocumentKind string

const (
	KindLab        DocumentKind = "LAB"
	KindMedication DocumentKind = "MEDICATION"
	KindAuto       DocumentKind = "AUTO" // detect from content
)

var allKinds = []DocumentKind{KindLab, KindMedication}

// KindsAsStringSlice returns the concrete kinds (AUTO excluded).
func KindsAsStringSlice() []string {
	result := make([]string, len(allKinds))
	for i, k := range allKinds {
		result[i] = string(k)
	}
	return result
}

// CanonicalizeKind maps user input ("lab", "rx", "label", ...) to a kind.
func CanonicalizeKind(input string) (DocumentKind, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return KindAuto, true
	}

	synonyms := map[string]DocumentKind{
		"lab":        KindLab,
		"labs":       KindLab,
		"lab-report": KindLab,
		"report":     KindLab,
		"med":        KindMedication,
		"meds":       KindMedication,
		"medication": KindMedication,
		"label":      KindMedication,
		"rx":         KindMedication,
		"auto":       KindAuto,
	}
	if k, ok := synonyms[normalized]; ok {
		return k, true
	}
	return "", false
}
