package ocr

import (
	"regexp"
	"strings"
)

var (
	reCRLF     = regexp.MustCompile(`\r\n?`)
	reBoxNoise = regexp.MustCompile(`(?m)^\s*[_\-=~]{3,}\s*$`)
	reDate     = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b|\b\d{4}-\d{2}-\d{2}\b`)
	reUnit     = regexp.MustCompile(`(?i)\d\s*(?:mg|mcg|ml|%|mmol|mg/dl|units?)\b`)
	rePhoneish = regexp.MustCompile(`\(?\d{3}\)?[\s.-]\d{3}[-.]\d{4}`)
)

// cleanText strips rule lines (----, ____) that tesseract reads off label
// borders. Line structure is kept for the engine's normalizer.
func cleanText(s string) string {
	if s == "" {
		return s
	}
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reBoxNoise.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// heuristicConfidence guesses transcript quality from structure that labels
// and lab reports usually carry.
func heuristicConfidence(txt string) float32 {
	score := float32(0.2)
	if reDate.MatchString(txt) {
		score += 0.2
	}
	if reUnit.MatchString(txt) {
		score += 0.2
	}
	if rePhoneish.MatchString(txt) {
		score += 0.1
	}
	if len(txt) > 120 {
		score += 0.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
