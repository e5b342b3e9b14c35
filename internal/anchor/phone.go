package anchor

import (
	"fmt"
	"regexp"
)

var rePhone = regexp.MustCompile(`(?:\((\d{3})\)\s?|\b(\d{3})[-.])(\d{3})[-.](\d{4})\b`)

// Phone returns the first US phone number in text as "(NNN) NNN-NNNN".
func Phone(text string) (string, bool) {
	m := rePhone.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	area := m[1]
	if area == "" {
		area = m[2]
	}
	return fmt.Sprintf("(%s) %s-%s", area, m[3], m[4]), true
}

// HasPhone reports whether line contains a phone-shaped sequence.
func HasPhone(line string) bool { return rePhone.MatchString(line) }
