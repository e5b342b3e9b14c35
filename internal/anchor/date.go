// Package anchor finds low-ambiguity tokens (dates, phones, identifiers, counts)
// anywhere in a transcript. Every extractor reports "not found" instead of failing.
package anchor

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"
)

var (
	reISODate = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	reUSDate  = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{4}|\d{2})\b`)
)

type dateHit struct {
	pos     int
	y, m, d int
}

// Date returns the first calendar date in text as YYYY-MM-DD. It accepts ISO
// dates and US M/D/YYYY or M/D/YY forms; two-digit years are read as 20YY.
// Matches that are not real dates (13/45/2024, 2/30/2024) are skipped.
func Date(text string) (string, bool) {
	var hits []dateHit
	for _, m := range reISODate.FindAllStringSubmatchIndex(text, -1) {
		hits = append(hits, dateHit{
			pos: m[0],
			y:   atoi(text[m[2]:m[3]]),
			m:   atoi(text[m[4]:m[5]]),
			d:   atoi(text[m[6]:m[7]]),
		})
	}
	for _, m := range reUSDate.FindAllStringSubmatchIndex(text, -1) {
		year := text[m[6]:m[7]]
		y := atoi(year)
		if len(year) == 2 {
			y += 2000
		}
		hits = append(hits, dateHit{
			pos: m[0],
			y:   y,
			m:   atoi(text[m[2]:m[3]]),
			d:   atoi(text[m[4]:m[5]]),
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	for _, h := range hits {
		if iso, ok := calendarDate(h.y, h.m, h.d); ok {
			return iso, true
		}
	}
	return "", false
}

func calendarDate(y, m, d int) (string, bool) {
	if y < 1900 || m < 1 || m > 12 || d < 1 || d > 31 {
		return "", false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", y, m, d), true
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}
