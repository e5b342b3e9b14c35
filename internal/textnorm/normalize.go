// Package textnorm turns raw OCR transcripts into ordered, trimmed lines.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// MinAlnum is the fewest letters/digits a transcript needs to be worth reading.
const MinAlnum = 3

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reHorizSpace = regexp.MustCompile(`[\t\p{Zs}]+`)
)

// Document is a normalized transcript. Lines keep their order from the source
// because later heuristics read position on the label as a signal.
type Document struct {
	RawText string
	Lines   []string
}

// Normalize folds Unicode compatibility forms, unifies line endings, collapses
// horizontal whitespace, strips control characters and drops blank lines.
func Normalize(raw string) Document {
	if raw == "" {
		return Document{Lines: []string{}}
	}
	s := norm.NFKC.String(raw)
	s = reCRLF.ReplaceAllString(s, "\n")
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r == '\f' || r == '\v':
			return '\n' // page and vertical breaks
		case unicode.IsControl(r), r == '\u200b', r == '\ufeff':
			return -1
		}
		return r
	}, s)
	s = reHorizSpace.ReplaceAllString(s, " ")

	parts := strings.Split(s, "\n")
	lines := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		lines = append(lines, p)
	}
	return Document{RawText: strings.Join(lines, "\n"), Lines: lines}
}

// Joined returns the whole document as one string for cross-line scans.
func (d Document) Joined() string { return d.RawText }

// Len is the number of non-blank lines.
func (d Document) Len() int { return len(d.Lines) }

// Empty reports whether normalization left nothing.
func (d Document) Empty() bool { return len(d.Lines) == 0 }

// Sparse reports whether the document is too thin to be a plausible label or report.
func (d Document) Sparse() bool {
	if d.Empty() {
		return true
	}
	n := 0
	for _, r := range d.RawText {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			n++
			if n >= MinAlnum {
				return false
			}
		}
	}
	return true
}
