package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		lines []string
	}{
		{name: "empty", in: "", lines: []string{}},
		{name: "only whitespace", in: " \r\n\t \n", lines: []string{}},
		{name: "crlf and blank lines", in: "A1c: 7.2 %\r\n\r\nLDL 130 mg/dL\r", lines: []string{"A1c: 7.2 %", "LDL 130 mg/dL"}},
		{name: "collapses runs and nbsp", in: "PROGESTERONE\u00a0\u00a0MICRO \t 100MG", lines: []string{"PROGESTERONE MICRO 100MG"}},
		{name: "strips control characters", in: "TAKE\x00 ONE\x07 CAPSULE", lines: []string{"TAKE ONE CAPSULE"}},
		{name: "full width digits fold", in: "Qty: ３０", lines: []string{"Qty: 30"}},
		{name: "keeps order", in: "c\nb\na", lines: []string{"c", "b", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := Normalize(tt.in)
			require.NotNil(t, doc.Lines)
			assert.Equal(t, tt.lines, doc.Lines)
		})
	}
}

func TestNormalize_RawTextIsJoinedLines(t *testing.T) {
	doc := Normalize("  JOHN A WHITEHEAD \n\n WALGREENS   PHARMACY ")
	assert.Equal(t, "JOHN A WHITEHEAD\nWALGREENS PHARMACY", doc.RawText)
	assert.Equal(t, doc.RawText, doc.Joined())
	assert.Equal(t, 2, doc.Len())
}

func TestNormalize_NonEmptyInputKeepsLines(t *testing.T) {
	for _, in := range []string{"x", "\n\n.\n", "\t é"} {
		assert.False(t, Normalize(in).Empty(), "input %q", in)
	}
}

func TestDocument_Sparse(t *testing.T) {
	assert.True(t, Normalize("").Sparse())
	assert.True(t, Normalize("--\n..").Sparse())
	assert.True(t, Normalize("a1").Sparse())
	assert.False(t, Normalize("abc").Sparse())
	assert.False(t, Normalize("LDL 130").Sparse())
}
