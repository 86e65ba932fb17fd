package jianpu

import (
	"strings"
	"testing"
)

func TestCollapseTiedNotes(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		// runs of tied equal notes become one long note
		{"c4 ~ c4", "c2"},
		{"c4 ~ c4 ~ c4", "c2."},
		{"c4 ~ c4 ~ c4 ~ c4", "c1"},
		{"c4. ~ c4.", "c2."},
		{"c4. ~ c4. ~ c4. ~ c4.", "c1."},
		{"d'4 ~ d'4", "d'2"},
		{"< c e >4 ~ < c e >4", "< c e >2"},
		// different notes are left alone
		{"c4 ~ d4", "c4 ~ d4"},
		// a differing chain start does not hide a later collapse
		{"e4 ~ c4 ~ c4", "e4 ~ c2"},
		// attached commands survive the collapse
		{`c4 ~ \f c4`, `c2 \f`},
		// rest runs shorten the same way
		{"r4 r4 r4 r4", "r1"},
		{"r4 r4", "r2"},
		{"r4. r4.", "r2."},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			require(t, tt.want, collapseTiedNotes(tt.in))
		})
	}
}

func TestFixLongNoteBreaks(t *testing.T) {
	require(t, "c1 (", fixLongNoteBreaks("c4 ~ ( c2."))
	require(t, "c4 ~ ( d2.", fixLongNoteBreaks("c4 ~ ( d2."))
	require(t, "a'1 (", fixLongNoteBreaks("a'4 ~ ( a'2."))
}

func TestMergeMarks(t *testing.T) {
	merged := mergeMarks([]string{
		`\mark \markup{ A }`,
		`\mark \markup{ B }`,
		"c4",
	})
	require(t, 2, len(merged))
	if !strings.Contains(merged[0], "A") || !strings.Contains(merged[0], "B") {
		t.Errorf("marks not merged: %q", merged[0])
	}
	if !strings.HasPrefix(merged[0], `\mark \markup{`) || !strings.HasSuffix(merged[0], "}") {
		t.Errorf("merged mark malformed: %q", merged[0])
	}
	require(t, "c4", merged[1])
}
