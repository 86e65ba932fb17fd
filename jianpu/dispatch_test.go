package jianpu

import (
	"math/big"
	"strings"
	"testing"
)

func testRenderer(mode Mode) *partRenderer {
	return newPartRenderer(New(Config{}), testState(mode), map[string]string{})
}

func TestOpenTuplet(t *testing.T) {
	tests := []struct {
		fitIn int
		want  string
	}{
		{3, `\times 2/3 {`},
		{5, `\times 4/5 {`},
		{6, `\times 4/6 {`},
		{7, `\times 4/7 {`},
		{4, `\times 6/4 {`}, // fit 4 into the time of a dotted group
		{2, `\times 3/2 {`},
	}
	for _, tt := range tests {
		r := testRenderer(ModeJianpu)
		r.openTuplet(tt.fitIn)
		require(t, tt.want, r.out[len(r.out)-1])
	}
}

func TestRepeatHasAlternative(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"R2{ 1 2 } A{ 3 | 4 }", true},
		{"R2{ 1 2 } 3 4", false},
		{"R2{ 1 2 }", false},
		// the inner repeat's } must not be taken for the outer one's
		{"R2{ R{ 1 } 2 } A{ 3 | 4 }", true},
		{"R2{ 1 A{ 2 | 3 } } 4", false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			require(t, tt.want, repeatHasAlternative(wordItems(tt.line), 0))
		})
	}
}

func TestOpenRepeatKind(t *testing.T) {
	// a bare R{ and an Rn{ with alternatives are voltas, other Rn{ are
	// percent repeats
	r := testRenderer(ModeJianpu)
	r.openRepeat(wordItems("R{ 1 }"), 0, "R{", 2)
	require(t, `\repeat volta 2 {`, r.out[len(r.out)-1])

	r = testRenderer(ModeJianpu)
	r.openRepeat(wordItems("R3{ 1 }"), 0, "R3{", 3)
	require(t, `\repeat percent 3 {`, r.out[len(r.out)-1])

	r = testRenderer(ModeJianpu)
	r.openRepeat(wordItems("R3{ 1 } A{ 2 | 3 | 4 }"), 0, "R3{", 3)
	require(t, `\repeat volta 3 {`, r.out[len(r.out)-1])
}

func TestClosePercentRepeatResync(t *testing.T) {
	// a 3x percent repeat over one 4/4 bar leaves barPos where it was
	r := testRenderer(ModeJianpu)
	r.openRepeat(wordItems("R3{ 1 }"), 0, "R3{", 3)
	r.st.barPos = new(big.Rat) // a whole bar elapsed, wrapped to 0
	if err := r.closeRepeat(); err != nil {
		t.Fatal(err)
	}
	require(t, 0, r.st.barPos.Sign())

	// half a bar repeated 3 times: 3*32 mod 64 = 32
	r = testRenderer(ModeJianpu)
	r.openRepeat(wordItems("R3{ q1 q2 }"), 0, "R3{", 3)
	r.st.barPos = big.NewRat(32, 1)
	if err := r.closeRepeat(); err != nil {
		t.Fatal(err)
	}
	require(t, 0, r.st.barPos.Cmp(big.NewRat(32, 1)))

	r = testRenderer(ModeJianpu)
	if err := r.closeRepeat(); err == nil {
		t.Error("expected unmatched } error")
	}
}

func TestRatMod(t *testing.T) {
	require(t, 0, ratMod(big.NewRat(96, 1), 64).Cmp(big.NewRat(32, 1)))
	require(t, 0, ratMod(big.NewRat(64, 1), 64).Sign())
	require(t, 0, ratMod(big.NewRat(7, 2), 64).Cmp(big.NewRat(7, 2)))
}

func TestRenderSimpleBar(t *testing.T) {
	part, err := lexPart("1 2 3 4 5 6 7 1'", 1)
	if err != nil {
		t.Fatal(err)
	}
	r := testRenderer(ModeJianpu)
	body, err := r.render(part.Items)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"%{ bar 2: %}", `\bar "|."`} {
		if !strings.Contains(body, want) {
			t.Errorf("output missing %q:\n%s", want, body)
		}
	}
}

func TestRenderIncompleteBar(t *testing.T) {
	part, err := lexPart("1 2 3", 1)
	if err != nil {
		t.Fatal(err)
	}
	r := testRenderer(ModeJianpu)
	if _, err := r.render(part.Items); err == nil {
		t.Error("expected incomplete-bar error")
	}

	r = testRenderer(ModeJianpu)
	r.st.cfg.SloppyBars = true
	if _, err := r.render(part.Items); err != nil {
		t.Errorf("sloppy bars should only warn: %v", err)
	}
	require(t, true, len(r.conv.Warnings) > 0)
}

func TestRenderBarOverflow(t *testing.T) {
	// a dotted crotchet cannot start on the second beat of 2/4
	part, err := lexPart("2/4 1 1. q1 1 1", 1)
	if err != nil {
		t.Fatal(err)
	}
	r := testRenderer(ModeJianpu)
	_, err = r.render(part.Items)
	if err == nil {
		t.Fatal("expected note-crosses-barline error")
	}
	if !strings.Contains(err.Error(), "crosses barline") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRenderDashBeamAfterRest(t *testing.T) {
	// A beamed dash extending a rest hangs its left beam under the
	// dash even when it opens a fresh beat.
	part, err := lexPart("KeepLength q0 q0 - - c2 c2", 1)
	if err != nil {
		t.Fatal(err)
	}
	r := testRenderer(ModeJianpu)
	body, err := r.render(part.Items)
	if err != nil {
		t.Fatal(err)
	}
	// only the opening quaver rest starts with no beam to its left
	require(t, 1, strings.Count(body, "stemLeftBeamCount = #0"))
	require(t, 3, strings.Count(body, "stemLeftBeamCount = #1"))
}

func TestFingeringGlyph(t *testing.T) {
	require(t, "一", fingeringGlyph("1"))
	require(t, "○", fingeringGlyph("harmonic"))
	require(t, "↗", fingeringGlyph("up"))
	require(t, "5", fingeringGlyph("5")) // unknown names pass through
}
