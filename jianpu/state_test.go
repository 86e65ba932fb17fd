package jianpu

import (
	"math/big"
	"testing"
)

func testState(mode Mode) *state {
	return newState(mode, Config{}.withDefaults(), 1, false,
		new(bool), map[string]string{}, &nameGen{})
}

func TestSetTime(t *testing.T) {
	tests := []struct {
		num, denom            int
		barLength, beatLength int
	}{
		{4, 4, 64, 16},
		{3, 4, 48, 16},
		{2, 2, 64, 16},
		{6, 8, 48, 24}, // compound time has dotted-crotchet beats
		{9, 8, 72, 24},
		{12, 8, 96, 24},
		{5, 8, 40, 16},
	}
	for _, tt := range tests {
		st := testState(ModeJianpu)
		st.setTime(tt.num, tt.denom)
		require(t, tt.barLength, st.barLength)
		require(t, tt.beatLength, st.beatLength)
	}
}

func TestSetAnac(t *testing.T) {
	st := testState(ModeJianpu)
	st.setTime(4, 4)
	if err := st.setAnac(4, false); err != nil {
		t.Fatal(err)
	}
	// a crotchet anacrusis in 4/4 starts three crotchets in
	require(t, 0, st.barPos.Cmp(big.NewRat(48, 1)))
	require(t, 0, st.startBarPos.Cmp(big.NewRat(48, 1)))

	st = testState(ModeJianpu)
	st.setTime(6, 8)
	if err := st.setAnac(8, true); err != nil {
		t.Fatal(err)
	}
	// dotted quaver anacrusis in 6/8: 48 - 8 - 4 = 36
	require(t, 0, st.barPos.Cmp(big.NewRat(36, 1)))

	st = testState(ModeJianpu)
	st.setTime(1, 4)
	if err := st.setAnac(2, false); err == nil {
		t.Error("expected error for anacrusis longer than bar")
	}
}

func TestWholeBarRestLen(t *testing.T) {
	tests := []struct {
		num, denom int
		want       string
	}{
		{4, 4, "1"},
		{3, 4, "2."},
		{2, 4, "2"},
		{6, 8, "2."},
		{12, 8, "1."},
		{3, 8, "4."},
		{1, 4, "4"},
		{1, 8, "8"},
	}
	for _, tt := range tests {
		st := testState(ModeJianpu)
		st.setTime(tt.num, tt.denom)
		require(t, tt.want, st.wholeBarRestLen())
	}
}

func TestAddOctaves(t *testing.T) {
	tests := []struct {
		change, base, want string
	}{
		{"'", "", "'"},
		{"'", "'", "''"},
		{",", "'", ""},
		{"'", ",", ""},
		{",,", "'", ","},
		{">", "", "'"},
		{"<", "", ","},
		{"'", "<", ""},
	}
	for _, tt := range tests {
		require(t, tt.want, addOctaves(tt.change, tt.base))
	}
}

func TestEndScore(t *testing.T) {
	st := testState(ModeJianpu)
	st.setTime(4, 4)
	if warning, err := st.endScore(); err != nil || warning != "" {
		t.Errorf("clean score: warning %q, err %v", warning, err)
	}

	st.barPos = big.NewRat(16, 1)
	if _, err := st.endScore(); err == nil {
		t.Error("expected incomplete-bar error")
	}

	st.cfg.SloppyBars = true
	if warning, err := st.endScore(); err != nil || warning == "" {
		t.Errorf("sloppy bars: warning %q, err %v", warning, err)
	}

	// with an anacrusis, ending on a bar boundary means the make-up
	// bar is missing
	st = testState(ModeJianpu)
	st.setTime(4, 4)
	if err := st.setAnac(4, false); err != nil {
		t.Fatal(err)
	}
	st.barPos = new(big.Rat)
	if _, err := st.endScore(); err == nil {
		t.Error("expected missing make-up bar error")
	}
}

func TestPlaceholderChord(t *testing.T) {
	st := testState(ModeJianpu)
	require(t, "c", st.placeholderChord([]string{"1"}))
	require(t, "r", st.placeholderChord([]string{"0"}))
	require(t, "c", st.placeholderChord([]string{"1", "3", "5"}))

	st = testState(ModeMIDI)
	require(t, "< c e g >", st.placeholderChord([]string{"1", "3", "5"}))
}

func TestValidateFigures(t *testing.T) {
	st := testState(ModeJianpu)
	n := noteWord{figures: []string{"1", "0"}, accidentals: []string{"", ""}}
	if err := st.validateFigures(n, "10", ""); err == nil {
		t.Error("expected rest-in-chord error")
	}
	n = noteWord{figures: []string{"1", "-"}, accidentals: []string{"", ""}}
	if err := st.validateFigures(n, "1-", ""); err == nil {
		t.Error("expected dash-in-chord error")
	}
	n = noteWord{figures: []string{"1"}, accidentals: []string{"#b"}}
	if err := st.validateFigures(n, "#b1", ""); err == nil {
		t.Error("expected bad-accidental error")
	}
}
