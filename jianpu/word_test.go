package jianpu

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestClassifyWord(t *testing.T) {
	tests := []struct {
		word string
		want Word
	}{
		{"4=100", Word{Kind: KindTempo, Text: "4=100"}},
		{"4.=60", Word{Kind: KindTempo, Text: "4.=60"}},
		{"1=C", Word{Kind: KindKeySig, Text: "1=C"}},
		{"6=F#", Word{Kind: KindKeySig, Text: "6=F#"}},
		{"1=Bb", Word{Kind: KindKeySig, Text: "1=Bb"}},
		{"4/4", Word{Kind: KindTimeSig, Text: "4/4"}},
		{"3/4,8", Word{Kind: KindTimeSig, Text: "3/4,8"}},
		{"R{", Word{Kind: KindRepeatStart, Text: "R{", N: 2}},
		{"R3{", Word{Kind: KindRepeatStart, Text: "R3{", N: 3}},
		{"}", Word{Kind: KindRepeatEnd, Text: "}"}},
		{"A{", Word{Kind: KindAlternateStart, Text: "A{"}},
		{"|", Word{Kind: KindBarCheck, Text: "|"}},
		{"3[", Word{Kind: KindTupletStart, Text: "3[", N: 3}},
		{"]", Word{Kind: KindTupletEnd, Text: "]"}},
		{"g[12]", Word{Kind: KindGraceBefore, Text: "g[12]", Body: "12"}},
		{"[34]g", Word{Kind: KindGraceAfter, Text: "[34]g", Body: "34"}},
		{"R*8", Word{Kind: KindMultibarRest, Text: "R*8"}},
		{"letterA", Word{Kind: KindRehearsalLetter, Text: "letterA", Body: "A"}},
		{"Fr=souyin", Word{Kind: KindFingering, Text: "Fr=souyin", Body: "souyin"}},
		{"harmonic", Word{Kind: KindFingering, Text: "harmonic", Body: "harmonic"}},
		{"OnePage", Word{Kind: KindOnePage, Text: "OnePage"}},
		{"NoBarNums", Word{Kind: KindNoBarNums, Text: "NoBarNums"}},
		{"SeparateTimesig", Word{Kind: KindSeparateTimesig, Text: "SeparateTimesig"}},
		{"angka", Word{Kind: KindAngka, Text: "angka"}},
		{"Indonesian", Word{Kind: KindAngka, Text: "Indonesian"}},
		{"WithStaff", Word{Kind: KindWithStaff, Text: "WithStaff"}},
		{"PartMidi", Word{Kind: KindPartMidi, Text: "PartMidi"}},
		{"Fine", Word{Kind: KindFine, Text: "Fine"}},
		{"DC", Word{Kind: KindDC, Text: "DC"}},
		{`\break`, Word{Kind: KindCommand, Text: `\break`}},
		{`^"hello"`, Word{Kind: KindCommand, Text: `^"hello"`}},
		{"(", Word{Kind: KindCommand, Text: "("}},
		{"~", Word{Kind: KindCommand, Text: "~"}},
		{"%note", Word{Kind: KindComment, Text: "%note"}},
		{"1", Word{Kind: KindNote, Text: "1"}},
		{"q1'", Word{Kind: KindNote, Text: "q1'"}},
		{"-", Word{Kind: KindNote, Text: "-"}},
	}
	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			got := classifyWord(tt.word)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Error(diff)
			}
		})
	}
}

func TestParseNoteWord(t *testing.T) {
	tests := []struct {
		word string
		want noteWord
	}{
		{"1", noteWord{figures: []string{"1"}, accidentals: []string{""}, octaves: []string{""}, beams: -1}},
		{"0", noteWord{figures: []string{"0"}, accidentals: []string{""}, octaves: []string{""}, beams: -1}},
		{"-", noteWord{figures: []string{"-"}, accidentals: []string{""}, octaves: []string{""}, beams: -1}},
		{".", noteWord{figures: []string{"-"}, accidentals: []string{""}, octaves: []string{""}, beams: -1}},
		{"q1", noteWord{figures: []string{"1"}, accidentals: []string{""}, octaves: []string{""}, beams: 1}},
		{"s1'", noteWord{figures: []string{"1"}, accidentals: []string{""}, octaves: []string{"'"}, beams: 2}},
		{"h5", noteWord{figures: []string{"5"}, accidentals: []string{""}, octaves: []string{""}, beams: 4}},
		{`1\`, noteWord{figures: []string{"1"}, accidentals: []string{""}, octaves: []string{""}, beams: 1}},
		{`1\\`, noteWord{figures: []string{"1"}, accidentals: []string{""}, octaves: []string{""}, beams: 2}},
		{"#1", noteWord{figures: []string{"1"}, accidentals: []string{"#"}, octaves: []string{""}, beams: -1}},
		{"b7,", noteWord{figures: []string{"7"}, accidentals: []string{"b"}, octaves: []string{","}, beams: -1}},
		{"1.", noteWord{figures: []string{"1"}, accidentals: []string{""}, octaves: []string{""}, beams: -1, dots: 1}},
		{"8", noteWord{figures: []string{"1"}, accidentals: []string{""}, octaves: []string{"'"}, beams: -1}},
		{"9", noteWord{figures: []string{"2"}, accidentals: []string{""}, octaves: []string{"'"}, beams: -1}},
		{"135", noteWord{
			figures:     []string{"1", "3", "5"},
			accidentals: []string{"", "", ""},
			octaves:     []string{"", "", ""},
			beams:       -1,
		}},
		{"1///", noteWord{figures: []string{"1"}, accidentals: []string{""}, octaves: []string{""}, beams: -1, tremolo: true}},
	}
	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			got, err := parseNoteWord(tt.word, tt.word, 1, tt.word)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got, cmp.AllowUnexported(noteWord{})); diff != "" {
				t.Error(diff)
			}
		})
	}
}

func TestParseNoteWordErrors(t *testing.T) {
	for _, word := range []string{"x", "1!", "cq1"} {
		t.Run(word, func(t *testing.T) {
			if _, err := parseNoteWord(word, word, 1, word); err == nil {
				t.Errorf("expected error for %q", word)
			}
		})
	}
}

func TestSplitMusicWords(t *testing.T) {
	got := splitMusicWords(`1 2 ^"two words" 3	_"and more" 4`)
	want := []string{"1", "2", `^"two words"`, "3", `_"and more"`, "4"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Error(diff)
	}
}

func require[T comparable](t *testing.T, expect, got T) {
	if expect != got {
		t.Helper()
		t.Fatalf("expected %v, got %v", expect, got)
	}
}
