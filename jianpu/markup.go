package jianpu

import (
	"fmt"
	"math/big"
	"strings"
	"unicode/utf8"
)

// figureDefine emits the Scheme callback that swaps a notehead (or
// rest) stencil for the bold figure markup. Called once per distinct
// figure string per document; the callback name was already recorded
// in s.defines.
func (s *state) figureDefine(figures, accidental string) string {
	name := s.defines[figures]
	var figuresNew string
	if strings.HasPrefix(figures, "-") {
		if *s.angka {
			figuresNew = "."
		} else {
			figuresNew = "–"
		}
	} else {
		figuresNew = figures
	}
	var b strings.Builder
	fmt.Fprintf(&b, `#(define (%s grob grob-origin context)
  (if (and (eq? (ly:context-property context 'chordChanges) #t)
      (or (grob::has-interface grob 'note-head-interface)
        (grob::has-interface grob 'rest-interface)))
    (begin
      (ly:grob-set-property! grob 'stencil
        (grob-interpret-markup grob
          `, name)
	k := len(s.lastFigures)
	switch {
	case strings.HasPrefix(figures, "-") && k > 1:
		// Dash continuing a chord: stack the en-dash once per chord note.
		b.WriteString("(markup (#:lower 0.5\n")
		b.WriteString("          (#:override (cons (quote direction) 1)\n")
		b.WriteString("          (#:override (cons (quote baseline-skip) 1.8)\n")
		b.WriteString("          (#:dir-column (\n")
		for i := 0; i < k; i++ {
			b.WriteString("    #:line (#:bold \"–\")\n")
		}
		b.WriteString(")))))))))))\n")
	case utf8.RuneCountInString(figuresNew) == 1 || strings.HasPrefix(figures, "-"):
		b.WriteString(`(make-lower-markup 0.5 (make-bold-markup "` + figuresNew + `")))))))` + "\n")
	case *s.angka && accidental != "":
		slash := map[string]string{"#": "̸", "b": "⃥"}[accidental]
		b.WriteString(`(make-lower-markup 0.5 (make-bold-markup "` + figures[:1] + slash + `")))))))` + "\n")
	default:
		// Chord: stack the figures vertically.
		b.WriteString("(markup (#:lower 0.5\n")
		b.WriteString("          (#:override (cons (quote direction) 1)\n")
		b.WriteString("          (#:override (cons (quote baseline-skip) 1.8)\n")
		b.WriteString("          (#:dir-column (\n")
		for _, f := range figuresNew {
			b.WriteString(`    #:line (#:bold "` + string(f) + `")` + "\n")
		}
		b.WriteString(")))))))))))\n")
	}
	return b.String()
}

// applyTremolo rewrites a rendered note into tremolo form. In staff
// and MIDI passes a two-note chord becomes a measured \repeat tremolo
// and anything else gets the :32 suffix; jianpu passes draw the hatch
// strokes as a markup instead.
func (s *state) applyTremolo(text, placeholder string, preTuplet *big.Rat, dots string) (string, error) {
	if s.mode.graphical() {
		markup, err := tremoloMarkup(dots != "", s.cfg.LilyMinor)
		if err != nil {
			return "", err
		}
		return text + markup, nil
	}
	if strings.HasPrefix(placeholder, "<") && len(strings.Fields(placeholder)) == 4 {
		head, toks, ok := splitTail3(text)
		if ok {
			head = strings.TrimSuffix(strings.TrimRight(head, " \t\n"), "<")
			q := new(big.Rat).Quo(preTuplet, big.NewRat(4, 1))
			count := q.Num().Int64() / q.Denom().Int64()
			return fmt.Sprintf(`%s\repeat tremolo %d { %s32 %s32 }`, head, count, toks[0], toks[1]), nil
		}
	}
	return text + ":32", nil
}

// splitTail3 splits off the last three whitespace-separated tokens of
// s, returning the remaining head with its trailing separator intact.
func splitTail3(s string) (head string, toks [3]string, ok bool) {
	rest := s
	for i := 2; i >= 0; i-- {
		rest = strings.TrimRight(rest, " \t\n")
		j := strings.LastIndexAny(rest, " \t\n")
		if j < 0 {
			return "", toks, false
		}
		toks[i] = rest[j+1:]
		rest = rest[:j+1]
	}
	return rest, toks, true
}

// tremoloMarkup draws three hatch strokes across the note. The
// PostScript coordinates moved between LilyPond 2.20 and 2.22, and the
// dotted variants sit higher to clear the dot.
func tremoloMarkup(dotted bool, lilyMinor int) (string, error) {
	const prefix = `_\tweak outside-staff-priority ##f ^\tweak avoid-slur #'inside _\markup `
	switch {
	case lilyMinor >= 22 && dotted:
		return prefix + `{\with-dimensions #'(0 . 0) #'(2.8 . 2.1) ` +
			`\postscript "1.6 -0.2 moveto 2.6 0.8 lineto 1.8 -0.4 moveto ` +
			`2.8 0.6 lineto 2.0 -0.6 moveto 3.0 0.4 lineto stroke" } ` +
			`%{ requires LilyPond 2.22+ %} `, nil
	case lilyMinor >= 22:
		return prefix + `{\with-dimensions #'(0 . 0) #'(2.5 . 2.1) ` +
			`\postscript "1.1 0.4 moveto 2.1 1.4 lineto 1.3 0.2 moveto ` +
			`2.3 1.2 lineto 1.5 0.0 moveto 2.5 1.0 lineto stroke" } ` +
			`%{ requires LilyPond 2.22+ %} `, nil
	case lilyMinor < 20:
		return "", fmt.Errorf("tremolo requires LilyPond 2.20+, we found 2.%d", lilyMinor)
	case dotted:
		return prefix + `{\with-dimensions #'(0 . 0) #'(2.8 . 2.6) ` +
			`\postscript "1.4 1.6 moveto 2.4 2.6 lineto 1.6 1.4 moveto ` +
			`2.6 2.4 lineto 1.8 1.2 moveto 2.8 2.2 lineto stroke" } ` +
			`%{ requires LilyPond 2.20 %} `, nil
	default:
		return prefix + `{\with-dimensions #'(0 . 0) #'(2.5 . 2.6) ` +
			`\postscript "1.1 1.6 moveto 2.1 2.6 lineto 1.3 1.4 moveto ` +
			`2.3 2.4 lineto 1.5 1.2 moveto 2.5 2.2 lineto stroke" } ` +
			`%{ requires LilyPond 2.20 %} `, nil
	}
}
