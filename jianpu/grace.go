package jianpu

import (
	"regexp"
	"strings"
)

var (
	rxGraceOctaveUp   = regexp.MustCompile(`([1-9])('+)`)
	rxGraceOctaveDown = regexp.MustCompile(`([1-9])(,+)`)
)

// graceOctaveFix normalizes grace-note content: octave marks written
// after a figure move in front of it, and the 8/9 shorthands become
// upper-octave 1/2.
func graceOctaveFix(notes string) string {
	notes = rxGraceOctaveUp.ReplaceAllString(notes, "$2$1")
	notes = rxGraceOctaveDown.ReplaceAllString(notes, "$2$1")
	notes = strings.ReplaceAll(notes, "8", "'1")
	return strings.ReplaceAll(notes, "9", "'2")
}

// graceNotesMarkup renders grace figures as a markup drawn beside the
// main note, with the slur-like path pointing right (before the note)
// or left (after it).
func graceNotesMarkup(notes string, isAfter bool) string {
	cmd := "jianpu-grace"
	if isAfter {
		cmd = "jianpu-grace-after"
	}
	const thinspace = " "
	var r []string
	var afternext string
	notes = graceOctaveFix(notes)
	for i, n := range []byte(notes) {
		switch n {
		case '#':
			r = append(r, `\fontsize #-4 { \raise #0.6 { \sharp } }`)
		case 'b':
			r = append(r, `\fontsize #-4 { \raise #0.4 { \flat } }`)
		case '\'':
			if i > 0 && notes[i-1] == n {
				continue
			}
			above := "."
			if strings.HasPrefix(notes[i:], "''") {
				above = ":"
			}
			r = append(r, `\override #'(direction . 1) \override #'(baseline-skip . 1.2) \dir-column { \line {`)
			afternext = `} \line { "` + thinspace + above + `" } }`
		case ',':
			if i > 0 && notes[i-1] == n {
				continue
			}
			below := "."
			if strings.HasPrefix(notes[i:], ",,") {
				below = ":"
			}
			r = append(r, `\override #'(baseline-skip . 1.0) \center-column { \line { `)
			afternext = `} \line { \pad-to-box #'(0 . 0) #'(-0.2 . 0) "` + below + `" } }`
		default:
			if len(r) > 0 && strings.HasSuffix(r[len(r)-1], `"`) {
				last := r[len(r)-1]
				r[len(r)-1] = last[:len(last)-1] + string(n) + `"`
			} else {
				r = append(r, `"`+string(n)+`"`)
			}
			if afternext != "" {
				r = append(r, afternext)
				afternext = ""
			}
		}
	}
	return `^\tweak outside-staff-priority ##f ^\tweak avoid-slur #'inside ^\markup \` +
		cmd + ` { \line { ` + strings.Join(r, " ") + ` } }`
}

// graceNotesWestern renders grace figures as real 16th notes for the
// staff and MIDI passes.
func graceNotesWestern(notes string) string {
	notes = graceOctaveFix(notes)
	nextAcc := ""
	next8ve := "'"
	var r []string
	for i, n := range []byte(notes) {
		switch n {
		case '#':
			nextAcc = "is"
		case 'b':
			nextAcc = "es"
		case '\'':
			if i > 0 && notes[i-1] == n {
				continue
			}
			if strings.HasPrefix(notes[i:], "''") {
				next8ve = "'''"
			} else {
				next8ve = "''"
			}
		case ',':
			if i > 0 && notes[i-1] == n {
				continue
			}
			if strings.HasPrefix(notes[i:], ",,") {
				next8ve = ","
			} else {
				next8ve = ""
			}
		default:
			p, ok := figurePlaceholders[string(n)]
			if !ok {
				continue
			}
			r = append(r, p+nextAcc+next8ve+"16")
			nextAcc = ""
			next8ve = "'"
		}
	}
	return strings.Join(r, " ")
}

// The jianpu-grace markup commands are defined lazily, once per
// document, right before their first use.
const jianpuGraceDefine = `#(define-markup-command (jianpu-grace layout props text)
(markup?) "Draw right-pointing jianpu grace under text."
(let ((textWidth (cdr (ly:stencil-extent (interpret-markup layout props (markup (#:fontsize -4 text))) 0))))
(interpret-markup layout props
(markup
  #:line
  (#:right-align
   (#:override
    (cons (quote baseline-skip) 0.2)
    (#:column
     (#:line
      (#:fontsize -4 text)
      #:line
      (#:pad-to-box
       (cons -0.1 0)  ; X padding before grace
       (cons -1.6 0)  ; affects height of grace
       (#:path
        0.1
        (list (list (quote moveto) 0 0)
              (list (quote lineto) textWidth 0)
              (list (quote moveto) 0 -0.3)
              (list (quote lineto) textWidth -0.3)
              (list (quote moveto) (* textWidth 0.5) -0.3)
              (list (quote curveto) (* textWidth 0.5) -1 (* textWidth 0.5) -1 textWidth -1)))))))))))) `

const jianpuGraceAfterDefine = `#(define-markup-command (jianpu-grace-after layout props text)
(markup?) "Draw left-pointing jianpu grace under text."
(let ((textWidth (cdr (ly:stencil-extent (interpret-markup layout props (markup (#:fontsize -4 text))) 0))))
(interpret-markup layout props
(markup
  #:line
  (#:halign -4
   (#:override
    (cons (quote baseline-skip) 0.2)
    (#:column
     (#:line
      (#:fontsize -4 text)
      #:line
      (#:pad-to-box (cons 0 0)
       (cons -1.6 0)  ; affects height of grace
      (#:path
       0.1
       (list (list (quote moveto) 0 0)
             (list (quote lineto) textWidth 0)
             (list (quote moveto) 0 -0.3)
             (list (quote lineto) textWidth -0.3)
             (list (quote moveto) (* textWidth 0.5) -0.3)
             (list (quote curveto) (* textWidth 0.5) -1 (* textWidth 0.5) -1 0 -1)))))))))))) `
