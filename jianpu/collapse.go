package jianpu

import (
	"regexp"
	"strconv"
	"strings"
)

// finalize joins the accumulated fragments of one part into its final
// body text: final barline, merged rehearsal marks, a 60-column line
// policy, and the mode-specific rewrites.
func (r *partRenderer) finalize() string {
	out := r.out
	if r.needFinalBarline && r.st.mode.graphical() {
		out = append(out, `\bar "|."`)
	}
	out = mergeMarks(out)
	var b strings.Builder
	for i, frag := range out {
		b.WriteString(frag)
		if i == len(out)-1 || strings.HasSuffix(frag, "\n") {
			continue
		}
		if strings.Contains(frag, "\n") || len(frag) > 60 {
			b.WriteString("\n")
		} else {
			b.WriteString(" ")
		}
	}
	s := b.String()
	if r.st.mode != ModeJianpu {
		s = collapseTiedNotes(s)
	}
	if *r.st.angka {
		s = strings.ReplaceAll(s, "make-bold-markup", "make-simple-markup")
	}
	s = fixLongNoteBreaks(s)
	return strings.ReplaceAll(s, `\breathe`, `\tweak Y-offset #1 \breathe`)
}

// mergeMarks combines consecutive \mark \markup{} commands into one;
// LilyPond drops all but one mark per moment otherwise.
func mergeMarks(out []string) []string {
	const prefix = `\mark \markup{`
	merged := make([]string, 0, len(out))
	for _, frag := range out {
		n := len(merged)
		if n > 0 &&
			strings.HasPrefix(merged[n-1], prefix) && strings.HasSuffix(merged[n-1], "}") &&
			strings.HasPrefix(frag, prefix) && strings.HasSuffix(frag, "}") {
			merged[n-1] = merged[n-1][:len(merged[n-1])-1] + "  " + frag[len(prefix):]
			continue
		}
		merged = append(merged, frag)
	}
	return merged
}

var rxLongNoteBreak = regexp.MustCompile(`([a-g]+[',]*)4\s*~\s*\(\s*([a-g]+[',]*)2\.`)

// fixLongNoteBreaks rewrites "x4 ~ ( x2." into "x1 (" so a slur does
// not open in the middle of what is really one long note.
func fixLongNoteBreaks(s string) string {
	return rxLongNoteBreak.ReplaceAllStringFunc(s, func(m string) string {
		sub := rxLongNoteBreak.FindStringSubmatch(m)
		if sub[1] == sub[2] {
			return sub[1] + "1 ("
		}
		return m
	})
}

// chainPattern matches one candidate run of numNotes tied notes of a
// crotchet (dotted if dotted) each. Every note is captured separately;
// the caller checks they are all the same, which a regexp alone cannot
// express here.
type chainPattern struct {
	rx       *regexp.Regexp
	numNotes int
	result   string
}

const chainNote = `(<[^>]*>|[^< ][^ ]*)`

func newChainPattern(numNotes int, dotted bool, result string) chainPattern {
	dot := ""
	if dotted {
		dot = `\.`
	}
	pat := chainNote + "4" + dot + `((?::32)?) +~((?: \\[^ ]+)*) `
	reps := make([]string, numNotes-1)
	for i := range reps {
		reps[i] = chainNote + "4" + dot
	}
	pat += strings.Join(reps, ` +~ `)
	return chainPattern{rx: regexp.MustCompile(pat), numNotes: numNotes, result: result}
}

// apply collapses every chain whose notes all match, scanning left to
// right; a candidate with differing notes is skipped one note at a
// time so overlapping chains further right still collapse.
func (p chainPattern) apply(s string) string {
	var b strings.Builder
	pos := 0
	for pos <= len(s) {
		loc := p.rx.FindStringSubmatchIndex(s[pos:])
		if loc == nil {
			b.WriteString(s[pos:])
			break
		}
		group := func(g int) string {
			if loc[2*g] < 0 {
				return ""
			}
			return s[pos+loc[2*g] : pos+loc[2*g+1]]
		}
		note := group(1)
		same := true
		for g := 4; g < 4+p.numNotes-1; g++ {
			if group(g) != note {
				same = false
				break
			}
		}
		if same {
			b.WriteString(s[pos : pos+loc[0]])
			b.WriteString(note + p.result + group(2) + group(3))
			pos += loc[1]
		} else {
			b.WriteString(s[pos : pos+loc[3]])
			pos += loc[3]
		}
	}
	return b.String()
}

// tremoloChainPattern is the same idea for measured tremolos: a
// \repeat tremolo group tied to further chords of the same two notes
// extends the repeat count instead.
type tremoloChainPattern struct {
	rx       *regexp.Regexp
	numNotes int
	countIn  int
}

func newTremoloChainPattern(numNotes int, dotted bool) tremoloChainPattern {
	dot := ""
	countIn := 4
	if dotted {
		dot = `\.`
		countIn = 6
	}
	pat := `\\repeat tremolo ` + strconv.Itoa(countIn) +
		` { ([^ ]+)32 ([^ ]+)32 } +~((?: \\[^ ]+)*) `
	reps := make([]string, numNotes-1)
	for i := range reps {
		reps[i] = `< ([^ ]+) ([^ ]+) >4` + dot
	}
	pat += strings.Join(reps, ` +~ `)
	return tremoloChainPattern{rx: regexp.MustCompile(pat), numNotes: numNotes, countIn: countIn}
}

func (p tremoloChainPattern) apply(s string) string {
	var b strings.Builder
	pos := 0
	for pos <= len(s) {
		loc := p.rx.FindStringSubmatchIndex(s[pos:])
		if loc == nil {
			b.WriteString(s[pos:])
			break
		}
		group := func(g int) string {
			if loc[2*g] < 0 {
				return ""
			}
			return s[pos+loc[2*g] : pos+loc[2*g+1]]
		}
		n1, n2 := group(1), group(2)
		same := true
		for g := 4; g < 4+2*(p.numNotes-1); g += 2 {
			if group(g) != n1 || group(g+1) != n2 {
				same = false
				break
			}
		}
		if same {
			b.WriteString(s[pos : pos+loc[0]])
			b.WriteString(`\repeat tremolo ` + strconv.Itoa(p.countIn*p.numNotes) +
				` { ` + n1 + `32 ` + n2 + `32 }` + group(3))
			pos += loc[1]
		} else {
			b.WriteString(s[pos : pos+loc[3]])
			pos += loc[3]
		}
	}
	return b.String()
}

var (
	rxTremoloDynamics = regexp.MustCompile(`(\\repeat tremolo [^{]+{ [^ ]+)( [^}]+ })((?: +\\[^b][^ ]*)+)`)
	rxBarPlaceholder  = regexp.MustCompile(`(%\{ bar [0-9]*: %\} )r([^ ]* \\bar)`)
)

// collapseSpec is the fixed order of collapses: larger groups first so
// a semibreve is preferred over two minims.
var collapseSpecs = []struct {
	numNotes int
	dotted   bool
	result   string
}{
	{4, true, "1."}, // in 12/8, 4 dotted crotchets = dotted semibreve
	{4, false, "1"}, // 4 crotchets = semibreve
	{3, false, "2."},
	{2, true, "2."}, // in 6/8, 2 dotted crotchets = dotted minim
	{2, false, "2"},
}

// collapseTiedNotes combines runs of tied equal notes into single
// longer notes, extends measured tremolos the same way, and cleans up
// after the rewrite.
func collapseTiedNotes(s string) string {
	for _, spec := range collapseSpecs {
		s = newChainPattern(spec.numNotes, spec.dotted, spec.result).apply(s)
		s = newTremoloChainPattern(spec.numNotes, spec.dotted).apply(s)
		rest := "r4"
		if spec.dotted {
			rest = "r4."
		}
		restRun := strings.TrimSuffix(strings.Repeat(rest+" ", spec.numNotes), " ")
		s = strings.ReplaceAll(s, restRun, "r"+spec.result)
	}

	// Dynamics attach inside the tremolo braces, except for \bar.
	s = rxTremoloDynamics.ReplaceAllString(s, "$1$3$2")

	// A rest placeholder that fills a whole bar becomes a multi-measure rest.
	s = rxBarPlaceholder.ReplaceAllString(s, "${1}R${2}")

	// Consistent staff spacing across the score.
	s = strings.ReplaceAll(s,
		`\new RhythmicStaff \with {`,
		`\new RhythmicStaff \with {`+
			`\override VerticalAxisGroup.default-staff-staff-spacing = `+
			`#'((basic-distance . 6) (minimum-distance . 6) (stretchability . 0)) `)
	return s
}
