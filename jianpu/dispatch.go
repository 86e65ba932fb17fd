package jianpu

import (
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/exp/slices"
)

// repeatFrame is one open repeat construct. braces is how many } to
// emit when it closes; barPos remembers where the bar position stood
// when a percent repeat or alternative block opened, so it can be
// resynchronised on close.
type repeatFrame struct {
	braces       int
	barPos       *big.Rat
	extraRepeats int
	alternative  bool
}

// partRenderer walks the words of one part in one mode and accumulates
// the LilyPond body. out is a list of fragments; lastPtr points at the
// fragment of the most recent principal note so that later words can
// annotate it retroactively.
type partRenderer struct {
	conv *Converter
	st   *state

	out     []string
	lastPtr int

	afternext         string // markup to attach to the next note
	definedGrace      bool
	definedGraceAfter bool
	needFinalBarline  bool
	repeatStack       []repeatFrame
	inTranspose       bool
	maxBeams          float64
	lyrics            []string
	headers           map[string]string
}

func newPartRenderer(conv *Converter, st *state, headers map[string]string) *partRenderer {
	return &partRenderer{conv: conv, st: st, headers: headers}
}

func (r *partRenderer) warnf(format string, args ...interface{}) {
	r.conv.Warnings = append(r.conv.Warnings, Warning{Message: fmt.Sprintf(format, args...)})
}

// render processes the items of one part and returns the finalized
// LilyPond body text.
func (r *partRenderer) render(items []Item) (string, error) {
	if r.st.mode.graphical() {
		items = tiesToSlurs(items)
	} else {
		// Slurs must not break dash continuations.
		items = reformatSlurs(items)
	}
	for i, it := range items {
		switch it.Kind {
		case ItemEscape:
			r.out = append(r.out, it.Text+"\n")
		case ItemLyric:
			r.lyrics = append(r.lyrics, processLyricsLine(it.Text, it.Hanzi))
		case ItemHeader:
			if err := processHeaderLine(it.Text, r.headers, r.st.scoreNo); err != nil {
				return "", err
			}
		case ItemWord:
			if err := r.handleWord(items, i, it); err != nil {
				return "", err
			}
		}
	}
	if err := r.endPart(); err != nil {
		return "", err
	}
	return r.finalize(), nil
}

func (r *partRenderer) handleWord(items []Item, i int, it Item) error {
	word := it.Text
	w := classifyWord(word)
	switch w.Kind {
	case KindComment:
		return nil
	case KindTempo:
		r.out = append(r.out, `\tempo `+word)
	case KindKeySig:
		r.processKeySignature(word)
	case KindFingering:
		r.out = append(r.out, `\finger "`+fingeringGlyph(w.Body)+`"`)
	case KindRehearsalLetter:
		r.out = append(r.out, `\mark \markup { \box { "`+w.Body+`" } }`)
	case KindMultibarRest:
		if r.st.mode != ModeStaff {
			// \compressFullBarRests on LilyPond 2.20, \compressEmptyMeasures
			// on 2.22; both map to \set Score.skipBars
			r.out = append(r.out, `\set Score.skipBars = ##t \override MultiMeasureRest #'expand-limit = #1 `)
		}
		r.out = append(r.out, "R"+r.st.wholeBarRestLen()+word[1:])
	case KindTimeSig:
		return r.processTimeSignature(word)
	case KindOnePage:
		if r.st.onePage {
			r.warnf("Duplicate OnePage, did you miss out a NextScore?")
		}
		r.st.onePage = true
	case KindKeepOctave: // removed option, no effect
	case KindKeepLength:
		r.st.keepLength = true
	case KindNoBarNums:
		if r.st.noBarNums {
			r.warnf("Duplicate NoBarNums, did you miss out a NextScore?")
		}
		r.st.noBarNums = true
	case KindSeparateTimesig:
		if r.st.separateTimesig {
			r.warnf("Duplicate SeparateTimesig, did you miss out a NextScore?")
		}
		r.st.separateTimesig = true
		r.out = append(r.out, `\override Staff.TimeSignature #'stencil = ##f`)
	case KindAngka:
		if *r.st.angka {
			r.warnf("Duplicate angka, did you miss out a NextScore?")
		}
		*r.st.angka = true
	case KindWithStaff, KindPartMidi: // handled at the document level
	case KindRepeatStart:
		r.openRepeat(items, i, word, w.N)
	case KindRepeatEnd:
		return r.closeRepeat()
	case KindAlternateStart:
		r.repeatStack = append(r.repeatStack, repeatFrame{
			braces: 2, barPos: new(big.Rat).Set(r.st.barPos), alternative: true,
		})
		r.out = append(r.out, `\alternative { {`)
	case KindBarCheck:
		if n := len(r.repeatStack); n > 0 && r.repeatStack[n-1].alternative {
			r.out = append(r.out, "} {")
			r.st.barPos = new(big.Rat).Set(r.repeatStack[n-1].barPos)
		} else {
			// undocumented use of | as a barline check
			r.appendCommand(word)
		}
	case KindCommand:
		r.appendCommand(word)
	case KindTupletStart:
		r.openTuplet(w.N)
	case KindTupletEnd:
		r.out = append(r.out, "}")
		r.st.tuplet = [2]int{1, 1}
	case KindGraceBefore:
		r.graceBefore(w.Body)
	case KindGraceAfter:
		r.graceAfter(w.Body)
	case KindFine:
		r.needFinalBarline = false
		r.out = append(r.out, `\once \override Score.RehearsalMark #'break-visibility = #begin-of-line-invisible \once \override Score.RehearsalMark #'self-alignment-X = #RIGHT \mark "Fine" \bar "|."`)
	case KindDC:
		r.needFinalBarline = false
		r.out = append(r.out, `\once \override Score.RehearsalMark #'break-visibility = #begin-of-line-invisible \once \override Score.RehearsalMark #'self-alignment-X = #RIGHT \mark "D.C. al Fine" \bar "||"`)
	default:
		return r.processNote(word, it.Line)
	}
	return nil
}

// appendCommand emits a LilyPond command, annotation or barline check.
// Commands land inside an \afterGrace group when one is pending, so
// dynamics apply to the principal note rather than the grace.
func (r *partRenderer) appendCommand(word string) {
	if len(r.out) > 0 && strings.Contains(r.out[r.lastPtr], "afterGrace") {
		prev := r.out[r.lastPtr]
		r.out[r.lastPtr] = prev[:len(prev)-1] + word + " }"
	} else {
		r.out = append(r.out, word)
	}
}

// openRepeat starts a repeat block. A bare R{ always plays twice and is
// a volta. Rn{ is a percent (sign) repeat unless its closing brace is
// followed by an A{ alternative block, in which case only a volta can
// express it.
func (r *partRenderer) openRepeat(items []Item, i int, word string, n int) {
	if word == "R{" || repeatHasAlternative(items, i) {
		r.repeatStack = append(r.repeatStack, repeatFrame{braces: 1})
		r.out = append(r.out, fmt.Sprintf(`\repeat volta %d {`, n))
		return
	}
	r.repeatStack = append(r.repeatStack, repeatFrame{
		braces: 1, barPos: new(big.Rat).Set(r.st.barPos), extraRepeats: n - 1,
	})
	r.out = append(r.out, fmt.Sprintf(`\repeat percent %d {`, n))
}

func (r *partRenderer) closeRepeat() error {
	if len(r.repeatStack) == 0 {
		return &Error{Msg: fmt.Sprintf("Unmatched } in score %d", r.st.scoreNo), Score: r.st.scoreNo}
	}
	frame := r.repeatStack[len(r.repeatStack)-1]
	r.repeatStack = r.repeatStack[:len(r.repeatStack)-1]
	r.out = append(r.out, strings.Repeat("}", frame.braces))
	if frame.barPos == nil {
		return nil
	}
	// Re-synchronise so bar checks still work if the repeated section
	// is not a whole number of bars.
	newBarPos := new(big.Rat).Set(r.st.barPos)
	for newBarPos.Cmp(frame.barPos) < 0 {
		newBarPos.Add(newBarPos, ratFromInt(r.st.barLength))
	}
	delta := new(big.Rat).Sub(newBarPos, frame.barPos)
	total := new(big.Rat).Add(r.st.barPos,
		new(big.Rat).Mul(delta, ratFromInt(frame.extraRepeats)))
	r.st.barPos = ratMod(total, r.st.barLength)
	return nil
}

// repeatHasAlternative looks ahead for the } matching the repeat that
// opens at items[start] and reports whether an A{ block follows it.
func repeatHasAlternative(items []Item, start int) bool {
	depth := 0
	for i := start + 1; i < len(items); i++ {
		if items[i].Kind != ItemWord {
			continue
		}
		switch classifyWord(items[i].Text).Kind {
		case KindRepeatStart, KindAlternateStart:
			depth++
		case KindRepeatEnd:
			if depth > 0 {
				depth--
				continue
			}
			for j := i + 1; j < len(items); j++ {
				if items[j].Kind != ItemWord {
					continue
				}
				return classifyWord(items[j].Text).Kind == KindAlternateStart
			}
			return false
		}
	}
	return false
}

func ratMod(r *big.Rat, n int) *big.Rat {
	q := new(big.Rat).Quo(r, ratFromInt(n))
	whole := new(big.Int).Quo(q.Num(), q.Denom())
	return new(big.Rat).Sub(r, new(big.Rat).Mul(new(big.Rat).SetInt(whole), ratFromInt(n)))
}

// openTuplet emits \times num/fitIn where num is chosen so the group
// squeezes fitIn notes into the nearest power-of-two count.
func (r *partRenderer) openTuplet(fitIn int) {
	i := 2
	for i < fitIn {
		i *= 2
	}
	var num int
	if i == fitIn {
		num = fitIn * 3 / 2
	} else {
		num = i / 2
	}
	r.out = append(r.out, fmt.Sprintf(`\times %d/%d {`, num, fitIn))
	r.st.tuplet = [2]int{num, fitIn}
}

// padTupletBracket raises the tuplet bracket above a grace-note markup.
func (r *partRenderer) padTupletBracket() {
	if r.st.tuplet == [2]int{1, 1} {
		return
	}
	for i := 1; i <= 3 && i <= len(r.out); i++ {
		if strings.Contains(r.out[len(r.out)-i], `\times`) {
			r.out[len(r.out)-i] = `\once \override TupletBracket.padding = #2.5 ` + r.out[len(r.out)-i]
			return
		}
	}
}

func (r *partRenderer) graceBefore(body string) {
	if r.st.mode != ModeJianpu {
		r.out = append(r.out, `\acciaccatura { `+graceNotesWestern(body)+` }`)
		return
	}
	r.padTupletBracket()
	r.afternext = graceNotesMarkup(body, false)
	if !r.st.withStaff {
		r.out = append(r.out, `\once \textLengthOn `)
	}
	if !r.definedGrace {
		r.definedGrace = true
		r.out = append(r.out, jianpuGraceDefine)
	}
}

func (r *partRenderer) graceAfter(body string) {
	if r.st.mode != ModeJianpu {
		r.out[r.lastPtr] = ` \afterGrace { ` + r.out[r.lastPtr] + ` } { ` + graceNotesWestern(body) + ` }`
		return
	}
	r.padTupletBracket()
	if !r.st.withStaff {
		r.out[r.lastPtr] = `\once \textLengthOn ` + r.out[r.lastPtr]
	}
	r.out = slices.Insert(r.out, r.lastPtr+1, graceNotesMarkup(body, true))
	if !r.definedGraceAfter {
		r.definedGraceAfter = true
		r.out[r.lastPtr] = jianpuGraceAfterDefine + r.out[r.lastPtr]
	}
}

// processNote renders one note word, first peeling off any < > base
// octave shifts attached to it.
func (r *partRenderer) processNote(word, line string) error {
	origWord := word
	if strings.ContainsAny(word, "<>") {
		var shift, rest strings.Builder
		for _, c := range word {
			if c == '<' || c == '>' {
				shift.WriteRune(c)
			} else {
				rest.WriteRune(c)
			}
		}
		r.st.baseOctaveChange(shift.String())
		word = rest.String()
		if word == "" {
			return nil
		}
	}
	n, err := parseNoteWord(word, origWord, r.st.scoreNo, line)
	if err != nil {
		return err
	}
	r.needFinalBarline = true
	res, err := r.st.markupNote(n, origWord, line)
	if err != nil {
		return err
	}
	if res.before != "" && len(r.out) > 0 {
		r.out[r.lastPtr] = res.before + r.out[r.lastPtr]
	}
	if res.after != "" && len(r.out) > 0 {
		r.out = slices.Insert(r.out, r.lastPtr+1, res.after)
	}
	r.lastPtr = len(r.out)
	r.out = append(r.out, res.text)
	if r.afternext != "" {
		if res.needAccidentalSpace {
			r.afternext = strings.Replace(r.afternext, `\markup`, `\markup \halign #2 `, 1)
		}
		r.out = append(r.out, r.afternext)
		r.afternext = ""
	}
	if *r.st.angka && strings.Contains(res.octave, "'") {
		r.maxBeams = maxFloat(r.maxBeams, float64(len(res.octave))*0.8+float64(res.beams))
	} else {
		r.maxBeams = maxFloat(r.maxBeams, float64(res.beams))
	}
	return nil
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func (r *partRenderer) processKeySignature(word string) {
	approx := strings.ReplaceAll(word, "#", "♯")
	if strings.HasSuffix(approx, "b") && !strings.HasSuffix(approx, "=b") {
		approx = approx[:len(approx)-1] + "♭"
	}
	r.st.unicodeApprox = append(r.st.unicodeApprox, strings.ToUpper(approx)+" ")

	if r.st.mode.graphical() {
		// Non-transposing key change marker for display.
		r.out = append(r.out, `\mark \markup{`+
			strings.NewReplacer("b", `\flat`, "#", `\sharp`).Replace(word)+`}`)
		return
	}
	if r.inTranspose {
		r.out = append(r.out, "}")
	}
	transposeTo := strings.ToLower(strings.NewReplacer("#", "is", "b", "es").Replace(
		strings.SplitN(word, "=", 2)[1]))
	if r.st.mode == ModeMIDI && strings.ContainsAny(transposeTo[:1], "gab") {
		transposeTo += "," // keep the MIDI pitch near middle C
	}
	r.out = append(r.out, `\transpose c `+transposeTo+` { \key c \major `)
	r.inTranspose = true
}

func (r *partRenderer) processTimeSignature(word string) error {
	word, anac, _ := strings.Cut(word, ",")
	if r.st.separateTimesig && r.st.mode.graphical() {
		r.out = append(r.out, `\mark \markup{`+word+`}`)
	}
	r.out = append(r.out, `\time `+word)
	numStr, denomStr, _ := strings.Cut(word, "/")
	num := atoiDefault(numStr)
	denom := atoiDefault(denomStr)
	r.st.setTime(num, denom)
	if anac != "" {
		a2 := anac
		dotted := false
		if strings.HasSuffix(anac, ".") {
			a2, dotted = anac[:len(anac)-1], true
		}
		if err := r.st.setAnac(atoiDefault(a2), dotted); err != nil {
			return err
		}
		r.out = append(r.out, `\partial `+anac)
	}
	return nil
}

func atoiDefault(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	return n
}

var fingeringGlyphs = map[string]string{
	"1":        "一",
	"2":        "䲌",
	"3":        "三",
	"4":        "四",
	"souyin":   "久",
	"harmonic": "○",
	"up":       "↗",
	"down":     "↘",
	"bend":     "⤻",
	"tilde":    "∼",
}

func fingeringGlyph(finger string) string {
	if g, ok := fingeringGlyphs[finger]; ok {
		return g
	}
	return finger
}

// endPart performs the end-of-part checks and closes anything left
// open.
func (r *partRenderer) endPart() error {
	if r.st.barPos.Sign() == 0 && r.st.barNo == 1 {
		return &Error{Msg: fmt.Sprintf("No jianpu in score %d", r.st.scoreNo), Score: r.st.scoreNo}
	}
	if r.st.beamGroup == beamOpen && r.st.mode.graphical() {
		r.out[r.lastPtr] += "]" // needed if ending on an incomplete beat
	}
	if r.inTranspose {
		r.out = append(r.out, "}")
	}
	if len(r.repeatStack) > 0 {
		return &Error{Msg: fmt.Sprintf("Unterminated repeat in score %d", r.st.scoreNo), Score: r.st.scoreNo}
	}
	warning, err := r.st.endScore()
	if err != nil {
		return err
	}
	if warning != "" {
		r.warnf("%s", warning)
	}
	return nil
}
