package jianpu

import (
	"regexp"
	"strconv"
	"strings"
)

// WordKind classifies one whitespace-separated word of a music line.
// The dispatcher switches over every kind, so adding a category here is
// a compile-visible decision rather than a regexp-ordering accident.
type WordKind int

const (
	KindNote WordKind = iota // note, chord, rest, dash or base-octave shift
	KindTempo
	KindKeySig
	KindFingering
	KindRehearsalLetter
	KindMultibarRest
	KindTimeSig
	KindOnePage
	KindKeepLength
	KindKeepOctave
	KindNoBarNums
	KindSeparateTimesig
	KindAngka
	KindWithStaff
	KindPartMidi
	KindRepeatStart // R{ or Rn{
	KindRepeatEnd   // }
	KindAlternateStart
	KindBarCheck // | : alternate separator inside A{, literal bar check otherwise
	KindTupletStart
	KindTupletEnd
	KindGraceBefore // g[...]
	KindGraceAfter  // [...]g
	KindFine
	KindDC
	KindCommand // \..., ( ) ~ ->, ^"text", _"text"
	KindComment
)

// Word is one classified input word. N carries the repeat count or
// tuplet subdivision, Body the bracketed grace-note content or the
// fingering name.
type Word struct {
	Kind WordKind
	Text string
	N    int
	Body string
}

var (
	rxTempo        = regexp.MustCompile(`^[1-468]+[.]*=[1-9][0-9]*$`)
	rxKeySig       = regexp.MustCompile(`^[16]=[A-Ga-g][#b]?$`)
	rxLetter       = regexp.MustCompile(`^letter[A-Z]$`)
	rxMultibarRest = regexp.MustCompile(`^R\*[1-9][0-9/]*$`)
	rxTimeSig      = regexp.MustCompile(`^[1-9][0-9]*/[1-468]+(,[1-9][0-9]*[.]?)?$`)
	rxRepeatStart  = regexp.MustCompile(`^R([1-9][0-9]*)?\{$`)
	rxTupletStart  = regexp.MustCompile(`^([1-9][0-9]*)\[$`)
	rxGraceBefore  = regexp.MustCompile(`^g\[[#b',1-9\s]+\]$`)
	rxGraceAfter   = regexp.MustCompile(`^\[[#b',1-9]+\]g$`)
)

// Erhu symbols may be written bare; they are shorthand for Fr=<symbol>.
var bareFingerings = map[string]bool{
	"souyin": true, "harmonic": true, "up": true,
	"down": true, "bend": true, "tilde": true,
}

func classifyWord(word string) Word {
	w := Word{Kind: KindNote, Text: word}
	switch {
	case bareFingerings[word]:
		w.Kind, w.Body = KindFingering, word
	case strings.HasPrefix(word, "%"):
		w.Kind = KindComment
	case rxTempo.MatchString(word):
		w.Kind = KindTempo
	case rxKeySig.MatchString(word):
		w.Kind = KindKeySig
	case strings.HasPrefix(word, "Fr="):
		w.Kind, w.Body = KindFingering, strings.TrimPrefix(word, "Fr=")
	case rxLetter.MatchString(word):
		w.Kind, w.Body = KindRehearsalLetter, word[len(word)-1:]
	case rxMultibarRest.MatchString(word):
		w.Kind = KindMultibarRest
	case rxTimeSig.MatchString(word):
		w.Kind = KindTimeSig
	case word == "OnePage":
		w.Kind = KindOnePage
	case word == "KeepLength":
		w.Kind = KindKeepLength
	case word == "KeepOctave": // removed option, accepted with no effect
		w.Kind = KindKeepOctave
	case word == "NoBarNums":
		w.Kind = KindNoBarNums
	case word == "SeparateTimesig":
		w.Kind = KindSeparateTimesig
	case word == "angka" || word == "Indonesian":
		w.Kind = KindAngka
	case word == "WithStaff":
		w.Kind = KindWithStaff
	case word == "PartMidi":
		w.Kind = KindPartMidi
	case rxRepeatStart.MatchString(word):
		w.Kind = KindRepeatStart
		w.N = 2
		if m := rxRepeatStart.FindStringSubmatch(word); m[1] != "" {
			w.N, _ = strconv.Atoi(m[1])
		}
	case word == "}":
		w.Kind = KindRepeatEnd
	case word == "A{":
		w.Kind = KindAlternateStart
	case word == "|":
		w.Kind = KindBarCheck
	case word == "Fine":
		w.Kind = KindFine
	case word == "DC":
		w.Kind = KindDC
	case strings.HasPrefix(word, `\`) ||
		word == "(" || word == ")" || word == "~" || word == "->" ||
		strings.HasPrefix(word, `^"`) || strings.HasPrefix(word, `_"`):
		w.Kind = KindCommand
	case rxTupletStart.MatchString(word):
		w.Kind = KindTupletStart
		m := rxTupletStart.FindStringSubmatch(word)
		w.N, _ = strconv.Atoi(m[1])
	case word == "]":
		w.Kind = KindTupletEnd
	case rxGraceBefore.MatchString(word):
		w.Kind, w.Body = KindGraceBefore, word[2:len(word)-1]
	case rxGraceAfter.MatchString(word):
		w.Kind, w.Body = KindGraceAfter, word[1:len(word)-2]
	}
	return w
}

// noteWord is the parsed form of one note, chord, rest or dash word.
// Figures, accidentals and octaves run in parallel, one entry per
// pitch figure. Beams < 0 means unspecified: inherit the previous
// note's beaming under KeepLength, play a crotchet otherwise.
type noteWord struct {
	figures     []string
	accidentals []string
	octaves     []string
	beams       int
	dots        int
	tremolo     bool
}

var (
	rxNoteAlphabet = regexp.MustCompile(`^[0-7.,'cqsdh\\#b-]+$`)
	rxFigureGroup  = regexp.MustCompile(`[#b]*[-0-7][',]*`)
)

const beamLetters = "cqsdh" // crotchet, quaver, semiquaver, demi, hemi

// parseNoteWord interprets a single jianpu note word. origWord is the
// word as written, before shorthand normalization, for error reports.
func parseNoteWord(word, origWord string, scoreNo int, line string) (noteWord, error) {
	var n noteWord
	if word == "." {
		word = "-" // angka habit: dot as dash
	}
	word = strings.ReplaceAll(word, "8", "1'")
	word = strings.ReplaceAll(word, "9", "2'")
	word = strings.ReplaceAll(word, "’", "'")
	if strings.Contains(word, "///") {
		n.tremolo = true
		word = strings.Replace(word, "///", "", 1)
	}
	// Unrecognised characters are fatal rather than ignored; silently
	// dropping them would surface later as a puzzling barcheck failure.
	if !rxNoteAlphabet.MatchString(word) {
		return n, scoreError("Unrecognised command", origWord, scoreNo, line)
	}

	for _, group := range rxFigureGroup.FindAllString(word, -1) {
		var fig, acc, oct strings.Builder
		for _, c := range group {
			switch c {
			case '#', 'b':
				acc.WriteRune(c)
			case '\'', ',':
				oct.WriteRune(c)
			default:
				fig.WriteRune(c)
			}
		}
		n.figures = append(n.figures, fig.String())
		n.accidentals = append(n.accidentals, acc.String())
		n.octaves = append(n.octaves, oct.String())
	}

	n.dots = strings.Count(word, ".")

	var beams strings.Builder
	for _, c := range word {
		if strings.ContainsRune(beamLetters+`\`, c) {
			beams.WriteRune(c)
		}
	}
	switch code := beams.String(); {
	case code == "":
		n.beams = -1 // unspecified
	case strings.Trim(code, `\`) == "":
		// Alternate spelling: more backslashes, more beams.
		n.beams = len(code)
	case len(code) == 1:
		n.beams = strings.Index(beamLetters, code)
	default:
		return n, scoreError("Can't calculate number of beams from "+code+" in", origWord, scoreNo, line)
	}
	return n, nil
}
