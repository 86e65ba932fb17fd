package jianpu

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// nameGen issues deterministic voice names: the decimal counter with
// each digit mapped into the letter alphabet, so "0" becomes "W", "10"
// becomes "XW" and so on. LilyPond voice names must not contain digits.
type nameGen struct{ count int }

const nameLetters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

func (g *nameGen) next() string {
	s := strconv.Itoa(g.count)
	g.count++
	b := []byte(s)
	for i := range b {
		b[i] = nameLetters[int(b[i])%len(nameLetters)]
	}
	return string(b)
}

// allScoresStart is the document preamble: staff size, paper block,
// title markup and fonts. poet1st swaps the poet above the composer,
// for texts whose poet credit ends in 填词.
func allScoresStart(cfg Config, poet1st, hasLyrics bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\\version \"2.18.0\"\n#(set-global-staff-size %g)", cfg.StaffSize)
	poetComposer := "\\right-align \\fromproperty #'header:composer\n\\right-align \\fromproperty #'header:poet\n"
	if poet1st {
		poetComposer = "\\right-align \\fromproperty #'header:poet\n\\right-align \\fromproperty #'header:composer\n"
	}
	b.WriteString(`

% comment out the next line to have Lilypond tagline:
\header { tagline="" }

\pointAndClickOff

\paper {
  print-all-headers = ##t %% allow per-score headers

  #(set-default-paper-size "letter" )
  #(set-paper-size "letter")

  scoreTitleMarkup = \markup {
    \fill-line {
      \dir-column {
        \null
        \left-align \fontsize #2 \bold \fromproperty #'header:keytimesignature
        \left-align \fromproperty #'header:meter
        \null
        \left-align \fromproperty #'header:emotion
      }
      \dir-column {
          \center-align \fontsize #6 \bold \fromproperty #'header:title
          \null
          \center-align \fontsize #1 \fromproperty #'header:subtitle
          \center-align \fromproperty #'header:piece
      }
      \dir-column {

`)
	b.WriteString(poetComposer)
	b.WriteString(`
          \right-align \fromproperty #'header:arranger
      }
    }
  }
  % un-comment the next line for no page numbers:
  % print-page-number = ##f

  top-margin = 20\mm
  bottom-margin = 25\mm
  left-margin = 25\mm
  right-margin = 25\mm
`)
	if cfg.LilyMinor >= 20 {
		// Install Noto Serif/Sans CJK SC for consistency across platforms.
		b.WriteString(`
  #(define fonts
    (set-global-fonts
     #:roman "Noto Serif CJK SC,Times New Roman"
     #:sans "Noto Sans CJK SC,Arial Unicode MS"
     #:factor (/ staff-height pt 20)
    ))
`)
	}
	if hasLyrics {
		fmt.Fprintf(&b, `
  %% Might need to enforce a minimum spacing between systems, especially if lyrics are
  %% below the last staff in a system and numbers are on the top of the next
  system-system-spacing = #'((basic-distance . 7) (padding . %d) (stretchability . 1e7))
  score-markup-spacing = #'((basic-distance . 9) (padding . %d) (stretchability . 1e7))
  score-system-spacing = #'((basic-distance . 9) (padding . %d) (stretchability . 1e7))
  markup-system-spacing = #'((basic-distance . 2) (padding . 2) (stretchability . 0))
`, cfg.Padding, cfg.Padding, cfg.Padding)
	}
	b.WriteString("}\n")
	return b.String()
}

func scoreStart(mode Mode, noBarNums bool, cfg Config) string {
	ret := "\\score {\n"
	if mode == ModeMIDI {
		ret += "\\unfoldRepeats\n"
	}
	ret += "<< "
	if cfg.BarNumberEvery > 0 && !noBarNums && mode != ModeMIDI {
		ret += fmt.Sprintf("\\override Score.BarNumber #'break-visibility = #end-of-line-invisible\n\\set Score.barNumberVisibility = #(every-nth-bar-number-visible %d)", cfg.BarNumberEvery)
	}
	return ret
}

// scoreEnd closes the score: per-score headers (music must come before
// the header block since about LilyPond 2.7), then the midi or layout
// block.
func scoreEnd(mode Mode, noBarNums bool, cfg Config, headers map[string]string) string {
	ret := ">>\n"
	if len(headers) > 0 {
		ret += "\\header{\n"
		keys := maps.Keys(headers)
		slices.Sort(keys)
		for _, k := range keys {
			v := headers[k]
			if !strings.Contains(v, `"`) && !strings.Contains(v, `\markup`) {
				v = `"` + v + `"`
			}
			ret += k + "=" + v + "\n"
		}
		// placeholder, filled in once the key and time signatures are known
		ret += "keytimesignature=\"\"\n}\n"
	}
	switch {
	case mode == ModeMIDI:
		// overridden by any \tempo command used later
		ret += `\midi { \context { \Score midiInstrument = "` + cfg.Instrument +
			`" tempoWholesPerMinute = #(ly:make-moment 84 4)}}`
	case noBarNums:
		ret += `\layout { indent = 0.0 \context { \Score \remove "Bar_number_engraver" } }`
	default:
		ret += `\layout { indent = 0.0 \context { \Score \override TimeSignature.break-visibility = #'#(#f #t #t) } }`
	}
	return ret + " }"
}

// jianpuVoiceStart opens a numbered-notation voice. Temporary voices
// (the rest hack) always get zero-length stems; otherwise the stem
// length makes room for the beams.
func jianpuVoiceStart(isTemp, angka bool, maxBeams float64, names *nameGen) (string, string) {
	stemLenFrac := "0"
	if !isTemp && maxBeams >= 2 {
		stemLenFrac = "0.5"
	}
	voiceName := names.next()
	r := fmt.Sprintf("\\new Voice=\"%s\" {\n", voiceName)
	r += `
    #(set-accidental-style 'neo-modern) % Allow repeating accidentals within a measure
    \override Beam #'transparent = ##f
    `
	if angka {
		r += `
        \override Stem #'direction = #UP
        \override Tie #'staff-position = #-2.5
        \tupletDown
        `
		frac := 0.4 + 0.2*maxFloat(0, maxBeams-1)
		stemLenFrac = strconv.FormatFloat(frac, 'g', -1, 64)
	} else {
		r += `
        \override Stem #'direction = #DOWN
        \override Tie #'staff-position = #2.5
        \override Beam.positions = #'(-1 . -1)
        \tupletUp
        `
	}
	r += fmt.Sprintf(`
    \override Stem #'length-fraction = #%s
    \override Beam #'beam-thickness = #0.1
    \override Beam #'length-fraction = #-0.5
    \override Voice.Rest #'style = #'neomensural
    \override Accidental #'font-size = #-4
    \override TupletBracket #'bracket-visibility = ##t
    \set Voice.chordChanges = ##t %%%% 2.19 bug workaround
    \override BreathingSign.text = \markup { \fontsize #-4 \musicglyph #"scripts.upbow" }
    `, stemLenFrac)
	return r + "\n", voiceName
}

// jianpuStaffStart opens the RhythmicStaff that carries the numbered
// notation: no stave lines, but bar lines kept.
func jianpuStaffStart(inst string, withStaff, angka bool, maxBeams float64, names *nameGen) (string, string) {
	var r string
	if angka {
		r = "\n%% === BEGIN NOT ANGKA STAFF ===\n"
	} else {
		r = "\n%% === BEGIN JIANPU STAFF ===\n"
	}
	r += `\new RhythmicStaff \with {`
	if !angka {
		r += "\n    \\consists \"Accidental_engraver\""
	}
	if inst != "" {
		r += "\n    instrumentName = \"" + inst + "\""
		r += "\n    shortInstrumentName = \"" + inst + "\""
	}
	if withStaff {
		r += `
    %% Limit space between Jianpu and corresponding-Western staff
    \override VerticalAxisGroup.staff-staff-spacing = #'((minimum-distance . 7) (basic-distance . 7) (stretchability . 0))
    `
	}
	r += `
    %% Get rid of the stave but not the barlines:
    \override StaffSymbol #'line-count = #0
    \override BarLine #'bar-extent = #'(-2 . 2)
    }
    { `
	voice, voiceName := jianpuVoiceStart(false, angka, maxBeams, names)
	r += voice
	r += `
    \override Staff.TimeSignature #'style = #'numbered
    \once \omit Staff.TimeSignature
    \override Staff.Stem #'transparent = ##t
    `
	return r, voiceName
}

func jianpuStaffEnd(angka bool) string {
	if angka {
		return "} }\n% === END NOT ANGKA STAFF ===\n"
	}
	return "} }\n% === END JIANPU STAFF ===\n"
}

func midiStaffStart(names *nameGen) string {
	return fmt.Sprintf("\n%%%% === BEGIN MIDI STAFF ===\n    \\new Staff { \\new Voice=\"%s\" {", names.next())
}

func midiStaffEnd() string { return "} }\n% === END MIDI STAFF ===\n" }

func westernStaffStart(inst string, names *nameGen) (string, string) {
	r := "\n%% === BEGIN 5-LINE STAFF ===\n    \\new Staff "
	if inst != "" {
		r += `\with { instrumentName = "` + inst + `" } `
	}
	voiceName := names.next()
	r += fmt.Sprintf(`{
    \override Score.SystemStartBar.collapse-height = #11 %%%% (needed on 2.22)
    \new Voice="%s" {
    #(set-accidental-style 'modern-cautionary)
    \override Staff.TimeSignature #'style = #'numbered
    \set Voice.chordChanges = ##f %%%% for 2.19.82 bug workaround
`, voiceName)
	return r, voiceName
}

func westernStaffEnd() string { return "} }\n% === END 5-LINE STAFF ===\n" }

func lyricsStart(voiceName string, names *nameGen) string {
	return fmt.Sprintf(`\new Lyrics = "I%s" { \lyricsto "%s" { `, names.next(), voiceName)
}

func lyricsEnd() string { return "} }" }

var (
	rxKeySigMarkup  = regexp.MustCompile(`\\markup\{\s*1=([A-G])(\\flat|\\sharp)?\}`)
	rxKeySigDisplay = regexp.MustCompile(`\\mark \\markup\{\s*([16]=[♭♯]?[A-G])\}`)
	rxKeySigAtStart = regexp.MustCompile(`(\\override Staff\.Stem\.transparent = ##t\s+)\\mark \\markup\{[16]=[♭♯]?[A-G]\}`)
	rxJianpuSection = regexp.MustCompile(`(?s)%% === BEGIN JIANPU STAFF ===(.*?)% === END JIANPU STAFF ===`)
	rxTimeSigOut    = regexp.MustCompile(`\\time\s+(\d+)/(\d+)`)
)

// reformatKeyTimeSignatures folds the key signature and the distinct
// time signatures into the keytimesignature title header and replaces
// in-staff time signatures with large bold fractions.
func reformatKeyTimeSignatures(s string) string {
	s = rxKeySigMarkup.ReplaceAllStringFunc(s, func(m string) string {
		sub := rxKeySigMarkup.FindStringSubmatch(m)
		sym := ""
		switch sub[2] {
		case `\flat`:
			sym = "♭"
		case `\sharp`:
			sym = "♯"
		}
		return `\markup{1=` + sym + sub[1] + `}`
	})

	section := rxJianpuSection.FindStringSubmatch(s)
	if section == nil {
		return s
	}
	var sigs []string
	seen := map[string]bool{}
	for _, m := range rxTimeSigOut.FindAllStringSubmatch(section[1], -1) {
		key := m[1] + "/" + m[2]
		if !seen[key] {
			seen[key] = true
			sigs = append(sigs, `\hspace #1 \fraction `+m[1]+` `+m[2])
		}
	}
	keysig := rxKeySigDisplay.FindStringSubmatch(s)
	if keysig != nil {
		s = rxKeySigAtStart.ReplaceAllString(s, "$1")
		s = strings.Replace(s, `keytimesignature=""`,
			`keytimesignature=\markup{ \concat { `+keysig[1]+" "+strings.Join(sigs, " ")+` } }`, -1)
	}
	s = rxTimeSigOut.ReplaceAllString(s,
		`\override Staff.TimeSignature.stencil = #ly:text-interface::print \override Staff.TimeSignature.text = \markup { \translate #'(0 . -0.5) \bold \fontsize #2 \fraction $1 $2} \time $1/$2`)
	return s
}

// filterOutJianpu strips every jianpu staff section, leaving the
// western staves; used by the staff-only output.
func filterOutJianpu(s string) string {
	const begin = "\n%% === BEGIN JIANPU STAFF ===\n"
	const end = "\n% === END JIANPU STAFF ===\n"
	for {
		i := strings.Index(s, begin)
		if i < 0 {
			break
		}
		j := strings.Index(s[i:], end)
		if j < 0 {
			break
		}
		s = s[:i] + s[i+j+len(end):]
	}
	return s
}

// wrapStaffGroup joins multiple jianpu staves into one StaffGroup so
// their bar lines connect.
func wrapStaffGroup(s string) string {
	const begin = "=== BEGIN JIANPU STAFF ==="
	const end = "=== END JIANPU STAFF ==="
	if strings.Count(s, begin) <= 1 {
		return s
	}
	s = strings.Replace(s, begin, begin+"\n\\new StaffGroup <<", 1)
	if i := strings.LastIndex(s, end); i >= 0 {
		s = s[:i] + end + "\n>>" + s[i+len(end):]
	}
	return s
}

var rxOldOverride = regexp.MustCompile(`(\\override [A-Z][^ ]*) #'`)

// modernizeOverrides rewrites the 2.18-era \override Foo #'bar spelling
// to \override Foo.bar, needed to avoid deprecation warnings on
// LilyPond 2.24.
func modernizeOverrides(s string) string {
	return rxOldOverride.ReplaceAllString(s, "$1.")
}
