package jianpu

import (
	"fmt"
	"math/big"
	"strings"
)

// Mode selects the render target of one conversion pass. Each pass owns
// a fresh state instance; beaming and accidental decisions differ by
// mode, so state is never shared or reused across passes.
type Mode int

const (
	ModeJianpu Mode = iota // numbered notation on a rhythmic staff
	ModeStaff              // western five-line staff doubling the tune
	ModeMIDI               // audio rendering
)

// graphical reports whether the pass draws jianpu glyphs; staff and
// MIDI passes emit plain LilyPond pitches instead.
func (m Mode) graphical() bool { return m == ModeJianpu }

// Config carries the process-wide toggles of a conversion.
type Config struct {
	StaffOnly  bool    // only emit the western staff
	WithStaff  bool    // add a western staff doubling each jianpu staff
	SloppyBars bool    // downgrade incomplete-final-bar errors to warnings
	NoRestHack bool    // disable the isolated-quaver-rest workaround
	StaffSize  float64 // LilyPond global staff size, default 20
	Instrument string  // MIDI instrument name, default "choir aahs"
	// BarNumberEvery shows a bar number every n bars; 0 means only at
	// the beginning of each line.
	BarNumberEvery int
	Padding   int // spacing between lyric systems, default 3
	LilyMinor int // targeted LilyPond 2.x minor version, default 22
}

func (c Config) withDefaults() Config {
	if c.StaffSize == 0 {
		c.StaffSize = 20
	}
	if c.Instrument == "" {
		c.Instrument = "choir aahs"
	}
	if c.Padding == 0 {
		c.Padding = 3
	}
	if c.LilyMinor == 0 {
		c.LilyMinor = 22
	}
	return c
}

// Dashes extend the previous note as invisible ties rather than rests;
// this works better in awkward beaming situations.
const dashesAsTies = true

type beamState int

const (
	beamNone beamState = iota
	beamOpen
	beamRestHack // group carried by a temporary rest-hack voice
)

const unitsPerWhole = 64 // fixed-point duration base

var figurePlaceholders = map[string]string{
	// Placeholder pitches so accidentals and word-fitting work; they
	// are transposed to the actual key later, keeping MIDI correct.
	"0": "r",
	"1": "c", "2": "d", "3": "e", "4": "f",
	"5": "g", "6": "a", "7": "b",
	"-": "r",
}

var figureNames = map[string]string{
	"0": "nought", "1": "one", "2": "two", "3": "three", "4": "four",
	"5": "five", "6": "six", "7": "seven", "-": "dash",
}

// state is the timing and layout state machine for one (part, mode)
// pass. Replaying the same word sequence against a fresh state produces
// identical output.
type state struct {
	mode      Mode
	cfg       Config
	scoreNo   int
	hasLyrics bool
	withStaff bool
	names     *nameGen

	// angka and defines outlive a single part: angka is sticky for the
	// rest of the score pass, markup defines are emitted once per
	// document.
	angka   *bool
	defines map[string]string

	barLength   int // in 64ths
	beatLength  int // in 64ths
	barPos      *big.Rat
	startBarPos *big.Rat
	barNo       int
	tuplet      [2]int

	beamGroup       beamState
	lastBeams       int
	keepLength      bool
	onePage         bool
	noBarNums       bool
	separateTimesig bool

	baseOctave      string
	accidentals     map[string]*[7]string // octave mark -> accidental shown per figure
	lastFigures     []string
	lastOctaves     []string
	lastAccidentals []string
	lastWasRest     bool

	notesHad      []string
	unicodeApprox []string
}

func newState(mode Mode, cfg Config, scoreNo int, hasLyrics bool, angka *bool, defines map[string]string, names *nameGen) *state {
	return &state{
		mode:        mode,
		cfg:         cfg,
		scoreNo:     scoreNo,
		hasLyrics:   hasLyrics,
		withStaff:   cfg.StaffOnly || cfg.WithStaff,
		names:       names,
		angka:       angka,
		defines:     defines,
		barLength:   unitsPerWhole,
		beatLength:  16,
		barPos:      new(big.Rat),
		startBarPos: new(big.Rat),
		barNo:       1,
		tuplet:      [2]int{1, 1},
		accidentals: map[string]*[7]string{},
	}
}

func ratFromInt(n int) *big.Rat { return big.NewRat(int64(n), 1) }

func mapDefault(m map[string]string, key, def string) string {
	if v, ok := m[key]; ok {
		return v
	}
	return def
}

// isMultipleOf reports whether r is an exact integer multiple of n.
func isMultipleOf(r *big.Rat, n int) bool {
	q := new(big.Rat).Quo(r, ratFromInt(n))
	return q.IsInt()
}

func (s *state) setTime(num, denom int) {
	s.barLength = unitsPerWhole * num / denom
	if denom > 4 && num%3 == 0 {
		s.beatLength = 24 // compound time
	} else {
		s.beatLength = 16
	}
}

// setAnac positions the first bar for an anacrusis of 1/denom (dotted
// if asked). An anacrusis exactly equal to the bar means no anacrusis.
func (s *state) setAnac(denom int, dotted bool) error {
	s.barPos = new(big.Rat).Sub(ratFromInt(s.barLength), big.NewRat(unitsPerWhole, int64(denom)))
	if dotted {
		s.barPos.Sub(s.barPos, big.NewRat(unitsPerWhole, int64(denom)*2))
	}
	if s.barPos.Sign() < 0 {
		return &Error{Msg: "Anacrusis is longer than bar", Score: s.scoreNo}
	}
	s.startBarPos = new(big.Rat).Set(s.barPos)
	return nil
}

var wholeBarRests = map[int]string{
	96: "1.", 48: "2.", 32: "2", 24: "4.", 16: "4", 12: "8.", 8: "8",
}

func (s *state) wholeBarRestLen() string {
	if r, ok := wholeBarRests[s.barLength]; ok {
		return r
	}
	return "1"
}

func (s *state) baseOctaveChange(change string) {
	s.baseOctave = addOctaves(change, s.baseOctave)
}

// addOctaves applies the octave shift octave1 (which may use the < and
// > base-octave spellings) on top of octave2.
func addOctaves(octave1, octave2 string) string {
	octave2 = strings.NewReplacer(">", "'", "<", ",").Replace(octave2)
	for _, c := range octave1 {
		if c == '\'' || c == '>' {
			if strings.Contains(octave2, ",") {
				octave2 = octave2[:len(octave2)-1]
			} else {
				octave2 += "'"
			}
		} else {
			if strings.Contains(octave2, "'") {
				octave2 = octave2[:len(octave2)-1]
			} else {
				octave2 += ","
			}
		}
	}
	return octave2
}

// endScore validates bar completeness at the end of a part pass. The
// returned warning is non-empty when SloppyBars downgraded the error.
func (s *state) endScore() (warning string, err error) {
	switch {
	case s.barPos.Cmp(s.startBarPos) == 0:
		return "", nil
	case s.cfg.SloppyBars:
		return fmt.Sprintf("Wrong bar length at end of score %d ignored (sloppy bars)", s.scoreNo), nil
	case s.startBarPos.Sign() != 0 && s.barPos.Sign() == 0:
		// A piece with an anacrusis should end with a shortened bar
		// that makes up for it.
		finalBeats := new(big.Rat).Quo(s.startBarPos, ratFromInt(s.beatLength))
		anacBeats := new(big.Rat).Quo(
			new(big.Rat).Sub(ratFromInt(s.barLength), s.startBarPos), ratFromInt(s.beatLength))
		return "", &Error{
			Msg: fmt.Sprintf(
				"Score %d should end with a %s-beat bar to make up for the %s-beat anacrusis bar. Use sloppy bars if you really want to break this rule.",
				s.scoreNo, finalBeats.RatString(), anacBeats.RatString()),
			Score: s.scoreNo,
		}
	default:
		beats := new(big.Rat).Quo(s.barPos, ratFromInt(s.beatLength))
		return "", &Error{
			Msg:   fmt.Sprintf("Incomplete bar at end of score %d (%s beats)", s.scoreNo, beats.RatString()),
			Score: s.scoreNo,
		}
	}
}

// noteResult is what one note word contributes to the fragment stream.
// before is prepended to the previous principal note's fragment, after
// is inserted right behind it; text is the new principal fragment.
type noteResult struct {
	before              string
	after               string
	text                string
	needAccidentalSpace bool
	beams               int
	octave              string
}

func (s *state) validateFigures(n noteWord, word string, line string) error {
	if len(n.figures) > 1 {
		for _, f := range n.figures {
			if f == "0" {
				return scoreError("Can't have rest in chord:", word, s.scoreNo, line)
			}
			if f == "-" {
				return scoreError("Dash not allowed in multi-figure chords:", word, s.scoreNo, line)
			}
		}
	}
	for _, acc := range n.accidentals {
		if acc != "" && acc != "#" && acc != "b" {
			return scoreError("Can't handle accidental "+acc+" in", word, s.scoreNo, line)
		}
	}
	return nil
}

func (s *state) placeholderChord(figures []string) string {
	if len(figures) == 1 {
		return figurePlaceholders[figures[0]]
	}
	if s.mode.graphical() {
		return "c" // appearance is overridden by the figure markup
	}
	parts := make([]string, 0, len(figures))
	for _, f := range figures {
		parts = append(parts, figurePlaceholders[f])
	}
	return "< " + strings.Join(parts, " ") + " >"
}

// processFigures resolves a dash continuation against the previous
// note and applies the base octave to fresh notes.
func (s *state) processFigures(n *noteWord, word, line string) (name, placeholder string, invisTie bool, err error) {
	invisTie = dashesAsTies && len(s.lastFigures) > 0 && n.figures[0] == "-" && !s.lastWasRest

	if invisTie {
		figures := make([]string, len(s.lastFigures))
		var nameParts strings.Builder
		nameParts.WriteString("-")
		for i, f := range s.lastFigures {
			figures[i] = "-" + f
			nameParts.WriteString(figureNames[f])
		}
		placeholder = s.placeholderChord(s.lastFigures)
		n.figures = figures
		n.octaves = s.lastOctaves
		n.accidentals = s.lastAccidentals
		name = nameParts.String()
	} else {
		var nameParts strings.Builder
		for i, f := range n.figures {
			nameParts.WriteString(figureNames[f])
			if *s.angka {
				switch n.accidentals[i] {
				case "#":
					nameParts.WriteString("-sharp")
				case "b":
					nameParts.WriteString("-flat")
				}
			}
		}
		name = nameParts.String()
		placeholder = s.placeholderChord(n.figures)
		for i, oct := range n.octaves {
			oct = addOctaves(oct, s.baseOctave)
			switch oct {
			case ",,", ",", "", "'", "''":
			default:
				return "", "", false, scoreError("Can't handle octave "+oct+" in", word, s.scoreNo, line)
			}
			n.octaves[i] = oct
		}
		s.lastFigures = n.figures
		s.lastOctaves = n.octaves
		s.lastAccidentals = n.accidentals
	}

	s.lastWasRest = len(n.figures) == 1 && (n.figures[0] == "0" || (n.figures[0] == "-" && s.lastWasRest))
	return name, placeholder, invisTie, nil
}

// markupNote renders one note word and advances the bar position,
// raising bar-overflow errors and closing beam groups at beat
// boundaries.
func (s *state) markupNote(n noteWord, word, line string) (noteResult, error) {
	var res noteResult
	if err := s.validateFigures(n, word, line); err != nil {
		return res, err
	}
	s.notesHad = append(s.notesHad, strings.Join(n.figures, ""))

	name, placeholder, invisTie, err := s.processFigures(&n, word, line)
	if err != nil {
		return res, err
	}

	var figures string
	if strings.HasPrefix(n.figures[0], "-") {
		var b strings.Builder
		b.WriteString("-")
		for _, f := range n.figures {
			b.WriteString(f[1:])
		}
		figures = b.String()
	} else {
		figures = strings.Join(n.figures, "")
	}
	octave := strings.Join(n.octaves, "")
	accidental := strings.Join(n.accidentals, "")
	dots := strings.Repeat(".", n.dots)

	var ret strings.Builder
	if _, done := s.defines[figures]; !done && s.mode.graphical() {
		s.defines[figures] = "note-" + name
		ret.WriteString(s.figureDefine(figures, accidental))
	}
	if s.barPos.Sign() == 0 && s.barNo > 1 {
		ret.WriteString("| ") // aids readability of the .ly file
		if s.onePage && s.mode != ModeMIDI {
			ret.WriteString(`\noPageBreak `)
		}
		fmt.Fprintf(&ret, "%%{ bar %d: %%} ", s.barNo)
	}
	if _, ok := s.accidentals[octave]; !ok {
		s.accidentals[octave] = &[7]string{}
	}

	nBeams := n.beams
	if nBeams < 0 { // unspecified
		if s.keepLength {
			nBeams = s.lastBeams
		} else {
			nBeams = 0
		}
	}

	// The beam must fit under the dash, which sits slightly left of
	// where digits are, or under a new accidental when the beam count
	// grows.
	newAccidental := true
	for _, f := range figures {
		if f < '1' || f > '7' || accidental == s.accidentals[octave][f-'1'] {
			newAccidental = false
			break
		}
	}
	var leftBeams int
	switch {
	case figures == "-" || (newAccidental && nBeams > s.lastBeams):
		leftBeams = nBeams
	case s.beamGroup != beamNone:
		if nBeams < s.lastBeams {
			leftBeams = nBeams
		} else {
			leftBeams = s.lastBeams
		}
	}

	var afterPrev string
	if nBeams == 0 && s.beamGroup != beamNone {
		if s.beamGroup != beamRestHack {
			afterPrev = "] "
		}
		s.beamGroup = beamNone
	}

	length := 4
	toAdd := big.NewRat(16, 1) // crotchet
	for b := 0; b < nBeams; b++ {
		length *= 2
		toAdd.Mul(toAdd, big.NewRat(1, 2))
	}
	dotAdd := new(big.Rat).Set(toAdd)
	for i := 0; i < n.dots; i++ {
		dotAdd.Mul(dotAdd, big.NewRat(1, 2))
		toAdd.Add(toAdd, dotAdd)
	}
	preTuplet := new(big.Rat).Set(toAdd)
	if s.tuplet[0] != s.tuplet[1] {
		toAdd.Mul(toAdd, big.NewRat(int64(s.tuplet[0]), int64(s.tuplet[1])))
	}

	// Set beam counts unconditionally; LilyPond's own beamer can change
	// them from note to note.
	if nBeams > 0 && s.mode.graphical() {
		if *s.angka {
			leftBeams = nBeams
			after := new(big.Rat).Add(s.barPos, toAdd)
			if isMultipleOf(after, s.beatLength) {
				nBeams = 0
			}
		}
		fmt.Fprintf(&ret, "\\set stemLeftBeamCount = #%d\n", leftBeams)
		fmt.Fprintf(&ret, "\\set stemRightBeamCount = #%d\n", nBeams)
		if *s.angka {
			nBeams = leftBeams
		}
	}

	for _, f := range figures {
		if f >= '1' && f <= '7' {
			if accidental != s.accidentals[octave][f-'1'] {
				res.needAccidentalSpace = true
			}
			s.accidentals[octave][f-'1'] = accidental
		}
	}

	inRestHack := false
	text := ret.String()
	if s.mode.graphical() {
		if text != "" {
			text = strings.TrimRight(text, " \n") + "\n"
		}
		if octave == "''" && !invisTie {
			text += `  \once \override Score.TextScript.outside-staff-priority = 45`
		}
		text += `  \applyOutput #'Voice #` + s.defines[figures] + " "
		if placeholder == "r" && !s.cfg.NoRestHack && nBeams > 0 {
			// A pitched placeholder works around diagonal-tail problems
			// with isolated quaver rests; a temporary voice keeps the
			// lyrics from attaching to it.
			placeholder = "c"
			if s.hasLyrics && !s.withStaff {
				voice, _ := jianpuVoiceStart(true, *s.angka, 0, s.names)
				text = voice + text
				inRestHack = true
				if s.beamGroup == beamOpen {
					afterPrev = "] "
				}
			}
		}
	}

	if strings.HasPrefix(placeholder, "<") {
		// Octave mark on a chord: applies to the top note when up, the
		// bottom note when down.
		notes := strings.Fields(placeholder)
		notes = notes[1 : len(notes)-1]
		notes[0] += mapDefault(map[string]string{",": "", ",,": ","}, octave, "'")
		for i := 1; i < len(notes)-1; i++ {
			notes[i] += "'"
		}
		notes[len(notes)-1] += mapDefault(map[string]string{"'": "''", "''": "'''"}, octave, "'")
		text += "< " + strings.Join(notes, " ") + " >"
	} else {
		text += placeholder + map[string]string{"": "", "#": "is", "b": "es"}[accidental]
		if placeholder != "r" {
			// Unmarked notes start near middle C for MIDI and staff.
			text += map[string]string{"": "'", "'": "''", "''": "'''", ",": "", ",,": ","}[octave]
		}
	}
	text += fmt.Sprintf("%d%s", length, dots)

	if n.tremolo {
		text, err = s.applyTremolo(text, placeholder, preTuplet, dots)
		if err != nil {
			return res, err
		}
	}

	if nBeams > 0 && (s.beamGroup != beamOpen || inRestHack) && s.mode.graphical() {
		// Open a beam bracket even for an isolated quaver so the
		// stemLeftBeamCount overrides above still apply.
		text += "["
		s.beamGroup = beamOpen
	}

	s.barPos.Add(s.barPos, toAdd)
	if s.barPos.Cmp(ratFromInt(s.barLength)) > 0 {
		before := new(big.Rat).Sub(s.barPos, toAdd)
		return res, &Error{
			Msg: fmt.Sprintf(
				"(notesHad=%s) barcheck fail: note crosses barline at %q with %d beams (%s skipped from %s to %s, bypassing %d), barNo=%d (but the error could be earlier)",
				strings.Join(s.notesHad, " "), figures, nBeams,
				toAdd.RatString(), before.RatString(), s.barPos.RatString(),
				s.barLength, s.barNo),
			Score: s.scoreNo,
		}
	}

	if isMultipleOf(s.barPos, s.beatLength) && s.beamGroup == beamOpen {
		// Jianpu printouts restart beams every beat.
		text += "]"
		// lastBeams is kept: the start-of-group accidental logic needs it.
		s.beamGroup = beamNone
	} else if inRestHack && s.beamGroup == beamOpen {
		text += "]"
		s.beamGroup = beamRestHack
	}
	s.lastBeams = nBeams

	s.appendUnicodeApprox(figures, octave, dots, nBeams, invisTie)

	if s.barPos.Cmp(ratFromInt(s.barLength)) == 0 {
		if k := len(s.unicodeApprox) - 1; k >= 0 {
			s.unicodeApprox[k] = strings.TrimRight(s.unicodeApprox[k], " ") + "│"
		}
		s.barPos.SetInt64(0)
		s.barNo++
		s.accidentals = map[string]*[7]string{}
	}

	if s.mode.graphical() && !invisTie {
		text += s.octaveDots(octave, nBeams)
	}

	var beforePrev string
	if invisTie {
		if s.mode.graphical() {
			beforePrev = `\once \override Tie #'transparent = ##t \once \override Tie #'staff-position = #0 `
		}
		afterPrev += " ~"
	}
	if inRestHack {
		text += " } "
	}

	res.before = beforePrev
	res.after = afterPrev
	res.text = text
	res.beams = nBeams
	res.octave = octave
	return res, nil
}

// octaveDots places the octave marker with a small offset tweak; the
// nudge differs when the note is beamed because the stem shifts the
// glyph baseline.
func (s *state) octaveDots(octave string, nBeams int) string {
	var dots string
	switch octave {
	case "'":
		dots = "^."
	case "''":
		dots = `-\tweak #'X-offset #0.3 ^\markup{\bold :}`
	case ",":
		if nBeams == 0 {
			dots = `-\tweak #'X-offset #0.45 _\markup{\bold .}`
		} else {
			dots = `-\tweak #'X-offset #0.3 _\markup{\bold .}`
		}
	case ",,":
		if nBeams == 0 {
			dots = `-\tweak #'X-offset #0.45 _\markup{\bold :}`
		} else {
			dots = `-\tweak #'X-offset #0.3 _\markup{\bold :}`
		}
	}
	if *s.angka {
		switch octave {
		case "'":
			dots = `-\tweak #'extra-offset #'(0.4 . 2.7) -\markup{\bold \fontsize #2 ·}`
		case "''":
			dots = `-\tweak #'extra-offset #'(0.4 . 3.5) -\markup{\bold :}`
		}
	}
	return dots
}

func (s *state) appendUnicodeApprox(figures, octave, dots string, nBeams int, invisTie bool) {
	var beamC string
	switch {
	case nBeams >= 2:
		beamC = "̳"
	case nBeams == 1:
		beamC = "̲"
	}
	var b strings.Builder
	if invisTie {
		b.WriteString("-")
	} else {
		if len(figures) > 0 {
			b.WriteString(figures[len(figures)-1:])
		}
		if strings.Contains(octave, ",") {
			b.WriteString("̣")
		} else if strings.Contains(octave, "'") {
			b.WriteString("̇")
		}
	}
	b.WriteString(beamC)
	for _, c := range dots {
		b.WriteRune(c)
		b.WriteString(beamC)
	}
	if s.beamGroup == beamNone {
		b.WriteString(" ")
	}
	s.unicodeApprox = append(s.unicodeApprox, b.String())
}
