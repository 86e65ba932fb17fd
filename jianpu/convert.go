package jianpu

import (
	"regexp"
	"strings"
)

// Converter compiles jianpu source text into a complete LilyPond
// document. Warnings collects the non-fatal complaints of the last
// Convert call.
type Converter struct {
	Config   Config
	Warnings []Warning
}

func New(cfg Config) *Converter {
	return &Converter{Config: cfg.withDefaults()}
}

var (
	rxUnicodeWord = regexp.MustCompile(`\sUnicode\s`)
	rxPartMidi    = regexp.MustCompile(`\sPartMidi\s`)
	rxPoetCredit  = regexp.MustCompile(`(?m)^\s*poet=[^\n]+填词`)
	rxLyricLine   = regexp.MustCompile(`(^|\n)[LH]:`)
	rxAnnotQuote  = regexp.MustCompile(`([\^_])"(\\[^"]+)"`)
)

// Convert renders the whole document: for each score, a graphical pass
// (jianpu staves, optionally doubled by western staves and lyrics)
// followed by a MIDI pass.
func (c *Converter) Convert(input string) (string, error) {
	cfg := c.Config.withDefaults()
	c.Config = cfg
	c.Warnings = nil

	input = strings.TrimPrefix(input, "\uFEFF")
	if strings.HasPrefix(input, `\version`) {
		return "", &Error{Msg: "the input is LilyPond source, not jianpu; please pass jianpu text"}
	}
	input = mergeLyrics(input)
	if rxUnicodeWord.MatchString(" " + input + " ") {
		plain := strings.TrimSpace(rxUnicodeWord.ReplaceAllString(" "+input+" ", " "))
		return c.unicodeApprox(plain)
	}

	withStaff := cfg.StaffOnly || cfg.WithStaff
	poet1st := !rxPoetCredit.MatchString(input)
	defines := map[string]string{}
	names := &nameGen{}

	var ret []string
	scoreNo := 0
	for _, score := range splitScores(input) {
		scoreNo++
		hasLyrics := rxLyricLine.MatchString(score)
		rawParts := splitParts(score)
		parts := make([]Part, len(rawParts))
		for i, p := range rawParts {
			part, err := lexPart(p, scoreNo)
			if err != nil {
				return "", err
			}
			parts[i] = part
		}
		for _, mode := range []Mode{ModeJianpu, ModeMIDI} {
			angka := false
			if scoreNo == 1 && mode != ModeMIDI {
				ret = append(ret, allScoresStart(cfg, poet1st, hasLyrics))
			}
			// With PartMidi, the first MIDI score carries all parts and
			// then each part gets a MIDI score of its own.
			separateRuns := []bool{false}
			if mode == ModeMIDI && len(parts) > 1 && rxPartMidi.MatchString(" "+score+" ") {
				separateRuns = []bool{false, true}
			}
			for _, separateScores := range separateRuns {
				pieces, err := c.renderScore(scoreParams{
					cfg: cfg, mode: mode, scoreNo: scoreNo,
					hasLyrics: hasLyrics, withStaff: withStaff,
					separateScores: separateScores,
					angka:          &angka, defines: defines, names: names,
				}, parts)
				if err != nil {
					return "", err
				}
				ret = append(ret, pieces...)
			}
		}
	}

	var b strings.Builder
	for _, r := range ret {
		b.WriteString(r)
		b.WriteString("\n")
	}
	out := rxAnnotQuote.ReplaceAllString(b.String(), "$1$2")
	out = wrapStaffGroup(out)
	if cfg.LilyMinor >= 24 {
		// avoids deprecation warnings on LilyPond 2.24
		out = modernizeOverrides(out)
	}
	if cfg.StaffOnly {
		out = filterOutJianpu(out)
	} else {
		out = reformatKeyTimeSignatures(out)
	}
	return out, nil
}

type scoreParams struct {
	cfg            Config
	mode           Mode
	scoreNo        int
	hasLyrics      bool
	withStaff      bool
	separateScores bool
	angka          *bool
	defines        map[string]string
	names          *nameGen
}

// renderScore runs one pass over all parts of one score and returns
// the assembled pieces of LilyPond text.
func (c *Converter) renderScore(p scoreParams, parts []Part) ([]string, error) {
	headers := map[string]string{}
	var pieces []string
	for partNo, part := range parts {
		st := newState(p.mode, p.cfg, p.scoreNo, p.hasLyrics, p.angka, p.defines, p.names)
		st.withStaff = p.withStaff
		r := newPartRenderer(c, st, headers)
		body, err := r.render(part.Items)
		if err != nil {
			return nil, err
		}
		if st.withStaff && st.separateTimesig {
			return nil, &Error{
				Msg:   "Use of both WithStaff and SeparateTimesig in the same piece is not yet implemented",
				Score: p.scoreNo,
			}
		}
		var inst string
		if len(parts) > 1 {
			if v, ok := headers["instrument"]; ok {
				inst = v
				delete(headers, "instrument")
			}
		}
		if partNo == 0 || p.separateScores {
			pieces = append(pieces, scoreStart(p.mode, st.noBarNums, p.cfg))
		}
		if p.mode == ModeMIDI {
			pieces = append(pieces, midiStaffStart(p.names)+" "+body+" "+midiStaffEnd())
		} else {
			staffStart, voiceName := jianpuStaffStart(inst, st.withStaff, *p.angka, r.maxBeams, p.names)
			pieces = append(pieces, staffStart+" "+body+" "+jianpuStaffEnd(*p.angka))
			if st.withStaff {
				// Double the tune on a 5-line staff; lyrics attach to
				// its voice instead of the jianpu one.
				wst := newState(ModeStaff, p.cfg, p.scoreNo, p.hasLyrics, p.angka, p.defines, p.names)
				wst.withStaff = p.withStaff
				wr := newPartRenderer(c, wst, map[string]string{})
				wbody, err := wr.render(part.Items)
				if err != nil {
					return nil, err
				}
				var wStart string
				wStart, voiceName = westernStaffStart(inst, p.names)
				pieces = append(pieces, wStart+" "+wbody+" "+westernStaffEnd())
			}
			if len(r.lyrics) > 0 {
				var lb strings.Builder
				for _, l := range r.lyrics {
					lb.WriteString(lyricsStart(voiceName, p.names))
					lb.WriteString(l)
					lb.WriteString(" ")
					lb.WriteString(lyricsEnd())
					lb.WriteString(" ")
				}
				pieces = append(pieces, lb.String())
			}
		}
		if partNo == len(parts)-1 || p.separateScores {
			pieces = append(pieces, scoreEnd(p.mode, st.noBarNums, p.cfg, headers))
		}
	}
	return pieces, nil
}
