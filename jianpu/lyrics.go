package jianpu

import (
	"regexp"
	"strings"
)

var rxSyllableDash = regexp.MustCompile(`([^- ])- `)

// processLyricsLine turns one L:/H: line into LilyPond lyrics: a
// leading verse number becomes a stanza setting, and for hanzi lines
// each character gets its own word with alignment tweaks so hanging
// punctuation works.
func processLyricsLine(line string, hanzi bool) string {
	var toAdd string
	if len(line) >= 2 && line[0] >= '1' && line[0] <= '9' && line[1] == '.' {
		toAdd = `\set stanza = #"` + line[:1] + `." `
		line = strings.TrimSpace(line[2:])
	}

	if hanzi {
		var b strings.Builder
		b.WriteString(`\override LyricText #'self-alignment-X = #LEFT `)
		b.WriteString(toAdd)
		toAdd = ""
		needSpace := false
		for _, c := range line {
			isHanzi := c >= 0x3400 && c < 0xA700
			isOpenQuote := c == '\u2018' || c == '\u201c' || c == '\u300a'
			if needSpace && (isHanzi || isOpenQuote) {
				b.WriteString(" ")
				needSpace = false
				if isOpenQuote { // hang left
					b.WriteString(`\once \override LyricText #'self-alignment-X = #CENTER `)
				}
			}
			if isHanzi {
				needSpace = true
			}
			if c == '-' {
				// separate hanzi with - to put more than one on the same note
				needSpace = false
			} else {
				b.WriteRune(c)
			}
		}
		line = b.String()
	}

	line = rxSyllableDash.ReplaceAllString(line, "$1 -- ")
	return toAdd + strings.ReplaceAll(line, " -- ", " --\n")
}
