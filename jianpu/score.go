package jianpu

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// ItemKind classifies one lexed element of a part.
type ItemKind int

const (
	ItemWord   ItemKind = iota // one music word
	ItemLyric                  // lyric line, prefix stripped
	ItemHeader                 // name=value line, verbatim
	ItemEscape                 // raw line inside an LP: ... :LP block
)

// Item is one element of a part in source order. Line keeps the source
// line a word came from so errors can point at it.
type Item struct {
	Kind  ItemKind
	Text  string
	Line  string
	Hanzi bool // lyric line written with the H: prefix
}

// Part is one staff voice: the lexed items of the text between part
// delimiters.
type Part struct {
	Items []Item
}

var (
	rxNextScore   = regexp.MustCompile(`\sNextScore\s`)
	rxNextPart    = regexp.MustCompile(`\sNextPart\s`)
	rxHeaderLine  = regexp.MustCompile(`^\s*[A-Za-z]+\s*=`)
	rxTempoUpdate = regexp.MustCompile(`^%%\s*tempo:\s*(\S+)\s*$`)
)

func splitScores(input string) []string {
	return splitKeyword(rxNextScore, input)
}

func splitParts(score string) []string {
	return splitKeyword(rxNextPart, score)
}

func splitKeyword(rx *regexp.Regexp, s string) []string {
	var out []string
	for _, piece := range rx.Split(" "+s+" ", -1) {
		if strings.TrimSpace(piece) != "" {
			out = append(out, piece)
		}
	}
	return out
}

// lexPart classifies each line of a part and splits music lines into
// words, keeping quoted ^"..." / _"..." annotations whole.
func lexPart(text string, scoreNo int) (Part, error) {
	var part Part
	escaping := false
	for _, rawLine := range strings.Split(text, "\n") {
		line := strings.TrimSpace(fixFullwidth(rawLine))
		line = rxTempoUpdate.ReplaceAllString(line, "$1")
		switch {
		case strings.HasPrefix(line, "LP:"):
			escaping = true
			if len(line) > 3 {
				part.Items = append(part.Items, Item{Kind: ItemEscape, Text: line[3:], Line: line})
			}
		case strings.HasPrefix(line, ":LP"):
			escaping = false
		case escaping:
			part.Items = append(part.Items, Item{Kind: ItemEscape, Text: line, Line: line})
		case line == "":
		case strings.HasPrefix(line, "L:") || strings.HasPrefix(line, "H:"):
			part.Items = append(part.Items, Item{
				Kind:  ItemLyric,
				Text:  strings.TrimSpace(line[2:]),
				Line:  line,
				Hanzi: strings.HasPrefix(line, "H:"),
			})
		case rxHeaderLine.MatchString(line):
			part.Items = append(part.Items, Item{Kind: ItemHeader, Text: line, Line: line})
		default:
			for _, word := range splitMusicWords(line) {
				if strings.HasPrefix(word, "%") {
					break // comment: rest of line is ignored
				}
				part.Items = append(part.Items, Item{Kind: ItemWord, Text: word, Line: line})
			}
		}
	}
	if escaping {
		return part, scoreError("Unterminated LP: block", "LP:", scoreNo, "")
	}
	return part, nil
}

// splitMusicWords splits on whitespace but keeps a ^"multi word" or
// _"multi word" annotation as a single word.
func splitMusicWords(line string) []string {
	var words []string
	i, n := 0, len(line)
	for i < n {
		for i < n && (line[i] == ' ' || line[i] == '\t') {
			i++
		}
		if i >= n {
			break
		}
		start := i
		if (line[i] == '^' || line[i] == '_') && i+1 < n && line[i+1] == '"' {
			if j := strings.IndexByte(line[i+2:], '"'); j >= 0 {
				i += 2 + j + 1
				words = append(words, line[start:i])
				continue
			}
		}
		for i < n && line[i] != ' ' && line[i] != '\t' {
			i++
		}
		words = append(words, line[start:i])
	}
	return words
}

// fixFullwidth replaces full-width punctuation with ASCII equivalents.
func fixFullwidth(s string) string {
	var b strings.Builder
	for _, c := range s {
		switch {
		case c >= 0xFF01 && c <= 0xFF5E:
			b.WriteRune(c - 0xFEE0)
		case c == '\u201a': // sometimes used as comma, incorrectly
			b.WriteRune(',')
		case c == '\uff61':
			b.WriteRune('.')
		default:
			b.WriteRune(c)
		}
	}
	return b.String()
}

var (
	rxSeparators    = regexp.MustCompile(`NextPart|NextScore`)
	rxVerseNumbered = regexp.MustCompile(`^\s*\d+\.`)
	rxHanziPrefix   = regexp.MustCompile(`^\s*H:\s*(\d+\.)?`)
	rxRepeatChar    = regexp.MustCompile(`(.)\*(\d+)`)
	rxRestRepeat    = regexp.MustCompile(`(\s+)0\*(\d+)(\s+)`)
)

// mergeLyrics is an input pre-pass: within each part it merges the H:
// lines of one verse into a single line, expands w*n character
// repetitions and 0*n rest repetitions, and normalizes underscore
// spacing. Part and score delimiters are preserved.
func mergeLyrics(content string) string {
	var b strings.Builder
	last := 0
	for _, loc := range rxSeparators.FindAllStringIndex(content, -1) {
		b.WriteString(mergeLyricsInPart(content[last:loc[0]]))
		b.WriteString(content[loc[0]:loc[1]])
		b.WriteString("\n")
		last = loc[1]
	}
	b.WriteString(mergeLyricsInPart(content[last:]))
	return strings.TrimSpace(b.String())
}

func mergeLyricsInPart(part string) string {
	lines := strings.Split(part, "\n")

	// Unnumbered H: lines belong to verse 1.
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if strings.HasPrefix(trimmed, "H:") && !rxVerseNumbered.MatchString(trimmed[2:]) {
			lines[i] = "H:1." + trimmed[2:]
		}
	}

	// Verse prefixes in numeric order.
	seen := map[string]bool{}
	var prefixes []string
	for _, line := range lines {
		m := rxHanziPrefix.FindStringSubmatch(line)
		if m == nil || m[1] == "" {
			continue
		}
		if !seen[m[1]] {
			seen[m[1]] = true
			prefixes = append(prefixes, m[1])
		}
	}
	sort.Slice(prefixes, func(i, j int) bool {
		a, _ := strconv.Atoi(strings.TrimSuffix(prefixes[i], "."))
		b, _ := strconv.Atoi(strings.TrimSuffix(prefixes[j], "."))
		return a < b
	})

	for _, prefix := range prefixes {
		rxLabel := regexp.MustCompile(`^\s*H:\s*` + regexp.QuoteMeta(prefix) + `(.*)$`)
		var pieces []string
		for _, line := range lines {
			if m := rxLabel.FindStringSubmatch(line); m != nil {
				pieces = append(pieces, strings.TrimSpace(m[1]))
			}
		}
		merged := "H:" + expandLyricShorthand(strings.Join(pieces, " "))
		first := true
		kept := lines[:0]
		for _, line := range lines {
			if rxLabel.MatchString(line) {
				if first {
					kept = append(kept, merged)
					first = false
				}
				continue
			}
			kept = append(kept, line)
		}
		lines = kept
	}

	out := strings.Join(lines, "\n")
	out = rxRestRepeat.ReplaceAllStringFunc(out, func(m string) string {
		sub := rxRestRepeat.FindStringSubmatch(m)
		n, _ := strconv.Atoi(sub[2])
		return sub[1] + strings.Repeat("0 ", n) + sub[3]
	})
	return out
}

// expandLyricShorthand expands w*n into n copies of w and spaces out
// melisma underscores so they split into their own words.
func expandLyricShorthand(line string) string {
	line = rxRepeatChar.ReplaceAllStringFunc(line, func(m string) string {
		sub := rxRepeatChar.FindStringSubmatch(m)
		n, _ := strconv.Atoi(sub[2])
		return strings.Repeat(sub[1], n)
	})
	runes := []rune(line)
	var b strings.Builder
	for i, r := range runes {
		if r != '_' {
			b.WriteRune(r)
			continue
		}
		if i > 0 && !unicode.IsSpace(runes[i-1]) {
			b.WriteRune(' ')
		}
		b.WriteRune('_')
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			b.WriteRune(' ')
		}
	}
	return b.String()
}

// processHeaderLine folds one name=value line into headers. A header
// may be repeated with the same value but never changed mid-score.
func processHeaderLine(line string, headers map[string]string, scoreNo int) error {
	name, value, _ := strings.Cut(line, "=")
	name = strings.ToLower(strings.TrimSpace(name))
	value = strings.TrimSpace(value)
	if old, ok := headers[name]; ok && old != value {
		missing := "NextScore"
		if name == "instrument" {
			missing = "NextPart or NextScore"
		}
		return &Error{
			Msg:   "Changing header '" + name + "' from '" + old + "' to '" + value + "' (is there a missing " + missing + "?)",
			Score: scoreNo,
		}
	}
	headers[name] = value
	return nil
}
