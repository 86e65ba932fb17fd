package jianpu

import (
	"fmt"
	"os"
	"strings"
)

// Error is a fatal conversion error. The whole document is abandoned when
// one occurs; there is no partial-output contract.
type Error struct {
	Msg   string // what went wrong
	Word  string // the offending word, if known
	Score int    // 1-based score number
	Line  string // source line containing the word, if known
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Msg)
	if e.Word != "" {
		b.WriteString(" ")
		b.WriteString(truncate(e.Word, maxWordLength, truncatedWordLength))
	}
	if e.Score > 0 {
		fmt.Fprintf(&b, " in score %d", e.Score)
	}
	if e.Line != "" {
		line := truncate(e.Line, maxLineLength, truncatedLineLength)
		word := truncate(e.Word, maxWordLength, truncatedWordLength)
		if highlighted, ok := highlightWord(word, line); ok {
			b.WriteString("\n")
			b.WriteString(highlighted)
		} else {
			b.WriteString("\nin this line: ")
			b.WriteString(line)
		}
	}
	return b.String()
}

// Warning is a non-fatal condition; conversion continues with the
// first-seen value.
type Warning struct {
	Message string
}

const (
	maxWordLength       = 60
	maxLineLength       = 600
	truncatedWordLength = 50
	truncatedLineLength = 500
)

func truncate(s string, max, keep int) string {
	if len(s) <= max {
		return s
	}
	return s[:keep] + "..."
}

func scoreError(msg, word string, scoreNo int, line string) error {
	return &Error{Msg: msg, Word: word, Score: scoreNo, Line: line}
}

// highlightWord marks word inside line for terminal output: xterm
// underline escapes when the terminal supports them, otherwise a
// caret-underline on ASCII-only lines.
func highlightWord(word, line string) (string, bool) {
	if word == "" {
		return "", false
	}
	start, ok := findWord(word, line)
	if !ok {
		return "", false
	}
	if strings.Contains(os.Getenv("TERM"), "xterm") {
		return line[:start] + "\x1b[4m" + word + "\x1b[m" + line[start+len(word):], true
	}
	if !isASCII(line) {
		return "", false
	}
	underline := strings.Repeat(" ", start) + strings.Repeat("^", len(word))
	return line + "\n" + underline, true
}

// findWord locates word in line at a whitespace boundary on both sides.
func findWord(word, line string) (int, bool) {
	for from := 0; from <= len(line)-len(word); {
		i := strings.Index(line[from:], word)
		if i < 0 {
			return 0, false
		}
		i += from
		leftOK := i == 0 || line[i-1] == ' ' || line[i-1] == '\t'
		end := i + len(word)
		rightOK := end == len(line) || line[end] == ' ' || line[end] == '\t'
		if leftOK && rightOK {
			return i, true
		}
		from = i + 1
	}
	return 0, false
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < ' ' || s[i] > '~' {
			return false
		}
	}
	return true
}
