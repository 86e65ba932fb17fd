package jianpu

import (
	"regexp"
	"strings"
)

// Ties between notes are written with ~ in the input. For the jianpu
// rendering they become slurs around the whole tied chain, with the
// parentheses placed before any continuation dashes; for staff and
// MIDI renderings existing slur parentheses move after the dashes so
// slurs do not break the dash continuations.

var (
	rxTieNote      = regexp.MustCompile(`^[qshb]?(?:[1-7][',]*)+\.?$`)
	rxChainTimesig = regexp.MustCompile(`^[0-9]+/[0-9]+$`)
)

func isAnnotationWord(s string) bool {
	return len(s) > 3 && (s[0] == '^' || s[0] == '_') && s[1] == '"' && strings.HasSuffix(s, `"`)
}

// tieGroup is one note of a tied chain: the note word, annotations
// attached to it, and its continuation dashes with their annotations.
type tieGroup struct {
	head []Item // note and its annotations
	tail []Item // dashes and their annotations
	// timesig carried between the previous group's tie and this note
	timesig []Item
}

// parseTieGroup reads note annotations* (dash annotations*)* starting
// at i. Returns the group and the index just past it.
func parseTieGroup(items []Item, i int) (tieGroup, int) {
	var g tieGroup
	g.head = append(g.head, items[i])
	i++
	for i < len(items) && isAnnotationWord(items[i].Text) {
		g.head = append(g.head, items[i])
		i++
	}
	for i < len(items) && items[i].Text == "-" {
		g.tail = append(g.tail, items[i])
		i++
		for i < len(items) && isAnnotationWord(items[i].Text) {
			g.tail = append(g.tail, items[i])
			i++
		}
	}
	return g, i
}

// protectedTies marks the ~ tokens lying inside explicit slur
// parentheses; those are real ties the writer asked for and are kept.
func protectedTies(items []Item) []bool {
	prot := make([]bool, len(items))
	depth := 0
	for i, it := range items {
		switch it.Text {
		case "(":
			depth++
		case ")":
			if depth > 0 {
				depth--
			}
		case "~":
			prot[i] = depth > 0
		}
	}
	return prot
}

// tiesToSlurs rewrites each tied chain note ~ note ... into a slur:
// an opening parenthesis after the first note (before its dashes) and
// a closing one after the last note (before its dashes), dropping the
// tie marks. Time signatures inside a chain stay where they were.
func tiesToSlurs(items []Item) []Item {
	return mapWordRuns(items, tiesToSlursRun)
}

func tiesToSlursRun(items []Item) []Item {
	prot := protectedTies(items)
	var out []Item
	i := 0
	for i < len(items) {
		if !rxTieNote.MatchString(items[i].Text) {
			out = append(out, items[i])
			i++
			continue
		}
		first, next := parseTieGroup(items, i)
		groups := []tieGroup{first}
		j := next
		for j < len(items) && items[j].Text == "~" && !prot[j] {
			k := j + 1
			var timesig []Item
			if k < len(items) && rxChainTimesig.MatchString(items[k].Text) {
				timesig = items[k : k+1]
				k++
			}
			if k >= len(items) || !rxTieNote.MatchString(items[k].Text) {
				break
			}
			g, after := parseTieGroup(items, k)
			g.timesig = timesig
			groups = append(groups, g)
			j = after
		}
		if len(groups) == 1 {
			out = append(out, items[i:next]...)
			i = next
			continue
		}
		line := groups[0].head[0].Line
		open := Item{Kind: ItemWord, Text: "(", Line: line}
		clos := Item{Kind: ItemWord, Text: ")", Line: line}
		out = append(out, groups[0].head...)
		out = append(out, open)
		out = append(out, groups[0].tail...)
		for _, g := range groups[1 : len(groups)-1] {
			out = append(out, g.timesig...)
			out = append(out, g.head...)
			out = append(out, g.tail...)
		}
		last := groups[len(groups)-1]
		out = append(out, last.timesig...)
		out = append(out, last.head...)
		out = append(out, clos)
		out = append(out, last.tail...)
		i = j
	}
	return out
}

// reformatSlurs moves slur parentheses after any dash run that follows
// them, so a slur never opens or closes in the middle of a held note.
func reformatSlurs(items []Item) []Item {
	return mapWordRuns(items, reformatSlursRun)
}

func reformatSlursRun(items []Item) []Item {
	var out []Item
	i := 0
	for i < len(items) {
		it := items[i]
		if it.Text != "(" && it.Text != ")" {
			out = append(out, it)
			i++
			continue
		}
		j := i + 1
		var run []Item
		for j < len(items) && items[j].Text == "-" {
			run = append(run, items[j])
			j++
			for j < len(items) && isAnnotationWord(items[j].Text) {
				run = append(run, items[j])
				j++
			}
		}
		if len(run) == 0 {
			out = append(out, it)
			i++
			continue
		}
		out = append(out, run...)
		out = append(out, it)
		i = j
	}
	return out
}

// mapWordRuns applies f to each maximal run of music words, leaving
// lyric, header and escape items in place. Chains never extend across
// such items.
func mapWordRuns(items []Item, f func([]Item) []Item) []Item {
	var out []Item
	start := -1
	flush := func(end int) {
		if start >= 0 {
			out = append(out, f(items[start:end])...)
			start = -1
		}
	}
	for i, it := range items {
		if it.Kind == ItemWord {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
		out = append(out, it)
	}
	flush(len(items))
	return out
}
