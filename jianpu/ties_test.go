package jianpu

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func wordItems(line string) []Item {
	var items []Item
	for _, w := range strings.Fields(line) {
		items = append(items, Item{Kind: ItemWord, Text: w, Line: line})
	}
	return items
}

func itemTexts(items []Item) []string {
	texts := make([]string, len(items))
	for i, it := range items {
		texts[i] = it.Text
	}
	return texts
}

func TestTiesToSlurs(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		// a tied chain becomes a slur, parens before the dashes
		{"1 - ~ 2 -", "1 ( - 2 ) -"},
		{"1 ~ 2 ~ 3", "1 ( 2 3 )"},
		// a lone tie mark with no chain is untouched
		{"1 ~", "1 ~"},
		// ties inside explicit slur parens are the writer's own
		{"( 1 ~ 2 )", "( 1 ~ 2 )"},
		// a time signature inside the chain stays in place
		{"1 ~ 3/4 2", "1 ( 3/4 2 )"},
		// annotations travel with their note
		{`1 ^"x" ~ 2`, `1 ^"x" ( 2 )`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := itemTexts(tiesToSlurs(wordItems(tt.in)))
			if diff := cmp.Diff(strings.Fields(tt.want), got); diff != "" {
				t.Error(diff)
			}
		})
	}
}

func TestReformatSlurs(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1 ( - 2 ) -", "1 - ( 2 - )"},
		{"1 ( 2 )", "1 ( 2 )"},
		{`1 ( - ^"x" 2 )`, `1 - ^"x" ( 2 )`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := itemTexts(reformatSlurs(wordItems(tt.in)))
			if diff := cmp.Diff(strings.Fields(tt.want), got); diff != "" {
				t.Error(diff)
			}
		})
	}
}
