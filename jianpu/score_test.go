package jianpu

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSplitScoresAndParts(t *testing.T) {
	scores := splitScores("1 2 3 4 NextScore 5 6 7 1'")
	require(t, 2, len(scores))

	parts := splitParts("1 2 3 4 NextPart 5 6 7 1' NextPart 1 1 1 1")
	require(t, 3, len(parts))

	require(t, 1, len(splitScores("1 2 3 4")))
}

func TestLexPart(t *testing.T) {
	part, err := lexPart("title=Test\n1=C 4/4\n1 2 3 4 %trailing comment\nL: la la la la\nLP:\n\\something raw\n:LP\n", 1)
	if err != nil {
		t.Fatal(err)
	}
	var kinds []ItemKind
	var texts []string
	for _, it := range part.Items {
		kinds = append(kinds, it.Kind)
		texts = append(texts, it.Text)
	}
	wantKinds := []ItemKind{
		ItemHeader,
		ItemWord, ItemWord,
		ItemWord, ItemWord, ItemWord, ItemWord,
		ItemLyric,
		ItemEscape,
	}
	if diff := cmp.Diff(wantKinds, kinds); diff != "" {
		t.Error(diff)
	}
	wantTexts := []string{
		"title=Test", "1=C", "4/4", "1", "2", "3", "4",
		"la la la la", `\something raw`,
	}
	if diff := cmp.Diff(wantTexts, texts); diff != "" {
		t.Error(diff)
	}
}

func TestLexPartUnterminatedEscape(t *testing.T) {
	if _, err := lexPart("1 2 3 4\nLP:\n\\raw\n", 1); err == nil {
		t.Error("expected unterminated LP: error")
	}
}

func TestFixFullwidth(t *testing.T) {
	require(t, "1=C 4/4", fixFullwidth("１＝Ｃ ４／４"))
	require(t, "1,", fixFullwidth("1‚")) // U+201A misused as comma
}

func TestProcessHeaderLine(t *testing.T) {
	headers := map[string]string{}
	if err := processHeaderLine("title=My Tune", headers, 1); err != nil {
		t.Fatal(err)
	}
	require(t, "My Tune", headers["title"])

	// repeating the same value is fine
	if err := processHeaderLine("Title = My Tune", headers, 1); err != nil {
		t.Fatal(err)
	}

	// changing it mid-score is not
	if err := processHeaderLine("title=Other", headers, 1); err == nil {
		t.Error("expected header-change error")
	}
}
