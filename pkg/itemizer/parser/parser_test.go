package parser

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/cognicore/itemizer/pkg/itemizer/itemset"
	"github.com/cognicore/itemizer/pkg/itemizer/pipe"
)

func TestParseForwardsEveryLine(t *testing.T) {
	p := New(",")
	sink := &pipe.Collector{}
	p.Pipe(sink)

	if err := p.Parse(strings.NewReader("a,b [1]\n\nc,,d\n")); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if p.Lines() != 3 || len(sink.Itemsets) != 3 {
		t.Fatalf("Expected 3 lines and itemsets, got %d/%d", p.Lines(), len(sink.Itemsets))
	}
	if !reflect.DeepEqual(sink.Itemsets[0].Items, []string{"a", "b"}) || sink.Itemsets[0].Label != 1 {
		t.Errorf("Unexpected first itemset %+v", sink.Itemsets[0])
	}
	if sink.Itemsets[1].Len() != 0 {
		t.Errorf("Empty line should give an empty itemset, got %v", sink.Itemsets[1].Items)
	}
	if !reflect.DeepEqual(sink.Itemsets[2].Items, []string{"c", "d"}) {
		t.Errorf("Expected [c d], got %v", sink.Itemsets[2].Items)
	}
	if sink.Finished != 1 {
		t.Errorf("Expected one Finish, got %d", sink.Finished)
	}
}

func TestParseHandlesCRLFAndMissingNewline(t *testing.T) {
	p := New("")
	sink := &pipe.Collector{}
	p.Pipe(sink)

	p.Parse(strings.NewReader("x y\r\nz"))

	if len(sink.Itemsets) != 2 {
		t.Fatalf("Expected 2 itemsets, got %d", len(sink.Itemsets))
	}
	if !reflect.DeepEqual(sink.Itemsets[0].Items, []string{"x", "y"}) || sink.Itemsets[1].Items[0] != "z" {
		t.Errorf("Unexpected itemsets %+v", sink.Itemsets)
	}
}

func TestParseStopsOnStageError(t *testing.T) {
	boom := errors.New("boom")
	p := New(" ")
	p.Pipe(pipe.Func(func(is itemset.Itemset) error {
		if is.Len() > 1 {
			return boom
		}
		return nil
	}))
	sink := &pipe.Collector{}
	p.Pipe(sink)

	err := p.Parse(strings.NewReader("a\nb c\nd\n"))
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("Error should name the line, got %v", err)
	}
	if len(sink.Itemsets) != 1 || sink.Finished != 0 {
		t.Errorf("Parsing should stop without finishing, got %d itemsets, %d finishes", len(sink.Itemsets), sink.Finished)
	}
}

func TestParseLongLine(t *testing.T) {
	p := New(" ")
	sink := &pipe.Collector{}
	p.Pipe(sink)

	line := strings.Repeat("w ", 200000)
	if err := p.Parse(strings.NewReader(line)); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if sink.Itemsets[0].Len() != 200000 {
		t.Errorf("Expected 200000 items, got %d", sink.Itemsets[0].Len())
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.txt")
	os.WriteFile(path, []byte("a b\n"), 0o644)

	p := New(" ")
	sink := &pipe.Collector{}
	p.Pipe(sink)
	if err := p.ParseFile(path); err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(sink.Itemsets) != 1 {
		t.Errorf("Expected 1 itemset, got %d", len(sink.Itemsets))
	}

	if err := New(" ").ParseFile(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("Expected an error for a missing file")
	}
}

func TestReadTexts(t *testing.T) {
	texts, err := ReadTexts(strings.NewReader("Hello there. [3]\nno label\n"))
	if err != nil {
		t.Fatalf("ReadTexts: %v", err)
	}
	if len(texts) != 2 {
		t.Fatalf("Expected 2 texts, got %d", len(texts))
	}
	if !texts[0].Labeled || texts[0].Label != 3 || texts[0].Body != "Hello there. " {
		t.Errorf("Unexpected first text %+v", texts[0])
	}
	if texts[1].Labeled {
		t.Errorf("Second text should be unlabeled, got %+v", texts[1])
	}
}

func TestLoadJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.jsonl")
	content := `{"text": "first doc", "label": 2}
not json

{"text": "second doc"}
`
	os.WriteFile(path, []byte(content), 0o644)

	texts, err := LoadTexts(path)
	if err != nil {
		t.Fatalf("LoadTexts: %v", err)
	}
	want := []itemset.Text{
		{Body: "first doc", Label: 2, Labeled: true},
		{Body: "second doc"},
	}
	if !reflect.DeepEqual(texts, want) {
		t.Errorf("Expected %+v, got %+v", want, texts)
	}
}

func TestLoadJSONLEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.jsonl")
	os.WriteFile(path, []byte("\n\n"), 0o644)

	if _, err := LoadJSONL(path); err == nil {
		t.Error("Expected an error for a file without records")
	}
}

func TestFeed(t *testing.T) {
	p := New(" ")
	sink := &pipe.Collector{}
	p.Pipe(sink)

	sets := []itemset.Itemset{itemset.Parse("a b", " "), itemset.Parse("c [1]", " ")}
	if err := p.Feed(sets); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if p.Lines() != 2 || len(sink.Itemsets) != 2 || sink.Finished != 1 {
		t.Errorf("Unexpected feed result: lines=%d itemsets=%d finished=%d", p.Lines(), len(sink.Itemsets), sink.Finished)
	}
}
