package parser

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cognicore/itemizer/internal/logger"
	"github.com/cognicore/itemizer/pkg/itemizer/itemset"
)

// ReadTexts reads one text element per line, splitting off "[n]" labels.
func ReadTexts(r io.Reader) ([]itemset.Text, error) {
	var texts []itemset.Text
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	for sc.Scan() {
		texts = append(texts, itemset.ParseText(sc.Text()))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return texts, nil
}

// Record is one line of a JSONL corpus.
type Record struct {
	Text  string `json:"text"`
	Label *int   `json:"label,omitempty"`
}

// Itemize converts the record to a text element.
func (r Record) Itemize() itemset.Text {
	t := itemset.Text{Body: r.Text}
	if r.Label != nil {
		t.Label = *r.Label
		t.Labeled = true
	}
	return t
}

// LoadJSONL loads text elements from a JSONL file. Malformed lines are
// logged and skipped.
func LoadJSONL(path string) ([]itemset.Text, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}
	defer f.Close()

	log := logger.WithComponent("parser")
	var texts []itemset.Text
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	for i := 1; sc.Scan(); i++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			log.Warn("skipping malformed JSON", "path", path, "line", i, "error", err)
			continue
		}
		texts = append(texts, rec.Itemize())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}
	if len(texts) == 0 {
		return nil, fmt.Errorf("no valid records found in %s", path)
	}
	return texts, nil
}

// LoadTexts reads text elements from path, as JSONL when it ends in ".jsonl".
func LoadTexts(path string) ([]itemset.Text, error) {
	if strings.HasSuffix(strings.ToLower(path), ".jsonl") {
		return LoadJSONL(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadTexts(f)
}
