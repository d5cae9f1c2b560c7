// Package parser is the source of a pipeline: it turns lines of text into
// itemsets and pushes them to its downstream stages.
package parser

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/cognicore/itemizer/pkg/itemizer/itemset"
	"github.com/cognicore/itemizer/pkg/itemizer/pipe"
)

const maxLineSize = 64 * 1024 * 1024

// Parser reads the itemset line format.
type Parser struct {
	pipe.Outlet

	sep   string
	lines int64
}

// New creates a parser splitting items on sep (a space when empty).
func New(sep string) *Parser {
	if sep == "" {
		sep = itemset.DefaultSeparator
	}
	return &Parser{sep: sep}
}

// Separator returns the item separator.
func (p *Parser) Separator() string { return p.sep }

// Lines returns the number of lines parsed so far.
func (p *Parser) Lines() int64 { return p.lines }

// ParseLine parses one line without its terminator and forwards the itemset.
// Empty lines produce empty itemsets.
func (p *Parser) ParseLine(line string) error {
	p.lines++
	return p.Forward(itemset.Parse(line, p.sep))
}

// Parse forwards every line of r and then ends the stream downstream.
func (p *Parser) Parse(r io.Reader) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	for sc.Scan() {
		if err := p.ParseLine(sc.Text()); err != nil {
			return fmt.Errorf("line %d: %w", p.lines, err)
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return p.FinishAll()
}

// Feed forwards already built itemsets, such as tokenizer output, and then
// ends the stream downstream. Each itemset counts as a line.
func (p *Parser) Feed(sets []itemset.Itemset) error {
	for _, is := range sets {
		p.lines++
		if err := p.Forward(is); err != nil {
			return fmt.Errorf("itemset %d: %w", p.lines, err)
		}
	}
	return p.FinishAll()
}

// ParseFile opens path and parses it.
func (p *Parser) ParseFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := p.Parse(f); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
