// Package pipe defines the push-based stage protocol itemsets flow through.
//
// A stage consumes one itemset at a time and may forward a copy to the
// downstream stages registered on its Outlet. Forwarding is depth-first: every
// downstream stage, including its own descendants, has processed the itemset
// before Consume returns. Nothing is buffered across itemsets.
package pipe

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/cognicore/itemizer/pkg/itemizer/itemset"
)

// Stage is implemented by every pipeline node.
type Stage interface {
	// Consume processes one itemset.
	Consume(is itemset.Itemset) error
	// Finish signals the end of the stream.
	Finish() error
}

// Outlet is the ordered list of downstream stages of a producer.
// Embed it to make a stage forward.
type Outlet struct {
	next     []Stage
	finished bool
}

// Pipe appends s to the downstream stages.
func (o *Outlet) Pipe(s Stage) {
	o.next = append(o.next, s)
}

// Forward hands is to every downstream stage in registration order and stops
// at the first error.
func (o *Outlet) Forward(is itemset.Itemset) error {
	for _, s := range o.next {
		if err := s.Consume(is); err != nil {
			return err
		}
	}
	return nil
}

// FinishAll propagates end of stream once; later calls do nothing.
func (o *Outlet) FinishAll() error {
	if o.finished {
		return nil
	}
	o.finished = true
	for _, s := range o.next {
		if err := s.Finish(); err != nil {
			return err
		}
	}
	return nil
}

// Func adapts a function to a terminal Stage.
type Func func(is itemset.Itemset) error

// Consume calls f.
func (f Func) Consume(is itemset.Itemset) error { return f(is) }

// Finish does nothing.
func (f Func) Finish() error { return nil }

// Collector records every itemset it receives.
type Collector struct {
	Itemsets []itemset.Itemset
	Finished int
}

// Consume implements Stage.
func (c *Collector) Consume(is itemset.Itemset) error {
	items := make([]string, len(is.Items))
	copy(items, is.Items)
	is.Items = items
	c.Itemsets = append(c.Itemsets, is)
	return nil
}

// Finish implements Stage.
func (c *Collector) Finish() error {
	c.Finished++
	return nil
}

// Namer hands out default stage names of the form kind_N, counting per kind.
// Each pipeline owns its Namer.
type Namer struct {
	counts map[string]int
}

// NewNamer creates a Namer with all counters at zero.
func NewNamer() *Namer {
	return &Namer{counts: make(map[string]int)}
}

// Next returns the next name for kind.
func (n *Namer) Next(kind string) string {
	if n.counts == nil {
		n.counts = make(map[string]int)
	}
	id := n.counts[kind]
	n.counts[kind]++
	return kind + "_" + strconv.Itoa(id)
}

// Name returns explicit if set, otherwise the next default name for kind.
func (n *Namer) Name(kind, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return n.Next(kind)
}

// StageError attributes a failure to a named stage.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Named attributes the errors of s to name. Errors already attributed to a
// downstream stage keep their attribution.
func Named(name string, s Stage) Stage {
	return &named{Stage: s, name: name}
}

type named struct {
	Stage
	name string
}

func (n *named) Consume(is itemset.Itemset) error {
	return n.wrap(n.Stage.Consume(is))
}

func (n *named) Finish() error {
	return n.wrap(n.Stage.Finish())
}

func (n *named) wrap(err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: n.name, Err: err}
}
