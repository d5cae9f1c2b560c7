package pipe

import (
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/cognicore/itemizer/pkg/itemizer/alphabet"
	"github.com/cognicore/itemizer/pkg/itemizer/internalerr"
	"github.com/cognicore/itemizer/pkg/itemizer/itemset"
)

func ref(items ...string) *alphabet.Alphabet {
	b := alphabet.NewBuilder()
	for _, it := range items {
		b.Increment(it)
	}
	return b.Translate(0)
}

func TestFilterScenario(t *testing.T) {
	f, err := NewFilter(ref("x", "z"), false)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	sink := &Collector{}
	f.Pipe(sink)

	if err := f.Consume(itemset.Parse("x y z", " ")); err != nil {
		t.Fatalf("Consume: %v", err)
	}

	if len(sink.Itemsets) != 1 {
		t.Fatalf("Expected 1 forwarded itemset, got %d", len(sink.Itemsets))
	}
	if !reflect.DeepEqual(sink.Itemsets[0].Items, []string{"x", "z"}) {
		t.Errorf("Expected [x z], got %v", sink.Itemsets[0].Items)
	}
}

func TestFilterKeepsOrderLabelAndSeparator(t *testing.T) {
	f, _ := NewFilter(ref("c", "a", "e"), false)
	sink := &Collector{}
	f.Pipe(sink)

	f.Consume(itemset.Parse("e,d,c,b,a,e [9]", ","))

	got := sink.Itemsets[0]
	if !reflect.DeepEqual(got.Items, []string{"e", "c", "a", "e"}) {
		t.Errorf("Expected [e c a e], got %v", got.Items)
	}
	if got.Label != 9 || !got.Labeled || got.Separator != "," {
		t.Errorf("Label or separator lost: %+v", got)
	}
}

func TestFilterTranslate(t *testing.T) {
	b := alphabet.NewBuilder()
	for _, it := range strings.Fields("a b b b c c") {
		b.Increment(it)
	}
	f, _ := NewFilter(b.Translate(0), true)
	sink := &Collector{}
	f.Pipe(sink)

	f.Consume(itemset.Parse("a q b c b", " "))

	if !reflect.DeepEqual(sink.Itemsets[0].Items, []string{"2", "0", "1", "0"}) {
		t.Errorf("Expected codes [2 0 1 0], got %v", sink.Itemsets[0].Items)
	}
	if f.Seen().Count("0") != 2 || f.Seen().Contains("b") {
		t.Errorf("Seen alphabet should be keyed by code, got %v", f.Seen().Items())
	}
}

func TestFilterSuppressesEmpty(t *testing.T) {
	f, _ := NewFilter(ref("x"), false)
	sink := &Collector{}
	f.Pipe(sink)

	f.Consume(itemset.Parse("a b c", " "))
	f.Consume(itemset.Parse("", " "))

	if len(sink.Itemsets) != 0 {
		t.Errorf("Empty itemsets must not be forwarded, got %v", sink.Itemsets)
	}
	st := f.Stats()
	if st.ItemsetsIn != 2 || st.ItemsetsOut != 0 || st.Dropped() != 3 {
		t.Errorf("Unexpected stats %+v", st)
	}
}

func TestFilterRequiresAlphabet(t *testing.T) {
	if _, err := NewFilter(nil, false); !errors.Is(err, internalerr.ErrNoAlphabet) {
		t.Errorf("Expected ErrNoAlphabet, got %v", err)
	}

	var f Filter
	if err := f.Consume(itemset.Parse("a", " ")); !errors.Is(err, internalerr.ErrNoAlphabet) {
		t.Errorf("Zero value filter should report ErrNoAlphabet, got %v", err)
	}
}

func TestFanOutIsDepthFirst(t *testing.T) {
	var trace []string
	record := func(name string) Stage {
		return Func(func(is itemset.Itemset) error {
			trace = append(trace, name+":"+is.Join())
			return nil
		})
	}

	first, _ := NewFilter(ref("a", "b"), false)
	first.Pipe(record("p1.child"))
	first.Pipe(record("p1.child2"))

	var root Outlet
	root.Pipe(first)
	root.Pipe(record("p2"))

	root.Forward(itemset.Parse("a b c", " "))
	root.Forward(itemset.Parse("b", " "))

	want := []string{
		"p1.child:a b", "p1.child2:a b", "p2:a b c",
		"p1.child:b", "p1.child2:b", "p2:b",
	}
	if !reflect.DeepEqual(trace, want) {
		t.Errorf("Expected %v, got %v", want, trace)
	}
}

func TestForwardStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	var o Outlet
	o.Pipe(Func(func(itemset.Itemset) error { return boom }))
	after := &Collector{}
	o.Pipe(after)

	if err := o.Forward(itemset.Parse("a", " ")); !errors.Is(err, boom) {
		t.Errorf("Expected boom, got %v", err)
	}
	if len(after.Itemsets) != 0 {
		t.Error("Stages after a failing one must not run")
	}
}

func TestFinishPropagatesOnce(t *testing.T) {
	f, _ := NewFilter(ref("a"), false)
	sink := &Collector{}
	f.Pipe(sink)

	f.Finish()
	f.Finish()

	if sink.Finished != 1 {
		t.Errorf("Expected exactly one Finish downstream, got %d", sink.Finished)
	}
}

func TestExtractorCounts(t *testing.T) {
	e := NewExtractor()
	e.Consume(itemset.Parse("a b a", " "))
	e.Consume(itemset.Parse("b a [1]", " "))
	e.Finish()

	if e.Counts().Count("a") != 3 || e.Counts().Count("b") != 2 {
		t.Errorf("Unexpected counts a=%d b=%d", e.Counts().Count("a"), e.Counts().Count("b"))
	}
	if e.Itemsets() != 2 {
		t.Errorf("Expected 2 itemsets, got %d", e.Itemsets())
	}
	if !e.Finished() {
		t.Error("Extractor should report finished")
	}
}

func TestExtractorWriteMeta(t *testing.T) {
	dir := t.TempDir()
	e := NewExtractor()
	e.Consume(itemset.Parse("c b b a a a", " "))

	ranked := filepath.Join(dir, "ranked.ab")
	if err := e.WriteMeta(ranked, " ", true); err != nil {
		t.Fatalf("WriteMeta: %v", err)
	}
	a, err := alphabet.Load(ranked, " ")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(a.Order(), []string{"a", "b", "c"}) {
		t.Errorf("Expected [a b c], got %v", a.Order())
	}

	raw := filepath.Join(dir, "raw.ab")
	if err := e.WriteMeta(raw, " ", false); err != nil {
		t.Fatalf("WriteMeta: %v", err)
	}
	if _, err := alphabet.Load(raw, " "); !errors.Is(err, internalerr.ErrNotTranslated) {
		t.Errorf("Untranslated meta should not load as translated, got %v", err)
	}
}

func TestNamer(t *testing.T) {
	n := NewNamer()
	got := []string{n.Next("filter"), n.Next("extract"), n.Next("filter"), n.Name("raw", "custom"), n.Name("raw", "")}
	want := []string{"filter_0", "extract_0", "filter_1", "custom", "raw_0"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	other := NewNamer()
	if other.Next("filter") != "filter_0" {
		t.Error("Namers must not share counters")
	}
}

func TestStageError(t *testing.T) {
	err := &StageError{Stage: "filter_0", Err: internalerr.ErrNoAlphabet}
	if !errors.Is(err, internalerr.ErrNoAlphabet) {
		t.Error("StageError should unwrap")
	}
	if err.Error() != "stage filter_0: alphabet not set" {
		t.Errorf("Unexpected message %q", err.Error())
	}
}

func TestNamedAttributesInnermostStage(t *testing.T) {
	boom := errors.New("boom")
	inner := Named("raw_0", Func(func(itemset.Itemset) error { return boom }))

	f, _ := NewFilter(ref("a"), false)
	f.Pipe(inner)
	outer := Named("filter_0", f)

	err := outer.Consume(itemset.Parse("a", " "))
	var se *StageError
	if !errors.As(err, &se) || se.Stage != "raw_0" {
		t.Fatalf("Expected error attributed to raw_0, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Error("Named errors should unwrap to the cause")
	}
	if err := outer.Finish(); err != nil {
		t.Errorf("Finish: %v", err)
	}
}
