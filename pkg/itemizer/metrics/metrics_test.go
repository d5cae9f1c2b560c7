package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cognicore/itemizer/pkg/itemizer/itemset"
	"github.com/cognicore/itemizer/pkg/itemizer/pipe"
)

func TestInstrument(t *testing.T) {
	m := New()
	sink := &pipe.Collector{}
	s := m.Instrument("text_0", sink)

	s.Consume(itemset.Parse("a b c", " "))
	s.Consume(itemset.Parse("d", " "))
	s.Finish()

	if len(sink.Itemsets) != 2 || sink.Finished != 1 {
		t.Errorf("Wrapped stage should see all traffic, got %d/%d", len(sink.Itemsets), sink.Finished)
	}

	out := writeAndRead(t, m)
	for _, want := range []string{
		`itemizer_itemsets_total{stage="text_0"} 2`,
		`itemizer_items_total{stage="text_0"} 4`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in\n%s", want, out)
		}
	}
}

func TestInstrumentCountsErrors(t *testing.T) {
	m := New()
	boom := errors.New("boom")
	s := m.Instrument("raw_0", pipe.Func(func(itemset.Itemset) error { return boom }))

	if err := s.Consume(itemset.Parse("a", " ")); !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}
	if out := writeAndRead(t, m); !strings.Contains(out, `itemizer_stage_errors_total{stage="raw_0"} 1`) {
		t.Errorf("Expected one error counted in\n%s", out)
	}
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.AlphabetSize.WithLabelValues("vocab").Set(3)

	if strings.Contains(writeAndRead(t, b), "vocab") {
		t.Error("Metrics of one run leaked into another")
	}
}

func writeAndRead(t *testing.T, m *Metrics) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "itemizer.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	return string(data)
}
