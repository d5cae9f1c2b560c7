package alphabet

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/cognicore/itemizer/pkg/itemizer/internalerr"
)

func TestEncodeTranslated(t *testing.T) {
	a := counted("a", 3, "b", 5, "c", 1).Translate(0)

	want := "SI:3\nAB: a b c\nCT: 3 5 1\nIT: b a c\n"
	if a.String() != want {
		t.Errorf("Expected\n%q\ngot\n%q", want, a.String())
	}
}

func TestEncodeBuilderHasNoTranslation(t *testing.T) {
	var buf bytes.Buffer
	if err := counted("a", 2).Encode(&buf, ","); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	want := "SI:1\nAB:,a\nCT:,2\n"
	if buf.String() != want {
		t.Errorf("Expected %q, got %q", want, buf.String())
	}
}

func TestRoundTripTranslated(t *testing.T) {
	for _, sep := range []string{" ", ",", "\t"} {
		orig := counted("x", 2, "y", 7, "z", 2, "w", 1).Translate(0)

		var buf bytes.Buffer
		if err := orig.Encode(&buf, sep); err != nil {
			t.Fatalf("Encode: %v", err)
		}
		b, a, err := Decode(&buf, sep)
		if err != nil {
			t.Fatalf("sep %q: Decode: %v", sep, err)
		}
		if a == nil {
			t.Fatalf("sep %q: translation lost", sep)
		}

		for _, item := range orig.Items() {
			if b.Count(item) != orig.Count(item) || a.Count(item) != orig.Count(item) {
				t.Errorf("sep %q: count mismatch for %q", sep, item)
			}
			oc, _ := orig.Code(item)
			ac, _ := a.Code(item)
			if oc != ac {
				t.Errorf("sep %q: code mismatch for %q: %d != %d", sep, item, oc, ac)
			}
		}
		if !reflect.DeepEqual(a.Items(), orig.Items()) {
			t.Errorf("sep %q: counting order %v != %v", sep, a.Items(), orig.Items())
		}
	}
}

func TestRoundTripKeepsTranslationOffset(t *testing.T) {
	orig := counted("a", 1, "b", 2).Translate(3)

	var buf bytes.Buffer
	if err := orig.Encode(&buf, " "); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	_, a, err := Decode(&buf, " ")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if code, _ := a.Code("b"); code != 3 {
		t.Errorf("Expected code 3 for b, got %d", code)
	}
}

func TestRoundTripWithoutTranslation(t *testing.T) {
	var buf bytes.Buffer
	if err := counted("a", 1, "b", 2).Encode(&buf, " "); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	b, a, err := Decode(&buf, " ")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if a != nil {
		t.Error("No IT line means no translation")
	}
	if b.Count("b") != 2 || b.Len() != 2 {
		t.Errorf("Unexpected counts: %v", b.Items())
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing alphabet", "SI:1\nCT: 1\n"},
		{"missing counts", "SI:1\nAB: a\n"},
		{"length mismatch", "SI:2\nAB: a b\nCT: 1\n"},
		{"translator mismatch", "SI:2\nAB: a b\nCT: 1 2\nIT: b\n"},
		{"bad count", "SI:1\nAB: a\nCT: one\n"},
		{"unknown translated item", "SI:1\nAB: a\nCT: 1\nIT: q\n"},
		{"duplicate item", "SI:2\nAB: a a\nCT: 1 2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode(strings.NewReader(tt.input), " ")
			if !errors.Is(err, internalerr.ErrFormat) {
				t.Errorf("Expected ErrFormat, got %v", err)
			}
		})
	}
}

func TestDecodeEmptyAlphabet(t *testing.T) {
	b, a, err := Decode(strings.NewReader("SI:0\nAB: \nCT: \n"), " ")
	if err != nil {
		t.Fatalf("Empty alphabet should load: %v", err)
	}
	if b.Len() != 0 || a != nil {
		t.Errorf("Expected empty builder and no translation, got %d items", b.Len())
	}
}

func TestRoundTripEmptyTranslation(t *testing.T) {
	left := counted("a", 2, "b", 1).Translate(0)
	right := counted("z", 1).Translate(0)
	empty, err := left.Intersect(right, Keep)
	if err != nil {
		t.Fatalf("Intersect: %v", err)
	}
	if empty.Len() != 0 {
		t.Fatalf("Expected empty intersection, got %v", empty.Order())
	}

	for _, name := range []string{"empty.ab", "empty.cbor"} {
		path := filepath.Join(t.TempDir(), name)
		if err := Save(path, " ", empty); err != nil {
			t.Fatalf("Save %s: %v", name, err)
		}
		a, err := Load(path, " ")
		if err != nil {
			t.Fatalf("Load %s: %v", name, err)
		}
		if a.Len() != 0 || len(a.Items()) != 0 {
			t.Errorf("%s: expected empty alphabet, got %v", name, a.Order())
		}
	}

	var buf bytes.Buffer
	if err := counted("a", 1).Translate(0).KeepMinFrequency(5).Encode(&buf, ","); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(buf.String(), "IT:,\n") {
		t.Errorf("Empty translation should still write its IT line, got %q", buf.String())
	}
	if _, a, err := Decode(&buf, ","); err != nil || a == nil {
		t.Errorf("Expected a translated empty alphabet, got %v, %v", a, err)
	}
}

func TestFilesAndLoad(t *testing.T) {
	dir := t.TempDir()
	orig := counted("a", 3, "b", 5, "c", 1).Translate(0)

	for _, name := range []string{"meta.txt", "meta.cbor"} {
		path := filepath.Join(dir, name)
		if err := Save(path, " ", orig); err != nil {
			t.Fatalf("Save %s: %v", name, err)
		}
		a, err := Load(path, " ")
		if err != nil {
			t.Fatalf("Load %s: %v", name, err)
		}
		if !reflect.DeepEqual(a.Order(), orig.Order()) {
			t.Errorf("%s: expected order %v, got %v", name, orig.Order(), a.Order())
		}
		if a.Count("b") != 5 {
			t.Errorf("%s: expected count 5, got %d", name, a.Count("b"))
		}
	}
}

func TestLoadUntranslated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counts.txt")
	if err := WriteFile(path, " ", counted("a", 1)); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := Load(path, " ")
	if !errors.Is(err, internalerr.ErrNotTranslated) {
		t.Errorf("Expected ErrNotTranslated, got %v", err)
	}
}

func TestReadFileMissing(t *testing.T) {
	_, _, err := ReadFile(filepath.Join(t.TempDir(), "nope"), " ")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected not-exist error, got %v", err)
	}
}

func TestSnapshotRejectsGarbage(t *testing.T) {
	_, err := ReadSnapshot(strings.NewReader("not cbor"))
	if !errors.Is(err, internalerr.ErrFormat) {
		t.Errorf("Expected ErrFormat, got %v", err)
	}
}

func TestRestore(t *testing.T) {
	a, err := Restore([]string{"a", "b", "c"}, []int64{3, 5, 1}, []string{"b", "a", "c"}, 2)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if code, _ := a.Code("a"); code != 3 {
		t.Errorf("Expected a=3, got %d", code)
	}
	if !reflect.DeepEqual(a.Items(), []string{"a", "b", "c"}) {
		t.Errorf("Counting order should survive, got %v", a.Items())
	}

	bad := []struct {
		name   string
		items  []string
		counts []int64
		order  []string
	}{
		{"length", []string{"a"}, []int64{1, 2}, []string{"a"}},
		{"duplicate", []string{"a", "a"}, []int64{1, 2}, []string{"a", "a"}},
		{"unknown", []string{"a"}, []int64{1}, []string{"z"}},
		{"short order", []string{"a", "b"}, []int64{1, 2}, []string{"a"}},
	}
	for _, tt := range bad {
		if _, err := Restore(tt.items, tt.counts, tt.order, 0); !errors.Is(err, internalerr.ErrFormat) {
			t.Errorf("%s: expected ErrFormat, got %v", tt.name, err)
		}
	}
}
