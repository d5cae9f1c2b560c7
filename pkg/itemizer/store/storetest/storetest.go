// Package storetest holds the behavior every store.Store implementation must
// share. Implementations call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/cognicore/itemizer/pkg/itemizer/alphabet"
	"github.com/cognicore/itemizer/pkg/itemizer/internalerr"
	"github.com/cognicore/itemizer/pkg/itemizer/store"
)

// Run exercises a fresh store returned by open.
func Run(t *testing.T, open func(t *testing.T) store.Store) {
	t.Run("AlphabetRoundTrip", func(t *testing.T) { testAlphabetRoundTrip(t, open(t)) })
	t.Run("AlphabetReplace", func(t *testing.T) { testAlphabetReplace(t, open(t)) })
	t.Run("AlphabetMissing", func(t *testing.T) { testAlphabetMissing(t, open(t)) })
	t.Run("AlphabetList", func(t *testing.T) { testAlphabetList(t, open(t)) })
	t.Run("Runs", func(t *testing.T) { testRuns(t, open(t)) })
}

func sample(first int) *alphabet.Alphabet {
	b := alphabet.NewBuilder()
	b.Add("a", 3)
	b.Add("b", 5)
	b.Add("c", 1)
	b.Add("d", 5)
	return b.Translate(first)
}

func testAlphabetRoundTrip(t *testing.T, st store.Store) {
	defer st.Close()
	ctx := context.Background()
	want := sample(2)

	if err := st.SaveAlphabet(ctx, "vocab", store.FromAlphabet(want)); err != nil {
		t.Fatalf("SaveAlphabet: %v", err)
	}
	parts, err := st.LoadAlphabet(ctx, "vocab")
	if err != nil {
		t.Fatalf("LoadAlphabet: %v", err)
	}
	got, err := parts.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if got.String() != want.String() {
		t.Errorf("Expected\n%s\ngot\n%s", want, got)
	}
	if code, _ := got.Code("d"); code != 3 {
		t.Errorf("Expected d=3, got %d", code)
	}
}

func testAlphabetReplace(t *testing.T, st store.Store) {
	defer st.Close()
	ctx := context.Background()

	st.SaveAlphabet(ctx, "vocab", store.FromAlphabet(sample(0)))
	smaller := sample(0).KeepN(2)
	if err := st.SaveAlphabet(ctx, "vocab", store.FromAlphabet(smaller)); err != nil {
		t.Fatalf("SaveAlphabet: %v", err)
	}

	parts, err := st.LoadAlphabet(ctx, "vocab")
	if err != nil {
		t.Fatalf("LoadAlphabet: %v", err)
	}
	if !reflect.DeepEqual(parts.Order, smaller.Order()) {
		t.Errorf("Expected %v, got %v", smaller.Order(), parts.Order)
	}
}

func testAlphabetMissing(t *testing.T, st store.Store) {
	defer st.Close()
	ctx := context.Background()

	if _, err := st.LoadAlphabet(ctx, "nope"); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("LoadAlphabet: expected ErrNotFound, got %v", err)
	}
	if err := st.DeleteAlphabet(ctx, "nope"); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("DeleteAlphabet: expected ErrNotFound, got %v", err)
	}
	bad := store.Alphabet{Items: []string{"a"}, Counts: []int64{1, 2}, Order: []string{"a"}}
	if err := st.SaveAlphabet(ctx, "bad", bad); !errors.Is(err, internalerr.ErrFormat) {
		t.Errorf("SaveAlphabet: expected ErrFormat, got %v", err)
	}
}

func testAlphabetList(t *testing.T, st store.Store) {
	defer st.Close()
	ctx := context.Background()

	st.SaveAlphabet(ctx, "zeta", store.FromAlphabet(sample(0)))
	st.SaveAlphabet(ctx, "alpha", store.FromAlphabet(sample(0).KeepN(1)))

	infos, err := st.ListAlphabets(ctx)
	if err != nil {
		t.Fatalf("ListAlphabets: %v", err)
	}
	if len(infos) != 2 || infos[0].Name != "alpha" || infos[0].Size != 1 || infos[1].Size != 4 {
		t.Errorf("Unexpected listing %+v", infos)
	}

	if err := st.DeleteAlphabet(ctx, "zeta"); err != nil {
		t.Fatalf("DeleteAlphabet: %v", err)
	}
	if infos, _ := st.ListAlphabets(ctx); len(infos) != 1 {
		t.Errorf("Expected 1 alphabet after delete, got %d", len(infos))
	}
}

func testRuns(t *testing.T, st store.Store) {
	defer st.Close()
	ctx := context.Background()
	start := time.Now().Truncate(time.Millisecond)

	var ids []string
	for i := 0; i < 3; i++ {
		r := store.Run{
			ID:        store.NewRunID(start),
			Input:     "corpus.txt",
			Status:    store.RunRunning,
			StartedAt: start,
		}
		if err := st.StartRun(ctx, r); err != nil {
			t.Fatalf("StartRun: %v", err)
		}
		ids = append(ids, r.ID)
	}

	done := store.Run{
		ID:         ids[1],
		Status:     store.RunSucceeded,
		FinishedAt: start.Add(time.Second),
		Lines:      42,
		Stages:     map[string]int64{"filter_0": 42, "raw_0": 40},
	}
	if err := st.FinishRun(ctx, done); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	got, err := st.GetRun(ctx, ids[1])
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != store.RunSucceeded || got.Lines != 42 || got.Input != "corpus.txt" {
		t.Errorf("Unexpected run %+v", got)
	}
	if !got.StartedAt.Equal(start) || !got.FinishedAt.Equal(done.FinishedAt) {
		t.Errorf("Times not preserved: %v %v", got.StartedAt, got.FinishedAt)
	}
	if !reflect.DeepEqual(got.Stages, done.Stages) {
		t.Errorf("Expected stages %v, got %v", done.Stages, got.Stages)
	}

	runs, err := st.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != ids[2] || runs[1].ID != ids[1] {
		t.Errorf("Expected newest runs first, got %+v", runs)
	}

	if _, err := st.GetRun(ctx, "missing"); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("GetRun: expected ErrNotFound, got %v", err)
	}
	if err := st.FinishRun(ctx, store.Run{ID: "missing"}); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("FinishRun: expected ErrNotFound, got %v", err)
	}
}
