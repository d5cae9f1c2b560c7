package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cognicore/itemizer/pkg/itemizer/internalerr"
	"github.com/cognicore/itemizer/pkg/itemizer/store"
)

// Store is an in-memory implementation of store.Store for tests and
// single-process runs.
type Store struct {
	mu        sync.RWMutex
	alphabets map[string]entry
	runs      map[string]store.Run
}

type entry struct {
	alphabet store.Alphabet
	updated  time.Time
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		alphabets: make(map[string]entry),
		runs:      make(map[string]store.Run),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// SaveAlphabet replaces the alphabet stored under name.
func (s *Store) SaveAlphabet(ctx context.Context, name string, a store.Alphabet) error {
	if len(a.Items) != len(a.Counts) || len(a.Order) != len(a.Items) {
		return fmt.Errorf("%w: alphabet %s has mismatched parts", internalerr.ErrFormat, name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.alphabets[name] = entry{alphabet: copyAlphabet(a), updated: time.Now()}
	return nil
}

// LoadAlphabet returns the alphabet stored under name.
func (s *Store) LoadAlphabet(ctx context.Context, name string) (store.Alphabet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.alphabets[name]
	if !ok {
		return store.Alphabet{}, fmt.Errorf("alphabet %s: %w", name, internalerr.ErrNotFound)
	}
	return copyAlphabet(e.alphabet), nil
}

// ListAlphabets returns every stored alphabet, by name.
func (s *Store) ListAlphabets(ctx context.Context) ([]store.AlphabetInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.AlphabetInfo, 0, len(s.alphabets))
	for name, e := range s.alphabets {
		out = append(out, store.AlphabetInfo{
			Name:      name,
			Size:      len(e.alphabet.Items),
			First:     e.alphabet.First,
			UpdatedAt: e.updated,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// DeleteAlphabet removes an alphabet.
func (s *Store) DeleteAlphabet(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.alphabets[name]; !ok {
		return fmt.Errorf("alphabet %s: %w", name, internalerr.ErrNotFound)
	}
	delete(s.alphabets, name)
	return nil
}

// StartRun records a new run.
func (s *Store) StartRun(ctx context.Context, r store.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[r.ID]; ok {
		return fmt.Errorf("run %s already exists", r.ID)
	}
	s.runs[r.ID] = copyRun(r)
	return nil
}

// FinishRun stores the outcome of a run started with StartRun.
func (s *Store) FinishRun(ctx context.Context, r store.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.runs[r.ID]
	if !ok {
		return fmt.Errorf("run %s: %w", r.ID, internalerr.ErrNotFound)
	}
	r.Input = prev.Input
	r.StartedAt = prev.StartedAt
	s.runs[r.ID] = copyRun(r)
	return nil
}

// GetRun returns a run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.runs[id]
	if !ok {
		return store.Run{}, fmt.Errorf("run %s: %w", id, internalerr.ErrNotFound)
	}
	return copyRun(r), nil
}

// ListRuns returns the most recent runs first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	out := make([]store.Run, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, copyRun(r))
	}
	// ULIDs sort by creation time.
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func copyAlphabet(a store.Alphabet) store.Alphabet {
	return store.Alphabet{
		Items:  append([]string(nil), a.Items...),
		Counts: append([]int64(nil), a.Counts...),
		Order:  append([]string{}, a.Order...),
		First:  a.First,
	}
}

func copyRun(r store.Run) store.Run {
	if r.Stages != nil {
		stages := make(map[string]int64, len(r.Stages))
		for k, v := range r.Stages {
			stages[k] = v
		}
		r.Stages = stages
	}
	return r
}
