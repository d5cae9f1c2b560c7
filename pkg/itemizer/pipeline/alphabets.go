package pipeline

import (
	"context"
	"fmt"

	"github.com/cognicore/itemizer/pkg/itemizer/alphabet"
	"github.com/cognicore/itemizer/pkg/itemizer/config"
	"github.com/cognicore/itemizer/pkg/itemizer/internalerr"
	"github.com/cognicore/itemizer/pkg/itemizer/store"
)

// resolver loads the named alphabets of a run on first use. Each alphabet is
// read, intersected, filtered by frequency and truncated, in that order.
type resolver struct {
	defs     map[string]config.Alphabet
	sep      string
	store    store.Store
	resolved map[string]*alphabet.Alphabet
}

func newResolver(cfg *config.Run, st store.Store) *resolver {
	return &resolver{
		defs:     cfg.Alphabets,
		sep:      cfg.Separator,
		store:    st,
		resolved: make(map[string]*alphabet.Alphabet),
	}
}

func (r *resolver) get(ctx context.Context, name string) (*alphabet.Alphabet, error) {
	if a, ok := r.resolved[name]; ok {
		return a, nil
	}
	def, ok := r.defs[name]
	if !ok {
		return nil, fmt.Errorf("alphabet %s: %w", name, internalerr.ErrNotFound)
	}

	a, err := r.load(ctx, name, def)
	if err != nil {
		return nil, err
	}

	if def.Intersect != nil {
		other, err := r.get(ctx, def.Intersect.With)
		if err != nil {
			return nil, err
		}
		policy, err := alphabet.ParseCountPolicy(def.Intersect.Policy)
		if err != nil {
			return nil, fmt.Errorf("alphabet %s: %w", name, err)
		}
		if a, err = a.Intersect(other, policy); err != nil {
			return nil, fmt.Errorf("alphabet %s: %w", name, err)
		}
	}
	if def.MinFrequency > 0 {
		a = a.KeepMinFrequency(def.MinFrequency)
	}
	if def.KeepN > 0 {
		a = a.KeepN(def.KeepN)
	}

	r.resolved[name] = a
	return a, nil
}

func (r *resolver) load(ctx context.Context, name string, def config.Alphabet) (*alphabet.Alphabet, error) {
	if def.Stored != "" {
		if r.store == nil {
			return nil, fmt.Errorf("%w: alphabet %s: no store", internalerr.ErrInvalidConfig, name)
		}
		parts, err := r.store.LoadAlphabet(ctx, def.Stored)
		if err != nil {
			return nil, err
		}
		return parts.Resolve()
	}
	return alphabet.Load(def.File, r.sep)
}

// sizes returns the size of every alphabet resolved so far.
func (r *resolver) sizes() map[string]int {
	out := make(map[string]int, len(r.resolved))
	for name, a := range r.resolved {
		out[name] = a.Len()
	}
	return out
}
