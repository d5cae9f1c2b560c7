package store

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/itemizer/pkg/itemizer/alphabet"
)

// Store persists named alphabets and the records of pipeline runs.
type Store interface {
	Close() error

	// Alphabets
	SaveAlphabet(ctx context.Context, name string, a Alphabet) error
	LoadAlphabet(ctx context.Context, name string) (Alphabet, error)
	ListAlphabets(ctx context.Context) ([]AlphabetInfo, error)
	DeleteAlphabet(ctx context.Context, name string) error

	// Runs
	StartRun(ctx context.Context, r Run) error
	FinishRun(ctx context.Context, r Run) error
	GetRun(ctx context.Context, id string) (Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)
}

// Alphabet is the stored form of a translated alphabet. Items and Counts are
// in counting order, Order is the rank order.
type Alphabet struct {
	Items  []string
	Counts []int64
	Order  []string
	First  int
}

// FromAlphabet takes the parts of a.
func FromAlphabet(a *alphabet.Alphabet) Alphabet {
	items := a.Items()
	counts := make([]int64, len(items))
	for i, item := range items {
		counts[i] = a.Count(item)
	}
	return Alphabet{Items: items, Counts: counts, Order: a.Order(), First: a.First()}
}

// Resolve rebuilds the translated alphabet.
func (a Alphabet) Resolve() (*alphabet.Alphabet, error) {
	return alphabet.Restore(a.Items, a.Counts, a.Order, a.First)
}

// AlphabetInfo summarizes a stored alphabet.
type AlphabetInfo struct {
	Name      string
	Size      int
	First     int
	UpdatedAt time.Time
}

// Run statuses.
const (
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// Run records one execution of a pipeline.
type Run struct {
	ID         string
	Input      string
	Status     string
	StartedAt  time.Time
	FinishedAt time.Time
	Lines      int64
	Error      string
	// Stages maps stage names to the number of itemsets they consumed.
	Stages map[string]int64
}

var (
	idMu      sync.Mutex
	idEntropy = ulid.Monotonic(rand.Reader, 0)
)

// NewRunID returns a ULID for a run started at t. IDs from the same process
// sort in creation order.
func NewRunID(t time.Time) string {
	idMu.Lock()
	defer idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), idEntropy).String()
}

// RunTime extracts the timestamp encoded in a run ID.
func RunTime(id string) (time.Time, error) {
	u, err := ulid.Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(u.Time()), nil
}
