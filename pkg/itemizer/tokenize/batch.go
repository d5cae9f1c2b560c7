package tokenize

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/cognicore/itemizer/pkg/itemizer/itemset"
	"github.com/cognicore/itemizer/pkg/itemizer/nlp"
)

// DefaultWorkers bounds concurrent annotation requests.
const DefaultWorkers = 4

// ProcessAll annotates texts with at most workers requests in flight and
// returns their itemsets in input order. Identical texts in flight at the
// same time share one request. The first failure cancels the
// remaining requests and fails the batch.
func (p *Processor) ProcessAll(ctx context.Context, texts []itemset.Text, workers int) ([]itemset.Itemset, error) {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	annotated := make([][]nlp.Sentence, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range texts {
		i := i
		body := texts[i].Body
		g.Go(func() error {
			v, err, _ := p.flights.Do(body, func() (any, error) {
				return p.annotator.Annotate(gctx, body, p.cfg.Lemmatize)
			})
			if err != nil {
				return fmt.Errorf("text %d: %w", i, err)
			}
			annotated[i] = v.([]nlp.Sentence)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []itemset.Itemset
	for i, t := range texts {
		out = append(out, p.build(t, annotated[i])...)
	}
	return out, nil
}
