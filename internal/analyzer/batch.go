package analyzer

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// AnalyzeAll runs reqs through a with at most limit requests in flight.
// Results are in request order. The first failure cancels the rest.
func AnalyzeAll(ctx context.Context, a Analyzer, reqs []Request, limit int) ([]Result, error) {
	if len(reqs) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 1
	}

	results := make([]Result, len(reqs))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(limit)
	for i, req := range reqs {
		eg.Go(func() error {
			res, err := a.Analyze(egCtx, req)
			if err != nil {
				return fmt.Errorf("analyze %s: %w", describe(req, i), err)
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func describe(req Request, i int) string {
	if req.AudioPath != "" {
		return req.AudioPath
	}
	return fmt.Sprintf("request %d", i+1)
}
