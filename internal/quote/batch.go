package quote

import (
	"context"
	"sync"
	"time"

	"github.com/yourorg/portfolio-tracker/internal/domain"
	"golang.org/x/sync/errgroup"
)

type Result struct {
	Quote domain.Quote
	Err   error
}

func (r Result) OK() bool { return r.Err == nil }

// FetchAll looks up every symbol concurrently, at most concurrency at a time,
// each bounded by timeout. A failing symbol never affects the others; the
// returned map has an entry for every distinct input symbol.
func FetchAll(ctx context.Context, p Provider, symbols []string, timeout time.Duration, concurrency int) map[string]Result {
	out := make(map[string]Result, len(symbols))
	if len(symbols) == 0 {
		return out
	}
	if concurrency < 1 {
		concurrency = 1
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(concurrency)

	seen := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}

		sym := sym
		g.Go(func() error {
			callCtx := ctx
			if timeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			q, err := p.Quote(callCtx, sym)
			mu.Lock()
			out[sym] = Result{Quote: q, Err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}
