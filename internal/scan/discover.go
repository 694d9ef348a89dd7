package scan

import (
	"context"
	"fmt"

	"github.com/sourcegraph/conc/panics"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/parity/internal/compare"
)

// lookup is the outcome of discovering one block's extrinsic count.
type lookup struct {
	block uint64
	count int
	// err is the fetch failure message, empty on success.
	err string
	// unparsable is set when the body has no extrinsic list.
	unparsable bool
	keys       []string
}

// discover fetches the extrinsic count of every block in [lo, hi] from the
// left server, at most BatchSize lookups at a time.
func (r *run) discover(ctx context.Context, lo, hi uint64) ([]lookup, error) {
	out := make([]lookup, hi-lo+1)

	var pc panics.Catcher
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.BatchSize)
	for i := range out {
		block := lo + uint64(i)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var (
				l   lookup
				err error
			)
			pc.Try(func() {
				l, err = r.lookup(gctx, block)
			})
			if err != nil {
				return err
			}
			out[i] = l
			return nil
		})
	}
	err := g.Wait()
	if rec := pc.Recovered(); rec != nil {
		return nil, fmt.Errorf("extrinsic lookup panicked: %w", rec.AsError())
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *run) lookup(ctx context.Context, block uint64) (lookup, error) {
	path, ok := r.cfg.Endpoint.CountPath(block)
	if !ok {
		return lookup{}, fmt.Errorf("endpoint %s has no extrinsic count path", r.cfg.Endpoint.Name)
	}

	body, err := r.cmp.Fetcher().Fetch(ctx, joinURL(r.cfg.LeftURL, path))
	if err != nil {
		return lookup{block: block, err: compare.Message(err)}, nil
	}

	if list := gjson.GetBytes(body.Raw, "extrinsics"); list.IsArray() {
		return lookup{block: block, count: len(list.Array())}, nil
	}
	root := gjson.ParseBytes(body.Raw)
	if root.IsArray() {
		return lookup{block: block, count: len(root.Array())}, nil
	}

	l := lookup{block: block, unparsable: true}
	if root.IsObject() {
		root.ForEach(func(key, _ gjson.Result) bool {
			l.keys = append(l.keys, key.String())
			return true
		})
	}
	return l, nil
}
