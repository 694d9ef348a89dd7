package scan

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/parity/internal/chain"
	"github.com/roach88/parity/internal/compare"
	"github.com/roach88/parity/internal/endpoint"
)

// Space is an identifier space a scan iterates.
//
// This is a sealed interface; the variants are FlatSpace, BlockSpace,
// ResourceSpace and FanoutSpace.
type Space interface {
	drive(ctx context.Context, r *run) error
}

// FlatSpace is a single request with no identifiers.
type FlatSpace struct{}

// BlockSpace iterates every block in the configured range.
type BlockSpace struct{}

// FanoutSpace discovers an extrinsic count per block and compares every
// index.
type FanoutSpace struct{}

// Resource is one iterated pallet or account.
type Resource struct {
	// Name is the path parameter and the coverage key.
	Name string
	// Label is an optional display name.
	Label string
}

// ResourceSpace iterates every block for each resource.
type ResourceSpace struct {
	Resources []Resource
	// Accounts selects account path parameters instead of pallet ones.
	Accounts bool
}

// SpaceFor picks the identifier space for ep. Resource endpoints take their
// resources from c, filtered by the case-insensitive substring filter.
func SpaceFor(ep *endpoint.Endpoint, c *chain.Chain, filter string, logger *slog.Logger) (Space, error) {
	switch ep.Category {
	case endpoint.CategoryRuntime:
		return FlatSpace{}, nil
	case endpoint.CategoryBlock:
		return BlockSpace{}, nil
	case endpoint.CategoryExtrinsic:
		return FanoutSpace{}, nil
	case endpoint.CategoryPallet:
		pallets := c.FilterPallets(filter)
		if len(pallets) == 0 {
			return nil, fmt.Errorf("no pallets on %s match %q", c.Name, filter)
		}
		rs := make([]Resource, len(pallets))
		for i, p := range pallets {
			rs[i] = Resource{Name: p.Name}
		}
		return ResourceSpace{Resources: rs}, nil
	case endpoint.CategoryAccount:
		accounts := c.FilterAccounts(filter, ep.Staking)
		if ep.Staking && len(accounts) == 0 {
			if logger == nil {
				logger = slog.Default()
			}
			logger.Warn("no staking accounts configured, falling back to test accounts", "chain", c.Name)
			accounts = c.FilterAccounts(filter, false)
		}
		if len(accounts) == 0 {
			return nil, fmt.Errorf("no test accounts on %s match %q", c.Name, filter)
		}
		rs := make([]Resource, len(accounts))
		for i, a := range accounts {
			rs[i] = Resource{Name: a.Address, Label: a.Label}
		}
		return ResourceSpace{Resources: rs, Accounts: true}, nil
	default:
		return nil, fmt.Errorf("endpoint %s has no identifier space", ep.Name)
	}
}

func (FlatSpace) drive(ctx context.Context, r *run) error {
	if err := r.pause(ctx); err != nil {
		return err
	}
	ctx = context.WithoutCancel(ctx)
	rr := &ResourceResult{}
	t, err := r.target(endpoint.Params{}, 0, nil, "")
	if err != nil {
		return err
	}
	results, err := r.compareAll(ctx, []compare.Target{t})
	if err != nil {
		return err
	}
	if err := r.foldAll(ctx, rr, results); err != nil {
		return err
	}
	r.finishFlat(rr)
	return nil
}

func (BlockSpace) drive(ctx context.Context, r *run) error {
	rr := &ResourceResult{}
	err := r.windows(ctx, "", func(ctx context.Context, lo, hi uint64) error {
		specs := make([]compare.Target, 0, hi-lo+1)
		for b := lo; b <= hi; b++ {
			t, err := r.target(endpoint.Params{Block: endpoint.Uint(b)}, b, nil, "")
			if err != nil {
				return err
			}
			specs = append(specs, t)
		}
		results, err := r.compareAll(ctx, specs)
		if err != nil {
			return err
		}
		return r.foldAll(ctx, rr, results)
	})
	if err != nil {
		return err
	}
	r.finishRanged(rr, "")
	return nil
}

func (s ResourceSpace) drive(ctx context.Context, r *run) error {
	for _, res := range s.Resources {
		rr := &ResourceResult{Name: res.Name, Label: res.Label}
		r.logger.Info("scanning resource", "resource", rr.DisplayName(), "endpoint", r.cfg.Endpoint.Name)

		err := r.windows(ctx, rr.DisplayName(), func(ctx context.Context, lo, hi uint64) error {
			specs := make([]compare.Target, 0, hi-lo+1)
			for b := lo; b <= hi; b++ {
				p := endpoint.Params{Block: endpoint.Uint(b)}
				if s.Accounts {
					p.Account = res.Name
				} else {
					p.Resource = res.Name
				}
				t, err := r.target(p, b, nil, res.Name)
				if err != nil {
					return err
				}
				specs = append(specs, t)
			}
			results, err := r.compareAll(ctx, specs)
			if err != nil {
				return err
			}
			return r.foldAll(ctx, rr, results)
		})
		if err != nil {
			return err
		}

		// Account coverage folds into the endpoint itself; pallet coverage
		// is kept per pallet.
		if s.Accounts {
			r.finishRanged(rr, "")
		} else {
			r.finishRanged(rr, res.Name)
		}
	}
	return nil
}

func (FanoutSpace) drive(ctx context.Context, r *run) error {
	rr := &ResourceResult{}
	err := r.windows(ctx, "", func(ctx context.Context, lo, hi uint64) error {
		lookups, err := r.discover(ctx, lo, hi)
		if err != nil {
			return err
		}

		var specs []compare.Target
		for _, l := range lookups {
			if l.err != "" || l.unparsable {
				continue
			}
			r.logger.Debug("discovered extrinsics", "block", l.block, "count", l.count)
			for i := 0; i < l.count; i++ {
				idx := uint64(i)
				t, err := r.target(endpoint.Params{Block: endpoint.Uint(l.block), Index: &idx}, l.block, &idx, "")
				if err != nil {
					return err
				}
				specs = append(specs, t)
			}
		}

		results, err := r.compareAll(ctx, specs)
		if err != nil {
			return err
		}

		// Fold block by block so issues stay in identifier order.
		next := 0
		for _, l := range lookups {
			switch {
			case l.err != "":
				r.logger.Warn("extrinsic lookup failed", "block", l.block, "error", l.err)
				rr.Counters.LeftErrors++
				if err := r.addIssue(ctx, rr, Issue{
					ID:      l.block,
					Kind:    KindLookupError,
					Message: "Failed to fetch extrinsics: " + l.err,
				}); err != nil {
					return err
				}
			case l.unparsable:
				r.logger.Warn("cannot read extrinsics from lookup response, skipping", "block", l.block, "keys", l.keys)
			default:
				end := next
				for end < len(results) && results[end].Target.ID == l.block {
					end++
				}
				if err := r.foldAll(ctx, rr, results[next:end]); err != nil {
					return err
				}
				next = end
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.finishRanged(rr, "")
	return nil
}
