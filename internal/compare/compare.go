package compare

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/sourcegraph/conc"
	"github.com/tidwall/gjson"

	"github.com/roach88/parity/internal/jsondiff"
)

// Comparator fetches a target from both sides and classifies the pair.
type Comparator struct {
	fetcher Fetcher
	logger  *slog.Logger
}

// Option configures a Comparator.
type Option func(*Comparator)

// WithLogger sets the logger used for per-comparison debug output.
func WithLogger(l *slog.Logger) Option {
	return func(c *Comparator) {
		c.logger = l
	}
}

// New returns a Comparator that uses f for both sides.
func New(f Fetcher, opts ...Option) *Comparator {
	c := &Comparator{
		fetcher: f,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetcher returns the fetcher shared by both sides.
func (c *Comparator) Fetcher() Fetcher {
	return c.fetcher
}

// Compare fetches both URLs concurrently and classifies the result. It never
// fails; fetch failures become LeftError, RightError or BothError.
func (c *Comparator) Compare(ctx context.Context, t Target) Result {
	var (
		left, right       Body
		leftErr, rightErr error
		wg                conc.WaitGroup
	)
	wg.Go(func() { left, leftErr = c.fetcher.Fetch(ctx, t.LeftURL) })
	wg.Go(func() { right, rightErr = c.fetcher.Fetch(ctx, t.RightURL) })
	wg.Wait()

	res := Result{Target: t, Outcome: classify(left, right, leftErr, rightErr)}
	c.logger.Debug("compared",
		"id", t.ID,
		"resource", t.Resource,
		"outcome", Name(res.Outcome),
	)
	return res
}

func classify(left, right Body, leftErr, rightErr error) Outcome {
	switch {
	case leftErr != nil && rightErr != nil:
		return BothError{Left: Message(leftErr), Right: Message(rightErr)}
	case leftErr != nil:
		return LeftError{Message: Message(leftErr)}
	case rightErr != nil:
		return RightError{Message: Message(rightErr)}
	}

	if jsondiff.Equal(left.Value, right.Value) {
		return Match{}
	}
	return Mismatch{
		Left:  left,
		Right: right,
		Diffs: jsondiff.Diff(left.Value, right.Value),
	}
}

// LatestBlock returns the head block number reported by baseURL/blocks/head.
// The "number" field is a decimal string.
func LatestBlock(ctx context.Context, f Fetcher, baseURL string) (uint64, error) {
	url := strings.TrimRight(baseURL, "/") + "/blocks/head"
	body, err := f.Fetch(ctx, url)
	if err != nil {
		return 0, fmt.Errorf("fetch head block from %s: %w", url, err)
	}

	number := gjson.GetBytes(body.Raw, "number")
	if number.Type != gjson.String {
		return 0, fmt.Errorf("missing or invalid 'number' field in response from %s", url)
	}
	n, err := strconv.ParseUint(number.Str, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid 'number' field %q in response from %s: %w", number.Str, url, err)
	}
	return n, nil
}
