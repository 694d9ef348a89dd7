package endpoint

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

var (
	// ErrMissingParam is returned by Path when a required parameter is absent.
	ErrMissingParam = errors.New("missing parameter")
	// ErrUnknownEndpoint is returned by Parse for an unrecognized name.
	ErrUnknownEndpoint = errors.New("unknown endpoint")
)

// Category groups endpoints by the identifiers they need.
type Category int

const (
	CategoryAccount Category = iota + 1
	CategoryBlock
	CategoryExtrinsic
	CategoryPallet
	CategoryRuntime
)

func (c Category) String() string {
	switch c {
	case CategoryAccount:
		return "account"
	case CategoryBlock:
		return "block"
	case CategoryExtrinsic:
		return "extrinsic"
	case CategoryPallet:
		return "pallet"
	case CategoryRuntime:
		return "runtime"
	default:
		return "unknown"
	}
}

// Params are the values substituted into an endpoint path. Block and Index
// are optional; nil means absent.
type Params struct {
	Resource string
	Account  string
	Block    *uint64
	Index    *uint64
}

// Uint returns a pointer to n, for filling Params.
func Uint(n uint64) *uint64 {
	return &n
}

// Endpoint is one API route.
type Endpoint struct {
	Name     string
	Aliases  []string
	Category Category
	// Staking endpoints iterate stash accounts instead of test accounts.
	Staking bool

	template  string
	atQuery   bool
	countPath string
}

func (e *Endpoint) String() string {
	return e.Name
}

// PerResource reports whether the endpoint iterates named resources.
func (e *Endpoint) PerResource() bool {
	return e.Category == CategoryPallet || e.Category == CategoryAccount
}

// Ranged reports whether the endpoint iterates a block range.
func (e *Endpoint) Ranged() bool {
	return e.Category != CategoryRuntime
}

// Path builds the request path for p. Placeholders in the route must all be
// supplied; a block for a block-qualified route is appended as "?at=N".
func (e *Endpoint) Path(p Params) (string, error) {
	path := e.template

	if strings.Contains(path, "{resource}") {
		if p.Resource == "" {
			return "", e.missing("resource")
		}
		path = strings.ReplaceAll(path, "{resource}", url.PathEscape(p.Resource))
	}
	if strings.Contains(path, "{account}") {
		if p.Account == "" {
			return "", e.missing("account")
		}
		path = strings.ReplaceAll(path, "{account}", url.PathEscape(p.Account))
	}
	if strings.Contains(path, "{block}") {
		if p.Block == nil {
			return "", e.missing("block")
		}
		path = strings.ReplaceAll(path, "{block}", strconv.FormatUint(*p.Block, 10))
	}
	if strings.Contains(path, "{index}") {
		if p.Index == nil {
			return "", e.missing("index")
		}
		path = strings.ReplaceAll(path, "{index}", strconv.FormatUint(*p.Index, 10))
	}

	if e.atQuery && p.Block != nil {
		path = appendQuery(path, "at="+strconv.FormatUint(*p.Block, 10))
	}
	return path, nil
}

// CountPath returns the discovery path whose extrinsic list sizes the
// fan-out for block. ok is false for endpoints that do not fan out.
func (e *Endpoint) CountPath(block uint64) (path string, ok bool) {
	if e.countPath == "" {
		return "", false
	}
	return strings.ReplaceAll(e.countPath, "{block}", strconv.FormatUint(block, 10)), true
}

func (e *Endpoint) missing(param string) error {
	return fmt.Errorf("%w: %s requires %s", ErrMissingParam, e.Name, param)
}

func appendQuery(path, kv string) string {
	if strings.Contains(path, "?") {
		return path + "&" + kv
	}
	return path + "?" + kv
}
