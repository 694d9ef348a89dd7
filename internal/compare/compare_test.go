package compare

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/parity/internal/jsondiff"
)

// jsonServer serves fixed bodies keyed by request path. Unknown paths 404.
func jsonServer(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func compareBlock(t *testing.T, left, right *httptest.Server, block uint64) Result {
	t.Helper()
	c := New(NewHTTPFetcher(WithTimeout(5 * time.Second)))
	path := fmt.Sprintf("/blocks/%d", block)
	return c.Compare(context.Background(), Target{
		ID:       block,
		LeftURL:  left.URL + path,
		RightURL: right.URL + path,
	})
}

func TestCompare_Match(t *testing.T) {
	left := jsonServer(t, map[string]string{"/blocks/5": `{"number":"5","hash":"0xAB"}`})
	right := jsonServer(t, map[string]string{"/blocks/5": `{"hash":"0xab","number":"5"}`})

	res := compareBlock(t, left, right, 5)
	assert.Equal(t, Match{}, res.Outcome)
	assert.Equal(t, uint64(5), res.Target.ID)
}

func TestCompare_Mismatch(t *testing.T) {
	left := jsonServer(t, map[string]string{"/blocks/5": `{"number":"5"}`})
	right := jsonServer(t, map[string]string{"/blocks/5": `{"number":"6"}`})

	res := compareBlock(t, left, right, 5)
	mm, ok := res.Outcome.(Mismatch)
	require.True(t, ok, "got %T", res.Outcome)
	require.Len(t, mm.Diffs, 1)
	assert.Equal(t, "number", mm.Diffs[0].Path)
	assert.Equal(t, jsondiff.ValueMismatch, mm.Diffs[0].Kind)
	assert.Equal(t, `{"number":"5"}`, string(mm.Left.Raw))
	assert.Equal(t, `{"number":"6"}`, string(mm.Right.Raw))
}

func TestCompare_BothNotFound(t *testing.T) {
	left := jsonServer(t, nil)
	right := jsonServer(t, nil)

	res := compareBlock(t, left, right, 5)
	both, ok := res.Outcome.(BothError)
	require.True(t, ok, "got %T", res.Outcome)
	assert.Equal(t, "HTTP 404 Not Found", both.Left)
	assert.True(t, both.Same())
}

func TestCompare_OneSideFails(t *testing.T) {
	ok := jsonServer(t, map[string]string{"/blocks/5": `{}`})
	missing := jsonServer(t, nil)

	assert.Equal(t, LeftError{Message: "HTTP 404 Not Found"}, compareBlock(t, missing, ok, 5).Outcome)
	assert.Equal(t, RightError{Message: "HTTP 404 Not Found"}, compareBlock(t, ok, missing, 5).Outcome)
}

func TestCompare_InvalidJSON(t *testing.T) {
	good := jsonServer(t, map[string]string{"/blocks/1": `{}`})
	bad := jsonServer(t, map[string]string{"/blocks/1": `{"oops"`})

	res := compareBlock(t, good, bad, 1)
	re, ok := res.Outcome.(RightError)
	require.True(t, ok, "got %T", res.Outcome)
	assert.True(t, strings.HasPrefix(re.Message, "Invalid JSON: "), re.Message)
}

func TestCompare_TransportFailure(t *testing.T) {
	good := jsonServer(t, map[string]string{"/blocks/1": `{}`})
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	c := New(NewHTTPFetcher(WithTimeout(2 * time.Second)))
	res := c.Compare(context.Background(), Target{ID: 1, LeftURL: good.URL + "/blocks/1", RightURL: deadURL + "/blocks/1"})

	re, ok := res.Outcome.(RightError)
	require.True(t, ok, "got %T", res.Outcome)
	assert.True(t, strings.HasPrefix(re.Message, "Request failed: "), re.Message)
}

func TestCompare_FetchesConcurrently(t *testing.T) {
	var inFlight, peak atomic.Int32
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(100 * time.Millisecond)
		inFlight.Add(-1)
		fmt.Fprint(w, `{}`)
	}))
	t.Cleanup(slow.Close)

	res := compareBlock(t, slow, slow, 1)
	assert.Equal(t, Match{}, res.Outcome)
	assert.Equal(t, int32(2), peak.Load())
}

func TestFetch_TrailingData(t *testing.T) {
	srv := jsonServer(t, map[string]string{"/x": `{} {}`})

	_, err := NewHTTPFetcher().Fetch(context.Background(), srv.URL+"/x")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(Message(err), "Invalid JSON: "))
}

func TestFetch_RateLimitHonorsContext(t *testing.T) {
	srv := jsonServer(t, map[string]string{"/x": `{}`})
	f := NewHTTPFetcher(WithRateLimit(0.001))

	_, err := f.Fetch(context.Background(), srv.URL+"/x")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = f.Fetch(ctx, srv.URL+"/x")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(Message(err), "Request failed: "))
}

func TestStatusMessage(t *testing.T) {
	assert.Equal(t, "HTTP 500 Internal Server Error", StatusMessage(500))
	assert.Equal(t, "HTTP 599", StatusMessage(599))
}

func TestLatestBlock(t *testing.T) {
	srv := jsonServer(t, map[string]string{
		"/v1/blocks/head": `{"number":"24012345","hash":"0x01"}`,
	})

	n, err := LatestBlock(context.Background(), NewHTTPFetcher(), srv.URL+"/v1/")
	require.NoError(t, err)
	assert.Equal(t, uint64(24012345), n)
}

func TestLatestBlock_InvalidNumber(t *testing.T) {
	srv := jsonServer(t, map[string]string{
		"/blocks/head": `{"number":12}`,
	})

	_, err := LatestBlock(context.Background(), NewHTTPFetcher(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'number'")
}

func TestName(t *testing.T) {
	assert.Equal(t, "match", Name(Match{}))
	assert.Equal(t, "both_error", Name(BothError{}))
	assert.Equal(t, "unknown", Name(nil))
}
