package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Response is a canned reply of a FakeAPI.
type Response struct {
	Status int
	Body   string
}

// FakeAPI is an httptest server answering from canned responses keyed by
// request URI (path plus query). Unknown URIs get a 404.
type FakeAPI struct {
	*httptest.Server

	mu       sync.Mutex
	routes   map[string]Response
	fallback func(uri string) (Response, bool)
	hits     map[string]int
}

// NewFakeAPI starts a server that is closed when the test ends.
func NewFakeAPI(t testing.TB) *FakeAPI {
	t.Helper()
	f := &FakeAPI{
		routes: make(map[string]Response),
		hits:   make(map[string]int),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

// JSON registers a 200 response for uri.
func (f *FakeAPI) JSON(uri, body string) *FakeAPI {
	return f.Status(uri, http.StatusOK, body)
}

// Status registers a response with an explicit status for uri.
func (f *FakeAPI) Status(uri string, status int, body string) *FakeAPI {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[uri] = Response{Status: status, Body: body}
	return f
}

// Fallback answers URIs with no canned response. Returning false yields a
// 404.
func (f *FakeAPI) Fallback(fn func(uri string) (Response, bool)) *FakeAPI {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fallback = fn
	return f
}

// Hits returns how many requests uri has received.
func (f *FakeAPI) Hits(uri string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[uri]
}

// TotalHits returns the number of requests received.
func (f *FakeAPI) TotalHits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, h := range f.hits {
		n += h
	}
	return n
}

func (f *FakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	uri := r.URL.RequestURI()

	f.mu.Lock()
	f.hits[uri]++
	resp, ok := f.routes[uri]
	fallback := f.fallback
	f.mu.Unlock()

	if !ok && fallback != nil {
		resp, ok = fallback(uri)
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	if resp.Status == 0 {
		resp.Status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	fmt.Fprint(w, resp.Body)
}
