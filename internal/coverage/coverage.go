package coverage

import (
	"time"
)

// FormatVersion is the version tag written to every coverage file.
const FormatVersion = "1.0"

// Counters are the cumulative outcome tallies for one resource or endpoint.
type Counters struct {
	Matched             uint64 `json:"matched"`
	Mismatched          uint64 `json:"mismatched"`
	LeftErrors          uint64 `json:"leftErrors"`
	RightErrors         uint64 `json:"rightErrors"`
	BothErrorsDiffering uint64 `json:"bothErrorsDiffering"`
}

// Add accumulates other into c.
func (c *Counters) Add(other Counters) {
	c.Matched += other.Matched
	c.Mismatched += other.Mismatched
	c.LeftErrors += other.LeftErrors
	c.RightErrors += other.RightErrors
	c.BothErrorsDiffering += other.BothErrorsDiffering
}

// Total returns the number of classified comparisons.
func (c Counters) Total() uint64 {
	return c.Matched + c.Mismatched + c.LeftErrors + c.RightErrors + c.BothErrorsDiffering
}

// Errors returns the number of comparisons where at least one side failed
// and the failures did not agree.
func (c Counters) Errors() uint64 {
	return c.LeftErrors + c.RightErrors + c.BothErrorsDiffering
}

// HasIssues reports whether any non-matching outcome was counted.
func (c Counters) HasIssues() bool {
	return c.Total() != c.Matched
}

// PassRate returns 100*matched/total, or 0 when nothing was counted.
func (c Counters) PassRate() float64 {
	total := c.Total()
	if total == 0 {
		return 0
	}
	return float64(c.Matched) / float64(total) * 100
}

// ResourceCoverage is the coverage of one resource (e.g. a pallet) under one
// endpoint.
type ResourceCoverage struct {
	Resource string `json:"resource"`
	Ranges   Ranges `json:"ranges"`
	Counters
	LastTested time.Time `json:"lastTested"`
}

// NewResourceCoverage returns empty coverage for the named resource.
func NewResourceCoverage(name string) *ResourceCoverage {
	return &ResourceCoverage{Resource: name, Ranges: Ranges{}}
}

func (rc *ResourceCoverage) record(r Range, counts Counters, now time.Time) {
	rc.Ranges.Add(r)
	rc.Counters.Add(counts)
	rc.LastTested = now
}

// EndpointCoverage is the coverage of one endpoint. Resource-iterated
// endpoints keep per-resource coverage in Resources; other endpoints keep
// ranges and counters directly.
type EndpointCoverage struct {
	Endpoint  string                       `json:"endpoint"`
	Resources map[string]*ResourceCoverage `json:"resources,omitempty"`
	Ranges    Ranges                       `json:"ranges"`
	Counters
	Tested      bool      `json:"tested"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// NewEndpointCoverage returns empty coverage. perResource selects whether
// results are kept per resource.
func NewEndpointCoverage(name string, perResource bool) *EndpointCoverage {
	ec := &EndpointCoverage{Endpoint: name, Ranges: Ranges{}}
	if perResource {
		ec.Resources = make(map[string]*ResourceCoverage)
	}
	return ec
}

// PerResource reports whether results are kept per resource.
func (ec *EndpointCoverage) PerResource() bool {
	return ec.Resources != nil
}

// RecordResource merges one run over a resource into its coverage.
func (ec *EndpointCoverage) RecordResource(resource string, r Range, counts Counters, now time.Time) {
	if ec.Resources == nil {
		ec.Resources = make(map[string]*ResourceCoverage)
	}
	rc, ok := ec.Resources[resource]
	if !ok {
		rc = NewResourceCoverage(resource)
		ec.Resources[resource] = rc
	}
	rc.record(r, counts, now)
	ec.touch(now)
}

// RecordRange merges one run over a range into the endpoint's own coverage.
func (ec *EndpointCoverage) RecordRange(r Range, counts Counters, now time.Time) {
	ec.Ranges.Add(r)
	ec.Counters.Add(counts)
	ec.touch(now)
}

// RecordFlat adds the counters of a run that has no identifier range.
func (ec *EndpointCoverage) RecordFlat(counts Counters, now time.Time) {
	ec.Counters.Add(counts)
	ec.touch(now)
}

func (ec *EndpointCoverage) touch(now time.Time) {
	ec.Tested = true
	ec.LastUpdated = now
}

// Totals returns the endpoint counters, summed over resources when the
// endpoint is resource-iterated.
func (ec *EndpointCoverage) Totals() Counters {
	if !ec.PerResource() {
		return ec.Counters
	}
	var total Counters
	for _, rc := range ec.Resources {
		total.Add(rc.Counters)
	}
	return total
}

// PassRate returns the endpoint pass rate over all of its resources.
func (ec *EndpointCoverage) PassRate() float64 {
	return ec.Totals().PassRate()
}

// ChainCoverage is the coverage of every endpoint on one chain.
type ChainCoverage struct {
	Chain              string                       `json:"chain"`
	TotalResourceCount int                          `json:"totalResourceCount"`
	Endpoints          map[string]*EndpointCoverage `json:"endpoints"`
	LastUpdated        time.Time                    `json:"lastUpdated"`
}

// NewChainCoverage returns empty coverage for a chain.
func NewChainCoverage(name string, totalResources int) *ChainCoverage {
	return &ChainCoverage{
		Chain:              name,
		TotalResourceCount: totalResources,
		Endpoints:          make(map[string]*EndpointCoverage),
	}
}

// Endpoint returns the named endpoint coverage, creating it if needed.
func (cc *ChainCoverage) Endpoint(name string, perResource bool) *EndpointCoverage {
	ec, ok := cc.Endpoints[name]
	if !ok {
		ec = NewEndpointCoverage(name, perResource)
		cc.Endpoints[name] = ec
	}
	return ec
}

// TestedEndpoints returns how many endpoints have been tested at least once.
func (cc *ChainCoverage) TestedEndpoints() int {
	n := 0
	for _, ec := range cc.Endpoints {
		if ec.Tested {
			n++
		}
	}
	return n
}

// Totals sums the counters of every endpoint on the chain.
func (cc *ChainCoverage) Totals() Counters {
	var total Counters
	for _, ec := range cc.Endpoints {
		total.Add(ec.Totals())
	}
	return total
}

// Key addresses the coverage entry a run is recorded into.
type Key struct {
	Chain    string
	Endpoint string
	// Resource is empty for endpoint-level coverage.
	Resource string
}

// Store is the persisted coverage document.
type Store struct {
	Version string                    `json:"version"`
	Chains  map[string]*ChainCoverage `json:"chains"`
}

// New returns an empty store.
func New() *Store {
	return &Store{
		Version: FormatVersion,
		Chains:  make(map[string]*ChainCoverage),
	}
}

// Chain returns the named chain coverage, creating it if needed. A non-zero
// totalResources refreshes the stored resource count.
func (s *Store) Chain(name string, totalResources int) *ChainCoverage {
	cc, ok := s.Chains[name]
	if !ok {
		cc = NewChainCoverage(name, totalResources)
		s.Chains[name] = cc
	}
	if totalResources > 0 {
		cc.TotalResourceCount = totalResources
	}
	return cc
}

// RecordRun merges a run over r into the coverage addressed by key. A key
// with a Resource records per-resource coverage.
func (s *Store) RecordRun(key Key, r Range, counts Counters, now time.Time) {
	cc := s.Chain(key.Chain, 0)
	cc.LastUpdated = now
	if key.Resource != "" {
		cc.Endpoint(key.Endpoint, true).RecordResource(key.Resource, r, counts, now)
		return
	}
	cc.Endpoint(key.Endpoint, false).RecordRange(r, counts, now)
}

// RecordFlat adds the counters of a run with no identifier range.
func (s *Store) RecordFlat(key Key, counts Counters, now time.Time) {
	cc := s.Chain(key.Chain, 0)
	cc.LastUpdated = now
	cc.Endpoint(key.Endpoint, false).RecordFlat(counts, now)
}

// Lookup returns the endpoint coverage for key, or nil when absent.
func (s *Store) Lookup(chain, endpoint string) *EndpointCoverage {
	cc, ok := s.Chains[chain]
	if !ok {
		return nil
	}
	return cc.Endpoints[endpoint]
}
