// Package plan loads YAML scan plans: a list of scans that run in order
// against shared defaults.
package plan

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/parity/internal/endpoint"
)

// Plan is a parsed plan file.
//
//	defaults:
//	  chain: polkadot
//	  left: http://localhost:8080/v1
//	  right: http://localhost:8045
//	  batch_size: 50
//	  delay: 250ms
//	scans:
//	  - endpoint: block
//	    start: 1000
//	    end: 1999
//	  - endpoint: consts
//	    resource: balances
type Plan struct {
	Name     string   `yaml:"name,omitempty"`
	Defaults Defaults `yaml:"defaults,omitempty"`
	Scans    []Scan   `yaml:"scans"`
}

// Defaults are the settings shared by every scan of a plan. Empty fields
// fall through to the next layer.
type Defaults struct {
	Chain     string         `yaml:"chain,omitempty"`
	Left      string         `yaml:"left,omitempty"`
	Right     string         `yaml:"right,omitempty"`
	BatchSize int            `yaml:"batch_size,omitempty"`
	Delay     *time.Duration `yaml:"delay,omitempty"`
}

// Scan is one entry of a plan.
type Scan struct {
	Endpoint  string  `yaml:"endpoint"`
	Chain     string  `yaml:"chain,omitempty"`
	Resource  string  `yaml:"resource,omitempty"`
	Start     *uint64 `yaml:"start,omitempty"`
	End       *uint64 `yaml:"end,omitempty"`
	BatchSize int     `yaml:"batch_size,omitempty"`
}

// Job is a scan with every default applied.
type Job struct {
	Chain    string
	Endpoint *endpoint.Endpoint
	Resource string
	LeftURL  string
	RightURL string
	Start    uint64
	// End is nil when the scan runs to the left server's head block.
	End       *uint64
	BatchSize int
	Delay     time.Duration
}

// Load reads and parses a plan file.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a plan, rejecting unknown fields, and validates it.
func Parse(data []byte) (*Plan, error) {
	var p Plan
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}
	return &p, nil
}

func (p *Plan) validate() error {
	if len(p.Scans) == 0 {
		return errors.New("scans list is required and must be non-empty")
	}
	if p.Defaults.BatchSize < 0 {
		return fmt.Errorf("defaults: batch_size must be positive, got %d", p.Defaults.BatchSize)
	}
	if p.Defaults.Delay != nil && *p.Defaults.Delay < 0 {
		return fmt.Errorf("defaults: delay must not be negative, got %s", *p.Defaults.Delay)
	}

	for i, s := range p.Scans {
		if s.Endpoint == "" {
			return fmt.Errorf("scans[%d]: endpoint is required", i)
		}
		if _, err := endpoint.Parse(s.Endpoint); err != nil {
			return fmt.Errorf("scans[%d]: %w", i, err)
		}
		if s.Start != nil && s.End != nil && *s.Start > *s.End {
			return fmt.Errorf("scans[%d]: start %d is after end %d", i, *s.Start, *s.End)
		}
		if s.BatchSize < 0 {
			return fmt.Errorf("scans[%d]: batch_size must be positive, got %d", i, s.BatchSize)
		}
	}
	return nil
}

// Jobs resolves every scan against the plan defaults, then against base.
func (p *Plan) Jobs(base Defaults) ([]Job, error) {
	d := base.merge(p.Defaults)

	jobs := make([]Job, 0, len(p.Scans))
	for i, s := range p.Scans {
		ep, err := endpoint.Parse(s.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("scans[%d]: %w", i, err)
		}

		job := Job{
			Chain:     d.Chain,
			Endpoint:  ep,
			Resource:  s.Resource,
			LeftURL:   d.Left,
			RightURL:  d.Right,
			End:       s.End,
			BatchSize: d.BatchSize,
		}
		if d.Delay != nil {
			job.Delay = *d.Delay
		}
		if s.Chain != "" {
			job.Chain = s.Chain
		}
		if s.Start != nil {
			job.Start = *s.Start
		}
		if s.BatchSize > 0 {
			job.BatchSize = s.BatchSize
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// merge returns d with every set field of over applied.
func (d Defaults) merge(over Defaults) Defaults {
	if over.Chain != "" {
		d.Chain = over.Chain
	}
	if over.Left != "" {
		d.Left = over.Left
	}
	if over.Right != "" {
		d.Right = over.Right
	}
	if over.BatchSize > 0 {
		d.BatchSize = over.BatchSize
	}
	if over.Delay != nil {
		d.Delay = over.Delay
	}
	return d
}
