package coverage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Load reads the coverage store at path. A missing file yields an empty
// store. Ranges are re-normalized on load so hand-edited files stay valid.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read coverage file: %w", err)
	}

	s := New()
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse coverage file %s: %w", path, err)
	}
	if s.Version != FormatVersion {
		return nil, fmt.Errorf("coverage file %s: unsupported version %q (want %q)", path, s.Version, FormatVersion)
	}
	if s.Chains == nil {
		s.Chains = make(map[string]*ChainCoverage)
	}
	for _, cc := range s.Chains {
		if cc.Endpoints == nil {
			cc.Endpoints = make(map[string]*EndpointCoverage)
		}
		for _, ec := range cc.Endpoints {
			if ec.Ranges == nil {
				ec.Ranges = Ranges{}
			}
			ec.Ranges.normalize()
			for _, rc := range ec.Resources {
				if rc.Ranges == nil {
					rc.Ranges = Ranges{}
				}
				rc.Ranges.normalize()
			}
		}
	}
	return s, nil
}

// Save writes the store to path as indented JSON. The parent directory is
// created if needed and the file is replaced atomically.
func (s *Store) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode coverage: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create coverage directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp coverage file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write coverage file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close coverage file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace coverage file: %w", err)
	}
	return nil
}
