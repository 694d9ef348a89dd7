package chain

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed schema.cue
var schemaSource []byte

//go:embed chains.cue
var defaultSource []byte

// ErrUnknownChain is returned by Lookup for a name matching no chain.
var ErrUnknownChain = errors.New("unknown chain")

// Pallet is a runtime pallet and its index in construct_runtime!.
type Pallet struct {
	Name  string `json:"name"`
	Index int    `json:"index"`
}

// Account is a test account.
type Account struct {
	Label   string `json:"label"`
	Address string `json:"address"`
}

// Chain is one chain's resource table.
type Chain struct {
	Name            string    `json:"-"`
	Aliases         []string  `json:"aliases"`
	Pallets         []Pallet  `json:"pallets"`
	Accounts        []Account `json:"accounts"`
	StakingAccounts []Account `json:"stakingAccounts"`
}

// FilterPallets returns the pallets whose name contains substr, ignoring
// case. An empty substr returns every pallet.
func (c *Chain) FilterPallets(substr string) []Pallet {
	if substr == "" {
		return slices.Clone(c.Pallets)
	}
	needle := strings.ToLower(substr)
	var out []Pallet
	for _, p := range c.Pallets {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			out = append(out, p)
		}
	}
	return out
}

// FilterAccounts returns the accounts whose label or address contains
// substr, ignoring case. staking selects the stash account list.
func (c *Chain) FilterAccounts(substr string, staking bool) []Account {
	accounts := c.Accounts
	if staking {
		accounts = c.StakingAccounts
	}
	if substr == "" {
		return slices.Clone(accounts)
	}
	needle := strings.ToLower(substr)
	var out []Account
	for _, a := range accounts {
		if strings.Contains(strings.ToLower(a.Label), needle) || strings.Contains(strings.ToLower(a.Address), needle) {
			out = append(out, a)
		}
	}
	return out
}

// Registry is the set of known chains, in declaration order.
type Registry struct {
	chains []*Chain
}

// Default returns the embedded chain tables.
func Default() (*Registry, error) {
	return Load(defaultSource, "chains.cue")
}

// LoadFile reads a replacement chain table from a CUE file.
func LoadFile(path string) (*Registry, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chain table: %w", err)
	}
	return Load(src, path)
}

// Load compiles src, validates it against the chain schema and decodes
// every entry under "chains".
func Load(src []byte, filename string) (*Registry, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile chain schema: %w", err)
	}

	doc := ctx.CompileBytes(src, cue.Filename(filename))
	if err := doc.Err(); err != nil {
		return nil, fmt.Errorf("compile %s: %w", filename, err)
	}

	value := schema.Unify(doc)
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validate %s: %w", filename, err)
	}

	chainsVal := value.LookupPath(cue.ParsePath("chains"))
	if !chainsVal.Exists() {
		return nil, fmt.Errorf("%s: no chains defined", filename)
	}

	iter, err := chainsVal.Fields()
	if err != nil {
		return nil, fmt.Errorf("iterate chains: %w", err)
	}

	reg := &Registry{}
	for iter.Next() {
		c := &Chain{}
		if err := iter.Value().Decode(c); err != nil {
			return nil, fmt.Errorf("decode chain %s: %w", iter.Label(), err)
		}
		c.Name = iter.Label()
		reg.chains = append(reg.chains, c)
	}
	if len(reg.chains) == 0 {
		return nil, fmt.Errorf("%s: no chains defined", filename)
	}
	return reg, nil
}

// Lookup finds a chain by name or alias, ignoring case.
func (r *Registry) Lookup(name string) (*Chain, error) {
	for _, c := range r.chains {
		if strings.EqualFold(c.Name, name) {
			return c, nil
		}
		for _, alias := range c.Aliases {
			if strings.EqualFold(alias, name) {
				return c, nil
			}
		}
	}
	return nil, fmt.Errorf("%w '%s'. Valid options: %s", ErrUnknownChain, name, strings.Join(r.Names(), ", "))
}

// Names returns the canonical chain names in declaration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.chains))
	for i, c := range r.chains {
		names[i] = c.Name
	}
	return names
}

// Chains returns every chain in declaration order.
func (r *Registry) Chains() []*Chain {
	return slices.Clone(r.chains)
}
