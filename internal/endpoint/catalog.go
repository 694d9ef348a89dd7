package endpoint

import (
	"fmt"
	"strings"
)

var catalog = []*Endpoint{
	{Name: "account-balance-info", Aliases: []string{"accounts-balance-info", "balance-info"}, Category: CategoryAccount,
		template: "/accounts/{account}/balance-info", atQuery: true},
	{Name: "account-staking-info", Aliases: []string{"accounts-staking-info", "staking-info"}, Category: CategoryAccount, Staking: true,
		template: "/accounts/{account}/staking-info", atQuery: true},

	{Name: "block", Aliases: []string{"blocks"}, Category: CategoryBlock,
		template: "/blocks/{block}"},
	{Name: "block-header", Aliases: []string{"header"}, Category: CategoryBlock,
		template: "/blocks/{block}/header"},
	{Name: "block-extrinsics", Aliases: []string{"extrinsics"}, Category: CategoryBlock,
		template: "/blocks/{block}/extrinsics-info"},
	{Name: "block-extrinsics-raw", Aliases: []string{"extrinsics-raw"}, Category: CategoryBlock,
		template: "/blocks/{block}/extrinsics-raw"},
	{Name: "block-para-inclusions", Aliases: []string{"para-inclusions"}, Category: CategoryBlock,
		template: "/blocks/{block}/para-inclusions"},

	{Name: "block-extrinsics-idx", Aliases: []string{"extrinsics-idx"}, Category: CategoryExtrinsic,
		template: "/blocks/{block}/extrinsics/{index}", countPath: "/blocks/{block}/extrinsics-raw"},
	{Name: "block-extrinsics-idx-rcblock", Aliases: []string{"extrinsics-idx-rcblock"}, Category: CategoryExtrinsic,
		template: "/blocks/{block}/extrinsics/{index}?useRcBlock=true", countPath: "/blocks/{block}/extrinsics-raw?useRcBlock=true"},
	{Name: "rc-block-extrinsics-idx", Aliases: []string{"rc-extrinsics-idx"}, Category: CategoryExtrinsic,
		template: "/rc/blocks/{block}/extrinsics/{index}", countPath: "/rc/blocks/{block}/extrinsics-raw"},

	{Name: "consts", Aliases: []string{"pallet-consts"}, Category: CategoryPallet,
		template: "/pallets/{resource}/consts", atQuery: true},
	{Name: "storage", Aliases: []string{"pallet-storage"}, Category: CategoryPallet,
		template: "/pallets/{resource}/storage", atQuery: true},
	{Name: "dispatchables", Aliases: []string{"pallet-dispatchables"}, Category: CategoryPallet,
		template: "/pallets/{resource}/dispatchables", atQuery: true},
	{Name: "errors", Aliases: []string{"pallet-errors"}, Category: CategoryPallet,
		template: "/pallets/{resource}/errors", atQuery: true},
	{Name: "events", Aliases: []string{"pallet-events"}, Category: CategoryPallet,
		template: "/pallets/{resource}/events", atQuery: true},

	{Name: "runtime-spec", Aliases: []string{"spec"}, Category: CategoryRuntime,
		template: "/runtime/spec", atQuery: true},
	{Name: "runtime-metadata", Aliases: []string{"metadata"}, Category: CategoryRuntime,
		template: "/runtime/metadata", atQuery: true},
	{Name: "tx-material", Aliases: []string{"transaction-material"}, Category: CategoryRuntime,
		template: "/transaction/material", atQuery: true},
	{Name: "node-version", Aliases: []string{"version"}, Category: CategoryRuntime,
		template: "/node/version"},
	{Name: "node-network", Aliases: []string{"network"}, Category: CategoryRuntime,
		template: "/node/network"},
}

var categoryOrder = []Category{CategoryAccount, CategoryBlock, CategoryExtrinsic, CategoryPallet, CategoryRuntime}

// Categories returns the categories in display order.
func Categories() []Category {
	return append([]Category(nil), categoryOrder...)
}

// All returns every endpoint in catalog order.
func All() []*Endpoint {
	out := make([]*Endpoint, len(catalog))
	copy(out, catalog)
	return out
}

// ByCategory returns the endpoints of one category in catalog order.
func ByCategory(c Category) []*Endpoint {
	var out []*Endpoint
	for _, e := range catalog {
		if e.Category == c {
			out = append(out, e)
		}
	}
	return out
}

// Parse resolves an endpoint by name or alias, ignoring case.
func Parse(name string) (*Endpoint, error) {
	for _, e := range catalog {
		if strings.EqualFold(e.Name, name) {
			return e, nil
		}
		for _, alias := range e.Aliases {
			if strings.EqualFold(alias, name) {
				return e, nil
			}
		}
	}
	return nil, fmt.Errorf("%w '%s'. Valid options:\n%s", ErrUnknownEndpoint, name, validNames())
}

func validNames() string {
	var b strings.Builder
	for _, c := range categoryOrder {
		eps := ByCategory(c)
		names := make([]string, len(eps))
		for i, e := range eps {
			names[i] = e.Name
		}
		fmt.Fprintf(&b, "  %s: %s\n", c, strings.Join(names, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}
