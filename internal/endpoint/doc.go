// Package endpoint is the catalog of API routes that can be compared.
//
// Each endpoint belongs to one Category, which decides how a scan iterates
// it: account and pallet endpoints loop over resources and blocks, block
// endpoints loop over blocks, extrinsic endpoints discover a per-block count
// and fan out over indices, and runtime endpoints are requested once.
package endpoint
