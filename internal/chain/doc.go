// Package chain holds the per-chain resource tables: the runtime pallets
// iterated by pallet endpoints and the accounts iterated by account
// endpoints.
//
// The tables ship as an embedded CUE document validated against an
// embedded schema. A replacement document can be loaded with LoadFile; it
// is checked against the same schema, so unknown fields and out-of-range
// pallet indices are rejected.
package chain
