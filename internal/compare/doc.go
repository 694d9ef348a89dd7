// Package compare issues the same request to two JSON APIs and classifies
// the pair of responses.
//
// A comparison always yields exactly one Outcome:
//
//	Match       both sides returned equal JSON documents
//	Mismatch    both sides returned JSON that differs
//	LeftError   only the left (reference) side failed
//	RightError  only the right (candidate) side failed
//	BothError   both sides failed
//
// Fetch failures are collapsed into a single message per side. Transport
// errors render as "Request failed: <detail>", non-2xx statuses as
// "HTTP <code> <reason>" and undecodable bodies as "Invalid JSON: <detail>".
// Per-request failures are data, never Go errors.
package compare
