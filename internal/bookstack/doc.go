// Package bookstack provides a typed client for the BookStack REST API,
// covering the four tree levels the exporter writes to: shelves, books,
// chapters, and pages.
//
// The package is split into two layers:
//
//   - Client: stateless request layer. Owns the HTTP transport, token
//     authentication, request pacing, and the transient-fault retry policy.
//     Safe for concurrent use and reusable across export runs.
//   - Session: run-scoped layer on top of a Client. Holds the
//     find-or-create cache that guarantees at most one creation attempt
//     per (parent, name) pair within a run. Create one per export run and
//     discard it afterwards.
//
// Response decoding is deliberately tolerant: only the fields the exporter
// uses are typed, and any additional fields a BookStack version returns are
// retained opaquely in the node's Extra map rather than causing a decode
// error. The BookStack API schema grows fields across releases; decoding
// must never break because of that.
//
// Failure classification follows the API's status codes: authentication
// (401/403) and validation (400/422) failures are terminal and surface
// immediately; rate limits (429), server errors (5xx), and network faults
// are retried with exponential backoff before surfacing.
//
// Usage:
//
//	client, err := bookstack.New(cfg.BookStack, logger)
//	if err != nil { ... }
//	session := client.NewSession()
//	book, err := session.FindOrCreateBook(ctx, "Smarthome", "...")
package bookstack
