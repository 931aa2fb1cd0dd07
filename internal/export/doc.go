// Package export orchestrates one reconciliation run: snapshot the
// inventory, classify locations into floor branches, then walk the
// remote tree top-down ensuring shelf, book, chapters and pages exist
// and carry fresh content.
//
// Runs are sequential and isolated. A single-item failure is recorded
// and its siblings continue; only an unreachable inventory or a failure
// to establish the shelf/book root fails the run as a whole.
// Cancellation is cooperative between items: the in-flight call
// finishes, the remaining items are recorded as cancelled, and the run
// completes with a partial result.
package export
