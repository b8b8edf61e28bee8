// Package batch drives one bounded run over catalog candidates.
//
// A Controller pulls candidates from the ledger's due set followed by the
// live seeding feed (or from explicit references), skips items the ledger
// says are not due, deduplicates equivalent editions, applies the
// eligibility rules, and prepares one transcode per eligible release.
// Prepared releases are then executed and published; each release's
// failure is isolated and recorded in the ledger, while batch aborts
// (interrupts and catalog protocol failures) stop the run immediately.
//
// The package also hosts the offline modes: Local transcodes a single
// folder, Test validates folders without producing output, and Download
// fetches bundle files for lists of references or collages.
package batch
