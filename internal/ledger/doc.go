// Package ledger persists per-item processing outcomes so a batch run never
// reprocesses the same catalog item twice and knows which failures may be
// retried.
//
// The Ledger keeps every record in memory behind a mutex and writes the whole
// snapshot to its Medium after each mutation. The default medium is a SQLite
// file; a store that cannot be read at startup is moved aside and the ledger
// starts empty. RetryPolicy values decide whether operational errors stay
// retry-eligible, and Lock guards the ledger file against concurrent runs.
package ledger
