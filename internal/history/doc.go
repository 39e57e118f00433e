// Package history persists a ledger of batch runs and per-job outcomes in
// SQLite.
//
// A run row is opened when a batch starts and closed with its final status.
// Each job the executor touches (done, failed, skipped or interrupted) is
// recorded against the run so `recproc history` can show what happened
// without digging through log files.
package history
