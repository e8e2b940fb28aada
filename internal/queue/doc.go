// Package queue persists enrichment jobs in SQLite and exposes the guarded
// transition functions that drive their lifecycle.
//
// The Store is the single source of truth for job records. Every mutation is
// durably written before the matching lifecycle event is emitted, so a
// subscriber that reloads from storage on event receipt never observes stale
// data. Jobs found in processing state at open time belonged to a worker
// process that no longer exists and are reset to pending.
//
// Dequeue order is deterministic: priority tier (high, normal, low), then
// creation time within a tier. Retried jobs carry a not-before timestamp and
// stay ineligible until their backoff window passes.
//
// Treat this package as the authoritative home for queue semantics; new
// statuses or fields mean a new migration under migrations/.
package queue
