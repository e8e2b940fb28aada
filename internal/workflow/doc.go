// Package workflow advances queued enrichment jobs through the stage
// pipeline.
//
// The Manager runs a single worker loop that dequeues the next eligible job
// by priority and age, marks it processing, and hands it to the enrichment
// pipeline while recording progress, retry, and failure metadata back into
// the queue. Failures requeue the job with linear backoff until its attempt
// budget is spent; cancellation requests are honored at stage boundaries.
//
// The Manager is also the control surface for the IPC layer: enqueue, cancel,
// retry, and status all route through it so daemon and CLI share one set of
// semantics.
package workflow
