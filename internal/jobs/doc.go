// Package jobs provides the durable task queue the pipeline stages run on.
// Jobs live in a SQLite table with at-least-once delivery: a claim is an
// atomic status flip, handlers may be retried with backoff, and a
// caller-supplied idempotency key makes duplicate enqueues collapse into one
// row. The Runner owns a pool of workers that poll for claimable jobs and
// dispatch them to registered handlers.
package jobs
