// Package pipeline implements the meeting processing flow: chunk intake with
// an upload barrier, fan-out transcription, a processed-counter barrier, and
// an exactly-once merge that writes the three persisted layers and publishes
// the outcome for polling clients.
//
// The stages run as queued jobs under at-least-once delivery. Correctness
// relies on three things only: set-inserts and counter increments in the
// coordination store are atomic, merge scheduling uses a per-meeting
// idempotency key, and every durable write is a by-key overwrite so reruns
// are safe.
package pipeline
