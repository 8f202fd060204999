// Package daemon ties the long-running pieces together: single-instance
// locking, the job runner, the cron-scheduled cleanup sweep, and the HTTP API
// that uploaders and pollers talk to.
package daemon
