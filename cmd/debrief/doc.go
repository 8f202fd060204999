// Command debrief is the CLI entry point: it runs the ingest daemon and
// provides uploader and poller subcommands that talk to the daemon's HTTP API.
package main
