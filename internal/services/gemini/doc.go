// Package gemini wraps the Gemini generateContent REST API for JSON-only
// responses. The client retries transient failures (408/429/5xx, network
// timeouts) with exponential backoff, honoring Retry-After when the server
// provides one, and exposes DecodeModelJSON for tolerant parsing of model
// output that arrives wrapped in code fences or prose.
package gemini
