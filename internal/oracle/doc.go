// Package oracle defines the enrichment boundary: turning one audio chunk
// into a structured transcript, turning a merged meeting transcript into a
// MeetingInsight, and composing the narrative client overview. Implementations
// may be arbitrarily unreliable; the normalization helpers here guarantee the
// rest of the pipeline only ever sees clamped enums, capped lists, and valid
// dates regardless of what the model returned.
package oracle
