// Package memory defines the three persisted layers — the immutable raw
// MeetingEvent, the per-meeting MeetingInsight, and the long-lived
// ClientMemory — plus the deterministic reducer that folds a new insight into
// a client's memory. The reducer is a pure function: counts only grow, goals
// are never silently dropped, and the narrative overview passes through
// untouched (overview synthesis is a separate step with its own fallbacks).
package memory
