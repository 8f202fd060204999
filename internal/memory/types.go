package memory

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// ConfidenceLevel grades how much weight to give an extraction.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// Trend tracks the client's decision confidence across meetings.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendStable     Trend = "stable"
	TrendDecreasing Trend = "decreasing"
)

// Engagement grades how involved the client was.
type Engagement string

const (
	EngagementHigh   Engagement = "high"
	EngagementMedium Engagement = "medium"
	EngagementLow    Engagement = "low"
)

// ClampConfidence constrains value to the confidence enum, returning fallback
// for anything else.
func ClampConfidence(value string, fallback ConfidenceLevel) ConfidenceLevel {
	switch ConfidenceLevel(value) {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return ConfidenceLevel(value)
	default:
		return fallback
	}
}

// ClampEngagement constrains value to the engagement enum, returning fallback
// for anything else.
func ClampEngagement(value string, fallback Engagement) Engagement {
	switch Engagement(value) {
	case EngagementHigh, EngagementMedium, EngagementLow:
		return Engagement(value)
	default:
		return fallback
	}
}

// ClampTrend constrains value to the trend enum. Models occasionally answer
// "positive"/"negative"; map those before falling back to stable.
func ClampTrend(value string) Trend {
	switch Trend(value) {
	case TrendIncreasing, TrendStable, TrendDecreasing:
		return Trend(value)
	}
	switch value {
	case "positive":
		return TrendIncreasing
	case "negative":
		return TrendDecreasing
	default:
		return TrendStable
	}
}

// MeetingEvent is the Layer 1 record: the raw reassembled meeting. Written
// exactly once per successful merge; reruns overwrite it wholesale.
type MeetingEvent struct {
	EventID       string            `json:"event_id"`
	MeetingID     string            `json:"meeting_id"`
	ClientID      string            `json:"client_id"`
	Timestamp     time.Time         `json:"timestamp"`
	AudioChunkRef []string          `json:"audio_chunks_ref"`
	Transcript    string            `json:"transcript"`
	SpeakerMap    map[string]string `json:"speaker_map"`
}

// NewEventID returns a sortable identifier for a meeting event.
func NewEventID() string {
	return ulid.Make().String()
}

// FinancialGoal is a named goal with its latest confirmed status.
type FinancialGoal struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// MeetingInsight is the Layer 2 record: the structured analysis of one
// meeting. Every field is evidence for the reducer; absent evidence leaves
// the corresponding memory field untouched.
type MeetingInsight struct {
	MeetingID            string            `json:"meeting_id"`
	IsFinancialMeeting   bool              `json:"is_financial_meeting"`
	FinancialProducts    []string          `json:"financial_products"`
	ClientIntent         string            `json:"client_intent"`
	MeetingSummary       []string          `json:"meeting_summary"`
	ActionItems          []string          `json:"action_items"`
	CompletedActionItems []string          `json:"completed_action_items,omitempty"`
	FollowUps            []string          `json:"follow_ups"`
	FollowUpDate         string            `json:"follow_up_date,omitempty"`
	ConfidenceLevel      ConfidenceLevel   `json:"confidence_level"`
	EngagementLevel      string            `json:"engagement_level,omitempty"`
	ClientDetails        map[string]string `json:"client_details,omitempty"`
	FinancialGoals       []FinancialGoal   `json:"financial_goals,omitempty"`
	Objections           []string          `json:"objections,omitempty"`
	RiskProfile          string            `json:"risk_profile,omitempty"`
	PreferredProducts    []string          `json:"preferred_products,omitempty"`
	DisfavoredProducts   []string          `json:"disfavored_products,omitempty"`
}

// ClientMemory is the Layer 3 record: the slow-changing per-client profile.
// Exactly one exists per client, created lazily with defaults.
type ClientMemory struct {
	ClientID string `json:"client_id"`

	// Stable identity and preferences.
	Profile            map[string]string `json:"profile"`
	RiskProfile        string            `json:"risk_profile,omitempty"`
	PreferredProducts  []string          `json:"preferred_products"`
	DisfavoredProducts []string          `json:"disfavored_products"`

	// Financial trajectory, derived over time.
	ActiveFinancialGoals []FinancialGoal `json:"active_financial_goals"`
	DiscussedProducts    map[string]int  `json:"discussed_products"`
	ObjectionsHistory    []string        `json:"objections_history"`

	// Behavioral signals.
	DecisionConfidenceTrend Trend      `json:"decision_confidence_trend"`
	EngagementLevel         Engagement `json:"engagement_level"`

	// Commitments and follow-ups.
	PendingActionItems []string `json:"pending_action_items"`
	LastFollowUpDate   string   `json:"last_follow_up_date,omitempty"`

	// Memory hygiene.
	LastUpdatedFromMeetingID string          `json:"last_updated_from_meeting_id,omitempty"`
	MemoryConfidence         ConfidenceLevel `json:"memory_confidence"`
	ClientOverview           string          `json:"client_overview,omitempty"`
}

// NewClientMemory returns the default memory for a client seen for the first
// time.
func NewClientMemory(clientID string) ClientMemory {
	return ClientMemory{
		ClientID:                clientID,
		Profile:                 make(map[string]string),
		PreferredProducts:       []string{},
		DisfavoredProducts:      []string{},
		ActiveFinancialGoals:    []FinancialGoal{},
		DiscussedProducts:       make(map[string]int),
		ObjectionsHistory:       []string{},
		DecisionConfidenceTrend: TrendStable,
		EngagementLevel:         EngagementMedium,
		PendingActionItems:      []string{},
		MemoryConfidence:        ConfidenceMedium,
	}
}
