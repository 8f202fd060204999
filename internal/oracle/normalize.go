package oracle

import (
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"debrief/internal/memory"
)

const maxSummaryBullets = 5

var validEmotions = map[string]struct{}{
	"happy":   {},
	"sad":     {},
	"angry":   {},
	"neutral": {},
}

// NormalizeTranscript clamps a model-produced transcript into the shape the
// pipeline relies on: every segment has a speaker, a recognized emotion, and
// a canonical language tag. Empty segments are dropped.
func NormalizeTranscript(t Transcript) Transcript {
	out := Transcript{
		Summary:  strings.TrimSpace(t.Summary),
		Segments: make([]Segment, 0, len(t.Segments)),
	}
	for _, segment := range t.Segments {
		segment.Content = strings.TrimSpace(segment.Content)
		if segment.Content == "" {
			continue
		}
		segment.Speaker = strings.TrimSpace(segment.Speaker)
		if segment.Speaker == "" {
			segment.Speaker = "Speaker 1"
		}
		segment.Timestamp = strings.TrimSpace(segment.Timestamp)
		segment.Emotion = normalizeEmotion(segment.Emotion)
		segment.LanguageCode, segment.Language = normalizeLanguage(segment.LanguageCode, segment.Language)
		out.Segments = append(out.Segments, segment)
	}
	return out
}

func normalizeEmotion(emotion string) string {
	emotion = strings.ToLower(strings.TrimSpace(emotion))
	if _, ok := validEmotions[emotion]; ok {
		return emotion
	}
	return "neutral"
}

// normalizeLanguage canonicalizes the BCP 47 code and derives the display
// name when the model left it blank. Unparseable codes default to English.
func normalizeLanguage(code, name string) (string, string) {
	tag, err := language.Parse(strings.TrimSpace(code))
	if err != nil {
		tag = language.English
	}
	canonical := tag.String()
	name = strings.TrimSpace(name)
	if name == "" {
		name = display.English.Tags().Name(tag)
	}
	return canonical, name
}

// NormalizeInsight clamps a model-produced insight. Confidence defaults to
// low when the model omits it, summary bullets are capped, and an invalid
// follow-up date is discarded rather than propagated.
func NormalizeInsight(meetingID string, insight memory.MeetingInsight) memory.MeetingInsight {
	insight.MeetingID = meetingID
	insight.ClientIntent = strings.TrimSpace(insight.ClientIntent)
	insight.RiskProfile = strings.TrimSpace(insight.RiskProfile)

	insight.ConfidenceLevel = memory.ClampConfidence(string(insight.ConfidenceLevel), memory.ConfidenceLow)
	if insight.EngagementLevel != "" {
		insight.EngagementLevel = string(memory.ClampEngagement(insight.EngagementLevel, memory.EngagementMedium))
	}

	insight.MeetingSummary = trimList(insight.MeetingSummary)
	if len(insight.MeetingSummary) > maxSummaryBullets {
		insight.MeetingSummary = insight.MeetingSummary[:maxSummaryBullets]
	}
	insight.FinancialProducts = trimList(insight.FinancialProducts)
	insight.ActionItems = trimList(insight.ActionItems)
	insight.CompletedActionItems = trimList(insight.CompletedActionItems)
	insight.FollowUps = trimList(insight.FollowUps)
	insight.Objections = trimList(insight.Objections)
	insight.PreferredProducts = trimList(insight.PreferredProducts)
	insight.DisfavoredProducts = trimList(insight.DisfavoredProducts)

	goals := insight.FinancialGoals[:0]
	for _, goal := range insight.FinancialGoals {
		goal.Name = strings.TrimSpace(goal.Name)
		goal.Status = strings.TrimSpace(goal.Status)
		if goal.Name == "" {
			continue
		}
		goals = append(goals, goal)
	}
	insight.FinancialGoals = goals

	if date := strings.TrimSpace(insight.FollowUpDate); date != "" {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			insight.FollowUpDate = ""
		} else {
			insight.FollowUpDate = date
		}
	}
	return insight
}

func trimList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
