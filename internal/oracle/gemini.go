package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"debrief/internal/logging"
	"debrief/internal/memory"
	"debrief/internal/services"
	"debrief/internal/services/gemini"
)

// Gemini implements Oracle on top of the generateContent API, using a fast
// transcription model for per-chunk work and the configured analysis model
// for meeting-level extraction.
type Gemini struct {
	client             *gemini.Client
	transcriptionModel string
	analysisModel      string
	logger             *slog.Logger
}

// NewGemini constructs the Gemini-backed oracle. An empty transcription
// model reuses the analysis model.
func NewGemini(client *gemini.Client, transcriptionModel, analysisModel string, logger *slog.Logger) *Gemini {
	if logger == nil {
		logger = logging.NewNop()
	}
	if strings.TrimSpace(transcriptionModel) == "" {
		transcriptionModel = analysisModel
	}
	return &Gemini{
		client:             client,
		transcriptionModel: transcriptionModel,
		analysisModel:      analysisModel,
		logger:             logging.NewComponentLogger(logger, "oracle"),
	}
}

func (g *Gemini) AnalyzeChunk(ctx context.Context, audio []byte, mimeType string) (Transcript, error) {
	if len(audio) == 0 {
		return Transcript{}, services.Wrap(services.ErrValidation, "oracle", "analyze_chunk", "empty audio chunk", nil)
	}
	content, err := g.client.GenerateJSON(ctx, g.transcriptionModel,
		gemini.TextPart(transcriptionPrompt),
		gemini.BlobPart(mimeType, audio),
	)
	if err != nil {
		return Transcript{}, services.Wrap(services.ErrExternalService, "oracle", "analyze_chunk", "transcription request failed", err)
	}
	var transcript Transcript
	if err := gemini.DecodeModelJSON(content, &transcript); err != nil {
		return Transcript{}, services.Wrap(services.ErrExternalService, "oracle", "analyze_chunk", "malformed transcription payload", err)
	}
	transcript = NormalizeTranscript(transcript)
	g.logger.DebugContext(ctx, "chunk transcribed",
		logging.Int("segments", len(transcript.Segments)))
	return transcript, nil
}

func (g *Gemini) AnalyzeMeeting(ctx context.Context, meetingID, mergedText string) (memory.MeetingInsight, error) {
	var insight memory.MeetingInsight
	if strings.TrimSpace(mergedText) == "" {
		// Nothing transcribable arrived; an empty insight with low
		// confidence is still a valid meeting outcome.
		return NormalizeInsight(meetingID, insight), nil
	}
	prompt := analysisPrompt + "\n\nTranscript:\n" + mergedText
	content, err := g.client.GenerateJSON(ctx, g.analysisModel, gemini.TextPart(prompt))
	if err != nil {
		return insight, services.Wrap(services.ErrExternalService, "oracle", "analyze_meeting", "analysis request failed", err)
	}
	if err := gemini.DecodeModelJSON(content, &insight); err != nil {
		return insight, services.Wrap(services.ErrExternalService, "oracle", "analyze_meeting", "malformed analysis payload", err)
	}
	insight = NormalizeInsight(meetingID, insight)
	g.logger.DebugContext(ctx, "meeting analyzed",
		logging.String(logging.FieldMeetingID, meetingID),
		logging.Int("summary_bullets", len(insight.MeetingSummary)),
		logging.String("confidence", string(insight.ConfidenceLevel)))
	return insight, nil
}

func (g *Gemini) ComposeOverview(ctx context.Context, mem memory.ClientMemory, insight memory.MeetingInsight) (string, error) {
	facts, err := overviewFacts(mem, insight)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "oracle", "compose_overview", "encode memory facts", err)
	}
	prompt := overviewPrompt + "\n\nClient notes:\n" + facts
	content, err := g.client.GenerateJSON(ctx, g.analysisModel, gemini.TextPart(prompt))
	if err != nil {
		return "", services.Wrap(services.ErrExternalService, "oracle", "compose_overview", "overview request failed", err)
	}
	var parsed struct {
		Overview string `json:"overview"`
	}
	if err := gemini.DecodeModelJSON(content, &parsed); err != nil {
		return "", services.Wrap(services.ErrExternalService, "oracle", "compose_overview", "malformed overview payload", err)
	}
	return strings.TrimSpace(parsed.Overview), nil
}

// overviewFacts serializes the memory fields the overview should draw on,
// leaving out the overview itself so stale narrative cannot echo back.
func overviewFacts(mem memory.ClientMemory, insight memory.MeetingInsight) (string, error) {
	payload := struct {
		Profile            map[string]string      `json:"profile"`
		RiskProfile        string                 `json:"risk_profile,omitempty"`
		Goals              []memory.FinancialGoal `json:"active_financial_goals"`
		PreferredProducts  []string               `json:"preferred_products"`
		DisfavoredProducts []string               `json:"disfavored_products"`
		DiscussedProducts  map[string]int         `json:"discussed_products"`
		Objections         []string               `json:"objections_history"`
		Engagement         memory.Engagement      `json:"engagement_level"`
		Trend              memory.Trend           `json:"decision_confidence_trend"`
		PendingActionItems []string               `json:"pending_action_items"`
		LatestSummary      []string               `json:"latest_meeting_summary"`
	}{
		Profile:            mem.Profile,
		RiskProfile:        mem.RiskProfile,
		Goals:              mem.ActiveFinancialGoals,
		PreferredProducts:  mem.PreferredProducts,
		DisfavoredProducts: mem.DisfavoredProducts,
		DiscussedProducts:  mem.DiscussedProducts,
		Objections:         mem.ObjectionsHistory,
		Engagement:         mem.EngagementLevel,
		Trend:              mem.DecisionConfidenceTrend,
		PendingActionItems: mem.PendingActionItems,
		LatestSummary:      insight.MeetingSummary,
	}
	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal overview facts: %w", err)
	}
	return string(encoded), nil
}
