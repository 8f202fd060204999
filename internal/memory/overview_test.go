package memory

import (
	"strings"
	"testing"
)

func TestSanitizeOverviewRejectsShortText(t *testing.T) {
	if got := SanitizeOverview("Too short."); got != "" {
		t.Fatalf("expected rejection, got %q", got)
	}
}

func TestSanitizeOverviewTrimsWrappers(t *testing.T) {
	text := `"The client is a salaried professional in Pune saving toward a house downpayment."`
	got := SanitizeOverview(text)
	if got == "" || strings.HasPrefix(got, `"`) {
		t.Fatalf("quotes not stripped: %q", got)
	}
}

func TestSanitizeOverviewTruncatesToSentenceBoundary(t *testing.T) {
	text := "The client is a salaried professional saving toward a house downpayment. They prefer low-risk instr"
	got := SanitizeOverview(text)
	want := "The client is a salaried professional saving toward a house downpayment."
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSanitizeOverviewCapsLength(t *testing.T) {
	sentence := "The client keeps a steady savings habit and reviews allocations quarterly. "
	long := strings.Repeat(sentence, 10)
	got := SanitizeOverview(long)
	if len(got) > 500 {
		t.Fatalf("overview exceeds cap: %d chars", len(got))
	}
	if !strings.HasSuffix(got, ".") {
		t.Fatalf("capped overview should end on a sentence boundary, got %q", got)
	}
}

func TestSanitizeOverviewEllipsizesWithoutBoundary(t *testing.T) {
	long := strings.Repeat("a", 520) + "."
	got := SanitizeOverview(long)
	if len(got) != 500 || !strings.HasSuffix(got, "...") {
		t.Fatalf("expected 500-char ellipsized text, got %d chars ending %q", len(got), got[len(got)-5:])
	}
}

func TestApplyOverviewKeepsPriorOnFailure(t *testing.T) {
	mem := NewClientMemory("c1")
	mem.ClientOverview = "An established client with a balanced portfolio and regular review cadence."

	if got := ApplyOverview(mem, "tiny"); got != mem.ClientOverview {
		t.Fatalf("prior overview should survive a failed generation, got %q", got)
	}
}

func TestApplyOverviewFallsBackToStructuredSummary(t *testing.T) {
	mem := NewClientMemory("c1")
	mem.Profile["name"] = "Asha Rao"
	mem.RiskProfile = "moderate"
	mem.ActiveFinancialGoals = []FinancialGoal{{Name: "retirement corpus", Status: "in_progress"}}
	mem.DiscussedProducts["SIP"] = 2

	got := ApplyOverview(mem, "")
	if !strings.Contains(got, "Asha Rao") || !strings.Contains(got, "retirement corpus") {
		t.Fatalf("fallback overview missing structured facts: %q", got)
	}
	if len(got) > 500 {
		t.Fatalf("fallback exceeds cap: %d", len(got))
	}
}
