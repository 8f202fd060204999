package memory

import (
	"reflect"
	"testing"
)

func TestReduceAccumulatesDiscussedProducts(t *testing.T) {
	mem := NewClientMemory("c1")
	insight := MeetingInsight{
		MeetingID:         "m1",
		FinancialProducts: []string{"SIP"},
		ConfidenceLevel:   ConfidenceMedium,
	}

	mem = Reduce(mem, insight)
	if mem.DiscussedProducts["SIP"] != 1 {
		t.Fatalf("expected SIP count 1, got %d", mem.DiscussedProducts["SIP"])
	}
	mem = Reduce(mem, insight)
	if mem.DiscussedProducts["SIP"] != 2 {
		t.Fatalf("expected SIP count 2 after second fold, got %d", mem.DiscussedProducts["SIP"])
	}
}

func TestReduceWithoutEvidenceLeavesFieldsUntouched(t *testing.T) {
	mem := NewClientMemory("c1")
	mem.ActiveFinancialGoals = []FinancialGoal{{Name: "retirement corpus", Status: "in_progress"}}
	mem.PreferredProducts = []string{"index funds"}

	out := Reduce(mem, MeetingInsight{
		MeetingID:       "m2",
		MeetingSummary:  []string{},
		ConfidenceLevel: ConfidenceMedium,
	})

	if !reflect.DeepEqual(out.ActiveFinancialGoals, mem.ActiveFinancialGoals) {
		t.Fatalf("goals changed without evidence: %v", out.ActiveFinancialGoals)
	}
	if !reflect.DeepEqual(out.PreferredProducts, mem.PreferredProducts) {
		t.Fatalf("preferred products changed without evidence: %v", out.PreferredProducts)
	}
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	mem := NewClientMemory("c1")
	mem.Profile["name"] = "Asha"
	mem.DiscussedProducts["SIP"] = 3

	_ = Reduce(mem, MeetingInsight{
		FinancialProducts: []string{"SIP", "ELSS"},
		ClientDetails:     map[string]string{"name": "Asha Rao"},
	})

	if mem.Profile["name"] != "Asha" || mem.DiscussedProducts["SIP"] != 3 {
		t.Fatal("reduce mutated its input memory")
	}
}

func TestReduceProfileShallowMerge(t *testing.T) {
	mem := NewClientMemory("c1")
	mem.Profile["name"] = "Asha"
	mem.Profile["city"] = "Pune"

	out := Reduce(mem, MeetingInsight{
		ClientDetails: map[string]string{"name": "Asha Rao", "age": "34", "empty": "  "},
	})

	if out.Profile["name"] != "Asha Rao" {
		t.Fatalf("new value should win on collision, got %q", out.Profile["name"])
	}
	if out.Profile["city"] != "Pune" || out.Profile["age"] != "34" {
		t.Fatalf("unexpected profile: %v", out.Profile)
	}
	if _, ok := out.Profile["empty"]; ok {
		t.Fatal("blank values must be ignored")
	}
}

func TestReduceGoalUpsert(t *testing.T) {
	mem := NewClientMemory("c1")
	mem = Reduce(mem, MeetingInsight{
		FinancialGoals: []FinancialGoal{{Name: "house downpayment", Status: "planned"}},
	})
	mem = Reduce(mem, MeetingInsight{
		FinancialGoals: []FinancialGoal{
			{Name: "House Downpayment", Status: "in_progress"},
			{Name: "no status", Status: ""},
		},
	})

	if len(mem.ActiveFinancialGoals) != 1 {
		t.Fatalf("expected one goal, got %v", mem.ActiveFinancialGoals)
	}
	if mem.ActiveFinancialGoals[0].Status != "in_progress" {
		t.Fatalf("goal status not updated: %v", mem.ActiveFinancialGoals[0])
	}
}

func TestReduceActionItems(t *testing.T) {
	mem := NewClientMemory("c1")
	mem.PendingActionItems = []string{"Share KYC documents", "Review term plan"}

	out := Reduce(mem, MeetingInsight{
		ActionItems:          []string{"Review term plan", "Set up SIP mandate"},
		CompletedActionItems: []string{"share kyc documents"},
	})

	want := []string{"Review term plan", "Set up SIP mandate"}
	if !reflect.DeepEqual(out.PendingActionItems, want) {
		t.Fatalf("pending items = %v, want %v", out.PendingActionItems, want)
	}
}

func TestReduceTrendSteps(t *testing.T) {
	cases := []struct {
		prev   Trend
		signal ConfidenceLevel
		want   Trend
	}{
		{TrendStable, ConfidenceHigh, TrendIncreasing},
		{TrendDecreasing, ConfidenceHigh, TrendStable},
		{TrendIncreasing, ConfidenceLow, TrendStable},
		{TrendStable, ConfidenceLow, TrendDecreasing},
		{TrendIncreasing, ConfidenceMedium, TrendIncreasing},
		{Trend("garbage"), ConfidenceMedium, TrendStable},
		{TrendStable, ConfidenceLevel("loud"), TrendStable},
		// Legacy stored values keep stepping from the direction they meant.
		{Trend("positive"), ConfidenceMedium, TrendIncreasing},
		{Trend("negative"), ConfidenceHigh, TrendStable},
	}
	for _, tc := range cases {
		if got := stepTrend(tc.prev, tc.signal); got != tc.want {
			t.Errorf("stepTrend(%q, %q) = %q, want %q", tc.prev, tc.signal, got, tc.want)
		}
	}
}

func TestReduceClampsEnums(t *testing.T) {
	out := Reduce(NewClientMemory("c1"), MeetingInsight{
		ConfidenceLevel: ConfidenceLevel("enormous"),
		EngagementLevel: "hyper",
	})
	if out.MemoryConfidence != ConfidenceMedium {
		t.Fatalf("memory confidence = %q, want medium", out.MemoryConfidence)
	}
	if out.EngagementLevel != EngagementMedium {
		t.Fatalf("engagement = %q, want medium", out.EngagementLevel)
	}

	out = Reduce(out, MeetingInsight{ConfidenceLevel: ConfidenceHigh, EngagementLevel: "high"})
	if out.EngagementLevel != EngagementHigh || out.MemoryConfidence != ConfidenceHigh {
		t.Fatalf("enums not applied: %q %q", out.EngagementLevel, out.MemoryConfidence)
	}
}

func TestReduceFollowUpDate(t *testing.T) {
	mem := NewClientMemory("c1")
	mem.LastFollowUpDate = "2026-08-01"

	out := Reduce(mem, MeetingInsight{FollowUpDate: "next tuesday"})
	if out.LastFollowUpDate != "2026-08-01" {
		t.Fatalf("invalid date must be ignored, got %q", out.LastFollowUpDate)
	}
	out = Reduce(out, MeetingInsight{FollowUpDate: "2026-09-15"})
	if out.LastFollowUpDate != "2026-09-15" {
		t.Fatalf("valid date not applied, got %q", out.LastFollowUpDate)
	}
}

func TestReduceObjectionsAndPreferencesDeduplicate(t *testing.T) {
	mem := NewClientMemory("c1")
	mem = Reduce(mem, MeetingInsight{
		Objections:         []string{"lock-in period too long"},
		PreferredProducts:  []string{"SIP"},
		DisfavoredProducts: []string{"ULIP"},
		RiskProfile:        "moderate",
	})
	mem = Reduce(mem, MeetingInsight{
		Objections:        []string{"Lock-in period too long", "charges unclear"},
		PreferredProducts: []string{"sip", "ELSS"},
	})

	if len(mem.ObjectionsHistory) != 2 {
		t.Fatalf("objections = %v", mem.ObjectionsHistory)
	}
	if len(mem.PreferredProducts) != 2 {
		t.Fatalf("preferred = %v", mem.PreferredProducts)
	}
	if mem.RiskProfile != "moderate" {
		t.Fatalf("risk profile lost: %q", mem.RiskProfile)
	}
}

func TestClampTrendAliases(t *testing.T) {
	if ClampTrend("positive") != TrendIncreasing {
		t.Fatal("positive should map to increasing")
	}
	if ClampTrend("negative") != TrendDecreasing {
		t.Fatal("negative should map to decreasing")
	}
	if ClampTrend("sideways") != TrendStable {
		t.Fatal("unknown values should fall back to stable")
	}
}
