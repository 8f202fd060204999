package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"debrief/internal/memory"
	"debrief/internal/pipeline"
)

func TestRootCommandShowsHelp(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(nil)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for _, sub := range []string{"daemon", "upload", "status", "memory", "config"} {
		if !strings.Contains(out.String(), sub) {
			t.Errorf("help output missing %q", sub)
		}
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[gemini]") {
		t.Fatal("sample config missing gemini section")
	}

	cmd = newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err == nil {
		t.Fatal("second init should refuse to overwrite")
	}
}

func TestRenderStatusIncludesSummary(t *testing.T) {
	insight := memory.MeetingInsight{
		MeetingID:      "m1",
		MeetingSummary: []string{"reviewed portfolio", "agreed on SIP"},
	}
	encoded, err := json.Marshal(insight)
	if err != nil {
		t.Fatalf("marshal insight: %v", err)
	}
	rendered := renderStatus(pipeline.MeetingStatus{
		ClientID:  "c1",
		MeetingID: "m1",
		State:     pipeline.StateComplete,
		Uploaded:  3,
		Processed: 3,
		Total:     3,
		Result:    encoded,
	}, false)

	for _, want := range []string{"c1", "m1", "complete", "reviewed portfolio"} {
		if !strings.Contains(rendered, want) {
			t.Errorf("rendered status missing %q:\n%s", want, rendered)
		}
	}
}

func TestRenderMemory(t *testing.T) {
	mem := memory.NewClientMemory("c1")
	mem.RiskProfile = "moderate"
	mem.DiscussedProducts = map[string]int{"SIP": 2, "ELSS": 1}
	mem.ActiveFinancialGoals = []memory.FinancialGoal{{Name: "retirement", Status: "active"}}
	mem.ClientOverview = "A client who shows up prepared and acts on advice quickly."

	rendered := renderMemory("c1", mem, false)
	for _, want := range []string{"moderate", "ELSS x1, SIP x2", "retirement (active)", "shows up prepared"} {
		if !strings.Contains(rendered, want) {
			t.Errorf("rendered memory missing %q:\n%s", want, rendered)
		}
	}
}
