package memory

import (
	"strings"
	"time"
)

// Reduce folds one meeting's insight into the client's memory and returns the
// updated copy. It is a pure function with no external calls: the same memory
// and insight always produce the same result. Counts only increase and goals
// named earlier are never dropped; fields the insight carries no evidence for
// are left untouched. The narrative overview passes through unchanged;
// composing it is a separate step (see ApplyOverview).
func Reduce(mem ClientMemory, insight MeetingInsight) ClientMemory {
	out := cloneMemory(mem)

	for key, value := range insight.ClientDetails {
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		out.Profile[key] = value
	}

	if rp := strings.TrimSpace(insight.RiskProfile); rp != "" {
		out.RiskProfile = rp
	}
	out.PreferredProducts = appendUnique(out.PreferredProducts, insight.PreferredProducts)
	out.DisfavoredProducts = appendUnique(out.DisfavoredProducts, insight.DisfavoredProducts)

	for _, product := range uniqueTrimmed(insight.FinancialProducts) {
		out.DiscussedProducts[product]++
	}

	for _, goal := range insight.FinancialGoals {
		name := strings.TrimSpace(goal.Name)
		status := strings.TrimSpace(goal.Status)
		if name == "" || status == "" {
			continue
		}
		out.ActiveFinancialGoals = upsertGoal(out.ActiveFinancialGoals, name, status)
	}

	out.ObjectionsHistory = appendUnique(out.ObjectionsHistory, insight.Objections)

	out.DecisionConfidenceTrend = stepTrend(out.DecisionConfidenceTrend, insight.ConfidenceLevel)
	out.EngagementLevel = ClampEngagement(insight.EngagementLevel, EngagementMedium)
	out.MemoryConfidence = ClampConfidence(string(insight.ConfidenceLevel), ConfidenceMedium)

	out.PendingActionItems = mergeActionItems(out.PendingActionItems, insight.ActionItems, insight.CompletedActionItems)

	if date := strings.TrimSpace(insight.FollowUpDate); date != "" {
		if _, err := time.Parse("2006-01-02", date); err == nil {
			out.LastFollowUpDate = date
		}
	}

	return out
}

// stepTrend moves the confidence trend one notch toward the direction the
// meeting's confidence signal suggests. A medium signal holds the previous
// trend; anything outside the enums settles on stable. The previous trend is
// clamped first so stored legacy values ("positive"/"negative") step from the
// direction they meant.
func stepTrend(prev Trend, signal ConfidenceLevel) Trend {
	prev = ClampTrend(string(prev))
	switch signal {
	case ConfidenceHigh:
		if prev == TrendDecreasing {
			return TrendStable
		}
		return TrendIncreasing
	case ConfidenceLow:
		if prev == TrendIncreasing {
			return TrendStable
		}
		return TrendDecreasing
	case ConfidenceMedium:
		return prev
	default:
		return TrendStable
	}
}

// mergeActionItems unions previous incomplete items with new ones, then drops
// everything the meeting confirmed complete. Order is first-seen.
func mergeActionItems(previous, added, completed []string) []string {
	done := make(map[string]struct{}, len(completed))
	for _, item := range completed {
		done[normalizeItem(item)] = struct{}{}
	}
	merged := make([]string, 0, len(previous)+len(added))
	seen := make(map[string]struct{}, len(previous)+len(added))
	for _, item := range append(append([]string{}, previous...), added...) {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		norm := normalizeItem(trimmed)
		if _, ok := done[norm]; ok {
			continue
		}
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		merged = append(merged, trimmed)
	}
	return merged
}

func upsertGoal(goals []FinancialGoal, name, status string) []FinancialGoal {
	for i := range goals {
		if strings.EqualFold(goals[i].Name, name) {
			goals[i].Status = status
			return goals
		}
	}
	return append(goals, FinancialGoal{Name: name, Status: status})
}

func appendUnique(existing, added []string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, item := range existing {
		seen[normalizeItem(item)] = struct{}{}
	}
	for _, item := range added {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		norm := normalizeItem(trimmed)
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		existing = append(existing, trimmed)
	}
	return existing
}

func uniqueTrimmed(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

func normalizeItem(item string) string {
	return strings.ToLower(strings.TrimSpace(item))
}

func cloneMemory(mem ClientMemory) ClientMemory {
	out := mem
	out.Profile = make(map[string]string, len(mem.Profile))
	for k, v := range mem.Profile {
		out.Profile[k] = v
	}
	out.DiscussedProducts = make(map[string]int, len(mem.DiscussedProducts))
	for k, v := range mem.DiscussedProducts {
		out.DiscussedProducts[k] = v
	}
	out.PreferredProducts = append([]string{}, mem.PreferredProducts...)
	out.DisfavoredProducts = append([]string{}, mem.DisfavoredProducts...)
	out.ActiveFinancialGoals = append([]FinancialGoal{}, mem.ActiveFinancialGoals...)
	out.ObjectionsHistory = append([]string{}, mem.ObjectionsHistory...)
	out.PendingActionItems = append([]string{}, mem.PendingActionItems...)
	return out
}
