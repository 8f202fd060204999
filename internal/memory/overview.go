package memory

import (
	"fmt"
	"sort"
	"strings"
)

const (
	overviewMinLength = 50
	overviewMaxLength = 500
)

// ApplyOverview decides the client overview to persist after a meeting.
// Generated text that survives sanitization wins; otherwise a durable prior
// overview is kept, and a client with neither gets a deterministic fallback
// built from the memory itself.
func ApplyOverview(mem ClientMemory, generated string) string {
	if cleaned := SanitizeOverview(generated); cleaned != "" {
		return cleaned
	}
	if strings.TrimSpace(mem.ClientOverview) != "" {
		return mem.ClientOverview
	}
	return FallbackOverview(mem)
}

// SanitizeOverview normalizes model-generated overview text. It returns ""
// when the text is unusable: shorter than 50 characters, or with no sentence
// boundary to truncate back to. Text over 500 characters is truncated at the
// last sentence boundary within the cap, or ellipsized when none exists early
// enough.
func SanitizeOverview(text string) string {
	text = strings.TrimSpace(text)
	text = strings.Trim(text, "`\"'")
	text = strings.TrimSpace(text)
	if len(text) < overviewMinLength {
		return ""
	}
	if !endsSentence(text) {
		cut := lastSentenceEnd(text)
		if cut < overviewMinLength {
			return ""
		}
		text = strings.TrimSpace(text[:cut])
	}
	if len(text) > overviewMaxLength {
		cut := lastSentenceEnd(text[:overviewMaxLength])
		if cut >= overviewMinLength {
			text = strings.TrimSpace(text[:cut])
		} else {
			text = text[:overviewMaxLength-3] + "..."
		}
	}
	return text
}

// FallbackOverview builds a plain, deterministic overview from structured
// memory. Used when no narrative has ever been generated successfully.
func FallbackOverview(mem ClientMemory) string {
	var parts []string

	name := mem.Profile["name"]
	if name == "" {
		name = "The client"
	}
	intro := name
	if mem.RiskProfile != "" {
		intro += " has a " + mem.RiskProfile + " risk profile"
	} else {
		intro += " is an existing client"
	}
	parts = append(parts, intro+".")

	if len(mem.ActiveFinancialGoals) > 0 {
		names := make([]string, 0, len(mem.ActiveFinancialGoals))
		for _, goal := range mem.ActiveFinancialGoals {
			names = append(names, goal.Name)
		}
		parts = append(parts, "Active goals: "+strings.Join(names, ", ")+".")
	}
	if len(mem.PreferredProducts) > 0 {
		parts = append(parts, "Shows interest in "+strings.Join(mem.PreferredProducts, ", ")+".")
	}
	if len(mem.DiscussedProducts) > 0 {
		products := make([]string, 0, len(mem.DiscussedProducts))
		for product := range mem.DiscussedProducts {
			products = append(products, product)
		}
		sort.Strings(products)
		parts = append(parts, "Products discussed so far: "+strings.Join(products, ", ")+".")
	}
	parts = append(parts, fmt.Sprintf("Engagement is %s with a %s decision confidence trend.",
		mem.EngagementLevel, mem.DecisionConfidenceTrend))

	text := strings.Join(parts, " ")
	if len(text) > overviewMaxLength {
		if cut := lastSentenceEnd(text[:overviewMaxLength]); cut >= overviewMinLength {
			text = strings.TrimSpace(text[:cut])
		} else {
			text = text[:overviewMaxLength-3] + "..."
		}
	}
	return text
}

func endsSentence(text string) bool {
	trimmed := strings.TrimRight(text, "\"')")
	if trimmed == "" {
		return false
	}
	switch trimmed[len(trimmed)-1] {
	case '.', '!', '?':
		return true
	default:
		return false
	}
}

// lastSentenceEnd returns the index just past the final '.', '!' or '?' in
// text, or 0 when none exists.
func lastSentenceEnd(text string) int {
	for i := len(text) - 1; i >= 0; i-- {
		switch text[i] {
		case '.', '!', '?':
			return i + 1
		}
	}
	return 0
}
