package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"debrief/internal/memory"
)

func newMemoryCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "memory <client-id>",
		Short: "Show the accumulated memory for a client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/clients/" + url.PathEscape(args[0]) + "/memory"
			var mem memory.ClientMemory
			if err := ctx.doRequest(cmd.Context(), "GET", path, nil, "", &mem); err != nil {
				return err
			}
			if asJSON {
				encoded, err := json.MarshalIndent(mem, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderMemory(args[0], mem, stdoutIsTerminal()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print raw JSON")
	return cmd
}

func renderMemory(clientID string, mem memory.ClientMemory, fancy bool) string {
	rows := [][2]string{
		{"Client", clientID},
		{"Risk profile", orDash(mem.RiskProfile)},
		{"Engagement", string(mem.EngagementLevel)},
		{"Confidence trend", string(mem.DecisionConfidenceTrend)},
		{"Memory confidence", string(mem.MemoryConfidence)},
		{"Preferred products", joinOrDash(mem.PreferredProducts)},
		{"Disfavored products", joinOrDash(mem.DisfavoredProducts)},
		{"Discussed products", formatCounts(mem.DiscussedProducts)},
		{"Pending actions", joinOrDash(mem.PendingActionItems)},
		{"Last follow-up", orDash(mem.LastFollowUpDate)},
		{"Last meeting", orDash(mem.LastUpdatedFromMeetingID)},
	}
	if len(mem.ActiveFinancialGoals) > 0 {
		goals := make([]string, 0, len(mem.ActiveFinancialGoals))
		for _, goal := range mem.ActiveFinancialGoals {
			goals = append(goals, fmt.Sprintf("%s (%s)", goal.Name, goal.Status))
		}
		rows = append(rows, [2]string{"Active goals", strings.Join(goals, "\n")})
	}
	rendered := renderKV(rows, fancy)
	if mem.ClientOverview != "" {
		rendered += "\n\n" + mem.ClientOverview
	}
	return rendered
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func joinOrDash(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ", ")
}

func formatCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(counts))
	for name, count := range counts {
		parts = append(parts, name+" x"+strconv.Itoa(count))
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}
