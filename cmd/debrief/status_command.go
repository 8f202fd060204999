package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"debrief/internal/pipeline"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var clientID string
	var meetingID string
	var watch bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show processing status for a meeting",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clientID == "" || meetingID == "" {
				return fmt.Errorf("--client and --meeting are required")
			}
			path := "/api/v1/meetings/status?" + url.Values{
				"client_id":  {clientID},
				"meeting_id": {meetingID},
			}.Encode()

			for {
				var status pipeline.MeetingStatus
				if err := ctx.doRequest(cmd.Context(), "GET", path, nil, "", &status); err != nil {
					return err
				}
				if asJSON {
					encoded, err := json.MarshalIndent(status, "", "  ")
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), renderStatus(status, stdoutIsTerminal()))
				}

				terminal := status.State == pipeline.StateComplete || status.State == pipeline.StateFailed
				if !watch || terminal {
					return nil
				}
				select {
				case <-cmd.Context().Done():
					return cmd.Context().Err()
				case <-time.After(2 * time.Second):
				}
			}
		},
	}

	cmd.Flags().StringVar(&clientID, "client", "", "Client identifier")
	cmd.Flags().StringVar(&meetingID, "meeting", "", "Meeting identifier")
	cmd.Flags().BoolVar(&watch, "watch", false, "Poll until the meeting completes or fails")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print raw JSON")
	return cmd
}

func renderStatus(status pipeline.MeetingStatus, fancy bool) string {
	rows := [][2]string{
		{"Client", status.ClientID},
		{"Meeting", status.MeetingID},
		{"State", string(status.State)},
		{"Uploaded", strconv.Itoa(status.Uploaded)},
		{"Processed", strconv.FormatInt(status.Processed, 10)},
	}
	if status.Total > 0 {
		rows = append(rows, [2]string{"Expected", strconv.Itoa(status.Total)})
	}
	if status.Error != "" {
		rows = append(rows, [2]string{"Error", status.Error})
	}
	if summary := resultSummary(status.Result); len(summary) > 0 {
		rows = append(rows, [2]string{"Summary", strings.Join(summary, "\n")})
	}
	return renderKV(rows, fancy)
}

func resultSummary(result json.RawMessage) []string {
	if len(result) == 0 {
		return nil
	}
	var insight struct {
		MeetingSummary []string `json:"meeting_summary"`
	}
	if err := json.Unmarshal(result, &insight); err != nil {
		return nil
	}
	return insight.MeetingSummary
}
