package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"chorus/internal/api"
	"chorus/internal/config"
	"chorus/internal/interview"
	"chorus/internal/repair"
)

func newStatusCommand(cctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show pipeline counts and stuck interviews",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := cctx.ensureStore()
			if err != nil {
				return err
			}
			return runStatus(cmd.Context(), cfg, store, cmd.OutOrStdout(), jsonOut)
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	return cmd
}

type statusPayload struct {
	Stats           map[string]int          `json:"stats"`
	Health          interview.HealthSummary `json:"health"`
	StuckInterviews []api.Interview         `json:"stuckInterviews"`
}

func runStatus(ctx context.Context, cfg *config.Config, store *interview.Store, out io.Writer, jsonOut bool) error {
	stats, err := store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("read stats: %w", err)
	}
	health, err := store.Health(ctx)
	if err != nil {
		return fmt.Errorf("read health: %w", err)
	}
	stuck, err := repair.NewDetector(cfg, store).StuckInterviews(ctx)
	if err != nil {
		return fmt.Errorf("detect stuck interviews: %w", err)
	}

	if jsonOut {
		payload := statusPayload{
			Stats:           api.MergeStats(stats),
			Health:          health,
			StuckInterviews: api.FromInterviews(stuck),
		}
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(payload)
	}

	statuses := make([]interview.Status, 0, len(stats))
	for status := range stats {
		statuses = append(statuses, status)
	}
	slices.Sort(statuses)

	rows := make([][]string, 0, len(statuses))
	total := 0
	for _, status := range statuses {
		rows = append(rows, []string{string(status), fmt.Sprintf("%d", stats[status])})
		total += stats[status]
	}
	rows = append(rows, []string{"total", fmt.Sprintf("%d", total)})
	fmt.Fprintln(out, renderTable(
		[]string{"Status", "Count"},
		rows,
		[]columnAlignment{alignLeft, alignRight},
	))
	fmt.Fprintf(out, "%d in flight, %d ready, %d failed.\n", health.InFlight, health.Ready, health.Error)

	if len(stuck) == 0 {
		fmt.Fprintln(out, "No stuck interviews.")
		return nil
	}

	now := time.Now()
	stuckRows := make([][]string, 0, len(stuck))
	for _, iv := range stuck {
		stuckRows = append(stuckRows, []string{
			fmt.Sprintf("%d", iv.ID),
			iv.Title,
			string(iv.Status),
			now.Sub(iv.UpdatedAt).Truncate(time.Minute).String(),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"ID", "Title", "Status", "Stalled For"},
		stuckRows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight},
	))
	fmt.Fprintf(out, "%d stuck interview(s). Run `chorus repair --all` to repair them.\n", len(stuck))
	return nil
}
