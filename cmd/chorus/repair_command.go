package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"chorus/internal/config"
	"chorus/internal/interview"
	"chorus/internal/logging"
	"chorus/internal/repair"
	"chorus/internal/services"
)

func newRepairCommand(cctx *commandContext) *cobra.Command {
	var all bool
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "repair [interview-id]",
		Short: "Repair stuck interviews",
		Long: `Repair interviews stuck in an in-flight status. An interview with a
transcript is marked ready, one with neither transcript nor media is marked
failed, and one with media but no transcript re-enters transcription.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) == 1) {
				return errors.New("provide exactly one of an interview id or --all")
			}
			cfg, err := cctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := cctx.ensureStore()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if all {
				return runRepairAll(cmd.Context(), cfg, store, out, dryRun)
			}
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid interview id %q", args[0])
			}
			return runRepairOne(cmd.Context(), cfg, store, out, id, dryRun)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Repair every stuck interview")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show planned repairs without applying them")
	return cmd
}

func runRepairOne(ctx context.Context, cfg *config.Config, store *interview.Store, out io.Writer, id int64, dryRun bool) error {
	if dryRun {
		iv, err := store.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if iv == nil {
			return fmt.Errorf("interview %d not found", id)
		}
		cutoff := time.Now().Add(-time.Duration(cfg.Repair.DashboardStaleMinutes) * time.Minute)
		fmt.Fprintf(out, "interview %d: planned action %s\n", id, repair.Plan(iv, cutoff))
		return nil
	}

	result, err := repair.NewRepairer(cfg, store, logging.NewNop()).RepairOne(ctx, id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return fmt.Errorf("interview %d not found", id)
		}
		return err
	}
	if !result.Applied {
		fmt.Fprintf(out, "interview %d is not stuck; nothing to do\n", id)
		return nil
	}
	fmt.Fprintf(out, "interview %d repaired (%s)\n", id, result.Action)
	return nil
}

func runRepairAll(ctx context.Context, cfg *config.Config, store *interview.Store, out io.Writer, dryRun bool) error {
	if dryRun {
		stuck, err := repair.NewDetector(cfg, store).StuckInterviews(ctx)
		if err != nil {
			return err
		}
		if len(stuck) == 0 {
			fmt.Fprintln(out, "no stuck interviews")
			return nil
		}
		cutoff := time.Now().Add(-time.Duration(cfg.Repair.DashboardStaleMinutes) * time.Minute)
		for _, iv := range stuck {
			fmt.Fprintf(out, "interview %d (%s): planned action %s\n", iv.ID, iv.Title, repair.Plan(iv, cutoff))
		}
		return nil
	}

	outcome, err := repair.NewRepairer(cfg, store, logging.NewNop()).RepairAll(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "repaired %d stuck interview(s): %d completed, %d failed, %d requeued\n",
		outcome.Total(), outcome.Completed, outcome.Failed, outcome.Requeued)
	return nil
}
