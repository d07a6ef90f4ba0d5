package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"chorus/internal/attribution"
	"chorus/internal/logging"
)

func newParityCommand(cctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parity <interview-id>",
		Short: "Verify evidence attribution parity for an interview",
		Long: `Compare the person attribution stored on evidence units against the
evidence-people link table. The two projections must describe the same sets;
a mismatch means an ingestion path wrote attribution inconsistently.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid interview id %q", args[0])
			}
			store, err := cctx.ensureStore()
			if err != nil {
				return err
			}

			report, err := attribution.NewValidator(store, logging.NewNop()).Validate(cmd.Context(), id, "cli")
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "interview %d: %d evidence unit(s), %d mismatch(es)\n", id, report.Evidence, report.Mismatches)
			if report.Passed {
				fmt.Fprintln(out, "parity check passed")
				return nil
			}

			rows := make([][]string, 0, len(report.Sample))
			for _, m := range report.Sample {
				rows = append(rows, []string{
					m.EvidenceID,
					fmt.Sprintf("%v", m.FromUnits),
					fmt.Sprintf("%v", m.FromLinks),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Evidence", "From Units", "From Links"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))
			return fmt.Errorf("parity check failed for interview %d", id)
		},
	}
	return cmd
}
