package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newRemoveCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <interview-id>",
		Short: "Delete an interview and its evidence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid interview id %q", args[0])
			}
			store, err := cctx.ensureStore()
			if err != nil {
				return err
			}
			removed, err := store.Remove(cmd.Context(), id)
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("interview %d not found", id)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "interview %d removed\n", id)
			return nil
		},
	}
}
