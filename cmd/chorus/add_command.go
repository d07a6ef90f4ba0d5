package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"chorus/internal/evidence"
)

func newAddCommand(cctx *commandContext) *cobra.Command {
	var (
		title          string
		mediaURL       string
		transcriptFile string
		accountID      string
		projectID      string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Upload an interview recording or transcript",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(mediaURL) == "" && strings.TrimSpace(transcriptFile) == "" {
				return errors.New("provide --media or --transcript-file")
			}

			var transcript string
			if transcriptFile != "" {
				data, err := os.ReadFile(transcriptFile)
				if err != nil {
					return fmt.Errorf("read transcript: %w", err)
				}
				transcript = string(data)
			}

			store, err := cctx.ensureStore()
			if err != nil {
				return err
			}
			iv, err := store.NewUpload(cmd.Context(), accountID, projectID, title, mediaURL, transcript)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "interview %d created (%s)\n", iv.ID, iv.Status)
			if iv.HasTranscript() {
				fmt.Fprintf(cmd.OutOrStdout(), "transcript supplied; evidence extraction will use ingest path %q\n", evidence.IngestPathExtraction)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Interview title")
	cmd.Flags().StringVar(&mediaURL, "media", "", "Media URL to transcribe")
	cmd.Flags().StringVar(&transcriptFile, "transcript-file", "", "Path to a diarized transcript file")
	cmd.Flags().StringVar(&accountID, "account", "", "Account identifier")
	cmd.Flags().StringVar(&projectID, "project", "", "Project identifier")
	return cmd
}
