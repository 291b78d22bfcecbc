package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/spherical-ai/intellidoc/internal/results"
)

// newResultCmd creates the result subcommand.
func newResultCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "result <job-id>",
		Short: "Show the full result of a finished job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			jobID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid job ID: %w", err)
			}

			store, _, cleanup, err := openJobStores(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			job, err := store.GetJob(ctx, jobID)
			if err != nil {
				return err
			}
			docs, err := store.DocumentResultsByJob(ctx, jobID)
			if err != nil {
				return err
			}

			result := &results.ProcessingResult{
				Job:       *job,
				Documents: docs,
				ModelUsed: cfg.Model.Name,
			}
			result.Summarize()

			if outputJSON {
				return json.NewEncoder(os.Stdout).Encode(result)
			}
			printResult(result)
			return nil
		},
	}
	return cmd
}
