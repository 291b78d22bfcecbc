package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/spherical-ai/intellidoc/internal/statuscache"
)

// newStatusCmd creates the status subcommand.
func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show the current status of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			jobID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid job ID: %w", err)
			}

			store, status, cleanup, err := openJobStores(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			snap, err := status.Get(ctx, jobID)
			if errors.Is(err, statuscache.ErrNotFound) {
				job, jerr := store.GetJob(ctx, jobID)
				if jerr != nil {
					return jerr
				}
				snap = &statuscache.Snapshot{
					JobID:              job.ID,
					Status:             job.Status,
					CurrentStep:        job.CurrentStep,
					ProgressPercent:    job.ProgressPercent,
					TotalDocuments:     job.TotalDocumentsDetected,
					DocumentsProcessed: job.DocumentsProcessed,
					DocumentsSucceeded: job.DocumentsSucceeded,
					DocumentsFailed:    job.DocumentsFailed,
					ErrorMessage:       job.ErrorMessage,
					UpdatedAt:          job.UpdatedAt,
				}
			} else if err != nil {
				return err
			}

			if outputJSON {
				return json.NewEncoder(os.Stdout).Encode(snap)
			}

			heading("Job Status")
			printKV("ID", snap.JobID)
			printKV("Status", snap.Status)
			if snap.CurrentStep != "" {
				printKV("Step", snap.CurrentStep)
			}
			printKV("Progress", fmt.Sprintf("%.0f%%", snap.ProgressPercent))
			if snap.TotalDocuments > 0 {
				printKV("Documents", fmt.Sprintf("%d/%d processed (%d failed)",
					snap.DocumentsProcessed, snap.TotalDocuments, snap.DocumentsFailed))
			}
			if snap.ErrorMessage != "" {
				errorf("Error: %s", snap.ErrorMessage)
			}
			return nil
		},
	}
	return cmd
}
