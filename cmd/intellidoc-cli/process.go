package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/spherical-ai/intellidoc/internal/catalog"
	"github.com/spherical-ai/intellidoc/internal/classify"
	"github.com/spherical-ai/intellidoc/internal/pipeline"
	"github.com/spherical-ai/intellidoc/internal/results"
)

// newProcessCmd creates the process subcommand.
func newProcessCmd() *cobra.Command {
	var (
		file          string
		url           string
		expectedType  string
		nature        string
		strategy      string
		fields        []string
		typesFile     string
		tenant        string
		webhookURL    string
		webhookSecret string
	)

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Process a document through the pipeline",
		Long: `Process a local file or URL synchronously and print the result.

Examples:
  intellidoc-cli process --file invoice.png
  intellidoc-cli process --file invoice.png --expect invoice
  intellidoc-cli process --url https://example.com/doc.png --fields invoice_number,total_amount
  intellidoc-cli process --file batch.png --strategy page_based --types-file types.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if (file == "") == (url == "") {
				return fmt.Errorf("exactly one of --file or --url is required")
			}

			req := pipeline.Request{
				ExpectedType:      expectedType,
				ExpectedNature:    catalog.DocumentNature(nature),
				SplittingStrategy: strategy,
				WebhookURL:        webhookURL,
				WebhookSecret:     webhookSecret,
				TenantID:          tenant,
			}
			if file != "" {
				abs, err := filepath.Abs(file)
				if err != nil {
					return err
				}
				req.SourceType = "local"
				req.SourceReference = abs
				req.Filename = filepath.Base(file)
			} else {
				req.SourceType = "url"
				req.SourceReference = url
			}
			if len(fields) > 0 {
				req.TargetSchema = &pipeline.TargetSchema{FieldCodes: fields}
			}
			if typesFile != "" {
				types, err := loadAdHocTypes(typesFile)
				if err != nil {
					return err
				}
				req.DocumentTypes = types
			}

			orch, cleanup, err := buildOrchestrator(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			infof("Processing %s", req.SourceReference)

			result, err := orch.Process(ctx, req)
			if err != nil {
				return fmt.Errorf("process: %w", err)
			}

			if outputJSON {
				return json.NewEncoder(os.Stdout).Encode(result)
			}
			printResult(result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "local file to process")
	cmd.Flags().StringVarP(&url, "url", "u", "", "URL to fetch and process")
	cmd.Flags().StringVar(&expectedType, "expect", "", "expected document type code")
	cmd.Flags().StringVar(&nature, "nature", "", "expected document nature")
	cmd.Flags().StringVar(&strategy, "strategy", "", "splitting strategy (whole_document, page_based, visual)")
	cmd.Flags().StringSliceVar(&fields, "fields", nil, "catalog field codes to extract")
	cmd.Flags().StringVar(&typesFile, "types-file", "", "JSON file with ad-hoc document types")
	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant ID")
	cmd.Flags().StringVar(&webhookURL, "webhook-url", "", "completion webhook URL")
	cmd.Flags().StringVar(&webhookSecret, "webhook-secret", "", "completion webhook HMAC secret")

	return cmd
}

func loadAdHocTypes(path string) ([]classify.AdHocType, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read types file: %w", err)
	}
	var types []classify.AdHocType
	if err := json.Unmarshal(data, &types); err != nil {
		return nil, fmt.Errorf("parse types file: %w", err)
	}
	return types, nil
}

func printResult(result *results.ProcessingResult) {
	job := result.Job

	heading("Job")
	printKV("ID", job.ID)
	printKV("Status", job.Status)
	printKV("Pages", job.TotalPages)
	printKV("Documents", fmt.Sprintf("%d detected, %d succeeded, %d failed",
		job.TotalDocumentsDetected, job.DocumentsSucceeded, job.DocumentsFailed))
	printKV("Duration", fmt.Sprintf("%dms", job.ProcessingDurationMS))
	printKV("Tokens", job.TotalTokensUsed)
	printKV("Cost", fmt.Sprintf("$%.4f", float64(job.TotalCostMicroUSD)/1e6))
	if job.ErrorMessage != "" {
		errorf("Error: %s", job.ErrorMessage)
	}

	for i, doc := range result.Documents {
		fmt.Println()
		heading(fmt.Sprintf("Document %d (pages %d-%d)", i+1, doc.PageRangeStart, doc.PageRangeEnd))
		if doc.Failed {
			errorf("Failed: %s", doc.ErrorMessage)
			continue
		}
		if doc.DocumentTypeCode != "" {
			printKV("Type", fmt.Sprintf("%s (%.0f%% confidence)", doc.DocumentTypeCode, doc.ClassificationConfidence*100))
		}
		printKV("Overall confidence", doc.OverallConfidence)
		printKV("Validation score", fmt.Sprintf("%.2f", doc.ValidationScore))

		for name, value := range doc.ExtractedFields {
			printKV(name, value)
		}
		for _, v := range doc.ValidationResults {
			if v.Passed {
				continue
			}
			switch v.Severity {
			case catalog.SeverityWarning:
				warnf("%s: %s", v.ValidatorCode, v.Message)
			case catalog.SeverityInfo:
				infof("%s: %s", v.ValidatorCode, v.Message)
			default:
				errorf("%s: %s", v.ValidatorCode, v.Message)
			}
		}
	}

	fmt.Println()
	switch job.Status {
	case results.StatusCompleted:
		successf("Completed: %d fields extracted, %d/%d validations passed",
			result.TotalFieldsExtracted,
			result.TotalValidationsPassed,
			result.TotalValidationsPassed+result.TotalValidationsFailed)
	case results.StatusPartiallyCompleted:
		warnf("Partially completed: %d/%d documents succeeded",
			job.DocumentsSucceeded, job.TotalDocumentsDetected)
	default:
		errorf("Finished with status %s", job.Status)
	}
}
