package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spherical-ai/intellidoc/internal/catalog"
)

// newCatalogCmd creates the catalog subcommand.
func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the document-type catalog",
	}
	cmd.AddCommand(newCatalogListCmd())
	return cmd
}

func newCatalogListCmd() *cobra.Command {
	var nature string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active document types",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog()
			if err != nil {
				return err
			}

			types, err := cat.ActiveDocumentTypes(cmd.Context(), catalog.DocumentNature(nature))
			if err != nil {
				return err
			}

			if outputJSON {
				return json.NewEncoder(os.Stdout).Encode(types)
			}

			if len(types) == 0 {
				warnf("No active document types (catalog path: %q)", cfg.Catalog.Path)
				return nil
			}

			heading("Document Types")
			for _, dt := range types {
				fmt.Println()
				printKV("Code", dt.Code)
				printKV("Name", dt.Name)
				if dt.Nature != "" {
					printKV("Nature", dt.Nature)
				}
				if len(dt.DefaultFieldCodes) > 0 {
					printKV("Fields", strings.Join(dt.DefaultFieldCodes, ", "))
				}
				if len(dt.ValidatorIDs) > 0 {
					printKV("Validators", len(dt.ValidatorIDs))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&nature, "nature", "", "filter by document nature")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the CLI version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("intellidoc-cli", version)
		},
	}
}

var version = "0.1.0"
