// cmd/tools/parameter-registry/main.go
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"risk-analytics/pkg/registry"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var registryPath string

	root := &cobra.Command{
		Use:           "parameter-registry",
		Short:         "Maintain the canonical risk parameter catalog",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&registryPath, "path", "configs/parameters.json", "Path to the catalog file")

	root.AddCommand(newAddCmd(&registryPath), newValidateCmd(&registryPath), newListCmd(&registryPath), newResolveCmd(&registryPath))
	return root
}

func newAddCmd(path *string) *cobra.Command {
	var p registry.Parameter
	var id, category, weight string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a parameter to the catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if id == "" || p.DisplayName == "" || category == "" || len(p.Aliases)+len(p.Tokens) == 0 {
				return fmt.Errorf("id, displayName, category and at least one alias or token are required")
			}
			p.ID = registry.ParameterID(id)
			p.Category = registry.Category(category)
			if weight != "" {
				w, err := strconv.ParseFloat(weight, 64)
				if err != nil {
					return fmt.Errorf("invalid weight: %w", err)
				}
				p.Weight = w
			}
			if err := addParameter(*path, p, time.Now()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added parameter: %s\n", p.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Canonical ID (e.g., gst_compliance)")
	cmd.Flags().StringVar(&p.DisplayName, "displayName", "", "Display name")
	cmd.Flags().StringVar(&p.Description, "description", "", "Description")
	cmd.Flags().StringVar(&category, "category", "", "Category (compliance, financial, credit, legal, management, operational)")
	cmd.Flags().StringSliceVar(&p.Aliases, "alias", nil, "Substring alias, repeatable")
	cmd.Flags().StringSliceVar(&p.Tokens, "token", nil, "Whole-word token, repeatable")
	cmd.Flags().StringVar(&weight, "weight", "", "Relative weight")
	return cmd
}

func newValidateCmd(path *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the catalog file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, err := registry.LoadRegistry(*path)
			if err != nil {
				return fmt.Errorf("failed to load registry: %w", err)
			}
			if len(doc.Parameters) == 0 {
				return fmt.Errorf("registry contains no parameters")
			}
			if err := registry.Validate(*doc); err != nil {
				return fmt.Errorf("registry validation failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registry validation passed (%d parameters).\n", len(doc.Parameters))
			return nil
		},
	}
}

func newListCmd(path *string) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog entries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := registry.LoadFile(*path)
			if err != nil {
				return err
			}
			params := reg.Parameters()
			if category != "" {
				params = reg.ByCategory(registry.Category(category))
			}
			return printParameters(cmd.OutOrStdout(), params)
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "Only list this category")
	return cmd
}

func newResolveCmd(path *string) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve NAME...",
		Short: "Show which canonical ID each raw parameter name resolves to",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.LoadFile(*path)
			if err != nil {
				return err
			}
			for _, name := range args {
				id, ok := reg.Resolve(name)
				if !ok {
					id = "-"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", name, id)
			}
			return nil
		},
	}
}

func printParameters(w io.Writer, params []registry.Parameter) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCATEGORY\tWEIGHT\tALIASES")
	for _, p := range params {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%v\n", p.ID, p.Category, p.Weight, append(append([]string{}, p.Aliases...), p.Tokens...))
	}
	return tw.Flush()
}

func addParameter(path string, p registry.Parameter, now time.Time) error {
	doc, err := registry.LoadRegistry(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		doc = &registry.ParameterRegistry{Version: "1.0.0"}
	}

	doc.Parameters = append(doc.Parameters, p)
	if err := registry.Validate(*doc); err != nil {
		return err
	}
	doc.LastUpdated = now.Format("2006-01-02")
	return saveRegistry(doc, path)
}

func saveRegistry(doc *registry.ParameterRegistry, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
