// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/evidence-engine/internal/catalog"
	"github.com/pdiddy/evidence-engine/internal/store"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

var variantCmd = &cobra.Command{
	Use:   "variant",
	Short: "Manage the variant catalog (add, list, show, delete, import, publish)",
	Long: `Variant manages the local catalog of variants under assessment and the
paper set attached to each. The catalog is local bookkeeping; publish writes
a variant's context document to storage so the pipeline stages can read it.`,
}

// --- add subcommand ---

var variantAddCmd = &cobra.Command{
	Use:   "add <id>",
	Short: "Add or update a variant in the catalog",
	Args:  cobra.ExactArgs(1),
	RunE:  runVariantAdd,
}

func runVariantAdd(cmd *cobra.Command, args []string) error {
	gene, _ := cmd.Flags().GetString("gene")
	hgvsc, _ := cmd.Flags().GetString("hgvs-c")
	papers, _ := cmd.Flags().GetStringSlice("paper")

	if gene == "" || hgvsc == "" {
		return fmt.Errorf("--gene and --hgvs-c are required")
	}

	cat, err := catalog.Open(pipelineConfig(cmd).Catalog)
	if err != nil {
		return err
	}
	defer cat.Close()

	v := types.Variant{ID: args[0], Gene: gene, HGVSc: hgvsc, Papers: papers}
	if err := cat.Put(cmd.Context(), v); err != nil {
		return err
	}

	fmt.Printf("stored variant %s (%s %s, %d papers)\n", v.ID, v.Gene, v.HGVSc, len(v.Papers))
	return nil
}

// --- list subcommand ---

var variantListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog variants",
	RunE:  runVariantList,
}

func runVariantList(cmd *cobra.Command, args []string) error {
	cat, err := catalog.Open(pipelineConfig(cmd).Catalog)
	if err != nil {
		return err
	}
	defer cat.Close()

	variants, err := cat.List(cmd.Context())
	if err != nil {
		return err
	}

	if len(variants) == 0 {
		fmt.Println("No variants in catalog.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-20s  %-8s  %-30s  %s\n", "ID", "Gene", "HGVS c.", "Papers")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 72))
	for _, v := range variants {
		fmt.Fprintf(os.Stdout, "%-20s  %-8s  %-30s  %d\n", v.ID, v.Gene, v.HGVSc, len(v.Papers))
	}
	return nil
}

// --- show subcommand ---

var variantShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one variant as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runVariantShow,
}

func runVariantShow(cmd *cobra.Command, args []string) error {
	cat, err := catalog.Open(pipelineConfig(cmd).Catalog)
	if err != nil {
		return err
	}
	defer cat.Close()

	v, err := cat.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// --- delete subcommand ---

var variantDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove a variant from the catalog",
	Long: `Delete removes the catalog entry only. Stored pipeline artifacts for
the variant are left untouched.`,
	Args: cobra.ExactArgs(1),
	RunE: runVariantDelete,
}

func runVariantDelete(cmd *cobra.Command, args []string) error {
	cat, err := catalog.Open(pipelineConfig(cmd).Catalog)
	if err != nil {
		return err
	}
	defer cat.Close()

	if err := cat.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Printf("deleted variant %s\n", args[0])
	return nil
}

// --- import subcommand ---

var variantImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Import variants from a YAML batch file",
	Args:  cobra.ExactArgs(1),
	RunE:  runVariantImport,
}

func runVariantImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}

	cat, err := catalog.Open(pipelineConfig(cmd).Catalog)
	if err != nil {
		return err
	}
	defer cat.Close()

	n, err := cat.ImportYAML(cmd.Context(), data)
	if err != nil {
		return err
	}
	fmt.Printf("imported %d variant(s) from %s\n", n, args[0])
	return nil
}

// --- publish subcommand ---

var variantPublishCmd = &cobra.Command{
	Use:   "publish <id>",
	Short: "Write a variant's context document to storage",
	Long: `Publish writes variants/{id}/details.json from the catalog entry. The
extraction and aggregation prompts interpolate this document, so it must be
published before running the pipeline.`,
	Args: cobra.ExactArgs(1),
	RunE: runVariantPublish,
}

func runVariantPublish(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig(cmd)

	log, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	cat, err := catalog.Open(cfg.Catalog)
	if err != nil {
		return err
	}
	defer cat.Close()

	v, err := cat.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	s, err := newStore(cfg, log)
	if err != nil {
		return err
	}

	details := map[string]string{
		"variant_id": v.ID,
		"gene":       v.Gene,
		"hgvs_c":     v.HGVSc,
	}
	if err := s.WriteJSON(cmd.Context(), store.VariantDetailsKey(v.ID), details); err != nil {
		return err
	}

	fmt.Printf("published %s\n", store.VariantDetailsKey(v.ID))
	return nil
}

func init() {
	variantCmd.PersistentFlags().String("catalog", "", "variant catalog database path")
	variantCmd.PersistentFlags().String("storage-root", "", "filesystem storage root (fs backend)")
	variantCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")

	variantAddCmd.Flags().String("gene", "", "gene symbol (required)")
	variantAddCmd.Flags().String("hgvs-c", "", "variant in HGVS c. notation (required)")
	variantAddCmd.Flags().StringSlice("paper", nil, "durable paper id (repeatable)")

	variantCmd.AddCommand(variantAddCmd)
	variantCmd.AddCommand(variantListCmd)
	variantCmd.AddCommand(variantShowCmd)
	variantCmd.AddCommand(variantDeleteCmd)
	variantCmd.AddCommand(variantImportCmd)
	variantCmd.AddCommand(variantPublishCmd)

	rootCmd.AddCommand(variantCmd)
}
