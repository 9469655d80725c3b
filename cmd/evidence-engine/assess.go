// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/evidence-engine/internal/annotate"
)

var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Run the full pipeline: extract, aggregate, annotate",
	Long: `Assess runs the three pipeline stages in order for one variant. Every
stage is resumable: completed work is detected in storage and skipped, so an
interrupted run can simply be repeated.`,
	RunE: runAssess,
}

func runAssess(cmd *cobra.Command, args []string) error {
	variantID, _ := cmd.Flags().GetString("variant-id")
	if variantID == "" {
		return fmt.Errorf("--variant-id is required")
	}

	cfg := pipelineConfig(cmd)

	log, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	refs, err := resolvePapers(cmd.Context(), cfg, variantID, args)
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		return fmt.Errorf("no papers to assess for variant %s", variantID)
	}

	extractEngine, err := newExtractEngine(cfg, log)
	if err != nil {
		return err
	}
	summary, err := extractEngine.ExtractAll(cmd.Context(), variantID, refs, os.Stdout)
	if err != nil {
		return err
	}
	if summary.HasFailures() {
		return fmt.Errorf("%d paper(s) failed extraction", summary.Failed)
	}

	aggregateEngine, err := newAggregateEngine(cfg, log)
	if err != nil {
		return err
	}
	status, err := aggregateEngine.Aggregate(cmd.Context(), variantID, refs)
	if err != nil {
		return err
	}
	fmt.Printf("aggregate %s: %s\n", variantID, status)

	annotateEngine := &annotate.Engine{Store: extractEngine.Store, Config: cfg.Annotation, Log: log}
	annSummary, err := annotateEngine.Annotate(cmd.Context(), variantID)
	if err != nil {
		return err
	}
	fmt.Printf("annotated %d paper(s), failed %d\n", annSummary.Annotated, annSummary.Failed)

	return nil
}

func init() {
	assessCmd.Flags().String("variant-id", "", "variant identifier (required)")
	assessCmd.Flags().String("model", "", "model identifier (overrides config)")
	assessCmd.Flags().String("shape", "", "result shape: generic or acmg-criteria")
	assessCmd.Flags().String("api-key", "", "model API key (overrides config and secrets)")
	assessCmd.Flags().String("storage-root", "", "filesystem storage root (fs backend)")
	assessCmd.Flags().String("catalog", "", "variant catalog database path")
	assessCmd.Flags().Bool("verbose", false, "enable debug logging")

	rootCmd.AddCommand(assessCmd)
}
