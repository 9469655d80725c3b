// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/evidence-engine/internal/catalog"
	"github.com/pdiddy/evidence-engine/internal/extract"
	"github.com/pdiddy/evidence-engine/internal/llm"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

var extractCmd = &cobra.Command{
	Use:   "extract [papers...]",
	Short: "Extract evidence from papers for a variant",
	Long: `Extract renders each paper's parsed document with bounding-box markers,
asks the model for structured evidence findings about the variant, validates
every citation against the document, and stores the results.

Papers default to the variant's catalog entry; pass durable ids as arguments
to process a subset. Already-extracted papers are skipped.`,
	RunE: runExtract,
}

func runExtract(cmd *cobra.Command, args []string) error {
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
		return fmt.Errorf("no papers to extract for variant %s", variantID)
	}

	engine, err := newExtractEngine(cfg, log)
	if err != nil {
		return err
	}

	summary, err := engine.ExtractAll(cmd.Context(), variantID, refs, os.Stdout)
	if err != nil {
		return err
	}

	fmt.Printf("extracted %d, cached %d, skipped %d, failed %d\n",
		summary.Extracted, summary.Cached, summary.Skipped, summary.Failed)
	if summary.HasFailures() {
		return fmt.Errorf("%d paper(s) failed extraction", summary.Failed)
	}
	return nil
}

func newExtractEngine(cfg types.PipelineConfig, log *zap.Logger) (*extract.Engine, error) {
	s, err := newStore(cfg, log)
	if err != nil {
		return nil, err
	}
	completer, err := newCompleter(cfg.Extraction.AIConfig)
	if err != nil {
		return nil, err
	}
	shape, err := llm.GetShape(cfg.Extraction.Shape)
	if err != nil {
		return nil, err
	}
	return &extract.Engine{
		Store:     s,
		Completer: completer,
		Shape:     shape,
		Config:    cfg.Extraction,
		Log:       log,
	}, nil
}

// resolvePapers returns the explicit paper args, or the variant's catalog
// paper set when no args are given.
func resolvePapers(ctx context.Context, cfg types.PipelineConfig, variantID string, args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}

	cat, err := catalog.Open(cfg.Catalog)
	if err != nil {
		return nil, err
	}
	defer cat.Close()

	v, err := cat.Get(ctx, variantID)
	if err != nil {
		return nil, err
	}
	return v.Papers, nil
}

func init() {
	extractCmd.Flags().String("variant-id", "", "variant identifier (required)")
	extractCmd.Flags().String("model", "", "model identifier (overrides config)")
	extractCmd.Flags().String("shape", "", "result shape: generic or acmg-criteria")
	extractCmd.Flags().String("api-key", "", "model API key (overrides config and secrets)")
	extractCmd.Flags().String("storage-root", "", "filesystem storage root (fs backend)")
	extractCmd.Flags().String("catalog", "", "variant catalog database path")
	extractCmd.Flags().Bool("verbose", false, "enable debug logging")

	rootCmd.AddCommand(extractCmd)
}
