// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/evidence-engine/internal/aggregate"
	"github.com/pdiddy/evidence-engine/internal/llm"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Aggregate per-paper evidence into a cross-paper assessment",
	Long: `Aggregate collects the extractions that discussed the variant, presents
them to the model under short paper ids (LastNameYear), validates every
citation against the union of the papers' bounding boxes, and stores the
assessment with a short-id cross-reference table.

If no paper discussed the variant an explicit empty result is stored without
calling the model.`,
	RunE: runAggregate,
}

func runAggregate(cmd *cobra.Command, args []string) error {
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

	engine, err := newAggregateEngine(cfg, log)
	if err != nil {
		return err
	}

	status, err := engine.Aggregate(cmd.Context(), variantID, refs)
	if err != nil {
		return err
	}

	fmt.Printf("aggregate %s: %s\n", variantID, status)
	return nil
}

func newAggregateEngine(cfg types.PipelineConfig, log *zap.Logger) (*aggregate.Engine, error) {
	s, err := newStore(cfg, log)
	if err != nil {
		return nil, err
	}
	completer, err := newCompleter(cfg.Aggregation.AIConfig)
	if err != nil {
		return nil, err
	}
	shape, err := llm.GetShape(cfg.Aggregation.Shape)
	if err != nil {
		return nil, err
	}
	return &aggregate.Engine{
		Store:     s,
		Completer: completer,
		Shape:     shape,
		Config:    cfg.Aggregation,
		Log:       log,
	}, nil
}

func init() {
	aggregateCmd.Flags().String("variant-id", "", "variant identifier (required)")
	aggregateCmd.Flags().String("model", "", "model identifier (overrides config)")
	aggregateCmd.Flags().String("shape", "", "result shape: generic or acmg-criteria")
	aggregateCmd.Flags().String("api-key", "", "model API key (overrides config and secrets)")
	aggregateCmd.Flags().String("storage-root", "", "filesystem storage root (fs backend)")
	aggregateCmd.Flags().String("catalog", "", "variant catalog database path")
	aggregateCmd.Flags().Bool("verbose", false, "enable debug logging")

	rootCmd.AddCommand(aggregateCmd)
}
