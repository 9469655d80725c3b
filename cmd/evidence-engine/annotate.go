// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/evidence-engine/internal/annotate"
)

var annotateCmd = &cobra.Command{
	Use:   "annotate",
	Short: "Write highlighted PDFs for a variant's aggregate citations",
	Long: `Annotate reads the stored aggregate result and writes one annotated copy
of each cited paper's PDF, with every cited bounding box highlighted and the
citation's commentary attached as the note text.`,
	RunE: runAnnotate,
}

func runAnnotate(cmd *cobra.Command, args []string) error {
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

	s, err := newStore(cfg, log)
	if err != nil {
		return err
	}

	engine := &annotate.Engine{Store: s, Config: cfg.Annotation, Log: log}
	summary, err := engine.Annotate(cmd.Context(), variantID)
	if err != nil {
		return err
	}

	fmt.Printf("annotated %d paper(s), failed %d\n", summary.Annotated, summary.Failed)
	return nil
}

func init() {
	annotateCmd.Flags().String("variant-id", "", "variant identifier (required)")
	annotateCmd.Flags().String("storage-root", "", "filesystem storage root (fs backend)")
	annotateCmd.Flags().Bool("verbose", false, "enable debug logging")

	rootCmd.AddCommand(annotateCmd)
}
