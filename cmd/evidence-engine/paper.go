// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/evidence-engine/internal/docbox"
	"github.com/pdiddy/evidence-engine/internal/store"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

var paperCmd = &cobra.Command{
	Use:   "paper",
	Short: "Manage stored papers (ingest, boxes)",
}

// --- ingest subcommand ---

var paperIngestCmd = &cobra.Command{
	Use:   "ingest <ref>",
	Short: "Store a parsed paper's artifacts",
	Long: `Ingest writes a paper's parsed document, source PDF, and metadata into
storage under papers/{ref}/. The document must already be parsed; this
command validates that it renders and loads it as-is.`,
	Args: cobra.ExactArgs(1),
	RunE: runPaperIngest,
}

func runPaperIngest(cmd *cobra.Command, args []string) error {
	ref := args[0]
	documentPath, _ := cmd.Flags().GetString("document")
	pdfPath, _ := cmd.Flags().GetString("pdf")
	metadataPath, _ := cmd.Flags().GetString("metadata")

	if documentPath == "" {
		return fmt.Errorf("--document is required")
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

	docBytes, err := os.ReadFile(documentPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", documentPath, err)
	}
	doc, err := docbox.ParseDocument(docBytes)
	if err != nil {
		return fmt.Errorf("%s is not a parsed document: %w", documentPath, err)
	}
	if err := s.WriteBytes(cmd.Context(), store.DocumentKey(ref), docBytes); err != nil {
		return err
	}

	if pdfPath != "" {
		pdfBytes, err := os.ReadFile(pdfPath)
		if err != nil {
			return fmt.Errorf("reading %s: %w", pdfPath, err)
		}
		if err := s.WriteBytes(cmd.Context(), store.SourceKey(ref), pdfBytes); err != nil {
			return err
		}
	}

	if metadataPath != "" {
		metaBytes, err := os.ReadFile(metadataPath)
		if err != nil {
			return fmt.Errorf("reading %s: %w", metadataPath, err)
		}
		var metadata types.PaperMetadata
		if err := json.Unmarshal(metaBytes, &metadata); err != nil {
			return fmt.Errorf("%s is not paper metadata: %w", metadataPath, err)
		}
		if metadata.SchemaVersion == 0 {
			metadata.SchemaVersion = types.MetadataSchemaVersion
		}
		if err := s.WriteJSON(cmd.Context(), store.MetadataKey(ref), metadata); err != nil {
			return err
		}
	}

	mapping := docbox.MappingOnly(doc)
	fmt.Printf("ingested %s (%d boxes)\n", ref, len(mapping))
	return nil
}

// --- boxes subcommand ---

var paperBoxesCmd = &cobra.Command{
	Use:   "boxes <ref>",
	Short: "Print a stored paper's rendered text with box markers",
	Long: `Boxes renders the stored parsed document exactly as the extraction
prompt sees it, with <b id=N> markers, and prints it to stdout. Useful for
checking what a citation's box id points at.`,
	Args: cobra.ExactArgs(1),
	RunE: runPaperBoxes,
}

func runPaperBoxes(cmd *cobra.Command, args []string) error {
	ref := args[0]
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

	docBytes, err := s.ReadBytes(cmd.Context(), store.DocumentKey(ref))
	if err != nil {
		return err
	}
	doc, err := docbox.ParseDocument(docBytes)
	if err != nil {
		return err
	}

	text, mapping := docbox.Render(doc)
	fmt.Println(text)
	fmt.Fprintf(os.Stderr, "%d boxes\n", len(mapping))
	return nil
}

func init() {
	paperCmd.PersistentFlags().String("storage-root", "", "filesystem storage root (fs backend)")
	paperCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")

	paperIngestCmd.Flags().String("document", "", "path to the parsed document JSON (required)")
	paperIngestCmd.Flags().String("pdf", "", "path to the source PDF")
	paperIngestCmd.Flags().String("metadata", "", "path to the metadata JSON")

	paperCmd.AddCommand(paperIngestCmd)
	paperCmd.AddCommand(paperBoxesCmd)

	rootCmd.AddCommand(paperCmd)
}
