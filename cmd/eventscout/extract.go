package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/lnup/eventscout/internal/enrichment"
	"github.com/spf13/cobra"
)

var (
	extractURL    string
	extractText   string
	extractSource string
	extractJSON   bool
)

// extractCmd reads event candidates from a page or pasted text
var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract events from a web page or text",
	Long: `Extract event listings from a web page or a block of text.

Examples:
  # Extract from a venue's programme page
  eventscout extract --url https://example.com/programm

  # Extract from text on stdin
  pbpaste | eventscout extract --text - --source https://instagram.com/p/abc`,
	Args: cobra.NoArgs,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVar(&extractURL, "url", "", "page to read events from")
	extractCmd.Flags().StringVar(&extractText, "text", "", "text to read events from, - for stdin")
	extractCmd.Flags().StringVar(&extractSource, "source", "", "source URL to attach to text extraction")
	extractCmd.Flags().BoolVar(&extractJSON, "json", false, "print candidates as JSON")
	extractCmd.MarkFlagsMutuallyExclusive("url", "text")
	extractCmd.MarkFlagsOneRequired("url", "text")
}

func runExtract(cmd *cobra.Command, args []string) error {
	text := extractText
	if text == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	}

	cfg, logger, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	extractor := enrichment.NewExtractor(newGenerator(cfg.LLM, logger), cfg.LLM.APIKey(), logger)

	var candidates []enrichment.Candidate
	if extractURL != "" {
		candidates, err = extractor.ExtractFromURL(cmd.Context(), extractURL)
	} else {
		candidates, err = extractor.ExtractFromText(cmd.Context(), text, extractSource)
	}
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}

	if extractJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(candidates)
	}
	printCandidates(cmd.OutOrStdout(), candidates)
	return nil
}

func printCandidates(w io.Writer, candidates []enrichment.Candidate) {
	fmt.Fprintf(w, "Extracted %d events.\n\n", len(candidates))
	for _, c := range candidates {
		fmt.Fprintf(w, "- %s [%s]\n", c.Title, c.Category)
		fmt.Fprintf(w, "  Date: %s %s | %s\n", c.Date, c.TimeStart, c.VenueName)
		if c.PriceInfo != "" {
			fmt.Fprintf(w, "  Price: %s\n", c.PriceInfo)
		}
		fmt.Fprintf(w, "  Confidence: %.2f\n\n", c.Confidence)
	}
}
