package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/lnup/eventscout/internal/enrichment"
	"github.com/lnup/eventscout/internal/models"
	"github.com/spf13/cobra"
)

const defaultCity = "Passau"

// discoverCmd runs AI discovery for one city
var discoverCmd = &cobra.Command{
	Use:   "discover [city]",
	Short: "Discover upcoming events in a city",
	Long: `Ask the language model for events in the next two weeks and print
the ones that pass the confidence and grounding checks.

Examples:
  # Discover events in Passau
  eventscout discover

  # Discover events in another city
  eventscout discover Regensburg`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDiscover,
}

func runDiscover(cmd *cobra.Command, args []string) error {
	city := defaultCity
	if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
		city = args[0]
	}

	cfg, logger, err := loadEnv(cmd)
	if err != nil {
		return err
	}

	discoveryCfg := enrichment.DefaultDiscoveryConfig()
	discoveryCfg.WindowDays = int(cfg.Discovery.Window.Hours() / 24)
	discoveryCfg.MinConfidence = cfg.Discovery.MinConfidence
	discoveryCfg.GroundingPenalty = cfg.Discovery.GroundingPenalty

	discoverer := enrichment.NewDiscoverer(
		newGenerator(cfg.LLM, logger),
		cfg.LLM.APIKey(),
		enrichment.NewMemoryDiscoveryCache(),
		discoveryCfg,
		logger,
		nil,
	)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nTesting AI discovery for: %s\n\n", city)

	events, err := discoverer.DiscoverLocalEvents(cmd.Context(), city)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}

	printEvents(out, events)
	return nil
}

func printEvents(w io.Writer, events []models.Event) {
	fmt.Fprintf(w, "Found %d events.\n\n", len(events))
	for _, e := range events {
		venue := e.VenueName()
		if venue == "" {
			venue = "—"
		}
		source := "—"
		instagram := ""
		if e.SourceURL != nil && *e.SourceURL != "" {
			source = *e.SourceURL
			if strings.Contains(source, "instagram.com") {
				instagram = " [Instagram]"
			}
		}

		fmt.Fprintf(w, "- %s\n", e.Title)
		fmt.Fprintf(w, "  Date: %s %s | %s\n", e.EventDate, e.TimeStart, venue)
		fmt.Fprintf(w, "  Source: %s%s\n", source, instagram)
		fmt.Fprintf(w, "  Confidence: %.2f\n\n", e.Confidence())
	}
	if len(events) == 0 {
		fmt.Fprintln(w, "(No events returned - try another city or check the API key.)")
	}
}
