package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/market-pricing/internal/market"
)

var bandCmd = &cobra.Command{
	Use:   "band",
	Short: "Estimate the fair price band for a job",
	Long: `Estimate the fair price band for a job description.

Examples:
  # Long-distance transfer
  band --category transport --city Antalya --description "airport to Kas" --distance-km 190

  # Tour for four, heuristic only
  band --category tour --city Cappadocia --description "balloon ride" --passengers 4 --heuristic`,
	RunE: runBand,
}

func init() {
	f := bandCmd.Flags()
	f.String("category", "", "job category: transport, tour, service or financing (required)")
	f.String("city", "", "job city (required)")
	f.String("description", "", "job description (required)")
	f.Float64("distance-km", 0, "trip distance in km")
	f.Int("passengers", 0, "passenger count")
	f.Float64("budget", 0, "buyer budget hint")
	f.String("at", "", "requested time (RFC 3339)")
	f.Bool("heuristic", false, "skip the language model and use the heuristic only")
	f.Bool("json", false, "print the band as JSON")
	_ = bandCmd.MarkFlagRequired("category")

	rootCmd.AddCommand(bandCmd)
}

// jobRequestFromFlags builds a JobRequest; hints are set only when their
// flag was given.
func jobRequestFromFlags(cmd *cobra.Command) (market.JobRequest, error) {
	f := cmd.Flags()
	var req market.JobRequest
	req.Category, _ = f.GetString("category")
	req.City, _ = f.GetString("city")
	req.Description, _ = f.GetString("description")

	if f.Changed("distance-km") {
		v, _ := f.GetFloat64("distance-km")
		req.DistanceKm = &v
	}
	if f.Changed("passengers") {
		v, _ := f.GetInt("passengers")
		req.PassengerCount = &v
	}
	if f.Changed("budget") {
		v, _ := f.GetFloat64("budget")
		req.BudgetHint = &v
	}
	if at, _ := f.GetString("at"); at != "" {
		ts, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return req, eris.Wrapf(err, "band: --at %q", at)
		}
		req.Timestamp = &ts
	}
	return req, nil
}

func runBand(cmd *cobra.Command, _ []string) error {
	heuristic, _ := cmd.Flags().GetBool("heuristic")
	asJSON, _ := cmd.Flags().GetBool("json")

	req, err := jobRequestFromFlags(cmd)
	if err != nil {
		return err
	}
	br, err := req.BandRequest()
	if err != nil {
		return err
	}

	eng, err := buildEngine(cfg, heuristic)
	if err != nil {
		return err
	}
	band := eng.generator.Generate(cmd.Context(), br)

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(band)
	}

	source := "heuristic"
	if band.EstimatorGenerated {
		source = "estimator"
	}
	fmt.Fprintf(out, "Category:    %s\n", br.Category)
	fmt.Fprintf(out, "City:        %s\n", br.City)
	fmt.Fprintf(out, "Min:         %.0f %s\n", band.MinAmount, cfg.Pricing.Currency)
	fmt.Fprintf(out, "Recommended: %.0f %s\n", band.RecommendedAmount, cfg.Pricing.Currency)
	fmt.Fprintf(out, "Max:         %.0f %s\n", band.MaxAmount, cfg.Pricing.Currency)
	fmt.Fprintf(out, "Source:      %s\n", source)
	if band.Reasoning != "" {
		fmt.Fprintf(out, "Reasoning:   %s\n", band.Reasoning)
	}
	return nil
}
