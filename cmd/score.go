package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/market-pricing/internal/batch"
	"github.com/sells-group/market-pricing/internal/model"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score one offer, or a file of offers",
	Long: `Score offers against a job's fair price band.

Single offer mode takes the job, offer and provider from flags. When no
band is given it is generated from the job the same way "band" does.

Batch mode (--input) reads a CSV or XLSX file with a header row. Columns:
offer_price and job_category are required; offer_eta_minutes, offer_notes,
job_city, job_description, job_budget_hint, distance_km, passenger_count,
provider_rating, provider_verified, band_min, band_max and band_recommended
are optional.

Examples:
  # Score one offer
  score --category service --city Izmir --description "boiler repair" --price 320 --eta 25 --rating 4.6 --verified

  # Score a file and export to Excel
  score --input offers.csv --format xlsx --output scores.xlsx --concurrency 8`,
	RunE: runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.String("category", "", "job category")
	f.String("city", "", "job city")
	f.String("description", "", "job description")
	f.Float64("distance-km", 0, "trip distance in km (band generation)")
	f.Int("passengers", 0, "passenger count (band generation)")
	f.Float64("price", 0, "offer price")
	f.Int("eta", 0, "offer ETA in minutes")
	f.String("notes", "", "offer notes")
	f.Float64("rating", 0, "provider rating (0-5)")
	f.Bool("verified", false, "provider is verified")
	f.Float64("band-min", 0, "band minimum (requires --band-max)")
	f.Float64("band-max", 0, "band maximum (requires --band-min)")
	f.Float64("band-rec", 0, "band recommended amount")
	f.Bool("heuristic", false, "skip the language model and use heuristics only")

	f.String("input", "", "CSV or XLSX file of offers to score")
	f.Int("concurrency", 4, "parallel scorers in batch mode")
	f.String("format", "table", "batch output format: table, csv or xlsx")
	f.String("output", "", "output file path (default: stdout; required for xlsx)")

	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	cmd.SetContext(ctx)

	heuristic, _ := cmd.Flags().GetBool("heuristic")
	eng, err := buildEngine(cfg, heuristic)
	if err != nil {
		return err
	}

	if input, _ := cmd.Flags().GetString("input"); input != "" {
		return runScoreBatch(cmd, eng, input)
	}
	return runScoreOne(cmd, eng)
}

func runScoreOne(cmd *cobra.Command, eng *engine) error {
	f := cmd.Flags()
	ctx := cmd.Context()

	req, err := jobRequestFromFlags(cmd)
	if err != nil {
		return err
	}
	br, err := req.BandRequest()
	if err != nil {
		return err
	}

	price, _ := f.GetFloat64("price")
	if price <= 0 {
		return eris.New("score: --price must be positive")
	}
	eta, _ := f.GetInt("eta")
	notes, _ := f.GetString("notes")
	rating, _ := f.GetFloat64("rating")
	verified, _ := f.GetBool("verified")

	var band model.PriceBand
	if f.Changed("band-min") && f.Changed("band-max") {
		band.MinAmount, _ = f.GetFloat64("band-min")
		band.MaxAmount, _ = f.GetFloat64("band-max")
		band.RecommendedAmount = (band.MinAmount + band.MaxAmount) / 2
		if f.Changed("band-rec") {
			band.RecommendedAmount, _ = f.GetFloat64("band-rec")
		}
	} else {
		band = eng.generator.Generate(ctx, br)
	}

	score := eng.scorer.Score(ctx, model.OfferScoreInput{
		OfferPrice:       price,
		OfferETAMinutes:  eta,
		OfferNotes:       notes,
		JobCategory:      br.Category,
		JobCity:          br.City,
		JobDescription:   br.Description,
		JobBudgetHint:    br.BudgetHint,
		ProviderRating:   rating,
		ProviderVerified: verified,
		PriceBand:        band,
	})

	printSingleScore(cmd.OutOrStdout(), band, score)
	return nil
}

func printSingleScore(w io.Writer, band model.PriceBand, s model.OfferScore) {
	fmt.Fprintf(w, "Band:   %.0f / %.0f / %.0f\n", band.MinAmount, band.RecommendedAmount, band.MaxAmount)
	fmt.Fprintf(w, "Score:  %.3f\n", s.Score)
	fmt.Fprintf(w, "Source: %s\n", sourceLabel(s.EstimatorGenerated))
	if s.Reasoning != "" {
		fmt.Fprintf(w, "Reason: %s\n", s.Reasoning)
	}
	if len(s.Components) > 0 {
		keys := make([]string, 0, len(s.Components))
		for k := range s.Components {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintln(w, "\nComponents:")
		for _, k := range keys {
			fmt.Fprintf(w, "  %-16s %.3f\n", k, s.Components[k])
		}
	}
}

func sourceLabel(estimator bool) string {
	if estimator {
		return "estimator"
	}
	return "heuristic"
}

func runScoreBatch(cmd *cobra.Command, eng *engine, input string) error {
	f := cmd.Flags()
	format, _ := f.GetString("format")
	outputPath, _ := f.GetString("output")
	concurrency, _ := f.GetInt("concurrency")

	switch format {
	case "table", "csv":
	case "xlsx":
		if outputPath == "" {
			return eris.New("score: --output is required for xlsx")
		}
	default:
		return eris.Errorf("score: --format must be table, csv or xlsx (got %q)", format)
	}

	tbl, err := batch.ReadFile(input)
	if err != nil {
		return err
	}
	rows, err := batch.ParseTable(tbl)
	if err != nil {
		return err
	}

	log := zap.L().With(zap.String("command", "score"))
	log.Info("scoring batch", zap.String("input", input), zap.Int("rows", len(rows)))

	runner := &batch.Runner{Bands: eng.generator, Scorer: eng.scorer, Concurrency: concurrency}
	results, err := runner.Run(cmd.Context(), rows)
	if err != nil {
		return eris.Wrap(err, "score: batch")
	}

	if format == "xlsx" {
		return batch.WriteXLSX(outputPath, results)
	}

	w := cmd.OutOrStdout()
	if outputPath != "" {
		file, err := os.Create(outputPath)
		if err != nil {
			return eris.Wrapf(err, "score: create output file %s", outputPath)
		}
		defer file.Close() //nolint:errcheck
		w = file
	}

	if format == "csv" {
		return batch.WriteCSV(w, results)
	}
	return batch.WriteTable(w, results)
}
