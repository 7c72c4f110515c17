package batch

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

var outputHeader = []string{
	"line", "job_category", "job_city", "offer_price", "offer_eta_minutes",
	"band_min", "band_recommended", "band_max", "score", "estimator_generated", "reasoning",
}

func resultRecord(r Result) []string {
	in := r.Row.Input
	return []string{
		fmt.Sprintf("%d", r.Row.Line),
		string(in.JobCategory),
		in.JobCity,
		fmt.Sprintf("%.2f", in.OfferPrice),
		fmt.Sprintf("%d", in.OfferETAMinutes),
		fmt.Sprintf("%.0f", in.PriceBand.MinAmount),
		fmt.Sprintf("%.0f", in.PriceBand.RecommendedAmount),
		fmt.Sprintf("%.0f", in.PriceBand.MaxAmount),
		fmt.Sprintf("%.4f", r.Score.Score),
		fmt.Sprintf("%v", r.Score.EstimatorGenerated),
		r.Score.Reasoning,
	}
}

// WriteCSV writes results with a header row.
func WriteCSV(w io.Writer, results []Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(outputHeader); err != nil {
		return eris.Wrap(err, "batch: write CSV header")
	}
	for _, r := range results {
		if err := cw.Write(resultRecord(r)); err != nil {
			return eris.Wrap(err, "batch: write CSV row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "batch: flush CSV")
}

// WriteTable writes a fixed-width table for terminals.
func WriteTable(w io.Writer, results []Result) error {
	header := fmt.Sprintf("%-5s %-10s %-14s %10s %5s %21s %7s %4s\n",
		"Line", "Category", "City", "Price", "ETA", "Band (min/rec/max)", "Score", "LLM")
	if _, err := fmt.Fprint(w, header); err != nil {
		return eris.Wrap(err, "batch: write table header")
	}
	if _, err := fmt.Fprintln(w, strings.Repeat("-", 84)); err != nil {
		return eris.Wrap(err, "batch: write table separator")
	}

	for _, r := range results {
		in := r.Row.Input
		city := in.JobCity
		if r := []rune(city); len(r) > 14 {
			city = string(r[:11]) + "..."
		}
		band := fmt.Sprintf("%.0f/%.0f/%.0f", in.PriceBand.MinAmount, in.PriceBand.RecommendedAmount, in.PriceBand.MaxAmount)
		llm := "no"
		if r.Score.EstimatorGenerated {
			llm = "yes"
		}
		line := fmt.Sprintf("%-5d %-10s %-14s %10.2f %5d %21s %7.3f %4s\n",
			r.Row.Line, in.JobCategory, city, in.OfferPrice, in.OfferETAMinutes, band, r.Score.Score, llm)
		if _, err := fmt.Fprint(w, line); err != nil {
			return eris.Wrap(err, "batch: write table row")
		}
	}
	return nil
}

// WriteXLSX saves results to a workbook at path.
func WriteXLSX(path string, results []Result) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("scores")
	if err != nil {
		return eris.Wrap(err, "batch: add sheet")
	}

	row := sheet.AddRow()
	for _, h := range outputHeader {
		row.AddCell().SetString(h)
	}

	for _, r := range results {
		in := r.Row.Input
		row := sheet.AddRow()
		row.AddCell().SetInt(r.Row.Line)
		row.AddCell().SetString(string(in.JobCategory))
		row.AddCell().SetString(in.JobCity)
		row.AddCell().SetFloat(in.OfferPrice)
		row.AddCell().SetInt(in.OfferETAMinutes)
		row.AddCell().SetFloat(in.PriceBand.MinAmount)
		row.AddCell().SetFloat(in.PriceBand.RecommendedAmount)
		row.AddCell().SetFloat(in.PriceBand.MaxAmount)
		row.AddCell().SetFloat(r.Score.Score)
		row.AddCell().SetBool(r.Score.EstimatorGenerated)
		row.AddCell().SetString(r.Score.Reasoning)
	}

	return eris.Wrap(f.Save(path), "batch: save xlsx")
}
