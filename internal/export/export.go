package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/san-kum/optsim/internal/analysis"
	"github.com/san-kum/optsim/internal/experiment"
	"github.com/san-kum/optsim/internal/params"
	"github.com/san-kum/optsim/internal/pricing"
	"github.com/san-kum/optsim/internal/sim"
)

type ExportData struct {
	Params       params.Set       `json:"params"`
	Seed         int64            `json:"seed"`
	MonteCarlo   pricing.Estimate `json:"monteCarlo"`
	BlackScholes pricing.Estimate `json:"blackScholes"`
	Errors       analysis.Report  `json:"errors"`
	TotalPaths   int              `json:"totalPaths"`
	Times        []float64        `json:"times"`
	Paths        []sim.Path       `json:"paths"`
}

func FromResult(result *experiment.Result) ExportData {
	data := ExportData{
		Params:       result.Params,
		Seed:         result.Seed,
		MonteCarlo:   result.MonteCarlo,
		BlackScholes: result.BlackScholes,
		Errors:       result.Errors,
		TotalPaths:   result.TotalPaths,
		Times:        []float64{},
		Paths:        result.Samples,
	}
	if len(result.Samples) > 0 {
		data.Times = result.Samples[0].Times(result.Params.Maturity)
	}
	if data.Paths == nil {
		data.Paths = []sim.Path{}
	}
	return data
}

func WriteJSON(w io.Writer, result *experiment.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(FromResult(result))
}

// WriteCSV writes a time column followed by one column per path.
func WriteCSV(w io.Writer, paths []sim.Path, maturity float64) error {
	cw := csv.NewWriter(w)

	header := []string{"time"}
	for i := range paths {
		header = append(header, fmt.Sprintf("path%d", i))
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	if len(paths) > 0 {
		times := paths[0].Times(maturity)
		for step := range times {
			row := []string{strconv.FormatFloat(times[step], 'f', 6, 64)}
			for _, p := range paths {
				row = append(row, strconv.FormatFloat(p[step], 'f', 6, 64))
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}
