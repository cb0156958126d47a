// Package server exposes the pricing pipeline over HTTP.
//
// Prices and errors leave the service as shopspring/decimal values rounded
// to a fixed number of places, so clients never see float noise.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/san-kum/optsim/internal/analysis"
	"github.com/san-kum/optsim/internal/config"
	"github.com/san-kum/optsim/internal/experiment"
	"github.com/san-kum/optsim/internal/params"
	"github.com/san-kum/optsim/internal/pricing"
	"github.com/san-kum/optsim/internal/storage"
)

// Places is the number of decimal places in API prices.
const Places = 6

// DefaultMaxSimulations bounds N for a single API request.
const DefaultMaxSimulations = 1_000_000

// DefaultMaxSteps bounds M for a single API request.
const DefaultMaxSteps = 10_000

// Service handles pricing requests. A nil store disables persistence and
// the run endpoints.
type Service struct {
	store          *storage.Store
	workers        int
	maxSimulations int
	maxSteps       int
}

// NewService returns a service. Limits below 1 fall back to the defaults.
func NewService(st *storage.Store, workers, maxSimulations, maxSteps int) *Service {
	if maxSimulations < 1 {
		maxSimulations = DefaultMaxSimulations
	}
	if maxSteps < 1 {
		maxSteps = DefaultMaxSteps
	}
	return &Service{store: st, workers: workers, maxSimulations: maxSimulations, maxSteps: maxSteps}
}

// --- Request/Response types ---

// PriceRequest is the JSON body for POST /price. Omitted fields come from
// the preset, or the defaults when no preset is named.
type PriceRequest struct {
	Preset      string           `json:"preset,omitempty"`
	Spot        *decimal.Decimal `json:"spot,omitempty"`
	Strike      *decimal.Decimal `json:"strike,omitempty"`
	Maturity    *decimal.Decimal `json:"maturity,omitempty"`
	Volatility  *decimal.Decimal `json:"volatility,omitempty"`
	Rate        *decimal.Decimal `json:"rate,omitempty"`
	Simulations *int             `json:"simulations,omitempty"`
	Steps       *int             `json:"steps,omitempty"`
	// Seed is drawn from the clock when omitted and echoed in the response.
	Seed    *int64 `json:"seed,omitempty"`
	Samples int    `json:"samples,omitempty"`
	Save    bool   `json:"save,omitempty"`
}

type EstimateResponse struct {
	Call       decimal.Decimal `json:"call"`
	Put        decimal.Decimal `json:"put"`
	CallStdErr decimal.Decimal `json:"call_stderr"`
	PutStdErr  decimal.Decimal `json:"put_stderr"`
}

type ErrorResponse struct {
	CallDiff decimal.Decimal  `json:"call_diff"`
	PutDiff  decimal.Decimal  `json:"put_diff"`
	CallAbs  decimal.Decimal  `json:"call_abs"`
	PutAbs   decimal.Decimal  `json:"put_abs"`
	CallPct  *decimal.Decimal `json:"call_pct"`
	PutPct   *decimal.Decimal `json:"put_pct"`
}

type PriceResponse struct {
	RunID        string           `json:"run_id,omitempty"`
	Params       params.Set       `json:"params"`
	Seed         int64            `json:"seed"`
	MonteCarlo   EstimateResponse `json:"monte_carlo"`
	BlackScholes EstimateResponse `json:"black_scholes"`
	Errors       ErrorResponse    `json:"errors"`
	TotalPaths   int              `json:"total_paths"`
	ElapsedMs    float64          `json:"elapsed_ms"`
	Samples      [][]float64      `json:"samples,omitempty"`
}

func round(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(Places)
}

func estimateResponse(e pricing.Estimate) EstimateResponse {
	return EstimateResponse{
		Call:       round(e.Call),
		Put:        round(e.Put),
		CallStdErr: round(e.CallStdErr),
		PutStdErr:  round(e.PutStdErr),
	}
}

func percentResponse(p analysis.Percent) *decimal.Decimal {
	if !p.Applicable {
		return nil
	}
	d := decimal.NewFromFloat(p.Value).Round(4)
	return &d
}

func priceResponse(res *experiment.Result) PriceResponse {
	resp := PriceResponse{
		Params:       res.Params,
		Seed:         res.Seed,
		MonteCarlo:   estimateResponse(res.MonteCarlo),
		BlackScholes: estimateResponse(res.BlackScholes),
		Errors: ErrorResponse{
			CallDiff: round(res.Errors.CallDiff),
			PutDiff:  round(res.Errors.PutDiff),
			CallAbs:  round(res.Errors.CallAbs),
			PutAbs:   round(res.Errors.PutAbs),
			CallPct:  percentResponse(res.Errors.CallPct),
			PutPct:   percentResponse(res.Errors.PutPct),
		},
		TotalPaths: res.TotalPaths,
		ElapsedMs:  float64(res.Elapsed.Microseconds()) / 1000,
	}
	for _, p := range res.Samples {
		resp.Samples = append(resp.Samples, []float64(p))
	}
	return resp
}

// resolve builds the parameter set of a request on top of its preset.
func (r PriceRequest) resolve() (params.Set, error) {
	cfg := config.DefaultConfig()
	if r.Preset != "" {
		cfg = config.GetPreset(r.Preset)
		if cfg == nil {
			return params.Set{}, errUnknownPreset
		}
	}
	p := cfg.ParameterSet()

	set := func(dst *float64, v *decimal.Decimal) {
		if v != nil {
			*dst = v.InexactFloat64()
		}
	}
	set(&p.Spot, r.Spot)
	set(&p.Strike, r.Strike)
	set(&p.Maturity, r.Maturity)
	set(&p.Volatility, r.Volatility)
	set(&p.Rate, r.Rate)
	if r.Simulations != nil {
		p.Simulations = *r.Simulations
	}
	if r.Steps != nil {
		p.Steps = *r.Steps
	}
	return p, nil
}

var errUnknownPreset = errors.New("unknown preset")

// --- HTTP Handlers ---

// Price handles POST /api/v1/price
func (s *Service) Price(w http.ResponseWriter, r *http.Request) {
	var req PriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	p, err := req.resolve()
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if p.Simulations > s.maxSimulations {
		writeError(w, "simulations exceeds the server limit", http.StatusBadRequest)
		return
	}
	if p.Steps > s.maxSteps {
		writeError(w, "steps exceeds the server limit", http.StatusBadRequest)
		return
	}

	seed := time.Now().UnixNano()
	if req.Seed != nil {
		seed = *req.Seed
	}
	samples := req.Samples
	if samples == 0 {
		samples = -1
	}

	res, err := experiment.Price(r.Context(), experiment.Config{
		Params:      p,
		Seed:        seed,
		Workers:     s.workers,
		SampleLimit: samples,
	})
	if errors.Is(err, params.ErrInvalid) {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		slog.Error("pricing failed", "err", err, "params", p.String())
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := priceResponse(res)
	if req.Save && s.store != nil {
		runID, err := s.store.Save(res)
		if err != nil {
			slog.Error("saving run failed", "err", err)
			writeError(w, "failed to save run", http.StatusInternalServerError)
			return
		}
		resp.RunID = runID
	}

	slog.Info("priced",
		"params", p.String(),
		"seed", seed,
		"mc_call", res.MonteCarlo.Call,
		"bs_call", res.BlackScholes.Call,
		"run_id", resp.RunID,
	)

	writeJSON(w, http.StatusOK, resp)
}

// ListPresets handles GET /api/v1/presets
func (s *Service) ListPresets(w http.ResponseWriter, r *http.Request) {
	out := make(map[string]params.Set, len(config.Presets))
	for _, name := range config.ListPresets() {
		out[name] = config.GetPreset(name).ParameterSet()
	}
	writeJSON(w, http.StatusOK, out)
}

// ListRuns handles GET /api/v1/runs
func (s *Service) ListRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, "run storage disabled", http.StatusNotFound)
		return
	}
	runs, err := s.store.List()
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetRun handles GET /api/v1/runs/{runID}
func (s *Service) GetRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, "run storage disabled", http.StatusNotFound)
		return
	}
	meta, err := s.store.Load(chi.URLParam(r, "runID"))
	if errors.Is(err, storage.ErrRunNotFound) {
		writeError(w, "run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
