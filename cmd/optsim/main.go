package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/optsim/internal/analysis"
	"github.com/san-kum/optsim/internal/automation"
	"github.com/san-kum/optsim/internal/config"
	"github.com/san-kum/optsim/internal/experiment"
	"github.com/san-kum/optsim/internal/export"
	"github.com/san-kum/optsim/internal/pricing"
	"github.com/san-kum/optsim/internal/server"
	"github.com/san-kum/optsim/internal/storage"
	"github.com/san-kum/optsim/internal/tui"
	"github.com/san-kum/optsim/internal/viz"
)

var (
	dataDir string
	verbose bool

	spot       float64
	strike     float64
	maturity   float64
	volatility float64
	rate       float64
	sims       int
	steps      int
	seed       int64
	workers    int
	samples    int

	configFile string
	preset     string

	save     bool
	showPlot bool
	theme    string

	sizes []int
	runs  int

	sweepParam  string
	sweepMin    float64
	sweepMax    float64
	sweepPoints int

	svgWidth  int
	svgHeight int

	addr           string
	requestTimeout time.Duration
	maxSims        int
	maxSteps       int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "optsim",
		Short: "monte carlo option pricing against black-scholes",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
		RunE: runTUI,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".optsim", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	addPricingFlags(rootCmd)
	rootCmd.Flags().StringVar(&theme, "theme", "terminal", "color theme")

	priceCmd := &cobra.Command{
		Use:   "price",
		Short: "price a european call and put",
		RunE:  runPrice,
	}
	addPricingFlags(priceCmd)
	priceCmd.Flags().BoolVar(&save, "save", false, "store the run")
	priceCmd.Flags().BoolVar(&showPlot, "plot", false, "plot sample paths")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "price and store the run",
		RunE: func(cmd *cobra.Command, args []string) error {
			save = true
			return runPrice(cmd, args)
		},
	}
	addPricingFlags(runCmd)
	runCmd.Flags().BoolVar(&showPlot, "plot", false, "plot sample paths")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot stored sample paths",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id] [file]",
		Short: "export sample paths to CSV",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id] [file]",
		Short: "export run data to JSON",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  exportJSON,
	}

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id] [file]",
		Short: "export sample paths to SVG",
		Args:  cobra.ExactArgs(2),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().IntVar(&svgWidth, "width", 800, "image width")
	exportSVGCmd.Flags().IntVar(&svgHeight, "height", 400, "image height")

	convergeCmd := &cobra.Command{
		Use:   "converge",
		Short: "median pricing error as the path count grows",
		RunE:  runConverge,
	}
	addPricingFlags(convergeCmd)
	convergeCmd.Flags().IntSliceVar(&sizes, "sizes", []int{100, 1000, 10000, 100000}, "path counts")
	convergeCmd.Flags().IntVar(&runs, "runs", 5, "runs per path count")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "price across a range of one parameter",
		RunE:  runSweep,
	}
	addPricingFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "volatility", "parameter to sweep")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0.1, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 0.5, "last value")
	sweepCmd.Flags().IntVar(&sweepPoints, "points", 9, "number of values")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a yaml scenario of pricing requests",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	scenarioCmd.Flags().IntVar(&workers, "workers", 0, "simulation workers (0 = NumCPU)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE:  listPresets,
	}

	configCmd := &cobra.Command{
		Use:   "config [file]",
		Short: "write the resolved configuration as yaml",
		Args:  cobra.ExactArgs(1),
		RunE:  writeConfig,
	}
	addPricingFlags(configCmd)

	tuiCmd := &cobra.Command{
		Use:   "tui",
		Short: "interactive parameter panel",
		RunE:  runTUI,
	}
	addPricingFlags(tuiCmd)
	tuiCmd.Flags().StringVar(&theme, "theme", "terminal", "color theme")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "serve the pricing api",
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	serveCmd.Flags().DurationVar(&requestTimeout, "timeout", 60*time.Second, "request timeout")
	serveCmd.Flags().IntVar(&maxSims, "max-sims", server.DefaultMaxSimulations, "largest N accepted per request")
	serveCmd.Flags().IntVar(&maxSteps, "max-steps", server.DefaultMaxSteps, "largest M accepted per request")
	serveCmd.Flags().IntVar(&workers, "workers", 0, "simulation workers (0 = NumCPU)")

	rootCmd.AddCommand(priceCmd, runCmd, listCmd, showCmd, plotCmd, exportCSVCmd, exportJSONCmd, exportSVGCmd, convergeCmd, sweepCmd, scenarioCmd, presetsCmd, configCmd, tuiCmd, serveCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func addPricingFlags(cmd *cobra.Command) {
	d := config.DefaultConfig()
	f := cmd.Flags()
	f.Float64Var(&spot, "spot", d.Params.Spot, "initial stock price S0")
	f.Float64Var(&strike, "strike", d.Params.Strike, "strike price K")
	f.Float64Var(&maturity, "maturity", d.Params.Maturity, "time to maturity T in years")
	f.Float64Var(&volatility, "vol", d.Params.Volatility, "volatility sigma")
	f.Float64Var(&rate, "rate", d.Params.Rate, "risk-free rate r")
	f.IntVar(&sims, "sims", d.Params.Simulations, "number of simulated paths N")
	f.IntVar(&steps, "steps", d.Params.Steps, "time steps per path M")
	f.Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	f.IntVar(&workers, "workers", d.Workers, "simulation workers (0 = NumCPU)")
	f.IntVar(&samples, "samples", d.Samples, "sample paths kept for display (max 50)")
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "use preset configuration")
}

// resolveConfig layers flags over the config file, the file over the
// preset and the preset over the defaults.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	if configFile != "" {
		loaded, err := config.LoadOver(configFile, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("spot") {
		cfg.Params.Spot = spot
	}
	if flags.Changed("strike") {
		cfg.Params.Strike = strike
	}
	if flags.Changed("maturity") {
		cfg.Params.Maturity = maturity
	}
	if flags.Changed("vol") {
		cfg.Params.Volatility = volatility
	}
	if flags.Changed("rate") {
		cfg.Params.Rate = rate
	}
	if flags.Changed("sims") {
		cfg.Params.Simulations = sims
	}
	if flags.Changed("steps") {
		cfg.Params.Steps = steps
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("samples") {
		cfg.Samples = samples
	}
	if flags.Changed("seed") || cfg.Seed == 0 {
		cfg.Seed = seed
	}

	return cfg, nil
}

func experimentConfig(cfg *config.Config) experiment.Config {
	limit := cfg.Samples
	if limit == 0 {
		limit = -1
	}
	return experiment.Config{
		Params:      cfg.ParameterSet(),
		Seed:        cfg.Seed,
		Workers:     cfg.Workers,
		SampleLimit: limit,
	}
}

func runPrice(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	result, err := experiment.Price(cmd.Context(), experimentConfig(cfg))
	if err != nil {
		return err
	}

	printResult(os.Stdout, result)

	if showPlot {
		fmt.Println()
		fmt.Println(pathPlot(result))
	}

	if save {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(result)
		if err != nil {
			return err
		}
		fmt.Printf("\nrun id: %s\n", runID)
	}

	return nil
}

func printResult(out io.Writer, r *experiment.Result) {
	fmt.Fprintf(out, "%s  seed=%d\n\n", r.Params, r.Seed)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\tCALL\tPUT")
	fmt.Fprintf(w, "black-scholes\t%.4f\t%.4f\n", r.BlackScholes.Call, r.BlackScholes.Put)
	fmt.Fprintf(w, "monte carlo\t%.4f\t%.4f\n", r.MonteCarlo.Call, r.MonteCarlo.Put)
	fmt.Fprintf(w, "std error\t%.4f\t%.4f\n", r.MonteCarlo.CallStdErr, r.MonteCarlo.PutStdErr)
	fmt.Fprintf(w, "95%% interval\t%s\t%s\n", r.MonteCarlo.CallInterval(pricing.Z95), r.MonteCarlo.PutInterval(pricing.Z95))
	fmt.Fprintf(w, "mc - bs\t%+.4f\t%+.4f\n", r.Errors.CallDiff, r.Errors.PutDiff)
	fmt.Fprintf(w, "abs error\t%.4f\t%.4f\n", r.Errors.CallAbs, r.Errors.PutAbs)
	fmt.Fprintf(w, "pct error\t%s\t%s\n", r.Errors.CallPct, r.Errors.PutPct)
	w.Flush()

	fmt.Fprintf(out, "\n%d paths in %v\n", r.TotalPaths, r.Elapsed.Round(time.Microsecond))
}

func pathPlot(r *experiment.Result) string {
	caption := fmt.Sprintf("%d of %d paths, strike %.2f", len(r.Samples), r.TotalPaths, r.Params.Strike)
	plot := viz.PlotPaths(r.Samples, r.Params.Strike, 0, 80, 15, caption)
	if plot == "" {
		return "no sample paths stored"
	}
	return plot
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tS0\tK\tT\tSIGMA\tR\tN\tMC CALL\tBS CALL\tCALL ERR")

	for _, run := range runs {
		p := run.Params
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%.2f\t%.2f\t%.3f\t%.3f\t%d\t%.4f\t%.4f\t%s\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			p.Spot, p.Strike, p.Maturity, p.Volatility, p.Rate, p.Simulations,
			run.MonteCarlo.Call,
			run.BlackScholes.Call,
			run.Errors.CallPct,
		)
	}

	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	meta, err := storage.New(dataDir).Load(args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func plotRun(cmd *cobra.Command, args []string) error {
	_, result, err := storage.New(dataDir).LoadResult(args[0])
	if err != nil {
		return err
	}

	fmt.Println(pathPlot(result))
	fmt.Println()
	printResult(os.Stdout, result)
	return nil
}

// output returns the file named by args[1], or stdout.
func output(args []string) (io.Writer, func() error, error) {
	if len(args) < 2 {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(args[1])
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	_, result, err := storage.New(dataDir).LoadResult(args[0])
	if err != nil {
		return err
	}

	w, closeFn, err := output(args)
	if err != nil {
		return err
	}
	if err := export.WriteCSV(w, result.Samples, result.Params.Maturity); err != nil {
		closeFn()
		return err
	}
	return closeFn()
}

func exportJSON(cmd *cobra.Command, args []string) error {
	_, result, err := storage.New(dataDir).LoadResult(args[0])
	if err != nil {
		return err
	}

	w, closeFn, err := output(args)
	if err != nil {
		return err
	}
	if err := export.WriteJSON(w, result); err != nil {
		closeFn()
		return err
	}
	return closeFn()
}

func exportSVG(cmd *cobra.Command, args []string) error {
	_, result, err := storage.New(dataDir).LoadResult(args[0])
	if err != nil {
		return err
	}

	svg := export.PathsToSVG(result.Samples, result.Params.Maturity, result.Params.Strike, svgWidth, svgHeight)
	if svg == "" {
		return fmt.Errorf("run %s has no sample paths to draw", args[0])
	}
	if err := os.WriteFile(args[1], []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", args[1])
	return nil
}

func runConverge(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	base := cfg.ParameterSet()
	fmt.Printf("%s  seed=%d  runs=%d\n\n", base, cfg.Seed, runs)

	points, err := analysis.Convergence(cmd.Context(), experiment.Runner(cfg.Workers), base, sizes, cfg.Seed, runs)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "N\tCALL ERR %\tPUT ERR %\tCALL SE\tPUT SE")
	for _, pt := range points {
		fmt.Fprintf(w, "%d\t%.4f\t%.4f\t%.4f\t%.4f\n",
			pt.Simulations, pt.MedianCallPct, pt.MedianPutPct, pt.MedianCallSE, pt.MedianPutSE)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(points) > 1 {
		fmt.Println()
		fmt.Println(viz.PlotConvergence(points, 60, 10))
	}
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	results, err := automation.RunSweep(cmd.Context(), &automation.ParameterSweep{
		Base:      cfg.ParameterSet(),
		ParamName: sweepParam,
		ParamMin:  sweepMin,
		ParamMax:  sweepMax,
		NumSteps:  sweepPoints,
		Seed:      cfg.Seed,
		Workers:   cfg.Workers,
	})
	if err != nil {
		return err
	}

	values := make([]float64, len(results))
	mc := make([]float64, len(results))
	bs := make([]float64, len(results))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tMC CALL\tBS CALL\tMC PUT\tBS PUT\tCALL ERR\tPUT ERR\n", sweepParam)
	for i, r := range results {
		values[i], mc[i], bs[i] = r.ParamValue, r.MonteCarlo.Call, r.BlackScholes.Call
		fmt.Fprintf(w, "%.4g\t%.4f\t%.4f\t%.4f\t%.4f\t%s\t%s\n",
			r.ParamValue, r.MonteCarlo.Call, r.BlackScholes.Call, r.MonteCarlo.Put, r.BlackScholes.Put,
			r.Errors.CallPct, r.Errors.PutPct)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(viz.PlotSweep(sweepParam, values, mc, bs, 60, 12))
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	results, err := automation.RunScenario(cmd.Context(), scenario, workers, st.Save)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tPARAMS\tMC CALL\tBS CALL\tMC PUT\tBS PUT\tRUN ID")
	for i, sr := range results {
		r := sr.Result
		name := sr.Step.Name
		if name == "" {
			name = fmt.Sprintf("#%d", i+1)
		}
		fmt.Fprintf(w, "%s\t%s\t%.4f\t%.4f\t%.4f\t%.4f\t%s\n",
			name, r.Params, r.MonteCarlo.Call, r.BlackScholes.Call, r.MonteCarlo.Put, r.BlackScholes.Put, sr.RunID)
	}
	if flushErr := w.Flush(); flushErr != nil && err == nil {
		err = flushErr
	}
	return err
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPARAMS")
	for _, name := range config.ListPresets() {
		fmt.Fprintf(w, "%s\t%s\n", name, config.GetPreset(name).ParameterSet())
	}
	return w.Flush()
}

func writeConfig(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ParameterSet().Validate(); err != nil {
		return err
	}
	if err := config.Save(args[0], cfg); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", args[0])
	return nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	// Log lines would corrupt the alternate screen.
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))

	return tui.Run(tui.Options{
		Params:  cfg.ParameterSet(),
		Seed:    cfg.Seed,
		Workers: cfg.Workers,
		Samples: cfg.Samples,
		Theme:   theme,
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	svc := server.NewService(st, workers, maxSims, maxSteps)
	router := server.NewRouter(svc, requestTimeout)
	return server.ListenAndServe(cmd.Context(), addr, router, requestTimeout)
}
