package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"chordrun/internal/config"
	"chordrun/internal/httpapi"
	"chordrun/internal/likelihood"
	"chordrun/internal/sampler"
	"chordrun/pkg/types"
)

// defaultNDims is used when neither the config file nor --ndims set it.
const defaultNDims = 2

type runFlags struct {
	configPath string
	likelihood string
	engine     string
	lib        string
	symbol     string
	metrics    string
	cors       string
	paramNames string
	jsonOut    bool

	s sampler.Settings
}

func newRunCmd(g *globalFlags) *cobra.Command {
	f := &runFlags{s: sampler.DefaultSettings(0, 0)}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the sampler on a built-in likelihood",
		Example: "  chordrun run --likelihood twin-gaussian --ndims 3 --nlive 150\n" +
			"  chordrun run --config run.yaml --read-resume",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.resolve(cmd.Flags())
			if err != nil {
				return err
			}
			if g.logLevel != "" {
				cfg.LogLevel = g.logLevel
			}
			if cmd.Flags().Changed("log-json") {
				cfg.LogJSON = g.logJSON
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return execute(ctx, cmd, cfg, f.jsonOut)
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&f.configPath, "config", "c", "", "Run file (.yaml/.yml/.json/.toml); flags override its values")
	fs.StringVarP(&f.likelihood, "likelihood", "l", "", "Built-in likelihood name (list with: chordrun likelihoods)")
	fs.StringVar(&f.engine, "engine", "", "Engine: reference|polychord")
	fs.StringVar(&f.lib, "polychord-lib", "", "Path of the PolyChord shared library")
	fs.StringVar(&f.symbol, "polychord-symbol", "", "Symbol of the PolyChord entry point")
	fs.StringVar(&f.metrics, "metrics-addr", "", "Serve /status, /healthz, /readyz and /metrics on this address while running")
	fs.StringVar(&f.cors, "cors-origins", "", "Comma-separated origins allowed to call the status server (enables CORS)")
	fs.StringVar(&f.paramNames, "param-names", "", "Comma-separated names for ndims parameters followed by the derived radius")
	fs.BoolVar(&f.jsonOut, "json", false, "Print the run summary as JSON on stdout")

	s := &f.s
	fs.IntVar(&s.NDims, "ndims", 0, "Number of sampled dimensions (default 2)")
	fs.IntVar(&s.NLive, "nlive", 0, "Number of live points (default 25*ndims)")
	fs.IntVar(&s.NumRepeats, "num-repeats", 0, "Chain length per new live point (default 5*ndims)")
	fs.BoolVar(&s.DoClustering, "do-clustering", s.DoClustering, "Detect and track separate modes")
	fs.IntVar(&s.Feedback, "feedback", s.Feedback, "Engine verbosity 0..3")
	fs.Float64Var(&s.PrecisionCriterion, "precision", s.PrecisionCriterion, "Stop when the live evidence fraction falls below this")
	fs.IntVar(&s.MaxNDead, "max-ndead", s.MaxNDead, "Cap on likelihood evaluations and dead points (<=0 unbounded)")
	fs.Float64Var(&s.BoostPosterior, "boost-posterior", s.BoostPosterior, "Extra posterior samples per dead point, taken from the chains")
	fs.BoolVar(&s.Posteriors, "posteriors", s.Posteriors, "Write the weighted posterior")
	fs.BoolVar(&s.Equals, "equals", s.Equals, "Write equally weighted posterior samples")
	fs.BoolVar(&s.ClusterPosteriors, "cluster-posteriors", s.ClusterPosteriors, "Write one posterior per cluster")
	fs.BoolVar(&s.WriteResume, "write-resume", s.WriteResume, "Write the resume artifact")
	fs.BoolVar(&s.WriteParamnames, "write-paramnames", s.WriteParamnames, "Write the .paramnames file")
	fs.BoolVar(&s.ReadResume, "read-resume", s.ReadResume, "Continue from an existing resume artifact")
	fs.BoolVar(&s.WriteStats, "write-stats", s.WriteStats, "Write the .stats summary")
	fs.BoolVar(&s.WriteLive, "write-live", s.WriteLive, "Write the live points")
	fs.BoolVar(&s.WriteDead, "write-dead", s.WriteDead, "Write the dead points")
	fs.IntVar(&s.UpdateFiles, "update-files", 0, "Dead points between artifact refreshes (default nlive, <0 only at the end)")
	fs.StringVar(&s.BaseDir, "base-dir", s.BaseDir, "Directory for output artifacts")
	fs.StringVar(&s.FileRoot, "file-root", s.FileRoot, "File name root of output artifacts")
	fs.Int64Var(&s.Seed, "seed", s.Seed, "Random seed (<0 derives one from the clock)")
	fs.IntVar(&s.Workers, "workers", s.Workers, "Concurrent likelihood evaluations while populating live points")
	return cmd
}

// settingsFlags maps flag names to the Settings field they set.
var settingsFlags = map[string]func(dst *sampler.Settings, src sampler.Settings){
	"ndims":              func(d *sampler.Settings, s sampler.Settings) { d.NDims = s.NDims },
	"nlive":              func(d *sampler.Settings, s sampler.Settings) { d.NLive = s.NLive },
	"num-repeats":        func(d *sampler.Settings, s sampler.Settings) { d.NumRepeats = s.NumRepeats },
	"do-clustering":      func(d *sampler.Settings, s sampler.Settings) { d.DoClustering = s.DoClustering },
	"feedback":           func(d *sampler.Settings, s sampler.Settings) { d.Feedback = s.Feedback },
	"precision":          func(d *sampler.Settings, s sampler.Settings) { d.PrecisionCriterion = s.PrecisionCriterion },
	"max-ndead":          func(d *sampler.Settings, s sampler.Settings) { d.MaxNDead = s.MaxNDead },
	"boost-posterior":    func(d *sampler.Settings, s sampler.Settings) { d.BoostPosterior = s.BoostPosterior },
	"posteriors":         func(d *sampler.Settings, s sampler.Settings) { d.Posteriors = s.Posteriors },
	"equals":             func(d *sampler.Settings, s sampler.Settings) { d.Equals = s.Equals },
	"cluster-posteriors": func(d *sampler.Settings, s sampler.Settings) { d.ClusterPosteriors = s.ClusterPosteriors },
	"write-resume":       func(d *sampler.Settings, s sampler.Settings) { d.WriteResume = s.WriteResume },
	"write-paramnames":   func(d *sampler.Settings, s sampler.Settings) { d.WriteParamnames = s.WriteParamnames },
	"read-resume":        func(d *sampler.Settings, s sampler.Settings) { d.ReadResume = s.ReadResume },
	"write-stats":        func(d *sampler.Settings, s sampler.Settings) { d.WriteStats = s.WriteStats },
	"write-live":         func(d *sampler.Settings, s sampler.Settings) { d.WriteLive = s.WriteLive },
	"write-dead":         func(d *sampler.Settings, s sampler.Settings) { d.WriteDead = s.WriteDead },
	"update-files":       func(d *sampler.Settings, s sampler.Settings) { d.UpdateFiles = s.UpdateFiles },
	"base-dir":           func(d *sampler.Settings, s sampler.Settings) { d.BaseDir = s.BaseDir },
	"file-root":          func(d *sampler.Settings, s sampler.Settings) { d.FileRoot = s.FileRoot },
	"seed":               func(d *sampler.Settings, s sampler.Settings) { d.Seed = s.Seed },
	"workers":            func(d *sampler.Settings, s sampler.Settings) { d.Workers = s.Workers },
}

// resolve layers Default, the config file and explicitly set flags, then
// fills the dimension-dependent defaults.
func (f *runFlags) resolve(fs *pflag.FlagSet) (config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		var err error
		if cfg, err = config.Load(f.configPath); err != nil {
			return cfg, err
		}
	}
	fs.Visit(func(fl *pflag.Flag) {
		if set, ok := settingsFlags[fl.Name]; ok {
			set(&cfg.Run, f.s)
		}
	})
	if fs.Changed("likelihood") {
		cfg.Likelihood = f.likelihood
	}
	if fs.Changed("engine") {
		cfg.Engine = f.engine
	}
	if fs.Changed("polychord-lib") {
		cfg.PolychordLibrary = f.lib
	}
	if fs.Changed("polychord-symbol") {
		cfg.PolychordSymbol = f.symbol
	}
	if fs.Changed("metrics-addr") {
		cfg.MetricsAddr = f.metrics
	}
	if fs.Changed("cors-origins") {
		cfg.CORSOrigins = splitCSV(f.cors)
		cfg.CORSEnabled = len(cfg.CORSOrigins) > 0
	}
	if fs.Changed("param-names") {
		cfg.Run.ParamNames = splitCSV(f.paramNames)
	}
	if cfg.Run.NDims == 0 {
		cfg.Run.NDims = defaultNDims
	}
	cfg.Run.NDerived = likelihood.NDerived
	return cfg.Resolve(), nil
}

func execute(ctx context.Context, cmd *cobra.Command, cfg config.Config, jsonOut bool) error {
	lvl, err := cfg.Level()
	if err != nil {
		return err
	}
	log := newLogger(lvl, cfg.LogJSON, cmd.ErrOrStderr())

	entry, err := likelihood.Lookup(cfg.Likelihood)
	if err != nil {
		return err
	}
	like, prior, err := entry.Build(cfg.Run.NDims)
	if err != nil {
		return err
	}
	if cfg.Engine == sampler.PolychordEngine &&
		(cfg.PolychordLibrary != sampler.DefaultPolychordLibrary || cfg.PolychordSymbol != sampler.DefaultPolychordSymbol) {
		sampler.Register(sampler.NewPolychordEngine(cfg.PolychordLibrary, cfg.PolychordSymbol))
	}
	runner, err := sampler.NewRunner(sampler.RunnerConfig{Engine: cfg.Engine, Prior: prior, Logger: &log})
	if err != nil {
		return err
	}

	srvCtx, stopSrv := context.WithCancel(ctx)
	defer stopSrv()
	g, gctx := errgroup.WithContext(srvCtx)
	if cfg.MetricsAddr != "" {
		httpapi.SetLogger(log.With().Str("component", "http").Logger())
		g.Go(func() error {
			return httpapi.Serve(gctx, cfg.MetricsAddr, statusHandler(cfg, runner), func(a net.Addr) {
				log.Info().Str("addr", a.String()).Msg("status server listening")
			})
		})
	}

	log.Info().Str("likelihood", entry.Name).Str("engine", runner.Engine()).Msg("starting")
	res, runErr := runner.Run(ctx, like, cfg.Run)
	stopSrv()
	if err := g.Wait(); err != nil {
		log.Warn().Err(err).Msg("status server")
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	if runErr != nil {
		log.Warn().Str("file_root", cfg.Run.FileRoot).Msg("interrupted; rerun with --read-resume to continue")
	}
	sum := summary(res)
	if jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(sum)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: log(Z) = %.5f +/- %.5f (ndead=%d nlike=%d nclusters=%d, %.2fs)\n",
		sum.Termination, sum.LogZ, sum.LogZErr, sum.NDead, sum.NLike, sum.NClusters, sum.Seconds)
	return nil
}

// statusHandler builds the status server router with the CORS policy of cfg.
func statusHandler(cfg config.Config, svc httpapi.Service) http.Handler {
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSOrigins, nil, nil)
	return httpapi.NewMux(svc)
}

func summary(res sampler.Result) types.RunSummary {
	return types.RunSummary{
		RunID:       res.RunID,
		Engine:      res.Engine,
		Termination: string(res.Termination),
		LogZ:        sampler.FiniteLog(res.LogZ),
		LogZErr:     sampler.FiniteLog(res.LogZErr),
		NDead:       res.NDead,
		NLike:       res.NLike,
		NLive:       res.NLive,
		NClusters:   res.NClusters,
		Files:       res.Files,
		Seconds:     res.Duration.Seconds(),
	}
}

// splitCSV splits a comma-separated list, trimming blanks and dropping empty items.
func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
