package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/entrhq/harness/pkg/config"
	"github.com/entrhq/harness/pkg/evidence"
	"github.com/entrhq/harness/pkg/lifecycle"
	"github.com/entrhq/harness/pkg/logging"
	"github.com/entrhq/harness/pkg/report"
	"github.com/entrhq/harness/pkg/runner"
	"github.com/entrhq/harness/pkg/session"
	"github.com/entrhq/harness/pkg/telemetry"
)

type runOptions struct {
	configPath string
	include    []string
	exclude    []string
	tags       []string
}

// flagBindings maps command flags onto configuration keys.
var flagBindings = map[string]string{
	"engine":       "browser.engine",
	"headless":     "browser.headless",
	"install":      "browser.install",
	"log-dir":      "evidence.log_dir",
	"report-dir":   "evidence.report_dir",
	"log-level":    "logging.level",
	"parallel":     "runner.parallelism",
	"timeout":      "runner.timeout",
	"metrics-addr": "metrics.addr",
	"trace":        "metrics.trace",
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run <suite.yaml>",
		Short: "Run the scenarios of a suite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuite(cmd, opts, args[0])
		},
	}

	d := config.Default()
	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "configuration file (YAML)")
	f.StringSliceVar(&opts.include, "include", nil, "only run scenarios whose name matches one of these globs")
	f.StringSliceVar(&opts.exclude, "exclude", nil, "skip scenarios whose name matches one of these globs")
	f.StringSliceVar(&opts.tags, "tags", nil, "only run scenarios carrying one of these tags")
	f.String("engine", d.Browser.Engine, "browser engine (chromium, firefox, webkit)")
	f.Bool("headless", d.Browser.Headless, "run the browser without a window")
	f.Bool("install", d.Browser.Install, "download browser binaries before launching")
	f.String("log-dir", d.Evidence.LogDir, "directory for scenario evidence logs")
	f.String("report-dir", d.Evidence.ReportDir, "directory for forwarded report payloads (empty disables)")
	f.String("log-level", d.Logging.Level, "diagnostic log level (debug, info, warn, error)")
	f.IntP("parallel", "p", d.Runner.Parallelism, "scenarios to run at once")
	f.Duration("timeout", d.Runner.Timeout, "per-scenario timeout (0 disables)")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address")
	f.Bool("trace", false, "export scenario spans to stderr")
	return cmd
}

// loadConfig layers defaults, the config file, the environment and any
// flags the user set explicitly.
func loadConfig(cmd *cobra.Command, path string) (*config.Config, error) {
	v, err := config.New(path)
	if err != nil {
		return nil, err
	}
	if err := bindFlags(cmd, v); err != nil {
		return nil, err
	}
	return config.Load(v)
}

func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	for flag, key := range flagBindings {
		pf := cmd.Flags().Lookup(flag)
		if pf == nil || !pf.Changed {
			continue
		}
		if err := v.BindPFlag(key, pf); err != nil {
			return fmt.Errorf("bind flag --%s: %w", flag, err)
		}
	}
	return nil
}

func runSuite(cmd *cobra.Command, opts *runOptions, suitePath string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd, opts.configPath)
	if err != nil {
		return err
	}

	suite, err := runner.LoadSuite(suitePath)
	if err != nil {
		return err
	}
	filter, err := runner.NewFilter(opts.include, opts.exclude, opts.tags)
	if err != nil {
		return err
	}

	logging.SetDirectory(cfg.Logging.Dir)
	level := logging.ParseLevel(cfg.Logging.Level)
	loggers := newLoggerSet(level)
	defer loggers.Close()
	log := loggers.get("harness")

	metrics := telemetry.NewMetrics()
	if cfg.Metrics.Addr != "" {
		srv := serveMetrics(cfg.Metrics.Addr, metrics, log)
		defer shutdownServer(srv)
	}
	if cfg.Metrics.Trace {
		tp, err := telemetry.NewTracerProvider("harness", cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tp.Shutdown(sctx)
		}()
	}

	backend, err := session.ResolveBackend(cfg.Browser, cfg.Grid)
	if err != nil {
		return err
	}
	log.Infof("Using backend %s", backend.Descriptor())

	launcher := session.NewPlaywrightLauncher(cfg.Browser.Install, cfg.Grid)
	defer func() {
		if err := launcher.Shutdown(); err != nil {
			log.Warnf("Playwright shutdown: %v", err)
		}
	}()

	factory := session.NewFactory(launcher,
		session.WithProfile(session.ProfileFromConfig(cfg.Browser)),
		session.WithLogger(loggers.get("session-factory")),
		session.WithMetrics(metrics),
	)

	var sink evidence.Sink = evidence.NopSink()
	if cfg.Evidence.ReportDir != "" {
		sink = report.NewFileSink(cfg.Evidence.ReportDir)
	}
	recorder := evidence.NewRecorder(cfg.Evidence.LogDir,
		evidence.WithSink(sink),
		evidence.WithLogger(loggers.get("evidence")),
		evidence.WithMetrics(metrics),
	)

	controller := lifecycle.New(factory, session.NewRegistry(), recorder, backend,
		lifecycle.WithLogger(loggers.get("lifecycle")),
		lifecycle.WithMetrics(metrics),
		lifecycle.WithPageTextOnFailure(cfg.Evidence.PageTextOnFailure),
	)

	r := runner.New(controller,
		runner.WithParallelism(cfg.Runner.Parallelism),
		runner.WithTimeout(cfg.Runner.Timeout),
		runner.WithLogger(loggers.get("runner")),
	)

	results, runErr := r.Run(ctx, suite, filter)
	summary := runner.Summarize(results)
	fmt.Fprintln(cmd.OutOrStdout(), renderSummary(suite.Name, results, summary))

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	if !summary.OK() || runErr != nil {
		return errScenariosFailed
	}
	return nil
}

func serveMetrics(addr string, metrics *telemetry.Metrics, log logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("Metrics server: %v", err)
		}
	}()
	log.Infof("Serving metrics on %s/metrics", addr)
	return srv
}

func shutdownServer(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

// loggerSet hands out one component logger per name and closes them all.
type loggerSet struct {
	level   logging.Level
	loggers map[string]*logging.ComponentLogger
}

func newLoggerSet(level logging.Level) *loggerSet {
	return &loggerSet{level: level, loggers: make(map[string]*logging.ComponentLogger)}
}

func (s *loggerSet) get(component string) logging.Logger {
	if l, ok := s.loggers[component]; ok {
		return l
	}
	l, err := logging.New(component, s.level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	s.loggers[component] = l
	return l
}

func (s *loggerSet) Close() {
	for _, l := range s.loggers {
		_ = l.Close()
	}
}
