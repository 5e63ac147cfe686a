package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/frederic-klein/yamb/internal/config"
	"github.com/frederic-klein/yamb/internal/metrics"
	"github.com/frederic-klein/yamb/internal/pool"
	"github.com/frederic-klein/yamb/internal/resource"
)

var (
	cfgFile     string
	sources     []string
	definitions string
	conditional bool
	graphOutput bool

	v = config.New(afero.NewOsFs())
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "yamb",
		Short:        "Yet Another Module Bundler - bundles UI5 and AMD modules",
		Long:         "YAMB analyzes JavaScript, XML and library resources for their module dependencies and packages them into preload bundles.",
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "Config file (default ./yamb.yaml)")
	flags.StringSliceVarP(&sources, "source", "s", nil, "Resource root as path or path=prefix (repeatable)")
	flags.StringP("output", "o", "dist", "Output directory")
	flags.IntP("workers", "w", config.DefaultWorkers, "Parallel analysis workers")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.Bool("ignore-missing-modules", false, "Warn about missing modules instead of failing")
	flags.StringSlice("ignore-globals", nil, "Global names not reported as exposed")
	flags.String("runtime-version", config.DefaultRuntimeVersion, "Target loader runtime version")
	flags.String("metrics-file", "", "Write metrics in text format to this file")
	for _, name := range []string{"output", "workers", "log-level", "ignore-missing-modules", "ignore-globals", "runtime-version", "metrics-file"} {
		_ = v.BindPFlag(name, flags.Lookup(name))
	}

	bundleCmd := &cobra.Command{
		Use:   "bundle",
		Short: "Build the bundles of a definition file",
		Args:  cobra.NoArgs,
		RunE:  runBundle,
	}
	bundleCmd.Flags().StringVarP(&definitions, "definitions", "d", "bundles.yaml", "Bundle definition file (.yaml, .yml or .toml)")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [resource...]",
		Short: "Print the analysis of resources as YAML",
		RunE:  runAnalyze,
	}

	depsCmd := &cobra.Command{
		Use:   "deps resource...",
		Short: "Print the sorted dependency closure of resources",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runDeps,
	}
	depsCmd.Flags().BoolVar(&conditional, "conditional", false, "Follow conditional dependencies")
	depsCmd.Flags().BoolVar(&graphOutput, "graph", false, "Print the dependency graph instead of a sorted list")

	rootCmd.AddCommand(bundleCmd, analyzeCmd, depsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// session holds what every command needs: configuration, logger, metrics
// and the resource pool over the configured roots.
type session struct {
	cfg     *config.Config
	logger  *log.Logger
	metrics *metrics.Collector
	pool    *pool.Pool
}

func newSession() (*session, error) {
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return nil, err
	}
	if len(sources) > 0 {
		cfg.Sources = parseSources(sources)
	}
	lvl, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "yamb", Level: lvl})

	idx := resource.NewIndex(afero.NewOsFs(), cfg.Sources...)
	if err := idx.Load(); err != nil {
		return nil, fmt.Errorf("loading resources: %w", err)
	}
	logger.Debug("resources indexed", "count", idx.Len())

	collector := metrics.New()
	p := pool.New(idx,
		pool.WithLogger(logger),
		pool.WithMetrics(collector),
		pool.WithIgnoreMissing(cfg.IgnoreMissingModules),
		pool.WithIgnoreGlobals(cfg.IgnoreGlobals),
	)
	return &session{cfg: cfg, logger: logger, metrics: collector, pool: p}, nil
}

// close flushes metrics if a metrics file is configured.
func (s *session) close() error {
	if s.cfg.MetricsFile == "" {
		return nil
	}
	if err := s.metrics.WriteTextfile(s.cfg.MetricsFile); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	return nil
}

func parseSources(values []string) []resource.Root {
	roots := make([]resource.Root, 0, len(values))
	for _, s := range values {
		path, prefix, _ := strings.Cut(s, "=")
		roots = append(roots, resource.Root{Path: path, Prefix: prefix})
	}
	return roots
}

func withSession(ctx context.Context, fn func(context.Context, *session) error) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	if err := fn(ctx, s); err != nil {
		return err
	}
	return s.close()
}
