// Command cimorm parses CIM RDF/XML datasets into a database, inspects and
// lints them, exports them back to RDF/XML and serves them over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/RWTH-IAEW/cimpyorm/internal/application/cimorm"
	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/cache"
	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/config"
	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/logger"
	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/persistence"
	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/telemetry"
)

// Version is set at build time.
var Version = "dev"

//	@title			cimorm API
//	@version		1.0
//	@description	Read access to a CIM dataset stored by cimorm: schema, objects, lint reports and exports.

//	@license.name	BSD-3-Clause

//	@host		localhost:8080
//	@BasePath	/api/v1

// main is the entry point. Run `swag init -g cmd/cimorm/main.go` to regenerate docs/.
func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds the global flags and what is derived from them before a
// subcommand runs.
type app struct {
	configFile string
	db         string
	backend    string
	logLevel   string
	schemaRoot string

	cfg     *config.Config
	log     *zap.Logger
	metrics *telemetry.Metrics
	tracing *telemetry.TracerProvider
}

func rootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "cimorm",
		Short: "Object-relational mapping for CIM datasets",
		Long: `cimorm reads CIM (IEC 61970) RDF/XML datasets into a relational database
using the RDFS schema of their CIM version, and works with the stored data:
describing schema elements, linting, exporting and serving it over HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if err := a.tracing.Shutdown(context.Background()); err != nil {
				a.log.Warn("Failed to flush traces", zap.Error(err))
			}
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.configFile, "config", "c", "", "config file (default: search "+config.FileName+")")
	flags.StringVar(&a.db, "db", "", "SQLite database file, relative paths are placed next to the dataset")
	flags.StringVar(&a.backend, "backend", "", "database backend (sqlite, memory, postgres, mysql, mariadb)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&a.schemaRoot, "schema-root", "", "directory holding the CIM schema versions")

	cmd.AddCommand(
		parseCmd(a),
		loadCmd(a),
		describeCmd(a),
		pathCmd(a),
		lintCmd(a),
		exportCmd(a),
		emptyCmd(a),
		configureCmd(a),
		migrateCmd(a),
		serveCmd(a),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "cimorm %s (%s)\n", Version, runtime.Version())
			},
		},
	)
	return cmd
}

// setup loads the configuration, applies flag overrides and creates the
// logger, the metrics registry and the tracer provider.
func (a *app) setup(ctx context.Context) error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	if a.backend != "" {
		cfg.Database.Backend = a.backend
	}
	if a.db != "" {
		cfg.Database.Path = a.db
	}
	if a.logLevel != "" {
		cfg.Log.Level = strings.ToLower(a.logLevel)
	}
	if a.schemaRoot != "" {
		cfg.Paths.SchemaRoot = a.schemaRoot
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	a.cfg = cfg
	a.log = log
	a.metrics = telemetry.NewMetrics(telemetry.DefaultConfig())
	if ctx == nil {
		ctx = context.Background()
	}
	a.tracing, err = telemetry.NewTracerProvider(ctx, telemetry.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		ServiceName: cfg.Tracing.ServiceName,
		Version:     Version,
		SampleRatio: cfg.Tracing.SampleRatio,
		LogSQL:      cfg.Tracing.LogSQL,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	return nil
}

func (a *app) options(extra ...cimorm.Option) []cimorm.Option {
	opts := []cimorm.Option{
		cimorm.WithSchemaRoot(a.cfg.Paths.SchemaRoot),
		cimorm.WithLogger(a.log),
		cimorm.WithEcho(a.cfg.Database.Echo),
		cimorm.WithMetrics(a.metrics),
		cimorm.WithTracing(a.tracing),
	}
	return append(opts, extra...)
}

func (a *app) databaseBackend(paths ...string) (persistence.Backend, error) {
	return cimorm.BackendFromConfig(a.cfg.Database, paths...)
}

// datasetPaths returns args, or the configured dataset root without args.
func (a *app) datasetPaths(args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	if a.cfg.Paths.DatasetRoot != "" {
		return []string{a.cfg.Paths.DatasetRoot}, nil
	}
	return nil, fmt.Errorf("no dataset given and no dataset root configured")
}

// open loads the dataset of the configured backend. SQLite files are looked
// up next to the configured dataset root.
func (a *app) open(ctx context.Context, extra ...cimorm.Option) (*cimorm.Dataset, error) {
	var paths []string
	if a.cfg.Paths.DatasetRoot != "" {
		paths = []string{a.cfg.Paths.DatasetRoot}
	}
	b, err := a.databaseBackend(paths...)
	if err != nil {
		return nil, err
	}
	return cimorm.Load(ctx, b, a.options(extra...)...)
}

// reportCache creates the lint report cache of the configured kind.
func (a *app) reportCache(ctx context.Context) (cache.Cache, error) {
	return cache.NewFactory(a.cfg.Cache, cache.WithLogger(a.log)).Create(ctx)
}
