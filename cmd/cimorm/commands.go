package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/RWTH-IAEW/cimpyorm/internal/application/cimorm"
	"github.com/RWTH-IAEW/cimpyorm/internal/domain/schema"
	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/migration"
	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/persistence"
	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/serializer"
	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/storage"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

func parseCmd(a *app) *cobra.Command {
	var profiles []string
	cmd := &cobra.Command{
		Use:   "parse [paths...]",
		Short: "Parse CIM RDF/XML files into a database",
		Long: `Parse reads the RDF/XML files found at the given paths (files, directories
or zip archives) into a fresh database. Without paths the configured dataset
root is parsed. An existing database of the backend is replaced.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := a.datasetPaths(args)
			if err != nil {
				return err
			}
			b, err := a.databaseBackend(paths...)
			if err != nil {
				return err
			}
			ds, err := cimorm.Parse(cmd.Context(), paths,
				a.options(cimorm.WithBackend(b), cimorm.WithProfiles(profiles...))...)
			if err != nil {
				return err
			}
			defer ds.Close()
			return summary(cmd.Context(), cmd.OutOrStdout(), ds)
		},
	}
	cmd.Flags().StringSliceVar(&profiles, "profiles", nil, "only generate tables for these profiles")
	return cmd
}

func loadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "Summarize the dataset stored in the configured database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ds, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer ds.Close()
			return summary(cmd.Context(), cmd.OutOrStdout(), ds)
		},
	}
}

// summary prints the backend, the sources and the number of objects per
// root class of ds.
func summary(ctx context.Context, w io.Writer, ds *cimorm.Dataset) error {
	sources, err := ds.Sources(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("CIM %s dataset in %s", ds.Schema().Version, ds.Backend())))
	for _, src := range sources {
		fmt.Fprintf(w, "  %s (%s)\n", src.Filename, strings.Join(src.Profiles(), ", "))
	}

	var total int64
	for _, c := range ds.Schema().Classes() {
		if c.Parent != nil {
			continue
		}
		n, err := ds.Count(ctx, c.Key())
		if err != nil {
			return err
		}
		total += n
	}
	fmt.Fprintf(w, "%d objects\n", total)
	return nil
}

func describeCmd(a *app) *cobra.Command {
	var format, version string
	cmd := &cobra.Command{
		Use:   "describe <element>",
		Short: "Describe a schema class, enumeration or datatype",
		Long: `Describe renders a class with its properties, or an enumeration or datatype.
With --version the schema is read from the schema root instead of the
stored dataset.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := a.schema(cmd.Context(), version)
			if err != nil {
				return err
			}
			defer done()
			out, err := cimorm.Describe(s, args[0], format)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format (table, markdown, json, yaml)")
	cmd.Flags().StringVar(&version, "version", "", "CIM version to describe without a dataset, e.g. 16")
	return cmd
}

func pathCmd(a *app) *cobra.Command {
	var version string
	cmd := &cobra.Command{
		Use:   "path <from> <to>",
		Short: "Show the shortest chain of properties linking two classes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := a.schema(cmd.Context(), version)
			if err != nil {
				return err
			}
			defer done()
			path, err := s.Path(args[0], args[1])
			if err != nil {
				return err
			}
			if len(path) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is %s\n", args[0], args[1])
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), args[0]+"."+strings.Join(path, "."))
			return nil
		},
	}
	cmd.Flags().StringVar(&version, "version", "", "CIM version to use without a dataset, e.g. 16")
	return cmd
}

// schema returns the schema of a CIM version from the schema root, or the
// schema of the stored dataset without a version. done releases the dataset.
func (a *app) schema(ctx context.Context, version string) (*schema.Schema, func(), error) {
	if version != "" {
		s, err := cimorm.LoadSchema(ctx, version, a.options()...)
		return s, func() {}, err
	}
	ds, err := a.open(ctx)
	if err != nil {
		return nil, nil, err
	}
	return ds.Schema(), func() { _ = ds.Close() }, nil
}

func lintCmd(a *app) *cobra.Command {
	var format string
	var strict bool
	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Check the stored dataset against its schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := schema.ParseFormat(format)
			if err != nil {
				return err
			}
			c, err := a.reportCache(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()
			ds, err := a.open(cmd.Context(), cimorm.WithReportCache(c, a.cfg.Cache.TTL))
			if err != nil {
				return err
			}
			defer ds.Close()

			report, err := ds.Lint(cmd.Context())
			if err != nil {
				return err
			}
			out, err := report.Render(f)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, out)
			if report.Clean() {
				if f == schema.FormatTable {
					fmt.Fprintln(w, okStyle.Render(fmt.Sprintf("%d objects, no violations", report.Objects)))
				}
				return nil
			}
			if strict {
				return fmt.Errorf("%d constraint violations", len(report.Violations))
			}
			if f == schema.FormatTable {
				fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("%d objects, %d constraint violations", report.Objects, len(report.Violations))))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format (table, markdown, json, yaml)")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail when violations are found")
	return cmd
}

func exportCmd(a *app) *cobra.Command {
	var (
		mode     string
		profiles []string
		out      string
		upload   bool
		dir      string
		prefix   string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Serialize the stored dataset to CIM RDF/XML",
		Long: `Export writes the stored objects as RDF/XML. Single mode writes one document,
multi mode one document per profile, bundled as a zip archive unless the
documents are stored with --dir or --upload.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if mode == "" {
				mode = a.cfg.Export.Mode
			}
			m, err := serializer.ParseMode(mode)
			if err != nil {
				return err
			}
			ds, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer ds.Close()

			docs, err := ds.Export(ctx,
				serializer.WithMode(m),
				serializer.WithProfiles(profiles...),
				serializer.WithModelingAuthoritySet(a.cfg.Export.ModelingAuthoritySet),
				serializer.WithScenarioTime(a.cfg.Export.ScenarioTime),
			)
			if err != nil {
				return err
			}

			var target storage.ObjectStorage
			switch {
			case upload:
				s3, err := storage.NewS3ObjectStorage(ctx, &a.cfg.Storage, storage.WithLogger(a.log))
				if err != nil {
					return err
				}
				if err := s3.EnsureBucket(ctx); err != nil {
					return err
				}
				target = s3
				if prefix == "" {
					prefix = a.cfg.Storage.Prefix
				}
			case dir != "":
				if target, err = storage.NewDirStorage(dir); err != nil {
					return err
				}
			}
			if target != nil {
				locations, err := storage.Store(ctx, target, prefix, docs)
				if err != nil {
					return err
				}
				for _, loc := range locations {
					fmt.Fprintln(cmd.OutOrStdout(), loc)
				}
				a.log.Info("Stored export", zap.Int("documents", len(docs)))
				return nil
			}

			data := docs[0].Data
			if m == serializer.ModeMulti {
				buf, err := serializer.Zip(docs)
				if err != nil {
					return err
				}
				data = buf.Bytes()
			}
			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			return os.WriteFile(out, data, 0o644)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&mode, "mode", "", "single or multi (default from config)")
	flags.StringSliceVar(&profiles, "profiles", nil, "only export these profiles")
	flags.StringVarP(&out, "out", "o", "", "output file (default stdout)")
	flags.BoolVar(&upload, "upload", false, "upload the documents to the configured object storage")
	flags.StringVar(&dir, "dir", "", "write the documents into this directory")
	flags.StringVar(&prefix, "prefix", "", "key prefix of stored documents")
	cmd.MarkFlagsMutuallyExclusive("upload", "dir", "out")
	return cmd
}

func emptyCmd(a *app) *cobra.Command {
	var profiles []string
	cmd := &cobra.Command{
		Use:   "empty <version>",
		Short: "Create an empty dataset for a CIM version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var paths []string
			if a.cfg.Paths.DatasetRoot != "" {
				paths = []string{a.cfg.Paths.DatasetRoot}
			}
			b, err := a.databaseBackend(paths...)
			if err != nil {
				return err
			}
			ds, err := cimorm.CreateEmptyDataset(cmd.Context(), args[0],
				a.options(cimorm.WithBackend(b), cimorm.WithProfiles(profiles...))...)
			if err != nil {
				return err
			}
			defer ds.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "Created empty CIM %s dataset in %s (%d classes)\n",
				ds.Schema().Version, b, len(ds.Schema().Classes()))
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&profiles, "profiles", nil, "only create tables for these profiles")
	return cmd
}

func configureCmd(a *app) *cobra.Command {
	var schemata, datasets string
	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Store the schema and dataset roots in the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			file, err := cimorm.Configure(a.configFile, schemata, datasets)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", file)
			return nil
		},
	}
	cmd.Flags().StringVar(&schemata, "schemata", "", "directory holding the CIM schema versions")
	cmd.Flags().StringVar(&datasets, "datasets", "", "default dataset directory")
	return cmd
}

func migrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the metadata tables of the configured database",
	}
	run := func(fn func(*cobra.Command, *migration.Migrator) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			var paths []string
			if a.cfg.Paths.DatasetRoot != "" {
				paths = []string{a.cfg.Paths.DatasetRoot}
			}
			b, err := a.databaseBackend(paths...)
			if err != nil {
				return err
			}
			db, err := persistence.Open(cmd.Context(), b, persistence.WithLogger(a.log))
			if err != nil {
				return err
			}
			defer db.Close()
			sqlDB, err := db.DB.DB()
			if err != nil {
				return err
			}
			m, err := migration.New(sqlDB, string(db.Dialect), a.log)
			if err != nil {
				return err
			}
			defer m.Close()
			return fn(cmd, m)
		}
	}
	printVersion := func(cmd *cobra.Command, m *migration.Migrator) error {
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		state := ""
		if dirty {
			state = " (dirty)"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "version %d%s\n", version, state)
		return nil
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: run(func(cmd *cobra.Command, m *migration.Migrator) error {
				if err := m.Up(); err != nil {
					return err
				}
				return printVersion(cmd, m)
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Revert all migrations",
			Args:  cobra.NoArgs,
			RunE: run(func(cmd *cobra.Command, m *migration.Migrator) error {
				if err := m.Down(); err != nil {
					return err
				}
				return printVersion(cmd, m)
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current migration version",
			Args:  cobra.NoArgs,
			RunE:  run(printVersion),
		},
	)
	return cmd
}
