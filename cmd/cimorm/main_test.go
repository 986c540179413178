package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RWTH-IAEW/cimpyorm/internal/domain/lint"
	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/config"
	"github.com/RWTH-IAEW/cimpyorm/internal/testutil"
)

// execute runs the root command with a config file that does not exist, so
// only defaults and the given flags apply.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	base := []string{
		"--config", filepath.Join(t.TempDir(), config.FileName),
		"--schema-root", testutil.SchemaRoot(),
		"--log-level", "error",
	}
	cmd.SetArgs(append(base, args...))
	err := cmd.ExecuteContext(testutil.ContextWithTimeout(t, time.Minute))
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "cimorm dev")
}

func TestDatasetCommands(t *testing.T) {
	db := filepath.Join(t.TempDir(), "grid.db")

	out, err := execute(t, "--db", db, "parse", testutil.Dataset("grid"))
	require.NoError(t, err)
	assert.Contains(t, out, "CIM 16 dataset")
	assert.Contains(t, out, "Grid_EQ.xml")
	assert.Contains(t, out, "10 objects")
	require.FileExists(t, db)

	t.Run("load", func(t *testing.T) {
		out, err := execute(t, "--db", db, "load")
		require.NoError(t, err)
		assert.Contains(t, out, "10 objects")
	})

	t.Run("describe", func(t *testing.T) {
		out, err := execute(t, "--db", db, "describe", "Terminal", "--format", "json")
		require.NoError(t, err)
		assert.Contains(t, out, "Terminal")

		_, err = execute(t, "--db", db, "describe", "Breaker")
		assert.Error(t, err)
	})

	t.Run("lint", func(t *testing.T) {
		out, err := execute(t, "--db", db, "lint", "--format", "json")
		require.NoError(t, err)
		var report lint.Report
		require.NoError(t, json.Unmarshal([]byte(out), &report))
		assert.Equal(t, 10, report.Objects)
		_, found := report.Find("Terminal", "ConductingEquipment", lint.InvalidReference)
		assert.True(t, found)

		_, err = execute(t, "--db", db, "lint", "--strict")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "constraint violations")
	})

	t.Run("export to stdout", func(t *testing.T) {
		out, err := execute(t, "--db", db, "export")
		require.NoError(t, err)
		assert.Contains(t, out, "rdf:RDF")
		assert.Contains(t, out, `"_t1"`)
	})

	t.Run("export into directory", func(t *testing.T) {
		dir := t.TempDir()
		out, err := execute(t, "--db", db, "export", "--mode", "multi", "--dir", dir, "--prefix", "grid")
		require.NoError(t, err)
		assert.FileExists(t, filepath.Join(dir, "grid", "EQ.xml"))
		assert.Contains(t, out, filepath.Join(dir, "grid", "EQ.xml"))
	})

	t.Run("export file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "grid.zip")
		_, err := execute(t, "--db", db, "export", "--mode", "multi", "--out", file)
		require.NoError(t, err)
		data, err := os.ReadFile(file)
		require.NoError(t, err)
		assert.Equal(t, "PK", string(data[:2]))
	})

	t.Run("invalid export mode", func(t *testing.T) {
		_, err := execute(t, "--db", db, "export", "--mode", "per-class")
		assert.Error(t, err)
	})

	t.Run("migrate version", func(t *testing.T) {
		out, err := execute(t, "--db", db, "migrate", "version")
		require.NoError(t, err)
		assert.Contains(t, out, "version ")
		assert.NotContains(t, out, "version 0")
		assert.NotContains(t, out, "dirty")
	})
}

func TestLoadWithoutDataset(t *testing.T) {
	_, err := execute(t, "--db", filepath.Join(t.TempDir(), "none.db"), "load")
	assert.Error(t, err)
}

func TestParseWithoutPaths(t *testing.T) {
	_, err := execute(t, "parse")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no dataset given")
}

func TestEmptyCommand(t *testing.T) {
	out, err := execute(t, "--backend", "memory", "empty", "16")
	require.NoError(t, err)
	assert.Contains(t, out, "Created empty CIM 16 dataset")

	_, err = execute(t, "--backend", "memory", "empty", "99")
	assert.Error(t, err)
}

func TestDescribeWithoutDataset(t *testing.T) {
	out, err := execute(t, "describe", "PhaseCode", "--version", "16", "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "ABC")
}

func TestConfigureCommand(t *testing.T) {
	file := filepath.Join(t.TempDir(), config.FileName)
	schemata := t.TempDir()

	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--config", file, "configure", "--schemata", schemata})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), file)

	cfg, err := config.Load(file)
	require.NoError(t, err)
	assert.Equal(t, schemata, cfg.Paths.SchemaRoot)

	_, err = execute(t, "configure")
	assert.Error(t, err)
}

func TestInvalidFlags(t *testing.T) {
	_, err := execute(t, "--backend", "oracle", "load")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Database.Backend")
}

func TestPathCommand(t *testing.T) {
	out, err := execute(t, "path", "ACLineSegment", "Terminal", "--version", "16")
	require.NoError(t, err)
	assert.Contains(t, out, "ACLineSegment.Terminals")

	out, err = execute(t, "path", "Terminal", "Terminal", "--version", "16")
	require.NoError(t, err)
	assert.Contains(t, out, "Terminal is Terminal")

	_, err = execute(t, "path", "Terminal", "Breaker", "--version", "16")
	assert.Error(t, err)
}
