package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
species:
  Salmonella enterica:
    cgmlst: salmonella
  Listeria_monocytogenes:
    cgmlst: /abs/listeria
    matrix_header: true
bifrost_analyses:
  min_read_check:
    version: "2.2.0"
  ssi_stamper:
    version: "1.0"
`

func TestParseAndApply(t *testing.T) {
	f, err := ParseFile([]byte(sampleYAML))
	require.NoError(t, err)

	cfg := &Config{DataDir: "/data"}
	cfg.apply(f)

	require.Len(t, cfg.Species, 2)
	assert.Equal(t, "Listeria_monocytogenes", cfg.Species[0].Name)
	assert.Equal(t, "/abs/listeria", cfg.Species[0].Cgmlst)
	assert.True(t, cfg.Species[0].MatrixHeader)
	assert.Equal(t, "Salmonella_enterica", cfg.Species[1].Name)
	assert.Equal(t, filepath.Join("/data", "salmonella"), cfg.Species[1].Cgmlst)

	assert.Equal(t, []string{DefaultTreeMethod, "MSTree", "NJ", "RapidNJ"}, cfg.TreeMethods)

	require.Len(t, cfg.BifrostAnalyses, 2)
	assert.Equal(t, "min_read_check", cfg.BifrostAnalyses[0].Identifier)
	assert.Equal(t, "2.2.0", cfg.BifrostAnalyses[0].Version)
}

func TestLoadFromEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	t.Setenv("CGCOMPARE_DATA", dir)
	t.Setenv("CGCOMPARE_CONFIG", path)
	t.Setenv("CGCOMPARE_STORE", StoreSQLite)
	t.Setenv("CGCOMPARE_WORKERS", "8")
	t.Setenv("CGCOMPARE_STATUS_TTL", "2h")
	t.Setenv("CGCOMPARE_QUEUE", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreSQLite, cfg.Store)
	assert.Equal(t, filepath.Join(dir, "db", "jobs.db"), cfg.SQLitePath)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 64, cfg.QueueSize)
	assert.Equal(t, 2*time.Hour, cfg.StatusTTL)
	assert.Len(t, cfg.Species, 2)
}

func TestLoadRejectsUnknownStore(t *testing.T) {
	t.Setenv("CGCOMPARE_STORE", "mongo")
	_, err := Load()
	assert.Error(t, err)
}
