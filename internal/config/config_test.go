package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cerebro/internal/types"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cerebro.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadWithNoFileAppliesDefaults(t *testing.T) {
	req, err := Load("", types.PipelineRequest{})
	require.NoError(t, err)

	assert.Equal(t, types.DefaultPartialHashSize, req.PartialHashBytes)
	assert.Equal(t, types.PolicyDryRun, req.DeletionPolicy)
	assert.Equal(t, types.ModeScan, req.Mode)
}

func TestLoadAppliesFileOverDefaults(t *testing.T) {
	path := writeConfig(t, "min_size_bytes: 4096\nmax_workers: 8\n")

	req, err := Load(path, types.PipelineRequest{})
	require.NoError(t, err)

	assert.EqualValues(t, 4096, req.MinSizeBytes)
	assert.Equal(t, 8, req.MaxWorkers)
}

func TestLoadAppliesFlagsOverFile(t *testing.T) {
	path := writeConfig(t, "max_workers: 8\n")

	req, err := Load(path, types.PipelineRequest{MaxWorkers: 32})
	require.NoError(t, err)

	assert.Equal(t, 32, req.MaxWorkers)
}

func TestLoadReturnsErrorForMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), types.PipelineRequest{})
	assert.Error(t, err)
}

func TestLoadReturnsErrorForMalformedYAML(t *testing.T) {
	path := writeConfig(t, "roots: [unterminated\n")
	_, err := Load(path, types.PipelineRequest{})
	assert.Error(t, err)
}

func TestLoadPreservesRootsFromFile(t *testing.T) {
	path := writeConfig(t, "roots:\n  - /a\n  - /b\n")
	req, err := Load(path, types.PipelineRequest{})
	require.NoError(t, err)

	assert.Equal(t, []string{"/a", "/b"}, req.Roots)
}

func TestLoadAppliesSimilarityDefaults(t *testing.T) {
	req, err := Load("", types.PipelineRequest{})
	require.NoError(t, err)

	assert.Equal(t, types.AlgorithmPHash, req.SimilarityAlgorithm)
	assert.Equal(t, 64, req.BitmapSize)
	assert.Equal(t, 60, req.MatchingLevel)
}
