package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSizeAcceptsPlainBytes(t *testing.T) {
	n, err := parseSize("1024")
	require.NoError(t, err)
	assert.EqualValues(t, 1024, n)
}

func TestParseSizeAcceptsHumanUnits(t *testing.T) {
	n, err := parseSize("1K")
	require.NoError(t, err)
	assert.EqualValues(t, 1000, n)
}

func TestParseSizeRejectsGarbage(t *testing.T) {
	_, err := parseSize("not-a-size")
	assert.Error(t, err)
}

func newTestCommand(opts *commonOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "test", RunE: func(*cobra.Command, []string) error { return nil }}
	addCommonFlags(cmd, opts)
	return cmd
}

func TestToRequestOnlyCarriesChangedFlags(t *testing.T) {
	opts := &commonOptions{}
	cmd := newTestCommand(opts)
	require.NoError(t, cmd.ParseFlags([]string{"--min-size", "10K"}))

	req, err := opts.toRequest(cmd, []string{"/roots/a"})
	require.NoError(t, err)

	assert.EqualValues(t, 10000, req.MinSizeBytes)
	assert.Zero(t, req.MaxWorkers, "workers flag was never set on the command line")
	assert.Equal(t, []string{"/roots/a"}, req.Roots)
}

func TestToRequestLowercasesExtensions(t *testing.T) {
	opts := &commonOptions{}
	cmd := newTestCommand(opts)
	require.NoError(t, cmd.ParseFlags([]string{"--ext", ".JPG,.Png"}))

	req, err := opts.toRequest(cmd, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{".jpg", ".png"}, req.AllowedExtensions)
}

func TestToRequestRejectsBadMinSize(t *testing.T) {
	opts := &commonOptions{}
	cmd := newTestCommand(opts)
	require.NoError(t, cmd.ParseFlags([]string{"--min-size", "garbage"}))

	_, err := opts.toRequest(cmd, nil)
	assert.Error(t, err)
}

func TestGateTokenRoundTripsThroughSidecarFile(t *testing.T) {
	dir := t.TempDir()
	expires := time.Now().Add(time.Hour).Truncate(time.Second)

	require.NoError(t, savePendingToken(dir, "ABC123", expires, "clean /tmp"))

	pt, ok := loadPendingToken(dir)
	require.True(t, ok)
	assert.Equal(t, "ABC123", pt.Token)
	assert.Equal(t, "clean /tmp", pt.Reason)
	assert.True(t, expires.Equal(pt.Expires))

	clearPendingToken(dir)
	_, ok = loadPendingToken(dir)
	assert.False(t, ok)
}

func TestLoadPendingTokenMissingFileIsNotOK(t *testing.T) {
	_, ok := loadPendingToken(t.TempDir())
	assert.False(t, ok)
}

func TestNewScanIDIsSixteenHexChars(t *testing.T) {
	id := newScanID()
	assert.Len(t, id, 16)
}

func TestGateTokenFilePathIsHiddenSidecar(t *testing.T) {
	assert.Equal(t, filepath.Join("/out", ".cerebro_gate_token.json"), gateTokenFile("/out"))
}
