package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"cerebro/internal/cancel"
	"cerebro/internal/progress"
	"cerebro/internal/types"
)

// progressStringer adapts one ProgressEvent into the fmt.Stringer the
// teacher's progress.Bar expects for its description.
type progressStringer types.ProgressEvent

func (p progressStringer) String() string {
	return p.Phase + ": " + p.Message
}

// parseSize parses a human-readable size string into bytes, e.g.
// "100", "1K", "1MiB".
func parseSize(s string) (int64, error) {
	bytes, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	return int64(bytes), nil
}

// commonOptions holds the flags shared by scan/clean/similar.
type commonOptions struct {
	configFile      string
	minSizeStr      string
	excludeDirs     []string
	allowedExts     []string
	workers         int
	followSymlinks  bool
	includeHidden   bool
	validationMode  bool
	scanIntent      string
	verbose         bool
	logFile         string
	cacheFile       string
	noProgress      bool
}

func addCommonFlags(cmd *cobra.Command, opts *commonOptions) {
	opts.minSizeStr = "1"
	opts.workers = runtime.NumCPU()

	cmd.Flags().StringVar(&opts.configFile, "config", "", "YAML config file to merge before flags")
	cmd.Flags().StringVarP(&opts.minSizeStr, "min-size", "m", opts.minSizeStr, "Minimum file size (e.g., 100, 1K, 10M)")
	cmd.Flags().StringSliceVarP(&opts.excludeDirs, "exclude-dir", "e", nil, "Directory basenames to exclude")
	cmd.Flags().StringSliceVar(&opts.allowedExts, "ext", nil, "Restrict to these extensions (e.g. .jpg,.png)")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", opts.workers, "Number of parallel workers")
	cmd.Flags().BoolVar(&opts.followSymlinks, "follow-symlinks", false, "Follow symlinks during discovery")
	cmd.Flags().BoolVar(&opts.includeHidden, "include-hidden", false, "Include dotfiles and dot-directories")
	cmd.Flags().BoolVar(&opts.validationMode, "validation-mode", false, "Force deterministic, byte-identical output ordering")
	cmd.Flags().StringVar(&opts.scanIntent, "scan-intent", "", "Free-text intent tag consulted by scoring (e.g. nostalgic, forensic)")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose logging")
	cmd.Flags().StringVar(&opts.logFile, "log-file", "", "Additionally write structured logs to this file")
	cmd.Flags().StringVar(&opts.cacheFile, "cache-file", "", "Path to hash cache file (enables caching)")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "Disable progress output")
}

// toRequest converts flags the user actually set into a PipelineRequest
// fragment. Unset fields stay zero so config.Load's mergo overlay only
// overrides what the user explicitly passed.
func (o *commonOptions) toRequest(cmd *cobra.Command, roots []string) (types.PipelineRequest, error) {
	req := types.PipelineRequest{Roots: roots}

	if cmd.Flags().Changed("min-size") {
		size, err := parseSize(o.minSizeStr)
		if err != nil {
			return req, err
		}
		req.MinSizeBytes = size
	}
	if cmd.Flags().Changed("exclude-dir") {
		req.ExcludeDirs = o.excludeDirs
	}
	if cmd.Flags().Changed("ext") {
		exts := make([]string, len(o.allowedExts))
		for i, e := range o.allowedExts {
			exts[i] = strings.ToLower(e)
		}
		req.AllowedExtensions = exts
	}
	if cmd.Flags().Changed("workers") {
		req.MaxWorkers = o.workers
	}
	req.FollowSymlinks = o.followSymlinks
	req.IncludeHidden = o.includeHidden
	req.ValidationMode = o.validationMode
	req.ScanIntent = o.scanIntent

	return req, nil
}

// cancelFromInterrupt wires SIGINT/SIGTERM into a cancel.Handle for the
// duration of one CLI invocation.
func cancelFromInterrupt() (*cancel.Handle, context.CancelFunc) {
	return cancel.NewFromInterrupt()
}

// progressEmitter wires a terminal progress.Bar to the pipeline's
// structured event stream, unless progress output was disabled. The
// subscriber channel is buffered so a slow terminal redraw never stalls
// the pipeline (Emitter.Emit drops events into a full channel rather
// than blocking).
func progressEmitter(disabled bool) *progress.Emitter {
	if disabled {
		return progress.NewEmitter()
	}

	events := make(chan types.ProgressEvent, 64)
	emit := progress.NewEmitter(events)

	bar := progress.New(100)
	go func() {
		for ev := range events {
			bar.Set(uint64(ev.Pct))
			bar.Describe(progressStringer(ev))
			if ev.Phase == types.PhaseComplete || ev.Phase == types.PhaseFailed || ev.Phase == types.PhaseCancelled {
				bar.Finish(progressStringer(ev))
			}
		}
	}()

	return emit
}

// newScanID returns a short random identifier for one pipeline run, used
// to name report/script artifacts and as the audit report's scan_id.
func newScanID() string {
	var raw [8]byte
	_, _ = rand.Read(raw[:])
	return hex.EncodeToString(raw[:])
}

// gateTokenFile is the sidecar file a clean invocation uses to hand its
// issued confirmation token to the next invocation of the same command.
func gateTokenFile(outDir string) string {
	return filepath.Join(outDir, ".cerebro_gate_token.json")
}

type persistedGateToken struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
	Reason  string    `json:"reason"`
}

func savePendingToken(outDir, token string, expires time.Time, reason string) error {
	data, err := json.Marshal(persistedGateToken{Token: token, Expires: expires, Reason: reason})
	if err != nil {
		return err
	}
	return os.WriteFile(gateTokenFile(outDir), data, 0o600)
}

func loadPendingToken(outDir string) (persistedGateToken, bool) {
	data, err := os.ReadFile(gateTokenFile(outDir))
	if err != nil {
		return persistedGateToken{}, false
	}
	var pt persistedGateToken
	if err := json.Unmarshal(data, &pt); err != nil {
		return persistedGateToken{}, false
	}
	return pt, true
}

func clearPendingToken(outDir string) {
	_ = os.Remove(gateTokenFile(outDir))
}
