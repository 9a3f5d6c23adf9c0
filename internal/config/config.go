// Package config assembles a PipelineRequest from compiled-in defaults,
// an optional YAML config file, and CLI flags, in that overlay order.
//
// Grounded on haapjari-btidy's cmd/root.go for the flag surface this
// wraps (dry-run, verbose, workers all carry over in spirit here as
// deletion-policy, log verbosity, and max-workers). No example repo in
// the pack wires spf13/cobra, gopkg.in/yaml.v3, and dario.cat/mergo
// together, so the merge strategy below follows each library's own
// documented usage rather than a specific pack file: mergo.Merge with
// WithOverride lets each later source's non-zero fields win without a
// hand-rolled "did the user pass this flag" check per field.
package config

import (
	"fmt"
	"os"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"cerebro/internal/types"
)

// FileConfig is the YAML-shaped config file schema. Field names match
// PipelineRequest's, and fileConfigToRequest copies them across field by
// field. A zero value in the file counts as absent: mergo's override
// merge skips zero-valued source fields, so the file cannot set a field
// back to zero.
type FileConfig struct {
	Roots []string `yaml:"roots,omitempty"`

	MinSizeBytes     int64 `yaml:"min_size_bytes,omitempty"`
	PartialHashBytes int   `yaml:"partial_hash_bytes,omitempty"`
	UseFullHash      bool  `yaml:"use_full_hash,omitempty"`
	MaxWorkers       int   `yaml:"max_workers,omitempty"`

	FollowSymlinks       bool `yaml:"follow_symlinks,omitempty"`
	IncludeHidden        bool `yaml:"include_hidden,omitempty"`
	AllowHardlinkDeletes bool `yaml:"allow_hardlink_deletes,omitempty"`

	AllowedExtensions []string `yaml:"allowed_extensions,omitempty"`
	ExcludeDirs       []string `yaml:"exclude_dirs,omitempty"`

	ValidationMode bool `yaml:"validation_mode,omitempty"`

	DeletionPolicy string `yaml:"deletion_policy,omitempty"`
	ScanIntent     string `yaml:"scan_intent,omitempty"`

	MatchingLevel        int    `yaml:"matching_level,omitempty"`
	BitmapSize           int    `yaml:"bitmap_size,omitempty"`
	SimilarityAlgorithm  string `yaml:"similarity_algorithm,omitempty"`
	OrientationInvariant bool   `yaml:"orientation_invariant,omitempty"`
}

// Load reads path (if non-empty) and merges it over compiled-in defaults,
// then merges flags over the result. flags should hold only the fields a
// user explicitly set on the command line (cobra's Flags().Changed gate
// belongs in the caller, one layer up, so this function stays about
// merge order, not flag parsing).
func Load(path string, flags types.PipelineRequest) (types.PipelineRequest, error) {
	req := types.PipelineRequest{}.WithDefaults()

	if path != "" {
		fc, err := loadFile(path)
		if err != nil {
			return req, err
		}
		fromFile := fileConfigToRequest(fc)
		if err := mergo.Merge(&req, fromFile, mergo.WithOverride); err != nil {
			return req, fmt.Errorf("merge config file: %w", err)
		}
	}

	if err := mergo.Merge(&req, flags, mergo.WithOverride); err != nil {
		return req, fmt.Errorf("merge flags: %w", err)
	}

	return req.WithDefaults(), nil
}

func loadFile(path string) (FileConfig, error) {
	var fc FileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parse config %s: %w", path, err)
	}
	return fc, nil
}

func fileConfigToRequest(fc FileConfig) types.PipelineRequest {
	return types.PipelineRequest{
		Roots:                fc.Roots,
		MinSizeBytes:         fc.MinSizeBytes,
		PartialHashBytes:     fc.PartialHashBytes,
		UseFullHash:          fc.UseFullHash,
		MaxWorkers:           fc.MaxWorkers,
		FollowSymlinks:       fc.FollowSymlinks,
		IncludeHidden:        fc.IncludeHidden,
		AllowHardlinkDeletes: fc.AllowHardlinkDeletes,
		AllowedExtensions:    fc.AllowedExtensions,
		ExcludeDirs:          fc.ExcludeDirs,
		ValidationMode:       fc.ValidationMode,
		DeletionPolicy:       types.DeletionPolicy(fc.DeletionPolicy),
		ScanIntent:           fc.ScanIntent,
		MatchingLevel:        fc.MatchingLevel,
		BitmapSize:           fc.BitmapSize,
		SimilarityAlgorithm:  types.SimilarityAlgorithm(fc.SimilarityAlgorithm),
		OrientationInvariant: fc.OrientationInvariant,
	}
}
