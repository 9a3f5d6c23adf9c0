package types

// Mode selects what the pipeline does with the groups it finds.
type Mode string

const (
	ModeScan    Mode = "scan"
	ModeDelete  Mode = "delete"
	ModeSimilar Mode = "similar"
)

// DeletionPolicy selects how the Executor disposes of non-survivor items.
type DeletionPolicy string

const (
	PolicyMoveToTrash      DeletionPolicy = "MOVE_TO_TRASH"
	PolicyDeletePermanent  DeletionPolicy = "DELETE_PERMANENTLY"
	PolicyDryRun           DeletionPolicy = "DRY_RUN"
	DefaultPartialHashSize        = 65536
	DefaultTokenTTLSeconds        = 900
)

// SimilarityAlgorithm selects the perceptual hash family for SIMILAR mode.
type SimilarityAlgorithm string

const (
	AlgorithmDHash SimilarityAlgorithm = "dhash"
	AlgorithmPHash SimilarityAlgorithm = "phash"
)

// PipelineRequest is the immutable configuration record for a single run.
// It is constructed once by the caller (CLI layer, after merging defaults,
// config file, and flags — see internal/config) and never mutated by the
// pipeline. Options carries genuinely extensible hook data only; every
// field the pipeline itself reads is an explicit struct field.
type PipelineRequest struct {
	Roots []string
	Mode  Mode

	MinSizeBytes     int64
	PartialHashBytes int
	UseFullHash      bool
	MaxWorkers       int

	FollowSymlinks       bool
	IncludeHidden        bool
	AllowHardlinkDeletes bool

	AllowedExtensions []string // lowercase, leading dot; nil means "all"
	ExcludeDirs       []string // basenames

	ValidationMode bool

	DeletionPolicy    DeletionPolicy
	ConfirmationToken string

	ScanIntent string

	MatchingLevel        int
	BitmapSize           int
	SimilarityAlgorithm  SimilarityAlgorithm
	OrientationInvariant bool

	Options map[string]any
}

// WithDefaults returns a copy of r with zero-valued fields replaced by the
// documented defaults from spec.md §3.
func (r PipelineRequest) WithDefaults() PipelineRequest {
	if r.PartialHashBytes <= 0 {
		r.PartialHashBytes = DefaultPartialHashSize
	}
	if r.Mode == "" {
		r.Mode = ModeScan
	}
	if r.DeletionPolicy == "" {
		r.DeletionPolicy = PolicyDryRun
	}
	if r.BitmapSize == 0 {
		r.BitmapSize = 64
	}
	if r.SimilarityAlgorithm == "" {
		r.SimilarityAlgorithm = AlgorithmPHash
	}
	if r.MatchingLevel == 0 {
		r.MatchingLevel = 60
	}
	return r
}
