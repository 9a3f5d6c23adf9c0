package types

import "time"

// DiscoveredFile is a single file record produced by Discovery.
type DiscoveredFile struct {
	Path    string
	Size    int64
	ModTime time.Time // ModTimeNanos() gives the nanosecond form spec.md names
}

// ModTimeNanos returns the modification time in nanoseconds since the Unix
// epoch, matching spec.md §3's "last-modification time in nanoseconds".
func (f DiscoveredFile) ModTimeNanos() int64 { return f.ModTime.UnixNano() }

// FileIdentity is (device_id, inode, link_count) — used to detect hardlinks.
// A path with LinkCount > 1 is hardlinked.
type FileIdentity struct {
	Dev       uint64
	Inode     uint64
	LinkCount uint64
}

// IsHardlinked reports whether more than one directory entry references
// this file's inode.
func (f FileIdentity) IsHardlinked() bool { return f.LinkCount > 1 }

// DuplicateItem is one member of a DuplicateGroup.
type DuplicateItem struct {
	Path          string
	SizeBytes     int64
	ModTime       time.Time
	ContentHash   string // hex SHA-256; empty for similarity-branch groups
	PerceptualHash uint64
	HasPerceptualHash bool
	Identity      FileIdentity

	// Best-effort enrichment signals consulted only by scoring (§4.6).
	// A nil pointer means "unknown" and contributes zero to scoring,
	// matching spec.md's "missing attributes contribute zero".
	ExifIntact *bool
	HasGPS     *bool

	Score float64
	Label string
}

// DuplicateGroup is a set of >= 2 files believed to be duplicates.
type DuplicateGroup struct {
	GroupID string
	Items   []DuplicateItem
}

// Len reports the number of items in the group.
func (g DuplicateGroup) Len() int { return len(g.Items) }

// DeletePlanItem is one line of an authorized or pending DeletePlan.
type DeletePlanItem struct {
	Path      string
	GroupID   string
	Reason    string
	Survivor  bool
	SizeBytes int64
}

// DeletePlan is the outcome of Decision: one survivor per represented
// group, a freshly generated token, and the configured deletion policy.
type DeletePlan struct {
	Token          string
	DeletionPolicy DeletionPolicy
	Items          []DeletePlanItem
}

// TrashAction records the (src, dst) pairs produced by one Executor run
// under MOVE_TO_TRASH, retained for the session undo window.
type TrashAction struct {
	Moved [][2]string // [0]=src, [1]=dst
}

// ExecutionReport is the Executor's summary of one plan run.
type ExecutionReport struct {
	DeletedCount int
	FailedCount  int
	Failures     []ExecutionFailure
	Trash        TrashAction
}

// ExecutionFailure names one item the Executor could not act on.
type ExecutionFailure struct {
	Path   string
	Reason string
}

// ProgressEvent is one structured event on the pipeline's progress stream.
type ProgressEvent struct {
	Phase     string
	Message   string
	Pct       int
	Timestamp time.Time
}

const (
	PhaseDiscover      = "discover"
	PhaseSizeGroup     = "size_group"
	PhasePartialHash   = "partial_hash"
	PhaseFullHash      = "full_hash"
	PhaseCluster       = "cluster"
	PhaseScore         = "score"
	PhaseDecide        = "decide"
	PhaseConfirmDelete = "confirm_delete"
	PhaseDelete        = "delete"
	PhaseRecord        = "record"
	PhaseComplete      = "complete"
	PhaseFailed        = "failed"
	PhaseCancelled     = "cancelled"
)
