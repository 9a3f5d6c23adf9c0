// Package pipeline composes every stage into the sequential run the CLI
// layer drives: Discovery → SizeGrouping → PartialHashing → FullHashing →
// Clustering → Scoring → Decision → (DeletionGate →) Executor, with the
// VisualSimilarity branch substituting for the hashing/clustering chain
// in SIMILAR mode.
//
// Grounded on the teacher's cmd/dupedog/dedupe.go sequential-stage-wiring
// pattern (scan → screen → cache → verify → dedupe), generalized to this
// pipeline's longer stage list and routed through a progress.Emitter
// instead of a single terminal progress bar.
package pipeline

import (
	"cerebro/internal/cancel"
	"cerebro/internal/clustering"
	"cerebro/internal/decision"
	"cerebro/internal/discovery"
	"cerebro/internal/gate"
	"cerebro/internal/grouping"
	"cerebro/internal/hashcache"
	"cerebro/internal/hashing"
	"cerebro/internal/progress"
	"cerebro/internal/scoring"
	"cerebro/internal/similarity"
	"cerebro/internal/trash"
	"cerebro/internal/types"
)

// Result is everything one pipeline run produces, passed on to reporting.
type Result struct {
	Groups    []types.DuplicateGroup
	Plan      types.DeletePlan
	Execution *types.ExecutionReport
}

// Pipeline runs the full duplicate-detection/cleanup sequence for one
// PipelineRequest.
type Pipeline struct {
	req       types.PipelineRequest
	cancel    *cancel.Handle
	emit      *progress.Emitter
	cachePath string
	gate      *gate.Gate
}

// New creates a Pipeline. gate may be nil to disable the deletion safety
// latch entirely (equivalent to gate.Config{Enabled: false}).
func New(req types.PipelineRequest, c *cancel.Handle, emit *progress.Emitter, cachePath string, g *gate.Gate) *Pipeline {
	if emit == nil {
		emit = progress.NewEmitter()
	}
	if c == nil {
		c = cancel.New()
	}
	return &Pipeline{req: req, cancel: c, emit: emit, cachePath: cachePath, gate: g}
}

// Run executes the pipeline end to end. For ModeDelete, Run also executes
// the plan: MOVE_TO_TRASH and DELETE_PERMANENTLY must first clear the
// deletion gate, while DRY_RUN skips it. Execution is nil when no
// execution was attempted (SCAN/SIMILAR modes, a cancelled run, or a gate
// rejection).
func (p *Pipeline) Run() (Result, error) {
	p.emit.Emit(types.PhaseDiscover, "starting discovery", 0)
	files := discovery.New(p.req, p.cancel, p.emit).Run()

	var groups []types.DuplicateGroup
	if p.req.Mode == types.ModeSimilar {
		groups = similarity.Cluster(files, p.req, p.cancel, p.emit)
	} else {
		groups = p.runContentBranch(files)
	}

	if p.cancel.IsCancelled() {
		p.emit.Emit(types.PhaseCancelled, "cancelled", 0)
		return Result{Groups: groups}, nil
	}

	scoring.Score(groups, p.req, p.cancel)
	p.emit.Emit(types.PhaseScore, "scored groups", 1)

	plan := decision.Decide(groups, p.req, p.cancel)
	p.emit.Emit(types.PhaseDecide, "built delete plan", 1)

	result := Result{Groups: groups, Plan: plan}

	if p.req.Mode != types.ModeDelete {
		return result, nil
	}

	// DRY_RUN never mutates the filesystem, so it does not need to clear
	// the deletion gate; MOVE_TO_TRASH and DELETE_PERMANENTLY do.
	if p.req.DeletionPolicy != types.PolicyDryRun {
		if err := p.authorize(); err != nil {
			return result, err
		}
	}

	p.emit.Emit(types.PhaseDelete, "executing plan", 0)
	exec := trash.New(p.req.Roots, p.req.AllowHardlinkDeletes)
	report := exec.Execute(plan, p.req.DeletionPolicy, p.cancel)
	result.Execution = &report
	p.emit.Emit(types.PhaseComplete, "done", 1)

	return result, nil
}

// authorize consults the deletion gate, if one is configured, before any
// filesystem mutation, presenting the request's ConfirmationToken. A nil
// gate means the caller opted out of the safety latch entirely.
func (p *Pipeline) authorize() error {
	if p.gate == nil {
		return nil
	}
	return p.gate.Assert(p.req.ValidationMode, p.req.ConfirmationToken)
}

func (p *Pipeline) runContentBranch(files []types.DiscoveredFile) []types.DuplicateGroup {
	p.emit.Emit(types.PhaseSizeGroup, "grouping by size", 0)
	buckets := grouping.New(files, p.req.ValidationMode, p.emit).Run()
	if len(buckets) == 0 || p.cancel.IsCancelled() {
		return nil
	}

	cache, err := hashcache.Open(p.cachePath)
	if err != nil {
		cache = &hashcache.Cache{}
	}
	defer func() { _ = cache.Close() }()

	workers := p.req.MaxWorkers
	if workers < 1 {
		workers = 1
	}
	hasher := hashing.New(workers, p.req.ValidationMode, cache, p.emit)

	partialSize := p.req.PartialHashBytes
	if partialSize <= 0 {
		partialSize = types.DefaultPartialHashSize
	}
	surviving := hasher.PartialHash(buckets, partialSize)
	if len(surviving) == 0 || p.cancel.IsCancelled() {
		return nil
	}

	var groups []types.DuplicateGroup
	if p.req.UseFullHash {
		groups = hasher.FullHash(surviving)
	} else {
		groups = hasher.GroupsFromPartial(surviving)
	}
	if len(groups) == 0 {
		return nil
	}

	p.emit.Emit(types.PhaseCluster, "assigning group ids", 0)
	return clustering.Assign(groups)
}
