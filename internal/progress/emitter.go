package progress

import (
	"time"

	"cerebro/internal/types"
)

// phaseRange gives each pipeline phase a [start,end] percentage window,
// based on spec.md §4.10's worked example (discovery 0-20%, partial
// hash 20-60%, full hash 60-85%, decision 85-95%, execute 95-100%), with
// size_group, cluster and score carved out of those windows as listed.
// Phases not listed here (confirm_delete, record, complete, failed,
// cancelled) keep the last pct, except complete, which reports 100.
var phaseRange = map[string][2]int{
	types.PhaseDiscover:    {0, 20},
	types.PhaseSizeGroup:   {20, 25},
	types.PhasePartialHash: {25, 60},
	types.PhaseFullHash:    {60, 85},
	types.PhaseCluster:     {85, 88},
	types.PhaseScore:       {88, 90},
	types.PhaseDecide:      {90, 95},
	types.PhaseDelete:      {95, 100},
}

// Emitter turns stage progress callbacks into the monotone-within-a-run
// percentage event stream spec.md §6 describes, and fans events out to
// zero or more subscriber channels supplied by the caller.
type Emitter struct {
	sinks   []chan<- types.ProgressEvent
	lastPct int
}

// NewEmitter returns an Emitter that publishes to the given channels.
// Channels are never closed by the Emitter; the owner of each channel is
// responsible for that once the pipeline run completes.
func NewEmitter(sinks ...chan<- types.ProgressEvent) *Emitter {
	return &Emitter{sinks: sinks}
}

// Emit publishes an event for phase at the given fraction (0..1) through
// that phase's percentage window, clamping so pct never goes backwards
// within a run (spec.md §6: "pct (0-100 integer monotone within a run)").
func (e *Emitter) Emit(phase, message string, fraction float64) {
	pct := e.lastPct
	if r, ok := phaseRange[phase]; ok {
		if fraction < 0 {
			fraction = 0
		}
		if fraction > 1 {
			fraction = 1
		}
		pct = r[0] + int(fraction*float64(r[1]-r[0]))
	}
	switch phase {
	case types.PhaseComplete:
		pct = 100
	case types.PhaseCancelled, types.PhaseFailed:
		// terminal, non-completion events keep the last known pct
		pct = e.lastPct
	}
	if pct < e.lastPct {
		pct = e.lastPct
	}
	e.lastPct = pct

	event := types.ProgressEvent{Phase: phase, Message: message, Pct: pct, Timestamp: time.Now()}
	for _, sink := range e.sinks {
		select {
		case sink <- event:
		default:
			// Slow subscriber: drop rather than block the pipeline.
		}
	}
}
