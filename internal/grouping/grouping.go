// Package grouping implements the SizeGrouping stage: the cheap, I/O-free
// filter that buckets discovered files by exact byte size and discards
// singleton buckets before any hashing is attempted.
//
// Adapted from the teacher's internal/screener, which additionally groups
// each size bucket by dev+ino into "sibling groups" to collapse hardlinks
// before counting candidates. That extra step doesn't apply here: hardlink
// awareness is spec.md's concern for the Executor (don't re-delete a file
// through two paths), not for forming duplicate candidates, so this stage
// only needs the size-bucketing half of the teacher's pipeline.
package grouping

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"cerebro/internal/progress"
	"cerebro/internal/types"
)

// Grouping buckets discovered files by size.
type Grouping struct {
	files          []types.DiscoveredFile
	validationMode bool
	emit           *progress.Emitter
}

// New creates a Grouping stage.
func New(files []types.DiscoveredFile, validationMode bool, emit *progress.Emitter) *Grouping {
	return &Grouping{files: files, validationMode: validationMode, emit: emit}
}

type stats struct {
	candidateFiles int
	candidateBytes int64
	startTime      time.Time
}

func (s *stats) String() string {
	return humanize.Comma(int64(s.candidateFiles)) + " candidates, " +
		humanize.IBytes(uint64(s.candidateBytes)) + ", " +
		time.Since(s.startTime).String()
}

// Run groups files by exact size and drops buckets with fewer than two
// members, since a lone file of a given size cannot be a duplicate of
// anything else discovered.
func (g *Grouping) Run() [][]types.DiscoveredFile {
	st := &stats{startTime: time.Now()}

	bySize := make(map[int64][]types.DiscoveredFile)
	for _, f := range g.files {
		bySize[f.Size] = append(bySize[f.Size], f)
	}

	var out [][]types.DiscoveredFile
	for _, bucket := range bySize {
		if len(bucket) < 2 {
			continue
		}
		out = append(out, bucket)
		st.candidateFiles += len(bucket)
		st.candidateBytes += bucket[0].Size * int64(len(bucket))
	}

	if g.validationMode {
		sortBuckets(out)
	}

	g.emit.Emit(types.PhaseSizeGroup, st.String(), 1)
	return out
}

// sortBuckets orders buckets by ascending size and each bucket's members
// by lowercased path, so validation-mode runs produce identical bucket
// order regardless of discovery's scan order.
func sortBuckets(buckets [][]types.DiscoveredFile) {
	for _, b := range buckets {
		sortFiles(b)
	}
	types.StableSort(buckets, func(a, b []types.DiscoveredFile) bool {
		return a[0].Size < b[0].Size
	})
}

func sortFiles(files []types.DiscoveredFile) {
	types.StableSort(files, func(a, b types.DiscoveredFile) bool {
		return strings.ToLower(a.Path) < strings.ToLower(b.Path)
	})
}
