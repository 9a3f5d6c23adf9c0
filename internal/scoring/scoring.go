// Package scoring assigns each duplicate group member a "story score":
// higher means more likely to be the survivor. Heuristic and explainable
// by design, not a learned model.
//
// Ported from original_source/scoring.py's ScoringEngine, the richer of
// the original's two scorers (the other, decision.py's own _score_item,
// is a cruder size-only fallback the pipeline here never calls — see the
// Decide stage resolution in SPEC_FULL.md §12.1).
package scoring

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/samber/lo"

	"cerebro/internal/cancel"
	"cerebro/internal/types"
)

var keepTokens = []string{"final", "master", "approved", "best", "keep", "original"}
var ghostTokens = []string{"copy", "duplicate", "backup", "temp", "export", "edited", "edit", "tmp"}

var copyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\(\d+\)$`),
	regexp.MustCompile(`\s-\s*copy$`),
	regexp.MustCompile(`\scopy$`),
}

// Score scores every member of every group with >=2 items in place,
// reflecting intent cues from req.ScanIntent ("nostalgic" prefers older
// files; "precious"/"meticulous"/"forensic" sharpen ghost-token penalties).
func Score(groups []types.DuplicateGroup, req types.PipelineRequest, c *cancel.Handle) {
	intent := strings.ToLower(req.ScanIntent)
	nostalgic := strings.Contains(intent, "nostalgic")
	evidentiary := strings.Contains(intent, "precious") || strings.Contains(intent, "meticulous") || strings.Contains(intent, "forensic")

	for gi := range groups {
		if c.IsCancelled() {
			break
		}
		items := groups[gi].Items
		if len(items) < 2 {
			continue
		}

		sizes := make([]float64, len(items))
		mtimes := make([]float64, len(items))
		for i, it := range items {
			sizes[i] = float64(it.SizeBytes)
			mtimes[i] = float64(it.ModTime.UnixNano()) / 1e9
		}

		sizeRank := rank(sizes, true)
		timeRank := rank(mtimes, !nostalgic)

		for idx := range items {
			it := &items[idx]
			name := normName(it.Path)
			tok := tokenScore(name)

			s := 3.0*sizeRank[idx] + 1.0*timeRank[idx] + tok

			if it.ExifIntact != nil {
				if *it.ExifIntact {
					s += 1.0
				} else if evidentiary {
					s -= 0.5
				}
			}
			if it.HasGPS != nil && *it.HasGPS {
				s += 0.3
			}
			if evidentiary && tok < 0 {
				s -= 0.5
			}

			it.Score = s
			switch {
			case tok >= 2:
				it.Label = "keeper:semantic"
			case tok <= -2:
				it.Label = "ghost:semantic"
			}
		}
	}
}

func normName(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return strings.TrimSpace(strings.ToLower(stem))
}

func tokenScore(name string) float64 {
	keeps := lo.CountBy(keepTokens, func(t string) bool { return strings.Contains(name, t) })
	ghosts := lo.CountBy(ghostTokens, func(t string) bool { return strings.Contains(name, t) })
	copies := lo.CountBy(copyPatterns, func(pat *regexp.Regexp) bool { return pat.MatchString(name) })
	return 2.0*float64(keeps) - 2.0*float64(ghosts) - 1.5*float64(copies)
}

// rank maps each value to its relative quality in [0,1]: best -> 1.0,
// worst -> 0.0, linear by sorted position; equal values share the rank of
// the first of them, so a tie never decides a score on its own.
func rank(values []float64, higherIsBetter bool) []float64 {
	n := len(values)
	if n == 0 {
		return nil
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		if higherIsBetter {
			return values[order[a]] > values[order[b]]
		}
		return values[order[a]] < values[order[b]]
	})

	denom := n - 1
	if denom < 1 {
		denom = 1
	}
	ranks := make([]float64, n)
	for pos, i := range order {
		if pos > 0 && values[i] == values[order[pos-1]] {
			ranks[i] = ranks[order[pos-1]]
			continue
		}
		ranks[i] = 1.0 - float64(pos)/float64(denom)
	}
	return ranks
}
