// Package decision selects exactly one survivor per duplicate group and
// emits an explainable, replayable DeletePlan. It never deletes anything
// itself — see internal/gate and internal/trash for that.
//
// Ported from original_source/decision.py's DecisionEngine, with one
// deliberate deviation: decision.py ranks survivors with its own crude
// _score_item (KB-weighted size only), ignoring the richer ScoringEngine
// from scoring.py entirely — an apparent redundancy in the original. This
// package instead ranks by the score internal/scoring already attached to
// each item, since this repo's pipeline runs Score before Decide and a
// second, cruder scorer re-deciding the same question would contradict
// the first (see the open-question resolution in SPEC_FULL.md §12.1).
package decision

import (
	"sort"

	"github.com/google/uuid"

	"cerebro/internal/cancel"
	"cerebro/internal/types"
)

// Decide builds a DeletePlan covering every group with >=2 members,
// choosing the highest-scoring item in each as the survivor.
func Decide(groups []types.DuplicateGroup, req types.PipelineRequest, c *cancel.Handle) types.DeletePlan {
	policy := req.DeletionPolicy
	if policy == "" {
		policy = types.PolicyDryRun
	}
	plan := types.DeletePlan{
		Token:          newToken(),
		DeletionPolicy: policy,
	}

	for _, group := range groups {
		if c.IsCancelled() {
			break
		}
		if len(group.Items) < 2 {
			continue
		}

		ranked := rankedItems(group.Items, req.ValidationMode)
		survivorPath := ranked[0].Path

		for _, item := range ranked {
			isSurvivor := item.Path == survivorPath
			reason := "duplicate:lower_score"
			if isSurvivor {
				reason = "survivor:selected_by_score"
			}
			plan.Items = append(plan.Items, types.DeletePlanItem{
				Path:      item.Path,
				GroupID:   group.GroupID,
				Reason:    reason,
				Survivor:  isSurvivor,
				SizeBytes: item.SizeBytes,
			})
		}
	}

	return plan
}

// newToken returns a fresh 32-hex-character plan token, matching
// decision.py's uuid.uuid4().hex.
func newToken() string {
	u := uuid.New()
	return uuidHex(u)
}

func uuidHex(u uuid.UUID) string {
	const hextable = "0123456789abcdef"
	buf := make([]byte, 32)
	for i, b := range u {
		buf[i*2] = hextable[b>>4]
		buf[i*2+1] = hextable[b&0x0f]
	}
	return string(buf)
}

func rankedItems(items []types.DuplicateItem, validationMode bool) []types.DuplicateItem {
	ranked := append([]types.DuplicateItem(nil), items...)
	if validationMode {
		sort.SliceStable(ranked, func(a, b int) bool {
			if ranked[a].Score != ranked[b].Score {
				return ranked[a].Score > ranked[b].Score
			}
			return ranked[a].Path < ranked[b].Path
		})
	} else {
		sort.SliceStable(ranked, func(a, b int) bool {
			return ranked[a].Score > ranked[b].Score
		})
	}
	return ranked
}
