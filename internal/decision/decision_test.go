package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cerebro/internal/cancel"
	"cerebro/internal/types"
)

func TestDecideMarksHighestScoreAsSurvivor(t *testing.T) {
	groups := []types.DuplicateGroup{
		{GroupID: "g1", Items: []types.DuplicateItem{
			{Path: "/a.txt", SizeBytes: 10, Score: 1.0},
			{Path: "/b.txt", SizeBytes: 10, Score: 5.0},
		}},
	}

	plan := Decide(groups, types.PipelineRequest{}, cancel.New())

	require.Len(t, plan.Items, 2)
	var survivor, other types.DeletePlanItem
	for _, it := range plan.Items {
		if it.Survivor {
			survivor = it
		} else {
			other = it
		}
	}
	assert.Equal(t, "/b.txt", survivor.Path)
	assert.Equal(t, "/a.txt", other.Path)
	assert.Equal(t, "survivor:selected_by_score", survivor.Reason)
	assert.Equal(t, "duplicate:lower_score", other.Reason)
}

func TestDecideSkipsSingletonGroups(t *testing.T) {
	groups := []types.DuplicateGroup{
		{GroupID: "g1", Items: []types.DuplicateItem{{Path: "/a.txt"}}},
	}

	plan := Decide(groups, types.PipelineRequest{}, cancel.New())

	assert.Empty(t, plan.Items)
}

func TestDecideIssuesA32HexToken(t *testing.T) {
	plan := Decide(nil, types.PipelineRequest{}, cancel.New())

	assert.Len(t, plan.Token, 32)
	for _, c := range plan.Token {
		assert.Contains(t, "0123456789abcdef", string(c))
	}
}

func TestDecideValidationModeBreaksTiesByPath(t *testing.T) {
	groups := []types.DuplicateGroup{
		{GroupID: "g1", Items: []types.DuplicateItem{
			{Path: "/z.txt", Score: 1.0},
			{Path: "/a.txt", Score: 1.0},
		}},
	}

	plan := Decide(groups, types.PipelineRequest{ValidationMode: true}, cancel.New())

	require.Len(t, plan.Items, 2)
	assert.Equal(t, "/a.txt", plan.Items[0].Path)
	assert.True(t, plan.Items[0].Survivor)
}

func TestDecidePlanCarriesRequestedDeletionPolicy(t *testing.T) {
	plan := Decide(nil, types.PipelineRequest{DeletionPolicy: types.PolicyDeletePermanent}, cancel.New())

	assert.Equal(t, types.PolicyDeletePermanent, plan.DeletionPolicy)
}

func TestDecidePlanDefaultsToDryRunWhenPolicyUnset(t *testing.T) {
	plan := Decide(nil, types.PipelineRequest{}, cancel.New())

	assert.Equal(t, types.PolicyDryRun, plan.DeletionPolicy)
}

func TestDecideStopsOnCancel(t *testing.T) {
	groups := []types.DuplicateGroup{
		{GroupID: "g1", Items: []types.DuplicateItem{{Path: "/a.txt", Score: 1}, {Path: "/b.txt", Score: 2}}},
	}
	c := cancel.New()
	c.Cancel()

	plan := Decide(groups, types.PipelineRequest{}, c)

	assert.Empty(t, plan.Items)
}
