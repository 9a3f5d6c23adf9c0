package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cerebro/internal/types"
)

func TestWriteJSONProducesValidSchema(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "reports", "out.json")
	groups := []types.DuplicateGroup{
		{GroupID: "abc123", Items: []types.DuplicateItem{
			{Path: "/a.txt", SizeBytes: 10},
			{Path: "/b.txt", SizeBytes: 10},
		}},
	}
	plan := types.DeletePlan{Token: "deadbeef", DeletionPolicy: types.PolicyMoveToTrash, Items: []types.DeletePlanItem{
		{Path: "/a.txt", Reason: "duplicate:lower_score"},
	}}

	stats := BuildStats(groups, plan, nil)
	err := WriteJSON(outPath, "scan-1", types.PipelineRequest{Roots: []string{"/a"}}, stats, groups, plan, 1700000000)
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "cerebro.report.v1", decoded["schema"])
	assert.Equal(t, "scan-1", decoded["scan_id"])

	groupsOut := decoded["groups"].([]any)
	require.Len(t, groupsOut, 1)
	g0 := groupsOut[0].(map[string]any)
	assert.Equal(t, "abc123", g0["key"])
	assert.EqualValues(t, 2, g0["count"])
	assert.EqualValues(t, 10, g0["size"])

	planOut := decoded["delete_plan"].(map[string]any)
	assert.Equal(t, true, planOut["token_present"])
	assert.Equal(t, false, planOut["dry_run"])

	statsOut := decoded["stats"].(map[string]any)
	assert.EqualValues(t, 1, statsOut["duplicate_groups"])
	assert.EqualValues(t, 1, statsOut["delete_candidates"])
}

func TestWriteJSONDryRunPlanHasNoPolicyPointerLeak(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "out.json")
	plan := types.DeletePlan{DeletionPolicy: types.PolicyDryRun}

	err := WriteJSON(outPath, "scan-2", types.PipelineRequest{}, nil, nil, plan, 1700000000)
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	planOut := decoded["delete_plan"].(map[string]any)
	assert.Equal(t, "DRY_RUN", planOut["policy"])
	assert.Equal(t, true, planOut["dry_run"])
	assert.Equal(t, map[string]any{}, decoded["stats"])
}

func TestBuildStatsSumsReclaimableBytesForNonSurvivors(t *testing.T) {
	plan := types.DeletePlan{Items: []types.DeletePlanItem{
		{Path: "/a.txt", SizeBytes: 100, Survivor: true},
		{Path: "/b.txt", SizeBytes: 100, Survivor: false},
		{Path: "/c.txt", SizeBytes: 50, Survivor: false},
	}}

	stats := BuildStats(nil, plan, nil)

	assert.EqualValues(t, 150, stats["bytes_reclaimable"])
}

func TestBuildStatsIncludesExecutionCountsWhenPresent(t *testing.T) {
	exec := &types.ExecutionReport{DeletedCount: 3, FailedCount: 1}

	stats := BuildStats(nil, types.DeletePlan{}, exec)

	assert.EqualValues(t, 3, stats["deleted_count"])
	assert.EqualValues(t, 1, stats["failed_count"])
}

func TestBuildStatsOmitsExecutionCountsWhenNil(t *testing.T) {
	stats := BuildStats(nil, types.DeletePlan{}, nil)

	_, hasDeleted := stats["deleted_count"]
	assert.False(t, hasDeleted)
}

func TestWriteCleanupScriptsContainEveryPlanPath(t *testing.T) {
	dir := t.TempDir()
	plan := types.DeletePlan{Items: []types.DeletePlanItem{
		{Path: "/tmp/has'quote.txt"},
		{Path: "/tmp/plain.txt"},
	}}

	shPath, psPath, err := WriteCleanupScripts(dir, "scan-3", plan)
	require.NoError(t, err)

	sh, err := os.ReadFile(shPath)
	require.NoError(t, err)
	assert.Contains(t, string(sh), "EXECUTE")
	assert.Contains(t, string(sh), "plain.txt")

	ps, err := os.ReadFile(psPath)
	require.NoError(t, err)
	assert.Contains(t, string(ps), "Remove-FileSafe")
	assert.Contains(t, string(ps), "plain.txt")
}

func TestWriteCleanupScriptsDefaultToDryRun(t *testing.T) {
	dir := t.TempDir()
	shPath, _, err := WriteCleanupScripts(dir, "scan-4", types.DeletePlan{})
	require.NoError(t, err)

	sh, err := os.ReadFile(shPath)
	require.NoError(t, err)
	assert.Contains(t, string(sh), `EXECUTE="${EXECUTE:-0}"`)
}

func TestNowUnixSecondsIsPositive(t *testing.T) {
	assert.Greater(t, NowUnixSeconds(), 0.0)
}
