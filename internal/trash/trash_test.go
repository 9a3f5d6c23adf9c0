package trash

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cerebro/internal/cancel"
	"cerebro/internal/types"
)

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestExecuteMoveToTrashRelocatesUnderRoot(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "dupe.txt")
	mustWrite(t, path, "x")

	plan := types.DeletePlan{Items: []types.DeletePlanItem{{Path: path}}}
	e := New([]string{root}, false)
	report := e.Execute(plan, types.PolicyMoveToTrash, cancel.New())

	assert.Equal(t, 1, report.DeletedCount)
	assert.Zero(t, report.FailedCount)
	require.Len(t, report.Trash.Moved, 1)
	assert.NoFileExists(t, path)
	assert.FileExists(t, report.Trash.Moved[0][1])
	assert.Contains(t, report.Trash.Moved[0][1], ".cerebro_trash")
}

func TestExecuteSkipsSurvivors(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "keep.txt")
	mustWrite(t, path, "x")

	plan := types.DeletePlan{Items: []types.DeletePlanItem{{Path: path, Survivor: true}}}
	e := New([]string{root}, false)
	report := e.Execute(plan, types.PolicyMoveToTrash, cancel.New())

	assert.Zero(t, report.DeletedCount)
	assert.FileExists(t, path)
}

func TestExecuteDeletePermanentlyRemovesFile(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "gone.txt")
	mustWrite(t, path, "x")

	plan := types.DeletePlan{Items: []types.DeletePlanItem{{Path: path}}}
	e := New([]string{root}, false)
	report := e.Execute(plan, types.PolicyDeletePermanent, cancel.New())

	assert.Equal(t, 1, report.DeletedCount)
	assert.NoFileExists(t, path)
}

func TestExecuteDryRunLeavesFileInPlace(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "untouched.txt")
	mustWrite(t, path, "x")

	plan := types.DeletePlan{Items: []types.DeletePlanItem{{Path: path}}}
	e := New([]string{root}, false)
	report := e.Execute(plan, types.PolicyDryRun, cancel.New())

	assert.Equal(t, 1, report.DeletedCount)
	assert.FileExists(t, path)
}

func TestExecuteDedupesCollidingTrashDestinations(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "sub", "name.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(a), 0o755))
	mustWrite(t, a, "a")

	require.NoError(t, os.MkdirAll(filepath.Join(root, trashDirName, "sub"), 0o755))
	mustWrite(t, filepath.Join(root, trashDirName, "sub", "name.txt"), "already here")

	plan := types.DeletePlan{Items: []types.DeletePlanItem{{Path: a}}}
	e := New([]string{root}, false)
	report := e.Execute(plan, types.PolicyMoveToTrash, cancel.New())

	require.Len(t, report.Trash.Moved, 1)
	assert.Contains(t, report.Trash.Moved[0][1], "__1")
}

func TestExecuteMissingFileIsNotAFailure(t *testing.T) {
	root := t.TempDir()
	plan := types.DeletePlan{Items: []types.DeletePlanItem{{Path: filepath.Join(root, "ghost.txt")}}}
	e := New([]string{root}, false)
	report := e.Execute(plan, types.PolicyMoveToTrash, cancel.New())

	assert.Zero(t, report.FailedCount)
}

func TestExecuteStopsOnCancel(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.txt")
	mustWrite(t, path, "x")

	plan := types.DeletePlan{Items: []types.DeletePlanItem{{Path: path}}}
	c := cancel.New()
	c.Cancel()
	e := New([]string{root}, false)
	report := e.Execute(plan, types.PolicyMoveToTrash, c)

	assert.Zero(t, report.DeletedCount)
	assert.FileExists(t, path)
}

func TestUndoRestoresMovedFiles(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "restore-me.txt")
	mustWrite(t, path, "content")

	plan := types.DeletePlan{Items: []types.DeletePlanItem{{Path: path}}}
	e := New([]string{root}, false)
	report := e.Execute(plan, types.PolicyMoveToTrash, cancel.New())
	require.Len(t, report.Trash.Moved, 1)

	ok, failed := Undo(report.Trash)
	assert.True(t, ok)
	assert.Zero(t, failed)
	assert.FileExists(t, path)
}

func TestUndoSkipsAlreadyMissingDestination(t *testing.T) {
	action := types.TrashAction{Moved: [][2]string{{"/nonexistent/src.txt", "/nonexistent/dst.txt"}}}
	ok, failed := Undo(action)
	assert.True(t, ok)
	assert.Zero(t, failed)
}

func TestUndoEmptyActionReportsFalse(t *testing.T) {
	ok, failed := Undo(types.TrashAction{})
	assert.False(t, ok)
	assert.Zero(t, failed)
}

func TestExecuteBlocksHardlinkedFileWithoutAllowFlag(t *testing.T) {
	root := t.TempDir()
	original := filepath.Join(root, "original.txt")
	linked := filepath.Join(root, "linked.txt")
	mustWrite(t, original, "shared content")
	require.NoError(t, os.Link(original, linked))

	plan := types.DeletePlan{Items: []types.DeletePlanItem{{Path: linked}}}
	e := New([]string{root}, false)
	report := e.Execute(plan, types.PolicyMoveToTrash, cancel.New())

	assert.Equal(t, 1, report.FailedCount)
	assert.Zero(t, report.DeletedCount)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "hardlink_protected", report.Failures[0].Reason)
	assert.FileExists(t, linked)
	assert.FileExists(t, original)
}

func TestExecuteAllowsHardlinkedFileWhenFlagSet(t *testing.T) {
	root := t.TempDir()
	original := filepath.Join(root, "original.txt")
	linked := filepath.Join(root, "linked.txt")
	mustWrite(t, original, "shared content")
	require.NoError(t, os.Link(original, linked))

	plan := types.DeletePlan{Items: []types.DeletePlanItem{{Path: linked}}}
	e := New([]string{root}, true)
	report := e.Execute(plan, types.PolicyMoveToTrash, cancel.New())

	assert.Equal(t, 1, report.DeletedCount)
	assert.Zero(t, report.FailedCount)
	assert.NoFileExists(t, linked)
	assert.FileExists(t, original)
}

func TestDedupePathReturnsOriginalWhenFree(t *testing.T) {
	dir := t.TempDir()
	candidate := filepath.Join(dir, "fresh.txt")

	out, err := dedupePath(candidate)
	require.NoError(t, err)
	assert.Equal(t, candidate, out)
}
