package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cerebro/internal/cancel"
	"cerebro/internal/progress"
	"cerebro/internal/types"
)

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestRunFindsRegularFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "hello")
	writeFile(t, filepath.Join(dir, "sub", "b.txt"), "world")

	req := types.PipelineRequest{Roots: []string{dir}}
	d := New(req, cancel.New(), progress.NewEmitter())
	files := d.Run()

	assert.Len(t, files, 2)
}

func TestRunSkipsHiddenFilesByDefault(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".hidden"), "secret")
	writeFile(t, filepath.Join(dir, "visible.txt"), "public")

	req := types.PipelineRequest{Roots: []string{dir}}
	files := New(req, cancel.New(), progress.NewEmitter()).Run()

	require.Len(t, files, 1)
	assert.Equal(t, "visible.txt", filepath.Base(files[0].Path))
}

func TestRunIncludesHiddenWhenRequested(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".hidden"), "secret")

	req := types.PipelineRequest{Roots: []string{dir}, IncludeHidden: true}
	files := New(req, cancel.New(), progress.NewEmitter()).Run()

	assert.Len(t, files, 1)
}

func TestRunFiltersByMinSize(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "small.txt"), "x")
	writeFile(t, filepath.Join(dir, "big.txt"), "this is a much longer file body")

	req := types.PipelineRequest{Roots: []string{dir}, MinSizeBytes: 10}
	files := New(req, cancel.New(), progress.NewEmitter()).Run()

	require.Len(t, files, 1)
	assert.Equal(t, "big.txt", filepath.Base(files[0].Path))
}

func TestRunFiltersByExtension(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.jpg"), "x")
	writeFile(t, filepath.Join(dir, "b.txt"), "x")

	req := types.PipelineRequest{Roots: []string{dir}, AllowedExtensions: []string{".jpg"}}
	files := New(req, cancel.New(), progress.NewEmitter()).Run()

	require.Len(t, files, 1)
	assert.Equal(t, "a.jpg", filepath.Base(files[0].Path))
}

func TestRunExcludesNamedDirectories(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "node_modules", "dep.js"), "x")
	writeFile(t, filepath.Join(dir, "src", "main.go"), "x")

	req := types.PipelineRequest{Roots: []string{dir}, ExcludeDirs: []string{"node_modules"}}
	files := New(req, cancel.New(), progress.NewEmitter()).Run()

	require.Len(t, files, 1)
	assert.Equal(t, "main.go", filepath.Base(files[0].Path))
}

func TestRunValidationModeSortsDeterministically(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "zeta.txt"), "x")
	writeFile(t, filepath.Join(dir, "alpha.txt"), "x")

	req := types.PipelineRequest{Roots: []string{dir}, ValidationMode: true}
	files := New(req, cancel.New(), progress.NewEmitter()).Run()

	require.Len(t, files, 2)
	assert.Equal(t, "alpha.txt", filepath.Base(files[0].Path))
	assert.Equal(t, "zeta.txt", filepath.Base(files[1].Path))
}

func TestRunStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "x")

	req := types.PipelineRequest{Roots: []string{dir}}
	c := cancel.New()
	c.Cancel()
	files := New(req, c, progress.NewEmitter()).Run()

	assert.Empty(t, files)
}

func TestRunIgnoresSymlinksByDefault(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "real.txt")
	writeFile(t, target, "x")
	link := filepath.Join(dir, "link.txt")
	require.NoError(t, os.Symlink(target, link))

	req := types.PipelineRequest{Roots: []string{dir}}
	files := New(req, cancel.New(), progress.NewEmitter()).Run()

	require.Len(t, files, 1)
	assert.Equal(t, "real.txt", filepath.Base(files[0].Path))
}
