// Package discovery implements the pipeline's filesystem traversal stage.
//
// Unlike the teacher's internal/scanner (a goroutine-per-directory
// fan-out/fan-in walker), this stage is single-threaded with an explicit
// work stack: spec.md §4.1 requires iterative, non-recursive traversal,
// and §5 states discovery is "bound by directory I/O serialization" —
// parallelizing it would buy nothing and would break the deterministic
// validation-mode ordering without real gain. The per-entry metadata
// resolution (syscall.Stat_t for dev/inode/nlink) and batched ReadDir
// idiom are carried over from the teacher's scanner.go.
package discovery

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"cerebro/internal/cancel"
	"cerebro/internal/logger"
	"cerebro/internal/progress"
	"cerebro/internal/types"
)

const readDirBatch = 1000

// devIno identifies a directory by device+inode, used to break symlink
// cycles when follow_symlinks is enabled (spec.md §9 open question).
type devIno struct {
	dev, ino uint64
}

// Discovery traverses request roots and returns matching files.
type Discovery struct {
	req     types.PipelineRequest
	cancel  *cancel.Handle
	emit    *progress.Emitter
	visited map[devIno]bool
}

// New creates a Discovery stage for one pipeline run.
func New(req types.PipelineRequest, c *cancel.Handle, emit *progress.Emitter) *Discovery {
	return &Discovery{req: req, cancel: c, emit: emit, visited: make(map[devIno]bool)}
}

// Run traverses all configured roots and returns the discovered files.
// I/O errors on individual entries are swallowed per spec.md §7; they
// never abort the stage or propagate to the caller.
func (d *Discovery) Run() []types.DiscoveredFile {
	var out []types.DiscoveredFile

	allowedExts := make(map[string]bool, len(d.req.AllowedExtensions))
	for _, e := range d.req.AllowedExtensions {
		allowedExts[strings.ToLower(e)] = true
	}
	excludeDirs := make(map[string]bool, len(d.req.ExcludeDirs))
	for _, e := range d.req.ExcludeDirs {
		excludeDirs[e] = true
	}

	total := len(d.req.Roots)
	for i, root := range d.req.Roots {
		if d.cancel.IsCancelled() {
			break
		}
		abs, err := filepath.Abs(root)
		if err != nil {
			logger.LogFileSkip("discover", root, err)
			continue
		}
		out = append(out, d.scanRoot(abs, allowedExts, excludeDirs)...)
		if total > 0 {
			d.emit.Emit(types.PhaseDiscover, "scanned root "+root, float64(i+1)/float64(total))
		}
	}

	if d.req.ValidationMode {
		sortFilesByLowerPath(out)
	}

	d.emit.Emit(types.PhaseDiscover, "discovery complete", 1)
	return out
}

func (d *Discovery) scanRoot(root string, allowedExts, excludeDirs map[string]bool) []types.DiscoveredFile {
	var out []types.DiscoveredFile
	stack := []string{root}

	for len(stack) > 0 {
		if d.cancel.IsCancelled() {
			return out
		}

		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := readDirEntries(cur)
		if err != nil {
			logger.LogFileSkip("discover", cur, err)
			continue
		}

		if d.req.ValidationMode {
			sortEntriesByLowerName(entries)
		}

		for _, entry := range entries {
			if d.cancel.IsCancelled() {
				return out
			}

			name := entry.Name()
			if !d.req.IncludeHidden && strings.HasPrefix(name, ".") {
				continue
			}

			full := filepath.Join(cur, name)

			isSymlink := entry.Type()&os.ModeSymlink != 0
			if isSymlink && !d.req.FollowSymlinks {
				continue
			}

			info, err := entry.Info()
			if err != nil {
				logger.LogFileSkip("discover", full, err)
				continue
			}
			// Follow symlinks to their target's mode when enabled, matching
			// discovery.py's entry.is_dir(follow_symlinks=...) behavior.
			if isSymlink && d.req.FollowSymlinks {
				target, err := os.Stat(full)
				if err != nil {
					logger.LogFileSkip("discover", full, err)
					continue
				}
				info = target
			}

			if info.IsDir() {
				if excludeDirs[name] {
					continue
				}
				if d.req.FollowSymlinks {
					if id, ok := identityOf(info); ok {
						if d.visited[id] {
							continue
						}
						d.visited[id] = true
					}
				}
				stack = append(stack, full)
				continue
			}

			if !info.Mode().IsRegular() {
				continue
			}

			ext := strings.ToLower(filepath.Ext(name))
			if len(allowedExts) > 0 && !allowedExts[ext] {
				continue
			}

			size := info.Size()
			if size < d.req.MinSizeBytes {
				continue
			}

			out = append(out, types.DiscoveredFile{Path: full, Size: size, ModTime: info.ModTime()})
		}
	}

	return out
}

func readDirEntries(dir string) ([]os.DirEntry, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var entries []os.DirEntry
	for {
		batch, err := f.ReadDir(readDirBatch)
		entries = append(entries, batch...)
		if err != nil {
			if err == io.EOF || len(batch) == 0 {
				break
			}
			return entries, err
		}
		if len(batch) == 0 {
			break
		}
	}
	return entries, nil
}

func sortEntriesByLowerName(entries []os.DirEntry) {
	types.StableSort(entries, func(a, b os.DirEntry) bool {
		return strings.ToLower(a.Name()) < strings.ToLower(b.Name())
	})
}

func sortFilesByLowerPath(files []types.DiscoveredFile) {
	types.StableSort(files, func(a, b types.DiscoveredFile) bool {
		return strings.ToLower(a.Path) < strings.ToLower(b.Path)
	})
}
