// Package trash implements the Executor: the stage that actually moves,
// removes, or previews removal of non-survivor items from an authorized
// DeletePlan.
//
// Ported from original_source/trash_manager.py (trash-destination
// resolution, dedupe-path loop, undo) and the teacher's
// internal/deduper/links.go, whose atomic temp-file+rename pattern for
// hardlink/symlink creation is adapted here to plain file moves: same
// idea (write somewhere safe, then one atomic rename into place), applied
// to relocating a file into the trash tree instead of linking it.
package trash

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/cenkalti/backoff/v4"

	"cerebro/internal/cancel"
	"cerebro/internal/discovery"
	"cerebro/internal/logger"
	"cerebro/internal/types"
)

const trashDirName = ".cerebro_trash"

// Executor applies a DeletePlan under one of the three deletion policies.
type Executor struct {
	roots                []string
	allowHardlinkDeletes bool
}

// New creates an Executor scoped to the given scan roots.
func New(roots []string, allowHardlinkDeletes bool) *Executor {
	return &Executor{roots: roots, allowHardlinkDeletes: allowHardlinkDeletes}
}

// Execute applies plan's non-survivor items under policy, in plan order.
func (e *Executor) Execute(plan types.DeletePlan, policy types.DeletionPolicy, c *cancel.Handle) types.ExecutionReport {
	var report types.ExecutionReport

	for _, item := range plan.Items {
		if c.IsCancelled() {
			break
		}
		if item.Survivor {
			continue
		}

		if blocked, reason := e.blockedByHardlink(item.Path); blocked {
			report.FailedCount++
			report.Failures = append(report.Failures, types.ExecutionFailure{Path: item.Path, Reason: reason})
			continue
		}

		var err error
		switch policy {
		case types.PolicyMoveToTrash:
			var dst string
			dst, err = e.moveToTrash(item.Path)
			if err == nil {
				report.Trash.Moved = append(report.Trash.Moved, [2]string{item.Path, dst})
				report.DeletedCount++
			}
		case types.PolicyDeletePermanent:
			err = deletePermanently(item.Path)
			if err == nil {
				report.DeletedCount++
			}
		case types.PolicyDryRun:
			logger.LogFileSkip("dry_run", item.Path, nil)
			report.DeletedCount++
		}

		if err != nil {
			report.FailedCount++
			report.Failures = append(report.Failures, types.ExecutionFailure{Path: item.Path, Reason: err.Error()})
		}
	}

	return report
}

// deletePermanently unlinks path. A file already missing at execute time
// is not an error, per spec.md §4.9.
func deletePermanently(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// blockedByHardlink reports whether path must be protected from deletion
// because it has more than one directory entry (nlink > 1) and the
// request does not explicitly allow hardlink deletes.
func (e *Executor) blockedByHardlink(path string) (bool, string) {
	if e.allowHardlinkDeletes {
		return false, ""
	}
	info, err := os.Lstat(path)
	if err != nil {
		return false, ""
	}
	identity := discovery.FileIdentityOf(info)
	if identity.IsHardlinked() {
		return true, "hardlink_protected"
	}
	return false, ""
}

// moveToTrash relocates path into its scan root's trash tree (or the
// _external subtree if path falls under no scan root), deduping the
// destination name on collision, and returns the final destination.
func (e *Executor) moveToTrash(path string) (string, error) {
	if _, err := os.Lstat(path); err != nil {
		if os.IsNotExist(err) {
			return "", nil //nolint:nilerr // missing-at-execute is not an error for trash either
		}
		return "", err
	}

	root, rel, ok := e.relativeToRoot(path)
	var dst string
	if ok {
		dst = filepath.Join(root, trashDirName, rel)
	} else {
		dst = filepath.Join(e.fallbackRoot(), trashDirName, "_external", sanitizeExternal(path))
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create trash dir: %w", err)
	}

	dst, err := dedupePath(dst)
	if err != nil {
		return "", err
	}

	if err := atomicMove(path, dst); err != nil {
		return "", err
	}
	return dst, nil
}

// relativeToRoot finds the first configured scan root that is an ancestor
// of path and returns (root, relative path, true); otherwise ("", "", false).
func (e *Executor) relativeToRoot(path string) (root, rel string, ok bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	for _, r := range e.roots {
		absRoot, err := filepath.Abs(r)
		if err != nil {
			absRoot = r
		}
		if relPath, err := filepath.Rel(absRoot, abs); err == nil && !strings.HasPrefix(relPath, "..") {
			return absRoot, relPath, true
		}
	}
	return "", "", false
}

// fallbackRoot is where the _external trash subtree lives when a file
// falls outside every scan root: the first configured root, or the
// current working directory if none were configured.
func (e *Executor) fallbackRoot() string {
	if len(e.roots) > 0 {
		if abs, err := filepath.Abs(e.roots[0]); err == nil {
			return abs
		}
		return e.roots[0]
	}
	return "."
}

// sanitizeExternal mirrors trash_manager.py's _safe_relpath fallback:
// strip drive colons and leading path separators.
func sanitizeExternal(path string) string {
	s := strings.ReplaceAll(path, ":", "")
	return strings.TrimLeft(s, `\/`)
}

// dedupePath appends __1 through __9999 between stem and extension until
// a non-existing candidate is found, matching _dedupe_path.
func dedupePath(path string) (string, error) {
	if _, err := os.Lstat(path); os.IsNotExist(err) {
		return path, nil
	}

	dir := filepath.Dir(path)
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(filepath.Base(path), ext)

	for i := 1; i < 10000; i++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s__%d%s", stem, i, ext))
		if _, err := os.Lstat(candidate); os.IsNotExist(err) {
			return candidate, nil
		}
	}
	return "", errors.New("could not dedupe trash path")
}

// atomicMove renames src to dst, retrying briefly on transient errors
// (e.g. a concurrent scan racing the same rename), and falling back to
// copy-then-unlink across filesystem boundaries (EXDEV), matching the
// teacher's links.go EXDEV handling pattern.
func atomicMove(src, dst string) error {
	op := func() error {
		err := os.Rename(src, dst)
		if err == nil {
			return nil
		}
		if errors.Is(err, syscall.EXDEV) {
			return backoff.Permanent(copyThenRemove(src, dst))
		}
		return err
	}

	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
	return backoff.Retry(op, b)
}

// copyThenRemove copies src's content to dst then removes src, used when
// a same-filesystem rename isn't possible.
func copyThenRemove(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	tmp := dst + ".cerebro.tmp"
	out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Remove(src)
}

// Undo reverses a TrashAction: walks the move log in reverse and renames
// each destination back to its source, skipping entries whose destination
// is already gone. Never returns an error; failures are merely counted.
func Undo(action types.TrashAction) (ok bool, failedCount int) {
	if len(action.Moved) == 0 {
		return false, 0
	}

	ok = true
	for i := len(action.Moved) - 1; i >= 0; i-- {
		src, dst := action.Moved[i][0], action.Moved[i][1]
		if _, err := os.Lstat(dst); err != nil {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
			ok = false
			failedCount++
			continue
		}
		if err := os.Rename(dst, src); err != nil {
			ok = false
			failedCount++
		}
	}
	return ok, failedCount
}
