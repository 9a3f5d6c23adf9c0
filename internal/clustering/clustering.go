// Package clustering assigns a stable, content-derived identifier to each
// duplicate group produced by full hashing.
//
// Grounded on original_source/clustering.py's _make_group_id: a SHA-1 over
// the content digest plus a handful of member paths, truncated to 12 hex
// characters. The Python original takes paths[:3] in whatever order the
// group happens to hold them, which only comes out deterministic because
// an earlier stage already sorted in validation mode. This package always
// sorts group-local paths before taking the first three, so the group ID
// is a pure function of group membership regardless of arrival order.
package clustering

import (
	"crypto/sha1"
	"encoding/hex"
	"sort"
	"strings"

	"cerebro/internal/types"
)

// Assign computes and sets GroupID on every group, sorting each group's
// items by lowercased path first so the ID (and the item order itself)
// does not depend on hashing stage concurrency.
func Assign(groups []types.DuplicateGroup) []types.DuplicateGroup {
	for i, g := range groups {
		sort.Slice(g.Items, func(a, b int) bool {
			return strings.ToLower(g.Items[a].Path) < strings.ToLower(g.Items[b].Path)
		})
		groups[i].Items = g.Items
		groups[i].GroupID = groupID(g.Items)
	}
	return groups
}

func groupID(items []types.DuplicateItem) string {
	h := sha1.New() //nolint:gosec // content-addressing id, not a security boundary
	if len(items) > 0 {
		h.Write([]byte(items[0].ContentHash))
	}
	n := len(items)
	if n > 3 {
		n = 3
	}
	for _, it := range items[:n] {
		h.Write([]byte(it.Path))
	}
	return hex.EncodeToString(h.Sum(nil))[:12]
}
