// Package similarity clusters images into near-duplicate groups using
// perceptual hashes, LSH-style candidate banding, and union-find.
//
// Grounded directly on original_source/visual_similarity.py: the 4x16-bit
// banding scheme, seen-pairs dedup, Hamming confirmation, and the
// "sim_"-prefixed SHA-1 group ID are all ported verbatim in semantics.
// Content hashing in this repo is goroutine-pooled because file I/O
// dominates; this stage computes each image's perceptual hash and then
// clusters in a single goroutine, like the original and like
// internal/clustering.
package similarity

import (
	"crypto/sha1" //nolint:gosec // content-addressing id, not a security boundary
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"cerebro/internal/cancel"
	"cerebro/internal/progress"
	"cerebro/internal/types"
	"cerebro/internal/visualhash"
)

// hashedFile pairs a discovered file with its computed perceptual hash.
type hashedFile struct {
	file types.DiscoveredFile
	hash uint64
}

// Cluster computes perceptual hashes for every image among files and
// groups near-duplicates, per spec.md's SIMILAR mode.
func Cluster(files []types.DiscoveredFile, req types.PipelineRequest, c *cancel.Handle, emit *progress.Emitter) []types.DuplicateGroup {
	threshold := thresholdFromLevel(req.MatchingLevel)

	var items []hashedFile
	total := len(files)
	for i, f := range files {
		if c.IsCancelled() {
			break
		}
		if !visualhash.IsImagePath(f.Path) {
			continue
		}
		hv, ok, err := visualhash.Compute(f.Path, req.SimilarityAlgorithm, req.BitmapSize, req.OrientationInvariant)
		if err != nil || !ok {
			continue
		}
		items = append(items, hashedFile{file: f, hash: hv})
		if total > 0 {
			emit.Emit(types.PhaseCluster, "hashed images for similarity", float64(i+1)/float64(total))
		}
	}

	if req.ValidationMode {
		sort.Slice(items, func(a, b int) bool { return items[a].file.Path < items[b].file.Path })
	}

	groups := clusterHashes(items, string(req.SimilarityAlgorithm), threshold, c)

	if req.ValidationMode {
		sort.Slice(groups, func(a, b int) bool {
			if groups[a].GroupID != groups[b].GroupID {
				return groups[a].GroupID < groups[b].GroupID
			}
			return groups[a].Items[0].Path < groups[b].Items[0].Path
		})
	}

	return groups
}

// thresholdFromLevel maps matching_level in [0,100] (loose..strict) to a
// Hamming-distance threshold in [20..4], per visual_similarity.py.
func thresholdFromLevel(level int) int {
	if level < 0 {
		level = 0
	}
	if level > 100 {
		level = 100
	}
	const loose, strict = 20, 4
	return int(roundHalfAwayFromZero(float64(loose) - (float64(level)/100.0)*float64(loose-strict)))
}

func roundHalfAwayFromZero(f float64) float64 {
	if f >= 0 {
		return float64(int64(f + 0.5))
	}
	return float64(int64(f - 0.5))
}

func clusterHashes(items []hashedFile, algorithm string, threshold int, c *cancel.Handle) []types.DuplicateGroup {
	n := len(items)
	if n < 2 {
		return nil
	}

	parent := make([]int, n)
	rank := make([]int, n)
	for i := range parent {
		parent[i] = i
	}

	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		switch {
		case rank[ra] < rank[rb]:
			parent[ra] = rb
		case rank[ra] > rank[rb]:
			parent[rb] = ra
		default:
			parent[rb] = ra
			rank[ra]++
		}
	}

	type bandKey struct {
		band uint8
		bits uint16
	}
	buckets := make(map[bandKey][]int)
	for i, it := range items {
		for band := 0; band < 4; band++ {
			key := bandKey{band: uint8(band), bits: uint16(it.hash >> (band * 16))}
			buckets[key] = append(buckets[key], i)
		}
	}

	type pair struct{ a, b int }
	seen := make(map[pair]bool)
	for _, idxs := range buckets {
		if c.IsCancelled() {
			break
		}
		if len(idxs) < 2 {
			continue
		}
		for ai := 0; ai < len(idxs); ai++ {
			for bi := ai + 1; bi < len(idxs); bi++ {
				a, b := idxs[ai], idxs[bi]
				if a > b {
					a, b = b, a
				}
				p := pair{a, b}
				if seen[p] {
					continue
				}
				seen[p] = true
				if visualhash.HammingDistance(items[a].hash, items[b].hash) <= threshold {
					union(a, b)
				}
			}
		}
	}

	comps := make(map[int][]int)
	for i := 0; i < n; i++ {
		root := find(i)
		comps[root] = append(comps[root], i)
	}

	var groups []types.DuplicateGroup
	for _, members := range comps {
		if len(members) < 2 {
			continue
		}
		sort.Slice(members, func(a, b int) bool { return items[members[a]].file.Path < items[members[b]].file.Path })

		paths := make([]string, len(members))
		for i, m := range members {
			paths[i] = items[m].file.Path
		}
		gid := makeGroupID(paths, algorithm, threshold)

		group := types.DuplicateGroup{GroupID: gid}
		for _, m := range members {
			hf := items[m]
			group.Items = append(group.Items, types.DuplicateItem{
				Path:              hf.file.Path,
				SizeBytes:         hf.file.Size,
				ModTime:           hf.file.ModTime,
				PerceptualHash:    hf.hash,
				HasPerceptualHash: true,
			})
		}
		groups = append(groups, group)
	}

	return groups
}

func makeGroupID(paths []string, algorithm string, threshold int) string {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)
	blob := fmt.Sprintf("%s|%d|%s", algorithm, threshold, strings.Join(sorted, "|"))
	h := sha1.Sum([]byte(blob)) //nolint:gosec // content-addressing id, not a security boundary
	return "sim_" + hex.EncodeToString(h[:])[:12]
}
