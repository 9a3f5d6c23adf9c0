// Package hashing implements the PartialHashing and FullHashing stages.
//
// Adapted from the teacher's internal/verifier, which interleaves a head/
// tail/chunk progressive hash state machine into one continuously-spawning
// job queue. spec.md §4.2-§4.3 instead names two flat, independently
// observable stages — hash the first N bytes of every size-bucket member,
// drop now-distinguishable buckets, then SHA-256 the full contents of
// whatever remains — so this package keeps the teacher's worker-pool/
// semaphore/atomic-stats concurrency shape but runs it twice, once per
// stage, instead of as one self-extending state machine.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"cerebro/internal/discovery"
	"cerebro/internal/hashcache"
	"cerebro/internal/logger"
	"cerebro/internal/progress"
	"cerebro/internal/types"
)

const blockSize = 1024 * 1024

// Hasher runs the partial- and full-hash stages over size buckets.
type Hasher struct {
	workers        int
	validationMode bool
	cache          *hashcache.Cache
	emit           *progress.Emitter
}

// New creates a Hasher. cache may be a disabled (no-op) Cache.
func New(workers int, validationMode bool, cache *hashcache.Cache, emit *progress.Emitter) *Hasher {
	if workers < 1 {
		workers = 1
	}
	return &Hasher{workers: workers, validationMode: validationMode, cache: cache, emit: emit}
}

// stats tracks hashing progress across both stages.
type stats struct {
	bytesRead  atomic.Uint64
	bytesCached atomic.Uint64
	startTime  time.Time
}

func (s *stats) String() string {
	return fmt.Sprintf("read %s, cached %s, %v",
		humanize.IBytes(s.bytesRead.Load()), humanize.IBytes(s.bytesCached.Load()),
		time.Since(s.startTime).Truncate(time.Millisecond))
}

// PartialBucket is a set of files sharing a partial-hash digest, carried
// forward so a request with use_full_hash=false can promote it straight
// into a DuplicateGroup without re-reading every file's full contents.
type PartialBucket struct {
	Digest string
	Files  []types.DiscoveredFile
}

// PartialHash hashes the first partialBytes of every bucket member and
// returns the surviving sub-buckets (members whose partial digest matches
// at least one sibling's), dropping now-distinguishable members entirely.
func (h *Hasher) PartialHash(buckets [][]types.DiscoveredFile, partialBytes int) []PartialBucket {
	st := &stats{startTime: time.Now()}
	var out []PartialBucket

	total := len(buckets)
	for i, bucket := range buckets {
		byDigest := h.hashBucket(bucket, "partial", 0, int64(partialBytes), st)
		for digest, members := range byDigest {
			if len(members) >= 2 {
				out = append(out, PartialBucket{Digest: digest, Files: members})
			}
		}
		if total > 0 {
			h.emit.Emit(types.PhasePartialHash, st.String(), float64(i+1)/float64(total))
		}
	}

	if h.validationMode {
		sortPartialBuckets(out)
	}
	return out
}

// FullHash hashes the entire contents of every surviving bucket member and
// returns confirmed duplicate groups (members sharing a full digest). Only
// called when the request's use_full_hash is true; otherwise
// GroupsFromPartial promotes the partial buckets directly.
func (h *Hasher) FullHash(buckets []PartialBucket) []types.DuplicateGroup {
	st := &stats{startTime: time.Now()}
	var groups []types.DuplicateGroup

	total := len(buckets)
	for i, bucket := range buckets {
		byDigest := h.hashBucket(bucket.Files, "full", 0, -1, st)
		for digest, members := range byDigest {
			if len(members) < 2 {
				continue
			}
			groups = append(groups, toDuplicateGroup(digest, members))
		}
		if total > 0 {
			h.emit.Emit(types.PhaseFullHash, st.String(), float64(i+1)/float64(total))
		}
	}

	if h.validationMode {
		sortGroups(groups)
	}
	return groups
}

// GroupsFromPartial promotes partial-hash buckets directly into confirmed
// duplicate groups, for the use_full_hash=false path of spec.md §4.3: the
// partial digest is treated as authoritative and no full-content read is
// performed.
func (h *Hasher) GroupsFromPartial(buckets []PartialBucket) []types.DuplicateGroup {
	groups := make([]types.DuplicateGroup, 0, len(buckets))
	for _, b := range buckets {
		groups = append(groups, toDuplicateGroup(b.Digest, b.Files))
	}

	if h.validationMode {
		sortGroups(groups)
	}
	return groups
}

// hashBucket hashes every member of bucket over [start, start+length) (or
// the whole file when length<0) with h.workers concurrent readers, and
// returns members grouped by resulting hex digest.
func (h *Hasher) hashBucket(bucket []types.DiscoveredFile, phase string, start, length int64, st *stats) map[string][]types.DiscoveredFile {
	type result struct {
		digest string
		file   types.DiscoveredFile
	}

	sem := types.NewSemaphore(h.workers)
	resultsCh := make(chan result, len(bucket))
	var wg sync.WaitGroup

	for _, f := range bucket {
		wg.Add(1)
		go func(f types.DiscoveredFile) {
			defer wg.Done()
			sem.Acquire()
			defer sem.Release()

			size := length
			if size < 0 {
				size = f.Size
			}

			key := hashcache.Key{Path: f.Path, Size: f.Size, ModTime: f.ModTime, Phase: phase, Start: start, Length: size}
			if cached, err := h.cache.Lookup(key); err == nil && cached != nil {
				st.bytesCached.Add(uint64(size))
				resultsCh <- result{hex.EncodeToString(cached), f}
				return
			}

			digest, n, err := hashRange(f.Path, start, size)
			if err != nil {
				logger.LogFileSkip(phase+"_hash", f.Path, err)
				return
			}
			st.bytesRead.Add(uint64(n))

			if digestBytes, err := hex.DecodeString(digest); err == nil {
				_ = h.cache.Store(key, digestBytes)
			}
			resultsCh <- result{digest, f}
		}(f)
	}

	go func() {
		wg.Wait()
		close(resultsCh)
	}()

	byDigest := make(map[string][]types.DiscoveredFile)
	for r := range resultsCh {
		byDigest[r.digest] = append(byDigest[r.digest], r.file)
	}
	return byDigest
}

// hashRange hashes a byte range of a file; size<0 reads to EOF.
func hashRange(path string, start, size int64) (digest string, n int64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer func() { _ = f.Close() }()

	if start > 0 {
		if _, err := f.Seek(start, io.SeekStart); err != nil {
			return "", 0, err
		}
	}

	hasher := sha256.New()
	buf := make([]byte, blockSize)
	var reader io.Reader = f
	if size >= 0 {
		reader = io.LimitReader(f, size)
	}
	// Wrapping hides *os.File's WriteTo, which io.CopyBuffer would
	// otherwise prefer over buf, so reads happen in blockSize chunks.
	n, err = io.CopyBuffer(hasher, struct{ io.Reader }{reader}, buf)
	if err != nil {
		return "", n, err
	}
	return hex.EncodeToString(hasher.Sum(nil)), n, nil
}

func toDuplicateGroup(digest string, files []types.DiscoveredFile) types.DuplicateGroup {
	items := make([]types.DuplicateItem, 0, len(files))
	for _, f := range files {
		identity := types.FileIdentity{}
		if info, err := os.Lstat(f.Path); err == nil {
			identity = discovery.FileIdentityOf(info)
		}
		items = append(items, types.DuplicateItem{
			Path:        f.Path,
			SizeBytes:   f.Size,
			ModTime:     f.ModTime,
			ContentHash: digest,
			Identity:    identity,
		})
	}
	return types.DuplicateGroup{Items: items}
}

func sortPartialBuckets(buckets []PartialBucket) {
	for i := range buckets {
		types.StableSort(buckets[i].Files, func(a, c types.DiscoveredFile) bool {
			return strings.ToLower(a.Path) < strings.ToLower(c.Path)
		})
	}
	types.StableSort(buckets, func(a, b PartialBucket) bool {
		return strings.ToLower(a.Files[0].Path) < strings.ToLower(b.Files[0].Path)
	})
}

func sortGroups(groups []types.DuplicateGroup) {
	for i := range groups {
		types.StableSort(groups[i].Items, func(a, b types.DuplicateItem) bool {
			return strings.ToLower(a.Path) < strings.ToLower(b.Path)
		})
	}
	types.StableSort(groups, func(a, b types.DuplicateGroup) bool {
		return strings.ToLower(a.Items[0].Path) < strings.ToLower(b.Items[0].Path)
	})
}
