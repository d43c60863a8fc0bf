package assets

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/franz/card-indexer/internal/util"
)

// PresenceTTL is how long a directory snapshot stays valid before the tree
// is walked again
const PresenceTTL = 5 * time.Minute

// PresenceIndex caches which image files already exist under a root, so sync
// planning does not stat the tree once per candidate. Snapshots are keyed by
// root and expire after a TTL.
type PresenceIndex struct {
	mu        sync.Mutex
	ttl       time.Duration
	now       func() time.Time
	snapshots map[string]*snapshot
}

// snapshot maps bucket (directory path relative to the root) to the set of
// extension-stripped base names present in it
type snapshot struct {
	takenAt time.Time
	buckets map[string]map[string]struct{}
}

// NewPresenceIndex creates a presence index with the default TTL
func NewPresenceIndex() *PresenceIndex {
	return NewPresenceIndexWithClock(PresenceTTL, time.Now)
}

// NewPresenceIndexWithClock creates a presence index with an injected clock
func NewPresenceIndexWithClock(ttl time.Duration, now func() time.Time) *PresenceIndex {
	return &PresenceIndex{
		ttl:       ttl,
		now:       now,
		snapshots: make(map[string]*snapshot),
	}
}

// Contains reports whether any of the given stems exists in the bucket under
// root. Callers pass every stem convention they accept (current and legacy).
func (p *PresenceIndex) Contains(root, bucket string, stems ...string) (bool, error) {
	snap, err := p.snapshot(root)
	if err != nil {
		return false, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	names, ok := snap.buckets[bucket]
	if !ok {
		return false, nil
	}
	for _, stem := range stems {
		if _, ok := names[stem]; ok {
			return true, nil
		}
	}
	return false, nil
}

// MarkPresent records a stem as present without re-walking the tree, so
// aliases downloaded later in the same batch are deduplicated
func (p *PresenceIndex) MarkPresent(root, bucket, stem string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap, ok := p.snapshots[root]
	if !ok {
		return
	}
	names, ok := snap.buckets[bucket]
	if !ok {
		names = make(map[string]struct{})
		snap.buckets[bucket] = names
	}
	names[stem] = struct{}{}
}

// Invalidate drops the cached snapshot for a root
func (p *PresenceIndex) Invalidate(root string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.snapshots, root)
}

// Stats returns the number of buckets and files in the current snapshot
func (p *PresenceIndex) Stats(root string) (buckets, files int, err error) {
	snap, err := p.snapshot(root)
	if err != nil {
		return 0, 0, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, names := range snap.buckets {
		buckets++
		files += len(names)
	}
	return buckets, files, nil
}

// snapshot returns the cached snapshot for root, walking the tree when the
// cache is absent or expired
func (p *PresenceIndex) snapshot(root string) (*snapshot, error) {
	p.mu.Lock()
	snap, ok := p.snapshots[root]
	if ok && p.now().Sub(snap.takenAt) < p.ttl {
		p.mu.Unlock()
		return snap, nil
	}
	p.mu.Unlock()

	snap, err := walkRoot(root, p.now())
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.snapshots[root] = snap
	p.mu.Unlock()

	return snap, nil
}

func walkRoot(root string, at time.Time) (*snapshot, error) {
	snap := &snapshot{
		takenAt: at,
		buckets: make(map[string]map[string]struct{}),
	}

	if _, err := os.Stat(root); os.IsNotExist(err) {
		// An image root that does not exist yet is just empty
		return snap, nil
	}

	start := time.Now()
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, filepath.Dir(path))
		if err != nil {
			return err
		}
		bucket := filepath.ToSlash(rel)
		if bucket == "." {
			bucket = ""
		}

		name := d.Name()
		stem := strings.TrimSuffix(name, filepath.Ext(name))

		names, ok := snap.buckets[bucket]
		if !ok {
			names = make(map[string]struct{})
			snap.buckets[bucket] = names
		}
		names[stem] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk image root %s: %w", root, err)
	}

	util.DebugLog("Presence snapshot of %s: %d buckets in %s",
		root, len(snap.buckets), time.Since(start).Round(time.Millisecond))
	return snap, nil
}
