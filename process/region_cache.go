package process

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// CachePolicy decides how long a region snapshot stays fresh.
type CachePolicy struct {
	// TTL is the lifetime of a snapshot. Zero means the snapshot never
	// expires and is only replaced by Invalidate.
	TTL time.Duration
}

// NeverExpire keeps the first snapshot until it is invalidated by hand.
func NeverExpire() CachePolicy {
	return CachePolicy{}
}

// ExpireAfter refreshes the snapshot once it is older than ttl.
func ExpireAfter(ttl time.Duration) CachePolicy {
	return CachePolicy{TTL: ttl}
}

func (p CachePolicy) String() string {
	if p.TTL <= 0 {
		return "never-expire"
	}
	return fmt.Sprintf("expire-after(%s)", p.TTL)
}

// RegionCache holds the last region snapshot of one backend. Readers clone
// the snapshot under a shared lock; a refresh queries the OS with no lock
// held and takes the exclusive lock only to swap the result in.
type RegionCache struct {
	policy CachePolicy
	now    func() time.Time

	mu        sync.RWMutex
	regions   []MemoryRegion
	populated bool
	loadedAt  time.Time

	// generation is bumped by Invalidate; a load started under an older
	// generation is returned to its caller but never cached
	generation uint64
}

func NewRegionCache(policy CachePolicy) *RegionCache {
	return &RegionCache{
		policy: policy,
		now:    time.Now,
	}
}

// Policy returns the freshness policy the cache was built with.
func (c *RegionCache) Policy() CachePolicy {
	return c.policy
}

// Get returns a copy of the cached snapshot, calling load to replace it first
// when the cache is empty or stale.
func (c *RegionCache) Get(load func() ([]MemoryRegion, error)) ([]MemoryRegion, error) {
	regions, err := c.Snapshot(load)
	if err != nil {
		return nil, err
	}
	return cloneRegions(regions), nil
}

// FindRegion returns the region containing addr in a snapshot sorted by
// start address.
func FindRegion(regions []MemoryRegion, addr ProcessMemoryAddress) (MemoryRegion, bool) {
	i := sort.Search(len(regions), func(i int) bool {
		return regions[i].End > addr
	})
	if i < len(regions) && regions[i].Contains(addr) {
		return regions[i], true
	}
	return MemoryRegion{}, false
}

// RangeReadable reports whether every byte of [start, end) lies in readable
// regions of a sorted snapshot, allowing the range to span adjacent regions.
func RangeReadable(regions []MemoryRegion, start, end ProcessMemoryAddress) bool {
	for addr := start; addr < end; {
		region, ok := FindRegion(regions, addr)
		if !ok || !region.Readable {
			return false
		}
		addr = region.End
	}
	return true
}

// SortRegions orders regions by start address.
func SortRegions(regions []MemoryRegion) {
	sort.Slice(regions, func(i, j int) bool {
		return regions[i].Start < regions[j].Start
	})
}

// Snapshot is Get without the copy. The returned slice is shared and must not
// be modified; snapshots are only ever replaced whole, never mutated.
func (c *RegionCache) Snapshot(load func() ([]MemoryRegion, error)) ([]MemoryRegion, error) {
	c.mu.RLock()
	if c.freshLocked() {
		regions := c.regions
		c.mu.RUnlock()
		return regions, nil
	}
	generation := c.generation
	c.mu.RUnlock()

	regions, err := load()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.generation == generation {
		c.regions = regions
		c.populated = true
		c.loadedAt = c.now()
	}
	c.mu.Unlock()

	return regions, nil
}

// Invalidate drops the snapshot so the next Get reloads it.
func (c *RegionCache) Invalidate() {
	c.mu.Lock()
	c.regions = nil
	c.populated = false
	c.generation++
	c.mu.Unlock()
}

// Populated reports whether a snapshot is currently held, fresh or not.
func (c *RegionCache) Populated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.populated
}

func (c *RegionCache) freshLocked() bool {
	if !c.populated {
		return false
	}
	if c.policy.TTL <= 0 {
		return true
	}
	return c.now().Sub(c.loadedAt) <= c.policy.TTL
}

func cloneRegions(regions []MemoryRegion) []MemoryRegion {
	result := make([]MemoryRegion, len(regions))
	copy(result, regions)
	return result
}
