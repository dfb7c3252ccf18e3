package bvhcore

import (
	"sync"
	"sync/atomic"

	"github.com/lange-studios/gobvh/pkg/bvherr"
)

// DefaultBlockSize is the size of one OS-backed arena block. Chosen so a
// handful of blocks covers a mid-size scene without falling back to the
// global free-list on every worker's first allocation.
const DefaultBlockSize = 2 << 20 // 2 MiB

// CacheLineSize is the alignment every arena allocation honors, so that
// two workers never false-share a cache line writing adjacent nodes.
const CacheLineSize = 64

// arenaBlock is one OS-backed allocation, bump-allocated from the front.
type arenaBlock struct {
	data []byte
}

// Arena is the global list of fixed-size blocks acquired for a build by
// every worker's CachedAllocator. New blocks are appended under a mutex (block
// creation is rare, roughly one per 2 MiB of build output) but allocation
// out of an already-acquired block never takes the arena's lock: each
// worker bump-allocates from its own private block pointer (see
// CachedAllocator).
//
// No allocation is ever freed individually; the whole arena is released
// by Reset, which is only safe to call between builds.
type Arena struct {
	mu         sync.Mutex
	blocks     []*arenaBlock
	blockSize  int
	maxBytes   int64 // 0 = unbounded
	totalBytes atomic.Int64
}

// NewArena creates an empty arena. maxBytes bounds total OS memory the
// arena may acquire before returning bvherr.ErrAllocationFailure; 0 means
// unbounded.
func NewArena(blockSize int, maxBytes int64) *Arena {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &Arena{blockSize: blockSize, maxBytes: maxBytes}
}

// InitEstimate acquires enough blocks up front to cover the given byte
// count; they count toward TotalBytes and maxBytes. CachedAllocators do
// not draw from these blocks: each acquires its own blocks through
// newBlock when its current block is exhausted.
func (a *Arena) InitEstimate(bytes int) error {
	need := (bytes + a.blockSize - 1) / a.blockSize
	for i := 0; i < need; i++ {
		if _, err := a.newBlock(); err != nil {
			return err
		}
	}
	return nil
}

// newBlock acquires a fresh OS-backed block and registers it in the arena.
func (a *Arena) newBlock() (*arenaBlock, error) {
	if a.maxBytes > 0 && a.totalBytes.Load()+int64(a.blockSize) > a.maxBytes {
		return nil, bvherr.Wrap(bvherr.CodeAllocationFailure, "arena byte budget exhausted", nil)
	}
	b := &arenaBlock{data: make([]byte, a.blockSize)}
	a.mu.Lock()
	a.blocks = append(a.blocks, b)
	a.mu.Unlock()
	a.totalBytes.Add(int64(a.blockSize))
	return b, nil
}

// TotalBytes returns the number of bytes currently acquired from the OS.
func (a *Arena) TotalBytes() int64 {
	return a.totalBytes.Load()
}

// BlockSize returns the configured block size.
func (a *Arena) BlockSize() int {
	return a.blockSize
}

// Reset releases every block, invalidating all previously returned
// pointers. Safe only between builds, never while a build is in flight.
func (a *Arena) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.blocks = nil
	a.totalBytes.Store(0)
}

// CachedAllocator is a worker-private bump allocator over an Arena. It
// holds two block pointers, one sized for small (node/leaf-record)
// requests and one for large (primitive-array) requests, so a worker
// never contends on the arena's block-fetch path except when its current
// block is exhausted.
type CachedAllocator struct {
	arena *Arena

	smallBlock *arenaBlock
	smallOff   int

	largeBlock *arenaBlock
	largeOff   int

	// smallThreshold separates "small" (node/leaf) from "large"
	// (bulk array) requests; derived from the arena's block size so a
	// single large request never starves the small block's remaining
	// capacity.
	smallThreshold int
}

// NewCachedAllocator creates a per-worker allocator over arena.
func NewCachedAllocator(arena *Arena) *CachedAllocator {
	return &CachedAllocator{arena: arena, smallThreshold: arena.blockSize / 8}
}

func align(off, alignment int) int {
	rem := off % alignment
	if rem == 0 {
		return off
	}
	return off + (alignment - rem)
}

// Alloc returns a zeroed, cache-line-aligned byte slice of the given size.
// It never blocks on I/O; on arena exhaustion it returns
// bvherr.ErrAllocationFailure, which callers must treat as unrecoverable.
func (c *CachedAllocator) Alloc(size int) ([]byte, error) {
	if size > c.smallThreshold {
		return c.allocFrom(&c.largeBlock, &c.largeOff, size)
	}
	return c.allocFrom(&c.smallBlock, &c.smallOff, size)
}

func (c *CachedAllocator) allocFrom(block **arenaBlock, off *int, size int) ([]byte, error) {
	if *block == nil || align(*off, CacheLineSize)+size > len((*block).data) {
		// Oversized requests get a dedicated block sized to fit them,
		// rather than wasting the remainder of a standard block.
		blockSize := c.arena.blockSize
		if size > blockSize {
			newBlk := &arenaBlock{data: make([]byte, size)}
			return newBlk.data, nil
		}
		newBlk, err := c.arena.newBlock()
		if err != nil {
			return nil, err
		}
		*block = newBlk
		*off = 0
	}

	start := align(*off, CacheLineSize)
	*off = start + size
	return (*block).data[start : start+size], nil
}

// Clear drops the allocator's cached block pointers without touching the
// arena; a subsequent Alloc call fetches a fresh block. Used between
// builds that reuse the same arena.
func (c *CachedAllocator) Clear() {
	c.smallBlock, c.smallOff = nil, 0
	c.largeBlock, c.largeOff = nil, 0
}
