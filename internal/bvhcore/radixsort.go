package bvhcore

import (
	"context"

	"github.com/lange-studios/gobvh/pkg/collections"
	"github.com/lange-studios/gobvh/pkg/parallel"
)

// radixPasses and radixBits: 8 passes of 8 bits each sort the full 64-bit
// key LSB-first.
const (
	radixPasses  = 8
	radixBits    = 8
	radixBuckets = 1 << radixBits
)

// mortonScratchPool reuses the sort's ping-pong scratch buffer across
// builds instead of allocating len(recs) MortonRecords fresh every call.
var mortonScratchPool = collections.NewSlicePool[MortonRecord](4096)

// SortMortonRecords sorts recs by Code ascending using an 8-pass parallel
// LSB radix sort: each pass partitions the per-worker chunk into
// per-thread histograms, then a single barrier computes the global
// prefix sum before every worker scatters its chunk into the final
// positions for that pass. Each pass is stable (offsets are laid out
// bucket-major, then by worker in chunk order, and every worker scatters
// its chunk front to back), so records with equal Code keep their
// original relative order.
func SortMortonRecords(ctx context.Context, recs []MortonRecord, workers int) {
	n := len(recs)
	if n < 2 {
		return
	}
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}

	src := recs
	dstPtr := mortonScratchPool.Get()
	defer mortonScratchPool.Put(dstPtr)
	if cap(*dstPtr) < n {
		*dstPtr = make([]MortonRecord, n)
	} else {
		*dstPtr = (*dstPtr)[:n]
	}
	dst := *dstPtr

	chunk := (n + workers - 1) / workers
	histograms := make([][radixBuckets]int, workers)

	type workerChunk struct{ w, lo, hi int }
	chunks := make([]workerChunk, 0, workers)
	for w := 0; w < workers; w++ {
		lo, hi := w*chunk, min((w+1)*chunk, n)
		if lo >= hi {
			continue
		}
		chunks = append(chunks, workerChunk{w: w, lo: lo, hi: hi})
	}
	config := parallel.DefaultPoolConfig().WithWorkers(workers)

	for pass := 0; pass < radixPasses; pass++ {
		shift := uint(pass * radixBits)

		for h := range histograms {
			histograms[h] = [radixBuckets]int{}
		}

		parallel.ForEach(ctx, chunks, config, func(ctx context.Context, c workerChunk) error {
			hist := &histograms[c.w]
			for i := c.lo; i < c.hi; i++ {
				b := byte(src[i].Code>>shift) & (radixBuckets - 1)
				hist[b]++
			}
			return nil
		})

		// Serial prefix sum across (bucket, worker) so each worker's
		// per-bucket run lands in a contiguous, globally ordered slot.
		var offsets [radixBuckets][]int // offsets[bucket][worker]
		for b := 0; b < radixBuckets; b++ {
			offsets[b] = make([]int, workers)
		}
		running := 0
		for b := 0; b < radixBuckets; b++ {
			for w := 0; w < workers; w++ {
				offsets[b][w] = running
				running += histograms[w][b]
			}
		}

		parallel.ForEach(ctx, chunks, config, func(ctx context.Context, c workerChunk) error {
			pos := make([]int, radixBuckets)
			for b := 0; b < radixBuckets; b++ {
				pos[b] = offsets[b][c.w]
			}
			for i := c.lo; i < c.hi; i++ {
				b := byte(src[i].Code>>shift) & (radixBuckets - 1)
				dst[pos[b]] = src[i]
				pos[b]++
			}
			return nil
		})

		src, dst = dst, src

		select {
		case <-ctx.Done():
			if !samePointer(src, recs) {
				copy(recs, src)
			}
			return
		default:
		}
	}

	if !samePointer(src, recs) {
		copy(recs, src)
	}
}

func samePointer(a, b []MortonRecord) bool {
	return len(a) > 0 && len(b) > 0 && &a[0] == &b[0]
}
