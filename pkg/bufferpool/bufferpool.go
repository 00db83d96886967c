// Package bufferpool is the designated allocation facility for the mixing
// engine's hot path. Every scratch buffer the mixer or a source needs
// during a render callback is rented here instead of allocated, and
// returned once the callback is done with it.
package bufferpool

import "log/slog"

// tier sizes, in float32 samples. Large is unbounded and never pooled.
const (
	tier512  = 512
	tier1024 = 1024
	tier2048 = 2048
	tier4096 = 4096
	tier8192 = 8192

	// bypassThreshold: requests smaller than this are allocated directly,
	// the bookkeeping cost of pooling outweighs the saving.
	bypassThreshold = 256

	// maxRetained caps how many buffers a bucket keeps around. Bounded so
	// the pool cannot grow unboundedly if sources churn buffers faster
	// than the mixer drains them.
	maxRetained = 15
)

var tierSizes = [...]int{tier512, tier1024, tier2048, tier4096, tier8192}

// Pool hands out []float32 scratch buffers sized to one of a fixed set of
// tiers, and retains returned buffers (up to maxRetained per tier) for
// reuse. All methods are safe for concurrent use, but Rent/Return do no
// internal locking beyond the channel each tier is backed by, so they
// never block: a full retain channel just drops the returned buffer and
// lets the GC reclaim it.
type Pool struct {
	tiers  [len(tierSizes)]chan []float32
	logger *slog.Logger
}

// Stats reports the current fill level of each tier, for diagnostics.
type Stats struct {
	TierSize  []int
	Retained  []int
	Capacity  []int
	Oversized uint64
}

// New creates a Pool. logger may be nil, in which case slog.Default() is
// used.
func New(logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{logger: logger.With("component", "bufferpool")}
	for i := range p.tiers {
		p.tiers[i] = make(chan []float32, maxRetained)
	}
	return p
}

// Rent returns a []float32 of length n. Buffers below bypassThreshold are
// allocated fresh every time; buffers that fit a tier come from that
// tier's retain channel if one is available, or are allocated fresh
// otherwise. Buffers larger than the largest tier are always allocated
// fresh (the "Large" bucket from the design: never pooled).
func (p *Pool) Rent(n int) []float32 {
	if n < bypassThreshold {
		return make([]float32, n)
	}

	idx := tierFor(n)
	if idx < 0 {
		return make([]float32, n)
	}

	select {
	case buf := <-p.tiers[idx]:
		return buf[:n]
	default:
		return make([]float32, n, tierSizes[idx])
	}
}

// Return gives a buffer back to the pool. The buffer is zero-filled
// before being retained so the next renter never observes stale samples.
// Buffers that don't match a tier's capacity, or whose tier's retain
// channel is full, are simply dropped.
func (p *Pool) Return(buf []float32) {
	c := cap(buf)
	if c < bypassThreshold {
		return
	}

	idx := -1
	for i, size := range tierSizes {
		if c == size {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}

	full := buf[:c]
	for i := range full {
		full[i] = 0
	}

	select {
	case p.tiers[idx] <- full:
	default:
		// bucket at capacity, let GC reclaim it
	}
}

// Stats reports per-tier retained/capacity counts for diagnostics.
func (p *Pool) Stats() Stats {
	s := Stats{
		TierSize: append([]int(nil), tierSizes[:]...),
		Retained: make([]int, len(tierSizes)),
		Capacity: make([]int, len(tierSizes)),
	}
	for i, ch := range p.tiers {
		s.Retained[i] = len(ch)
		s.Capacity[i] = cap(ch)
	}
	return s
}

// tierFor returns the smallest tier index whose size is >= n, or -1 if n
// exceeds every tier (the Large bucket, never pooled).
func tierFor(n int) int {
	for i, size := range tierSizes {
		if n <= size {
			return i
		}
	}
	return -1
}
