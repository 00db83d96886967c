package bufferpool

import "testing"

func TestRentBelowBypassThresholdAllocatesFresh(t *testing.T) {
	p := New(nil)
	buf := p.Rent(64)
	if len(buf) != 64 {
		t.Fatalf("len = %d, want 64", len(buf))
	}
	// returning a sub-threshold buffer should be a no-op, not retained
	p.Return(buf)
	stats := p.Stats()
	for i, r := range stats.Retained {
		if r != 0 {
			t.Fatalf("tier %d retained %d after returning a bypass buffer", i, r)
		}
	}
}

func TestRentRoundsUpToTier(t *testing.T) {
	p := New(nil)
	buf := p.Rent(600)
	if len(buf) != 600 {
		t.Fatalf("len = %d, want 600", len(buf))
	}
	if cap(buf) != tier1024 {
		t.Fatalf("cap = %d, want tier1024 (%d)", cap(buf), tier1024)
	}
}

func TestReturnIsReusedByRent(t *testing.T) {
	p := New(nil)
	buf := p.Rent(1024)
	buf[0] = 42
	p.Return(buf)

	stats := p.Stats()
	if stats.Retained[1] != 1 {
		t.Fatalf("retained[1] = %d, want 1 after Return", stats.Retained[1])
	}

	reused := p.Rent(1024)
	if reused[0] != 0 {
		t.Fatalf("reused buffer not zero-filled: got %v", reused[0])
	}
}

func TestReturnCapsRetentionPerTier(t *testing.T) {
	p := New(nil)
	bufs := make([][]float32, maxRetained+5)
	for i := range bufs {
		bufs[i] = p.Rent(512)
	}
	for _, b := range bufs {
		p.Return(b)
	}
	stats := p.Stats()
	if stats.Retained[0] != maxRetained {
		t.Fatalf("retained[0] = %d, want capped at %d", stats.Retained[0], maxRetained)
	}
}

func TestRentAboveLargestTierNeverPooled(t *testing.T) {
	p := New(nil)
	buf := p.Rent(tier8192 + 1)
	p.Return(buf) // must be silently dropped, not matched to any tier

	stats := p.Stats()
	for i, r := range stats.Retained {
		if r != 0 {
			t.Fatalf("tier %d retained an oversized buffer", i)
		}
	}
}
