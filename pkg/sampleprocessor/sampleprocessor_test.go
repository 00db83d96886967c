package sampleprocessor

import "testing"

func TestChainRunsInInsertionOrder(t *testing.T) {
	c := NewChain()
	c.Add(NewGain(2))
	c.Add(NewGain(3))

	block := []float32{1, 1}
	c.Process(block)

	for _, s := range block {
		if s != 6 {
			t.Fatalf("got %v, want 6 (1 * 2 * 3)", s)
		}
	}
}

func TestChainSkipsDisabledProcessors(t *testing.T) {
	c := NewChain()
	g := NewGain(5)
	g.SetEnabled(false)
	c.Add(g)

	block := []float32{1}
	c.Process(block)
	if block[0] != 1 {
		t.Fatalf("got %v, disabled processor should not run", block[0])
	}
}

func TestChainRemoveByIdentity(t *testing.T) {
	c := NewChain()
	g1 := NewGain(2)
	g2 := NewGain(3)
	c.Add(g1)
	c.Add(g2)

	if !c.Remove(g1) {
		t.Fatalf("Remove(g1) = false, want true")
	}
	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", c.Len())
	}

	block := []float32{1}
	c.Process(block)
	if block[0] != 3 {
		t.Fatalf("got %v, want 3 (only g2 left)", block[0])
	}
}

func TestClipLimitsToUnitRange(t *testing.T) {
	c := NewClip()
	block := []float32{1.5, -1.5, 0.5}
	c.Process(block)
	want := []float32{1, -1, 0.5}
	for i := range block {
		if block[i] != want[i] {
			t.Fatalf("block[%d] = %v, want %v", i, block[i], want[i])
		}
	}
}

func TestGainFactorIsConcurrencySafeToUpdate(t *testing.T) {
	g := NewGain(1)
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			g.SetFactor(float32(i))
		}
		close(done)
	}()
	for i := 0; i < 1000; i++ {
		_ = g.Factor()
	}
	<-done
}
