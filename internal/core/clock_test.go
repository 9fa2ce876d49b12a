package core

import (
	"sync"
	"testing"
	"time"
)

func TestRealClock_Since(t *testing.T) {
	clock := RealClock{}
	start := clock.Now()
	time.Sleep(10 * time.Millisecond)

	if elapsed := clock.Since(start); elapsed < 10*time.Millisecond {
		t.Errorf("RealClock.Since() returned %v, expected >= 10ms", elapsed)
	}
}

func TestFakeClock_Advance(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewFakeClock(start)

	if !clock.Now().Equal(start) {
		t.Fatalf("FakeClock.Now() returned %v, expected %v", clock.Now(), start)
	}
	if clock.Since(start) != 0 {
		t.Errorf("FakeClock.Since(start) = %v, expected 0", clock.Since(start))
	}

	clock.Advance(1500 * time.Millisecond)
	clock.Advance(2500 * time.Millisecond)

	if got := clock.Since(start); got != 4*time.Second {
		t.Errorf("after advances, Since(start) = %v, expected 4s", got)
	}
}

func TestFakeClock_ConcurrentAdvance(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewFakeClock(start)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clock.Advance(time.Millisecond)
			_ = clock.Now()
		}()
	}
	wg.Wait()

	if got := clock.Since(start); got != 100*time.Millisecond {
		t.Errorf("expected 100ms after concurrent advances, got %v", got)
	}
}
