package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewPacer_Unlimited(t *testing.T) {
	for _, fps := range []int{0, -1} {
		p := NewPacer(fps)
		if p != nil {
			t.Errorf("NewPacer(%d) should return nil", fps)
		}

		start := time.Now()
		if err := p.Wait(context.Background()); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if elapsed := time.Since(start); elapsed > 10*time.Millisecond {
			t.Errorf("nil pacer should not block, took %v", elapsed)
		}
		if p.Rate() != 0 {
			t.Errorf("expected rate 0, got %v", p.Rate())
		}
	}
}

func TestNilPacer_CancelledContext(t *testing.T) {
	var p *Pacer
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := p.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestPacer_SpacesFrames(t *testing.T) {
	p := NewPacer(20) // one frame every 50ms
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := p.Wait(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	elapsed := time.Since(start)

	// First frame is immediate, the next two wait ~50ms each
	if elapsed < 90*time.Millisecond {
		t.Errorf("expected >= ~100ms for 3 frames at 20fps, got %v", elapsed)
	}
	if p.Rate() != 20 {
		t.Errorf("expected rate 20, got %v", p.Rate())
	}
}

func TestPacer_ContextCancelled(t *testing.T) {
	p := NewPacer(1)
	_ = p.Wait(context.Background()) // consume the burst

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := p.Wait(ctx)
	if err == nil {
		t.Error("expected error when context expires before the next slot")
	}
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Errorf("Wait should give up early, took %v", elapsed)
	}
}
