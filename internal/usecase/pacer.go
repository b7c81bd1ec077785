package usecase

import (
	"context"
	"math/rand/v2"
	"time"
)

// Pacer spaces out browser interactions.
type Pacer interface {
	// Pause sleeps for a random duration in [min, max], or until ctx is done.
	Pause(ctx context.Context, min, max time.Duration) error
}

// RandomPacer sleeps for real.
type RandomPacer struct{}

func (RandomPacer) Pause(ctx context.Context, min, max time.Duration) error {
	d := min
	if max > min {
		d += rand.N(max - min + 1)
	}
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
