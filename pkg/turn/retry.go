package turn

import (
	"context"
	"time"
)

// RetryPolicy bounds how often a transiently unavailable generator is called.
type RetryPolicy struct {
	// MaxAttempts is the total number of generator calls per turn, including the first.
	MaxAttempts int

	// Delay is the fixed wait between attempts.
	Delay time.Duration

	// Sleep waits for d or until ctx is done. Nil uses a timer.
	// Tests inject a no-op to keep retries instant.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy makes 3 attempts, 3 seconds apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Delay:       3 * time.Second,
	}
}

// NoDelay returns p without any wait between attempts.
func (p RetryPolicy) NoDelay() RetryPolicy {
	p.Delay = 0
	p.Sleep = func(context.Context, time.Duration) error { return nil }
	return p
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func (p RetryPolicy) wait(ctx context.Context) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, p.Delay)
	}
	if p.Delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(p.Delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
