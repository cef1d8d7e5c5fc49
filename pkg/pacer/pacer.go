package pacer

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"s3ripper/pkg/retry"
)

// Pacer blocks between downloads
type Pacer interface {
	// Wait sleeps for a whole number of seconds in [minSeconds, maxSeconds]
	// and returns the number chosen.
	Wait(ctx context.Context, minSeconds, maxSeconds int) (int, error)
}

// Sleeper blocks for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// Jittered picks each delay uniformly at random
type Jittered struct {
	mu    sync.Mutex
	rng   *rand.Rand
	sleep Sleeper
}

// NewJittered creates a pacer seeded from the clock
func NewJittered() *Jittered {
	return NewJitteredWith(rand.New(rand.NewSource(time.Now().UnixNano())), retry.Wait)
}

// NewJitteredWith creates a pacer with an explicit random source and sleeper
func NewJitteredWith(rng *rand.Rand, sleep Sleeper) *Jittered {
	return &Jittered{rng: rng, sleep: sleep}
}

// Wait sleeps a uniformly random number of seconds. Negative bounds clamp
// to zero and a max below min collapses to min.
func (p *Jittered) Wait(ctx context.Context, minSeconds, maxSeconds int) (int, error) {
	if minSeconds < 0 {
		minSeconds = 0
	}
	if maxSeconds < minSeconds {
		maxSeconds = minSeconds
	}

	p.mu.Lock()
	seconds := minSeconds + p.rng.Intn(maxSeconds-minSeconds+1)
	p.mu.Unlock()

	if err := p.sleep(ctx, time.Duration(seconds)*time.Second); err != nil {
		return seconds, err
	}
	return seconds, nil
}

// Nop never sleeps; it reports the lower bound
type Nop struct{}

func (Nop) Wait(ctx context.Context, minSeconds, maxSeconds int) (int, error) {
	if minSeconds < 0 {
		minSeconds = 0
	}
	return minSeconds, ctx.Err()
}
