package pacer

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSleeper struct {
	slept []time.Duration
}

func (r *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	r.slept = append(r.slept, d)
	return ctx.Err()
}

func TestWaitFixedBounds(t *testing.T) {
	rec := &recordingSleeper{}
	p := NewJitteredWith(rand.New(rand.NewSource(1)), rec.sleep)

	for i := 0; i < 10; i++ {
		seconds, err := p.Wait(context.Background(), 2, 2)
		require.NoError(t, err)
		assert.Equal(t, 2, seconds)
	}
	for _, d := range rec.slept {
		assert.Equal(t, 2*time.Second, d)
	}
}

func TestWaitRangeCoversBoundsInclusively(t *testing.T) {
	rec := &recordingSleeper{}
	p := NewJitteredWith(rand.New(rand.NewSource(42)), rec.sleep)

	seen := map[int]int{}
	for i := 0; i < 300; i++ {
		seconds, err := p.Wait(context.Background(), 1, 3)
		require.NoError(t, err)
		require.GreaterOrEqual(t, seconds, 1)
		require.LessOrEqual(t, seconds, 3)
		seen[seconds]++
	}

	assert.Len(t, seen, 3)
	for s := 1; s <= 3; s++ {
		assert.Greater(t, seen[s], 50, "value %d drawn too rarely", s)
	}
	assert.Len(t, rec.slept, 300)
}

func TestWaitNormalizesBounds(t *testing.T) {
	rec := &recordingSleeper{}
	p := NewJitteredWith(rand.New(rand.NewSource(7)), rec.sleep)

	seconds, err := p.Wait(context.Background(), 5, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, seconds)

	seconds, err = p.Wait(context.Background(), -3, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, seconds)
}

func TestWaitHonoursCancellation(t *testing.T) {
	p := NewJittered()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := p.Wait(ctx, 30, 30)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNop(t *testing.T) {
	seconds, err := Nop{}.Wait(context.Background(), 4, 9)
	require.NoError(t, err)
	assert.Equal(t, 4, seconds)
}
