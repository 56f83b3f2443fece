package cmdqueue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerRunsCmdsInDeadlineOrder(t *testing.T) {
	s := New(nil, time.Minute)
	var mu sync.Mutex
	var order []int

	base := time.Now().Add(20 * time.Millisecond)
	for i, delay := range []time.Duration{30, 10, 20} {
		i, delay := i, delay
		s.SubmitWithDeadline(Func(func(ctx context.Context) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		}), base.Add(delay*time.Millisecond), PriorityNormal)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	done := make(chan struct{})
	go func() { s.Run(ctx); close(done) }()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 3
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2, 0}, order)
}

func TestSchedulerDiscardsExpiredCmdAndCountsIt(t *testing.T) {
	s := New(nil, time.Minute)
	ran := false
	s.SubmitWithDeadline(Func(func(ctx context.Context) error {
		ran = true
		return nil
	}), time.Now().Add(-time.Second), PriorityNormal)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	s.Run(ctx)

	assert.False(t, ran)
	assert.Equal(t, int64(1), s.ExpiredCount.Load())
}

func TestCmdFollowOnIsEnqueued(t *testing.T) {
	s := New(nil, time.Minute)
	var mu sync.Mutex
	count := 0

	// chain produces a cmd that, each time it runs, enqueues one more link
	// until n reaches 1, exercising Run's "atomically enqueue follow-on
	// cmds from the same tick" behavior.
	var chain func(n int) Cmd
	chain = func(n int) Cmd {
		return cmdFunc(func(ctx context.Context) ([]Cmd, error) {
			mu.Lock()
			count++
			mu.Unlock()
			if n <= 1 {
				return nil, nil
			}
			return []Cmd{chain(n - 1)}, nil
		})
	}
	s.Submit(chain(3))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	s.Run(ctx)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, count)
}

type cmdFunc func(ctx context.Context) ([]Cmd, error)

func (f cmdFunc) Run(ctx context.Context) ([]Cmd, error) { return f(ctx) }
