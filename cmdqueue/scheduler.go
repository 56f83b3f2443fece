package cmdqueue

import (
	"container/heap"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/elderlink/corenet/corelog"
)

// entry is one scheduled cmd, ordered by (deadline, priority, sequence).
type entry struct {
	cmd      Cmd
	deadline time.Time
	priority Priority
	seq      uint64
	index    int
}

// entryHeap implements container/heap.Interface over entries.
type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	if !h[i].deadline.Equal(h[j].deadline) {
		return h[i].deadline.Before(h[j].deadline)
	}
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].seq < h[j].seq
}
func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *entryHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Scheduler is a single-threaded priority cmd queue. One instance backs one
// logical role (NetworkKnowledge's owner, or one Elder-role consensus
// instance); Submit may be called from any goroutine, but Run drains the
// queue on a single goroutine, giving every Cmd a consistent single-writer
// view of whatever state it closes over.
type Scheduler struct {
	mu         sync.Mutex
	heap       entryHeap
	notify     chan struct{}
	nextSeq    uint64
	defaultTTL time.Duration
	log        *corelog.Logger

	// ExpiredCount tracks cmds discarded because their deadline passed
	// before the scheduler reached them.
	ExpiredCount atomic.Int64
}

// New builds a Scheduler. defaultTTL is the deadline given to a follow-on
// cmd that does not specify one of its own (via SubmitWithDeadline).
func New(log *corelog.Logger, defaultTTL time.Duration) *Scheduler {
	if log == nil {
		log = corelog.Nop()
	}
	if defaultTTL <= 0 {
		defaultTTL = 30 * time.Second
	}
	return &Scheduler{
		notify:     make(chan struct{}, 1),
		defaultTTL: defaultTTL,
		log:        log,
	}
}

// Submit enqueues cmd with the default TTL and normal priority.
func (s *Scheduler) Submit(cmd Cmd) {
	s.SubmitWithDeadline(cmd, time.Now().Add(s.defaultTTL), PriorityNormal)
}

// SubmitWithDeadline enqueues cmd with an explicit deadline and priority.
func (s *Scheduler) SubmitWithDeadline(cmd Cmd, deadline time.Time, priority Priority) {
	s.mu.Lock()
	s.nextSeq++
	heap.Push(&s.heap, &entry{cmd: cmd, deadline: deadline, priority: priority, seq: s.nextSeq})
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Len reports the number of cmds currently queued.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.heap.Len()
}

// Run drains the queue until ctx is cancelled. It never retries a failed
// cmd; a cmd's own Run result decides what, if anything, gets resubmitted.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		s.mu.Lock()
		if s.heap.Len() == 0 {
			s.mu.Unlock()
			select {
			case <-ctx.Done():
				return
			case <-s.notify:
				continue
			}
		}
		next := s.heap[0]
		wait := time.Until(next.deadline)
		if wait > 0 {
			s.mu.Unlock()
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-s.notify:
				timer.Stop()
				continue
			case <-timer.C:
			}
			s.mu.Lock()
		}
		if s.heap.Len() == 0 {
			s.mu.Unlock()
			continue
		}
		e := heap.Pop(&s.heap).(*entry)
		s.mu.Unlock()

		if time.Now().After(e.deadline) {
			s.ExpiredCount.Add(1)
			s.log.Warn("cmd expired before execution", corelog.Int("priority", int(e.priority)))
			continue
		}

		cmdCtx, cancel := context.WithDeadline(ctx, e.deadline)
		follow, err := e.cmd.Run(cmdCtx)
		cancel()
		if err != nil {
			s.log.Warn("cmd returned error", corelog.Err(err))
		}
		for _, f := range follow {
			s.Submit(f)
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}
