package tasks

import (
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scout/internal/common"
)

// runQueue enforces per-user isolation: each user gets a small number of
// concurrently running tasks, and requests beyond the cap wait in FIFO order.
// created_at reflects request time; started_at reflects dispatch time.
type runQueue struct {
	mu      sync.Mutex
	cap     int
	logger  arbor.ILogger
	active  map[string]int
	waiting map[string][]func()
}

func newRunQueue(capPerUser int, logger arbor.ILogger) *runQueue {
	if capPerUser <= 0 {
		capPerUser = 2
	}
	return &runQueue{
		cap:     capPerUser,
		logger:  logger,
		active:  make(map[string]int),
		waiting: make(map[string][]func()),
	}
}

// Submit runs fn on its own goroutine immediately if the user is under the
// cap, otherwise queues it. fn must not block forever; completion dispatches
// the next queued run.
func (q *runQueue) Submit(userID string, fn func()) {
	q.mu.Lock()
	if q.active[userID] < q.cap {
		q.active[userID]++
		q.mu.Unlock()
		common.SafeGo(q.logger, "task-run", func() { q.run(userID, fn) })
		return
	}
	q.waiting[userID] = append(q.waiting[userID], fn)
	q.mu.Unlock()

	q.logger.Debug().
		Str("user_id", userID).
		Int("active", q.ActiveCount(userID)).
		Int("queued", q.QueuedCount(userID)).
		Msg("Task queued behind per-user cap")
}

func (q *runQueue) run(userID string, fn func()) {
	defer q.release(userID)
	fn()
}

func (q *runQueue) release(userID string) {
	q.mu.Lock()
	if queued := q.waiting[userID]; len(queued) > 0 {
		next := queued[0]
		q.waiting[userID] = queued[1:]
		if len(q.waiting[userID]) == 0 {
			delete(q.waiting, userID)
		}
		q.mu.Unlock()
		common.SafeGo(q.logger, "task-run", func() { q.run(userID, next) })
		return
	}

	q.active[userID]--
	if q.active[userID] <= 0 {
		delete(q.active, userID)
	}
	q.mu.Unlock()
}

// ActiveCount reports the user's currently running tasks
func (q *runQueue) ActiveCount(userID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.active[userID]
}

// QueuedCount reports the user's waiting tasks
func (q *runQueue) QueuedCount(userID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiting[userID])
}
