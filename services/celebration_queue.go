package services

import (
	"sync"

	"sipHappensAPI/internal/achievement"
)

// celebrationQueue holds per-user FIFO queues of freshly unlocked
// achievements awaiting UI celebration. The client shows one at a time and
// dismisses explicitly; nothing is deduplicated against past dismissals.
// In-process state only, same as the rate limiter's visitor map.
type celebrationQueue struct {
	mu      sync.Mutex
	pending map[string][]*achievement.Achievement
}

func newCelebrationQueue() *celebrationQueue {
	return &celebrationQueue{
		pending: make(map[string][]*achievement.Achievement),
	}
}

func (q *celebrationQueue) Enqueue(clerkID string, unlocks []*achievement.Achievement) {
	if len(unlocks) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending[clerkID] = append(q.pending[clerkID], unlocks...)
}

// Peek returns the oldest queued unlock without removing it, or nil.
func (q *celebrationQueue) Peek(clerkID string) *achievement.Achievement {
	q.mu.Lock()
	defer q.mu.Unlock()
	queue := q.pending[clerkID]
	if len(queue) == 0 {
		return nil
	}
	return queue[0]
}

// Dismiss drops the oldest queued unlock, advancing the queue.
func (q *celebrationQueue) Dismiss(clerkID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	queue := q.pending[clerkID]
	if len(queue) == 0 {
		return
	}
	if len(queue) == 1 {
		delete(q.pending, clerkID)
		return
	}
	q.pending[clerkID] = queue[1:]
}
