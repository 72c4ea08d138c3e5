package netid

import "sync"

// workQueue is the Prober's single-reader queue of peers awaiting a probe
// volley (spec §5: "workQueue is bounded by |peers|; duplicates are
// suppressed"). Enqueue is a no-op for a peer already queued or currently
// being processed.
type workQueue struct {
	mu         sync.Mutex
	items      []string
	queued     map[string]struct{}
	processing string // "" when no probe is in flight
	capacity   int
}

func newWorkQueue(capacity int) *workQueue {
	return &workQueue{
		queued:   make(map[string]struct{}),
		capacity: capacity,
	}
}

// Enqueue appends peer if it is not already queued or in flight, and the
// queue has not reached capacity. Returns false if dropped.
func (q *workQueue) Enqueue(peer string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if peer == q.processing {
		return false
	}
	if _, ok := q.queued[peer]; ok {
		return false
	}
	if len(q.items) >= q.capacity {
		return false
	}
	q.items = append(q.items, peer)
	q.queued[peer] = struct{}{}
	return true
}

// Pop removes and returns the head of the queue, marking it as processing.
// Returns ok=false if the queue is empty or a probe is already processing.
func (q *workQueue) Pop() (peer string, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.processing != "" {
		return "", false
	}
	if len(q.items) == 0 {
		return "", false
	}
	peer = q.items[0]
	q.items = q.items[1:]
	delete(q.queued, peer)
	q.processing = peer
	return peer, true
}

// Remove drops peer from the pending queue (not from "processing", which
// Finish clears). The Prober's disconnect path purges the queue through
// IsProcessing instead.
func (q *workQueue) Remove(peer string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.queued[peer]; !ok {
		return
	}
	delete(q.queued, peer)
	for i, p := range q.items {
		if p == peer {
			q.items = append(q.items[:i], q.items[i+1:]...)
			break
		}
	}
}

// IsProcessing reports whether peer is the one currently being probed, and
// removes it from the pending queue in the same locked section — mirrors
// forgetPingRecords' workQueue critical section, which checks `processing`
// and removes from the queue under a single lock acquisition.
func (q *workQueue) IsProcessing(peer string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.queued, peer)
	for i, p := range q.items {
		if p == peer {
			q.items = append(q.items[:i], q.items[i+1:]...)
			break
		}
	}
	return q.processing == peer
}

// Finish clears the processing sentinel, allowing the next Pop to proceed.
func (q *workQueue) Finish() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.processing = ""
}

// Len reports the number of pending (not-yet-processing) entries.
func (q *workQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Refill replaces the pending queue wholesale with peers, skipping whatever
// is currently processing and de-duplicating. Used when the queue empties
// and the Prober seeds it from the current connected set.
func (q *workQueue) Refill(peers []string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = q.items[:0]
	q.queued = make(map[string]struct{}, len(peers))
	for _, p := range peers {
		if p == q.processing {
			continue
		}
		if _, ok := q.queued[p]; ok {
			continue
		}
		q.items = append(q.items, p)
		q.queued[p] = struct{}{}
	}
}
