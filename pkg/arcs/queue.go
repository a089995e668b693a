package arcs

import "sync"

// Queue hands arcs from the ingestion goroutine to the render loop.
type Queue struct {
	mu    sync.Mutex
	items []Arc
}

func (q *Queue) Push(arcs ...Arc) {
	if len(arcs) == 0 {
		return
	}
	q.mu.Lock()
	q.items = append(q.items, arcs...)
	q.mu.Unlock()
}

// Drain removes and returns everything queued so far, oldest first.
func (q *Queue) Drain() []Arc {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
