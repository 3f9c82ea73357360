package webhook

import (
	"container/list"
	"sync"
)

// dispatcher preserves per-submitter arrival order. Tasks for one submitter
// run strictly FIFO on a single worker goroutine, so a text answer can never
// overtake the image it follows even when the image's media download is slow.
// Different submitters drain independently.
type dispatcher struct {
	mu     sync.Mutex
	queues map[string]*list.List
}

func newDispatcher() *dispatcher {
	return &dispatcher{queues: make(map[string]*list.List)}
}

// enqueue appends the task to the submitter's queue, starting a worker when
// none is draining it.
func (d *dispatcher) enqueue(submitterID string, task func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	q, ok := d.queues[submitterID]
	if !ok {
		q = list.New()
		d.queues[submitterID] = q
	}
	q.PushBack(task)
	if !ok {
		go d.drain(submitterID, q)
	}
}

// drain runs the submitter's tasks in order. The empty check and the map
// removal happen atomically, so a task enqueued while the last one runs is
// either picked up here or gets a fresh worker, never lost.
func (d *dispatcher) drain(submitterID string, q *list.List) {
	for {
		d.mu.Lock()
		front := q.Front()
		if front == nil {
			delete(d.queues, submitterID)
			d.mu.Unlock()
			return
		}
		q.Remove(front)
		d.mu.Unlock()

		front.Value.(func())()
	}
}
