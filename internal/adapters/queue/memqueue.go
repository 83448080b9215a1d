package queue

import (
	"sync"

	"github.com/aidamian/local-guard/internal/ports"
)

// MemQueue is a bounded in-memory payload queue that preserves FIFO ordering.
// Payloads buffered here are lost on process exit; only delivery receipts are
// persisted elsewhere.
type MemQueue struct {
	mu   sync.Mutex
	data []ports.PayloadJob
	cap  int
}

func NewMemQueue(capacity int) *MemQueue {
	return &MemQueue{
		data: make([]ports.PayloadJob, 0, capacity),
		cap:  capacity,
	}
}

// Enqueue appends a job, refusing when the buffer is full so the caller can
// count the drop instead of blocking the capture worker.
func (q *MemQueue) Enqueue(job ports.PayloadJob) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.data) >= q.cap {
		return false
	}
	q.data = append(q.data, job)
	return true
}

func (q *MemQueue) Dequeue() (ports.PayloadJob, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.data) == 0 {
		return ports.PayloadJob{}, false
	}
	job := q.data[0]
	q.data = append(q.data[:0], q.data[1:]...)
	return job, true
}

func (q *MemQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.data)
}

var _ ports.PayloadQueue = (*MemQueue)(nil)
