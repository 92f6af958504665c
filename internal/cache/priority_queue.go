package cache

import (
	"container/heap"
	"sync"
)

type queuedJob struct {
	job   WarmupJob
	seq   uint64
	index int
}

type jobHeap []*queuedJob

func (h jobHeap) Len() int { return len(h) }

// Higher priority first; equal priorities in arrival order.
func (h jobHeap) Less(i, j int) bool {
	if h[i].job.Priority != h[j].job.Priority {
		return h[i].job.Priority > h[j].job.Priority
	}
	return h[i].seq < h[j].seq
}

func (h jobHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *jobHeap) Push(x interface{}) {
	item := x.(*queuedJob)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *jobHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

// PriorityQueue holds at most one pending job per key. Pushing a key that is
// already queued replaces the job and keeps the higher priority.
type PriorityQueue struct {
	mu    sync.Mutex
	items jobHeap
	byKey map[string]*queuedJob
	seq   uint64
}

func NewPriorityQueue() *PriorityQueue {
	return &PriorityQueue{byKey: make(map[string]*queuedJob)}
}

func (pq *PriorityQueue) Push(job WarmupJob) {
	pq.mu.Lock()
	defer pq.mu.Unlock()

	if existing, ok := pq.byKey[job.Key]; ok {
		if existing.job.Priority > job.Priority {
			job.Priority = existing.job.Priority
		}
		existing.job = job
		heap.Fix(&pq.items, existing.index)
		return
	}

	pq.seq++
	item := &queuedJob{job: job, seq: pq.seq}
	heap.Push(&pq.items, item)
	pq.byKey[job.Key] = item
}

func (pq *PriorityQueue) Pop() (WarmupJob, bool) {
	pq.mu.Lock()
	defer pq.mu.Unlock()

	if len(pq.items) == 0 {
		return WarmupJob{}, false
	}
	item := heap.Pop(&pq.items).(*queuedJob)
	delete(pq.byKey, item.job.Key)
	return item.job, true
}

func (pq *PriorityQueue) Len() int {
	pq.mu.Lock()
	defer pq.mu.Unlock()
	return len(pq.items)
}
