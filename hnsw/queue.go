package hnsw

import "container/heap"

// Compile time check to ensure itemHeap satisfies the heap interface.
var _ heap.Interface = (*itemHeap)(nil)

// queueItem is an element of the search priority queues.
type queueItem struct {
	node     uint32
	distance float64
}

type itemHeap struct {
	// max orders the heap descending by distance (worst result on top);
	// otherwise ascending (closest candidate on top).
	max   bool
	items []queueItem
}

func (h *itemHeap) Len() int { return len(h.items) }

func (h *itemHeap) Less(i, j int) bool {
	if h.max {
		return h.items[i].distance > h.items[j].distance
	}

	return h.items[i].distance < h.items[j].distance
}

func (h *itemHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *itemHeap) Push(x any) {
	h.items = append(h.items, x.(queueItem))
}

func (h *itemHeap) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]

	return item
}

// priorityQueue is a thin wrapper keeping heap mechanics out of the search
// loops.
type priorityQueue struct {
	h itemHeap
}

func newPriorityQueue(max bool) *priorityQueue {
	return &priorityQueue{h: itemHeap{max: max}}
}

func (pq *priorityQueue) len() int { return len(pq.h.items) }

func (pq *priorityQueue) push(node uint32, distance float64) {
	heap.Push(&pq.h, queueItem{node: node, distance: distance})
}

func (pq *priorityQueue) pop() queueItem {
	return heap.Pop(&pq.h).(queueItem)
}

func (pq *priorityQueue) top() queueItem {
	return pq.h.items[0]
}
