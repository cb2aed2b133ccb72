package container

import "container/heap"

type entry[T any] struct {
	value    T
	priority float64
	seq      uint64 // 相同优先级时按入队顺序出队
}

type entryHeap[T any] []entry[T]

func (h entryHeap[T]) Len() int { return len(h) }

func (h entryHeap[T]) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h entryHeap[T]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap[T]) Push(x any) { *h = append(*h, x.(entry[T])) }

func (h *entryHeap[T]) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// PriorityQueue 最小优先队列
// 说明：Push只追加不调整，批量追加后调用Heapify；HeapPush/HeapPop维护堆序
type PriorityQueue[T any] struct {
	h   entryHeap[T]
	seq uint64
}

func NewPriorityQueue[T any]() *PriorityQueue[T] {
	return &PriorityQueue[T]{}
}

func (q *PriorityQueue[T]) Len() int {
	return len(q.h)
}

// First 优先级最小的元素（队列需已堆化）
func (q *PriorityQueue[T]) First() T {
	return q.h[0].value
}

func (q *PriorityQueue[T]) Push(value T, priority float64) {
	q.h = append(q.h, entry[T]{value: value, priority: priority, seq: q.seq})
	q.seq++
}

func (q *PriorityQueue[T]) Heapify() {
	heap.Init(&q.h)
}

func (q *PriorityQueue[T]) HeapPush(value T, priority float64) {
	heap.Push(&q.h, entry[T]{value: value, priority: priority, seq: q.seq})
	q.seq++
}

func (q *PriorityQueue[T]) HeapPop() (value T, priority float64) {
	e := heap.Pop(&q.h).(entry[T])
	return e.value, e.priority
}
