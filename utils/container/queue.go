package container

// Queue 先进先出队列
type Queue[T any] struct {
	items []T
}

func (q *Queue[T]) Push(v T) {
	q.items = append(q.items, v)
}

func (q *Queue[T]) Len() int {
	return len(q.items)
}

// Drain 按入队顺序取出全部元素并清空队列
func (q *Queue[T]) Drain() []T {
	items := q.items
	q.items = nil
	return items
}
