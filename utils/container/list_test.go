package container_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/osi-world-sim/utils/container"
)

type span float64

func (s span) Length() float64 {
	return float64(s)
}

type node = container.ListNode[span, string]

func TestListInit(t *testing.T) {
	l := &container.List[span, string]{}
	assert.Nil(t, l.First())
	assert.Nil(t, l.Last())
	assert.Equal(t, 0, l.Len())
}

func TestListLinks(t *testing.T) {
	l := &container.List[span, string]{}
	n1 := &node{S: 1, Value: 2}
	n2 := &node{S: 2}
	n3 := &node{S: 3}
	n4 := &node{S: 4}
	l.PushBack(n1)
	l.PushFront(n2)
	n2.InsertBefore(n3)
	n1.InsertAfter(n4)
	// 3, 2, 1, 4
	assert.Equal(t, []float64{3, 2, 1, 4}, l.Keys())
	assert.Same(t, n3, l.First())
	assert.Same(t, n4, l.Last())
	assert.Same(t, l, n1.Parent())
	assert.Equal(t, 3.0, n1.End())

	unsorted := l.PopUnsorted()
	assert.Len(t, unsorted, 2)
	assert.Equal(t, []float64{3, 4}, l.Keys())

	l.Merge(unsorted)
	assert.Equal(t, []float64{1, 2, 3, 4}, l.Keys())

	l.Remove(n3)
	assert.Nil(t, n3.Parent())
	assert.Equal(t, []float64{1, 2, 4}, l.Keys())
	assert.Panics(t, func() { l.Remove(n3) })
	assert.Panics(t, func() { l.PushBack(n1) })
}

func TestListInsertSorted(t *testing.T) {
	l := &container.List[span, string]{}
	for _, n := range []*node{{S: 5, Extra: "a"}, {S: 1, Extra: "b"}, {S: 5, Extra: "c"}, {S: 3, Extra: "d"}} {
		l.InsertSorted(n, nil)
	}
	extras := []string{}
	for n := l.First(); n != nil; n = n.Next() {
		extras = append(extras, n.Extra)
	}
	assert.Equal(t, []string{"b", "d", "a", "c"}, extras)

	removed := l.RemoveIf(func(n *node) bool { return n.S == 5 })
	assert.Equal(t, 2, removed)
	assert.Equal(t, 2, l.Len())
	l.Clear()
	assert.Equal(t, 0, l.Len())
	assert.Nil(t, l.Last())
}

type item struct {
	container.IncrementalItemBase
	name string
}

func TestIncrementalArray(t *testing.T) {
	a := container.NewIncrementalArray[*item]()
	x, y, z := &item{name: "x"}, &item{name: "y"}, &item{name: "z"}
	a.Add(x)
	a.Add(y)
	a.Add(z)
	assert.Equal(t, 0, a.Len())
	a.Prepare()
	assert.Equal(t, []*item{x, y, z}, a.Data())

	a.Remove(x)
	a.Prepare()
	assert.Equal(t, []*item{z, y}, a.Data())
	assert.Equal(t, 0, z.Index())
	assert.Equal(t, -1, x.Index())

	// 重复删除和删除不存在的元素都被忽略
	a.Remove(x)
	a.Remove(&item{name: "w"})
	a.Prepare()
	assert.Equal(t, 2, a.Len())

	// 同一轮中新增后又删除的元素不会加入
	w := &item{name: "w"}
	a.Add(w)
	a.Remove(w)
	a.Prepare()
	assert.Equal(t, []*item{z, y}, a.Data())
}

func TestPriorityQueue(t *testing.T) {
	q := container.NewPriorityQueue[string]()
	q.Push("c", 3)
	q.Push("a", 1)
	q.Push("b", 2)
	q.Heapify()
	assert.Equal(t, "a", q.First())
	q.HeapPush("a2", 1)
	v, p := q.HeapPop()
	assert.Equal(t, "a", v)
	assert.Equal(t, 1.0, p)
	v, _ = q.HeapPop()
	assert.Equal(t, "a2", v)
	assert.Equal(t, 2, q.Len())
}

func TestQueueDrainKeepsOrder(t *testing.T) {
	q := &container.Queue[int]{}
	q.Push(1)
	q.Push(2)
	assert.Equal(t, []int{1, 2}, q.Drain())
	assert.Equal(t, 0, q.Len())
}
