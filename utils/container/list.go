package container

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

// IHasLength 能够占据一段纵向距离的元素
type IHasLength interface {
	Length() float64
}

// ListNode 有序双向链表节点
// 功能：S为排序键（如车道上的纵向坐标），Value为元素，Extra为附加信息
type ListNode[T IHasLength, E any] struct {
	parent     *List[T, E]
	prev, next *ListNode[T, E]
	S          float64
	Value      T
	Extra      E
}

func (n *ListNode[T, E]) String() string {
	return fmt.Sprintf("Node{S:%v, Value:%+v, Extra:%+v}", n.S, n.Value, n.Extra)
}

func (n *ListNode[T, E]) Prev() *ListNode[T, E] {
	return n.prev
}

func (n *ListNode[T, E]) Next() *ListNode[T, E] {
	return n.next
}

// Parent 节点所在链表，不在任何链表中时为nil
func (n *ListNode[T, E]) Parent() *List[T, E] {
	return n.parent
}

// End 节点覆盖范围的终点 S + Length
func (n *ListNode[T, E]) End() float64 {
	return n.S + n.Value.Length()
}

func (n *ListNode[T, E]) attach(l *List[T, E], prev, next *ListNode[T, E]) {
	if n.parent != nil {
		logrus.Panicf("container: node %v is already in list %v", n, n.parent)
	}
	n.parent = l
	n.prev, n.next = prev, next
	if prev != nil {
		prev.next = n
	} else {
		l.head = n
	}
	if next != nil {
		next.prev = n
	} else {
		l.tail = n
	}
	l.length++
}

// InsertBefore 在n之前插入add
func (n *ListNode[T, E]) InsertBefore(add *ListNode[T, E]) {
	add.attach(n.parent, n.prev, n)
}

// InsertAfter 在n之后插入add
func (n *ListNode[T, E]) InsertAfter(add *ListNode[T, E]) {
	add.attach(n.parent, n, n.next)
}

// List 按S有序的双向链表
// 说明：链表本身不强制有序，由InsertSorted/Merge维护顺序，PopUnsorted取出失序节点
type List[T IHasLength, E any] struct {
	ID         string
	head, tail *ListNode[T, E]
	length     int
}

func (l *List[T, E]) String() string {
	return fmt.Sprintf("List{ID:%v, Len:%d}", l.ID, l.length)
}

func (l *List[T, E]) Len() int {
	return l.length
}

func (l *List[T, E]) First() *ListNode[T, E] {
	return l.head
}

func (l *List[T, E]) Last() *ListNode[T, E] {
	return l.tail
}

// Keys 全部节点的S
func (l *List[T, E]) Keys() []float64 {
	keys := make([]float64, 0, l.length)
	for node := l.head; node != nil; node = node.next {
		keys = append(keys, node.S)
	}
	return keys
}

// Values 全部节点的元素
func (l *List[T, E]) Values() []T {
	values := make([]T, 0, l.length)
	for node := l.head; node != nil; node = node.next {
		values = append(values, node.Value)
	}
	return values
}

// Nodes 从头到尾的节点快照，遍历期间可以安全地修改链表
func (l *List[T, E]) Nodes() []*ListNode[T, E] {
	nodes := make([]*ListNode[T, E], 0, l.length)
	for node := l.head; node != nil; node = node.next {
		nodes = append(nodes, node)
	}
	return nodes
}

func (l *List[T, E]) PushFront(add *ListNode[T, E]) {
	add.attach(l, nil, l.head)
}

func (l *List[T, E]) PushBack(add *ListNode[T, E]) {
	add.attach(l, l.tail, nil)
}

// InsertSorted 将add插入到第一个满足less(add, node)的节点之前
// less为nil时按S升序，键相同的节点保持插入顺序
func (l *List[T, E]) InsertSorted(add *ListNode[T, E], less func(a, b *ListNode[T, E]) bool) {
	if less == nil {
		less = func(a, b *ListNode[T, E]) bool { return a.S < b.S }
	}
	for node := l.head; node != nil; node = node.next {
		if less(add, node) {
			node.InsertBefore(add)
			return
		}
	}
	l.PushBack(add)
}

// Remove 从链表中删除节点
func (l *List[T, E]) Remove(node *ListNode[T, E]) {
	if node.parent != l {
		logrus.Panicf("container: remove node %v from wrong list %v", node, l)
	}
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		l.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		l.tail = node.prev
	}
	node.prev, node.next, node.parent = nil, nil, nil
	l.length--
}

// RemoveIf 删除所有满足条件的节点，返回删除数量
func (l *List[T, E]) RemoveIf(pred func(*ListNode[T, E]) bool) int {
	count := 0
	for node := l.head; node != nil; {
		next := node.next
		if pred(node) {
			l.Remove(node)
			count++
		}
		node = next
	}
	return count
}

// Clear 清空链表
func (l *List[T, E]) Clear() {
	l.RemoveIf(func(*ListNode[T, E]) bool { return true })
}

// PopUnsorted 取出S小于前驱的节点，剩余节点保持升序
func (l *List[T, E]) PopUnsorted() (unsorted []*ListNode[T, E]) {
	for node := l.head; node != nil; {
		next := node.next
		if node.prev != nil && node.prev.S > node.S {
			l.Remove(node)
			unsorted = append(unsorted, node)
		}
		node = next
	}
	return unsorted
}

// Merge 将一批节点按S归并进有序链表
func (l *List[T, E]) Merge(adds []*ListNode[T, E]) {
	sort.SliceStable(adds, func(i, j int) bool { return adds[i].S < adds[j].S })
	node := l.head
	for _, add := range adds {
		for node != nil && node.S <= add.S {
			node = node.next
		}
		if node != nil {
			node.InsertBefore(add)
		} else {
			l.PushBack(add)
		}
	}
}
