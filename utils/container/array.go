package container

import "sync"

// IIncrementalItem 记录自身在IncrementalArray中下标的元素
type IIncrementalItem interface {
	Index() int
	SetIndex(index int)
}

// IncrementalItemBase 可嵌入的下标字段
type IncrementalItemBase struct {
	index int
}

func (b *IncrementalItemBase) Index() int {
	return b.index
}

func (b *IncrementalItemBase) SetIndex(index int) {
	b.index = index
}

// IncrementalArray 增删延迟生效的数组
// 功能：Add/Remove只记录请求（可并发调用），Prepare时统一生效
// 说明：删除通过末尾元素填补空位实现，元素下标随之更新；新增元素按Add顺序追加在末尾
type IncrementalArray[T IIncrementalItem] struct {
	data   []T
	add    []T
	remove []T
	mtx    sync.Mutex
}

func NewIncrementalArray[T IIncrementalItem]() *IncrementalArray[T] {
	return &IncrementalArray[T]{}
}

func (a *IncrementalArray[T]) Len() int {
	return len(a.data)
}

// Data 已生效的元素
func (a *IncrementalArray[T]) Data() []T {
	return a.data
}

func (a *IncrementalArray[T]) Add(value T) {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	a.add = append(a.add, value)
}

func (a *IncrementalArray[T]) Remove(value T) {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	a.remove = append(a.remove, value)
}

// Prepare 先删除后新增，同一轮中先新增后删除的元素不会加入
func (a *IncrementalArray[T]) Prepare() {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	removed := make(map[any]struct{}, len(a.remove))
	for _, x := range a.remove {
		removed[any(x)] = struct{}{}
		ind := x.Index()
		if ind < 0 || ind >= len(a.data) || any(a.data[ind]) != any(x) {
			continue
		}
		last := len(a.data) - 1
		a.data[ind] = a.data[last]
		a.data[ind].SetIndex(ind)
		a.data = a.data[:last]
		x.SetIndex(-1)
	}
	for _, x := range a.add {
		if _, ok := removed[any(x)]; ok {
			continue
		}
		x.SetIndex(len(a.data))
		a.data = append(a.data, x)
	}
	a.add = a.add[:0]
	a.remove = a.remove[:0]
}
