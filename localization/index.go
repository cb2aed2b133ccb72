package localization

import (
	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/tsinghua-fib-lab/osi-world-sim/worlddata"
)

const (
	treeMinChildren = 4
	treeMaxChildren = 8
	boundPadding    = 1e-6
)

// indexedElement R树中的车道几何单元
type indexedElement struct {
	converter *ElementConverter
	rect      rtreego.Rect
}

func (e *indexedElement) Bounds() rtreego.Rect {
	return e.rect
}

func rectFromBound(b orb.Bound) rtreego.Rect {
	b = b.Pad(boundPadding)
	rect, err := rtreego.NewRectFromPoints(
		rtreego.Point{b.Min[0], b.Min[1]},
		rtreego.Point{b.Max[0], b.Max[1]},
	)
	if err != nil {
		log.Panicf("invalid bound %v: %v", b, err)
	}
	return rect
}

// elementIndex 车道几何单元的空间索引
type elementIndex struct {
	tree *rtreego.Rtree
	size int
}

func newElementIndex(lanes []*worlddata.Lane) *elementIndex {
	objs := make([]rtreego.Spatial, 0)
	for _, lane := range lanes {
		for _, e := range lane.Elements() {
			c := NewElementConverter(e)
			objs = append(objs, &indexedElement{converter: c, rect: rectFromBound(Bound(c.polygon))})
		}
	}
	tree := rtreego.NewTree(2, treeMinChildren, treeMaxChildren)
	for _, o := range objs {
		tree.Insert(o)
	}
	return &elementIndex{tree: tree, size: len(objs)}
}

// search 包围盒与b相交的几何单元
func (idx *elementIndex) search(b orb.Bound) []*indexedElement {
	found := idx.tree.SearchIntersect(rectFromBound(b))
	res := make([]*indexedElement, 0, len(found))
	for _, f := range found {
		res = append(res, f.(*indexedElement))
	}
	return res
}
