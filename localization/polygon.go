package localization

import (
	"math"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

const parallelEpsilon = 1e-12

func toOrb(p geometry.Point) orb.Point {
	return orb.Point{p.X, p.Y}
}

func fromOrb(p orb.Point) geometry.Point {
	return geometry.Point{X: p[0], Y: p[1]}
}

// ToRing 转为闭合的orb.Ring
func ToRing(polygon []geometry.Point) orb.Ring {
	ring := make(orb.Ring, 0, len(polygon)+1)
	for _, p := range polygon {
		ring = append(ring, toOrb(p))
	}
	if len(ring) > 0 && !ring.Closed() {
		ring = append(ring, ring[0])
	}
	return ring
}

// Bound 多边形的轴对齐包围盒
func Bound(polygon []geometry.Point) orb.Bound {
	return ToRing(polygon).Bound()
}

// Contains 点是否在多边形内（含边界）
func Contains(polygon []geometry.Point, p geometry.Point) bool {
	if len(polygon) < 3 {
		return false
	}
	return planar.RingContains(ToRing(polygon), toOrb(p))
}

// Area 多边形面积（非负）
func Area(polygon []geometry.Point) float64 {
	if len(polygon) < 3 {
		return 0
	}
	return math.Abs(planar.Area(ToRing(polygon)))
}

// Centroid 多边形形心
func Centroid(polygon []geometry.Point) geometry.Point {
	c, _ := planar.CentroidArea(ToRing(polygon))
	return fromOrb(c)
}

// Intersect 计算subject与凸多边形clipper的交集
// 功能：Sutherland-Hodgman裁剪，clipper的顶点顺序不限
// 参数：subject-被裁剪多边形，clipper-凸多边形
// 返回：交集多边形的顶点（不闭合），不足3个点时返回nil
func Intersect(subject, clipper []geometry.Point) []geometry.Point {
	if len(subject) < 3 || len(clipper) < 3 {
		return nil
	}
	ring := ToRing(clipper)
	switch ring.Orientation() {
	case 0:
		return nil
	case orb.CW:
		ring = ring.Clone()
		ring.Reverse()
	}
	edges := ring[:len(ring)-1]

	output := make([]geometry.Point, len(subject))
	copy(output, subject)
	for i := range edges {
		if len(output) == 0 {
			return nil
		}
		edgeStart := fromOrb(edges[i])
		edgeEnd := fromOrb(edges[(i+1)%len(edges)])
		input := output
		output = make([]geometry.Point, 0, len(input)+1)
		for j := range input {
			current := input[j]
			next := input[(j+1)%len(input)]
			curInside := isInsideEdge(current, edgeStart, edgeEnd)
			nextInside := isInsideEdge(next, edgeStart, edgeEnd)
			switch {
			case curInside && nextInside:
				output = append(output, next)
			case curInside && !nextInside:
				if ix, ok := lineIntersection(current, next, edgeStart, edgeEnd); ok {
					output = append(output, ix)
				}
			case !curInside && nextInside:
				if ix, ok := lineIntersection(current, next, edgeStart, edgeEnd); ok {
					output = append(output, ix)
				}
				output = append(output, next)
			}
		}
	}
	if len(output) < 3 {
		return nil
	}
	return output
}

func cross(ax, ay, bx, by float64) float64 {
	return ax*by - ay*bx
}

// isInsideEdge 点在逆时针边的左侧（含边上）
func isInsideEdge(p, a, b geometry.Point) bool {
	return cross(b.X-a.X, b.Y-a.Y, p.X-a.X, p.Y-a.Y) >= 0
}

// lineIntersection 线段p1p2所在直线与直线ab的交点
func lineIntersection(p1, p2, a, b geometry.Point) (geometry.Point, bool) {
	rx, ry := p2.X-p1.X, p2.Y-p1.Y
	qx, qy := b.X-a.X, b.Y-a.Y
	denom := cross(rx, ry, qx, qy)
	if math.Abs(denom) < parallelEpsilon {
		return geometry.Point{}, false
	}
	u := cross(a.X-p1.X, a.Y-p1.Y, qx, qy) / denom
	return geometry.Point{X: p1.X + u*rx, Y: p1.Y + u*ry}, true
}

// GetBoundingBox 计算对象在世界坐标系下的矩形包围盒
// 参数：x、y-参考点位置，length、width-尺寸，rotation-航向角，
// center-参考点到前缘的距离
// 返回：逆时针顺序的四个角点：后右、前右、前左、后左
func GetBoundingBox(x, y, length, width, rotation, center float64) []geometry.Point {
	halfWidth := width / 2
	local := [4][2]float64{
		{center - length, -halfWidth},
		{center, -halfWidth},
		{center, halfWidth},
		{center - length, halfWidth},
	}
	sin, cos := math.Sincos(rotation)
	box := make([]geometry.Point, 0, 4)
	for _, p := range local {
		box = append(box, geometry.Point{
			X: x + p[0]*cos - p[1]*sin,
			Y: y + p[0]*sin + p[1]*cos,
		})
	}
	return box
}
