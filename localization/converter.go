package localization

import (
	"math"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/tsinghua-fib-lab/osi-world-sim/entity"
	"github.com/tsinghua-fib-lab/osi-world-sim/worlddata"
)

// normalizeAngle 将角度规范到(-π, π]
func normalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

// ElementConverter 单个车道几何单元内的世界坐标到道路坐标转换
// 说明：几何单元由前后两条横向轴（左点到右点）围成，横向轴不平行时交于center
type ElementConverter struct {
	element  *worlddata.LaneGeometryElement
	polygon  []geometry.Point
	center   geometry.Point
	parallel bool
}

// NewElementConverter 创建几何单元转换器
func NewElementConverter(e *worlddata.LaneGeometryElement) *ElementConverter {
	c := &ElementConverter{element: e, polygon: e.Polygon()}
	cur, next := e.Current.Points, e.Next.Points
	center, ok := lineIntersection(cur.Left, cur.Right, next.Left, next.Right)
	c.center, c.parallel = center, !ok
	return c
}

func (c *ElementConverter) Element() *worlddata.LaneGeometryElement {
	return c.element
}

// IsConvertible 点是否落在几何单元内
func (c *ElementConverter) IsConvertible(p geometry.Point) bool {
	return Contains(c.polygon, p)
}

// projectionRatio 点沿横向方向投影到中心线上的位置比例
// 算法说明：
// 1. 横向轴不平行时，以center到p的直线与中心线求交
// 2. 横向轴平行（或p与center重合）时，沿当前横向轴方向投影
func (c *ElementConverter) projectionRatio(p geometry.Point) float64 {
	ref0 := c.element.Current.Points.Reference
	ref1 := c.element.Next.Points.Reference
	rx, ry := ref1.X-ref0.X, ref1.Y-ref0.Y
	var dx, dy float64
	if c.parallel || math.Hypot(p.X-c.center.X, p.Y-c.center.Y) < parallelEpsilon {
		cur := c.element.Current.Points
		dx, dy = cur.Left.X-cur.Right.X, cur.Left.Y-cur.Right.Y
	} else {
		dx, dy = p.X-c.center.X, p.Y-c.center.Y
	}
	denom := cross(rx, ry, dx, dy)
	if math.Abs(denom) < parallelEpsilon {
		return 0
	}
	u := cross(p.X-ref0.X, p.Y-ref0.Y, dx, dy) / denom
	return math.Max(0, math.Min(1, u))
}

// S 点在道路坐标系下的s
func (c *ElementConverter) S(p geometry.Point) float64 {
	u := c.projectionRatio(p)
	return c.element.Current.SOffset + u*(c.element.Next.SOffset-c.element.Current.SOffset)
}

// T 点相对车道中心线的横向偏移，左正右负
func (c *ElementConverter) T(p geometry.Point) float64 {
	u := c.projectionRatio(p)
	ref0 := c.element.Current.Points.Reference
	ref1 := c.element.Next.Points.Reference
	foot := geometry.Blend(ref0, ref1, u)
	t := math.Hypot(p.X-foot.X, p.Y-foot.Y)
	if cross(ref1.X-ref0.X, ref1.Y-ref0.Y, p.X-foot.X, p.Y-foot.Y) < 0 {
		t = -t
	}
	return t
}

// Yaw 相对参考线切向的航向角
func (c *ElementConverter) Yaw(p geometry.Point, hdg float64) float64 {
	u := c.projectionRatio(p)
	h0 := c.element.Current.SHdg
	dh := normalizeAngle(c.element.Next.SHdg - h0)
	return normalizeAngle(hdg - (h0 + u*dh))
}

// RoadCoordinate 世界坐标转道路坐标
func (c *ElementConverter) RoadCoordinate(p geometry.Point, hdg float64) entity.RoadCoordinate {
	return entity.RoadCoordinate{S: c.S(p), T: c.T(p), Yaw: c.Yaw(p, hdg)}
}

// GlobalRoadPosition 带道路与车道ID的道路坐标
func (c *ElementConverter) GlobalRoadPosition(p geometry.Point, hdg float64) entity.GlobalRoadPosition {
	lane := c.element.Lane()
	return entity.GlobalRoadPosition{
		RoadId:       lane.Road().OdId(),
		LaneId:       lane.OdId(),
		RoadPosition: c.RoadCoordinate(p, hdg),
	}
}
