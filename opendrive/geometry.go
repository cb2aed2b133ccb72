package opendrive

import (
	"math"

	"git.fiblab.net/general/common/v2/geometry"
)

// GeometryType 参考线几何类型
type GeometryType string

const (
	GeometryLine   GeometryType = "line"
	GeometryArc    GeometryType = "arc"
	GeometrySpiral GeometryType = "spiral"
)

// 螺旋线数值积分的最大步长
const spiralIntegrationStep = 0.5

// Geometry 参考线上的一段平面几何
type Geometry struct {
	S         float64      `yaml:"s" bson:"s"`
	X         float64      `yaml:"x" bson:"x"`
	Y         float64      `yaml:"y" bson:"y"`
	Hdg       float64      `yaml:"hdg" bson:"hdg"`
	Length    float64      `yaml:"length" bson:"length"`
	Type      GeometryType `yaml:"type" bson:"type"`
	Curvature float64      `yaml:"curvature,omitempty" bson:"curvature,omitempty"`   // arc
	CurvStart float64      `yaml:"curv_start,omitempty" bson:"curv_start,omitempty"` // spiral
	CurvEnd   float64      `yaml:"curv_end,omitempty" bson:"curv_end,omitempty"`     // spiral
}

// Dir 距几何起点ds处的参考线航向角
func (g *Geometry) Dir(ds float64) float64 {
	switch g.Type {
	case GeometryArc:
		return g.Hdg + g.Curvature*ds
	case GeometrySpiral:
		return g.Hdg + g.spiralHeadingDelta(ds)
	}
	return g.Hdg
}

// CurvatureAt 距几何起点ds处的曲率
func (g *Geometry) CurvatureAt(ds float64) float64 {
	switch g.Type {
	case GeometryArc:
		return g.Curvature
	case GeometrySpiral:
		if g.Length <= 0 {
			return g.CurvStart
		}
		return g.CurvStart + (g.CurvEnd-g.CurvStart)*ds/g.Length
	}
	return 0
}

// Coord 计算参考线坐标(ds, t)对应的世界坐标
// 功能：先求参考线上ds处的点，再沿法向（左正）偏移t
// 参数：ds-距几何起点的纵向距离，t-横向偏移
// 返回：世界坐标点
func (g *Geometry) Coord(ds, t float64) geometry.Point {
	x, y := g.reference(ds)
	hdg := g.Dir(ds)
	return geometry.Point{
		X: x - t*math.Sin(hdg),
		Y: y + t*math.Cos(hdg),
	}
}

func (g *Geometry) reference(ds float64) (float64, float64) {
	switch g.Type {
	case GeometryArc:
		if g.Curvature == 0 {
			break
		}
		r := 1 / g.Curvature
		// 圆心在起点左侧r处
		cx := g.X - r*math.Sin(g.Hdg)
		cy := g.Y + r*math.Cos(g.Hdg)
		hdg := g.Hdg + g.Curvature*ds
		return cx + r*math.Sin(hdg), cy - r*math.Cos(hdg)
	case GeometrySpiral:
		return g.spiralReference(ds)
	}
	return g.X + ds*math.Cos(g.Hdg), g.Y + ds*math.Sin(g.Hdg)
}

func (g *Geometry) spiralHeadingDelta(ds float64) float64 {
	if g.Length <= 0 {
		return g.CurvStart * ds
	}
	dk := (g.CurvEnd - g.CurvStart) / g.Length
	return g.CurvStart*ds + 0.5*dk*ds*ds
}

// spiralReference Simpson积分求螺旋线上的点
func (g *Geometry) spiralReference(ds float64) (float64, float64) {
	if ds <= 0 {
		return g.X, g.Y
	}
	n := 2 * int(math.Ceil(ds/spiralIntegrationStep/2))
	if n < 2 {
		n = 2
	}
	h := ds / float64(n)
	var sx, sy float64
	for i := 0; i <= n; i++ {
		w := 2.0
		switch {
		case i == 0 || i == n:
			w = 1
		case i%2 == 1:
			w = 4
		}
		hdg := g.Hdg + g.spiralHeadingDelta(float64(i)*h)
		sx += w * math.Cos(hdg)
		sy += w * math.Sin(hdg)
	}
	return g.X + sx*h/3, g.Y + sy*h/3
}
