package worlddata

import (
	"math"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/tsinghua-fib-lab/osi-world-sim/entity"
)

const (
	// StandardLaneBoundaryWidth 普通标线宽度
	StandardLaneBoundaryWidth = 0.15
	// BoldLaneBoundaryWidth 粗标线宽度
	BoldLaneBoundaryWidth = 0.3
	// doubleLineOffset 双线中单线相对中线的横向偏移
	doubleLineOffset = 0.15
)

// BoundaryPoint 车道边界线上的点
type BoundaryPoint struct {
	Point geometry.Point
	S     float64
	Width float64
}

// LaneBoundary 车道边界线
// 说明：一段标线对应一条单线，双线拆分为左右两条，各自记录在车道段内的有效s范围
type LaneBoundary struct {
	id     entity.Id
	width  float64
	sStart float64
	sEnd   float64
	typ    entity.LaneMarkingType
	color  entity.RoadMarkColor
	side   entity.BoundarySide
	points []BoundaryPoint
}

func (b *LaneBoundary) Id() entity.Id {
	return b.id
}

func (b *LaneBoundary) Width() float64 {
	return b.width
}

// SStart 有效范围起点（道路坐标）
func (b *LaneBoundary) SStart() float64 {
	return b.sStart
}

// SEnd 有效范围终点（道路坐标）
func (b *LaneBoundary) SEnd() float64 {
	return b.sEnd
}

func (b *LaneBoundary) Type() entity.LaneMarkingType {
	return b.typ
}

func (b *LaneBoundary) Color() entity.RoadMarkColor {
	return b.color
}

// Side 双线中的位置
func (b *LaneBoundary) Side() entity.BoundarySide {
	return b.side
}

func (b *LaneBoundary) Points() []BoundaryPoint {
	return b.points
}

// AddBoundaryPoint 添加边界点，s超出有效范围时忽略；双线按heading横向偏移
func (b *LaneBoundary) AddBoundaryPoint(point geometry.Point, s, heading float64) {
	if s < b.sStart || s > b.sEnd {
		return
	}
	switch b.side {
	case entity.BoundaryLeft:
		point.X -= doubleLineOffset * math.Sin(heading)
		point.Y += doubleLineOffset * math.Cos(heading)
	case entity.BoundaryRight:
		point.X += doubleLineOffset * math.Sin(heading)
		point.Y -= doubleLineOffset * math.Cos(heading)
	}
	b.points = append(b.points, BoundaryPoint{Point: point, S: s, Width: b.width})
}

// Spec 查询结果中的车道标线
func (b *LaneBoundary) Spec(relativeStartDistance float64) entity.LaneMarkingEntity {
	return entity.LaneMarkingEntity{
		RelativeStartDistance: relativeStartDistance,
		Type:                  b.typ,
		Width:                 b.width,
		Color:                 b.color,
	}
}
