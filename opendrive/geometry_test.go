package opendrive

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineCoord(t *testing.T) {
	g := &Geometry{X: 1, Y: 2, Hdg: math.Pi / 2, Length: 10, Type: GeometryLine}
	p := g.Coord(3, 0)
	assert.InDelta(t, 1, p.X, 1e-9)
	assert.InDelta(t, 5, p.Y, 1e-9)
	// 左侧偏移
	p = g.Coord(3, 2)
	assert.InDelta(t, -1, p.X, 1e-9)
	assert.InDelta(t, 5, p.Y, 1e-9)
	assert.InDelta(t, math.Pi/2, g.Dir(7), 1e-9)
}

func TestArcQuarterCircle(t *testing.T) {
	r := 10.0
	g := &Geometry{Hdg: 0, Length: math.Pi / 2 * r, Type: GeometryArc, Curvature: 1 / r}
	p := g.Coord(g.Length, 0)
	assert.InDelta(t, r, p.X, 1e-9)
	assert.InDelta(t, r, p.Y, 1e-9)
	assert.InDelta(t, math.Pi/2, g.Dir(g.Length), 1e-9)

	right := &Geometry{Hdg: 0, Length: math.Pi / 2 * r, Type: GeometryArc, Curvature: -1 / r}
	p = right.Coord(right.Length, 0)
	assert.InDelta(t, r, p.X, 1e-9)
	assert.InDelta(t, -r, p.Y, 1e-9)
}

func TestSpiralDegeneratesToLineAndArc(t *testing.T) {
	line := &Geometry{X: 5, Y: 5, Hdg: 0.3, Length: 20, Type: GeometrySpiral}
	p := line.Coord(20, 0)
	assert.InDelta(t, 5+20*math.Cos(0.3), p.X, 1e-9)
	assert.InDelta(t, 5+20*math.Sin(0.3), p.Y, 1e-9)

	arc := &Geometry{Length: 15, Type: GeometryArc, Curvature: 0.05}
	spiral := &Geometry{Length: 15, Type: GeometrySpiral, CurvStart: 0.05, CurvEnd: 0.05}
	a, s := arc.Coord(15, 1), spiral.Coord(15, 1)
	assert.InDelta(t, a.X, s.X, 1e-6)
	assert.InDelta(t, a.Y, s.Y, 1e-6)
}

func TestSpiralCurvatureIsLinear(t *testing.T) {
	g := &Geometry{Length: 10, Type: GeometrySpiral, CurvStart: 0, CurvEnd: 0.1}
	assert.InDelta(t, 0.05, g.CurvatureAt(5), 1e-12)
	assert.InDelta(t, 0.5, g.Dir(10), 1e-12)
}

func TestLaneWidthAt(t *testing.T) {
	lane := &Lane{Widths: []LaneWidth{
		{SOffset: 0, Polynomial: Polynomial{A: 3}},
		{SOffset: 10, Polynomial: Polynomial{A: 3, B: 0.1}},
	}}
	assert.InDelta(t, 3, lane.WidthAt(5), 1e-12)
	assert.InDelta(t, 3.5, lane.WidthAt(15), 1e-12)
	assert.Equal(t, 0.0, (&Lane{}).WidthAt(1))
}

func TestRoadLookups(t *testing.T) {
	road := &Road{
		Length: 30,
		Geometries: []*Geometry{
			{S: 0, Length: 10, Type: GeometryLine},
			{S: 10, Length: 20, Type: GeometryLine},
		},
		Sections: []*LaneSection{{S: 0}, {S: 12}},
	}
	assert.Same(t, road.Geometries[0], road.GeometryAt(9.99))
	assert.Same(t, road.Geometries[1], road.GeometryAt(10))
	assert.Same(t, road.Geometries[1], road.GeometryAt(30))
	assert.Nil(t, road.GeometryAt(31))
	assert.Equal(t, 1, road.SectionAt(12))
	assert.Equal(t, -1, road.SectionAt(-1))
	assert.Equal(t, 12.0, road.SectionEnd(0))
	assert.Equal(t, 30.0, road.SectionEnd(1))
}

func TestSignalValidity(t *testing.T) {
	s := &Signal{Orientation: "+"}
	assert.True(t, s.IsValidForLane(-1))
	assert.False(t, s.IsValidForLane(1))
	s = &Signal{Orientation: "+", Validities: []Validity{{FromLane: 2, ToLane: 1}}}
	assert.True(t, s.IsValidForLane(1))
	assert.False(t, s.IsValidForLane(-1))
	s = &Signal{Orientation: "none"}
	assert.True(t, s.IsValidForLane(3))
	assert.True(t, s.IsValidForLane(-3))
	s = &Signal{Orientation: "none", T: -4}
	assert.True(t, s.IsValidForLane(-2))
	assert.False(t, s.IsValidForLane(1))
}

func TestSceneryIndex(t *testing.T) {
	s := &Scenery{Roads: []*Road{{Id: "1"}, {Id: "2"}}, Junctions: []*Junction{{Id: "j"}}}
	r, ok := s.GetRoad("2")
	assert.True(t, ok)
	assert.Equal(t, "2", r.Id)
	_, ok = s.GetRoad("3")
	assert.False(t, ok)
	_, ok = s.GetJunction("j")
	assert.True(t, ok)
}
