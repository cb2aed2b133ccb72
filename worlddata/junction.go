package worlddata

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/osi-world-sim/entity"
)

// ConnectionRank 相交连接道路相对于本连接道路的优先级
type ConnectionRank int

const (
	RankUndefined ConnectionRank = iota
	RankHigher
	RankLower
)

func (r ConnectionRank) String() string {
	switch r {
	case RankHigher:
		return "Higher"
	case RankLower:
		return "Lower"
	}
	return "Undefined"
}

// LanePair 相交的一对车道
type LanePair struct {
	Lane             entity.Id
	IntersectingLane entity.Id
}

// SRange 本连接道路上的相交区间（道路坐标）
type SRange struct {
	SMin float64
	SMax float64
}

// IntersectionInfo 与另一条连接道路的相交信息
type IntersectionInfo struct {
	IntersectingRoad string
	RelativeRank     ConnectionRank
	SOffsets         map[LanePair]SRange
}

// Priority 连接道路之间的优先关系
type Priority struct {
	High string
	Low  string
}

// Junction 路口
type Junction struct {
	id              entity.Id
	odId            string
	connectingRoads []*Road
	priorities      []Priority
	intersections   map[string][]IntersectionInfo // 连接道路OdId -> 相交信息
}

func (j *Junction) String() string {
	return fmt.Sprintf("Junction{Id:%d, OdId:%s}", j.id, j.odId)
}

func (j *Junction) Id() entity.Id {
	return j.id
}

func (j *Junction) OdId() string {
	return j.odId
}

// ConnectingRoads 路口内的连接道路
func (j *Junction) ConnectingRoads() []*Road {
	return j.connectingRoads
}

func (j *Junction) Priorities() []Priority {
	return j.priorities
}

// Intersections 连接道路与其他连接道路的相交信息
func (j *Junction) Intersections(connectingRoad string) []IntersectionInfo {
	return j.intersections[connectingRoad]
}

// AllIntersections 全部相交信息
func (j *Junction) AllIntersections() map[string][]IntersectionInfo {
	return j.intersections
}

// RelativeRank 按优先关系计算other相对road的优先级
func (j *Junction) RelativeRank(road, other string) ConnectionRank {
	for _, p := range j.priorities {
		if p.High == other && p.Low == road {
			return RankHigher
		}
		if p.High == road && p.Low == other {
			return RankLower
		}
	}
	return RankUndefined
}

func (j *Junction) addConnectingRoad(r *Road) {
	if lo.Contains(j.connectingRoads, r) {
		return
	}
	j.connectingRoads = append(j.connectingRoads, r)
	r.junction = j
}
