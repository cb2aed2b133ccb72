package worlddata

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"git.fiblab.net/general/common/v2/geometry"
	"git.fiblab.net/general/common/v2/parallel"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/osi-world-sim/entity"
	"github.com/tsinghua-fib-lab/osi-world-sim/entity/repository"
)

const entitySource = "OpenDRIVE"

// TurningRate 从incoming道路驶入outgoing道路的权重
type TurningRate struct {
	Incoming string  `yaml:"incoming" bson:"incoming"`
	Outgoing string  `yaml:"outgoing" bson:"outgoing"`
	Weight   float64 `yaml:"weight" bson:"weight"`
}

type roadPair struct {
	incoming, outgoing string
}

// WorldData 世界数据
// 功能：持有道路、车道段、车道、边界线、路口、信号与物体，并为它们分配实体ID
// 说明：路网部分由场景转换一次性写入，此后只有物体与车道上的对象分配会变化
type WorldData struct {
	repo *repository.Repository

	roads      []*Road
	roadById   map[entity.Id]*Road
	roadByOdId map[string]*Road

	junctions      []*Junction
	junctionByOdId map[string]*Junction

	sections   []*Section
	lanes      []*Lane
	laneById   map[entity.Id]*Lane
	boundaries map[entity.Id]*LaneBoundary

	trafficSigns      []*TrafficSign
	trafficSignByOdId map[string]*TrafficSign
	roadMarkings      []*RoadMarking
	trafficLights     []*TrafficLight
	trafficLightById  map[entity.Id]*TrafficLight
	lightByOdId       map[string]*TrafficLight

	stationaryObjects map[entity.Id]*Object
	movingObjects     map[entity.Id]*Object

	turningRates map[roadPair]float64
}

// New 创建空的世界数据
func New(repo *repository.Repository) *WorldData {
	return &WorldData{
		repo:              repo,
		roadById:          make(map[entity.Id]*Road),
		roadByOdId:        make(map[string]*Road),
		junctionByOdId:    make(map[string]*Junction),
		laneById:          make(map[entity.Id]*Lane),
		boundaries:        make(map[entity.Id]*LaneBoundary),
		trafficSignByOdId: make(map[string]*TrafficSign),
		trafficLightById:  make(map[entity.Id]*TrafficLight),
		lightByOdId:       make(map[string]*TrafficLight),
		stationaryObjects: make(map[entity.Id]*Object),
		movingObjects:     make(map[entity.Id]*Object),
		turningRates:      make(map[roadPair]float64),
	}
}

// Repository 实体仓库
func (w *WorldData) Repository() *repository.Repository {
	return w.repo
}

func (w *WorldData) register(group repository.EntityType, category, typ string, metadata map[string]string) entity.Id {
	return w.repo.MustRegister(group, repository.EntityInfo{
		Category: category,
		Type:     typ,
		Source:   entitySource,
		Metadata: metadata,
	})
}

// AddRoad 添加道路
func (w *WorldData) AddRoad(odId string) *Road {
	if _, ok := w.roadByOdId[odId]; ok {
		log.Panicf("road %s added twice", odId)
	}
	r := &Road{
		id:                w.register(repository.Others, "road", "road", map[string]string{"id": odId}),
		odId:              odId,
		inStreamDirection: true,
	}
	w.roads = append(w.roads, r)
	w.roadById[r.id] = r
	w.roadByOdId[odId] = r
	return r
}

// AddJunction 添加路口
func (w *WorldData) AddJunction(odId string) *Junction {
	j := &Junction{
		id:            w.register(repository.Others, "junction", "junction", map[string]string{"id": odId}),
		odId:          odId,
		intersections: make(map[string][]IntersectionInfo),
	}
	w.junctions = append(w.junctions, j)
	w.junctionByOdId[odId] = j
	return j
}

// AddJunctionConnection 将连接道路加入路口
func (w *WorldData) AddJunctionConnection(j *Junction, connectingRoad *Road) {
	j.addConnectingRoad(connectingRoad)
}

// AddJunctionPriority 导入连接道路之间的优先关系
func (w *WorldData) AddJunctionPriority(j *Junction, high, low string) {
	j.priorities = append(j.priorities, Priority{High: high, Low: low})
}

// AddJunctionIntersection 记录连接道路的相交信息
func (w *WorldData) AddJunctionIntersection(j *Junction, connectingRoad string, info IntersectionInfo) {
	j.intersections[connectingRoad] = append(j.intersections[connectingRoad], info)
}

// AddSection 在道路末尾添加车道段
func (w *WorldData) AddSection(road *Road, sOffset float64, index int) *Section {
	s := &Section{
		id:      w.register(repository.Others, "section", "section", map[string]string{"road": road.odId}),
		index:   index,
		road:    road,
		sOffset: sOffset,
		laneMap: make(map[int]*Lane),
	}
	road.sections = append(road.sections, s)
	w.sections = append(w.sections, s)
	return s
}

// AddCenterLaneBoundaries 设置车道段中心线上的边界，需在添加车道之前调用
func (w *WorldData) AddCenterLaneBoundaries(section *Section, boundaries []*LaneBoundary) {
	section.centerBoundaries = append(section.centerBoundaries, boundaries...)
}

// AddLaneBoundary 添加车道边界线
func (w *WorldData) AddLaneBoundary(width, sStart, sEnd float64, typ entity.LaneMarkingType, color entity.RoadMarkColor, side entity.BoundarySide) *LaneBoundary {
	b := &LaneBoundary{
		id:     w.register(repository.Others, "lane_boundary", typ.String(), nil),
		width:  width,
		sStart: sStart,
		sEnd:   sEnd,
		typ:    typ,
		color:  color,
		side:   side,
	}
	w.boundaries[b.id] = b
	return b
}

// AddLane 添加车道并与相邻车道互相连接
// 功能：注册车道，设置左右相邻关系，并在相邻车道之间传递共用的边界线
// 参数：section-所属车道段，odId-OpenDRIVE车道ID（不能为0），laneType-车道类型，
// boundaries-车道外侧（远离中心线一侧）的边界线
// 算法说明：
// 1. 参考线方向左侧为odId+1，右侧为odId-1，-1与1隔中心线相邻
// 2. 负ID车道的右边界为自身边界，左边界取左侧车道的右边界或中心线边界
// 3. 正ID车道的左边界为自身边界，右边界取右侧车道的左边界或中心线边界
// 4. 已存在的相邻车道同步补全与本车道共用的边界
func (w *WorldData) AddLane(section *Section, odId int, laneType entity.LaneType, boundaries []*LaneBoundary) *Lane {
	if odId == 0 {
		log.Panicf("center lane of %v cannot be added as a lane", section)
	}
	if _, ok := section.laneMap[odId]; ok {
		log.Panicf("lane %d added twice to %v", odId, section)
	}
	l := newLane(w.register(repository.Others, "lane", laneType.String(), map[string]string{
		"road": section.road.odId,
		"lane": strconv.Itoa(odId),
	}), section, odId, laneType)

	leftId, rightId := odId+1, odId-1
	if leftId == 0 {
		leftId = 1
	}
	if rightId == 0 {
		rightId = -1
	}
	left, hasLeft := section.laneMap[leftId]
	right, hasRight := section.laneMap[rightId]
	if hasLeft {
		l.left, left.right = left, l
	}
	if hasRight {
		l.right, right.left = right, l
	}

	if odId < 0 {
		l.rightBoundaries = boundaries
		switch {
		case odId == -1:
			l.leftBoundaries = section.centerBoundaries
		case hasLeft:
			l.leftBoundaries = left.rightBoundaries
		}
		if hasRight {
			right.leftBoundaries = boundaries
		}
	} else {
		l.leftBoundaries = boundaries
		switch {
		case odId == 1:
			l.rightBoundaries = section.centerBoundaries
		case hasRight:
			l.rightBoundaries = right.leftBoundaries
		}
		if hasLeft {
			left.rightBoundaries = boundaries
		}
	}

	section.laneMap[odId] = l
	section.lanes = append(section.lanes, l)
	sort.Slice(section.lanes, func(i, j int) bool { return section.lanes[i].odId < section.lanes[j].odId })
	w.lanes = append(w.lanes, l)
	w.laneById[l.id] = l
	return l
}

// AddLaneSuccessor lane的终点与successor相接
func (w *WorldData) AddLaneSuccessor(lane, successor *Lane) {
	lane.addSuccessor(successor)
}

// AddLanePredecessor lane的起点与predecessor相接
func (w *WorldData) AddLanePredecessor(lane, predecessor *Lane) {
	lane.addPredecessor(predecessor)
}

// ConnectSections 连接同一道路上相邻的两个车道段
func (w *WorldData) ConnectSections(prev, next *Section) {
	if !lo.Contains(prev.successors, next) {
		prev.successors = append(prev.successors, next)
	}
	if !lo.Contains(next.predecessors, prev) {
		next.predecessors = append(next.predecessors, prev)
	}
}

func (w *WorldData) SetRoadPredecessor(road *Road, e entity.RoadNetworkElement) {
	road.predecessor = e
}

func (w *WorldData) SetRoadSuccessor(road *Road, e entity.RoadNetworkElement) {
	road.successor = e
}

// AddTrafficSign 注册交通标志并挂到道路上
func (w *WorldData) AddTrafficSign(road *Road, sign *TrafficSign) *TrafficSign {
	sign.id = w.register(repository.StationaryObject, "traffic_sign", strconv.Itoa(int(sign.typ)), map[string]string{"id": sign.odId})
	sign.road = road
	road.trafficSigns = append(road.trafficSigns, sign)
	w.trafficSigns = append(w.trafficSigns, sign)
	w.trafficSignByOdId[sign.odId] = sign
	return sign
}

// AddRoadMarking 注册路面标记并挂到道路上
func (w *WorldData) AddRoadMarking(road *Road, marking *RoadMarking) *RoadMarking {
	marking.id = w.register(repository.StationaryObject, "road_marking", strconv.Itoa(int(marking.typ)), map[string]string{"id": marking.odId})
	marking.road = road
	road.roadMarkings = append(road.roadMarkings, marking)
	w.roadMarkings = append(w.roadMarkings, marking)
	return marking
}

// AddTrafficLight 注册信号灯并挂到道路上
func (w *WorldData) AddTrafficLight(road *Road, light *TrafficLight) *TrafficLight {
	light.id = w.register(repository.StationaryObject, "traffic_light", strconv.Itoa(int(light.typ)), map[string]string{"id": light.odId})
	light.road = road
	road.trafficLights = append(road.trafficLights, light)
	w.trafficLights = append(w.trafficLights, light)
	w.trafficLightById[light.id] = light
	w.lightByOdId[light.odId] = light
	return light
}

// AddStationaryObject 添加静止物体
func (w *WorldData) AddStationaryObject(odId, typ string, pose Pose, dim Dimension, linked any) *Object {
	o := &Object{
		id:        w.register(repository.StationaryObject, "stationary_object", typ, map[string]string{"id": odId}),
		kind:      entity.ObjectKindStationary,
		odId:      odId,
		pose:      pose,
		dimension: dim,
		linked:    linked,
	}
	w.stationaryObjects[o.id] = o
	return o
}

// AddMovingObject 添加运动物体
func (w *WorldData) AddMovingObject(typ string, pose Pose, dim Dimension, linked any) *Object {
	o := &Object{
		id:        w.register(repository.MovingObject, "moving_object", typ, nil),
		kind:      entity.ObjectKindMoving,
		pose:      pose,
		dimension: dim,
		dynamics:  &Dynamics{},
		linked:    linked,
	}
	w.movingObjects[o.id] = o
	return o
}

// RemoveMovingObject 移除运动物体及其车道分配
func (w *WorldData) RemoveMovingObject(id entity.Id) {
	o, ok := w.movingObjects[id]
	if !ok {
		log.Warnf("remove unknown moving object %d", id)
		return
	}
	o.ClearLaneAssignments()
	delete(w.movingObjects, id)
}

// ClearMovingObjects 清空全部车道上的运动物体
// 说明：各车道并行处理，物体上的分配记录随后统一清空
func (w *WorldData) ClearMovingObjects() {
	parallel.GoFor(w.lanes, func(l *Lane) { l.detachMovingObjects() })
	for _, o := range w.movingObjects {
		o.assignments = o.assignments[:0]
	}
}

// Reset 移除全部运动物体并回收其ID，路网与静止物体保留
func (w *WorldData) Reset() {
	w.ClearMovingObjects()
	w.movingObjects = make(map[entity.Id]*Object)
	w.repo.Reset()
}

// Roads 按添加顺序返回道路
func (w *WorldData) Roads() []*Road {
	return w.roads
}

// GetRoad 根据ID获取道路，不存在时panic
func (w *WorldData) GetRoad(id entity.Id) *Road {
	r, err := w.GetRoadOrError(id)
	if err != nil {
		log.Panicf("%v", err)
	}
	return r
}

// GetRoadOrError 根据ID获取道路
func (w *WorldData) GetRoadOrError(id entity.Id) (*Road, error) {
	if r, ok := w.roadById[id]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("no road with id %d", id)
}

// GetRoadByOdId 根据OpenDRIVE ID获取道路
func (w *WorldData) GetRoadByOdId(odId string) (*Road, bool) {
	r, ok := w.roadByOdId[odId]
	return r, ok
}

func (w *WorldData) Junctions() []*Junction {
	return w.junctions
}

// GetJunctionByOdId 根据OpenDRIVE ID获取路口
func (w *WorldData) GetJunctionByOdId(odId string) (*Junction, bool) {
	j, ok := w.junctionByOdId[odId]
	return j, ok
}

func (w *WorldData) Sections() []*Section {
	return w.sections
}

// Lanes 按添加顺序返回车道
func (w *WorldData) Lanes() []*Lane {
	return w.lanes
}

// GetLane 根据ID获取车道，不存在时返回InvalidLane
func (w *WorldData) GetLane(id entity.Id) *Lane {
	if l, ok := w.laneById[id]; ok {
		return l
	}
	return InvalidLane
}

// GetLaneOrError 根据ID获取车道
func (w *WorldData) GetLaneOrError(id entity.Id) (*Lane, error) {
	if l, ok := w.laneById[id]; ok {
		return l, nil
	}
	return nil, fmt.Errorf("no lane with id %d", id)
}

// GetLaneBoundary 根据ID获取边界线
func (w *WorldData) GetLaneBoundary(id entity.Id) (*LaneBoundary, bool) {
	b, ok := w.boundaries[id]
	return b, ok
}

func (w *WorldData) TrafficSigns() []*TrafficSign {
	return w.trafficSigns
}

// GetTrafficSignByOdId 根据OpenDRIVE信号ID获取交通标志
func (w *WorldData) GetTrafficSignByOdId(odId string) (*TrafficSign, bool) {
	s, ok := w.trafficSignByOdId[odId]
	return s, ok
}

func (w *WorldData) RoadMarkings() []*RoadMarking {
	return w.roadMarkings
}

func (w *WorldData) TrafficLights() []*TrafficLight {
	return w.trafficLights
}

// GetTrafficLight 根据ID获取信号灯
func (w *WorldData) GetTrafficLight(id entity.Id) (*TrafficLight, bool) {
	l, ok := w.trafficLightById[id]
	return l, ok
}

// GetTrafficLightByOdId 根据OpenDRIVE信号ID获取信号灯
func (w *WorldData) GetTrafficLightByOdId(odId string) (*TrafficLight, bool) {
	l, ok := w.lightByOdId[odId]
	return l, ok
}

// StationaryObjects 按ID升序返回静止物体
func (w *WorldData) StationaryObjects() []*Object {
	return sortedObjects(w.stationaryObjects)
}

// MovingObjects 按ID升序返回运动物体
func (w *WorldData) MovingObjects() []*Object {
	return sortedObjects(w.movingObjects)
}

// GetMovingObject 根据ID获取运动物体
func (w *WorldData) GetMovingObject(id entity.Id) (*Object, bool) {
	o, ok := w.movingObjects[id]
	return o, ok
}

func sortedObjects(m map[entity.Id]*Object) []*Object {
	objects := lo.Values(m)
	sort.Slice(objects, func(i, j int) bool { return objects[i].id < objects[j].id })
	return objects
}

// SetTurningRates 设置路口转向权重，未知道路记录警告后忽略
func (w *WorldData) SetTurningRates(rates []TurningRate) {
	for _, r := range rates {
		_, okIn := w.roadByOdId[r.Incoming]
		_, okOut := w.roadByOdId[r.Outgoing]
		if !okIn || !okOut {
			log.Warnf("turning rate %s -> %s refers to unknown road, ignored", r.Incoming, r.Outgoing)
			continue
		}
		w.turningRates[roadPair{r.Incoming, r.Outgoing}] = r.Weight
	}
}

// TurningRate 获取转向权重
func (w *WorldData) TurningRate(incoming, outgoing string) (float64, bool) {
	v, ok := w.turningRates[roadPair{incoming, outgoing}]
	return v, ok
}

// Bounds 全部车道几何的包围盒
func (w *WorldData) Bounds() (min, max geometry.Point) {
	min = geometry.Point{X: math.Inf(1), Y: math.Inf(1)}
	max = geometry.Point{X: math.Inf(-1), Y: math.Inf(-1)}
	for _, l := range w.lanes {
		for _, j := range l.joints {
			for _, p := range []geometry.Point{j.Points.Left, j.Points.Right} {
				min.X, min.Y = math.Min(min.X, p.X), math.Min(min.Y, p.Y)
				max.X, max.Y = math.Max(max.X, p.X), math.Max(max.Y, p.Y)
			}
		}
	}
	return
}
