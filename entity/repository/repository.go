package repository

import (
	"errors"
	"fmt"
	"slices"

	"github.com/tsinghua-fib-lab/osi-world-sim/entity"
)

// ErrCapacityExhausted 分组内ID已分配完
var ErrCapacityExhausted = errors.New("entity id capacity exhausted")

// EntityType 实体所属的ID分组
type EntityType int

const (
	MovingObject     EntityType = iota // 运动物体，Reset时回收
	StationaryObject                   // 静止物体，跨Reset保持
	Others                             // 道路、车道、标志等其他实体，跨Reset保持
)

func (t EntityType) String() string {
	switch t {
	case MovingObject:
		return "MovingObject"
	case StationaryObject:
		return "StationaryObject"
	case Others:
		return "Others"
	}
	return fmt.Sprintf("EntityType(%d)", int(t))
}

// EntityInfo 实体的描述信息，随创建记录一起写出
type EntityInfo struct {
	Category string            `bson:"category"`
	Type     string            `bson:"type"`
	Source   string            `bson:"source"`
	Metadata map[string]string `bson:"metadata,omitempty"`
}

// Record 实体创建记录
type Record struct {
	Id         entity.Id  `bson:"id"`
	Group      EntityType `bson:"group"`
	Persistent bool       `bson:"persistent"`
	Info       EntityInfo `bson:"info"`
}

// ISink 实体创建记录的写出目标
type ISink interface {
	Write(record Record)
}

// Capacities 各分组的容量
type Capacities struct {
	Moving     uint64
	Stationary uint64
	Others     uint64
}

// DefaultCapacities 默认容量
var DefaultCapacities = Capacities{
	Moving:     1_000_000,
	Stationary: 1_000_000,
	Others:     1_000_000,
}

type group struct {
	offset     uint64
	capacity   uint64
	next       uint64 // 下一个待分配的ID（相对offset）
	persistent bool
}

// Repository 实体ID仓库
// 功能：为世界中所有实体分配分组内唯一的ID，并向外部写出创建记录
// 说明：MovingObject分组在Reset时回收，其余分组ID单调递增、跨Reset保持
type Repository struct {
	groups map[EntityType]*group
	sink   ISink

	persistent    []Record
	nonPersistent []Record
}

// New 创建实体仓库，sink可以为nil
// 分组按MovingObject、StationaryObject、Others顺序连续排布在ID空间中
func New(capacities Capacities, sink ISink) *Repository {
	return &Repository{
		groups: map[EntityType]*group{
			MovingObject: {
				offset:   0,
				capacity: capacities.Moving,
			},
			StationaryObject: {
				offset:     capacities.Moving,
				capacity:   capacities.Stationary,
				persistent: true,
			},
			Others: {
				offset:     capacities.Moving + capacities.Stationary,
				capacity:   capacities.Others,
				persistent: true,
			},
		},
		sink: sink,
	}
}

// Register 在分组内分配新ID并写出创建记录
// 功能：返回entityType分组内尚未使用的下一个ID
// 参数：entityType-分组，info-实体描述
// 返回：新ID；分组容量耗尽时返回ErrCapacityExhausted
func (r *Repository) Register(entityType EntityType, info EntityInfo) (entity.Id, error) {
	g, ok := r.groups[entityType]
	if !ok {
		return entity.InvalidId, fmt.Errorf("unknown entity type %v", entityType)
	}
	if g.next >= g.capacity {
		return entity.InvalidId, fmt.Errorf("%w: group %v (capacity %d)", ErrCapacityExhausted, entityType, g.capacity)
	}
	id := entity.Id(g.offset + g.next)
	g.next++
	record := Record{
		Id:         id,
		Group:      entityType,
		Persistent: g.persistent,
		Info:       info,
	}
	if g.persistent {
		r.persistent = append(r.persistent, record)
	} else {
		r.nonPersistent = append(r.nonPersistent, record)
	}
	if r.sink != nil {
		r.sink.Write(record)
	}
	return id, nil
}

// MustRegister 同Register，但容量耗尽时直接panic
func (r *Repository) MustRegister(entityType EntityType, info EntityInfo) entity.Id {
	id, err := r.Register(entityType, info)
	if err != nil {
		log.Panicf("register %v: %v", entityType, err)
	}
	return id
}

// Reset 回收非持久分组的ID
func (r *Repository) Reset() {
	for t, g := range r.groups {
		if !g.persistent {
			log.Debugf("reset group %v (%d ids issued)", t, g.next)
			g.next = 0
		}
	}
	r.nonPersistent = r.nonPersistent[:0]
}

// Entities 获取已写出的创建记录
func (r *Repository) Entities(persistent bool) []Record {
	if persistent {
		return slices.Clone(r.persistent)
	}
	return slices.Clone(r.nonPersistent)
}

// Offset 获取分组在ID空间中的起点
func (r *Repository) Offset(entityType EntityType) entity.Id {
	return entity.Id(r.groups[entityType].offset)
}
