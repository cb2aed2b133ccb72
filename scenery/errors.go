package scenery

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingRoad 引用的道路不存在
	ErrMissingRoad = errors.New("missing road")
	// ErrMissingLane 引用的车道不存在
	ErrMissingLane = errors.New("missing lane")
	// ErrUndefinedContactPoint 道路连接未给出接触点
	ErrUndefinedContactPoint = errors.New("undefined contact point")
	// ErrEmptySections 道路没有车道段
	ErrEmptySections = errors.New("road has no lane section")
	// ErrSelfReference 道路以自身为前驱或后继
	ErrSelfReference = errors.New("road references itself")
	// ErrGeometryNotFound 道路坐标s不在任何参考线几何上
	ErrGeometryNotFound = errors.New("no geometry covers s")
)

func errorf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}
