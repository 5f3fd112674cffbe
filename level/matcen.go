package level

import (
	"github.com/pkg/errors"

	"github.com/mogaika/descent_level_browser/fixed"
)

type MatCenterKind uint8

const (
	MatCenterRobot MatCenterKind = iota
	MatCenterPowerup
)

func (k MatCenterKind) String() string {
	if k == MatCenterPowerup {
		return "powerup"
	}
	return "robot"
}

// MatCenter spawns robots (or powerups) listed in SpawnFlags bit set
type MatCenter struct {
	Segment    *Segment
	Kind       MatCenterKind
	SpawnFlags [2]uint32
	HitPoints  fixed.Fix
	Interval   fixed.Fix
}

func (m *MatCenter) CanSpawn(id int) bool {
	if id < 0 || id >= 64 {
		return false
	}
	return m.SpawnFlags[id/32]&(1<<uint(id%32)) != 0
}

func (m *MatCenter) SetSpawn(id int, enabled bool) {
	if id < 0 || id >= 64 {
		return
	}
	bit := uint32(1) << uint(id%32)
	if enabled {
		m.SpawnFlags[id/32] |= bit
	} else {
		m.SpawnFlags[id/32] &^= bit
	}
}

// AddMatCenter binds new material center to segment and sets segment function
func (l *Level) AddMatCenter(seg *Segment, kind MatCenterKind) (*MatCenter, error) {
	if seg.MatCenter != nil {
		return nil, errors.Errorf("Segment already has matcen")
	}
	m := &MatCenter{Segment: seg, Kind: kind}
	seg.MatCenter = m
	if kind == MatCenterPowerup {
		seg.Function = SegmentFunctionPowerupCenter
	} else {
		seg.Function = SegmentFunctionMatCenter
	}
	l.MatCenters = append(l.MatCenters, m)
	return m, nil
}
