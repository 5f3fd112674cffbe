package level

import (
	"github.com/pkg/errors"

	"github.com/mogaika/descent_level_browser/fixed"
)

type WallType uint8

const (
	WallNormal WallType = iota
	WallBlastable
	WallDoor
	WallIllusion
	WallOpen
	WallClosed
	WallOverlay
	WallCloaked
)

const (
	WallFlagBlasted     = 0x01
	WallFlagDoorOpen    = 0x02
	WallFlagDoorLocked  = 0x08
	WallFlagDoorAuto    = 0x10
	WallFlagIllusionOff = 0x20
)

type Wall struct {
	Side                *Side
	LinkedWall          *Wall
	Trigger             *Trigger
	ControllingTriggers []*Trigger

	Type       WallType
	Flags      uint8
	State      uint8
	Keys       uint8
	ClipNum    int8
	HitPoints  fixed.Fix
	CloakValue int8
}

// AddWall attaches new wall to side. Triggers already targeting side
// become controlling triggers of wall.
func (l *Level) AddWall(side *Side) (*Wall, error) {
	if side.Wall != nil {
		return nil, errors.Errorf("Segment side %d already has wall", side.Num)
	}
	w := &Wall{Side: side, ClipNum: -1}
	side.Wall = w
	for _, t := range l.Triggers {
		for _, target := range t.Targets {
			if target == side {
				w.ControllingTriggers = append(w.ControllingTriggers, t)
				break
			}
		}
	}
	l.Walls = append(l.Walls, w)
	return w, nil
}

// LinkWalls pairs walls in both directions, dropping previous pairs.
// Nil b unlinks a.
func LinkWalls(a, b *Wall) {
	if a.LinkedWall != nil && a.LinkedWall.LinkedWall == a {
		a.LinkedWall.LinkedWall = nil
	}
	a.LinkedWall = b
	if b == nil {
		return
	}
	if b.LinkedWall != nil && b.LinkedWall.LinkedWall == b {
		b.LinkedWall.LinkedWall = nil
	}
	b.LinkedWall = a
}

// SetTrigger changes wall trigger and keeps trigger back references
func (w *Wall) SetTrigger(t *Trigger) {
	if w.Trigger == t {
		return
	}
	if old := w.Trigger; old != nil {
		walls := old.ConnectedWalls[:0]
		for _, cw := range old.ConnectedWalls {
			if cw != w {
				walls = append(walls, cw)
			}
		}
		old.ConnectedWalls = walls
	}
	w.Trigger = t
	if t != nil {
		t.ConnectedWalls = append(t.ConnectedWalls, w)
	}
}
