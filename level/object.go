package level

import (
	"github.com/mogaika/descent_level_browser/fixed"
)

type ObjectType uint8

const (
	ObjectWall ObjectType = iota
	ObjectFireball
	ObjectRobot
	ObjectHostage
	ObjectPlayer
	ObjectWeapon
	ObjectCamera
	ObjectPowerup
	ObjectDebris
	ObjectReactor
	ObjectFlare
	ObjectClutter
	ObjectGhost
	ObjectLight
	ObjectCoop
	ObjectMarker
	ObjectCambot
	ObjectMonsterball
	ObjectSmoke
	ObjectExplosion
	ObjectEffect
)

var objectTypeNames = []string{
	"wall", "fireball", "robot", "hostage", "player", "weapon", "camera", "powerup",
	"debris", "reactor", "flare", "clutter", "ghost", "light", "coop", "marker",
	"cambot", "monsterball", "smoke", "explosion", "effect",
}

func (t ObjectType) String() string {
	if int(t) < len(objectTypeNames) {
		return objectTypeNames[t]
	}
	return "unknown"
}

// Contains describes what object drops when destroyed
type Contains struct {
	Type  ObjectType
	ID    uint8
	Count uint8
}

type Object struct {
	Type  ObjectType
	ID    uint8
	Flags uint8

	Segment      *Segment
	Position     fixed.Vector
	Orient       fixed.Matrix
	Size         fixed.Fix
	Shields      fixed.Fix
	LastPosition fixed.Vector
	Contains     Contains

	Movement Movement
	Control  Control
	Render   Render

	Triggers []*Trigger
}

// AddObject places new object in the center of segment
func (l *Level) AddObject(typ ObjectType, id uint8, seg *Segment) *Object {
	o := &Object{
		Type:    typ,
		ID:      id,
		Segment: seg,
		Orient:  fixed.IdentityMatrix(),
	}
	if seg != nil {
		o.Position = seg.Center()
		o.LastPosition = o.Position
	}
	l.Objects = append(l.Objects, o)
	return o
}
