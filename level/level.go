package level

import (
	"github.com/pkg/errors"

	"github.com/mogaika/descent_level_browser/fixed"
)

// Level is mine graph plus game data.
// Position inside every list is the index used by level files.
type Level struct {
	Vertices       []*Vertex
	Segments       []*Segment
	Walls          []*Wall
	Triggers       []*Trigger
	MatCenters     []*MatCenter
	Objects        []*Object
	DynamicLights  []*DynamicLight
	AnimatedLights []*AnimatedLight

	ReactorTriggerTargets []*Side

	PaletteName         string
	ReactorTime         int32
	ReactorStrength     int32
	SecretReturnSegment *Segment
	SecretReturnOrient  fixed.Matrix

	Name        string
	LevelNumber int32
	FogPresets  [FogPresetsCount]FogPreset

	// versions level was decoded from, zero for created levels
	ContainerVersion int32
	GameVersion      int16
}

func NewLevel() *Level {
	return &Level{
		PaletteName:        "groupa.256",
		ReactorTime:        0x1e,
		ReactorStrength:    -1,
		SecretReturnOrient: fixed.IdentityMatrix(),
	}
}

func (l *Level) RobotMatCenters() []*MatCenter {
	return l.matCentersOfKind(MatCenterRobot)
}

func (l *Level) PowerupMatCenters() []*MatCenter {
	return l.matCentersOfKind(MatCenterPowerup)
}

func (l *Level) matCentersOfKind(kind MatCenterKind) []*MatCenter {
	result := make([]*MatCenter, 0)
	for _, m := range l.MatCenters {
		if m.Kind == kind {
			result = append(result, m)
		}
	}
	return result
}

// WallTriggers returns triggers not bound to objects, in list order
func (l *Level) WallTriggers() []*Trigger {
	result := make([]*Trigger, 0)
	for _, t := range l.Triggers {
		if !t.IsObjectTrigger() {
			result = append(result, t)
		}
	}
	return result
}

func (l *Level) ObjectTriggers() []*Trigger {
	result := make([]*Trigger, 0)
	for _, t := range l.Triggers {
		if t.IsObjectTrigger() {
			result = append(result, t)
		}
	}
	return result
}

// Validate checks graph invariants: mutual wall/side links, symmetric wall
// pairing, trigger back references equal to forward links.
func (l *Level) Validate() error {
	for iSeg, seg := range l.Segments {
		for iSide, side := range seg.Sides {
			if side.Segment != seg || side.Num != iSide {
				return errors.Errorf("Segment %d side %d has wrong owner", iSeg, iSide)
			}
			if side.exit && side.connection != nil {
				return errors.Errorf("Segment %d side %d is exit and connected", iSeg, iSide)
			}
			if side.Wall != nil && side.Wall.Side != side {
				return errors.Errorf("Segment %d side %d wall points to other side", iSeg, iSide)
			}
		}
		if seg.MatCenter != nil && seg.MatCenter.Segment != seg {
			return errors.Errorf("Segment %d matcen points to other segment", iSeg)
		}
	}

	for iWall, w := range l.Walls {
		// walls with dropped side reference are kept detached
		if w.Side != nil && w.Side.Wall != w {
			return errors.Errorf("Wall %d is not attached to its side", iWall)
		}
		if w.LinkedWall != nil && w.LinkedWall.LinkedWall != w {
			return errors.Errorf("Wall %d link is not symmetric", iWall)
		}
		if w.Trigger != nil && !containsWall(w.Trigger.ConnectedWalls, w) {
			return errors.Errorf("Wall %d trigger misses back reference", iWall)
		}
	}

	for iTrigger, t := range l.Triggers {
		for _, w := range t.ConnectedWalls {
			if w.Trigger != t {
				return errors.Errorf("Trigger %d has stale wall back reference", iTrigger)
			}
		}
		for _, o := range t.ConnectedObjects {
			if !containsTrigger(o.Triggers, t) {
				return errors.Errorf("Trigger %d has stale object back reference", iTrigger)
			}
		}
		if len(t.Targets) > MaxTriggerTargets {
			return errors.Errorf("Trigger %d has %d targets", iTrigger, len(t.Targets))
		}
	}

	for iObj, o := range l.Objects {
		for _, t := range o.Triggers {
			if !containsObject(t.ConnectedObjects, o) {
				return errors.Errorf("Object %d trigger misses back reference", iObj)
			}
		}
	}
	return nil
}

func containsWall(list []*Wall, w *Wall) bool {
	for _, i := range list {
		if i == w {
			return true
		}
	}
	return false
}

func containsTrigger(list []*Trigger, t *Trigger) bool {
	for _, i := range list {
		if i == t {
			return true
		}
	}
	return false
}

func containsObject(list []*Object, o *Object) bool {
	for _, i := range list {
		if i == o {
			return true
		}
	}
	return false
}
