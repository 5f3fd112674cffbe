package level

import (
	"github.com/pkg/errors"

	"github.com/mogaika/descent_level_browser/fixed"
)

// Number of target slots in trigger record
const MaxTriggerTargets = 10

type TriggerType uint8

const (
	TriggerOpenDoor TriggerType = iota
	TriggerCloseDoor
	TriggerMatCenter
	TriggerExit
	TriggerSecretExit
	TriggerIllusionOff
	TriggerIllusionOn
	TriggerUnlockDoor
	TriggerLockDoor
	TriggerOpenWall
	TriggerCloseWall
	TriggerIllusoryWall
	TriggerLightOff
	TriggerLightOn
)

type Trigger struct {
	Type    TriggerType
	Flags   uint16
	Value   fixed.Fix
	Time    fixed.Fix
	Targets []*Side

	ConnectedWalls   []*Wall
	ConnectedObjects []*Object
}

func (l *Level) AddTrigger(typ TriggerType) *Trigger {
	t := &Trigger{Type: typ}
	l.Triggers = append(l.Triggers, t)
	return t
}

func (t *Trigger) IsObjectTrigger() bool {
	return len(t.ConnectedObjects) != 0
}

// AddTarget appends target side, wall on side gets trigger as controlling
func (t *Trigger) AddTarget(side *Side) error {
	if len(t.Targets) >= MaxTriggerTargets {
		return errors.Errorf("Trigger already has %d targets", len(t.Targets))
	}
	t.Targets = append(t.Targets, side)
	if side.Wall != nil && !containsTrigger(side.Wall.ControllingTriggers, t) {
		side.Wall.ControllingTriggers = append(side.Wall.ControllingTriggers, t)
	}
	return nil
}

// BindObject makes trigger activated by object
func (t *Trigger) BindObject(o *Object) {
	if containsObject(t.ConnectedObjects, o) {
		return
	}
	t.ConnectedObjects = append(t.ConnectedObjects, o)
	o.Triggers = append(o.Triggers, t)
}
