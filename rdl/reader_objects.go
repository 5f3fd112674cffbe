package rdl

import (
	"github.com/pkg/errors"

	"github.com/mogaika/descent_level_browser/fixed"
	"github.com/mogaika/descent_level_browser/level"
)

func (rd *reader) readObjects() error {
	s := rd.dir.Objects
	if !rd.seekSection(s) {
		return nil
	}
	if err := checkCount(s.Count, "objects"); err != nil {
		return err
	}

	for i := 0; i < int(s.Count); i++ {
		o, err := rd.readObject(i)
		if err != nil {
			return errors.Wrapf(err, "Object %d", i)
		}
		rd.l.Objects = append(rd.l.Objects, o)
	}
	return rd.streamErr("objects")
}

func (rd *reader) readObject(index int) (*level.Object, error) {
	sr := rd.sr
	o := &level.Object{
		Type: level.ObjectType(sr.ReadU8()),
		ID:   sr.ReadU8(),
	}
	controlType := level.ControlType(sr.ReadU8())
	movementType := level.MovementType(sr.ReadU8())
	renderType := level.RenderType(sr.ReadU8())
	o.Flags = sr.ReadU8()

	segNum := int(sr.ReadLI16())
	if o.Segment = rd.segment(segNum); o.Segment == nil {
		rd.log().Debugf("[rdl] object %d: segment %d out of range", index, segNum)
	}
	o.Position = rd.readVector()
	o.Orient = rd.readMatrix()
	o.Size = fixed.Fix(sr.ReadLI32())
	o.Shields = fixed.Fix(sr.ReadLI32())
	o.LastPosition = rd.readVector()
	o.Contains = level.Contains{
		Type:  level.ObjectType(sr.ReadU8()),
		ID:    sr.ReadU8(),
		Count: sr.ReadU8(),
	}

	if err := rd.readMovement(&o.Movement, movementType); err != nil {
		return nil, err
	}
	if err := rd.readControl(&o.Control, controlType); err != nil {
		return nil, err
	}
	if err := rd.readRender(&o.Render, renderType); err != nil {
		return nil, err
	}
	return o, rd.streamErr("object")
}

func (rd *reader) extended() bool {
	return rd.family.Family() == FamilyExtended
}

func (rd *reader) readMovement(m *level.Movement, t level.MovementType) error {
	m.Type = t
	switch t {
	case level.MovementNone:
	case level.MovementPhysics:
		rd.readPhysics(&m.Physics)
	case level.MovementSpinning:
		m.SpinRate = rd.readVector()
	default:
		return errors.Wrapf(ErrUnknownObjectVariant, "movement type %d", t)
	}
	return nil
}

func (rd *reader) readPhysics(p *level.PhysicsInfo) {
	sr := rd.sr
	p.Velocity = rd.readVector()
	p.Thrust = rd.readVector()
	p.Mass = fixed.Fix(sr.ReadLI32())
	p.Drag = fixed.Fix(sr.ReadLI32())
	p.Brakes = fixed.Fix(sr.ReadLI32())
	p.RotVel = rd.readVector()
	p.RotThrust = rd.readVector()
	p.TurnRoll = fixed.FixAng(sr.ReadLI16())
	p.Flags = sr.ReadLU16()
}

func (rd *reader) readControl(c *level.Control, t level.ControlType) error {
	sr := rd.sr
	c.Type = t
	switch t {
	case level.ControlNone, level.ControlFlying, level.ControlSlew, level.ControlMorph,
		level.ControlRepairCenter, level.ControlDebris, level.ControlRemote, level.ControlReactor:
	case level.ControlAI:
		rd.readAI(&c.AI)
	case level.ControlExplosion:
		c.Explosion.SpawnTime = fixed.Fix(sr.ReadLI32())
		c.Explosion.DeleteTime = fixed.Fix(sr.ReadLI32())
		c.Explosion.DeleteObject = sr.ReadLI16()
	case level.ControlWeapon:
		c.Weapon.ParentType = sr.ReadLI16()
		c.Weapon.ParentNum = sr.ReadLI16()
		c.Weapon.ParentSignature = sr.ReadLI32()
	case level.ControlLight:
		c.Light.Intensity = fixed.Fix(sr.ReadLI32())
	case level.ControlPowerup:
		c.Powerup.Count = 1
		if rd.version.Has(PowerupCount) {
			c.Powerup.Count = sr.ReadLI32()
		}
	case level.ControlWaypoint:
		if !rd.extended() {
			return errors.Wrapf(ErrUnknownObjectVariant, "control type %d", t)
		}
		c.Waypoint.ID = sr.ReadLI32()
		c.Waypoint.Next = sr.ReadLI32()
		c.Waypoint.Speed = fixed.Fix(sr.ReadLI32())
	default:
		return errors.Wrapf(ErrUnknownObjectVariant, "control type %d", t)
	}
	return nil
}

func (rd *reader) readAI(ai *level.AIInfo) {
	sr := rd.sr
	ai.Behavior = sr.ReadU8()
	for i := range ai.Flags {
		ai.Flags[i] = sr.ReadU8()
	}
	ai.HideSegment = sr.ReadLI16()
	ai.HideIndex = sr.ReadLI16()
	ai.PathLength = sr.ReadLI16()
	ai.CurPathIndex = sr.ReadLI16()
	if rd.version.Has(AIFollowPath) {
		ai.FollowPathStart = sr.ReadLI16()
		ai.FollowPathEnd = sr.ReadLI16()
	}
}

func (rd *reader) readRender(r *level.Render, t level.RenderType) error {
	sr := rd.sr
	r.Type = t
	switch t {
	case level.RenderNone, level.RenderLaser:
	case level.RenderPolygon, level.RenderMorph:
		p := &r.Polygon
		p.Model = sr.ReadLI32()
		for i := range p.AnimAngles {
			for j := range p.AnimAngles[i] {
				p.AnimAngles[i][j] = fixed.FixAng(sr.ReadLI16())
			}
		}
		p.SubobjFlags = sr.ReadLI32()
		p.TextureOverride = sr.ReadLI32()
	case level.RenderFireball, level.RenderHostage, level.RenderPowerup, level.RenderWeaponClip:
		r.Clip.Clip = sr.ReadLI32()
		r.Clip.FrameTime = fixed.Fix(sr.ReadLI32())
		r.Clip.FrameNum = sr.ReadU8()
	case level.RenderParticles, level.RenderLightning, level.RenderSound:
		if !rd.extended() {
			return errors.Wrapf(ErrUnknownObjectVariant, "render type %d", t)
		}
		rd.readEffect(r)
	default:
		return errors.Wrapf(ErrUnknownObjectVariant, "render type %d", t)
	}
	return nil
}

func (rd *reader) readColor() [4]uint8 {
	return [4]uint8{rd.sr.ReadU8(), rd.sr.ReadU8(), rd.sr.ReadU8(), rd.sr.ReadU8()}
}

func (rd *reader) readEffect(r *level.Render) {
	sr := rd.sr
	switch r.Type {
	case level.RenderParticles:
		p := &r.Particles
		p.Life = sr.ReadLI32()
		p.Size = sr.ReadLI32()
		p.Parts = sr.ReadLI32()
		p.Speed = sr.ReadLI32()
		p.Drift = sr.ReadLI32()
		p.Brightness = sr.ReadLI32()
		p.Color = rd.readColor()
		p.Side = sr.ReadU8()
		p.Type = sr.ReadU8()
		p.Enabled = sr.ReadU8()
	case level.RenderLightning:
		l := &r.Lightning
		for _, v := range []*int32{&l.Life, &l.Delay, &l.Length, &l.Amplitude, &l.Offset, &l.WayPoint} {
			*v = sr.ReadLI32()
		}
		for _, v := range []*int16{&l.Bolts, &l.ID, &l.Target, &l.Nodes, &l.Children, &l.Frames} {
			*v = sr.ReadLI16()
		}
		for _, v := range lightningFlags(l) {
			*v = sr.ReadU8()
		}
		l.Color = rd.readColor()
	case level.RenderSound:
		r.Sound.Filename = sr.ReadStringBuffer(SoundNameSize)
		r.Sound.Volume = fixed.Fix(sr.ReadLI32())
		r.Sound.Enabled = sr.ReadU8()
	}
}

const SoundNameSize = 40

func lightningFlags(l *level.LightningInfo) []*uint8 {
	return []*uint8{&l.Width, &l.Angle, &l.Style, &l.Smoothe, &l.Clamp,
		&l.Glow, &l.Sound, &l.Random, &l.InPlane, &l.Enabled}
}
