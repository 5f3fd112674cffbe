package rdl

import (
	"github.com/pkg/errors"

	"github.com/mogaika/descent_level_browser/level"
)

func (wr *writer) writeObjects() error {
	objects := wr.l.Objects
	if len(objects) == 0 {
		return nil
	}

	start := wr.sw.Pos()
	for i, o := range objects {
		if err := wr.writeObject(o); err != nil {
			return errors.Wrapf(err, "Object %d", i)
		}
	}
	// records have variable size, Size holds average
	wr.dir.Objects = section{
		Offset: int32(start - wr.gameStart),
		Count:  int32(len(objects)),
		Size:   int32((wr.sw.Pos() - start) / int64(len(objects))),
	}
	return nil
}

func (wr *writer) writeObject(o *level.Object) error {
	sw := wr.sw
	sw.WriteU8(uint8(o.Type))
	sw.WriteU8(o.ID)
	sw.WriteU8(uint8(o.Control.Type))
	sw.WriteU8(uint8(o.Movement.Type))
	sw.WriteU8(uint8(o.Render.Type))
	sw.WriteU8(o.Flags)
	sw.WriteLI16(int16(wr.segmentIndex(o.Segment)))
	wr.writeVector(o.Position)
	wr.writeMatrix(o.Orient)
	sw.WriteLI32(int32(o.Size))
	sw.WriteLI32(int32(o.Shields))
	wr.writeVector(o.LastPosition)
	sw.WriteU8(uint8(o.Contains.Type))
	sw.WriteU8(o.Contains.ID)
	sw.WriteU8(o.Contains.Count)

	if err := wr.writeMovement(&o.Movement); err != nil {
		return err
	}
	if err := wr.writeControl(&o.Control); err != nil {
		return err
	}
	return wr.writeRender(&o.Render)
}

func (wr *writer) extended() bool {
	return wr.family.Family() == FamilyExtended
}

func (wr *writer) writeMovement(m *level.Movement) error {
	switch m.Type {
	case level.MovementNone:
	case level.MovementPhysics:
		wr.writePhysics(&m.Physics)
	case level.MovementSpinning:
		wr.writeVector(m.SpinRate)
	default:
		return errors.Wrapf(ErrUnknownObjectVariant, "movement type %d", m.Type)
	}
	return nil
}

func (wr *writer) writePhysics(p *level.PhysicsInfo) {
	sw := wr.sw
	wr.writeVector(p.Velocity)
	wr.writeVector(p.Thrust)
	sw.WriteLI32(int32(p.Mass))
	sw.WriteLI32(int32(p.Drag))
	sw.WriteLI32(int32(p.Brakes))
	wr.writeVector(p.RotVel)
	wr.writeVector(p.RotThrust)
	sw.WriteLI16(int16(p.TurnRoll))
	sw.WriteLU16(p.Flags)
}

func (wr *writer) writeControl(c *level.Control) error {
	sw := wr.sw
	switch c.Type {
	case level.ControlNone, level.ControlFlying, level.ControlSlew, level.ControlMorph,
		level.ControlRepairCenter, level.ControlDebris, level.ControlRemote, level.ControlReactor:
	case level.ControlAI:
		wr.writeAI(&c.AI)
	case level.ControlExplosion:
		sw.WriteLI32(int32(c.Explosion.SpawnTime))
		sw.WriteLI32(int32(c.Explosion.DeleteTime))
		sw.WriteLI16(c.Explosion.DeleteObject)
	case level.ControlWeapon:
		sw.WriteLI16(c.Weapon.ParentType)
		sw.WriteLI16(c.Weapon.ParentNum)
		sw.WriteLI32(c.Weapon.ParentSignature)
	case level.ControlLight:
		sw.WriteLI32(int32(c.Light.Intensity))
	case level.ControlPowerup:
		if wr.version.Has(PowerupCount) {
			sw.WriteLI32(c.Powerup.Count)
		}
	case level.ControlWaypoint:
		if !wr.extended() {
			return errors.Errorf("Control type %d is not supported by %s family", c.Type, wr.family.Family())
		}
		sw.WriteLI32(c.Waypoint.ID)
		sw.WriteLI32(c.Waypoint.Next)
		sw.WriteLI32(int32(c.Waypoint.Speed))
	default:
		return errors.Wrapf(ErrUnknownObjectVariant, "control type %d", c.Type)
	}
	return nil
}

func (wr *writer) writeAI(ai *level.AIInfo) {
	sw := wr.sw
	sw.WriteU8(ai.Behavior)
	sw.Write(ai.Flags[:])
	sw.WriteLI16(ai.HideSegment)
	sw.WriteLI16(ai.HideIndex)
	sw.WriteLI16(ai.PathLength)
	sw.WriteLI16(ai.CurPathIndex)
	if wr.version.Has(AIFollowPath) {
		sw.WriteLI16(ai.FollowPathStart)
		sw.WriteLI16(ai.FollowPathEnd)
	}
}

func (wr *writer) writeRender(r *level.Render) error {
	sw := wr.sw
	switch r.Type {
	case level.RenderNone, level.RenderLaser:
	case level.RenderPolygon, level.RenderMorph:
		p := &r.Polygon
		sw.WriteLI32(p.Model)
		for i := range p.AnimAngles {
			for _, a := range p.AnimAngles[i] {
				sw.WriteLI16(int16(a))
			}
		}
		sw.WriteLI32(p.SubobjFlags)
		sw.WriteLI32(p.TextureOverride)
	case level.RenderFireball, level.RenderHostage, level.RenderPowerup, level.RenderWeaponClip:
		sw.WriteLI32(r.Clip.Clip)
		sw.WriteLI32(int32(r.Clip.FrameTime))
		sw.WriteU8(r.Clip.FrameNum)
	case level.RenderParticles, level.RenderLightning, level.RenderSound:
		if !wr.extended() {
			return errors.Errorf("Render type %d is not supported by %s family", r.Type, wr.family.Family())
		}
		wr.writeEffect(r)
	default:
		return errors.Wrapf(ErrUnknownObjectVariant, "render type %d", r.Type)
	}
	return nil
}

func (wr *writer) writeEffect(r *level.Render) {
	sw := wr.sw
	switch r.Type {
	case level.RenderParticles:
		p := &r.Particles
		for _, v := range []int32{p.Life, p.Size, p.Parts, p.Speed, p.Drift, p.Brightness} {
			sw.WriteLI32(v)
		}
		sw.Write(p.Color[:])
		sw.WriteU8(p.Side)
		sw.WriteU8(p.Type)
		sw.WriteU8(p.Enabled)
	case level.RenderLightning:
		l := &r.Lightning
		for _, v := range []int32{l.Life, l.Delay, l.Length, l.Amplitude, l.Offset, l.WayPoint} {
			sw.WriteLI32(v)
		}
		for _, v := range []int16{l.Bolts, l.ID, l.Target, l.Nodes, l.Children, l.Frames} {
			sw.WriteLI16(v)
		}
		for _, v := range lightningFlags(l) {
			sw.WriteU8(*v)
		}
		sw.Write(l.Color[:])
	case level.RenderSound:
		sw.WriteStringBuffer(r.Sound.Filename, SoundNameSize)
		sw.WriteLI32(int32(r.Sound.Volume))
		sw.WriteU8(r.Sound.Enabled)
	}
}
