package rdl

import (
	"bytes"
	"encoding/binary"
	"io"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"github.com/mogaika/descent_level_browser/fixed"
	"github.com/mogaika/descent_level_browser/level"
	"github.com/mogaika/descent_level_browser/utils"
)

var roundTripVersions = []Version{
	{1, 22}, {1, 25},
	{2, 26}, {3, 27}, {4, 28}, {5, 29}, {6, 30}, {7, 31}, {8, 32},
	{9, 33}, {12, 34}, {13, 35}, {20, 40}, {27, 40},
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

// buildLevel fills every entity kind representable by version
func buildLevel(t *testing.T, v Version) *level.Level {
	l := level.NewLevel()
	l.Name = "TEST LEVEL"
	l.LevelNumber = 3

	a := l.AddCube(fixed.Vector{}, 10)
	b := l.AddCube(fixed.NewVector(0, 0, 20), 10)
	c := l.AddCube(fixed.NewVector(0, 0, 40), 10)
	must(t, l.ConnectSegments(a.Sides[level.SideFront], b.Sides[level.SideBack]))
	must(t, l.ConnectSegments(b.Sides[level.SideFront], c.Sides[level.SideBack]))
	a.Sides[level.SideBack].SetExit()

	top := a.Sides[level.SideTop]
	top.BaseTexture = 12
	top.OverlayTexture = 0x4005
	top.UVLs[1].L = fixed.FixOne
	top.UVLs[2].U = fixed.FromInt(-2)
	a.StaticLight = fixed.FixOne * 2
	c.StaticLight = fixed.FixOne / 2

	w0, err := l.AddWall(a.Sides[level.SideFront])
	must(t, err)
	w1, err := l.AddWall(b.Sides[level.SideBack])
	must(t, err)
	w2, err := l.AddWall(c.Sides[level.SideTop])
	must(t, err)
	level.LinkWalls(w0, w1)
	w0.Type = level.WallDoor
	w0.Keys = 2
	w0.ClipNum = 3
	w0.HitPoints = fixed.FromInt(100)
	w0.Flags = level.WallFlagDoorAuto
	w2.Type = level.WallIllusion
	w2.CloakValue = 5

	t0 := l.AddTrigger(level.TriggerOpenDoor)
	t0.Flags = 1
	t0.Value = fixed.FixOne
	t0.Time = -1
	must(t, t0.AddTarget(b.Sides[level.SideBack]))
	must(t, t0.AddTarget(c.Sides[level.SideTop]))
	w0.SetTrigger(t0)

	l.ReactorTriggerTargets = []*level.Side{c.Sides[level.SideTop], a.Sides[level.SideLeft]}

	b.Function = level.SegmentFunctionFuelCenter
	m, err := l.AddMatCenter(c, level.MatCenterRobot)
	must(t, err)
	m.SetSpawn(3, true)
	if v.Has(MatCenterTwoWords) {
		m.SetSpawn(40, true)
	}
	m.HitPoints = fixed.FromInt(500)
	m.Interval = fixed.FromInt(5)

	if v.Has(SpecialSecondPass) {
		a.Flags = 1
	}
	if v.Has(SegmentOwner) {
		b.Owner = 2
		b.Group = -1
	}
	if v.Has(SegmentProps) {
		c.Props = 4
	}

	player := l.AddObject(level.ObjectPlayer, 0, a)
	player.Size = fixed.FromInt(4)
	player.Shields = fixed.FromInt(100)
	player.Movement = level.Movement{Type: level.MovementPhysics, Physics: level.PhysicsInfo{
		Mass: fixed.FixOne, Drag: 0x100, TurnRoll: 5, Flags: 2,
		Velocity: fixed.NewVector(1, 2, 3),
	}}
	player.Control.Type = level.ControlFlying
	player.Render = level.Render{Type: level.RenderPolygon, Polygon: level.PolygonInfo{
		Model: 43, TextureOverride: -1,
	}}
	player.Render.Polygon.AnimAngles[1][2] = 100

	robot := l.AddObject(level.ObjectRobot, 3, b)
	robot.Contains = level.Contains{Type: level.ObjectPowerup, ID: 1, Count: 2}
	robot.Movement.Type = level.MovementPhysics
	robot.Control = level.Control{Type: level.ControlAI, AI: level.AIInfo{
		Behavior: 0x80, HideSegment: -1, PathLength: 3,
	}}
	robot.Control.AI.Flags[0] = 1
	if v.Has(AIFollowPath) {
		robot.Control.AI.FollowPathStart = 7
		robot.Control.AI.FollowPathEnd = 9
	}
	robot.Render = level.Render{Type: level.RenderPolygon, Polygon: level.PolygonInfo{Model: 2, SubobjFlags: 3}}

	powerup := l.AddObject(level.ObjectPowerup, 5, c)
	powerup.Control = level.Control{Type: level.ControlPowerup, Powerup: level.PowerupInfo{Count: 1}}
	if v.Has(PowerupCount) {
		powerup.Control.Powerup.Count = 3
	}
	powerup.Render = level.Render{Type: level.RenderPowerup, Clip: level.ClipInfo{
		Clip: 36, FrameTime: 0x1000, FrameNum: 2,
	}}

	hostage := l.AddObject(level.ObjectHostage, 0, c)
	hostage.Movement = level.Movement{Type: level.MovementSpinning, SpinRate: fixed.NewVector(0, 1, 0)}
	hostage.Render = level.Render{Type: level.RenderHostage, Clip: level.ClipInfo{Clip: 33}}

	reactor := l.AddObject(level.ObjectReactor, 0, c)
	reactor.Control.Type = level.ControlReactor
	reactor.Render = level.Render{Type: level.RenderPolygon, Polygon: level.PolygonInfo{Model: 39}}

	blast := l.AddObject(level.ObjectFireball, 1, b)
	blast.Control = level.Control{Type: level.ControlExplosion, Explosion: level.ExplosionInfo{
		SpawnTime: 1, DeleteTime: 2, DeleteObject: -1,
	}}
	blast.Render = level.Render{Type: level.RenderFireball, Clip: level.ClipInfo{Clip: 3}}

	shot := l.AddObject(level.ObjectWeapon, 2, b)
	shot.Control = level.Control{Type: level.ControlWeapon, Weapon: level.WeaponInfo{
		ParentType: 4, ParentNum: 0, ParentSignature: 77,
	}}
	shot.Render.Type = level.RenderLaser

	lamp := l.AddObject(level.ObjectLight, 0, a)
	lamp.Control = level.Control{Type: level.ControlLight, Light: level.LightInfo{Intensity: fixed.FixOne}}

	if v.Family() == FamilyExtended {
		smoke := l.AddObject(level.ObjectEffect, 0, a)
		smoke.Control = level.Control{Type: level.ControlWaypoint, Waypoint: level.WaypointInfo{
			ID: 1, Next: 2, Speed: fixed.FixOne,
		}}
		smoke.Render = level.Render{Type: level.RenderParticles, Particles: level.ParticlesInfo{
			Life: 100, Size: 2, Parts: 50, Color: [4]uint8{1, 2, 3, 4}, Enabled: 1,
		}}

		bolt := l.AddObject(level.ObjectEffect, 1, b)
		bolt.Render = level.Render{Type: level.RenderLightning, Lightning: level.LightningInfo{
			Life: 10, Bolts: 3, Glow: 1, Enabled: 1, Color: [4]uint8{9, 9, 9, 9},
		}}

		hum := l.AddObject(level.ObjectEffect, 2, c)
		hum.Render = level.Render{Type: level.RenderSound, Sound: level.SoundInfo{
			Filename: "hum.wav", Volume: fixed.FixOne, Enabled: 1,
		}}
	}

	if v.Has(ObjectTriggers) {
		ot := l.AddTrigger(level.TriggerLightOff)
		must(t, ot.AddTarget(top))
		ot.BindObject(robot)
	}
	if v.Has(PowerupMatCenters) {
		pm, err := l.AddMatCenter(a, level.MatCenterPowerup)
		must(t, err)
		pm.SetSpawn(1, true)
	}
	if v.Has(DeltaLights) {
		dl := l.AddDynamicLight(top)
		dl.AddDelta(c.Sides[level.SideTop], [4]uint8{1, 2, 3, 4})
		dl.AddDelta(b.Sides[level.SideLeft], [4]uint8{5, 6, 7, 8})
		l.AddDynamicLight(c.Sides[level.SideRight])
	}
	if v.Has(AnimatedLights) {
		l.AddAnimatedLight(a.Sides[level.SideLeft], 0xf0f0f0f0, fixed.FixOne, fixed.FixOne/4)
	}
	if v.Has(SecretReturn) {
		l.SecretReturnSegment = b
		l.SecretReturnOrient.Right = fixed.NewVector(0, 0, 1)
	}
	if v.Has(ReactorTime) {
		l.ReactorTime = 45
	}
	if v.Has(ReactorStrength) {
		l.ReactorStrength = 200
	}
	if v.Has(FogPresets) {
		l.FogPresets[1] = level.FogPreset{Color: [3]uint8{10, 20, 30}, Density: 40}
	}

	must(t, l.Validate())
	return l
}

func indexOf[T comparable](list []T, v T) int {
	for i, item := range list {
		if item == v {
			return i
		}
	}
	return -1
}

type sideKey struct {
	segment, side int
}

func keyOf(l *level.Level, side *level.Side) sideKey {
	if side == nil {
		return sideKey{-1, -1}
	}
	return sideKey{indexOf(l.Segments, side.Segment), side.Num}
}

func keysOf(l *level.Level, sides []*level.Side) []sideKey {
	result := make([]sideKey, len(sides))
	for i, side := range sides {
		result[i] = keyOf(l, side)
	}
	return result
}

func wallIndices(l *level.Level, walls []*level.Wall) []int {
	result := make([]int, len(walls))
	for i, w := range walls {
		result[i] = indexOf(l.Walls, w)
	}
	return result
}

func triggerIndices(l *level.Level, triggers []*level.Trigger) []int {
	result := make([]int, len(triggers))
	for i, tr := range triggers {
		result[i] = indexOf(l.Triggers, tr)
	}
	return result
}

func objectIndices(l *level.Level, objects []*level.Object) []int {
	result := make([]int, len(objects))
	for i, o := range objects {
		result[i] = indexOf(l.Objects, o)
	}
	return result
}

func equalSlices[T comparable](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// compareLevels checks that got has same entities and link structure as want
func compareLevels(t *testing.T, v Version, want, got *level.Level) {
	t.Helper()

	counts := []struct {
		name      string
		want, got int
	}{
		{"vertices", len(want.Vertices), len(got.Vertices)},
		{"segments", len(want.Segments), len(got.Segments)},
		{"walls", len(want.Walls), len(got.Walls)},
		{"triggers", len(want.Triggers), len(got.Triggers)},
		{"matcens", len(want.MatCenters), len(got.MatCenters)},
		{"objects", len(want.Objects), len(got.Objects)},
		{"dynamic lights", len(want.DynamicLights), len(got.DynamicLights)},
		{"animated lights", len(want.AnimatedLights), len(got.AnimatedLights)},
	}
	for _, c := range counts {
		if c.want != c.got {
			t.Fatalf("%+v: %s count %d; expected %d", v, c.name, c.got, c.want)
		}
	}

	if got.ContainerVersion != v.Container || got.GameVersion != v.Game {
		t.Errorf("%+v: decoded version %d/%d", v, got.ContainerVersion, got.GameVersion)
	}
	if got.Name != want.Name || got.LevelNumber != want.LevelNumber {
		t.Errorf("%+v: name %q number %d", v, got.Name, got.LevelNumber)
	}
	if v.Has(PaletteName) && got.PaletteName != want.PaletteName {
		t.Errorf("%+v: palette %q", v, got.PaletteName)
	}
	if got.ReactorTime != want.ReactorTime && v.Has(ReactorTime) {
		t.Errorf("%+v: reactor time %d", v, got.ReactorTime)
	}
	if got.ReactorStrength != want.ReactorStrength && v.Has(ReactorStrength) {
		t.Errorf("%+v: reactor strength %d", v, got.ReactorStrength)
	}
	if v.Has(SecretReturn) {
		if indexOf(got.Segments, got.SecretReturnSegment) != indexOf(want.Segments, want.SecretReturnSegment) ||
			got.SecretReturnOrient != want.SecretReturnOrient {
			t.Errorf("%+v: secret return mismatch", v)
		}
	}
	if got.FogPresets != want.FogPresets {
		t.Errorf("%+v: fog %+v", v, got.FogPresets)
	}

	for i, vert := range want.Vertices {
		if got.Vertices[i].Position != vert.Position {
			t.Errorf("%+v: vertex %d position %+v", v, i, got.Vertices[i].Position)
		}
	}

	for i, ws := range want.Segments {
		gs := got.Segments[i]
		for j := range ws.Vertices {
			if indexOf(got.Vertices, gs.Vertices[j]) != indexOf(want.Vertices, ws.Vertices[j]) {
				t.Errorf("%+v: segment %d vertex %d mismatch", v, i, j)
			}
		}
		if gs.Function != ws.Function || gs.StaticLight != ws.StaticLight || gs.Flags != ws.Flags ||
			gs.Owner != ws.Owner || gs.Group != ws.Group || gs.Props != ws.Props {
			t.Errorf("%+v: segment %d fields %+v; expected %+v", v, i, *gs, *ws)
		}
		if !ws.Function.IsFuelCenterClass() && gs.Value != ws.Value {
			t.Errorf("%+v: segment %d value %d", v, i, gs.Value)
		}
		if indexOf(got.MatCenters, gs.MatCenter) != indexOf(want.MatCenters, ws.MatCenter) {
			t.Errorf("%+v: segment %d matcen mismatch", v, i)
		}
		for j, wside := range ws.Sides {
			gside := gs.Sides[j]
			if gside.IsExit() != wside.IsExit() ||
				indexOf(got.Segments, gside.Connection()) != indexOf(want.Segments, wside.Connection()) {
				t.Errorf("%+v: segment %d side %d connectivity mismatch", v, i, j)
			}
			if indexOf(got.Walls, gside.Wall) != indexOf(want.Walls, wside.Wall) {
				t.Errorf("%+v: segment %d side %d wall mismatch", v, i, j)
			}
			if wside.HasTexture() && (gside.BaseTexture != wside.BaseTexture ||
				gside.OverlayTexture != wside.OverlayTexture || gside.UVLs != wside.UVLs) {
				t.Errorf("%+v: segment %d side %d texture %d/%d %+v", v, i, j,
					gside.BaseTexture, gside.OverlayTexture, gside.UVLs)
			}
		}
	}

	for i, ww := range want.Walls {
		gw := got.Walls[i]
		if keyOf(got, gw.Side) != keyOf(want, ww.Side) {
			t.Errorf("%+v: wall %d side mismatch", v, i)
		}
		if indexOf(got.Walls, gw.LinkedWall) != indexOf(want.Walls, ww.LinkedWall) {
			t.Errorf("%+v: wall %d link mismatch", v, i)
		}
		if indexOf(got.Triggers, gw.Trigger) != indexOf(want.Triggers, ww.Trigger) {
			t.Errorf("%+v: wall %d trigger mismatch", v, i)
		}
		if !equalSlices(triggerIndices(got, gw.ControllingTriggers), triggerIndices(want, ww.ControllingTriggers)) {
			t.Errorf("%+v: wall %d controlling triggers mismatch", v, i)
		}
		if gw.Type != ww.Type || gw.Flags != ww.Flags || gw.State != ww.State || gw.Keys != ww.Keys ||
			gw.ClipNum != ww.ClipNum || gw.HitPoints != ww.HitPoints || gw.CloakValue != ww.CloakValue {
			t.Errorf("%+v: wall %d fields mismatch", v, i)
		}
	}

	for i, wt := range want.Triggers {
		gt := got.Triggers[i]
		if gt.Type != wt.Type || gt.Flags != wt.Flags || gt.Value != wt.Value || gt.Time != wt.Time {
			t.Errorf("%+v: trigger %d fields mismatch", v, i)
		}
		if !equalSlices(keysOf(got, gt.Targets), keysOf(want, wt.Targets)) {
			t.Errorf("%+v: trigger %d targets %v", v, i, keysOf(got, gt.Targets))
		}
		if !equalSlices(wallIndices(got, gt.ConnectedWalls), wallIndices(want, wt.ConnectedWalls)) {
			t.Errorf("%+v: trigger %d connected walls mismatch", v, i)
		}
		if !equalSlices(objectIndices(got, gt.ConnectedObjects), objectIndices(want, wt.ConnectedObjects)) {
			t.Errorf("%+v: trigger %d connected objects mismatch", v, i)
		}
	}

	if !equalSlices(keysOf(got, got.ReactorTriggerTargets), keysOf(want, want.ReactorTriggerTargets)) {
		t.Errorf("%+v: reactor targets %v", v, keysOf(got, got.ReactorTriggerTargets))
	}

	for i, wm := range want.MatCenters {
		gm := got.MatCenters[i]
		if indexOf(got.Segments, gm.Segment) != indexOf(want.Segments, wm.Segment) || gm.Kind != wm.Kind ||
			gm.SpawnFlags != wm.SpawnFlags || gm.HitPoints != wm.HitPoints || gm.Interval != wm.Interval {
			t.Errorf("%+v: matcen %d %+v", v, i, *gm)
		}
	}

	for i, wo := range want.Objects {
		gobj := got.Objects[i]
		if gobj.Type != wo.Type || gobj.ID != wo.ID || gobj.Flags != wo.Flags ||
			gobj.Position != wo.Position || gobj.Orient != wo.Orient || gobj.Size != wo.Size ||
			gobj.Shields != wo.Shields || gobj.LastPosition != wo.LastPosition || gobj.Contains != wo.Contains {
			t.Errorf("%+v: object %d header mismatch", v, i)
		}
		if indexOf(got.Segments, gobj.Segment) != indexOf(want.Segments, wo.Segment) {
			t.Errorf("%+v: object %d segment mismatch", v, i)
		}
		if gobj.Movement != wo.Movement {
			t.Errorf("%+v: object %d movement %+v", v, i, gobj.Movement)
		}
		if gobj.Control != wo.Control {
			t.Errorf("%+v: object %d control %+v", v, i, gobj.Control)
		}
		if gobj.Render != wo.Render {
			t.Errorf("%+v: object %d render %+v", v, i, gobj.Render)
		}
		if !equalSlices(triggerIndices(got, gobj.Triggers), triggerIndices(want, wo.Triggers)) {
			t.Errorf("%+v: object %d triggers mismatch", v, i)
		}
	}

	for i, wdl := range want.DynamicLights {
		gdl := got.DynamicLights[i]
		if keyOf(got, gdl.Source) != keyOf(want, wdl.Source) || len(gdl.Deltas) != len(wdl.Deltas) {
			t.Errorf("%+v: dynamic light %d mismatch", v, i)
			continue
		}
		for j, d := range wdl.Deltas {
			if keyOf(got, gdl.Deltas[j].Side) != keyOf(want, d.Side) || gdl.Deltas[j].VertexLight != d.VertexLight {
				t.Errorf("%+v: dynamic light %d delta %d mismatch", v, i, j)
			}
		}
	}

	for i, wal := range want.AnimatedLights {
		gal := got.AnimatedLights[i]
		if keyOf(got, gal.Side) != keyOf(want, wal.Side) || gal.Mask != wal.Mask ||
			gal.Timer != wal.Timer || gal.Delay != wal.Delay {
			t.Errorf("%+v: animated light %d mismatch", v, i)
		}
	}

	if err := got.Validate(); err != nil {
		t.Errorf("%+v: decoded level is invalid: %v", v, err)
	}
}

func TestRoundTrip(t *testing.T) {
	for _, v := range roundTripVersions {
		want := buildLevel(t, v)

		data, err := Encode(want, v)
		if err != nil {
			t.Fatalf("%+v: Encode: %v", v, err)
		}
		got, err := Decode(data)
		if err != nil {
			t.Fatalf("%+v: Decode: %v", v, err)
		}
		compareLevels(t, v, want, got)

		// decode-encode-decode cycle is stable
		data2, err := Encode(got, LevelVersion(got))
		if err != nil {
			t.Fatalf("%+v: second Encode: %v", v, err)
		}
		got2, err := Decode(data2)
		if err != nil {
			t.Fatalf("%+v: second Decode: %v", v, err)
		}
		data3, err := Encode(got2, LevelVersion(got2))
		if err != nil {
			t.Fatalf("%+v: third Encode: %v", v, err)
		}
		if !bytes.Equal(data2, data3) {
			t.Errorf("%+v: re-encode is not idempotent", v)
		}
	}
}

func TestConvertBetweenFamilies(t *testing.T) {
	src := buildLevel(t, Version{27, 40})
	data, err := Encode(src, Version{27, 40})
	must(t, err)
	l, err := Decode(data)
	must(t, err)

	// extended only render types cannot be stored in primary levels
	if _, err := Encode(l, Version{Container: 8}); err == nil {
		t.Fatalf("expected error for particles object in primary level")
	}

	objects := l.Objects[:0]
	for _, o := range l.Objects {
		if o.Type != level.ObjectEffect {
			objects = append(objects, o)
		}
	}
	l.Objects = objects

	data, err = Encode(l, Version{Container: 8})
	if err != nil {
		t.Fatalf("Encode primary: %v", err)
	}
	primary, err := Decode(data)
	must(t, err)
	if primary.GameVersion != 32 {
		t.Errorf("default game version %d", primary.GameVersion)
	}
	if len(primary.Triggers) != 1 || len(primary.RobotMatCenters()) != 1 || len(primary.PowerupMatCenters()) != 0 {
		t.Errorf("object triggers or powerup matcens leaked into primary level: %d triggers, %d matcens",
			len(primary.Triggers), len(primary.MatCenters))
	}
	if len(primary.DynamicLights) != 2 {
		t.Errorf("%d dynamic lights", len(primary.DynamicLights))
	}
}

func TestReadAtStreamOffset(t *testing.T) {
	data, err := Encode(level.NewCubeLevel("offset"), Version{Container: 8})
	must(t, err)

	buf := utils.NewSeekBuffer(append([]byte("HOGFILE"), data...))
	if _, err := buf.Seek(7, io.SeekStart); err != nil {
		t.Fatal(err)
	}
	f, err := DetectFamily(buf)
	if err != nil || f != FamilyPrimary {
		t.Fatalf("DetectFamily=%v,%v", f, err)
	}
	if pos, _ := buf.Seek(0, io.SeekCurrent); pos != 7 {
		t.Fatalf("DetectFamily moved stream to %d", pos)
	}
	l, err := Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if l.Name != "offset" || len(l.Segments) != 1 {
		t.Errorf("decoded %q with %d segments", l.Name, len(l.Segments))
	}
}

func le32(data []byte, pos int) int32 {
	return int32(binary.LittleEndian.Uint32(data[pos:]))
}

func putLE32(data []byte, pos int, v int32) {
	binary.LittleEndian.PutUint32(data[pos:], uint32(v))
}

func putLE16(data []byte, pos int, v int16) {
	binary.LittleEndian.PutUint16(data[pos:], uint16(v))
}

var directorySections = []string{"objects", "walls", "doors", "triggers", "links", "reactor", "matcens"}

// directory parses game data start and base sections of encoded level
func directory(data []byte) (int, map[string]section) {
	gameStart := int(le32(data, 12))
	// signature, version, size, mine file name, level number, player offset and size
	pos := gameStart + 2 + 2 + 4 + MineFileNameSize + 4 + 4 + 4
	sections := make(map[string]section)
	for i, name := range directorySections {
		off := pos + i*12
		sections[name] = section{Offset: le32(data, off), Count: le32(data, off+4), Size: le32(data, off+8)}
	}
	return gameStart, sections
}

func TestOneCubeLevel(t *testing.T) {
	for _, v := range []Version{{1, 25}, {8, 32}, {27, 40}} {
		data, err := Encode(level.NewCubeLevel("cube"), v)
		if err != nil {
			t.Fatalf("%+v: Encode: %v", v, err)
		}

		_, dir := directory(data)
		if dir["objects"].Count != 0 {
			t.Errorf("%+v: object count %d", v, dir["objects"].Count)
		}
		for _, name := range []string{"walls", "triggers", "matcens"} {
			if dir[name].Offset != -1 {
				t.Errorf("%+v: %s offset %d; expected -1", v, name, dir[name].Offset)
			}
		}

		l, err := Decode(data)
		if err != nil {
			t.Fatalf("%+v: Decode: %v", v, err)
		}
		if len(l.Segments) != 1 || len(l.Vertices) != 8 {
			t.Errorf("%+v: %d segments %d vertices", v, len(l.Segments), len(l.Vertices))
		}
		if len(l.Walls)+len(l.Triggers)+len(l.MatCenters)+len(l.Objects)+len(l.DynamicLights) != 0 {
			t.Errorf("%+v: unexpected entities", v)
		}
		if l.Segments[0].Function != level.SegmentFunctionNone {
			t.Errorf("%+v: function %v", v, l.Segments[0].Function)
		}
	}
}

func TestModelCatalogEmitted(t *testing.T) {
	data, err := Encode(level.NewCubeLevel("cube"), Version{1, 25})
	must(t, err)

	gameStart, _ := directory(data)
	pos := gameStart + int(le32(data, gameStart+4))
	if string(data[pos:pos+5]) != "cube\x00" {
		t.Fatalf("level name %q", data[pos:pos+5])
	}
	pos += 5
	if count := binary.LittleEndian.Uint16(data[pos:]); count != 85 {
		t.Errorf("model names count %d", count)
	}
	pos += 2
	if name := utils.BytesToString(data[pos : pos+ModelNameSize]); name != "robot09.pof" {
		t.Errorf("first model name %q", name)
	}
	last := pos + 84*ModelNameSize
	if name := utils.BytesToString(data[last : last+ModelNameSize]); name != ModelNamePad {
		t.Errorf("last model name %q", name)
	}
}

func TestVersionGating(t *testing.T) {
	for _, container := range []int32{1, 2, 8, 9, 27} {
		data, err := Encode(level.NewCubeLevel("gate"), Version{Container: container})
		if err != nil {
			t.Fatalf("Encode %d: %v", container, err)
		}
		l, err := Decode(data)
		if err != nil {
			t.Errorf("Decode container %d: %v", container, err)
			continue
		}
		if l.ContainerVersion != container {
			t.Errorf("decoded container %d; expected %d", l.ContainerVersion, container)
		}
	}

	data, err := Encode(level.NewCubeLevel("gate"), Version{Container: 1})
	must(t, err)
	for _, container := range []int32{0, 28, -1} {
		bad := append([]byte{}, data...)
		putLE32(bad, 4, container)
		if _, err := Decode(bad); !errors.Is(err, ErrUnsupportedVersion) {
			t.Errorf("container %d error %v; expected ErrUnsupportedVersion", container, err)
		}
	}

	gameStart, _ := directory(data)
	for _, test := range []struct {
		name   string
		patch  func([]byte)
		expect error
	}{
		{"magic", func(b []byte) { b[0] = 'X' }, ErrBadMagic},
		{"signature", func(b []byte) { putLE16(b, gameStart, 0x1234) }, ErrBadGameDataSignature},
		{"game version low", func(b []byte) { putLE16(b, gameStart+2, 21) }, ErrGameDataVersion},
		{"game version high", func(b []byte) { putLE16(b, gameStart+2, 26) }, ErrGameDataVersion},
		{"game version zero", func(b []byte) { putLE16(b, gameStart+2, 0) }, ErrGameDataVersion},
	} {
		bad := append([]byte{}, data...)
		test.patch(bad)
		l, err := Decode(bad)
		if !errors.Is(err, test.expect) {
			t.Errorf("%s: error %v; expected %v", test.name, err, test.expect)
		}
		if l != nil {
			t.Errorf("%s: partial level returned", test.name)
		}
	}

	bad := append([]byte{0xff}, data[1:]...)
	if _, err := Decode(bad); err == nil || !strings.Contains(err.Error(), `\xffVLP`) {
		t.Errorf("bad magic error %v", err)
	}

	for _, size := range []int{6, 40} {
		if _, err := Decode(data[:size]); !errors.Is(err, ErrTruncated) {
			t.Errorf("truncated to %d: error %v", size, err)
		}
	}
}

func TestWriteErrors(t *testing.T) {
	l := level.NewCubeLevel("errors")
	if _, err := Encode(l, Version{1, 30}); !errors.Is(err, ErrGameDataVersion) {
		t.Errorf("legacy game version 30 error %v", err)
	}
	if _, err := Encode(l, Version{Container: 28}); !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("container 28 error %v", err)
	}

	tr := l.AddTrigger(level.TriggerOpenDoor)
	for i := 0; i <= level.MaxTriggerTargets; i++ {
		tr.Targets = append(tr.Targets, l.Segments[0].Sides[0])
	}
	if _, err := Encode(l, Version{Container: 1}); err == nil {
		t.Errorf("expected error for trigger with %d targets", len(tr.Targets))
	}
	tr.Targets = nil

	for _, test := range []struct {
		name  string
		v     Version
		apply func(l *level.Level)
	}{
		{"reactor targets", Version{Container: 8}, func(l *level.Level) {
			for i := 0; i <= level.MaxTriggerTargets; i++ {
				l.ReactorTriggerTargets = append(l.ReactorTriggerTargets, l.Segments[0].Sides[i%level.SidesPerSegment])
			}
		}},
		{"palette name", Version{Container: 8}, func(l *level.Level) { l.PaletteName = "verylongpalette.256" }},
		{"level name", Version{Container: 1}, func(l *level.Level) { l.Name = strings.Repeat("N", MaxLevelNameLength) }},
		{"level name newline", Version{Container: 8}, func(l *level.Level) { l.Name = strings.Repeat("N", 40) }},
		{"second pass value", Version{Container: 8}, func(l *level.Level) { l.Segments[0].Value = 300 }},
		{"second pass negative value", Version{Container: 27}, func(l *level.Level) { l.Segments[0].Value = -129 }},
	} {
		l := level.NewCubeLevel("errors")
		test.apply(l)
		if _, err := Encode(l, test.v); err == nil {
			t.Errorf("%s: expected error", test.name)
		}
	}
}

func TestWriteLimits(t *testing.T) {
	l := level.NewCubeLevel(strings.Repeat("N", MaxLevelNameLength-1))
	l.PaletteName = "palette12.256"
	l.Segments[0].Value = -5
	for i := 0; i < level.MaxTriggerTargets; i++ {
		l.ReactorTriggerTargets = append(l.ReactorTriggerTargets, l.Segments[0].Sides[i%level.SidesPerSegment])
	}

	for _, v := range []Version{{1, 25}, {5, 32}, {8, 32}, {27, 40}} {
		data, err := Encode(l, v)
		if err != nil {
			t.Fatalf("%+v: Encode: %v", v, err)
		}
		got, err := Decode(data)
		if err != nil {
			t.Fatalf("%+v: Decode: %v", v, err)
		}
		if got.Name != l.Name {
			t.Errorf("%+v: name %q", v, got.Name)
		}
		if v.Has(PaletteName) && got.PaletteName != l.PaletteName {
			t.Errorf("%+v: palette %q", v, got.PaletteName)
		}
		if got.Segments[0].Value != -5 {
			t.Errorf("%+v: segment value %d", v, got.Segments[0].Value)
		}
		if len(got.ReactorTriggerTargets) != level.MaxTriggerTargets {
			t.Errorf("%+v: %d reactor targets", v, len(got.ReactorTriggerTargets))
		}
		if _, dir := directory(data); dir["reactor"].Count != 1 {
			t.Errorf("%+v: %d reactor records", v, dir["reactor"].Count)
		}
	}

	// inline special data keeps full 16 bit value
	l.Segments[0].Value = 300
	data, err := Encode(l, Version{1, 25})
	must(t, err)
	got, err := Decode(data)
	must(t, err)
	if got.Segments[0].Value != 300 {
		t.Errorf("legacy segment value %d", got.Segments[0].Value)
	}
}

func TestSecretReturnOrientLayout(t *testing.T) {
	l := level.NewCubeLevel("secret")
	l.SecretReturnSegment = l.Segments[0]
	l.SecretReturnOrient = fixed.Matrix{
		Right:   fixed.NewVector(1, 0, 0),
		Up:      fixed.NewVector(0, 3, 0),
		Forward: fixed.NewVector(0, 0, 2),
	}
	data, err := Encode(l, Version{8, 32})
	must(t, err)

	// magic, version, offsets, placeholder, palette line, reactor time and
	// strength, animated light count, secret segment
	pos := 4 + 4 + 8 + 7 + len(l.PaletteName) + 1 + 4 + 4 + 4 + 4
	if le32(data, pos-4) != 0 {
		t.Fatalf("secret return segment %d", le32(data, pos-4))
	}
	if got := le32(data, pos+12+8); got != int32(fixed.FromInt(2)) {
		t.Errorf("second vector z %d; expected forward", got)
	}
	if got := le32(data, pos+24+4); got != int32(fixed.FromInt(3)) {
		t.Errorf("third vector y %d; expected up", got)
	}

	got, err := Decode(data)
	must(t, err)
	if got.SecretReturnOrient != l.SecretReturnOrient {
		t.Errorf("orientation %+v", got.SecretReturnOrient)
	}
}

func TestDeferredLinks(t *testing.T) {
	for _, v := range []Version{{1, 25}, {27, 40}} {
		l := level.NewCubeLevel("links")
		seg := l.Segments[0]
		walls := make([]*level.Wall, 4)
		for i := range walls {
			w, err := l.AddWall(seg.Sides[i])
			must(t, err)
			walls[i] = w
		}
		level.LinkWalls(walls[0], walls[3])
		tr := l.AddTrigger(level.TriggerExit)
		walls[1].SetTrigger(tr)

		data, err := Encode(l, v)
		must(t, err)

		// only first wall of pair references other one
		gameStart, dir := directory(data)
		linkedPos := gameStart + int(dir["walls"].Offset) + 3*wallRecordSize + 12
		if le32(data, linkedPos) != 0 {
			t.Fatalf("%+v: unexpected wall 3 link %d", v, le32(data, linkedPos))
		}
		putLE32(data, linkedPos, -1)

		got, err := Decode(data)
		if err != nil {
			t.Fatalf("%+v: Decode: %v", v, err)
		}
		if got.Walls[0].LinkedWall != got.Walls[3] || got.Walls[3].LinkedWall != got.Walls[0] {
			t.Errorf("%+v: wall 0 and wall 3 are not linked", v)
		}
		gt := got.Triggers[0]
		if len(gt.ConnectedWalls) != 1 || gt.ConnectedWalls[0] != got.Walls[1] || got.Walls[1].Trigger != gt {
			t.Errorf("%+v: trigger connected walls %v", v, wallIndices(got, gt.ConnectedWalls))
		}
		if len(got.Walls[1].ControllingTriggers) != 0 {
			t.Errorf("%+v: wall 1 has controlling triggers", v)
		}
		for i, w := range got.Walls {
			if w.Side != got.Segments[0].Sides[i] || w.Side.Wall != w {
				t.Errorf("%+v: wall %d side mismatch", v, i)
			}
		}
	}
}

func TestToleratedReferences(t *testing.T) {
	v := Version{8, 32}
	data, err := Encode(buildLevel(t, v), v)
	must(t, err)
	gameStart, dir := directory(data)

	// matcen record: two flag words, hit points, interval, segment
	matcenSegPos := gameStart + int(dir["matcens"].Offset) + 16
	putLE16(data, matcenSegPos, 999)

	// reactor record: count, 10 segments, 10 sides
	reactorSidePos := gameStart + int(dir["reactor"].Offset) + 2 + 20 + 2
	putLE16(data, reactorSidePos, 9)

	l, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(l.MatCenters) != 1 || l.MatCenters[0].Segment != nil {
		t.Errorf("matcen with invalid segment must be kept unbound")
	}
	for i, seg := range l.Segments {
		if seg.MatCenter != nil {
			t.Errorf("segment %d has matcen", i)
		}
	}
	if targets := keysOf(l, l.ReactorTriggerTargets); len(targets) != 1 || targets[0] != (sideKey{2, level.SideTop}) {
		t.Errorf("reactor targets %v", targets)
	}
	if err := l.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestToleratedChildIndex(t *testing.T) {
	l := level.NewLevel()
	a := l.AddCube(fixed.Vector{}, 10)
	b := l.AddCube(fixed.NewVector(0, 0, 20), 10)
	must(t, l.ConnectSegments(a.Sides[level.SideFront], b.Sides[level.SideBack]))
	b.Sides[level.SideTop].BaseTexture = 77
	b.Sides[level.SideBottom].UVLs[2].U = fixed.FromInt(3)

	data, err := Encode(l, Version{8, 32})
	must(t, err)

	// tag, vertex count, segment count, 16 vertices, then segment 0 side mask
	maskPos := int(le32(data, 8)) + 1 + 2 + 2 + 16*12
	if mask := data[maskPos]; mask != 1<<level.SideFront {
		t.Fatalf("segment 0 side mask 0x%x", mask)
	}
	putLE16(data, maskPos+1, 999)

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	ga, gb := got.Segments[0], got.Segments[1]
	if ga.Sides[level.SideFront].IsConnected() {
		t.Errorf("out of range child is connected")
	}
	if gb.Sides[level.SideTop].BaseTexture != 77 {
		t.Errorf("segment 1 top texture %d; expected 77", gb.Sides[level.SideTop].BaseTexture)
	}
	if gb.Sides[level.SideBottom].UVLs[2].U != fixed.FromInt(3) {
		t.Errorf("segment 1 bottom uvl %v", gb.Sides[level.SideBottom].UVLs[2])
	}
	if gb.Vertices[0] != got.Vertices[8] {
		t.Errorf("segment 1 vertices misread")
	}
	if gb.Sides[level.SideBack].Connection() != ga {
		t.Errorf("segment 1 back side lost its link")
	}
}

func TestSideSentinels(t *testing.T) {
	for _, v := range []Version{{1, 25}, {27, 40}} {
		l := level.NewCubeLevel("sides")
		side := l.Segments[0].Sides[level.SideRight]

		maskPos := func(data []byte) int {
			pos := int(le32(data, 8)) + 1 + 2 + 2 + 8*12
			if v.Has(SegmentOwner) {
				pos += 2
			}
			return pos
		}

		for _, test := range []struct {
			apply func()
			mask  byte
			exit  bool
		}{
			{func() {}, 0, false},
			{side.SetExit, 1 << level.SideRight, true},
			{side.Disconnect, 0, false},
		} {
			test.apply()
			data, err := Encode(l, v)
			must(t, err)
			if mask := data[maskPos(data)]; mask != test.mask {
				t.Errorf("%+v: side mask 0x%x; expected 0x%x", v, mask, test.mask)
			}
			got, err := Decode(data)
			must(t, err)
			gotSide := got.Segments[0].Sides[level.SideRight]
			if gotSide.IsExit() != test.exit || gotSide.IsBoundary() == test.exit {
				t.Errorf("%+v: side state exit=%v boundary=%v", v, gotSide.IsExit(), gotSide.IsBoundary())
			}
		}
	}
}

func TestUnknownObjectVariant(t *testing.T) {
	v := Version{8, 32}
	l := level.NewCubeLevel("objects")
	o := l.AddObject(level.ObjectRobot, 0, l.Segments[0])
	o.Movement.Type = 2
	if _, err := Encode(l, v); !errors.Is(err, ErrUnknownObjectVariant) {
		t.Errorf("writer error %v", err)
	}

	o.Movement.Type = level.MovementNone
	data, err := Encode(l, v)
	must(t, err)
	gameStart, dir := directory(data)
	// type, id, control type, movement type
	data[gameStart+int(dir["objects"].Offset)+3] = 2
	if _, err := Decode(data); !errors.Is(err, ErrUnknownObjectVariant) {
		t.Errorf("reader error %v", err)
	}
}
