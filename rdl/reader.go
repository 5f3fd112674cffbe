package rdl

import (
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mogaika/descent_level_browser/fixed"
	"github.com/mogaika/descent_level_browser/level"
	"github.com/mogaika/descent_level_browser/logger"
	"github.com/mogaika/descent_level_browser/utils"
)

const (
	Magic             = "LVLP"
	GameDataSignature = 0x6705

	MaxPaletteNameLength = 13
	MaxLevelNameLength   = 36
	MineFileNameSize     = 15

	sectionAbsent = -1
	sideExit      = -2
	noMatCenter   = 0xFF
	noTrigger     = 0xFF
	noWallNarrow  = 0xFF
	noWallWide    = 0x7FF
	specialBit    = 1 << level.SidesPerSegment
	overlayBit    = 0x8000
	maxCount      = 0x7fff
)

type section struct {
	Offset int32
	Count  int32
	Size   int32
}

func (s section) present() bool {
	return s.Offset != sectionAbsent && s.Count > 0
}

type gameDirectory struct {
	Signature    int16
	Version      int16
	Size         int32
	MineFileName string
	LevelNumber  int32
	PlayerOffset int32
	PlayerSize   int32

	Objects           section
	Walls             section
	Doors             section
	Triggers          section
	Links             section
	ReactorTriggers   section
	MatCenters        section
	DeltaLightIndices section
	DeltaLights       section
	PowerupMatCenters section

	Fog [level.FogPresetsCount]level.FogPreset
}

type sideRef struct {
	side  *level.Side
	index int
}

type headerSideRef struct {
	light         *level.AnimatedLight
	segment, side int
}

type reader struct {
	sr        *utils.StreamReader
	family    familyStrategy
	version   Version
	base      int64
	gameStart int64
	dir       gameDirectory
	l         *level.Level

	// deferred link tables, indices as stored in file
	headerSides    []headerSideRef
	secretReturn   int
	sideWalls      []sideRef
	segmentMatCens []int
	wallLinks      []int
	wallTriggers   []int
	wallTriggerLen int
}

func newReader(r io.ReadSeeker, family familyStrategy) *reader {
	sr := utils.NewStreamReader(r)
	return &reader{
		sr:     sr,
		family: family,
		base:   sr.Pos(),
		l:      level.NewLevel(),
	}
}

func (rd *reader) log() *logrus.Entry {
	return logger.Log.WithFields(logrus.Fields{
		"container": rd.version.Container,
		"game":      rd.version.Game,
	})
}

func (rd *reader) streamErr(what string) error {
	if err := rd.sr.Err(); err != nil {
		return wrapStreamError(err, "Failed to read %s", what)
	}
	return nil
}

func (rd *reader) read() (*level.Level, error) {
	mineOffset, gameOffset, err := rd.readHeader()
	if err != nil {
		return nil, err
	}

	rd.sr.Seek(rd.base + int64(mineOffset))
	if err := rd.readMine(); err != nil {
		return nil, err
	}
	rd.resolveHeaderRefs()

	rd.gameStart = rd.base + int64(gameOffset)
	rd.sr.Seek(rd.gameStart)
	if err := rd.readGameData(); err != nil {
		return nil, err
	}

	rd.l.ContainerVersion = rd.version.Container
	rd.l.GameVersion = rd.version.Game
	return rd.l, nil
}

func (rd *reader) readHeader() (int32, int32, error) {
	sr := rd.sr
	l := rd.l

	magic := string(sr.Read(len(Magic)))
	rd.version.Container = sr.ReadLI32()
	if err := rd.streamErr("header"); err != nil {
		return 0, 0, err
	}
	if magic != Magic {
		return 0, 0, errors.Wrapf(ErrBadMagic, "got %s", utils.DumpToOneLineString([]byte(magic)))
	}
	// game data version is known only after mine data
	if err := checkFamilyContainer(rd.family.Family(), rd.version); err != nil {
		return 0, 0, err
	}

	mineOffset := sr.ReadLI32()
	gameOffset := sr.ReadLI32()

	if rd.version.Has(HeaderPlaceholder) {
		sr.Skip(7)
	}
	if rd.version.Has(HostageTextOffset) {
		sr.ReadLI32()
	}
	if rd.version.Has(PaletteName) {
		l.PaletteName = sr.ReadLineString(MaxPaletteNameLength + 1)
	}
	if rd.version.Has(ReactorTime) {
		l.ReactorTime = sr.ReadLI32()
	}
	if rd.version.Has(ReactorStrength) {
		l.ReactorStrength = sr.ReadLI32()
	}
	if rd.version.Has(AnimatedLights) {
		count := sr.ReadLI32()
		if err := checkCount(count, "animated lights"); err != nil {
			return 0, 0, err
		}
		for i := int32(0); i < count; i++ {
			ref := headerSideRef{segment: int(sr.ReadLI16()), side: int(sr.ReadLI16())}
			ref.light = &level.AnimatedLight{
				Mask:  sr.ReadLU32(),
				Timer: fixed.Fix(sr.ReadLI32()),
				Delay: fixed.Fix(sr.ReadLI32()),
			}
			l.AnimatedLights = append(l.AnimatedLights, ref.light)
			rd.headerSides = append(rd.headerSides, ref)
		}
	}
	rd.secretReturn = -1
	if rd.version.Has(SecretReturn) {
		rd.secretReturn = int(sr.ReadLI32())
		l.SecretReturnOrient = rd.readSecretReturnOrient()
	}

	return mineOffset, gameOffset, rd.streamErr("header")
}

func checkCount(count int32, what string) error {
	if count < 0 || count > maxCount {
		return errors.Wrapf(ErrTruncated, "invalid %s count %d", what, count)
	}
	return nil
}

func (rd *reader) readVector() fixed.Vector {
	return fixed.Vector{
		X: fixed.Fix(rd.sr.ReadLI32()),
		Y: fixed.Fix(rd.sr.ReadLI32()),
		Z: fixed.Fix(rd.sr.ReadLI32()),
	}
}

func (rd *reader) readMatrix() fixed.Matrix {
	return fixed.Matrix{Right: rd.readVector(), Up: rd.readVector(), Forward: rd.readVector()}
}

// header stores secret return orientation as right, forward, up
func (rd *reader) readSecretReturnOrient() fixed.Matrix {
	var m fixed.Matrix
	m.Right = rd.readVector()
	m.Forward = rd.readVector()
	m.Up = rd.readVector()
	return m
}

func (rd *reader) segment(index int) *level.Segment {
	if index < 0 || index >= len(rd.l.Segments) {
		return nil
	}
	return rd.l.Segments[index]
}

func (rd *reader) side(segment, side int) *level.Side {
	seg := rd.segment(segment)
	if seg == nil || side < 0 || side >= level.SidesPerSegment {
		return nil
	}
	return seg.Sides[side]
}

func (rd *reader) readMine() error {
	sr := rd.sr
	l := rd.l

	if tag := sr.ReadU8(); tag != 0 {
		rd.log().Debugf("[rdl] unexpected mine data tag %d", tag)
	}
	vertsCount := int32(sr.ReadLI16())
	segsCount := int32(sr.ReadLI16())
	if err := rd.streamErr("mine data"); err != nil {
		return err
	}
	if err := checkCount(vertsCount, "vertices"); err != nil {
		return err
	}
	if err := checkCount(segsCount, "segments"); err != nil {
		return err
	}

	for i := int32(0); i < vertsCount; i++ {
		l.AddVertex(rd.readVector())
	}

	// every segment must exist before children are resolved
	rd.segmentMatCens = make([]int, segsCount)
	for i := range rd.segmentMatCens {
		l.AddSegment([level.VerticesPerSegment]*level.Vertex{})
		rd.segmentMatCens[i] = -1
	}

	for i, seg := range l.Segments {
		rd.readSegment(i, seg)
		if err := rd.streamErr("segments"); err != nil {
			return err
		}
	}

	if rd.version.Has(SpecialSecondPass) {
		for i, seg := range l.Segments {
			rd.readSegmentSpecial2(i, seg)
		}
	}
	return rd.streamErr("segments special data")
}

func (rd *reader) readSegment(index int, seg *level.Segment) {
	sr := rd.sr

	if rd.version.Has(SegmentOwner) {
		seg.Owner = sr.ReadU8()
		seg.Group = sr.ReadI8()
	}

	mask := sr.ReadU8()
	var open [level.SidesPerSegment]bool
	switch {
	case rd.version.Has(SpecialInlineAfter):
		open = rd.readChildren(index, seg, mask)
		rd.readSegmentVertices(index, seg)
		if mask&specialBit != 0 {
			rd.readSegmentSpecial(index, seg)
		}
	case rd.version.Has(SpecialInlineBefore):
		if mask&specialBit != 0 {
			rd.readSegmentSpecial(index, seg)
		}
		rd.readSegmentVertices(index, seg)
		open = rd.readChildren(index, seg, mask)
	default:
		open = rd.readChildren(index, seg, mask)
		rd.readSegmentVertices(index, seg)
	}

	if rd.version.Has(ShortStaticLight) {
		seg.StaticLight = fixed.Fix(sr.ReadLU16()) << 4
	}

	hasWall := [level.SidesPerSegment]bool{}
	wallMask := sr.ReadU8()
	for iSide, side := range seg.Sides {
		if wallMask&(1<<uint(iSide)) == 0 {
			continue
		}
		var wallNum, noWall int
		if rd.version.Has(WideWallNumbers) {
			wallNum, noWall = int(sr.ReadLU16()), noWallWide
		} else {
			wallNum, noWall = int(sr.ReadU8()), noWallNarrow
		}
		if wallNum != noWall {
			hasWall[iSide] = true
			rd.sideWalls = append(rd.sideWalls, sideRef{side: side, index: wallNum})
		}
	}

	// texture presence follows raw children, dropped links keep the layout
	for iSide, side := range seg.Sides {
		if !open[iSide] || hasWall[iSide] {
			rd.readSideTexture(side)
		}
	}
}

// readChildren returns sides having child value other than -1 on the wire
func (rd *reader) readChildren(index int, seg *level.Segment, mask uint8) [level.SidesPerSegment]bool {
	var open [level.SidesPerSegment]bool
	for iSide, side := range seg.Sides {
		if mask&(1<<uint(iSide)) == 0 {
			continue
		}
		child := int(rd.sr.ReadLI16())
		open[iSide] = child != -1
		if child == sideExit {
			side.SetExit()
		} else if target := rd.segment(child); target != nil {
			side.Connect(target)
		} else if child != -1 {
			rd.log().Debugf("[rdl] segment %d side %d: child %d out of range", index, iSide, child)
		}
	}
	return open
}

func (rd *reader) readSegmentVertices(index int, seg *level.Segment) {
	for i := 0; i < level.VerticesPerSegment; i++ {
		iVert := int(rd.sr.ReadLI16())
		if iVert < 0 || iVert >= len(rd.l.Vertices) {
			rd.log().Debugf("[rdl] segment %d: vertex %d out of range", index, iVert)
			continue
		}
		seg.SetVertex(i, rd.l.Vertices[iVert])
	}
}

func (rd *reader) readSegmentSpecial(index int, seg *level.Segment) {
	seg.Function = level.SegmentFunction(rd.sr.ReadU8())
	if matcen := rd.sr.ReadU8(); matcen != noMatCenter {
		rd.segmentMatCens[index] = int(matcen)
	}
	seg.Value = rd.sr.ReadLI16()
}

func (rd *reader) readSegmentSpecial2(index int, seg *level.Segment) {
	sr := rd.sr
	seg.Function = level.SegmentFunction(sr.ReadU8())
	if matcen := sr.ReadU8(); matcen != noMatCenter {
		rd.segmentMatCens[index] = int(matcen)
	}
	seg.Value = int16(sr.ReadI8())
	seg.Flags = sr.ReadU8()
	if rd.version.Has(SegmentProps) {
		seg.Props = sr.ReadU8()
	}
	seg.StaticLight = fixed.Fix(sr.ReadLI32())
}

func (rd *reader) readSideTexture(side *level.Side) {
	sr := rd.sr
	base := sr.ReadLU16()
	side.BaseTexture = base &^ overlayBit
	side.OverlayTexture = 0
	if base&overlayBit != 0 {
		side.OverlayTexture = sr.ReadLU16()
	}
	for i := range side.UVLs {
		side.UVLs[i] = level.UVL{
			U: fixed.Fix(sr.ReadLI16()) << 5,
			V: fixed.Fix(sr.ReadLI16()) << 5,
			L: fixed.Fix(sr.ReadLU16()) << 1,
		}
	}
}

func (rd *reader) resolveHeaderRefs() {
	for i, ref := range rd.headerSides {
		side := rd.side(ref.segment, ref.side)
		if side == nil {
			rd.log().Debugf("[rdl] animated light %d: segment %d side %d out of range", i, ref.segment, ref.side)
			continue
		}
		ref.light.Side = side
		side.AnimatedLight = ref.light
	}
	if rd.secretReturn != -1 {
		if rd.l.SecretReturnSegment = rd.segment(rd.secretReturn); rd.l.SecretReturnSegment == nil {
			rd.log().Debugf("[rdl] secret return segment %d out of range", rd.secretReturn)
		}
	}
}

func (rd *reader) readSection() section {
	return section{
		Offset: rd.sr.ReadLI32(),
		Count:  rd.sr.ReadLI32(),
		Size:   rd.sr.ReadLI32(),
	}
}

func (rd *reader) readDirectory() error {
	sr := rd.sr
	d := &rd.dir

	d.Size = sr.ReadLI32()
	d.MineFileName = sr.ReadStringBuffer(MineFileNameSize)
	d.LevelNumber = sr.ReadLI32()
	d.PlayerOffset = sr.ReadLI32()
	d.PlayerSize = sr.ReadLI32()
	d.Objects = rd.readSection()
	d.Walls = rd.readSection()
	d.Doors = rd.readSection()
	d.Triggers = rd.readSection()
	d.Links = rd.readSection()
	d.ReactorTriggers = rd.readSection()
	d.MatCenters = rd.readSection()
	if rd.version.Has(DeltaLights) {
		d.DeltaLightIndices = rd.readSection()
		d.DeltaLights = rd.readSection()
	}
	if rd.version.Has(PowerupMatCenters) {
		d.PowerupMatCenters = rd.readSection()
	}
	if rd.version.Has(FogPresets) {
		for i := range d.Fog {
			d.Fog[i].Color = [3]uint8{sr.ReadU8(), sr.ReadU8(), sr.ReadU8()}
			d.Fog[i].Density = sr.ReadU8()
		}
	}
	return rd.streamErr("game data directory")
}

// seekSection positions stream on section data, false if section is absent
func (rd *reader) seekSection(s section) bool {
	if !s.present() {
		return false
	}
	rd.sr.Seek(rd.gameStart + int64(s.Offset))
	return true
}

// skipRecordTail skips bytes of record unknown to this version
func (rd *reader) skipRecordTail(s section, read int) {
	if int(s.Size) > read {
		rd.sr.Skip(int64(int(s.Size) - read))
	}
}

func (rd *reader) readGameData() error {
	sr := rd.sr
	l := rd.l

	signature := sr.ReadLI16()
	rd.version.Game = sr.ReadLI16()
	if err := rd.streamErr("game data header"); err != nil {
		return err
	}
	if signature != GameDataSignature {
		return errors.Wrapf(ErrBadGameDataSignature, "got 0x%x", uint16(signature))
	}
	if err := rd.family.checkVersion(rd.version); err != nil {
		return err
	}
	rd.dir.Signature = signature
	rd.dir.Version = rd.version.Game

	if err := rd.readDirectory(); err != nil {
		return err
	}
	l.LevelNumber = rd.dir.LevelNumber
	l.FogPresets = rd.dir.Fog

	sr.Seek(rd.gameStart + int64(rd.dir.Size))
	if rd.version.Has(LevelName) {
		if rd.version.Has(LevelNameNewline) {
			l.Name = sr.ReadLineString(MaxLevelNameLength)
		} else {
			l.Name = sr.ReadZString(MaxLevelNameLength)
		}
	}
	if rd.version.Has(ModelNames) {
		count := int32(sr.ReadLI16())
		if err := checkCount(count, "model names"); err != nil {
			return err
		}
		sr.Skip(int64(count) * ModelNameSize)
	}
	if err := rd.streamErr("level name"); err != nil {
		return err
	}

	if err := rd.readObjects(); err != nil {
		return err
	}
	if err := rd.readWalls(); err != nil {
		return err
	}
	rd.resolveWallLinks()
	rd.resolveSideWalls()

	if err := rd.readTriggers(); err != nil {
		return err
	}
	rd.resolveWallTriggers()

	if err := rd.readReactorTriggers(); err != nil {
		return err
	}
	if err := rd.readMatCenters(rd.dir.MatCenters, "robot"); err != nil {
		return err
	}
	if err := rd.family.readTrailer(rd); err != nil {
		return err
	}
	rd.checkSegmentMatCens()
	return nil
}

func (rd *reader) readWalls() error {
	sr := rd.sr
	s := rd.dir.Walls
	if !rd.seekSection(s) {
		return nil
	}
	if err := checkCount(s.Count, "walls"); err != nil {
		return err
	}

	for i := 0; i < int(s.Count); i++ {
		segNum, sideNum := int(sr.ReadLI32()), int(sr.ReadLI32())
		w := &level.Wall{
			Side:      rd.side(segNum, sideNum),
			HitPoints: fixed.Fix(sr.ReadLI32()),
		}
		if w.Side == nil {
			rd.log().Debugf("[rdl] wall %d: segment %d side %d out of range", i, segNum, sideNum)
		}
		rd.wallLinks = append(rd.wallLinks, int(sr.ReadLI32()))
		w.Type = level.WallType(sr.ReadU8())
		w.Flags = sr.ReadU8()
		w.State = sr.ReadU8()
		rd.wallTriggers = append(rd.wallTriggers, int(sr.ReadU8()))
		w.ClipNum = sr.ReadI8()
		w.Keys = sr.ReadU8()
		sr.ReadI8() // controlling trigger, rebuilt from trigger targets
		w.CloakValue = sr.ReadI8()
		rd.skipRecordTail(s, wallRecordSize)

		rd.l.Walls = append(rd.l.Walls, w)
	}
	return rd.streamErr("walls")
}

func (rd *reader) resolveWallLinks() {
	walls := rd.l.Walls
	for i, w := range walls {
		n := rd.wallLinks[i]
		if n == -1 {
			continue
		}
		if n < 0 || n >= len(walls) || n == i {
			rd.log().Debugf("[rdl] wall %d: linked wall %d out of range", i, n)
			continue
		}
		other := walls[n]
		if w.LinkedWall == other {
			continue
		}
		if w.LinkedWall != nil || other.LinkedWall != nil {
			rd.log().Debugf("[rdl] wall %d: linked wall %d already paired", i, n)
			continue
		}
		level.LinkWalls(w, other)
	}
}

// side wall numbers from mine data are bound to walls, walls records
// referencing sides that do not reference them back get detached
func (rd *reader) resolveSideWalls() {
	walls := rd.l.Walls
	for _, ref := range rd.sideWalls {
		if ref.index < 0 || ref.index >= len(walls) {
			rd.log().Debugf("[rdl] segment side %d: wall %d out of range", ref.side.Num, ref.index)
			continue
		}
		w := walls[ref.index]
		if w.Side == nil {
			w.Side = ref.side
		}
		if w.Side != ref.side || ref.side.Wall != nil {
			rd.log().Debugf("[rdl] wall %d: side reference mismatch", ref.index)
			continue
		}
		ref.side.Wall = w
	}
	for i, w := range walls {
		if w.Side == nil {
			continue
		}
		if w.Side.Wall == nil {
			w.Side.Wall = w
		} else if w.Side.Wall != w {
			rd.log().Debugf("[rdl] wall %d: side already has other wall, detached", i)
			w.Side = nil
		}
	}
}

func (rd *reader) readTrigger(index int) *level.Trigger {
	sr := rd.sr
	t := &level.Trigger{Type: level.TriggerType(sr.ReadU8())}

	var count int
	if rd.version.Has(ModernTriggers) {
		t.Flags = uint16(sr.ReadU8())
		count = int(sr.ReadI8())
		sr.ReadU8()
		t.Value = fixed.Fix(sr.ReadLI32())
		t.Time = fixed.Fix(sr.ReadLI32())
	} else {
		t.Flags = sr.ReadLU16()
		t.Value = fixed.Fix(sr.ReadLI32())
		t.Time = fixed.Fix(sr.ReadLI32())
		sr.ReadU8()
		count = int(sr.ReadLI16())
	}

	var segs, sides [level.MaxTriggerTargets]int
	for i := range segs {
		segs[i] = int(sr.ReadLI16())
	}
	for i := range sides {
		sides[i] = int(sr.ReadLI16())
	}

	if count < 0 || count > level.MaxTriggerTargets {
		rd.log().Debugf("[rdl] trigger %d: invalid targets count %d", index, count)
		if count < 0 {
			count = 0
		} else {
			count = level.MaxTriggerTargets
		}
	}
	for i := 0; i < count; i++ {
		side := rd.side(segs[i], sides[i])
		if side == nil {
			rd.log().Debugf("[rdl] trigger %d: target segment %d side %d out of range", index, segs[i], sides[i])
			continue
		}
		t.AddTarget(side)
	}
	return t
}

func (rd *reader) triggerRecordSize() int {
	if rd.version.Has(ModernTriggers) {
		return triggerRecordSize
	}
	return legacyTriggerRecordSize
}

func (rd *reader) readTriggers() error {
	s := rd.dir.Triggers
	if s.Offset == sectionAbsent {
		return nil
	}
	if err := checkCount(s.Count, "triggers"); err != nil {
		return err
	}
	rd.sr.Seek(rd.gameStart + int64(s.Offset))

	for i := 0; i < int(s.Count); i++ {
		rd.l.Triggers = append(rd.l.Triggers, rd.readTrigger(i))
		rd.skipRecordTail(s, rd.triggerRecordSize())
	}
	rd.wallTriggerLen = int(s.Count)
	if err := rd.streamErr("triggers"); err != nil {
		return err
	}
	return rd.family.readTriggerExtension(rd)
}

func (rd *reader) readObjectTriggers() error {
	sr := rd.sr
	count := sr.ReadLI32()
	if err := rd.streamErr("object triggers"); err != nil {
		return err
	}
	if err := checkCount(count, "object triggers"); err != nil {
		return err
	}

	triggers := make([]*level.Trigger, count)
	for i := range triggers {
		triggers[i] = rd.readTrigger(rd.wallTriggerLen + i)
	}
	for i, t := range triggers {
		iObj := int(sr.ReadLI16())
		if iObj < 0 || iObj >= len(rd.l.Objects) {
			rd.log().Debugf("[rdl] object trigger %d: object %d out of range", i, iObj)
		} else {
			t.BindObject(rd.l.Objects[iObj])
		}
		rd.l.Triggers = append(rd.l.Triggers, t)
	}
	return rd.streamErr("object triggers")
}

func (rd *reader) resolveWallTriggers() {
	for i, w := range rd.l.Walls {
		n := rd.wallTriggers[i]
		if n == noTrigger {
			continue
		}
		if n >= rd.wallTriggerLen {
			rd.log().Debugf("[rdl] wall %d: trigger %d out of range", i, n)
			continue
		}
		w.SetTrigger(rd.l.Triggers[n])
	}
}

func (rd *reader) readReactorTriggers() error {
	sr := rd.sr
	s := rd.dir.ReactorTriggers
	if !rd.seekSection(s) {
		return nil
	}
	if err := checkCount(s.Count, "reactor triggers"); err != nil {
		return err
	}

	for i := 0; i < int(s.Count); i++ {
		count := int(sr.ReadLI16())
		var segs, sides [level.MaxTriggerTargets]int
		for j := range segs {
			segs[j] = int(sr.ReadLI16())
		}
		for j := range sides {
			sides[j] = int(sr.ReadLI16())
		}
		rd.skipRecordTail(s, reactorTriggerRecordSize)

		if count > level.MaxTriggerTargets {
			count = level.MaxTriggerTargets
		}
		for j := 0; j < count; j++ {
			side := rd.side(segs[j], sides[j])
			if side == nil {
				// shipped levels reference sides that do not exist
				rd.log().Debugf("[rdl] reactor trigger: segment %d side %d out of range", segs[j], sides[j])
				continue
			}
			rd.l.ReactorTriggerTargets = append(rd.l.ReactorTriggerTargets, side)
		}
	}
	return rd.streamErr("reactor triggers")
}

func (rd *reader) matCenRecordSize() int {
	if rd.version.Has(MatCenterTwoWords) {
		return matCenRecordSize
	}
	return matCenRecordSize - 4
}

func (rd *reader) readMatCenters(s section, kind string) error {
	sr := rd.sr
	if !rd.seekSection(s) {
		return nil
	}
	if err := checkCount(s.Count, kind+" matcens"); err != nil {
		return err
	}

	matcenKind := level.MatCenterRobot
	if kind == "powerup" {
		matcenKind = level.MatCenterPowerup
	}

	for i := 0; i < int(s.Count); i++ {
		m := &level.MatCenter{Kind: matcenKind}
		m.SpawnFlags[0] = sr.ReadLU32()
		if rd.version.Has(MatCenterTwoWords) {
			m.SpawnFlags[1] = sr.ReadLU32()
		}
		m.HitPoints = fixed.Fix(sr.ReadLI32())
		m.Interval = fixed.Fix(sr.ReadLI32())
		segNum := int(sr.ReadLI16())
		sr.ReadLI16() // fuel center number, derived from segments
		rd.skipRecordTail(s, rd.matCenRecordSize())

		if seg := rd.segment(segNum); seg == nil {
			rd.log().Debugf("[rdl] %s matcen %d: segment %d out of range", kind, i, segNum)
		} else if seg.MatCenter != nil {
			rd.log().Debugf("[rdl] %s matcen %d: segment %d already has matcen", kind, i, segNum)
		} else {
			m.Segment = seg
			seg.MatCenter = m
		}
		rd.l.MatCenters = append(rd.l.MatCenters, m)
	}
	return rd.streamErr(kind + " matcens")
}

// matcen records are authoritative, segment matcen numbers are only checked
func (rd *reader) checkSegmentMatCens() {
	robots := rd.l.RobotMatCenters()
	powerups := rd.l.PowerupMatCenters()
	for i, n := range rd.segmentMatCens {
		if n == -1 {
			continue
		}
		seg := rd.l.Segments[i]
		list := robots
		if seg.Function == level.SegmentFunctionPowerupCenter {
			list = powerups
		}
		if n >= len(list) || list[n].Segment != seg {
			rd.log().Debugf("[rdl] segment %d: matcen number %d does not match matcen records", i, n)
		}
	}
}

type deltaLightIndex struct {
	segment, side int
	count, index  int
}

func (rd *reader) readDeltaLights() error {
	sr := rd.sr
	si, sd := rd.dir.DeltaLightIndices, rd.dir.DeltaLights
	if err := checkCount(si.Count, "delta light indices"); err != nil && si.present() {
		return err
	}
	if err := checkCount(sd.Count, "delta lights"); err != nil && sd.present() {
		return err
	}

	indices := make([]deltaLightIndex, 0)
	if rd.seekSection(si) {
		for i := 0; i < int(si.Count); i++ {
			indices = append(indices, deltaLightIndex{
				segment: int(sr.ReadLI16()),
				side:    int(sr.ReadU8()),
				count:   int(sr.ReadU8()),
				index:   int(sr.ReadLI16()),
			})
			rd.skipRecordTail(si, deltaLightIndexRecordSize)
		}
	}

	type rawDelta struct {
		segment, side int
		light         [level.VerticesPerSide]uint8
	}
	deltas := make([]rawDelta, 0)
	if rd.seekSection(sd) {
		for i := 0; i < int(sd.Count); i++ {
			d := rawDelta{segment: int(sr.ReadLI16()), side: int(sr.ReadU8())}
			sr.ReadU8()
			for j := range d.light {
				d.light[j] = sr.ReadU8()
			}
			rd.skipRecordTail(sd, deltaLightRecordSize)
			deltas = append(deltas, d)
		}
	}
	if err := rd.streamErr("delta lights"); err != nil {
		return err
	}

	for i, idx := range indices {
		dl := &level.DynamicLight{Source: rd.side(idx.segment, idx.side)}
		if dl.Source == nil {
			rd.log().Debugf("[rdl] delta light %d: segment %d side %d out of range", i, idx.segment, idx.side)
		} else {
			dl.Source.DynamicLight = dl
		}
		for j := idx.index; j < idx.index+idx.count; j++ {
			if j < 0 || j >= len(deltas) {
				rd.log().Debugf("[rdl] delta light %d: delta %d out of range", i, j)
				continue
			}
			side := rd.side(deltas[j].segment, deltas[j].side)
			if side == nil {
				rd.log().Debugf("[rdl] delta %d: segment %d side %d out of range", j, deltas[j].segment, deltas[j].side)
				continue
			}
			dl.AddDelta(side, deltas[j].light)
		}
		rd.l.DynamicLights = append(rd.l.DynamicLights, dl)
	}
	return nil
}
