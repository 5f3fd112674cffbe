package rdl

import (
	"io"
	"math"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/mogaika/descent_level_browser/fixed"
	"github.com/mogaika/descent_level_browser/level"
	"github.com/mogaika/descent_level_browser/logger"
	"github.com/mogaika/descent_level_browser/utils"
)

const (
	wallRecordSize            = 24
	triggerRecordSize         = 52
	legacyTriggerRecordSize   = 54
	reactorTriggerRecordSize  = 42
	matCenRecordSize          = 20
	deltaLightIndexRecordSize = 6
	deltaLightRecordSize      = 8

	maxNarrowWalls = noWallNarrow
	maxWideWalls   = noWallWide
	maxWallTrigger = noTrigger
	maxMatCenters  = noMatCenter
)

type writer struct {
	sw        *utils.StreamWriter
	family    familyStrategy
	version   Version
	l         *level.Level
	base      int64
	gameStart int64
	dir       gameDirectory

	// index maps, valid for one write
	vertices         map[*level.Vertex]int
	segments         map[*level.Segment]int
	walls            map[*level.Wall]int
	wallTriggers     []*level.Trigger
	wallTriggerIndex map[*level.Trigger]int
	objectTriggers   []*level.Trigger
	objects          map[*level.Object]int
	robotMatCens     []*level.MatCenter
	powerupMatCens   []*level.MatCenter
	matCenIndex      map[*level.MatCenter]int
	fuelCenters      map[*level.Segment]int
}

func newWriter(w io.WriteSeeker, family familyStrategy, l *level.Level, v Version) *writer {
	sw := utils.NewStreamWriter(w)
	return &writer{
		sw:      sw,
		family:  family,
		version: v,
		l:       l,
		base:    sw.Pos(),
	}
}

func (wr *writer) write() error {
	if err := wr.buildIndices(); err != nil {
		return err
	}

	mineOffsetPos := wr.writeHeader()

	mineOffset := wr.sw.Pos() - wr.base
	if err := wr.writeMine(); err != nil {
		return err
	}

	gameOffset := wr.sw.Pos() - wr.base
	if err := wr.writeGameData(); err != nil {
		return err
	}

	end := wr.sw.Pos()
	wr.sw.Seek(mineOffsetPos)
	wr.sw.WriteLI32(int32(mineOffset))
	wr.sw.WriteLI32(int32(gameOffset))
	wr.sw.Seek(end)
	if err := wr.sw.Err(); err != nil {
		return errors.Wrapf(err, "Failed to write level")
	}
	return nil
}

func (wr *writer) buildIndices() error {
	l := wr.l

	if len(l.Vertices) > maxCount || len(l.Segments) > maxCount || len(l.Objects) > maxCount {
		return errors.Errorf("Too many vertices (%d), segments (%d) or objects (%d)",
			len(l.Vertices), len(l.Segments), len(l.Objects))
	}
	maxWalls := maxNarrowWalls
	if wr.version.Has(WideWallNumbers) {
		maxWalls = maxWideWalls
	}
	if len(l.Walls) > maxWalls {
		return errors.Errorf("Too many walls %d for container version %d, max %d",
			len(l.Walls), wr.version.Container, maxWalls)
	}

	wr.vertices = make(map[*level.Vertex]int, len(l.Vertices))
	for i, v := range l.Vertices {
		wr.vertices[v] = i
	}
	wr.segments = make(map[*level.Segment]int, len(l.Segments))
	wr.fuelCenters = make(map[*level.Segment]int)
	for i, seg := range l.Segments {
		wr.segments[seg] = i
		if seg.Function.IsFuelCenterClass() {
			wr.fuelCenters[seg] = len(wr.fuelCenters)
		}
	}
	wr.walls = make(map[*level.Wall]int, len(l.Walls))
	for i, w := range l.Walls {
		wr.walls[w] = i
	}
	wr.objects = make(map[*level.Object]int, len(l.Objects))
	for i, o := range l.Objects {
		wr.objects[o] = i
	}

	wr.wallTriggers = l.WallTriggers()
	wr.objectTriggers = l.ObjectTriggers()
	if len(wr.wallTriggers) > maxWallTrigger {
		return errors.Errorf("Too many wall triggers %d, max %d", len(wr.wallTriggers), maxWallTrigger)
	}
	wr.wallTriggerIndex = make(map[*level.Trigger]int, len(wr.wallTriggers))
	for i, t := range wr.wallTriggers {
		wr.wallTriggerIndex[t] = i
	}
	for i, t := range l.Triggers {
		if len(t.Targets) > level.MaxTriggerTargets {
			return errors.Errorf("Trigger %d has %d targets, max %d", i, len(t.Targets), level.MaxTriggerTargets)
		}
	}
	if len(l.ReactorTriggerTargets) > level.MaxTriggerTargets {
		return errors.Errorf("Reactor has %d trigger targets, max %d",
			len(l.ReactorTriggerTargets), level.MaxTriggerTargets)
	}
	if n := utf8.RuneCountInString(l.PaletteName); wr.version.Has(PaletteName) && n > MaxPaletteNameLength {
		return errors.Errorf("Palette name %q is %d characters long, max %d", l.PaletteName, n, MaxPaletteNameLength)
	}
	// terminator is counted by reader limit
	if n := utf8.RuneCountInString(l.Name); wr.version.Has(LevelName) && n > MaxLevelNameLength-1 {
		return errors.Errorf("Level name %q is %d characters long, max %d", l.Name, n, MaxLevelNameLength-1)
	}

	wr.robotMatCens = l.RobotMatCenters()
	wr.powerupMatCens = l.PowerupMatCenters()
	if !wr.version.Has(PowerupMatCenters) && len(wr.powerupMatCens) != 0 {
		logger.Log.Warnf("[rdl] %d powerup matcens are not supported by version %d/%d, skipped",
			len(wr.powerupMatCens), wr.version.Container, wr.version.Game)
		wr.powerupMatCens = nil
	}
	if len(wr.robotMatCens) > maxMatCenters || len(wr.powerupMatCens) > maxMatCenters {
		return errors.Errorf("Too many matcens %d/%d, max %d",
			len(wr.robotMatCens), len(wr.powerupMatCens), maxMatCenters)
	}
	wr.matCenIndex = make(map[*level.MatCenter]int)
	for i, m := range wr.robotMatCens {
		wr.matCenIndex[m] = i
	}
	for i, m := range wr.powerupMatCens {
		wr.matCenIndex[m] = i
	}

	// second pass stores value as signed byte
	if wr.version.Has(SpecialSecondPass) {
		for i, seg := range l.Segments {
			if v := wr.segmentValue(seg); v < math.MinInt8 || v > math.MaxInt8 {
				return errors.Errorf("Segment %d value %d does not fit container version %d",
					i, v, wr.version.Container)
			}
		}
	}
	return nil
}

func (wr *writer) segmentIndex(seg *level.Segment) int {
	if i, ok := wr.segments[seg]; ok {
		return i
	}
	return -1
}

func (wr *writer) sideRef(side *level.Side) (int, int) {
	if side == nil {
		return -1, -1
	}
	return wr.segmentIndex(side.Segment), side.Num
}

func (wr *writer) writeVector(v fixed.Vector) {
	wr.sw.WriteLI32(int32(v.X))
	wr.sw.WriteLI32(int32(v.Y))
	wr.sw.WriteLI32(int32(v.Z))
}

func (wr *writer) writeMatrix(m fixed.Matrix) {
	wr.writeVector(m.Right)
	wr.writeVector(m.Up)
	wr.writeVector(m.Forward)
}

func (wr *writer) writeSecretReturnOrient(m fixed.Matrix) {
	wr.writeVector(m.Right)
	wr.writeVector(m.Forward)
	wr.writeVector(m.Up)
}

// writeHeader returns position of mine offset to patch
func (wr *writer) writeHeader() int64 {
	sw := wr.sw
	l := wr.l

	sw.Write([]byte(Magic))
	sw.WriteLI32(wr.version.Container)
	offsetsPos := sw.Pos()
	sw.WriteLI32(0)
	sw.WriteLI32(0)

	if wr.version.Has(HeaderPlaceholder) {
		sw.WriteZeros(7)
	}
	if wr.version.Has(HostageTextOffset) {
		sw.WriteLI32(0)
	}
	if wr.version.Has(PaletteName) {
		sw.WriteLineString(l.PaletteName)
	}
	if wr.version.Has(ReactorTime) {
		sw.WriteLI32(l.ReactorTime)
	}
	if wr.version.Has(ReactorStrength) {
		sw.WriteLI32(l.ReactorStrength)
	}
	if wr.version.Has(AnimatedLights) {
		sw.WriteLI32(int32(len(l.AnimatedLights)))
		for _, al := range l.AnimatedLights {
			seg, side := wr.sideRef(al.Side)
			sw.WriteLI16(int16(seg))
			sw.WriteLI16(int16(side))
			sw.WriteLU32(al.Mask)
			sw.WriteLI32(int32(al.Timer))
			sw.WriteLI32(int32(al.Delay))
		}
	}
	if wr.version.Has(SecretReturn) {
		sw.WriteLI32(int32(wr.segmentIndex(l.SecretReturnSegment)))
		wr.writeSecretReturnOrient(l.SecretReturnOrient)
	}
	return offsetsPos
}

func (wr *writer) writeMine() error {
	sw := wr.sw
	l := wr.l

	sw.WriteU8(0)
	sw.WriteLI16(int16(len(l.Vertices)))
	sw.WriteLI16(int16(len(l.Segments)))
	for _, v := range l.Vertices {
		wr.writeVector(v.Position)
	}
	for _, seg := range l.Segments {
		wr.writeSegment(seg)
	}
	if wr.version.Has(SpecialSecondPass) {
		for _, seg := range l.Segments {
			wr.writeSegmentSpecial2(seg)
		}
	}
	if err := sw.Err(); err != nil {
		return errors.Wrapf(err, "Failed to write mine data")
	}
	return nil
}

// segmentValue is fuel center number for fuel center class segments
func (wr *writer) segmentValue(seg *level.Segment) int16 {
	if n, ok := wr.fuelCenters[seg]; ok {
		return int16(n)
	}
	return seg.Value
}

func (wr *writer) segmentMatCen(seg *level.Segment) uint8 {
	if seg.MatCenter == nil {
		return noMatCenter
	}
	if n, ok := wr.matCenIndex[seg.MatCenter]; ok {
		return uint8(n)
	}
	return noMatCenter
}

func (wr *writer) hasSpecial(seg *level.Segment) bool {
	return seg.Function != level.SegmentFunctionNone || wr.segmentValue(seg) != 0 ||
		wr.segmentMatCen(seg) != noMatCenter
}

func (wr *writer) writeSegment(seg *level.Segment) {
	sw := wr.sw

	if wr.version.Has(SegmentOwner) {
		sw.WriteU8(seg.Owner)
		sw.WriteI8(seg.Group)
	}

	mask := uint8(0)
	for i, side := range seg.Sides {
		if !side.IsBoundary() {
			mask |= 1 << uint(i)
		}
	}
	inlineSpecial := !wr.version.Has(SpecialSecondPass) && wr.hasSpecial(seg)
	if inlineSpecial {
		mask |= specialBit
	}
	sw.WriteU8(mask)

	switch {
	case wr.version.Has(SpecialInlineAfter):
		wr.writeChildren(seg)
		wr.writeSegmentVertices(seg)
		if inlineSpecial {
			wr.writeSegmentSpecial(seg)
		}
	case wr.version.Has(SpecialInlineBefore):
		if inlineSpecial {
			wr.writeSegmentSpecial(seg)
		}
		wr.writeSegmentVertices(seg)
		wr.writeChildren(seg)
	default:
		wr.writeChildren(seg)
		wr.writeSegmentVertices(seg)
	}

	if wr.version.Has(ShortStaticLight) {
		sw.WriteLU16(uint16(seg.StaticLight >> 4))
	}

	wallMask := uint8(0)
	for i, side := range seg.Sides {
		if side.Wall != nil {
			if _, ok := wr.walls[side.Wall]; ok {
				wallMask |= 1 << uint(i)
			}
		}
	}
	sw.WriteU8(wallMask)
	for i, side := range seg.Sides {
		if wallMask&(1<<uint(i)) == 0 {
			continue
		}
		if wr.version.Has(WideWallNumbers) {
			sw.WriteLU16(uint16(wr.walls[side.Wall]))
		} else {
			sw.WriteU8(uint8(wr.walls[side.Wall]))
		}
	}

	for i, side := range seg.Sides {
		if side.IsBoundary() || wallMask&(1<<uint(i)) != 0 {
			wr.writeSideTexture(side)
		}
	}
}

func (wr *writer) writeChildren(seg *level.Segment) {
	for _, side := range seg.Sides {
		switch {
		case side.IsExit():
			wr.sw.WriteLI16(sideExit)
		case side.IsConnected():
			wr.sw.WriteLI16(int16(wr.segmentIndex(side.Connection())))
		}
	}
}

func (wr *writer) writeSegmentVertices(seg *level.Segment) {
	for _, v := range seg.Vertices {
		i, ok := wr.vertices[v]
		if !ok {
			i = -1
		}
		wr.sw.WriteLI16(int16(i))
	}
}

func (wr *writer) writeSegmentSpecial(seg *level.Segment) {
	wr.sw.WriteU8(uint8(seg.Function))
	wr.sw.WriteU8(wr.segmentMatCen(seg))
	wr.sw.WriteLI16(wr.segmentValue(seg))
}

func (wr *writer) writeSegmentSpecial2(seg *level.Segment) {
	sw := wr.sw
	sw.WriteU8(uint8(seg.Function))
	sw.WriteU8(wr.segmentMatCen(seg))
	sw.WriteI8(int8(wr.segmentValue(seg)))
	sw.WriteU8(seg.Flags)
	if wr.version.Has(SegmentProps) {
		sw.WriteU8(seg.Props)
	}
	sw.WriteLI32(int32(seg.StaticLight))
}

func (wr *writer) writeSideTexture(side *level.Side) {
	sw := wr.sw
	base := side.BaseTexture &^ overlayBit
	if side.OverlayTexture != 0 {
		sw.WriteLU16(base | overlayBit)
		sw.WriteLU16(side.OverlayTexture)
	} else {
		sw.WriteLU16(base)
	}
	for _, uvl := range side.UVLs {
		sw.WriteLI16(int16(uvl.U >> 5))
		sw.WriteLI16(int16(uvl.V >> 5))
		sw.WriteLU16(uint16(uvl.L >> 1))
	}
}

func (wr *writer) writeSection(s section) {
	wr.sw.WriteLI32(s.Offset)
	wr.sw.WriteLI32(s.Count)
	wr.sw.WriteLI32(s.Size)
}

func absentSection() section {
	return section{Offset: sectionAbsent}
}

func (wr *writer) writeDirectory() {
	sw := wr.sw
	d := &wr.dir

	sw.WriteLI16(GameDataSignature)
	sw.WriteLI16(wr.version.Game)
	sw.WriteLI32(d.Size)
	sw.WriteStringBuffer(d.MineFileName, MineFileNameSize)
	sw.WriteLI32(d.LevelNumber)
	sw.WriteLI32(d.PlayerOffset)
	sw.WriteLI32(d.PlayerSize)
	wr.writeSection(d.Objects)
	wr.writeSection(d.Walls)
	wr.writeSection(d.Doors)
	wr.writeSection(d.Triggers)
	wr.writeSection(d.Links)
	wr.writeSection(d.ReactorTriggers)
	wr.writeSection(d.MatCenters)
	if wr.version.Has(DeltaLights) {
		wr.writeSection(d.DeltaLightIndices)
		wr.writeSection(d.DeltaLights)
	}
	if wr.version.Has(PowerupMatCenters) {
		wr.writeSection(d.PowerupMatCenters)
	}
	if wr.version.Has(FogPresets) {
		for _, fog := range d.Fog {
			sw.Write(fog.Color[:])
			sw.WriteU8(fog.Density)
		}
	}
}

// beginSection returns section located at current position
func (wr *writer) beginSection(count, size int) section {
	if count == 0 {
		return absentSection()
	}
	return section{
		Offset: int32(wr.sw.Pos() - wr.gameStart),
		Count:  int32(count),
		Size:   int32(size),
	}
}

func (wr *writer) writeGameData() error {
	sw := wr.sw
	l := wr.l

	wr.gameStart = sw.Pos()
	wr.dir = gameDirectory{
		Signature:         GameDataSignature,
		Version:           wr.version.Game,
		LevelNumber:       l.LevelNumber,
		PlayerOffset:      sectionAbsent,
		Objects:           absentSection(),
		Walls:             absentSection(),
		Doors:             absentSection(),
		Triggers:          absentSection(),
		Links:             absentSection(),
		ReactorTriggers:   absentSection(),
		MatCenters:        absentSection(),
		DeltaLightIndices: absentSection(),
		DeltaLights:       absentSection(),
		PowerupMatCenters: absentSection(),
		Fog:               l.FogPresets,
	}

	// placeholder, rewritten with real sections at the end
	wr.writeDirectory()
	wr.dir.Size = int32(sw.Pos() - wr.gameStart)

	if wr.version.Has(LevelName) {
		if wr.version.Has(LevelNameNewline) {
			sw.WriteLineString(l.Name)
		} else {
			sw.WriteZString(l.Name)
		}
	}
	if wr.version.Has(ModelNames) {
		names := wr.family.catalog().Names()
		sw.WriteLI16(int16(len(names)))
		for _, name := range names {
			sw.WriteStringBuffer(name, ModelNameSize)
		}
	}

	if err := wr.writeObjects(); err != nil {
		return err
	}
	wr.writeWalls()
	if err := wr.writeTriggers(); err != nil {
		return err
	}
	wr.writeReactorTriggers()
	wr.dir.MatCenters = wr.writeMatCenters(wr.robotMatCens)
	if err := wr.family.writeTrailer(wr); err != nil {
		return err
	}

	end := sw.Pos()
	sw.Seek(wr.gameStart)
	wr.writeDirectory()
	sw.Seek(end)

	if err := sw.Err(); err != nil {
		return errors.Wrapf(err, "Failed to write game data")
	}
	return nil
}

func (wr *writer) writeWalls() {
	sw := wr.sw
	wr.dir.Walls = wr.beginSection(len(wr.l.Walls), wallRecordSize)
	for _, w := range wr.l.Walls {
		seg, side := wr.sideRef(w.Side)
		sw.WriteLI32(int32(seg))
		sw.WriteLI32(int32(side))
		sw.WriteLI32(int32(w.HitPoints))
		linked := -1
		if w.LinkedWall != nil {
			if i, ok := wr.walls[w.LinkedWall]; ok {
				linked = i
			}
		}
		sw.WriteLI32(int32(linked))
		sw.WriteU8(uint8(w.Type))
		sw.WriteU8(w.Flags)
		sw.WriteU8(w.State)
		trigger := noTrigger
		if i, ok := wr.wallTriggerIndex[w.Trigger]; ok && w.Trigger != nil {
			trigger = i
		}
		sw.WriteU8(uint8(trigger))
		sw.WriteI8(w.ClipNum)
		sw.WriteU8(w.Keys)
		sw.WriteI8(wr.controllingTrigger(w))
		sw.WriteI8(w.CloakValue)
	}
}

func (wr *writer) controllingTrigger(w *level.Wall) int8 {
	for _, t := range w.ControllingTriggers {
		if i, ok := wr.wallTriggerIndex[t]; ok && i <= 0x7f {
			return int8(i)
		}
	}
	return -1
}

func (wr *writer) writeTrigger(t *level.Trigger) {
	sw := wr.sw
	sw.WriteU8(uint8(t.Type))
	if wr.version.Has(ModernTriggers) {
		sw.WriteU8(uint8(t.Flags))
		sw.WriteI8(int8(len(t.Targets)))
		sw.WriteU8(0)
		sw.WriteLI32(int32(t.Value))
		sw.WriteLI32(int32(t.Time))
	} else {
		sw.WriteLU16(t.Flags)
		sw.WriteLI32(int32(t.Value))
		sw.WriteLI32(int32(t.Time))
		sw.WriteU8(0)
		sw.WriteLI16(int16(len(t.Targets)))
	}
	wr.writeTargets(t.Targets)
}

// writeTargets writes segments and sides arrays, unused slots are zero
func (wr *writer) writeTargets(targets []*level.Side) {
	var segs, sides [level.MaxTriggerTargets]int16
	for i, side := range targets {
		seg, num := wr.sideRef(side)
		segs[i], sides[i] = int16(seg), int16(num)
	}
	for _, v := range segs {
		wr.sw.WriteLI16(v)
	}
	for _, v := range sides {
		wr.sw.WriteLI16(v)
	}
}

func (wr *writer) writeTriggers() error {
	size := legacyTriggerRecordSize
	if wr.version.Has(ModernTriggers) {
		size = triggerRecordSize
	}

	objectTriggersStored := wr.version.Has(ObjectTriggers) && len(wr.objectTriggers) != 0
	if len(wr.wallTriggers) == 0 && !objectTriggersStored {
		return wr.family.writeTriggerExtension(wr)
	}

	wr.dir.Triggers = section{
		Offset: int32(wr.sw.Pos() - wr.gameStart),
		Count:  int32(len(wr.wallTriggers)),
		Size:   int32(size),
	}
	for _, t := range wr.wallTriggers {
		wr.writeTrigger(t)
	}
	return wr.family.writeTriggerExtension(wr)
}

// object trigger bound to several objects is stored once per object
func (wr *writer) writeObjectTriggers() error {
	sw := wr.sw
	if len(wr.wallTriggers) == 0 && len(wr.objectTriggers) == 0 {
		return nil
	}

	count := 0
	for _, t := range wr.objectTriggers {
		count += len(t.ConnectedObjects)
	}
	sw.WriteLI32(int32(count))
	for _, t := range wr.objectTriggers {
		for range t.ConnectedObjects {
			wr.writeTrigger(t)
		}
	}
	for _, t := range wr.objectTriggers {
		for _, o := range t.ConnectedObjects {
			i, ok := wr.objects[o]
			if !ok {
				return errors.Errorf("Trigger bound to object not in level")
			}
			sw.WriteLI16(int16(i))
		}
	}
	return nil
}

func (wr *writer) writeReactorTriggers() {
	targets := wr.l.ReactorTriggerTargets
	if len(targets) == 0 {
		wr.dir.ReactorTriggers = absentSection()
		return
	}
	// engine keeps only one record, target count checked by buildIndices
	wr.dir.ReactorTriggers = wr.beginSection(1, reactorTriggerRecordSize)
	wr.sw.WriteLI16(int16(len(targets)))
	wr.writeTargets(targets)
}

func (wr *writer) writeMatCenters(list []*level.MatCenter) section {
	sw := wr.sw
	size := matCenRecordSize
	if !wr.version.Has(MatCenterTwoWords) {
		size -= 4
	}
	s := wr.beginSection(len(list), size)
	for _, m := range list {
		sw.WriteLU32(m.SpawnFlags[0])
		if wr.version.Has(MatCenterTwoWords) {
			sw.WriteLU32(m.SpawnFlags[1])
		}
		sw.WriteLI32(int32(m.HitPoints))
		sw.WriteLI32(int32(m.Interval))
		sw.WriteLI16(int16(wr.segmentIndex(m.Segment)))
		fuelCenter := -1
		if n, ok := wr.fuelCenters[m.Segment]; ok && m.Segment != nil {
			fuelCenter = n
		}
		sw.WriteLI16(int16(fuelCenter))
	}
	return s
}

func (wr *writer) writeDeltaLights() error {
	sw := wr.sw
	lights := wr.l.DynamicLights

	wr.dir.DeltaLightIndices = wr.beginSection(len(lights), deltaLightIndexRecordSize)
	index := 0
	for i, dl := range lights {
		if len(dl.Deltas) > 0xff {
			return errors.Errorf("Dynamic light %d has %d deltas, max 255", i, len(dl.Deltas))
		}
		seg, side := wr.sideRef(dl.Source)
		if side < 0 {
			side = 0
		}
		sw.WriteLI16(int16(seg))
		sw.WriteU8(uint8(side))
		sw.WriteU8(uint8(len(dl.Deltas)))
		sw.WriteLI16(int16(index))
		index += len(dl.Deltas)
	}

	wr.dir.DeltaLights = wr.beginSection(index, deltaLightRecordSize)
	for _, dl := range lights {
		for _, d := range dl.Deltas {
			seg, side := wr.sideRef(d.Side)
			if side < 0 {
				side = 0
			}
			sw.WriteLI16(int16(seg))
			sw.WriteU8(uint8(side))
			sw.WriteU8(0)
			sw.Write(d.VertexLight[:])
		}
	}
	return nil
}
