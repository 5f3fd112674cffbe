package level

import (
	"github.com/pkg/errors"

	"github.com/mogaika/descent_level_browser/fixed"
)

const (
	SidesPerSegment    = 6
	VerticesPerSegment = 8
	VerticesPerSide    = 4
)

const (
	SideLeft = iota
	SideTop
	SideRight
	SideBottom
	SideBack
	SideFront
)

// Segment vertex indices of every side corner
var SideToVerts = [SidesPerSegment][VerticesPerSide]int{
	{7, 6, 2, 3},
	{0, 4, 7, 3},
	{0, 1, 5, 4},
	{2, 6, 5, 1},
	{4, 5, 6, 7},
	{3, 2, 1, 0},
}

type SegmentFunction uint8

const (
	SegmentFunctionNone SegmentFunction = iota
	SegmentFunctionFuelCenter
	SegmentFunctionRepairCenter
	SegmentFunctionReactor
	SegmentFunctionMatCenter
	SegmentFunctionGoalBlue
	SegmentFunctionGoalRed
	SegmentFunctionPowerupCenter
)

var segmentFunctionNames = []string{
	"none", "fuelcen", "repaircen", "reactor", "matcen", "goal_blue", "goal_red", "powerupcen",
}

func (f SegmentFunction) String() string {
	if int(f) < len(segmentFunctionNames) {
		return segmentFunctionNames[f]
	}
	return "unknown"
}

// Fuel center class segments are numbered together, this number
// is stored in segment value and in matcen records
func (f SegmentFunction) IsFuelCenterClass() bool {
	switch f {
	case SegmentFunctionFuelCenter, SegmentFunctionRepairCenter, SegmentFunctionReactor,
		SegmentFunctionMatCenter, SegmentFunctionPowerupCenter:
		return true
	}
	return false
}

type Vertex struct {
	Position fixed.Vector
	Segments []SegmentVertex
	Sides    []SideVertex
}

type SegmentVertex struct {
	Segment *Segment
	Index   int
}

type SideVertex struct {
	Side  *Side
	Index int
}

type Segment struct {
	Sides    [SidesPerSegment]*Side
	Vertices [VerticesPerSegment]*Vertex

	Function    SegmentFunction
	Flags       uint8
	Props       uint8
	Value       int16
	StaticLight fixed.Fix
	Owner       uint8
	Group       int8
	MatCenter   *MatCenter
}

// UVL is texture coordinate and light of side corner
type UVL struct {
	U, V, L fixed.Fix
}

type Side struct {
	Segment *Segment
	Num     int

	connection *Segment
	exit       bool

	Wall           *Wall
	BaseTexture    uint16
	OverlayTexture uint16
	UVLs           [VerticesPerSide]UVL

	DynamicLight  *DynamicLight
	AnimatedLight *AnimatedLight
}

func (s *Side) Connection() *Segment { return s.connection }
func (s *Side) IsExit() bool         { return s.exit }
func (s *Side) IsConnected() bool    { return s.connection != nil }

// Boundary side is neither connected nor exit
func (s *Side) IsBoundary() bool { return s.connection == nil && !s.exit }

func (s *Side) Connect(seg *Segment) {
	s.connection = seg
	s.exit = false
}

func (s *Side) SetExit() {
	s.connection = nil
	s.exit = true
}

func (s *Side) Disconnect() {
	s.connection = nil
	s.exit = false
}

func (s *Side) Vertices() [VerticesPerSide]*Vertex {
	var result [VerticesPerSide]*Vertex
	for i, iVert := range SideToVerts[s.Num] {
		result[i] = s.Segment.Vertices[iVert]
	}
	return result
}

// Texture data is stored only for sides that can be seen
func (s *Side) HasTexture() bool {
	return s.Wall != nil || s.IsBoundary()
}

func (l *Level) AddVertex(pos fixed.Vector) *Vertex {
	v := &Vertex{Position: pos}
	l.Vertices = append(l.Vertices, v)
	return v
}

// AddSegment creates segment with six boundary sides. Vertices may be
// nil while segment is decoded and assigned later by SetVertex.
func (l *Level) AddSegment(verts [VerticesPerSegment]*Vertex) *Segment {
	seg := newSegment()
	for i, v := range verts {
		if v != nil {
			seg.SetVertex(i, v)
		}
	}
	l.Segments = append(l.Segments, seg)
	return seg
}

func newSegment() *Segment {
	seg := &Segment{}
	for i := range seg.Sides {
		seg.Sides[i] = &Side{Segment: seg, Num: i}
		for j := range seg.Sides[i].UVLs {
			seg.Sides[i].UVLs[j] = defaultUVLs[j]
		}
	}
	return seg
}

var defaultUVLs = [VerticesPerSide]UVL{
	{U: 0, V: 0, L: fixed.FixOne / 2},
	{U: 0, V: fixed.FixOne, L: fixed.FixOne / 2},
	{U: fixed.FixOne, V: fixed.FixOne, L: fixed.FixOne / 2},
	{U: fixed.FixOne, V: 0, L: fixed.FixOne / 2},
}

// SetVertex replaces segment corner and keeps vertex back references actual
func (seg *Segment) SetVertex(index int, v *Vertex) {
	if old := seg.Vertices[index]; old != nil {
		old.removeSegmentRefs(seg, index)
	}
	seg.Vertices[index] = v
	if v == nil {
		return
	}
	v.Segments = append(v.Segments, SegmentVertex{Segment: seg, Index: index})
	for _, side := range seg.Sides {
		for iCorner, iVert := range SideToVerts[side.Num] {
			if iVert == index {
				v.Sides = append(v.Sides, SideVertex{Side: side, Index: iCorner})
			}
		}
	}
}

func (v *Vertex) removeSegmentRefs(seg *Segment, index int) {
	segs := v.Segments[:0]
	for _, sv := range v.Segments {
		if sv.Segment != seg || sv.Index != index {
			segs = append(segs, sv)
		}
	}
	v.Segments = segs

	sides := v.Sides[:0]
	for _, sv := range v.Sides {
		if sv.Side.Segment != seg || SideToVerts[sv.Side.Num][sv.Index] != index {
			sides = append(sides, sv)
		}
	}
	v.Sides = sides
}

// ConnectSegments joins two sides of different segments in both directions
func (l *Level) ConnectSegments(a, b *Side) error {
	if a.Segment == b.Segment {
		return errors.Errorf("Cannot connect segment to itself")
	}
	a.Connect(b.Segment)
	b.Connect(a.Segment)
	return nil
}

// Center is average of segment corners
func (seg *Segment) Center() fixed.Vector {
	var sum [3]int64
	count := int64(0)
	for _, v := range seg.Vertices {
		if v == nil {
			continue
		}
		sum[0] += int64(v.Position.X)
		sum[1] += int64(v.Position.Y)
		sum[2] += int64(v.Position.Z)
		count++
	}
	if count == 0 {
		return fixed.Vector{}
	}
	return fixed.Vector{X: fixed.Fix(sum[0] / count), Y: fixed.Fix(sum[1] / count), Z: fixed.Fix(sum[2] / count)}
}
