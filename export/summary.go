package export

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/mogaika/descent_level_browser/level"
	"github.com/mogaika/descent_level_browser/rdl"
)

type SideRef struct {
	Segment int `json:"segment" yaml:"segment"`
	Side    int `json:"side" yaml:"side"`
}

type VersionSummary struct {
	Container int32    `json:"container" yaml:"container"`
	Game      int16    `json:"game" yaml:"game"`
	Family    string   `json:"family" yaml:"family"`
	Features  []string `json:"features" yaml:"features"`
}

type Counts struct {
	Vertices       int `json:"vertices" yaml:"vertices"`
	Segments       int `json:"segments" yaml:"segments"`
	Walls          int `json:"walls" yaml:"walls"`
	Triggers       int `json:"triggers" yaml:"triggers"`
	MatCenters     int `json:"matcens" yaml:"matcens"`
	Objects        int `json:"objects" yaml:"objects"`
	DynamicLights  int `json:"dynamic_lights" yaml:"dynamic_lights"`
	AnimatedLights int `json:"animated_lights" yaml:"animated_lights"`
	Exits          int `json:"exits" yaml:"exits"`
}

type WallSummary struct {
	Side    SideRef `json:"side" yaml:"side"`
	Type    uint8   `json:"type" yaml:"type"`
	Linked  int     `json:"linked" yaml:"linked"`
	Trigger int     `json:"trigger" yaml:"trigger"`
}

type TriggerSummary struct {
	Type    uint8     `json:"type" yaml:"type"`
	Flags   uint16    `json:"flags" yaml:"flags"`
	Targets []SideRef `json:"targets" yaml:"targets"`
	Walls   []int     `json:"walls,omitempty" yaml:"walls,omitempty"`
	Objects []int     `json:"objects,omitempty" yaml:"objects,omitempty"`
}

type MatCenterSummary struct {
	Kind    string `json:"kind" yaml:"kind"`
	Segment int    `json:"segment" yaml:"segment"`
	Spawns  []int  `json:"spawns" yaml:"spawns"`
}

type ObjectSummary struct {
	Type     string     `json:"type" yaml:"type"`
	ID       uint8      `json:"id" yaml:"id"`
	Segment  int        `json:"segment" yaml:"segment"`
	Position [3]float32 `json:"position" yaml:"position,flow"`
}

// Summary is flat view of level graph, every reference replaced by list index
type Summary struct {
	Name           string             `json:"name" yaml:"name"`
	LevelNumber    int32              `json:"level_number" yaml:"level_number"`
	Palette        string             `json:"palette,omitempty" yaml:"palette,omitempty"`
	Version        VersionSummary     `json:"version" yaml:"version"`
	Counts         Counts             `json:"counts" yaml:"counts"`
	BoundsMin      [3]float32         `json:"bounds_min" yaml:"bounds_min,flow"`
	BoundsMax      [3]float32         `json:"bounds_max" yaml:"bounds_max,flow"`
	Functions      map[string]int     `json:"functions,omitempty" yaml:"functions,omitempty"`
	Walls          []WallSummary      `json:"walls,omitempty" yaml:"walls,omitempty"`
	Triggers       []TriggerSummary   `json:"triggers,omitempty" yaml:"triggers,omitempty"`
	ReactorTargets []SideRef          `json:"reactor_targets,omitempty" yaml:"reactor_targets,omitempty"`
	MatCenters     []MatCenterSummary `json:"matcens,omitempty" yaml:"matcens,omitempty"`
	Objects        []ObjectSummary    `json:"objects,omitempty" yaml:"objects,omitempty"`
}

type indexer struct {
	segments map[*level.Segment]int
	walls    map[*level.Wall]int
	triggers map[*level.Trigger]int
	objects  map[*level.Object]int
}

func newIndexer(l *level.Level) *indexer {
	ix := &indexer{
		segments: make(map[*level.Segment]int, len(l.Segments)),
		walls:    make(map[*level.Wall]int, len(l.Walls)),
		triggers: make(map[*level.Trigger]int, len(l.Triggers)),
		objects:  make(map[*level.Object]int, len(l.Objects)),
	}
	for i, seg := range l.Segments {
		ix.segments[seg] = i
	}
	for i, w := range l.Walls {
		ix.walls[w] = i
	}
	for i, t := range l.Triggers {
		ix.triggers[t] = i
	}
	for i, o := range l.Objects {
		ix.objects[o] = i
	}
	return ix
}

func (ix *indexer) segment(seg *level.Segment) int {
	if n, ok := ix.segments[seg]; ok {
		return n
	}
	return -1
}

func (ix *indexer) wall(w *level.Wall) int {
	if n, ok := ix.walls[w]; ok {
		return n
	}
	return -1
}

func (ix *indexer) trigger(t *level.Trigger) int {
	if n, ok := ix.triggers[t]; ok {
		return n
	}
	return -1
}

func (ix *indexer) side(side *level.Side) SideRef {
	if side == nil {
		return SideRef{-1, -1}
	}
	return SideRef{Segment: ix.segment(side.Segment), Side: side.Num}
}

func (ix *indexer) sides(sides []*level.Side) []SideRef {
	refs := make([]SideRef, len(sides))
	for i, side := range sides {
		refs[i] = ix.side(side)
	}
	return refs
}

// Bounds returns axis aligned box of level vertices
func Bounds(l *level.Level) (mgl32.Vec3, mgl32.Vec3) {
	if len(l.Vertices) == 0 {
		return mgl32.Vec3{}, mgl32.Vec3{}
	}
	lo := l.Vertices[0].Position.Vec3()
	hi := lo
	for _, v := range l.Vertices[1:] {
		p := v.Position.Vec3()
		for i := range p {
			if p[i] < lo[i] {
				lo[i] = p[i]
			}
			if p[i] > hi[i] {
				hi[i] = p[i]
			}
		}
	}
	return lo, hi
}

func NewSummary(l *level.Level) *Summary {
	ix := newIndexer(l)
	v := rdl.LevelVersion(l)

	s := &Summary{
		Name:        l.Name,
		LevelNumber: l.LevelNumber,
		Palette:     l.PaletteName,
		Version: VersionSummary{
			Container: v.Container,
			Game:      v.Game,
		},
		Counts: Counts{
			Vertices:       len(l.Vertices),
			Segments:       len(l.Segments),
			Walls:          len(l.Walls),
			Triggers:       len(l.Triggers),
			MatCenters:     len(l.MatCenters),
			Objects:        len(l.Objects),
			DynamicLights:  len(l.DynamicLights),
			AnimatedLights: len(l.AnimatedLights),
		},
		Functions: make(map[string]int),
	}
	// level created in memory has no version yet
	if _, err := rdl.FamilyOf(v.Container); err == nil {
		s.Version.Family = v.Family().String()
		for _, f := range v.Features() {
			s.Version.Features = append(s.Version.Features, f.String())
		}
	}

	lo, hi := Bounds(l)
	s.BoundsMin, s.BoundsMax = lo, hi

	for _, seg := range l.Segments {
		if seg.Function != level.SegmentFunctionNone {
			s.Functions[seg.Function.String()]++
		}
		for _, side := range seg.Sides {
			if side.IsExit() {
				s.Counts.Exits++
			}
		}
	}

	for _, w := range l.Walls {
		s.Walls = append(s.Walls, WallSummary{
			Side:    ix.side(w.Side),
			Type:    uint8(w.Type),
			Linked:  ix.wall(w.LinkedWall),
			Trigger: ix.trigger(w.Trigger),
		})
	}

	for _, t := range l.Triggers {
		ts := TriggerSummary{
			Type:    uint8(t.Type),
			Flags:   t.Flags,
			Targets: ix.sides(t.Targets),
		}
		for _, w := range t.ConnectedWalls {
			ts.Walls = append(ts.Walls, ix.wall(w))
		}
		for _, o := range t.ConnectedObjects {
			ts.Objects = append(ts.Objects, ix.objects[o])
		}
		s.Triggers = append(s.Triggers, ts)
	}
	s.ReactorTargets = ix.sides(l.ReactorTriggerTargets)

	for _, m := range l.MatCenters {
		ms := MatCenterSummary{Kind: m.Kind.String(), Segment: ix.segment(m.Segment), Spawns: []int{}}
		for id := 0; id < 64; id++ {
			if m.CanSpawn(id) {
				ms.Spawns = append(ms.Spawns, id)
			}
		}
		s.MatCenters = append(s.MatCenters, ms)
	}

	for _, o := range l.Objects {
		s.Objects = append(s.Objects, ObjectSummary{
			Type:     o.Type.String(),
			ID:       o.ID,
			Segment:  ix.segment(o.Segment),
			Position: o.Position.Vec3(),
		})
	}
	return s
}

func (s *Summary) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return errors.Wrapf(err, "Failed to marshal yaml")
	}
	if err := enc.Close(); err != nil {
		return errors.Wrapf(err, "Failed to close yaml encoder")
	}
	return nil
}

func (s *Summary) YAML() ([]byte, error) {
	var buf bytes.Buffer
	if err := s.WriteYAML(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Summary) JSON() ([]byte, error) {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to marshal json")
	}
	return b, nil
}
