package level

import "github.com/mogaika/descent_level_browser/fixed"

// corners in segment vertex order, unit cube centered at origin
var cubeCorners = [VerticesPerSegment][3]float32{
	{1, 1, -1}, {1, -1, -1}, {-1, -1, -1}, {-1, 1, -1},
	{1, 1, 1}, {1, -1, 1}, {-1, -1, 1}, {-1, 1, 1},
}

// AddCube adds cube segment with new vertices
func (l *Level) AddCube(center fixed.Vector, halfSize float32) *Segment {
	var verts [VerticesPerSegment]*Vertex
	for i, c := range cubeCorners {
		offset := fixed.NewVector(c[0]*halfSize, c[1]*halfSize, c[2]*halfSize)
		verts[i] = l.AddVertex(center.Add(offset))
	}
	return l.AddSegment(verts)
}

// NewCubeLevel is the smallest valid level: one closed segment
func NewCubeLevel(name string) *Level {
	l := NewLevel()
	l.Name = name
	l.LevelNumber = 1
	seg := l.AddCube(fixed.Vector{}, 10)
	seg.StaticLight = fixed.FixOne
	return l
}
