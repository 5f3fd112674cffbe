package export

import (
	"fmt"
	"io"
	"sort"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/mogaika/descent_level_browser/level"
	"github.com/mogaika/descent_level_browser/utils/gltfutils"
)

// corners of side quad forming two triangles
var quadIndices = [6]uint32{0, 1, 2, 0, 2, 3}

type texturedMesh struct {
	positions [][3]float32
	uvs       [][2]float32
	colors    [][4]uint8
	indices   []uint32
}

func (tm *texturedMesh) addSide(side *level.Side) {
	base := uint32(len(tm.positions))
	for i, v := range side.Vertices() {
		if v == nil {
			continue
		}
		uvl := side.UVLs[i]
		tm.positions = append(tm.positions, v.Position.Vec3())
		tm.uvs = append(tm.uvs, [2]float32{uvl.U.Float(), uvl.V.Float()})
		light := uvl.L.Float()
		if light > 1 {
			light = 1
		} else if light < 0 {
			light = 0
		}
		c := uint8(light * 255)
		tm.colors = append(tm.colors, [4]uint8{c, c, c, 255})
	}
	if uint32(len(tm.positions))-base != level.VerticesPerSide {
		// incomplete segment, drop partially added corners
		tm.positions = tm.positions[:base]
		tm.uvs = tm.uvs[:base]
		tm.colors = tm.colors[:base]
		return
	}
	for _, i := range quadIndices {
		tm.indices = append(tm.indices, base+i)
	}
}

// visibleSide reports if side is rendered: closed boundary or wall
func visibleSide(side *level.Side) bool {
	return side.IsBoundary() || (side.Wall != nil && side.Wall.Type != level.WallOpen)
}

// ExportGLTF builds document with level geometry grouped by base texture
// and one node per object
func ExportGLTF(l *level.Level) (*gltf.Document, error) {
	doc := gltfutils.NewDocument()

	meshes := make(map[uint16]*texturedMesh)
	for _, seg := range l.Segments {
		for _, side := range seg.Sides {
			if !visibleSide(side) {
				continue
			}
			tm, ok := meshes[side.BaseTexture]
			if !ok {
				tm = &texturedMesh{}
				meshes[side.BaseTexture] = tm
			}
			tm.addSide(side)
		}
	}

	textures := make([]int, 0, len(meshes))
	for texture := range meshes {
		textures = append(textures, int(texture))
	}
	sort.Ints(textures)

	geometry := &gltf.Mesh{Name: l.Name}
	for _, texture := range textures {
		tm := meshes[uint16(texture)]
		if len(tm.indices) == 0 {
			continue
		}

		doc.Materials = append(doc.Materials, &gltf.Material{
			Name:        fmt.Sprintf("texture_%d", texture),
			DoubleSided: true,
		})
		geometry.Primitives = append(geometry.Primitives, &gltf.Primitive{
			Indices: gltf.Index(modeler.WriteIndices(doc, tm.indices)),
			Attributes: map[string]uint32{
				"POSITION":   modeler.WritePosition(doc, tm.positions),
				"TEXCOORD_0": modeler.WriteTextureCoord(doc, tm.uvs),
				"COLOR_0":    modeler.WriteColor(doc, tm.colors),
			},
			Material: gltf.Index(uint32(len(doc.Materials) - 1)),
		})
	}
	if len(geometry.Primitives) == 0 {
		return nil, errors.Errorf("Level %q has no visible sides", l.Name)
	}

	doc.Meshes = append(doc.Meshes, geometry)
	gltfutils.AddNode(doc, &gltf.Node{
		Name: "mine",
		Mesh: gltf.Index(uint32(len(doc.Meshes) - 1)),
	})

	for i, o := range l.Objects {
		pos := o.Position.Vec3()
		gltfutils.AddNode(doc, &gltf.Node{
			Name:        fmt.Sprintf("object_%d_%s_%d", i, o.Type, o.ID),
			Translation: [3]float32(pos),
		})
	}
	return doc, nil
}

func WriteGLB(w io.Writer, l *level.Level) error {
	doc, err := ExportGLTF(l)
	if err != nil {
		return err
	}
	if err := gltfutils.ExportBinary(w, doc); err != nil {
		return errors.Wrapf(err, "Failed to encode glb")
	}
	return nil
}
