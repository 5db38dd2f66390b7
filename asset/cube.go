package asset

import "github.com/go-gl/mathgl/mgl32"

// cubeFaces lists the two counter-clockwise triangles of each face, indexing
// corners by bit pattern: bit 0 is +X, bit 1 is +Y, bit 2 is +Z.
var cubeFaces = [36]uint32{
	5, 1, 3, 5, 3, 7, // +X
	0, 4, 6, 0, 6, 2, // -X
	6, 7, 3, 6, 3, 2, // +Y
	0, 1, 5, 0, 5, 4, // -Y
	4, 5, 7, 4, 7, 6, // +Z
	1, 0, 2, 1, 2, 3, // -Z
}

// Cube returns a unit cube centered at the origin: 8 shared corners and 12
// triangles using the given material.
//
// Corners carry smooth normals pointing away from the center. Texture
// coordinates are a linear function of position chosen so that no face
// collapses to zero UV area.
func Cube(material int) MeshRecord {
	m := MeshRecord{
		Name:      "cube",
		Positions: make([][3]float32, 8),
		TexCoords: make([][2]float32, 8),
		Normals:   make([][3]float32, 8),
		Indices:   append([]uint32(nil), cubeFaces[:]...),
		Material:  material,
	}
	for i := range 8 {
		p := mgl32.Vec3{-0.5, -0.5, -0.5}
		for axis := range 3 {
			if i&(1<<axis) != 0 {
				p[axis] = 0.5
			}
		}
		m.Positions[i] = p
		m.Normals[i] = p.Normalize()
		m.TexCoords[i] = [2]float32{(p.X() + p.Z() + 1) / 2, 1 - (p.Y()+p.Z()+1)/2}
	}
	return m
}
