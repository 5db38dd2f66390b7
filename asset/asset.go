// Package asset defines the decoded mesh and material data the engine
// consumes. File formats are the loader's business; this package only
// describes the shapes handed to g3d.Engine.LoadModel, plus helpers to turn
// any image.Image into RGBA8 pixels.
package asset

// MeshRecord is one decoded triangle mesh.
//
// Positions, TexCoords and Normals are parallel arrays indexed by vertex.
// TexCoords and Normals may be nil; missing texture coordinates default to
// (0,0) and missing normals to +Y. Indices lists triangles, three per face,
// counter-clockwise when seen from the front.
type MeshRecord struct {
	Name      string
	Positions [][3]float32
	TexCoords [][2]float32
	Normals   [][3]float32
	Indices   []uint32

	// Material indexes the material records passed alongside the mesh.
	Material int
}

// VertexCount returns the number of vertices.
func (m *MeshRecord) VertexCount() int { return len(m.Positions) }

// TriangleCount returns the number of complete triangles in Indices.
func (m *MeshRecord) TriangleCount() int { return len(m.Indices) / 3 }

// MaterialRecord names the textures of one material. Either map may be nil:
// the engine substitutes a white diffuse map and a flat normal map.
type MaterialRecord struct {
	Name    string
	Diffuse *Pixels
	Normal  *Pixels
}
