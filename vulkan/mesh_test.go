package vulkan

import (
	"strings"
	"testing"

	"github.com/g3n/engine/loader/obj"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"
)

func decodeOBJ(t *testing.T, source string) *MeshData {
	t.Helper()

	decoder, err := obj.DecodeReader(strings.NewReader(source), nil)
	require.NoError(t, err)

	return decodeMesh(decoder)
}

func TestDecodeMeshTriangulatesQuadAsFan(t *testing.T) {
	mesh := decodeOBJ(t, `
o quad
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
f 1/1 2/2 3/3 4/4
`)

	require.Len(t, mesh.Vertices, 4)
	require.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, mesh.Indices)

	require.Equal(t, mgl32.Vec3{0, 0, 0}, mesh.Vertices[0].Position)
	require.Equal(t, mgl32.Vec3{1, 0, 0}, mesh.Vertices[1].Position)
	require.Equal(t, mgl32.Vec3{1, 1, 0}, mesh.Vertices[2].Position)
	require.Equal(t, mgl32.Vec3{0, 1, 0}, mesh.Vertices[3].Position)

	for _, vertex := range mesh.Vertices {
		require.Equal(t, mgl32.Vec3{1, 1, 1}, vertex.Color)
	}
}

func TestDecodeMeshFlipsTextureV(t *testing.T) {
	mesh := decodeOBJ(t, `
o quad
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
f 1/1 2/2 3/3 4/4
`)

	require.Equal(t, mgl32.Vec2{0, 1}, mesh.Vertices[0].TexCoord)
	require.Equal(t, mgl32.Vec2{1, 1}, mesh.Vertices[1].TexCoord)
	require.Equal(t, mgl32.Vec2{1, 0}, mesh.Vertices[2].TexCoord)
	require.Equal(t, mgl32.Vec2{0, 0}, mesh.Vertices[3].TexCoord)
}

func TestDecodeMeshKeepsCornersWithDistinctUVs(t *testing.T) {
	// Both faces reference the same positions, but the first corner of the
	// second face samples a different texture coordinate. That corner must
	// become its own vertex while the other two deduplicate.
	mesh := decodeOBJ(t, `
o tri
v 0 0 0
v 1 0 0
v 0 1 0
vt 0 0
vt 1 0
vt 0 1
vt 0.5 0.5
f 1/1 2/2 3/3
f 1/4 2/2 3/3
`)

	require.Len(t, mesh.Vertices, 4)
	require.Equal(t, []uint32{0, 1, 2, 3, 1, 2}, mesh.Indices)
	require.Equal(t, mesh.Vertices[0].Position, mesh.Vertices[3].Position)
	require.NotEqual(t, mesh.Vertices[0].TexCoord, mesh.Vertices[3].TexCoord)
}

func TestDecodeMeshWithoutTextureCoordinates(t *testing.T) {
	mesh := decodeOBJ(t, `
o flat
v 0 0 0
v 1 0 0
v 0 1 0
f 1 2 3
`)

	require.Len(t, mesh.Vertices, 3)
	require.Equal(t, []uint32{0, 1, 2}, mesh.Indices)
	for _, vertex := range mesh.Vertices {
		require.Equal(t, mgl32.Vec2{0, 0}, vertex.TexCoord)
	}
}

func TestLoadMeshFileMissing(t *testing.T) {
	_, err := LoadMeshFile("does/not/exist.obj", "")
	require.Error(t, err)
}
