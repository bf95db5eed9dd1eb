package vulkan

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/g3n/engine/loader/obj"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// MeshData is a decoded mesh ready for upload.
type MeshData struct {
	Vertices []Vertex
	Indices  []uint32
}

// LoadMeshFile decodes a Wavefront OBJ file into vertex and index slices.
// materialPath may be empty when the mesh carries no material library.
func LoadMeshFile(meshPath, materialPath string) (*MeshData, error) {
	meshFile, err := os.Open(meshPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open mesh %s", meshPath)
	}
	defer meshFile.Close()

	var materialReader io.Reader
	if materialPath != "" {
		materialFile, err := os.Open(materialPath)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open material library %s", materialPath)
		}
		defer materialFile.Close()
		materialReader = materialFile
	}

	decoder, err := obj.DecodeReader(meshFile, materialReader)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode mesh %s", meshPath)
	}

	return decodeMesh(decoder), nil
}

// decodeMesh triangulates every face as a fan and deduplicates vertices by
// their full attribute set, so corners that share a position but differ in
// texture coordinates stay distinct.
func decodeMesh(decoder *obj.Decoder) *MeshData {
	mesh := &MeshData{}
	uniqueVertices := make(map[Vertex]uint32)

	for _, decodedObj := range decoder.Objects {
		for _, face := range decodedObj.Faces {
			for i := 2; i < len(face.Vertices); i++ {
				for _, corner := range [3]int{0, i - 1, i} {
					vertInd := face.Vertices[corner]
					vert := Vertex{
						Position: mgl32.Vec3{
							decoder.Vertices[vertInd*3],
							decoder.Vertices[vertInd*3+1],
							decoder.Vertices[vertInd*3+2],
						},
						Color: mgl32.Vec3{1, 1, 1},
					}

					if corner < len(face.Uvs) {
						uvInd := face.Uvs[corner]
						if uvInd >= 0 && uvInd*2+1 < len(decoder.Uvs) {
							// OBJ puts the texture origin at the bottom left,
							// Vulkan samples from the top left.
							vert.TexCoord = mgl32.Vec2{
								decoder.Uvs[uvInd*2],
								1.0 - decoder.Uvs[uvInd*2+1],
							}
						}
					}

					vertIndex, vertexExists := uniqueVertices[vert]
					if !vertexExists {
						vertIndex = uint32(len(mesh.Vertices))
						mesh.Vertices = append(mesh.Vertices, vert)
						uniqueVertices[vert] = vertIndex
					}

					mesh.Indices = append(mesh.Indices, vertIndex)
				}
			}
		}
	}

	return mesh
}

// MeshBuffers holds the device-local vertex and index buffers for one mesh.
type MeshBuffers struct {
	Vertex     *Buffer
	Index      *Buffer
	IndexCount int
}

// UploadMesh copies the mesh into device-local buffers through a staging
// buffer.
func (f *Factory) UploadMesh(data *MeshData) (*MeshBuffers, error) {
	if len(data.Vertices) == 0 || len(data.Indices) == 0 {
		return nil, errors.New("cannot upload an empty mesh")
	}

	vertexBuffer, err := f.uploadThroughStaging("mesh-vertices", data.Vertices, core1_0.BufferUsageVertexBuffer)
	if err != nil {
		return nil, err
	}

	indexBuffer, err := f.uploadThroughStaging("mesh-indices", data.Indices, core1_0.BufferUsageIndexBuffer)
	if err != nil {
		vertexBuffer.Destroy()
		return nil, err
	}

	return &MeshBuffers{
		Vertex:     vertexBuffer,
		Index:      indexBuffer,
		IndexCount: len(data.Indices),
	}, nil
}

func (f *Factory) uploadThroughStaging(label string, data any, usage core1_0.BufferUsageFlags) (*Buffer, error) {
	bufferSize := binary.Size(data)

	stagingBuffer, err := f.CreateBuffer(label+"-staging", bufferSize, core1_0.BufferUsageTransferSrc, core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
	if err != nil {
		return nil, err
	}
	defer stagingBuffer.Destroy()

	err = stagingBuffer.Write(0, data)
	if err != nil {
		return nil, err
	}

	deviceBuffer, err := f.CreateBuffer(label, bufferSize, core1_0.BufferUsageTransferDst|usage, core1_0.MemoryPropertyDeviceLocal)
	if err != nil {
		return nil, err
	}

	err = f.CopyBuffer(stagingBuffer, deviceBuffer, bufferSize)
	if err != nil {
		deviceBuffer.Destroy()
		return nil, err
	}

	return deviceBuffer, nil
}

func (m *MeshBuffers) Destroy() {
	if m.Index != nil {
		m.Index.Destroy()
		m.Index = nil
	}
	if m.Vertex != nil {
		m.Vertex.Destroy()
		m.Vertex = nil
	}
}
