package vulkan

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// UniformBufferObject matches the vertex shader's binding 0 layout.
type UniformBufferObject struct {
	Model mgl32.Mat4
	View  mgl32.Mat4
	Proj  mgl32.Mat4
}

// vulkanClip converts mgl32's OpenGL-style clip space to Vulkan's: Y points
// down and depth spans [0, 1] instead of [-1, 1].
var vulkanClip = mgl32.Mat4{
	1, 0, 0, 0,
	0, -1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// NewTransform builds the scene matrices for one frame: the model spins
// around Z at a quarter turn per second under a fixed camera.
func NewTransform(elapsed time.Duration, aspectRatio float32) *UniformBufferObject {
	return &UniformBufferObject{
		Model: mgl32.HomogRotate3DZ(mgl32.DegToRad(90) * float32(elapsed.Seconds())),
		View:  mgl32.LookAtV(mgl32.Vec3{0, 2, 2}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, 1}),
		Proj:  vulkanClip.Mul4(mgl32.Perspective(mgl32.DegToRad(45), aspectRatio, 0.1, 10)),
	}
}
