package vulkan

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"
)

func TestVulkanClipFlipsYAndHalvesDepth(t *testing.T) {
	up := vulkanClip.Mul4x1(mgl32.Vec4{0, 1, 0, 1})
	require.Equal(t, mgl32.Vec4{0, -1, 0.5, 1}, up)

	nearPlane := vulkanClip.Mul4x1(mgl32.Vec4{0, 0, -1, 1})
	require.InDelta(t, 0, nearPlane.Z(), 1e-6)

	farPlane := vulkanClip.Mul4x1(mgl32.Vec4{0, 0, 1, 1})
	require.InDelta(t, 1, farPlane.Z(), 1e-6)
}

func TestNewTransformStartsUnrotated(t *testing.T) {
	ubo := NewTransform(0, 1)
	require.Equal(t, mgl32.Ident4(), ubo.Model)
}

func TestNewTransformQuarterTurnPerSecond(t *testing.T) {
	ubo := NewTransform(time.Second, 1)

	rotated := ubo.Model.Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	require.InDelta(t, 0, rotated.X(), 1e-6)
	require.InDelta(t, 1, rotated.Y(), 1e-6)
	require.InDelta(t, 0, rotated.Z(), 1e-6)
}

func TestNewTransformViewLooksAtOrigin(t *testing.T) {
	ubo := NewTransform(0, 1)

	eye := ubo.View.Mul4x1(mgl32.Vec4{0, 2, 2, 1})
	require.InDelta(t, 0, eye.X(), 1e-6)
	require.InDelta(t, 0, eye.Y(), 1e-6)
	require.InDelta(t, 0, eye.Z(), 1e-6)

	center := ubo.View.Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	require.Less(t, center.Z(), float32(0))
}

func TestNewTransformProjectionDepthRange(t *testing.T) {
	ubo := NewTransform(0, 1)

	near := ubo.Proj.Mul4x1(mgl32.Vec4{0, 0, -0.1, 1})
	require.InDelta(t, 0, near.Z()/near.W(), 1e-5)

	far := ubo.Proj.Mul4x1(mgl32.Vec4{0, 0, -10, 1})
	require.InDelta(t, 1, far.Z()/far.W(), 1e-5)

	above := ubo.Proj.Mul4x1(mgl32.Vec4{0, 1, -1, 1})
	require.Less(t, above.Y(), float32(0))
}
