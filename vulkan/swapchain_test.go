package vulkan

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
)

func TestChooseSurfaceFormatPrefersSRGB(t *testing.T) {
	formats := []khr_surface.SurfaceFormat{
		{Format: core1_0.FormatR8G8B8A8UnsignedNormalized, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear},
		{Format: core1_0.FormatB8G8R8A8SRGB, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear},
	}

	chosen := chooseSurfaceFormat(formats)
	require.Equal(t, core1_0.FormatB8G8R8A8SRGB, chosen.Format)
}

func TestChooseSurfaceFormatFallsBackToFirst(t *testing.T) {
	formats := []khr_surface.SurfaceFormat{
		{Format: core1_0.FormatR8G8B8A8UnsignedNormalized, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear},
		{Format: core1_0.FormatB8G8R8A8UnsignedNormalized, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear},
	}

	chosen := chooseSurfaceFormat(formats)
	require.Equal(t, formats[0], chosen)
}

func TestChoosePresentMode(t *testing.T) {
	withMailbox := []khr_surface.PresentMode{
		khr_surface.PresentModeImmediate,
		khr_surface.PresentModeMailbox,
		khr_surface.PresentModeFIFO,
	}
	withoutMailbox := []khr_surface.PresentMode{
		khr_surface.PresentModeImmediate,
		khr_surface.PresentModeFIFO,
	}

	require.Equal(t, khr_surface.PresentModeMailbox, choosePresentMode(withMailbox, false))
	require.Equal(t, khr_surface.PresentModeFIFO, choosePresentMode(withMailbox, true))
	require.Equal(t, khr_surface.PresentModeFIFO, choosePresentMode(withoutMailbox, false))
}

func TestChooseExtentUsesCurrentWhenFixed(t *testing.T) {
	capabilities := &khr_surface.SurfaceCapabilities{
		CurrentExtent: core1_0.Extent2D{Width: 800, Height: 600},
	}

	extent := chooseExtent(capabilities, 1024, 768)
	require.Equal(t, core1_0.Extent2D{Width: 800, Height: 600}, extent)
}

func TestChooseExtentClampsDrawableSize(t *testing.T) {
	capabilities := &khr_surface.SurfaceCapabilities{
		CurrentExtent:  core1_0.Extent2D{Width: -1, Height: -1},
		MinImageExtent: core1_0.Extent2D{Width: 200, Height: 200},
		MaxImageExtent: core1_0.Extent2D{Width: 2000, Height: 2000},
	}

	extent := chooseExtent(capabilities, 5000, 50)
	require.Equal(t, core1_0.Extent2D{Width: 2000, Height: 200}, extent)

	extent = chooseExtent(capabilities, 1024, 768)
	require.Equal(t, core1_0.Extent2D{Width: 1024, Height: 768}, extent)
}

func TestChooseImageCount(t *testing.T) {
	unbounded := &khr_surface.SurfaceCapabilities{MinImageCount: 2}
	require.Equal(t, 3, chooseImageCount(unbounded))

	capped := &khr_surface.SurfaceCapabilities{MinImageCount: 3, MaxImageCount: 3}
	require.Equal(t, 3, chooseImageCount(capped))
}

func TestEffectiveSamples(t *testing.T) {
	require.Equal(t, core1_0.Samples8, effectiveSamples(0, core1_0.Samples8))
	require.Equal(t, core1_0.Samples4, effectiveSamples(4, core1_0.Samples8))
	require.Equal(t, core1_0.Samples4, effectiveSamples(16, core1_0.Samples4))
	require.Equal(t, core1_0.Samples1, effectiveSamples(1, core1_0.Samples8))
}

func TestSampleCountFlag(t *testing.T) {
	require.Equal(t, core1_0.Samples64, sampleCountFlag(64))
	require.Equal(t, core1_0.Samples8, sampleCountFlag(8))
	require.Equal(t, core1_0.Samples2, sampleCountFlag(2))
	require.Equal(t, core1_0.Samples1, sampleCountFlag(1))
	require.Equal(t, core1_0.Samples1, sampleCountFlag(3))
}
