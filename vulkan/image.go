package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// Image is a device image bound to its backing memory.
type Image struct {
	Handle core1_0.Image
	Memory core1_0.DeviceMemory

	factory *Factory
	id      uuid.UUID
}

// ImageView is a tracked view over an image the caller may not own.
type ImageView struct {
	Handle core1_0.ImageView

	factory *Factory
	id      uuid.UUID
}

func (f *Factory) CreateImage(label string, width, height, mipLevels int, samples core1_0.SampleCountFlags, format core1_0.Format, tiling core1_0.ImageTiling, usage core1_0.ImageUsageFlags, properties core1_0.MemoryPropertyFlags) (*Image, error) {
	handle, _, err := f.device.driver.CreateImage(nil, core1_0.ImageCreateInfo{
		ImageType: core1_0.ImageType2D,
		Extent: core1_0.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
		MipLevels:     mipLevels,
		ArrayLayers:   1,
		Format:        format,
		Tiling:        tiling,
		InitialLayout: core1_0.ImageLayoutUndefined,
		Usage:         usage,
		SharingMode:   core1_0.SharingModeExclusive,
		Samples:       samples,
	})
	if err != nil {
		return nil, err
	}

	memRequirements := f.device.driver.GetImageMemoryRequirements(handle)
	memoryTypeIndex, err := f.device.findMemoryType(memRequirements.MemoryTypeBits, properties)
	if err != nil {
		f.device.driver.DestroyImage(handle, nil)
		return nil, err
	}

	memory, _, err := f.device.driver.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  memRequirements.Size,
		MemoryTypeIndex: memoryTypeIndex,
	})
	if err != nil {
		f.device.driver.DestroyImage(handle, nil)
		return nil, err
	}

	_, err = f.device.driver.BindImageMemory(handle, memory, 0)
	if err != nil {
		f.device.driver.FreeMemory(memory, nil)
		f.device.driver.DestroyImage(handle, nil)
		return nil, err
	}

	return &Image{
		Handle:  handle,
		Memory:  memory,
		factory: f,
		id:      f.registry.Track("image", label),
	}, nil
}

func (i *Image) Destroy() {
	if i.Handle.Initialized() {
		i.factory.device.driver.DestroyImage(i.Handle, nil)
		i.Handle = core1_0.Image{}
	}
	if i.Memory.Initialized() {
		i.factory.device.driver.FreeMemory(i.Memory, nil)
		i.Memory = core1_0.DeviceMemory{}
	}
	i.factory.registry.Release(i.id)
	i.id = uuid.Nil
}

func (f *Factory) CreateImageView(label string, image core1_0.Image, format core1_0.Format, aspect core1_0.ImageAspectFlags, mipLevels int) (*ImageView, error) {
	handle, _, err := f.device.driver.CreateImageView(nil, core1_0.ImageViewCreateInfo{
		Image:    image,
		ViewType: core1_0.ImageViewType2D,
		Format:   format,
		SubresourceRange: core1_0.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     mipLevels,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	})
	if err != nil {
		return nil, err
	}

	return &ImageView{
		Handle:  handle,
		factory: f,
		id:      f.registry.Track("image-view", label),
	}, nil
}

func (v *ImageView) Destroy() {
	if v.Handle.Initialized() {
		v.factory.device.driver.DestroyImageView(v.Handle, nil)
		v.Handle = core1_0.ImageView{}
	}
	v.factory.registry.Release(v.id)
	v.id = uuid.Nil
}

func (f *Factory) TransitionImageLayout(image *Image, oldLayout, newLayout core1_0.ImageLayout, mipLevels int) error {
	var sourceStage, destStage core1_0.PipelineStageFlags
	var sourceAccess, destAccess core1_0.AccessFlags

	if oldLayout == core1_0.ImageLayoutUndefined && newLayout == core1_0.ImageLayoutTransferDstOptimal {
		sourceAccess = 0
		destAccess = core1_0.AccessTransferWrite
		sourceStage = core1_0.PipelineStageTopOfPipe
		destStage = core1_0.PipelineStageTransfer
	} else if oldLayout == core1_0.ImageLayoutTransferDstOptimal && newLayout == core1_0.ImageLayoutShaderReadOnlyOptimal {
		sourceAccess = core1_0.AccessTransferWrite
		destAccess = core1_0.AccessShaderRead
		sourceStage = core1_0.PipelineStageTransfer
		destStage = core1_0.PipelineStageFragmentShader
	} else {
		return errors.Errorf("unsupported layout transition: %s -> %s", oldLayout, newLayout)
	}

	buffer, err := f.beginSingleTimeCommands()
	if err != nil {
		return err
	}

	err = f.device.driver.CmdPipelineBarrier(buffer, sourceStage, destStage, 0, nil, nil, []core1_0.ImageMemoryBarrier{
		{
			OldLayout:           oldLayout,
			NewLayout:           newLayout,
			SrcQueueFamilyIndex: -1,
			DstQueueFamilyIndex: -1,
			Image:               image.Handle,
			SubresourceRange: core1_0.ImageSubresourceRange{
				AspectMask:     core1_0.ImageAspectColor,
				BaseMipLevel:   0,
				LevelCount:     mipLevels,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
			SrcAccessMask: sourceAccess,
			DstAccessMask: destAccess,
		},
	})
	if err != nil {
		return err
	}

	return f.endSingleTimeCommands(buffer)
}

func (f *Factory) CopyBufferToImage(buffer *Buffer, image *Image, width, height int) error {
	cmdBuffer, err := f.beginSingleTimeCommands()
	if err != nil {
		return err
	}

	err = f.device.driver.CmdCopyBufferToImage(cmdBuffer, buffer.Handle, image.Handle, core1_0.ImageLayoutTransferDstOptimal,
		core1_0.BufferImageCopy{
			BufferOffset:      0,
			BufferRowLength:   0,
			BufferImageHeight: 0,

			ImageSubresource: core1_0.ImageSubresourceLayers{
				AspectMask:     core1_0.ImageAspectColor,
				MipLevel:       0,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
			ImageOffset: core1_0.Offset3D{X: 0, Y: 0, Z: 0},
			ImageExtent: core1_0.Extent3D{Width: width, Height: height, Depth: 1},
		},
	)
	if err != nil {
		return err
	}

	return f.endSingleTimeCommands(cmdBuffer)
}

// GenerateMipmaps fills levels 1..mipLevels-1 by blitting each level down
// from the one above it, then leaves every level in shader-read layout. The
// base level must be in transfer-dst layout when called.
func (f *Factory) GenerateMipmaps(image *Image, format core1_0.Format, width, height, mipLevels int) error {
	properties := f.device.instance.driver.GetPhysicalDeviceFormatProperties(f.device.physical, format)
	if (properties.OptimalTilingFeatures & core1_0.FormatFeatureSampledImageFilterLinear) == 0 {
		return errors.Errorf("format %s does not support linear blitting", format)
	}

	commandBuffer, err := f.beginSingleTimeCommands()
	if err != nil {
		return err
	}

	barrier := core1_0.ImageMemoryBarrier{
		Image:               image.Handle,
		SrcQueueFamilyIndex: -1,
		DstQueueFamilyIndex: -1,
		SubresourceRange: core1_0.ImageSubresourceRange{
			AspectMask:     core1_0.ImageAspectColor,
			BaseArrayLayer: 0,
			LayerCount:     1,
			LevelCount:     1,
		},
	}

	mipWidth := width
	mipHeight := height
	for i := 1; i < mipLevels; i++ {
		barrier.SubresourceRange.BaseMipLevel = i - 1
		barrier.OldLayout = core1_0.ImageLayoutTransferDstOptimal
		barrier.NewLayout = core1_0.ImageLayoutTransferSrcOptimal
		barrier.SrcAccessMask = core1_0.AccessTransferWrite
		barrier.DstAccessMask = core1_0.AccessTransferRead

		err = f.device.driver.CmdPipelineBarrier(commandBuffer, core1_0.PipelineStageTransfer, core1_0.PipelineStageTransfer, 0, nil, nil, []core1_0.ImageMemoryBarrier{barrier})
		if err != nil {
			return err
		}

		nextMipWidth := mipWidth
		nextMipHeight := mipHeight
		if nextMipWidth > 1 {
			nextMipWidth /= 2
		}
		if nextMipHeight > 1 {
			nextMipHeight /= 2
		}

		err = f.device.driver.CmdBlitImage(commandBuffer, image.Handle, core1_0.ImageLayoutTransferSrcOptimal, image.Handle, core1_0.ImageLayoutTransferDstOptimal, []core1_0.ImageBlit{
			{
				SrcSubresource: core1_0.ImageSubresourceLayers{
					AspectMask:     core1_0.ImageAspectColor,
					MipLevel:       i - 1,
					BaseArrayLayer: 0,
					LayerCount:     1,
				},
				SrcOffsets: [2]core1_0.Offset3D{
					{X: 0, Y: 0, Z: 0},
					{X: mipWidth, Y: mipHeight, Z: 1},
				},

				DstSubresource: core1_0.ImageSubresourceLayers{
					AspectMask:     core1_0.ImageAspectColor,
					MipLevel:       i,
					BaseArrayLayer: 0,
					LayerCount:     1,
				},
				DstOffsets: [2]core1_0.Offset3D{
					{X: 0, Y: 0, Z: 0},
					{X: nextMipWidth, Y: nextMipHeight, Z: 1},
				},
			},
		}, core1_0.FilterLinear)
		if err != nil {
			return err
		}

		barrier.OldLayout = core1_0.ImageLayoutTransferSrcOptimal
		barrier.NewLayout = core1_0.ImageLayoutShaderReadOnlyOptimal
		barrier.SrcAccessMask = core1_0.AccessTransferRead
		barrier.DstAccessMask = core1_0.AccessShaderRead

		err = f.device.driver.CmdPipelineBarrier(commandBuffer, core1_0.PipelineStageTransfer, core1_0.PipelineStageFragmentShader, 0, nil, nil, []core1_0.ImageMemoryBarrier{barrier})
		if err != nil {
			return err
		}

		mipWidth = nextMipWidth
		mipHeight = nextMipHeight
	}

	barrier.SubresourceRange.BaseMipLevel = mipLevels - 1
	barrier.OldLayout = core1_0.ImageLayoutTransferDstOptimal
	barrier.NewLayout = core1_0.ImageLayoutShaderReadOnlyOptimal
	barrier.SrcAccessMask = core1_0.AccessTransferWrite
	barrier.DstAccessMask = core1_0.AccessShaderRead

	err = f.device.driver.CmdPipelineBarrier(commandBuffer, core1_0.PipelineStageTransfer, core1_0.PipelineStageFragmentShader, 0, nil, nil, []core1_0.ImageMemoryBarrier{barrier})
	if err != nil {
		return err
	}

	return f.endSingleTimeCommands(commandBuffer)
}
