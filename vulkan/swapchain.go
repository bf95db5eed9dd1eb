package vulkan

import (
	"fmt"
	"time"
	"unsafe"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/daniel1414/vulkan-renderer/render"
	"github.com/google/uuid"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

// SwapchainParams collects everything a swapchain needs beyond the device:
// the long-lived scene resources it binds into descriptor sets and the
// presentation knobs from the config.
type SwapchainParams struct {
	Window   *sdl.Window
	Device   *Device
	Factory  *Factory
	Recorder *Recorder
	Texture  *Texture
	Log      *log.Logger

	SetLayout core1_0.DescriptorSetLayout

	VSync       bool
	SampleCount int

	VertexShader   []byte
	FragmentShader []byte
}

// Swapchain owns the presentation chain and every resource sized to it: the
// per-image views, render pass, pipeline, depth and MSAA targets,
// framebuffers, uniform buffers, and descriptor sets. Rebuild tears all of
// it down and builds it again against the current window size.
type Swapchain struct {
	window   *sdl.Window
	device   *Device
	factory  *Factory
	recorder *Recorder
	texture  *Texture
	log      *log.Logger

	setLayout      core1_0.DescriptorSetLayout
	vsync          bool
	sampleCap      int
	vertexShader   []byte
	fragmentShader []byte

	extension khr_swapchain.ExtensionDriver
	id        uuid.UUID

	handle  khr_swapchain.Swapchain
	images  []core1_0.Image
	format  core1_0.Format
	extent  core1_0.Extent2D
	samples core1_0.SampleCountFlags

	views          []*ImageView
	renderPass     core1_0.RenderPass
	pipelineLayout core1_0.PipelineLayout
	pipeline       core1_0.Pipeline
	colorImage     *Image
	colorView      *ImageView
	depthImage     *Image
	depthView      *ImageView
	framebuffers   []core1_0.Framebuffer

	uniformBuffers []*Buffer
	descriptorPool core1_0.DescriptorPool
	descriptorSets []core1_0.DescriptorSet
}

func NewSwapchain(params SwapchainParams) (*Swapchain, error) {
	s := &Swapchain{
		window:   params.Window,
		device:   params.Device,
		factory:  params.Factory,
		recorder: params.Recorder,
		texture:  params.Texture,
		log:      params.Log,

		setLayout:      params.SetLayout,
		vsync:          params.VSync,
		sampleCap:      params.SampleCount,
		vertexShader:   params.VertexShader,
		fragmentShader: params.FragmentShader,

		extension: khr_swapchain.CreateExtensionDriverFromCoreDriver(params.Device.driver),
	}

	err := s.build()
	if err != nil {
		s.teardown()
		return nil, err
	}

	s.id = s.factory.registry.Track("swapchain", "primary")
	return s, nil
}

// Acquire hands the next presentable image index to the caller, signaling
// the semaphore once the image is ready to render into.
func (s *Swapchain) Acquire(timeout time.Duration, imageAvailable render.Semaphore) (int, error) {
	semaphore, ok := imageAvailable.(*Semaphore)
	if !ok {
		return 0, errors.Errorf("cannot wait on foreign semaphore type %T", imageAvailable)
	}

	imageIndex, res, err := s.extension.AcquireNextImage(s.handle, timeout, &semaphore.handle, nil)
	if res == khr_swapchain.VKErrorOutOfDate {
		return 0, errors.Mark(errors.Errorf("swapchain out of date on acquire"), render.ErrSwapchainRetired)
	} else if err != nil {
		return 0, err
	}

	return imageIndex, nil
}

// Present queues the image for display once the semaphore signals.
func (s *Swapchain) Present(renderFinished render.Semaphore, imageIndex int) error {
	semaphore, ok := renderFinished.(*Semaphore)
	if !ok {
		return errors.Errorf("cannot wait on foreign semaphore type %T", renderFinished)
	}

	res, err := s.extension.QueuePresent(s.device.presentQueue, khr_swapchain.PresentInfo{
		WaitSemaphores: []core1_0.Semaphore{semaphore.handle},
		Swapchains:     []khr_swapchain.Swapchain{s.handle},
		ImageIndices:   []int{imageIndex},
	})
	if res == khr_swapchain.VKErrorOutOfDate {
		return errors.Mark(errors.Errorf("swapchain out of date on present"), render.ErrSwapchainRetired)
	} else if res == khr_swapchain.VKSuboptimal {
		return errors.Mark(errors.Errorf("swapchain suboptimal on present"), render.ErrSwapchainSuboptimal)
	}

	return err
}

// Rebuild recreates the chain against the current drawable size. While the
// window is minimized or has no drawable area there is nothing to present
// to, so the stale chain is left in place until the window comes back.
func (s *Swapchain) Rebuild() error {
	w, h := s.window.VulkanGetDrawableSize()
	if w == 0 || h == 0 {
		return nil
	}
	if (s.window.GetFlags() & sdl.WINDOW_MINIMIZED) != 0 {
		return nil
	}

	_, err := s.device.driver.DeviceWaitIdle()
	if err != nil {
		return err
	}

	s.teardown()

	err = s.build()
	if err != nil {
		return err
	}

	s.log.Debug("swapchain rebuilt", "width", s.extent.Width, "height", s.extent.Height, "images", len(s.images))
	return nil
}

func (s *Swapchain) ImageCount() int {
	return len(s.images)
}

// WriteUniform stores the frame's matrices into the uniform buffer bound to
// one swapchain image. Only call it while that image is not in flight.
func (s *Swapchain) WriteUniform(imageIndex int, ubo *UniformBufferObject) error {
	if imageIndex < 0 || imageIndex >= len(s.uniformBuffers) {
		return errors.Errorf("no uniform buffer for image %d", imageIndex)
	}
	return s.uniformBuffers[imageIndex].Write(0, ubo)
}

func (s *Swapchain) AspectRatio() float32 {
	return float32(s.extent.Width) / float32(s.extent.Height)
}

func (s *Swapchain) Destroy() {
	s.teardown()
	s.factory.registry.Release(s.id)
	s.id = uuid.Nil
}

func (s *Swapchain) build() error {
	support, err := s.device.querySwapchainSupport(s.device.physical)
	if err != nil {
		return err
	}

	surfaceFormat := chooseSurfaceFormat(support.formats)
	presentMode := choosePresentMode(support.presentModes, s.vsync)

	drawableWidth, drawableHeight := s.window.VulkanGetDrawableSize()
	extent := chooseExtent(support.capabilities, int(drawableWidth), int(drawableHeight))
	imageCount := chooseImageCount(support.capabilities)

	sharingMode := core1_0.SharingModeExclusive
	var familyIndices []int
	if s.device.graphicsFamily != s.device.presentFamily {
		sharingMode = core1_0.SharingModeConcurrent
		familyIndices = append(familyIndices, s.device.graphicsFamily, s.device.presentFamily)
	}

	swapchain, _, err := s.extension.CreateSwapchain(nil, khr_swapchain.SwapchainCreateInfo{
		Surface: s.device.instance.surface,

		MinImageCount:    imageCount,
		ImageFormat:      surfaceFormat.Format,
		ImageColorSpace:  surfaceFormat.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       core1_0.ImageUsageColorAttachment,

		ImageSharingMode:   sharingMode,
		QueueFamilyIndices: familyIndices,

		PreTransform:   support.capabilities.CurrentTransform,
		CompositeAlpha: khr_surface.CompositeAlphaOpaque,
		PresentMode:    presentMode,
		Clipped:        true,
	})
	if err != nil {
		return err
	}
	s.handle = swapchain
	s.format = surfaceFormat.Format
	s.extent = extent

	images, _, err := s.extension.GetSwapchainImages(s.handle)
	if err != nil {
		return err
	}
	s.images = images

	for imageIdx, image := range images {
		view, err := s.factory.CreateImageView(fmt.Sprintf("swapchain-%d", imageIdx), image, s.format, core1_0.ImageAspectColor, 1)
		if err != nil {
			return err
		}
		s.views = append(s.views, view)
	}

	s.samples = effectiveSamples(s.sampleCap, s.device.maxSamples)

	s.renderPass, err = newRenderPass(s.device, s.format, s.samples)
	if err != nil {
		return err
	}

	s.pipelineLayout, s.pipeline, err = newGraphicsPipeline(s.device, pipelineParams{
		SetLayout:      s.setLayout,
		RenderPass:     s.renderPass,
		Extent:         s.extent,
		Samples:        s.samples,
		VertexShader:   s.vertexShader,
		FragmentShader: s.fragmentShader,
	})
	if err != nil {
		return err
	}

	if s.samples != core1_0.Samples1 {
		s.colorImage, err = s.factory.CreateImage("msaa-color", s.extent.Width, s.extent.Height, 1, s.samples,
			s.format, core1_0.ImageTilingOptimal,
			core1_0.ImageUsageTransientAttachment|core1_0.ImageUsageColorAttachment,
			core1_0.MemoryPropertyDeviceLocal)
		if err != nil {
			return err
		}

		s.colorView, err = s.factory.CreateImageView("msaa-color", s.colorImage.Handle, s.format, core1_0.ImageAspectColor, 1)
		if err != nil {
			return err
		}
	}

	depthFormat, err := s.device.findDepthFormat()
	if err != nil {
		return err
	}

	s.depthImage, err = s.factory.CreateImage("depth", s.extent.Width, s.extent.Height, 1, s.samples,
		depthFormat, core1_0.ImageTilingOptimal,
		core1_0.ImageUsageDepthStencilAttachment,
		core1_0.MemoryPropertyDeviceLocal)
	if err != nil {
		return err
	}

	s.depthView, err = s.factory.CreateImageView("depth", s.depthImage.Handle, depthFormat, core1_0.ImageAspectDepth, 1)
	if err != nil {
		return err
	}

	for _, view := range s.views {
		attachments := []core1_0.ImageView{view.Handle, s.depthView.Handle}
		if s.samples != core1_0.Samples1 {
			attachments = []core1_0.ImageView{s.colorView.Handle, s.depthView.Handle, view.Handle}
		}

		framebuffer, _, err := s.device.driver.CreateFramebuffer(nil, core1_0.FramebufferCreateInfo{
			RenderPass:  s.renderPass,
			Layers:      1,
			Attachments: attachments,
			Width:       s.extent.Width,
			Height:      s.extent.Height,
		})
		if err != nil {
			return err
		}

		s.framebuffers = append(s.framebuffers, framebuffer)
	}

	uniformSize := int(unsafe.Sizeof(UniformBufferObject{}))
	for imageIdx := range images {
		buffer, err := s.factory.CreateBuffer(fmt.Sprintf("uniform-%d", imageIdx), uniformSize,
			core1_0.BufferUsageUniformBuffer,
			core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
		if err != nil {
			return err
		}
		s.uniformBuffers = append(s.uniformBuffers, buffer)
	}

	err = s.buildDescriptorSets()
	if err != nil {
		return err
	}

	return s.recorder.Record(RecordInfo{
		RenderPass:   s.renderPass,
		Framebuffers: s.framebuffers,
		Extent:       s.extent,
		Pipeline:     s.pipeline,
		Layout:       s.pipelineLayout,
		Sets:         s.descriptorSets,
	})
}

func (s *Swapchain) buildDescriptorSets() error {
	var err error
	s.descriptorPool, _, err = s.device.driver.CreateDescriptorPool(nil, core1_0.DescriptorPoolCreateInfo{
		MaxSets: len(s.images),
		PoolSizes: []core1_0.DescriptorPoolSize{
			{
				Type:            core1_0.DescriptorTypeUniformBuffer,
				DescriptorCount: len(s.images),
			},
			{
				Type:            core1_0.DescriptorTypeCombinedImageSampler,
				DescriptorCount: len(s.images),
			},
		},
	})
	if err != nil {
		return err
	}

	var allocLayouts []core1_0.DescriptorSetLayout
	for i := 0; i < len(s.images); i++ {
		allocLayouts = append(allocLayouts, s.setLayout)
	}

	s.descriptorSets, _, err = s.device.driver.AllocateDescriptorSets(core1_0.DescriptorSetAllocateInfo{
		DescriptorPool: s.descriptorPool,
		SetLayouts:     allocLayouts,
	})
	if err != nil {
		return err
	}

	for i := 0; i < len(s.images); i++ {
		err = s.device.driver.UpdateDescriptorSets([]core1_0.WriteDescriptorSet{
			{
				DstSet:          s.descriptorSets[i],
				DstBinding:      0,
				DstArrayElement: 0,

				DescriptorType: core1_0.DescriptorTypeUniformBuffer,

				BufferInfo: []core1_0.DescriptorBufferInfo{
					{
						Buffer: s.uniformBuffers[i].Handle,
						Offset: 0,
						Range:  int(unsafe.Sizeof(UniformBufferObject{})),
					},
				},
			},
			{
				DstSet:          s.descriptorSets[i],
				DstBinding:      1,
				DstArrayElement: 0,

				DescriptorType: core1_0.DescriptorTypeCombinedImageSampler,

				ImageInfo: []core1_0.DescriptorImageInfo{
					{
						ImageView:   s.texture.View.Handle,
						Sampler:     s.texture.Sampler,
						ImageLayout: core1_0.ImageLayoutShaderReadOnlyOptimal,
					},
				},
			},
		}, nil)
		if err != nil {
			return err
		}
	}

	return nil
}

func (s *Swapchain) teardown() {
	if s.colorView != nil {
		s.colorView.Destroy()
		s.colorView = nil
	}
	if s.colorImage != nil {
		s.colorImage.Destroy()
		s.colorImage = nil
	}
	if s.depthView != nil {
		s.depthView.Destroy()
		s.depthView = nil
	}
	if s.depthImage != nil {
		s.depthImage.Destroy()
		s.depthImage = nil
	}

	for _, framebuffer := range s.framebuffers {
		s.device.driver.DestroyFramebuffer(framebuffer, nil)
	}
	s.framebuffers = nil

	s.recorder.Free()

	if s.pipeline.Initialized() {
		s.device.driver.DestroyPipeline(s.pipeline, nil)
		s.pipeline = core1_0.Pipeline{}
	}
	if s.pipelineLayout.Initialized() {
		s.device.driver.DestroyPipelineLayout(s.pipelineLayout, nil)
		s.pipelineLayout = core1_0.PipelineLayout{}
	}
	if s.renderPass.Initialized() {
		s.device.driver.DestroyRenderPass(s.renderPass, nil)
		s.renderPass = core1_0.RenderPass{}
	}

	for _, view := range s.views {
		view.Destroy()
	}
	s.views = nil

	if s.handle.Initialized() {
		s.extension.DestroySwapchain(s.handle, nil)
		s.handle = khr_swapchain.Swapchain{}
	}
	s.images = nil

	for _, buffer := range s.uniformBuffers {
		buffer.Destroy()
	}
	s.uniformBuffers = nil

	if s.descriptorPool.Initialized() {
		s.device.driver.DestroyDescriptorPool(s.descriptorPool, nil)
		s.descriptorPool = core1_0.DescriptorPool{}
	}
	s.descriptorSets = nil
}

func chooseSurfaceFormat(availableFormats []khr_surface.SurfaceFormat) khr_surface.SurfaceFormat {
	for _, format := range availableFormats {
		if format.Format == core1_0.FormatB8G8R8A8SRGB && format.ColorSpace == khr_surface.ColorSpaceSRGBNonlinear {
			return format
		}
	}

	return availableFormats[0]
}

// choosePresentMode prefers low-latency mailbox presentation unless the
// caller asked for vsync. FIFO is the only mode every driver must support.
func choosePresentMode(availablePresentModes []khr_surface.PresentMode, vsync bool) khr_surface.PresentMode {
	if vsync {
		return khr_surface.PresentModeFIFO
	}

	for _, presentMode := range availablePresentModes {
		if presentMode == khr_surface.PresentModeMailbox {
			return presentMode
		}
	}

	return khr_surface.PresentModeFIFO
}

func chooseExtent(capabilities *khr_surface.SurfaceCapabilities, drawableWidth, drawableHeight int) core1_0.Extent2D {
	if capabilities.CurrentExtent.Width != -1 {
		return capabilities.CurrentExtent
	}

	width := drawableWidth
	height := drawableHeight

	if width < capabilities.MinImageExtent.Width {
		width = capabilities.MinImageExtent.Width
	}
	if width > capabilities.MaxImageExtent.Width {
		width = capabilities.MaxImageExtent.Width
	}
	if height < capabilities.MinImageExtent.Height {
		height = capabilities.MinImageExtent.Height
	}
	if height > capabilities.MaxImageExtent.Height {
		height = capabilities.MaxImageExtent.Height
	}

	return core1_0.Extent2D{Width: width, Height: height}
}

// chooseImageCount asks for one image beyond the driver minimum so the
// renderer is less likely to stall waiting for the compositor.
func chooseImageCount(capabilities *khr_surface.SurfaceCapabilities) int {
	imageCount := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && capabilities.MaxImageCount < imageCount {
		imageCount = capabilities.MaxImageCount
	}
	return imageCount
}

// effectiveSamples clamps the device's best sample count to the configured
// cap. A cap of zero means use whatever the device offers.
func effectiveSamples(configured int, deviceMax core1_0.SampleCountFlags) core1_0.SampleCountFlags {
	samples := deviceMax
	if configured > 0 {
		limit := sampleCountFlag(configured)
		if limit < samples {
			samples = limit
		}
	}
	return samples
}

func sampleCountFlag(count int) core1_0.SampleCountFlags {
	switch count {
	case 64:
		return core1_0.Samples64
	case 32:
		return core1_0.Samples32
	case 16:
		return core1_0.Samples16
	case 8:
		return core1_0.Samples8
	case 4:
		return core1_0.Samples4
	case 2:
		return core1_0.Samples2
	default:
		return core1_0.Samples1
	}
}
