// Package vulkan renders a textured, mip-mapped mesh through the Vulkan API.
// It builds the instance, device, and swapchain, uploads the scene assets to
// GPU memory, and exposes the narrow surfaces the frame scheduler drives.
package vulkan

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/daniel1414/vulkan-renderer/config"
	"github.com/daniel1414/vulkan-renderer/render"
	"github.com/google/uuid"
	"github.com/loov/hrtime"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// Renderer owns the full GPU state for one window: instance, device,
// resource factory, scene assets, and the swapchain. It implements the
// scheduler's Queue and FrameUpdater, and hands out its swapchain, recorder,
// and device through the scheduler's interfaces.
type Renderer struct {
	log      *log.Logger
	registry *Registry

	instance *Instance
	device   *Device
	factory  *Factory

	layout   core1_0.DescriptorSetLayout
	layoutID uuid.UUID

	mesh      *MeshBuffers
	texture   *Texture
	recorder  *Recorder
	swapchain *Swapchain

	clock func() time.Duration
	epoch time.Duration
}

func New(window *sdl.Window, cfg *config.Config, logger *log.Logger) (*Renderer, error) {
	r := &Renderer{
		log:      logger,
		registry: NewRegistry(),
		clock:    hrtime.Now,
	}

	assets, err := LoadAssets(AssetPaths{
		Mesh:           cfg.Assets.MeshPath,
		Material:       cfg.Assets.MaterialPath,
		Texture:        cfg.Assets.TexturePath,
		VertexShader:   cfg.Assets.VertexShaderPath,
		FragmentShader: cfg.Assets.FragmentShaderPath,
	})
	if err != nil {
		return nil, err
	}

	r.instance, err = NewInstance(window, cfg.Window.Title, cfg.Renderer.Validation, logger)
	if err != nil {
		return nil, err
	}

	r.device, err = NewDevice(r.instance, r.registry, logger)
	if err != nil {
		r.Close()
		return nil, err
	}

	r.factory, err = NewFactory(r.device, r.registry)
	if err != nil {
		r.Close()
		return nil, err
	}

	r.texture, err = r.factory.UploadTexture(assets.Texture)
	if err != nil {
		r.Close()
		return nil, err
	}

	r.mesh, err = r.factory.UploadMesh(assets.Mesh)
	if err != nil {
		r.Close()
		return nil, err
	}

	r.layout, err = newDescriptorSetLayout(r.device)
	if err != nil {
		r.Close()
		return nil, err
	}
	r.layoutID = r.registry.Track("descriptor-set-layout", "scene")

	r.recorder = NewRecorder(r.factory, r.mesh)

	r.swapchain, err = NewSwapchain(SwapchainParams{
		Window:   window,
		Device:   r.device,
		Factory:  r.factory,
		Recorder: r.recorder,
		Texture:  r.texture,
		Log:      logger,

		SetLayout: r.layout,

		VSync:       cfg.Renderer.VSync,
		SampleCount: cfg.Renderer.SampleCount,

		VertexShader:   assets.VertexShader,
		FragmentShader: assets.FragmentShader,
	})
	if err != nil {
		r.Close()
		return nil, err
	}

	r.epoch = r.clock()

	logger.Info("renderer ready",
		"indices", r.mesh.IndexCount,
		"mips", r.texture.MipLevels,
		"images", r.swapchain.ImageCount())
	return r, nil
}

// Surface exposes the swapchain to the frame scheduler.
func (r *Renderer) Surface() render.Surface {
	return r.swapchain
}

// Recorder exposes the prerecorded command buffers to the frame scheduler.
func (r *Renderer) Recorder() render.Recorder {
	return r.recorder
}

// SyncFactory exposes semaphore and fence creation to the frame scheduler.
func (r *Renderer) SyncFactory() render.SyncFactory {
	return r.device
}

// Submit hands one frame's command buffer to the graphics queue. Rendering
// waits for the acquired image at the color output stage, then signals the
// semaphore and fence the scheduler passed in.
func (r *Renderer) Submit(buffer render.CommandBuffer, imageAvailable, renderFinished render.Semaphore, done render.Fence) error {
	commandBuffer, ok := buffer.(core1_0.CommandBuffer)
	if !ok {
		return errors.Errorf("cannot submit foreign command buffer type %T", buffer)
	}
	waitSemaphore, ok := imageAvailable.(*Semaphore)
	if !ok {
		return errors.Errorf("cannot wait on foreign semaphore type %T", imageAvailable)
	}
	signalSemaphore, ok := renderFinished.(*Semaphore)
	if !ok {
		return errors.Errorf("cannot signal foreign semaphore type %T", renderFinished)
	}
	fence, ok := done.(*Fence)
	if !ok {
		return errors.Errorf("cannot signal foreign fence type %T", done)
	}

	_, err := r.device.driver.QueueSubmit(r.device.graphicsQueue, &fence.handle,
		core1_0.SubmitInfo{
			WaitSemaphores:   []core1_0.Semaphore{waitSemaphore.handle},
			WaitDstStageMask: []core1_0.PipelineStageFlags{core1_0.PipelineStageColorAttachmentOutput},
			CommandBuffers:   []core1_0.CommandBuffer{commandBuffer},
			SignalSemaphores: []core1_0.Semaphore{signalSemaphore.handle},
		},
	)
	return err
}

// UpdateUniforms writes the current scene matrices into the uniform buffer
// for the image about to be rendered.
func (r *Renderer) UpdateUniforms(imageIndex int) error {
	elapsed := r.clock() - r.epoch
	return r.swapchain.WriteUniform(imageIndex, NewTransform(elapsed, r.swapchain.AspectRatio()))
}

// WaitIdle blocks until the device finishes all queued work.
func (r *Renderer) WaitIdle() {
	if r.device == nil {
		return
	}
	err := r.device.WaitIdle()
	if err != nil {
		r.log.Error("device wait failed", "err", err)
	}
}

// Close releases every GPU resource. Callers must stop submitting frames and
// wait for the device first. Anything still tracked afterwards is a leak and
// gets logged.
func (r *Renderer) Close() {
	if r.swapchain != nil {
		r.swapchain.Destroy()
		r.swapchain = nil
	}
	if r.texture != nil {
		r.texture.Destroy()
		r.texture = nil
	}
	if r.mesh != nil {
		r.mesh.Destroy()
		r.mesh = nil
	}
	if r.layout.Initialized() {
		r.device.driver.DestroyDescriptorSetLayout(r.layout, nil)
		r.layout = core1_0.DescriptorSetLayout{}
		r.registry.Release(r.layoutID)
		r.layoutID = uuid.Nil
	}
	if r.factory != nil {
		r.factory.Destroy()
		r.factory = nil
	}

	for _, leaked := range r.registry.Leaked() {
		r.log.Warn("leaked GPU resource", "kind", leaked.Kind, "label", leaked.Label, "id", leaked.ID)
	}

	if r.device != nil {
		r.device.Destroy()
		r.device = nil
	}
	if r.instance != nil {
		r.instance.Destroy()
		r.instance = nil
	}
}
