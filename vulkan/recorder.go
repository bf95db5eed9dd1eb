package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/daniel1414/vulkan-renderer/render"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// Recorder owns one prerecorded primary command buffer per swapchain image.
// The buffers bind the scene pipeline and issue the indexed draw, so per
// frame work reduces to submitting the buffer for the acquired image. They
// are freed and recorded again whenever the swapchain is rebuilt.
type Recorder struct {
	factory *Factory
	mesh    *MeshBuffers
	buffers []core1_0.CommandBuffer
}

func NewRecorder(factory *Factory, mesh *MeshBuffers) *Recorder {
	return &Recorder{
		factory: factory,
		mesh:    mesh,
	}
}

// RecordInfo carries the swapchain-owned state one recording pass needs.
type RecordInfo struct {
	RenderPass   core1_0.RenderPass
	Framebuffers []core1_0.Framebuffer
	Extent       core1_0.Extent2D
	Pipeline     core1_0.Pipeline
	Layout       core1_0.PipelineLayout
	Sets         []core1_0.DescriptorSet
}

// Record frees any previous buffers and records one buffer per framebuffer.
func (r *Recorder) Record(info RecordInfo) error {
	r.Free()

	driver := r.factory.device.driver
	buffers, err := r.factory.AllocateCommandBuffers(len(info.Framebuffers))
	if err != nil {
		return err
	}
	r.buffers = buffers

	for bufferIdx, buffer := range r.buffers {
		_, err = driver.BeginCommandBuffer(buffer, core1_0.CommandBufferBeginInfo{})
		if err != nil {
			return err
		}

		err = driver.CmdBeginRenderPass(buffer, core1_0.SubpassContentsInline,
			core1_0.RenderPassBeginInfo{
				RenderPass:  info.RenderPass,
				Framebuffer: info.Framebuffers[bufferIdx],
				RenderArea: core1_0.Rect2D{
					Offset: core1_0.Offset2D{X: 0, Y: 0},
					Extent: info.Extent,
				},
				ClearValues: []core1_0.ClearValue{
					core1_0.ClearValueFloat{0, 0, 0, 1},
					core1_0.ClearValueDepthStencil{Depth: 1.0, Stencil: 0},
				},
			},
		)
		if err != nil {
			return err
		}

		driver.CmdBindPipeline(buffer, core1_0.PipelineBindPointGraphics, info.Pipeline)
		driver.CmdBindVertexBuffers(buffer, 0, []core1_0.Buffer{r.mesh.Vertex.Handle}, []int{0})
		driver.CmdBindIndexBuffer(buffer, r.mesh.Index.Handle, 0, core1_0.IndexTypeUInt32)
		driver.CmdBindDescriptorSets(buffer, core1_0.PipelineBindPointGraphics, info.Layout, 0, []core1_0.DescriptorSet{
			info.Sets[bufferIdx],
		}, nil)
		driver.CmdDrawIndexed(buffer, r.mesh.IndexCount, 1, 0, 0, 0)
		driver.CmdEndRenderPass(buffer)

		_, err = driver.EndCommandBuffer(buffer)
		if err != nil {
			return err
		}
	}

	return nil
}

// Free returns the recorded buffers to the pool.
func (r *Recorder) Free() {
	if len(r.buffers) > 0 {
		r.factory.FreeCommandBuffers(r.buffers)
		r.buffers = nil
	}
}

// BufferFor returns the prerecorded buffer for a swapchain image.
func (r *Recorder) BufferFor(imageIndex int) (render.CommandBuffer, error) {
	if imageIndex < 0 || imageIndex >= len(r.buffers) {
		return nil, errors.Errorf("no command buffer recorded for image %d", imageIndex)
	}
	return r.buffers[imageIndex], nil
}
