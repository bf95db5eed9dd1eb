package vulkan

import (
	"bytes"
	"encoding/binary"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// Factory creates and tracks GPU resources. It owns the command pool used
// for both one-off transfer work and the prerecorded draw buffers.
type Factory struct {
	device   *Device
	registry *Registry

	pool   core1_0.CommandPool
	poolID uuid.UUID
}

func NewFactory(device *Device, registry *Registry) (*Factory, error) {
	pool, _, err := device.driver.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		QueueFamilyIndex: device.graphicsFamily,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create command pool")
	}

	return &Factory{
		device:   device,
		registry: registry,
		pool:     pool,
		poolID:   registry.Track("command-pool", "graphics"),
	}, nil
}

func (f *Factory) Destroy() {
	if f.pool.Initialized() {
		f.device.driver.DestroyCommandPool(f.pool, nil)
		f.pool = core1_0.CommandPool{}
		f.registry.Release(f.poolID)
	}
}

func (f *Factory) AllocateCommandBuffers(count int) ([]core1_0.CommandBuffer, error) {
	buffers, _, err := f.device.driver.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        f.pool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: count,
	})
	return buffers, err
}

func (f *Factory) FreeCommandBuffers(buffers []core1_0.CommandBuffer) {
	if len(buffers) > 0 {
		f.device.driver.FreeCommandBuffers(buffers...)
	}
}

func (f *Factory) beginSingleTimeCommands() (core1_0.CommandBuffer, error) {
	buffers, err := f.AllocateCommandBuffers(1)
	if err != nil {
		return core1_0.CommandBuffer{}, err
	}

	buffer := buffers[0]
	_, err = f.device.driver.BeginCommandBuffer(buffer, core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageOneTimeSubmit,
	})
	return buffer, err
}

func (f *Factory) endSingleTimeCommands(buffer core1_0.CommandBuffer) error {
	_, err := f.device.driver.EndCommandBuffer(buffer)
	if err != nil {
		return err
	}

	_, err = f.device.driver.QueueSubmit(f.device.graphicsQueue, nil,
		core1_0.SubmitInfo{
			CommandBuffers: []core1_0.CommandBuffer{buffer},
		},
	)
	if err != nil {
		return err
	}

	_, err = f.device.driver.QueueWaitIdle(f.device.graphicsQueue)
	if err != nil {
		return err
	}

	f.device.driver.FreeCommandBuffers(buffer)
	return nil
}

// writeData maps memory, serializes data into it, and unmaps again before
// returning. The mapping never outlives the call, even when serialization
// fails.
func writeData(driver core1_0.DeviceDriver, memory core1_0.DeviceMemory, offset int, data any) error {
	size := binary.Size(data)

	memoryPtr, _, err := driver.MapMemory(memory, offset, size, 0)
	if err != nil {
		return err
	}
	defer driver.UnmapMemory(memory)

	mapped := unsafe.Slice((*byte)(memoryPtr), size)

	buf := &bytes.Buffer{}
	err = binary.Write(buf, common.ByteOrder, data)
	if err != nil {
		return err
	}

	copy(mapped, buf.Bytes())
	return nil
}
