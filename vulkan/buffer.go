package vulkan

import (
	"github.com/google/uuid"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// Buffer is a device buffer bound to its backing memory.
type Buffer struct {
	Handle core1_0.Buffer
	Memory core1_0.DeviceMemory

	factory *Factory
	id      uuid.UUID
}

func (f *Factory) CreateBuffer(label string, size int, usage core1_0.BufferUsageFlags, properties core1_0.MemoryPropertyFlags) (*Buffer, error) {
	handle, _, err := f.device.driver.CreateBuffer(nil, core1_0.BufferCreateInfo{
		Size:        size,
		Usage:       usage,
		SharingMode: core1_0.SharingModeExclusive,
	})
	if err != nil {
		return nil, err
	}

	memRequirements := f.device.driver.GetBufferMemoryRequirements(handle)
	memoryTypeIndex, err := f.device.findMemoryType(memRequirements.MemoryTypeBits, properties)
	if err != nil {
		f.device.driver.DestroyBuffer(handle, nil)
		return nil, err
	}

	memory, _, err := f.device.driver.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  memRequirements.Size,
		MemoryTypeIndex: memoryTypeIndex,
	})
	if err != nil {
		f.device.driver.DestroyBuffer(handle, nil)
		return nil, err
	}

	_, err = f.device.driver.BindBufferMemory(handle, memory, 0)
	if err != nil {
		f.device.driver.FreeMemory(memory, nil)
		f.device.driver.DestroyBuffer(handle, nil)
		return nil, err
	}

	return &Buffer{
		Handle:  handle,
		Memory:  memory,
		factory: f,
		id:      f.registry.Track("buffer", label),
	}, nil
}

// Write serializes data into the buffer's memory at offset.
func (b *Buffer) Write(offset int, data any) error {
	return writeData(b.factory.device.driver, b.Memory, offset, data)
}

func (b *Buffer) Destroy() {
	if b.Handle.Initialized() {
		b.factory.device.driver.DestroyBuffer(b.Handle, nil)
		b.Handle = core1_0.Buffer{}
	}
	if b.Memory.Initialized() {
		b.factory.device.driver.FreeMemory(b.Memory, nil)
		b.Memory = core1_0.DeviceMemory{}
	}
	b.factory.registry.Release(b.id)
	b.id = uuid.Nil
}

func (f *Factory) CopyBuffer(src, dst *Buffer, size int) error {
	buffer, err := f.beginSingleTimeCommands()
	if err != nil {
		return err
	}

	err = f.device.driver.CmdCopyBuffer(buffer, src.Handle, dst.Handle,
		core1_0.BufferCopy{
			SrcOffset: 0,
			DstOffset: 0,
			Size:      size,
		},
	)
	if err != nil {
		return err
	}

	return f.endSingleTimeCommands(buffer)
}
