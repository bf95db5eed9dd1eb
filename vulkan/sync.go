package vulkan

import (
	"time"

	"github.com/google/uuid"
	"github.com/vkngwrapper/core/v3/core1_0"

	"github.com/daniel1414/vulkan-renderer/render"
)

// Semaphore wraps a device semaphore behind the render contract.
type Semaphore struct {
	driver   core1_0.DeviceDriver
	handle   core1_0.Semaphore
	registry *Registry
	id       uuid.UUID
}

func (s *Semaphore) Destroy() {
	if !s.handle.Initialized() {
		return
	}
	s.driver.DestroySemaphore(s.handle, nil)
	s.handle = core1_0.Semaphore{}
	s.registry.Release(s.id)
}

// Fence wraps a device fence behind the render contract.
type Fence struct {
	driver   core1_0.DeviceDriver
	handle   core1_0.Fence
	registry *Registry
	id       uuid.UUID
}

func (f *Fence) Wait(timeout time.Duration) error {
	_, err := f.driver.WaitForFences(true, timeout, f.handle)
	return err
}

func (f *Fence) Reset() error {
	_, err := f.driver.ResetFences(f.handle)
	return err
}

func (f *Fence) Destroy() {
	if !f.handle.Initialized() {
		return
	}
	f.driver.DestroyFence(f.handle, nil)
	f.handle = core1_0.Fence{}
	f.registry.Release(f.id)
}

// NewSemaphore implements render.SyncFactory.
func (d *Device) NewSemaphore() (render.Semaphore, error) {
	semaphore, _, err := d.driver.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
	if err != nil {
		return nil, err
	}
	return &Semaphore{
		driver:   d.driver,
		handle:   semaphore,
		registry: d.registry,
		id:       d.registry.Track("semaphore", "frame-ring"),
	}, nil
}

// NewFence implements render.SyncFactory.
func (d *Device) NewFence(signaled bool) (render.Fence, error) {
	var flags core1_0.FenceCreateFlags
	if signaled {
		flags = core1_0.FenceCreateSignaled
	}
	fence, _, err := d.driver.CreateFence(nil, core1_0.FenceCreateInfo{
		Flags: flags,
	})
	if err != nil {
		return nil, err
	}
	return &Fence{
		driver:   d.driver,
		handle:   fence,
		registry: d.registry,
		id:       d.registry.Track("fence", "frame-ring"),
	}, nil
}
