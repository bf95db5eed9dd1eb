// Package render schedules frames through acquire, submit, and present. It
// owns the frame counter, the ring of in-flight slots, and the per-image
// fence table, but never talks to the GPU directly: everything
// device-specific enters through the interfaces in this file, so the
// scheduling rules can be exercised without a device.
package render

import (
	"math"
	"time"
)

// NoTimeout blocks a wait until the operation completes.
const NoTimeout = time.Duration(math.MaxInt64)

// CommandBuffer is a prerecorded unit of GPU work. The scheduler never
// inspects it, it only hands it from the Recorder to the Queue.
type CommandBuffer any

// Semaphore orders work on the GPU timeline. The host never waits on it.
type Semaphore interface {
	Destroy()
}

// Fence signals the host that submitted work has completed. A fence must be
// waited on and reset before the work it guards is issued again.
type Fence interface {
	Wait(timeout time.Duration) error
	Reset() error
	Destroy()
}

// SyncFactory mints synchronization primitives for a frame ring.
type SyncFactory interface {
	NewSemaphore() (Semaphore, error)
	NewFence(signaled bool) (Fence, error)
}

// Surface hands out swapchain images and queues them for presentation.
//
// Acquire and Present report a stale swapchain by returning an error marked
// with ErrSwapchainRetired, or ErrSwapchainSuboptimal for a present that
// succeeded against a surface that has since changed. Any other error is
// fatal to the frame loop.
type Surface interface {
	Acquire(timeout time.Duration, imageAvailable Semaphore) (int, error)
	Present(renderFinished Semaphore, imageIndex int) error
	Rebuild() error
	ImageCount() int
}

// Queue submits one frame of work: it waits for imageAvailable before
// writing color output, signals renderFinished when the frame is drawn, and
// signals done once the buffer may be reused.
type Queue interface {
	Submit(buffer CommandBuffer, imageAvailable, renderFinished Semaphore, done Fence) error
}

// Recorder supplies the command buffer that draws into a swapchain image.
type Recorder interface {
	BufferFor(imageIndex int) (CommandBuffer, error)
}

// FrameUpdater writes per-frame data for an image whose previous use has
// completed. The scheduler calls it after the image fence wait, before
// submit.
type FrameUpdater interface {
	UpdateUniforms(imageIndex int) error
}
