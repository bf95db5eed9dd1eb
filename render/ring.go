package render

import "github.com/cockroachdb/errors"

// FrameSlot holds the synchronization primitives for one frame in flight:
// a semaphore signaled when the slot's acquired image is ready to be drawn
// to, a semaphore signaled when drawing finishes, and a fence signaled when
// the submitted work completes on the device.
type FrameSlot struct {
	Index          int
	ImageAvailable Semaphore
	RenderFinished Semaphore
	InFlight       Fence
}

// FrameRing is the fixed set of frame slots cycled through by the
// scheduler. Slot count is independent of the swapchain image count and
// never changes over the ring's lifetime.
type FrameRing struct {
	slots []FrameSlot
}

// NewFrameRing creates n slots. In-flight fences start signaled so the
// first wait on each slot returns immediately. On any creation failure the
// primitives created so far are destroyed before returning.
func NewFrameRing(factory SyncFactory, n int) (*FrameRing, error) {
	if n < 1 {
		return nil, errors.Errorf("frame ring requires at least 1 slot, requested %d", n)
	}

	ring := &FrameRing{slots: make([]FrameSlot, n)}
	for i := range ring.slots {
		slot := &ring.slots[i]
		slot.Index = i

		var err error
		slot.ImageAvailable, err = factory.NewSemaphore()
		if err != nil {
			ring.Destroy()
			return nil, errors.Wrapf(err, "slot %d image-available semaphore", i)
		}
		slot.RenderFinished, err = factory.NewSemaphore()
		if err != nil {
			ring.Destroy()
			return nil, errors.Wrapf(err, "slot %d render-finished semaphore", i)
		}
		slot.InFlight, err = factory.NewFence(true)
		if err != nil {
			ring.Destroy()
			return nil, errors.Wrapf(err, "slot %d in-flight fence", i)
		}
	}

	return ring, nil
}

func (r *FrameRing) Len() int {
	return len(r.slots)
}

// Slot maps a monotonically increasing frame counter onto its ring slot.
func (r *FrameRing) Slot(frame uint64) *FrameSlot {
	return &r.slots[frame%uint64(len(r.slots))]
}

// Destroy releases every primitive in the ring exactly once, in reverse
// creation order within each slot. Safe to call on a partially built ring
// and safe to call again.
func (r *FrameRing) Destroy() {
	for i := range r.slots {
		slot := &r.slots[i]
		if slot.InFlight != nil {
			slot.InFlight.Destroy()
			slot.InFlight = nil
		}
		if slot.RenderFinished != nil {
			slot.RenderFinished.Destroy()
			slot.RenderFinished = nil
		}
		if slot.ImageAvailable != nil {
			slot.ImageAvailable.Destroy()
			slot.ImageAvailable = nil
		}
	}
}

// ImageFences tracks, per swapchain image, the in-flight fence of the slot
// that last rendered to it. Entries are nil until an image is first used.
// The table never waits or resets; the scheduler does both.
type ImageFences struct {
	fences []Fence
}

func NewImageFences(n int) *ImageFences {
	return &ImageFences{fences: make([]Fence, n)}
}

func (f *ImageFences) Len() int {
	return len(f.fences)
}

func (f *ImageFences) Get(imageIndex int) Fence {
	return f.fences[imageIndex]
}

func (f *ImageFences) Set(imageIndex int, fence Fence) {
	f.fences[imageIndex] = fence
}

// Resize clears the table to n nil entries. Called after a swapchain
// rebuild, when previous image-to-fence associations no longer hold.
func (f *ImageFences) Resize(n int) {
	f.fences = make([]Fence, n)
}
