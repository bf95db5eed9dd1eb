package render

import (
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/loov/hrtime"
)

// statsWindow is the number of recent frame durations averaged by Stats.
const statsWindow = 120

// FrameStats is a snapshot of scheduler counters.
type FrameStats struct {
	// Frames is the number of frames presented. Dropped frames (acquire
	// reported a retired swapchain) are not counted.
	Frames uint64
	// Rebuilds counts swapchain rebuilds triggered by this scheduler.
	Rebuilds uint64
	// AvgFrame is the mean duration of the most recent frames.
	AvgFrame time.Duration
}

// Scheduler drives the frame loop. Each DrawFrame call advances one frame
// through its slot: wait for the slot's previous work, acquire an image,
// wait out the image's previous user, record per-frame data, submit, and
// present. The frame counter advances only when a frame was produced.
//
// DrawFrame must be called from a single goroutine. RequestResize may be
// called from any goroutine.
type Scheduler struct {
	surface  Surface
	queue    Queue
	recorder Recorder
	updater  FrameUpdater

	ring        *FrameRing
	imageFences *ImageFences

	frame    uint64
	rebuilds uint64
	resize   atomic.Bool

	now         func() time.Duration
	durations   [statsWindow]time.Duration
	durationLen int
	durationPos int
}

// NewScheduler builds the frame ring and sizes the image fence table to the
// surface's current image count.
func NewScheduler(surface Surface, queue Queue, recorder Recorder, updater FrameUpdater, sync SyncFactory, framesInFlight int) (*Scheduler, error) {
	ring, err := NewFrameRing(sync, framesInFlight)
	if err != nil {
		return nil, err
	}
	return &Scheduler{
		surface:     surface,
		queue:       queue,
		recorder:    recorder,
		updater:     updater,
		ring:        ring,
		imageFences: NewImageFences(surface.ImageCount()),
		now:         hrtime.Now,
	}, nil
}

// Frame returns the number of frames presented so far.
func (s *Scheduler) Frame() uint64 {
	return s.frame
}

// Ring exposes the slot ring, primarily so owners can destroy it after the
// device has gone idle.
func (s *Scheduler) Ring() *FrameRing {
	return s.ring
}

// RequestResize marks the surface as stale. The frame currently scheduled
// still completes; the rebuild happens after its present is queued.
func (s *Scheduler) RequestResize() {
	s.resize.Store(true)
}

// DrawFrame schedules one frame.
//
// When acquire reports a retired swapchain the frame is dropped: the
// swapchain is rebuilt, no work is submitted, and the frame counter stays
// put so the same slot is reused on the next call. When present reports a
// retired or suboptimal swapchain, or a resize was requested, the frame was
// still produced: the rebuild happens after present and the counter
// advances. Every other error is fatal.
func (s *Scheduler) DrawFrame() error {
	start := s.now()

	slot := s.ring.Slot(s.frame)
	if err := slot.InFlight.Wait(NoTimeout); err != nil {
		return errors.Wrapf(err, "frame %d: wait for slot %d fence", s.frame, slot.Index)
	}

	imageIndex, err := s.surface.Acquire(NoTimeout, slot.ImageAvailable)
	if errors.Is(err, ErrSwapchainRetired) {
		return s.rebuild()
	} else if err != nil {
		return errors.Wrapf(err, "frame %d: acquire image", s.frame)
	}

	// Another slot may still be rendering to this image. Wait it out before
	// overwriting the image's per-frame data.
	if last := s.imageFences.Get(imageIndex); last != nil {
		if err := last.Wait(NoTimeout); err != nil {
			return errors.Wrapf(err, "frame %d: wait for image %d fence", s.frame, imageIndex)
		}
	}
	s.imageFences.Set(imageIndex, slot.InFlight)

	if err := slot.InFlight.Reset(); err != nil {
		return errors.Wrapf(err, "frame %d: reset slot %d fence", s.frame, slot.Index)
	}

	if err := s.updater.UpdateUniforms(imageIndex); err != nil {
		return errors.Wrapf(err, "frame %d: update uniforms for image %d", s.frame, imageIndex)
	}

	buffer, err := s.recorder.BufferFor(imageIndex)
	if err != nil {
		return errors.Wrapf(err, "frame %d: command buffer for image %d", s.frame, imageIndex)
	}
	if err := s.queue.Submit(buffer, slot.ImageAvailable, slot.RenderFinished, slot.InFlight); err != nil {
		return errors.Wrapf(err, "frame %d: submit", s.frame)
	}

	err = s.surface.Present(slot.RenderFinished, imageIndex)
	rebuildNeeded := errors.Is(err, ErrSwapchainRetired) || errors.Is(err, ErrSwapchainSuboptimal)
	if err != nil && !rebuildNeeded {
		return errors.Wrapf(err, "frame %d: present image %d", s.frame, imageIndex)
	}
	if s.resize.Swap(false) {
		rebuildNeeded = true
	}
	if rebuildNeeded {
		if err := s.rebuild(); err != nil {
			return err
		}
	}

	s.frame++
	s.record(s.now() - start)
	return nil
}

// rebuild recreates the swapchain and clears the image fence table to the
// new image count. Stale fence associations must not survive a rebuild.
func (s *Scheduler) rebuild() error {
	if err := s.surface.Rebuild(); err != nil {
		return errors.Wrap(err, "rebuild swapchain")
	}
	s.imageFences.Resize(s.surface.ImageCount())
	s.rebuilds++
	return nil
}

func (s *Scheduler) record(d time.Duration) {
	s.durations[s.durationPos] = d
	s.durationPos = (s.durationPos + 1) % statsWindow
	if s.durationLen < statsWindow {
		s.durationLen++
	}
}

// Stats returns current frame counters and the rolling average frame time.
func (s *Scheduler) Stats() FrameStats {
	stats := FrameStats{Frames: s.frame, Rebuilds: s.rebuilds}
	if s.durationLen > 0 {
		var total time.Duration
		for i := 0; i < s.durationLen; i++ {
			total += s.durations[i]
		}
		stats.AvgFrame = total / time.Duration(s.durationLen)
	}
	return stats
}
