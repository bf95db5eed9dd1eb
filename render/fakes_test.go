package render_test

import (
	"fmt"
	"time"

	"github.com/daniel1414/vulkan-renderer/render"
)

// journal records operations across all fakes in call order, so tests can
// assert the exact sequence a frame went through.
type journal struct {
	entries []string
}

func (j *journal) add(format string, args ...any) {
	j.entries = append(j.entries, fmt.Sprintf(format, args...))
}

type fakeSemaphore struct {
	j        *journal
	name     string
	destroys int
}

func (s *fakeSemaphore) Destroy() {
	s.j.add("destroy %s", s.name)
	s.destroys++
}

type fakeFence struct {
	j        *journal
	name     string
	signaled bool
	waits    int
	resets   int
	destroys int
	waitErr  error
	resetErr error
}

func (f *fakeFence) Wait(timeout time.Duration) error {
	f.j.add("wait %s", f.name)
	f.waits++
	return f.waitErr
}

func (f *fakeFence) Reset() error {
	f.j.add("reset %s", f.name)
	f.resets++
	f.signaled = false
	return f.resetErr
}

func (f *fakeFence) Destroy() {
	f.j.add("destroy %s", f.name)
	f.destroys++
}

// fakeFactory names semaphores sem0, sem1, ... and fences fence0, fence1,
// ... in creation order. A frame ring creates one fence per slot, so
// fenceN always belongs to slot N.
type fakeFactory struct {
	j         *journal
	sems      []*fakeSemaphore
	fences    []*fakeFence
	creations int
	failAt    int // 1-based creation ordinal that fails, 0 means never
}

func (f *fakeFactory) NewSemaphore() (render.Semaphore, error) {
	f.creations++
	if f.failAt != 0 && f.creations == f.failAt {
		return nil, fmt.Errorf("semaphore creation %d failed", f.creations)
	}
	s := &fakeSemaphore{j: f.j, name: fmt.Sprintf("sem%d", len(f.sems))}
	f.sems = append(f.sems, s)
	return s, nil
}

func (f *fakeFactory) NewFence(signaled bool) (render.Fence, error) {
	f.creations++
	if f.failAt != 0 && f.creations == f.failAt {
		return nil, fmt.Errorf("fence creation %d failed", f.creations)
	}
	fence := &fakeFence{j: f.j, name: fmt.Sprintf("fence%d", len(f.fences)), signaled: signaled}
	f.fences = append(f.fences, fence)
	return fence, nil
}

type acquireResult struct {
	index int
	err   error
}

// fakeSurface acquires images round-robin unless a scripted result is
// queued. Rebuild switches the image count to rebuildTo when set.
type fakeSurface struct {
	j           *journal
	images      int
	nextImage   int
	acquires    []acquireResult
	presentErrs []error
	presents    []int
	rebuilds    int
	rebuildTo   int
	rebuildErr  error
}

func (s *fakeSurface) Acquire(timeout time.Duration, imageAvailable render.Semaphore) (int, error) {
	if len(s.acquires) > 0 {
		next := s.acquires[0]
		s.acquires = s.acquires[1:]
		if next.err != nil {
			s.j.add("acquire error")
			return 0, next.err
		}
		s.j.add("acquire %d", next.index)
		return next.index, nil
	}
	index := s.nextImage % s.images
	s.nextImage++
	s.j.add("acquire %d", index)
	return index, nil
}

func (s *fakeSurface) Present(renderFinished render.Semaphore, imageIndex int) error {
	s.j.add("present %d", imageIndex)
	s.presents = append(s.presents, imageIndex)
	if len(s.presentErrs) > 0 {
		err := s.presentErrs[0]
		s.presentErrs = s.presentErrs[1:]
		return err
	}
	return nil
}

func (s *fakeSurface) Rebuild() error {
	s.j.add("rebuild")
	s.rebuilds++
	if s.rebuildErr != nil {
		return s.rebuildErr
	}
	if s.rebuildTo > 0 {
		s.images = s.rebuildTo
	}
	return nil
}

func (s *fakeSurface) ImageCount() int {
	return s.images
}

type submitCall struct {
	buffer         render.CommandBuffer
	imageAvailable render.Semaphore
	renderFinished render.Semaphore
	done           render.Fence
}

type fakeQueue struct {
	j       *journal
	submits []submitCall
	err     error
}

func (q *fakeQueue) Submit(buffer render.CommandBuffer, imageAvailable, renderFinished render.Semaphore, done render.Fence) error {
	q.j.add("submit %v", buffer)
	if q.err != nil {
		return q.err
	}
	q.submits = append(q.submits, submitCall{buffer, imageAvailable, renderFinished, done})
	return nil
}

type fakeRecorder struct {
	j   *journal
	err error
}

func (r *fakeRecorder) BufferFor(imageIndex int) (render.CommandBuffer, error) {
	r.j.add("buffer %d", imageIndex)
	if r.err != nil {
		return nil, r.err
	}
	return fmt.Sprintf("cb%d", imageIndex), nil
}

type fakeUpdater struct {
	j   *journal
	err error
}

func (u *fakeUpdater) UpdateUniforms(imageIndex int) error {
	u.j.add("update %d", imageIndex)
	return u.err
}
