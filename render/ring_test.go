package render_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/daniel1414/vulkan-renderer/render"
)

func TestNewFrameRingCreatesSignaledFences(t *testing.T) {
	factory := &fakeFactory{j: &journal{}}

	ring, err := render.NewFrameRing(factory, 3)
	require.NoError(t, err)

	require.Equal(t, 3, ring.Len())
	require.Len(t, factory.fences, 3)
	require.Len(t, factory.sems, 6)
	for _, fence := range factory.fences {
		require.True(t, fence.signaled)
	}
	for i := 0; i < 3; i++ {
		slot := ring.Slot(uint64(i))
		require.Equal(t, i, slot.Index)
		require.NotNil(t, slot.ImageAvailable)
		require.NotNil(t, slot.RenderFinished)
		require.NotNil(t, slot.InFlight)
		require.NotSame(t, slot.ImageAvailable, slot.RenderFinished)
	}
}

func TestFrameRingSlotWrapsModulo(t *testing.T) {
	factory := &fakeFactory{j: &journal{}}

	ring, err := render.NewFrameRing(factory, 3)
	require.NoError(t, err)

	require.Equal(t, 0, ring.Slot(0).Index)
	require.Equal(t, 2, ring.Slot(2).Index)
	require.Equal(t, 0, ring.Slot(3).Index)
	require.Equal(t, 2, ring.Slot(5).Index)
	require.Same(t, ring.Slot(1), ring.Slot(4))
}

func TestFrameRingRejectsZeroSlots(t *testing.T) {
	_, err := render.NewFrameRing(&fakeFactory{j: &journal{}}, 0)
	require.Error(t, err)
}

func TestFrameRingDestroyReleasesEachPrimitiveOnce(t *testing.T) {
	j := &journal{}
	factory := &fakeFactory{j: j}

	ring, err := render.NewFrameRing(factory, 2)
	require.NoError(t, err)

	ring.Destroy()
	ring.Destroy()

	for _, sem := range factory.sems {
		require.Equal(t, 1, sem.destroys)
	}
	for _, fence := range factory.fences {
		require.Equal(t, 1, fence.destroys)
	}
	// Reverse creation order within each slot: fence, render-finished,
	// image-available.
	require.Equal(t, []string{
		"destroy fence0", "destroy sem1", "destroy sem0",
		"destroy fence1", "destroy sem3", "destroy sem2",
	}, j.entries)
}

func TestNewFrameRingCleansUpPartialCreation(t *testing.T) {
	// Creation order per slot is image-available, render-finished, fence.
	// Failing the fifth creation leaves slot 0 complete and slot 1 with
	// only its image-available semaphore.
	factory := &fakeFactory{j: &journal{}, failAt: 5}

	_, err := render.NewFrameRing(factory, 2)
	require.Error(t, err)

	require.Len(t, factory.sems, 3)
	require.Len(t, factory.fences, 1)
	for _, sem := range factory.sems {
		require.Equal(t, 1, sem.destroys)
	}
	require.Equal(t, 1, factory.fences[0].destroys)
}

func TestImageFencesTrackLastUse(t *testing.T) {
	j := &journal{}
	table := render.NewImageFences(2)

	require.Equal(t, 2, table.Len())
	require.Nil(t, table.Get(0))

	fence := &fakeFence{j: j, name: "fence0"}
	table.Set(0, fence)
	require.Same(t, fence, table.Get(0))
	require.Nil(t, table.Get(1))
}

func TestImageFencesResizeClearsAssociations(t *testing.T) {
	table := render.NewImageFences(2)
	table.Set(0, &fakeFence{j: &journal{}, name: "fence0"})
	table.Set(1, &fakeFence{j: &journal{}, name: "fence1"})

	table.Resize(3)

	require.Equal(t, 3, table.Len())
	for i := 0; i < 3; i++ {
		require.Nil(t, table.Get(i))
	}
}
