package vulkan

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRegistryTracksUntilReleased(t *testing.T) {
	registry := NewRegistry()

	bufferID := registry.Track("buffer", "vertex")
	imageID := registry.Track("image", "texture")
	require.Equal(t, 2, registry.Count())

	registry.Release(bufferID)
	require.Equal(t, 1, registry.Count())

	leaked := registry.Leaked()
	require.Len(t, leaked, 1)
	require.Equal(t, imageID, leaked[0].ID)
	require.Equal(t, "image", leaked[0].Kind)
	require.Equal(t, "texture", leaked[0].Label)
}

func TestRegistryReleaseNilID(t *testing.T) {
	registry := NewRegistry()
	registry.Track("fence", "frame-0")

	registry.Release(uuid.Nil)
	require.Equal(t, 1, registry.Count())
}

func TestRegistryReleaseTwice(t *testing.T) {
	registry := NewRegistry()
	id := registry.Track("semaphore", "image-available")

	registry.Release(id)
	registry.Release(id)
	require.Equal(t, 0, registry.Count())
	require.Empty(t, registry.Leaked())
}

func TestRegistryLeakedOrder(t *testing.T) {
	registry := NewRegistry()
	registry.Track("semaphore", "render-finished")
	registry.Track("buffer", "vertex")
	registry.Track("buffer", "index")

	leaked := registry.Leaked()
	require.Len(t, leaked, 3)
	require.Equal(t, "buffer", leaked[0].Kind)
	require.Equal(t, "index", leaked[0].Label)
	require.Equal(t, "buffer", leaked[1].Kind)
	require.Equal(t, "vertex", leaked[1].Label)
	require.Equal(t, "semaphore", leaked[2].Kind)
}
