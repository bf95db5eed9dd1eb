package vulkan

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
)

// AssetPaths names the scene files to load from disk.
type AssetPaths struct {
	Mesh     string
	Material string
	Texture  string

	VertexShader   string
	FragmentShader string
}

// Assets holds everything decoded from disk, ready for GPU upload.
type Assets struct {
	Mesh    *MeshData
	Texture *TextureData

	VertexShader   []byte
	FragmentShader []byte
}

// LoadAssets decodes the mesh, the texture, and both shaders concurrently.
// Each goroutine writes a distinct field, so the only synchronization needed
// is the final Wait.
func LoadAssets(paths AssetPaths) (*Assets, error) {
	assets := &Assets{}

	group, _ := errgroup.WithContext(context.Background())
	group.Go(func() error {
		mesh, err := LoadMeshFile(paths.Mesh, paths.Material)
		if err != nil {
			return err
		}
		assets.Mesh = mesh
		return nil
	})
	group.Go(func() error {
		texture, err := LoadTextureFile(paths.Texture)
		if err != nil {
			return err
		}
		assets.Texture = texture
		return nil
	})
	group.Go(func() error {
		shader, err := os.ReadFile(paths.VertexShader)
		if err != nil {
			return errors.Wrapf(err, "failed to read vertex shader %s", paths.VertexShader)
		}
		assets.VertexShader = shader
		return nil
	})
	group.Go(func() error {
		shader, err := os.ReadFile(paths.FragmentShader)
		if err != nil {
			return errors.Wrapf(err, "failed to read fragment shader %s", paths.FragmentShader)
		}
		assets.FragmentShader = shader
		return nil
	})

	err := group.Wait()
	if err != nil {
		return nil, err
	}

	return assets, nil
}
