package vulkan

import (
	"image"
	"image/png"
	"math"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// TextureData is a decoded texture ready for upload, packed as tight 8-bit
// RGBA rows.
type TextureData struct {
	Pixels    []byte
	Width     int
	Height    int
	MipLevels int
}

// LoadTextureFile decodes a PNG file into upload-ready pixel data.
func LoadTextureFile(path string) (*TextureData, error) {
	textureFile, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open texture %s", path)
	}
	defer textureFile.Close()

	decodedImage, err := png.Decode(textureFile)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode texture %s", path)
	}

	return decodeTexture(decodedImage), nil
}

func decodeTexture(decodedImage image.Image) *TextureData {
	imageBounds := decodedImage.Bounds()
	imageDims := imageBounds.Size()

	pixelData := make([]byte, 0, imageDims.X*imageDims.Y*4)
	for y := imageBounds.Min.Y; y < imageBounds.Max.Y; y++ {
		for x := imageBounds.Min.X; x < imageBounds.Max.X; x++ {
			r, g, b, a := decodedImage.At(x, y).RGBA()
			pixelData = append(pixelData, byte(r>>8), byte(g>>8), byte(b>>8), byte(a>>8))
		}
	}

	return &TextureData{
		Pixels:    pixelData,
		Width:     imageDims.X,
		Height:    imageDims.Y,
		MipLevels: int(math.Floor(math.Log2(math.Max(float64(imageDims.X), float64(imageDims.Y))))) + 1,
	}
}

// Texture is a sampled image with a full mip chain.
type Texture struct {
	Image     *Image
	View      *ImageView
	Sampler   core1_0.Sampler
	MipLevels int

	factory   *Factory
	samplerID uuid.UUID
}

// UploadTexture copies the pixel data into a device-local image, generates
// its mip chain, and wraps it with a view and an anisotropic sampler.
func (f *Factory) UploadTexture(data *TextureData) (*Texture, error) {
	if len(data.Pixels) == 0 {
		return nil, errors.New("cannot upload an empty texture")
	}

	stagingBuffer, err := f.CreateBuffer("texture-staging", len(data.Pixels), core1_0.BufferUsageTransferSrc, core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
	if err != nil {
		return nil, err
	}
	defer stagingBuffer.Destroy()

	err = stagingBuffer.Write(0, data.Pixels)
	if err != nil {
		return nil, err
	}

	textureImage, err := f.CreateImage("texture", data.Width, data.Height, data.MipLevels, core1_0.Samples1,
		core1_0.FormatR8G8B8A8SRGB, core1_0.ImageTilingOptimal,
		core1_0.ImageUsageTransferSrc|core1_0.ImageUsageTransferDst|core1_0.ImageUsageSampled,
		core1_0.MemoryPropertyDeviceLocal)
	if err != nil {
		return nil, err
	}

	err = f.TransitionImageLayout(textureImage, core1_0.ImageLayoutUndefined, core1_0.ImageLayoutTransferDstOptimal, data.MipLevels)
	if err != nil {
		textureImage.Destroy()
		return nil, err
	}

	err = f.CopyBufferToImage(stagingBuffer, textureImage, data.Width, data.Height)
	if err != nil {
		textureImage.Destroy()
		return nil, err
	}

	err = f.GenerateMipmaps(textureImage, core1_0.FormatR8G8B8A8SRGB, data.Width, data.Height, data.MipLevels)
	if err != nil {
		textureImage.Destroy()
		return nil, err
	}

	textureView, err := f.CreateImageView("texture", textureImage.Handle, core1_0.FormatR8G8B8A8SRGB, core1_0.ImageAspectColor, data.MipLevels)
	if err != nil {
		textureImage.Destroy()
		return nil, err
	}

	properties, err := f.device.instance.driver.GetPhysicalDeviceProperties(f.device.physical)
	if err != nil {
		textureView.Destroy()
		textureImage.Destroy()
		return nil, err
	}

	sampler, _, err := f.device.driver.CreateSampler(nil, core1_0.SamplerCreateInfo{
		MagFilter:    core1_0.FilterLinear,
		MinFilter:    core1_0.FilterLinear,
		AddressModeU: core1_0.SamplerAddressModeRepeat,
		AddressModeV: core1_0.SamplerAddressModeRepeat,
		AddressModeW: core1_0.SamplerAddressModeRepeat,

		AnisotropyEnable: true,
		MaxAnisotropy:    properties.Limits.MaxSamplerAnisotropy,

		BorderColor: core1_0.BorderColorIntOpaqueBlack,

		MipmapMode: core1_0.SamplerMipmapModeLinear,
		MinLod:     0,
		MaxLod:     float32(data.MipLevels),
	})
	if err != nil {
		textureView.Destroy()
		textureImage.Destroy()
		return nil, err
	}

	return &Texture{
		Image:     textureImage,
		View:      textureView,
		Sampler:   sampler,
		MipLevels: data.MipLevels,
		factory:   f,
		samplerID: f.registry.Track("sampler", "texture"),
	}, nil
}

func (t *Texture) Destroy() {
	if t.Sampler.Initialized() {
		t.factory.device.driver.DestroySampler(t.Sampler, nil)
		t.Sampler = core1_0.Sampler{}
		t.factory.registry.Release(t.samplerID)
		t.samplerID = uuid.Nil
	}
	if t.View != nil {
		t.View.Destroy()
		t.View = nil
	}
	if t.Image != nil {
		t.Image.Destroy()
		t.Image = nil
	}
}
