package vulkan

import (
	"fmt"
	"image"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	"github.com/spaghettifunk/animate/engine/core"
	"golang.org/x/image/draw"
)

// Texture is a sampled RGBA image resident in device local memory.
type Texture struct {
	Name   string
	Width  uint32
	Height uint32
	image  *VulkanImage
}

func (t *Texture) View() vk.ImageView {
	return t.image.View
}

// toRGBA returns img as tightly packed 8-bit RGBA anchored at the origin.
func toRGBA(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && bounds.Min == (image.Point{}) && rgba.Stride == 4*bounds.Dx() {
		return rgba
	}
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return rgba
}

// CreateTexture uploads img through a host visible staging buffer into a new
// device local image. An empty name is replaced by a random one. Creating a
// texture with a name already in use replaces the previous texture.
func (c *Context) CreateTexture(name string, img image.Image) (*Texture, error) {
	if name == "" {
		name = uuid.NewString()
	}
	rgba := toRGBA(img)
	width, height := uint32(rgba.Rect.Dx()), uint32(rgba.Rect.Dy())
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("texture '%s' has no pixels", name)
	}

	staging, err := c.CreateBuffer(vk.DeviceSize(len(rgba.Pix)), BufferUsageTransfer, MemoryHostVisible)
	if err != nil {
		return nil, err
	}
	// the single use submission has completed once uploadImage returns
	defer c.buffers.Release(staging)
	if err := c.UploadBuffer(staging, rgba.Pix); err != nil {
		return nil, err
	}

	vulkanImage, err := ImageCreate(
		c,
		width,
		height,
		vk.FormatR8g8b8a8Unorm,
		vk.ImageUsageFlags(vk.ImageUsageTransferDstBit)|vk.ImageUsageFlags(vk.ImageUsageSampledBit),
		MemoryDeviceLocal,
	)
	if err != nil {
		return nil, err
	}

	if err := c.uploadImage(vulkanImage, staging); err != nil {
		vulkanImage.Destroy(c.driver)
		return nil, err
	}
	if err := vulkanImage.CreateView(c.driver); err != nil {
		vulkanImage.Destroy(c.driver)
		return nil, err
	}

	if previous, ok := c.textures[name]; ok {
		c.DestroyTexture(previous)
	}
	texture := &Texture{
		Name:   name,
		Width:  width,
		Height: height,
		image:  vulkanImage,
	}
	c.textures[name] = texture
	core.LogDebug("Texture '%s' created (%dx%d).", name, width, height)
	return texture, nil
}

// uploadImage records the layout transitions around a buffer to image copy
// on a single use command buffer and waits for it to complete.
func (c *Context) uploadImage(img *VulkanImage, staging *Buffer) error {
	families := c.driver.QueueFamilies()
	commandBuffer, err := AllocateAndBeginSingleUse(c.driver, c.commandPool)
	if err != nil {
		return err
	}
	if err := img.TransitionLayout(c.driver, commandBuffer, families, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal); err != nil {
		commandBuffer.Free(c.driver, c.commandPool)
		return err
	}
	img.CopyFromBuffer(c.driver, commandBuffer, staging.Handle)
	if err := img.TransitionLayout(c.driver, commandBuffer, families, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal); err != nil {
		commandBuffer.Free(c.driver, c.commandPool)
		return err
	}
	return commandBuffer.EndSingleUse(c.driver, c.commandPool, c.driver.GraphicsQueue())
}

func (c *Context) Texture(name string) (*Texture, bool) {
	t, ok := c.textures[name]
	return t, ok
}

func (c *Context) DestroyTexture(t *Texture) {
	if owned, ok := c.textures[t.Name]; !ok || owned != t {
		return
	}
	delete(c.textures, t.Name)
	c.waitIdle()
	t.destroy(c)
}

func (t *Texture) destroy(c *Context) {
	if t.image != nil {
		t.image.Destroy(c.driver)
		t.image = nil
	}
}
