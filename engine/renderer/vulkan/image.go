package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

type VulkanImage struct {
	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView
	Width  uint32
	Height uint32
	Format vk.Format
}

func createImageView(driver Driver, image vk.Image, format vk.Format) (vk.ImageView, error) {
	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	return driver.CreateImageView(&viewInfo)
}

// ImageCreate creates a 2D optimal-tiling image backed by memory with the
// given properties. The view is created separately once the image holds data.
func ImageCreate(c *Context, width, height uint32, format vk.Format, usage vk.ImageUsageFlags, properties vk.MemoryPropertyFlags) (*VulkanImage, error) {
	out := &VulkanImage{
		Width:  width,
		Height: height,
		Format: format,
	}

	createInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Extent: vk.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        format,
		Tiling:        vk.ImageTilingOptimal,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         usage,
		Samples:       vk.SampleCount1Bit,
		SharingMode:   vk.SharingModeExclusive,
	}

	handle, reqs, err := c.driver.CreateImage(&createInfo)
	if err != nil {
		return nil, err
	}
	out.Handle = handle

	memoryType, err := c.FindMemoryType(reqs.MemoryTypeBits, properties)
	if err != nil {
		out.Destroy(c.driver)
		return nil, err
	}
	memory, err := c.driver.AllocateMemory(reqs.Size, memoryType)
	if err != nil {
		out.Destroy(c.driver)
		return nil, err
	}
	out.Memory = memory
	if err := c.driver.BindImageMemory(handle, memory); err != nil {
		out.Destroy(c.driver)
		return nil, err
	}
	return out, nil
}

func (vi *VulkanImage) CreateView(driver Driver) error {
	view, err := createImageView(driver, vi.Handle, vi.Format)
	if err != nil {
		return err
	}
	vi.View = view
	return nil
}

func (vi *VulkanImage) Destroy(driver Driver) {
	if vi.View != vk.NullImageView {
		driver.DestroyImageView(vi.View)
		vi.View = vk.NullImageView
	}
	if vi.Handle != vk.NullImage {
		driver.DestroyImage(vi.Handle)
		vi.Handle = vk.NullImage
	}
	if vi.Memory != vk.NullDeviceMemory {
		driver.FreeMemory(vi.Memory)
		vi.Memory = vk.NullDeviceMemory
	}
}

// layoutTransition returns the access masks and pipeline stages for moving
// an image between the layouts a texture upload goes through.
func layoutTransition(oldLayout, newLayout vk.ImageLayout) (srcAccess, dstAccess vk.AccessFlags, srcStage, dstStage vk.PipelineStageFlags, err error) {
	switch {
	case oldLayout == vk.ImageLayoutUndefined && newLayout == vk.ImageLayoutTransferDstOptimal:
		// Don't care about the old layout.
		return 0,
			vk.AccessFlags(vk.AccessTransferWriteBit),
			vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
			vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			nil
	case oldLayout == vk.ImageLayoutTransferDstOptimal && newLayout == vk.ImageLayoutShaderReadOnlyOptimal:
		return vk.AccessFlags(vk.AccessTransferWriteBit),
			vk.AccessFlags(vk.AccessShaderReadBit),
			vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
			nil
	default:
		return 0, 0, 0, 0, fmt.Errorf("unsupported layout transition %d -> %d", oldLayout, newLayout)
	}
}

func (vi *VulkanImage) TransitionLayout(driver Driver, commandBuffer *VulkanCommandBuffer, families QueueFamilyIndices, oldLayout, newLayout vk.ImageLayout) error {
	srcAccess, dstAccess, srcStage, dstStage, err := layoutTransition(oldLayout, newLayout)
	if err != nil {
		return err
	}
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: uint32(families.Graphics),
		DstQueueFamilyIndex: uint32(families.Graphics),
		Image:               vi.Handle,
		SrcAccessMask:       srcAccess,
		DstAccessMask:       dstAccess,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	driver.CmdPipelineBarrier(commandBuffer.Handle, srcStage, dstStage, barrier)
	return nil
}

// CopyFromBuffer copies tightly packed pixel data from buffer into the image,
// which must be in the transfer destination layout.
func (vi *VulkanImage) CopyFromBuffer(driver Driver, commandBuffer *VulkanCommandBuffer, buffer vk.Buffer) {
	region := vk.BufferImageCopy{
		BufferOffset:      0,
		BufferRowLength:   0,
		BufferImageHeight: 0,
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		ImageExtent: vk.Extent3D{
			Width:  vi.Width,
			Height: vi.Height,
			Depth:  1,
		},
	}
	driver.CmdCopyBufferToImage(commandBuffer.Handle, buffer, vi.Handle, region)
}
