package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/animate/engine/core"
	"github.com/spaghettifunk/animate/engine/math"
)

type VulkanSwapchain struct {
	Handle      vk.Swapchain
	ImageFormat vk.SurfaceFormat
	PresentMode vk.PresentMode
	Extent      vk.Extent2D
	Images      []vk.Image
	Views       []vk.ImageView
}

var preferredSurfaceFormat = vk.SurfaceFormat{
	Format:     vk.FormatB8g8r8a8Unorm,
	ColorSpace: vk.ColorSpaceSrgbNonlinear,
}

// chooseSwapSurfaceFormat picks B8G8R8A8 UNORM with sRGB non-linear colour
// space when the surface allows it and falls back to the first entry otherwise.
// A single undefined entry means the surface has no preference.
func chooseSwapSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	if len(formats) == 0 {
		return preferredSurfaceFormat
	}
	if len(formats) == 1 && formats[0].Format == vk.FormatUndefined {
		return preferredSurfaceFormat
	}
	for _, format := range formats {
		if format.Format == preferredSurfaceFormat.Format && format.ColorSpace == preferredSurfaceFormat.ColorSpace {
			return format
		}
	}
	return formats[0]
}

// chooseSwapPresentMode prefers mailbox, then immediate, then FIFO which is
// always available.
func chooseSwapPresentMode(modes []vk.PresentMode) vk.PresentMode {
	best := vk.PresentModeFifo
	for _, mode := range modes {
		switch mode {
		case vk.PresentModeMailbox:
			return mode
		case vk.PresentModeImmediate:
			best = mode
		}
	}
	return best
}

// chooseSwapExtent uses the surface's current extent when it is defined and
// otherwise clamps the window's pixel size to the allowed range.
func chooseSwapExtent(capabilities vk.SurfaceCapabilities, width, height int) vk.Extent2D {
	if capabilities.CurrentExtent.Width != vk.MaxUint32 {
		return capabilities.CurrentExtent
	}
	minExtent := capabilities.MinImageExtent
	maxExtent := capabilities.MaxImageExtent
	return vk.Extent2D{
		Width:  math.Clamp(uint32(max(width, 0)), minExtent.Width, maxExtent.Width),
		Height: math.Clamp(uint32(max(height, 0)), minExtent.Height, maxExtent.Height),
	}
}

// chooseImageCount requests one image above the minimum, capped by the
// maximum when the surface declares one.
func chooseImageCount(capabilities vk.SurfaceCapabilities) uint32 {
	count := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && count > capabilities.MaxImageCount {
		count = capabilities.MaxImageCount
	}
	return count
}

// createSwapchain builds a swapchain for extent and fetches its images. The
// old handle, if any, is handed to the driver for resource reuse and must be
// destroyed by the caller afterwards.
func createSwapchain(driver Driver, support VulkanSwapchainSupportInfo, extent vk.Extent2D, old vk.Swapchain) (*VulkanSwapchain, error) {
	swapchain := &VulkanSwapchain{
		ImageFormat: chooseSwapSurfaceFormat(support.Formats),
		PresentMode: chooseSwapPresentMode(support.PresentModes),
		Extent:      extent,
	}

	createInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          driver.Surface(),
		MinImageCount:    chooseImageCount(support.Capabilities),
		ImageFormat:      swapchain.ImageFormat.Format,
		ImageColorSpace:  swapchain.ImageFormat.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     support.Capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      swapchain.PresentMode,
		Clipped:          vk.True,
		OldSwapchain:     old,
	}

	families := driver.QueueFamilies()
	if families.Graphics != families.Present {
		indices := families.Unique()
		createInfo.ImageSharingMode = vk.SharingModeConcurrent
		createInfo.QueueFamilyIndexCount = uint32(len(indices))
		createInfo.PQueueFamilyIndices = indices
	} else {
		createInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	handle, err := driver.CreateSwapchain(&createInfo)
	if err != nil {
		core.LogError("failed to create swapchain: %s", err)
		return nil, err
	}
	swapchain.Handle = handle

	images, err := driver.SwapchainImages(handle)
	if err != nil {
		driver.DestroySwapchain(handle)
		return nil, err
	}
	swapchain.Images = images

	core.LogInfo("Swapchain created: %dx%d, %d images.", extent.Width, extent.Height, len(images))
	return swapchain, nil
}

// createViews creates one colour view per swapchain image.
func (vs *VulkanSwapchain) createViews(driver Driver) error {
	vs.Views = make([]vk.ImageView, 0, len(vs.Images))
	for _, image := range vs.Images {
		view, err := createImageView(driver, image, vs.ImageFormat.Format)
		if err != nil {
			vs.destroyViews(driver)
			return err
		}
		vs.Views = append(vs.Views, view)
	}
	return nil
}

// destroyViews destroys the views only; images belong to the swapchain.
func (vs *VulkanSwapchain) destroyViews(driver Driver) {
	for _, view := range vs.Views {
		driver.DestroyImageView(view)
	}
	vs.Views = nil
}

func (vs *VulkanSwapchain) destroy(driver Driver) {
	vs.destroyViews(driver)
	if vs.Handle != vk.NullSwapchain {
		driver.DestroySwapchain(vs.Handle)
		vs.Handle = vk.NullSwapchain
	}
	vs.Images = nil
}
