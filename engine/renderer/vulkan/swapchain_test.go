package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
)

func TestChooseSwapSurfaceFormat(t *testing.T) {
	srgb := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	other := vk.SurfaceFormat{Format: vk.FormatR8g8b8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	wrongSpace := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpace(1000104002)}

	assert.Equal(t, srgb, chooseSwapSurfaceFormat([]vk.SurfaceFormat{other, srgb}))
	assert.Equal(t, other, chooseSwapSurfaceFormat([]vk.SurfaceFormat{other, wrongSpace}), "falls back to the first entry")
	assert.Equal(t, srgb, chooseSwapSurfaceFormat([]vk.SurfaceFormat{{Format: vk.FormatUndefined}}))
	assert.Equal(t, srgb, chooseSwapSurfaceFormat(nil))
}

func TestChooseSwapPresentMode(t *testing.T) {
	tests := []struct {
		name  string
		modes []vk.PresentMode
		want  vk.PresentMode
	}{
		{"mailbox wins", []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeImmediate, vk.PresentModeMailbox}, vk.PresentModeMailbox},
		{"immediate over fifo", []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeImmediate}, vk.PresentModeImmediate},
		{"fifo only", []vk.PresentMode{vk.PresentModeFifo}, vk.PresentModeFifo},
		{"none listed", nil, vk.PresentModeFifo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, chooseSwapPresentMode(tt.modes))
		})
	}
}

func TestChooseSwapExtent(t *testing.T) {
	caps := vk.SurfaceCapabilities{
		CurrentExtent:  vk.Extent2D{Width: 1024, Height: 768},
		MinImageExtent: vk.Extent2D{Width: 16, Height: 16},
		MaxImageExtent: vk.Extent2D{Width: 2048, Height: 2048},
	}
	assert.Equal(t, vk.Extent2D{Width: 1024, Height: 768}, chooseSwapExtent(caps, 10, 10), "current extent is authoritative")

	caps.CurrentExtent = vk.Extent2D{Width: vk.MaxUint32, Height: vk.MaxUint32}
	assert.Equal(t, vk.Extent2D{Width: 800, Height: 600}, chooseSwapExtent(caps, 800, 600))
	assert.Equal(t, vk.Extent2D{Width: 2048, Height: 16}, chooseSwapExtent(caps, 4000, 2))
	assert.Equal(t, vk.Extent2D{Width: 16, Height: 16}, chooseSwapExtent(caps, -5, 0))
}

func TestChooseImageCount(t *testing.T) {
	assert.Equal(t, uint32(3), chooseImageCount(vk.SurfaceCapabilities{MinImageCount: 2}), "no maximum")
	assert.Equal(t, uint32(3), chooseImageCount(vk.SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 8}))
	assert.Equal(t, uint32(2), chooseImageCount(vk.SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 2}))
}
