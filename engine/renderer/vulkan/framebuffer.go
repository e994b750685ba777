package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/animate/engine/core"
)

type VulkanFramebuffer struct {
	Handle      vk.Framebuffer
	Attachments []vk.ImageView
	Renderpass  *VulkanRenderpass
}

func FramebufferCreate(driver Driver, renderpass *VulkanRenderpass, width, height uint32, attachments []vk.ImageView) (*VulkanFramebuffer, error) {
	out := &VulkanFramebuffer{
		Attachments: append([]vk.ImageView{}, attachments...),
		Renderpass:  renderpass,
	}

	createInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderpass.Handle,
		AttachmentCount: uint32(len(out.Attachments)),
		PAttachments:    out.Attachments,
		Width:           width,
		Height:          height,
		Layers:          1,
	}

	handle, err := driver.CreateFramebuffer(&createInfo)
	if err != nil {
		core.LogError("failed to create framebuffer: %s", err)
		return nil, err
	}
	out.Handle = handle
	return out, nil
}

func (vfb *VulkanFramebuffer) Destroy(driver Driver) {
	if vfb.Handle != vk.NullFramebuffer {
		driver.DestroyFramebuffer(vfb.Handle)
	}
	vfb.Handle = vk.NullFramebuffer
	vfb.Attachments = nil
	vfb.Renderpass = nil
}
