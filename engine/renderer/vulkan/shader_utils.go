package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

// ShaderSource resolves a shader identifier to SPIR-V code.
type ShaderSource interface {
	LoadShader(id string) ([]uint32, error)
}

// VulkanShaderStage is a loaded shader module and the stage it runs in.
type VulkanShaderStage struct {
	ID     string
	Handle vk.ShaderModule
	Stage  vk.ShaderStageFlagBits
}

func NewShaderStage(driver Driver, shaders ShaderSource, id string, stage vk.ShaderStageFlagBits) (*VulkanShaderStage, error) {
	code, err := shaders.LoadShader(id)
	if err != nil {
		return nil, fmt.Errorf("unable to read shader module '%s': %w", id, err)
	}
	handle, err := driver.CreateShaderModule(code)
	if err != nil {
		return nil, fmt.Errorf("unable to create shader module '%s': %w", id, err)
	}
	return &VulkanShaderStage{
		ID:     id,
		Handle: handle,
		Stage:  stage,
	}, nil
}

func (s *VulkanShaderStage) CreateInfo() vk.PipelineShaderStageCreateInfo {
	return vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  s.Stage,
		Module: s.Handle,
		PName:  VulkanSafeString("main"),
	}
}

func (s *VulkanShaderStage) Destroy(driver Driver) {
	if s.Handle != vk.NullShaderModule {
		driver.DestroyShaderModule(s.Handle)
		s.Handle = vk.NullShaderModule
	}
}
