package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/animate/engine/core"
	"github.com/spaghettifunk/animate/engine/math"
)

type VulkanPipelineConfig struct {
	Renderpass *VulkanRenderpass
	Layout     vk.PipelineLayout
	// The stride of the vertex data to be used (ex: sizeof(math.Vertex))
	Stride     uint32
	Attributes []vk.VertexInputAttributeDescription
	Stages     []vk.PipelineShaderStageCreateInfo
	Extent     vk.Extent2D
	// Cull the back faces instead of drawing both windings.
	CullBack    bool
	IsWireframe bool
}

// VertexAttributes describes math.Vertex: position, colour and texture
// coordinates at locations 0, 1 and 2.
func VertexAttributes() []vk.VertexInputAttributeDescription {
	var v math.Vertex
	return []vk.VertexInputAttributeDescription{
		{
			Location: 0,
			Binding:  0,
			Format:   vk.FormatR32g32b32Sfloat,
			Offset:   uint32(unsafe.Offsetof(v.Position)),
		},
		{
			Location: 1,
			Binding:  0,
			Format:   vk.FormatR32g32b32a32Sfloat,
			Offset:   uint32(unsafe.Offsetof(v.Colour)),
		},
		{
			Location: 2,
			Binding:  0,
			Format:   vk.FormatR32g32Sfloat,
			Offset:   uint32(unsafe.Offsetof(v.Texcoord)),
		},
	}
}

func NewGraphicsPipeline(driver Driver, config *VulkanPipelineConfig) (vk.Pipeline, error) {
	// Viewport and scissor are dynamic, these only provide the counts.
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		PViewports: []vk.Viewport{{
			Width:    float32(config.Extent.Width),
			Height:   float32(config.Extent.Height),
			MinDepth: 0.0,
			MaxDepth: 1.0,
		}},
		ScissorCount: 1,
		PScissors: []vk.Rect2D{{
			Extent: config.Extent,
		}},
	}

	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1.0,
		CullMode:                vk.CullModeFlags(vk.CullModeNone),
		FrontFace:               vk.FrontFaceCounterClockwise,
		DepthBiasEnable:         vk.False,
	}
	if config.IsWireframe {
		rasterizerCreateInfo.PolygonMode = vk.PolygonModeLine
	}
	if config.CullBack {
		rasterizerCreateInfo.CullMode = vk.CullModeFlags(vk.CullModeBackBit)
	}

	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                 vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:   vk.False,
		RasterizationSamples:  vk.SampleCount1Bit,
		MinSampleShading:      1.0,
		AlphaToCoverageEnable: vk.False,
		AlphaToOneEnable:      vk.False,
	}

	colorBlendAttachmentState := vk.PipelineColorBlendAttachmentState{
		BlendEnable:         vk.True,
		SrcColorBlendFactor: vk.BlendFactorSrcAlpha,
		DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: vk.BlendFactorSrcAlpha,
		DstAlphaBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		AlphaBlendOp:        vk.BlendOpAdd,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit),
	}

	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachmentState},
	}

	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}
	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	bindingDescription := vk.VertexInputBindingDescription{
		Binding:   0,
		Stride:    config.Stride,
		InputRate: vk.VertexInputRateVertex,
	}

	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   1,
		PVertexBindingDescriptions:      []vk.VertexInputBindingDescription{bindingDescription},
		VertexAttributeDescriptionCount: uint32(len(config.Attributes)),
		PVertexAttributeDescriptions:    config.Attributes,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(config.Stages)),
		PStages:             config.Stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		Layout:              config.Layout,
		RenderPass:          config.Renderpass.Handle,
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	handle, err := driver.CreateGraphicsPipeline(&pipelineCreateInfo)
	if err != nil {
		return vk.NullPipeline, err
	}
	core.LogDebug("Graphics pipeline created!")
	return handle, nil
}

// Pipeline is a graphics pipeline built from a vertex and fragment shader,
// together with the drawables rendered through it and its view-projection
// matrix. The Context owns every Pipeline.
type Pipeline struct {
	context    *Context
	vertexID   string
	fragmentID string

	Handle     vk.Pipeline
	renderPass vk.RenderPass
	stages     []*VulkanShaderStage

	viewProjection math.Mat4

	// staged drawables are not visible until CommitScene
	staged []DrawableHandle
	scene  []DrawableHandle
}

// Recreate rebuilds the pipeline against the context's current render pass
// and layout, reloading both shaders by id. The previous pipeline and shader
// modules are destroyed first.
func (p *Pipeline) Recreate() error {
	p.destroyHandles()
	handle, stages, err := p.build()
	if err != nil {
		return err
	}
	p.adopt(handle, stages)
	return nil
}

// Rebuild is Recreate for a pipeline that is still valid: the replacement is
// built first and the current pipeline only destroyed once it exists. On
// failure the current pipeline stays in use.
func (p *Pipeline) Rebuild() error {
	handle, stages, err := p.build()
	if err != nil {
		return err
	}
	p.destroyHandles()
	p.adopt(handle, stages)
	return nil
}

func (p *Pipeline) build() (vk.Pipeline, []*VulkanShaderStage, error) {
	c := p.context
	var stages []*VulkanShaderStage
	release := func() {
		for _, stage := range stages {
			stage.Destroy(c.driver)
		}
	}

	for _, s := range []struct {
		id    string
		stage vk.ShaderStageFlagBits
	}{
		{p.vertexID, vk.ShaderStageVertexBit},
		{p.fragmentID, vk.ShaderStageFragmentBit},
	} {
		stage, err := NewShaderStage(c.driver, c.shaders, s.id, s.stage)
		if err != nil {
			release()
			return vk.NullPipeline, nil, err
		}
		stages = append(stages, stage)
	}

	stageInfos := make([]vk.PipelineShaderStageCreateInfo, len(stages))
	for i, stage := range stages {
		stageInfos[i] = stage.CreateInfo()
	}

	handle, err := NewGraphicsPipeline(c.driver, &VulkanPipelineConfig{
		Renderpass: c.renderpass,
		Layout:     c.pipelineLayout,
		Stride:     math.VertexStride,
		Attributes: VertexAttributes(),
		Stages:     stageInfos,
		Extent:     c.swapchain.Extent,
	})
	if err != nil {
		release()
		return vk.NullPipeline, nil, err
	}
	return handle, stages, nil
}

func (p *Pipeline) adopt(handle vk.Pipeline, stages []*VulkanShaderStage) {
	p.Handle = handle
	p.stages = stages
	p.renderPass = p.context.renderpass.Handle
}

func (p *Pipeline) destroyHandles() {
	driver := p.context.driver
	if p.Handle != vk.NullPipeline {
		driver.DestroyPipeline(p.Handle)
		p.Handle = vk.NullPipeline
	}
	for _, stage := range p.stages {
		stage.Destroy(driver)
	}
	p.stages = nil
	p.renderPass = vk.NullRenderPass
}

// RenderPass returns the render pass the pipeline was last built against.
func (p *Pipeline) RenderPass() vk.RenderPass {
	return p.renderPass
}

func (p *Pipeline) ShaderIDs() (vertex, fragment string) {
	return p.vertexID, p.fragmentID
}

func (p *Pipeline) UsesShader(id string) bool {
	return p.vertexID == id || p.fragmentID == id
}

// SetMatrices stores view followed by projection as the base of every push
// constant recorded for this pipeline.
func (p *Pipeline) SetMatrices(view, projection math.Mat4) {
	p.viewProjection = view.Mul(projection)
}

func (p *Pipeline) Matrix() math.Mat4 {
	return p.viewProjection
}

// AddDrawable stages h on the pipeline and returns the number of staged
// drawables. Staged drawables are drawn once CommitScene moves them into the
// context's scene.
func (p *Pipeline) AddDrawable(h DrawableHandle) uint64 {
	p.staged = append(p.staged, h)
	return uint64(len(p.staged))
}

// Drawables returns the staged handles that still resolve, dropping the rest.
func (p *Pipeline) Drawables() []DrawableHandle {
	p.staged = p.context.liveHandles(p.staged)
	return append([]DrawableHandle{}, p.staged...)
}

// CommitScene adds every staged drawable to the pipeline's scene and to the
// context's scene registry, then clears the staging list.
func (p *Pipeline) CommitScene() {
	for _, h := range p.context.liveHandles(p.staged) {
		p.scene = append(p.scene, h)
		p.context.AddToScene(h)
	}
	p.staged = p.staged[:0]
}

// Scene returns the committed handles that still resolve.
func (p *Pipeline) Scene() []DrawableHandle {
	p.scene = p.context.liveHandles(p.scene)
	return append([]DrawableHandle{}, p.scene...)
}
