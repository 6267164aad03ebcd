package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/framecore/engine/core"
)

// maxPushConstantRanges follows from the 128 bytes of push constants every
// implementation guarantees, at 4-byte granularity.
const maxPushConstantRanges = 32

/**
 * @brief Holds a Vulkan pipeline and its layout.
 */
type Pipeline struct {
	/** @brief The internal pipeline handle. */
	Handle vk.Pipeline
	/** @brief The pipeline layout. */
	Layout vk.PipelineLayout
	/** @brief Graphics or compute. */
	BindPoint vk.PipelineBindPoint

	device *VulkanDevice
}

func newPipelineLayout(device *VulkanDevice, set *ShaderSet) (vk.PipelineLayout, error) {
	if len(set.PushConstants) > maxPushConstantRanges {
		return nil, errors.Newf("cannot have more than %d push constant ranges, got %d", maxPushConstantRanges, len(set.PushConstants))
	}
	createInfo := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         1,
		PSetLayouts:            []vk.DescriptorSetLayout{set.Resources.Layout},
		PushConstantRangeCount: uint32(len(set.PushConstants)),
		PPushConstantRanges:    set.PushConstants,
	}
	layout, res := device.driver.CreatePipelineLayout(device.LogicalDevice, &createInfo)
	if err := checkResult(res, "failed to create pipeline layout"); err != nil {
		return nil, err
	}
	return layout, nil
}

// NewGraphicsPipeline builds a triangle-list pipeline for set that renders into
// renderPass with depth testing and back-face culling. Viewport and scissor are
// dynamic; extent only seeds their initial values.
func NewGraphicsPipeline(device *VulkanDevice, set *ShaderSet, renderPass *RenderPass, extent vk.Extent2D) (*Pipeline, error) {
	layout, err := newPipelineLayout(device, set)
	if err != nil {
		return nil, err
	}

	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		PViewports:    []vk.Viewport{FullViewport(extent)},
		ScissorCount:  1,
		PScissors:     []vk.Rect2D{{Extent: extent}},
	}
	rasterizer := vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vk.PolygonModeFill,
		LineWidth:   1.0,
		CullMode:    vk.CullModeFlags(vk.CullModeBackBit),
		FrontFace:   vk.FrontFaceCounterClockwise,
	}
	multisampling := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
		MinSampleShading:     1.0,
	}
	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:            vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:  vk.True,
		DepthWriteEnable: vk.True,
		DepthCompareOp:   vk.CompareOpLess,
	}
	colorBlendAttachment := vk.PipelineColorBlendAttachmentState{
		BlendEnable:         vk.True,
		SrcColorBlendFactor: vk.BlendFactorSrcAlpha,
		DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: vk.BlendFactorSrcAlpha,
		DstAlphaBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		AlphaBlendOp:        vk.BlendOpAdd,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit |
			vk.ColorComponentBBit | vk.ColorComponentABit),
	}
	colorBlend := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachment},
	}
	dynamicStates := []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}
	dynamicState := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}
	vertexInput := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(set.Bindings)),
		PVertexBindingDescriptions:      set.Bindings,
		VertexAttributeDescriptionCount: uint32(len(set.Attributes)),
		PVertexAttributeDescriptions:    set.Attributes,
	}
	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: vk.PrimitiveTopologyTriangleList,
	}

	createInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(set.Stages)),
		PStages:             set.Stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizer,
		PMultisampleState:   &multisampling,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlend,
		PDynamicState:       &dynamicState,
		Layout:              layout,
		RenderPass:          renderPass.Handle,
		BasePipelineIndex:   -1,
	}
	handle, res := device.driver.CreateGraphicsPipeline(device.LogicalDevice, &createInfo)
	if err := checkResult(res, "failed to create graphics pipeline"); err != nil {
		device.driver.DestroyPipelineLayout(device.LogicalDevice, layout)
		return nil, err
	}

	if !set.Resources.Empty() {
		set.Resources.CreateUpdateTemplate(vk.PipelineBindPointGraphics, layout)
	}
	core.LogDebug("Graphics pipeline created.")
	return &Pipeline{Handle: handle, Layout: layout, BindPoint: vk.PipelineBindPointGraphics, device: device}, nil
}

// NewComputePipeline builds a pipeline from the single compute stage of set.
func NewComputePipeline(device *VulkanDevice, set *ShaderSet) (*Pipeline, error) {
	core.Assertf(len(set.Stages) == 1 && set.Stages[0].Stage == vk.ShaderStageComputeBit,
		"a compute pipeline needs exactly one compute stage, got %d stages", len(set.Stages))

	layout, err := newPipelineLayout(device, set)
	if err != nil {
		return nil, err
	}
	createInfo := vk.ComputePipelineCreateInfo{
		SType:             vk.StructureTypeComputePipelineCreateInfo,
		Stage:             set.Stages[0],
		Layout:            layout,
		BasePipelineIndex: -1,
	}
	handle, res := device.driver.CreateComputePipeline(device.LogicalDevice, &createInfo)
	if err := checkResult(res, "failed to create compute pipeline"); err != nil {
		device.driver.DestroyPipelineLayout(device.LogicalDevice, layout)
		return nil, err
	}

	if !set.Resources.Empty() {
		set.Resources.CreateUpdateTemplate(vk.PipelineBindPointCompute, layout)
	}
	core.LogDebug("Compute pipeline created.")
	return &Pipeline{Handle: handle, Layout: layout, BindPoint: vk.PipelineBindPointCompute, device: device}, nil
}

func (p *Pipeline) Bind(cmd *CommandBuffer) {
	p.device.driver.CmdBindPipeline(cmd.Handle, p.BindPoint, p.Handle)
}

func (p *Pipeline) PushConstants(cmd *CommandBuffer, stages vk.ShaderStageFlags, offset uint32, data []byte) {
	p.device.driver.CmdPushConstants(cmd.Handle, p.Layout, stages, offset, data)
}

func (p *Pipeline) Destroy() {
	if p.Handle != nil {
		p.device.driver.DestroyPipeline(p.device.LogicalDevice, p.Handle)
		p.Handle = nil
	}
	if p.Layout != nil {
		p.device.driver.DestroyPipelineLayout(p.device.LogicalDevice, p.Layout)
		p.Layout = nil
	}
}

// FullViewport covers extent with the standard 0..1 depth range.
func FullViewport(extent vk.Extent2D) vk.Viewport {
	return vk.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	}
}
