package vulkan

import (
	"path/filepath"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/framecore/engine/assets"
	"github.com/spaghettifunk/framecore/engine/core"
)

const shaderEntryPoint = "main"

/**
 * @brief A compiled SPIR-V stage and the pipeline stage it runs at.
 */
type ShaderStageConfig struct {
	Name  string
	Code  []uint32
	Stage vk.ShaderStageFlagBits
}

type ShaderConfiguration struct {
	Stages        []ShaderStageConfig
	Attributes    []vk.VertexInputAttributeDescription
	Bindings      []vk.VertexInputBindingDescription
	PushConstants []vk.PushConstantRange
}

// ShaderLoader reads compiled shaders from one directory. It is created by the
// application and handed to whatever builds shader sets.
type ShaderLoader struct {
	Dir string
}

func NewShaderLoader(dir string) *ShaderLoader {
	return &ShaderLoader{Dir: dir}
}

func (l *ShaderLoader) Path(name string) string {
	return filepath.Join(l.Dir, name)
}

// Stage loads name from the loader directory as a stage of the given kind.
func (l *ShaderLoader) Stage(name string, stage vk.ShaderStageFlagBits) (ShaderStageConfig, error) {
	code, err := assets.LoadSPIRV(l.Path(name))
	if err != nil {
		return ShaderStageConfig{}, err
	}
	return ShaderStageConfig{Name: name, Code: code, Stage: stage}, nil
}

type ShaderSet struct {
	Stages        []vk.PipelineShaderStageCreateInfo
	Attributes    []vk.VertexInputAttributeDescription
	Bindings      []vk.VertexInputBindingDescription
	PushConstants []vk.PushConstantRange
	Resources     *ShaderResources

	modules []vk.ShaderModule
	device  *VulkanDevice
}

func supportedStage(stage vk.ShaderStageFlagBits) bool {
	return stage == vk.ShaderStageVertexBit || stage == vk.ShaderStageFragmentBit || stage == vk.ShaderStageComputeBit
}

// NewShaderSet creates one module per stage and the descriptor resources the
// stages share. setCount is the number of per-frame descriptor sets.
func NewShaderSet(device *VulkanDevice, cfg ShaderConfiguration, resources ResourceConfiguration, setCount uint32) (*ShaderSet, error) {
	set := &ShaderSet{
		Attributes:    cfg.Attributes,
		Bindings:      cfg.Bindings,
		PushConstants: cfg.PushConstants,
		device:        device,
	}
	for _, stage := range cfg.Stages {
		core.Assertf(supportedStage(stage.Stage), "shader stage %#x of %q is not supported", uint32(stage.Stage), stage.Name)

		module, res := device.driver.CreateShaderModule(device.LogicalDevice, stage.Code)
		if err := checkResult(res, "failed to create shader module %q", stage.Name); err != nil {
			set.Destroy()
			return nil, err
		}
		set.modules = append(set.modules, module)
		set.Stages = append(set.Stages, vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  stage.Stage,
			Module: module,
			PName:  VulkanSafeString(shaderEntryPoint),
		})
	}

	res, err := NewShaderResources(device, resources, setCount)
	if err != nil {
		set.Destroy()
		return nil, err
	}
	set.Resources = res
	return set, nil
}

func (s *ShaderSet) Destroy() {
	if s.Resources != nil {
		s.Resources.Destroy()
		s.Resources = nil
	}
	for _, m := range s.modules {
		s.device.driver.DestroyShaderModule(s.device.LogicalDevice, m)
	}
	s.modules = nil
	s.Stages = nil
}
