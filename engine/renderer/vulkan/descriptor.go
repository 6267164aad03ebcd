package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/framecore/engine/core"
)

const (
	MaxDescriptorCountPerType = 4
	MaxDescriptorSetsCount    = 8
	// MaxFrameDescriptorSets caps the per-frame set replicas.
	MaxFrameDescriptorSets = 3
)

/**
 * @brief Parallel arrays describing the descriptors a shader set consumes.
 * Entry i is a binding of Types[i], bound at Bindings[i], holding Counts[i]
 * array elements and visible to Stages[i].
 */
type ResourceConfiguration struct {
	Types    []vk.DescriptorType
	Bindings []uint32
	Counts   []uint32
	Stages   []vk.ShaderStageFlags
}

func (c ResourceConfiguration) Empty() bool {
	return len(c.Types) == 0
}

func (c ResourceConfiguration) validate() error {
	n := len(c.Types)
	if len(c.Bindings) != n || len(c.Counts) != n || len(c.Stages) != n {
		return errors.Newf("resource configuration arrays differ in length: types=%d bindings=%d counts=%d stages=%d",
			n, len(c.Bindings), len(c.Counts), len(c.Stages))
	}
	for i, count := range c.Counts {
		if count == 0 || count > MaxDescriptorCountPerType {
			return errors.Newf("binding %d asks for %d descriptors, allowed 1..%d", c.Bindings[i], count, MaxDescriptorCountPerType)
		}
	}
	return nil
}

/**
 * @brief One descriptor worth of payload. Only the member matching Type is read.
 */
type DescriptorInfo struct {
	Type   vk.DescriptorType
	Image  vk.DescriptorImageInfo
	Buffer vk.DescriptorBufferInfo
}

var descriptorInfoSize = unsafe.Sizeof(DescriptorInfo{})

/** @brief Where one descriptor of the payload lands in a set. */
type DescriptorTemplateEntry struct {
	Binding      uint32
	ArrayElement uint32
	Type         vk.DescriptorType
	// Offset is the byte offset of the entry's DescriptorInfo in the payload.
	Offset uintptr
}

type DescriptorUpdateTemplate struct {
	BindPoint      vk.PipelineBindPoint
	PipelineLayout vk.PipelineLayout
	Entries        []DescriptorTemplateEntry
}

type descriptorMetadata struct {
	Type    vk.DescriptorType
	Count   uint32
	Binding uint32
}

/**
 * @brief Descriptor pool, layout and the per-frame set replicas of a shader set.
 */
type ShaderResources struct {
	Pool     vk.DescriptorPool
	Layout   vk.DescriptorSetLayout
	Sets     []vk.DescriptorSet
	Template *DescriptorUpdateTemplate

	metadata []descriptorMetadata
	device   *VulkanDevice
}

// Empty reports whether the resources were built from an empty configuration.
func (sr *ShaderResources) Empty() bool {
	return len(sr.metadata) == 0
}

func distinctTypes(types []vk.DescriptorType) []vk.DescriptorType {
	var out []vk.DescriptorType
	seen := make(map[vk.DescriptorType]bool, len(types))
	for _, t := range types {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// NewShaderResources builds the layout for cfg and allocates setCount copies
// of it in one batch. An empty configuration yields a layout with no bindings
// and no sets.
func NewShaderResources(device *VulkanDevice, cfg ResourceConfiguration, setCount uint32) (*ShaderResources, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	sr := &ShaderResources{device: device}

	bindings := make([]vk.DescriptorSetLayoutBinding, len(cfg.Types))
	for i := range cfg.Types {
		bindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         cfg.Bindings[i],
			DescriptorType:  cfg.Types[i],
			DescriptorCount: cfg.Counts[i],
			StageFlags:      cfg.Stages[i],
		}
		sr.metadata = append(sr.metadata, descriptorMetadata{
			Type:    cfg.Types[i],
			Count:   cfg.Counts[i],
			Binding: cfg.Bindings[i],
		})
	}
	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	layout, res := device.driver.CreateDescriptorSetLayout(device.LogicalDevice, &layoutInfo)
	if err := checkResult(res, "failed to create descriptor set layout"); err != nil {
		return nil, err
	}
	sr.Layout = layout

	if cfg.Empty() {
		return sr, nil
	}

	core.Assertf(setCount <= MaxFrameDescriptorSets, "%d descriptor sets requested, at most %d are supported", setCount, MaxFrameDescriptorSets)

	types := distinctTypes(cfg.Types)
	poolSizes := make([]vk.DescriptorPoolSize, len(types))
	for i, t := range types {
		poolSizes[i] = vk.DescriptorPoolSize{
			Type:            t,
			DescriptorCount: MaxDescriptorCountPerType * MaxDescriptorSetsCount,
		}
	}
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       MaxDescriptorSetsCount,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	pool, res := device.driver.CreateDescriptorPool(device.LogicalDevice, &poolInfo)
	if err := checkResult(res, "failed to create descriptor pool"); err != nil {
		sr.Destroy()
		return nil, err
	}
	sr.Pool = pool

	layouts := make([]vk.DescriptorSetLayout, setCount)
	for i := range layouts {
		layouts[i] = layout
	}
	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: setCount,
		PSetLayouts:        layouts,
	}
	sets, res := device.driver.AllocateDescriptorSets(device.LogicalDevice, &allocInfo)
	if err := checkResult(res, "failed to allocate %d descriptor sets", setCount); err != nil {
		sr.Destroy()
		return nil, err
	}
	sr.Sets = sets
	return sr, nil
}

// CreateUpdateTemplate lays out one entry per descriptor, in configuration
// order, so a payload of DescriptorInfo values maps onto the sets.
func (sr *ShaderResources) CreateUpdateTemplate(bindPoint vk.PipelineBindPoint, pipelineLayout vk.PipelineLayout) *DescriptorUpdateTemplate {
	t := &DescriptorUpdateTemplate{BindPoint: bindPoint, PipelineLayout: pipelineLayout}
	var running uintptr
	for _, m := range sr.metadata {
		for j := uint32(0); j < m.Count; j++ {
			t.Entries = append(t.Entries, DescriptorTemplateEntry{
				Binding:      m.Binding,
				ArrayElement: j,
				Type:         m.Type,
				Offset:       running * descriptorInfoSize,
			})
			running++
		}
	}
	sr.Template = t
	return t
}

func (sr *ShaderResources) writes(set vk.DescriptorSet, data []DescriptorInfo) []vk.WriteDescriptorSet {
	core.Assert(sr.Template != nil, "cannot update descriptor sets without an update template")
	core.Assertf(len(data) == len(sr.Template.Entries), "descriptor payload has %d entries, template expects %d", len(data), len(sr.Template.Entries))

	writes := make([]vk.WriteDescriptorSet, len(sr.Template.Entries))
	for i, e := range sr.Template.Entries {
		info := data[e.Offset/descriptorInfoSize]
		core.Assertf(info.Type == e.Type, "descriptor %d has type %d, binding %d expects %d", i, info.Type, e.Binding, e.Type)
		w := vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      e.Binding,
			DstArrayElement: e.ArrayElement,
			DescriptorCount: 1,
			DescriptorType:  e.Type,
		}
		switch e.Type {
		case vk.DescriptorTypeUniformBuffer, vk.DescriptorTypeStorageBuffer,
			vk.DescriptorTypeUniformBufferDynamic, vk.DescriptorTypeStorageBufferDynamic:
			w.PBufferInfo = []vk.DescriptorBufferInfo{info.Buffer}
		default:
			w.PImageInfo = []vk.DescriptorImageInfo{info.Image}
		}
		writes[i] = w
	}
	return writes
}

// Update pushes data into set i through the template.
func (sr *ShaderResources) Update(i uint32, data []DescriptorInfo) {
	core.Assertf(int(i) < len(sr.Sets), "descriptor set %d out of range (%d sets)", i, len(sr.Sets))
	sr.device.driver.UpdateDescriptorSets(sr.device.LogicalDevice, sr.writes(sr.Sets[i], data), nil)
}

func (sr *ShaderResources) UpdateAll(data []DescriptorInfo) {
	for i := range sr.Sets {
		sr.Update(uint32(i), data)
	}
}

// Copy duplicates count descriptors of a binding from one set to another.
func (sr *ShaderResources) Copy(src, dst, binding, arrayElement, count uint32) {
	core.Assertf(int(src) < len(sr.Sets) && int(dst) < len(sr.Sets), "descriptor copy %d -> %d out of range (%d sets)", src, dst, len(sr.Sets))
	c := vk.CopyDescriptorSet{
		SType:           vk.StructureTypeCopyDescriptorSet,
		SrcSet:          sr.Sets[src],
		SrcBinding:      binding,
		SrcArrayElement: arrayElement,
		DstSet:          sr.Sets[dst],
		DstBinding:      binding,
		DstArrayElement: arrayElement,
		DescriptorCount: count,
	}
	sr.device.driver.UpdateDescriptorSets(sr.device.LogicalDevice, nil, []vk.CopyDescriptorSet{c})
}

// Bind binds set i at set number 0 of the template's pipeline layout.
func (sr *ShaderResources) Bind(cmd *CommandBuffer, i uint32) {
	core.Assert(sr.Template != nil, "cannot bind descriptor sets without an update template")
	core.Assertf(int(i) < len(sr.Sets), "descriptor set %d out of range (%d sets)", i, len(sr.Sets))
	sr.device.driver.CmdBindDescriptorSets(cmd.Handle, sr.Template.BindPoint, sr.Template.PipelineLayout, []vk.DescriptorSet{sr.Sets[i]})
}

func (sr *ShaderResources) Destroy() {
	// Sets go back with the pool.
	sr.Sets = nil
	sr.Template = nil
	if sr.Pool != nil {
		sr.device.driver.DestroyDescriptorPool(sr.device.LogicalDevice, sr.Pool)
		sr.Pool = nil
	}
	if sr.Layout != nil {
		sr.device.driver.DestroyDescriptorSetLayout(sr.device.LogicalDevice, sr.Layout)
		sr.Layout = nil
	}
}
