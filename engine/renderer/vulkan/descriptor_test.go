package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResources() ResourceConfiguration {
	fragment := vk.ShaderStageFlags(vk.ShaderStageFragmentBit)
	return ResourceConfiguration{
		Types:    []vk.DescriptorType{vk.DescriptorTypeUniformBuffer, vk.DescriptorTypeCombinedImageSampler, vk.DescriptorTypeStorageImage},
		Bindings: []uint32{0, 1, 2},
		Counts:   []uint32{1, 3, 2},
		Stages:   []vk.ShaderStageFlags{vk.ShaderStageFlags(vk.ShaderStageVertexBit), fragment, fragment},
	}
}

func samplePayload() []DescriptorInfo {
	data := []DescriptorInfo{{Type: vk.DescriptorTypeUniformBuffer, Buffer: vk.DescriptorBufferInfo{Range: 64}}}
	for i := 0; i < 3; i++ {
		data = append(data, DescriptorInfo{Type: vk.DescriptorTypeCombinedImageSampler})
	}
	for i := 0; i < 2; i++ {
		data = append(data, DescriptorInfo{Type: vk.DescriptorTypeStorageImage, Image: vk.DescriptorImageInfo{ImageLayout: vk.ImageLayoutGeneral}})
	}
	return data
}

func TestResourceConfigurationValidate(t *testing.T) {
	assert.NoError(t, sampleResources().validate())

	short := sampleResources()
	short.Stages = short.Stages[:2]
	assert.Error(t, short.validate())

	tooMany := sampleResources()
	tooMany.Counts[1] = MaxDescriptorCountPerType + 1
	assert.Error(t, tooMany.validate())

	zero := sampleResources()
	zero.Counts[0] = 0
	assert.Error(t, zero.validate())
}

func TestShaderResourcesAllocation(t *testing.T) {
	f := newFakeDriver()
	d := newTestDevice(t, f)

	sr, err := NewShaderResources(d, sampleResources(), MaxFrameDescriptorSets)
	require.NoError(t, err)
	assert.Len(t, sr.Sets, MaxFrameDescriptorSets)
	assert.False(t, sr.Empty())
	assert.Equal(t, 1, f.count("AllocateDescriptorSets"))

	sr.Destroy()
	assert.Nil(t, sr.Pool)
	assert.Nil(t, sr.Layout)
	assert.Equal(t, 1, f.count("DestroyDescriptorPool"))

	requireAssertion(t, func() { _, _ = NewShaderResources(d, sampleResources(), MaxFrameDescriptorSets+1) })
}

func TestShaderResourcesEmptyConfiguration(t *testing.T) {
	f := newFakeDriver()
	d := newTestDevice(t, f)

	sr, err := NewShaderResources(d, ResourceConfiguration{}, 2)
	require.NoError(t, err)
	assert.True(t, sr.Empty())
	assert.NotNil(t, sr.Layout)
	assert.Empty(t, sr.Sets)
	assert.Zero(t, f.count("CreateDescriptorPool"))
}

func TestUpdateTemplateEntriesMatchCounts(t *testing.T) {
	d := newTestDevice(t, newFakeDriver())
	cfg := sampleResources()
	sr, err := NewShaderResources(d, cfg, 2)
	require.NoError(t, err)

	tmpl := sr.CreateUpdateTemplate(vk.PipelineBindPointGraphics, vk.PipelineLayout(fakeHandle()))

	var total uint32
	for _, c := range cfg.Counts {
		total += c
	}
	require.Len(t, tmpl.Entries, int(total))
	for i, e := range tmpl.Entries {
		assert.Equal(t, uintptr(i)*descriptorInfoSize, e.Offset)
	}
	assert.Equal(t, DescriptorTemplateEntry{Binding: 1, ArrayElement: 2, Type: vk.DescriptorTypeCombinedImageSampler, Offset: 3 * descriptorInfoSize}, tmpl.Entries[3])
	assert.Equal(t, uint32(2), tmpl.Entries[5].Binding)
	assert.Equal(t, uint32(1), tmpl.Entries[5].ArrayElement)
}

func TestShaderResourcesUpdate(t *testing.T) {
	f := newFakeDriver()
	d := newTestDevice(t, f)
	sr, err := NewShaderResources(d, sampleResources(), 2)
	require.NoError(t, err)

	requireAssertion(t, func() { sr.Update(0, samplePayload()) })

	sr.CreateUpdateTemplate(vk.PipelineBindPointCompute, vk.PipelineLayout(fakeHandle()))
	sr.UpdateAll(samplePayload())
	require.Len(t, f.writes, 12)
	assert.True(t, sr.Sets[0] == f.writes[0].DstSet)
	assert.Len(t, f.writes[0].PBufferInfo, 1)
	assert.Empty(t, f.writes[0].PImageInfo)
	assert.Len(t, f.writes[5].PImageInfo, 1)
	assert.True(t, sr.Sets[1] == f.writes[6].DstSet)

	requireAssertion(t, func() { sr.Update(0, samplePayload()[:5]) })
	wrong := samplePayload()
	wrong[0].Type = vk.DescriptorTypeStorageBuffer
	requireAssertion(t, func() { sr.Update(0, wrong) })
	requireAssertion(t, func() { sr.Update(2, samplePayload()) })

	sr.Copy(0, 1, 1, 0, 3)
	assert.Equal(t, 3, f.count("UpdateDescriptorSets"))
}
