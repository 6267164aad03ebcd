package vulkan

import (
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/framecore/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferFlags(t *testing.T) {
	tests := []struct {
		name   string
		typ    BufferType
		opt    BufferMemoryOption
		usage  vk.BufferUsageFlagBits
		memory vk.MemoryPropertyFlagBits
	}{
		{"vertex ignores option", BUFFER_TYPE_VERTEX, BUFFER_MEMORY_SYSTEM_MEMORY,
			vk.BufferUsageVertexBufferBit | vk.BufferUsageTransferDstBit, vk.MemoryPropertyDeviceLocalBit},
		{"index", BUFFER_TYPE_INDEX, BUFFER_MEMORY_GPU_ONLY,
			vk.BufferUsageIndexBufferBit | vk.BufferUsageTransferDstBit, vk.MemoryPropertyDeviceLocalBit},
		{"staging in system memory", BUFFER_TYPE_STAGING, BUFFER_MEMORY_SYSTEM_MEMORY,
			vk.BufferUsageTransferSrcBit, vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit},
		{"uniform as transfer target", BUFFER_TYPE_UNIFORM, BUFFER_MEMORY_TRANSFER_DST,
			vk.BufferUsageUniformBufferBit | vk.BufferUsageTransferDstBit, vk.MemoryPropertyDeviceLocalBit},
		{"storage shared", BUFFER_TYPE_STORAGE, BUFFER_MEMORY_DEVICE_LOCAL_HOST_VISIBLE,
			vk.BufferUsageStorageBufferBit,
			vk.MemoryPropertyDeviceLocalBit | vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit},
		{"texel", BUFFER_TYPE_UNIFORM_TEXEL | BUFFER_TYPE_STORAGE_TEXEL, BUFFER_MEMORY_GPU_ONLY,
			vk.BufferUsageUniformTexelBufferBit | vk.BufferUsageStorageTexelBufferBit, vk.MemoryPropertyDeviceLocalBit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usage, memory := bufferFlags(tt.typ, tt.opt)
			assert.Equal(t, vk.BufferUsageFlags(tt.usage), usage)
			assert.Equal(t, vk.MemoryPropertyFlags(tt.memory), memory)
		})
	}
}

func TestBufferTypeString(t *testing.T) {
	assert.Equal(t, "invalid", BUFFER_TYPE_INVALID.String())
	assert.Equal(t, "vertex|staging", (BUFFER_TYPE_VERTEX | BUFFER_TYPE_STAGING).String())
}

func TestParseBufferMemoryOption(t *testing.T) {
	for in, want := range map[string]BufferMemoryOption{
		"":                           BUFFER_MEMORY_GPU_ONLY,
		"gpu_only":                   BUFFER_MEMORY_GPU_ONLY,
		"Transfer_Dst":               BUFFER_MEMORY_TRANSFER_DST,
		"system_memory":              BUFFER_MEMORY_SYSTEM_MEMORY,
		" device_local_host_visible": BUFFER_MEMORY_DEVICE_LOCAL_HOST_VISIBLE,
	} {
		got, err := ParseBufferMemoryOption(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseBufferMemoryOption("vram")
	assert.Error(t, err)
}

func TestCreateAndDestroyBuffer(t *testing.T) {
	f := newFakeDriver()
	d := newTestDevice(t, f)

	buf := NewBuffer(128, BUFFER_TYPE_VERTEX)
	require.NoError(t, d.CreateBuffer(buf, BUFFER_MEMORY_GPU_ONLY))
	require.NotEqual(t, InvalidAllocation, buf.AllocationIndex)
	assert.Equal(t, uint32(0), buf.MemoryIndex)
	assert.Nil(t, buf.Mapped)

	index := buf.AllocationIndex
	entry, ok := d.allocations.get(index)
	require.True(t, ok)
	assert.False(t, entry.Freed)
	assert.Equal(t, "vertex buffer", entry.Label)

	d.DestroyBuffer(buf)
	entry, ok = d.allocations.get(index)
	require.True(t, ok)
	assert.True(t, entry.Freed)
	assert.Equal(t, InvalidAllocation, buf.AllocationIndex)
	assert.Equal(t, InvalidAllocation, buf.MemoryIndex)
	assert.Equal(t, BUFFER_TYPE_INVALID, buf.Type)
	assert.Zero(t, buf.Size)
	assert.Empty(t, f.liveMemory)

	requireAssertion(t, func() { d.DestroyBuffer(buf) })
	assert.Equal(t, 1, d.allocations.len())
}

func TestCreateBufferContract(t *testing.T) {
	d := newTestDevice(t, newFakeDriver())
	requireAssertion(t, func() { _ = d.CreateBuffer(NewBuffer(64, BUFFER_TYPE_INVALID), BUFFER_MEMORY_GPU_ONLY) })
	requireAssertion(t, func() { _ = d.CreateBuffer(NewBuffer(0, BUFFER_TYPE_UNIFORM), BUFFER_MEMORY_GPU_ONLY) })
}

func TestStagingBufferIsMappedAndUploads(t *testing.T) {
	f := newFakeDriver()
	d := newTestDevice(t, f)

	staging := NewBuffer(8, BUFFER_TYPE_STAGING)
	require.NoError(t, d.CreateBuffer(staging, BUFFER_MEMORY_SYSTEM_MEMORY))
	require.NotNil(t, staging.Mapped)
	assert.Equal(t, uint32(1), staging.MemoryIndex)

	d.Upload(staging, []byte{1, 2, 3, 4})
	entry, _ := d.allocations.get(staging.AllocationIndex)
	assert.Equal(t, []byte{1, 2, 3, 4, 0, 0, 0, 0}, f.mapped[entry.Memory])

	requireAssertion(t, func() { d.Upload(staging, make([]byte, 9)) })

	d.DestroyBuffer(staging)
	assert.Equal(t, 1, f.count("UnmapMemory"))
}

func TestCreateBufferWithoutMatchingMemory(t *testing.T) {
	f := newFakeDriver()
	f.memory.MemoryTypeCount = 1
	d := newTestDevice(t, f)

	err := d.CreateBuffer(NewBuffer(64, BUFFER_TYPE_STAGING), BUFFER_MEMORY_SYSTEM_MEMORY)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrMemoryTypeNotFound))
	assert.Equal(t, 1, f.count("DestroyBuffer"))
	assert.Empty(t, d.LiveAllocations())
}

func TestCopyBufferSizeMismatchAssertsBeforeDriverCalls(t *testing.T) {
	f := newFakeDriver()
	d := newTestDevice(t, f)
	src := NewBuffer(256, BUFFER_TYPE_STAGING)
	require.NoError(t, d.CreateBuffer(src, BUFFER_MEMORY_SYSTEM_MEMORY))
	dst := NewBuffer(128, BUFFER_TYPE_VERTEX)
	require.NoError(t, d.CreateBuffer(dst, BUFFER_MEMORY_GPU_ONLY))

	before := len(f.calls)
	requireAssertion(t, func() { _ = d.CopyBuffer(src, dst) })
	assert.Len(t, f.calls, before)
}

func TestCopyBufferFlushesOnTransferQueue(t *testing.T) {
	f := newFakeDriver()
	d := newTestDevice(t, f)
	src := NewBuffer(72, BUFFER_TYPE_STAGING)
	require.NoError(t, d.CreateBuffer(src, BUFFER_MEMORY_SYSTEM_MEMORY))
	dst := NewBuffer(72, BUFFER_TYPE_INDEX)
	require.NoError(t, d.CreateBuffer(dst, BUFFER_MEMORY_GPU_ONLY))

	require.NoError(t, d.CopyBuffer(src, dst))
	require.Len(t, f.copies, 1)
	assert.Equal(t, vk.DeviceSize(72), f.copies[0].Size)
	assert.Equal(t, 1, f.submitted[d.TransferQueue])
	assert.Equal(t, 1, f.count("FreeCommandBuffers"))
	// The flush fence does not outlive the copy.
	assert.Empty(t, f.liveFences)
}

func TestCopyBufferReleasesCommandBufferOnFailure(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fakeDriver)
	}{
		{"submit rejected", func(f *fakeDriver) { f.submitResults = []vk.Result{vk.ErrorDeviceLost} }},
		{"fence timeout", func(f *fakeDriver) { f.waitResult = vk.Timeout }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeDriver()
			d := newTestDevice(t, f)
			src := NewBuffer(32, BUFFER_TYPE_STAGING)
			require.NoError(t, d.CreateBuffer(src, BUFFER_MEMORY_SYSTEM_MEMORY))
			dst := NewBuffer(32, BUFFER_TYPE_VERTEX)
			require.NoError(t, d.CreateBuffer(dst, BUFFER_MEMORY_GPU_ONLY))
			f.forget()
			tt.setup(f)

			require.Error(t, d.CopyBuffer(src, dst))
			assert.Equal(t, 1, f.count("AllocateCommandBuffers"))
			assert.Equal(t, 1, f.count("FreeCommandBuffers"))
			assert.Empty(t, f.liveFences)

			// The transfer pool still serves the next copy.
			f.waitResult = vk.Success
			require.NoError(t, d.CopyBuffer(src, dst))
			assert.Equal(t, 2, f.count("FreeCommandBuffers"))
		})
	}
}

func TestFlushCommandBufferTimeout(t *testing.T) {
	f := newFakeDriver()
	d := newTestDevice(t, f)
	f.waitResult = vk.Timeout

	cmd, err := AllocateAndBeginSingleUse(d, COMMAND_TYPE_GRAPHICS)
	require.NoError(t, err)
	require.NoError(t, cmd.End())

	err = d.FlushCommandBuffer(cmd, COMMAND_TYPE_GRAPHICS)
	require.Error(t, err)
	assert.True(t, cmd.IsPending())
	assert.Empty(t, f.liveFences)

	fresh, err := AllocateAndBeginSingleUse(d, COMMAND_TYPE_GRAPHICS)
	require.NoError(t, err)
	requireAssertion(t, func() { _ = d.FlushCommandBuffer(fresh, COMMAND_TYPE_GRAPHICS) })
}

func TestDeviceDestroyReportsLeaks(t *testing.T) {
	out := captureLog(t)
	core.SetLogLevel(core.LogLevelWarn)
	defer core.SetLogLevel(core.LogLevelDebug)
	f := newFakeDriver()
	d := newTestDevice(t, f)

	kept := NewBuffer(64, BUFFER_TYPE_UNIFORM)
	kept.Label = "camera uniforms"
	require.NoError(t, d.CreateBuffer(kept, BUFFER_MEMORY_SYSTEM_MEMORY))
	freed := NewBuffer(64, BUFFER_TYPE_STORAGE)
	require.NoError(t, d.CreateBuffer(freed, BUFFER_MEMORY_GPU_ONLY))
	d.DestroyBuffer(freed)

	live := d.LiveAllocations()
	require.Len(t, live, 1)
	d.Destroy()

	assert.Contains(t, out.String(), "leaked allocation "+live[0].ID.String())
	assert.Contains(t, out.String(), "camera uniforms")
	assert.Equal(t, 1, strings.Count(out.String(), "leaked allocation"))
	assert.Equal(t, 1, f.count("DestroyDevice"))
}
