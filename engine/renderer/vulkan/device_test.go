package vulkan

import (
	"testing"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/framecore/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func family(bits vk.QueueFlagBits) vk.QueueFamilyProperties {
	return vk.QueueFamilyProperties{QueueFlags: vk.QueueFlags(bits), QueueCount: 1}
}

func TestSelectQueueFamilies(t *testing.T) {
	families := []vk.QueueFamilyProperties{
		family(vk.QueueGraphicsBit | vk.QueueComputeBit | vk.QueueTransferBit),
		family(vk.QueueComputeBit | vk.QueueTransferBit),
		family(vk.QueueTransferBit),
	}

	t.Run("dedicated transfer and shared present", func(t *testing.T) {
		q, err := selectQueueFamilies(families, func(uint32) (bool, error) { return true, nil })
		require.NoError(t, err)
		assert.Equal(t, QueueFamilyIndices{Graphics: 0, Present: 0, Compute: 0, Transfer: 2}, q)
		assert.Equal(t, []uint32{0, 2}, q.unique())
	})

	t.Run("present on a separate family", func(t *testing.T) {
		q, err := selectQueueFamilies(families, func(i uint32) (bool, error) { return i == 1, nil })
		require.NoError(t, err)
		assert.Equal(t, int32(1), q.Present)
		assert.Equal(t, []uint32{0, 1, 2}, q.unique())
	})

	t.Run("transfer ties go to the later family", func(t *testing.T) {
		tied := []vk.QueueFamilyProperties{families[0], families[2], families[2]}
		q, err := selectQueueFamilies(tied, func(uint32) (bool, error) { return true, nil })
		require.NoError(t, err)
		assert.Equal(t, int32(2), q.Transfer)
	})

	t.Run("presenting graphics family scores higher", func(t *testing.T) {
		mixed := []vk.QueueFamilyProperties{
			family(vk.QueueGraphicsBit | vk.QueueTransferBit),
			family(vk.QueueGraphicsBit | vk.QueueComputeBit | vk.QueueTransferBit),
		}
		q, err := selectQueueFamilies(mixed, func(uint32) (bool, error) { return true, nil })
		require.NoError(t, err)
		assert.Equal(t, QueueFamilyIndices{Graphics: 0, Present: 0, Compute: 1, Transfer: 1}, q)

		q, err = selectQueueFamilies(mixed, func(i uint32) (bool, error) { return i == 1, nil })
		require.NoError(t, err)
		assert.Equal(t, QueueFamilyIndices{Graphics: 0, Present: 1, Compute: 1, Transfer: 1}, q)
	})

	t.Run("missing graphics", func(t *testing.T) {
		q, err := selectQueueFamilies(families[1:], func(uint32) (bool, error) { return true, nil })
		require.NoError(t, err)
		assert.Equal(t, int32(-1), q.Graphics)
		assert.False(t, q.complete(DeviceRequirements{Graphics: true}))
		assert.True(t, q.complete(DeviceRequirements{Compute: true, Transfer: true}))
	})

	t.Run("surface query failure", func(t *testing.T) {
		_, err := selectQueueFamilies(families, func(uint32) (bool, error) { return false, errors.New("lost") })
		assert.Error(t, err)
	})
}

func TestNewDeviceSelectsAndCreates(t *testing.T) {
	f := newFakeDriver()
	d := newTestDevice(t, f)

	assert.NotNil(t, d.LogicalDevice)
	assert.Equal(t, QueueFamilyIndices{Graphics: 0, Present: 0, Compute: 0, Transfer: 0}, d.QueueFamilies)
	assert.Equal(t, vk.FormatD32Sfloat, d.DepthFormat)
	assert.False(t, d.DepthHasStencil)
	assert.Equal(t, DefaultFenceTimeout, d.FenceTimeout())
	assert.Equal(t, 3, f.count("CreateCommandPool"))
	assert.NotNil(t, d.CommandPool(COMMAND_TYPE_COMPUTE))
	assert.True(t, d.TransferQueue == d.Queue(COMMAND_TYPE_TRANSFER))

	d.Destroy()
	assert.Equal(t, 3, f.count("DestroyCommandPool"))
	assert.Nil(t, d.LogicalDevice)
}

func TestNewDeviceRejectsUnsuitableHardware(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fakeDriver)
	}{
		{"integrated gpu", func(f *fakeDriver) { f.deviceType = vk.PhysicalDeviceTypeIntegratedGpu }},
		{"no swapchain extension", func(f *fakeDriver) { f.extensions = nil }},
		{"no present support", func(f *fakeDriver) { f.presentFamily = func(uint32) bool { return false } }},
		{"no surface formats", func(f *fakeDriver) { f.formats = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeDriver()
			tt.setup(f)
			_, err := NewDevice(f, vk.Instance(fakeHandle()), vk.Surface(fakeHandle()), DeviceConfig{RequireDiscreteGPU: true})
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrNoSuitableDevice))
			assert.Zero(t, f.count("CreateDevice"))
		})
	}

	t.Run("integrated allowed when not required", func(t *testing.T) {
		f := newFakeDriver()
		f.deviceType = vk.PhysicalDeviceTypeIntegratedGpu
		_, err := NewDevice(f, vk.Instance(fakeHandle()), vk.Surface(fakeHandle()), DeviceConfig{})
		assert.NoError(t, err)
	})
}

func TestSelectDepthFormatFallsBackToStencil(t *testing.T) {
	f := newFakeDriver()
	depth := vk.FormatProperties{OptimalTilingFeatures: vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)}
	f.formatProps = map[vk.Format]vk.FormatProperties{vk.FormatD24UnormS8Uint: depth}
	d := newTestDevice(t, f)
	assert.Equal(t, vk.FormatD24UnormS8Uint, d.DepthFormat)
	assert.True(t, d.DepthHasStencil)

	f.formatProps = map[vk.Format]vk.FormatProperties{}
	assert.False(t, d.SelectDepthFormat())
}

func TestFindMemoryIndex(t *testing.T) {
	d := newTestDevice(t, newFakeDriver())

	idx, err := d.FindMemoryIndex(0b11, vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit))
	require.NoError(t, err)
	assert.Equal(t, uint32(1), idx)

	idx, err = d.FindMemoryIndex(0b11, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	require.NoError(t, err)
	assert.Equal(t, uint32(0), idx)

	_, err = d.FindMemoryIndex(0b10, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	assert.True(t, errors.Is(err, core.ErrMemoryTypeNotFound))
}

func TestFenceWaitAndReset(t *testing.T) {
	f := newFakeDriver()
	d := newTestDevice(t, f)

	fence, err := NewFence(d, true)
	require.NoError(t, err)
	assert.True(t, fence.Wait(d, 10))
	assert.Zero(t, f.count("WaitForFences"))

	require.NoError(t, fence.Reset(d))
	assert.False(t, fence.IsSignaled)
	require.NoError(t, fence.Reset(d))
	assert.Equal(t, 1, f.count("ResetFences"))

	// Nothing was submitted with the fence since the reset.
	assert.False(t, fence.Wait(d, 10))
	require.Equal(t, vk.Success, f.QueueSubmit(d.GraphicsQueue, nil, fence.Handle))
	f.waitResult = vk.ErrorDeviceLost
	assert.False(t, fence.Wait(d, 10))
	f.waitResult = vk.Success
	assert.True(t, fence.Wait(d, 10))
	assert.True(t, fence.IsSignaled)

	fence.Destroy(d)
	assert.Empty(t, f.liveFences)
}
