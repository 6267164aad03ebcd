package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/framecore/engine/core"
)

type VulkanFence struct {
	Handle     vk.Fence
	IsSignaled bool
}

func NewFence(device *VulkanDevice, createSignaled bool) (*VulkanFence, error) {
	handle, res := device.driver.CreateFence(device.LogicalDevice, createSignaled)
	if err := checkResult(res, "failed to create fence"); err != nil {
		return nil, err
	}
	return &VulkanFence{
		Handle: handle,
		// A fence created signaled lets the first frame through without waiting.
		IsSignaled: createSignaled,
	}, nil
}

func (vf *VulkanFence) Destroy(device *VulkanDevice) {
	if vf.Handle != nil {
		device.driver.DestroyFence(device.LogicalDevice, vf.Handle)
		vf.Handle = nil
	}
	vf.IsSignaled = false
}

// Wait blocks until the fence signals or timeoutNs elapses.
func (vf *VulkanFence) Wait(device *VulkanDevice, timeoutNs uint64) bool {
	if vf.IsSignaled {
		return true
	}
	result := device.driver.WaitForFences(device.LogicalDevice, []vk.Fence{vf.Handle}, timeoutNs)
	switch result {
	case vk.Success:
		vf.IsSignaled = true
		return true
	case vk.Timeout:
		core.LogWarn("fence wait timed out after %dns", timeoutNs)
	case vk.ErrorDeviceLost:
		core.LogError("fence wait: VK_ERROR_DEVICE_LOST")
	case vk.ErrorOutOfHostMemory:
		core.LogError("fence wait: VK_ERROR_OUT_OF_HOST_MEMORY")
	case vk.ErrorOutOfDeviceMemory:
		core.LogError("fence wait: VK_ERROR_OUT_OF_DEVICE_MEMORY")
	default:
		core.LogError("fence wait: %s", VulkanResultString(result, true))
	}
	return false
}

func (vf *VulkanFence) Reset(device *VulkanDevice) error {
	if !vf.IsSignaled {
		return nil
	}
	if err := checkResult(device.driver.ResetFences(device.LogicalDevice, []vk.Fence{vf.Handle}), "failed to reset fence"); err != nil {
		return err
	}
	vf.IsSignaled = false
	return nil
}
