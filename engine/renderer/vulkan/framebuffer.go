package vulkan

import (
	vk "github.com/goki/vulkan"
)

type Framebuffer struct {
	Handle      vk.Framebuffer
	Attachments []vk.ImageView
	Width       uint32
	Height      uint32

	device *VulkanDevice
}

func NewFramebuffer(device *VulkanDevice, renderPass *RenderPass, width, height uint32, attachments []vk.ImageView) (*Framebuffer, error) {
	fb := &Framebuffer{
		Attachments: append([]vk.ImageView(nil), attachments...),
		Width:       width,
		Height:      height,
		device:      device,
	}
	createInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderPass.Handle,
		AttachmentCount: uint32(len(fb.Attachments)),
		PAttachments:    fb.Attachments,
		Width:           width,
		Height:          height,
		Layers:          1,
	}
	handle, res := device.driver.CreateFramebuffer(device.LogicalDevice, &createInfo)
	if err := checkResult(res, "failed to create framebuffer"); err != nil {
		return nil, err
	}
	fb.Handle = handle
	return fb, nil
}

func (fb *Framebuffer) Destroy() {
	if fb.Handle != nil {
		fb.device.driver.DestroyFramebuffer(fb.device.LogicalDevice, fb.Handle)
		fb.Handle = nil
	}
	fb.Attachments = nil
}
