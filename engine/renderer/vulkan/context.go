package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/framecore/engine/core"
)

// FrameSync holds the primitives of one frame-in-flight slot.
type FrameSync struct {
	RenderCompleteFence      *VulkanFence
	RenderCompleteSemaphore  vk.Semaphore
	PresentCompleteSemaphore vk.Semaphore
}

type DepthAttachment struct {
	Image *VulkanImage
	View  *VulkanImageView
}

type VulkanContext struct {
	Driver Driver

	// The framebuffer's current width.
	FramebufferWidth uint32
	// The framebuffer's current height.
	FramebufferHeight uint32

	Instance *Instance
	Surface  vk.Surface
	Device   *VulkanDevice

	Swapchain  *Swapchain
	RenderPass *RenderPass

	// One per swapchain image.
	Framebuffers []*Framebuffer
	DepthImages  []DepthAttachment

	// One per frame-in-flight slot.
	CommandBuffers []*CommandBuffer
	SyncObjects    []FrameSync

	ComputeCommandBuffer *CommandBuffer
	ComputeSemaphore     vk.Semaphore

	// Swapchain image acquired for the frame being recorded.
	ImageIndex uint32
}

// Slot returns the frame-in-flight slot being recorded.
func (vc *VulkanContext) Slot() uint32 {
	return vc.Swapchain.CurrentFrame
}

func (vc *VulkanContext) createDepthImages() error {
	aspect := vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	if vc.Device.DepthHasStencil {
		aspect |= vk.ImageAspectFlags(vk.ImageAspectStencilBit)
	}
	extent := vc.Swapchain.Extent
	vc.DepthImages = make([]DepthAttachment, 0, vc.Swapchain.ImageCount())
	for i := uint32(0); i < vc.Swapchain.ImageCount(); i++ {
		img := NewImage2D(extent.Width, extent.Height, vc.Device.DepthFormat,
			vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
			vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
		img.Label = "depth attachment"
		if err := vc.Device.CreateImage(img); err != nil {
			return err
		}
		view, err := vc.Device.CreateImageView(img, vk.ImageViewType2d, vk.FormatUndefined, aspect)
		if err != nil {
			vc.Device.DestroyImage(img)
			return err
		}
		vc.DepthImages = append(vc.DepthImages, DepthAttachment{Image: img, View: view})
		if err := vc.Device.TransitionImageLayout(img.Handle, vk.ImageLayoutUndefined, vk.ImageLayoutDepthStencilAttachmentOptimal, aspect); err != nil {
			return err
		}
	}
	return nil
}

func (vc *VulkanContext) destroyDepthImages() {
	for _, d := range vc.DepthImages {
		if d.View.IsValid() {
			vc.Device.DestroyImageView(d.View)
		}
		vc.Device.DestroyImage(d.Image)
	}
	vc.DepthImages = nil
}

func (vc *VulkanContext) createFramebuffers() error {
	extent := vc.Swapchain.Extent
	vc.Framebuffers = make([]*Framebuffer, 0, len(vc.Swapchain.Images))
	for i, img := range vc.Swapchain.Images {
		attachments := []vk.ImageView{img.View.Handle, vc.DepthImages[i].View.Handle}
		fb, err := NewFramebuffer(vc.Device, vc.RenderPass, extent.Width, extent.Height, attachments)
		if err != nil {
			return err
		}
		vc.Framebuffers = append(vc.Framebuffers, fb)
	}
	return nil
}

func (vc *VulkanContext) destroyFramebuffers() {
	for _, fb := range vc.Framebuffers {
		fb.Destroy()
	}
	vc.Framebuffers = nil
}

func (vc *VulkanContext) allocateCommandBuffers() error {
	vc.CommandBuffers = make([]*CommandBuffer, vc.Swapchain.MaxFramesInFlight)
	for i := range vc.CommandBuffers {
		vc.CommandBuffers[i] = &CommandBuffer{}
	}
	if err := AllocateMany(vc, vc.CommandBuffers, COMMAND_TYPE_GRAPHICS); err != nil {
		return err
	}
	vc.ComputeCommandBuffer = &CommandBuffer{}
	return vc.ComputeCommandBuffer.Allocate(vc, COMMAND_TYPE_COMPUTE)
}

// freeCommandBuffers releases every allocated frame and compute buffer.
func (vc *VulkanContext) freeCommandBuffers() {
	var allocated []*CommandBuffer
	for _, cb := range vc.CommandBuffers {
		if cb.State != COMMAND_BUFFER_STATE_NOT_ALLOCATED {
			allocated = append(allocated, cb)
		}
	}
	FreeMany(vc, allocated)
	if vc.ComputeCommandBuffer != nil && vc.ComputeCommandBuffer.State != COMMAND_BUFFER_STATE_NOT_ALLOCATED {
		vc.ComputeCommandBuffer.Free(vc)
	}
	vc.CommandBuffers = nil
	vc.ComputeCommandBuffer = nil
}

func (vc *VulkanContext) createSyncObjects() error {
	d := vc.Device
	vc.SyncObjects = make([]FrameSync, vc.Swapchain.MaxFramesInFlight)
	for i := range vc.SyncObjects {
		s := &vc.SyncObjects[i]
		var res vk.Result
		if s.PresentCompleteSemaphore, res = d.driver.CreateSemaphore(d.LogicalDevice); res != vk.Success {
			return checkResult(res, "failed to create present-complete semaphore %d", i)
		}
		if s.RenderCompleteSemaphore, res = d.driver.CreateSemaphore(d.LogicalDevice); res != vk.Success {
			return checkResult(res, "failed to create render-complete semaphore %d", i)
		}
		// Created signaled so the first wait on each slot returns at once.
		fence, err := NewFence(d, true)
		if err != nil {
			return err
		}
		s.RenderCompleteFence = fence
	}
	sem, res := d.driver.CreateSemaphore(d.LogicalDevice)
	if err := checkResult(res, "failed to create compute semaphore"); err != nil {
		return err
	}
	vc.ComputeSemaphore = sem
	return nil
}

func (vc *VulkanContext) destroySyncObjects() {
	d := vc.Device
	for i := range vc.SyncObjects {
		s := &vc.SyncObjects[i]
		if s.PresentCompleteSemaphore != vk.NullSemaphore {
			d.driver.DestroySemaphore(d.LogicalDevice, s.PresentCompleteSemaphore)
		}
		if s.RenderCompleteSemaphore != vk.NullSemaphore {
			d.driver.DestroySemaphore(d.LogicalDevice, s.RenderCompleteSemaphore)
		}
		if s.RenderCompleteFence != nil {
			s.RenderCompleteFence.Destroy(d)
		}
	}
	vc.SyncObjects = nil
	if vc.ComputeSemaphore != vk.NullSemaphore {
		d.driver.DestroySemaphore(d.LogicalDevice, vc.ComputeSemaphore)
		vc.ComputeSemaphore = vk.NullSemaphore
	}
	core.LogDebug("Sync objects destroyed.")
}
