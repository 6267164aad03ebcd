package vulkan

import (
	"math"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/framecore/engine/core"
	"golang.org/x/exp/constraints"
	"golang.org/x/exp/slices"
)

type SwapchainImage struct {
	Image *VulkanImage
	View  *VulkanImageView
}

type Swapchain struct {
	Handle      vk.Swapchain
	ImageFormat vk.SurfaceFormat
	PresentMode vk.PresentMode
	Extent      vk.Extent2D
	Images      []SwapchainImage

	MaxFramesInFlight uint32
	// CurrentFrame indexes the frame-in-flight slot, not the swapchain image.
	CurrentFrame    uint32
	NeedsRecreation bool

	device  *VulkanDevice
	surface vk.Surface
}

func NewSwapchain(device *VulkanDevice, surface vk.Surface) *Swapchain {
	return &Swapchain{device: device, surface: surface}
}

func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func chooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, f := range formats {
		if (f.Format == vk.FormatB8g8r8a8Unorm || f.Format == vk.FormatB8g8r8a8Srgb) &&
			f.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return f
		}
	}
	return formats[0]
}

func choosePresentMode(modes []vk.PresentMode, vsync bool) vk.PresentMode {
	preferred := vk.PresentModeImmediate
	if vsync {
		preferred = vk.PresentModeMailbox
	}
	if slices.Index(modes, preferred) >= 0 {
		return preferred
	}
	return vk.PresentModeFifo
}

// chooseExtent honours the surface's current extent unless the platform leaves
// it to the application, in which case the request is clamped into range.
func chooseExtent(caps vk.SurfaceCapabilities, width, height uint32) vk.Extent2D {
	if caps.CurrentExtent.Width != math.MaxUint32 {
		return caps.CurrentExtent
	}
	return vk.Extent2D{
		Width:  clamp(width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: clamp(height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

func chooseImageCount(caps vk.SurfaceCapabilities) uint32 {
	count := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

// swapchainUsage adds storage and transfer-dst usage when the surface allows
// them, so compute work can write the presented image.
func swapchainUsage(caps vk.SurfaceCapabilities) vk.ImageUsageFlags {
	usage := vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)
	for _, extra := range []vk.ImageUsageFlagBits{vk.ImageUsageStorageBit, vk.ImageUsageTransferDstBit} {
		if caps.SupportedUsageFlags&vk.ImageUsageFlags(extra) != 0 {
			usage |= vk.ImageUsageFlags(extra)
		}
	}
	return usage
}

// Create builds the swapchain, or rebuilds it when one already exists. The
// previous handle is handed to the driver as OldSwapchain and destroyed, with
// its views, only after the replacement is live.
func (s *Swapchain) Create(width, height uint32, vsync bool) error {
	d := s.device
	if err := d.QuerySwapchainSupport(s.surface); err != nil {
		return err
	}
	support := d.SwapchainSupport

	format := chooseSurfaceFormat(support.Formats)
	presentMode := choosePresentMode(support.PresentModes, vsync)
	extent := chooseExtent(support.Capabilities, width, height)
	imageCount := chooseImageCount(support.Capabilities)
	usage := swapchainUsage(support.Capabilities)

	createInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          s.surface,
		MinImageCount:    imageCount,
		ImageFormat:      format.Format,
		ImageColorSpace:  format.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       usage,
		PreTransform:     support.Capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.True,
		OldSwapchain:     s.Handle,
	}
	if d.QueueFamilies.Graphics != d.QueueFamilies.Present {
		createInfo.ImageSharingMode = vk.SharingModeConcurrent
		createInfo.QueueFamilyIndexCount = 2
		createInfo.PQueueFamilyIndices = []uint32{uint32(d.QueueFamilies.Graphics), uint32(d.QueueFamilies.Present)}
	} else {
		createInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	handle, res := d.driver.CreateSwapchain(d.LogicalDevice, &createInfo)
	if err := checkResult(res, "failed to create swapchain"); err != nil {
		return err
	}

	oldHandle := s.Handle
	oldImages := s.Images
	s.Handle = handle
	s.Images = nil
	s.destroyImages(oldImages)
	if oldHandle != vk.NullSwapchain {
		d.driver.DestroySwapchain(d.LogicalDevice, oldHandle)
	}

	handles, res := d.driver.GetSwapchainImages(d.LogicalDevice, handle)
	if err := checkResult(res, "failed to get swapchain images"); err != nil {
		return err
	}
	images := make([]SwapchainImage, len(handles))
	for i, h := range handles {
		img := WrapImage(h, format.Format, extent.Width, extent.Height)
		view, err := d.CreateImageView(img, vk.ImageViewType2d, format.Format, vk.ImageAspectFlags(vk.ImageAspectColorBit))
		if err != nil {
			s.destroyImages(images[:i])
			return err
		}
		images[i] = SwapchainImage{Image: img, View: view}
	}

	s.Images = images
	s.ImageFormat = format
	s.PresentMode = presentMode
	s.Extent = extent
	s.MaxFramesInFlight = uint32(len(images)) - 1
	if s.MaxFramesInFlight == 0 {
		s.MaxFramesInFlight = 1
	}
	s.CurrentFrame = 0
	s.NeedsRecreation = false

	core.LogInfo("Swapchain created: %dx%d, %d images, %d frames in flight.", extent.Width, extent.Height, len(images), s.MaxFramesInFlight)
	return nil
}

func (s *Swapchain) destroyImages(images []SwapchainImage) {
	// Swapchain images are owned by the swapchain; only the views are ours.
	for _, img := range images {
		if img.View.IsValid() {
			s.device.DestroyImageView(img.View)
		}
	}
}

func (s *Swapchain) ImageCount() uint32 {
	return uint32(len(s.Images))
}

// AcquireNextImage returns the index of the next presentable image.
func (s *Swapchain) AcquireNextImage(imageAvailable vk.Semaphore) (uint32, Status) {
	index, res := s.device.driver.AcquireNextImage(s.device.LogicalDevice, s.Handle, math.MaxUint64, imageAvailable)
	switch res {
	case vk.Success, vk.Suboptimal:
		return index, StatusOK
	case vk.ErrorOutOfDate:
		s.NeedsRecreation = true
		return 0, StatusWindowResized
	}
	core.LogError("failed to acquire swapchain image: %s", VulkanResultString(res, true))
	return 0, StatusFatal
}

// Present queues image index for display once waitSemaphore signals. The
// frame slot advances whatever the outcome.
func (s *Swapchain) Present(waitSemaphore vk.Semaphore, index uint32) Status {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{waitSemaphore},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{s.Handle},
		PImageIndices:      []uint32{index},
	}
	res := s.device.driver.QueuePresent(s.device.PresentQueue, &presentInfo)
	s.CurrentFrame = (s.CurrentFrame + 1) % s.MaxFramesInFlight

	switch res {
	case vk.Success:
		return StatusOK
	case vk.ErrorOutOfDate, vk.Suboptimal:
		s.NeedsRecreation = true
		return StatusWindowResized
	}
	core.LogError("failed to present swapchain image: %s", VulkanResultString(res, true))
	return StatusFatal
}

func (s *Swapchain) Destroy() {
	s.destroyImages(s.Images)
	s.Images = nil
	if s.Handle != vk.NullSwapchain {
		s.device.driver.DestroySwapchain(s.device.LogicalDevice, s.Handle)
		s.Handle = vk.NullSwapchain
	}
}
