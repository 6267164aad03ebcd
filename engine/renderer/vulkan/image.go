package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/framecore/engine/core"
)

// VulkanImage describes an image before CreateImage and owns its memory after.
// Swapchain images are wrapped without an allocation.
type VulkanImage struct {
	Handle          vk.Image
	Type            vk.ImageType
	Format          vk.Format
	Width           uint32
	Height          uint32
	Depth           uint32
	MipLevels       uint32
	ArrayLayers     uint32
	Tiling          vk.ImageTiling
	Usage           vk.ImageUsageFlags
	MemoryFlags     vk.MemoryPropertyFlags
	Flags           vk.ImageCreateFlags
	AllocationIndex uint32
	Label           string
}

// NewImage2D describes a single-mip 2D image.
func NewImage2D(width, height uint32, format vk.Format, usage vk.ImageUsageFlags, memory vk.MemoryPropertyFlags) *VulkanImage {
	return &VulkanImage{
		Type:            vk.ImageType2d,
		Format:          format,
		Width:           width,
		Height:          height,
		Depth:           1,
		MipLevels:       1,
		ArrayLayers:     1,
		Tiling:          vk.ImageTilingOptimal,
		Usage:           usage,
		MemoryFlags:     memory,
		AllocationIndex: InvalidAllocation,
	}
}

// WrapImage describes an image owned elsewhere, such as a swapchain image.
func WrapImage(handle vk.Image, format vk.Format, width, height uint32) *VulkanImage {
	return &VulkanImage{
		Handle:          handle,
		Type:            vk.ImageType2d,
		Format:          format,
		Width:           width,
		Height:          height,
		Depth:           1,
		MipLevels:       1,
		ArrayLayers:     1,
		AllocationIndex: InvalidAllocation,
	}
}

type VulkanImageView struct {
	Handle   vk.ImageView
	Image    *VulkanImage
	ViewType vk.ImageViewType
	Format   vk.Format
	Aspect   vk.ImageAspectFlags
}

// IsValid reports whether both the view and the image it looks at exist.
func (v *VulkanImageView) IsValid() bool {
	return v != nil && v.Handle != vk.NullImageView && v.Image != nil && v.Image.Handle != vk.NullImage
}

// viewCompatible reports whether a view of viewType may be created on an
// image of imageType.
func viewCompatible(imageType vk.ImageType, viewType vk.ImageViewType) bool {
	switch viewType {
	case vk.ImageViewType1d, vk.ImageViewType1dArray:
		return imageType == vk.ImageType1d
	case vk.ImageViewType2d, vk.ImageViewType2dArray:
		return imageType == vk.ImageType2d || imageType == vk.ImageType3d
	case vk.ImageViewTypeCube, vk.ImageViewTypeCubeArray:
		return imageType == vk.ImageType2d
	case vk.ImageViewType3d:
		return imageType == vk.ImageType3d
	}
	return false
}

func (d *VulkanDevice) CreateImage(img *VulkanImage) error {
	core.Assertf(img.AllocationIndex == InvalidAllocation, "image already owns allocation %d", img.AllocationIndex)
	core.Assert(img.Width > 0 && img.Height > 0, "cannot create a zero sized image")

	createInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		Flags:     img.Flags,
		ImageType: img.Type,
		Format:    img.Format,
		Extent: vk.Extent3D{
			Width:  img.Width,
			Height: img.Height,
			Depth:  img.Depth,
		},
		MipLevels:     img.MipLevels,
		ArrayLayers:   img.ArrayLayers,
		Samples:       vk.SampleCount1Bit,
		Tiling:        img.Tiling,
		Usage:         img.Usage,
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	handle, res := d.driver.CreateImage(d.LogicalDevice, &createInfo)
	if err := checkResult(res, "failed to create image"); err != nil {
		return err
	}

	requirements := d.driver.GetImageMemoryRequirements(d.LogicalDevice, handle)
	memoryIndex, err := d.FindMemoryIndex(requirements.MemoryTypeBits, img.MemoryFlags)
	if err != nil {
		d.driver.DestroyImage(d.LogicalDevice, handle)
		return err
	}
	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: memoryIndex,
	}
	memory, res := d.driver.AllocateMemory(d.LogicalDevice, &allocInfo)
	if err := checkResult(res, "failed to allocate image memory"); err != nil {
		d.driver.DestroyImage(d.LogicalDevice, handle)
		return err
	}
	if err := checkResult(d.driver.BindImageMemory(d.LogicalDevice, handle, memory, 0), "failed to bind image memory"); err != nil {
		d.driver.FreeMemory(d.LogicalDevice, memory)
		d.driver.DestroyImage(d.LogicalDevice, handle)
		return err
	}

	label := img.Label
	if label == "" {
		label = "image"
	}
	img.Handle = handle
	img.AllocationIndex = d.allocations.add(label, memory, requirements.Size)
	return nil
}

func (d *VulkanDevice) DestroyImage(img *VulkanImage) {
	memory := d.allocations.release(img.AllocationIndex)
	if img.Handle != nil {
		d.driver.DestroyImage(d.LogicalDevice, img.Handle)
	}
	d.driver.FreeMemory(d.LogicalDevice, memory)
	img.Handle = vk.NullImage
	img.AllocationIndex = InvalidAllocation
}

// CreateImageView creates a view on image. An empty format borrows the
// image's format.
func (d *VulkanDevice) CreateImageView(image *VulkanImage, viewType vk.ImageViewType, format vk.Format, aspect vk.ImageAspectFlags) (*VulkanImageView, error) {
	core.Assert(image != nil && image.Handle != vk.NullImage, "cannot create a view on a missing image")
	core.Assertf(viewCompatible(image.Type, viewType), "view type %d is incompatible with image type %d", viewType, image.Type)

	if format == vk.FormatUndefined {
		format = image.Format
	}
	layers := image.ArrayLayers
	if layers == 0 {
		layers = 1
	}
	levels := image.MipLevels
	if levels == 0 {
		levels = 1
	}
	createInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image.Handle,
		ViewType: viewType,
		Format:   format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     levels,
			BaseArrayLayer: 0,
			LayerCount:     layers,
		},
	}
	handle, res := d.driver.CreateImageView(d.LogicalDevice, &createInfo)
	if err := checkResult(res, "failed to create image view"); err != nil {
		return nil, err
	}
	return &VulkanImageView{
		Handle:   handle,
		Image:    image,
		ViewType: viewType,
		Format:   format,
		Aspect:   aspect,
	}, nil
}

func (d *VulkanDevice) DestroyImageView(view *VulkanImageView) {
	core.Assert(view.IsValid(), "cannot destroy an invalid image view")
	d.driver.DestroyImageView(d.LogicalDevice, view.Handle)
	view.Handle = vk.NullImageView
	view.Image = nil
}

// TransitionImageLayout records a layout barrier on a one-shot graphics
// command buffer and waits for it to execute.
func (d *VulkanDevice) TransitionImageLayout(image vk.Image, oldLayout, newLayout vk.ImageLayout, aspect vk.ImageAspectFlags) error {
	cmd, err := AllocateAndBeginSingleUse(d, COMMAND_TYPE_GRAPHICS)
	if err != nil {
		return err
	}
	d.InsertImageMemoryBarrier(cmd, image, oldLayout, newLayout, aspect, AllCommandsStage, AllCommandsStage)
	return d.submitSingleUse(cmd, COMMAND_TYPE_GRAPHICS)
}
