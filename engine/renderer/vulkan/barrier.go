package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/framecore/engine/core"
)

// AllCommandsStage is the default source and destination stage of a layout barrier.
const AllCommandsStage = vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit)

func srcAccessFor(layout vk.ImageLayout) (vk.AccessFlagBits, bool) {
	switch layout {
	case vk.ImageLayoutUndefined:
		return 0, true
	case vk.ImageLayoutPreinitialized:
		return vk.AccessHostWriteBit, true
	case vk.ImageLayoutColorAttachmentOptimal:
		return vk.AccessColorAttachmentWriteBit, true
	case vk.ImageLayoutDepthStencilAttachmentOptimal:
		return vk.AccessDepthStencilAttachmentWriteBit, true
	case vk.ImageLayoutTransferSrcOptimal:
		return vk.AccessTransferReadBit, true
	case vk.ImageLayoutTransferDstOptimal:
		return vk.AccessTransferWriteBit, true
	case vk.ImageLayoutShaderReadOnlyOptimal:
		return vk.AccessShaderReadBit, true
	case vk.ImageLayoutGeneral:
		return vk.AccessShaderReadBit | vk.AccessShaderWriteBit, true
	case vk.ImageLayoutPresentSrc:
		return vk.AccessMemoryReadBit, true
	}
	return 0, false
}

// layoutAccessMasks returns the access masks for a transition between two
// layouts. ok is false when either layout has no entry.
func layoutAccessMasks(oldLayout, newLayout vk.ImageLayout) (src, dst vk.AccessFlags, ok bool) {
	srcBits, ok := srcAccessFor(oldLayout)
	if !ok {
		return 0, 0, false
	}

	var dstBits vk.AccessFlagBits
	switch newLayout {
	case vk.ImageLayoutTransferDstOptimal:
		dstBits = vk.AccessTransferWriteBit
	case vk.ImageLayoutTransferSrcOptimal:
		dstBits = vk.AccessTransferReadBit
	case vk.ImageLayoutColorAttachmentOptimal:
		dstBits = vk.AccessColorAttachmentWriteBit
	case vk.ImageLayoutDepthStencilAttachmentOptimal:
		dstBits |= vk.AccessDepthStencilAttachmentWriteBit
	case vk.ImageLayoutShaderReadOnlyOptimal:
		if srcBits == 0 {
			srcBits = vk.AccessHostWriteBit | vk.AccessTransferWriteBit
		}
		dstBits = vk.AccessShaderReadBit
	case vk.ImageLayoutGeneral:
		dstBits = vk.AccessShaderReadBit | vk.AccessShaderWriteBit
	case vk.ImageLayoutPresentSrc:
		dstBits = vk.AccessMemoryReadBit
	default:
		return 0, 0, false
	}
	return vk.AccessFlags(srcBits), vk.AccessFlags(dstBits), true
}

// InsertImageMemoryBarrier records a layout transition of the whole image.
func (d *VulkanDevice) InsertImageMemoryBarrier(cmd *CommandBuffer, image vk.Image, oldLayout, newLayout vk.ImageLayout, aspect vk.ImageAspectFlags, srcStage, dstStage vk.PipelineStageFlags) {
	core.Assert(cmd.CanRecord(), "image barriers need a recording command buffer")
	src, dst, ok := layoutAccessMasks(oldLayout, newLayout)
	core.Assertf(ok, "unsupported layout transition %d -> %d", oldLayout, newLayout)

	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       src,
		DstAccessMask:       dst,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: aspect,
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	d.driver.CmdPipelineBarrier(cmd.Handle, srcStage, dstStage, []vk.ImageMemoryBarrier{barrier})
}
