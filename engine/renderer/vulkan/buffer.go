package vulkan

import (
	"strings"
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/framecore/engine/core"
)

// BufferType is a bitmask of the roles a buffer plays.
type BufferType uint8

const (
	BUFFER_TYPE_INVALID       BufferType = 0
	BUFFER_TYPE_VERTEX        BufferType = 1 << 0
	BUFFER_TYPE_INDEX         BufferType = 1 << 1
	BUFFER_TYPE_UNIFORM       BufferType = 1 << 2
	BUFFER_TYPE_STAGING       BufferType = 1 << 3
	BUFFER_TYPE_STORAGE       BufferType = 1 << 4
	BUFFER_TYPE_UNIFORM_TEXEL BufferType = 1 << 5
	BUFFER_TYPE_STORAGE_TEXEL BufferType = 1 << 6
)

func (t BufferType) String() string {
	if t == BUFFER_TYPE_INVALID {
		return "invalid"
	}
	names := []struct {
		bit  BufferType
		name string
	}{
		{BUFFER_TYPE_VERTEX, "vertex"},
		{BUFFER_TYPE_INDEX, "index"},
		{BUFFER_TYPE_UNIFORM, "uniform"},
		{BUFFER_TYPE_STAGING, "staging"},
		{BUFFER_TYPE_STORAGE, "storage"},
		{BUFFER_TYPE_UNIFORM_TEXEL, "uniform_texel"},
		{BUFFER_TYPE_STORAGE_TEXEL, "storage_texel"},
	}
	var parts []string
	for _, n := range names {
		if t&n.bit != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// BufferMemoryOption selects the memory class of uniform, storage and staging
// buffers. Vertex and index buffers are always device-local.
type BufferMemoryOption uint8

const (
	BUFFER_MEMORY_GPU_ONLY BufferMemoryOption = iota
	BUFFER_MEMORY_TRANSFER_DST
	BUFFER_MEMORY_SYSTEM_MEMORY
	BUFFER_MEMORY_DEVICE_LOCAL_HOST_VISIBLE
)

func (o BufferMemoryOption) String() string {
	switch o {
	case BUFFER_MEMORY_TRANSFER_DST:
		return "transfer_dst"
	case BUFFER_MEMORY_SYSTEM_MEMORY:
		return "system_memory"
	case BUFFER_MEMORY_DEVICE_LOCAL_HOST_VISIBLE:
		return "device_local_host_visible"
	default:
		return "gpu_only"
	}
}

// HostVisible reports whether buffers of this option can be mapped.
func (o BufferMemoryOption) HostVisible() bool {
	return o == BUFFER_MEMORY_SYSTEM_MEMORY || o == BUFFER_MEMORY_DEVICE_LOCAL_HOST_VISIBLE
}

// ParseBufferMemoryOption maps a configuration string onto an option.
func ParseBufferMemoryOption(s string) (BufferMemoryOption, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "gpu_only":
		return BUFFER_MEMORY_GPU_ONLY, nil
	case "transfer_dst":
		return BUFFER_MEMORY_TRANSFER_DST, nil
	case "system_memory":
		return BUFFER_MEMORY_SYSTEM_MEMORY, nil
	case "device_local_host_visible":
		return BUFFER_MEMORY_DEVICE_LOCAL_HOST_VISIBLE, nil
	}
	return BUFFER_MEMORY_GPU_ONLY, errors.Newf("unknown buffer memory option %q", s)
}

// Buffer is described by Size and Type before CreateBuffer binds memory to it.
type Buffer struct {
	Handle          vk.Buffer
	Size            vk.DeviceSize
	Type            BufferType
	MemoryFlags     vk.MemoryPropertyFlags
	AllocationIndex uint32
	MemoryIndex     uint32
	Mapped          unsafe.Pointer
	Label           string
}

func NewBuffer(size vk.DeviceSize, bufferType BufferType) *Buffer {
	return &Buffer{
		Size:            size,
		Type:            bufferType,
		AllocationIndex: InvalidAllocation,
		MemoryIndex:     InvalidAllocation,
	}
}

// bufferFlags derives API usage and memory-property flags from the type bitmask.
func bufferFlags(t BufferType, opt BufferMemoryOption) (vk.BufferUsageFlags, vk.MemoryPropertyFlags) {
	var usage vk.BufferUsageFlagBits
	var memory vk.MemoryPropertyFlagBits

	if t&(BUFFER_TYPE_VERTEX|BUFFER_TYPE_INDEX) != 0 {
		if t&BUFFER_TYPE_VERTEX != 0 {
			usage |= vk.BufferUsageVertexBufferBit
		}
		if t&BUFFER_TYPE_INDEX != 0 {
			usage |= vk.BufferUsageIndexBufferBit
		}
		usage |= vk.BufferUsageTransferDstBit
		memory |= vk.MemoryPropertyDeviceLocalBit
	} else {
		switch opt {
		case BUFFER_MEMORY_TRANSFER_DST:
			usage |= vk.BufferUsageTransferDstBit
			memory |= vk.MemoryPropertyDeviceLocalBit
		case BUFFER_MEMORY_SYSTEM_MEMORY:
			memory |= vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit
		case BUFFER_MEMORY_DEVICE_LOCAL_HOST_VISIBLE:
			memory |= vk.MemoryPropertyDeviceLocalBit | vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit
		default:
			memory |= vk.MemoryPropertyDeviceLocalBit
		}
	}

	if t&BUFFER_TYPE_UNIFORM != 0 {
		usage |= vk.BufferUsageUniformBufferBit
	}
	if t&BUFFER_TYPE_STORAGE != 0 {
		usage |= vk.BufferUsageStorageBufferBit
	}
	if t&BUFFER_TYPE_UNIFORM_TEXEL != 0 {
		usage |= vk.BufferUsageUniformTexelBufferBit
	}
	if t&BUFFER_TYPE_STORAGE_TEXEL != 0 {
		usage |= vk.BufferUsageStorageTexelBufferBit
	}
	if t&BUFFER_TYPE_STAGING != 0 {
		usage |= vk.BufferUsageTransferSrcBit
	}
	return vk.BufferUsageFlags(usage), vk.MemoryPropertyFlags(memory)
}

// CreateBuffer creates the buffer, allocates and binds its memory and records
// the allocation. Host-visible staging buffers stay mapped until destroyed.
func (d *VulkanDevice) CreateBuffer(buf *Buffer, opt BufferMemoryOption) error {
	core.Assert(buf.Type != BUFFER_TYPE_INVALID, "cannot create a buffer with type INVALID")
	core.Assert(buf.Size > 0, "cannot create a zero sized buffer")
	core.Assertf(buf.AllocationIndex == InvalidAllocation, "buffer already owns allocation %d", buf.AllocationIndex)

	usage, memoryFlags := bufferFlags(buf.Type, opt)
	createInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        buf.Size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	handle, res := d.driver.CreateBuffer(d.LogicalDevice, &createInfo)
	if err := checkResult(res, "failed to create %s buffer", buf.Type); err != nil {
		return err
	}

	requirements := d.driver.GetBufferMemoryRequirements(d.LogicalDevice, handle)
	memoryIndex, err := d.FindMemoryIndex(requirements.MemoryTypeBits, memoryFlags)
	if err != nil {
		d.driver.DestroyBuffer(d.LogicalDevice, handle)
		return err
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: memoryIndex,
	}
	memory, res := d.driver.AllocateMemory(d.LogicalDevice, &allocInfo)
	if err := checkResult(res, "failed to allocate %d bytes for %s buffer", requirements.Size, buf.Type); err != nil {
		d.driver.DestroyBuffer(d.LogicalDevice, handle)
		return err
	}
	if err := checkResult(d.driver.BindBufferMemory(d.LogicalDevice, handle, memory, 0), "failed to bind buffer memory"); err != nil {
		d.driver.FreeMemory(d.LogicalDevice, memory)
		d.driver.DestroyBuffer(d.LogicalDevice, handle)
		return err
	}

	var mapped unsafe.Pointer
	hostVisible := memoryFlags&vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) != 0
	if buf.Type&BUFFER_TYPE_STAGING != 0 && hostVisible {
		mapped, res = d.driver.MapMemory(d.LogicalDevice, memory, 0, buf.Size)
		if err := checkResult(res, "failed to map staging buffer"); err != nil {
			d.driver.FreeMemory(d.LogicalDevice, memory)
			d.driver.DestroyBuffer(d.LogicalDevice, handle)
			return err
		}
	}

	label := buf.Label
	if label == "" {
		label = buf.Type.String() + " buffer"
	}
	buf.Handle = handle
	buf.MemoryFlags = memoryFlags
	buf.MemoryIndex = memoryIndex
	buf.Mapped = mapped
	buf.AllocationIndex = d.allocations.add(label, memory, requirements.Size)
	core.LogDebug("created %s (%d bytes, allocation %d)", label, buf.Size, buf.AllocationIndex)
	return nil
}

// DestroyBuffer releases the buffer and resets it to the invalid sentinel.
// Destroying a buffer twice is a programming error.
func (d *VulkanDevice) DestroyBuffer(buf *Buffer) {
	memory := d.allocations.release(buf.AllocationIndex)
	if buf.Mapped != nil {
		d.driver.UnmapMemory(d.LogicalDevice, memory)
		buf.Mapped = nil
	}
	if buf.Handle != nil {
		d.driver.DestroyBuffer(d.LogicalDevice, buf.Handle)
	}
	d.driver.FreeMemory(d.LogicalDevice, memory)

	buf.Handle = vk.NullBuffer
	buf.Size = 0
	buf.Type = BUFFER_TYPE_INVALID
	buf.MemoryFlags = 0
	buf.AllocationIndex = InvalidAllocation
	buf.MemoryIndex = InvalidAllocation
}

// Upload writes data into a mapped staging buffer.
func (d *VulkanDevice) Upload(buf *Buffer, data []byte) {
	core.Assert(buf.Mapped != nil, "upload target is not host mapped")
	core.Assertf(vk.DeviceSize(len(data)) <= buf.Size, "upload of %d bytes overflows a %d byte buffer", len(data), buf.Size)
	copy(unsafe.Slice((*byte)(buf.Mapped), int(buf.Size)), data)
}

// CopyBuffer copies all of src into dst on the transfer queue and waits for it.
func (d *VulkanDevice) CopyBuffer(src, dst *Buffer) error {
	core.Assertf(dst.Size >= src.Size, "copy destination (%d bytes) is smaller than source (%d bytes)", dst.Size, src.Size)

	cmd, err := AllocateAndBeginSingleUse(d, COMMAND_TYPE_TRANSFER)
	if err != nil {
		return err
	}
	d.driver.CmdCopyBuffer(cmd.Handle, src.Handle, dst.Handle, []vk.BufferCopy{{Size: src.Size}})
	return d.submitSingleUse(cmd, COMMAND_TYPE_TRANSFER)
}

// submitSingleUse ends, flushes and frees a buffer from
// AllocateAndBeginSingleUse. The buffer goes back to its pool on every path;
// one still pending after a failed wait is freed once the device drains.
func (d *VulkanDevice) submitSingleUse(cmd *CommandBuffer, class CommandType) error {
	defer func() {
		if cmd.IsPending() {
			cmd.SignalCompletion()
		}
		freeCommandBuffers(d, []*CommandBuffer{cmd})
	}()
	if err := cmd.End(); err != nil {
		cmd.Invalidate()
		return err
	}
	return d.FlushCommandBuffer(cmd, class)
}

// FlushCommandBuffer submits an ended command buffer to the queue of the given
// class and blocks on a fresh fence until it completes.
func (d *VulkanDevice) FlushCommandBuffer(cmd *CommandBuffer, class CommandType) error {
	core.Assertf(cmd.IsExecutable(), "cannot flush a command buffer in state %s", cmd.State)

	fence, err := NewFence(d, false)
	if err != nil {
		return err
	}
	defer fence.Destroy(d)

	submit := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cmd.Handle},
	}
	if err := checkResult(d.driver.QueueSubmit(d.Queue(class), []vk.SubmitInfo{submit}, fence.Handle), "failed to flush %s command buffer", class); err != nil {
		return err
	}
	cmd.SignalSubmit()
	if !fence.Wait(d, d.fenceTimeout) {
		return errors.Newf("%s command buffer did not complete within %dns", class, d.fenceTimeout)
	}
	cmd.SignalCompletion()
	return nil
}
