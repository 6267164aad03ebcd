package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/framecore/engine/core"
)

type CommandBufferState int

const (
	COMMAND_BUFFER_STATE_NOT_ALLOCATED CommandBufferState = iota
	COMMAND_BUFFER_STATE_INITIAL
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_EXECUTABLE
	COMMAND_BUFFER_STATE_PENDING
	COMMAND_BUFFER_STATE_INVALID
)

func (s CommandBufferState) String() string {
	switch s {
	case COMMAND_BUFFER_STATE_NOT_ALLOCATED:
		return "NOT_ALLOCATED"
	case COMMAND_BUFFER_STATE_INITIAL:
		return "INITIAL"
	case COMMAND_BUFFER_STATE_RECORDING:
		return "RECORDING"
	case COMMAND_BUFFER_STATE_EXECUTABLE:
		return "EXECUTABLE"
	case COMMAND_BUFFER_STATE_PENDING:
		return "PENDING"
	default:
		return "INVALID"
	}
}

// CommandType selects the pool and queue a command buffer belongs to.
type CommandType int

const (
	COMMAND_TYPE_GRAPHICS CommandType = iota
	COMMAND_TYPE_TRANSFER
	COMMAND_TYPE_COMPUTE
)

func (t CommandType) String() string {
	switch t {
	case COMMAND_TYPE_TRANSFER:
		return "transfer"
	case COMMAND_TYPE_COMPUTE:
		return "compute"
	default:
		return "graphics"
	}
}

// CommandBuffer tracks the lifecycle of a primary command buffer. Every state
// change goes through a method so an illegal transition is caught as soon as
// it happens.
type CommandBuffer struct {
	Handle vk.CommandBuffer
	Level  vk.CommandBufferLevel
	Type   CommandType
	State  CommandBufferState

	device *VulkanDevice
}

// Allocate moves the buffer from NOT_ALLOCATED to INITIAL.
func (cb *CommandBuffer) Allocate(context *VulkanContext, class CommandType) error {
	return allocateCommandBuffers(context.Device, []*CommandBuffer{cb}, class)
}

// AllocateMany allocates every buffer in one call. All of them must be NOT_ALLOCATED.
func AllocateMany(context *VulkanContext, buffers []*CommandBuffer, class CommandType) error {
	return allocateCommandBuffers(context.Device, buffers, class)
}

func allocateCommandBuffers(device *VulkanDevice, buffers []*CommandBuffer, class CommandType) error {
	for _, cb := range buffers {
		core.Assert(cb.State == COMMAND_BUFFER_STATE_NOT_ALLOCATED, "cannot allocate a command buffer without freeing the existing one")
	}
	if len(buffers) == 0 {
		return nil
	}

	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        device.CommandPool(class),
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: uint32(len(buffers)),
	}
	handles, res := device.driver.AllocateCommandBuffers(device.LogicalDevice, &allocateInfo)
	if err := checkResult(res, "failed to allocate %d %s command buffers", len(buffers), class); err != nil {
		return err
	}
	for i, cb := range buffers {
		cb.Handle = handles[i]
		cb.Level = vk.CommandBufferLevelPrimary
		cb.Type = class
		cb.State = COMMAND_BUFFER_STATE_INITIAL
		cb.device = device
	}
	return nil
}

func assertFreeable(cb *CommandBuffer) {
	core.Assertf(
		cb.State != COMMAND_BUFFER_STATE_RECORDING &&
			cb.State != COMMAND_BUFFER_STATE_PENDING &&
			cb.State != COMMAND_BUFFER_STATE_NOT_ALLOCATED,
		"cannot free a busy or unallocated command buffer (state %s)", cb.State)
}

// Free waits for the device to go idle and releases the buffer to its pool.
func (cb *CommandBuffer) Free(context *VulkanContext) {
	FreeMany(context, []*CommandBuffer{cb})
}

// FreeMany releases buffers that share one submission class.
func FreeMany(context *VulkanContext, buffers []*CommandBuffer) {
	freeCommandBuffers(context.Device, buffers)
}

func freeCommandBuffers(device *VulkanDevice, buffers []*CommandBuffer) {
	if len(buffers) == 0 {
		return
	}
	class := buffers[0].Type
	handles := make([]vk.CommandBuffer, len(buffers))
	for i, cb := range buffers {
		assertFreeable(cb)
		core.Assertf(cb.Type == class, "cannot free %s and %s command buffers together", class, cb.Type)
		handles[i] = cb.Handle
	}

	if res := device.driver.DeviceWaitIdle(device.LogicalDevice); res != vk.Success {
		core.LogWarn("vkDeviceWaitIdle before freeing command buffers returned %s", VulkanResultString(res, false))
	}
	device.driver.FreeCommandBuffers(device.LogicalDevice, device.CommandPool(class), handles)
	for _, cb := range buffers {
		cb.Handle = nil
		cb.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
		cb.device = nil
	}
}

func (cb *CommandBuffer) Begin() error {
	return cb.begin(0)
}

// BeginSingleUse begins a buffer that is submitted exactly once.
func (cb *CommandBuffer) BeginSingleUse() error {
	return cb.begin(vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit))
}

func (cb *CommandBuffer) begin(flags vk.CommandBufferUsageFlags) error {
	core.Assertf(
		cb.State != COMMAND_BUFFER_STATE_RECORDING &&
			cb.State != COMMAND_BUFFER_STATE_PENDING &&
			cb.State != COMMAND_BUFFER_STATE_NOT_ALLOCATED,
		"cannot begin recording a command buffer in state %s", cb.State)

	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: flags,
	}
	if err := checkResult(cb.device.driver.BeginCommandBuffer(cb.Handle, &beginInfo), "failed to begin command buffer"); err != nil {
		return err
	}
	cb.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

func (cb *CommandBuffer) End() error {
	core.Assertf(cb.State == COMMAND_BUFFER_STATE_RECORDING, "cannot end a command buffer in state %s", cb.State)
	if err := checkResult(cb.device.driver.EndCommandBuffer(cb.Handle), "failed to end command buffer"); err != nil {
		return err
	}
	cb.State = COMMAND_BUFFER_STATE_EXECUTABLE
	return nil
}

func (cb *CommandBuffer) SignalSubmit() {
	core.Assertf(cb.State == COMMAND_BUFFER_STATE_EXECUTABLE, "cannot submit a command buffer in state %s", cb.State)
	cb.State = COMMAND_BUFFER_STATE_PENDING
}

func (cb *CommandBuffer) SignalCompletion() {
	core.Assertf(cb.State == COMMAND_BUFFER_STATE_PENDING, "cannot complete a command buffer in state %s", cb.State)
	cb.State = COMMAND_BUFFER_STATE_EXECUTABLE
}

// Invalidate marks recorded contents as unusable. Reset is the only way back.
func (cb *CommandBuffer) Invalidate() {
	core.Assertf(
		cb.State != COMMAND_BUFFER_STATE_PENDING && cb.State != COMMAND_BUFFER_STATE_NOT_ALLOCATED,
		"cannot invalidate a command buffer in state %s", cb.State)
	cb.State = COMMAND_BUFFER_STATE_INVALID
}

func (cb *CommandBuffer) Reset() error {
	core.Assert(cb.State != COMMAND_BUFFER_STATE_PENDING, "cannot reset a pending command buffer")
	core.Assert(cb.State != COMMAND_BUFFER_STATE_NOT_ALLOCATED, "cannot reset an unallocated command buffer")
	if err := checkResult(cb.device.driver.ResetCommandBuffer(cb.Handle), "failed to reset command buffer"); err != nil {
		return err
	}
	cb.State = COMMAND_BUFFER_STATE_INITIAL
	return nil
}

func (cb *CommandBuffer) IsExecutable() bool {
	return cb.State == COMMAND_BUFFER_STATE_EXECUTABLE
}

func (cb *CommandBuffer) IsPending() bool {
	return cb.State == COMMAND_BUFFER_STATE_PENDING
}

func (cb *CommandBuffer) CanRecord() bool {
	return cb.State == COMMAND_BUFFER_STATE_RECORDING
}

/**
 * Allocates a transient buffer of the given class and begins recording to it.
 * Pair with VulkanDevice.FlushCommandBuffer and Free.
 */
func AllocateAndBeginSingleUse(device *VulkanDevice, class CommandType) (*CommandBuffer, error) {
	cb := &CommandBuffer{}
	if err := allocateCommandBuffers(device, []*CommandBuffer{cb}, class); err != nil {
		return nil, err
	}
	if err := cb.BeginSingleUse(); err != nil {
		freeCommandBuffers(device, []*CommandBuffer{cb})
		return nil, err
	}
	return cb, nil
}

// Recording helpers. Each one asserts the buffer is recording.

func (cb *CommandBuffer) SetViewportAndScissor(extent vk.Extent2D) {
	core.Assert(cb.CanRecord(), "command buffer is not recording")
	cb.device.driver.CmdSetViewport(cb.Handle, FullViewport(extent))
	cb.device.driver.CmdSetScissor(cb.Handle, vk.Rect2D{Extent: extent})
}

func (cb *CommandBuffer) BindVertexBuffer(buf *Buffer) {
	core.Assert(cb.CanRecord(), "command buffer is not recording")
	core.Assertf(buf.Type&BUFFER_TYPE_VERTEX != 0, "cannot bind a %s buffer as vertex input", buf.Type)
	cb.device.driver.CmdBindVertexBuffers(cb.Handle, []vk.Buffer{buf.Handle}, []vk.DeviceSize{0})
}

func (cb *CommandBuffer) BindIndexBuffer(buf *Buffer, indexType vk.IndexType) {
	core.Assert(cb.CanRecord(), "command buffer is not recording")
	core.Assertf(buf.Type&BUFFER_TYPE_INDEX != 0, "cannot bind a %s buffer as index input", buf.Type)
	cb.device.driver.CmdBindIndexBuffer(cb.Handle, buf.Handle, 0, indexType)
}

func (cb *CommandBuffer) DrawIndexed(indexCount uint32) {
	core.Assert(cb.CanRecord(), "command buffer is not recording")
	cb.device.driver.CmdDrawIndexed(cb.Handle, indexCount, 1, 0, 0, 0)
}

func (cb *CommandBuffer) Dispatch(x, y, z uint32) {
	core.Assert(cb.CanRecord(), "command buffer is not recording")
	cb.device.driver.CmdDispatch(cb.Handle, x, y, z)
}
