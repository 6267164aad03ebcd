package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/framecore/engine/core"
)

type RendererConfig struct {
	VSync              bool       `toml:"vsync"`
	Validation         bool       `toml:"validation"`
	RequireDiscreteGPU bool       `toml:"require_discrete_gpu"`
	FenceTimeoutNs     uint64     `toml:"fence_timeout_ns"`
	MemoryPreference   string     `toml:"memory_preference"`
	ClearColor         [4]float32 `toml:"clear_color"`
}

// SurfaceProvider is the windowing side of the renderer.
type SurfaceProvider interface {
	RequiredInstanceExtensions() []string
	CreateSurface(instance vk.Instance) (vk.Surface, error)
	FramebufferSize() (uint32, uint32)
}

// GraphicsRecorder records draw commands inside the frame's render pass.
type GraphicsRecorder func(cmd *CommandBuffer) error

// ComputeRecorder records dispatches that write the acquired swapchain image.
type ComputeRecorder func(cmd *CommandBuffer, image SwapchainImage, index uint32) error

/**
 * @brief Drives frames over a VulkanContext: acquire, record, submit and
 * present, plus swapchain recovery after a resize.
 */
type Renderer struct {
	cfg          RendererConfig
	driver       Driver
	context      *VulkanContext
	memoryOption BufferMemoryOption
	prepared     bool
}

func NewRenderer(driver Driver, cfg RendererConfig) (*Renderer, error) {
	opt, err := ParseBufferMemoryOption(cfg.MemoryPreference)
	if err != nil {
		return nil, err
	}
	if cfg.FenceTimeoutNs == 0 {
		cfg.FenceTimeoutNs = DefaultFenceTimeout
	}
	return &Renderer{
		cfg:          cfg,
		driver:       driver,
		memoryOption: opt,
		context:      &VulkanContext{Driver: driver},
	}, nil
}

func (r *Renderer) Context() *VulkanContext { return r.context }

func (r *Renderer) Device() *VulkanDevice { return r.context.Device }

// MemoryOption is the configured memory class for uniform, storage and
// staging buffers.
func (r *Renderer) MemoryOption() BufferMemoryOption { return r.memoryOption }

func (r *Renderer) Prepared() bool { return r.prepared }

func (r *Renderer) FramebufferSize() (uint32, uint32) {
	return r.context.FramebufferWidth, r.context.FramebufferHeight
}

// Init brings up the instance, surface, device and every swapchain-dependent
// object. On error whatever was created is torn down again.
func (r *Renderer) Init(appName string, surface SurfaceProvider) error {
	ctx := r.context

	instance, err := NewInstance(r.driver, appName, surface.RequiredInstanceExtensions(), r.cfg.Validation)
	if err != nil {
		return errors.Wrap(err, "renderer init")
	}
	ctx.Instance = instance

	ctx.Surface, err = surface.CreateSurface(instance.Handle)
	if err != nil {
		r.Cleanup()
		return errors.Wrap(err, "failed to create window surface")
	}
	core.LogDebug("Vulkan surface created.")

	ctx.FramebufferWidth, ctx.FramebufferHeight = surface.FramebufferSize()

	ctx.Device, err = NewDevice(r.driver, instance.Handle, ctx.Surface, DeviceConfig{
		RequireDiscreteGPU: r.cfg.RequireDiscreteGPU,
		FenceTimeoutNs:     r.cfg.FenceTimeoutNs,
	})
	if err != nil {
		r.Cleanup()
		return errors.Wrap(err, "renderer init")
	}

	ctx.Swapchain = NewSwapchain(ctx.Device, ctx.Surface)
	if err := ctx.Swapchain.Create(ctx.FramebufferWidth, ctx.FramebufferHeight, r.cfg.VSync); err != nil {
		r.Cleanup()
		return errors.Wrap(err, "renderer init")
	}

	ctx.RenderPass, err = NewRenderPass(ctx.Device, ctx.Swapchain.ImageFormat.Format, r.cfg.ClearColor)
	if err != nil {
		r.Cleanup()
		return errors.Wrap(err, "renderer init")
	}

	if err := r.createSwapchainResources(); err != nil {
		r.Cleanup()
		return errors.Wrap(err, "renderer init")
	}

	r.prepared = true
	core.LogInfo("Vulkan renderer initialized successfully.")
	return nil
}

// createSwapchainResources builds everything sized by the swapchain.
func (r *Renderer) createSwapchainResources() error {
	ctx := r.context
	if err := ctx.createDepthImages(); err != nil {
		return err
	}
	if err := ctx.createFramebuffers(); err != nil {
		return err
	}
	if err := ctx.allocateCommandBuffers(); err != nil {
		return err
	}
	return ctx.createSyncObjects()
}

func (r *Renderer) Cleanup() {
	ctx := r.context
	r.prepared = false

	if ctx.Device != nil {
		if err := ctx.Device.WaitIdle(); err != nil {
			core.LogWarn("cleanup: %v", err)
		}
		ctx.destroySyncObjects()
		r.ResetCommandBuffersForDestruction()
		ctx.freeCommandBuffers()
		ctx.destroyFramebuffers()
		ctx.destroyDepthImages()
		if ctx.RenderPass != nil {
			ctx.RenderPass.Destroy()
			ctx.RenderPass = nil
		}
		if ctx.Swapchain != nil {
			ctx.Swapchain.Destroy()
			ctx.Swapchain = nil
		}
		ctx.Device.Destroy()
		ctx.Device = nil
	}
	if ctx.Instance != nil {
		if ctx.Surface != vk.NullSurface {
			r.driver.DestroySurface(ctx.Instance.Handle, ctx.Surface)
			ctx.Surface = vk.NullSurface
		}
		ctx.Instance.Destroy()
		ctx.Instance = nil
	}
	core.LogInfo("Vulkan renderer shut down.")
}

// ResetCommandBuffersForDestruction settles every buffer into a freeable
// state. The device must be idle.
func (r *Renderer) ResetCommandBuffersForDestruction() {
	settle := func(cb *CommandBuffer) {
		if cb == nil {
			return
		}
		switch cb.State {
		case COMMAND_BUFFER_STATE_PENDING:
			cb.SignalCompletion()
		case COMMAND_BUFFER_STATE_RECORDING:
			cb.Invalidate()
		}
	}
	for _, cb := range r.context.CommandBuffers {
		settle(cb)
	}
	settle(r.context.ComputeCommandBuffer)
}

// beginFrame acquires the next image for the current slot and waits until the
// slot's previous submission has retired.
func (r *Renderer) beginFrame() Status {
	if !r.prepared {
		return StatusNotPrepared
	}
	ctx := r.context
	sync := &ctx.SyncObjects[ctx.Slot()]

	if !sync.RenderCompleteFence.Wait(ctx.Device, ctx.Device.FenceTimeout()) {
		core.LogError("in-flight fence wait failed for slot %d", ctx.Slot())
		return StatusFatal
	}

	index, status := ctx.Swapchain.AcquireNextImage(sync.PresentCompleteSemaphore)
	if status == StatusWindowResized {
		r.prepared = false
		return status
	}
	if status != StatusOK {
		return status
	}
	ctx.ImageIndex = index

	// Only reset once a submission is certain to follow.
	if err := sync.RenderCompleteFence.Reset(ctx.Device); err != nil {
		return StatusFatal
	}
	return StatusOK
}

func reclaim(cb *CommandBuffer) error {
	if cb.IsPending() {
		cb.SignalCompletion()
	}
	if err := cb.Reset(); err != nil {
		return err
	}
	return cb.Begin()
}

// RecordGraphicsCommands records fn into the slot's command buffer inside the
// render pass targeting the acquired image.
func (r *Renderer) RecordGraphicsCommands(fn GraphicsRecorder) Status {
	if status := r.beginFrame(); status != StatusOK {
		return status
	}
	ctx := r.context
	cmd := ctx.CommandBuffers[ctx.Slot()]
	if err := reclaim(cmd); err != nil {
		return StatusFatal
	}

	ctx.RenderPass.Begin(cmd, ctx.Framebuffers[ctx.ImageIndex], ctx.Swapchain.Extent)
	if err := fn(cmd); err != nil {
		core.LogError("graphics recording failed: %v", err)
		cmd.Invalidate()
		return StatusFatal
	}
	ctx.RenderPass.End(cmd)
	if err := cmd.End(); err != nil {
		return StatusFatal
	}
	return StatusOK
}

// RecordComputeCommands records fn into the shared compute command buffer.
// No render pass is active.
func (r *Renderer) RecordComputeCommands(fn ComputeRecorder) Status {
	if status := r.beginFrame(); status != StatusOK {
		return status
	}
	ctx := r.context
	cmd := ctx.ComputeCommandBuffer
	if err := reclaim(cmd); err != nil {
		return StatusFatal
	}

	if err := fn(cmd, ctx.Swapchain.Images[ctx.ImageIndex], ctx.ImageIndex); err != nil {
		core.LogError("compute recording failed: %v", err)
		cmd.Invalidate()
		return StatusFatal
	}
	if err := cmd.End(); err != nil {
		return StatusFatal
	}
	return StatusOK
}

// SubmitFrame submits the slot's graphics buffer and presents the image.
func (r *Renderer) SubmitFrame() Status {
	if !r.prepared {
		return StatusNotPrepared
	}
	ctx := r.context
	sync := &ctx.SyncObjects[ctx.Slot()]
	cmd := ctx.CommandBuffers[ctx.Slot()]
	if cmd.IsPending() {
		cmd.SignalCompletion()
	}

	submit := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{sync.PresentCompleteSemaphore},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cmd.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{sync.RenderCompleteSemaphore},
	}
	res := r.driver.QueueSubmit(ctx.Device.GraphicsQueue, []vk.SubmitInfo{submit}, sync.RenderCompleteFence.Handle)
	if err := checkResult(res, "failed to submit frame"); err != nil {
		return StatusFatal
	}
	cmd.SignalSubmit()

	return r.present(sync.RenderCompleteSemaphore)
}

// SubmitCompute submits the compute buffer and blocks until the compute queue
// drains. The compute semaphore is signalled for the following present.
func (r *Renderer) SubmitCompute() Status {
	if !r.prepared {
		return StatusNotPrepared
	}
	ctx := r.context
	sync := &ctx.SyncObjects[ctx.Slot()]
	cmd := ctx.ComputeCommandBuffer

	submit := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{sync.PresentCompleteSemaphore},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cmd.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{ctx.ComputeSemaphore},
	}
	res := r.driver.QueueSubmit(ctx.Device.ComputeQueue, []vk.SubmitInfo{submit}, sync.RenderCompleteFence.Handle)
	if err := checkResult(res, "failed to submit compute work"); err != nil {
		return StatusFatal
	}
	cmd.SignalSubmit()

	if err := checkResult(r.driver.QueueWaitIdle(ctx.Device.ComputeQueue), "compute queue wait failed"); err != nil {
		return StatusFatal
	}
	return StatusOK
}

// PresentFrame presents the acquired image once the compute work signals.
func (r *Renderer) PresentFrame() Status {
	if !r.prepared {
		return StatusNotPrepared
	}
	return r.present(r.context.ComputeSemaphore)
}

// TransitionAndPresentFrame moves the computed image to PRESENT_SRC, presents
// it and hands it back in GENERAL layout for the next dispatch.
func (r *Renderer) TransitionAndPresentFrame() Status {
	if !r.prepared {
		return StatusNotPrepared
	}
	ctx := r.context
	image := ctx.Swapchain.Images[ctx.ImageIndex].Image.Handle
	color := vk.ImageAspectFlags(vk.ImageAspectColorBit)

	if err := ctx.Device.TransitionImageLayout(image, vk.ImageLayoutGeneral, vk.ImageLayoutPresentSrc, color); err != nil {
		return StatusFatal
	}
	status := r.present(ctx.ComputeSemaphore)
	if status != StatusOK {
		return status
	}
	if err := ctx.Device.TransitionImageLayout(image, vk.ImageLayoutPresentSrc, vk.ImageLayoutGeneral, color); err != nil {
		return StatusFatal
	}
	return StatusOK
}

func (r *Renderer) present(wait vk.Semaphore) Status {
	status := r.context.Swapchain.Present(wait, r.context.ImageIndex)
	if status == StatusWindowResized {
		r.prepared = false
	}
	return status
}

// OnResize rebuilds the swapchain and everything that depends on it for the
// new framebuffer size, then re-arms the renderer.
func (r *Renderer) OnResize(width, height uint32) error {
	ctx := r.context
	r.prepared = false
	ctx.FramebufferWidth, ctx.FramebufferHeight = width, height
	core.LogDebug("Renderer resized: %dx%d", width, height)

	if err := ctx.Device.WaitIdle(); err != nil {
		return errors.Wrap(err, "resize")
	}
	if err := ctx.Swapchain.Create(width, height, r.cfg.VSync); err != nil {
		return errors.Wrap(err, "resize: swapchain")
	}

	ctx.destroyDepthImages()
	if err := ctx.createDepthImages(); err != nil {
		return errors.Wrap(err, "resize: depth images")
	}

	ctx.destroyFramebuffers()
	if err := ctx.createFramebuffers(); err != nil {
		return errors.Wrap(err, "resize: framebuffers")
	}

	r.ResetCommandBuffersForDestruction()
	ctx.freeCommandBuffers()
	if err := ctx.allocateCommandBuffers(); err != nil {
		return errors.Wrap(err, "resize: command buffers")
	}

	ctx.destroySyncObjects()
	if err := ctx.createSyncObjects(); err != nil {
		return errors.Wrap(err, "resize: sync objects")
	}

	r.prepared = true
	return nil
}
