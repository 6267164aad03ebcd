package vulkan

import (
	"sync"
	"unsafe"

	vk "github.com/goki/vulkan"
)

// Every fake handle stays reachable for the life of the test binary, so no two
// handles ever share an address.
var (
	handleMu    sync.Mutex
	handleArena []*uint64
)

func fakeHandle() unsafe.Pointer {
	handleMu.Lock()
	defer handleMu.Unlock()
	h := new(uint64)
	*h = uint64(len(handleArena) + 1)
	handleArena = append(handleArena, h)
	return unsafe.Pointer(h)
}

// fakeDriver records every call and hands out unique fake handles. The
// defaults describe one discrete GPU with a single universal queue family.
type fakeDriver struct {
	calls []string

	deviceType    vk.PhysicalDeviceType
	queueFamilies []vk.QueueFamilyProperties
	presentFamily func(family uint32) bool
	extensions    []string
	layers        []string
	caps          vk.SurfaceCapabilities
	formats       []vk.SurfaceFormat
	presentModes  []vk.PresentMode
	memory        vk.PhysicalDeviceMemoryProperties
	formatProps   map[vk.Format]vk.FormatProperties

	// Results handed out in order; Success once drained.
	acquireResults []vk.Result
	presentResults []vk.Result
	submitResults  []vk.Result
	// waitResult overrides WaitForFences when set to anything but Success.
	waitResult vk.Result

	lastSwapchainInfo vk.SwapchainCreateInfo
	liveViews         map[vk.ImageView]bool
	destroyedViews    map[vk.ImageView]int
	swapchainImages   map[vk.Swapchain][]vk.Image
	mapped            map[vk.DeviceMemory][]byte
	liveMemory        map[vk.DeviceMemory]vk.DeviceSize
	liveFences        map[vk.Fence]bool
	signaled          map[vk.Fence]bool

	submits    []vk.SubmitInfo
	submitted  map[vk.Queue]int
	presents   int
	barriers   []vk.ImageMemoryBarrier
	copies     []vk.BufferCopy
	draws      []uint32
	dispatches [][3]uint32
	writes     []vk.WriteDescriptorSet
	nextImage  uint32
}

func newFakeDriver() *fakeDriver {
	f := &fakeDriver{
		deviceType: vk.PhysicalDeviceTypeDiscreteGpu,
		queueFamilies: []vk.QueueFamilyProperties{{
			QueueFlags: vk.QueueFlags(vk.QueueGraphicsBit | vk.QueueComputeBit | vk.QueueTransferBit),
			QueueCount: 1,
		}},
		presentFamily: func(uint32) bool { return true },
		extensions:    []string{vk.KhrSwapchainExtensionName},
		layers:        []string{validationLayerName},
		caps: vk.SurfaceCapabilities{
			MinImageCount:       2,
			MaxImageCount:       3,
			CurrentExtent:       vk.Extent2D{Width: 640, Height: 480},
			MinImageExtent:      vk.Extent2D{Width: 1, Height: 1},
			MaxImageExtent:      vk.Extent2D{Width: 4096, Height: 4096},
			MaxImageArrayLayers: 1,
			CurrentTransform:    vk.SurfaceTransformIdentityBit,
			SupportedUsageFlags: vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageStorageBit | vk.ImageUsageTransferDstBit),
		},
		formats:      []vk.SurfaceFormat{{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}},
		presentModes: []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox},
		formatProps: map[vk.Format]vk.FormatProperties{
			vk.FormatD32Sfloat: {OptimalTilingFeatures: vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)},
		},
		waitResult:      vk.Success,
		liveViews:       map[vk.ImageView]bool{},
		destroyedViews:  map[vk.ImageView]int{},
		swapchainImages: map[vk.Swapchain][]vk.Image{},
		mapped:          map[vk.DeviceMemory][]byte{},
		liveMemory:      map[vk.DeviceMemory]vk.DeviceSize{},
		liveFences:      map[vk.Fence]bool{},
		signaled:        map[vk.Fence]bool{},
		submitted:       map[vk.Queue]int{},
	}
	f.memory.MemoryTypeCount = 2
	f.memory.MemoryTypes[0] = vk.MemoryType{PropertyFlags: vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit), HeapIndex: 0}
	f.memory.MemoryTypes[1] = vk.MemoryType{
		PropertyFlags: vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit),
		HeapIndex:     1,
	}
	f.memory.MemoryHeapCount = 2
	f.memory.MemoryHeaps[0] = vk.MemoryHeap{Size: 8 << 30, Flags: vk.MemoryHeapFlags(vk.MemoryHeapDeviceLocalBit)}
	f.memory.MemoryHeaps[1] = vk.MemoryHeap{Size: 16 << 30}
	return f
}

func (f *fakeDriver) record(name string) { f.calls = append(f.calls, name) }

func (f *fakeDriver) count(name string) int {
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

// forget drops recorded calls and command traffic, keeping live objects.
func (f *fakeDriver) forget() {
	f.calls = nil
	f.submits = nil
	f.submitted = map[vk.Queue]int{}
	f.presents = 0
	f.barriers = nil
	f.copies = nil
	f.draws = nil
	f.dispatches = nil
	f.writes = nil
}

func pop(results *[]vk.Result) vk.Result {
	if len(*results) == 0 {
		return vk.Success
	}
	r := (*results)[0]
	*results = (*results)[1:]
	return r
}

// Instance

func (f *fakeDriver) CreateInstance(info *vk.InstanceCreateInfo) (vk.Instance, vk.Result) {
	f.record("CreateInstance")
	return vk.Instance(fakeHandle()), vk.Success
}

func (f *fakeDriver) DestroyInstance(vk.Instance) { f.record("DestroyInstance") }

func (f *fakeDriver) EnumerateInstanceLayers() ([]string, vk.Result) {
	f.record("EnumerateInstanceLayers")
	return f.layers, vk.Success
}

func (f *fakeDriver) CreateDebugReportCallback(vk.Instance, *vk.DebugReportCallbackCreateInfo) (vk.DebugReportCallback, vk.Result) {
	f.record("CreateDebugReportCallback")
	return vk.DebugReportCallback(fakeHandle()), vk.Success
}

func (f *fakeDriver) DestroyDebugReportCallback(vk.Instance, vk.DebugReportCallback) {
	f.record("DestroyDebugReportCallback")
}

func (f *fakeDriver) DestroySurface(vk.Instance, vk.Surface) { f.record("DestroySurface") }

// Physical device

func (f *fakeDriver) EnumeratePhysicalDevices(vk.Instance) ([]vk.PhysicalDevice, vk.Result) {
	f.record("EnumeratePhysicalDevices")
	return []vk.PhysicalDevice{vk.PhysicalDevice(fakeHandle())}, vk.Success
}

func (f *fakeDriver) GetPhysicalDeviceProperties(vk.PhysicalDevice) vk.PhysicalDeviceProperties {
	var props vk.PhysicalDeviceProperties
	props.DeviceType = f.deviceType
	props.ApiVersion = uint32(vk.MakeVersion(1, 1, 0))
	copy(props.DeviceName[:], "Fake GPU\x00")
	return props
}

func (f *fakeDriver) GetPhysicalDeviceFeatures(vk.PhysicalDevice) vk.PhysicalDeviceFeatures {
	return vk.PhysicalDeviceFeatures{}
}

func (f *fakeDriver) GetPhysicalDeviceMemoryProperties(vk.PhysicalDevice) vk.PhysicalDeviceMemoryProperties {
	return f.memory
}

func (f *fakeDriver) GetPhysicalDeviceQueueFamilyProperties(vk.PhysicalDevice) []vk.QueueFamilyProperties {
	return f.queueFamilies
}

func (f *fakeDriver) GetPhysicalDeviceFormatProperties(_ vk.PhysicalDevice, format vk.Format) vk.FormatProperties {
	return f.formatProps[format]
}

func (f *fakeDriver) GetPhysicalDeviceSurfaceSupport(_ vk.PhysicalDevice, family uint32, _ vk.Surface) (bool, vk.Result) {
	return f.presentFamily(family), vk.Success
}

func (f *fakeDriver) GetPhysicalDeviceSurfaceCapabilities(vk.PhysicalDevice, vk.Surface) (vk.SurfaceCapabilities, vk.Result) {
	return f.caps, vk.Success
}

func (f *fakeDriver) GetPhysicalDeviceSurfaceFormats(vk.PhysicalDevice, vk.Surface) ([]vk.SurfaceFormat, vk.Result) {
	return f.formats, vk.Success
}

func (f *fakeDriver) GetPhysicalDeviceSurfacePresentModes(vk.PhysicalDevice, vk.Surface) ([]vk.PresentMode, vk.Result) {
	return f.presentModes, vk.Success
}

func (f *fakeDriver) EnumerateDeviceExtensions(vk.PhysicalDevice) ([]string, vk.Result) {
	return f.extensions, vk.Success
}

// Logical device and queues

func (f *fakeDriver) CreateDevice(vk.PhysicalDevice, *vk.DeviceCreateInfo) (vk.Device, vk.Result) {
	f.record("CreateDevice")
	return vk.Device(fakeHandle()), vk.Success
}

func (f *fakeDriver) DestroyDevice(vk.Device) { f.record("DestroyDevice") }

func (f *fakeDriver) GetDeviceQueue(_ vk.Device, family, _ uint32) vk.Queue {
	return vk.Queue(fakeHandle())
}

func (f *fakeDriver) DeviceWaitIdle(vk.Device) vk.Result {
	f.record("DeviceWaitIdle")
	return vk.Success
}

func (f *fakeDriver) QueueSubmit(queue vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) vk.Result {
	f.record("QueueSubmit")
	if res := pop(&f.submitResults); res != vk.Success {
		return res
	}
	f.submits = append(f.submits, submits...)
	f.submitted[queue]++
	if fence != nil {
		f.signaled[fence] = true
	}
	return vk.Success
}

func (f *fakeDriver) QueueWaitIdle(vk.Queue) vk.Result {
	f.record("QueueWaitIdle")
	return vk.Success
}

func (f *fakeDriver) QueuePresent(vk.Queue, *vk.PresentInfo) vk.Result {
	f.record("QueuePresent")
	f.presents++
	return pop(&f.presentResults)
}

// Command pools and buffers

func (f *fakeDriver) CreateCommandPool(vk.Device, *vk.CommandPoolCreateInfo) (vk.CommandPool, vk.Result) {
	f.record("CreateCommandPool")
	return vk.CommandPool(fakeHandle()), vk.Success
}

func (f *fakeDriver) DestroyCommandPool(vk.Device, vk.CommandPool) { f.record("DestroyCommandPool") }

func (f *fakeDriver) AllocateCommandBuffers(_ vk.Device, info *vk.CommandBufferAllocateInfo) ([]vk.CommandBuffer, vk.Result) {
	f.record("AllocateCommandBuffers")
	out := make([]vk.CommandBuffer, info.CommandBufferCount)
	for i := range out {
		out[i] = vk.CommandBuffer(fakeHandle())
	}
	return out, vk.Success
}

func (f *fakeDriver) FreeCommandBuffers(vk.Device, vk.CommandPool, []vk.CommandBuffer) {
	f.record("FreeCommandBuffers")
}

func (f *fakeDriver) BeginCommandBuffer(vk.CommandBuffer, *vk.CommandBufferBeginInfo) vk.Result {
	f.record("BeginCommandBuffer")
	return vk.Success
}

func (f *fakeDriver) EndCommandBuffer(vk.CommandBuffer) vk.Result {
	f.record("EndCommandBuffer")
	return vk.Success
}

func (f *fakeDriver) ResetCommandBuffer(vk.CommandBuffer) vk.Result {
	f.record("ResetCommandBuffer")
	return vk.Success
}

// Synchronization

func (f *fakeDriver) CreateFence(_ vk.Device, signaled bool) (vk.Fence, vk.Result) {
	f.record("CreateFence")
	fence := vk.Fence(fakeHandle())
	f.liveFences[fence] = true
	f.signaled[fence] = signaled
	return fence, vk.Success
}

func (f *fakeDriver) DestroyFence(_ vk.Device, fence vk.Fence) {
	f.record("DestroyFence")
	delete(f.liveFences, fence)
	delete(f.signaled, fence)
}

// WaitForFences times out on any fence nothing has signaled, the way a real
// device would when no submission carries it.
func (f *fakeDriver) WaitForFences(_ vk.Device, fences []vk.Fence, _ uint64) vk.Result {
	f.record("WaitForFences")
	if f.waitResult != vk.Success {
		return f.waitResult
	}
	for _, fence := range fences {
		if !f.signaled[fence] {
			return vk.Timeout
		}
	}
	return vk.Success
}

func (f *fakeDriver) ResetFences(_ vk.Device, fences []vk.Fence) vk.Result {
	f.record("ResetFences")
	for _, fence := range fences {
		f.signaled[fence] = false
	}
	return vk.Success
}

func (f *fakeDriver) CreateSemaphore(vk.Device) (vk.Semaphore, vk.Result) {
	f.record("CreateSemaphore")
	return vk.Semaphore(fakeHandle()), vk.Success
}

func (f *fakeDriver) DestroySemaphore(vk.Device, vk.Semaphore) { f.record("DestroySemaphore") }

// Memory, buffers and images

func (f *fakeDriver) AllocateMemory(_ vk.Device, info *vk.MemoryAllocateInfo) (vk.DeviceMemory, vk.Result) {
	f.record("AllocateMemory")
	mem := vk.DeviceMemory(fakeHandle())
	f.liveMemory[mem] = info.AllocationSize
	return mem, vk.Success
}

func (f *fakeDriver) FreeMemory(_ vk.Device, memory vk.DeviceMemory) {
	f.record("FreeMemory")
	delete(f.liveMemory, memory)
	delete(f.mapped, memory)
}

func (f *fakeDriver) MapMemory(_ vk.Device, memory vk.DeviceMemory, _, size vk.DeviceSize) (unsafe.Pointer, vk.Result) {
	f.record("MapMemory")
	buf := make([]byte, size)
	f.mapped[memory] = buf
	return unsafe.Pointer(&buf[0]), vk.Success
}

func (f *fakeDriver) UnmapMemory(vk.Device, vk.DeviceMemory) { f.record("UnmapMemory") }

func (f *fakeDriver) CreateBuffer(vk.Device, *vk.BufferCreateInfo) (vk.Buffer, vk.Result) {
	f.record("CreateBuffer")
	return vk.Buffer(fakeHandle()), vk.Success
}

func (f *fakeDriver) DestroyBuffer(vk.Device, vk.Buffer) { f.record("DestroyBuffer") }

func (f *fakeDriver) GetBufferMemoryRequirements(vk.Device, vk.Buffer) vk.MemoryRequirements {
	return vk.MemoryRequirements{Size: 256, Alignment: 256, MemoryTypeBits: 0b11}
}

func (f *fakeDriver) BindBufferMemory(vk.Device, vk.Buffer, vk.DeviceMemory, vk.DeviceSize) vk.Result {
	return vk.Success
}

func (f *fakeDriver) CreateImage(vk.Device, *vk.ImageCreateInfo) (vk.Image, vk.Result) {
	f.record("CreateImage")
	return vk.Image(fakeHandle()), vk.Success
}

func (f *fakeDriver) DestroyImage(vk.Device, vk.Image) { f.record("DestroyImage") }

func (f *fakeDriver) GetImageMemoryRequirements(vk.Device, vk.Image) vk.MemoryRequirements {
	return vk.MemoryRequirements{Size: 640 * 480 * 4, Alignment: 256, MemoryTypeBits: 0b11}
}

func (f *fakeDriver) BindImageMemory(vk.Device, vk.Image, vk.DeviceMemory, vk.DeviceSize) vk.Result {
	return vk.Success
}

func (f *fakeDriver) CreateImageView(vk.Device, *vk.ImageViewCreateInfo) (vk.ImageView, vk.Result) {
	f.record("CreateImageView")
	view := vk.ImageView(fakeHandle())
	f.liveViews[view] = true
	return view, vk.Success
}

func (f *fakeDriver) DestroyImageView(_ vk.Device, view vk.ImageView) {
	f.record("DestroyImageView")
	delete(f.liveViews, view)
	f.destroyedViews[view]++
}

// Swapchain

func (f *fakeDriver) CreateSwapchain(_ vk.Device, info *vk.SwapchainCreateInfo) (vk.Swapchain, vk.Result) {
	f.record("CreateSwapchain")
	f.lastSwapchainInfo = *info
	sc := vk.Swapchain(fakeHandle())
	images := make([]vk.Image, info.MinImageCount)
	for i := range images {
		images[i] = vk.Image(fakeHandle())
	}
	f.swapchainImages[sc] = images
	return sc, vk.Success
}

func (f *fakeDriver) DestroySwapchain(_ vk.Device, sc vk.Swapchain) {
	f.record("DestroySwapchain")
	delete(f.swapchainImages, sc)
}

func (f *fakeDriver) GetSwapchainImages(_ vk.Device, sc vk.Swapchain) ([]vk.Image, vk.Result) {
	return f.swapchainImages[sc], vk.Success
}

func (f *fakeDriver) AcquireNextImage(_ vk.Device, sc vk.Swapchain, _ uint64, _ vk.Semaphore) (uint32, vk.Result) {
	f.record("AcquireNextImage")
	res := pop(&f.acquireResults)
	if res != vk.Success && res != vk.Suboptimal {
		return 0, res
	}
	index := f.nextImage % uint32(len(f.swapchainImages[sc]))
	f.nextImage++
	return index, res
}

// Render passes and framebuffers

func (f *fakeDriver) CreateRenderPass(vk.Device, *vk.RenderPassCreateInfo) (vk.RenderPass, vk.Result) {
	f.record("CreateRenderPass")
	return vk.RenderPass(fakeHandle()), vk.Success
}

func (f *fakeDriver) DestroyRenderPass(vk.Device, vk.RenderPass) { f.record("DestroyRenderPass") }

func (f *fakeDriver) CreateFramebuffer(vk.Device, *vk.FramebufferCreateInfo) (vk.Framebuffer, vk.Result) {
	f.record("CreateFramebuffer")
	return vk.Framebuffer(fakeHandle()), vk.Success
}

func (f *fakeDriver) DestroyFramebuffer(vk.Device, vk.Framebuffer) { f.record("DestroyFramebuffer") }

// Shaders, descriptors and pipelines

func (f *fakeDriver) CreateShaderModule(vk.Device, []uint32) (vk.ShaderModule, vk.Result) {
	f.record("CreateShaderModule")
	return vk.ShaderModule(fakeHandle()), vk.Success
}

func (f *fakeDriver) DestroyShaderModule(vk.Device, vk.ShaderModule) { f.record("DestroyShaderModule") }

func (f *fakeDriver) CreateDescriptorPool(vk.Device, *vk.DescriptorPoolCreateInfo) (vk.DescriptorPool, vk.Result) {
	f.record("CreateDescriptorPool")
	return vk.DescriptorPool(fakeHandle()), vk.Success
}

func (f *fakeDriver) DestroyDescriptorPool(vk.Device, vk.DescriptorPool) {
	f.record("DestroyDescriptorPool")
}

func (f *fakeDriver) CreateDescriptorSetLayout(vk.Device, *vk.DescriptorSetLayoutCreateInfo) (vk.DescriptorSetLayout, vk.Result) {
	f.record("CreateDescriptorSetLayout")
	return vk.DescriptorSetLayout(fakeHandle()), vk.Success
}

func (f *fakeDriver) DestroyDescriptorSetLayout(vk.Device, vk.DescriptorSetLayout) {
	f.record("DestroyDescriptorSetLayout")
}

func (f *fakeDriver) AllocateDescriptorSets(_ vk.Device, info *vk.DescriptorSetAllocateInfo) ([]vk.DescriptorSet, vk.Result) {
	f.record("AllocateDescriptorSets")
	out := make([]vk.DescriptorSet, info.DescriptorSetCount)
	for i := range out {
		out[i] = vk.DescriptorSet(fakeHandle())
	}
	return out, vk.Success
}

func (f *fakeDriver) UpdateDescriptorSets(_ vk.Device, writes []vk.WriteDescriptorSet, _ []vk.CopyDescriptorSet) {
	f.record("UpdateDescriptorSets")
	f.writes = append(f.writes, writes...)
}

func (f *fakeDriver) CreatePipelineLayout(vk.Device, *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, vk.Result) {
	f.record("CreatePipelineLayout")
	return vk.PipelineLayout(fakeHandle()), vk.Success
}

func (f *fakeDriver) DestroyPipelineLayout(vk.Device, vk.PipelineLayout) {
	f.record("DestroyPipelineLayout")
}

func (f *fakeDriver) CreateGraphicsPipeline(vk.Device, *vk.GraphicsPipelineCreateInfo) (vk.Pipeline, vk.Result) {
	f.record("CreateGraphicsPipeline")
	return vk.Pipeline(fakeHandle()), vk.Success
}

func (f *fakeDriver) CreateComputePipeline(vk.Device, *vk.ComputePipelineCreateInfo) (vk.Pipeline, vk.Result) {
	f.record("CreateComputePipeline")
	return vk.Pipeline(fakeHandle()), vk.Success
}

func (f *fakeDriver) DestroyPipeline(vk.Device, vk.Pipeline) { f.record("DestroyPipeline") }

// Recording

func (f *fakeDriver) CmdPipelineBarrier(_ vk.CommandBuffer, _, _ vk.PipelineStageFlags, barriers []vk.ImageMemoryBarrier) {
	f.record("CmdPipelineBarrier")
	f.barriers = append(f.barriers, barriers...)
}

func (f *fakeDriver) CmdCopyBuffer(_ vk.CommandBuffer, _, _ vk.Buffer, regions []vk.BufferCopy) {
	f.record("CmdCopyBuffer")
	f.copies = append(f.copies, regions...)
}

func (f *fakeDriver) CmdBeginRenderPass(vk.CommandBuffer, *vk.RenderPassBeginInfo) {
	f.record("CmdBeginRenderPass")
}

func (f *fakeDriver) CmdEndRenderPass(vk.CommandBuffer) { f.record("CmdEndRenderPass") }

func (f *fakeDriver) CmdBindPipeline(vk.CommandBuffer, vk.PipelineBindPoint, vk.Pipeline) {
	f.record("CmdBindPipeline")
}

func (f *fakeDriver) CmdBindDescriptorSets(vk.CommandBuffer, vk.PipelineBindPoint, vk.PipelineLayout, []vk.DescriptorSet) {
	f.record("CmdBindDescriptorSets")
}

func (f *fakeDriver) CmdPushConstants(vk.CommandBuffer, vk.PipelineLayout, vk.ShaderStageFlags, uint32, []byte) {
	f.record("CmdPushConstants")
}

func (f *fakeDriver) CmdBindVertexBuffers(vk.CommandBuffer, []vk.Buffer, []vk.DeviceSize) {
	f.record("CmdBindVertexBuffers")
}

func (f *fakeDriver) CmdBindIndexBuffer(vk.CommandBuffer, vk.Buffer, vk.DeviceSize, vk.IndexType) {
	f.record("CmdBindIndexBuffer")
}

func (f *fakeDriver) CmdSetViewport(vk.CommandBuffer, vk.Viewport) { f.record("CmdSetViewport") }

func (f *fakeDriver) CmdSetScissor(vk.CommandBuffer, vk.Rect2D) { f.record("CmdSetScissor") }

func (f *fakeDriver) CmdDrawIndexed(_ vk.CommandBuffer, indexCount, _, _ uint32, _ int32, _ uint32) {
	f.record("CmdDrawIndexed")
	f.draws = append(f.draws, indexCount)
}

func (f *fakeDriver) CmdDispatch(_ vk.CommandBuffer, x, y, z uint32) {
	f.record("CmdDispatch")
	f.dispatches = append(f.dispatches, [3]uint32{x, y, z})
}

// fakeSurface satisfies SurfaceProvider with a fixed framebuffer size.
type fakeSurface struct {
	width, height uint32
}

func (s *fakeSurface) RequiredInstanceExtensions() []string {
	return []string{"VK_KHR_xlib_surface"}
}

func (s *fakeSurface) CreateSurface(vk.Instance) (vk.Surface, error) {
	return vk.Surface(fakeHandle()), nil
}

func (s *fakeSurface) FramebufferSize() (uint32, uint32) {
	return s.width, s.height
}

var _ Driver = (*fakeDriver)(nil)
