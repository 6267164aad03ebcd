package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/framecore/engine/core"
	"golang.org/x/exp/slices"
)

const portabilitySubsetExtension = "VK_KHR_portability_subset"

// DefaultFenceTimeout bounds every fence wait issued by the device (ten seconds).
const DefaultFenceTimeout uint64 = 10_000_000_000

type SwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

// QueueFamilyIndices holds the chosen family per role, -1 when absent.
type QueueFamilyIndices struct {
	Graphics int32
	Present  int32
	Compute  int32
	Transfer int32
}

func (q QueueFamilyIndices) complete(req DeviceRequirements) bool {
	return (!req.Graphics || q.Graphics >= 0) &&
		(!req.Present || q.Present >= 0) &&
		(!req.Compute || q.Compute >= 0) &&
		(!req.Transfer || q.Transfer >= 0)
}

// unique returns every distinct family in graphics, present, compute, transfer order.
func (q QueueFamilyIndices) unique() []uint32 {
	var out []uint32
	for _, idx := range []int32{q.Graphics, q.Present, q.Compute, q.Transfer} {
		if idx < 0 {
			continue
		}
		if !slices.Contains(out, uint32(idx)) {
			out = append(out, uint32(idx))
		}
	}
	return out
}

type DeviceRequirements struct {
	Graphics    bool
	Present     bool
	Compute     bool
	Transfer    bool
	DiscreteGPU bool
	Extensions  []string
}

type DeviceConfig struct {
	RequireDiscreteGPU bool
	FenceTimeoutNs     uint64
}

type VulkanDevice struct {
	PhysicalDevice   vk.PhysicalDevice
	LogicalDevice    vk.Device
	SwapchainSupport SwapchainSupportInfo
	QueueFamilies    QueueFamilyIndices

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue
	ComputeQueue  vk.Queue
	TransferQueue vk.Queue

	GraphicsCommandPool vk.CommandPool
	TransferCommandPool vk.CommandPool
	ComputeCommandPool  vk.CommandPool

	Properties vk.PhysicalDeviceProperties
	Features   vk.PhysicalDeviceFeatures
	Memory     vk.PhysicalDeviceMemoryProperties

	DepthFormat     vk.Format
	DepthHasStencil bool

	driver       Driver
	fenceTimeout uint64
	allocations  allocationTable
}

// NewDevice selects a physical device able to present to surface, then creates
// the logical device, its queues and one command pool per submission class.
func NewDevice(driver Driver, instance vk.Instance, surface vk.Surface, cfg DeviceConfig) (*VulkanDevice, error) {
	device := &VulkanDevice{
		driver:       driver,
		fenceTimeout: cfg.FenceTimeoutNs,
		allocations:  newAllocationTable(),
	}
	if device.fenceTimeout == 0 {
		device.fenceTimeout = DefaultFenceTimeout
	}

	requirements := DeviceRequirements{
		Graphics:    true,
		Present:     true,
		Compute:     true,
		Transfer:    true,
		DiscreteGPU: cfg.RequireDiscreteGPU,
		Extensions:  []string{vk.KhrSwapchainExtensionName},
	}
	if err := device.selectPhysicalDevice(instance, surface, requirements); err != nil {
		return nil, err
	}
	if err := device.createLogicalDevice(); err != nil {
		return nil, err
	}
	if err := device.createCommandPools(); err != nil {
		device.Destroy()
		return nil, err
	}
	if !device.SelectDepthFormat() {
		device.Destroy()
		return nil, errors.New("failed to find a supported depth format")
	}
	return device, nil
}

func (d *VulkanDevice) Driver() Driver {
	return d.driver
}

func (d *VulkanDevice) FenceTimeout() uint64 {
	return d.fenceTimeout
}

func (d *VulkanDevice) selectPhysicalDevice(instance vk.Instance, surface vk.Surface, req DeviceRequirements) error {
	physicalDevices, res := d.driver.EnumeratePhysicalDevices(instance)
	if err := checkResult(res, "failed to enumerate physical devices"); err != nil {
		return err
	}
	if len(physicalDevices) == 0 {
		core.LogError("No devices which support Vulkan were found.")
		return core.ErrNoSuitableDevice
	}

	for _, pd := range physicalDevices {
		properties := d.driver.GetPhysicalDeviceProperties(pd)
		queues, support, ok := physicalDeviceMeetsRequirements(d.driver, pd, surface, properties, req)
		if !ok {
			continue
		}

		name := vk.ToString(properties.DeviceName[:])
		core.LogInfo("Selected device: '%s' (%s).", name, deviceTypeName(properties.DeviceType))
		core.LogInfo("GPU driver version: %d.%d.%d",
			vk.Version(properties.DriverVersion).Major(),
			vk.Version(properties.DriverVersion).Minor(),
			vk.Version(properties.DriverVersion).Patch())
		core.LogInfo("Vulkan API version: %d.%d.%d",
			vk.Version(properties.ApiVersion).Major(),
			vk.Version(properties.ApiVersion).Minor(),
			vk.Version(properties.ApiVersion).Patch())

		memory := d.driver.GetPhysicalDeviceMemoryProperties(pd)
		for j := uint32(0); j < memory.MemoryHeapCount; j++ {
			gib := float64(memory.MemoryHeaps[j].Size) / 1024.0 / 1024.0 / 1024.0
			if vk.MemoryHeapFlagBits(memory.MemoryHeaps[j].Flags)&vk.MemoryHeapDeviceLocalBit != 0 {
				core.LogInfo("Local GPU memory: %.2f GiB", gib)
			} else {
				core.LogInfo("Shared system memory: %.2f GiB", gib)
			}
		}

		d.PhysicalDevice = pd
		d.QueueFamilies = queues
		d.SwapchainSupport = support
		d.Properties = properties
		d.Features = d.driver.GetPhysicalDeviceFeatures(pd)
		d.Memory = memory
		core.LogInfo("Physical device selected.")
		return nil
	}

	core.LogError("No physical devices were found which meet the requirements.")
	return core.ErrNoSuitableDevice
}

func deviceTypeName(t vk.PhysicalDeviceType) string {
	switch t {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return "integrated"
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return "discrete"
	case vk.PhysicalDeviceTypeVirtualGpu:
		return "virtual"
	case vk.PhysicalDeviceTypeCpu:
		return "cpu"
	default:
		return "unknown"
	}
}

// selectQueueFamilies scores every family. Graphics and present take the first
// family that supports them, compute prefers the graphics family, and transfer
// takes the lowest scoring family, the later one on a tie, so a dedicated
// transfer queue wins when one exists. The chosen graphics family scores one
// for graphics and one more when it can also present.
func selectQueueFamilies(families []vk.QueueFamilyProperties, supportsPresent func(family uint32) (bool, error)) (QueueFamilyIndices, error) {
	out := QueueFamilyIndices{Graphics: -1, Present: -1, Compute: -1, Transfer: -1}
	minTransferScore := 255
	for i, family := range families {
		flags := vk.QueueFlagBits(family.QueueFlags)
		present, err := supportsPresent(uint32(i))
		if err != nil {
			return out, err
		}

		score := 0
		if flags&vk.QueueGraphicsBit != 0 && out.Graphics < 0 {
			out.Graphics = int32(i)
			score++
			if present {
				score++
			}
		}
		if flags&vk.QueueComputeBit != 0 {
			if out.Compute < 0 || int32(i) == out.Graphics {
				out.Compute = int32(i)
			}
			score++
		}
		if flags&vk.QueueTransferBit != 0 && score <= minTransferScore {
			minTransferScore = score
			out.Transfer = int32(i)
		}

		if present && (out.Present < 0 || int32(i) == out.Graphics) {
			out.Present = int32(i)
		}
	}
	return out, nil
}

func physicalDeviceMeetsRequirements(driver Driver, pd vk.PhysicalDevice, surface vk.Surface, properties vk.PhysicalDeviceProperties, req DeviceRequirements) (QueueFamilyIndices, SwapchainSupportInfo, bool) {
	name := vk.ToString(properties.DeviceName[:])
	if req.DiscreteGPU && properties.DeviceType != vk.PhysicalDeviceTypeDiscreteGpu {
		core.LogInfo("Device '%s' is not a discrete GPU, and one is required. Skipping.", name)
		return QueueFamilyIndices{}, SwapchainSupportInfo{}, false
	}

	families := driver.GetPhysicalDeviceQueueFamilyProperties(pd)
	queues, err := selectQueueFamilies(families, func(family uint32) (bool, error) {
		ok, res := driver.GetPhysicalDeviceSurfaceSupport(pd, family, surface)
		return ok, checkResult(res, "failed to query surface support for family %d", family)
	})
	if err != nil {
		return queues, SwapchainSupportInfo{}, false
	}

	core.LogInfo("Graphics | Present | Compute | Transfer | Name")
	core.LogInfo("%8d | %7d | %7d | %8d | %s", queues.Graphics, queues.Present, queues.Compute, queues.Transfer, name)
	if !queues.complete(req) {
		return queues, SwapchainSupportInfo{}, false
	}

	support, err := querySwapchainSupport(driver, pd, surface)
	if err != nil {
		return queues, support, false
	}
	if len(support.Formats) < 1 || len(support.PresentModes) < 1 {
		core.LogInfo("Required swapchain support not present, skipping device.")
		return queues, support, false
	}

	if len(req.Extensions) > 0 {
		available, res := driver.EnumerateDeviceExtensions(pd)
		if checkResult(res, "failed to enumerate device extensions") != nil {
			return queues, support, false
		}
		for _, ext := range req.Extensions {
			if !slices.Contains(available, ext) {
				core.LogInfo("Required extension not found: '%s', skipping device.", ext)
				return queues, support, false
			}
		}
	}
	return queues, support, true
}

func querySwapchainSupport(driver Driver, pd vk.PhysicalDevice, surface vk.Surface) (SwapchainSupportInfo, error) {
	var info SwapchainSupportInfo
	var res vk.Result

	info.Capabilities, res = driver.GetPhysicalDeviceSurfaceCapabilities(pd, surface)
	if err := checkResult(res, "failed to get surface capabilities"); err != nil {
		return info, err
	}
	info.Formats, res = driver.GetPhysicalDeviceSurfaceFormats(pd, surface)
	if err := checkResult(res, "failed to get surface formats"); err != nil {
		return info, err
	}
	info.PresentModes, res = driver.GetPhysicalDeviceSurfacePresentModes(pd, surface)
	if err := checkResult(res, "failed to get surface present modes"); err != nil {
		return info, err
	}
	return info, nil
}

// QuerySwapchainSupport refreshes the cached surface capabilities. Swapchain
// recreation calls it because the current extent changes with the window.
func (d *VulkanDevice) QuerySwapchainSupport(surface vk.Surface) error {
	info, err := querySwapchainSupport(d.driver, d.PhysicalDevice, surface)
	if err != nil {
		return err
	}
	d.SwapchainSupport = info
	return nil
}

func (d *VulkanDevice) createLogicalDevice() error {
	core.LogInfo("Creating logical device...")

	families := d.QueueFamilies.unique()
	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(families))
	for i, family := range families {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	extensions := []string{vk.KhrSwapchainExtensionName}
	available, res := d.driver.EnumerateDeviceExtensions(d.PhysicalDevice)
	if err := checkResult(res, "failed to enumerate device extensions"); err != nil {
		return err
	}
	if slices.Contains(available, portabilitySubsetExtension) {
		core.LogInfo("Adding required extension '%s'.", portabilitySubsetExtension)
		extensions = append(extensions, portabilitySubsetExtension)
	}

	createInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{}},
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensions),
	}
	logical, res := d.driver.CreateDevice(d.PhysicalDevice, &createInfo)
	if err := checkResult(res, "failed to create logical device"); err != nil {
		return err
	}
	d.LogicalDevice = logical
	core.LogInfo("Logical device created.")

	d.GraphicsQueue = d.driver.GetDeviceQueue(logical, uint32(d.QueueFamilies.Graphics), 0)
	d.PresentQueue = d.driver.GetDeviceQueue(logical, uint32(d.QueueFamilies.Present), 0)
	d.ComputeQueue = d.driver.GetDeviceQueue(logical, uint32(d.QueueFamilies.Compute), 0)
	d.TransferQueue = d.driver.GetDeviceQueue(logical, uint32(d.QueueFamilies.Transfer), 0)
	core.LogInfo("Queues obtained.")
	return nil
}

func (d *VulkanDevice) createCommandPools() error {
	pools := []struct {
		family int32
		out    *vk.CommandPool
		class  CommandType
	}{
		{d.QueueFamilies.Graphics, &d.GraphicsCommandPool, COMMAND_TYPE_GRAPHICS},
		{d.QueueFamilies.Transfer, &d.TransferCommandPool, COMMAND_TYPE_TRANSFER},
		{d.QueueFamilies.Compute, &d.ComputeCommandPool, COMMAND_TYPE_COMPUTE},
	}
	for _, p := range pools {
		info := vk.CommandPoolCreateInfo{
			SType:            vk.StructureTypeCommandPoolCreateInfo,
			QueueFamilyIndex: uint32(p.family),
			Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		}
		pool, res := d.driver.CreateCommandPool(d.LogicalDevice, &info)
		if err := checkResult(res, "failed to create %s command pool", p.class); err != nil {
			return err
		}
		*p.out = pool
	}
	core.LogInfo("Command pools created.")
	return nil
}

// CommandPool returns the pool backing command buffers of the given class.
func (d *VulkanDevice) CommandPool(class CommandType) vk.CommandPool {
	switch class {
	case COMMAND_TYPE_TRANSFER:
		return d.TransferCommandPool
	case COMMAND_TYPE_COMPUTE:
		return d.ComputeCommandPool
	default:
		return d.GraphicsCommandPool
	}
}

// Queue returns the queue command buffers of the given class are submitted to.
func (d *VulkanDevice) Queue(class CommandType) vk.Queue {
	switch class {
	case COMMAND_TYPE_TRANSFER:
		return d.TransferQueue
	case COMMAND_TYPE_COMPUTE:
		return d.ComputeQueue
	default:
		return d.GraphicsQueue
	}
}

// SelectDepthFormat picks the first candidate usable as an optimally tiled
// depth attachment.
func (d *VulkanDevice) SelectDepthFormat() bool {
	candidates := []struct {
		format  vk.Format
		stencil bool
	}{
		{vk.FormatD32Sfloat, false},
		{vk.FormatD32SfloatS8Uint, true},
		{vk.FormatD24UnormS8Uint, true},
	}
	flags := vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)
	for _, c := range candidates {
		props := d.driver.GetPhysicalDeviceFormatProperties(d.PhysicalDevice, c.format)
		if props.OptimalTilingFeatures&flags == flags {
			d.DepthFormat = c.format
			d.DepthHasStencil = c.stencil
			return true
		}
	}
	return false
}

// FindMemoryIndex returns the first memory type allowed by typeFilter that has
// every bit of flags.
func (d *VulkanDevice) FindMemoryIndex(typeFilter uint32, flags vk.MemoryPropertyFlags) (uint32, error) {
	for i := uint32(0); i < d.Memory.MemoryTypeCount; i++ {
		if typeFilter&(1<<i) != 0 && d.Memory.MemoryTypes[i].PropertyFlags&flags == flags {
			return i, nil
		}
	}
	core.LogWarn("Unable to find suitable memory type (filter %#x, flags %#x)", typeFilter, uint32(flags))
	return 0, errors.Wrapf(core.ErrMemoryTypeNotFound, "filter %#x flags %#x", typeFilter, uint32(flags))
}

// LiveAllocations returns the allocation table entries that were never freed.
func (d *VulkanDevice) LiveAllocations() []Allocation {
	return d.allocations.live()
}

// WaitIdle blocks until every queue of the device has drained.
func (d *VulkanDevice) WaitIdle() error {
	return checkResult(d.driver.DeviceWaitIdle(d.LogicalDevice), "vkDeviceWaitIdle failed")
}

func (d *VulkanDevice) Destroy() {
	if d.LogicalDevice != nil {
		if err := d.WaitIdle(); err != nil {
			core.LogWarn("destroying device without idle wait: %s", err)
		}
	}

	for _, leak := range d.allocations.live() {
		core.LogWarn("leaked allocation %s (%s, %d bytes)", leak.ID, leak.Label, leak.Size)
	}

	d.GraphicsQueue = nil
	d.PresentQueue = nil
	d.ComputeQueue = nil
	d.TransferQueue = nil

	core.LogInfo("Destroying command pools...")
	for _, pool := range []*vk.CommandPool{&d.GraphicsCommandPool, &d.TransferCommandPool, &d.ComputeCommandPool} {
		if *pool != nil {
			d.driver.DestroyCommandPool(d.LogicalDevice, *pool)
			*pool = nil
		}
	}

	core.LogInfo("Destroying logical device...")
	if d.LogicalDevice != nil {
		d.driver.DestroyDevice(d.LogicalDevice)
		d.LogicalDevice = nil
	}

	// Physical devices are not destroyed.
	d.PhysicalDevice = nil
	d.SwapchainSupport = SwapchainSupportInfo{}
	d.QueueFamilies = QueueFamilyIndices{Graphics: -1, Present: -1, Compute: -1, Transfer: -1}
}
