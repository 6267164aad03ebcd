package vulkan

import (
	"runtime"
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/framecore/engine/core"
	"golang.org/x/exp/slices"
)

const (
	validationLayerName                = "VK_LAYER_KHRONOS_validation"
	portabilityEnumerationExtension    = "VK_KHR_portability_enumeration"
	physicalDeviceProperties2          = "VK_KHR_get_physical_device_properties2"
	instanceCreateEnumeratePortability = 0x00000001
)

type Instance struct {
	Handle vk.Instance

	debugCallback vk.DebugReportCallback
	driver        Driver
}

// instanceExtensions returns the surface extensions the platform needs plus
// the portability and debug extensions for the current build.
func instanceExtensions(platform []string, validation bool) []string {
	out := []string{vk.KhrSurfaceExtensionName}
	for _, ext := range platform {
		if !slices.Contains(out, ext) {
			out = append(out, ext)
		}
	}
	if runtime.GOOS == "darwin" {
		out = append(out, portabilityEnumerationExtension, physicalDeviceProperties2)
	}
	if validation {
		out = append(out, vk.ExtDebugReportExtensionName)
	}
	return out
}

func NewInstance(driver Driver, appName string, platformExtensions []string, validation bool) (*Instance, error) {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("framecore"),
	}

	extensions := instanceExtensions(platformExtensions, validation)
	core.LogDebug("Required instance extensions: %v", extensions)

	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensions),
	}
	if runtime.GOOS == "darwin" {
		createInfo.Flags |= instanceCreateEnumeratePortability
	}

	var layers []string
	if validation {
		core.LogInfo("Validation layers enabled. Enumerating...")
		available, res := driver.EnumerateInstanceLayers()
		if err := checkResult(res, "failed to enumerate instance layers"); err != nil {
			return nil, err
		}
		if !slices.Contains(available, validationLayerName) {
			return nil, errors.Newf("required validation layer is missing: %s", validationLayerName)
		}
		layers = append(layers, validationLayerName)
		core.LogInfo("All required validation layers are present.")
	}
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	handle, res := driver.CreateInstance(&createInfo)
	if err := checkResult(res, "failed to create Vulkan instance"); err != nil {
		return nil, err
	}
	core.LogInfo("Vulkan instance created.")

	inst := &Instance{Handle: handle, driver: driver}
	if validation {
		debugInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: debugReport,
		}
		cb, res := driver.CreateDebugReportCallback(handle, &debugInfo)
		if err := checkResult(res, "failed to create debug report callback"); err != nil {
			inst.Destroy()
			return nil, err
		}
		inst.debugCallback = cb
		core.LogDebug("Vulkan debugger created.")
	}
	return inst, nil
}

func (i *Instance) Destroy() {
	if i.debugCallback != vk.NullDebugReportCallback {
		i.driver.DestroyDebugReportCallback(i.Handle, i.debugCallback)
		i.debugCallback = vk.NullDebugReportCallback
	}
	if i.Handle != nil {
		i.driver.DestroyInstance(i.Handle)
		i.Handle = nil
	}
}

func debugReport(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("[%s] code %d: %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("[%s] code %d: %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("performance: [%s] code %d: %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogDebug("[%s] code %d: %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
