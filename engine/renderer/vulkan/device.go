package vulkan

import (
	"fmt"
	"strings"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/animate/engine/core"
)

// physicalDeviceInfo is the subset of a physical device's properties that
// device selection looks at.
type physicalDeviceInfo struct {
	Name           string
	Extensions     []string
	Support        VulkanSwapchainSupportInfo
	GeometryShader bool
	Queues         QueueFamilyIndices
	MemoryTypes    []vk.MemoryPropertyFlags
}

// unsuitableReason returns why the device cannot be used, or the empty string
// when it can.
func (info physicalDeviceInfo) unsuitableReason(requiredExtensions []string) string {
	if missing := missingNames(requiredExtensions, info.Extensions); len(missing) > 0 {
		return fmt.Sprintf("missing extensions %s", strings.Join(missing, ", "))
	}
	if len(info.Support.Formats) == 0 {
		return "no surface formats"
	}
	if len(info.Support.PresentModes) == 0 {
		return "no present modes"
	}
	if !info.GeometryShader {
		return "geometry shaders not supported"
	}
	if !info.Queues.IsComplete() {
		return "no graphics or present queue family"
	}
	return ""
}

func isDeviceSuitable(info physicalDeviceInfo, requiredExtensions []string) bool {
	return info.unsuitableReason(requiredExtensions) == ""
}

// findQueueFamilies returns the first family with graphics capability and the
// first family able to present. presentSupport is asked per family index.
func findQueueFamilies(families []vk.QueueFamilyProperties, presentSupport func(index uint32) bool) QueueFamilyIndices {
	indices := QueueFamilyIndices{Graphics: -1, Present: -1}
	for i, family := range families {
		if family.QueueCount == 0 {
			continue
		}
		if indices.Graphics < 0 && vk.QueueFlagBits(family.QueueFlags)&vk.QueueGraphicsBit != 0 {
			indices.Graphics = int32(i)
		}
		if indices.Present < 0 && presentSupport(uint32(i)) {
			indices.Present = int32(i)
		}
		if indices.IsComplete() {
			break
		}
	}
	return indices
}

func querySwapchainSupport(physicalDevice vk.PhysicalDevice, surface vk.Surface) (VulkanSwapchainSupportInfo, error) {
	var info VulkanSwapchainSupportInfo

	if res := vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &info.Capabilities); res != vk.Success {
		return info, resultError("vkGetPhysicalDeviceSurfaceCapabilitiesKHR", res)
	}
	info.Capabilities.Deref()
	info.Capabilities.CurrentExtent.Deref()
	info.Capabilities.MinImageExtent.Deref()
	info.Capabilities.MaxImageExtent.Deref()

	var formatCount uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, nil); res != vk.Success {
		return info, resultError("vkGetPhysicalDeviceSurfaceFormatsKHR", res)
	}
	if formatCount != 0 {
		info.Formats = make([]vk.SurfaceFormat, formatCount)
		if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, info.Formats); res != vk.Success {
			return info, resultError("vkGetPhysicalDeviceSurfaceFormatsKHR", res)
		}
		for i := range info.Formats {
			info.Formats[i].Deref()
		}
	}

	var modeCount uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &modeCount, nil); res != vk.Success {
		return info, resultError("vkGetPhysicalDeviceSurfacePresentModesKHR", res)
	}
	if modeCount != 0 {
		info.PresentModes = make([]vk.PresentMode, modeCount)
		if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &modeCount, info.PresentModes); res != vk.Success {
			return info, resultError("vkGetPhysicalDeviceSurfacePresentModesKHR", res)
		}
	}
	return info, nil
}

func queryPhysicalDevice(physicalDevice vk.PhysicalDevice, surface vk.Surface) (physicalDeviceInfo, error) {
	info := physicalDeviceInfo{}

	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(physicalDevice, &properties)
	properties.Deref()
	info.Name = vk.ToString(properties.DeviceName[:])

	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(physicalDevice, &features)
	features.Deref()
	info.GeometryShader = features.GeometryShader == vk.True

	var memory vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(physicalDevice, &memory)
	memory.Deref()
	for i := uint32(0); i < memory.MemoryTypeCount; i++ {
		memory.MemoryTypes[i].Deref()
		info.MemoryTypes = append(info.MemoryTypes, memory.MemoryTypes[i].PropertyFlags)
	}

	var extensionCount uint32
	if res := vk.EnumerateDeviceExtensionProperties(physicalDevice, "", &extensionCount, nil); res != vk.Success {
		return info, resultError("vkEnumerateDeviceExtensionProperties", res)
	}
	extensions := make([]vk.ExtensionProperties, extensionCount)
	if res := vk.EnumerateDeviceExtensionProperties(physicalDevice, "", &extensionCount, extensions); res != vk.Success {
		return info, resultError("vkEnumerateDeviceExtensionProperties", res)
	}
	for i := range extensions {
		extensions[i].Deref()
		info.Extensions = append(info.Extensions, vk.ToString(extensions[i].ExtensionName[:]))
	}

	var familyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(physicalDevice, &familyCount, nil)
	families := make([]vk.QueueFamilyProperties, familyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(physicalDevice, &familyCount, families)
	for i := range families {
		families[i].Deref()
	}
	info.Queues = findQueueFamilies(families, func(index uint32) bool {
		var supported vk.Bool32
		vk.GetPhysicalDeviceSurfaceSupport(physicalDevice, index, surface, &supported)
		return supported == vk.True
	})

	support, err := querySwapchainSupport(physicalDevice, surface)
	if err != nil {
		return info, err
	}
	info.Support = support
	return info, nil
}

// selectPhysicalDevice returns the first enumerated device that passes the
// suitability checks.
func selectPhysicalDevice(instance vk.Instance, surface vk.Surface) (vk.PhysicalDevice, physicalDeviceInfo, error) {
	var count uint32
	if res := vk.EnumeratePhysicalDevices(instance, &count, nil); res != vk.Success {
		return nil, physicalDeviceInfo{}, resultError("vkEnumeratePhysicalDevices", res)
	}
	if count == 0 {
		return nil, physicalDeviceInfo{}, fmt.Errorf("%w: no devices which support Vulkan were found", core.ErrNoSuitableDevice)
	}
	devices := make([]vk.PhysicalDevice, count)
	if res := vk.EnumeratePhysicalDevices(instance, &count, devices); res != vk.Success {
		return nil, physicalDeviceInfo{}, resultError("vkEnumeratePhysicalDevices", res)
	}

	for _, device := range devices {
		info, err := queryPhysicalDevice(device, surface)
		if err != nil {
			core.LogWarn("Skipping physical device: %s", err)
			continue
		}
		if reason := info.unsuitableReason(DeviceExtensions); reason != "" {
			core.LogInfo("Device '%s' is not suitable: %s", info.Name, reason)
			continue
		}
		core.LogInfo("Selected device: '%s'", info.Name)
		core.LogInfo("Graphics family: %d, present family: %d", info.Queues.Graphics, info.Queues.Present)
		return device, info, nil
	}
	return nil, physicalDeviceInfo{}, core.ErrNoSuitableDevice
}

// newDeviceDriver picks a physical device for the surface and creates a
// logical device with one queue per distinct family.
func newDeviceDriver(instance vk.Instance, surface vk.Surface) (*vkDriver, error) {
	physicalDevice, info, err := selectPhysicalDevice(instance, surface)
	if err != nil {
		return nil, err
	}

	core.LogInfo("Creating logical device...")
	queueCreateInfos := []vk.DeviceQueueCreateInfo{}
	for _, family := range info.Queues.Unique() {
		queueCreateInfos = append(queueCreateInfos, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		})
	}

	deviceFeatures := vk.PhysicalDeviceFeatures{
		GeometryShader: vk.True,
	}

	extensionNames := append([]string{}, DeviceExtensions...)
	for _, name := range info.Extensions {
		if name == "VK_KHR_portability_subset" {
			core.LogInfo("Adding required extension 'VK_KHR_portability_subset'.")
			extensionNames = append(extensionNames, name)
			break
		}
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{deviceFeatures},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}

	var device vk.Device
	if res := vk.CreateDevice(physicalDevice, &deviceCreateInfo, nil, &device); res != vk.Success {
		return nil, resultError("vkCreateDevice", res)
	}
	core.LogInfo("Logical device created.")

	driver := &vkDriver{
		physicalDevice: physicalDevice,
		device:         device,
		surface:        surface,
		families:       info.Queues,
		memoryTypes:    info.MemoryTypes,
	}
	vk.GetDeviceQueue(device, uint32(info.Queues.Graphics), 0, &driver.graphicsQueue)
	vk.GetDeviceQueue(device, uint32(info.Queues.Present), 0, &driver.presentQueue)
	core.LogInfo("Queues obtained.")

	return driver, nil
}
