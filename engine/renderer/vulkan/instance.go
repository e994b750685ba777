package vulkan

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/animate/engine/core"
)

// Window is the platform surface the context renders into.
type Window interface {
	RequiredInstanceExtensions() []string
	CreateSurface(instance vk.Instance) (vk.Surface, error)
	// FramebufferSize returns the drawable size in pixels.
	FramebufferSize() (width, height int)
}

type Options struct {
	ApplicationName string
	// Validation enables the Khronos validation layer and the debug report callback.
	Validation  bool
	ClearColour [4]float32
}

// vulkanInstance owns the instance level objects created before a device exists.
type vulkanInstance struct {
	handle        vk.Instance
	debugCallback vk.DebugReportCallback
	surface       vk.Surface
}

func (i *vulkanInstance) destroy() {
	if i == nil || i.handle == nil {
		return
	}
	if i.surface != vk.NullSurface {
		vk.DestroySurface(i.handle, i.surface, nil)
		i.surface = vk.NullSurface
	}
	if i.debugCallback != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(i.handle, i.debugCallback, nil)
		i.debugCallback = vk.NullDebugReportCallback
	}
	vk.DestroyInstance(i.handle, nil)
	i.handle = nil
	core.LogDebug("Vulkan instance destroyed.")
}

// Initialise creates the instance, surface and logical device for window and
// returns a Context ready to render.
func Initialise(window Window, shaders ShaderSource, opts Options) (*Context, error) {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		return nil, fmt.Errorf("GetInstanceProcAddress is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)
	if err := vk.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize vk: %w", err)
	}

	instance, err := createInstance(window, opts)
	if err != nil {
		return nil, err
	}

	core.LogDebug("Creating Vulkan surface...")
	surface, err := window.CreateSurface(instance.handle)
	if err != nil {
		instance.destroy()
		return nil, fmt.Errorf("failed to create platform surface: %w", err)
	}
	instance.surface = surface

	driver, err := newDeviceDriver(instance.handle, surface)
	if err != nil {
		instance.destroy()
		return nil, err
	}

	ctx, err := NewContext(driver, window, shaders, opts)
	if err != nil {
		driver.Destroy()
		instance.destroy()
		return nil, err
	}
	ctx.instance = instance

	core.LogInfo("Vulkan context initialized successfully.")
	return ctx, nil
}

func instanceExtensions(window Window, validation bool) []string {
	extensions := []string{}
	seen := map[string]bool{}
	add := func(names ...string) {
		for _, name := range names {
			name = strings.TrimRight(name, "\x00")
			if !seen[name] {
				seen[name] = true
				extensions = append(extensions, name)
			}
		}
	}
	add(window.RequiredInstanceExtensions()...)
	if runtime.GOOS == "darwin" {
		add("VK_KHR_portability_enumeration", "VK_KHR_get_physical_device_properties2")
	}
	if validation {
		add(vk.ExtDebugReportExtensionName)
	}
	return extensions
}

func availableInstanceExtensions() ([]string, error) {
	var count uint32
	if res := vk.EnumerateInstanceExtensionProperties("", &count, nil); res != vk.Success {
		return nil, resultError("vkEnumerateInstanceExtensionProperties", res)
	}
	properties := make([]vk.ExtensionProperties, count)
	if res := vk.EnumerateInstanceExtensionProperties("", &count, properties); res != vk.Success {
		return nil, resultError("vkEnumerateInstanceExtensionProperties", res)
	}
	names := make([]string, 0, count)
	for i := range properties {
		properties[i].Deref()
		names = append(names, vk.ToString(properties[i].ExtensionName[:]))
	}
	return names, nil
}

func availableLayers() ([]string, error) {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		return nil, resultError("vkEnumerateInstanceLayerProperties", res)
	}
	properties := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, properties); res != vk.Success {
		return nil, resultError("vkEnumerateInstanceLayerProperties", res)
	}
	names := make([]string, 0, count)
	for i := range properties {
		properties[i].Deref()
		names = append(names, vk.ToString(properties[i].LayerName[:]))
	}
	return names, nil
}

func createInstance(window Window, opts Options) (*vulkanInstance, error) {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(opts.ApplicationName),
		PEngineName:        VulkanSafeString("Animate Engine"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}
	if runtime.GOOS == "darwin" {
		createInfo.Flags |= 1
	}

	required := instanceExtensions(window, opts.Validation)
	available, err := availableInstanceExtensions()
	if err != nil {
		return nil, err
	}
	if missing := missingNames(required, available); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", core.ErrMissingExtension, strings.Join(missing, ", "))
	}
	core.LogDebug("Required extensions: %s", strings.Join(required, ", "))
	createInfo.EnabledExtensionCount = uint32(len(required))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(required)

	layers := []string{}
	if opts.Validation {
		core.LogInfo("Validation layers enabled. Enumerating...")
		layers = append(layers, ValidationLayerName)
		present, err := availableLayers()
		if err != nil {
			return nil, err
		}
		if missing := missingNames(layers, present); len(missing) > 0 {
			return nil, fmt.Errorf("%w: %s", core.ErrMissingLayer, strings.Join(missing, ", "))
		}
		core.LogInfo("All required validation layers are present.")
	}
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	instance := &vulkanInstance{}
	if res := vk.CreateInstance(&createInfo, nil, &instance.handle); res != vk.Success {
		return nil, resultError("vkCreateInstance", res)
	}
	if err := vk.InitInstance(instance.handle); err != nil {
		vk.DestroyInstance(instance.handle, nil)
		return nil, err
	}
	core.LogInfo("Vulkan Instance created.")

	if opts.Validation {
		core.LogDebug("Creating Vulkan debugger...")
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if err := vk.Error(vk.CreateDebugReportCallback(instance.handle, &debugCreateInfo, nil, &dbg)); err != nil {
			instance.destroy()
			return nil, fmt.Errorf("vkCreateDebugReportCallbackEXT failed with %w", err)
		}
		instance.debugCallback = dbg
		core.LogDebug("Vulkan debugger created.")
	}

	return instance, nil
}
