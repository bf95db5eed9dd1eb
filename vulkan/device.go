package vulkan

import (
	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_portability_subset"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

var deviceExtensions = []string{khr_swapchain.ExtensionName}

type queueFamilyIndices struct {
	graphicsFamily *int
	presentFamily  *int
}

func (i *queueFamilyIndices) isComplete() bool {
	return i.graphicsFamily != nil && i.presentFamily != nil
}

type swapchainSupport struct {
	capabilities *khr_surface.SurfaceCapabilities
	formats      []khr_surface.SurfaceFormat
	presentModes []khr_surface.PresentMode
}

// Device is the selected physical device and its logical device, with the
// graphics and present queues resolved.
type Device struct {
	instance *Instance
	registry *Registry

	physical core1_0.PhysicalDevice
	driver   core1_0.CoreDeviceDriver

	graphicsFamily int
	presentFamily  int
	graphicsQueue  core1_0.Queue
	presentQueue   core1_0.Queue

	maxSamples core1_0.SampleCountFlags
}

// NewDevice picks the first suitable physical device and creates a logical
// device on it. Suitable means: graphics and present queue families, the
// swapchain extension, at least one surface format and present mode, and
// sampler anisotropy.
func NewDevice(instance *Instance, registry *Registry, logger *log.Logger) (*Device, error) {
	device := &Device{instance: instance, registry: registry}

	physicalDevices, _, err := instance.driver.EnumeratePhysicalDevices()
	if err != nil {
		return nil, errors.Wrap(err, "enumerate physical devices")
	}

	for _, candidate := range physicalDevices {
		if device.isSuitable(candidate) {
			device.physical = candidate
			break
		}
	}
	if !device.physical.Initialized() {
		return nil, errors.Errorf("no suitable GPU found among %d devices", len(physicalDevices))
	}

	device.maxSamples, err = device.maxUsableSampleCount()
	if err != nil {
		return nil, errors.Wrap(err, "query sample counts")
	}

	indices, err := device.findQueueFamilies(device.physical)
	if err != nil {
		return nil, errors.Wrap(err, "resolve queue families")
	}
	device.graphicsFamily = *indices.graphicsFamily
	device.presentFamily = *indices.presentFamily

	uniqueQueueFamilies := []int{device.graphicsFamily}
	if device.presentFamily != device.graphicsFamily {
		uniqueQueueFamilies = append(uniqueQueueFamilies, device.presentFamily)
	}

	var queueCreateInfos []core1_0.DeviceQueueCreateInfo
	queuePriority := float32(1.0)
	for _, queueFamily := range uniqueQueueFamilies {
		queueCreateInfos = append(queueCreateInfos, core1_0.DeviceQueueCreateInfo{
			QueueFamilyIndex: queueFamily,
			QueuePriorities:  []float32{queuePriority},
		})
	}

	extensionNames := append([]string{}, deviceExtensions...)

	// Required on implementations that expose the device through a
	// portability layer, such as MoltenVK.
	extensions, _, err := instance.driver.EnumerateDeviceExtensionProperties(device.physical)
	if err != nil {
		return nil, errors.Wrap(err, "enumerate device extensions")
	}
	_, portability := extensions[khr_portability_subset.ExtensionName]
	if portability {
		extensionNames = append(extensionNames, khr_portability_subset.ExtensionName)
	}

	device.driver, _, err = instance.driver.CreateDevice(device.physical, nil, core1_0.DeviceCreateInfo{
		QueueCreateInfos: queueCreateInfos,
		EnabledFeatures: &core1_0.PhysicalDeviceFeatures{
			SamplerAnisotropy: true,
		},
		EnabledExtensionNames: extensionNames,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create logical device")
	}

	device.graphicsQueue = device.driver.GetQueue(device.graphicsFamily, 0)
	device.presentQueue = device.driver.GetQueue(device.presentFamily, 0)

	properties, err := instance.driver.GetPhysicalDeviceProperties(device.physical)
	if err == nil {
		logger.Info("selected GPU",
			"device", properties.DeviceName,
			"graphicsFamily", device.graphicsFamily,
			"presentFamily", device.presentFamily,
			"maxSamples", device.maxSamples)
	}

	return device, nil
}

func (d *Device) isSuitable(physical core1_0.PhysicalDevice) bool {
	indices, err := d.findQueueFamilies(physical)
	if err != nil || !indices.isComplete() {
		return false
	}

	if !d.supportsDeviceExtensions(physical) {
		return false
	}

	support, err := d.querySwapchainSupport(physical)
	if err != nil || len(support.formats) == 0 || len(support.presentModes) == 0 {
		return false
	}

	features := d.instance.driver.GetPhysicalDeviceFeatures(physical)
	return features.SamplerAnisotropy
}

func (d *Device) supportsDeviceExtensions(physical core1_0.PhysicalDevice) bool {
	extensions, _, err := d.instance.driver.EnumerateDeviceExtensionProperties(physical)
	if err != nil {
		return false
	}
	for _, extension := range deviceExtensions {
		_, hasExtension := extensions[extension]
		if !hasExtension {
			return false
		}
	}
	return true
}

func (d *Device) findQueueFamilies(physical core1_0.PhysicalDevice) (queueFamilyIndices, error) {
	indices := queueFamilyIndices{}
	queueFamilies := d.instance.driver.GetPhysicalDeviceQueueFamilyProperties(physical)

	for queueFamilyIdx, queueFamily := range queueFamilies {
		if (queueFamily.QueueFlags & core1_0.QueueGraphics) != 0 {
			indices.graphicsFamily = new(int)
			*indices.graphicsFamily = queueFamilyIdx
		}

		supported, _, err := d.instance.surfaceExtension.GetPhysicalDeviceSurfaceSupport(d.instance.surface, physical, queueFamilyIdx)
		if err != nil {
			return indices, err
		}
		if supported {
			indices.presentFamily = new(int)
			*indices.presentFamily = queueFamilyIdx
		}

		if indices.isComplete() {
			break
		}
	}

	return indices, nil
}

func (d *Device) querySwapchainSupport(physical core1_0.PhysicalDevice) (swapchainSupport, error) {
	var support swapchainSupport
	var err error

	support.capabilities, _, err = d.instance.surfaceExtension.GetPhysicalDeviceSurfaceCapabilities(d.instance.surface, physical)
	if err != nil {
		return support, err
	}

	support.formats, _, err = d.instance.surfaceExtension.GetPhysicalDeviceSurfaceFormats(d.instance.surface, physical)
	if err != nil {
		return support, err
	}

	support.presentModes, _, err = d.instance.surfaceExtension.GetPhysicalDeviceSurfacePresentModes(d.instance.surface, physical)
	return support, err
}

func (d *Device) maxUsableSampleCount() (core1_0.SampleCountFlags, error) {
	properties, err := d.instance.driver.GetPhysicalDeviceProperties(d.physical)
	if err != nil {
		return 0, err
	}

	counts := properties.Limits.FramebufferColorSampleCounts & properties.Limits.FramebufferDepthSampleCounts
	for _, candidate := range []core1_0.SampleCountFlags{
		core1_0.Samples64, core1_0.Samples32, core1_0.Samples16,
		core1_0.Samples8, core1_0.Samples4, core1_0.Samples2,
	} {
		if (counts & candidate) != 0 {
			return candidate, nil
		}
	}
	return core1_0.Samples1, nil
}

func (d *Device) findMemoryType(typeFilter uint32, properties core1_0.MemoryPropertyFlags) (int, error) {
	memProperties := d.instance.driver.GetPhysicalDeviceMemoryProperties(d.physical)
	for i, memoryType := range memProperties.MemoryTypes {
		typeBit := uint32(1 << i)
		if (typeFilter&typeBit) != 0 && (memoryType.PropertyFlags&properties) == properties {
			return i, nil
		}
	}
	return 0, errors.Errorf("no memory type matches filter %#x with properties %s", typeFilter, properties)
}

func (d *Device) findSupportedFormat(formats []core1_0.Format, tiling core1_0.ImageTiling, features core1_0.FormatFeatureFlags) (core1_0.Format, error) {
	for _, format := range formats {
		props := d.instance.driver.GetPhysicalDeviceFormatProperties(d.physical, format)

		if tiling == core1_0.ImageTilingLinear && (props.LinearTilingFeatures&features) == features {
			return format, nil
		} else if tiling == core1_0.ImageTilingOptimal && (props.OptimalTilingFeatures&features) == features {
			return format, nil
		}
	}
	return 0, errors.Errorf("no supported format for tiling %s, features %s", tiling, features)
}

func (d *Device) findDepthFormat() (core1_0.Format, error) {
	return d.findSupportedFormat(
		[]core1_0.Format{
			core1_0.FormatD32SignedFloat,
			core1_0.FormatD32SignedFloatS8UnsignedInt,
			core1_0.FormatD24UnsignedNormalizedS8UnsignedInt,
		},
		core1_0.ImageTilingOptimal,
		core1_0.FormatFeatureDepthStencilAttachment)
}

// WaitIdle blocks until the device finishes all submitted work.
func (d *Device) WaitIdle() error {
	_, err := d.driver.DeviceWaitIdle()
	return err
}

func (d *Device) Destroy() {
	if d.driver != nil {
		d.driver.DestroyDevice(nil)
		d.driver = nil
	}
}
