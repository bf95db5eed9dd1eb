package vulkan

import (
	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"
	core "github.com/vkngwrapper/core/v3"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v3/khr_portability_enumeration"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	vkng_sdl2 "github.com/vkngwrapper/integrations/sdl2/v3"
)

var validationLayers = []string{"VK_LAYER_KHRONOS_validation"}

// Instance owns the Vulkan instance, the window surface, and the optional
// debug messenger that forwards validation output to the logger.
type Instance struct {
	log *log.Logger

	global core1_0.GlobalDriver
	driver core1_0.CoreInstanceDriver

	debugDriver ext_debug_utils.ExtensionDriver
	messenger   ext_debug_utils.DebugUtilsMessenger

	surfaceExtension khr_surface.ExtensionDriver
	surface          khr_surface.Surface
}

// NewInstance creates the instance with the extensions the window needs,
// plus portability enumeration when the platform offers it. With validation
// enabled the khronos layer must be installed; its messages are logged.
func NewInstance(window *sdl.Window, appName string, validation bool, logger *log.Logger) (*Instance, error) {
	instance := &Instance{log: logger}

	var err error
	instance.global, err = core.CreateDriverFromProcAddr(sdl.VulkanGetVkGetInstanceProcAddr())
	if err != nil {
		return nil, errors.Wrap(err, "load vulkan driver")
	}

	createInfo := core1_0.InstanceCreateInfo{
		ApplicationName:    appName,
		ApplicationVersion: common.CreateVersion(1, 0, 0),
		EngineName:         "vulkan-renderer",
		EngineVersion:      common.CreateVersion(1, 0, 0),
		APIVersion:         common.Vulkan1_2,
	}

	sdlExtensions := window.VulkanGetInstanceExtensions()
	extensions, _, err := instance.global.AvailableExtensions()
	if err != nil {
		return nil, errors.Wrap(err, "enumerate instance extensions")
	}

	for _, ext := range sdlExtensions {
		_, hasExt := extensions[ext]
		if !hasExt {
			return nil, errors.Errorf("window requires missing instance extension %s", ext)
		}
		createInfo.EnabledExtensionNames = append(createInfo.EnabledExtensionNames, ext)
	}

	if validation {
		createInfo.EnabledExtensionNames = append(createInfo.EnabledExtensionNames, ext_debug_utils.ExtensionName)
	}

	_, enumerationSupported := extensions[khr_portability_enumeration.ExtensionName]
	if enumerationSupported {
		createInfo.EnabledExtensionNames = append(createInfo.EnabledExtensionNames, khr_portability_enumeration.ExtensionName)
		createInfo.Flags |= khr_portability_enumeration.InstanceCreateEnumeratePortability
	}

	if validation {
		layers, _, err := instance.global.AvailableLayers()
		if err != nil {
			return nil, errors.Wrap(err, "enumerate instance layers")
		}
		for _, layer := range validationLayers {
			_, hasLayer := layers[layer]
			if !hasLayer {
				return nil, errors.Errorf("validation layer %s not available, install the LunarG Vulkan SDK or disable validation", layer)
			}
			createInfo.EnabledLayerNames = append(createInfo.EnabledLayerNames, layer)
		}
		createInfo.Next = instance.messengerCreateInfo()
	}

	instance.driver, _, err = instance.global.CreateInstance(nil, createInfo)
	if err != nil {
		return nil, errors.Wrap(err, "create instance")
	}

	if validation {
		instance.debugDriver = ext_debug_utils.CreateExtensionDriverFromCoreDriver(instance.driver)
		instance.messenger, _, err = instance.debugDriver.CreateDebugUtilsMessenger(nil, instance.messengerCreateInfo())
		if err != nil {
			instance.Destroy()
			return nil, errors.Wrap(err, "create debug messenger")
		}
	}

	instance.surfaceExtension = khr_surface.CreateExtensionDriverFromCoreDriver(instance.driver)
	instance.surface, err = vkng_sdl2.CreateSurface(instance.driver.Instance(), instance.surfaceExtension, window)
	if err != nil {
		instance.Destroy()
		return nil, errors.Wrap(err, "create window surface")
	}

	return instance, nil
}

func (i *Instance) messengerCreateInfo() ext_debug_utils.DebugUtilsMessengerCreateInfo {
	return ext_debug_utils.DebugUtilsMessengerCreateInfo{
		MessageSeverity: ext_debug_utils.SeverityError | ext_debug_utils.SeverityWarning,
		MessageType:     ext_debug_utils.TypeGeneral | ext_debug_utils.TypeValidation | ext_debug_utils.TypePerformance,
		UserCallback:    i.logValidationMessage,
	}
}

func (i *Instance) logValidationMessage(msgType ext_debug_utils.DebugUtilsMessageTypeFlags, severity ext_debug_utils.DebugUtilsMessageSeverityFlags, data *ext_debug_utils.DebugUtilsMessengerCallbackData) bool {
	switch {
	case severity&ext_debug_utils.SeverityError != 0:
		i.log.Error("validation", "type", msgType.String(), "message", data.Message)
	case severity&ext_debug_utils.SeverityWarning != 0:
		i.log.Warn("validation", "type", msgType.String(), "message", data.Message)
	default:
		i.log.Debug("validation", "type", msgType.String(), "message", data.Message)
	}
	return false
}

func (i *Instance) Destroy() {
	if i.surface.Initialized() {
		i.surfaceExtension.DestroySurface(i.surface, nil)
		i.surface = khr_surface.Surface{}
	}
	if i.messenger.Initialized() {
		i.debugDriver.DestroyDebugUtilsMessenger(i.messenger, nil)
		i.messenger = ext_debug_utils.DebugUtilsMessenger{}
	}
	if i.driver != nil {
		i.driver.DestroyInstance(nil)
		i.driver = nil
	}
}
