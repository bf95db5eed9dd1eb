package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

// spirvWords reassembles SPIR-V bytecode into the 32-bit words the driver
// expects. SPIR-V is always little-endian on disk.
func spirvWords(code []byte) ([]uint32, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, errors.Errorf("invalid SPIR-V bytecode: %d bytes", len(code))
	}

	words := make([]uint32, len(code)/4)
	for i := 0; i < len(words); i++ {
		byteIndex := i * 4
		words[i] = 0
		words[i] |= uint32(code[byteIndex])
		words[i] |= uint32(code[byteIndex+1]) << 8
		words[i] |= uint32(code[byteIndex+2]) << 16
		words[i] |= uint32(code[byteIndex+3]) << 24
	}

	return words, nil
}

func newDescriptorSetLayout(device *Device) (core1_0.DescriptorSetLayout, error) {
	layout, _, err := device.driver.CreateDescriptorSetLayout(nil, core1_0.DescriptorSetLayoutCreateInfo{
		Bindings: []core1_0.DescriptorSetLayoutBinding{
			{
				Binding:         0,
				DescriptorType:  core1_0.DescriptorTypeUniformBuffer,
				DescriptorCount: 1,

				StageFlags: core1_0.StageVertex,
			},
			{
				Binding:         1,
				DescriptorType:  core1_0.DescriptorTypeCombinedImageSampler,
				DescriptorCount: 1,

				StageFlags: core1_0.StageFragment,
			},
		},
	})
	return layout, err
}

// newRenderPass builds the single-subpass render pass for the scene. With
// multisampling the color target renders into an MSAA attachment and
// resolves into the swapchain image; at one sample the swapchain image is
// the color target itself and no resolve attachment exists.
func newRenderPass(device *Device, colorFormat core1_0.Format, samples core1_0.SampleCountFlags) (core1_0.RenderPass, error) {
	depthFormat, err := device.findDepthFormat()
	if err != nil {
		return core1_0.RenderPass{}, err
	}

	colorFinalLayout := core1_0.ImageLayoutColorAttachmentOptimal
	if samples == core1_0.Samples1 {
		colorFinalLayout = khr_swapchain.ImageLayoutPresentSrc
	}

	attachments := []core1_0.AttachmentDescription{
		{
			Format:         colorFormat,
			Samples:        samples,
			LoadOp:         core1_0.AttachmentLoadOpClear,
			StoreOp:        core1_0.AttachmentStoreOpStore,
			StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
			StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
			InitialLayout:  core1_0.ImageLayoutUndefined,
			FinalLayout:    colorFinalLayout,
		},
		{
			Format:         depthFormat,
			Samples:        samples,
			LoadOp:         core1_0.AttachmentLoadOpClear,
			StoreOp:        core1_0.AttachmentStoreOpDontCare,
			StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
			StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
			InitialLayout:  core1_0.ImageLayoutUndefined,
			FinalLayout:    core1_0.ImageLayoutDepthStencilAttachmentOptimal,
		},
	}

	subpass := core1_0.SubpassDescription{
		PipelineBindPoint: core1_0.PipelineBindPointGraphics,
		ColorAttachments: []core1_0.AttachmentReference{
			{
				Attachment: 0,
				Layout:     core1_0.ImageLayoutColorAttachmentOptimal,
			},
		},
		DepthStencilAttachment: &core1_0.AttachmentReference{
			Attachment: 1,
			Layout:     core1_0.ImageLayoutDepthStencilAttachmentOptimal,
		},
	}

	if samples != core1_0.Samples1 {
		attachments = append(attachments, core1_0.AttachmentDescription{
			Format:         colorFormat,
			Samples:        core1_0.Samples1,
			LoadOp:         core1_0.AttachmentLoadOpDontCare,
			StoreOp:        core1_0.AttachmentStoreOpStore,
			StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
			StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
			InitialLayout:  core1_0.ImageLayoutUndefined,
			FinalLayout:    khr_swapchain.ImageLayoutPresentSrc,
		})
		subpass.ResolveAttachments = []core1_0.AttachmentReference{
			{
				Attachment: 2,
				Layout:     core1_0.ImageLayoutColorAttachmentOptimal,
			},
		}
	}

	renderPass, _, err := device.driver.CreateRenderPass(nil, core1_0.RenderPassCreateInfo{
		Attachments: attachments,
		Subpasses:   []core1_0.SubpassDescription{subpass},
		SubpassDependencies: []core1_0.SubpassDependency{
			{
				SrcSubpass: core1_0.SubpassExternal,
				DstSubpass: 0,

				SrcStageMask:  core1_0.PipelineStageColorAttachmentOutput | core1_0.PipelineStageEarlyFragmentTests,
				SrcAccessMask: 0,

				DstStageMask:  core1_0.PipelineStageColorAttachmentOutput | core1_0.PipelineStageEarlyFragmentTests,
				DstAccessMask: core1_0.AccessColorAttachmentWrite | core1_0.AccessDepthStencilAttachmentWrite,
			},
		},
	})
	return renderPass, err
}

type pipelineParams struct {
	SetLayout  core1_0.DescriptorSetLayout
	RenderPass core1_0.RenderPass
	Extent     core1_0.Extent2D
	Samples    core1_0.SampleCountFlags

	VertexShader   []byte
	FragmentShader []byte
}

func newGraphicsPipeline(device *Device, params pipelineParams) (core1_0.PipelineLayout, core1_0.Pipeline, error) {
	vertCode, err := spirvWords(params.VertexShader)
	if err != nil {
		return core1_0.PipelineLayout{}, core1_0.Pipeline{}, errors.Wrap(err, "vertex shader")
	}

	vertShader, _, err := device.driver.CreateShaderModule(nil, core1_0.ShaderModuleCreateInfo{
		Code: vertCode,
	})
	if err != nil {
		return core1_0.PipelineLayout{}, core1_0.Pipeline{}, err
	}
	defer device.driver.DestroyShaderModule(vertShader, nil)

	fragCode, err := spirvWords(params.FragmentShader)
	if err != nil {
		return core1_0.PipelineLayout{}, core1_0.Pipeline{}, errors.Wrap(err, "fragment shader")
	}

	fragShader, _, err := device.driver.CreateShaderModule(nil, core1_0.ShaderModuleCreateInfo{
		Code: fragCode,
	})
	if err != nil {
		return core1_0.PipelineLayout{}, core1_0.Pipeline{}, err
	}
	defer device.driver.DestroyShaderModule(fragShader, nil)

	vertexInput := &core1_0.PipelineVertexInputStateCreateInfo{
		VertexBindingDescriptions:   vertexBindingDescriptions(),
		VertexAttributeDescriptions: vertexAttributeDescriptions(),
	}

	inputAssembly := &core1_0.PipelineInputAssemblyStateCreateInfo{
		Topology:               core1_0.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: false,
	}

	vertStage := core1_0.PipelineShaderStageCreateInfo{
		Stage:  core1_0.StageVertex,
		Module: vertShader,
		Name:   "main",
	}

	fragStage := core1_0.PipelineShaderStageCreateInfo{
		Stage:  core1_0.StageFragment,
		Module: fragShader,
		Name:   "main",
	}

	viewport := &core1_0.PipelineViewportStateCreateInfo{
		Viewports: []core1_0.Viewport{
			{
				X:        0,
				Y:        0,
				Width:    float32(params.Extent.Width),
				Height:   float32(params.Extent.Height),
				MinDepth: 0,
				MaxDepth: 1,
			},
		},
		Scissors: []core1_0.Rect2D{
			{
				Offset: core1_0.Offset2D{X: 0, Y: 0},
				Extent: params.Extent,
			},
		},
	}

	rasterization := &core1_0.PipelineRasterizationStateCreateInfo{
		DepthClampEnable:        false,
		RasterizerDiscardEnable: false,

		PolygonMode: core1_0.PolygonModeFill,
		CullMode:    core1_0.CullModeBack,
		FrontFace:   core1_0.FrontFaceCounterClockwise,

		DepthBiasEnable: false,

		LineWidth: 1.0,
	}

	multisample := &core1_0.PipelineMultisampleStateCreateInfo{
		SampleShadingEnable:  false,
		RasterizationSamples: params.Samples,
		MinSampleShading:     1.0,
	}

	depthStencil := &core1_0.PipelineDepthStencilStateCreateInfo{
		DepthTestEnable:  true,
		DepthWriteEnable: true,
		DepthCompareOp:   core1_0.CompareOpLess,
	}

	colorBlend := &core1_0.PipelineColorBlendStateCreateInfo{
		LogicOpEnabled: false,
		LogicOp:        core1_0.LogicOpCopy,

		BlendConstants: [4]float32{0, 0, 0, 0},
		Attachments: []core1_0.PipelineColorBlendAttachmentState{
			{
				BlendEnabled:   false,
				ColorWriteMask: core1_0.ColorComponentRed | core1_0.ColorComponentGreen | core1_0.ColorComponentBlue | core1_0.ColorComponentAlpha,
			},
		},
	}

	pipelineLayout, _, err := device.driver.CreatePipelineLayout(nil, core1_0.PipelineLayoutCreateInfo{
		SetLayouts: []core1_0.DescriptorSetLayout{
			params.SetLayout,
		},
	})
	if err != nil {
		return core1_0.PipelineLayout{}, core1_0.Pipeline{}, err
	}

	pipelines, _, err := device.driver.CreateGraphicsPipelines(nil, nil,
		core1_0.GraphicsPipelineCreateInfo{
			Stages: []core1_0.PipelineShaderStageCreateInfo{
				vertStage,
				fragStage,
			},
			VertexInputState:   vertexInput,
			InputAssemblyState: inputAssembly,
			ViewportState:      viewport,
			RasterizationState: rasterization,
			MultisampleState:   multisample,
			DepthStencilState:  depthStencil,
			ColorBlendState:    colorBlend,
			Layout:             pipelineLayout,
			RenderPass:         params.RenderPass,
			Subpass:            0,
			BasePipelineIndex:  -1,
		},
	)
	if err != nil {
		device.driver.DestroyPipelineLayout(pipelineLayout, nil)
		return core1_0.PipelineLayout{}, core1_0.Pipeline{}, err
	}

	return pipelineLayout, pipelines[0], nil
}
