package core

import (
	"fmt"

	vk "github.com/devblok/vulkan"
	log "github.com/sirupsen/logrus"

	"github.com/devblok/pyx/core/deletion"
	"github.com/devblok/pyx/model"
)

// Pipeline is the graphics pipeline with its layout and render pass
type Pipeline struct {
	layout     vk.PipelineLayout
	renderPass vk.RenderPass
	pipeline   vk.Pipeline
}

// Handle returns the underlying vk.Pipeline
func (p *Pipeline) Handle() vk.Pipeline {
	return p.pipeline
}

// RenderPass returns the render pass the pipeline draws in
func (p *Pipeline) RenderPass() vk.RenderPass {
	return p.renderPass
}

// NewPipeline builds the graphics pipeline drawing model.Vertex data into
// images of format. Shader modules only live until the pipeline is built,
// the pipeline itself is released by queue.
func NewPipeline(device *Device, format vk.Format, vertex, fragment ShaderFile, queue *deletion.Queue, logger log.FieldLogger) (*Pipeline, error) {
	logger = logger.WithField("component", "pipeline")
	logical := device.Logical()

	stages := make([]vk.PipelineShaderStageCreateInfo, 0, 2)
	for _, shader := range []ShaderFile{vertex, fragment} {
		module, handle, err := createShaderModule(logical, shader, queue)
		if err != nil {
			return nil, err
		}
		defer func(module vk.ShaderModule, handle deletion.Handle) {
			queue.Remove(handle)
			vk.DestroyShaderModule(logical, module, nil)
		}(module, handle)

		stages = append(stages, vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  shaderStage(shader.Type),
			Module: module,
			PName:  safeString("main"),
		})
	}

	plci := vk.PipelineLayoutCreateInfo{
		SType: vk.StructureTypePipelineLayoutCreateInfo,
	}
	var layout vk.PipelineLayout
	if err := vk.Error(vk.CreatePipelineLayout(logical, &plci, nil, &layout)); err != nil {
		return nil, fmt.Errorf("vk.CreatePipelineLayout(): %w", err)
	}

	renderPass, err := createRenderPass(logical, format)
	if err != nil {
		vk.DestroyPipelineLayout(logical, layout, nil)
		return nil, err
	}

	bindings := model.VertexBindingDescriptions()
	attributes := model.VertexAttributeDescriptions()

	gpci := []vk.GraphicsPipelineCreateInfo{{
		SType:      vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount: uint32(len(stages)),
		PStages:    stages,
		PVertexInputState: &vk.PipelineVertexInputStateCreateInfo{
			SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
			VertexBindingDescriptionCount:   uint32(len(bindings)),
			PVertexBindingDescriptions:      bindings,
			VertexAttributeDescriptionCount: uint32(len(attributes)),
			PVertexAttributeDescriptions:    attributes,
		},
		PInputAssemblyState: &vk.PipelineInputAssemblyStateCreateInfo{
			SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
			Topology: vk.PrimitiveTopologyTriangleList,
		},
		PViewportState: &vk.PipelineViewportStateCreateInfo{
			SType:         vk.StructureTypePipelineViewportStateCreateInfo,
			ViewportCount: 1,
			ScissorCount:  1,
		},
		PRasterizationState: &vk.PipelineRasterizationStateCreateInfo{
			SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
			PolygonMode: vk.PolygonModeFill,
			CullMode:    vk.CullModeFlags(vk.CullModeBackBit),
			FrontFace:   vk.FrontFaceClockwise,
			LineWidth:   1.0,
		},
		PMultisampleState: &vk.PipelineMultisampleStateCreateInfo{
			SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
			RasterizationSamples: vk.SampleCount1Bit,
		},
		PColorBlendState: &vk.PipelineColorBlendStateCreateInfo{
			SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
			AttachmentCount: 1,
			PAttachments: []vk.PipelineColorBlendAttachmentState{{
				BlendEnable:         vk.True,
				SrcColorBlendFactor: vk.BlendFactorSrcAlpha,
				DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
				ColorBlendOp:        vk.BlendOpAdd,
				SrcAlphaBlendFactor: vk.BlendFactorOne,
				DstAlphaBlendFactor: vk.BlendFactorZero,
				AlphaBlendOp:        vk.BlendOpAdd,
				ColorWriteMask:      0xF,
			}},
		},
		PDynamicState: &vk.PipelineDynamicStateCreateInfo{
			SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
			DynamicStateCount: 2,
			PDynamicStates: []vk.DynamicState{
				vk.DynamicStateViewport,
				vk.DynamicStateScissor,
			},
		},
		Layout:     layout,
		RenderPass: renderPass,
	}}

	pipelines := make([]vk.Pipeline, len(gpci))
	if err := vk.Error(vk.CreateGraphicsPipelines(logical, nil, uint32(len(gpci)), gpci, nil, pipelines)); err != nil {
		vk.DestroyRenderPass(logical, renderPass, nil)
		vk.DestroyPipelineLayout(logical, layout, nil)
		return nil, fmt.Errorf("vk.CreateGraphicsPipelines(): %w", err)
	}
	pipeline := pipelines[0]

	queue.Push(func() {
		vk.DestroyPipeline(logical, pipeline, nil)
		vk.DestroyPipelineLayout(logical, layout, nil)
		vk.DestroyRenderPass(logical, renderPass, nil)
	})

	logger.WithFields(log.Fields{
		"vertex":   vertex.Name,
		"fragment": fragment.Name,
	}).Info("pipeline created")

	return &Pipeline{
		layout:     layout,
		renderPass: renderPass,
		pipeline:   pipeline,
	}, nil
}

func shaderStage(t ShaderType) vk.ShaderStageFlagBits {
	if t == FragmentShaderType {
		return vk.ShaderStageFragmentBit
	}
	return vk.ShaderStageVertexBit
}

func createShaderModule(device vk.Device, shader ShaderFile, queue *deletion.Queue) (vk.ShaderModule, deletion.Handle, error) {
	if len(shader.Code) == 0 || len(shader.Code)%4 != 0 {
		return nil, 0, fmt.Errorf("shader %s (%s): code size %d is not a multiple of 4", shader.Name, shader.Type, len(shader.Code))
	}

	smci := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(shader.Code)),
		PCode:    SliceUint32(shader.Code),
	}

	var module vk.ShaderModule
	if err := vk.Error(vk.CreateShaderModule(device, &smci, nil, &module)); err != nil {
		return nil, 0, fmt.Errorf("vk.CreateShaderModule(%s %s): %w", shader.Name, shader.Type, err)
	}

	handle := queue.Push(func() {
		vk.DestroyShaderModule(device, module, nil)
	})
	return module, handle, nil
}

func createRenderPass(device vk.Device, format vk.Format) (vk.RenderPass, error) {
	attachments := []vk.AttachmentDescription{{
		Format:         format,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}}

	colorAttachmentRef := []vk.AttachmentReference{{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}}

	rpci := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses: []vk.SubpassDescription{{
			PipelineBindPoint:    vk.PipelineBindPointGraphics,
			ColorAttachmentCount: uint32(len(colorAttachmentRef)),
			PColorAttachments:    colorAttachmentRef,
		}},
		DependencyCount: 1,
		PDependencies: []vk.SubpassDependency{{
			SrcSubpass:    vk.SubpassExternal,
			DstSubpass:    0,
			SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
		}},
	}

	var renderPass vk.RenderPass
	if err := vk.Error(vk.CreateRenderPass(device, &rpci, nil, &renderPass)); err != nil {
		return nil, fmt.Errorf("vk.CreateRenderPass(): %w", err)
	}
	return renderPass, nil
}
