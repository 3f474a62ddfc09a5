package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// pipelineKey identifies a cached render pipeline by everything that
// affects its fixed-function state: the shader pair, the topology, the
// depth and culling switches, and the vertex layout signature.
type pipelineKey struct {
	vs        ShaderModuleID
	fs        ShaderModuleID
	topology  Topology
	depthTest bool
	culling   bool
	layout    string
}

// layoutSignature folds a vertex layout into a cache key component.
func layoutSignature(stride uint32, attrs []VertexAttribute) string {
	sig := fmt.Sprintf("s%d", stride)
	for _, a := range attrs {
		sig += fmt.Sprintf("/%d:%dx%d", a.Location, a.Components, a.Offset)
	}
	return sig
}

func halTopology(t Topology) gputypes.PrimitiveTopology {
	switch t {
	case TopologyPoints:
		return gputypes.PrimitiveTopologyPointList
	case TopologyLines:
		return gputypes.PrimitiveTopologyLineList
	case TopologyLineStrip:
		return gputypes.PrimitiveTopologyLineStrip
	case TopologyTriangleStrip:
		return gputypes.PrimitiveTopologyTriangleStrip
	default:
		return gputypes.PrimitiveTopologyTriangleList
	}
}

func halVertexFormat(components uint32) gputypes.VertexFormat {
	switch components {
	case 1:
		return gputypes.VertexFormatFloat32
	case 2:
		return gputypes.VertexFormatFloat32x2
	case 3:
		return gputypes.VertexFormatFloat32x3
	default:
		return gputypes.VertexFormatFloat32x4
	}
}

// pipelineFor returns a render pipeline matching the current draw state
// and the given vertex array, creating and caching it on first use.
func (d *HALDevice) pipelineFor(va *vertexArray) (hal.RenderPipeline, error) {
	key := pipelineKey{
		vs:        d.progVS,
		fs:        d.progFS,
		topology:  va.topology,
		depthTest: d.depthTest,
		culling:   d.cullFaces,
		layout:    layoutSignature(va.stride, va.attributes),
	}
	if p, ok := d.pipelines[key]; ok {
		return p, nil
	}

	vsModule, ok := d.shaders[d.progVS]
	if !ok {
		return nil, ErrUnknownShaderModule
	}
	fsModule, ok := d.shaders[d.progFS]
	if !ok {
		return nil, ErrUnknownShaderModule
	}

	attrs := make([]gputypes.VertexAttribute, len(va.attributes))
	for i, a := range va.attributes {
		attrs[i] = gputypes.VertexAttribute{
			Format:         halVertexFormat(a.Components),
			Offset:         uint64(a.Offset),
			ShaderLocation: a.Location,
		}
	}
	vertexLayout := []gputypes.VertexBufferLayout{{
		ArrayStride: uint64(va.stride),
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes:  attrs,
	}}

	depthCompare := gputypes.CompareFunctionAlways
	if d.depthTest {
		depthCompare = gputypes.CompareFunctionLess
	}
	cullMode := gputypes.CullModeNone
	if d.cullFaces {
		cullMode = gputypes.CullModeBack
	}

	pipeline, err := d.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "g3_pipeline",
		Layout: d.pipelineLayout,
		Vertex: hal.VertexState{
			Module:     vsModule,
			EntryPoint: "vs_main",
			Buffers:    vertexLayout,
		},
		Fragment: &hal.FragmentState{
			Module:     fsModule,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{{
				Format:    gputypes.TextureFormatBGRA8Unorm,
				Blend:     blendStatePremultipliedPtr(),
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
		DepthStencil: &hal.DepthStencilState{
			Format:            gputypes.TextureFormatDepth24PlusStencil8,
			DepthWriteEnabled: d.depthTest,
			DepthCompare:      depthCompare,
			StencilFront: hal.StencilFaceState{
				Compare:     gputypes.CompareFunctionAlways,
				FailOp:      hal.StencilOperationKeep,
				DepthFailOp: hal.StencilOperationKeep,
				PassOp:      hal.StencilOperationKeep,
			},
			StencilBack: hal.StencilFaceState{
				Compare:     gputypes.CompareFunctionAlways,
				FailOp:      hal.StencilOperationKeep,
				DepthFailOp: hal.StencilOperationKeep,
				PassOp:      hal.StencilOperationKeep,
			},
			StencilReadMask:  0xFF,
			StencilWriteMask: 0xFF,
		},
		Multisample: gputypes.MultisampleState{
			Count: d.samples,
			Mask:  0xFFFFFFFF,
		},
		Primitive: gputypes.PrimitiveState{
			Topology: halTopology(va.topology),
			CullMode: cullMode,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create render pipeline: %w", err)
	}

	d.pipelines[key] = pipeline
	return pipeline, nil
}

func blendStatePremultipliedPtr() *gputypes.BlendState {
	b := gputypes.BlendStatePremultiplied()
	return &b
}
