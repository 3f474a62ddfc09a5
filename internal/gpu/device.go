// Package gpu provides the GPU device layer for g3 using gogpu/wgpu.
//
// The package exposes a small set of device primitives (buffers, shader
// modules, vertex arrays, draw submission) behind the Device interface.
// The HAL-backed implementation lives in hal.go; tests exercise it with
// the wgpu noop backend.
package gpu

import "errors"

// Device errors.
var (
	// ErrNoGPU is returned when no usable GPU backend or adapter is found.
	ErrNoGPU = errors.New("gpu: no GPU adapter available")

	// ErrDeviceDestroyed is returned when operating on a destroyed device.
	ErrDeviceDestroyed = errors.New("gpu: device has been destroyed")

	// ErrUnknownBuffer is returned when a buffer handle is not recognized.
	ErrUnknownBuffer = errors.New("gpu: unknown buffer handle")

	// ErrUnknownShaderModule is returned when a shader module handle is
	// not recognized.
	ErrUnknownShaderModule = errors.New("gpu: unknown shader module handle")

	// ErrUnknownVertexArray is returned when a vertex array handle is not
	// recognized.
	ErrUnknownVertexArray = errors.New("gpu: unknown vertex array handle")

	// ErrNoVertexArrayBound is returned by DrawIndexed when no vertex
	// array is bound.
	ErrNoVertexArrayBound = errors.New("gpu: no vertex array bound")

	// ErrNoProgramBound is returned by DrawIndexed when no shader program
	// is active.
	ErrNoProgramBound = errors.New("gpu: no shader program bound")

	// ErrInvalidBufferSize is returned when a buffer size is not positive.
	ErrInvalidBufferSize = errors.New("gpu: invalid buffer size")
)

// BufferID is an opaque handle to a device buffer. The zero value means
// "no buffer".
type BufferID uint64

// ShaderModuleID is an opaque handle to a compiled shader module. The
// zero value means "no module".
type ShaderModuleID uint64

// VertexArrayID is an opaque handle to a vertex array: the recorded
// association of a vertex buffer, an index buffer, an attribute layout,
// and a topology. The zero value means "no vertex array" and may be
// passed to BindVertexArray to unbind.
type VertexArrayID uint64

// BufferUsage specifies how a buffer will be used.
type BufferUsage int

const (
	// BufferUsageVertex marks a buffer holding interleaved vertex data.
	BufferUsageVertex BufferUsage = iota
	// BufferUsageIndex marks a buffer holding uint32 index data.
	BufferUsageIndex
	// BufferUsageUniform marks a buffer holding shader uniform data.
	BufferUsageUniform
)

// Topology is the device-level primitive topology. Only topologies the
// underlying API supports natively appear here; see ExpandIndices for
// the line-loop and triangle-fan forms.
type Topology int

const (
	// TopologyPoints draws isolated points.
	TopologyPoints Topology = iota
	// TopologyLines draws isolated segments from index pairs.
	TopologyLines
	// TopologyLineStrip draws a connected polyline.
	TopologyLineStrip
	// TopologyTriangles draws isolated triangles from index triples.
	TopologyTriangles
	// TopologyTriangleStrip draws a strip of triangles sharing edges.
	TopologyTriangleStrip
)

// VertexAttribute describes one interleaved float32 attribute.
type VertexAttribute struct {
	// Location is the shader attribute location.
	Location uint32
	// Components is the number of float32 components (1..4).
	Components uint32
	// Offset is the byte offset within one vertex.
	Offset uint32
}

// VertexArrayDescriptor describes a vertex array to create. The buffers
// must already exist and are not owned by the vertex array: destroying
// the array does not release them.
type VertexArrayDescriptor struct {
	// Label is an optional debug name.
	Label string
	// VertexBuffer holds the interleaved vertex data.
	VertexBuffer BufferID
	// IndexBuffer holds uint32 indices.
	IndexBuffer BufferID
	// Stride is the byte stride of one vertex.
	Stride uint32
	// Attributes describes the interleaved layout.
	Attributes []VertexAttribute
	// Topology is how indices are interpreted when drawing.
	Topology Topology
}

// Uniforms carries per-draw uniform values. Nil fields mean the active
// shader does not declare the corresponding uniform and nothing is
// written for it.
type Uniforms struct {
	// MVP is the composed model-view-projection matrix in column-major
	// order.
	MVP *[16]float32
	// Time is the elapsed time in seconds since session start.
	Time *float32
}

// Device is the capability g3 requires from a graphics device: buffer
// and shader-module lifecycle, vertex array binding, a handful of
// pipeline state switches, and indexed draw submission.
//
// The interface is handle-based so the public g3 API never exposes
// backend types. A Device is confined to the rendering thread; it is
// not safe for concurrent use.
type Device interface {
	// CreateBuffer allocates a device buffer of the given byte size.
	CreateBuffer(size int, usage BufferUsage, label string) (BufferID, error)
	// WriteBuffer uploads data into a buffer at the given byte offset.
	WriteBuffer(id BufferID, offset uint64, data []byte) error
	// DestroyBuffer releases a buffer. Unknown handles are ignored.
	DestroyBuffer(id BufferID)

	// CreateShaderModule compiles WGSL source into a shader module.
	CreateShaderModule(wgsl, label string) (ShaderModuleID, error)
	// DestroyShaderModule releases a shader module. Unknown handles are
	// ignored.
	DestroyShaderModule(id ShaderModuleID)

	// CreateVertexArray records a vertex layout over existing buffers.
	CreateVertexArray(desc *VertexArrayDescriptor) (VertexArrayID, error)
	// BindVertexArray makes a vertex array current; zero unbinds.
	BindVertexArray(id VertexArrayID)
	// DestroyVertexArray releases a vertex array. Unknown handles are
	// ignored.
	DestroyVertexArray(id VertexArrayID)

	// UseProgram selects the shader modules for subsequent draws.
	UseProgram(vertex, fragment ShaderModuleID)

	// SetClearColor sets the color used by Clear.
	SetClearColor(r, g, b, a float32)
	// SetDepthTest enables or disables less-than depth testing.
	SetDepthTest(enabled bool)
	// SetFaceCulling enables or disables back-face culling (CCW front).
	SetFaceCulling(enabled bool)
	// SetLineWidth sets the rasterized line width. Backends without line
	// width support treat this as a logged no-op.
	SetLineWidth(width float32)

	// Clear clears the color and depth buffers.
	Clear() error
	// DrawIndexed draws indexCount indices of the bound vertex array
	// with the active program and the given uniforms.
	DrawIndexed(indexCount int, uniforms Uniforms) error
	// Flush submits all recorded work and waits for completion.
	Flush() error
	// Readback returns the current render target contents as tightly
	// packed RGBA8, width*height*4 bytes.
	Readback() ([]byte, error)

	// Size returns the render target dimensions in pixels.
	Size() (width, height int)
	// Resize recreates the render targets at the given dimensions.
	Resize(width, height int) error

	// Destroy releases all device resources. The device must not be
	// used afterwards.
	Destroy()
}

// ExpandIndices rewrites an index list for a requested primitive kind
// into a natively supported topology. Line loops become line strips
// closed with a repeated first index; triangle fans are expanded into
// independent triangles sharing the first index. All other kinds pass
// through unchanged.
//
// The kind values mirror g3.PrimitiveKind ordering.
func ExpandIndices(kind int, indices []uint32) (Topology, []uint32) {
	const (
		kindPoints = iota
		kindLines
		kindLineLoop
		kindLineStrip
		kindTriangles
		kindTriangleFan
		kindTriangleStrip
	)

	switch kind {
	case kindPoints:
		return TopologyPoints, indices
	case kindLines:
		return TopologyLines, indices
	case kindLineLoop:
		if len(indices) < 2 {
			return TopologyLineStrip, indices
		}
		closed := make([]uint32, 0, len(indices)+1)
		closed = append(closed, indices...)
		closed = append(closed, indices[0])
		return TopologyLineStrip, closed
	case kindLineStrip:
		return TopologyLineStrip, indices
	case kindTriangleFan:
		if len(indices) < 3 {
			return TopologyTriangles, nil
		}
		fan := make([]uint32, 0, (len(indices)-2)*3)
		for i := 1; i+1 < len(indices); i++ {
			fan = append(fan, indices[0], indices[i], indices[i+1])
		}
		return TopologyTriangles, fan
	case kindTriangleStrip:
		return TopologyTriangleStrip, indices
	default:
		return TopologyTriangles, indices
	}
}
