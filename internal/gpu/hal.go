// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// uniformSize is the byte size of the per-draw uniform block: a
// column-major mat4x4 followed by a float time, padded to the 16-byte
// struct alignment WGSL requires.
const uniformSize = 80

// gpuWaitTimeout bounds fence waits on submission.
const gpuWaitTimeout = 5 * time.Second

// HALDevice implements Device on top of a gogpu/wgpu HAL device. It
// renders into an offscreen target set and supports CPU readback of the
// resolved frame.
type HALDevice struct {
	device   hal.Device
	queue    hal.Queue
	instance hal.Instance // non-nil when the device was self-opened
	owned    bool

	width   int
	height  int
	samples uint32

	targets targetSet

	nextID  uint64
	buffers map[BufferID]*deviceBuffer
	shaders map[ShaderModuleID]hal.ShaderModule
	arrays  map[VertexArrayID]*vertexArray

	uniformLayout  hal.BindGroupLayout
	pipelineLayout hal.PipelineLayout
	pipelines      map[pipelineKey]hal.RenderPipeline

	// Draw state.
	bound      VertexArrayID
	progVS     ShaderModuleID
	progFS     ShaderModuleID
	clearColor [4]float32
	depthTest  bool
	cullFaces  bool

	// Frame state. The encoder is created lazily on the first Clear or
	// DrawIndexed and retired by Flush. Transient per-draw resources are
	// released after the fence wait.
	encoder      hal.CommandEncoder
	encoding     bool
	pendingClear bool
	frameBufs    []hal.Buffer
	frameGroups  []hal.BindGroup

	destroyed bool
}

type deviceBuffer struct {
	buf   hal.Buffer
	size  uint64
	usage BufferUsage
}

type vertexArray struct {
	vertexBuffer BufferID
	indexBuffer  BufferID
	stride       uint32
	attributes   []VertexAttribute
	topology     Topology
}

// Open creates a HALDevice on a standalone Vulkan device. This is the
// path for running without an external device provider; discrete and
// integrated GPUs are preferred over software adapters.
func Open(width, height int, samples uint32) (*HALDevice, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("%w: vulkan backend not available", ErrNoGPU)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("%w: no adapters found", ErrNoGPU)
	}

	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("open device: %w", err)
	}

	d, err := NewWithHAL(openDev.Device, openDev.Queue, width, height, samples)
	if err != nil {
		openDev.Device.Destroy()
		instance.Destroy()
		return nil, err
	}
	d.instance = instance
	d.owned = true
	slogger().Info("g3: GPU initialized (standalone)", "adapter", selected.Info.Name)
	return d, nil
}

// NewWithHAL creates a HALDevice over an existing HAL device and queue,
// e.g. one shared by a windowing layer. The caller retains ownership of
// the device; Destroy will not close it.
func NewWithHAL(device hal.Device, queue hal.Queue, width, height int, samples uint32) (*HALDevice, error) {
	if samples != 1 && samples != 4 {
		samples = 4
	}
	d := &HALDevice{
		device:  device,
		queue:   queue,
		width:   width,
		height:  height,
		samples: samples,
		buffers: make(map[BufferID]*deviceBuffer),
		shaders: make(map[ShaderModuleID]hal.ShaderModule),
		arrays:  make(map[VertexArrayID]*vertexArray),

		pipelines: make(map[pipelineKey]hal.RenderPipeline),
	}

	if err := d.targets.ensure(device, uint32(width), uint32(height), samples); err != nil {
		return nil, err
	}

	uniformLayout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "g3_uniform_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
		},
	})
	if err != nil {
		d.targets.destroy(device)
		return nil, fmt.Errorf("create uniform bind group layout: %w", err)
	}
	d.uniformLayout = uniformLayout

	pipelineLayout, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "g3_pipeline_layout",
		BindGroupLayouts: []hal.BindGroupLayout{uniformLayout},
	})
	if err != nil {
		device.DestroyBindGroupLayout(uniformLayout)
		d.targets.destroy(device)
		return nil, fmt.Errorf("create pipeline layout: %w", err)
	}
	d.pipelineLayout = pipelineLayout

	return d, nil
}

func (d *HALDevice) allocID() uint64 {
	d.nextID++
	return d.nextID
}

// CreateBuffer allocates a device buffer of the given byte size.
func (d *HALDevice) CreateBuffer(size int, usage BufferUsage, label string) (BufferID, error) {
	if d.destroyed {
		return 0, ErrDeviceDestroyed
	}
	if size <= 0 {
		return 0, ErrInvalidBufferSize
	}

	var halUsage gputypes.BufferUsage
	switch usage {
	case BufferUsageIndex:
		halUsage = gputypes.BufferUsageIndex | gputypes.BufferUsageCopyDst
	case BufferUsageUniform:
		halUsage = gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst
	default:
		halUsage = gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst
	}

	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(size),
		Usage: halUsage,
	})
	if err != nil {
		return 0, fmt.Errorf("create buffer %q: %w", label, err)
	}

	id := BufferID(d.allocID())
	d.buffers[id] = &deviceBuffer{buf: buf, size: uint64(size), usage: usage}
	return id, nil
}

// WriteBuffer uploads data into a buffer at the given byte offset.
func (d *HALDevice) WriteBuffer(id BufferID, offset uint64, data []byte) error {
	if d.destroyed {
		return ErrDeviceDestroyed
	}
	b, ok := d.buffers[id]
	if !ok {
		return ErrUnknownBuffer
	}
	d.queue.WriteBuffer(b.buf, offset, data)
	return nil
}

// DestroyBuffer releases a buffer. Unknown handles are ignored.
func (d *HALDevice) DestroyBuffer(id BufferID) {
	b, ok := d.buffers[id]
	if !ok {
		return
	}
	d.device.DestroyBuffer(b.buf)
	delete(d.buffers, id)
}

// CreateShaderModule compiles WGSL source into a shader module. The
// source is compiled to SPIR-V up front so malformed shaders fail here
// rather than at first draw.
func (d *HALDevice) CreateShaderModule(wgsl, label string) (ShaderModuleID, error) {
	if d.destroyed {
		return 0, ErrDeviceDestroyed
	}
	spirv, err := compileToSPIRV(wgsl)
	if err != nil {
		return 0, fmt.Errorf("compile shader %q: %w", label, err)
	}
	module, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return 0, fmt.Errorf("create shader module %q: %w", label, err)
	}

	id := ShaderModuleID(d.allocID())
	d.shaders[id] = module
	return id, nil
}

// DestroyShaderModule releases a shader module. Unknown handles are
// ignored. Pipelines built from the module stay cached; callers destroy
// the device or avoid reusing stale IDs.
func (d *HALDevice) DestroyShaderModule(id ShaderModuleID) {
	m, ok := d.shaders[id]
	if !ok {
		return
	}
	d.device.DestroyShaderModule(m)
	delete(d.shaders, id)
	if d.progVS == id || d.progFS == id {
		d.progVS, d.progFS = 0, 0
	}
}

// CreateVertexArray records a vertex layout over existing buffers.
func (d *HALDevice) CreateVertexArray(desc *VertexArrayDescriptor) (VertexArrayID, error) {
	if d.destroyed {
		return 0, ErrDeviceDestroyed
	}
	if _, ok := d.buffers[desc.VertexBuffer]; !ok {
		return 0, fmt.Errorf("vertex buffer: %w", ErrUnknownBuffer)
	}
	if _, ok := d.buffers[desc.IndexBuffer]; !ok {
		return 0, fmt.Errorf("index buffer: %w", ErrUnknownBuffer)
	}

	attrs := make([]VertexAttribute, len(desc.Attributes))
	copy(attrs, desc.Attributes)

	id := VertexArrayID(d.allocID())
	d.arrays[id] = &vertexArray{
		vertexBuffer: desc.VertexBuffer,
		indexBuffer:  desc.IndexBuffer,
		stride:       desc.Stride,
		attributes:   attrs,
		topology:     desc.Topology,
	}
	return id, nil
}

// BindVertexArray makes a vertex array current; zero unbinds.
func (d *HALDevice) BindVertexArray(id VertexArrayID) {
	d.bound = id
}

// DestroyVertexArray releases a vertex array. Unknown handles are
// ignored. The referenced buffers are not destroyed.
func (d *HALDevice) DestroyVertexArray(id VertexArrayID) {
	if _, ok := d.arrays[id]; !ok {
		return
	}
	delete(d.arrays, id)
	if d.bound == id {
		d.bound = 0
	}
}

// UseProgram selects the shader modules for subsequent draws.
func (d *HALDevice) UseProgram(vertex, fragment ShaderModuleID) {
	d.progVS = vertex
	d.progFS = fragment
}

// SetClearColor sets the color used by Clear.
func (d *HALDevice) SetClearColor(r, g, b, a float32) {
	d.clearColor = [4]float32{r, g, b, a}
}

// SetDepthTest enables or disables less-than depth testing.
func (d *HALDevice) SetDepthTest(enabled bool) {
	d.depthTest = enabled
}

// SetFaceCulling enables or disables back-face culling.
func (d *HALDevice) SetFaceCulling(enabled bool) {
	d.cullFaces = enabled
}

// SetLineWidth sets the rasterized line width. WebGPU-class backends
// rasterize 1-pixel lines only, so any other width is a logged no-op.
func (d *HALDevice) SetLineWidth(width float32) {
	if width != 1 {
		slogger().Debug("g3: line width not supported by backend", "width", width)
	}
}

// Clear schedules a clear of the color and depth buffers. The clear is
// folded into the next render pass as its load op; if no draw follows,
// Flush emits an empty clearing pass.
func (d *HALDevice) Clear() error {
	if d.destroyed {
		return ErrDeviceDestroyed
	}
	d.pendingClear = true
	return nil
}

// ensureEncoder starts command encoding if no encoder is active.
func (d *HALDevice) ensureEncoder() error {
	if d.encoding {
		return nil
	}
	if d.encoder == nil {
		encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
			Label: "g3_encoder",
		})
		if err != nil {
			return fmt.Errorf("create command encoder: %w", err)
		}
		d.encoder = encoder
	}
	if err := d.encoder.BeginEncoding("g3_frame"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}
	d.encoding = true
	return nil
}

// beginPass opens a render pass over the frame targets. The first pass
// after Clear uses clearing load ops; later passes load the existing
// attachment contents so draws accumulate within the frame.
func (d *HALDevice) beginPass() hal.RenderPassEncoder {
	loadOp := gputypes.LoadOpLoad
	depthLoadOp := gputypes.LoadOpLoad
	if d.pendingClear {
		loadOp = gputypes.LoadOpClear
		depthLoadOp = gputypes.LoadOpClear
	}

	view, resolve := d.targets.attachmentViews()
	rp := d.encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "g3_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:          view,
			ResolveTarget: resolve,
			LoadOp:        loadOp,
			StoreOp:       gputypes.StoreOpStore,
			ClearValue: gputypes.Color{
				R: float64(d.clearColor[0]),
				G: float64(d.clearColor[1]),
				B: float64(d.clearColor[2]),
				A: float64(d.clearColor[3]),
			},
		}},
		DepthStencilAttachment: &hal.RenderPassDepthStencilAttachment{
			View:              d.targets.depthView,
			DepthLoadOp:       depthLoadOp,
			DepthStoreOp:      gputypes.StoreOpStore,
			DepthClearValue:   1.0,
			StencilLoadOp:     depthLoadOp,
			StencilStoreOp:    gputypes.StoreOpStore,
			StencilClearValue: 0,
		},
	})
	d.pendingClear = false
	return rp
}

// packUniforms serializes per-draw uniforms into the 80-byte block the
// default shaders declare. Absent values are written as zeros.
func packUniforms(u Uniforms) []byte {
	data := make([]byte, uniformSize)
	if u.MVP != nil {
		for i, v := range u.MVP {
			binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
		}
	}
	if u.Time != nil {
		binary.LittleEndian.PutUint32(data[64:], math.Float32bits(*u.Time))
	}
	return data
}

// DrawIndexed draws indexCount indices of the bound vertex array with
// the active program and the given uniforms. Each draw runs in its own
// render pass with a freshly uploaded uniform block.
func (d *HALDevice) DrawIndexed(indexCount int, uniforms Uniforms) error {
	if d.destroyed {
		return ErrDeviceDestroyed
	}
	if indexCount <= 0 {
		return nil
	}
	va, ok := d.arrays[d.bound]
	if !ok {
		return ErrNoVertexArrayBound
	}
	if d.progVS == 0 || d.progFS == 0 {
		return ErrNoProgramBound
	}
	vb, ok := d.buffers[va.vertexBuffer]
	if !ok {
		return fmt.Errorf("vertex buffer: %w", ErrUnknownBuffer)
	}
	ib, ok := d.buffers[va.indexBuffer]
	if !ok {
		return fmt.Errorf("index buffer: %w", ErrUnknownBuffer)
	}

	pipeline, err := d.pipelineFor(va)
	if err != nil {
		return err
	}
	if err := d.ensureEncoder(); err != nil {
		return err
	}

	uniformBuf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "g3_draw_uniform",
		Size:  uniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create uniform buffer: %w", err)
	}
	d.frameBufs = append(d.frameBufs, uniformBuf)
	d.queue.WriteBuffer(uniformBuf, 0, packUniforms(uniforms))

	bindGroup, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "g3_draw_bind",
		Layout: d.uniformLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: uniformBuf.NativeHandle(), Offset: 0, Size: uniformSize,
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group: %w", err)
	}
	d.frameGroups = append(d.frameGroups, bindGroup)

	rp := d.beginPass()
	rp.SetPipeline(pipeline)
	rp.SetBindGroup(0, bindGroup, nil)
	rp.SetVertexBuffer(0, vb.buf, 0)
	rp.SetIndexBuffer(ib.buf, gputypes.IndexFormatUint32, 0)
	rp.DrawIndexed(uint32(indexCount), 1, 0, 0, 0)
	rp.End()
	return nil
}

// Flush submits all recorded work and waits for completion. A clear
// that no draw consumed is emitted as an empty clearing pass so the
// frame still ends with the requested background.
func (d *HALDevice) Flush() error {
	if d.destroyed {
		return ErrDeviceDestroyed
	}
	if d.pendingClear {
		if err := d.ensureEncoder(); err != nil {
			return err
		}
		rp := d.beginPass()
		rp.End()
	}
	if !d.encoding {
		return nil
	}

	cmdBuf, err := d.encoder.EndEncoding()
	d.encoding = false
	d.encoder = nil
	if err != nil {
		d.releaseFrameResources()
		return fmt.Errorf("end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	fence, err := d.device.CreateFence()
	if err != nil {
		d.releaseFrameResources()
		return fmt.Errorf("create fence: %w", err)
	}
	defer d.device.DestroyFence(fence)

	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		d.releaseFrameResources()
		return fmt.Errorf("submit: %w", err)
	}
	fenceOK, err := d.device.Wait(fence, 1, gpuWaitTimeout)
	d.releaseFrameResources()
	if err != nil || !fenceOK {
		return fmt.Errorf("wait for GPU: ok=%v err=%w", fenceOK, err)
	}
	return nil
}

func (d *HALDevice) releaseFrameResources() {
	for _, bg := range d.frameGroups {
		d.device.DestroyBindGroup(bg)
	}
	d.frameGroups = d.frameGroups[:0]
	for _, b := range d.frameBufs {
		d.device.DestroyBuffer(b)
	}
	d.frameBufs = d.frameBufs[:0]
}

// Readback returns the resolved frame as tightly packed RGBA8. Pending
// work is flushed first.
func (d *HALDevice) Readback() ([]byte, error) {
	if d.destroyed {
		return nil, ErrDeviceDestroyed
	}
	if err := d.Flush(); err != nil {
		return nil, err
	}
	if err := d.ensureEncoder(); err != nil {
		return nil, err
	}

	w, h := uint32(d.width), uint32(d.height)

	// VK-LAYOUT-001: after the resolve the texture is in attachment
	// layout; CopyTextureToBuffer needs transfer-source. No-op on Metal,
	// GLES, software, and noop backends.
	d.encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: d.targets.resolveTex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})

	// WebGPU and DX12 require BytesPerRow aligned to 256 bytes.
	bytesPerRow := w * 4
	const copyPitchAlignment = 256
	alignedBytesPerRow := (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	stagingSize := uint64(alignedBytesPerRow) * uint64(h)

	stagingBuf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "g3_staging",
		Size:  stagingSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		d.encoder.DiscardEncoding()
		d.encoding = false
		d.encoder = nil
		return nil, fmt.Errorf("create staging buffer: %w", err)
	}
	defer d.device.DestroyBuffer(stagingBuf)

	d.encoder.CopyTextureToBuffer(d.targets.resolveTex, stagingBuf, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: alignedBytesPerRow, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: d.targets.resolveTex, MipLevel: 0},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})

	// Transition back so the next frame's resolve sees attachment layout.
	d.encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: d.targets.resolveTex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})

	cmdBuf, err := d.encoder.EndEncoding()
	d.encoding = false
	d.encoder = nil
	if err != nil {
		return nil, fmt.Errorf("end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	fence, err := d.device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("create fence: %w", err)
	}
	defer d.device.DestroyFence(fence)

	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}
	fenceOK, err := d.device.Wait(fence, 1, gpuWaitTimeout)
	if err != nil || !fenceOK {
		return nil, fmt.Errorf("wait for GPU: ok=%v err=%w", fenceOK, err)
	}

	readback := make([]byte, stagingSize)
	if err := d.queue.ReadBuffer(stagingBuf, 0, readback); err != nil {
		return nil, fmt.Errorf("readback: %w", err)
	}

	// Strip row padding and convert BGRA to RGBA.
	out := make([]byte, int(w)*int(h)*4)
	for row := uint32(0); row < h; row++ {
		src := readback[row*alignedBytesPerRow:]
		dst := out[row*bytesPerRow:]
		for x := uint32(0); x < w; x++ {
			dst[x*4+0] = src[x*4+2]
			dst[x*4+1] = src[x*4+1]
			dst[x*4+2] = src[x*4+0]
			dst[x*4+3] = src[x*4+3]
		}
	}
	return out, nil
}

// Size returns the render target dimensions in pixels.
func (d *HALDevice) Size() (width, height int) {
	return d.width, d.height
}

// Resize recreates the render targets at the given dimensions. Pending
// work is flushed first; the new targets start unclear.
func (d *HALDevice) Resize(width, height int) error {
	if d.destroyed {
		return ErrDeviceDestroyed
	}
	if width == d.width && height == d.height {
		return nil
	}
	if err := d.Flush(); err != nil {
		return err
	}
	d.width = width
	d.height = height
	return d.targets.ensure(d.device, uint32(width), uint32(height), d.samples)
}

// Destroy releases all device resources. When the device was opened by
// Open, the underlying HAL device and instance are closed as well.
func (d *HALDevice) Destroy() {
	if d.destroyed {
		return
	}
	if d.encoding {
		d.encoder.DiscardEncoding()
		d.encoding = false
		d.encoder = nil
	}
	d.releaseFrameResources()

	for key, p := range d.pipelines {
		d.device.DestroyRenderPipeline(p)
		delete(d.pipelines, key)
	}
	if d.pipelineLayout != nil {
		d.device.DestroyPipelineLayout(d.pipelineLayout)
		d.pipelineLayout = nil
	}
	if d.uniformLayout != nil {
		d.device.DestroyBindGroupLayout(d.uniformLayout)
		d.uniformLayout = nil
	}
	for id, m := range d.shaders {
		d.device.DestroyShaderModule(m)
		delete(d.shaders, id)
	}
	for id, b := range d.buffers {
		d.device.DestroyBuffer(b.buf)
		delete(d.buffers, id)
	}
	for id := range d.arrays {
		delete(d.arrays, id)
	}
	d.targets.destroy(d.device)

	if d.owned {
		d.device.Destroy()
		if d.instance != nil {
			d.instance.Destroy()
		}
	}
	d.destroyed = true
}
