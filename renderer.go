package g3

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gogpu/g3/internal/gpu"
	"github.com/gogpu/wgpu/hal"
)

// Renderer errors.
var (
	// ErrRendererClosed is returned when using a closed renderer.
	ErrRendererClosed = errors.New("g3: renderer is closed")

	// ErrNoSessionActive is returned when a frame or draw operation runs
	// before BeginSession.
	ErrNoSessionActive = errors.New("g3: no session active")

	// ErrNoGeometrySelected is returned by DrawCurrent when no geometry
	// is selected.
	ErrNoGeometrySelected = errors.New("g3: no geometry selected")

	// ErrNoProgramActive is returned by DrawCurrent when no program is
	// in use.
	ErrNoProgramActive = errors.New("g3: no program active")

	// ErrGeometryDestroyed is returned when selecting or drawing a
	// geometry whose device resources were destroyed.
	ErrGeometryDestroyed = errors.New("g3: geometry has been destroyed")

	// ErrProgramDestroyed is returned when using a program whose shader
	// modules were destroyed.
	ErrProgramDestroyed = errors.New("g3: program has been destroyed")

	// ErrInvalidGeometry is returned by CreateGeometry for empty vertex
	// or index data, or indices referencing missing vertices.
	ErrInvalidGeometry = errors.New("g3: invalid geometry data")

	// ErrDeviceProvider is returned when a device provider does not
	// expose usable HAL types.
	ErrDeviceProvider = errors.New("g3: device provider does not expose HAL types")
)

// Renderer is an immediate-mode 3D rendering session. It owns the three
// transform stacks, the selected geometry and active program, the
// render-state switches, and the session clock.
//
// All state lives on the Renderer; there is no package-level rendering
// state. A Renderer is confined to a single goroutine.
type Renderer struct {
	device gpu.Device
	window Window

	width  int
	height int

	model      *MatrixStack
	view       *MatrixStack
	projection *MatrixStack
	mode       MatrixMode

	program  *Program
	geometry *Geometry

	clearColor  [4]float32
	depthTest   bool
	faceCulling bool
	lineWidth   float32

	sessionActive bool
	sessionStart  time.Time
	now           func() time.Time

	closed bool
}

// New creates a Renderer with an offscreen target of the given size.
//
// Without options the renderer opens a standalone GPU device. Pass
// [WithDeviceProvider] to render on a device shared by a host
// application, and [WithWindow] to present frames to a windowing layer
// (the window's drawable size then overrides width and height).
func New(width, height int, opts ...RendererOption) (*Renderer, error) {
	o := defaultRendererOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if o.window != nil {
		width, height = o.window.DrawableSize()
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("g3: invalid dimensions %dx%d", width, height)
	}

	device := o.device
	if device == nil {
		var err error
		device, err = openDevice(&o, width, height)
		if err != nil {
			return nil, err
		}
	}

	r := &Renderer{
		device:      device,
		window:      o.window,
		width:       width,
		height:      height,
		model:       NewMatrixStack(),
		view:        NewMatrixStack(),
		projection:  NewMatrixStack(),
		mode:        ModeModel,
		clearColor:  o.clearColor,
		depthTest:   o.depthTest,
		faceCulling: o.faceCulling,
		lineWidth:   o.lineWidth,
		now:         time.Now,
	}
	r.applyState()
	return r, nil
}

// openDevice creates the GPU device for a new renderer: a shared HAL
// device when a provider exposes one, a standalone device otherwise.
func openDevice(o *rendererOptions, width, height int) (gpu.Device, error) {
	if o.provider != nil {
		type halProvider interface {
			HalDevice() any
			HalQueue() any
		}
		hp, ok := o.provider.(halProvider)
		if !ok {
			return nil, ErrDeviceProvider
		}
		device, ok := hp.HalDevice().(hal.Device)
		if !ok || device == nil {
			return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrDeviceProvider)
		}
		queue, ok := hp.HalQueue().(hal.Queue)
		if !ok || queue == nil {
			return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrDeviceProvider)
		}
		return gpu.NewWithHAL(device, queue, width, height, uint32(o.samples))
	}
	return gpu.Open(width, height, uint32(o.samples))
}

func (r *Renderer) applyState() {
	r.device.SetClearColor(r.clearColor[0], r.clearColor[1], r.clearColor[2], r.clearColor[3])
	r.device.SetDepthTest(r.depthTest)
	r.device.SetFaceCulling(r.faceCulling)
	r.device.SetLineWidth(r.lineWidth)
}

// Close releases the renderer and all its device resources. Geometries
// and programs created by this renderer become invalid.
func (r *Renderer) Close() {
	if r.closed {
		return
	}
	r.device.Destroy()
	r.geometry = nil
	r.program = nil
	r.sessionActive = false
	r.closed = true
}

// Size returns the render target dimensions in pixels.
func (r *Renderer) Size() (width, height int) {
	return r.width, r.height
}

// Resize recreates the render targets at the given dimensions.
func (r *Renderer) Resize(width, height int) error {
	if r.closed {
		return ErrRendererClosed
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("g3: invalid dimensions %dx%d", width, height)
	}
	if err := r.device.Resize(width, height); err != nil {
		return err
	}
	r.width = width
	r.height = height
	return nil
}

// BeginSession starts a rendering session: all three transform stacks
// are reset to a single identity, the stack selector returns to the
// model stack, render state is applied, and the session clock starts.
//
// BeginSession may be called again to restart the session.
func (r *Renderer) BeginSession() error {
	if r.closed {
		return ErrRendererClosed
	}
	r.model.Reset()
	r.view.Reset()
	r.projection.Reset()
	r.mode = ModeModel
	r.applyState()
	r.sessionStart = r.now()
	r.sessionActive = true
	Logger().Info("g3: session begin", "width", r.width, "height", r.height)
	return nil
}

// Elapsed returns the time since BeginSession in seconds. This is the
// value fed to the time uniform.
func (r *Renderer) Elapsed() float32 {
	if !r.sessionActive {
		return 0
	}
	return float32(r.now().Sub(r.sessionStart).Seconds())
}

// BeginFrame starts a frame by scheduling a clear of the color and
// depth buffers.
func (r *Renderer) BeginFrame() error {
	if r.closed {
		return ErrRendererClosed
	}
	if !r.sessionActive {
		return ErrNoSessionActive
	}
	return r.device.Clear()
}

// DrawCurrent draws the selected geometry with the active program.
//
// The combined matrix is Projection * inverse(View) * Model, each taken
// from its stack top: the view stack holds camera poses
// (camera-to-world), so it is inverted here to produce the
// world-to-camera transform. Uniforms the program does not declare are
// not written.
func (r *Renderer) DrawCurrent() error {
	if r.closed {
		return ErrRendererClosed
	}
	if !r.sessionActive {
		return ErrNoSessionActive
	}
	if r.geometry == nil {
		return ErrNoGeometrySelected
	}
	if !r.geometry.Valid() {
		return ErrGeometryDestroyed
	}
	if r.program == nil {
		return ErrNoProgramActive
	}
	if !r.program.Valid() {
		return ErrProgramDestroyed
	}

	var uniforms gpu.Uniforms
	if r.program.hasMVP {
		mvp := r.projection.Top().Mul(r.view.Top().Inverse()).Mul(r.model.Top())
		cols := mvp.ColumnMajor()
		uniforms.MVP = &cols
	}
	if r.program.hasTime {
		t := r.Elapsed()
		uniforms.Time = &t
	}

	return r.device.DrawIndexed(r.geometry.drawCount, uniforms)
}

// EndFrame flushes all recorded work to the GPU and, when a window is
// attached, presents the finished frame.
func (r *Renderer) EndFrame() error {
	if r.closed {
		return ErrRendererClosed
	}
	if !r.sessionActive {
		return ErrNoSessionActive
	}
	if err := r.device.Flush(); err != nil {
		return err
	}
	if r.window != nil {
		return r.window.Present()
	}
	return nil
}

// Capture reads the current render target back into a Pixmap.
// Pending work is flushed first.
func (r *Renderer) Capture() (*Pixmap, error) {
	if r.closed {
		return nil, ErrRendererClosed
	}
	data, err := r.device.Readback()
	if err != nil {
		return nil, err
	}
	pm := NewPixmap(r.width, r.height)
	copy(pm.data, data)
	return pm, nil
}

// --- Transform stacks ---

// SetMatrixMode selects which transform stack subsequent matrix
// operations act on.
func (r *Renderer) SetMatrixMode(mode MatrixMode) {
	r.mode = mode
}

// MatrixMode returns the currently selected stack.
func (r *Renderer) MatrixMode() MatrixMode {
	return r.mode
}

func (r *Renderer) currentStack() *MatrixStack {
	switch r.mode {
	case ModeView:
		return r.view
	case ModeProjection:
		return r.projection
	default:
		return r.model
	}
}

// PushMatrix duplicates the top of the current stack.
func (r *Renderer) PushMatrix() {
	r.currentStack().Push()
}

// PopMatrix removes the top of the current stack. Popping the last
// matrix re-establishes the identity, so the stack is never empty.
func (r *Renderer) PopMatrix() {
	r.currentStack().Pop()
}

// LoadMatrix replaces the top of the current stack with m.
func (r *Renderer) LoadMatrix(m Mat4) {
	r.currentStack().Load(m)
}

// LoadIdentity replaces the top of the current stack with the identity.
func (r *Renderer) LoadIdentity() {
	r.currentStack().LoadIdentity()
}

// Top returns the top of the current stack.
func (r *Renderer) Top() Mat4 {
	return r.currentStack().Top()
}

// Translate composes a translation onto the top of the current stack.
func (r *Renderer) Translate(v Vec3) {
	s := r.currentStack()
	s.Load(s.Top().Translate(v))
}

// Rotate composes Euler rotations onto the top of the current stack in
// yaw, pitch, roll order: Top becomes Top * Ry(v.Y) * Rx(v.X) * Rz(v.Z).
// Angles are in radians.
func (r *Renderer) Rotate(v Vec3) {
	s := r.currentStack()
	s.Load(s.Top().RotateY(v.Y).RotateX(v.X).RotateZ(v.Z))
}

// Scale composes a scaling onto the top of the current stack.
func (r *Renderer) Scale(v Vec3) {
	s := r.currentStack()
	s.Load(s.Top().Scale(v))
}

// LoadLookAt replaces the top of the current stack with a camera pose
// looking from eye towards target (world-up fixed at +Y).
//
// The pose is the inverse of the world-to-camera matrix LookAt builds,
// because view stack entries hold camera-to-world transforms.
// Degenerate input leaves the identity loaded and returns
// ErrDegenerateLookAt.
func (r *Renderer) LoadLookAt(eye, target Vec3) error {
	m, err := LookAt(eye, target)
	if err != nil {
		r.currentStack().Load(Identity())
		return err
	}
	r.currentStack().Load(m.Inverse())
	return nil
}

// LoadOrthographic replaces the top of the current stack with a
// symmetric orthographic projection.
func (r *Renderer) LoadOrthographic(zoom, aspect, near, far float32) {
	r.currentStack().Load(Orthographic(zoom, aspect, near, far))
}

// LoadPerspective replaces the top of the current stack with a
// perspective projection. fovy is in radians.
func (r *Renderer) LoadPerspective(fovy, aspect, near, far float32) {
	r.currentStack().Load(Perspective(fovy, aspect, near, far))
}

// ModelMatrix returns the top of the model stack.
func (r *Renderer) ModelMatrix() Mat4 { return r.model.Top() }

// ViewMatrix returns the top of the view stack.
func (r *Renderer) ViewMatrix() Mat4 { return r.view.Top() }

// ProjectionMatrix returns the top of the projection stack.
func (r *Renderer) ProjectionMatrix() Mat4 { return r.projection.Top() }

// --- Geometry ---

// CreateGeometry uploads interleaved vertices and uint32 indices and
// records a vertex array over them. The three device resources are
// created together; on any failure everything already created is
// released and no Geometry is returned.
//
// Line loops and triangle fans are rewritten at upload into the
// topologies the device rasterizes natively; IndexCount still reports
// the count as passed.
func (r *Renderer) CreateGeometry(kind PrimitiveKind, vertices []Vertex, indices []uint32) (*Geometry, error) {
	if r.closed {
		return nil, ErrRendererClosed
	}
	if len(vertices) == 0 || len(indices) == 0 {
		return nil, fmt.Errorf("%w: empty vertex or index data", ErrInvalidGeometry)
	}
	for _, idx := range indices {
		if int(idx) >= len(vertices) {
			return nil, fmt.Errorf("%w: index %d out of range for %d vertices",
				ErrInvalidGeometry, idx, len(vertices))
		}
	}

	topology, deviceIndices := gpu.ExpandIndices(int(kind), indices)

	vertexData := packVertices(vertices)
	vb, err := r.device.CreateBuffer(len(vertexData), gpu.BufferUsageVertex, "g3_vertices")
	if err != nil {
		return nil, fmt.Errorf("create vertex buffer: %w", err)
	}
	if err := r.device.WriteBuffer(vb, 0, vertexData); err != nil {
		r.device.DestroyBuffer(vb)
		return nil, fmt.Errorf("upload vertices: %w", err)
	}

	indexData := packIndices(deviceIndices)
	ib, err := r.device.CreateBuffer(len(indexData), gpu.BufferUsageIndex, "g3_indices")
	if err != nil {
		r.device.DestroyBuffer(vb)
		return nil, fmt.Errorf("create index buffer: %w", err)
	}
	if err := r.device.WriteBuffer(ib, 0, indexData); err != nil {
		r.device.DestroyBuffer(ib)
		r.device.DestroyBuffer(vb)
		return nil, fmt.Errorf("upload indices: %w", err)
	}

	va, err := r.device.CreateVertexArray(&gpu.VertexArrayDescriptor{
		Label:        "g3_geometry",
		VertexBuffer: vb,
		IndexBuffer:  ib,
		Stride:       VertexStride,
		Attributes: []gpu.VertexAttribute{
			{Location: 0, Components: 3, Offset: 0},
			{Location: 1, Components: 4, Offset: 12},
		},
		Topology: topology,
	})
	if err != nil {
		r.device.DestroyBuffer(ib)
		r.device.DestroyBuffer(vb)
		return nil, fmt.Errorf("create vertex array: %w", err)
	}

	Logger().Debug("g3: geometry created",
		"kind", kind.String(), "vertices", len(vertices), "indices", len(indices))

	return &Geometry{
		kind:         kind,
		indexCount:   len(indices),
		vertexBuffer: vb,
		indexBuffer:  ib,
		vertexArray:  va,
		drawCount:    len(deviceIndices),
	}, nil
}

// SetGeometry selects the geometry DrawCurrent renders. Passing nil
// deselects; selecting a new geometry replaces the previous selection.
func (r *Renderer) SetGeometry(g *Geometry) error {
	if r.closed {
		return ErrRendererClosed
	}
	if g == nil {
		r.device.BindVertexArray(0)
		r.geometry = nil
		return nil
	}
	if !g.Valid() {
		return ErrGeometryDestroyed
	}
	r.device.BindVertexArray(g.vertexArray)
	r.geometry = g
	return nil
}

// Geometry returns the currently selected geometry, or nil.
func (r *Renderer) Geometry() *Geometry {
	return r.geometry
}

// DestroyGeometry releases all three device resources of a geometry.
// A destroyed or nil geometry is a no-op; the selection is cleared if
// it pointed at g.
func (r *Renderer) DestroyGeometry(g *Geometry) {
	if r.closed || g == nil || !g.Valid() {
		return
	}
	if r.geometry == g {
		r.device.BindVertexArray(0)
		r.geometry = nil
	}
	r.device.DestroyVertexArray(g.vertexArray)
	r.device.DestroyBuffer(g.indexBuffer)
	r.device.DestroyBuffer(g.vertexBuffer)
	g.invalidate()
}

// --- Programs ---

// CreateProgram compiles a WGSL vertex and fragment shader pair.
// Compilation failure is returned as an error; nothing is kept from a
// partially built program.
func (r *Renderer) CreateProgram(vertexSrc, fragmentSrc string) (*Program, error) {
	if r.closed {
		return nil, ErrRendererClosed
	}
	vs, err := r.device.CreateShaderModule(vertexSrc, "g3_vertex")
	if err != nil {
		return nil, fmt.Errorf("vertex shader: %w", err)
	}
	fs, err := r.device.CreateShaderModule(fragmentSrc, "g3_fragment")
	if err != nil {
		r.device.DestroyShaderModule(vs)
		return nil, fmt.Errorf("fragment shader: %w", err)
	}

	combined := vertexSrc + "\n" + fragmentSrc
	return &Program{
		vs:      vs,
		fs:      fs,
		hasMVP:  declaresUniform(combined, "mvp"),
		hasTime: declaresUniform(combined, "time"),
	}, nil
}

// CreateDefaultProgram compiles the built-in color-passthrough program.
func (r *Renderer) CreateDefaultProgram() (*Program, error) {
	return r.CreateProgram(DefaultVertexShader(), DefaultFragmentShader())
}

// UseProgram makes p the active program for subsequent draws. Passing
// nil deactivates the current program.
func (r *Renderer) UseProgram(p *Program) error {
	if r.closed {
		return ErrRendererClosed
	}
	if p == nil {
		r.device.UseProgram(0, 0)
		r.program = nil
		return nil
	}
	if !p.Valid() {
		return ErrProgramDestroyed
	}
	r.device.UseProgram(p.vs, p.fs)
	r.program = p
	return nil
}

// Program returns the currently active program, or nil.
func (r *Renderer) Program() *Program {
	return r.program
}

// DestroyProgram releases a program's shader modules. A destroyed or
// nil program is a no-op; the active program is cleared if it was p.
func (r *Renderer) DestroyProgram(p *Program) {
	if r.closed || p == nil || !p.Valid() {
		return
	}
	if r.program == p {
		r.device.UseProgram(0, 0)
		r.program = nil
	}
	r.device.DestroyShaderModule(p.vs)
	r.device.DestroyShaderModule(p.fs)
	p.invalidate()
}

// --- Render state ---

// SetClearColor sets the color BeginFrame clears to.
func (r *Renderer) SetClearColor(red, green, blue, alpha float32) {
	r.clearColor = [4]float32{red, green, blue, alpha}
	r.device.SetClearColor(red, green, blue, alpha)
}

// EnableDepthTest enables less-than depth testing.
func (r *Renderer) EnableDepthTest() {
	r.depthTest = true
	r.device.SetDepthTest(true)
}

// DisableDepthTest disables depth testing.
func (r *Renderer) DisableDepthTest() {
	r.depthTest = false
	r.device.SetDepthTest(false)
}

// EnableFaceCulling enables back-face culling.
func (r *Renderer) EnableFaceCulling() {
	r.faceCulling = true
	r.device.SetFaceCulling(true)
}

// DisableFaceCulling disables face culling.
func (r *Renderer) DisableFaceCulling() {
	r.faceCulling = false
	r.device.SetFaceCulling(false)
}

// SetLineWidth sets the rasterized line width in pixels.
func (r *Renderer) SetLineWidth(width float32) {
	r.lineWidth = width
	r.device.SetLineWidth(width)
}

// --- Packing helpers ---

func packVertices(vertices []Vertex) []byte {
	data := make([]byte, len(vertices)*VertexStride)
	for i, v := range vertices {
		off := i * VertexStride
		putFloat32(data[off+0:], v.X)
		putFloat32(data[off+4:], v.Y)
		putFloat32(data[off+8:], v.Z)
		putFloat32(data[off+12:], v.R)
		putFloat32(data[off+16:], v.G)
		putFloat32(data[off+20:], v.B)
		putFloat32(data[off+24:], v.A)
	}
	return data
}

func packIndices(indices []uint32) []byte {
	data := make([]byte, len(indices)*4)
	for i, idx := range indices {
		binary.LittleEndian.PutUint32(data[i*4:], idx)
	}
	return data
}

func putFloat32(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}
