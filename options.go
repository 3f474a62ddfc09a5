package g3

import "github.com/gogpu/g3/internal/gpu"

// RendererOption configures a Renderer during creation.
// Use functional options to customize Renderer behavior.
//
// Example:
//
//	// Default offscreen rendering
//	r, err := g3.New(800, 600)
//
//	// Shared device from a host application
//	r, err := g3.New(800, 600, g3.WithDeviceProvider(app))
type RendererOption func(*rendererOptions)

// rendererOptions holds optional configuration for Renderer creation.
type rendererOptions struct {
	window      Window
	provider    DeviceHandle
	device      gpu.Device
	clearColor  [4]float32
	depthTest   bool
	faceCulling bool
	lineWidth   float32
	samples     int
}

// defaultRendererOptions returns the default renderer options:
// opaque black clear color, depth test and face culling off, 1-pixel
// lines, 4x multisampling.
func defaultRendererOptions() rendererOptions {
	return rendererOptions{
		clearColor: [4]float32{0, 0, 0, 1},
		lineWidth:  1,
		samples:    4,
	}
}

// WithWindow attaches a windowing-layer surface. EndFrame presents
// through the window after flushing; the drawable size overrides the
// width and height passed to New.
func WithWindow(w Window) RendererOption {
	return func(o *rendererOptions) {
		o.window = w
	}
}

// WithDeviceProvider renders on a GPU device shared by a host
// application instead of opening a standalone one. The provider must
// additionally expose HalDevice() any and HalQueue() any returning
// hal.Device and hal.Queue.
func WithDeviceProvider(p DeviceHandle) RendererOption {
	return func(o *rendererOptions) {
		o.provider = p
	}
}

// WithClearColor sets the color BeginFrame clears to.
// Components are in [0, 1].
func WithClearColor(r, g, b, a float32) RendererOption {
	return func(o *rendererOptions) {
		o.clearColor = [4]float32{r, g, b, a}
	}
}

// WithDepthTest enables less-than depth testing from the start of the
// session. It can be toggled later with [Renderer.EnableDepthTest] and
// [Renderer.DisableDepthTest].
func WithDepthTest() RendererOption {
	return func(o *rendererOptions) {
		o.depthTest = true
	}
}

// WithFaceCulling enables back-face culling (counter-clockwise front
// faces) from the start of the session.
func WithFaceCulling() RendererOption {
	return func(o *rendererOptions) {
		o.faceCulling = true
	}
}

// WithLineWidth sets the rasterized line width in pixels.
// Backends without wide-line support log and ignore widths other than 1.
func WithLineWidth(width float32) RendererOption {
	return func(o *rendererOptions) {
		o.lineWidth = width
	}
}

// WithMSAA sets the multisample count for the render targets.
// Supported values are 1 (off) and 4; anything else falls back to 4.
func WithMSAA(samples int) RendererOption {
	return func(o *rendererOptions) {
		o.samples = samples
	}
}

// withDevice injects a prebuilt device. Used by tests to run the
// renderer against a fake or noop-backed device.
func withDevice(d gpu.Device) RendererOption {
	return func(o *rendererOptions) {
		o.device = d
	}
}
