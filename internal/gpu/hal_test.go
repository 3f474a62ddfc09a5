package gpu

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// createNoopDevice creates a noop device and queue for testing.
// Returns the device, queue, and a cleanup function.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

func newTestDevice(t *testing.T) (*HALDevice, func()) {
	t.Helper()
	device, queue, cleanup := createNoopDevice(t)
	d, err := NewWithHAL(device, queue, 64, 64, 4)
	if err != nil {
		cleanup()
		t.Fatalf("NewWithHAL failed: %v", err)
	}
	return d, func() {
		d.Destroy()
		cleanup()
	}
}

const testFragmentWGSL = `
@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 0.0, 0.0, 1.0);
}
`

func TestNewWithHAL(t *testing.T) {
	d, cleanup := newTestDevice(t)
	defer cleanup()

	w, h := d.Size()
	if w != 64 || h != 64 {
		t.Errorf("size = (%d, %d), want (64, 64)", w, h)
	}
	if d.targets.resolveTex == nil {
		t.Error("expected resolve texture after NewWithHAL")
	}
	if d.targets.colorTex == nil {
		t.Error("expected MSAA color texture with 4 samples")
	}
	if d.targets.depthTex == nil {
		t.Error("expected depth texture after NewWithHAL")
	}
}

func TestNewWithHALSingleSample(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	d, err := NewWithHAL(device, queue, 32, 32, 1)
	if err != nil {
		t.Fatalf("NewWithHAL failed: %v", err)
	}
	defer d.Destroy()

	if d.targets.colorTex != nil {
		t.Error("expected no separate MSAA color texture with 1 sample")
	}
	view, resolve := d.targets.attachmentViews()
	if view != d.targets.resolveView {
		t.Error("expected resolve view as the direct attachment")
	}
	if resolve != nil {
		t.Error("expected nil resolve target with 1 sample")
	}
}

func TestBufferLifecycle(t *testing.T) {
	d, cleanup := newTestDevice(t)
	defer cleanup()

	id, err := d.CreateBuffer(256, BufferUsageVertex, "test_verts")
	if err != nil {
		t.Fatalf("CreateBuffer failed: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero buffer handle")
	}

	if err := d.WriteBuffer(id, 0, make([]byte, 256)); err != nil {
		t.Fatalf("WriteBuffer failed: %v", err)
	}

	d.DestroyBuffer(id)
	if err := d.WriteBuffer(id, 0, []byte{1}); !errors.Is(err, ErrUnknownBuffer) {
		t.Errorf("WriteBuffer after destroy = %v, want ErrUnknownBuffer", err)
	}

	// Destroying again is a no-op.
	d.DestroyBuffer(id)
}

func TestCreateBufferInvalidSize(t *testing.T) {
	d, cleanup := newTestDevice(t)
	defer cleanup()

	if _, err := d.CreateBuffer(0, BufferUsageVertex, "empty"); !errors.Is(err, ErrInvalidBufferSize) {
		t.Errorf("CreateBuffer(0) = %v, want ErrInvalidBufferSize", err)
	}
	if _, err := d.CreateBuffer(-4, BufferUsageIndex, "negative"); !errors.Is(err, ErrInvalidBufferSize) {
		t.Errorf("CreateBuffer(-4) = %v, want ErrInvalidBufferSize", err)
	}
}

func TestCreateShaderModule(t *testing.T) {
	d, cleanup := newTestDevice(t)
	defer cleanup()

	id, err := d.CreateShaderModule(testFragmentWGSL, "test_fs")
	if err != nil {
		t.Fatalf("CreateShaderModule failed: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero shader module handle")
	}
	d.DestroyShaderModule(id)
}

func TestCreateShaderModuleInvalidSource(t *testing.T) {
	d, cleanup := newTestDevice(t)
	defer cleanup()

	if _, err := d.CreateShaderModule("fn broken syntax {", "bad"); err == nil {
		t.Error("expected compile error for malformed WGSL")
	}
}

func TestCreateVertexArrayValidation(t *testing.T) {
	d, cleanup := newTestDevice(t)
	defer cleanup()

	vb, err := d.CreateBuffer(84, BufferUsageVertex, "verts")
	if err != nil {
		t.Fatalf("CreateBuffer failed: %v", err)
	}
	ib, err := d.CreateBuffer(12, BufferUsageIndex, "indices")
	if err != nil {
		t.Fatalf("CreateBuffer failed: %v", err)
	}

	desc := &VertexArrayDescriptor{
		VertexBuffer: vb,
		IndexBuffer:  ib,
		Stride:       28,
		Attributes: []VertexAttribute{
			{Location: 0, Components: 3, Offset: 0},
			{Location: 1, Components: 4, Offset: 12},
		},
		Topology: TopologyTriangles,
	}
	va, err := d.CreateVertexArray(desc)
	if err != nil {
		t.Fatalf("CreateVertexArray failed: %v", err)
	}
	if va == 0 {
		t.Fatal("expected non-zero vertex array handle")
	}

	bad := *desc
	bad.VertexBuffer = BufferID(9999)
	if _, err := d.CreateVertexArray(&bad); !errors.Is(err, ErrUnknownBuffer) {
		t.Errorf("CreateVertexArray with unknown buffer = %v, want ErrUnknownBuffer", err)
	}

	d.DestroyVertexArray(va)
	d.DestroyBuffer(ib)
	d.DestroyBuffer(vb)
}

func TestDrawIndexedRequiresBindings(t *testing.T) {
	d, cleanup := newTestDevice(t)
	defer cleanup()

	if err := d.DrawIndexed(3, Uniforms{}); !errors.Is(err, ErrNoVertexArrayBound) {
		t.Errorf("DrawIndexed without vertex array = %v, want ErrNoVertexArrayBound", err)
	}

	vb, _ := d.CreateBuffer(84, BufferUsageVertex, "verts")
	ib, _ := d.CreateBuffer(12, BufferUsageIndex, "indices")
	va, err := d.CreateVertexArray(&VertexArrayDescriptor{
		VertexBuffer: vb,
		IndexBuffer:  ib,
		Stride:       28,
		Attributes:   []VertexAttribute{{Location: 0, Components: 3, Offset: 0}},
		Topology:     TopologyTriangles,
	})
	if err != nil {
		t.Fatalf("CreateVertexArray failed: %v", err)
	}
	d.BindVertexArray(va)

	if err := d.DrawIndexed(3, Uniforms{}); !errors.Is(err, ErrNoProgramBound) {
		t.Errorf("DrawIndexed without program = %v, want ErrNoProgramBound", err)
	}
}

func TestClearFlush(t *testing.T) {
	d, cleanup := newTestDevice(t)
	defer cleanup()

	d.SetClearColor(0.1, 0.2, 0.3, 1.0)
	if err := d.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	// The clear that no draw consumed becomes an empty clearing pass.
	if err := d.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	// A second flush with nothing recorded is a no-op.
	if err := d.Flush(); err != nil {
		t.Fatalf("empty Flush failed: %v", err)
	}
}

func TestResize(t *testing.T) {
	d, cleanup := newTestDevice(t)
	defer cleanup()

	if err := d.Resize(128, 96); err != nil {
		t.Fatalf("Resize failed: %v", err)
	}
	w, h := d.Size()
	if w != 128 || h != 96 {
		t.Errorf("size = (%d, %d), want (128, 96)", w, h)
	}
	if d.targets.width != 128 || d.targets.height != 96 {
		t.Errorf("target size = (%d, %d), want (128, 96)", d.targets.width, d.targets.height)
	}
}

func TestDestroyedDeviceErrors(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	d, err := NewWithHAL(device, queue, 16, 16, 4)
	if err != nil {
		t.Fatalf("NewWithHAL failed: %v", err)
	}
	d.Destroy()
	d.Destroy() // idempotent

	if _, err := d.CreateBuffer(16, BufferUsageVertex, "x"); !errors.Is(err, ErrDeviceDestroyed) {
		t.Errorf("CreateBuffer = %v, want ErrDeviceDestroyed", err)
	}
	if err := d.Clear(); !errors.Is(err, ErrDeviceDestroyed) {
		t.Errorf("Clear = %v, want ErrDeviceDestroyed", err)
	}
	if err := d.Flush(); !errors.Is(err, ErrDeviceDestroyed) {
		t.Errorf("Flush = %v, want ErrDeviceDestroyed", err)
	}
}
