package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// targetSet holds the offscreen render targets for a frame:
//   - Color: N samples, BGRA8Unorm, RenderAttachment
//   - Depth: N samples, Depth24PlusStencil8, RenderAttachment
//   - Resolve: 1 sample, BGRA8Unorm, RenderAttachment | CopySrc
//
// With a sample count of 1 the color texture is skipped and passes
// render straight into the resolve texture.
type targetSet struct {
	colorTex    hal.Texture
	colorView   hal.TextureView
	depthTex    hal.Texture
	depthView   hal.TextureView
	resolveTex  hal.Texture
	resolveView hal.TextureView
	width       uint32
	height      uint32
}

// ensure creates or recreates the targets if the requested dimensions
// differ from the current size. If dimensions match and targets exist,
// this is a no-op.
func (ts *targetSet) ensure(device hal.Device, w, h, samples uint32) error {
	if ts.width == w && ts.height == h && ts.resolveTex != nil {
		return nil
	}
	ts.destroy(device)

	size := hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1}

	if samples > 1 {
		colorTex, err := device.CreateTexture(&hal.TextureDescriptor{
			Label:         "g3_msaa_color",
			Size:          size,
			MipLevelCount: 1,
			SampleCount:   samples,
			Dimension:     gputypes.TextureDimension2D,
			Format:        gputypes.TextureFormatBGRA8Unorm,
			Usage:         gputypes.TextureUsageRenderAttachment,
		})
		if err != nil {
			return fmt.Errorf("create MSAA color texture: %w", err)
		}
		ts.colorTex = colorTex

		colorView, err := device.CreateTextureView(colorTex, &hal.TextureViewDescriptor{
			Label: "g3_msaa_color_view",
		})
		if err != nil {
			ts.destroy(device)
			return fmt.Errorf("create MSAA color view: %w", err)
		}
		ts.colorView = colorView
	}

	depthTex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         "g3_depth_stencil",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   samples,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatDepth24PlusStencil8,
		Usage:         gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		ts.destroy(device)
		return fmt.Errorf("create depth/stencil texture: %w", err)
	}
	ts.depthTex = depthTex

	depthView, err := device.CreateTextureView(depthTex, &hal.TextureViewDescriptor{
		Label: "g3_depth_stencil_view",
	})
	if err != nil {
		ts.destroy(device)
		return fmt.Errorf("create depth/stencil view: %w", err)
	}
	ts.depthView = depthView

	resolveTex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         "g3_resolve",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatBGRA8Unorm,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		ts.destroy(device)
		return fmt.Errorf("create resolve texture: %w", err)
	}
	ts.resolveTex = resolveTex

	resolveView, err := device.CreateTextureView(resolveTex, &hal.TextureViewDescriptor{
		Label: "g3_resolve_view",
	})
	if err != nil {
		ts.destroy(device)
		return fmt.Errorf("create resolve view: %w", err)
	}
	ts.resolveView = resolveView

	ts.width = w
	ts.height = h
	return nil
}

// attachmentViews returns the color attachment view and the resolve
// target for a render pass. Without MSAA the resolve texture is the
// direct attachment and there is no separate resolve target.
func (ts *targetSet) attachmentViews() (view, resolve hal.TextureView) {
	if ts.colorView != nil {
		return ts.colorView, ts.resolveView
	}
	return ts.resolveView, nil
}

// destroy releases all target resources and resets dimensions.
func (ts *targetSet) destroy(device hal.Device) {
	if ts.resolveView != nil {
		device.DestroyTextureView(ts.resolveView)
		ts.resolveView = nil
	}
	if ts.resolveTex != nil {
		device.DestroyTexture(ts.resolveTex)
		ts.resolveTex = nil
	}
	if ts.depthView != nil {
		device.DestroyTextureView(ts.depthView)
		ts.depthView = nil
	}
	if ts.depthTex != nil {
		device.DestroyTexture(ts.depthTex)
		ts.depthTex = nil
	}
	if ts.colorView != nil {
		device.DestroyTextureView(ts.colorView)
		ts.colorView = nil
	}
	if ts.colorTex != nil {
		device.DestroyTexture(ts.colorTex)
		ts.colorTex = nil
	}
	ts.width = 0
	ts.height = 0
}
