// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package g3

import "github.com/gogpu/gpucontext"

// DeviceHandle provides GPU device access from a host application.
//
// This is the integration point between g3 and GPU frameworks like
// gogpu: the host implements DeviceHandle and passes it via
// [WithDeviceProvider], letting g3 render on the shared device instead
// of opening its own.
//
// DeviceHandle is an alias for gpucontext.DeviceProvider, keeping a
// g3-specific name while staying compatible with the gpucontext
// ecosystem. For direct HAL sharing the provider should additionally
// expose HalDevice() any and HalQueue() any returning hal.Device and
// hal.Queue.
type DeviceHandle = gpucontext.DeviceProvider

// Window is the minimal surface g3 requires from a windowing layer.
// Window creation and event dispatch stay with the host; g3 only needs
// the drawable size and a way to present a finished frame.
type Window interface {
	// DrawableSize returns the drawable area in pixels.
	DrawableSize() (width, height int)

	// Present makes the finished frame visible.
	Present() error
}
