// Package g3 provides a minimal immediate-mode 3D rendering layer for Go.
//
// # Overview
//
// g3 sits on top of a windowing/context layer and a programmable GPU
// pipeline (WebGPU via gogpu/wgpu). It exposes the classic fixed-function
// working model: a caller describes a scene each frame through retained
// model/view/projection matrix stacks, uploads vertex and index data once
// as GPU-resident geometry, and issues draw calls with time- and
// transform-derived shader uniforms.
//
// It is not a scene graph or a general engine: there is no culling,
// batching, or material system, and at most one shader program and one
// geometry are active at a time.
//
// # Quick Start
//
//	import "github.com/gogpu/g3"
//
//	r, err := g3.New(500, 500)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer r.Close()
//
//	prog, err := r.CreateDefaultProgram()
//	if err != nil {
//		log.Fatal(err)
//	}
//	r.UseProgram(prog)
//
//	tri, err := r.CreateGeometry(g3.Triangles,
//		[]g3.Vertex{
//			{X: 0.5, Y: -0.5, R: 1, A: 1},
//			{X: -0.5, Y: -0.5, G: 1, A: 1},
//			{Y: 0.5, B: 1, A: 1},
//		},
//		[]uint32{0, 1, 2},
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	r.BeginSession()
//	for running {
//		r.BeginFrame()
//		r.SetGeometry(tri)
//		r.DrawCurrent()
//		r.EndFrame()
//	}
//
// # Transform Stacks
//
// Three matrix stacks (Model, View, Projection) hold 4x4 float32
// matrices. Operations such as [Renderer.Translate], [Renderer.Rotate],
// and [Renderer.PushMatrix] act on the currently selected stack (see
// [Renderer.SetMatrixMode]). Every stack always holds at least one
// matrix: popping the last element re-establishes the identity.
//
// The view stack holds a camera-pose (camera-to-world) matrix. At draw
// time the composed uniform is MVP = Projection * inverse(View) * Model,
// so a camera placed with a pose matrix behaves intuitively.
// [Renderer.LoadLookAt] follows the same convention and loads the pose
// of a camera at eye looking towards target.
//
// # Device Sharing
//
// By default g3 opens its own GPU device and renders offscreen, or to a
// [Window] collaborator when one is supplied. Hosts that already own a
// GPU device (e.g. gogpu applications) can share it via
// [WithDeviceProvider], avoiding a second device instance.
//
// # Logging
//
// g3 produces no log output by default. Call [SetLogger] with a
// *slog.Logger to enable diagnostics.
package g3
