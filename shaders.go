package g3

import _ "embed"

// Embedded WGSL shader sources.
// These are compiled at build time using go:embed directives.

//go:embed shaders/vertex.wgsl
var defaultVertexShaderSource string

//go:embed shaders/fragment.wgsl
var defaultFragmentShaderSource string

// DefaultVertexShader returns the built-in vertex shader source. It
// transforms positions by the model-view-projection matrix and passes
// vertex colors through unchanged.
func DefaultVertexShader() string { return defaultVertexShaderSource }

// DefaultFragmentShader returns the built-in fragment shader source, a
// plain interpolated-color passthrough.
func DefaultFragmentShader() string { return defaultFragmentShaderSource }
