package g3

import "github.com/gogpu/g3/internal/gpu"

// Geometry is GPU-resident indexed geometry: an interleaved vertex
// buffer, a uint32 index buffer, and a vertex array recording the
// layout over both. The three device handles are created together by
// [Renderer.CreateGeometry] and released together by
// [Renderer.DestroyGeometry]; a Geometry is never left holding a
// partial set.
//
// The primitive kind and index count are fixed at creation.
type Geometry struct {
	kind       PrimitiveKind
	indexCount int

	vertexBuffer gpu.BufferID
	indexBuffer  gpu.BufferID
	vertexArray  gpu.VertexArrayID

	// drawCount is the device-side index count, which differs from
	// indexCount when the kind needs topology expansion (line loops,
	// triangle fans).
	drawCount int
}

// Kind returns the primitive kind the geometry was created with.
func (g *Geometry) Kind() PrimitiveKind {
	return g.kind
}

// IndexCount returns the number of indices the geometry was created
// with.
func (g *Geometry) IndexCount() int {
	return g.indexCount
}

// Valid reports whether the geometry holds live device resources.
// It returns false after DestroyGeometry.
func (g *Geometry) Valid() bool {
	return g != nil && g.vertexBuffer != 0 && g.indexBuffer != 0 && g.vertexArray != 0
}

func (g *Geometry) invalidate() {
	g.vertexBuffer = 0
	g.indexBuffer = 0
	g.vertexArray = 0
}
