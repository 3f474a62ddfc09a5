package g3

import "fmt"

// Vertex is a single vertex: a position followed by an RGBA color.
// Vertices are uploaded interleaved, 7 float32 values per vertex, with
// position at attribute location 0 and color at attribute location 1.
type Vertex struct {
	X, Y, Z    float32
	R, G, B, A float32
}

// vertexFloats is the number of float32 values per interleaved vertex.
const vertexFloats = 7

// VertexStride is the byte stride of one interleaved vertex.
const VertexStride = vertexFloats * 4

// PrimitiveKind is the topology interpretation of a geometry's index
// list. It is fixed when the geometry is created.
type PrimitiveKind int

const (
	// Points draws each index as an isolated point.
	Points PrimitiveKind = iota
	// Lines draws each consecutive index pair as a segment.
	Lines
	// LineLoop draws a connected polyline closed back to the first index.
	LineLoop
	// LineStrip draws a connected polyline.
	LineStrip
	// Triangles draws each consecutive index triple as a triangle.
	Triangles
	// TriangleFan draws triangles sharing the first index.
	TriangleFan
	// TriangleStrip draws triangles sharing each preceding edge.
	TriangleStrip
)

// String returns the string representation of PrimitiveKind.
func (k PrimitiveKind) String() string {
	switch k {
	case Points:
		return "Points"
	case Lines:
		return "Lines"
	case LineLoop:
		return "LineLoop"
	case LineStrip:
		return "LineStrip"
	case Triangles:
		return "Triangles"
	case TriangleFan:
		return "TriangleFan"
	case TriangleStrip:
		return "TriangleStrip"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}
