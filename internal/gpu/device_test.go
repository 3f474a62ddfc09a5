package gpu

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestExpandIndicesPassthrough(t *testing.T) {
	tests := []struct {
		name     string
		kind     int
		indices  []uint32
		topology Topology
	}{
		{"points", 0, []uint32{0, 1, 2}, TopologyPoints},
		{"lines", 1, []uint32{0, 1, 2, 3}, TopologyLines},
		{"line strip", 3, []uint32{0, 1, 2}, TopologyLineStrip},
		{"triangles", 4, []uint32{0, 1, 2}, TopologyTriangles},
		{"triangle strip", 6, []uint32{0, 1, 2, 3}, TopologyTriangleStrip},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			topo, out := ExpandIndices(tt.kind, tt.indices)
			if topo != tt.topology {
				t.Errorf("topology = %v, want %v", topo, tt.topology)
			}
			if len(out) != len(tt.indices) {
				t.Fatalf("len = %d, want %d", len(out), len(tt.indices))
			}
			for i := range out {
				if out[i] != tt.indices[i] {
					t.Errorf("index %d = %d, want %d", i, out[i], tt.indices[i])
				}
			}
		})
	}
}

func TestExpandIndicesLineLoop(t *testing.T) {
	topo, out := ExpandIndices(2, []uint32{0, 1, 2})
	if topo != TopologyLineStrip {
		t.Errorf("topology = %v, want %v", topo, TopologyLineStrip)
	}
	want := []uint32{0, 1, 2, 0}
	if len(out) != len(want) {
		t.Fatalf("len = %d, want %d", len(out), len(want))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("index %d = %d, want %d", i, out[i], want[i])
		}
	}
}

func TestExpandIndicesLineLoopDegenerate(t *testing.T) {
	topo, out := ExpandIndices(2, []uint32{0})
	if topo != TopologyLineStrip {
		t.Errorf("topology = %v, want %v", topo, TopologyLineStrip)
	}
	if len(out) != 1 {
		t.Errorf("len = %d, want 1 (no closing index for a single point)", len(out))
	}
}

func TestExpandIndicesTriangleFan(t *testing.T) {
	topo, out := ExpandIndices(5, []uint32{0, 1, 2, 3, 4})
	if topo != TopologyTriangles {
		t.Errorf("topology = %v, want %v", topo, TopologyTriangles)
	}
	want := []uint32{0, 1, 2, 0, 2, 3, 0, 3, 4}
	if len(out) != len(want) {
		t.Fatalf("len = %d, want %d", len(out), len(want))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("index %d = %d, want %d", i, out[i], want[i])
		}
	}
}

func TestExpandIndicesTriangleFanTooShort(t *testing.T) {
	topo, out := ExpandIndices(5, []uint32{0, 1})
	if topo != TopologyTriangles {
		t.Errorf("topology = %v, want %v", topo, TopologyTriangles)
	}
	if len(out) != 0 {
		t.Errorf("len = %d, want 0 for a fan with fewer than 3 indices", len(out))
	}
}

func TestPackUniformsFull(t *testing.T) {
	var mvp [16]float32
	for i := range mvp {
		mvp[i] = float32(i + 1)
	}
	tm := float32(2.5)

	data := packUniforms(Uniforms{MVP: &mvp, Time: &tm})
	if len(data) != uniformSize {
		t.Fatalf("len = %d, want %d", len(data), uniformSize)
	}
	for i, v := range mvp {
		got := math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		if got != v {
			t.Errorf("mvp[%d] = %v, want %v", i, got, v)
		}
	}
	gotTime := math.Float32frombits(binary.LittleEndian.Uint32(data[64:]))
	if gotTime != tm {
		t.Errorf("time = %v, want %v", gotTime, tm)
	}
}

func TestPackUniformsAbsent(t *testing.T) {
	data := packUniforms(Uniforms{})
	if len(data) != uniformSize {
		t.Fatalf("len = %d, want %d", len(data), uniformSize)
	}
	for i, b := range data {
		if b != 0 {
			t.Fatalf("byte %d = %d, want 0 for absent uniforms", i, b)
		}
	}
}
