package g3

import (
	"testing"

	"github.com/chewxy/math32"
)

const vecEpsilon = 1e-6

func vecNear(a, b Vec3) bool {
	return math32.Abs(a.X-b.X) < vecEpsilon &&
		math32.Abs(a.Y-b.Y) < vecEpsilon &&
		math32.Abs(a.Z-b.Z) < vecEpsilon
}

func TestVec3Arithmetic(t *testing.T) {
	a := V3(1, 2, 3)
	b := V3(4, 5, 6)

	if got := a.Add(b); !vecNear(got, V3(5, 7, 9)) {
		t.Errorf("Add = %v", got)
	}
	if got := b.Sub(a); !vecNear(got, V3(3, 3, 3)) {
		t.Errorf("Sub = %v", got)
	}
	if got := a.Mul(2); !vecNear(got, V3(2, 4, 6)) {
		t.Errorf("Mul = %v", got)
	}
	if got := a.Neg(); !vecNear(got, V3(-1, -2, -3)) {
		t.Errorf("Neg = %v", got)
	}
}

func TestVec3Dot(t *testing.T) {
	if got := V3(1, 2, 3).Dot(V3(4, 5, 6)); got != 32 {
		t.Errorf("Dot = %v, want 32", got)
	}
	if got := V3(1, 0, 0).Dot(V3(0, 1, 0)); got != 0 {
		t.Errorf("Dot of orthogonal vectors = %v, want 0", got)
	}
}

func TestVec3CrossRightHanded(t *testing.T) {
	x := V3(1, 0, 0)
	y := V3(0, 1, 0)
	z := V3(0, 0, 1)

	if got := x.Cross(y); !vecNear(got, z) {
		t.Errorf("x cross y = %v, want z", got)
	}
	if got := y.Cross(z); !vecNear(got, x) {
		t.Errorf("y cross z = %v, want x", got)
	}
	if got := y.Cross(x); !vecNear(got, z.Neg()) {
		t.Errorf("y cross x = %v, want -z", got)
	}
}

func TestVec3Length(t *testing.T) {
	v := V3(3, 4, 0)
	if got := v.Length(); math32.Abs(got-5) > vecEpsilon {
		t.Errorf("Length = %v, want 5", got)
	}
	if got := v.LengthSq(); got != 25 {
		t.Errorf("LengthSq = %v, want 25", got)
	}
}

func TestVec3Normalize(t *testing.T) {
	v := V3(0, 3, 4).Normalize()
	if !vecNear(v, V3(0, 0.6, 0.8)) {
		t.Errorf("Normalize = %v", v)
	}
	if got := (Vec3{}).Normalize(); !vecNear(got, Vec3{}) {
		t.Errorf("Normalize of zero vector = %v, want zero", got)
	}
}

func TestVec3Lerp(t *testing.T) {
	a := V3(0, 0, 0)
	b := V3(2, 4, 6)

	if got := a.Lerp(b, 0); !vecNear(got, a) {
		t.Errorf("Lerp(0) = %v", got)
	}
	if got := a.Lerp(b, 1); !vecNear(got, b) {
		t.Errorf("Lerp(1) = %v", got)
	}
	if got := a.Lerp(b, 0.5); !vecNear(got, V3(1, 2, 3)) {
		t.Errorf("Lerp(0.5) = %v", got)
	}
}
