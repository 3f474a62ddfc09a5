// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package g3

import (
	"errors"

	"github.com/chewxy/math32"
	"golang.org/x/image/math/f32"
)

// ErrDegenerateLookAt is returned when a look-at matrix cannot be built
// because the eye and target coincide, or the view direction is parallel
// to the world-up vector.
var ErrDegenerateLookAt = errors.New("g3: degenerate look-at (eye equals target or view direction parallel to up)")

// Mat4 represents a 4x4 transformation matrix.
// It is stored in row-major order (the order documented by
// [f32.Mat4]): element (row i, column j) is at index i*4+j.
// Uniform uploads convert to the column-major layout shaders expect;
// see ColumnMajor.
//
// Transforms compose by right-multiplication, matching the classic GL
// matrix model: m.Translate(v) returns m * T(v), so the translation is
// applied first in object space.
type Mat4 f32.Mat4

// Identity returns the identity transformation matrix.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Translation creates a translation matrix.
func Translation(v Vec3) Mat4 {
	return Mat4{
		1, 0, 0, v.X,
		0, 1, 0, v.Y,
		0, 0, 1, v.Z,
		0, 0, 0, 1,
	}
}

// Scaling creates a scaling matrix.
func Scaling(v Vec3) Mat4 {
	return Mat4{
		v.X, 0, 0, 0,
		0, v.Y, 0, 0,
		0, 0, v.Z, 0,
		0, 0, 0, 1,
	}
}

// RotationX creates a rotation matrix around the X axis (angle in radians).
func RotationX(angle float32) Mat4 {
	c := math32.Cos(angle)
	s := math32.Sin(angle)
	return Mat4{
		1, 0, 0, 0,
		0, c, -s, 0,
		0, s, c, 0,
		0, 0, 0, 1,
	}
}

// RotationY creates a rotation matrix around the Y axis (angle in radians).
func RotationY(angle float32) Mat4 {
	c := math32.Cos(angle)
	s := math32.Sin(angle)
	return Mat4{
		c, 0, s, 0,
		0, 1, 0, 0,
		-s, 0, c, 0,
		0, 0, 0, 1,
	}
}

// RotationZ creates a rotation matrix around the Z axis (angle in radians).
func RotationZ(angle float32) Mat4 {
	c := math32.Cos(angle)
	s := math32.Sin(angle)
	return Mat4{
		c, -s, 0, 0,
		s, c, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// LookAt builds a right-handed world-to-camera (view) matrix looking
// from eye towards target, with a fixed world-up of (0, 1, 0).
//
// Returns ErrDegenerateLookAt when eye and target coincide or the view
// direction is parallel to the up vector; in that case the matrix result
// is the identity.
func LookAt(eye, target Vec3) (Mat4, error) {
	up := Vec3{Y: 1}

	f := target.Sub(eye)
	if f.LengthSq() == 0 {
		return Identity(), ErrDegenerateLookAt
	}
	f = f.Normalize()

	s := f.Cross(up)
	if s.LengthSq() < 1e-10 {
		return Identity(), ErrDegenerateLookAt
	}
	s = s.Normalize()
	u := s.Cross(f)

	return Mat4{
		s.X, s.Y, s.Z, -s.Dot(eye),
		u.X, u.Y, u.Z, -u.Dot(eye),
		-f.X, -f.Y, -f.Z, f.Dot(eye),
		0, 0, 0, 1,
	}, nil
}

// Orthographic builds a symmetric orthographic projection matrix.
// The horizontal half-extent is zoom*aspect and the vertical half-extent
// is zoom; there is no general left/right/bottom/top form.
func Orthographic(zoom, aspect, near, far float32) Mat4 {
	left := -(zoom * aspect)
	right := zoom * aspect
	bottom := -zoom
	top := zoom

	return Mat4{
		2 / (right - left), 0, 0, -(right + left) / (right - left),
		0, 2 / (top - bottom), 0, -(top + bottom) / (top - bottom),
		0, 0, -2 / (far - near), -(far + near) / (far - near),
		0, 0, 0, 1,
	}
}

// Perspective builds a right-handed perspective projection matrix.
// fovy is the vertical field of view in radians.
func Perspective(fovy, aspect, near, far float32) Mat4 {
	t := math32.Tan(fovy / 2)
	return Mat4{
		1 / (aspect * t), 0, 0, 0,
		0, 1 / t, 0, 0,
		0, 0, -(far + near) / (far - near), -(2 * far * near) / (far - near),
		0, 0, -1, 0,
	}
}

// Mul multiplies two matrices (m * other).
func (m Mat4) Mul(other Mat4) Mat4 {
	var out Mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += m[i*4+k] * other[k*4+j]
			}
			out[i*4+j] = sum
		}
	}
	return out
}

// Translate returns m composed with a translation (m * T(v)).
func (m Mat4) Translate(v Vec3) Mat4 {
	return m.Mul(Translation(v))
}

// Scale returns m composed with a scaling (m * S(v)).
func (m Mat4) Scale(v Vec3) Mat4 {
	return m.Mul(Scaling(v))
}

// RotateX returns m composed with a rotation around the X axis.
func (m Mat4) RotateX(angle float32) Mat4 {
	return m.Mul(RotationX(angle))
}

// RotateY returns m composed with a rotation around the Y axis.
func (m Mat4) RotateY(angle float32) Mat4 {
	return m.Mul(RotationY(angle))
}

// RotateZ returns m composed with a rotation around the Z axis.
func (m Mat4) RotateZ(angle float32) Mat4 {
	return m.Mul(RotationZ(angle))
}

// TransformPoint applies the transformation to a point (w=1).
// The result is not divided by w; use a projection-aware helper if you
// need clip-space coordinates.
func (m Mat4) TransformPoint(p Vec3) Vec3 {
	return Vec3{
		X: m[0]*p.X + m[1]*p.Y + m[2]*p.Z + m[3],
		Y: m[4]*p.X + m[5]*p.Y + m[6]*p.Z + m[7],
		Z: m[8]*p.X + m[9]*p.Y + m[10]*p.Z + m[11],
	}
}

// Transpose returns the transposed matrix.
func (m Mat4) Transpose() Mat4 {
	var out Mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			out[i*4+j] = m[j*4+i]
		}
	}
	return out
}

// ColumnMajor returns the matrix elements in column-major order, the
// layout expected by WGSL mat4x4<f32> uniforms.
func (m Mat4) ColumnMajor() [16]float32 {
	var out [16]float32
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			out[j*4+i] = m[i*4+j]
		}
	}
	return out
}

// IsIdentity returns true if the matrix is the identity matrix.
func (m Mat4) IsIdentity() bool {
	return m == Identity()
}

// Inverse returns the inverse matrix.
// Returns the identity matrix if the matrix is not invertible.
func (m Mat4) Inverse() Mat4 {
	var inv Mat4

	inv[0] = m[5]*m[10]*m[15] - m[5]*m[11]*m[14] - m[9]*m[6]*m[15] +
		m[9]*m[7]*m[14] + m[13]*m[6]*m[11] - m[13]*m[7]*m[10]
	inv[4] = -m[4]*m[10]*m[15] + m[4]*m[11]*m[14] + m[8]*m[6]*m[15] -
		m[8]*m[7]*m[14] - m[12]*m[6]*m[11] + m[12]*m[7]*m[10]
	inv[8] = m[4]*m[9]*m[15] - m[4]*m[11]*m[13] - m[8]*m[5]*m[15] +
		m[8]*m[7]*m[13] + m[12]*m[5]*m[11] - m[12]*m[7]*m[9]
	inv[12] = -m[4]*m[9]*m[14] + m[4]*m[10]*m[13] + m[8]*m[5]*m[14] -
		m[8]*m[6]*m[13] - m[12]*m[5]*m[10] + m[12]*m[6]*m[9]
	inv[1] = -m[1]*m[10]*m[15] + m[1]*m[11]*m[14] + m[9]*m[2]*m[15] -
		m[9]*m[3]*m[14] - m[13]*m[2]*m[11] + m[13]*m[3]*m[10]
	inv[5] = m[0]*m[10]*m[15] - m[0]*m[11]*m[14] - m[8]*m[2]*m[15] +
		m[8]*m[3]*m[14] + m[12]*m[2]*m[11] - m[12]*m[3]*m[10]
	inv[9] = -m[0]*m[9]*m[15] + m[0]*m[11]*m[13] + m[8]*m[1]*m[15] -
		m[8]*m[3]*m[13] - m[12]*m[1]*m[11] + m[12]*m[3]*m[9]
	inv[13] = m[0]*m[9]*m[14] - m[0]*m[10]*m[13] - m[8]*m[1]*m[14] +
		m[8]*m[2]*m[13] + m[12]*m[1]*m[10] - m[12]*m[2]*m[9]
	inv[2] = m[1]*m[6]*m[15] - m[1]*m[7]*m[14] - m[5]*m[2]*m[15] +
		m[5]*m[3]*m[14] + m[13]*m[2]*m[7] - m[13]*m[3]*m[6]
	inv[6] = -m[0]*m[6]*m[15] + m[0]*m[7]*m[14] + m[4]*m[2]*m[15] -
		m[4]*m[3]*m[14] - m[12]*m[2]*m[7] + m[12]*m[3]*m[6]
	inv[10] = m[0]*m[5]*m[15] - m[0]*m[7]*m[13] - m[4]*m[1]*m[15] +
		m[4]*m[3]*m[13] + m[12]*m[1]*m[7] - m[12]*m[3]*m[5]
	inv[14] = -m[0]*m[5]*m[14] + m[0]*m[6]*m[13] + m[4]*m[1]*m[14] -
		m[4]*m[2]*m[13] - m[12]*m[1]*m[6] + m[12]*m[2]*m[5]
	inv[3] = -m[1]*m[6]*m[11] + m[1]*m[7]*m[10] + m[5]*m[2]*m[11] -
		m[5]*m[3]*m[10] - m[9]*m[2]*m[7] + m[9]*m[3]*m[6]
	inv[7] = m[0]*m[6]*m[11] - m[0]*m[7]*m[10] - m[4]*m[2]*m[11] +
		m[4]*m[3]*m[10] + m[8]*m[2]*m[7] - m[8]*m[3]*m[6]
	inv[11] = -m[0]*m[5]*m[11] + m[0]*m[7]*m[9] + m[4]*m[1]*m[11] -
		m[4]*m[3]*m[9] - m[8]*m[1]*m[7] + m[8]*m[3]*m[5]
	inv[15] = m[0]*m[5]*m[10] - m[0]*m[6]*m[9] - m[4]*m[1]*m[10] +
		m[4]*m[2]*m[9] + m[8]*m[1]*m[6] - m[8]*m[2]*m[5]

	det := m[0]*inv[0] + m[1]*inv[4] + m[2]*inv[8] + m[3]*inv[12]
	if math32.Abs(det) < 1e-20 {
		return Identity()
	}

	invDet := 1 / det
	for i := range inv {
		inv[i] *= invDet
	}
	return inv
}
