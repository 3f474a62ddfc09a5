package g3

import "testing"

func TestDeclaresUniform(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want bool
	}{
		{"plain declaration", "struct U { mvp: mat4x4<f32> }", true},
		{"spaces before colon", "mvp : mat4x4<f32>", true},
		{"longer identifier", "mvp_matrix: mat4x4<f32>", false},
		{"identifier suffix", "u_mvp: mat4x4<f32>", false},
		{"member access only", "let p = uniforms.mvp * v;", false},
		{"absent", "@fragment fn fs_main() {}", false},
		{"declaration after use", "out = u.mvp * v;\nstruct U { mvp: mat4x4<f32> }", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := declaresUniform(tt.src, "mvp"); got != tt.want {
				t.Errorf("declaresUniform(%q) = %v, want %v", tt.src, got, tt.want)
			}
		})
	}
}

func TestDefaultShadersDeclareUniforms(t *testing.T) {
	combined := DefaultVertexShader() + "\n" + DefaultFragmentShader()
	if !declaresUniform(combined, "mvp") {
		t.Error("default shaders should declare mvp")
	}
	if !declaresUniform(combined, "time") {
		t.Error("default shaders should declare time")
	}
}
