package g3

import (
	"strings"

	"github.com/gogpu/g3/internal/gpu"
)

// Program is a compiled shader pair: one WGSL vertex module and one
// WGSL fragment module, created by [Renderer.CreateProgram].
//
// At creation the sources are scanned for the uniforms the render loop
// can feed (mvp, time). A program that does not declare a uniform never
// receives a write for it; the absence is recorded here, the analog of
// a negative uniform-location lookup.
type Program struct {
	vs gpu.ShaderModuleID
	fs gpu.ShaderModuleID

	hasMVP  bool
	hasTime bool
}

// Valid reports whether the program holds live shader modules.
// It returns false after DestroyProgram.
func (p *Program) Valid() bool {
	return p != nil && p.vs != 0 && p.fs != 0
}

// HasMVP reports whether the program declares the mvp uniform.
func (p *Program) HasMVP() bool {
	return p.hasMVP
}

// HasTime reports whether the program declares the time uniform.
func (p *Program) HasTime() bool {
	return p.hasTime
}

func (p *Program) invalidate() {
	p.vs = 0
	p.fs = 0
}

// declaresUniform reports whether WGSL source declares a struct member
// or binding with the given name. The scan is lexical: the name as a
// whole identifier followed by a colon.
func declaresUniform(src, name string) bool {
	for start := 0; start < len(src); {
		i := strings.Index(src[start:], name)
		if i < 0 {
			return false
		}
		i += start
		start = i + len(name)
		if i > 0 && isIdentByte(src[i-1]) {
			continue
		}
		j := start
		for j < len(src) && (src[j] == ' ' || src[j] == '\t') {
			j++
		}
		if j < len(src) && src[j] == ':' {
			return true
		}
	}
	return false
}

func isIdentByte(c byte) bool {
	return c == '_' ||
		(c >= '0' && c <= '9') ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z')
}
