package g3

// MatrixMode selects which transform stack subsequent matrix operations
// act on. See [Renderer.SetMatrixMode].
type MatrixMode int

const (
	// ModeModel selects the model (object-to-world) stack.
	ModeModel MatrixMode = iota
	// ModeView selects the view (camera pose) stack.
	ModeView
	// ModeProjection selects the projection stack.
	ModeProjection
)

// String returns the string representation of MatrixMode.
func (m MatrixMode) String() string {
	switch m {
	case ModeModel:
		return "Model"
	case ModeView:
		return "View"
	case ModeProjection:
		return "Projection"
	default:
		return "Unknown"
	}
}

// MatrixStack is a LIFO stack of 4x4 matrices representing nested
// coordinate-frame transforms.
//
// A MatrixStack is never empty: it is created holding a single identity
// matrix, and Pop re-establishes the identity when it would otherwise
// remove the last element. The guarantee lives here, on the stack type,
// so callers cannot bypass it.
//
// MatrixStack is not safe for concurrent use.
type MatrixStack struct {
	mats []Mat4
}

// NewMatrixStack creates a stack holding a single identity matrix.
func NewMatrixStack() *MatrixStack {
	return &MatrixStack{mats: []Mat4{Identity()}}
}

// Push duplicates the top matrix and pushes the duplicate.
// After Push, Top returns a value equal to the previous top.
func (s *MatrixStack) Push() {
	s.mats = append(s.mats, s.mats[len(s.mats)-1])
}

// Pop removes the top matrix. Popping the last element replaces it with
// the identity instead, so the stack always holds at least one matrix.
func (s *MatrixStack) Pop() {
	s.mats = s.mats[:len(s.mats)-1]
	if len(s.mats) == 0 {
		s.mats = append(s.mats, Identity())
	}
}

// Load replaces the top matrix with m. The stack depth is unchanged.
func (s *MatrixStack) Load(m Mat4) {
	s.mats[len(s.mats)-1] = m
}

// LoadIdentity replaces the top matrix with the identity.
func (s *MatrixStack) LoadIdentity() {
	s.Load(Identity())
}

// Top returns the current top matrix without mutating the stack.
func (s *MatrixStack) Top() Mat4 {
	return s.mats[len(s.mats)-1]
}

// Depth returns the number of matrices on the stack. Always >= 1.
func (s *MatrixStack) Depth() int {
	return len(s.mats)
}

// Reset discards all matrices and restores the initial single-identity
// state.
func (s *MatrixStack) Reset() {
	s.mats = s.mats[:0]
	s.mats = append(s.mats, Identity())
}
