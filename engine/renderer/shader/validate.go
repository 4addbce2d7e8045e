package shader

import (
	"fmt"

	"github.com/gogpu/naga"
)

// Validate parses and lowers the processed source through naga, catching WGSL errors
// before a device ever sees the kernel.
//
// Parameters:
//   - s: the shader to validate
//
// Returns:
//   - error: the naga parse or lowering error, nil if the source is well formed
func Validate(s Shader) error {
	ast, err := naga.Parse(s.Source())
	if err != nil {
		return fmt.Errorf("shader %s: parse: %w", s.Key(), err)
	}
	if _, err := naga.LowerWithSource(ast, s.Source()); err != nil {
		return fmt.Errorf("shader %s: lower: %w", s.Key(), err)
	}
	return nil
}
