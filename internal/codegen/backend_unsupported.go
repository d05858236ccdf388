//go:build !amd64

package codegen

import (
	"fmt"

	"psxrec/internal/recompiler"
)

// NewBackend reports that the real host codegen backend only targets
// amd64; callers fall back to recompiler.NewClosureCodeGenerator on other
// architectures.
func NewBackend() (recompiler.CodeGenerator, error) {
	return nil, fmt.Errorf("codegen: amd64 backend not available on this architecture")
}
