//go:build linux || darwin

// Package codegen is the real amd64 host code generation backend, built
// on github.com/twitchyliquid64/golang-asm the same way wazero's early
// JIT engine used it. It implements
// psxrec/internal/recompiler's CodeGenerator/Session contracts; the
// portable closure backend in that package is what every test in this
// repo actually exercises.
package codegen

import "golang.org/x/sys/unix"

// allocExec reserves a RW page, copies code into it, then flips it to RX.
// The write-then-execute lifecycle keeps the buffer from ever being both
// writable and executable at once.
func allocExec(code []byte) ([]byte, error) {
	size := len(code)
	if size == 0 {
		size = 1
	}
	buf, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, err
	}
	copy(buf, code)
	if err := unix.Mprotect(buf, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		unix.Munmap(buf)
		return nil, err
	}
	return buf, nil
}

func freeExec(buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	return unix.Munmap(buf)
}
