//go:build !purego

package proc

import (
	_ "unsafe"
)

//go:linkname procyield runtime.procyield
func procyield(cycles uint32)

// Yield issues the spin-wait hint.
func Yield() {
	procyield(Cycles)
}
