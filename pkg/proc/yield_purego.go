//go:build purego

package proc

// Yield is a no-op without access to the runtime's spin hint.
func Yield() {}
