// Package proc hints the processor that the caller is busy-waiting.
//
// Yield lowers power draw and frees shared execution resources for the
// sibling hardware thread (PAUSE on amd64, YIELD on arm64). It never
// changes program semantics, and on builds tagged purego it does nothing.
package proc

// Cycles is the number of hint instructions Yield issues per call.
const Cycles = 1
