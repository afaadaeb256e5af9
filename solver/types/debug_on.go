//go:build solverdebug

package types

// debugMode makes internal inconsistencies panic instead of degrading to the
// error intrinsic.
const debugMode = true
