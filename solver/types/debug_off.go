//go:build !solverdebug

package types

const debugMode = false
