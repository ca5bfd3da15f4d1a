package util

import "runtime"

// OptimalPoolSize returns the worker count for CPU-bound parallel work:
// twice the core count, floored at 4 and capped at 32. The cap bounds
// memory held by per-worker tree-sitter parsers. A positive override
// wins, which is how tests and config pin the count.
func OptimalPoolSize(override int) int {
	if override > 0 {
		return override
	}
	size := runtime.NumCPU() * 2
	if size < 4 {
		size = 4
	}
	if size > 32 {
		size = 32
	}
	return size
}
