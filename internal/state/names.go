package state

import "fmt"

// uniqueName returns requested if taken reports false for it, otherwise the
// first of requested(1), requested(2), ... that is free.
func uniqueName(requested string, taken func(string) bool) string {
	if !taken(requested) {
		return requested
	}
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s(%d)", requested, n)
		if !taken(candidate) {
			return candidate
		}
	}
}
