// Package stacktrace shortens runtime/debug stacks for structured logs.
package stacktrace

import "strings"

// InternalPaths returns the "internal/<pkg>/<file>.go:<line>" frames of a raw
// stack trace, dropping runtime and third-party frames.
func InternalPaths(stack []byte) []string {
	var paths []string
	for line := range strings.Lines(string(stack)) {
		loc, ok := fileLine(line)
		if !ok {
			continue
		}
		if _, rest, found := strings.Cut(loc, "/internal/"); found {
			paths = append(paths, "internal/"+rest)
		}
	}
	return paths
}

// Frames returns InternalPaths when there are any, otherwise every
// file:line frame of the stack.
func Frames(stack []byte) []string {
	if paths := InternalPaths(stack); len(paths) > 0 {
		return paths
	}

	var frames []string
	for line := range strings.Lines(string(stack)) {
		if loc, ok := fileLine(line); ok {
			frames = append(frames, loc)
		}
	}
	return frames
}

// fileLine extracts "path/file.go:123" from a "\t/path/file.go:123 +0x1d" line.
func fileLine(line string) (string, bool) {
	line = strings.TrimSpace(line)
	idx := strings.Index(line, ".go:")
	if idx == -1 {
		return "", false
	}
	loc, _, _ := strings.Cut(line, " ")
	return loc, true
}
