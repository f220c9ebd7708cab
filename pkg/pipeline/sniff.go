package pipeline

import "bytes"

// binarySniffLength bounds the NUL-byte scan, as git does.
const binarySniffLength = 8000

// looksBinary reports a NUL byte within the first binarySniffLength bytes.
func looksBinary(src []byte) bool {
	return bytes.IndexByte(src[:min(len(src), binarySniffLength)], 0) >= 0
}

// countLines counts newline-terminated lines plus a trailing partial line.
func countLines(src []byte) int {
	if len(src) == 0 {
		return 0
	}

	lines := bytes.Count(src, []byte{'\n'})
	if src[len(src)-1] != '\n' {
		lines++
	}

	return lines
}
