package pipeline

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLooksBinary(t *testing.T) {
	t.Parallel()

	assert.False(t, looksBinary(nil))
	assert.False(t, looksBinary([]byte("print('x')\n")))
	assert.True(t, looksBinary([]byte{'a', 0, 'b'}))

	late := append(bytes.Repeat([]byte{'a'}, binarySniffLength), 0)
	assert.False(t, looksBinary(late))
}

func TestCountLines(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, countLines(nil))
	assert.Equal(t, 1, countLines([]byte("x")))
	assert.Equal(t, 1, countLines([]byte("x\n")))
	assert.Equal(t, 3, countLines([]byte("a\n\nb")))
}
