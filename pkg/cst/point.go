package cst

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidPoint is returned when a point cannot be decoded from its [row, col] form.
var ErrInvalidPoint = errors.New("invalid point")

// pointArity is the number of elements in the encoded [row, col] form.
const pointArity = 2

// Point is a zero-based source position. Column counts bytes within the row.
type Point struct {
	Row    int
	Column int
}

// Compare orders points lexicographically by (row, column).
// It returns -1, 0 or +1.
func (p Point) Compare(other Point) int {
	switch {
	case p.Row < other.Row:
		return -1
	case p.Row > other.Row:
		return 1
	case p.Column < other.Column:
		return -1
	case p.Column > other.Column:
		return 1
	default:
		return 0
	}
}

// Before reports whether p sorts strictly before other.
func (p Point) Before(other Point) bool {
	return p.Compare(other) < 0
}

// String formats the point as "row:col".
func (p Point) String() string {
	return fmt.Sprintf("%d:%d", p.Row, p.Column)
}

// MarshalJSON encodes the point as a two-element array.
func (p Point) MarshalJSON() ([]byte, error) {
	return fmt.Appendf(nil, "[%d,%d]", p.Row, p.Column), nil
}

// UnmarshalJSON decodes a two-element [row, col] array.
func (p *Point) UnmarshalJSON(data []byte) error {
	var pair []int

	err := json.Unmarshal(data, &pair)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPoint, err)
	}

	if len(pair) != pointArity {
		return fmt.Errorf("%w: want %d elements, got %d", ErrInvalidPoint, pointArity, len(pair))
	}

	p.Row, p.Column = pair[0], pair[1]

	return nil
}

func (p Point) pair() [2]int {
	return [2]int{p.Row, p.Column}
}

func pointFromPair(pair [2]int) Point {
	return Point{Row: pair[0], Column: pair[1]}
}
