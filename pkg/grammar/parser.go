// Package grammar adapts the tree-sitter engine to the cst.View traversal
// contract. A Parser is bound to one grammar at construction time.
package grammar

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for grammar operations.
var (
	ErrParse              = errors.New("parse failed")
	ErrUnsupportedGrammar = errors.New("unsupported grammar")
	errNoRootNode         = errors.New("no root node")
	errPoolType           = errors.New("parser pool returned unexpected type")
)

// Parser turns source bytes into a live syntax tree.
type Parser interface {
	Grammar() string
	Parse(ctx context.Context, src []byte) (*Tree, error)
}

// ParseError reports a grammar that cannot be loaded or a source that the
// engine failed to parse. It always matches ErrParse.
type ParseError struct {
	Err     error
	Grammar string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Grammar, e.Err)
}

// Unwrap exposes both the cause and ErrParse to errors.Is.
func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Err}
}
