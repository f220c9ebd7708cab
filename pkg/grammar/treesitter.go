package grammar

import (
	"context"
	"fmt"
	"sync"

	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/Sumatoshi-tech/treedump/pkg/cst"
	"github.com/Sumatoshi-tech/treedump/pkg/safeconv"
)

// TreeSitter parses with one tree-sitter grammar. Engine parsers are pooled,
// so a single TreeSitter may serve concurrent Parse calls.
type TreeSitter struct {
	language *sitter.Language
	name     string
	pool     sync.Pool
}

// NewTreeSitter binds a parser to the named grammar.
func NewTreeSitter(name string) (*TreeSitter, error) {
	lang := Language(name)
	if lang == nil {
		return nil, &ParseError{Grammar: name, Err: ErrUnsupportedGrammar}
	}

	ts := &TreeSitter{language: lang, name: name}
	ts.pool = sync.Pool{
		New: func() any {
			tsParser := sitter.NewParser()
			tsParser.SetLanguage(lang)

			return tsParser
		},
	}

	return ts, nil
}

// Grammar returns the grammar name the parser was built with.
func (ts *TreeSitter) Grammar() string {
	return ts.name
}

// Parse parses src. The returned Tree must be closed by the caller.
func (ts *TreeSitter) Parse(ctx context.Context, src []byte) (*Tree, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	tsTree, err := ts.withParser(func(tsParser *sitter.Parser) (*sitter.Tree, error) {
		return tsParser.ParseString(ctx, nil, src)
	})
	if err != nil {
		return nil, err
	}

	if tsTree == nil {
		return nil, &ParseError{Grammar: ts.name, Err: errNoRootNode}
	}

	if tsTree.RootNode().IsNull() {
		tsTree.Close()

		return nil, &ParseError{Grammar: ts.name, Err: errNoRootNode}
	}

	return &Tree{ts: tsTree, src: src, grammar: ts.name}, nil
}

// withParser runs parse on a pooled engine parser. Engine panics become a
// ParseError, and a parser that panicked is dropped instead of going back
// to the pool.
func (ts *TreeSitter) withParser(parse func(*sitter.Parser) (*sitter.Tree, error)) (tsTree *sitter.Tree, err error) {
	tsParser, ok := ts.pool.Get().(*sitter.Parser)
	if !ok {
		return nil, &ParseError{Grammar: ts.name, Err: errPoolType}
	}

	defer func() {
		if r := recover(); r != nil {
			tsTree = nil
			err = &ParseError{Grammar: ts.name, Err: fmt.Errorf("engine panic: %v", r)}

			return
		}

		ts.pool.Put(tsParser)
	}()

	tsTree, err = parse(tsParser)
	if err != nil {
		return nil, &ParseError{Grammar: ts.name, Err: err}
	}

	return tsTree, nil
}

// Tree is a live engine tree together with the bytes it was parsed from.
type Tree struct {
	ts      *sitter.Tree
	grammar string
	src     []byte
}

// Root returns a read-only view of the root node. The view is valid until
// Close.
func (t *Tree) Root() cst.View {
	return liveNode{node: t.ts.RootNode(), src: t.src, root: true}
}

// Source returns the parsed bytes.
func (t *Tree) Source() []byte {
	return t.src
}

// Grammar returns the grammar the tree was parsed with.
func (t *Tree) Grammar() string {
	return t.grammar
}

// Close releases the engine tree. It is safe to call more than once.
func (t *Tree) Close() {
	if t.ts != nil {
		t.ts.Close()
		t.ts = nil
	}
}

// liveNode adapts a sitter.Node to cst.View.
type liveNode struct {
	node sitter.Node
	src  []byte
	root bool
}

func (n liveNode) Kind() string {
	return n.node.Type()
}

func (n liveNode) StartPoint() cst.Point {
	p := n.node.StartPoint()

	return cst.Point{Row: int(p.Row), Column: int(p.Column)} //nolint:gosec // tree-sitter coordinates fit in int
}

func (n liveNode) EndPoint() cst.Point {
	p := n.node.EndPoint()

	return cst.Point{Row: int(p.Row), Column: int(p.Column)} //nolint:gosec // tree-sitter coordinates fit in int
}

// IsLeaf treats childless engine nodes as leaves, except the root, which
// always spans the whole source.
func (n liveNode) IsLeaf() bool {
	return !n.root && n.node.ChildCount() == 0
}

func (n liveNode) ChildCount() int {
	return int(n.node.ChildCount())
}

func (n liveNode) Child(i int) cst.View {
	return liveNode{node: n.node.Child(uint32(i)), src: n.src} //nolint:gosec // i < ChildCount, which is a uint32
}

func (n liveNode) LeafText() string {
	start := safeconv.MustUintToInt(n.node.StartByte())
	end := safeconv.MustUintToInt(n.node.EndByte())

	if start > end || end > len(n.src) {
		return ""
	}

	return cst.DecodeText(n.src[start:end])
}
