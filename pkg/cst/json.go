package cst

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Decoding errors.
var (
	ErrMalformedNode    = errors.New("malformed node record")
	ErrTextAndChildren  = errors.New("node record has both text and children")
	ErrNoTextOrChildren = errors.New("node record has neither text nor children")
)

// Record keys, in emission order.
const (
	keyType     = "type"
	keyStart    = "start"
	keyEnd      = "end"
	keyChildren = "children"
	keyText     = "text"
)

type jsonItemKind uint8

const (
	itemNode jsonItemKind = iota
	itemNull
	itemSep
	itemClose
)

// jsonItem is a pending write: a node to open, a null child, the separator
// before a child, or the closing of a branch's children. Only the nesting
// level is stored, so pending items stay small at any depth.
type jsonItem struct {
	node  *Node
	level int
	kind  jsonItemKind
	first bool
}

// MarshalJSON encodes the subtree as a compact NodeRecord:
//
//	{"type": ..., "start": [r, c], "end": [r, c], "children": [...]}
//	{"type": ..., "start": [r, c], "end": [r, c], "text": ...}
//
// Key order is fixed, so equal trees always encode to identical bytes.
// json.Marshal re-validates the result and rejects nesting deeper than its
// scanner limit; use [WriteJSON] for arbitrarily deep trees.
func (n *Node) MarshalJSON() ([]byte, error) {
	var out bytes.Buffer

	err := WriteJSON(&out, n, 0, "")
	if err != nil {
		return nil, err
	}

	return out.Bytes(), nil
}

// WriteJSON streams the NodeRecord of n to w. With a non-empty indent the
// layout matches json.MarshalIndent, the record's opening brace sitting at
// the given nesting level. Nesting depth is not limited.
func WriteJSON(w io.Writer, n *Node, level int, indent string) error {
	jw := &jsonWriter{out: bufio.NewWriter(w), indent: indent}
	jw.strEnc = json.NewEncoder(&jw.scratch)
	jw.strEnc.SetEscapeHTML(false)

	if n == nil {
		jw.out.WriteString("null")
	} else {
		jw.writeTree(n, level)
	}

	if jw.err != nil {
		return jw.err
	}

	err := jw.out.Flush()
	if err != nil {
		return fmt.Errorf("write node record: %w", err)
	}

	return nil
}

// WriteString writes s as a JSON string literal without HTML escaping.
func WriteString(w io.Writer, s string) error {
	var buf bytes.Buffer

	inner := json.NewEncoder(&buf)
	inner.SetEscapeHTML(false)

	err := inner.Encode(s)
	if err != nil {
		return fmt.Errorf("encode string: %w", err)
	}

	_, err = w.Write(bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}))
	if err != nil {
		return fmt.Errorf("write string: %w", err)
	}

	return nil
}

type jsonWriter struct {
	out     *bufio.Writer
	strEnc  *json.Encoder
	err     error
	indent  string
	pad     []byte
	scratch bytes.Buffer
}

func (jw *jsonWriter) writeTree(root *Node, level int) {
	stack := []jsonItem{{node: root, level: level}}

	for len(stack) > 0 && jw.err == nil {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch item.kind {
		case itemNull:
			jw.out.WriteString("null")
		case itemSep:
			if !item.first {
				jw.out.WriteByte(',')
			}

			jw.newline(item.level)
		case itemClose:
			jw.newline(item.level + 1)
			jw.out.WriteByte(']')
			jw.newline(item.level)
			jw.out.WriteByte('}')
		default:
			stack = jw.openNode(item.node, item.level, stack)
		}
	}
}

// openNode writes everything up to the children of node and schedules the rest.
func (jw *jsonWriter) openNode(node *Node, level int, stack []jsonItem) []jsonItem {
	inner := level + 1

	jw.out.WriteByte('{')
	jw.key(keyType, inner)
	jw.str(node.Type)
	jw.out.WriteByte(',')
	jw.key(keyStart, inner)
	jw.point(node.Start, inner)
	jw.out.WriteByte(',')
	jw.key(keyEnd, inner)
	jw.point(node.End, inner)
	jw.out.WriteByte(',')

	if node.IsLeaf() {
		jw.key(keyText, inner)
		jw.str(node.Text)
		jw.newline(level)
		jw.out.WriteByte('}')

		return stack
	}

	jw.key(keyChildren, inner)

	if len(node.Children) == 0 {
		jw.out.WriteString("[]")
		jw.newline(level)
		jw.out.WriteByte('}')

		return stack
	}

	jw.out.WriteByte('[')

	stack = append(stack, jsonItem{kind: itemClose, level: level})

	for idx := len(node.Children) - 1; idx >= 0; idx-- {
		child := node.Children[idx]
		if child == nil {
			stack = append(stack, jsonItem{kind: itemNull})
		} else {
			stack = append(stack, jsonItem{node: child, level: inner + 1})
		}

		stack = append(stack, jsonItem{kind: itemSep, level: inner + 1, first: idx == 0})
	}

	return stack
}

// newline starts a new line indented to level. It writes nothing in
// compact mode.
func (jw *jsonWriter) newline(level int) {
	if jw.indent == "" {
		return
	}

	width := level * len(jw.indent)
	for len(jw.pad) < width {
		jw.pad = append(jw.pad, jw.indent...)
	}

	jw.out.WriteByte('\n')
	jw.out.Write(jw.pad[:width])
}

func (jw *jsonWriter) key(name string, level int) {
	jw.newline(level)
	jw.out.WriteString(`"` + name + `":`)

	if jw.indent != "" {
		jw.out.WriteByte(' ')
	}
}

func (jw *jsonWriter) point(p Point, level int) {
	if jw.indent == "" {
		fmt.Fprintf(jw.out, "[%d,%d]", p.Row, p.Column)

		return
	}

	jw.out.WriteByte('[')
	jw.newline(level + 1)
	jw.out.WriteString(strconv.Itoa(p.Row))
	jw.out.WriteByte(',')
	jw.newline(level + 1)
	jw.out.WriteString(strconv.Itoa(p.Column))
	jw.newline(level)
	jw.out.WriteByte(']')
}

func (jw *jsonWriter) str(s string) {
	if jw.err != nil {
		return
	}

	jw.scratch.Reset()

	err := jw.strEnc.Encode(s)
	if err != nil {
		jw.err = fmt.Errorf("encode string: %w", err)

		return
	}

	// Encode appends a newline.
	jw.out.Write(bytes.TrimSuffix(jw.scratch.Bytes(), []byte{'\n'}))
}

// decodeFrame tracks one open node record.
type decodeFrame struct {
	node         *Node
	path         string
	inChildren   bool
	seenText     bool
	seenChildren bool
}

// UnmarshalJSON decodes a NodeRecord. Exactly one of "text" and "children"
// must be present; unknown keys are ignored.
func (n *Node) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	root, err := DecodeNode(dec)
	if err != nil {
		return err
	}

	*n = *root

	return nil
}

// DecodeNode reads one NodeRecord from dec without recursing per level.
func DecodeNode(dec *json.Decoder) (*Node, error) {
	err := expectDelim(dec, '{', "ast")
	if err != nil {
		return nil, err
	}

	root := &Node{}
	stack := []*decodeFrame{{node: root, path: "ast"}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]

		tok, tokErr := dec.Token()
		if tokErr != nil {
			return nil, fmt.Errorf("%w at %s: %w", ErrMalformedNode, top.path, tokErr)
		}

		if top.inChildren {
			switch tok {
			case json.Delim('{'):
				child := &Node{}
				childPath := fmt.Sprintf("%s.children[%d]", top.path, len(top.node.Children))
				top.node.Children = append(top.node.Children, child)
				stack = append(stack, &decodeFrame{node: child, path: childPath})
			case json.Delim(']'):
				top.inChildren = false
			default:
				return nil, fmt.Errorf("%w at %s: unexpected %v in children", ErrMalformedNode, top.path, tok)
			}

			continue
		}

		if tok == json.Delim('}') {
			closeErr := top.close()
			if closeErr != nil {
				return nil, closeErr
			}

			stack = stack[:len(stack)-1]

			continue
		}

		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("%w at %s: unexpected %v", ErrMalformedNode, top.path, tok)
		}

		fieldErr := top.decodeField(dec, key)
		if fieldErr != nil {
			return nil, fieldErr
		}
	}

	return root, nil
}

func (f *decodeFrame) decodeField(dec *json.Decoder, key string) error {
	var err error

	switch key {
	case keyType:
		err = dec.Decode(&f.node.Type)
	case keyStart:
		err = dec.Decode(&f.node.Start)
	case keyEnd:
		err = dec.Decode(&f.node.End)
	case keyText:
		f.seenText = true
		err = dec.Decode(&f.node.Text)
	case keyChildren:
		f.seenChildren = true
		f.inChildren = true
		f.node.Children = []*Node{}
		err = expectDelim(dec, '[', f.path)
	default:
		var skipped json.RawMessage
		err = dec.Decode(&skipped)
	}

	if err != nil {
		return fmt.Errorf("%w at %s.%s: %w", ErrMalformedNode, f.path, key, err)
	}

	return nil
}

func (f *decodeFrame) close() error {
	switch {
	case f.seenText && f.seenChildren:
		return fmt.Errorf("%s: %w", f.path, ErrTextAndChildren)
	case !f.seenText && !f.seenChildren:
		return fmt.Errorf("%s: %w", f.path, ErrNoTextOrChildren)
	default:
		return nil
	}
}

func expectDelim(dec *json.Decoder, want json.Delim, path string) error {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}

		return fmt.Errorf("%w at %s: %w", ErrMalformedNode, path, err)
	}

	if tok != want {
		return fmt.Errorf("%w at %s: want %v, got %v", ErrMalformedNode, path, want, tok)
	}

	return nil
}
