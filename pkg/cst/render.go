package cst

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// indentUnit is repeated once per tree level.
const indentUnit = "  "

type renderItem struct {
	view  View
	depth int
}

// Render returns the indented, human-readable form of a tree: one line per
// node, two spaces per depth level, leaves as `type: "text"` with the text
// quoted and escaped. Lines are separated by "\n" without a trailing newline.
func Render(root View) string {
	var sb strings.Builder

	// strings.Builder never fails.
	_ = RenderTo(&sb, root)

	return sb.String()
}

// RenderTo streams the rendering of root to w.
func RenderTo(w io.Writer, root View) error {
	if root == nil {
		return nil
	}

	bw := bufio.NewWriter(w)
	stack := []renderItem{{view: root}}
	first := true

	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !first {
			bw.WriteByte('\n')
		}

		first = false

		for range item.depth {
			bw.WriteString(indentUnit)
		}

		bw.WriteString(item.view.Kind())

		if item.view.IsLeaf() {
			bw.WriteString(": ")
			bw.WriteString(strconv.Quote(item.view.LeafText()))

			continue
		}

		for idx := item.view.ChildCount() - 1; idx >= 0; idx-- {
			stack = append(stack, renderItem{view: item.view.Child(idx), depth: item.depth + 1})
		}
	}

	err := bw.Flush()
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	return nil
}
