package grammar_test

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/treedump/pkg/cst"
	"github.com/Sumatoshi-tech/treedump/pkg/grammar"
)

func parsePython(t *testing.T, src string) *cst.SyntaxTree {
	t.Helper()

	parser, err := grammar.NewTreeSitter("python")
	require.NoError(t, err)

	tree, err := parser.Parse(context.Background(), []byte(src))
	require.NoError(t, err)

	defer tree.Close()

	return cst.SnapshotTree(src, tree.Root())
}

func leafTexts(root *cst.Node) []string {
	var texts []string

	stack := []*cst.Node{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if node.IsLeaf() {
			texts = append(texts, node.Text)
		}

		for idx := len(node.Children) - 1; idx >= 0; idx-- {
			stack = append(stack, node.Children[idx])
		}
	}

	return texts
}

func TestNewTreeSitter_UnsupportedGrammar(t *testing.T) {
	t.Parallel()

	_, err := grammar.NewTreeSitter("no-such-grammar")
	require.ErrorIs(t, err, grammar.ErrUnsupportedGrammar)
	require.ErrorIs(t, err, grammar.ErrParse)

	var parseErr *grammar.ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "no-such-grammar", parseErr.Grammar)
}

func TestParse_FunctionDefinition(t *testing.T) {
	t.Parallel()

	tree := parsePython(t, "def f(): pass\n")

	root := tree.Root
	assert.Equal(t, "module", root.Type)
	assert.Equal(t, cst.Point{}, root.Start)
	require.Len(t, root.Children, 1)
	assert.Equal(t, "function_definition", root.Children[0].Type)

	assert.Subset(t, leafTexts(root), []string{"def", "f", "(", ")", ":", "pass"})
	require.NoError(t, cst.Check(root))
}

func TestParse_EmptySourceKeepsRootNonTerminal(t *testing.T) {
	t.Parallel()

	tree := parsePython(t, "")

	root := tree.Root
	assert.Equal(t, "module", root.Type)
	assert.Equal(t, cst.Point{}, root.Start)
	assert.Equal(t, cst.Point{}, root.End)
	assert.False(t, root.IsLeaf())
	assert.NotNil(t, root.Children)
	assert.Empty(t, root.Children)
}

func TestParse_InvalidUTF8IsReplaced(t *testing.T) {
	t.Parallel()

	tree := parsePython(t, "x = \"\xff\"\n")

	assert.Contains(t, cst.Render(tree.Root), "\uFFFD")
	require.NoError(t, cst.Check(tree.Root))
}

func TestParse_DeepNesting(t *testing.T) {
	t.Parallel()

	const depth = 1000

	src := strings.Repeat("(", depth) + "x" + strings.Repeat(")", depth) + "\n"
	tree := parsePython(t, src)

	stats := cst.Stats(tree.Root)
	assert.Greater(t, stats.MaxDepth, depth)
	require.NoError(t, cst.Check(tree.Root))
}

type countingWriter struct {
	written int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.written += int64(len(p))

	return len(p), nil
}

func TestParse_DeepArrayEncodesIndented(t *testing.T) { //nolint:paralleltest // measures process-wide allocation
	if testing.Short() {
		t.Skip("skipping deep encoding test in short mode")
	}

	const depth = 10_000

	parser, err := grammar.NewTreeSitter("json")
	require.NoError(t, err)

	src := strings.Repeat("[", depth) + strings.Repeat("]", depth) + "\n"

	tree, err := parser.Parse(context.Background(), []byte(src))
	require.NoError(t, err)

	snap := cst.SnapshotTree(src, tree.Root())
	tree.Close()

	require.NoError(t, cst.Check(snap.Root))
	assert.Greater(t, cst.Stats(snap.Root).MaxDepth, depth)

	runtime.GC()

	var before runtime.MemStats

	runtime.ReadMemStats(&before)

	out := &countingWriter{}
	require.NoError(t, cst.WriteJSON(out, snap.Root, 1, "  "))

	var after runtime.MemStats

	runtime.ReadMemStats(&after)

	allocated := after.TotalAlloc - before.TotalAlloc
	t.Logf("wrote %d MiB, allocated %d KiB", out.written>>20, allocated>>10)

	assert.Greater(t, out.written, int64(depth)*int64(depth))
	assert.Less(t, allocated, uint64(64<<20))
}

func TestParse_LiveViewMatchesSnapshot(t *testing.T) {
	t.Parallel()

	parser, err := grammar.NewTreeSitter("python")
	require.NoError(t, err)

	src := []byte("class A:\n    def m(self):\n        return 1\n")

	tree, err := parser.Parse(context.Background(), src)
	require.NoError(t, err)

	defer tree.Close()

	assert.Equal(t, "python", tree.Grammar())
	assert.Equal(t, src, tree.Source())
	assert.Equal(t, cst.Render(tree.Root()), cst.Render(cst.Snapshot(tree.Root())))
}

func TestParse_CanceledContext(t *testing.T) {
	t.Parallel()

	parser, err := grammar.NewTreeSitter("python")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = parser.Parse(ctx, []byte("x = 1\n"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestParse_ConcurrentCallsShareParser(t *testing.T) {
	t.Parallel()

	parser, err := grammar.NewTreeSitter("go")
	require.NoError(t, err)

	src := []byte("package main\n\nfunc main() {}\n")

	want := func() string {
		tree, parseErr := parser.Parse(context.Background(), src)
		require.NoError(t, parseErr)

		defer tree.Close()

		return cst.Render(tree.Root())
	}()

	var wg sync.WaitGroup

	results := make([]string, 8)

	for idx := range results {
		wg.Add(1)

		go func() {
			defer wg.Done()

			tree, parseErr := parser.Parse(context.Background(), src)
			if parseErr != nil {
				return
			}

			defer tree.Close()

			results[idx] = cst.Render(tree.Root())
		}()
	}

	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

func TestTree_CloseTwice(t *testing.T) {
	t.Parallel()

	parser, err := grammar.NewTreeSitter("python")
	require.NoError(t, err)

	tree, err := parser.Parse(context.Background(), []byte("pass\n"))
	require.NoError(t, err)

	tree.Close()
	assert.NotPanics(t, tree.Close)
}

func TestNames(t *testing.T) {
	t.Parallel()

	names := grammar.Names()

	assert.IsIncreasing(t, names)
	assert.Contains(t, names, "python")
	assert.Contains(t, names, "go")
	assert.True(t, grammar.IsLinked("python"))
	assert.False(t, grammar.IsLinked("no-such-grammar"))
}

func TestLanguage_Cached(t *testing.T) {
	t.Parallel()

	first := grammar.Language("python")
	require.NotNil(t, first)
	assert.Same(t, first, grammar.Language("python"))
	assert.Nil(t, grammar.Language("no-such-grammar"))
}

func TestDetect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		filename string
		want     string
	}{
		{filename: "solution.py", want: "python"},
		{filename: "cmd/main.go", want: "go"},
		{filename: "lib.rs", want: "rust"},
		{filename: "App.java", want: "java"},
		{filename: "notes.unknownext", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, grammar.Detect(tt.filename, nil))
		})
	}
}

func TestGrammarName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "c_sharp", grammar.GrammarName("C#"))
	assert.Equal(t, "cpp", grammar.GrammarName("C++"))
	assert.Equal(t, "bash", grammar.GrammarName("Shell"))
	assert.Equal(t, "python", grammar.GrammarName("Python"))
	assert.Equal(t, "git_config", grammar.GrammarName("Git Config"))
}
