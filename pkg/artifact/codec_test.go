package artifact

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/treedump/pkg/cst"
)

func pt(row, col int) cst.Point {
	return cst.Point{Row: row, Column: col}
}

// testDocument is the artifact of "x = 1\n" parsed with python.
func testDocument() *Document {
	assignment := cst.NewBranch("assignment", pt(0, 0), pt(0, 5),
		cst.NewLeaf("identifier", pt(0, 0), pt(0, 1), "x"),
		cst.NewLeaf("=", pt(0, 2), pt(0, 3), "="),
		cst.NewLeaf("integer", pt(0, 4), pt(0, 5), "1"),
	)
	root := cst.NewBranch("module", pt(0, 0), pt(1, 0),
		cst.NewBranch("expression_statement", pt(0, 0), pt(0, 5), assignment),
	)

	return &Document{SourceCode: "x = 1\n", AST: root}
}

func TestJSONCodec_RoundTrip(t *testing.T) {
	t.Parallel()

	codec := NewJSONCodec()
	original := testDocument()

	var buf bytes.Buffer

	require.NoError(t, codec.Encode(&buf, original))

	decoded, err := codec.Decode(&buf)
	require.NoError(t, err)

	assert.Equal(t, original, decoded)
}

func TestJSONCodec_MatchesEncodingJSONLayout(t *testing.T) {
	t.Parallel()

	doc := testDocument()

	want, err := json.MarshalIndent(struct {
		SourceCode string    `json:"source_code"`
		AST        *cst.Node `json:"ast"`
	}{doc.SourceCode, doc.AST}, "", defaultIndent)
	require.NoError(t, err)

	var buf bytes.Buffer

	require.NoError(t, NewJSONCodec().Encode(&buf, doc))

	assert.Equal(t, string(want)+"\n", buf.String())
}

func TestJSONCodec_KeyOrder(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, NewJSONCodec().Encode(&buf, testDocument()))

	output := buf.String()
	assert.True(t, strings.HasPrefix(output, "{\n  \"source_code\": \"x = 1\\n\",\n  \"ast\": {"))
	assert.Less(t, strings.Index(output, `"type"`), strings.Index(output, `"start"`))
	assert.Less(t, strings.Index(output, `"start"`), strings.Index(output, `"end"`))
}

func TestJSONCodec_CompactNoIndent(t *testing.T) {
	t.Parallel()

	codec := &JSONCodec{Indent: ""}

	var buf bytes.Buffer

	require.NoError(t, codec.Encode(&buf, testDocument()))

	// Compact JSON has exactly one trailing newline.
	output := buf.String()

	assert.Equal(t, 1, strings.Count(output, "\n"))
	assert.True(t, strings.HasPrefix(output, `{"source_code":"x = 1\n","ast":{"type":"module"`))
	assert.True(t, json.Valid([]byte(output)))
}

func TestJSONCodec_KeepsNonASCII(t *testing.T) {
	t.Parallel()

	doc := &Document{
		SourceCode: "s = \"héllo <b>\"\n",
		AST:        cst.NewBranch("module", pt(0, 0), pt(1, 0)),
	}

	var buf bytes.Buffer

	require.NoError(t, NewJSONCodec().Encode(&buf, doc))

	assert.Contains(t, buf.String(), `"s = \"héllo <b>\"\n"`)
}

func TestJSONCodec_DecodeErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{name: "not json", input: "not valid json{{{"},
		{name: "array", input: "[1,2]"},
		{name: "missing ast", input: `{"source_code":""}`},
		{name: "bad node", input: `{"source_code":"","ast":{"type":"x","start":[0,0],"end":[0,0]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewJSONCodec().Decode(strings.NewReader(tt.input))

			require.Error(t, err)
			assert.Contains(t, err.Error(), "json decode")
		})
	}
}

func TestJSONCodec_DecodeIgnoresUnknownKeys(t *testing.T) {
	t.Parallel()

	input := `{"version":3,"source_code":"","ast":{"type":"module","start":[0,0],"end":[0,0],"children":[]}}`

	doc, err := NewJSONCodec().Decode(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, "module", doc.AST.Type)
	assert.NotNil(t, doc.AST.Children)
}

func TestJSONCodec_Extension(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ".json", NewJSONCodec().Extension())
}

func TestYAMLCodec_RoundTrip(t *testing.T) {
	t.Parallel()

	codec := NewYAMLCodec()
	original := testDocument()

	var buf bytes.Buffer

	require.NoError(t, codec.Encode(&buf, original))
	assert.True(t, strings.HasPrefix(buf.String(), "source_code: "))

	decoded, err := codec.Decode(&buf)
	require.NoError(t, err)

	assert.Equal(t, original, decoded)
	assert.Equal(t, ".yaml", codec.Extension())
}

func TestYAMLCodec_DecodeError(t *testing.T) {
	t.Parallel()

	_, err := NewYAMLCodec().Decode(strings.NewReader("source_code: x\n"))
	require.ErrorIs(t, err, ErrMissingAST)

	_, err = NewYAMLCodec().Decode(strings.NewReader(":\n\t- ]["))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "yaml decode")
}

func TestLZ4Codec_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, inner := range []Codec{NewJSONCodec(), NewYAMLCodec()} {
		codec := NewLZ4Codec(inner)
		original := testDocument()

		var buf bytes.Buffer

		require.NoError(t, codec.Encode(&buf, original))
		assert.NotContains(t, buf.String(), "source_code")

		decoded, err := codec.Decode(&buf)
		require.NoError(t, err)

		assert.Equal(t, original, decoded)
		assert.Equal(t, inner.Extension()+".lz4", codec.Extension())
	}
}

func TestCodecFor(t *testing.T) {
	t.Parallel()

	codec, err := CodecFor("json", false)
	require.NoError(t, err)
	assert.IsType(t, &JSONCodec{}, codec)

	codec, err = CodecFor("YAML", true)
	require.NoError(t, err)
	assert.Equal(t, ".yaml.lz4", codec.Extension())

	_, err = CodecFor("toml", false)
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestCodecForPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ".json", CodecForPath("out/python_ast.json").Extension())
	assert.Equal(t, ".json.lz4", CodecForPath("out/python_ast.json.lz4").Extension())
	assert.Equal(t, ".yaml", CodecForPath("a.yml").Extension())
	assert.Equal(t, ".yaml.lz4", CodecForPath("a.YAML.lz4").Extension())
	assert.Equal(t, ".json", CodecForPath("noext").Extension())
}
