// Package artifact persists syntax tree snapshots as {source_code, ast}
// documents: codecs, atomic file writes and schema validation.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pierrec/lz4/v4"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/treedump/pkg/cst"
)

// File extensions for supported codecs.
const (
	jsonExtension = ".json"
	yamlExtension = ".yaml"
	ymlExtension  = ".yml"
	lz4Extension  = ".lz4"
)

// Supported artifact formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Default indentation for pretty-printed output.
const defaultIndent = "  "

// Document keys.
const (
	keySourceCode = "source_code"
	keyAST        = "ast"
)

// Codec errors.
var (
	ErrUnknownFormat = errors.New("unknown artifact format")
	ErrMissingAST    = errors.New("artifact has no ast")
)

// Document is the persisted form of a parse: the exact source and its tree.
type Document struct {
	SourceCode string    `yaml:"source_code"`
	AST        *cst.Node `yaml:"ast"`
}

// NewDocument wraps a snapshot for persistence.
func NewDocument(tree *cst.SyntaxTree) *Document {
	return &Document{SourceCode: tree.SourceCode, AST: tree.Root}
}

// SyntaxTree returns the document as a snapshot.
func (d *Document) SyntaxTree() *cst.SyntaxTree {
	return &cst.SyntaxTree{SourceCode: d.SourceCode, Root: d.AST}
}

// Codec defines how a Document is serialized and deserialized.
type Codec interface {
	// Encode writes the document to the writer.
	Encode(w io.Writer, doc *Document) error
	// Decode reads a document from the reader.
	Decode(r io.Reader) (*Document, error)
	// Extension returns the file extension for this codec (e.g., ".json", ".yaml.lz4").
	Extension() string
}

// JSONCodec implements Codec with a streaming JSON encoding whose nesting
// depth is not limited.
type JSONCodec struct {
	// Indent specifies the indentation string. Empty string means compact JSON.
	Indent string
}

// NewJSONCodec creates a JSON codec with pretty-printing (2-space indent).
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{Indent: defaultIndent}
}

// Encode implements Codec.Encode. Keys are written in the order source_code,
// ast, and the output ends with a newline.
func (c *JSONCodec) Encode(w io.Writer, doc *Document) error {
	sep := ":"
	if c.Indent != "" {
		sep = ": "
	}

	newline := ""
	if c.Indent != "" {
		newline = "\n" + c.Indent
	}

	err := writeAll(w, "{"+newline+`"`+keySourceCode+`"`+sep)
	if err == nil {
		err = cst.WriteString(w, doc.SourceCode)
	}

	if err == nil {
		err = writeAll(w, ","+newline+`"`+keyAST+`"`+sep)
	}

	if err == nil {
		err = cst.WriteJSON(w, doc.AST, 1, c.Indent)
	}

	if err == nil && c.Indent != "" {
		err = writeAll(w, "\n")
	}

	if err == nil {
		err = writeAll(w, "}\n")
	}

	if err != nil {
		return fmt.Errorf("json encode: %w", err)
	}

	return nil
}

// Decode implements Codec.Decode. Unknown top-level keys are ignored.
func (c *JSONCodec) Decode(r io.Reader) (*Document, error) {
	doc, err := decodeJSONDocument(json.NewDecoder(r))
	if err != nil {
		return nil, fmt.Errorf("json decode: %w", err)
	}

	return doc, nil
}

func decodeJSONDocument(dec *json.Decoder) (*Document, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	if tok != json.Delim('{') {
		return nil, fmt.Errorf("%w: document is not an object", cst.ErrMalformedNode)
	}

	doc := &Document{}

	for dec.More() {
		tok, err = dec.Token()
		if err != nil {
			return nil, err
		}

		key, _ := tok.(string)

		switch key {
		case keySourceCode:
			err = dec.Decode(&doc.SourceCode)
		case keyAST:
			doc.AST, err = cst.DecodeNode(dec)
		default:
			var skipped json.RawMessage
			err = dec.Decode(&skipped)
		}

		if err != nil {
			return nil, err
		}
	}

	_, err = dec.Token()
	if err != nil {
		return nil, err
	}

	if doc.AST == nil {
		return nil, ErrMissingAST
	}

	return doc, nil
}

// Extension implements Codec.Extension for JSON files.
func (c *JSONCodec) Extension() string {
	return jsonExtension
}

// YAMLCodec implements Codec using gopkg.in/yaml.v3.
type YAMLCodec struct{}

// NewYAMLCodec creates a YAML codec.
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Encode implements Codec.Encode using YAML encoding.
func (c *YAMLCodec) Encode(w io.Writer, doc *Document) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(len(defaultIndent))

	err := encoder.Encode(doc)
	if err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}

	err = encoder.Close()
	if err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}

	return nil
}

// Decode implements Codec.Decode using YAML decoding.
func (c *YAMLCodec) Decode(r io.Reader) (*Document, error) {
	var doc Document

	err := yaml.NewDecoder(r).Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("yaml decode: %w", err)
	}

	if doc.AST == nil {
		return nil, fmt.Errorf("yaml decode: %w", ErrMissingAST)
	}

	return &doc, nil
}

// Extension implements Codec.Extension for YAML files.
func (c *YAMLCodec) Extension() string {
	return yamlExtension
}

// LZ4Codec wraps another codec in an LZ4 frame.
type LZ4Codec struct {
	Inner Codec
}

// NewLZ4Codec compresses the output of inner.
func NewLZ4Codec(inner Codec) *LZ4Codec {
	return &LZ4Codec{Inner: inner}
}

// Encode implements Codec.Encode.
func (c *LZ4Codec) Encode(w io.Writer, doc *Document) error {
	zw := lz4.NewWriter(w)

	err := c.Inner.Encode(zw, doc)
	if err != nil {
		return err
	}

	err = zw.Close()
	if err != nil {
		return fmt.Errorf("lz4 encode: %w", err)
	}

	return nil
}

// Decode implements Codec.Decode.
func (c *LZ4Codec) Decode(r io.Reader) (*Document, error) {
	return c.Inner.Decode(lz4.NewReader(r))
}

// Extension implements Codec.Extension, e.g. ".json.lz4".
func (c *LZ4Codec) Extension() string {
	return c.Inner.Extension() + lz4Extension
}

// CodecFor returns the codec for a format name, optionally LZ4-compressed.
func CodecFor(format string, compress bool) (Codec, error) {
	var codec Codec

	switch strings.ToLower(format) {
	case FormatJSON, "":
		codec = NewJSONCodec()
	case FormatYAML, strings.TrimPrefix(ymlExtension, "."):
		codec = NewYAMLCodec()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	if compress {
		codec = NewLZ4Codec(codec)
	}

	return codec, nil
}

// CodecForPath picks a codec from a file name: ".json", ".yaml" or ".yml",
// each optionally followed by ".lz4". Unrecognized names fall back to JSON.
func CodecForPath(path string) Codec {
	lower := strings.ToLower(path)

	compress := strings.HasSuffix(lower, lz4Extension)
	lower = strings.TrimSuffix(lower, lz4Extension)

	format := FormatJSON
	if strings.HasSuffix(lower, yamlExtension) || strings.HasSuffix(lower, ymlExtension) {
		format = FormatYAML
	}

	codec, _ := CodecFor(format, compress) //nolint:errcheck // both formats are known

	return codec
}

func writeAll(w io.Writer, s string) error {
	_, err := io.WriteString(w, s)

	return err
}
