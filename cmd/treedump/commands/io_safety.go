package commands

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/spf13/afero"

	"github.com/Sumatoshi-tech/treedump/pkg/artifact"
)

const stdinArg = "-"

var (
	// ErrEmptyPath indicates a path argument was empty.
	ErrEmptyPath = errors.New("path is empty")
	// ErrPathContainsNUL indicates the path contains a NUL byte.
	ErrPathContainsNUL = errors.New("path contains NUL byte")
)

// cleanUserPath normalizes a path argument to an absolute path. It does not
// require the path to exist.
func cleanUserPath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", ErrEmptyPath
	}

	if strings.ContainsRune(path, '\x00') {
		return "", fmt.Errorf("%w: %q", ErrPathContainsNUL, path)
	}

	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", path, err)
	}

	return absPath, nil
}

// loadArtifact decodes the artifact at path, or a JSON artifact from stdin
// when path is "-". The codec follows the file extension.
func (a *App) loadArtifact(path string) (*artifact.Document, error) {
	if path == stdinArg {
		doc, err := artifact.NewJSONCodec().Decode(a.Stdin)
		if err != nil {
			return nil, fmt.Errorf("stdin: %w", err)
		}

		return doc, nil
	}

	absPath, err := cleanUserPath(path)
	if err != nil {
		return nil, err
	}

	return artifact.Load(a.Fs, absPath, artifact.CodecForPath(absPath))
}

// readArtifactJSON returns the artifact at path as JSON bytes, re-encoding
// YAML or compressed artifacts.
func (a *App) readArtifactJSON(path string) ([]byte, string, error) {
	if path == stdinArg {
		data, err := io.ReadAll(a.Stdin)
		if err != nil {
			return nil, "", &artifact.IOError{Op: "read", Path: "stdin", Err: err}
		}

		return data, "stdin", nil
	}

	absPath, err := cleanUserPath(path)
	if err != nil {
		return nil, "", err
	}

	codec := artifact.CodecForPath(absPath)
	if _, isJSON := codec.(*artifact.JSONCodec); isJSON {
		data, readErr := afero.ReadFile(a.Fs, absPath)
		if readErr != nil {
			return nil, "", &artifact.IOError{Op: "read", Path: absPath, Err: readErr}
		}

		return data, absPath, nil
	}

	doc, err := artifact.Load(a.Fs, absPath, codec)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer

	err = artifact.NewJSONCodec().Encode(&buf, doc)
	if err != nil {
		return nil, "", err
	}

	return buf.Bytes(), absPath, nil
}

// sanitizeForTerminal strips control characters from text echoed back to the
// terminal, such as user-supplied paths.
func sanitizeForTerminal(input string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			return ' '
		case unicode.IsControl(r):
			return -1
		default:
			return r
		}
	}, input)
}
