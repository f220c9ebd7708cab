package artifact

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"
)

// ErrIO is matched by every *IOError.
var ErrIO = errors.New("artifact i/o failed")

// File permissions for written artifacts and created directories.
const (
	filePerm = 0o644
	dirPerm  = 0o755
)

// IOError reports a failed read or write of an artifact file.
type IOError struct {
	Err  error
	Op   string
	Path string
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap exposes both the cause and ErrIO to errors.Is.
func (e *IOError) Unwrap() []error {
	return []error{ErrIO, e.Err}
}

// Writer persists artifacts atomically on a filesystem.
type Writer struct {
	fs afero.Fs
}

// NewWriter returns a writer over fs. A nil fs means the OS filesystem.
func NewWriter(fs afero.Fs) *Writer {
	if fs == nil {
		fs = afero.NewOsFs()
	}

	return &Writer{fs: fs}
}

// Fs returns the underlying filesystem.
func (w *Writer) Fs() afero.Fs {
	return w.fs
}

// WriteDocument encodes doc with codec and stores it at path.
func (w *Writer) WriteDocument(path string, codec Codec, doc *Document) error {
	return w.WriteFunc(path, func(out io.Writer) error {
		return codec.Encode(out, doc)
	})
}

// WriteFunc stores whatever encode produces at path. Missing parent
// directories are created. The data goes to a temporary file in the
// destination directory that is synced and renamed over path, so readers see
// either the old file or the complete new one. On failure the temporary
// file is removed and an existing destination is left untouched.
func (w *Writer) WriteFunc(path string, encode func(io.Writer) error) error {
	dir := filepath.Dir(path)

	err := w.fs.MkdirAll(dir, dirPerm)
	if err != nil {
		return &IOError{Op: "mkdir", Path: dir, Err: err}
	}

	tmp, err := afero.TempFile(w.fs, dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return &IOError{Op: "create", Path: path, Err: err}
	}

	tmpName := tmp.Name()

	err = writeSynced(tmp, encode)
	if err != nil {
		_ = w.fs.Remove(tmpName) //nolint:errcheck // best-effort cleanup

		return &IOError{Op: "write", Path: path, Err: err}
	}

	err = w.fs.Chmod(tmpName, filePerm)
	if err == nil {
		err = w.fs.Rename(tmpName, path)
	}

	if err != nil {
		_ = w.fs.Remove(tmpName) //nolint:errcheck // best-effort cleanup

		return &IOError{Op: "rename", Path: path, Err: err}
	}

	return nil
}

func writeSynced(file afero.File, encode func(io.Writer) error) error {
	buffered := bufio.NewWriter(file)

	err := encode(buffered)
	if err == nil {
		err = buffered.Flush()
	}

	if err == nil {
		err = file.Sync()
	}

	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}

	return err
}

// ReadDocument loads the artifact at path, picking the codec from its name.
func (w *Writer) ReadDocument(path string) (*Document, error) {
	return Load(w.fs, path, CodecForPath(path))
}

// Load decodes the artifact at path with codec.
func Load(fs afero.Fs, path string, codec Codec) (*Document, error) {
	file, err := fs.Open(path)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	defer file.Close()

	doc, err := codec.Decode(bufio.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	return doc, nil
}

// Exists reports whether path names an existing regular file.
func Exists(fs afero.Fs, path string) bool {
	info, err := fs.Stat(path)

	return err == nil && info.Mode().IsRegular()
}
