// Package format maps file extensions to codecs which read and write Frames.
// Each codec understands a small set of read and write parameters, layered by
// callers via Params.Merge.
package format

import (
	"path/filepath"
	"strings"

	"github.com/go-quern/quern"
	"github.com/go-quern/quern/errors"
)

// A Codec reads and writes Frames in one file format
type Codec interface {
	// Kind returns the short name of this Codec's format family
	Kind() string
	// Defaults returns the default parameters for this Codec
	Defaults() Params
	// Read reads the file at path into a Frame
	Read(path string, params Params) (*quern.Frame, error)
	// Write serializes a Frame to the file at path
	Write(frame *quern.Frame, path string, params Params) error
}

// codec table, keyed by lowercased extension (including the dot)
var codecs = map[string]Codec{
	".csv":     &dsvCodec{},
	".txt":     &dsvCodec{},
	".xlsx":    &spreadsheetCodec{},
	".xls":     &spreadsheetCodec{},
	".parquet": &parquetCodec{},
	".pkl":     &nativeCodec{},
	".pickle":  &nativeCodec{},
	".json":    &jsonCodec{},
	".feather": &featherCodec{},
}

// Detect returns the Codec responsible for the given path, chosen by file
// extension. Matching is case-insensitive. An unknown extension, or a path
// with no extension at all, fails with an UnsupportedFormatError naming the
// offending extension.
func Detect(path string) (Codec, error) {
	ext := strings.ToLower(filepath.Ext(path))
	codec, ok := codecs[ext]
	if !ok {
		return nil, errors.UnsupportedFormatError{Ext: ext}
	}
	return codec, nil
}

// Extensions returns the supported extensions, for diagnostics
func Extensions() []string {
	exts := make([]string, 0, len(codecs))
	for ext := range codecs {
		exts = append(exts, ext)
	}
	return exts
}
