package treejson

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vango-dev/vtree/pkg/vdom"
)

// Format is a tree source format.
type Format string

const (
	FormatHTML Format = "html"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrUnsupportedFormat is returned for file extensions with no decoder.
var ErrUnsupportedFormat = errors.New("treejson: unsupported format")

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return FormatHTML, nil
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Decode parses data in the given format.
func Decode(format Format, data []byte) (*vdom.Node, error) {
	switch format {
	case FormatHTML:
		return ParseHTML(bytes.NewReader(data))
	case FormatJSON:
		return DecodeJSON(data)
	case FormatYAML:
		return DecodeYAML(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// Load reads and parses a tree file, choosing the format by extension.
func Load(path string) (*vdom.Node, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	n, err := Decode(format, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return n, nil
}
