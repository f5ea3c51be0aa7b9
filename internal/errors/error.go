package errors

import (
	"bufio"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"

	"github.com/vango-dev/vtree/pkg/dom"
	"github.com/vango-dev/vtree/pkg/protocol"
	"github.com/vango-dev/vtree/pkg/treejson"
)

// Category represents the type of error.
type Category string

const (
	CategoryApply    Category = "apply"
	CategoryRegistry Category = "registry"
	CategoryParse    Category = "parse"
	CategoryProtocol Category = "protocol"
	CategoryConfig   Category = "config"
	CategoryWatch    Category = "watch"
	CategoryCLI      Category = "cli"
)

// Location represents a position in a tree or config file.
type Location struct {
	File   string
	Line   int
	Column int
}

// String returns the location as a formatted string.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// VTreeError is a structured error with location, suggestions, and documentation.
type VTreeError struct {
	// Code is a unique error identifier (e.g., "E100").
	Code string

	// Category is the error type (apply, parse, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Location is the file position where the error occurred.
	Location *Location

	// Context contains surrounding file lines.
	Context []string

	contextStart int

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Example shows the correct input.
	Example string

	// DocURL is a link to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *VTreeError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *VTreeError) Unwrap() error {
	return e.Wrapped
}

// WithLocation adds a file location to the error.
func (e *VTreeError) WithLocation(file string, line, column int) *VTreeError {
	e.Location = &Location{File: file, Line: line, Column: column}
	e.Context, e.contextStart = readContextLines(file, line, 5)
	return e
}

// WithOffset adds a file location given as a byte offset into file.
func (e *VTreeError) WithOffset(file string, offset int64) *VTreeError {
	data, err := os.ReadFile(file)
	if err != nil || offset < 0 || offset > int64(len(data)) {
		return e
	}
	line, col := 1, 1
	for _, b := range data[:offset] {
		if b == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return e.WithLocation(file, line, col)
}

// WithSuggestion adds a fix suggestion to the error.
func (e *VTreeError) WithSuggestion(s string) *VTreeError {
	e.Suggestion = s
	return e
}

// WithExample adds an input example to the error.
func (e *VTreeError) WithExample(ex string) *VTreeError {
	e.Example = ex
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *VTreeError) WithDetail(d string) *VTreeError {
	e.Detail = d
	return e
}

// WithContext adds custom context lines centered on the location line.
func (e *VTreeError) WithContext(lines []string) *VTreeError {
	e.Context = lines
	e.contextStart = 0
	return e
}

// Wrap wraps another error.
func (e *VTreeError) Wrap(err error) *VTreeError {
	e.Wrapped = err
	return e
}

// readContextLines reads lines around the specified line number from a file
// and returns them with the number of the first one.
func readContextLines(filename string, targetLine, contextSize int) ([]string, int) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, 0
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	lineNum := 0
	startLine := max(targetLine-contextSize/2, 1)
	endLine := targetLine + contextSize/2

	for scanner.Scan() {
		lineNum++
		if lineNum >= startLine && lineNum <= endLine {
			lines = append(lines, scanner.Text())
		}
		if lineNum > endLine {
			break
		}
	}

	return lines, startLine
}

// New creates a VTreeError from a registered error code.
func New(code string) *VTreeError {
	template, ok := registry[code]
	if !ok {
		return &VTreeError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &VTreeError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
		DocURL:   template.DocURL,
	}
}

// Newf creates a new VTreeError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *VTreeError {
	return &VTreeError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a VTreeError.
func FromError(err error, code string) *VTreeError {
	if err == nil {
		return nil
	}
	var ve *VTreeError
	if stderrors.As(err, &ve) {
		return ve
	}
	return New(code).Wrap(err)
}

// Classify picks the code for err from the sentinel errors it wraps.
// Errors with no known sentinel get ECodeInternal.
func Classify(err error) *VTreeError {
	if err == nil {
		return nil
	}
	var ve *VTreeError
	if stderrors.As(err, &ve) {
		return ve
	}
	return New(codeOf(err)).Wrap(err)
}

func codeOf(err error) string {
	var syntax *json.SyntaxError
	var em *protocol.ErrorMessage
	switch {
	case stderrors.Is(err, dom.ErrPathResolution):
		return ECodePathResolution
	case stderrors.Is(err, dom.ErrRegistryInconsistency):
		return ECodeRegistryInconsistency
	case stderrors.Is(err, dom.ErrApplyInFlight):
		return ECodeApplyInFlight
	case stderrors.Is(err, dom.ErrBackendMutation):
		return ECodeBackendMutation
	case stderrors.Is(err, dom.ErrNotMounted):
		return ECodeNotMounted
	case stderrors.Is(err, treejson.ErrUnsupportedFormat):
		return ECodeUnsupportedFormat
	case stderrors.Is(err, treejson.ErrNoRoot), stderrors.Is(err, treejson.ErrMultipleRoots):
		return ECodeRootCount
	case stderrors.As(err, &syntax):
		return ECodeTreeParse
	case stderrors.As(err, &em):
		return ECodeRemote
	case stderrors.Is(err, protocol.ErrInvalidFrameType),
		stderrors.Is(err, protocol.ErrFrameTooLarge),
		stderrors.Is(err, protocol.ErrMaxDepthExceeded),
		stderrors.Is(err, protocol.ErrCollectionTooLarge),
		stderrors.Is(err, protocol.ErrAllocationTooLarge):
		return ECodeCodecDecode
	case stderrors.Is(err, os.ErrNotExist):
		return ECodeFileNotFound
	default:
		return ECodeInternal
	}
}

// ForFile classifies an error met while reading path. JSON syntax errors get
// the line and column of the offending byte.
func ForFile(path string, err error) *VTreeError {
	ve := Classify(err)
	if ve == nil {
		return nil
	}
	var syntax *json.SyntaxError
	if ve.Location == nil && stderrors.As(err, &syntax) {
		ve.WithOffset(path, syntax.Offset)
	}
	return ve
}
