package protocol

import "errors"

// Depth limits against stack exhaustion via deeply nested trees.
const (
	// MaxNodeDepth limits the nesting depth of encoded trees.
	MaxNodeDepth = 256

	// MaxPathLength limits the number of indices in an encoded path.
	MaxPathLength = MaxNodeDepth + 1
)

// ErrMaxDepthExceeded is returned when a decoded tree nests too deeply.
var ErrMaxDepthExceeded = errors.New("protocol: max depth exceeded")

// Limits bounds what a Decoder accepts. Zero fields take the defaults.
type Limits struct {
	MaxAllocation int // Longest string in bytes
	MaxCollection int // Largest item count
	MaxDepth      int // Deepest node nesting
}

// DefaultLimits returns the default decoding limits.
func DefaultLimits() Limits {
	return Limits{
		MaxAllocation: DefaultMaxAllocation,
		MaxCollection: MaxCollectionCount,
		MaxDepth:      MaxNodeDepth,
	}
}

func (l Limits) normalize() Limits {
	def := DefaultLimits()
	if l.MaxAllocation <= 0 {
		l.MaxAllocation = def.MaxAllocation
	}
	if l.MaxCollection <= 0 {
		l.MaxCollection = def.MaxCollection
	}
	if l.MaxDepth <= 0 {
		l.MaxDepth = def.MaxDepth
	}
	return l
}

// checkDepth fails once depth passes max.
func checkDepth(depth, max int) error {
	if depth > max {
		return ErrMaxDepthExceeded
	}
	return nil
}
