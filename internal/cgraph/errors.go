package cgraph

import (
	"errors"
	"fmt"
)

var (
	// ErrNodeNotFound is returned by lookups of keys that have no node.
	ErrNodeNotFound = errors.New("node not found")
	// ErrTooManyPaths stops constraint extraction from a path expression
	// whose alternatives multiply past a fixed limit.
	ErrTooManyPaths = errors.New("path expression expands to too many paths")
)

// InvariantKind enumerates graph consistency violations.
type InvariantKind uint8

const (
	// KindMissingNode: an edge or lookup referenced a node id that does not exist.
	KindMissingNode InvariantKind = iota + 1
	// KindSelfLoop: an identity edge from a node to itself.
	KindSelfLoop
	// KindVariance: a structural edge whose endpoint variances do not agree with its label.
	KindVariance
	// KindMalformedPath: a structural edge that is not a one-label step, or a labelled primitive.
	KindMalformedPath
	// KindNotSaturated: path extraction on a graph that was not solved.
	KindNotSaturated
)

func (k InvariantKind) String() string {
	switch k {
	case KindMissingNode:
		return "missing node"
	case KindSelfLoop:
		return "identity self-loop"
	case KindVariance:
		return "variance mismatch"
	case KindMalformedPath:
		return "malformed path"
	case KindNotSaturated:
		return "not saturated"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// InvariantError reports a defect in the constraints fed to the graph, not
// in the data they describe. The solve of the current function stops.
type InvariantError struct {
	Kind InvariantKind
	Msg  string
}

func (e *InvariantError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("constraint graph invariant violated (%s): %s", e.Kind, e.Msg)
}

func invariant(kind InvariantKind, format string, args ...any) error {
	return &InvariantError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// IsInvariant reports whether err carries an InvariantError of the given kind.
func IsInvariant(err error, kind InvariantKind) bool {
	var ie *InvariantError
	return errors.As(err, &ie) && ie.Kind == kind
}
