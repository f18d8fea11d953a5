package scope

import "strings"

// AccessKind is the way an expression position uses a value.
type AccessKind uint8

const (
	// Read takes the value without modifying or invoking it.
	Read AccessKind = iota
	// Write stores a new value into the referenced binding or member.
	Write
	// Execute invokes the referenced value as a function.
	Execute
)

func (k AccessKind) String() string {
	switch k {
	case Write:
		return "write"
	case Execute:
		return "execute"
	default:
		return "read"
	}
}

// Reference is a single use of a symbol: a bare identifier when Trail is
// empty, otherwise a member chain flattened left to right, so a.b.c becomes
// Head a with Trail [b c]. Only Head takes part in binding resolution; the
// trail matters for access paths.
type Reference struct {
	Head  Symbol
	Trail []Symbol
	Kind  AccessKind
}

// Segments returns the head followed by the trail.
func (r Reference) Segments() []Symbol {
	segments := make([]Symbol, 0, len(r.Trail)+1)
	segments = append(segments, r.Head)
	return append(segments, r.Trail...)
}

// Path returns the dot-joined access path.
func (r Reference) Path() string {
	if len(r.Trail) == 0 {
		return string(r.Head)
	}
	var builder strings.Builder
	builder.WriteString(string(r.Head))
	for _, segment := range r.Trail {
		builder.WriteByte('.')
		builder.WriteString(string(segment))
	}
	return builder.String()
}
