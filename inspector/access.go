package inspector

import "github.com/modfence/modfence/scope"

// Access is the set of ways a path has been used. Merge only ever turns
// flags on, so accumulated access grows monotonically.
type Access struct {
	Read    bool `json:"read" yaml:"read"`
	Write   bool `json:"write" yaml:"write"`
	Execute bool `json:"execute" yaml:"execute"`
}

// Merge joins two access values field by field.
func (a Access) Merge(other Access) Access {
	return Access{
		Read:    a.Read || other.Read,
		Write:   a.Write || other.Write,
		Execute: a.Execute || other.Execute,
	}
}

// AccessFor converts a syntactic access kind into its flag set.
func AccessFor(kind scope.AccessKind) Access {
	switch kind {
	case scope.Write:
		return Access{Write: true}
	case scope.Execute:
		return Access{Execute: true}
	default:
		return Access{Read: true}
	}
}
