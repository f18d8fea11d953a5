package scope

// Symbol is an identifier name.
type Symbol string

// SymbolSet is an insertion-ordered set of symbols. Order does not affect
// lookup semantics; it keeps serialized output deterministic.
type SymbolSet struct {
	index map[Symbol]struct{}
	order []Symbol
}

// NewSymbolSet creates a set seeded with the supplied symbols.
func NewSymbolSet(symbols ...Symbol) *SymbolSet {
	set := &SymbolSet{index: make(map[Symbol]struct{})}
	for _, symbol := range symbols {
		set.Add(symbol)
	}
	return set
}

// Add inserts symbol unless already present.
func (s *SymbolSet) Add(symbol Symbol) {
	if _, ok := s.index[symbol]; ok {
		return
	}
	s.index[symbol] = struct{}{}
	s.order = append(s.order, symbol)
}

// Has reports whether symbol is a member.
func (s *SymbolSet) Has(symbol Symbol) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[symbol]
	return ok
}

// Symbols returns the members in insertion order.
func (s *SymbolSet) Symbols() []Symbol {
	if s == nil {
		return nil
	}
	return append([]Symbol(nil), s.order...)
}

// Len returns the member count.
func (s *SymbolSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}
