package scope

// Scope kinds, named after the construct that introduced the scope.
const (
	KindProgram  = "program"
	KindFunction = "function"
	KindClass    = "class"
	KindBlock    = "block"
	KindLoop     = "loop"
	KindCatch    = "catch"
	KindCase     = "case"
	KindWith     = "with"
)

// Scope is one lexical region: the locals it declares, the references that
// occur directly in it, and its child scopes in source order. Hoisted is the
// function-level binding set shared by every block within the enclosing
// function body; the program and each function start a fresh set, so a var
// declared in one block is visible to its sibling blocks but never across a
// function boundary.
type Scope struct {
	Kind       string
	Locals     *SymbolSet
	Hoisted    *SymbolSet
	References []Reference
	Children   []*Scope
}

func newScope(kind string, hoisted *SymbolSet) *Scope {
	return &Scope{Kind: kind, Locals: NewSymbolSet(), Hoisted: hoisted}
}

// Declare adds a block-level local binding.
func (s *Scope) Declare(symbol Symbol) {
	s.Locals.Add(symbol)
}

// DeclareHoisted adds a function-level binding visible to all sibling blocks
// of the enclosing function body.
func (s *Scope) DeclareHoisted(symbol Symbol) {
	s.Hoisted.Add(symbol)
}

// Refer records a reference occurring directly in this scope.
func (s *Scope) Refer(reference Reference) {
	s.References = append(s.References, reference)
}

// Binds reports whether symbol is bound by this scope, either as a direct
// local or through the hoisted set this scope participates in.
func (s *Scope) Binds(symbol Symbol) bool {
	return s.Locals.Has(symbol) || s.Hoisted.Has(symbol)
}

func (s *Scope) child(kind string, hoisted *SymbolSet) *Scope {
	childScope := newScope(kind, hoisted)
	s.Children = append(s.Children, childScope)
	return childScope
}
