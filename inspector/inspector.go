// Package inspector classifies the identifiers a JavaScript module touches:
// references that resolve to builtin modules, references that fall through
// every scope to the host globals, and the dependency edges the module
// declares. The classification feeds policy generation.
package inspector

import (
	"fmt"
	"strings"

	"github.com/modfence/modfence/parser"
	"github.com/modfence/modfence/scope"
)

// Report is the classification outcome for one module. ESM and CommonJS
// record which module syntaxes the source uses, so a consumer can pick the
// matching wrapper without re-walking the tree.
type Report struct {
	Candidates   []BuiltinCandidate `yaml:"candidates,omitempty" json:"candidates,omitempty"`
	Builtin      map[string]Access  `yaml:"builtin,omitempty" json:"builtin,omitempty"`
	Globals      map[string]Access  `yaml:"globals,omitempty" json:"globals,omitempty"`
	Dependencies []Dependency       `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
	ESM          bool               `yaml:"esm,omitempty" json:"esm,omitempty"`
	CommonJS     bool               `yaml:"commonjs,omitempty" json:"commonjs,omitempty"`
}

// Inspector classifies global and builtin-module references.
type Inspector struct {
	config  *Config
	builder *scope.Builder
}

// New creates an Inspector. A nil config selects the defaults.
func New(config *Config) *Inspector {
	if config == nil {
		config = DefaultConfig()
	}
	return &Inspector{
		config:  config,
		builder: scope.NewBuilder(scope.WithGlobalAliases(config.GlobalAliases...)),
	}
}

// Inspect builds the module's scope tree and resolves every recorded
// reference against it. A reference whose head is bound by the program
// scope to a builtin-module local contributes a builtin path; a reference
// bound by no scope and absent from the seeded globals contributes a
// global path. Both path sets are collapsed so that shorter recorded
// prefixes absorb their extensions.
func (i *Inspector) Inspect(mod *parser.Result) (*Report, error) {
	if mod == nil || mod.Tree == nil {
		return nil, fmt.Errorf("inspect: module not parsed")
	}
	dependencies, candidates, syntax := extract(mod)
	tree := i.builder.Build(mod)

	c := &classifier{
		seeds:    i.config.seedSymbols(),
		bindings: candidateBindings(candidates),
		builtin:  map[string]Access{},
		globals:  map[string]Access{},
		used:     map[string]bool{},
	}
	c.walk(tree, make([]*scope.Scope, 0, 8))

	report := &Report{
		Candidates:   candidates,
		Builtin:      Collapse(c.builtin),
		Globals:      Collapse(c.globals),
		Dependencies: dependencies,
		ESM:          syntax.esm,
		CommonJS:     syntax.commonjs,
	}
	// a load whose locals never surface still grants reading the module
	for _, candidate := range candidates {
		if c.used[candidate.Source] {
			continue
		}
		root := BuiltinRoot(candidate.Source)
		report.Builtin[root] = report.Builtin[root].Merge(Access{Read: true})
	}
	return report, nil
}

// binding ties a program-scope local to the builtin module it came from.
// A whole-module binding has an empty member.
type binding struct {
	source string
	member scope.Symbol
}

func candidateBindings(candidates []BuiltinCandidate) map[scope.Symbol]binding {
	bindings := map[scope.Symbol]binding{}
	for _, candidate := range candidates {
		for _, local := range candidate.Locals {
			bindings[local.Name] = binding{source: candidate.Source, member: local.Member}
		}
	}
	return bindings
}

type classifier struct {
	seeds    *scope.SymbolSet
	bindings map[scope.Symbol]binding
	builtin  map[string]Access
	globals  map[string]Access
	used     map[string]bool
}

// walk descends the scope tree carrying the ancestor stack. The program
// scope sits at the bottom of the stack for every reference in the module.
func (c *classifier) walk(s *scope.Scope, stack []*scope.Scope) {
	stack = append(stack, s)
	for _, reference := range s.References {
		c.classify(reference, stack)
	}
	for _, child := range s.Children {
		c.walk(child, stack)
	}
}

// classify resolves one reference against the innermost binding scope. A
// head bound only by the program scope and registered by a builtin load is
// a builtin path; a head bound nowhere and not seeded is a global path.
func (c *classifier) classify(reference scope.Reference, stack []*scope.Scope) {
	index, ok := bindingIndex(stack, reference.Head)
	if ok {
		if index == 0 {
			if bound, ok := c.bindings[reference.Head]; ok {
				c.recordBuiltin(bound, reference)
			}
		}
		return
	}
	if c.seeds.Has(reference.Head) {
		return
	}
	c.recordGlobal(reference)
}

// bindingIndex locates the stack entry that binds head. Direct locals bind
// at their own scope. Hoisted names bind at the function or program scope
// owning the shared hoisted set; block scopes reuse their parent's set by
// pointer, so the owner is the entry whose set differs from its parent's.
func bindingIndex(stack []*scope.Scope, head scope.Symbol) (int, bool) {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].Locals.Has(head) {
			return i, true
		}
		if stack[i].Hoisted.Has(head) && (i == 0 || stack[i].Hoisted != stack[i-1].Hoisted) {
			return i, true
		}
	}
	return 0, false
}

func (c *classifier) recordBuiltin(bound binding, reference scope.Reference) {
	segments := make([]scope.Symbol, 0, len(reference.Trail)+2)
	segments = append(segments, scope.Symbol(BuiltinRoot(bound.source)))
	if bound.member != "" {
		segments = append(segments, bound.member)
	}
	segments = append(segments, reference.Trail...)
	if reference.Kind == scope.Execute {
		segments = stripUtilitySuffix(segments)
	}
	path := joinSegments(segments)
	c.builtin[path] = c.builtin[path].Merge(AccessFor(reference.Kind))
	c.used[bound.source] = true
}

func (c *classifier) recordGlobal(reference scope.Reference) {
	segments := reference.Segments()
	if reference.Kind == scope.Execute {
		segments = stripUtilitySuffix(segments)
	}
	path := joinSegments(segments)
	c.globals[path] = c.globals[path].Merge(AccessFor(reference.Kind))
}

// functionUtilities are method names whose invocation targets the function
// they hang off: fs.readFile.call(null, ...) executes fs.readFile.
var functionUtilities = map[scope.Symbol]bool{
	"apply":    true,
	"bind":     true,
	"call":     true,
	"toSource": true,
	"toString": true,
}

func stripUtilitySuffix(segments []scope.Symbol) []scope.Symbol {
	if len(segments) > 1 && functionUtilities[segments[len(segments)-1]] {
		return segments[:len(segments)-1]
	}
	return segments
}

func joinSegments(segments []scope.Symbol) string {
	parts := make([]string, len(segments))
	for i, segment := range segments {
		parts[i] = string(segment)
	}
	return strings.Join(parts, ".")
}
