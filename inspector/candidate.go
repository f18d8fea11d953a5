package inspector

import (
	"encoding/json"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/modfence/modfence/parser"
	"github.com/modfence/modfence/scope"
)

// LocalKind is the binding form of a builtin-module local.
type LocalKind uint8

const (
	// LocalDefault binds the whole module: a default or namespace import,
	// or the direct result of require.
	LocalDefault LocalKind = iota
	// LocalNamed binds one module member under its own name.
	LocalNamed
	// LocalAlias binds one module member under a different local name.
	LocalAlias
)

func (k LocalKind) String() string {
	switch k {
	case LocalNamed:
		return "named"
	case LocalAlias:
		return "alias"
	default:
		return "default"
	}
}

// MarshalYAML emits the kind name.
func (k LocalKind) MarshalYAML() (interface{}, error) {
	return k.String(), nil
}

// MarshalJSON emits the kind name.
func (k LocalKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// Local is one local binding registered by a builtin import or require.
// Member carries the canonical member name for named and aliased forms and
// stays empty for whole-module bindings.
type Local struct {
	Kind   LocalKind    `yaml:"kind" json:"kind"`
	Name   scope.Symbol `yaml:"name" json:"name"`
	Member scope.Symbol `yaml:"member,omitempty" json:"member,omitempty"`
}

// BuiltinCandidate records that a module loads a known builtin module and
// which locals that load binds. A load with no surviving locals, such as a
// bare import for side effects, has an empty Locals slice.
type BuiltinCandidate struct {
	Source string  `yaml:"source" json:"source"`
	Locals []Local `yaml:"locals,omitempty" json:"locals,omitempty"`
}

// Dependency kinds, named after the loading construct.
const (
	DependencyImport  = "import"
	DependencyRequire = "require"
	DependencyExport  = "export"
)

// Dependency is one module specifier extracted from the syntax tree.
type Dependency struct {
	Specifier string `yaml:"specifier" json:"specifier"`
	Kind      string `yaml:"kind" json:"kind"`
}

// syntaxFacts records which module systems the source uses: static import
// or export statements mark ESM, require calls and module.exports or
// exports assignments mark CommonJS. Dynamic import counts as neither, the
// form is legal in both.
type syntaxFacts struct {
	esm      bool
	commonjs bool
}

// extract walks the syntax tree once and collects every dependency edge,
// the builtin candidates with their binding forms, and the module syntax
// facts.
func extract(mod *parser.Result) ([]Dependency, []BuiltinCandidate, syntaxFacts) {
	var dependencies []Dependency
	var candidates []BuiltinCandidate
	var syntax syntaxFacts
	seen := map[Dependency]bool{}

	record := func(kind, specifier string) {
		edge := Dependency{Specifier: specifier, Kind: kind}
		if seen[edge] {
			return
		}
		seen[edge] = true
		dependencies = append(dependencies, edge)
	}

	parser.Walk(mod.Root(), func(node *sitter.Node) bool {
		switch node.Type() {
		case "import_statement":
			syntax.esm = true
			source := parser.StringValue(node.ChildByFieldName("source"), mod.Source)
			if source == "" {
				return false
			}
			record(DependencyImport, source)
			if IsBuiltin(source) {
				candidates = append(candidates, importCandidate(mod, node, source))
			}
			return false
		case "export_statement":
			syntax.esm = true
			if source := node.ChildByFieldName("source"); source != nil {
				specifier := parser.StringValue(source, mod.Source)
				if specifier != "" {
					record(DependencyExport, specifier)
					if IsBuiltin(specifier) {
						candidates = append(candidates, BuiltinCandidate{Source: specifier})
					}
				}
			}
			return true
		case "assignment_expression":
			if isModuleExports(mod, node.ChildByFieldName("left")) {
				syntax.commonjs = true
			}
			return true
		case "call_expression":
			kind, specifier := callDependency(mod, node)
			if kind == DependencyRequire {
				syntax.commonjs = true
			}
			if specifier == "" {
				return true
			}
			record(kind, specifier)
			if kind == DependencyRequire && IsBuiltin(specifier) {
				candidates = append(candidates, requireCandidate(mod, node, specifier))
			}
			return true
		}
		return true
	})
	return dependencies, candidates, syntax
}

// isModuleExports reports whether an assignment target is the CommonJS
// export surface: exports, module.exports, or a member thereunder.
func isModuleExports(mod *parser.Result, target *sitter.Node) bool {
	for target != nil && target.Type() == "member_expression" {
		target = target.ChildByFieldName("object")
	}
	if target == nil || target.Type() != "identifier" {
		return false
	}
	name := mod.Content(target)
	return name == "module" || name == "exports"
}

// callDependency recognizes require('x') and import('x') calls. The kind
// comes back even for computed specifiers; the specifier itself only when
// it is a literal, since anything else is not statically resolvable.
func callDependency(mod *parser.Result, call *sitter.Node) (string, string) {
	callee := call.ChildByFieldName("function")
	if callee == nil {
		return "", ""
	}
	var kind string
	switch callee.Type() {
	case "identifier":
		if mod.Content(callee) != "require" {
			return "", ""
		}
		kind = DependencyRequire
	case "import":
		kind = DependencyImport
	default:
		return "", ""
	}
	arguments := call.ChildByFieldName("arguments")
	if arguments == nil || arguments.NamedChildCount() == 0 {
		return kind, ""
	}
	first := arguments.NamedChild(0)
	if first.Type() != "string" {
		return kind, ""
	}
	return kind, parser.StringValue(first, mod.Source)
}

// importCandidate reads the binding forms off an import statement's clause.
func importCandidate(mod *parser.Result, statement *sitter.Node, source string) BuiltinCandidate {
	candidate := BuiltinCandidate{Source: source}
	for _, child := range parser.NamedChildren(statement) {
		if child.Type() != "import_clause" {
			continue
		}
		for _, clause := range parser.NamedChildren(child) {
			switch clause.Type() {
			case "identifier":
				candidate.Locals = append(candidate.Locals, Local{
					Kind: LocalDefault,
					Name: scope.Symbol(mod.Content(clause)),
				})
			case "namespace_import":
				for _, inner := range parser.NamedChildren(clause) {
					if inner.Type() == "identifier" {
						candidate.Locals = append(candidate.Locals, Local{
							Kind: LocalDefault,
							Name: scope.Symbol(mod.Content(inner)),
						})
					}
				}
			case "named_imports":
				for _, specifier := range parser.NamedChildren(clause) {
					if specifier.Type() != "import_specifier" {
						continue
					}
					name := specifier.ChildByFieldName("name")
					if name == nil {
						continue
					}
					member := scope.Symbol(mod.Content(name))
					if alias := specifier.ChildByFieldName("alias"); alias != nil {
						candidate.Locals = append(candidate.Locals, Local{
							Kind:   LocalAlias,
							Name:   scope.Symbol(mod.Content(alias)),
							Member: member,
						})
						continue
					}
					candidate.Locals = append(candidate.Locals, Local{
						Kind:   LocalNamed,
						Name:   member,
						Member: member,
					})
				}
			}
		}
	}
	return candidate
}

// requireCandidate reads the binding form off the context of a require
// call: a plain declarator binds the whole module, a destructuring pattern
// binds members, and a member access on the call result binds one member
// under the declarator's name. Anything else leaves the load unbound.
func requireCandidate(mod *parser.Result, call *sitter.Node, source string) BuiltinCandidate {
	candidate := BuiltinCandidate{Source: source}
	parent := call.Parent()
	var member scope.Symbol
	if parent != nil && parent.Type() == "member_expression" {
		property := parent.ChildByFieldName("property")
		if property == nil || property.Type() != "property_identifier" {
			return candidate
		}
		member = scope.Symbol(mod.Content(property))
		parent = parent.Parent()
	}
	if parent == nil || parent.Type() != "variable_declarator" {
		return candidate
	}
	name := parent.ChildByFieldName("name")
	if name == nil {
		return candidate
	}
	switch name.Type() {
	case "identifier":
		local := scope.Symbol(mod.Content(name))
		if member != "" {
			candidate.Locals = append(candidate.Locals, Local{Kind: LocalAlias, Name: local, Member: member})
			break
		}
		candidate.Locals = append(candidate.Locals, Local{Kind: LocalDefault, Name: local})
	case "object_pattern":
		if member != "" {
			break
		}
		candidate.Locals = append(candidate.Locals, patternLocals(mod, name)...)
	}
	return candidate
}

// patternLocals collects members bound by destructuring a require result.
func patternLocals(mod *parser.Result, pattern *sitter.Node) []Local {
	var locals []Local
	for _, property := range parser.NamedChildren(pattern) {
		switch property.Type() {
		case "shorthand_property_identifier_pattern":
			name := scope.Symbol(mod.Content(property))
			locals = append(locals, Local{Kind: LocalNamed, Name: name, Member: name})
		case "pair_pattern":
			key := property.ChildByFieldName("key")
			value := property.ChildByFieldName("value")
			if key == nil || value == nil {
				continue
			}
			if key.Type() != "property_identifier" || value.Type() != "identifier" {
				continue
			}
			locals = append(locals, Local{
				Kind:   LocalAlias,
				Name:   scope.Symbol(mod.Content(value)),
				Member: scope.Symbol(mod.Content(key)),
			})
		case "object_assignment_pattern", "assignment_pattern":
			left := property.ChildByFieldName("left")
			if left != nil && left.Type() == "shorthand_property_identifier_pattern" {
				name := scope.Symbol(mod.Content(left))
				locals = append(locals, Local{Kind: LocalNamed, Name: name, Member: name})
			}
		}
	}
	return locals
}
