package scope

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/modfence/modfence/parser"
)

// DefaultGlobalAliases are the identifiers that denote the global object
// itself. A chain headed by one of them refers to the trailing members, not
// to a binding.
var DefaultGlobalAliases = []string{"globalThis", "window", "self", "global"}

// Option configures a Builder.
type Option func(b *Builder)

// WithGlobalAliases overrides the global-object alias identifiers.
func WithGlobalAliases(names ...string) Option {
	return func(b *Builder) {
		b.globalAliases = make(map[Symbol]struct{}, len(names))
		for _, name := range names {
			b.globalAliases[Symbol(name)] = struct{}{}
		}
	}
}

// Builder constructs scope trees from parsed modules.
type Builder struct {
	globalAliases map[Symbol]struct{}
}

// NewBuilder creates a Builder.
func NewBuilder(options ...Option) *Builder {
	builder := &Builder{}
	WithGlobalAliases(DefaultGlobalAliases...)(builder)
	for _, option := range options {
		option(builder)
	}
	return builder
}

// Build produces the root scope of a module with all nested scopes
// populated. Scope nesting mirrors the control structure of the syntax tree;
// every reference is attributed to the innermost scope enclosing its
// occurrence.
func (b *Builder) Build(mod *parser.Result) *Scope {
	root := newScope(KindProgram, NewSymbolSet())
	w := &walker{builder: b, mod: mod}
	w.statements(mod.Root(), root)
	return root
}

type walker struct {
	builder *Builder
	mod     *parser.Result
}

func (w *walker) content(node *sitter.Node) Symbol {
	return Symbol(w.mod.Content(node))
}

func (w *walker) isGlobalAlias(symbol Symbol) bool {
	_, ok := w.builder.globalAliases[symbol]
	return ok
}

// statements visits every named child of node as a statement of sc.
func (w *walker) statements(node *sitter.Node, sc *Scope) {
	for _, child := range parser.NamedChildren(node) {
		w.statement(child, sc)
	}
}

func (w *walker) statement(node *sitter.Node, sc *Scope) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "comment", "hash_bang_line", "empty_statement", "break_statement",
		"continue_statement", "debugger_statement":
	case "import_statement":
		w.importStatement(node, sc)
	case "export_statement":
		w.exportStatement(node, sc)
	case "function_declaration", "generator_function_declaration":
		if name := node.ChildByFieldName("name"); name != nil {
			sc.Declare(w.content(name))
		}
		w.functionScope(node, sc, "")
	case "class_declaration":
		if name := node.ChildByFieldName("name"); name != nil {
			sc.Declare(w.content(name))
		}
		w.classScope(node, sc, "")
	case "variable_declaration":
		w.variableDeclaration(node, sc, true)
	case "lexical_declaration":
		w.variableDeclaration(node, sc, false)
	case "statement_block":
		block := sc.child(KindBlock, sc.Hoisted)
		w.statements(node, block)
	case "expression_statement":
		for _, child := range parser.NamedChildren(node) {
			w.expression(child, sc, Read)
		}
	case "if_statement":
		w.expression(node.ChildByFieldName("condition"), sc, Read)
		w.statement(node.ChildByFieldName("consequence"), sc)
		w.statement(node.ChildByFieldName("alternative"), sc)
	case "else_clause":
		w.statements(node, sc)
	case "for_statement":
		w.forStatement(node, sc)
	case "for_in_statement":
		w.forInStatement(node, sc)
	case "while_statement":
		w.expression(node.ChildByFieldName("condition"), sc, Read)
		w.statement(node.ChildByFieldName("body"), sc)
	case "do_statement":
		w.statement(node.ChildByFieldName("body"), sc)
		w.expression(node.ChildByFieldName("condition"), sc, Read)
	case "try_statement":
		w.tryStatement(node, sc)
	case "switch_statement":
		w.switchStatement(node, sc)
	case "with_statement":
		w.expression(node.ChildByFieldName("object"), sc, Read)
		withScope := sc.child(KindWith, sc.Hoisted)
		w.statement(node.ChildByFieldName("body"), withScope)
	case "labeled_statement":
		w.statement(node.ChildByFieldName("body"), sc)
	case "return_statement", "throw_statement":
		for _, child := range parser.NamedChildren(node) {
			w.expression(child, sc, Read)
		}
	default:
		w.expression(node, sc, Read)
	}
}

func (w *walker) forStatement(node *sitter.Node, sc *Scope) {
	loop := sc.child(KindLoop, sc.Hoisted)
	w.statement(node.ChildByFieldName("initializer"), loop)
	w.statement(node.ChildByFieldName("condition"), loop)
	w.expression(node.ChildByFieldName("increment"), loop, Read)
	w.statement(node.ChildByFieldName("body"), loop)
}

func (w *walker) forInStatement(node *sitter.Node, sc *Scope) {
	loop := sc.child(KindLoop, sc.Hoisted)
	left := node.ChildByFieldName("left")
	switch declarationKeyword(node) {
	case "var":
		w.bindPattern(left, loop, loop.DeclareHoisted)
	case "let", "const":
		w.bindPattern(left, loop, loop.Declare)
	default:
		w.assignTarget(left, loop)
	}
	w.expression(node.ChildByFieldName("right"), loop, Read)
	w.statement(node.ChildByFieldName("body"), loop)
}

// declarationKeyword returns the var/let/const keyword of a for-in/of header,
// or an empty string when the left side is a plain assignment target.
func declarationKeyword(node *sitter.Node) string {
	if kind := node.ChildByFieldName("kind"); kind != nil {
		return kind.Type()
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		switch node.Child(i).Type() {
		case "var", "let", "const":
			return node.Child(i).Type()
		}
	}
	return ""
}

func (w *walker) tryStatement(node *sitter.Node, sc *Scope) {
	w.statement(node.ChildByFieldName("body"), sc)
	if handler := node.ChildByFieldName("handler"); handler != nil {
		catchScope := sc.child(KindCatch, sc.Hoisted)
		parameter := handler.ChildByFieldName("parameter")
		body := handler.ChildByFieldName("body")
		if body == nil {
			for _, child := range parser.NamedChildren(handler) {
				if child.Type() == "statement_block" {
					body = child
				} else if parameter == nil && child.Type() != "comment" {
					parameter = child
				}
			}
		}
		w.bindPattern(parameter, catchScope, catchScope.Declare)
		w.statement(body, catchScope)
	}
	if finalizer := node.ChildByFieldName("finalizer"); finalizer != nil {
		for _, child := range parser.NamedChildren(finalizer) {
			w.statement(child, sc)
		}
	}
}

func (w *walker) switchStatement(node *sitter.Node, sc *Scope) {
	w.expression(node.ChildByFieldName("value"), sc, Read)
	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}
	for _, caseNode := range parser.NamedChildren(body) {
		if caseNode.Type() != "switch_case" && caseNode.Type() != "switch_default" {
			continue
		}
		caseScope := sc.child(KindCase, sc.Hoisted)
		children := parser.NamedChildren(caseNode)
		if caseNode.ChildByFieldName("value") != nil && len(children) > 0 {
			w.expression(children[0], caseScope, Read)
			children = children[1:]
		}
		for _, statementNode := range children {
			w.statement(statementNode, caseScope)
		}
	}
}

func (w *walker) variableDeclaration(node *sitter.Node, sc *Scope, hoisted bool) {
	declare := sc.Declare
	if hoisted {
		declare = sc.DeclareHoisted
	}
	for _, child := range parser.NamedChildren(node) {
		if child.Type() != "variable_declarator" {
			continue
		}
		w.bindPattern(child.ChildByFieldName("name"), sc, declare)
		w.expression(child.ChildByFieldName("value"), sc, Read)
	}
}

func (w *walker) importStatement(node *sitter.Node, sc *Scope) {
	for _, child := range parser.NamedChildren(node) {
		if child.Type() != "import_clause" {
			continue
		}
		for _, clause := range parser.NamedChildren(child) {
			switch clause.Type() {
			case "identifier":
				sc.Declare(w.content(clause))
			case "namespace_import":
				for _, inner := range parser.NamedChildren(clause) {
					if inner.Type() == "identifier" {
						sc.Declare(w.content(inner))
					}
				}
			case "named_imports":
				for _, specifier := range parser.NamedChildren(clause) {
					if specifier.Type() != "import_specifier" {
						continue
					}
					local := specifier.ChildByFieldName("alias")
					if local == nil {
						local = specifier.ChildByFieldName("name")
					}
					if local != nil {
						sc.Declare(w.content(local))
					}
				}
			}
		}
	}
}

func (w *walker) exportStatement(node *sitter.Node, sc *Scope) {
	if declaration := node.ChildByFieldName("declaration"); declaration != nil {
		w.statement(declaration, sc)
		return
	}
	if value := node.ChildByFieldName("value"); value != nil {
		w.expression(value, sc, Read)
		return
	}
	source := node.ChildByFieldName("source")
	for _, child := range parser.NamedChildren(node) {
		switch child.Type() {
		case "export_clause":
			if source != nil {
				continue
			}
			// exporting a binding reads it at module evaluation
			for _, specifier := range parser.NamedChildren(child) {
				if specifier.Type() != "export_specifier" {
					continue
				}
				if name := specifier.ChildByFieldName("name"); name != nil && name.Type() == "identifier" {
					sc.Refer(Reference{Head: w.content(name), Kind: Read})
				}
			}
		case "namespace_export", "string", "comment":
		default:
			if source == nil {
				w.expression(child, sc, Read)
			}
		}
	}
}

// functionScope creates the scope of a function-like node. Parameters bind
// inside it, selfName (a named function expression) binds inside it only,
// and the body starts from a fresh hoisted set.
func (w *walker) functionScope(node *sitter.Node, sc *Scope, selfName Symbol) {
	inner := sc.child(KindFunction, NewSymbolSet())
	if selfName != "" {
		inner.Declare(selfName)
	}
	if parameters := node.ChildByFieldName("parameters"); parameters != nil {
		for _, parameter := range parser.NamedChildren(parameters) {
			w.bindPattern(parameter, inner, inner.Declare)
		}
	}
	if parameter := node.ChildByFieldName("parameter"); parameter != nil {
		w.bindPattern(parameter, inner, inner.Declare)
	}
	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}
	if body.Type() == "statement_block" {
		w.statement(body, inner)
		return
	}
	w.expression(body, inner, Read)
}

func (w *walker) classScope(node *sitter.Node, sc *Scope, selfName Symbol) {
	inner := sc.child(KindClass, sc.Hoisted)
	if selfName != "" {
		inner.Declare(selfName)
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if child := node.Child(i); child != nil && child.Type() == "class_heritage" {
			// extends clause evaluates in the enclosing scope
			for _, expr := range parser.NamedChildren(child) {
				w.expression(expr, sc, Read)
			}
		}
	}
	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}
	for _, member := range parser.NamedChildren(body) {
		switch member.Type() {
		case "method_definition":
			w.computedName(member, inner)
			w.functionScope(member, inner, "")
		case "field_definition", "public_field_definition":
			w.computedName(member, inner)
			w.expression(member.ChildByFieldName("value"), inner, Read)
		case "class_static_block":
			block := inner.child(KindBlock, inner.Hoisted)
			w.statements(member, block)
		}
	}
}

// computedName visits the expression of a computed member name.
func (w *walker) computedName(member *sitter.Node, sc *Scope) {
	name := member.ChildByFieldName("name")
	if name == nil || name.Type() != "computed_property_name" {
		return
	}
	for _, inner := range parser.NamedChildren(name) {
		w.expression(inner, sc, Read)
	}
}

func (w *walker) expression(node *sitter.Node, sc *Scope, kind AccessKind) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "comment", "string", "number", "regex", "true", "false", "null",
		"undefined", "this", "super", "import", "property_identifier",
		"private_property_identifier", "statement_identifier":
	case "identifier":
		name := w.content(node)
		if w.isGlobalAlias(name) {
			return
		}
		sc.Refer(Reference{Head: name, Kind: kind})
	case "shorthand_property_identifier":
		sc.Refer(Reference{Head: w.content(node), Kind: Read})
	case "member_expression", "subscript_expression":
		w.memberChain(node, sc, kind)
	case "call_expression":
		w.callExpression(node, sc)
	case "new_expression":
		w.expression(node.ChildByFieldName("constructor"), sc, Read)
		w.callArguments(node.ChildByFieldName("arguments"), sc)
	case "assignment_expression":
		w.assignTarget(node.ChildByFieldName("left"), sc)
		w.expression(node.ChildByFieldName("right"), sc, kind)
	case "augmented_assignment_expression":
		w.assignTarget(node.ChildByFieldName("left"), sc)
		w.expression(node.ChildByFieldName("right"), sc, kind)
	case "update_expression":
		w.assignTarget(node.ChildByFieldName("argument"), sc)
	case "parenthesized_expression":
		for _, child := range parser.NamedChildren(node) {
			w.expression(child, sc, kind)
		}
	case "arrow_function":
		w.functionScope(node, sc, "")
	case "function", "function_expression", "generator_function":
		var selfName Symbol
		if name := node.ChildByFieldName("name"); name != nil {
			selfName = w.content(name)
		}
		w.functionScope(node, sc, selfName)
	case "class":
		var selfName Symbol
		if name := node.ChildByFieldName("name"); name != nil {
			selfName = w.content(name)
		}
		w.classScope(node, sc, selfName)
	case "object":
		w.objectLiteral(node, sc)
	default:
		for _, child := range parser.NamedChildren(node) {
			w.expression(child, sc, Read)
		}
	}
}

func (w *walker) objectLiteral(node *sitter.Node, sc *Scope) {
	for _, member := range parser.NamedChildren(node) {
		switch member.Type() {
		case "pair":
			if key := member.ChildByFieldName("key"); key != nil && key.Type() == "computed_property_name" {
				for _, inner := range parser.NamedChildren(key) {
					w.expression(inner, sc, Read)
				}
			}
			w.expression(member.ChildByFieldName("value"), sc, Read)
		case "shorthand_property_identifier":
			sc.Refer(Reference{Head: w.content(member), Kind: Read})
		case "spread_element":
			for _, inner := range parser.NamedChildren(member) {
				w.expression(inner, sc, Read)
			}
		case "method_definition":
			w.computedName(member, sc)
			w.functionScope(member, sc, "")
		}
	}
}

func (w *walker) callExpression(node *sitter.Node, sc *Scope) {
	if callee := node.ChildByFieldName("function"); callee != nil && callee.Type() != "import" {
		w.expression(callee, sc, Execute)
	}
	w.callArguments(node.ChildByFieldName("arguments"), sc)
}

func (w *walker) callArguments(node *sitter.Node, sc *Scope) {
	if node == nil {
		return
	}
	for _, argument := range parser.NamedChildren(node) {
		w.expression(argument, sc, Read)
	}
}

// assignTarget records write references for an assignment's left side.
// Destructuring targets write each nested name; member chains write the
// flattened path.
func (w *walker) assignTarget(node *sitter.Node, sc *Scope) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "identifier":
		name := w.content(node)
		if w.isGlobalAlias(name) {
			return
		}
		sc.Refer(Reference{Head: name, Kind: Write})
	case "shorthand_property_identifier_pattern":
		sc.Refer(Reference{Head: w.content(node), Kind: Write})
	case "member_expression", "subscript_expression":
		w.memberChain(node, sc, Write)
	case "parenthesized_expression":
		for _, child := range parser.NamedChildren(node) {
			w.assignTarget(child, sc)
		}
	case "object_pattern", "array_pattern":
		for _, child := range parser.NamedChildren(node) {
			w.assignTarget(child, sc)
		}
	case "pair_pattern":
		if key := node.ChildByFieldName("key"); key != nil && key.Type() == "computed_property_name" {
			for _, inner := range parser.NamedChildren(key) {
				w.expression(inner, sc, Read)
			}
		}
		w.assignTarget(node.ChildByFieldName("value"), sc)
	case "assignment_pattern", "object_assignment_pattern":
		w.assignTarget(node.ChildByFieldName("left"), sc)
		w.expression(node.ChildByFieldName("right"), sc, Read)
	case "rest_pattern", "rest_parameter", "spread_element":
		for _, child := range parser.NamedChildren(node) {
			w.assignTarget(child, sc)
		}
	default:
		w.expression(node, sc, Read)
	}
}

// bindPattern declares every name bound by a declaration or parameter
// pattern through declare, visiting default values and computed keys as
// expressions of sc.
func (w *walker) bindPattern(node *sitter.Node, sc *Scope, declare func(Symbol)) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "identifier", "shorthand_property_identifier_pattern":
		declare(w.content(node))
	case "object_pattern", "array_pattern":
		for _, child := range parser.NamedChildren(node) {
			w.bindPattern(child, sc, declare)
		}
	case "pair_pattern":
		if key := node.ChildByFieldName("key"); key != nil && key.Type() == "computed_property_name" {
			for _, inner := range parser.NamedChildren(key) {
				w.expression(inner, sc, Read)
			}
		}
		w.bindPattern(node.ChildByFieldName("value"), sc, declare)
	case "assignment_pattern", "object_assignment_pattern":
		w.bindPattern(node.ChildByFieldName("left"), sc, declare)
		w.expression(node.ChildByFieldName("right"), sc, Read)
	case "rest_pattern", "rest_parameter":
		for _, child := range parser.NamedChildren(node) {
			w.bindPattern(child, sc, declare)
		}
	}
}

// chain is the result of flattening a member expression: the collected
// identifier segments, or the non-identifier base that roots the chain.
type chain struct {
	segments []Symbol
	base     *sitter.Node
	stopped  bool
}

func (w *walker) memberChain(node *sitter.Node, sc *Scope, kind AccessKind) {
	result := w.flatten(node, sc)
	if result.base != nil {
		w.expression(result.base, sc, kind)
		return
	}
	if len(result.segments) == 0 {
		return
	}
	sc.Refer(Reference{Head: result.segments[0], Trail: result.segments[1:], Kind: kind})
}

// flatten collects the identifier segments of a member chain, object side
// first. Computed subscripts end the path and their index expressions are
// visited as reads; a global-object alias head is dropped; a chain not
// rooted at an identifier yields its base node for separate visiting.
func (w *walker) flatten(node *sitter.Node, sc *Scope) chain {
	switch node.Type() {
	case "identifier":
		name := w.content(node)
		if w.isGlobalAlias(name) {
			return chain{}
		}
		return chain{segments: []Symbol{name}}
	case "member_expression":
		result := w.flatten(node.ChildByFieldName("object"), sc)
		if result.base != nil || result.stopped {
			return result
		}
		property := node.ChildByFieldName("property")
		if property == nil || property.Type() != "property_identifier" {
			result.stopped = true
			return result
		}
		result.segments = append(result.segments, w.content(property))
		return result
	case "subscript_expression":
		result := w.flatten(node.ChildByFieldName("object"), sc)
		w.expression(node.ChildByFieldName("index"), sc, Read)
		result.stopped = true
		return result
	case "parenthesized_expression":
		for _, child := range parser.NamedChildren(node) {
			if child.Type() == "comment" {
				continue
			}
			return w.flatten(child, sc)
		}
		return chain{}
	default:
		return chain{base: node}
	}
}
