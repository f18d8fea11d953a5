// Package record builds static module records: serializable summaries of a
// module's imports, exports, live exports, and re-exports, sufficient for a
// consumer to synthesize an equivalent program without module syntax.
package record

import (
	"encoding/json"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/modfence/modfence/parser"
)

// ImportName is one imported binding: the remote name and the local alias
// it binds to. A nil alias means the remote name binds verbatim or, for
// re-exports, that no local binding is created at all.
type ImportName struct {
	Name  string  `json:"name" yaml:"name"`
	Alias *string `json:"alias" yaml:"alias"`
}

// LiveExport ties an exported name to its local target. Live exports may
// change after module initialization, so consumers must observe writes;
// re-exports carry their remote name as target and are never live.
type LiveExport struct {
	Target string
	Live   bool
}

// MarshalJSON emits the [target, live] tuple form.
func (e LiveExport) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{e.Target, e.Live})
}

// UnmarshalJSON parses the [target, live] tuple form.
func (e *LiveExport) UnmarshalJSON(data []byte) error {
	tuple := []interface{}{&e.Target, &e.Live}
	if err := json.Unmarshal(data, &tuple); err != nil {
		return err
	}
	if len(tuple) != 2 {
		return fmt.Errorf("live export: expected [target, live], got %s", data)
	}
	return nil
}

// MarshalYAML emits the [target, live] tuple form.
func (e LiveExport) MarshalYAML() (interface{}, error) {
	return []interface{}{e.Target, e.Live}, nil
}

// StaticModuleRecord is the import/export surface of one module. All
// collections serialize even when empty so consumers can rely on shape.
type StaticModuleRecord struct {
	ExportAlls     []string                `json:"exportAlls" yaml:"exportAlls"`
	Imports        map[string][]ImportName `json:"imports" yaml:"imports"`
	LiveExportMap  map[string]LiveExport   `json:"liveExportMap" yaml:"liveExportMap"`
	FixedExportMap map[string][]string     `json:"fixedExportMap" yaml:"fixedExportMap"`
}

// Build runs two passes over the module's tree. Pass one collects import,
// export, and re-export declarations at module-item granularity. Pass two
// re-walks the top-level statements for assignments or updates that target
// an exported local; matches become live exports, the rest stay fixed.
// Assignments inside nested functions are not inspected, so a lazily
// mutated export still reports as fixed.
func Build(mod *parser.Result) *StaticModuleRecord {
	record := &StaticModuleRecord{
		ExportAlls:     []string{},
		Imports:        map[string][]ImportName{},
		LiveExportMap:  map[string]LiveExport{},
		FixedExportMap: map[string][]string{},
	}
	c := &collector{mod: mod, record: record, assigned: map[string]bool{}}
	root := mod.Root()
	for _, child := range parser.NamedChildren(root) {
		switch child.Type() {
		case "import_statement":
			c.importDeclaration(child)
		case "export_statement":
			c.exportDeclaration(child)
		}
	}
	for _, child := range parser.NamedChildren(root) {
		if child.Type() == "expression_statement" {
			c.moduleAssignments(child)
		}
	}
	c.settle()
	return record
}

type pendingExport struct {
	exported string
	local    string
}

type collector struct {
	mod      *parser.Result
	record   *StaticModuleRecord
	pending  []pendingExport
	assigned map[string]bool
}

// settle splits the collected exports by liveness.
func (c *collector) settle() {
	for _, export := range c.pending {
		if c.assigned[export.local] {
			c.record.LiveExportMap[export.exported] = LiveExport{Target: export.local, Live: true}
			continue
		}
		c.record.FixedExportMap[export.exported] = []string{export.local}
	}
}

func (c *collector) importDeclaration(statement *sitter.Node) {
	source := parser.StringValue(statement.ChildByFieldName("source"), c.mod.Source)
	if source == "" {
		return
	}
	names := c.importsFor(source)
	for _, child := range parser.NamedChildren(statement) {
		if child.Type() != "import_clause" {
			continue
		}
		for _, clause := range parser.NamedChildren(child) {
			switch clause.Type() {
			case "identifier":
				names = append(names, ImportName{Name: "default", Alias: stringPtr(c.mod.Content(clause))})
			case "namespace_import":
				for _, inner := range parser.NamedChildren(clause) {
					if inner.Type() == "identifier" {
						names = append(names, ImportName{Name: "*", Alias: stringPtr(c.mod.Content(inner))})
					}
				}
			case "named_imports":
				for _, specifier := range parser.NamedChildren(clause) {
					if specifier.Type() != "import_specifier" {
						continue
					}
					name := c.exportName(specifier.ChildByFieldName("name"))
					if name == "" {
						continue
					}
					entry := ImportName{Name: name}
					if alias := specifier.ChildByFieldName("alias"); alias != nil {
						entry.Alias = stringPtr(c.exportName(alias))
					}
					names = append(names, entry)
				}
			}
		}
	}
	c.record.Imports[source] = names
}

func (c *collector) exportDeclaration(statement *sitter.Node) {
	if source := statement.ChildByFieldName("source"); source != nil {
		c.reexport(statement, parser.StringValue(source, c.mod.Source))
		return
	}
	if declaration := statement.ChildByFieldName("declaration"); declaration != nil {
		c.declarationExports(declaration, parser.HasChild(statement, "default"))
		return
	}
	if statement.ChildByFieldName("value") != nil {
		c.pending = append(c.pending, pendingExport{exported: "default", local: "default"})
		return
	}
	for _, child := range parser.NamedChildren(statement) {
		if child.Type() != "export_clause" {
			continue
		}
		for _, specifier := range parser.NamedChildren(child) {
			if specifier.Type() != "export_specifier" {
				continue
			}
			local := c.exportName(specifier.ChildByFieldName("name"))
			if local == "" {
				continue
			}
			exported := local
			if alias := specifier.ChildByFieldName("alias"); alias != nil {
				exported = c.exportName(alias)
			}
			c.pending = append(c.pending, pendingExport{exported: exported, local: local})
		}
	}
}

// declarationExports registers exports introduced by a declaration form:
// variable and lexical declarations export every bound name, functions and
// classes export their own name, and the default keyword rebinds the
// exported name while liveness still tracks the local one.
func (c *collector) declarationExports(declaration *sitter.Node, isDefault bool) {
	switch declaration.Type() {
	case "lexical_declaration", "variable_declaration":
		for _, declarator := range parser.NamedChildren(declaration) {
			if declarator.Type() != "variable_declarator" {
				continue
			}
			for _, name := range patternNames(c.mod, declarator.ChildByFieldName("name")) {
				c.pending = append(c.pending, pendingExport{exported: name, local: name})
			}
		}
	case "function_declaration", "generator_function_declaration", "class_declaration":
		local := "default"
		if name := declaration.ChildByFieldName("name"); name != nil {
			local = c.mod.Content(name)
		}
		exported := local
		if isDefault {
			exported = "default"
		}
		c.pending = append(c.pending, pendingExport{exported: exported, local: local})
	default:
		if isDefault {
			c.pending = append(c.pending, pendingExport{exported: "default", local: "default"})
		}
	}
}

// reexport handles the with-source export forms. Named and namespace
// re-exports register an imports entry without a local alias plus a
// non-live export mapping; export-all is recorded for the consumer to
// expand against the target module's own record.
func (c *collector) reexport(statement *sitter.Node, source string) {
	if source == "" {
		return
	}
	names := c.importsFor(source)
	var clause *sitter.Node
	namespaceAlias := ""
	star := false
	for i := 0; i < int(statement.ChildCount()); i++ {
		child := statement.Child(i)
		switch child.Type() {
		case "export_clause":
			clause = child
		case "namespace_export":
			for _, inner := range parser.NamedChildren(child) {
				namespaceAlias = c.exportName(inner)
			}
		case "*":
			star = true
		}
	}
	switch {
	case clause != nil:
		for _, specifier := range parser.NamedChildren(clause) {
			if specifier.Type() != "export_specifier" {
				continue
			}
			remote := c.exportName(specifier.ChildByFieldName("name"))
			if remote == "" {
				continue
			}
			exported := remote
			if alias := specifier.ChildByFieldName("alias"); alias != nil {
				exported = c.exportName(alias)
			}
			names = append(names, ImportName{Name: remote})
			c.record.LiveExportMap[exported] = LiveExport{Target: remote}
		}
	case namespaceAlias != "":
		names = append(names, ImportName{Name: "*"})
		c.record.LiveExportMap[namespaceAlias] = LiveExport{Target: "*"}
	case star:
		c.record.ExportAlls = append(c.record.ExportAlls, source)
	}
	c.record.Imports[source] = names
}

// moduleAssignments collects identifiers assigned or updated within one
// top-level statement, without descending into function or class bodies.
func (c *collector) moduleAssignments(statement *sitter.Node) {
	parser.Walk(statement, func(node *sitter.Node) bool {
		switch node.Type() {
		case "function", "function_expression", "arrow_function",
			"generator_function", "function_declaration",
			"generator_function_declaration", "method_definition",
			"class", "class_declaration":
			return false
		case "assignment_expression", "augmented_assignment_expression":
			c.markAssigned(node.ChildByFieldName("left"))
		case "update_expression":
			c.markAssigned(node.ChildByFieldName("argument"))
		}
		return true
	})
}

func (c *collector) markAssigned(target *sitter.Node) {
	if target != nil && target.Type() == "identifier" {
		c.assigned[c.mod.Content(target)] = true
	}
}

func (c *collector) importsFor(source string) []ImportName {
	if names := c.record.Imports[source]; names != nil {
		return names
	}
	return []ImportName{}
}

// exportName reads a module export name, which the grammar allows to be an
// identifier or a string literal.
func (c *collector) exportName(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	if node.Type() == "string" {
		return parser.StringValue(node, c.mod.Source)
	}
	return c.mod.Content(node)
}

// patternNames lists the identifiers a declarator pattern binds.
func patternNames(mod *parser.Result, pattern *sitter.Node) []string {
	if pattern == nil {
		return nil
	}
	switch pattern.Type() {
	case "identifier", "shorthand_property_identifier_pattern":
		return []string{mod.Content(pattern)}
	case "object_pattern", "array_pattern", "rest_pattern", "rest_parameter":
		var names []string
		for _, child := range parser.NamedChildren(pattern) {
			names = append(names, patternNames(mod, child)...)
		}
		return names
	case "pair_pattern":
		return patternNames(mod, pattern.ChildByFieldName("value"))
	case "assignment_pattern", "object_assignment_pattern":
		return patternNames(mod, pattern.ChildByFieldName("left"))
	}
	return nil
}

func stringPtr(value string) *string {
	return &value
}
