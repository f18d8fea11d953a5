package parser

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// Walk visits node and its descendants in pre-order. The visitor returns
// false to skip a node's children.
func Walk(node *sitter.Node, visit func(node *sitter.Node) bool) {
	if node == nil {
		return
	}
	if !visit(node) {
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		Walk(node.Child(i), visit)
	}
}

// NamedChildren returns the named children of node in source order.
func NamedChildren(node *sitter.Node) []*sitter.Node {
	if node == nil {
		return nil
	}
	count := int(node.NamedChildCount())
	children := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		children = append(children, node.NamedChild(i))
	}
	return children
}

// StringValue returns the literal value of a string node with the
// surrounding quotes or backticks removed.
func StringValue(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	text := node.Content(source)
	if len(text) >= 2 {
		first, last := text[0], text[len(text)-1]
		if (first == '\'' && last == '\'') || (first == '"' && last == '"') || (first == '`' && last == '`') {
			return text[1 : len(text)-1]
		}
	}
	return text
}

// HasChild reports whether node has a direct child of the given type,
// named or anonymous.
func HasChild(node *sitter.Node, nodeType string) bool {
	if node == nil {
		return false
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if child := node.Child(i); child != nil && child.Type() == nodeType {
			return true
		}
	}
	return false
}
