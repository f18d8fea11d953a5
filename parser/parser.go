package parser

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
)

// ParseError indicates source the grammar could not turn into a usable tree.
type ParseError struct {
	Location string
	Err      error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to parse %s: %v", e.Location, e.Err)
	}
	return fmt.Sprintf("failed to parse %s: syntax error", e.Location)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parser turns JavaScript source into syntax trees.
type Parser struct {
	parser *sitter.Parser
}

// New creates a JavaScript parser
func New() *Parser {
	parser := sitter.NewParser()
	parser.SetLanguage(javascript.GetLanguage())
	return &Parser{parser: parser}
}

// Result holds a parsed module: the tree handle plus the source bytes needed
// to extract node content. The location is carried for error reporting and
// cache keying.
type Result struct {
	Tree     *sitter.Tree
	Source   []byte
	Location string
}

// Parse produces a syntax tree for the supplied source. A tree whose root
// contains grammar errors is rejected; downstream analysis requires an
// already-valid module.
func (p *Parser) Parse(ctx context.Context, location string, source []byte) (*Result, error) {
	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, &ParseError{Location: location, Err: err}
	}
	root := tree.RootNode()
	if root == nil || root.HasError() {
		tree.Close()
		return nil, &ParseError{Location: location}
	}
	return &Result{Tree: tree, Source: source, Location: location}, nil
}

// Root returns the program node of the parsed module.
func (r *Result) Root() *sitter.Node {
	return r.Tree.RootNode()
}

// Content returns the source text covered by node.
func (r *Result) Content(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return node.Content(r.Source)
}

// Close releases the underlying tree. The Result must not be used afterwards.
func (r *Result) Close() {
	if r.Tree != nil {
		r.Tree.Close()
		r.Tree = nil
	}
}
