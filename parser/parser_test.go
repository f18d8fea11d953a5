package parser

import (
	"context"
	"errors"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/assert"
)

func TestParser_Parse(t *testing.T) {
	testCases := []struct {
		description string
		source      string
		expectErr   bool
	}{
		{
			description: "esm module",
			source:      "import fs from 'fs';\nexport const answer = 42;\n",
		},
		{
			description: "commonjs module",
			source:      "const http = require('http');\nmodule.exports = http.createServer;\n",
		},
		{
			description: "empty module",
			source:      "",
		},
		{
			description: "syntax error",
			source:      "const = function{{{",
			expectErr:   true,
		},
	}

	parser := New()
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			result, err := parser.Parse(context.Background(), "test.js", []byte(tc.source))
			if tc.expectErr {
				assert.Error(t, err)
				var parseErr *ParseError
				assert.True(t, errors.As(err, &parseErr))
				assert.Equal(t, "test.js", parseErr.Location)
				return
			}
			if !assert.NoError(t, err) {
				return
			}
			defer result.Close()
			assert.Equal(t, "program", result.Root().Type())
		})
	}
}

func TestWalk(t *testing.T) {
	parser := New()
	result, err := parser.Parse(context.Background(), "test.js", []byte("const a = b.c;"))
	if !assert.NoError(t, err) {
		return
	}
	defer result.Close()

	var types []string
	Walk(result.Root(), func(node *sitter.Node) bool {
		if node.IsNamed() {
			types = append(types, node.Type())
		}
		return true
	})
	assert.Contains(t, types, "lexical_declaration")
	assert.Contains(t, types, "variable_declarator")
	assert.Contains(t, types, "member_expression")
}

func TestStringValue(t *testing.T) {
	testCases := []struct {
		description string
		source      string
		expect      string
	}{
		{description: "single quotes", source: "import('./mod.js')", expect: "./mod.js"},
		{description: "double quotes", source: `require("zlib")`, expect: "zlib"},
	}
	parser := New()
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			result, err := parser.Parse(context.Background(), "test.js", []byte(tc.source))
			if !assert.NoError(t, err) {
				return
			}
			defer result.Close()
			var value string
			Walk(result.Root(), func(node *sitter.Node) bool {
				if node.Type() == "string" && value == "" {
					value = StringValue(node, result.Source)
				}
				return true
			})
			assert.Equal(t, tc.expect, value)
		})
	}
}
