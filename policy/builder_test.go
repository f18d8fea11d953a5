package policy

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/modfence/modfence/graph"
	"github.com/modfence/modfence/inspector"
)

func testModules() []*graph.ModuleNode {
	return []*graph.ModuleNode{
		{
			Location: "file:///work/app/index.js",
			Package:  "app",
			Report: &inspector.Report{
				Builtin: map[string]inspector.Access{
					"fs.readFile":      {Execute: true},
					"process.env.HOME": {Write: true},
				},
				Globals: map[string]inspector.Access{
					"console.log": {Execute: true},
				},
			},
			Resolved: []graph.Resolution{
				{Specifier: "lodash", Location: "file:///work/app/node_modules/lodash/index.js", Package: "lodash"},
				{Specifier: "./addon.node", Location: "file:///work/app/addon.node", Package: "app"},
			},
		},
		{
			Location: "file:///work/app/node_modules/lodash/index.js",
			Package:  "lodash",
			Report: &inspector.Report{
				Globals: map[string]inspector.Access{
					"setTimeout": {Execute: true},
				},
			},
		},
		{
			Location: "file:///work/app/node_modules/noop/index.js",
			Package:  "noop",
			Report:   &inspector.Report{},
		},
	}
}

func TestBuilder_Build(t *testing.T) {
	builder := NewBuilder(WithRootPackage("app"), WithIncludeRoot(true))
	document := builder.Build(testModules())

	expect := map[string]*PackagePolicy{
		"app": {
			Native: true,
			Env:    EnvUnfrozen,
			Builtin: PathAccessMap{
				"fs.readFile":      true,
				"process.env.HOME": true,
			},
			Globals:  PathAccessMap{"console.log": true},
			Packages: PathAccessMap{"lodash": true},
		},
		"lodash": {
			Env:     EnvFrozen,
			Globals: PathAccessMap{"setTimeout": true},
		},
	}
	assert.EqualValues(t, expect, document.Resources)

	data, err := json.Marshal(document)
	if !assert.NoError(t, err) {
		return
	}
	assert.JSONEq(t, `{
		"resources": {
			"app": {
				"native": true,
				"env": "unfrozen",
				"builtin": {"fs.readFile": true, "process.env.HOME": true},
				"globals": {"console.log": true},
				"packages": {"lodash": true}
			},
			"lodash": {"globals": {"setTimeout": true}}
		}
	}`, string(data))
}

func TestBuilder_Build_ExcludesRoot(t *testing.T) {
	document := NewBuilder(WithRootPackage("app")).Build(testModules())
	if assert.NotContains(t, document.Resources, "app", "workspace package stays out by default") {
		assert.Contains(t, document.Resources, "lodash")
	}
	assert.NotContains(t, document.Resources, "noop", "empty policies are not persisted")
}

func TestBuilder_Build_GrantsUnanalyzedTargets(t *testing.T) {
	modules := []*graph.ModuleNode{
		{
			Location: "file:///work/app/node_modules/mid/index.js",
			Package:  "mid",
			Report:   &inspector.Report{},
			Resolved: []graph.Resolution{
				{
					Specifier: "config-pkg/defaults.json",
					Location:  "file:///work/app/node_modules/config-pkg/defaults.json",
					Package:   "config-pkg",
				},
			},
		},
	}
	document := NewBuilder(WithRootPackage("app")).Build(modules)
	if assert.Contains(t, document.Resources, "mid", "an edge to an unanalyzed file still grants its package") {
		assert.EqualValues(t, PathAccessMap{"config-pkg": true}, document.Resources["mid"].Packages)
	}
}

func TestBuilder_Build_AttributesUnnamedToRoot(t *testing.T) {
	modules := []*graph.ModuleNode{
		{
			Location: "file:///work/app/run.js",
			Report: &inspector.Report{
				Globals: map[string]inspector.Access{"fetch": {Execute: true}},
			},
		},
	}
	document := NewBuilder(WithRootPackage("app"), WithIncludeRoot(true)).Build(modules)
	if assert.Contains(t, document.Resources, "app") {
		assert.EqualValues(t, PathAccessMap{"fetch": true}, document.Resources["app"].Globals)
	}
}
