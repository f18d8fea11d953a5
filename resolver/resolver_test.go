package resolver

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/afs"
)

func TestNode_Resolve(t *testing.T) {
	ctx := context.Background()
	fs := afs.New()
	baseURL := "mem://localhost/resolve/project"
	files := map[string]string{
		"src/app.js":                            `import util from './util';`,
		"src/util.js":                           `export default {};`,
		"src/lib/index.js":                      `export default {};`,
		"src/data.json":                         `{"a": 1}`,
		"node_modules/lodash/package.json":      `{"name": "lodash", "main": "lib/main.js"}`,
		"node_modules/lodash/lib/main.js":       `module.exports = {};`,
		"node_modules/through/index.js":         `module.exports = {};`,
		"node_modules/pad/package.json":         `{"name": "pad", "main": "pad"}`,
		"node_modules/pad/pad.js":               `module.exports = {};`,
		"src/node_modules/local-first/index.js": `module.exports = {};`,
		"node_modules/local-first/index.js":     `module.exports = {};`,
	}
	for name, source := range files {
		if !assert.NoError(t, fs.Upload(ctx, baseURL+"/"+name, 0644, strings.NewReader(source)), name) {
			return
		}
	}

	node := NewNode(WithFS(fs))
	base := baseURL + "/src/app.js"
	testCases := []struct {
		description string
		specifier   string
		expect      string
	}{
		{
			description: "extension probing",
			specifier:   "./util",
			expect:      baseURL + "/src/util.js",
		},
		{
			description: "literal path",
			specifier:   "./util.js",
			expect:      baseURL + "/src/util.js",
		},
		{
			description: "directory index",
			specifier:   "./lib",
			expect:      baseURL + "/src/lib/index.js",
		},
		{
			description: "json asset",
			specifier:   "./data.json",
			expect:      baseURL + "/src/data.json",
		},
		{
			description: "parent relative",
			specifier:   "../node_modules/through/index.js",
			expect:      baseURL + "/node_modules/through/index.js",
		},
		{
			description: "bare specifier through manifest main",
			specifier:   "lodash",
			expect:      baseURL + "/node_modules/lodash/lib/main.js",
		},
		{
			description: "manifest main without extension",
			specifier:   "pad",
			expect:      baseURL + "/node_modules/pad/pad.js",
		},
		{
			description: "bare specifier through index",
			specifier:   "through",
			expect:      baseURL + "/node_modules/through/index.js",
		},
		{
			description: "bare subpath",
			specifier:   "lodash/lib/main",
			expect:      baseURL + "/node_modules/lodash/lib/main.js",
		},
		{
			description: "nearest node_modules wins",
			specifier:   "local-first",
			expect:      baseURL + "/src/node_modules/local-first/index.js",
		},
	}
	for _, testCase := range testCases {
		resolved, err := node.Resolve(ctx, base, testCase.specifier)
		if !assert.NoError(t, err, testCase.description) {
			continue
		}
		assert.Equal(t, testCase.expect, resolved, testCase.description)
	}
}

func TestNode_Resolve_Errors(t *testing.T) {
	ctx := context.Background()
	node := NewNode()
	base := "mem://localhost/resolve/project/src/app.js"

	for _, specifier := range []string{"./nope", "unknown-package", ""} {
		_, err := node.Resolve(ctx, base, specifier)
		if !assert.Error(t, err, specifier) {
			continue
		}
		var resolution *ResolutionError
		if assert.ErrorAs(t, err, &resolution, specifier) {
			assert.Equal(t, specifier, resolution.Specifier)
			assert.Equal(t, base, resolution.From)
		}
	}

	_, err := node.Resolve(ctx, base, "./nope")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSplitLocation(t *testing.T) {
	prefix, filePath := splitLocation("mem://localhost/app/index.js")
	assert.Equal(t, "mem://localhost", prefix)
	assert.Equal(t, "/app/index.js", filePath)

	prefix, filePath = splitLocation("/tmp/app/index.js")
	assert.Equal(t, "", prefix)
	assert.Equal(t, "/tmp/app/index.js", filePath)
}

func TestNode_Resolve_Extensions(t *testing.T) {
	ctx := context.Background()
	fs := afs.New()
	baseURL := "mem://localhost/resolve/exts"
	if !assert.NoError(t, fs.Upload(ctx, baseURL+"/mod.mjs", 0644, strings.NewReader("export {};"))) {
		return
	}

	limited := NewNode(WithFS(fs), WithExtensions(".js"))
	_, err := limited.Resolve(ctx, baseURL+"/app.js", "./mod")
	assert.Error(t, err, "mjs is invisible without its extension configured")

	full := NewNode(WithFS(fs))
	resolved, err := full.Resolve(ctx, baseURL+"/app.js", "./mod")
	if assert.NoError(t, err) {
		assert.Equal(t, baseURL+"/mod.mjs", resolved)
	}
}
