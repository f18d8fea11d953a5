package graph

import (
	"context"
	"fmt"
	"path"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/afs"

	"github.com/modfence/modfence/inspector"
)

// relativeResolver resolves ./ specifiers against the importing module's
// directory, which is all the fixtures below need.
type relativeResolver struct{}

func (relativeResolver) Resolve(_ context.Context, base, specifier string) (string, error) {
	if !strings.HasPrefix(specifier, ".") {
		return "", fmt.Errorf("cannot resolve %v from %v", specifier, base)
	}
	dir := base[:strings.LastIndexByte(base, '/')]
	return dir + "/" + path.Clean(strings.TrimPrefix(specifier, "./")), nil
}

type attributorFunc func(ctx context.Context, location string) (string, error)

func (f attributorFunc) PackageForModule(ctx context.Context, location string) (string, error) {
	return f(ctx, location)
}

func uploadAll(t *testing.T, baseURL string, files map[string]string) afs.Service {
	fs := afs.New()
	for name, source := range files {
		err := fs.Upload(context.Background(), baseURL+"/"+name, 0644, strings.NewReader(source))
		if !assert.NoError(t, err, name) {
			t.FailNow()
		}
	}
	return fs
}

func TestGraph_Load(t *testing.T) {
	baseURL := "mem://localhost/graph_load"
	fs := uploadAll(t, baseURL, map[string]string{
		"index.js": `
import run from './lib/run.js';
import fs from 'fs';
run(fs.promises);
`,
		"lib/run.js": `
const zlib = require('zlib');
export default function run(io) {
  return zlib.gzipSync(io);
}
`,
	})

	g := New(relativeResolver{}, attributorFunc(func(context.Context, string) (string, error) {
		return "app", nil
	}), WithFS(fs))
	defer g.Reset()
	root, err := g.Load(context.Background(), baseURL+"/index.js")
	if !assert.NoError(t, err) {
		return
	}

	modules := g.Modules()
	if !assert.Len(t, modules, 2) {
		return
	}
	assert.Equal(t, baseURL+"/index.js", modules[0].Location)
	assert.Equal(t, baseURL+"/lib/run.js", modules[1].Location)
	assert.Equal(t, "app", root.Package)
	assert.NotZero(t, root.Hash)
	assert.EqualValues(t, []Resolution{
		{Specifier: "./lib/run.js", Location: baseURL + "/lib/run.js", Package: "app"},
	}, root.Resolved)
	assert.EqualValues(t, []inspector.Dependency{
		{Specifier: "./lib/run.js", Kind: inspector.DependencyImport},
		{Specifier: "fs", Kind: inspector.DependencyImport},
	}, root.Dependencies)
	assert.EqualValues(t, inspector.Access{Read: true}, root.Report.Builtin["fs.promises"])
	assert.EqualValues(t, inspector.Access{Execute: true}, modules[1].Report.Builtin["zlib.gzipSync"])
}

func TestGraph_ParseAndResolve_Idempotent(t *testing.T) {
	baseURL := "mem://localhost/graph_cache"
	fs := uploadAll(t, baseURL, map[string]string{
		"a.js": `export const a = 1;`,
	})

	g := New(relativeResolver{}, nil, WithFS(fs))
	defer g.Reset()
	first, err := g.ParseAndResolve(context.Background(), baseURL+"/a.js")
	if !assert.NoError(t, err) {
		return
	}
	second, err := g.ParseAndResolve(context.Background(), baseURL+"/a.js")
	if !assert.NoError(t, err) {
		return
	}
	assert.Same(t, first, second, "repeated loads observe one cached node")

	g.Reset()
	third, err := g.ParseAndResolve(context.Background(), baseURL+"/a.js")
	if !assert.NoError(t, err) {
		return
	}
	assert.NotSame(t, first, third, "reset drops the cache")
}

func TestGraph_Visit(t *testing.T) {
	baseURL := "mem://localhost/graph_visit"
	fs := uploadAll(t, baseURL, map[string]string{
		"a.js": `
import './b.js';
import './c.js';
`,
		"b.js": `import './d.js';`,
		"c.js": `import './a.js';`,
		"d.js": `export {};`,
	})

	g := New(relativeResolver{}, nil, WithFS(fs))
	defer g.Reset()
	root, err := g.Load(context.Background(), baseURL+"/a.js")
	if !assert.NoError(t, err) {
		return
	}

	type visited struct {
		specifier string
		cycle     bool
		last      bool
		branches  []bool
	}
	var visits []visited
	g.Visit(root, func(edge Edge) bool {
		visits = append(visits, visited{
			specifier: edge.Specifier,
			cycle:     edge.Cycle,
			last:      edge.Last,
			branches:  edge.Branches,
		})
		return true
	})
	assert.EqualValues(t, []visited{
		{specifier: "./b.js", branches: []bool{false}},
		{specifier: "./d.js", last: true, branches: []bool{false, true}},
		{specifier: "./c.js", last: true, branches: []bool{true}},
		{specifier: "./a.js", cycle: true, last: true, branches: []bool{true, true}},
	}, visits)

	seen := 0
	for _, visit := range visits {
		if visit.specifier == "./b.js" {
			seen++
		}
	}
	assert.Equal(t, 1, seen, "each module visits once per path")

	var pruned []string
	g.Visit(root, func(edge Edge) bool {
		pruned = append(pruned, edge.Specifier)
		return edge.Specifier != "./b.js"
	})
	assert.EqualValues(t, []string{"./b.js", "./c.js", "./a.js"}, pruned)
}

func TestGraph_Load_SkipsData(t *testing.T) {
	baseURL := "mem://localhost/graph_data"
	fs := uploadAll(t, baseURL, map[string]string{
		"app.js":        `import settings from './settings.json'; export default settings;`,
		"settings.json": `{"debug": true}`,
	})

	g := New(relativeResolver{}, attributorFunc(func(_ context.Context, location string) (string, error) {
		if strings.HasSuffix(location, ".json") {
			return "settings-pkg", nil
		}
		return "app", nil
	}), WithFS(fs))
	defer g.Reset()
	root, err := g.Load(context.Background(), baseURL+"/app.js")
	if !assert.NoError(t, err) {
		return
	}
	assert.Len(t, g.Modules(), 1, "data files are fetched into edges, not analyzed")
	assert.EqualValues(t, []Resolution{
		{Specifier: "./settings.json", Location: baseURL + "/settings.json", Package: "settings-pkg"},
	}, root.Resolved, "unanalyzed targets still carry their package")

	var edges []Edge
	g.Visit(root, func(edge Edge) bool {
		edges = append(edges, edge)
		return true
	})
	if assert.Len(t, edges, 1) {
		assert.Equal(t, "./settings.json", edges[0].Specifier)
		assert.Nil(t, edges[0].Node)
	}
}

func TestHash(t *testing.T) {
	first, err := Hash([]byte("const a = 1;"))
	if !assert.NoError(t, err) {
		return
	}
	again, err := Hash([]byte("const a = 1;"))
	if !assert.NoError(t, err) {
		return
	}
	other, err := Hash([]byte("const a = 2;"))
	if !assert.NoError(t, err) {
		return
	}
	assert.Equal(t, first, again)
	assert.NotEqual(t, first, other)
}
