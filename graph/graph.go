// Package graph loads a JavaScript module and its transitive dependencies
// into an analyzed dependency graph. Each module is parsed and classified
// once per graph; the cache is scoped to the Graph value so independent
// analyses stay isolated and trivially resettable.
package graph

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/viant/afs"

	"github.com/modfence/modfence/inspector"
	"github.com/modfence/modfence/parser"
)

// Resolver locates a dependency specifier relative to the module that
// declares it.
type Resolver interface {
	Resolve(ctx context.Context, base, specifier string) (string, error)
}

// Attributor names the package a module location belongs to.
type Attributor interface {
	PackageForModule(ctx context.Context, location string) (string, error)
}

// Resolution pairs a specifier with the location it resolved to and the
// package owning that location. Non-JavaScript targets such as JSON or
// native addons are attributed here even though they are never analyzed.
type Resolution struct {
	Specifier string `yaml:"specifier" json:"specifier"`
	Location  string `yaml:"location" json:"location"`
	Package   string `yaml:"package,omitempty" json:"package,omitempty"`
}

// ModuleNode is one analyzed module in the graph.
type ModuleNode struct {
	ID           int64
	Location     string
	Hash         uint64
	Package      string
	Module       *parser.Result
	Report       *inspector.Report
	Dependencies []inspector.Dependency
	Resolved     []Resolution
}

// Graph parses, classifies, and resolves every module reachable from an
// entry location.
type Graph struct {
	fs         afs.Service
	inspector  *inspector.Inspector
	resolver   Resolver
	attributor Attributor
	modules    sync.Map
	nextID     int64
}

// Option customizes a Graph.
type Option func(*Graph)

// WithFS overrides the storage service used to fetch module sources.
func WithFS(fs afs.Service) Option {
	return func(g *Graph) {
		g.fs = fs
	}
}

// WithConfig replaces the inspector configuration.
func WithConfig(config *inspector.Config) Option {
	return func(g *Graph) {
		g.inspector = inspector.New(config)
	}
}

// New creates a Graph that resolves dependencies with resolver and names
// the package of each module and resolved target with attributor. A nil
// attributor leaves Package fields empty.
func New(resolver Resolver, attributor Attributor, options ...Option) *Graph {
	g := &Graph{
		fs:         afs.New(),
		inspector:  inspector.New(nil),
		resolver:   resolver,
		attributor: attributor,
	}
	for _, option := range options {
		option(g)
	}
	return g
}

// ParseAndResolve fetches, parses, classifies, and resolves one module.
// Calls are idempotent per location: concurrent callers may duplicate the
// parse work, but the first stored node wins and every caller observes it.
func (g *Graph) ParseAndResolve(ctx context.Context, location string) (*ModuleNode, error) {
	if cached, ok := g.modules.Load(location); ok {
		return cached.(*ModuleNode), nil
	}
	data, err := g.fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to load module %v: %w", location, err)
	}
	digest, err := Hash(data)
	if err != nil {
		return nil, fmt.Errorf("failed to hash module %v: %w", location, err)
	}
	// a tree-sitter parser is not safe for concurrent use, each load takes
	// its own
	mod, err := parser.New().Parse(ctx, location, data)
	if err != nil {
		return nil, err
	}
	report, err := g.inspector.Inspect(mod)
	if err != nil {
		mod.Close()
		return nil, err
	}
	node := &ModuleNode{
		ID:           atomic.AddInt64(&g.nextID, 1),
		Location:     location,
		Hash:         digest,
		Module:       mod,
		Report:       report,
		Dependencies: report.Dependencies,
	}
	if g.attributor != nil {
		if node.Package, err = g.attributor.PackageForModule(ctx, location); err != nil {
			mod.Close()
			return nil, err
		}
	}
	for _, dependency := range report.Dependencies {
		if inspector.IsBuiltin(dependency.Specifier) {
			continue
		}
		resolved, err := g.resolver.Resolve(ctx, location, dependency.Specifier)
		if err != nil {
			mod.Close()
			return nil, err
		}
		resolution := Resolution{Specifier: dependency.Specifier, Location: resolved}
		if g.attributor != nil {
			if resolution.Package, err = g.attributor.PackageForModule(ctx, resolved); err != nil {
				mod.Close()
				return nil, err
			}
		}
		node.Resolved = append(node.Resolved, resolution)
	}
	if cached, loaded := g.modules.LoadOrStore(location, node); loaded {
		mod.Close()
		return cached.(*ModuleNode), nil
	}
	return node, nil
}

// Load analyzes the entry module and every transitively reachable
// dependency, breadth first. Resolved dependencies that are not JavaScript,
// such as JSON or native addons, terminate their branch without analysis.
func (g *Graph) Load(ctx context.Context, entry string) (*ModuleNode, error) {
	root, err := g.ParseAndResolve(ctx, entry)
	if err != nil {
		return nil, err
	}
	queue := []*ModuleNode{root}
	seen := map[string]bool{root.Location: true}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, resolution := range node.Resolved {
			if seen[resolution.Location] {
				continue
			}
			seen[resolution.Location] = true
			if !analyzable(resolution.Location) {
				continue
			}
			next, err := g.ParseAndResolve(ctx, resolution.Location)
			if err != nil {
				return nil, err
			}
			queue = append(queue, next)
		}
	}
	return root, nil
}

// Modules snapshots the analyzed modules in load order.
func (g *Graph) Modules() []*ModuleNode {
	var modules []*ModuleNode
	g.modules.Range(func(_, value interface{}) bool {
		modules = append(modules, value.(*ModuleNode))
		return true
	})
	sort.Slice(modules, func(i, j int) bool {
		return modules[i].ID < modules[j].ID
	})
	return modules
}

// Reset drops every cached module and releases their syntax trees.
func (g *Graph) Reset() {
	g.modules.Range(func(key, value interface{}) bool {
		value.(*ModuleNode).Module.Close()
		g.modules.Delete(key)
		return true
	})
}

func analyzable(location string) bool {
	switch strings.ToLower(path.Ext(location)) {
	case ".json", ".node":
		return false
	}
	return true
}
