package policy

import (
	"strings"

	"github.com/modfence/modfence/graph"
)

// Builder aggregates per-module classifications into per-package policies.
type Builder struct {
	rootPackage string
	includeRoot bool
}

// BuilderOption customizes a Builder.
type BuilderOption func(*Builder)

// WithRootPackage names the workspace's own package. Its resource entry is
// dropped from generated documents unless WithIncludeRoot is set, since the
// workspace is trusted by definition.
func WithRootPackage(name string) BuilderOption {
	return func(b *Builder) {
		b.rootPackage = name
	}
}

// WithIncludeRoot keeps the root package's resource entry.
func WithIncludeRoot(include bool) BuilderOption {
	return func(b *Builder) {
		b.includeRoot = include
	}
}

// NewBuilder creates a Builder.
func NewBuilder(options ...BuilderOption) *Builder {
	b := &Builder{}
	for _, option := range options {
		option(b)
	}
	return b
}

// Build folds every module's report into its package policy: builtin and
// global paths become grants, a write through process.env unfreezes the
// environment, a resolved .node addon flags native use, and a dependency
// edge that crosses packages grants the target package. Edges count even
// when the target was never analyzed, as with JSON or native addon files.
func (b *Builder) Build(modules []*graph.ModuleNode) *Document {
	document := NewDocument()
	for _, module := range modules {
		name := b.packageName(module)
		policy := document.Resources[name]
		if policy == nil {
			policy = &PackagePolicy{Env: EnvFrozen}
			document.Resources[name] = policy
		}
		if module.Report != nil {
			for path, access := range module.Report.Builtin {
				policy.Builtin = grant(policy.Builtin, path)
				if access.Write && isEnvPath(path) {
					policy.Env = EnvUnfrozen
				}
			}
			for path, access := range module.Report.Globals {
				policy.Globals = grant(policy.Globals, path)
				if access.Write && isEnvPath(path) {
					policy.Env = EnvUnfrozen
				}
			}
		}
		for _, resolution := range module.Resolved {
			if strings.HasSuffix(resolution.Location, ".node") {
				policy.Native = true
			}
			target := resolution.Package
			if target == "" {
				target = b.rootPackage
			}
			if target == "" || target == name {
				continue
			}
			policy.Packages = grant(policy.Packages, target)
		}
	}
	if !b.includeRoot {
		delete(document.Resources, b.rootPackage)
	}
	for name, policy := range document.Resources {
		if policy.IsEmpty() {
			delete(document.Resources, name)
		}
	}
	return document
}

func (b *Builder) packageName(module *graph.ModuleNode) string {
	if module.Package != "" {
		return module.Package
	}
	return b.rootPackage
}

func grant(m PathAccessMap, path string) PathAccessMap {
	if m == nil {
		m = PathAccessMap{}
	}
	m[path] = true
	return m
}

// isEnvPath matches accesses that reach the process environment, whether
// process arrived as a host global or as an imported builtin.
func isEnvPath(path string) bool {
	return path == "process.env" || strings.HasPrefix(path, "process.env.")
}
