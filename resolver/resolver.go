// Package resolver implements node-modules style module resolution over
// any storage the afs service can reach: literal paths, extension probing,
// directory manifests, index files, and the upward node_modules walk.
package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/url"
)

// DefaultExtensions are probed in order when a specifier names no file.
var DefaultExtensions = []string{".js", ".json", ".cjs", ".mjs"}

// ResolutionError reports a specifier that could not be located, keeping
// the importing module so the failure can be traced to its declaration.
type ResolutionError struct {
	Specifier string
	From      string
	Err       error
}

// Error implements error.
func (e *ResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve %q from %v: %v", e.Specifier, e.From, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// Node resolves specifiers the way the Node.js CommonJS loader does.
type Node struct {
	fs         afs.Service
	extensions []string
}

// Option customizes a Node resolver.
type Option func(*Node)

// WithFS overrides the storage service.
func WithFS(fs afs.Service) Option {
	return func(n *Node) {
		n.fs = fs
	}
}

// WithExtensions replaces the probed extension list.
func WithExtensions(extensions ...string) Option {
	return func(n *Node) {
		n.extensions = extensions
	}
}

// NewNode creates a resolver with the default extension chain.
func NewNode(options ...Option) *Node {
	n := &Node{
		fs:         afs.New(),
		extensions: DefaultExtensions,
	}
	for _, option := range options {
		option(n)
	}
	return n
}

// Resolve locates specifier relative to the module at base. Relative and
// absolute specifiers resolve against the importing directory; bare
// specifiers walk node_modules directories upward until the storage root.
func (n *Node) Resolve(ctx context.Context, base, specifier string) (string, error) {
	if specifier == "" {
		return "", &ResolutionError{Specifier: specifier, From: base, Err: fmt.Errorf("empty specifier")}
	}
	prefix, basePath := splitLocation(base)
	baseDir := path.Dir(basePath)
	if relative(specifier) {
		if resolved, ok := n.resolveLocation(ctx, prefix+path.Join(baseDir, specifier)); ok {
			return resolved, nil
		}
		return "", &ResolutionError{Specifier: specifier, From: base, Err: os.ErrNotExist}
	}
	if strings.HasPrefix(specifier, "/") {
		if resolved, ok := n.resolveLocation(ctx, prefix+path.Clean(specifier)); ok {
			return resolved, nil
		}
		return "", &ResolutionError{Specifier: specifier, From: base, Err: os.ErrNotExist}
	}
	for dir := baseDir; ; dir = path.Dir(dir) {
		if resolved, ok := n.resolveLocation(ctx, prefix+path.Join(dir, "node_modules", specifier)); ok {
			return resolved, nil
		}
		if dir == path.Dir(dir) {
			break
		}
	}
	return "", &ResolutionError{Specifier: specifier, From: base, Err: os.ErrNotExist}
}

func relative(specifier string) bool {
	return specifier == "." || specifier == ".." ||
		strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../")
}

// resolveLocation resolves a joined candidate location to a concrete file:
// first as a file with extension probing, then as a directory.
func (n *Node) resolveLocation(ctx context.Context, location string) (string, bool) {
	if resolved, ok := n.resolveFile(ctx, location); ok {
		return resolved, true
	}
	return n.resolveDir(ctx, location)
}

func (n *Node) resolveFile(ctx context.Context, location string) (string, bool) {
	if n.file(ctx, location) {
		return location, true
	}
	for _, extension := range n.extensions {
		if candidate := location + extension; n.file(ctx, candidate) {
			return candidate, true
		}
	}
	return "", false
}

// resolveDir consults the directory manifest's main entry and falls back
// to index files.
func (n *Node) resolveDir(ctx context.Context, location string) (string, bool) {
	if main := n.manifestMain(ctx, location); main != "" {
		target := url.Join(location, main)
		if resolved, ok := n.resolveFile(ctx, target); ok {
			return resolved, true
		}
		if resolved, ok := n.index(ctx, target); ok {
			return resolved, true
		}
	}
	return n.index(ctx, location)
}

func (n *Node) index(ctx context.Context, location string) (string, bool) {
	for _, extension := range n.extensions {
		if candidate := url.Join(location, "index"+extension); n.file(ctx, candidate) {
			return candidate, true
		}
	}
	return "", false
}

func (n *Node) manifestMain(ctx context.Context, location string) string {
	data, err := n.fs.DownloadWithURL(ctx, url.Join(location, "package.json"))
	if err != nil {
		return ""
	}
	manifest := struct {
		Main string `json:"main"`
	}{}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return ""
	}
	return manifest.Main
}

func (n *Node) file(ctx context.Context, location string) bool {
	object, err := n.fs.Object(ctx, location)
	return err == nil && object != nil && !object.IsDir()
}

// splitLocation separates a storage URL into its scheme://host prefix and
// path, so relative specifiers can be joined with clean dot-segment math.
// Plain file paths have no prefix.
func splitLocation(location string) (string, string) {
	idx := strings.Index(location, "://")
	if idx < 0 {
		return "", location
	}
	rest := location[idx+3:]
	slash := strings.IndexByte(rest, '/')
	if slash < 0 {
		return location, "/"
	}
	return location[:idx+3+slash], rest[slash:]
}
