// Package repository locates the workspace a module belongs to and
// attributes module locations to their owning packages via the nearest
// package manifest.
package repository

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/url"
	"golang.org/x/mod/modfile"
	"golang.org/x/mod/semver"
)

// Workspace is the root folder an analysis runs against.
type Workspace struct {
	Root   string
	Name   string
	Origin string
}

// Detector identifies workspace roots and related metadata.
type Detector struct {
	fs      afs.Service
	markers []string
}

// Option customizes a Detector.
type Option func(*Detector)

// WithFS overrides the storage service.
func WithFS(fs afs.Service) Option {
	return func(d *Detector) {
		d.fs = fs
	}
}

// WithMarkers replaces the workspace marker files.
func WithMarkers(markers ...string) Option {
	return func(d *Detector) {
		d.markers = markers
	}
}

// New creates a workspace detector.
func New(options ...Option) *Detector {
	d := &Detector{
		fs: afs.New(),
		markers: []string{
			"package.json", // JavaScript/Node projects
			"go.mod",       // Go projects, for polyglot monorepos
		},
	}
	for _, option := range options {
		option(d)
	}
	return d
}

// DetectWorkspace finds the workspace containing location. A .git folder is
// a definitive root; otherwise the highest directory carrying a manifest
// marker wins, so monorepo analyses start at the repository top rather
// than the nearest nested package. Without any marker the starting
// directory itself is the workspace.
func (d *Detector) DetectWorkspace(ctx context.Context, location string) (*Workspace, error) {
	start, err := d.startDir(ctx, location)
	if err != nil {
		return nil, err
	}
	manifestRoot := ""
	dir := start
	for {
		if ok, _ := d.fs.Exists(ctx, url.Join(dir, ".git")); ok {
			return d.workspaceAt(ctx, dir), nil
		}
		if d.hasMarker(ctx, dir) {
			manifestRoot = dir
		}
		next := parent(dir)
		if next == dir {
			// reached the storage root with no match
			break
		}
		dir = next
	}
	if manifestRoot != "" {
		return d.workspaceAt(ctx, manifestRoot), nil
	}
	return d.workspaceAt(ctx, start), nil
}

func (d *Detector) startDir(ctx context.Context, location string) (string, error) {
	object, err := d.fs.Object(ctx, location)
	if err != nil {
		return "", fmt.Errorf("failed to locate %v: %w", location, err)
	}
	if object.IsDir() {
		return location, nil
	}
	return parent(location), nil
}

func (d *Detector) hasMarker(ctx context.Context, dir string) bool {
	for _, marker := range d.markers {
		if marker == "package.json" {
			if _, ok := readManifest(ctx, d.fs, dir); ok {
				return true
			}
			continue
		}
		if ok, _ := d.fs.Exists(ctx, url.Join(dir, marker)); ok {
			return true
		}
	}
	return false
}

// workspaceAt assembles workspace metadata for a chosen root: the package
// manifest names it, then a go module, then the folder itself.
func (d *Detector) workspaceAt(ctx context.Context, root string) *Workspace {
	workspace := &Workspace{Root: root, Origin: d.gitOrigin(ctx, root)}
	if manifest, ok := readManifest(ctx, d.fs, root); ok && manifest.Name != "" {
		workspace.Name = manifest.Name
		return workspace
	}
	if name := d.goModuleName(ctx, root); name != "" {
		workspace.Name = name
		return workspace
	}
	workspace.Name = base(root)
	return workspace
}

func (d *Detector) goModuleName(ctx context.Context, root string) string {
	goMod := url.Join(root, "go.mod")
	content, err := d.fs.DownloadWithURL(ctx, goMod)
	if err != nil || len(content) == 0 {
		return ""
	}
	if mod, _ := modfile.Parse(goMod, content, nil); mod != nil && mod.Module != nil {
		return mod.Module.Mod.Path
	}
	return ""
}

// gitOrigin extracts the origin URL from the workspace's git config.
func (d *Detector) gitOrigin(ctx context.Context, root string) string {
	data, err := d.fs.DownloadWithURL(ctx, url.Join(root, ".git", "config"))
	if err != nil {
		return ""
	}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	foundRemote := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.Contains(line, "[remote \"origin\"]") {
			foundRemote = true
			continue
		}
		if foundRemote && strings.HasPrefix(line, "url = ") {
			return strings.TrimPrefix(line, "url = ")
		}
	}
	return ""
}

// manifest is the subset of package.json the detector cares about.
type manifest struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Main    string `json:"main"`
}

// readManifest parses dir/package.json. A manifest only counts when it
// carries a name or a valid semver version, so stray marker files cannot
// hijack detection.
func readManifest(ctx context.Context, fs afs.Service, dir string) (*manifest, bool) {
	data, err := fs.DownloadWithURL(ctx, url.Join(dir, "package.json"))
	if err != nil {
		return nil, false
	}
	m := &manifest{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, false
	}
	if m.Name == "" && !semver.IsValid("v"+m.Version) {
		return nil, false
	}
	return m, true
}

// parent returns the location one directory up, staying within the same
// storage scheme.
func parent(location string) string {
	prefix, filePath := splitLocation(location)
	return prefix + path.Dir(filePath)
}

func base(location string) string {
	_, filePath := splitLocation(location)
	return path.Base(filePath)
}

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
