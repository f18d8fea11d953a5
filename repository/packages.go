package repository

import (
	"context"
	"strings"
	"sync"

	"github.com/viant/afs"
)

// Packages attributes module locations to their owning package: the
// nearest ancestor directory with a named manifest decides, which makes a
// dependency under node_modules attribute to itself and workspace sources
// attribute to the workspace. Lookups cache per directory since a package
// usually contributes many modules.
type Packages struct {
	fs       afs.Service
	root     string
	rootName string
	mu       sync.Mutex
	cache    map[string]string
}

// Packages creates an attributor bound to the workspace.
func (d *Detector) Packages(workspace *Workspace) *Packages {
	return &Packages{
		fs:       d.fs,
		root:     workspace.Root,
		rootName: workspace.Name,
		cache:    map[string]string{},
	}
}

// PackageForModule names the package owning the module at location.
func (p *Packages) PackageForModule(ctx context.Context, location string) (string, error) {
	return p.packageForDir(ctx, parent(location)), nil
}

func (p *Packages) packageForDir(ctx context.Context, dir string) string {
	p.mu.Lock()
	name, ok := p.cache[dir]
	p.mu.Unlock()
	if ok {
		return name
	}
	switch {
	case !p.within(dir):
		// modules outside the workspace attribute to the root package
		name = p.rootName
	default:
		if manifest, ok := readManifest(ctx, p.fs, dir); ok && manifest.Name != "" {
			name = manifest.Name
			break
		}
		if dir == p.root {
			name = p.rootName
			break
		}
		next := parent(dir)
		if next == dir {
			name = p.rootName
			break
		}
		name = p.packageForDir(ctx, next)
	}
	p.mu.Lock()
	p.cache[dir] = name
	p.mu.Unlock()
	return name
}

func (p *Packages) within(dir string) bool {
	return dir == p.root || strings.HasPrefix(dir, p.root+"/")
}
