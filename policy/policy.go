// Package policy models least-privilege access documents: per-package
// grants of builtin paths, global paths, inter-package edges, environment
// mutability, and native-addon use. Documents serialize to a stable JSON
// shape where default values are omitted, and merge deterministically so
// generated policies can be layered with hand-written overrides.
package policy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/viant/afs"
)

// Env declares how a package may treat the process environment.
type Env string

const (
	// EnvFrozen denies environment mutation. This is the default and is
	// omitted from serialized documents.
	EnvFrozen = Env("frozen")
	// EnvUnfrozen grants environment mutation.
	EnvUnfrozen = Env("unfrozen")
)

// PathAccessMap grants dotted access paths. Values are always true; the
// map form keeps documents composable with hand-written grants and diffs.
type PathAccessMap map[string]bool

// PackagePolicy is the capability surface granted to one package.
type PackagePolicy struct {
	Native   bool
	Env      Env
	Builtin  PathAccessMap
	Globals  PathAccessMap
	Packages PathAccessMap
}

// packagePolicy is the serialized shape. Defaults are dropped so that
// generated documents stay minimal.
type packagePolicy struct {
	Native   bool          `json:"native,omitempty"`
	Env      string        `json:"env,omitempty"`
	Builtin  PathAccessMap `json:"builtin,omitempty"`
	Globals  PathAccessMap `json:"globals,omitempty"`
	Packages PathAccessMap `json:"packages,omitempty"`
}

// MarshalJSON omits native when false and env when frozen.
func (p PackagePolicy) MarshalJSON() ([]byte, error) {
	shadow := packagePolicy{
		Native:   p.Native,
		Builtin:  p.Builtin,
		Globals:  p.Globals,
		Packages: p.Packages,
	}
	if p.Env != "" && p.Env != EnvFrozen {
		shadow.Env = string(p.Env)
	}
	return json.Marshal(shadow)
}

// UnmarshalJSON restores omitted fields to their documented defaults.
func (p *PackagePolicy) UnmarshalJSON(data []byte) error {
	var shadow packagePolicy
	if err := json.Unmarshal(data, &shadow); err != nil {
		return err
	}
	env := EnvFrozen
	if shadow.Env != "" {
		env = Env(shadow.Env)
		if env != EnvFrozen && env != EnvUnfrozen {
			return fmt.Errorf("unknown env value %q", shadow.Env)
		}
	}
	*p = PackagePolicy{
		Native:   shadow.Native,
		Env:      env,
		Builtin:  shadow.Builtin,
		Globals:  shadow.Globals,
		Packages: shadow.Packages,
	}
	return nil
}

// IsEmpty reports whether the policy grants nothing beyond the defaults.
func (p *PackagePolicy) IsEmpty() bool {
	if p == nil {
		return true
	}
	return !p.Native && (p.Env == "" || p.Env == EnvFrozen) &&
		len(p.Builtin) == 0 && len(p.Globals) == 0 && len(p.Packages) == 0
}

// Clone deep copies the policy.
func (p *PackagePolicy) Clone() *PackagePolicy {
	if p == nil {
		return nil
	}
	return &PackagePolicy{
		Native:   p.Native,
		Env:      p.Env,
		Builtin:  clonePathAccess(p.Builtin),
		Globals:  clonePathAccess(p.Globals),
		Packages: clonePathAccess(p.Packages),
	}
}

// Merge folds source into p. Map-valued grants join key by key with the
// source winning on conflict; scalar fields take the source value outright,
// so the last merged policy decides native and env.
func (p *PackagePolicy) Merge(source *PackagePolicy) {
	if source == nil {
		return
	}
	p.Native = source.Native
	p.Env = source.Env
	if p.Env == "" {
		p.Env = EnvFrozen
	}
	p.Builtin = mergePathAccess(p.Builtin, source.Builtin)
	p.Globals = mergePathAccess(p.Globals, source.Globals)
	p.Packages = mergePathAccess(p.Packages, source.Packages)
}

func mergePathAccess(target, source PathAccessMap) PathAccessMap {
	if len(source) == 0 {
		return target
	}
	if target == nil {
		target = PathAccessMap{}
	}
	for key, value := range source {
		target[key] = value
	}
	return target
}

func clonePathAccess(source PathAccessMap) PathAccessMap {
	if source == nil {
		return nil
	}
	target := make(PathAccessMap, len(source))
	for key, value := range source {
		target[key] = value
	}
	return target
}

// Document is a root policy file: one PackagePolicy per package name.
type Document struct {
	Resources map[string]*PackagePolicy `json:"resources"`
}

// NewDocument creates an empty document.
func NewDocument() *Document {
	return &Document{Resources: map[string]*PackagePolicy{}}
}

// Merge folds source into d package by package. Where both documents carry
// a package the policies merge; packages only in source are deep copied in.
func (d *Document) Merge(source *Document) {
	if source == nil {
		return
	}
	if d.Resources == nil {
		d.Resources = map[string]*PackagePolicy{}
	}
	for name, policy := range source.Resources {
		if existing, ok := d.Resources[name]; ok && existing != nil {
			existing.Merge(policy)
			continue
		}
		d.Resources[name] = policy.Clone()
	}
}

// MergeDocuments layers documents left to right, later ones overriding.
func MergeDocuments(documents ...*Document) *Document {
	merged := NewDocument()
	for _, document := range documents {
		merged.Merge(document)
	}
	return merged
}

// ReadDocument loads and parses a policy document from URL.
func ReadDocument(ctx context.Context, fs afs.Service, URL string) (*Document, error) {
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy %v: %w", URL, err)
	}
	document := &Document{}
	if err := json.Unmarshal(data, document); err != nil {
		return nil, fmt.Errorf("failed to parse policy %v: %w", URL, err)
	}
	if document.Resources == nil {
		document.Resources = map[string]*PackagePolicy{}
	}
	return document, nil
}

// WriteDocument persists a policy document to URL as indented JSON. The
// document is fully encoded before any byte is written, so a marshal
// failure never leaves partial output behind.
func WriteDocument(ctx context.Context, fs afs.Service, URL string, document *Document) error {
	data, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode policy: %w", err)
	}
	data = append(data, '\n')
	if err := fs.Upload(ctx, URL, 0644, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write policy %v: %w", URL, err)
	}
	return nil
}
