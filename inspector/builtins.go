package inspector

import "strings"

// builtinModules lists the Node.js core modules by their top-level names.
// Subpath specifiers such as fs/promises resolve to their base entry.
var builtinModules = map[string]bool{
	"assert":              true,
	"async_hooks":         true,
	"buffer":              true,
	"child_process":       true,
	"cluster":             true,
	"console":             true,
	"constants":           true,
	"crypto":              true,
	"dgram":               true,
	"diagnostics_channel": true,
	"dns":                 true,
	"domain":              true,
	"events":              true,
	"fs":                  true,
	"http":                true,
	"http2":               true,
	"https":               true,
	"inspector":           true,
	"module":              true,
	"net":                 true,
	"os":                  true,
	"path":                true,
	"perf_hooks":          true,
	"process":             true,
	"punycode":            true,
	"querystring":         true,
	"readline":            true,
	"repl":                true,
	"stream":              true,
	"string_decoder":      true,
	"sys":                 true,
	"timers":              true,
	"tls":                 true,
	"trace_events":        true,
	"tty":                 true,
	"url":                 true,
	"util":                true,
	"v8":                  true,
	"vm":                  true,
	"wasi":                true,
	"worker_threads":      true,
	"zlib":                true,
}

// IsBuiltin reports whether specifier names a Node.js core module, with or
// without the node: scheme prefix and regardless of subpath.
func IsBuiltin(specifier string) bool {
	return builtinModules[BuiltinName(specifier)]
}

// BuiltinName canonicalizes a builtin specifier: the node: prefix is dropped
// and subpaths reduce to the base module name.
func BuiltinName(specifier string) string {
	name := BuiltinRoot(specifier)
	if idx := strings.IndexByte(name, '/'); idx >= 0 {
		name = name[:idx]
	}
	return name
}

// BuiltinRoot is the policy key for a builtin specifier: the node: scheme
// is dropped but subpaths are kept, so fs/promises stays distinct from fs.
func BuiltinRoot(specifier string) string {
	return strings.TrimPrefix(specifier, "node:")
}
