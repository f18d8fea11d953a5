package inspector

import "github.com/modfence/modfence/scope"

// Config toggles the symbol groups seeded into the program scope before
// global inference. A seeded symbol never surfaces as a user-level global.
type Config struct {
	Intrinsics    bool     `yaml:"intrinsics" json:"intrinsics"`
	Deprecated    bool     `yaml:"deprecated" json:"deprecated"`
	CommonJS      bool     `yaml:"commonjs" json:"commonjs"`
	DynamicImport bool     `yaml:"dynamicImport" json:"dynamicImport"`
	GlobalAliases []string `yaml:"aliases" json:"aliases"`
}

// DefaultConfig enables every seed group and the standard global-object
// aliases.
func DefaultConfig() *Config {
	return &Config{
		Intrinsics:    true,
		Deprecated:    true,
		CommonJS:      true,
		DynamicImport: true,
		GlobalAliases: append([]string(nil), scope.DefaultGlobalAliases...),
	}
}

// seedSymbols materializes the enabled groups into one set.
func (c *Config) seedSymbols() *scope.SymbolSet {
	seeds := scope.NewSymbolSet()
	groups := [][]scope.Symbol{}
	if c.Intrinsics {
		groups = append(groups, intrinsicGlobals)
	}
	if c.Deprecated {
		groups = append(groups, deprecatedGlobals)
	}
	if c.CommonJS {
		groups = append(groups, commonJSBindings)
	}
	if c.DynamicImport {
		groups = append(groups, importBindings)
	}
	for _, group := range groups {
		for _, symbol := range group {
			seeds.Add(symbol)
		}
	}
	return seeds
}

// intrinsicGlobals are the language-level globals every realm provides.
// Host globals (console, process, setTimeout) stay out so they are reported
// and end up in the policy.
var intrinsicGlobals = []scope.Symbol{
	"AggregateError", "Array", "ArrayBuffer", "Atomics", "BigInt",
	"BigInt64Array", "BigUint64Array", "Boolean", "DataView", "Date",
	"Error", "EvalError", "FinalizationRegistry", "Float32Array",
	"Float64Array", "Function", "Infinity", "Int16Array", "Int32Array",
	"Int8Array", "Intl", "JSON", "Map", "Math", "NaN", "Number", "Object",
	"Promise", "Proxy", "RangeError", "ReferenceError", "Reflect", "RegExp",
	"Set", "SharedArrayBuffer", "String", "Symbol", "SyntaxError",
	"TypeError", "URIError", "Uint16Array", "Uint32Array", "Uint8Array",
	"Uint8ClampedArray", "WeakMap", "WeakRef", "WeakSet", "arguments",
	"decodeURI", "decodeURIComponent", "encodeURI", "encodeURIComponent",
	"eval", "isFinite", "isNaN", "parseFloat", "parseInt", "undefined",
}

// deprecatedGlobals are legacy global functions still present in engines.
var deprecatedGlobals = []scope.Symbol{"escape", "unescape"}

// commonJSBindings are supplied per module by the CommonJS wrapper.
var commonJSBindings = []scope.Symbol{
	"module", "exports", "require", "__dirname", "__filename",
}

// importBindings covers the dynamic-import keyword position.
var importBindings = []scope.Symbol{"import"}
