package config

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/afs"

	"github.com/modfence/modfence/resolver"
	"github.com/modfence/modfence/scope"
)

func TestLoad(t *testing.T) {
	ctx := context.Background()
	fs := afs.New()

	testCases := []struct {
		description string
		root        string
		content     string
		expectErr   bool
		verify      func(t *testing.T, config *Config)
	}{
		{
			description: "missing file selects defaults",
			root:        "mem://localhost/config_absent/work",
			verify: func(t *testing.T, config *Config) {
				assert.True(t, config.Globals.Intrinsics)
				assert.True(t, config.Globals.Deprecated)
				assert.True(t, config.Globals.CommonJS)
				assert.True(t, config.Globals.DynamicImport)
				assert.EqualValues(t, scope.DefaultGlobalAliases, config.Globals.GlobalAliases)
				assert.EqualValues(t, resolver.DefaultExtensions, config.Resolver.Extensions)
				assert.False(t, config.Policy.IncludeRoot)
				assert.Empty(t, config.Policy.Overrides)
			},
		},
		{
			description: "partial file keeps unmentioned defaults",
			root:        "mem://localhost/config_partial/work",
			content: `
globals:
  intrinsics: false
policy:
  overrides:
    - policy.custom.json
`,
			verify: func(t *testing.T, config *Config) {
				assert.False(t, config.Globals.Intrinsics, "explicit values apply")
				assert.True(t, config.Globals.CommonJS, "absent toggles keep their default")
				assert.EqualValues(t, scope.DefaultGlobalAliases, config.Globals.GlobalAliases)
				assert.EqualValues(t, resolver.DefaultExtensions, config.Resolver.Extensions)
				assert.EqualValues(t, []string{"policy.custom.json"}, config.Policy.Overrides)
			},
		},
		{
			description: "full file overrides every section",
			root:        "mem://localhost/config_full/work",
			content: `
globals:
  intrinsics: true
  deprecated: false
  commonjs: false
  dynamicImport: false
  aliases:
    - globalThis
resolver:
  extensions:
    - .js
    - .jsx
policy:
  includeRoot: true
  overrides:
    - overrides/base.json
    - mem://localhost/shared/policy.json
`,
			verify: func(t *testing.T, config *Config) {
				assert.False(t, config.Globals.Deprecated)
				assert.False(t, config.Globals.CommonJS)
				assert.False(t, config.Globals.DynamicImport)
				assert.EqualValues(t, []string{"globalThis"}, config.Globals.GlobalAliases)
				assert.EqualValues(t, []string{".js", ".jsx"}, config.Resolver.Extensions)
				assert.True(t, config.Policy.IncludeRoot)
				assert.Len(t, config.Policy.Overrides, 2)
			},
		},
		{
			description: "malformed file fails",
			root:        "mem://localhost/config_bad/work",
			content:     "globals: [not a mapping",
			expectErr:   true,
		},
	}

	for _, testCase := range testCases {
		if testCase.content != "" {
			err := fs.Upload(ctx, testCase.root+"/"+Filename, 0644, strings.NewReader(testCase.content))
			if !assert.NoError(t, err, testCase.description) {
				continue
			}
		}
		config, err := Load(ctx, fs, testCase.root)
		if testCase.expectErr {
			assert.Error(t, err, testCase.description)
			continue
		}
		if !assert.NoError(t, err, testCase.description) {
			continue
		}
		testCase.verify(t, config)
	}
}

func TestConfig_OverrideLocations(t *testing.T) {
	config := Default()
	config.Policy.Overrides = []string{
		"policy.custom.json",
		"overrides/team.json",
		"/etc/modfence/policy.json",
		"mem://localhost/shared/policy.json",
	}
	assert.EqualValues(t, []string{
		"mem://localhost/work/policy.custom.json",
		"mem://localhost/work/overrides/team.json",
		"/etc/modfence/policy.json",
		"mem://localhost/shared/policy.json",
	}, config.OverrideLocations("mem://localhost/work"))

	assert.Empty(t, Default().OverrideLocations("mem://localhost/work"))
}
