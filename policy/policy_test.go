package policy

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/afs"
)

func TestPackagePolicy_Merge(t *testing.T) {
	target := &PackagePolicy{
		Env:     EnvFrozen,
		Builtin: PathAccessMap{"fs.readFile": true},
	}
	source := &PackagePolicy{
		Native:  true,
		Env:     EnvUnfrozen,
		Builtin: PathAccessMap{"zlib.gzipSync": true},
		Globals: PathAccessMap{"console.log": true},
	}

	target.Merge(source)
	once := target.Clone()
	target.Merge(source)
	assert.EqualValues(t, once, target, "merging the same source twice changes nothing")
	assert.EqualValues(t, PathAccessMap{"fs.readFile": true, "zlib.gzipSync": true}, target.Builtin)
	assert.True(t, target.Native)
	assert.Equal(t, EnvUnfrozen, target.Env)

	target.Merge(&PackagePolicy{Env: EnvFrozen})
	assert.Equal(t, EnvFrozen, target.Env, "scalars take the last merged value")
	assert.False(t, target.Native)
	assert.EqualValues(t, PathAccessMap{"fs.readFile": true, "zlib.gzipSync": true}, target.Builtin,
		"map grants persist across scalar overrides")
}

func TestPackagePolicy_RoundTrip(t *testing.T) {
	testCases := []struct {
		description string
		policy      PackagePolicy
	}{
		{
			description: "explicit grants survive",
			policy: PackagePolicy{
				Native:  true,
				Env:     EnvUnfrozen,
				Builtin: PathAccessMap{"fs": true},
				Globals: PathAccessMap{"process.env": true},
			},
		},
		{
			description: "omitted defaults restore",
			policy: PackagePolicy{
				Env:     EnvFrozen,
				Globals: PathAccessMap{"console.log": true},
			},
		},
		{
			description: "package grants survive",
			policy: PackagePolicy{
				Env:      EnvFrozen,
				Packages: PathAccessMap{"lodash": true},
			},
		},
	}
	for _, testCase := range testCases {
		data, err := json.Marshal(testCase.policy)
		if !assert.NoError(t, err, testCase.description) {
			continue
		}
		var restored PackagePolicy
		if !assert.NoError(t, json.Unmarshal(data, &restored), testCase.description) {
			continue
		}
		assert.EqualValues(t, testCase.policy, restored, testCase.description)
	}
}

func TestPackagePolicy_JSON(t *testing.T) {
	data, err := json.Marshal(PackagePolicy{Env: EnvFrozen, Builtin: PathAccessMap{"zlib": true}})
	if assert.NoError(t, err) {
		assert.JSONEq(t, `{"builtin": {"zlib": true}}`, string(data), "defaults are omitted")
	}

	data, err = json.Marshal(PackagePolicy{Env: EnvUnfrozen})
	if assert.NoError(t, err) {
		assert.JSONEq(t, `{"env": "unfrozen"}`, string(data))
	}

	data, err = json.Marshal(PackagePolicy{})
	if assert.NoError(t, err) {
		assert.JSONEq(t, `{}`, string(data))
	}

	var policy PackagePolicy
	assert.Error(t, json.Unmarshal([]byte(`{"env": "warm"}`), &policy), "unknown env values are rejected")
}

func TestDocument_Merge(t *testing.T) {
	base := &Document{Resources: map[string]*PackagePolicy{
		"a": {Env: EnvFrozen, Builtin: PathAccessMap{"fs": true}},
		"b": {Env: EnvFrozen, Globals: PathAccessMap{"console.log": true}},
	}}
	override := &Document{Resources: map[string]*PackagePolicy{
		"b": {Env: EnvUnfrozen, Globals: PathAccessMap{"setTimeout": true}},
		"c": {Native: true, Env: EnvFrozen},
	}}

	merged := MergeDocuments(base, override)
	assert.EqualValues(t, PathAccessMap{"fs": true}, merged.Resources["a"].Builtin)
	assert.EqualValues(t, PathAccessMap{"console.log": true, "setTimeout": true}, merged.Resources["b"].Globals)
	assert.Equal(t, EnvUnfrozen, merged.Resources["b"].Env)
	assert.True(t, merged.Resources["c"].Native)
	assert.NotSame(t, override.Resources["c"], merged.Resources["c"], "merged documents own their policies")
}

func TestDocument_ReadWrite(t *testing.T) {
	ctx := context.Background()
	fs := afs.New()
	URL := "mem://localhost/policy_io/modfence/policy.json"

	document := NewDocument()
	document.Resources["app"] = &PackagePolicy{
		Env:     EnvUnfrozen,
		Builtin: PathAccessMap{"fs.readFile": true},
	}
	if !assert.NoError(t, WriteDocument(ctx, fs, URL, document)) {
		return
	}
	restored, err := ReadDocument(ctx, fs, URL)
	if !assert.NoError(t, err) {
		return
	}
	assert.EqualValues(t, document, restored)

	badURL := "mem://localhost/policy_io/broken.json"
	if assert.NoError(t, fs.Upload(ctx, badURL, 0644, strings.NewReader("not json"))) {
		_, err = ReadDocument(ctx, fs, badURL)
		assert.Error(t, err)
	}
	_, err = ReadDocument(ctx, fs, "mem://localhost/policy_io/missing.json")
	assert.Error(t, err)
}
