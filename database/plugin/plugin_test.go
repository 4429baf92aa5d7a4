// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package plugin_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/canopy/database/plugin"
)

type optionsPlugin struct {
	started bool
}

func (o *optionsPlugin) Start() error { o.started = true; return nil }
func (o *optionsPlugin) Stop() error  { return nil }

func registerOptionsPlugin(t *testing.T) (string, *struct {
	dataDir   string
	cacheSize uint64
	gc        bool
	workers   int
},
) {
	t.Helper()
	opts := &struct {
		dataDir   string
		cacheSize uint64
		gc        bool
		workers   int
	}{}
	name := "opts-" + t.Name()
	plugin.Register(plugin.PluginEntry{
		Type:               plugin.PluginTypeMetadata,
		Name:               name,
		NewFromOptionsFunc: func() plugin.Plugin { return &optionsPlugin{} },
		Options: []plugin.PluginOption{
			{
				Name:         "data-dir",
				Type:         plugin.PluginOptionTypeString,
				DefaultValue: ".canopy",
				Dest:         &opts.dataDir,
			},
			{
				Name:         "cache-size",
				Type:         plugin.PluginOptionTypeUint,
				DefaultValue: uint64(1024),
				Dest:         &opts.cacheSize,
			},
			{
				Name:         "gc",
				Type:         plugin.PluginOptionTypeBool,
				DefaultValue: false,
				Dest:         &opts.gc,
			},
			{
				Name:         "workers",
				Type:         plugin.PluginOptionTypeInt,
				DefaultValue: 2,
				Dest:         &opts.workers,
			},
		},
	})
	return name, opts
}

func TestSetPluginOption(t *testing.T) {
	name, opts := registerOptionsPlugin(t)

	require.NoError(
		t,
		plugin.SetPluginOption(plugin.PluginTypeMetadata, name, "data-dir", ""),
	)
	assert.Empty(t, opts.dataDir)

	// Wrong value type
	require.Error(
		t,
		plugin.SetPluginOption(plugin.PluginTypeMetadata, name, "data-dir", 123),
	)

	// Unknown options are ignored
	require.NoError(
		t,
		plugin.SetPluginOption(plugin.PluginTypeMetadata, name, "nope", "x"),
	)

	require.NoError(
		t,
		plugin.SetPluginOption(plugin.PluginTypeMetadata, name, "cache-size", 42),
	)
	assert.Equal(t, uint64(42), opts.cacheSize)
	require.Error(
		t,
		plugin.SetPluginOption(plugin.PluginTypeMetadata, name, "cache-size", -1),
	)

	require.NoError(
		t,
		plugin.SetPluginOption(plugin.PluginTypeMetadata, name, "gc", true),
	)
	assert.True(t, opts.gc)

	require.NoError(
		t,
		plugin.SetPluginOption(plugin.PluginTypeMetadata, name, "workers", 8),
	)
	assert.Equal(t, 8, opts.workers)

	// Unknown plugin
	require.Error(
		t,
		plugin.SetPluginOption(plugin.PluginTypeMetadata, "nonexistent", "data-dir", "x"),
	)
}

func TestPopulateCmdlineOptions(t *testing.T) {
	name, opts := registerOptionsPlugin(t)
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, plugin.PopulateCmdlineOptions(fs))
	require.NoError(t, fs.Parse([]string{
		"--metadata-" + name + "-data-dir=/tmp/canopy",
		"--metadata-" + name + "-gc",
	}))
	assert.Equal(t, "/tmp/canopy", opts.dataDir)
	assert.True(t, opts.gc)
	assert.Equal(t, uint64(1024), opts.cacheSize)
}

func TestStartPlugin(t *testing.T) {
	name, _ := registerOptionsPlugin(t)
	p, err := plugin.StartPlugin(plugin.PluginTypeMetadata, name)
	require.NoError(t, err)
	op, ok := p.(*optionsPlugin)
	require.True(t, ok)
	assert.True(t, op.started)

	_, err = plugin.StartPlugin(plugin.PluginTypeMetadata, "missing-"+t.Name())
	require.Error(t, err)
}

func TestStartErrorPlugin(t *testing.T) {
	startErr := errors.New("bad options")
	name := "error-" + t.Name()
	plugin.Register(plugin.PluginEntry{
		Type: plugin.PluginTypeBlob,
		Name: name,
		NewFromOptionsFunc: func() plugin.Plugin {
			return plugin.NewErrorPlugin(startErr)
		},
	})
	_, err := plugin.StartPlugin(plugin.PluginTypeBlob, name)
	require.ErrorIs(t, err, startErr)
}

func TestProcessConfig(t *testing.T) {
	name, opts := registerOptionsPlugin(t)
	err := plugin.ProcessConfig(map[string]map[string]map[string]any{
		"metadata": {
			name: {
				"data-dir":   "/var/lib/canopy",
				"cache-size": 2048,
				"gc":         "true",
				"workers":    4,
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/canopy", opts.dataDir)
	assert.Equal(t, uint64(2048), opts.cacheSize)
	assert.True(t, opts.gc)
	assert.Equal(t, 4, opts.workers)

	err = plugin.ProcessConfig(map[string]map[string]map[string]any{
		"queue": {name: {"gc": true}},
	})
	require.Error(t, err)
}

func TestProcessEnvVars(t *testing.T) {
	name, opts := registerOptionsPlugin(t)
	prefix := "CANOPY_METADATA_" + strings.ToUpper(
		strings.ReplaceAll(name, "-", "_"),
	)
	t.Setenv(prefix+"_DATA_DIR", "/srv/canopy")
	t.Setenv(prefix+"_CACHE_SIZE", "512")
	require.NoError(t, plugin.ProcessEnvVars())
	assert.Equal(t, "/srv/canopy", opts.dataDir)
	assert.Equal(t, uint64(512), opts.cacheSize)

	t.Setenv(prefix+"_WORKERS", "many")
	require.Error(t, plugin.ProcessEnvVars())
}
