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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/canopy/database/plugin"
)

type mockPlugin struct{}

func (m *mockPlugin) Start() error { return nil }
func (m *mockPlugin) Stop() error  { return nil }

func hasPlugin(entries []plugin.PluginEntry, name string) bool {
	for _, e := range entries {
		if e.Name == name {
			return true
		}
	}
	return false
}

func TestRegisterByType(t *testing.T) {
	blobName := "blob-" + t.Name()
	metaName := "meta-" + t.Name()
	plugin.Register(plugin.PluginEntry{
		Type:               plugin.PluginTypeBlob,
		Name:               blobName,
		NewFromOptionsFunc: func() plugin.Plugin { return &mockPlugin{} },
	})
	plugin.Register(plugin.PluginEntry{
		Type:               plugin.PluginTypeMetadata,
		Name:               metaName,
		NewFromOptionsFunc: func() plugin.Plugin { return &mockPlugin{} },
	})

	blobs := plugin.GetPlugins(plugin.PluginTypeBlob)
	assert.True(t, hasPlugin(blobs, blobName))
	assert.False(t, hasPlugin(blobs, metaName))

	metas := plugin.GetPlugins(plugin.PluginTypeMetadata)
	assert.True(t, hasPlugin(metas, metaName))
	assert.False(t, hasPlugin(metas, blobName))
}

func TestRegisterReplaces(t *testing.T) {
	name := "replace-" + t.Name()
	plugin.Register(plugin.PluginEntry{
		Type:               plugin.PluginTypeBlob,
		Name:               name,
		Description:        "first",
		NewFromOptionsFunc: func() plugin.Plugin { return &mockPlugin{} },
	})
	plugin.Register(plugin.PluginEntry{
		Type:               plugin.PluginTypeBlob,
		Name:               name,
		Description:        "second",
		NewFromOptionsFunc: func() plugin.Plugin { return &mockPlugin{} },
	})
	count := 0
	for _, e := range plugin.GetPlugins(plugin.PluginTypeBlob) {
		if e.Name == name {
			count++
			assert.Equal(t, "second", e.Description)
		}
	}
	assert.Equal(t, 1, count)
}

func TestGetPlugin(t *testing.T) {
	name := "get-" + t.Name()
	plugin.Register(plugin.PluginEntry{
		Type:               plugin.PluginTypeBlob,
		Name:               name,
		NewFromOptionsFunc: func() plugin.Plugin { return &mockPlugin{} },
	})
	p := plugin.GetPlugin(plugin.PluginTypeBlob, name)
	require.NotNil(t, p)
	assert.IsType(t, &mockPlugin{}, p)

	assert.Nil(t, plugin.GetPlugin(plugin.PluginTypeBlob, "missing-"+t.Name()))
	assert.Nil(t, plugin.GetPlugin(plugin.PluginTypeMetadata, name))
}
