// Copyright 2026 Blink Labs Software
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

package gcs

import (
	"context"
	"testing"

	"github.com/blinklabs-io/canopy/database/plugin"
	"github.com/blinklabs-io/canopy/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURL(t *testing.T) {
	testDefs := []struct {
		dataDir    string
		bucket     string
		prefix     string
		expectFail bool
	}{
		{dataDir: "gcs://reports", bucket: "reports"},
		{dataDir: "gcs://reports/canopy/", bucket: "reports", prefix: "canopy/"},
		{dataDir: "gcs://", expectFail: true},
		{dataDir: "s3://reports", expectFail: true},
	}
	for _, testDef := range testDefs {
		bucket, prefix, err := parseURL(testDef.dataDir)
		if testDef.expectFail {
			assert.Error(t, err, testDef.dataDir)
			continue
		}
		require.NoError(t, err, testDef.dataDir)
		assert.Equal(t, testDef.bucket, bucket)
		assert.Equal(t, testDef.prefix, prefix)
	}
}

func TestStartRequiresBucket(t *testing.T) {
	d, err := NewWithOptions()
	require.NoError(t, err)
	require.Error(t, d.Start())
}

func TestUnstartedStoreIsUnavailable(t *testing.T) {
	d, err := NewWithOptions(WithBucket("reports"), WithPrefix("/canopy/"))
	require.NoError(t, err)
	assert.Equal(t, "canopy/x", d.fullKey("x"))
	_, err = d.Get(context.Background(), "x")
	require.ErrorIs(t, err, types.ErrBlobStoreUnavailable)
	require.NoError(t, d.Close())
}

func TestNewFromCmdlineOptions(t *testing.T) {
	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeBlob, "gcs", "url", "gcs://reports/canopy"))
	defer func() {
		_ = plugin.SetPluginOption(plugin.PluginTypeBlob, "gcs", "url", "")
	}()
	d, ok := NewFromCmdlineOptions().(*ReportArchive)
	require.True(t, ok)
	assert.Equal(t, "reports", d.bucketName)
	assert.Equal(t, "canopy/r1.json", d.fullKey("r1.json"))

	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeBlob, "gcs", "url", "reports"))
	p := NewFromCmdlineOptions()
	_, ok = p.(*plugin.ErrorPlugin)
	require.True(t, ok)
	require.Error(t, p.Start())
}
