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

package aws

import (
	"context"
	"testing"
	"time"

	"github.com/blinklabs-io/canopy/database/plugin"
	"github.com/blinklabs-io/canopy/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURL(t *testing.T) {
	bucket, prefix, err := parseURL("s3://reports/canopy/daily")
	require.NoError(t, err)
	assert.Equal(t, "reports", bucket)
	assert.Equal(t, "canopy/daily/", prefix)

	_, _, err = parseURL("s3:///nobucket")
	require.Error(t, err)
	_, _, err = parseURL("gcs://reports")
	require.Error(t, err)
}

func TestNewFromCmdlineOptions(t *testing.T) {
	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeBlob, "s3", "url", "s3://reports/canopy"))
	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeBlob, "s3", "timeout", 5))
	defer initCmdlineOptions()
	p := NewFromCmdlineOptions()
	store, ok := p.(*ReportArchive)
	require.True(t, ok)
	assert.Equal(t, "reports", store.bucket)
	assert.Equal(t, 5*time.Second, store.timeout)
	assert.Equal(t, "canopy/report.json", store.fullKey("report.json"))
}

func TestNewFromCmdlineOptionsBadURL(t *testing.T) {
	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeBlob, "s3", "url", "reports"))
	defer initCmdlineOptions()
	p := NewFromCmdlineOptions()
	_, ok := p.(*plugin.ErrorPlugin)
	require.True(t, ok)
	require.Error(t, p.Start())
}

func TestUnstartedStoreIsUnavailable(t *testing.T) {
	store, err := NewWithOptions(WithBucket("reports"))
	require.NoError(t, err)
	require.ErrorIs(
		t,
		store.Put(context.Background(), "k", []byte("v")),
		types.ErrBlobStoreUnavailable,
	)
	require.ErrorIs(
		t,
		store.Put(context.Background(), "", nil),
		types.ErrInvalidBlobKey,
	)
}
