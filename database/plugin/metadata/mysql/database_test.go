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

package mysql

import (
	"testing"
	"time"

	"github.com/blinklabs-io/canopy/database/plugin"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSNFromOptions(t *testing.T) {
	d, err := NewWithOptions(
		WithHost("db"),
		WithPort(3307),
		WithUser("canopy"),
		WithPassword("pw"),
	)
	require.NoError(t, err)
	dsn, name := d.buildDSN()
	assert.Equal(t, "canopy", name)
	assert.Contains(t, dsn, "canopy:pw@tcp(db:3307)/canopy")
	assert.Contains(t, dsn, "parseTime=true")
}

func TestBuildDSNOverride(t *testing.T) {
	d, err := NewWithOptions(WithDSN("u:p@tcp(h:3306)/records?parseTime=true"))
	require.NoError(t, err)
	dsn, name := d.buildDSN()
	assert.Equal(t, "u:p@tcp(h:3306)/records?parseTime=true", dsn)
	assert.Equal(t, "records", name)
}

func TestStripDatabaseFromDSN(t *testing.T) {
	testDefs := []struct {
		dsn      string
		expected string
		ok       bool
	}{
		{"u:p@tcp(h:3306)/records?parseTime=true", "u:p@tcp(h:3306)/?parseTime=true", true},
		{"u:p@tcp(h:3306)/records", "u:p@tcp(h:3306)/", true},
		{"no-slash", "", false},
	}
	for _, testDef := range testDefs {
		got, ok := stripDatabaseFromDSN(testDef.dsn)
		assert.Equal(t, testDef.ok, ok, testDef.dsn)
		assert.Equal(t, testDef.expected, got, testDef.dsn)
	}
}

func TestParseDatabaseFromDSN(t *testing.T) {
	name, ok := parseDatabaseFromDSN("u@tcp(h)/db1?x=y")
	assert.True(t, ok)
	assert.Equal(t, "db1", name)
	_, ok = parseDatabaseFromDSN("u@tcp(h)/")
	assert.False(t, ok)
}

func TestPoolDefaults(t *testing.T) {
	d, err := NewWithOptions(WithPool(4, 20, 0))
	require.NoError(t, err)
	assert.Equal(t, 4, d.pool.maxOpen)
	// capped at the open limit
	assert.Equal(t, 4, d.pool.maxIdle)
	assert.Equal(t, time.Hour, d.pool.maxLifetime)
}

func TestNewFromCmdlineOptions(t *testing.T) {
	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeMetadata, "mysql", "host", "records.internal"))
	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeMetadata, "mysql", "max-open-conns", 8))
	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeMetadata, "mysql", "conn-max-lifetime", 15))
	defer initCmdlineOptions()
	d, ok := NewFromCmdlineOptions().(*RecordStore)
	require.True(t, ok)
	assert.Equal(t, "records.internal", d.host)
	assert.Equal(t, uint(3306), d.port)
	assert.Equal(t, "canopy", d.database)
	assert.Equal(t, 8, d.pool.maxOpen)
	assert.Equal(t, 8, d.pool.maxIdle)
	assert.Equal(t, 15*time.Minute, d.pool.maxLifetime)
}
