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

package metadata

import (
	"fmt"

	"github.com/blinklabs-io/canopy/database/plugin"
	"gorm.io/gorm"

	// Register the metadata plugins
	_ "github.com/blinklabs-io/canopy/database/plugin/metadata/mysql"
	_ "github.com/blinklabs-io/canopy/database/plugin/metadata/postgres"
	_ "github.com/blinklabs-io/canopy/database/plugin/metadata/sqlite"
)

// MetadataStore is the relational record store. Every backend is a gorm
// dialect, so queries live in the database package and run against DB().
type MetadataStore interface {
	plugin.Plugin
	Close() error
	DB() *gorm.DB
}

// New returns the started metadata plugin selected by name
func New(pluginName string) (MetadataStore, error) {
	p, err := plugin.StartPlugin(plugin.PluginTypeMetadata, pluginName)
	if err != nil {
		return nil, err
	}
	store, ok := p.(MetadataStore)
	if !ok {
		return nil, fmt.Errorf(
			"plugin '%s' does not implement MetadataStore interface",
			pluginName,
		)
	}
	return store, nil
}
