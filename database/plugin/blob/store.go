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

package blob

import (
	"context"
	"fmt"

	"github.com/blinklabs-io/canopy/database/plugin"

	// Register the blob plugins
	_ "github.com/blinklabs-io/canopy/database/plugin/blob/aws"
	_ "github.com/blinklabs-io/canopy/database/plugin/blob/badger"
	_ "github.com/blinklabs-io/canopy/database/plugin/blob/gcs"
)

// BlobStore is an object archive keyed by slash-separated names. It holds
// reconciliation reports.
type BlobStore interface {
	plugin.Plugin
	Close() error
	Put(ctx context.Context, key string, data []byte) error
	// Get returns types.ErrBlobKeyNotFound for a missing key
	Get(ctx context.Context, key string) ([]byte, error)
	// List returns the keys under prefix in ascending order
	List(ctx context.Context, prefix string) ([]string, error)
}

// New returns the started blob plugin selected by name
func New(pluginName string) (BlobStore, error) {
	p, err := plugin.StartPlugin(plugin.PluginTypeBlob, pluginName)
	if err != nil {
		return nil, err
	}
	blobStore, ok := p.(BlobStore)
	if !ok {
		return nil, fmt.Errorf(
			"plugin '%s' does not implement BlobStore interface",
			pluginName,
		)
	}
	return blobStore, nil
}
