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

package gcs

import (
	"sync"

	"github.com/blinklabs-io/canopy/database/plugin"
)

var (
	cmdlineOptions struct {
		url             string
		credentialsFile string
	}
	cmdlineOptionsMutex sync.RWMutex
)

func init() {
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypeBlob,
			Name:               "gcs",
			Description:        "reconciliation report archive in a Cloud Storage bucket",
			NewFromOptionsFunc: NewFromCmdlineOptions,
			Options: []plugin.PluginOption{
				{
					Name:         "url",
					Type:         plugin.PluginOptionTypeString,
					Description:  "archive location as gcs://<bucket>[/prefix]",
					DefaultValue: "",
					Dest:         &(cmdlineOptions.url),
				},
				{
					Name:         "credentials-file",
					Type:         plugin.PluginOptionTypeString,
					Description:  "service account key file (application default credentials when empty)",
					DefaultValue: "",
					Dest:         &(cmdlineOptions.credentialsFile),
				},
			},
		},
	)
}

// NewFromCmdlineOptions builds an archive from the registered options. A
// malformed url is reported when the plugin starts
func NewFromCmdlineOptions() plugin.Plugin {
	cmdlineOptionsMutex.RLock()
	url := cmdlineOptions.url
	credentialsFile := cmdlineOptions.credentialsFile
	cmdlineOptionsMutex.RUnlock()
	bucket, prefix, err := parseURL(url)
	if err != nil {
		return plugin.NewErrorPlugin(err)
	}
	p, err := NewWithOptions(
		WithBucket(bucket),
		WithPrefix(prefix),
		WithCredentialsFile(credentialsFile),
	)
	if err != nil {
		return plugin.NewErrorPlugin(err)
	}
	return p
}
