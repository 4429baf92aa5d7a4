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

package aws

import (
	"sync"
	"time"

	"github.com/blinklabs-io/canopy/database/plugin"
)

const defaultTimeout = 60 * time.Second

var (
	cmdlineOptions struct {
		url      string
		endpoint string
		region   string
		timeout  uint64
	}
	cmdlineOptionsMutex sync.RWMutex
)

func initCmdlineOptions() {
	cmdlineOptionsMutex.Lock()
	defer cmdlineOptionsMutex.Unlock()
	cmdlineOptions.url = ""
	cmdlineOptions.endpoint = ""
	cmdlineOptions.region = ""
	cmdlineOptions.timeout = uint64(defaultTimeout.Seconds())
}

func init() {
	initCmdlineOptions()
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypeBlob,
			Name:               "s3",
			Description:        "reconciliation report archive in an S3 bucket",
			NewFromOptionsFunc: NewFromCmdlineOptions,
			Options: []plugin.PluginOption{
				{
					Name:         "url",
					Type:         plugin.PluginOptionTypeString,
					Description:  "archive location as s3://<bucket>[/prefix]",
					DefaultValue: "",
					Dest:         &(cmdlineOptions.url),
				},
				{
					Name:         "endpoint",
					Type:         plugin.PluginOptionTypeString,
					Description:  "S3-compatible endpoint, path-style addressing is used when set",
					DefaultValue: "",
					Dest:         &(cmdlineOptions.endpoint),
				},
				{
					Name:         "region",
					Type:         plugin.PluginOptionTypeString,
					Description:  "region overriding the default AWS config",
					DefaultValue: "",
					Dest:         &(cmdlineOptions.region),
				},
				{
					Name:         "timeout",
					Type:         plugin.PluginOptionTypeUint,
					Description:  "seconds allowed for each archive read or write",
					DefaultValue: uint64(defaultTimeout.Seconds()),
					Dest:         &(cmdlineOptions.timeout),
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
	opts := []ArchiveOptionFunc{
		WithEndpoint(cmdlineOptions.endpoint),
		WithRegion(cmdlineOptions.region),
		WithTimeout(time.Duration(cmdlineOptions.timeout) * time.Second),
	}
	cmdlineOptionsMutex.RUnlock()
	bucket, prefix, err := parseURL(url)
	if err != nil {
		return plugin.NewErrorPlugin(err)
	}
	opts = append(opts, WithBucket(bucket), WithPrefix(prefix))
	p, err := NewWithOptions(opts...)
	if err != nil {
		return plugin.NewErrorPlugin(err)
	}
	return p
}
