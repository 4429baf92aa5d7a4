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
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

type ArchiveOptionFunc func(*ReportArchive)

func WithLogger(logger *slog.Logger) ArchiveOptionFunc {
	return func(a *ReportArchive) {
		a.logger = logger
	}
}

// WithPromRegistry registers the archive operation and byte counters
func WithPromRegistry(
	registry prometheus.Registerer,
) ArchiveOptionFunc {
	return func(a *ReportArchive) {
		a.promRegistry = registry
	}
}

func WithBucket(bucket string) ArchiveOptionFunc {
	return func(a *ReportArchive) {
		a.bucketName = bucket
	}
}

// WithPrefix places every report object under prefix. Surrounding slashes
// are normalized
func WithPrefix(prefix string) ArchiveOptionFunc {
	return func(a *ReportArchive) {
		a.prefix = prefix
	}
}

// WithCredentialsFile reads a service account key from path instead of
// the application default credentials
func WithCredentialsFile(path string) ArchiveOptionFunc {
	return func(a *ReportArchive) {
		a.credentialsFile = path
	}
}
