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

package sqlite

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type RecordStoreOptionFunc func(*RecordStore)

func WithLogger(logger *slog.Logger) RecordStoreOptionFunc {
	return func(d *RecordStore) {
		d.logger = logger
	}
}

func WithPromRegistry(
	registry prometheus.Registerer,
) RecordStoreOptionFunc {
	return func(d *RecordStore) {
		d.promRegistry = registry
	}
}

// WithDataDir sets the directory holding records.sqlite. An empty value
// keeps the records in memory
func WithDataDir(dataDir string) RecordStoreOptionFunc {
	return func(d *RecordStore) {
		d.dataDir = dataDir
	}
}

// WithBusyTimeout sets how long a write waits on a locked database before
// failing
func WithBusyTimeout(timeout time.Duration) RecordStoreOptionFunc {
	return func(d *RecordStore) {
		d.busyTimeout = timeout
	}
}

// WithVacuumInterval sets how often unused pages are reclaimed. Zero turns
// the periodic vacuum off
func WithVacuumInterval(interval time.Duration) RecordStoreOptionFunc {
	return func(d *RecordStore) {
		d.vacuumInterval = interval
	}
}
