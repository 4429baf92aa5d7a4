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

package postgres

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

func WithPromRegistry(registry prometheus.Registerer) RecordStoreOptionFunc {
	return func(d *RecordStore) {
		d.promRegistry = registry
	}
}

// WithHost and the options below it assemble the connection string when
// no DSN is given
func WithHost(host string) RecordStoreOptionFunc {
	return func(d *RecordStore) {
		d.host = host
	}
}

func WithPort(port uint) RecordStoreOptionFunc {
	return func(d *RecordStore) {
		d.port = port
	}
}

func WithUser(user string) RecordStoreOptionFunc {
	return func(d *RecordStore) {
		d.user = user
	}
}

func WithPassword(password string) RecordStoreOptionFunc {
	return func(d *RecordStore) {
		d.password = password
	}
}

func WithDatabase(database string) RecordStoreOptionFunc {
	return func(d *RecordStore) {
		d.database = database
	}
}

// WithSSLMode sets the libpq sslmode
func WithSSLMode(mode string) RecordStoreOptionFunc {
	return func(d *RecordStore) {
		d.sslMode = mode
	}
}

func WithTimeZone(timeZone string) RecordStoreOptionFunc {
	return func(d *RecordStore) {
		d.timeZone = timeZone
	}
}

// WithDSN sets a complete connection string. It wins over the individual
// connection options
func WithDSN(dsn string) RecordStoreOptionFunc {
	return func(d *RecordStore) {
		d.dsn = dsn
	}
}

// WithPool sizes the connection pool. Zero values keep the defaults
func WithPool(
	maxOpen int,
	maxIdle int,
	maxLifetime time.Duration,
) RecordStoreOptionFunc {
	return func(d *RecordStore) {
		d.pool = poolConfig{
			maxOpen:     maxOpen,
			maxIdle:     maxIdle,
			maxLifetime: maxLifetime,
		}
	}
}
