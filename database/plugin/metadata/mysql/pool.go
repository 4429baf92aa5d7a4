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

package mysql

import (
	"database/sql"
	"time"
)

const (
	defaultMaxOpenConns    = 100
	defaultMaxIdleConns    = 10
	defaultConnMaxLifetime = time.Hour
)

type poolConfig struct {
	maxOpen     int
	maxIdle     int
	maxLifetime time.Duration
}

func (p poolConfig) withDefaults() poolConfig {
	if p.maxOpen <= 0 {
		p.maxOpen = defaultMaxOpenConns
	}
	if p.maxIdle <= 0 {
		p.maxIdle = defaultMaxIdleConns
	}
	// idle connections beyond the open limit are never reused
	p.maxIdle = min(p.maxIdle, p.maxOpen)
	if p.maxLifetime <= 0 {
		p.maxLifetime = defaultConnMaxLifetime
	}
	return p
}

func (p poolConfig) apply(db *sql.DB) {
	db.SetMaxOpenConns(p.maxOpen)
	db.SetMaxIdleConns(p.maxIdle)
	db.SetConnMaxLifetime(p.maxLifetime)
}
