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

package database

import (
	"errors"
	"io"
	"log/slog"

	"github.com/blinklabs-io/canopy/database/plugin"
	"github.com/blinklabs-io/canopy/database/plugin/blob"
	"github.com/blinklabs-io/canopy/database/plugin/metadata"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

var (
	ErrActorNotFound          = errors.New("actor not found")
	ErrActivityRecordNotFound = errors.New("activity record not found")
	ErrTransactionNotFound    = errors.New("transaction not found")
	ErrEditorGrantNotFound    = errors.New("editor grant not found")
	ErrOperationNotFound      = errors.New("operation not found")
	ErrDuplicateTxHash        = errors.New("duplicate ledger transaction hash")
	ErrDuplicateOperation     = errors.New("operation already recorded for leg")
)

// Config selects and configures the storage plugins
type Config struct {
	Logger         *slog.Logger
	PromRegistry   prometheus.Registerer
	DataDir        string
	MetadataPlugin string
	BlobPlugin     string
}

type Database struct {
	logger   *slog.Logger
	blob     blob.BlobStore
	metadata metadata.MetadataStore
	dataDir  string
}

// Blob returns the underling blob store instance. It may be nil when no
// blob plugin is configured
func (d *Database) Blob() blob.BlobStore {
	return d.blob
}

// DataDir returns the path to the data directory used for storage
func (d *Database) DataDir() string {
	return d.dataDir
}

// Logger returns the logger instance
func (d *Database) Logger() *slog.Logger {
	return d.logger
}

// Metadata returns the underlying metadata store instance
func (d *Database) Metadata() metadata.MetadataStore {
	return d.metadata
}

// Close cleans up the database connections
func (d *Database) Close() error {
	var err error
	if d.metadata != nil {
		err = errors.Join(err, d.metadata.Close())
	}
	if d.blob != nil {
		err = errors.Join(err, d.blob.Close())
	}
	return err
}

// New creates a new database from the configured storage plugins. The data
// dir, when set, overrides the data-dir option of the sqlite and badger
// plugins
func New(cfg *Config) (*Database, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	metadataPlugin := cfg.MetadataPlugin
	if metadataPlugin == "" {
		metadataPlugin = "sqlite"
	}
	if cfg.DataDir != "" {
		if err := plugin.SetPluginOption(plugin.PluginTypeMetadata, "sqlite", "data-dir", cfg.DataDir); err != nil {
			return nil, err
		}
		if err := plugin.SetPluginOption(plugin.PluginTypeBlob, "badger", "data-dir", cfg.DataDir); err != nil {
			return nil, err
		}
	}
	metadataDb, err := metadata.New(metadataPlugin)
	if err != nil {
		return nil, err
	}
	var blobDb blob.BlobStore
	if cfg.BlobPlugin != "" {
		blobDb, err = blob.New(cfg.BlobPlugin)
		if err != nil {
			_ = metadataDb.Close()
			return nil, err
		}
	}
	db := NewWithStores(cfg.Logger, metadataDb, blobDb)
	db.dataDir = cfg.DataDir
	return db, nil
}

// NewWithStores wraps already started stores
func NewWithStores(
	logger *slog.Logger,
	metadataStore metadata.MetadataStore,
	blobStore blob.BlobStore,
) *Database {
	if logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Database{
		logger:   logger,
		metadata: metadataStore,
		blob:     blobStore,
	}
}

// gormDB returns the handle queries run against: the transaction when one
// is given, the store otherwise
func (d *Database) gormDB(txn *Txn) *gorm.DB {
	if txn != nil {
		return txn.tx
	}
	return d.metadata.DB()
}
