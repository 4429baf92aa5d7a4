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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/blinklabs-io/canopy/database/types"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const gcsMetricNamePrefix = "database_blob_gcs_"

// ReportArchive keeps reconciliation reports as objects in a Cloud Storage
// bucket
type ReportArchive struct {
	promRegistry    prometheus.Registerer
	logger          *slog.Logger
	client          *storage.Client
	bucket          *storage.BucketHandle
	opsTotal        *prometheus.CounterVec
	bucketName      string
	prefix          string
	credentialsFile string
}

// New creates a new GCS-backed blob store from a 'gcs://<bucket>[/prefix]' URL
func New(
	dataDir string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (*ReportArchive, error) {
	bucketName, keyPrefix, err := parseURL(dataDir)
	if err != nil {
		return nil, err
	}
	return NewWithOptions(
		WithBucket(bucketName),
		WithPrefix(keyPrefix),
		WithLogger(logger),
		WithPromRegistry(promRegistry),
	)
}

func parseURL(dataDir string) (string, string, error) {
	path, ok := strings.CutPrefix(dataDir, "gcs://")
	if !ok || path == "" {
		return "", "", errors.New(
			"gcs blob: bucket not set (expected dataDir='gcs://<bucket>[/prefix]')",
		)
	}
	bucketName, keyPrefix, _ := strings.Cut(path, "/")
	if bucketName == "" {
		return "", "", errors.New("gcs blob: invalid GCS path (missing bucket)")
	}
	return bucketName, normalizePrefix(keyPrefix), nil
}

func normalizePrefix(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

// NewWithOptions creates a new GCS-backed blob store using options.
func NewWithOptions(opts ...ArchiveOptionFunc) (*ReportArchive, error) {
	db := &ReportArchive{}
	for _, opt := range opts {
		opt(db)
	}
	if db.logger == nil {
		db.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	db.prefix = normalizePrefix(db.prefix)
	db.opsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: gcsMetricNamePrefix + "ops_total",
			Help: "Total number of GCS blob operations",
		},
		[]string{"op"},
	)
	return db, nil
}

// Start implements the plugin.Plugin interface.
func (d *ReportArchive) Start() error {
	if d.bucketName == "" {
		return errors.New("gcs blob: bucket not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	clientOpts := []option.ClientOption{
		storage.WithDisabledClientMetrics(),
	}
	if d.credentialsFile != "" {
		clientOpts = append(
			clientOpts,
			option.WithCredentialsFile(d.credentialsFile),
		)
	}
	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return fmt.Errorf(
			"gcs blob: failed in creating storage client: %w",
			err,
		)
	}
	d.client = client
	d.bucket = client.Bucket(d.bucketName)
	if d.promRegistry != nil {
		d.promRegistry.MustRegister(d.opsTotal)
	}
	return nil
}

// Stop implements the plugin.Plugin interface.
func (d *ReportArchive) Stop() error {
	return d.Close()
}

// Close closes the GCS client.
func (d *ReportArchive) Close() error {
	if d.client == nil {
		return nil
	}
	err := d.client.Close()
	d.client = nil
	return err
}

func (d *ReportArchive) fullKey(key string) string {
	return d.prefix + key
}

// Put writes data to an object named by key
func (d *ReportArchive) Put(ctx context.Context, key string, data []byte) error {
	if key == "" {
		return types.ErrInvalidBlobKey
	}
	if d.bucket == nil {
		return types.ErrBlobStoreUnavailable
	}
	w := d.bucket.Object(d.fullKey(key)).NewWriter(ctx)
	w.ContentType = "application/octet-stream"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("gcs put %q: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs put %q: %w", key, err)
	}
	d.opsTotal.WithLabelValues("put").Inc()
	d.logger.Debug(
		fmt.Sprintf("gcs put %q ok (%d bytes)", key, len(data)),
		"component", "database",
	)
	return nil
}

// Get reads the object named by key
func (d *ReportArchive) Get(ctx context.Context, key string) ([]byte, error) {
	if d.bucket == nil {
		return nil, types.ErrBlobStoreUnavailable
	}
	r, err := d.bucket.Object(d.fullKey(key)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, types.ErrBlobKeyNotFound
		}
		return nil, fmt.Errorf("gcs get %q: %w", key, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gcs read %q: %w", key, err)
	}
	d.opsTotal.WithLabelValues("get").Inc()
	return data, nil
}

// List returns the keys under prefix in ascending order
func (d *ReportArchive) List(ctx context.Context, prefix string) ([]string, error) {
	if d.bucket == nil {
		return nil, types.ErrBlobStoreUnavailable
	}
	it := d.bucket.Objects(ctx, &storage.Query{Prefix: d.fullKey(prefix)})
	keys := []string{}
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("gcs list %q: %w", prefix, err)
		}
		keys = append(keys, strings.TrimPrefix(attrs.Name, d.prefix))
	}
	sort.Strings(keys)
	d.opsTotal.WithLabelValues("list").Inc()
	return keys, nil
}
