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
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/blinklabs-io/canopy/database/types"
	"github.com/prometheus/client_golang/prometheus"
)

const s3MetricNamePrefix = "database_blob_s3_"

// ReportArchive keeps reconciliation reports as objects in an S3 bucket
type ReportArchive struct {
	promRegistry prometheus.Registerer
	logger       *slog.Logger
	client       *s3.Client
	opsTotal     *prometheus.CounterVec
	bytesTotal   prometheus.Counter
	bucket       string
	prefix       string
	region       string
	endpoint     string
	timeout      time.Duration
}

// New creates a new S3-backed blob store and dataDir must be "s3://bucket" or "s3://bucket/prefix"
func New(
	dataDir string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (*ReportArchive, error) {
	bucket, keyPrefix, err := parseURL(dataDir)
	if err != nil {
		return nil, err
	}
	return NewWithOptions(
		WithBucket(bucket),
		WithPrefix(keyPrefix),
		WithLogger(logger),
		WithPromRegistry(promRegistry),
	)
}

func parseURL(dataDir string) (string, string, error) {
	path, ok := strings.CutPrefix(dataDir, "s3://")
	if !ok {
		return "", "", errors.New(
			"s3 blob: expected dataDir='s3://<bucket>[/prefix]'",
		)
	}
	bucket, keyPrefix, _ := strings.Cut(path, "/")
	if bucket == "" {
		return "", "", errors.New("s3 blob: invalid S3 path (missing bucket)")
	}
	return bucket, normalizePrefix(keyPrefix), nil
}

func normalizePrefix(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

// NewWithOptions creates a new S3-backed blob store using options.
func NewWithOptions(opts ...ArchiveOptionFunc) (*ReportArchive, error) {
	db := &ReportArchive{}
	for _, opt := range opts {
		opt(db)
	}
	// Set defaults (no side effects)
	if db.logger == nil {
		db.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if db.timeout == 0 {
		db.timeout = defaultTimeout
	}
	db.prefix = normalizePrefix(db.prefix)
	db.opsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: s3MetricNamePrefix + "ops_total",
			Help: "Total number of S3 blob operations",
		},
		[]string{"op"},
	)
	db.bytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: s3MetricNamePrefix + "bytes_total",
			Help: "Total bytes read/written for S3 blob operations",
		},
	)
	// Note: AWS config loading and validation happens in Start()
	return db, nil
}

// Start implements the plugin.Plugin interface.
func (d *ReportArchive) Start() error {
	if d.bucket == "" {
		return errors.New("s3 blob: bucket not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("s3 blob: load default AWS config: %w", err)
	}
	// Override region if specified
	if d.region != "" {
		awsCfg.Region = d.region
	}
	d.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if d.endpoint != "" {
			// S3-compatible endpoints generally need path-style addressing
			o.BaseEndpoint = aws.String(d.endpoint)
			o.UsePathStyle = true
		}
	})
	if d.promRegistry != nil {
		d.promRegistry.MustRegister(d.opsTotal, d.bytesTotal)
	}
	return nil
}

// Stop implements the plugin.Plugin interface.
func (d *ReportArchive) Stop() error {
	// S3 client doesn't need explicit closing
	return nil
}

// Close implements the BlobStore interface.
func (d *ReportArchive) Close() error {
	return d.Stop()
}

func (d *ReportArchive) fullKey(key string) string {
	return d.prefix + key
}

func (d *ReportArchive) opContext(
	ctx context.Context,
) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, d.timeout)
}

func isS3NotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey" {
		return true
	}
	var noSuchKey *s3types.NoSuchKey
	return errors.As(err, &noSuchKey)
}

// Put writes a value to key.
func (d *ReportArchive) Put(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return types.ErrInvalidBlobKey
	}
	if d.client == nil {
		return types.ErrBlobStoreUnavailable
	}
	ctx, cancel := d.opContext(ctx)
	defer cancel()
	_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.fullKey(key)),
		Body:   bytes.NewReader(value),
	})
	if err != nil {
		d.logger.Error(
			fmt.Sprintf("s3 put %q failed: %v", key, err),
			"component", "database",
		)
		return err
	}
	d.opsTotal.WithLabelValues("put").Inc()
	d.bytesTotal.Add(float64(len(value)))
	return nil
}

// Get reads the value stored under key
func (d *ReportArchive) Get(ctx context.Context, key string) ([]byte, error) {
	if d.client == nil {
		return nil, types.ErrBlobStoreUnavailable
	}
	ctx, cancel := d.opContext(ctx)
	defer cancel()
	out, err := d.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.fullKey(key)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, types.ErrBlobKeyNotFound
		}
		d.logger.Error(
			fmt.Sprintf("s3 get %q failed: %v", key, err),
			"component", "database",
		)
		return nil, err
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 read %q: %w", key, err)
	}
	d.opsTotal.WithLabelValues("get").Inc()
	d.bytesTotal.Add(float64(len(data)))
	return data, nil
}

// List returns the keys under prefix in ascending order
func (d *ReportArchive) List(ctx context.Context, prefix string) ([]string, error) {
	if d.client == nil {
		return nil, types.ErrBlobStoreUnavailable
	}
	ctx, cancel := d.opContext(ctx)
	defer cancel()
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(d.bucket),
	}
	if fullPrefix := d.fullKey(prefix); fullPrefix != "" {
		input.Prefix = aws.String(fullPrefix)
	}
	paginator := s3.NewListObjectsV2Paginator(d.client, input)
	keys := []string{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			keys = append(keys, strings.TrimPrefix(aws.ToString(obj.Key), d.prefix))
		}
	}
	sort.Strings(keys)
	d.opsTotal.WithLabelValues("list").Inc()
	return keys, nil
}
