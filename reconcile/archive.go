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

package reconcile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/blinklabs-io/canopy/database/plugin/blob"
	"github.com/klauspost/compress/zstd"
)

const reportPrefix = "reconcile/"

func reportKey(report Report) string {
	return fmt.Sprintf(
		"%s%s.json.zst",
		reportPrefix,
		report.StartedAt.Format("20060102T150405.000000000Z"),
	)
}

func (r *Reconciler) archive(ctx context.Context, report Report) (string, error) {
	key := reportKey(report)
	report.Key = key
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		return "", fmt.Errorf("creating zstd writer: %w", err)
	}
	if err := json.NewEncoder(zw).Encode(report); err != nil {
		zw.Close()
		return "", fmt.Errorf("encoding report: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("compressing report: %w", err)
	}
	if err := r.config.Database.Blob().Put(ctx, key, buf.Bytes()); err != nil {
		return "", fmt.Errorf("archiving report %s: %w", key, err)
	}
	return key, nil
}

// ListReports returns the keys of the archived reports, oldest first
func ListReports(ctx context.Context, store blob.BlobStore) ([]string, error) {
	return store.List(ctx, reportPrefix)
}

// LoadReport reads an archived report back
func LoadReport(ctx context.Context, store blob.BlobStore, key string) (Report, error) {
	var ret Report
	data, err := store.Get(ctx, key)
	if err != nil {
		return ret, err
	}
	zr, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return ret, fmt.Errorf("creating zstd reader: %w", err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return ret, fmt.Errorf("decompressing report %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, &ret); err != nil {
		return ret, fmt.Errorf("decoding report %s: %w", key, err)
	}
	return ret, nil
}
