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

package sops_test

import (
	"testing"

	"github.com/blinklabs-io/canopy/database/sops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsEncrypted(t *testing.T) {
	assert.False(t, sops.IsEncrypted([]byte("ledger:\n  backend: devnet\n")))
	assert.True(t, sops.IsEncrypted([]byte("ledger: ENC[AES256_GCM,data:x]\nsops:\n  version: 3.11.0\n")))
	assert.False(t, sops.IsEncrypted([]byte("::: not yaml")))
}

func TestEncryptRequiresMasterKey(t *testing.T) {
	t.Setenv(sops.EnvGcpKmsResourceId, "")
	t.Setenv(sops.EnvAwsKmsKeyArns, "")
	t.Setenv(sops.EnvAgeRecipients, "")
	_, err := sops.Encrypt([]byte("database:\n  password: secret\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one master key")
}

func TestEncryptRejectsEncryptedInput(t *testing.T) {
	_, err := sops.Encrypt([]byte("a: ENC[x]\nsops:\n  version: 3.11.0\n"))
	require.ErrorIs(t, err, sops.ErrAlreadyEncrypted)
}

func TestEncryptRejectsBadAgeRecipient(t *testing.T) {
	t.Setenv(sops.EnvGcpKmsResourceId, "")
	t.Setenv(sops.EnvAwsKmsKeyArns, "")
	t.Setenv(sops.EnvAgeRecipients, "not-an-age-key")
	_, err := sops.Encrypt([]byte("a: b\n"))
	require.Error(t, err)
}
