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

package failure_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/canopy/failure"
)

func TestKindOfWrapped(t *testing.T) {
	base := failure.New(
		failure.KindInsufficientFunds,
		"retire",
		errors.New("no helper"),
	)
	wrapped := fmt.Errorf("retire record 7: %w", base)
	assert.Equal(t, failure.KindInsufficientFunds, failure.KindOf(wrapped))
	assert.True(t, failure.Is(wrapped, failure.KindInsufficientFunds))
	assert.True(t, errors.Is(wrapped, failure.ErrInsufficientFunds))
	assert.False(t, errors.Is(wrapped, failure.ErrLedgerCall))
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, failure.KindUnknown, failure.KindOf(errors.New("boom")))
	assert.Equal(t, failure.KindUnknown, failure.KindOf(nil))
}

func TestKindOfSentinel(t *testing.T) {
	err := fmt.Errorf("lookup: %w", failure.ErrNotFound)
	assert.Equal(t, failure.KindNotFound, failure.KindOf(err))
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := failure.New(failure.KindLedgerCall, "balanceOf", cause)
	require.ErrorIs(t, err, cause)
	assert.Equal(
		t,
		"balanceOf: LedgerCallFailure: connection refused",
		err.Error(),
	)
}
