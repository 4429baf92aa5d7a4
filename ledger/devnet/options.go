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

package devnet

import (
	"log/slog"
	"time"
)

const DefaultContractName = "CarbonCredit"

type ContractOptionFunc func(*Contract)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) ContractOptionFunc {
	return func(c *Contract) {
		c.logger = logger
	}
}

// WithName specifies the contract name used when the contract is first
// deployed
func WithName(name string) ContractOptionFunc {
	return func(c *Contract) {
		c.name = name
	}
}

// WithOwner specifies the owner address used when the contract is first
// deployed. An existing deployment keeps its owner
func WithOwner(owner string) ContractOptionFunc {
	return func(c *Contract) {
		c.owner = owner
	}
}

// WithBlockInterval specifies how often pending transactions are confirmed
// by Start. Zero confirms each transaction as it is submitted
func WithBlockInterval(interval time.Duration) ContractOptionFunc {
	return func(c *Contract) {
		c.blockInterval = interval
	}
}
