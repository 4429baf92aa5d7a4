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

import "gorm.io/gorm"

// Txn is a metadata transaction. Query methods take an optional *Txn and
// run outside of a transaction when it is nil
type Txn struct {
	db       *Database
	tx       *gorm.DB
	onCommit []func()
}

func (t *Txn) DB() *Database {
	return t.db
}

// OnCommit queues fn to run after the transaction commits. Nothing queued
// runs when it rolls back
func (t *Txn) OnCommit(fn func()) {
	t.onCommit = append(t.onCommit, fn)
}

// Transaction runs fn in a metadata transaction. Any error returned by fn
// rolls the transaction back. Only the *Txn passed to fn may be used for
// queries inside fn
func (d *Database) Transaction(fn func(*Txn) error) error {
	var txn *Txn
	err := d.metadata.DB().Transaction(func(tx *gorm.DB) error {
		txn = &Txn{db: d, tx: tx}
		return fn(txn)
	})
	if err != nil {
		return err
	}
	for _, hook := range txn.onCommit {
		hook()
	}
	return nil
}
