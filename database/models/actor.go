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

package models

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleFarmer    Role = "FARMER"
	RoleCarrier   Role = "CARRIER"
	RoleSeller    Role = "SELLER"
	RoleProducer  Role = "PRODUCER"
	RoleCertifier Role = "CERTIFIER"
)

// Roles lists every known role in a stable order
var Roles = []Role{
	RoleFarmer,
	RoleCarrier,
	RoleSeller,
	RoleProducer,
	RoleCertifier,
}

func (r Role) Valid() bool {
	switch r {
	case RoleFarmer, RoleCarrier, RoleSeller, RoleProducer, RoleCertifier:
		return true
	default:
		return false
	}
}

// ParseRole accepts a role name in any case
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role: %q", s)
	}
	return r, nil
}

// Actor is a registered identity with a ledger address. The address is
// immutable once assigned.
type Actor struct {
	Username string `gorm:"size:255;uniqueIndex;not null"`
	Role     Role   `gorm:"size:16;index;not null"`
	Address  string `gorm:"size:64;uniqueIndex;not null"`
	ID       uint   `gorm:"primarykey"`
}

func (Actor) TableName() string {
	return "actor"
}
