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

// Package failure defines the error kinds shared by the credit workflows.
// Callers branch on Kind (via KindOf or errors.Is against the sentinel
// values) rather than on concrete error types.
package failure

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindAuthorization
	KindLedgerCall
	KindInsufficientFunds
	KindInvalidStateTransition
	KindInconsistentMirror
	KindNotFound
	KindInvalidArgument
)

func (k Kind) String() string {
	switch k {
	case KindAuthorization:
		return "AuthorizationFailure"
	case KindLedgerCall:
		return "LedgerCallFailure"
	case KindInsufficientFunds:
		return "InsufficientFunds"
	case KindInvalidStateTransition:
		return "InvalidStateTransition"
	case KindInconsistentMirror:
		return "InconsistentMirror"
	case KindNotFound:
		return "NotFound"
	case KindInvalidArgument:
		return "InvalidArgument"
	default:
		return "Unknown"
	}
}

// Sentinel errors, one per kind. An *Error matches the sentinel of its kind
// with errors.Is.
var (
	ErrAuthorization          = &sentinel{kind: KindAuthorization}
	ErrLedgerCall             = &sentinel{kind: KindLedgerCall}
	ErrInsufficientFunds      = &sentinel{kind: KindInsufficientFunds}
	ErrInvalidStateTransition = &sentinel{kind: KindInvalidStateTransition}
	ErrInconsistentMirror     = &sentinel{kind: KindInconsistentMirror}
	ErrNotFound               = &sentinel{kind: KindNotFound}
	ErrInvalidArgument        = &sentinel{kind: KindInvalidArgument}
)

type sentinel struct {
	kind Kind
}

func (s *sentinel) Error() string {
	return s.kind.String()
}

// Error carries a Kind, the operation that failed and the underlying cause
type Error struct {
	Err  error
	Op   string
	Kind Kind
}

func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf builds an Error with a formatted cause
func Newf(kind Kind, op string, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	s, ok := target.(*sentinel)
	if !ok {
		return false
	}
	return s.kind == e.Kind
}

// KindOf returns the Kind of the outermost *Error in the chain, or
// KindUnknown when there is none
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	var s *sentinel
	if errors.As(err, &s) {
		return s.kind
	}
	return KindUnknown
}

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
