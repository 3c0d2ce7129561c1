// Copyright (C) 2024 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package graph

import (
	"fmt"
	"reflect"

	"github.com/graphwire/graphwire/core/fault"
)

const (
	// ErrUnfilledSlot is raised by a back-reference to a memo slot whose
	// value has not been produced yet. Only provisional entity handles
	// may be referenced before they are filled.
	ErrUnfilledSlot = fault.Const("graph: back-reference to unfilled memo slot")
	// ErrSelfReduction is raised when a reduced value's arguments reach
	// back to the value itself; the reduction has no result to hand out
	// until it is rebuilt.
	ErrSelfReduction = fault.Const("graph: reduction references itself")
	// ErrSlotMismatch is raised when a decoded value does not fit the
	// slot it was decoded for.
	ErrSlotMismatch = fault.Const("graph: value does not fit slot")
	// ErrFieldMismatch is raised when a stream's field list for a type
	// differs from this host's. The decoder still drains every serialized
	// field to keep the stream aligned before raising it.
	ErrFieldMismatch = fault.Const("graph: serialized and local field lists differ")
)

// FormatError reports a malformed stream: bad framing, a truncated value,
// an unknown tag. Offset is where reading stopped.
type FormatError struct {
	Offset uint64
	Err    error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed stream at offset %d: %v", e.Offset, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// ClassificationError reports a value whose type has no serialization
// strategy.
type ClassificationError struct {
	Type   reflect.Type
	Reason error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("cannot serialize %v: %v", e.Type, e.Reason)
}

func (e *ClassificationError) Unwrap() error { return e.Reason }

// ResolutionError reports a well formed stream whose names do not line up
// with what this host has: an unregistered type, a missing field, a
// member lookup failure.
type ResolutionError struct {
	Name string
	Err  error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve %q: %v", e.Name, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// ReducerContractError reports a reducer or rebuilder that broke its
// contract.
type ReducerContractError struct {
	Rebuilder string
	Err       error
}

func (e *ReducerContractError) Error() string {
	return fmt.Sprintf("reducer contract violated by %q: %v", e.Rebuilder, e.Err)
}

func (e *ReducerContractError) Unwrap() error { return e.Err }
