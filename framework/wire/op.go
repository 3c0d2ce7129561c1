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

// Package wire defines the operation tag space and stream framing of the
// graph encoding.
//
// Every value slot in a stream is led by a single operation byte, unless
// the slot's static type makes the operation inferable and the byte is
// elided (see Inferable). The low seven bits identify the operation; the
// high bit marks an instance of an otherwise memoizable operation that was
// not recorded in the memo table.
package wire

import (
	"fmt"

	"github.com/graphwire/graphwire/core/data/pod"
	"github.com/graphwire/graphwire/core/fault"
)

// Op identifies the encoding operation of a single value slot.
type Op uint8

const (
	// Nil encodes an absent value; it has no payload.
	Nil Op = iota
	// Ref encodes a back-reference to a previously memoized value.
	Ref

	Bool
	Int8
	Int16
	Int32
	Int64
	Int
	Uint8
	Uint16
	Uint32
	Uint64
	Uint
	Uintptr
	Float32
	Float64
	Complex64
	Complex128
	String

	// Slice is a single-dimension, zero-based sequence with its length in
	// the payload.
	Slice
	// Array is the general fixed-shape form: rank and per-dimension lengths.
	Array
	// Tuple is a fixed ordered group of independently tagged values.
	Tuple
	// Enum is a defined integer type: type reference then the value in the
	// declared width.
	Enum
	// Delegate is a multicast invocation list of (target, method) pairs.
	Delegate
	// Reduced is a value rebuilt by a registered rebuilder call.
	Reduced
	// Custom is a value that collects and restores its own field pairs.
	Custom
	// Auto is a field-by-field object.
	Auto

	// Reflective entity operations. Ref forms resolve an existing entity by
	// name; Def forms carry an embedded definition.
	UnitRef
	UnitDef
	ModuleRef
	ModuleDef
	TypeRef
	TypeDef
	FieldRef
	FieldDef
	PropertyRef
	PropertyDef
	EventRef
	EventDef
	MethodRef
	MethodDef
	CtorRef
	CtorDef

	// TypeParam and MethodParam are type variables bound to a generic
	// parameter of an enclosing type or method definition.
	TypeParam
	MethodParam

	opCount
)

// Transient is the op byte bit marking an instance that was not memoized
// even though its operation normally is.
const Transient = 0x80

// ErrUnknownOp is returned when a stream carries an operation byte outside
// the tag space.
const ErrUnknownOp = fault.Const("wire: unknown operation")

var opNames = map[Op]string{
	Nil:         "Nil",
	Ref:         "Ref",
	Bool:        "Bool",
	Int8:        "Int8",
	Int16:       "Int16",
	Int32:       "Int32",
	Int64:       "Int64",
	Int:         "Int",
	Uint8:       "Uint8",
	Uint16:      "Uint16",
	Uint32:      "Uint32",
	Uint64:      "Uint64",
	Uint:        "Uint",
	Uintptr:     "Uintptr",
	Float32:     "Float32",
	Float64:     "Float64",
	Complex64:   "Complex64",
	Complex128:  "Complex128",
	String:      "String",
	Slice:       "Slice",
	Array:       "Array",
	Tuple:       "Tuple",
	Enum:        "Enum",
	Delegate:    "Delegate",
	Reduced:     "Reduced",
	Custom:      "Custom",
	Auto:        "Auto",
	UnitRef:     "UnitRef",
	UnitDef:     "UnitDef",
	ModuleRef:   "ModuleRef",
	ModuleDef:   "ModuleDef",
	TypeRef:     "TypeRef",
	TypeDef:     "TypeDef",
	FieldRef:    "FieldRef",
	FieldDef:    "FieldDef",
	PropertyRef: "PropertyRef",
	PropertyDef: "PropertyDef",
	EventRef:    "EventRef",
	EventDef:    "EventDef",
	MethodRef:   "MethodRef",
	MethodDef:   "MethodDef",
	CtorRef:     "CtorRef",
	CtorDef:     "CtorDef",
	TypeParam:   "TypeParam",
	MethodParam: "MethodParam",
}

func (o Op) String() string {
	if s, ok := opNames[o]; ok {
		return s
	}
	return fmt.Sprintf("Op(%d)", uint8(o))
}

// Memoizes reports whether values led by this operation participate in the
// memo table. Scalar operations are cheaper to re-encode than to reference.
func (o Op) Memoizes() bool {
	switch o {
	case Slice, Tuple, Delegate, Reduced, Custom, Auto,
		UnitRef, UnitDef, ModuleRef, ModuleDef, TypeRef, TypeDef,
		FieldRef, FieldDef, PropertyRef, PropertyDef, EventRef, EventDef,
		MethodRef, MethodDef, CtorRef, CtorDef:
		return true
	}
	return false
}

// IsDef reports whether the operation carries an embedded entity definition.
func (o Op) IsDef() bool {
	switch o {
	case UnitDef, ModuleDef, TypeDef, FieldDef, PropertyDef, EventDef,
		MethodDef, CtorDef:
		return true
	}
	return false
}

// WriteOp writes the operation byte for op. transient is only meaningful
// for memoizable operations and marks this instance as absent from the
// memo table.
func WriteOp(w pod.Writer, op Op, transient bool) {
	b := uint8(op)
	if transient && op.Memoizes() {
		b |= Transient
	}
	w.Uint8(b)
}

// ReadOp reads an operation byte, returning the operation and whether the
// instance is transient.
func ReadOp(r pod.Reader) (Op, bool) {
	b := r.Uint8()
	op := Op(b &^ Transient)
	if op >= opCount {
		r.SetError(ErrUnknownOp)
		return Nil, false
	}
	transient := b&Transient != 0
	if transient && !op.Memoizes() {
		r.SetError(ErrUnknownOp)
		return Nil, false
	}
	return op, transient
}
