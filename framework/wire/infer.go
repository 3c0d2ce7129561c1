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

package wire

import "reflect"

// Inferable reports whether a slot with the given static type carries no
// operation byte.
//
// The rule is part of the wire contract: both directions must agree
// byte-for-byte on when the tag is elided. A tag is elided exactly when the
// static type has a value kind — such a slot can neither hold nil nor a
// runtime type other than the static type, so the operation is a pure
// function of the static type. Every pointer-shaped kind (pointer,
// interface, map, slice, chan, func) always carries a tag.
func Inferable(t reflect.Type) bool {
	if t == nil {
		return false
	}
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128,
		reflect.String,
		reflect.Struct,
		reflect.Array:
		return true
	}
	return false
}

// ScalarOp returns the operation for a builtin scalar kind. ok is false
// for non-scalar kinds.
func ScalarOp(k reflect.Kind) (Op, bool) {
	switch k {
	case reflect.Bool:
		return Bool, true
	case reflect.Int:
		return Int, true
	case reflect.Int8:
		return Int8, true
	case reflect.Int16:
		return Int16, true
	case reflect.Int32:
		return Int32, true
	case reflect.Int64:
		return Int64, true
	case reflect.Uint:
		return Uint, true
	case reflect.Uint8:
		return Uint8, true
	case reflect.Uint16:
		return Uint16, true
	case reflect.Uint32:
		return Uint32, true
	case reflect.Uint64:
		return Uint64, true
	case reflect.Uintptr:
		return Uintptr, true
	case reflect.Float32:
		return Float32, true
	case reflect.Float64:
		return Float64, true
	case reflect.Complex64:
		return Complex64, true
	case reflect.Complex128:
		return Complex128, true
	case reflect.String:
		return String, true
	}
	return Nil, false
}
