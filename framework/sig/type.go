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

// Package sig models types and member signatures structurally.
//
// A sig.Type describes the shape of a type without holding any live
// runtime handle, and a sig.Signature describes a member by name, arity
// and parameter/return shapes. Both have purely structural equality, which
// stays valid across an entity being rebuilt: a member located by its
// signature before its declaring type is sealed can be relocated on the
// sealed type afterwards.
package sig

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/graphwire/graphwire/core/fault"
)

const (
	// ErrUnsupportedType is returned when a runtime type has no structural
	// description (channels, funcs, unsafe pointers).
	ErrUnsupportedType = fault.Const("sig: type has no structural description")
	// ErrUnresolvedType is returned when a structural description names a
	// type the resolver does not know.
	ErrUnresolvedType = fault.Const("sig: named type cannot be resolved")
	// ErrNotConcrete is returned when a structural description with no
	// host-runtime analog (type variables, by-ref, constructed generics) is
	// resolved outside an entity definition.
	ErrNotConcrete = fault.Const("sig: shape is not a concrete runtime type")
)

// Code identifies a builtin scalar shape.
type Code uint8

const (
	Invalid Code = iota
	Bool
	Int
	Int8
	Int16
	Int32
	Int64
	Uint
	Uint8
	Uint16
	Uint32
	Uint64
	Uintptr
	Float32
	Float64
	Complex64
	Complex128
	String
	// Any is the empty interface shape: a slot that can hold any value.
	Any

	codeCount
)

var codeNames = [codeCount]string{
	"invalid", "bool", "int", "int8", "int16", "int32", "int64",
	"uint", "uint8", "uint16", "uint32", "uint64", "uintptr",
	"float32", "float64", "complex64", "complex128", "string", "any",
}

func (c Code) String() string {
	if int(c) < len(codeNames) {
		return codeNames[c]
	}
	return fmt.Sprintf("code(%d)", uint8(c))
}

var kindCodes = map[reflect.Kind]Code{
	reflect.Bool:       Bool,
	reflect.Int:        Int,
	reflect.Int8:       Int8,
	reflect.Int16:      Int16,
	reflect.Int32:      Int32,
	reflect.Int64:      Int64,
	reflect.Uint:       Uint,
	reflect.Uint8:      Uint8,
	reflect.Uint16:     Uint16,
	reflect.Uint32:     Uint32,
	reflect.Uint64:     Uint64,
	reflect.Uintptr:    Uintptr,
	reflect.Float32:    Float32,
	reflect.Float64:    Float64,
	reflect.Complex64:  Complex64,
	reflect.Complex128: Complex128,
	reflect.String:     String,
}

var codeTypes = map[Code]reflect.Type{
	Bool:       reflect.TypeOf(false),
	Int:        reflect.TypeOf(int(0)),
	Int8:       reflect.TypeOf(int8(0)),
	Int16:      reflect.TypeOf(int16(0)),
	Int32:      reflect.TypeOf(int32(0)),
	Int64:      reflect.TypeOf(int64(0)),
	Uint:       reflect.TypeOf(uint(0)),
	Uint8:      reflect.TypeOf(uint8(0)),
	Uint16:     reflect.TypeOf(uint16(0)),
	Uint32:     reflect.TypeOf(uint32(0)),
	Uint64:     reflect.TypeOf(uint64(0)),
	Uintptr:    reflect.TypeOf(uintptr(0)),
	Float32:    reflect.TypeOf(float32(0)),
	Float64:    reflect.TypeOf(float64(0)),
	Complex64:  reflect.TypeOf(complex64(0)),
	Complex128: reflect.TypeOf(complex128(0)),
	String:     reflect.TypeOf(""),
	Any:        reflect.TypeOf((*interface{})(nil)).Elem(),
}

// CodeOf returns the builtin code for a scalar kind.
func CodeOf(k reflect.Kind) (Code, bool) {
	c, ok := kindCodes[k]
	return c, ok
}

// Type is the structural description of a type shape. Implementations are
// the small closed set of variants below.
type Type interface {
	fmt.Stringer
	isType()
}

type (
	// Builtin is a scalar (or Any) shape.
	Builtin struct{ Code Code }
	// Named refers to a type by its defining module and name.
	Named struct{ Module, Name string }
	// Pointer is a pointer to an element shape.
	Pointer struct{ Elem Type }
	// Slice is a zero-based, single-dimension sequence.
	Slice struct{ Elem Type }
	// Array is a fixed shape of the given per-dimension lengths.
	Array struct {
		Lens []int
		Elem Type
	}
	// Map is an associative shape.
	Map struct{ Key, Elem Type }
	// ByRef marks a parameter passed by reference.
	ByRef struct{ Elem Type }
	// TypeParam is a type variable declared by the enclosing type.
	TypeParam struct{ Index int }
	// MethodParam is a type variable declared by the enclosing method.
	MethodParam struct{ Index int }
	// Constructed is a generic definition applied to argument shapes.
	Constructed struct {
		Def  Type
		Args []Type
	}
)

func (Builtin) isType()     {}
func (Named) isType()       {}
func (Pointer) isType()     {}
func (Slice) isType()       {}
func (Array) isType()       {}
func (Map) isType()         {}
func (ByRef) isType()       {}
func (TypeParam) isType()   {}
func (MethodParam) isType() {}
func (Constructed) isType() {}

func (t Builtin) String() string { return t.Code.String() }

func (t Named) String() string {
	if t.Module == "" {
		return t.Name
	}
	return t.Module + "." + t.Name
}

func (t Pointer) String() string { return "*" + t.Elem.String() }
func (t Slice) String() string   { return "[]" + t.Elem.String() }

func (t Array) String() string {
	s := &strings.Builder{}
	for _, n := range t.Lens {
		fmt.Fprintf(s, "[%d]", n)
	}
	s.WriteString(t.Elem.String())
	return s.String()
}

func (t Map) String() string {
	return "map[" + t.Key.String() + "]" + t.Elem.String()
}

func (t ByRef) String() string       { return "&" + t.Elem.String() }
func (t TypeParam) String() string   { return fmt.Sprintf("!%d", t.Index) }
func (t MethodParam) String() string { return fmt.Sprintf("!!%d", t.Index) }

func (t Constructed) String() string {
	s := &strings.Builder{}
	s.WriteString(t.Def.String())
	s.WriteString("[")
	for i, a := range t.Args {
		if i != 0 {
			s.WriteString(",")
		}
		s.WriteString(a.String())
	}
	s.WriteString("]")
	return s.String()
}

// Equal reports whether two shapes are structurally identical.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch a := a.(type) {
	case Builtin:
		b, ok := b.(Builtin)
		return ok && a.Code == b.Code
	case Named:
		b, ok := b.(Named)
		return ok && a == b
	case Pointer:
		b, ok := b.(Pointer)
		return ok && Equal(a.Elem, b.Elem)
	case Slice:
		b, ok := b.(Slice)
		return ok && Equal(a.Elem, b.Elem)
	case Array:
		b, ok := b.(Array)
		if !ok || len(a.Lens) != len(b.Lens) || !Equal(a.Elem, b.Elem) {
			return false
		}
		for i := range a.Lens {
			if a.Lens[i] != b.Lens[i] {
				return false
			}
		}
		return true
	case Map:
		b, ok := b.(Map)
		return ok && Equal(a.Key, b.Key) && Equal(a.Elem, b.Elem)
	case ByRef:
		b, ok := b.(ByRef)
		return ok && Equal(a.Elem, b.Elem)
	case TypeParam:
		b, ok := b.(TypeParam)
		return ok && a.Index == b.Index
	case MethodParam:
		b, ok := b.(MethodParam)
		return ok && a.Index == b.Index
	case Constructed:
		b, ok := b.(Constructed)
		if !ok || !Equal(a.Def, b.Def) || len(a.Args) != len(b.Args) {
			return false
		}
		for i := range a.Args {
			if !Equal(a.Args[i], b.Args[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// FromReflect builds the structural description of a runtime type.
func FromReflect(t reflect.Type) (Type, error) {
	if t == nil {
		return nil, ErrUnsupportedType
	}
	if t.Name() != "" {
		if t.PkgPath() == "" {
			// Predeclared type.
			if c, ok := CodeOf(t.Kind()); ok {
				return Builtin{Code: c}, nil
			}
			if t.Kind() == reflect.Interface && t.NumMethod() == 0 {
				return Builtin{Code: Any}, nil
			}
			return nil, ErrUnsupportedType
		}
		return Named{Module: t.PkgPath(), Name: t.Name()}, nil
	}
	switch t.Kind() {
	case reflect.Interface:
		if t.NumMethod() == 0 {
			return Builtin{Code: Any}, nil
		}
		return nil, ErrUnsupportedType
	case reflect.Pointer:
		elem, err := FromReflect(t.Elem())
		if err != nil {
			return nil, err
		}
		return Pointer{Elem: elem}, nil
	case reflect.Slice:
		elem, err := FromReflect(t.Elem())
		if err != nil {
			return nil, err
		}
		return Slice{Elem: elem}, nil
	case reflect.Array:
		lens := []int{}
		for t.Kind() == reflect.Array && t.Name() == "" {
			lens = append(lens, t.Len())
			t = t.Elem()
		}
		elem, err := FromReflect(t)
		if err != nil {
			return nil, err
		}
		return Array{Lens: lens, Elem: elem}, nil
	case reflect.Map:
		key, err := FromReflect(t.Key())
		if err != nil {
			return nil, err
		}
		elem, err := FromReflect(t.Elem())
		if err != nil {
			return nil, err
		}
		return Map{Key: key, Elem: elem}, nil
	}
	return nil, ErrUnsupportedType
}

// Resolver maps a module/name pair to a live runtime type.
type Resolver func(module, name string) (reflect.Type, bool)

// ToReflect resolves a structural description back to a runtime type.
// Shapes with no host-runtime analog (type variables, by-ref, constructed
// generics) resolve only inside entity definitions and return ErrNotConcrete
// here.
func ToReflect(t Type, resolve Resolver) (reflect.Type, error) {
	switch t := t.(type) {
	case Builtin:
		if rt, ok := codeTypes[t.Code]; ok {
			return rt, nil
		}
		return nil, ErrUnsupportedType
	case Named:
		if resolve != nil {
			if rt, ok := resolve(t.Module, t.Name); ok {
				return rt, nil
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrUnresolvedType, t)
	case Pointer:
		elem, err := ToReflect(t.Elem, resolve)
		if err != nil {
			return nil, err
		}
		return reflect.PointerTo(elem), nil
	case Slice:
		elem, err := ToReflect(t.Elem, resolve)
		if err != nil {
			return nil, err
		}
		return reflect.SliceOf(elem), nil
	case Array:
		elem, err := ToReflect(t.Elem, resolve)
		if err != nil {
			return nil, err
		}
		for i := len(t.Lens) - 1; i >= 0; i-- {
			elem = reflect.ArrayOf(t.Lens[i], elem)
		}
		return elem, nil
	case Map:
		key, err := ToReflect(t.Key, resolve)
		if err != nil {
			return nil, err
		}
		elem, err := ToReflect(t.Elem, resolve)
		if err != nil {
			return nil, err
		}
		return reflect.MapOf(key, elem), nil
	case ByRef, TypeParam, MethodParam, Constructed:
		return nil, ErrNotConcrete
	}
	return nil, ErrUnsupportedType
}
