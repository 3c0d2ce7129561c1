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

package entity

import "github.com/graphwire/graphwire/framework/sig"

// UnitRef names an existing unit.
type UnitRef struct {
	Name    string
	Version string
}

// ModuleRef names an existing module within a unit.
type ModuleRef struct {
	Unit UnitRef
	Name string
}

// UnitDef is the full description of a unit.
type UnitDef struct {
	Name    string
	Version string
	Modules []*ModuleDef
}

// Module returns the named module, or nil.
func (u *UnitDef) Module(name string) *ModuleDef {
	for _, m := range u.Modules {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// ModuleDef is the full description of a module.
type ModuleDef struct {
	Name string
	// Unit is the unit the module belongs to, nil while free-standing.
	Unit  *UnitDef
	Types []*TypeDef
}

// Type returns the named top-level type, or nil.
func (m *ModuleDef) Type(name string) *TypeDef {
	for _, t := range m.Types {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// TypeFlags carry the shape attributes of a type definition.
type TypeFlags uint32

const (
	FlagInterface TypeFlags = 1 << iota
	FlagAbstract
	FlagSealed
	FlagEnum
	FlagValue
)

// TypeDef is the full description of a type. Bases, interfaces and member
// shapes refer to other types structurally through sig.Type, so a
// definition never holds a live handle and can describe cycles.
type TypeDef struct {
	Module    *ModuleDef
	Declaring *TypeDef
	Name      string
	Flags     TypeFlags
	// GenericParams names the type variables, positionally matching
	// sig.TypeParam indices in member shapes.
	GenericParams []string
	Base          sig.Type
	Interfaces    []sig.Type
	// EnumBase is the underlying scalar of an enum definition.
	EnumBase   sig.Code
	Fields     []*FieldDef
	Ctors      []*MethodDef
	Methods    []*MethodDef
	Properties []*PropertyDef
	Events     []*EventDef
	// Metadata is attached after definition, in its own trailer phase, so
	// metadata values may themselves be instances of types defined by the
	// same stream.
	Metadata map[string]interface{}
}

// QualifiedName is the type's name including any declaring chain.
func (t *TypeDef) QualifiedName() string {
	if t.Declaring != nil {
		return t.Declaring.QualifiedName() + "." + t.Name
	}
	return t.Name
}

// Shape is the structural reference to this definition.
func (t *TypeDef) Shape() sig.Named {
	module := ""
	if t.Module != nil {
		module = t.Module.Name
	}
	return sig.Named{Module: module, Name: t.QualifiedName()}
}

// Field returns the named field, or nil.
func (t *TypeDef) Field(name string) *FieldDef {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Method returns the method matching the signature, or nil.
func (t *TypeDef) Method(s sig.Signature) *MethodDef {
	for _, m := range t.Methods {
		if m.Sig.Equal(s) {
			return m
		}
	}
	return nil
}

// Ctor returns the constructor matching the signature, or nil.
func (t *TypeDef) Ctor(s sig.Signature) *MethodDef {
	for _, c := range t.Ctors {
		if c.Sig.Equal(s) {
			return c
		}
	}
	return nil
}

// Property returns the named property, or nil.
func (t *TypeDef) Property(name string) *PropertyDef {
	for _, p := range t.Properties {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Event returns the named event, or nil.
func (t *TypeDef) Event(name string) *EventDef {
	for _, e := range t.Events {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// FieldDef is a data member.
type FieldDef struct {
	Name   string
	Type   sig.Type
	Static bool
}

// MethodDef is a callable member. Body is the method's portable
// instruction stream with member references externalized into Tokens;
// instruction operands index Tokens, so bodies stay byte-copyable while
// references relocate with the stream.
type MethodDef struct {
	Sig      sig.Signature
	Abstract bool
	Body     []byte
	Tokens   []MemberRef
}

// PropertyDef is an accessor pair. Getter and Setter, when present, also
// appear in the declaring type's Methods; a property only groups them.
type PropertyDef struct {
	Name    string
	Type    sig.Type
	Indexes []sig.Type
	Getter  *MethodDef
	Setter  *MethodDef
}

// EventDef is a subscription point.
type EventDef struct {
	Name   string
	Type   sig.Type
	Add    *MethodDef
	Remove *MethodDef
}

// MemberRef names a member of a type without holding a handle to it.
type MemberRef struct {
	Kind      Kind
	Declaring sig.Type
	Sig       sig.Signature
}

// Equal reports whether two references name the same member.
func (r MemberRef) Equal(o MemberRef) bool {
	return r.Kind == o.Kind &&
		sig.Equal(r.Declaring, o.Declaring) &&
		r.Sig.Equal(o.Sig)
}

// Invocation is one entry of a delegate's invocation list.
type Invocation struct {
	// Target is the bound receiver, nil for static methods.
	Target interface{}
	// Method names the invoked member.
	Method MemberRef
}

// Delegate is a multicast callable value: a delegate type plus its
// invocation list in combination order.
type Delegate struct {
	Type        sig.Type
	Invocations []Invocation
}
