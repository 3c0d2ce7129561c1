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

import (
	"github.com/graphwire/graphwire/core/fault"
	"github.com/graphwire/graphwire/framework/sig"
)

const (
	// ErrNotFound is returned by loaders and factories when an entity
	// reference names nothing they know.
	ErrNotFound = fault.Const("entity: not found")
	// ErrNotProvisional is returned when a define or seal call is given a
	// handle the factory did not mint, or one already sealed.
	ErrNotProvisional = fault.Const("entity: handle is not provisional")
)

// Resolver turns a structural shape into a live handle while a definition
// is being rebuilt. It may return provisional handles; the factory must
// accept them wherever a type reference can be cyclic.
type Resolver func(sig.Type) (Handle, error)

// Factory rebuilds entities from their definitions. The decoder drives it
// in phases: Declare mints a provisional handle as soon as an entity's
// name is read, Define fills in structure after the root value, Attribute
// attaches metadata, and Seal completes. Hosts that cannot rebuild
// entities leave the factory unset, in which case definitions decode to
// their model values.
type Factory interface {
	// DeclareUnit mints a provisional handle for a unit definition.
	DeclareUnit(name, version string) (Handle, error)
	// DeclareModule mints a provisional handle for a module of the unit.
	DeclareModule(unit Handle, name string) (Handle, error)
	// DeclareType mints a provisional handle for a type. declaring is the
	// enclosing type handle or nil for a top-level type.
	DeclareType(module Handle, name string, declaring Handle) (Handle, error)
	// DefineType fills in a provisional type from its definition. Shapes
	// inside def resolve through resolve and may come back provisional.
	DefineType(provisional Handle, def *TypeDef, resolve Resolver) error
	// Attribute attaches post-definition metadata to a provisional entity.
	Attribute(provisional Handle, metadata map[string]interface{}) error
	// Seal completes a provisional entity, returning the final handle.
	// After Seal the entity may be instantiated.
	Seal(provisional Handle) (Handle, error)
	// Member locates a member of a (possibly provisional) type by
	// reference. Members located before Seal must remain valid after.
	Member(declaring Handle, ref MemberRef) (Handle, error)
}

// Loader resolves entity references against what the host already has.
type Loader interface {
	// Unit finds an existing unit.
	Unit(ref UnitRef) (Handle, error)
	// Module finds an existing module.
	Module(ref ModuleRef) (Handle, error)
	// Type finds an existing type by module and qualified name.
	Type(module Handle, name string) (Handle, error)
	// Member finds a member of a loaded type.
	Member(declaring Handle, ref MemberRef) (Handle, error)
}
