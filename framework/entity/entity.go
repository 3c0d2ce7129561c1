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

// Package entity models units, modules, types and their members as plain
// data, independent of whether a host can rebuild them.
//
// Streams carry two forms of every entity: a reference (name plus enough
// context to find an existing one) and a definition (the full structural
// description). Definitions decode through a Factory, which mints a
// provisional handle first so members and cyclic bases can point at the
// entity before it is sealed.
package entity

import "fmt"

// Kind discriminates the entities a stream can carry.
type Kind uint8

const (
	KindInvalid Kind = iota
	// KindUnit is a deployable collection of modules.
	KindUnit
	// KindModule is a namespace of type definitions within a unit.
	KindModule
	// KindType is a type definition.
	KindType
	// KindField is a data member of a type.
	KindField
	// KindCtor is a constructor of a type.
	KindCtor
	// KindMethod is a callable member of a type.
	KindMethod
	// KindProperty is an accessor pair over a type.
	KindProperty
	// KindEvent is a subscription point on a type.
	KindEvent

	kindCount
)

var kindNames = [kindCount]string{
	"invalid", "unit", "module", "type",
	"field", "ctor", "method", "property", "event",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Handle is a live entity held by a host. A handle starts provisional,
// usable as a reference target, and becomes complete once its entity is
// sealed. Only complete handles license instance creation.
type Handle interface {
	// EntityKind reports what the handle refers to.
	EntityKind() Kind
	// EntityName is the entity's qualified name.
	EntityName() string
	// Complete reports whether the entity has been sealed.
	Complete() bool
}
