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

// Package classify decides, once per type, how the graph codec treats
// values of that type.
//
// Classification is total: every type gets an Info, and types that cannot
// be serialized get one carrying a lazy error. The error surfaces only
// when a value of the type actually reaches the codec, so a struct may
// hold an os.File field as long as no serialized instance ever does.
package classify

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/graphwire/graphwire/core/fault"
	"github.com/graphwire/graphwire/framework/entity"
	"github.com/graphwire/graphwire/framework/reduce"
	"github.com/graphwire/graphwire/framework/sig"
)

const (
	// ErrLiveIdentity marks types whose values are handles to live state
	// (channels, funcs, unsafe pointers) with no portable form.
	ErrLiveIdentity = fault.Const("classify: type holds live identity")
	// ErrPointerElem marks pointer types whose element is not a struct.
	ErrPointerElem = fault.Const("classify: only pointers to structs are supported")
	// ErrUnsupported marks types with no serialization strategy at all.
	ErrUnsupported = fault.Const("classify: no serialization strategy for type")
)

// Mode is the serialization strategy chosen for a type.
type Mode uint8

const (
	// Invalid types carry a lazy error instead of a strategy.
	Invalid Mode = iota
	// Builtin scalars write their value directly.
	Builtin
	// Enum covers defined scalar types: a type reference then the
	// underlying value, so the name survives interface slots.
	Enum
	// Sequence covers slices and arrays.
	Sequence
	// Pointer covers pointers to structs.
	Pointer
	// Any covers interface slots: the dynamic value is written tagged.
	Any
	// Tuple is the codec's heterogeneous value list.
	Tuple
	// Entity covers reflective descriptions: runtime types and the
	// entity model values.
	Entity
	// Delegate is a multicast callable value.
	Delegate
	// Reduced types collapse through a registered reducer.
	Reduced
	// Custom types collect and restore their own field list.
	Custom
	// Auto structs serialize exported fields in sorted order.
	Auto

	modeCount
)

var modeNames = [modeCount]string{
	"invalid", "builtin", "enum", "sequence", "pointer", "any",
	"tuple", "entity", "delegate", "reduced", "custom", "auto",
}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

// Field is one serialized field of an Auto struct.
type Field struct {
	Name  string
	Index int
	Type  reflect.Type
}

// Info is the classification of one type. Infos are built once per engine
// and shared; they are immutable after publication.
type Info struct {
	Type reflect.Type
	Mode Mode
	// Code is the scalar code for Builtin, or the underlying scalar
	// code for Enum.
	Code sig.Code
	// Elem is the element classification for Sequence and Pointer.
	Elem *Info
	// Fields are the Auto fields, sorted by name.
	Fields []Field
	// Reducer is set for Reduced.
	Reducer reduce.Reducer

	err error
}

// Err returns the type's recorded classification error, nil for usable
// types.
func (i *Info) Err() error { return i.err }

// Options inject the codec level types the classifier must recognize
// without importing the codec.
type Options struct {
	// Reducers is consulted for Reduced classification.
	Reducers *reduce.Registry
	// Tuple is the codec's tuple type.
	Tuple reflect.Type
	// Custom is the codec's custom serialization interface type.
	Custom reflect.Type
}

var (
	reflectType  = reflect.TypeOf((*reflect.Type)(nil)).Elem()
	delegateType = reflect.TypeOf(entity.Delegate{})

	// entityModels are the model values that classify as Entity.
	entityModels = map[reflect.Type]bool{
		reflect.TypeOf(&entity.UnitDef{}):     true,
		reflect.TypeOf(&entity.ModuleDef{}):   true,
		reflect.TypeOf(&entity.TypeDef{}):     true,
		reflect.TypeOf(&entity.FieldDef{}):    true,
		reflect.TypeOf(&entity.MethodDef{}):   true,
		reflect.TypeOf(&entity.PropertyDef{}): true,
		reflect.TypeOf(&entity.EventDef{}):    true,
		reflect.TypeOf(entity.UnitRef{}):      true,
		reflect.TypeOf(entity.ModuleRef{}):    true,
		reflect.TypeOf(entity.MemberRef{}):    true,
		reflect.TypeOf(sig.TypeParam{}):       true,
		reflect.TypeOf(sig.MethodParam{}):     true,
	}
)

// IsEntityModel reports whether a type is one of the entity model types.
func IsEntityModel(t reflect.Type) bool {
	return entityModels[t]
}

// Classifier computes and caches type classifications. Safe for
// concurrent use; concurrent classification of the same type is collapsed
// to one build, first write wins.
type Classifier struct {
	opts  Options
	cache sync.Map // reflect.Type -> *Info
	group singleflight.Group
}

// New creates a classifier with the given codec hooks.
func New(opts Options) *Classifier {
	return &Classifier{opts: opts}
}

// Of returns the classification of t.
func (c *Classifier) Of(t reflect.Type) *Info {
	if v, found := c.cache.Load(t); found {
		return v.(*Info)
	}
	key := strconv.FormatUint(uint64(reflect.ValueOf(t).Pointer()), 16)
	v, _, _ := c.group.Do(key, func() (interface{}, error) {
		building := map[reflect.Type]*Info{}
		info := c.build(t, building)
		for bt, bi := range building {
			c.cache.LoadOrStore(bt, bi)
		}
		return info, nil
	})
	// Another goroutine may have published first; honor its copy.
	if cached, found := c.cache.Load(t); found {
		return cached.(*Info)
	}
	return v.(*Info)
}

// build fills in the classification of t, recursing through element types.
// building carries the infos of the current chain so recursive types tie
// back to the in-progress record instead of recursing forever.
func (c *Classifier) build(t reflect.Type, building map[reflect.Type]*Info) *Info {
	if v, found := c.cache.Load(t); found {
		return v.(*Info)
	}
	if info, found := building[t]; found {
		return info
	}
	info := &Info{Type: t}
	building[t] = info

	switch {
	case t.Kind() == reflect.UnsafePointer,
		t.Kind() == reflect.Chan,
		t.Kind() == reflect.Func:
		info.err = fmt.Errorf("%w: %v", ErrLiveIdentity, t)

	case c.opts.Tuple != nil && t == c.opts.Tuple:
		info.Mode = Tuple

	case t == delegateType:
		info.Mode = Delegate

	case t.Implements(reflectType), IsEntityModel(t):
		info.Mode = Entity

	case c.opts.Custom != nil && t.Implements(c.opts.Custom):
		info.Mode = Custom

	case c.reducerOf(t, info):
		// info filled by reducerOf

	case t.Kind() == reflect.Interface:
		info.Mode = Any

	case t.PkgPath() == "" && isScalar(t.Kind()):
		info.Mode = Builtin
		info.Code, _ = sig.CodeOf(t.Kind())

	case t.PkgPath() != "" && isScalar(t.Kind()):
		info.Mode = Enum
		info.Code, _ = sig.CodeOf(t.Kind())

	case t.Kind() == reflect.Slice, t.Kind() == reflect.Array:
		info.Mode = Sequence
		info.Elem = c.build(t.Elem(), building)

	case t.Kind() == reflect.Pointer:
		if t.Elem().Kind() != reflect.Struct {
			info.err = fmt.Errorf("%w: %v", ErrPointerElem, t)
			break
		}
		info.Mode = Pointer
		info.Elem = c.build(t.Elem(), building)

	case t.Kind() == reflect.Struct:
		info.Mode = Auto
		info.Fields = autoFields(t)

	default:
		info.err = fmt.Errorf("%w: %v", ErrUnsupported, t)
	}
	return info
}

func (c *Classifier) reducerOf(t reflect.Type, info *Info) bool {
	if c.opts.Reducers == nil {
		return false
	}
	reducer, found := c.opts.Reducers.Lookup(t)
	if !found {
		return false
	}
	info.Mode = Reduced
	info.Reducer = reducer
	return true
}

func isScalar(k reflect.Kind) bool {
	switch k {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128:
		return true
	}
	return false
}

// autoFields collects the exported fields of a struct, sorted by name.
// Fields tagged disable:"true" are skipped. Embedded structs serialize as
// ordinary named fields; their members are not promoted.
func autoFields(t reflect.Type) []Field {
	fields := []Field{}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			continue
		}
		if f.Tag.Get("disable") == "true" {
			continue
		}
		fields = append(fields, Field{Name: f.Name, Index: i, Type: f.Type})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
	return fields
}
