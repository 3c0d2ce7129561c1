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
	"reflect"

	"github.com/graphwire/graphwire/framework/registry"
	"github.com/graphwire/graphwire/framework/sig"
)

// shapeOf describes a runtime type structurally. A registered stream
// identity wins over the type's own package path at every nesting level,
// so renames configured on the registry reach element types too.
func (e *Engine) shapeOf(t reflect.Type) (sig.Type, error) {
	if key, found := e.registry.Name(t); found {
		return sig.Named{Module: key.Module, Name: key.Name}, nil
	}
	if t.Name() != "" && t.PkgPath() != "" {
		return sig.Named{Module: t.PkgPath(), Name: t.Name()}, nil
	}
	switch t.Kind() {
	case reflect.Pointer:
		elem, err := e.shapeOf(t.Elem())
		if err != nil {
			return nil, err
		}
		return sig.Pointer{Elem: elem}, nil
	case reflect.Slice:
		elem, err := e.shapeOf(t.Elem())
		if err != nil {
			return nil, err
		}
		return sig.Slice{Elem: elem}, nil
	case reflect.Array:
		lens := []int{}
		for t.Kind() == reflect.Array && t.Name() == "" {
			lens = append(lens, t.Len())
			t = t.Elem()
		}
		elem, err := e.shapeOf(t)
		if err != nil {
			return nil, err
		}
		return sig.Array{Lens: lens, Elem: elem}, nil
	case reflect.Map:
		key, err := e.shapeOf(t.Key())
		if err != nil {
			return nil, err
		}
		elem, err := e.shapeOf(t.Elem())
		if err != nil {
			return nil, err
		}
		return sig.Map{Key: key, Elem: elem}, nil
	}
	return sig.FromReflect(t)
}

// resolveShape turns a structural shape back into a runtime type using the
// engine's registry.
func (e *Engine) resolveShape(shape sig.Type) (reflect.Type, error) {
	rt, err := sig.ToReflect(shape, func(module, name string) (reflect.Type, bool) {
		if t := e.registry.Lookup(registry.Key{Module: module, Name: name}); t != nil {
			return t, true
		}
		return nil, false
	})
	if err != nil {
		return nil, &ResolutionError{Name: shape.String(), Err: err}
	}
	return rt, nil
}

// blockable reports whether sequences with this element type move as one
// raw memory block. The decision is a function of the type alone, never of
// a particular value, so both directions always agree. Only fixed-width
// kinds qualify; platform-width integers stay on the per-element path.
func blockable(elem reflect.Type) bool {
	switch elem.Kind() {
	case reflect.Bool,
		reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128:
		return true
	}
	return false
}
