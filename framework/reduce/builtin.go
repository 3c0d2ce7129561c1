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

package reduce

import (
	"fmt"
	"reflect"
	"time"
)

// Names of the builtin rebuilders carried on the wire.
const (
	MapRebuilder  = "builtin.map"
	TimeRebuilder = "builtin.time"
)

// Builtins returns a registry preloaded with the builtin reducers: every
// map kind reduces to parallel key and value slices, and time.Time (an
// exact entry, demonstrating precedence over any struct family entry)
// reduces to its epoch nanoseconds and zone.
func Builtins() *Registry {
	r := NewRegistry()

	r.AddFamily(reflect.Map, ReducerFunc(reduceMap))
	r.AddRebuilder(Rebuilder{Name: MapRebuilder, Fn: rebuildMap})

	r.AddExact(reflect.TypeOf(time.Time{}), ReducerFunc(reduceTime))
	r.AddRebuilder(Rebuilder{Name: TimeRebuilder, Fn: rebuildTime})

	return r
}

func reduceMap(t reflect.Type, v reflect.Value) (Reduction, error) {
	keys := reflect.MakeSlice(reflect.SliceOf(t.Key()), 0, v.Len())
	vals := reflect.MakeSlice(reflect.SliceOf(t.Elem()), 0, v.Len())
	it := v.MapRange()
	for it.Next() {
		keys = reflect.Append(keys, it.Key())
		vals = reflect.Append(vals, it.Value())
	}
	return Reduction{
		Rebuilder: MapRebuilder,
		Args:      []interface{}{keys.Interface(), vals.Interface()},
	}, nil
}

func rebuildMap(t reflect.Type, target interface{}, args []interface{}) (interface{}, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("reduce: map rebuilder wants (keys, values), got %d args", len(args))
	}
	keys := reflect.ValueOf(args[0])
	vals := reflect.ValueOf(args[1])
	if keys.Kind() != reflect.Slice || vals.Kind() != reflect.Slice || keys.Len() != vals.Len() {
		return nil, fmt.Errorf("reduce: map rebuilder wants parallel slices")
	}
	m := reflect.MakeMapWithSize(t, keys.Len())
	for i := 0; i < keys.Len(); i++ {
		m.SetMapIndex(keys.Index(i), vals.Index(i))
	}
	return m.Interface(), nil
}

func reduceTime(t reflect.Type, v reflect.Value) (Reduction, error) {
	tm := v.Interface().(time.Time)
	name, offset := tm.Zone()
	return Reduction{
		Rebuilder: TimeRebuilder,
		Args:      []interface{}{tm.UnixNano(), name, int64(offset)},
	}, nil
}

func rebuildTime(t reflect.Type, target interface{}, args []interface{}) (interface{}, error) {
	if len(args) != 3 {
		return nil, fmt.Errorf("reduce: time rebuilder wants (nanos, zone, offset), got %d args", len(args))
	}
	nanos, ok0 := args[0].(int64)
	name, ok1 := args[1].(string)
	offset, ok2 := args[2].(int64)
	if !ok0 || !ok1 || !ok2 {
		return nil, fmt.Errorf("reduce: time rebuilder argument types")
	}
	// FixedZone rather than a tzdata lookup: the pair came from the
	// producing host's clock, which may know zones this host does not.
	return time.Unix(0, nanos).In(time.FixedZone(name, int(offset))), nil
}
