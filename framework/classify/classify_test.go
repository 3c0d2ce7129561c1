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

package classify_test

import (
	"reflect"
	"sync"
	"testing"
	"time"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphwire/graphwire/framework/classify"
	"github.com/graphwire/graphwire/framework/entity"
	"github.com/graphwire/graphwire/framework/reduce"
	"github.com/graphwire/graphwire/framework/sig"
)

type tuple []interface{}

type custom interface {
	CollectFields() ([]string, []interface{})
	RestoreFields(names []string, values []interface{}) error
}

type record struct {
	Name    string
	Age     int
	secret  string
	Skipped bool `disable:"true"`
}

type node struct {
	Value int
	Next  *node
}

type color uint16

type heat float64

type tag string

type fancy struct{ V int }

func (f *fancy) CollectFields() ([]string, []interface{})    { return nil, nil }
func (f *fancy) RestoreFields([]string, []interface{}) error { return nil }

func newClassifier() *classify.Classifier {
	return classify.New(classify.Options{
		Reducers: reduce.Builtins(),
		Tuple:    reflect.TypeOf(tuple{}),
		Custom:   reflect.TypeOf((*custom)(nil)).Elem(),
	})
}

func TestModes(t *testing.T) {
	c := newClassifier()
	for _, test := range []struct {
		value    interface{}
		expected classify.Mode
	}{
		{int32(0), classify.Builtin},
		{"", classify.Builtin},
		{complex128(0), classify.Builtin},
		{color(0), classify.Enum},
		{heat(0), classify.Enum},
		{tag(""), classify.Enum},
		{[]int{}, classify.Sequence},
		{[4]string{}, classify.Sequence},
		{&record{}, classify.Pointer},
		{tuple{}, classify.Tuple},
		{reflect.TypeOf(0), classify.Entity},
		{&entity.TypeDef{}, classify.Entity},
		{entity.MemberRef{}, classify.Entity},
		{entity.Delegate{}, classify.Delegate},
		{&fancy{}, classify.Custom},
		{map[string]int{}, classify.Reduced},
		{time.Time{}, classify.Reduced},
		{record{}, classify.Auto},
	} {
		info := c.Of(reflect.TypeOf(test.value))
		require.NoError(t, info.Err(), "type %T", test.value)
		assert.Equal(t, test.expected, info.Mode, "type %T", test.value)
	}
}

func TestInterfaceSlots(t *testing.T) {
	c := newClassifier()
	info := c.Of(reflect.TypeOf((*interface{})(nil)).Elem())
	require.NoError(t, info.Err())
	assert.Equal(t, classify.Any, info.Mode)
}

func TestLazyErrors(t *testing.T) {
	c := newClassifier()
	for _, test := range []struct {
		rt       reflect.Type
		expected error
	}{
		{reflect.TypeOf(make(chan int)), classify.ErrLiveIdentity},
		{reflect.TypeOf(func() {}), classify.ErrLiveIdentity},
		{reflect.TypeOf(unsafe.Pointer(nil)), classify.ErrLiveIdentity},
		{reflect.TypeOf(new(int)), classify.ErrPointerElem},
	} {
		info := c.Of(test.rt)
		assert.Equal(t, classify.Invalid, info.Mode, "type %v", test.rt)
		assert.ErrorIs(t, info.Err(), test.expected, "type %v", test.rt)
	}
}

func TestErrApplicabilityIsLazy(t *testing.T) {
	// A struct holding a channel field classifies fine; the channel's
	// error belongs to the field type and surfaces only if a value of it
	// is serialized.
	type holder struct {
		Name string
		C    chan int
	}
	c := newClassifier()
	info := c.Of(reflect.TypeOf(holder{}))
	require.NoError(t, info.Err())
	assert.Equal(t, classify.Auto, info.Mode)

	field := c.Of(info.Fields[0].Type) // "C" sorts first
	assert.ErrorIs(t, field.Err(), classify.ErrLiveIdentity)
}

func TestAutoFields(t *testing.T) {
	c := newClassifier()
	info := c.Of(reflect.TypeOf(record{}))
	require.NoError(t, info.Err())

	names := []string{}
	for _, f := range info.Fields {
		names = append(names, f.Name)
	}
	// Exported only, disable:"true" skipped, sorted by name.
	assert.Equal(t, []string{"Age", "Name"}, names)
	assert.Equal(t, reflect.TypeOf(0), info.Fields[0].Type)
}

func TestEnumWidth(t *testing.T) {
	c := newClassifier()
	for _, test := range []struct {
		value interface{}
		code  sig.Code
	}{
		{color(0), sig.Uint16},
		{heat(0), sig.Float64},
		{tag(""), sig.String},
	} {
		info := c.Of(reflect.TypeOf(test.value))
		require.NoError(t, info.Err(), "type %T", test.value)
		assert.Equal(t, classify.Enum, info.Mode, "type %T", test.value)
		assert.Equal(t, test.code, info.Code, "type %T", test.value)
	}
}

func TestRecursiveType(t *testing.T) {
	c := newClassifier()
	info := c.Of(reflect.TypeOf(&node{}))
	require.NoError(t, info.Err())
	assert.Equal(t, classify.Pointer, info.Mode)

	elem := info.Elem
	require.NotNil(t, elem)
	assert.Equal(t, classify.Auto, elem.Mode)

	// Next's classification ties back to the same pointer info.
	next := c.Of(reflect.TypeOf(&node{}))
	assert.Same(t, info, next)
}

func TestSequenceElem(t *testing.T) {
	c := newClassifier()
	info := c.Of(reflect.TypeOf([][]uint8{}))
	require.NoError(t, info.Err())
	assert.Equal(t, classify.Sequence, info.Mode)
	require.NotNil(t, info.Elem)
	assert.Equal(t, classify.Sequence, info.Elem.Mode)
	assert.Equal(t, classify.Builtin, info.Elem.Elem.Mode)
}

func TestCacheStability(t *testing.T) {
	c := newClassifier()
	rt := reflect.TypeOf(record{})

	results := make([]*classify.Info, 16)
	wg := sync.WaitGroup{}
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Of(rt)
		}(i)
	}
	wg.Wait()
	for _, r := range results[1:] {
		assert.Same(t, results[0], r)
	}
}
