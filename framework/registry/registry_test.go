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

package registry_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphwire/graphwire/framework/registry"
)

type widget struct{ ID int }
type gadget struct{ Label string }

func TestAddLookup(t *testing.T) {
	n := registry.NewNamespace()
	n.AddTypeOf(widget{})

	key, ok := registry.KeyOf(reflect.TypeOf(widget{}))
	require.True(t, ok)
	assert.Equal(t, reflect.TypeOf(widget{}), n.Lookup(key))
	assert.Nil(t, n.Lookup(registry.Key{Module: "m", Name: "missing"}))
}

func TestAddDuplicatePanics(t *testing.T) {
	n := registry.NewNamespace()
	n.AddTypeOf(widget{})
	assert.Panics(t, func() { n.AddTypeOf(&widget{}) })
}

func TestName(t *testing.T) {
	n := registry.NewNamespace()
	n.AddTypeOf(widget{})

	key, found := n.Name(reflect.TypeOf(widget{}))
	require.True(t, found)
	assert.Equal(t, "widget", key.Name)

	_, found = n.Name(reflect.TypeOf(gadget{}))
	assert.False(t, found)
}

func TestFallbacks(t *testing.T) {
	base := registry.NewNamespace()
	base.AddTypeOf(widget{})
	session := registry.NewNamespace(base)
	session.AddTypeOf(gadget{})

	wkey, _ := registry.KeyOf(reflect.TypeOf(widget{}))
	gkey, _ := registry.KeyOf(reflect.TypeOf(gadget{}))

	assert.Equal(t, reflect.TypeOf(widget{}), session.Lookup(wkey))
	assert.Equal(t, reflect.TypeOf(gadget{}), session.Lookup(gkey))
	assert.Nil(t, base.Lookup(gkey))
	assert.Equal(t, 2, session.Count())

	key, found := session.Name(reflect.TypeOf(widget{}))
	require.True(t, found)
	assert.Equal(t, wkey, key)
}

func TestAliases(t *testing.T) {
	n := registry.NewNamespace()
	n.AddTypeOf(widget{})
	current, _ := registry.KeyOf(reflect.TypeOf(widget{}))
	old := registry.Key{Module: "legacy/pkg", Name: "Widget"}
	n.AddAlias(current, old)

	assert.Equal(t, reflect.TypeOf(widget{}), n.Lookup(old))
}

func TestVisit(t *testing.T) {
	base := registry.NewNamespace()
	base.AddTypeOf(widget{})
	session := registry.NewNamespace(base)
	session.AddTypeOf(gadget{})

	seen := map[string]bool{}
	session.Visit(func(key registry.Key, _ reflect.Type) { seen[key.Name] = true })
	assert.Equal(t, map[string]bool{"widget": true, "gadget": true}, seen)

	direct := map[string]bool{}
	session.VisitDirect(func(key registry.Key, _ reflect.Type) { direct[key.Name] = true })
	assert.Equal(t, map[string]bool{"gadget": true}, direct)
}

func TestKeyOf(t *testing.T) {
	_, ok := registry.KeyOf(reflect.TypeOf([]int{}))
	assert.False(t, ok)
	_, ok = registry.KeyOf(reflect.TypeOf(0))
	assert.False(t, ok)
	key, ok := registry.KeyOf(reflect.TypeOf(widget{}))
	require.True(t, ok)
	assert.Contains(t, key.String(), "widget")
}

func TestAddNilPanics(t *testing.T) {
	n := registry.NewNamespace()
	assert.Panics(t, func() { n.Add(registry.Key{Name: "x"}, nil) })
	assert.Panics(t, func() { n.Add(registry.Key{}, reflect.TypeOf(0)) })
}
