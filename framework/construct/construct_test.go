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

package construct_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphwire/graphwire/framework/construct"
	"github.com/graphwire/graphwire/framework/entity"
	"github.com/graphwire/graphwire/framework/entity/enttest"
)

func TestQueuePhaseOrder(t *testing.T) {
	q := construct.NewQueue()
	order := []string{}
	note := func(s string) func() error {
		return func() error { order = append(order, s); return nil }
	}

	require.NoError(t, q.Enqueue(construct.Completion, note("complete")))
	require.NoError(t, q.Enqueue(construct.Definition, note("define")))
	require.NoError(t, q.Enqueue(construct.Attribution, note("attribute")))

	require.NoError(t, q.Drain())
	assert.Equal(t, []string{"define", "attribute", "complete"}, order)
}

func TestQueueAppendsDuringDrain(t *testing.T) {
	q := construct.NewQueue()
	order := []string{}

	require.NoError(t, q.Enqueue(construct.Definition, func() error {
		order = append(order, "first")
		// A definition may itself declare another entity, whose
		// definition lands on the phase currently draining.
		return q.Enqueue(construct.Definition, func() error {
			order = append(order, "nested")
			return nil
		})
	}))

	require.NoError(t, q.Drain())
	assert.Equal(t, []string{"first", "nested"}, order)
}

func TestQueueRejectsDrainedPhase(t *testing.T) {
	q := construct.NewQueue()
	var fromLater error
	require.NoError(t, q.Enqueue(construct.Attribution, func() error {
		fromLater = q.Enqueue(construct.Definition, func() error { return nil })
		return nil
	}))
	require.NoError(t, q.Drain())
	assert.ErrorIs(t, fromLater, construct.ErrPhaseDrained)
}

func TestQueuePropagatesErrors(t *testing.T) {
	q := construct.NewQueue()
	ran := false
	require.NoError(t, q.Enqueue(construct.Definition, func() error {
		return assert.AnError
	}))
	require.NoError(t, q.Enqueue(construct.Attribution, func() error {
		ran = true
		return nil
	}))
	assert.ErrorIs(t, q.Drain(), assert.AnError)
	assert.False(t, ran)
}

func declared(t *testing.T, a *construct.Arena, f *enttest.Factory, name string) *construct.Constructing {
	t.Helper()
	h, err := f.DeclareType(nil, name, nil)
	require.NoError(t, err)
	c := a.Declare(entity.KindType, name, h)
	c.OnSeal(func() (entity.Handle, error) { return f.Seal(h) })
	return c
}

func TestArenaAcyclic(t *testing.T) {
	f := enttest.New()
	a := construct.NewArena()
	base := declared(t, a, f, "base")
	derived := declared(t, a, f, "derived")
	derived.AddDep(base)

	for _, c := range []*construct.Constructing{base, derived} {
		require.NoError(t, f.DefineType(c.Provisional, &entity.TypeDef{Name: c.Name}, nil))
		c.Defined = true
	}

	require.NoError(t, a.CompleteAll())
	assert.True(t, base.Sealed.Complete())
	assert.True(t, derived.Sealed.Complete())
	// base seals first: derived depends on it.
	assert.Contains(t, f.Journal, "seal type:base")
}

func TestArenaSelfCycle(t *testing.T) {
	f := enttest.New()
	a := construct.NewArena()
	node := declared(t, a, f, "node")
	node.AddDep(node) // self references are dropped
	require.NoError(t, f.DefineType(node.Provisional, &entity.TypeDef{Name: "node"}, nil))
	node.Defined = true

	require.NoError(t, a.CompleteAll())
	assert.True(t, node.Sealed.Complete())
}

func TestArenaMutualCycle(t *testing.T) {
	f := enttest.New()
	a := construct.NewArena()
	odd := declared(t, a, f, "odd")
	even := declared(t, a, f, "even")
	odd.AddDep(even)
	even.AddDep(odd)
	for _, c := range []*construct.Constructing{odd, even} {
		require.NoError(t, f.DefineType(c.Provisional, &entity.TypeDef{Name: c.Name}, nil))
		c.Defined = true
	}

	require.NoError(t, a.CompleteAll())
	assert.True(t, odd.Sealed.Complete())
	assert.True(t, even.Sealed.Complete())
}

func TestArenaResolveCycleIsAssumed(t *testing.T) {
	f := enttest.New()
	a := construct.NewArena()
	c := declared(t, a, f, "ring")
	c.Defined = true

	assumed := map[*construct.Constructing]bool{c: true}
	st, err := a.Resolve(c, assumed)
	require.NoError(t, err)
	assert.Equal(t, construct.AssumedComplete, st)
	assert.Nil(t, c.Sealed, "an assumed entity must not seal")
}

func TestArenaUndefinedEntity(t *testing.T) {
	f := enttest.New()
	a := construct.NewArena()
	c := declared(t, a, f, "ghost")
	_ = c // declared, never defined

	assert.ErrorIs(t, a.CompleteAll(), construct.ErrNotDefined)
}

func TestArenaUndefinedDependencyIsNamed(t *testing.T) {
	f := enttest.New()
	a := construct.NewArena()
	outer := declared(t, a, f, "outer")
	ghost := declared(t, a, f, "ghost")
	outer.AddDep(ghost)
	require.NoError(t, f.DefineType(outer.Provisional, &entity.TypeDef{Name: "outer"}, nil))
	outer.Defined = true

	err := a.CompleteAll()
	assert.ErrorIs(t, err, construct.ErrNotDefined)
	// The diagnosis blames the entity whose definition never arrived.
	assert.ErrorContains(t, err, `"ghost"`)
}

func TestArenaGet(t *testing.T) {
	f := enttest.New()
	a := construct.NewArena()
	c := declared(t, a, f, "first")
	assert.Equal(t, c, a.Get(0))
	assert.Equal(t, 0, c.ID())
	assert.Nil(t, a.Get(1))
	assert.Nil(t, a.Get(-1))
	assert.Equal(t, 1, a.Len())
}
