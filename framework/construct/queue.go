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

// Package construct sequences the rebuilding of entities that a stream
// defines.
//
// A definition is split across phases: the entity is declared inline where
// it first appears, its structure is filled in after the root value, its
// metadata is attached after all structure exists, and finally every
// provisional entity is sealed. The Queue holds the deferred phases; the
// Arena tracks what each constructing entity still needs before it can be
// sealed.
package construct

import (
	"fmt"

	"github.com/graphwire/graphwire/core/fault"
)

// Phase orders the deferred stages of entity construction.
type Phase uint8

const (
	// Definition fills in the structure of declared entities.
	Definition Phase = iota
	// Attribution attaches metadata. It runs after Definition so metadata
	// values can be instances of types the same stream defines.
	Attribution
	// Completion seals every remaining provisional entity.
	Completion

	phaseCount
)

func (p Phase) String() string {
	switch p {
	case Definition:
		return "definition"
	case Attribution:
		return "attribution"
	case Completion:
		return "completion"
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

// ErrPhaseDrained is returned when work arrives for a phase that has
// already run. A correct stream can only do this through corruption, so it
// fails loudly rather than running the work late.
const ErrPhaseDrained = fault.Const("construct: phase already drained")

// Queue holds deferred construction work, indexed by phase.
type Queue struct {
	work   [phaseCount][]func() error
	active Phase
	begun  bool
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue adds work to a phase. Work may be added to the phase currently
// draining (it runs in this drain), but never to an earlier one.
func (q *Queue) Enqueue(p Phase, fn func() error) error {
	if p >= phaseCount {
		return fmt.Errorf("construct: unknown phase %v", p)
	}
	if q.begun && p < q.active {
		return fmt.Errorf("%w: %v", ErrPhaseDrained, p)
	}
	q.work[p] = append(q.work[p], fn)
	return nil
}

// Pending reports how much work a phase still holds.
func (q *Queue) Pending(p Phase) int {
	return len(q.work[p])
}

// Drain runs all phases in order. Work appended to the active phase while
// it drains still runs; the first error aborts the drain.
func (q *Queue) Drain() error {
	q.begun = true
	for p := Phase(0); p < phaseCount; p++ {
		q.active = p
		for i := 0; i < len(q.work[p]); i++ {
			if err := q.work[p][i](); err != nil {
				return err
			}
		}
		q.work[p] = nil
	}
	q.active = phaseCount
	return nil
}
