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

package fault_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/graphwire/graphwire/core/fault"
)

const errSentinel = fault.Const("a sentinel")

func TestConstIsComparable(t *testing.T) {
	wrapped := errors.Wrap(errSentinel, "context")
	assert.ErrorIs(t, wrapped, errSentinel)
	assert.Equal(t, "a sentinel", errSentinel.Error())
}

func TestOneKeepsFirst(t *testing.T) {
	o := &fault.One{}
	assert.NoError(t, o.First())
	o.Collect(nil)
	assert.NoError(t, o.First())
	o.Collect(errSentinel)
	o.Collect(fault.Const("later"))
	assert.Equal(t, error(errSentinel), o.First())
}

func TestFrom(t *testing.T) {
	assert.NoError(t, fault.From(nil))
	assert.Equal(t, error(errSentinel), fault.From(errSentinel))
	assert.Equal(t, error(fault.InvalidErrorType), fault.From("panic text"))
}
