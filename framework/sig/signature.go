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

package sig

import (
	"fmt"
	"strings"
)

// Convention describes how a member binds to its declaring type.
type Convention uint8

const (
	// Static members take no receiver.
	Static Convention = iota
	// Instance members take their declaring type as an implicit receiver.
	Instance
	// Variadic members accept trailing arguments through their final
	// slice parameter.
	Variadic
)

func (c Convention) String() string {
	switch c {
	case Static:
		return "static"
	case Instance:
		return "instance"
	case Variadic:
		return "variadic"
	}
	return fmt.Sprintf("convention(%d)", uint8(c))
}

// Signature identifies a member of a type by name, calling convention and
// parameter shapes. Two signatures are interchangeable exactly when Equal
// reports true; the comparison never consults live handles, so a signature
// captured against a provisional type still locates the member after the
// type is sealed.
type Signature struct {
	// Name is the member's simple name. Constructors use the empty name.
	Name string
	// Convention is the member's binding convention.
	Convention Convention
	// GenericArity is the number of method-level type variables.
	GenericArity int
	// Return is the result shape, or nil for members returning nothing.
	Return Type
	// Params are the parameter shapes in declaration order. A receiver is
	// implied by Convention, never listed.
	Params []Type
}

// Equal reports whether two signatures identify the same member.
func (s Signature) Equal(o Signature) bool {
	if s.Name != o.Name ||
		s.Convention != o.Convention ||
		s.GenericArity != o.GenericArity ||
		len(s.Params) != len(o.Params) {
		return false
	}
	if !Equal(s.Return, o.Return) {
		return false
	}
	for i := range s.Params {
		if !Equal(s.Params[i], o.Params[i]) {
			return false
		}
	}
	return true
}

func (s Signature) String() string {
	b := &strings.Builder{}
	if s.Return != nil {
		b.WriteString(s.Return.String())
		b.WriteString(" ")
	}
	b.WriteString(s.Name)
	if s.GenericArity > 0 {
		fmt.Fprintf(b, "`%d", s.GenericArity)
	}
	b.WriteString("(")
	for i, p := range s.Params {
		if i != 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.String())
	}
	if s.Convention == Variadic {
		b.WriteString("...")
	}
	b.WriteString(")")
	return b.String()
}
