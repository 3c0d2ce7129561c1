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

// Tuple is a heterogeneous value list with its own wire form: each element
// carries its tag, so a tuple can mix scalars, objects and nils freely.
type Tuple []interface{}

// Custom lets a type take over its own serialization. Implementers hand
// the codec an ordered name/value list on the way out and are handed the
// same list back on the way in. The decode side value is allocated with
// its zero value and memoized before RestoreFields runs, so cyclic graphs
// through Custom values work.
type Custom interface {
	// CollectFields returns the names and values to serialize, in order.
	CollectFields() (names []string, values []interface{})
	// RestoreFields is called with the decoded names and values.
	RestoreFields(names []string, values []interface{}) error
}
