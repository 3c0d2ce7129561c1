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

// Package fault holds the error primitives shared by the wire packages.
package fault

// Const is the type for constant error values.
// It allows sentinel errors to be declared as untyped string constants.
type Const string

// Error implements error for Const returning the string value of the const.
func (e Const) Error() string { return string(e) }

// One collects only the first error it is handed, dropping the rest.
// A zero One is ready to use.
type One struct{ err error }

// Collect records err if no error has been recorded yet.
func (o *One) Collect(err error) {
	if o.err != nil || err == nil {
		return
	}
	o.err = err
}

// First returns the first error collected, or nil.
func (o *One) First() error { return o.err }

// From converts from any recovered value to an error safely.
// A nil stays nil, an error passes through, anything else becomes
// InvalidErrorType.
func From(value interface{}) error {
	switch err := value.(type) {
	case nil:
		return nil
	case error:
		return err
	default:
		return InvalidErrorType
	}
}

// InvalidErrorType is the error returned by From when the value is not an error.
const InvalidErrorType = Const("Invalid type for error")
