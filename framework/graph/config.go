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
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/graphwire/graphwire/framework/registry"
)

// Manifest is the declarative engine configuration peers of a cluster
// share, so systems in different binaries agree on policies and renames
// without both sides carrying the same setup code.
type Manifest struct {
	// Embed maps a module name to the policy for its type definitions:
	// "value" embeds definitions, "name" writes references.
	Embed map[string]string `yaml:"embed"`
	// Aliases rename stream identities onto registered types, for reading
	// streams written before a type moved or was renamed.
	Aliases []Alias `yaml:"aliases"`
}

// Alias maps one stream identity onto another.
type Alias struct {
	From TypeName `yaml:"from"`
	To   TypeName `yaml:"to"`
}

// TypeName is a registry key in manifest form.
type TypeName struct {
	Module string `yaml:"module"`
	Name   string `yaml:"name"`
}

// ApplyManifest parses a YAML manifest and applies it to the engine.
func ApplyManifest(e *Engine, data []byte) error {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return errors.Wrap(err, "parsing manifest")
	}
	for module, policy := range m.Embed {
		switch policy {
		case "value":
			e.SetEmbedPolicy(module, ByValue)
		case "name":
			e.SetEmbedPolicy(module, ByName)
		default:
			return errors.Errorf("manifest: unknown embed policy %q for module %q", policy, module)
		}
	}
	for _, a := range m.Aliases {
		e.AddAlias(
			registry.Key{Module: a.To.Module, Name: a.To.Name},
			registry.Key{Module: a.From.Module, Name: a.From.Name},
		)
	}
	return nil
}
