/*
   Copyright 2025 The DIRPX Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"slices"

	"gopkg.in/yaml.v3"

	"dirpx.dev/mef/identity"
	"dirpx.dev/mef/part"
	"dirpx.dev/mef/primitives"
)

// ErrInvalidManifest is returned for a manifest that cannot describe parts.
var ErrInvalidManifest = errors.New("mef(catalog): invalid manifest")

// Manifest describes part definitions:
//
//	parts:
//	  - name: config
//	    creationPolicy: shared
//	    exports:
//	      - contract: Port
//	        value: 8080
//	        version: 1.4.0
//	  - name: server
//	    imports:
//	      - contract: Port
//	        version: ">= 1.0"
//	    exports:
//	      - contract: ListenPort
//	        from: Port
//
// An export either carries a literal value or re-exports what one of the
// part's imports received.
type Manifest struct {
	Parts []PartSpec `yaml:"parts"`
}

// PartSpec describes one part.
type PartSpec struct {
	Name           string         `yaml:"name"`
	CreationPolicy string         `yaml:"creationPolicy,omitempty"`
	Metadata       map[string]any `yaml:"metadata,omitempty"`
	Exports        []ExportSpec   `yaml:"exports,omitempty"`
	Imports        []ImportSpec   `yaml:"imports,omitempty"`
}

// ExportSpec describes one export. Exactly one of Value and From is set.
type ExportSpec struct {
	Contract string         `yaml:"contract"`
	Value    any            `yaml:"value,omitempty"`
	From     string         `yaml:"from,omitempty"`
	Version  string         `yaml:"version,omitempty"`
	Metadata map[string]any `yaml:"metadata,omitempty"`
}

// ImportSpec describes one import.
type ImportSpec struct {
	Contract     string   `yaml:"contract"`
	Cardinality  string   `yaml:"cardinality,omitempty"`
	Recomposable bool     `yaml:"recomposable,omitempty"`
	Prerequisite bool     `yaml:"prerequisite,omitempty"`
	Metadata     []string `yaml:"metadata,omitempty"`
	Version      string   `yaml:"version,omitempty"`
}

// ParseManifest decodes a YAML manifest. Unknown fields are rejected.
func ParseManifest(data []byte) (*Manifest, error) {
	return DecodeManifest(bytes.NewReader(data))
}

// DecodeManifest decodes a YAML manifest from r.
func DecodeManifest(r io.Reader) (*Manifest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var m Manifest
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}
	return &m, nil
}

// LoadFS reads and decodes the manifest at path in fsys.
func LoadFS(fsys fs.FS, path string) (*Manifest, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return m, nil
}

// Definitions turns every part of the manifest into a part definition.
func (m *Manifest) Definitions() ([]primitives.ComposablePartDefinition, error) {
	var out []primitives.ComposablePartDefinition
	var errs []error
	for i, ps := range m.Parts {
		def, err := ps.Definition()
		if err != nil {
			errs = append(errs, fmt.Errorf("part %d (%s): %w", i, ps.Name, err))
			continue
		}
		out = append(out, def)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}

// Catalog returns a catalog of the manifest's parts.
func (m *Manifest) Catalog() (*Catalog, error) {
	defs, err := m.Definitions()
	if err != nil {
		return nil, err
	}
	return New(defs...)
}

// Definition validates the part description and returns its definition.
func (ps PartSpec) Definition() (*part.Definition, error) {
	policy, err := primitives.ParseCreationPolicy(ps.CreationPolicy)
	if err != nil {
		return nil, err
	}
	imports := make([]string, 0, len(ps.Imports))
	for _, is := range ps.Imports {
		if _, err := primitives.ParseCardinality(is.Cardinality); err != nil {
			return nil, fmt.Errorf("import %s: %w", is.Contract, err)
		}
		imports = append(imports, is.Contract)
	}
	for _, es := range ps.Exports {
		switch {
		case es.From != "" && es.Value != nil:
			return nil, fmt.Errorf("%w: export %s sets both value and from", ErrInvalidManifest, es.Contract)
		case es.From != "" && !slices.Contains(imports, es.From):
			return nil, fmt.Errorf("%w: export %s is from %s, which the part does not import", ErrInvalidManifest, es.Contract, es.From)
		}
	}
	return part.NewDefinition(func() *part.Builder { return ps.builder(policy) })
}

// builder assembles a fresh part. Each part keeps the exports its imports
// received so that From exports can hand them on.
func (ps PartSpec) builder(policy primitives.CreationPolicy) *part.Builder {
	b := part.NewBuilder(ps.Name).CreationPolicy(policy)
	for k, v := range ps.Metadata {
		b.Metadata(k, v)
	}

	received := make(map[string][]*primitives.Export, len(ps.Imports))
	cards := make(map[string]primitives.Cardinality, len(ps.Imports))
	for _, is := range ps.Imports {
		card, _ := primitives.ParseCardinality(is.Cardinality)
		cards[is.Contract] = card
		opts := []part.ImportOption{withCardinality(card), part.RequireMetadata(is.Metadata...)}
		if is.Recomposable {
			opts = append(opts, part.Recomposable())
		}
		if is.Prerequisite {
			opts = append(opts, part.Prerequisite())
		}
		if is.Version != "" {
			opts = append(opts, part.RequireVersion(is.Version))
		}
		b.Import(is.Contract, func(exports []*primitives.Export) error {
			received[is.Contract] = exports
			return nil
		}, opts...)
	}

	for _, es := range ps.Exports {
		var opts []part.ExportOption
		for k, v := range es.Metadata {
			opts = append(opts, part.WithMetadata(k, v))
		}
		if es.Version != "" {
			opts = append(opts, part.WithVersion(es.Version))
		}
		if es.From == "" {
			if id := identity.Of(es.Value); es.Value != nil && id != "" {
				opts = append(opts, part.WithMetadata(primitives.TypeIdentityMetadataKey, id))
			}
			b.ExportValue(es.Contract, es.Value, opts...)
			continue
		}
		from := es.From
		b.Export(es.Contract, func() (any, error) {
			return forward(received[from], cards[from])
		}, opts...)
	}
	return b
}

// forward returns the value of a single import, or the values of a
// ZeroOrMore import.
func forward(exports []*primitives.Export, card primitives.Cardinality) (any, error) {
	if card != primitives.ZeroOrMore {
		if len(exports) == 0 {
			return nil, nil
		}
		return exports[0].Value()
	}
	out := make([]any, 0, len(exports))
	for _, e := range exports {
		v, err := e.Value()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func withCardinality(c primitives.Cardinality) part.ImportOption {
	switch c {
	case primitives.ZeroOrOne:
		return part.ZeroOrOne()
	case primitives.ZeroOrMore:
		return part.ZeroOrMore()
	}
	return part.ExactlyOne()
}
