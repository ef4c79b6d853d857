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

package part

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"dirpx.dev/mef/primitives"
)

type pendingExport struct {
	contract string
	get      primitives.Getter
	opts     []ExportOption
}

type pendingImport struct {
	contract   string
	constraint primitives.Constraint
	set        Setter
	opts       []ImportOption
}

// Builder assembles a Part. Methods record errors instead of returning them;
// Build reports them all.
type Builder struct {
	name     string
	metadata primitives.Metadata
	policy   primitives.CreationPolicy
	exports  []pendingExport
	imports  []pendingImport

	onActivate func() error
	onComposed func() error
	onClose    func() error

	errs []error
}

// NewBuilder starts a part named name. An empty name is replaced by a
// generated one.
func NewBuilder(name string) *Builder {
	if name == "" {
		name = "part-" + uuid.NewString()
	}
	return &Builder{name: name, metadata: primitives.Metadata{}}
}

// Metadata sets a part metadata entry.
func (b *Builder) Metadata(key string, v any) *Builder {
	if key == "" {
		b.errs = append(b.errs, primitives.ErrEmptyMetadataKey)
		return b
	}
	b.metadata[key] = v
	return b
}

// CreationPolicy declares whether the part may be shared. The policy is
// stamped on every export.
func (b *Builder) CreationPolicy(cp primitives.CreationPolicy) *Builder {
	if !cp.Valid() {
		b.errs = append(b.errs, fmt.Errorf("%w: %s", primitives.ErrInvalidCreationPolicy, cp))
		return b
	}
	b.policy = cp
	return b
}

// Export declares an export of contract produced by get.
func (b *Builder) Export(contract string, get primitives.Getter, opts ...ExportOption) *Builder {
	switch {
	case contract == "":
		b.errs = append(b.errs, fmt.Errorf("export of %s: %w", b.name, primitives.ErrEmptyContractName))
	case get == nil:
		b.errs = append(b.errs, fmt.Errorf("export %s of %s: %w", contract, b.name, primitives.ErrNilGetter))
	default:
		b.exports = append(b.exports, pendingExport{contract: contract, get: get, opts: opts})
	}
	return b
}

// ExportValue declares an export of contract with a fixed value.
func (b *Builder) ExportValue(contract string, v any, opts ...ExportOption) *Builder {
	return b.Export(contract, func() (any, error) { return v, nil }, opts...)
}

// Import declares an import of contract bound through set.
func (b *Builder) Import(contract string, set Setter, opts ...ImportOption) *Builder {
	if contract == "" {
		b.errs = append(b.errs, fmt.Errorf("import of %s: %w", b.name, primitives.ErrEmptyContractName))
		return b
	}
	b.imports = append(b.imports, pendingImport{contract: contract, set: set, opts: opts})
	return b
}

// ImportConstraint declares an import of every export satisfying c.
func (b *Builder) ImportConstraint(c primitives.Constraint, set Setter, opts ...ImportOption) *Builder {
	if c == nil {
		b.errs = append(b.errs, fmt.Errorf("import of %s: %w", b.name, primitives.ErrNilConstraint))
		return b
	}
	b.imports = append(b.imports, pendingImport{constraint: c, set: set, opts: opts})
	return b
}

// OnActivate runs fn once the prerequisite imports are set, before any other
// import is set or export produced.
func (b *Builder) OnActivate(fn func() error) *Builder {
	b.onActivate = fn
	return b
}

// OnComposed runs fn after every import is set, and again after each
// recomposition.
func (b *Builder) OnComposed(fn func() error) *Builder {
	b.onComposed = fn
	return b
}

// OnClose runs fn when the part is closed.
func (b *Builder) OnClose(fn func() error) *Builder {
	b.onClose = fn
	return b
}

// Build returns the part or every error recorded while building it.
func (b *Builder) Build() (*Part, error) {
	errs := append([]error(nil), b.errs...)

	p := &Part{
		name:       b.name,
		metadata:   b.metadata.Clone(),
		onActivate: b.onActivate,
		onComposed: b.onComposed,
		onClose:    b.onClose,
		set:        make(map[primitives.ImportDefinition]struct{}),
	}
	if b.policy != primitives.Any {
		p.metadata[primitives.CreationPolicyMetadataKey] = b.policy
	}

	for _, pe := range b.exports {
		spec := exportSpec{metadata: primitives.Metadata{}}
		for _, opt := range pe.opts {
			if opt != nil {
				opt(&spec)
			}
		}
		if spec.err != nil {
			errs = append(errs, fmt.Errorf("export %s of %s: %w", pe.contract, b.name, spec.err))
			continue
		}
		if b.policy != primitives.Any {
			spec.metadata[primitives.CreationPolicyMetadataKey] = b.policy
		}
		def, err := primitives.NewExportDefinition(pe.contract, spec.metadata)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		p.exports = append(p.exports, exportSlot{def: def, get: pe.get})
	}

	for _, pi := range b.imports {
		def, err := pi.build()
		if err == nil && pi.set == nil {
			err = ErrNilSetter
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("import %s of %s: %w", pi.describe(), b.name, err))
			continue
		}
		p.imports = append(p.imports, importSlot{def: def, set: pi.set})
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return p, nil
}

func (pi pendingImport) build() (primitives.ImportDefinition, error) {
	spec := importSpec{}
	for _, opt := range pi.opts {
		if opt != nil {
			opt(&spec)
		}
	}
	if spec.err != nil {
		return nil, spec.err
	}
	if pi.constraint != nil {
		return primitives.NewImport(pi.constraint, spec.opts...)
	}
	return primitives.NewContractBasedImport(pi.contract, spec.opts...)
}

func (pi pendingImport) describe() string {
	if pi.constraint != nil {
		return pi.constraint.String()
	}
	return pi.contract
}
