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

package provider

import (
	"fmt"

	"dirpx.dev/mef/internal/telemetry"
	"dirpx.dev/mef/primitives"
)

// AdapterDefinition is an export of the adapter contract, read as a
// transform from exports of one contract into exports of another.
//
// Only the metadata is read when the definition is built; the delegate is
// realized the first time the adapter is used.
type AdapterDefinition struct {
	export *primitives.Export
	from   string
	to     string
}

var _ primitives.Element = (*AdapterDefinition)(nil)

// NewAdapterDefinition reads the from and to contracts of e. Missing or
// empty contracts are reported by Validate, not here.
func NewAdapterDefinition(e *primitives.Export) (*AdapterDefinition, error) {
	if e == nil {
		return nil, primitives.ErrNilExport
	}
	md := e.Metadata()
	from, _ := md.String(primitives.AdapterFromContractMetadataKey)
	to, _ := md.String(primitives.AdapterToContractMetadataKey)
	return &AdapterDefinition{export: e, from: from, to: to}, nil
}

// FromContract is the contract the adapter consumes.
func (a *AdapterDefinition) FromContract() string { return a.from }

// ToContract is the contract the adapter produces.
func (a *AdapterDefinition) ToContract() string { return a.to }

// Export returns the adapter export.
func (a *AdapterDefinition) Export() *primitives.Export { return a.export }

// DisplayName implements primitives.Element.
func (a *AdapterDefinition) DisplayName() string {
	return fmt.Sprintf("Adapter %s -> %s", a.from, a.to)
}

// Origin implements primitives.Element.
func (a *AdapterDefinition) Origin() primitives.Element {
	return primitives.ExportElement(a.export.Definition(), nil)
}

func (a *AdapterDefinition) String() string { return a.DisplayName() }

// Validate reports an adapter whose contracts cannot be adapted.
func (a *AdapterDefinition) Validate() *primitives.CompositionError {
	switch {
	case a.from == "" || a.to == "":
		return primitives.NewCompositionError(primitives.ErrorIDAdapterCannotAdaptNullOrEmptyFromOrToContract, a, nil,
			"adapter '%s' must declare non-empty from and to contracts", a.export.Definition())
	case a.from == a.to:
		return primitives.NewCompositionError(primitives.ErrorIDAdapterCannotAdaptFromAndToSameContract, a, nil,
			"adapter '%s' cannot adapt contract '%s' to itself", a.export.Definition(), a.from)
	}
	return nil
}

// Adapt transforms in. A nil result without error means the adapter
// declined the input.
func (a *AdapterDefinition) Adapt(in *primitives.Export) (*primitives.Export, error) {
	if ce := a.Validate(); ce != nil {
		return nil, ce
	}
	fn, ce := a.delegate()
	if ce != nil {
		return nil, ce
	}
	telemetry.ObserveAdapter()
	out, err := invoke(fn, in)
	if err != nil {
		return nil, primitives.NewCompositionError(primitives.ErrorIDAdapterExceptionDuringAdapt, a, err,
			"adapter '%s' failed while adapting '%s'", a.DisplayName(), in)
	}
	if out == nil {
		return nil, nil
	}
	if out.ContractName() != a.to {
		return nil, primitives.NewCompositionError(primitives.ErrorIDAdapterContractMismatch, a, nil,
			"adapter '%s' produced an export of contract '%s', expected '%s'", a.DisplayName(), out.ContractName(), a.to)
	}
	return out, nil
}

func (a *AdapterDefinition) delegate() (primitives.AdaptFunc, *primitives.CompositionError) {
	v, err := a.export.Value()
	if err != nil {
		return nil, primitives.NewCompositionError(primitives.ErrorIDAdapterExceptionDuringAdapt, a, err,
			"cannot get the delegate of adapter '%s'", a.DisplayName())
	}
	switch fn := v.(type) {
	case primitives.AdaptFunc:
		return fn, nil
	case func(*primitives.Export) (*primitives.Export, error):
		return fn, nil
	case func(*primitives.Export) *primitives.Export:
		return func(e *primitives.Export) (*primitives.Export, error) { return fn(e), nil }, nil
	}
	return nil, primitives.NewCompositionError(primitives.ErrorIDAdapterTypeMismatch, a, nil,
		"adapter '%s' exports a %T, not an adapt function", a.DisplayName(), v)
}

// invoke calls fn, turning a panic into an error.
func invoke(fn primitives.AdaptFunc, in *primitives.Export) (out *primitives.Export, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(in)
}
