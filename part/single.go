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
	"fmt"

	"dirpx.dev/mef/primitives"
)

// exportPart offers one pre-built export.
type exportPart struct {
	export *primitives.Export
}

// ForExport wraps e in a part with no imports whose only export is e.
func ForExport(e *primitives.Export) (primitives.ComposablePart, error) {
	if e == nil {
		return nil, primitives.ErrNilExport
	}
	return &exportPart{export: e}, nil
}

func (p *exportPart) Metadata() primitives.Metadata { return primitives.Metadata{} }

func (p *exportPart) ExportDefinitions() []*primitives.ExportDefinition {
	return []*primitives.ExportDefinition{p.export.Definition()}
}

func (p *exportPart) ImportDefinitions() []primitives.ImportDefinition { return nil }

func (p *exportPart) SetImport(def primitives.ImportDefinition, _ []*primitives.Export) error {
	return fmt.Errorf("%w: %s on %s", ErrUnknownImport, def, p.DisplayName())
}

func (p *exportPart) GetExportedValue(def *primitives.ExportDefinition) (any, error) {
	if def != p.export.Definition() && !def.Equal(p.export.Definition()) {
		return nil, fmt.Errorf("%w: %s on %s", ErrUnknownExport, def, p.DisplayName())
	}
	return p.export.Value()
}

func (p *exportPart) OnComposed() error { return nil }

func (p *exportPart) DisplayName() string { return "Export " + p.export.ContractName() }

func (p *exportPart) Origin() primitives.Element { return nil }

func (p *exportPart) String() string { return p.DisplayName() }
