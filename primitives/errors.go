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

package primitives

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrEmptyContractName is returned when a contract name is required.
	ErrEmptyContractName = errors.New("mef(primitives): empty contract name")
	// ErrEmptyMetadataKey is returned for an empty required metadata key.
	ErrEmptyMetadataKey = errors.New("mef(primitives): empty metadata key")
	// ErrInvalidCardinality is returned for an undeclared cardinality.
	ErrInvalidCardinality = errors.New("mef(primitives): invalid cardinality")
	// ErrInvalidCreationPolicy is returned for an undeclared creation policy.
	ErrInvalidCreationPolicy = errors.New("mef(primitives): invalid creation policy")
	// ErrInvalidVersionRange is returned for an unparsable version range.
	ErrInvalidVersionRange = errors.New("mef(primitives): invalid version range")
	// ErrNilConstraint is returned when a constraint is required.
	ErrNilConstraint = errors.New("mef(primitives): nil constraint")
	// ErrNilExportDefinition is raised for a nil export definition.
	ErrNilExportDefinition = errors.New("mef(primitives): nil export definition")
	// ErrNilGetter is raised for a nil export getter.
	ErrNilGetter = errors.New("mef(primitives): nil export getter")
	// ErrNilPart is returned when a part is required.
	ErrNilPart = errors.New("mef(primitives): nil part")
	// ErrNilExport is returned when an export is required.
	ErrNilExport = errors.New("mef(primitives): nil export")
	// ErrDisposed is returned by every operation of a closed container,
	// provider, engine or part.
	ErrDisposed = errors.New("mef: object disposed")
)

// ErrorID classifies composition errors.
type ErrorID int

const (
	ErrorIDUnknown ErrorID = iota
	ErrorIDInvalidExportMetadata
	ErrorIDRequiredMetadataNotFound
	ErrorIDUnsupportedExportType
	ErrorIDImportNotSetOnPart
	ErrorIDComposeTookTooManyIterations
	ErrorIDImportCardinalityMismatch
	ErrorIDPartCycle
	ErrorIDPartCannotSetImport
	ErrorIDPartCannotGetExportedValue
	ErrorIDPartCannotActivate
	ErrorIDPartCannotComposed
	ErrorIDExportContractMismatch
	ErrorIDAdapterCannotAdaptNullOrEmptyFromOrToContract
	ErrorIDAdapterCannotAdaptFromAndToSameContract
	ErrorIDAdapterContractMismatch
	ErrorIDAdapterTypeMismatch
	ErrorIDAdapterExceptionDuringAdapt
)

var errorIDNames = [...]string{
	ErrorIDUnknown:                                       "Unknown",
	ErrorIDInvalidExportMetadata:                         "InvalidExportMetadata",
	ErrorIDRequiredMetadataNotFound:                      "RequiredMetadataNotFound",
	ErrorIDUnsupportedExportType:                         "UnsupportedExportType",
	ErrorIDImportNotSetOnPart:                            "ImportNotSetOnPart",
	ErrorIDComposeTookTooManyIterations:                  "ComposeTookTooManyIterations",
	ErrorIDImportCardinalityMismatch:                     "ImportCardinalityMismatch",
	ErrorIDPartCycle:                                     "PartCycle",
	ErrorIDPartCannotSetImport:                           "PartCannotSetImport",
	ErrorIDPartCannotGetExportedValue:                    "PartCannotGetExportedValue",
	ErrorIDPartCannotActivate:                            "PartCannotActivate",
	ErrorIDPartCannotComposed:                            "PartCannotComposed",
	ErrorIDExportContractMismatch:                        "ExportContractMismatch",
	ErrorIDAdapterCannotAdaptNullOrEmptyFromOrToContract: "Adapter_CannotAdaptNullOrEmptyFromOrToContract",
	ErrorIDAdapterCannotAdaptFromAndToSameContract:       "Adapter_CannotAdaptFromAndToSameContract",
	ErrorIDAdapterContractMismatch:                       "Adapter_ContractMismatch",
	ErrorIDAdapterTypeMismatch:                           "Adapter_TypeMismatch",
	ErrorIDAdapterExceptionDuringAdapt:                   "Adapter_ExceptionDuringAdapt",
}

func (id ErrorID) String() string {
	if id >= 0 && int(id) < len(errorIDNames) {
		return errorIDNames[id]
	}
	return fmt.Sprintf("ErrorID(%d)", int(id))
}

// CompositionError is a single composition failure. Cause may itself be a
// *CompositionException, which makes the errors form a tree whose leaves are
// the root causes.
type CompositionError struct {
	ID          ErrorID
	Description string
	Element     Element
	Cause       error

	// wrapped is the plain error an unclassified CompositionError stands for.
	wrapped error
}

// NewCompositionError is shorthand for a literal with a formatted description.
func NewCompositionError(id ErrorID, element Element, cause error, format string, args ...any) *CompositionError {
	return &CompositionError{ID: id, Description: fmt.Sprintf(format, args...), Element: element, Cause: cause}
}

func (e *CompositionError) Error() string {
	if e.Cause == nil {
		return e.Description
	}
	return e.Description + ": " + e.Cause.Error()
}

func (e *CompositionError) Unwrap() error {
	if e.Cause != nil {
		return e.Cause
	}
	return e.wrapped
}

// CardinalityMismatchError reports an import whose match count violates its
// cardinality.
type CardinalityMismatchError struct {
	Import ImportDefinition
	Count  int
}

func (e *CardinalityMismatchError) Error() string {
	switch {
	case e.Count == 0:
		return fmt.Sprintf("no exports were found that match the constraint %s", e.Import.Constraint())
	default:
		return fmt.Sprintf("%d exports were found that match the constraint %s, cardinality %s allows at most one",
			e.Count, e.Import.Constraint(), e.Import.Cardinality())
	}
}

// ContractMismatchError reports an exported value of an unexpected type.
type ContractMismatchError struct {
	Contract string
	Want     reflect.Type
	Got      reflect.Type
}

func (e *ContractMismatchError) Error() string {
	if e.Got == nil {
		return fmt.Sprintf("the exported value of contract %q is nil and cannot be used as %s", e.Contract, e.Want)
	}
	return fmt.Sprintf("the exported value of contract %q has type %s and cannot be used as %s", e.Contract, e.Got, e.Want)
}

// ErrorIDOf classifies err. Composition errors carry their own ID; the typed
// errors of this package map to theirs.
func ErrorIDOf(err error) ErrorID {
	var ce *CompositionError
	var cm *CardinalityMismatchError
	var ct *ContractMismatchError
	switch {
	case errors.As(err, &ce):
		return ce.ID
	case errors.As(err, &cm):
		return ErrorIDImportCardinalityMismatch
	case errors.As(err, &ct):
		return ErrorIDExportContractMismatch
	}
	return ErrorIDUnknown
}

// HasErrorID reports whether any error in err's tree carries id.
func HasErrorID(err error, id ErrorID) bool {
	found := false
	walk(err, func(e error) bool {
		switch x := e.(type) {
		case *CompositionError:
			found = x.ID == id
		case *CardinalityMismatchError:
			found = id == ErrorIDImportCardinalityMismatch
		case *ContractMismatchError:
			found = id == ErrorIDExportContractMismatch
		}
		return !found
	})
	return found
}

// walk visits err and everything it wraps until visit returns false.
func walk(err error, visit func(error) bool) bool {
	if err == nil {
		return true
	}
	if !visit(err) {
		return false
	}
	switch x := err.(type) {
	case interface{ Unwrap() []error }:
		for _, inner := range x.Unwrap() {
			if !walk(inner, visit) {
				return false
			}
		}
	case interface{ Unwrap() error }:
		return walk(x.Unwrap(), visit)
	}
	return true
}
