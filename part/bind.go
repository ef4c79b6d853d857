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
	"slices"

	"dirpx.dev/mef/primitives"
)

// Bind stores the value of the single matched export in dst, or the zero
// value when nothing matched. A value of another type is a
// *primitives.ContractMismatchError.
func Bind[T any](dst *T) Setter {
	return func(exports []*primitives.Export) error {
		var zero T
		switch len(exports) {
		case 0:
			*dst = zero
			return nil
		case 1:
			v, err := primitives.ValueAs[T](exports[0])
			if err != nil {
				return err
			}
			*dst = v
			return nil
		}
		return fmt.Errorf("mef(part): %d exports bound to a single value", len(exports))
	}
}

// BindAll stores the values of every matched export in dst, in match order.
func BindAll[T any](dst *[]T) Setter {
	return func(exports []*primitives.Export) error {
		out := make([]T, 0, len(exports))
		for _, e := range exports {
			v, err := primitives.ValueAs[T](e)
			if err != nil {
				return err
			}
			out = append(out, v)
		}
		*dst = out
		return nil
	}
}

// BindExports stores the matched exports themselves, leaving their values
// unrealized.
func BindExports(dst *[]*primitives.Export) Setter {
	return func(exports []*primitives.Export) error {
		*dst = slices.Clone(exports)
		return nil
	}
}

// BindFunc passes the value of the single matched export, or the zero value,
// to fn.
func BindFunc[T any](fn func(T) error) Setter {
	return func(exports []*primitives.Export) error {
		var v T
		if err := Bind(&v)(exports); err != nil {
			return err
		}
		return fn(v)
	}
}
