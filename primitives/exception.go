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
	"slices"
	"strings"
)

// ErrorPrefix introduces each enclosing error in a rendered root cause chain.
const ErrorPrefix = "Resulting in:"

// ElementPrefix introduces the element chain of a rendered error.
const ElementPrefix = "Element:"

// CompositionException aggregates the errors of one composition operation.
type CompositionException struct {
	errs []*CompositionError
}

// NewCompositionException copies errs, dropping nils.
func NewCompositionException(errs ...*CompositionError) *CompositionException {
	out := make([]*CompositionError, 0, len(errs))
	for _, e := range errs {
		if e != nil {
			out = append(out, e)
		}
	}
	return &CompositionException{errs: out}
}

// Errors returns the aggregated errors.
func (e *CompositionException) Errors() []*CompositionError {
	return slices.Clone(e.errs)
}

// Unwrap exposes the aggregated errors to errors.Is and errors.As.
func (e *CompositionException) Unwrap() []error {
	out := make([]error, len(e.errs))
	for i, ce := range e.errs {
		out[i] = ce
	}
	return out
}

// RootCauses returns every root cause chain, leaf first.
func (e *CompositionException) RootCauses() [][]string {
	paths := rootCausePaths(e.errs)
	out := make([][]string, len(paths))
	for i, p := range paths {
		for _, n := range p {
			out[i] = append(out[i], n.description)
		}
	}
	return out
}

func (e *CompositionException) Error() string {
	paths := rootCausePaths(e.errs)

	var b strings.Builder
	switch len(paths) {
	case 0:
		b.WriteString("the composition produced no errors")
	case 1:
		b.WriteString("the composition produced a single composition error; the root cause is provided below")
	default:
		fmt.Fprintf(&b, "the composition produced %d composition errors, with %d root causes; the root causes are provided below",
			countErrors(e.errs), len(paths))
	}
	for i, path := range paths {
		for j, n := range path {
			b.WriteString("\n\n")
			if j == 0 {
				fmt.Fprintf(&b, "%d) %s", i+1, n.description)
			} else {
				b.WriteString(ErrorPrefix)
				b.WriteString(" ")
				b.WriteString(n.description)
			}
			if n.element != nil {
				b.WriteString("\n")
				b.WriteString(ElementPrefix)
				b.WriteString(" ")
				b.WriteString(ElementChain(n.element))
			}
		}
	}
	return b.String()
}

type causeNode struct {
	description string
	element     Element
}

// rootCausePaths flattens the error tree into one path per leaf. A path lists
// the leaf first and then each enclosing error outward.
func rootCausePaths(errs []*CompositionError) [][]causeNode {
	var out [][]causeNode
	var visit func(e *CompositionError, trail []causeNode)
	emit := func(leaf causeNode, trail []causeNode) {
		path := []causeNode{leaf}
		for i := len(trail) - 1; i >= 0; i-- {
			path = append(path, trail[i])
		}
		out = append(out, path)
	}
	visit = func(e *CompositionError, trail []causeNode) {
		node := causeNode{description: e.Description, element: e.Element}
		if e.Cause == nil {
			emit(node, trail)
			return
		}
		next := append(slices.Clone(trail), node)
		switch c := e.Cause.(type) {
		case *CompositionException:
			if len(c.errs) == 0 {
				emit(node, trail)
				return
			}
			for _, inner := range c.errs {
				visit(inner, next)
			}
		case *CompositionError:
			visit(c, next)
		default:
			emit(causeNode{description: e.Cause.Error()}, next)
		}
	}
	for _, e := range errs {
		visit(e, nil)
	}
	return out
}

func countErrors(errs []*CompositionError) int {
	n := 0
	for _, e := range errs {
		n++
		switch c := e.Cause.(type) {
		case *CompositionException:
			n += countErrors(c.errs)
		case *CompositionError:
			n += countErrors([]*CompositionError{c})
		}
	}
	return n
}

// CompositionResult accumulates errors across the steps of one operation.
// The zero value is a successful result.
type CompositionResult struct {
	errs []*CompositionError
}

// Succeeded reports whether no error was recorded.
func (r *CompositionResult) Succeeded() bool { return len(r.errs) == 0 }

// Errors returns the recorded errors.
func (r *CompositionResult) Errors() []*CompositionError { return slices.Clone(r.errs) }

// Add records errors, skipping nils.
func (r *CompositionResult) Add(errs ...*CompositionError) {
	for _, e := range errs {
		if e != nil {
			r.errs = append(r.errs, e)
		}
	}
}

// Merge records err. Exceptions contribute their errors, composition errors
// themselves, and any other error is recorded as an unclassified error.
// Joined errors are merged one by one.
func (r *CompositionResult) Merge(err error) {
	if err == nil {
		return
	}
	switch x := err.(type) {
	case *CompositionException:
		r.errs = append(r.errs, x.errs...)
	case *CompositionError:
		r.errs = append(r.errs, x)
	case interface{ Unwrap() []error }:
		for _, e := range x.Unwrap() {
			r.Merge(e)
		}
	default:
		var ex *CompositionException
		if errors.As(err, &ex) {
			r.errs = append(r.errs, ex.errs...)
			return
		}
		r.errs = append(r.errs, &CompositionError{ID: ErrorIDOf(err), Description: err.Error(), wrapped: err})
	}
}

// Err returns nil on success and a *CompositionException otherwise.
func (r *CompositionResult) Err() error {
	if len(r.errs) == 0 {
		return nil
	}
	return NewCompositionException(r.errs...)
}
