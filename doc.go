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

// Package mef is an in-memory composition engine.
//
// Parts declare what they export and what they import. A container matches
// imports against the exports of every part it knows about, binds them and
// rebinds them when the set of exports changes.
//
// # Model
//
// An export is a contract name, a bag of metadata and a lazily produced
// value. An import is a constraint over export definitions plus a
// cardinality (ExactlyOne, ZeroOrOne, ZeroOrMore) and two flags:
//
//   - Prerequisite imports are bound before the part is activated and
//     before any of its exports are produced.
//   - Recomposable imports are bound again whenever a change touches their
//     contract.
//
// Parts are usually declared with the part package:
//
//	var port int
//	server, _ := part.NewBuilder("server").
//		Import("Port", part.Bind(&port), part.Recomposable()).
//		Export("Server", func() (any, error) { return newServer(port), nil }).
//		Build()
//
// # Providers
//
// Exports come from providers, stacked by the container:
//
//	adapting
//	   └── aggregate: parts, catalog, providers..., parent
//
// The part provider serves the parts composed into the container. The
// catalog provider creates parts from definitions on demand, sharing one
// instance per definition or creating one per request depending on the
// creation policies of the part and of the import. Supplied providers and
// the parent come last, so the closest export wins. Adapters exported under
// AdapterContractName turn exports of one contract into exports of another.
//
// # Composition
//
// Compose applies a batch of added and removed parts as one change:
//
//	c, _ := mef.NewContainer()
//	b := mef.NewBatch()
//	_, _ = b.AddExportedValue("Port", 8080)
//	_ = b.AddPart(server)
//	err := c.Compose(b)
//
// The contracts exported by the added and removed parts are announced first,
// which rebinds the recomposable imports of composed parts, then the added
// parts are composed. Every failure of a call is reported in one
// *CompositionException whose message lists the root causes and the chain
// of parts and imports they flowed through.
//
// # Queries
//
// GetExportedValue, GetExportedValues and their relatives build an import
// for a Go type and contract and check its cardinality:
//
//	port, err := mef.GetExportedValue[int](c, "Port")
//
// An empty contract stands for the type identity of T, the stable name the
// identity package gives to Go types.
//
// # Concurrency
//
// Queries may run concurrently with each other and with Compose; the live
// part list is copy-on-write, so a query sees the list before or after a
// Compose, never a mix. Compose calls are serialized. Nothing times out and
// nothing is cancelled; getters and hooks run on the caller's goroutine.
package mef
