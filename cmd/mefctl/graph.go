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

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"dirpx.dev/mef/primitives"
)

func newGraphCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "graph",
		Short: "Print which parts satisfy the imports of each part",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.graph(cmd.OutOrStdout())
		},
	}
}

// graph lists every part with its exports and, per import, the parts whose
// exports match it. Imports whose match count violates their cardinality
// are flagged.
func (a *app) graph(w io.Writer) error {
	cat, err := a.catalog()
	if err != nil {
		return err
	}

	for _, pd := range cat.Parts() {
		fmt.Fprintf(w, "%s\n", nameOf(pd))
		for _, ed := range pd.ExportDefinitions() {
			fmt.Fprintf(w, "  export %s\n", ed.ContractName())
		}
		for _, id := range pd.ImportDefinitions() {
			matches := cat.GetExports(id)
			providers := make([]string, 0, len(matches))
			for _, m := range matches {
				providers = append(providers, nameOf(m.Part))
			}
			status := ""
			if !id.Cardinality().Allows(len(matches)) {
				status = " (unsatisfied)"
			}
			fmt.Fprintf(w, "  import %s [%s] <- %s%s\n", contractOf(id), id.Cardinality(), strings.Join(providers, ", "), status)
		}
	}
	return nil
}

func nameOf(pd primitives.ComposablePartDefinition) string {
	if e, ok := pd.(primitives.Element); ok {
		return e.DisplayName()
	}
	return fmt.Sprint(pd)
}

func contractOf(id primitives.ImportDefinition) string {
	if name, ok := primitives.ContractNameOf(id); ok {
		return name
	}
	return id.String()
}
