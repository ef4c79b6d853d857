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
	"maps"
	"slices"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"dirpx.dev/mef/primitives"
)

// resolved is one export as printed by resolve.
type resolved struct {
	Contract string            `yaml:"contract"`
	Value    any               `yaml:"value"`
	Metadata map[string]string `yaml:"metadata,omitempty"`
}

func newResolveCmd(a *app) *cobra.Command {
	var contract, cardinality string
	var release bool
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Print the exports of a contract",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			card, err := primitives.ParseCardinality(cardinality)
			if err != nil {
				return err
			}
			return a.resolve(cmd.OutOrStdout(), contract, card, release)
		},
	}
	cmd.Flags().StringVar(&contract, "contract", "", "contract name to resolve")
	cmd.Flags().StringVar(&cardinality, "cardinality", "zeroOrMore", "exactlyOne, zeroOrOne or zeroOrMore")
	cmd.Flags().BoolVar(&release, "release", true, "release the exports once printed")
	_ = cmd.MarkFlagRequired("contract")
	return cmd
}

func (a *app) resolve(w io.Writer, contract string, card primitives.Cardinality, release bool) error {
	c, err := a.open()
	if err != nil {
		return err
	}
	defer c.Close()

	def, err := primitives.NewContractBasedImport(contract, primitives.WithCardinality(card))
	if err != nil {
		return err
	}
	exports, err := c.GetExports(def)
	if err != nil {
		return err
	}
	if release {
		defer func() { _ = c.ReleaseExports(exports) }()
	}

	out := make([]resolved, 0, len(exports))
	for _, e := range exports {
		v, err := e.Value()
		if err != nil {
			return fmt.Errorf("export %s: %w", e, err)
		}
		out = append(out, resolved{Contract: e.ContractName(), Value: v, Metadata: printable(e.Metadata())})
	}
	a.log.Info("resolved", "contract", contract, "exports", len(out))

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return err
	}
	return enc.Close()
}

// printable renders metadata values with fmt, so that policies and versions
// print by name.
func printable(md primitives.Metadata) map[string]string {
	if len(md) == 0 {
		return nil
	}
	out := make(map[string]string, len(md))
	for _, k := range slices.Sorted(maps.Keys(md)) {
		out[k] = fmt.Sprint(md[k])
	}
	return out
}
