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

	"github.com/Masterminds/semver/v3"

	"dirpx.dev/mef/identity"
	"dirpx.dev/mef/primitives"
)

type exportSpec struct {
	metadata primitives.Metadata
	err      error
}

// ExportOption configures an export declared on a Builder.
type ExportOption func(*exportSpec)

// Typed stamps the type identity of T on the export, which typed queries
// and RequireType imports match against.
func Typed[T any]() ExportOption {
	return func(s *exportSpec) {
		if id := identity.For[T](); id != "" {
			s.metadata[primitives.TypeIdentityMetadataKey] = id
		}
	}
}

// WithMetadata sets an export metadata entry.
func WithMetadata(key string, v any) ExportOption {
	return func(s *exportSpec) {
		if key == "" {
			s.err = primitives.ErrEmptyMetadataKey
			return
		}
		s.metadata[key] = v
	}
}

// WithVersion stamps a semantic version on the export.
func WithVersion(v string) ExportOption {
	return func(s *exportSpec) {
		ver, err := semver.NewVersion(v)
		if err != nil {
			s.err = fmt.Errorf("%w: %q: %w", ErrInvalidVersion, v, err)
			return
		}
		s.metadata[primitives.VersionMetadataKey] = ver.String()
	}
}

type importSpec struct {
	opts []primitives.ImportOption
	err  error
}

// ImportOption configures an import declared on a Builder.
type ImportOption func(*importSpec)

func with(o primitives.ImportOption) ImportOption {
	return func(s *importSpec) { s.opts = append(s.opts, o) }
}

// ExactlyOne requires a single match. It is the default.
func ExactlyOne() ImportOption { return with(primitives.WithCardinality(primitives.ExactlyOne)) }

// ZeroOrOne tolerates a missing match; the setter then receives no exports.
func ZeroOrOne() ImportOption { return with(primitives.WithCardinality(primitives.ZeroOrOne)) }

// ZeroOrMore accepts any number of matches.
func ZeroOrMore() ImportOption { return with(primitives.WithCardinality(primitives.ZeroOrMore)) }

// Recomposable re-binds the import when its matches change.
func Recomposable() ImportOption { return with(primitives.WithRecomposable(true)) }

// Prerequisite makes the import required for activation.
func Prerequisite() ImportOption { return with(primitives.WithPrerequisite(true)) }

// RequireMetadata requires the given metadata keys on matches.
func RequireMetadata(keys ...string) ImportOption {
	return with(primitives.WithRequiredMetadata(keys...))
}

// RequireType requires matches to carry the type identity of T.
func RequireType[T any]() ImportOption {
	return func(s *importSpec) {
		if id := identity.For[T](); id != "" {
			s.opts = append(s.opts, primitives.WithTypeIdentity(id))
		}
	}
}

// RequirePolicy requires matches whose part allows policy cp.
func RequirePolicy(cp primitives.CreationPolicy) ImportOption {
	return with(primitives.WithRequiredCreationPolicy(cp))
}

// RequireVersion requires matches whose version satisfies the semver range.
func RequireVersion(rng string) ImportOption {
	return func(s *importSpec) {
		c, err := primitives.NewVersionConstraint(rng)
		if err != nil {
			s.err = err
			return
		}
		s.opts = append(s.opts, primitives.WithConstraint(c))
	}
}
