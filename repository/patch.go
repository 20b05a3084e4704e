/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package repository

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidPatch wraps a patch value that does not fit the entity field
// it targets.
var ErrInvalidPatch = errors.New("invalid patch")

// Patch is an untyped partial update keyed by JSON field name.
type Patch map[string]any

// PatchOf converts an update schema into a Patch. Only keys present in its
// JSON encoding are kept, so fields meant to be optional should be pointers
// tagged omitempty.
func PatchOf(v any) (Patch, error) {
	switch p := v.(type) {
	case nil:
		return Patch{}, nil
	case Patch:
		return p, nil
	case map[string]any:
		return Patch(p), nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}
	return DecodePatch(raw)
}

// DecodePatch decodes a JSON object, keeping numbers exact.
func DecodePatch(raw []byte) (Patch, error) {
	p := Patch{}
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return p, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}
	return p, nil
}

// Only keeps the keys accepted by keep.
func (p Patch) Only(keep func(key string) bool) Patch {
	out := make(Patch, len(p))
	for k, v := range p {
		if keep(k) {
			out[k] = v
		}
	}
	return out
}

func (p Patch) Has(key string) bool {
	_, ok := p[key]
	return ok
}
