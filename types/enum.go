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

package types

// Placeholders reported by an enum value outside its declared range.
const (
	IllegalValue = -1
	IllegalName  = "unknown"
)

// Enum is implemented by closed sets of named values, such as the SQL error
// kinds surfaced in problem responses.
type Enum interface {
	IsValid() bool
	Number() int
	Name() string
	Desc() string
}
