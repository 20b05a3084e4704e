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

package database

import (
	"reflect"
	"sort"
	"sync"

	"github.com/tomoncle/easycrud/entity"
)

var defaultRegistry = newModelRegistry()

// SQLModel is an entity whose table is created by migrations. Lower
// priorities are created first.
type SQLModel interface {
	Instance() interface{}
	Table() string
	Priority() int
}

type ModelRegistry interface {
	Register(model SQLModel)
	Models() []SQLModel
}

type modelRegistry struct {
	models map[string]SQLModel
	mutex  sync.RWMutex
}

func newModelRegistry() ModelRegistry {
	return &modelRegistry{models: make(map[string]SQLModel)}
}

// Register keeps one model per table; a later registration replaces it.
func (r *modelRegistry) Register(model SQLModel) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.models[model.Table()] = model
}

func (r *modelRegistry) Models() []SQLModel {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	result := make([]SQLModel, 0, len(r.models))
	for _, m := range r.models {
		result = append(result, m)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Priority() != result[j].Priority() {
			return result[i].Priority() < result[j].Priority()
		}
		return result[i].Table() < result[j].Table()
	})
	return result
}

type ModelAdapter struct {
	instance interface{}
	table    string
	priority int
}

// NewModelAdapter wraps a struct pointer. Its table name follows the entity
// naming rule.
func NewModelAdapter(instance interface{}, priority int) SQLModel {
	return &ModelAdapter{
		instance: instance,
		table:    entity.TableNameFor(reflect.TypeOf(instance)),
		priority: priority,
	}
}

func (a *ModelAdapter) Instance() interface{} { return a.instance }

func (a *ModelAdapter) Table() string { return a.table }

func (a *ModelAdapter) Priority() int { return a.priority }

// Register adds T to the default registry.
func Register[T any](priority int) {
	defaultRegistry.Register(NewModelAdapter((*T)(nil), priority))
}

func RegisterModel(model SQLModel) {
	defaultRegistry.Register(model)
}

func GetRegisteredModels() []SQLModel {
	return defaultRegistry.Models()
}

func RegisteredModelInstances() []interface{} {
	models := GetRegisteredModels()
	instances := make([]interface{}, len(models))
	for i, model := range models {
		instances[i] = model.Instance()
	}
	return instances
}
