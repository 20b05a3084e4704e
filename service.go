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

package easycrud

import (
	"context"
	"sync"

	"github.com/tomoncle/easycrud/database"
	"github.com/tomoncle/easycrud/entity"
	"github.com/tomoncle/easycrud/repository"
	"github.com/tomoncle/easycrud/router"
	"github.com/tomoncle/easycrud/types"
)

// Service is a CrudRepository bound on first use to the process database
// set up by database.InitDB. Calls made before that fail with
// database.ErrNotConnected.
type Service[T entity.Model, C any, U any] struct {
	fromCreate func(*C) *T
	opts       []repository.Option

	mu   sync.Mutex
	repo *repository.Repository[T, C, U]
}

var _ repository.CrudRepository[entity.Base, struct{}, struct{}] = (*Service[entity.Base, struct{}, struct{}])(nil)

func NewService[T entity.Model, C any, U any](fromCreate func(*C) *T, opts ...repository.Option) *Service[T, C, U] {
	return &Service[T, C, U]{fromCreate: fromCreate, opts: opts}
}

// NewAPI builds a resource router over a lazily bound Service.
func NewAPI[T entity.Model, R any, C any, U any](fromCreate func(*C) *T, toRead func(*T) *R, opts ...router.Option) *router.Resource[T, R, C, U] {
	return router.New[T, R, C, U](NewService[T, C, U](fromCreate), toRead, opts...)
}

// Repository returns the bound repository, binding it if needed.
func (s *Service[T, C, U]) Repository() (*repository.Repository[T, C, U], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.repo == nil {
		db := database.GetDB()
		if db == nil {
			return nil, database.ErrNotConnected
		}
		s.repo = repository.New[T, C, U](db, s.fromCreate, s.opts...)
	}
	return s.repo, nil
}

func (s *Service[T, C, U]) Get(ctx context.Context, id int64) (*T, error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	return repo.Get(ctx, id)
}

func (s *Service[T, C, U]) BatchGet(ctx context.Context, ids []int64) ([]*T, error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	return repo.BatchGet(ctx, ids)
}

func (s *Service[T, C, U]) List(ctx context.Context, req *types.ListRequest) ([]*T, error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	return repo.List(ctx, req)
}

func (s *Service[T, C, U]) Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	return repo.Page(ctx, page)
}

func (s *Service[T, C, U]) Find(ctx context.Context, filter *types.QueryFilter) ([]*T, error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	return repo.Find(ctx, filter)
}

func (s *Service[T, C, U]) Create(ctx context.Context, in *C) (*T, error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	return repo.Create(ctx, in)
}

func (s *Service[T, C, U]) BatchCreate(ctx context.Context, in []C) ([]*T, error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	return repo.BatchCreate(ctx, in)
}

func (s *Service[T, C, U]) BatchCreateSilently(ctx context.Context, in []C) error {
	repo, err := s.Repository()
	if err != nil {
		return err
	}
	return repo.BatchCreateSilently(ctx, in)
}

func (s *Service[T, C, U]) Update(ctx context.Context, e *T, in *U) (*T, error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	return repo.Update(ctx, e, in)
}

func (s *Service[T, C, U]) UpdateFields(ctx context.Context, e *T, p repository.Patch) (*T, error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	return repo.UpdateFields(ctx, e, p)
}

func (s *Service[T, C, U]) UpdateByID(ctx context.Context, id int64, in *U) (*T, error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	return repo.UpdateByID(ctx, id, in)
}

func (s *Service[T, C, U]) UpdateFieldsByID(ctx context.Context, id int64, p repository.Patch) (*T, error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	return repo.UpdateFieldsByID(ctx, id, p)
}

func (s *Service[T, C, U]) Remove(ctx context.Context, id int64) (*T, error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	return repo.Remove(ctx, id)
}
