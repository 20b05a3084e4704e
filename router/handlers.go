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

package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/samber/lo"
	"github.com/tomoncle/easycrud/repository"
	"github.com/tomoncle/easycrud/types"
)

var errBadInput = errors.New("bad input")

type idQuery struct {
	ID *int64 `form:"id" binding:"required"`
}

// updateBody is the /update payload: the entity as last read plus the
// fields to change.
type updateBody struct {
	Origin json.RawMessage `json:"origin"`
	Update json.RawMessage `json:"update"`
}

func (r *Resource[T, R, C, U]) getAll(c *gin.Context) {
	req := types.NewListRequest()
	if err := c.ShouldBindQuery(req); err != nil {
		r.Fail(c, err)
		return
	}
	entities, err := r.repo.List(c.Request.Context(), req)
	if err != nil {
		r.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r.ReadAll(entities))
}

func (r *Resource[T, R, C, U]) getByIDs(c *gin.Context) {
	ids, err := parseIDs(c.QueryArray("ids"))
	if err != nil {
		r.Fail(c, err)
		return
	}
	entities, err := r.repo.BatchGet(c.Request.Context(), ids)
	if err != nil {
		r.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r.ReadAll(entities))
}

func (r *Resource[T, R, C, U]) getByID(c *gin.Context) {
	id, ok := r.bindID(c)
	if !ok {
		return
	}
	e, err := r.repo.Get(c.Request.Context(), id)
	if err != nil {
		r.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r.Read(e))
}

func (r *Resource[T, R, C, U]) create(c *gin.Context) {
	in := new(C)
	if err := c.ShouldBindJSON(in); err != nil {
		r.Fail(c, err)
		return
	}
	e, err := r.repo.Create(c.Request.Context(), in)
	if err != nil {
		r.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r.Read(e))
}

func (r *Resource[T, R, C, U]) batchCreate(c *gin.Context) {
	var in []C
	if err := c.ShouldBindJSON(&in); err != nil {
		r.Fail(c, err)
		return
	}
	entities, err := r.repo.BatchCreate(c.Request.Context(), in)
	if err != nil {
		r.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r.ReadAll(entities))
}

func (r *Resource[T, R, C, U]) batchCreateSilently(c *gin.Context) {
	var in []C
	if err := c.ShouldBindJSON(&in); err != nil {
		r.Fail(c, err)
		return
	}
	if err := r.repo.BatchCreateSilently(c.Request.Context(), in); err != nil {
		r.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, "success")
}

func (r *Resource[T, R, C, U]) update(c *gin.Context) {
	var body updateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		r.Fail(c, err)
		return
	}
	origin, err := r.decodeOrigin(body.Origin)
	if err != nil {
		r.Fail(c, err)
		return
	}
	patch, err := r.decodeUpdate(body.Update)
	if err != nil {
		r.Fail(c, err)
		return
	}
	e, err := r.repo.UpdateFields(c.Request.Context(), origin, patch)
	if err != nil {
		r.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r.Read(e))
}

func (r *Resource[T, R, C, U]) updateByID(c *gin.Context) {
	id, ok := r.bindID(c)
	if !ok {
		return
	}
	raw, err := c.GetRawData()
	if err != nil {
		r.Fail(c, err)
		return
	}
	patch, err := r.decodeUpdate(raw)
	if err != nil {
		r.Fail(c, err)
		return
	}
	e, err := r.repo.UpdateFieldsByID(c.Request.Context(), id, patch)
	if err != nil {
		r.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r.Read(e))
}

func (r *Resource[T, R, C, U]) delete(c *gin.Context) {
	id, ok := r.bindID(c)
	if !ok {
		return
	}
	e, err := r.repo.Remove(c.Request.Context(), id)
	if err != nil {
		r.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r.Read(e))
}

func (r *Resource[T, R, C, U]) bindID(c *gin.Context) (int64, bool) {
	var q idQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		r.Fail(c, err)
		return 0, false
	}
	return *q.ID, true
}

// decodeOrigin validates raw against the read schema and loads it as an
// entity.
func (r *Resource[T, R, C, U]) decodeOrigin(raw json.RawMessage) (*T, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("%w: origin is required", errBadInput)
	}
	read := new(R)
	if err := json.Unmarshal(raw, read); err != nil {
		return nil, err
	}
	if err := binding.Validator.ValidateStruct(read); err != nil {
		return nil, err
	}
	e := new(T)
	if err := json.Unmarshal(raw, e); err != nil {
		return nil, err
	}
	return e, nil
}

// decodeUpdate validates raw against U and keeps only the keys the client
// sent that U declares. A map-shaped U keeps every key.
func (r *Resource[T, R, C, U]) decodeUpdate(raw []byte) (repository.Patch, error) {
	in := new(U)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, in); err != nil {
			return nil, err
		}
	}
	if err := binding.Validator.ValidateStruct(in); err != nil {
		return nil, err
	}
	patch, err := repository.DecodePatch(raw)
	if err != nil {
		return nil, err
	}
	declared := repository.FieldNamesOf[U]()
	if declared == nil {
		return patch, nil
	}
	return patch.Only(func(key string) bool { return lo.Contains(declared, key) }), nil
}

func parseIDs(raw []string) ([]int64, error) {
	ids := make([]int64, 0, len(raw))
	for _, s := range raw {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: ids: %q is not an integer", errBadInput, s)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
