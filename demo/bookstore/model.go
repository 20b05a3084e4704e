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

package bookstore

import (
	"time"

	"github.com/tomoncle/easycrud/database"
	"github.com/tomoncle/easycrud/entity"
	"github.com/tomoncle/easycrud/types"
)

func init() {
	database.Register[Book](10)
}

// Book is stored in the "book" table.
type Book struct {
	entity.Base
	Title    string           `bun:"title,notnull" json:"title"`
	Author   string           `bun:"author,notnull" json:"author"`
	ISBN     string           `bun:"isbn,unique,nullzero" json:"isbn"`
	Price    float64          `bun:"price,notnull,default:0" json:"price"`
	Metadata types.JsonObject `bun:"metadata,type:text" json:"metadata"`
}

type BookRead struct {
	ID               int64            `json:"id" binding:"required"`
	Title            string           `json:"title"`
	Author           string           `json:"author"`
	ISBN             string           `json:"isbn"`
	Price            float64          `json:"price"`
	Metadata         types.JsonObject `json:"metadata,omitempty"`
	CreateTime       time.Time        `json:"create_time"`
	LastModifiedTime time.Time        `json:"last_modified_time"`
}

type BookCreate struct {
	Title    string           `json:"title" binding:"required,max=200"`
	Author   string           `json:"author" binding:"required"`
	ISBN     string           `json:"isbn" binding:"omitempty,isbn"`
	Price    float64          `json:"price" binding:"min=0"`
	Metadata types.JsonObject `json:"metadata"`
}

type BookUpdate struct {
	Title    *string          `json:"title,omitempty" binding:"omitempty,min=1,max=200"`
	Author   *string          `json:"author,omitempty" binding:"omitempty,min=1"`
	Price    *float64         `json:"price,omitempty" binding:"omitempty,min=0"`
	Metadata types.JsonObject `json:"metadata,omitempty"`
}

func FromCreate(in *BookCreate) *Book {
	return &Book{
		Title:    in.Title,
		Author:   in.Author,
		ISBN:     in.ISBN,
		Price:    in.Price,
		Metadata: in.Metadata,
	}
}

func ToRead(b *Book) *BookRead {
	return &BookRead{
		ID:               b.ID,
		Title:            b.Title,
		Author:           b.Author,
		ISBN:             b.ISBN,
		Price:            b.Price,
		Metadata:         b.Metadata,
		CreateTime:       b.CreateTime,
		LastModifiedTime: b.LastModifiedTime,
	}
}
