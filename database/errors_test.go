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
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		is   bool
		kind SQLError
	}{
		{nil, false, UnknownErr},
		{sql.ErrNoRows, true, NoRowsErr},
		{fmt.Errorf("wrapped: %w", &pq.Error{Code: "23505"}), true, DuplicateKeyErr},
		{&pq.Error{Code: "42P01"}, true, NoTableErr},
		{&pq.Error{Code: "XX000"}, true, UnknownErr},
		{&mysql.MySQLError{Number: 1062}, true, DuplicateKeyErr},
		{&mysql.MySQLError{Number: 1048}, true, NotNullViolationErr},
		{errors.New("constraint failed: UNIQUE constraint failed: book.isbn (2067)"), true, DuplicateKeyErr},
		{errors.New("SQL logic error: no such table: book (1)"), true, NoTableErr},
		{errors.New("NOT NULL constraint failed: book.title"), true, NotNullViolationErr},
		{errors.New("something else"), false, UnknownErr},
	}
	for _, c := range cases {
		is, kind := Classify(c.err)
		assert.Equal(t, c.is, is, "%v", c.err)
		assert.Equal(t, c.kind, kind, "%v", c.err)
	}
}

func TestSQLErrorEnum(t *testing.T) {
	assert.Equal(t, "duplicate_key", DuplicateKeyErr.Name())
	assert.Equal(t, "duplicate_key", DuplicateKeyErr.String())
	assert.Equal(t, int(DuplicateKeyErr), DuplicateKeyErr.Number())
	assert.NotEmpty(t, DuplicateKeyErr.Desc())

	bogus := SQLError(99)
	assert.False(t, bogus.IsValid())
	assert.Equal(t, -1, bogus.Number())
	assert.Equal(t, "unknown", bogus.Name())
}
