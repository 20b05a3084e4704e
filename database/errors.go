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
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/tomoncle/easycrud/types"
)

// SQLError classifies a store failure. It only labels errors for logs and
// responses; the error itself is always propagated unchanged.
type SQLError int

const (
	UnknownErr SQLError = iota
	NoRowsErr
	NoColumnErr
	NoTableErr
	ExistTableErr
	DuplicateKeyErr
	NotNullViolationErr
	ForeignKeyViolationErr
	CheckConstraintViolationErr
	DataTruncatedErr
	InvalidTypeCastErr
	ConnectionErr
)

var _ types.Enum = SQLError(0)

var sqlErrorNames = [...]string{
	UnknownErr:                  "unknown",
	NoRowsErr:                   "no_rows",
	NoColumnErr:                 "no_column",
	NoTableErr:                  "no_table",
	ExistTableErr:               "table_exists",
	DuplicateKeyErr:             "duplicate_key",
	NotNullViolationErr:         "not_null_violation",
	ForeignKeyViolationErr:      "foreign_key_violation",
	CheckConstraintViolationErr: "check_violation",
	DataTruncatedErr:            "data_truncated",
	InvalidTypeCastErr:          "invalid_type_cast",
	ConnectionErr:               "connection",
}

var sqlErrorDescs = [...]string{
	UnknownErr:                  "unclassified database error",
	NoRowsErr:                   "no rows in result set",
	NoColumnErr:                 "column does not exist",
	NoTableErr:                  "table does not exist",
	ExistTableErr:               "table already exists",
	DuplicateKeyErr:             "unique constraint violated",
	NotNullViolationErr:         "not-null constraint violated",
	ForeignKeyViolationErr:      "foreign key constraint violated",
	CheckConstraintViolationErr: "check constraint violated",
	DataTruncatedErr:            "value too long for column",
	InvalidTypeCastErr:          "value has the wrong type for column",
	ConnectionErr:               "database connection failed",
}

func (e SQLError) IsValid() bool { return e >= UnknownErr && e <= ConnectionErr }

func (e SQLError) Number() int {
	if !e.IsValid() {
		return types.IllegalValue
	}
	return int(e)
}

func (e SQLError) Name() string {
	if !e.IsValid() {
		return types.IllegalName
	}
	return sqlErrorNames[e]
}

func (e SQLError) Desc() string {
	if !e.IsValid() {
		return types.IllegalName
	}
	return sqlErrorDescs[e]
}

func (e SQLError) String() string { return e.Name() }

// postgres SQLSTATE codes
var pqCodes = map[pq.ErrorCode]SQLError{
	"42703": NoColumnErr,
	"42P01": NoTableErr,
	"42P07": ExistTableErr,
	"23505": DuplicateKeyErr,
	"23502": NotNullViolationErr,
	"23503": ForeignKeyViolationErr,
	"23514": CheckConstraintViolationErr,
	"22001": DataTruncatedErr,
	"42804": InvalidTypeCastErr,
	"22P02": InvalidTypeCastErr,
	"08000": ConnectionErr,
	"08003": ConnectionErr,
	"08006": ConnectionErr,
}

var mysqlNumbers = map[uint16]SQLError{
	1054: NoColumnErr,
	1146: NoTableErr,
	1050: ExistTableErr,
	1062: DuplicateKeyErr,
	1048: NotNullViolationErr,
	1216: ForeignKeyViolationErr,
	1217: ForeignKeyViolationErr,
	1451: ForeignKeyViolationErr,
	1452: ForeignKeyViolationErr,
	3819: CheckConstraintViolationErr,
	1265: DataTruncatedErr,
	1406: DataTruncatedErr,
	1366: InvalidTypeCastErr,
}

// Classify reports whether err came from the store and which kind it is.
func Classify(err error) (is bool, sqlErr SQLError) {
	if err == nil {
		return false, UnknownErr
	}
	if errors.Is(err, sql.ErrNoRows) {
		return true, NoRowsErr
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if kind, ok := pqCodes[pqErr.Code]; ok {
			return true, kind
		}
		return true, UnknownErr
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		if kind, ok := mysqlNumbers[mysqlErr.Number]; ok {
			return true, kind
		}
		return true, UnknownErr
	}
	if errors.Is(err, mysql.ErrInvalidConn) || errors.Is(err, sql.ErrConnDone) {
		return true, ConnectionErr
	}
	return classifyMessage(strings.ToLower(err.Error()))
}

// sqlite errors only carry a message.
func classifyMessage(s string) (bool, SQLError) {
	switch {
	case strings.Contains(s, "no such column"):
		return true, NoColumnErr
	case strings.Contains(s, "no such table"):
		return true, NoTableErr
	case strings.Contains(s, "already exists") && strings.Contains(s, "table"):
		return true, ExistTableErr
	case strings.Contains(s, "unique constraint failed"):
		return true, DuplicateKeyErr
	case strings.Contains(s, "not null constraint failed"):
		return true, NotNullViolationErr
	case strings.Contains(s, "foreign key constraint failed"):
		return true, ForeignKeyViolationErr
	case strings.Contains(s, "check constraint failed"):
		return true, CheckConstraintViolationErr
	case strings.Contains(s, "datatype mismatch"):
		return true, InvalidTypeCastErr
	case strings.Contains(s, "database is locked"), strings.Contains(s, "database is closed"):
		return true, ConnectionErr
	}
	return false, UnknownErr
}
