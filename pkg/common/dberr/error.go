// Copyright 2022 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dberr

import (
	"errors"
	"fmt"
)

const (
	OkExpectedEOB uint16 = 4 // end of batch, not an error to stop scanning

	ErrInternal            uint16 = 20101
	ErrNYI                 uint16 = 20102
	ErrConstraintViolation uint16 = 20304
	ErrDuplicateEntry      uint16 = 20305
	ErrCatalog             uint16 = 20402
	ErrNotFound            uint16 = 20501
	ErrTxnWriteConflict    uint16 = 20601
)

var errorTemplates = map[uint16]string{
	ErrInternal:            "internal error: %s",
	ErrNYI:                 "%s is not yet implemented",
	ErrConstraintViolation: "constraint violation: %s",
	ErrDuplicateEntry:      "Duplicate entry '%s' for key '%s'",
	ErrCatalog:             "catalog error: %s",
	ErrNotFound:            "not found",
	ErrTxnWriteConflict:    "txn write conflict: %s",
}

type Error struct {
	code    uint16
	message string
}

func (e *Error) Error() string {
	return e.message
}

func (e *Error) ErrorCode() uint16 {
	return e.code
}

func newError(code uint16, args ...any) *Error {
	format, ok := errorTemplates[code]
	if !ok {
		panic(fmt.Sprintf("dberr: unknown error code %d", code))
	}
	return &Error{
		code:    code,
		message: fmt.Sprintf(format, args...),
	}
}

// IsErrCode reports whether err carries the given engine error code.
func IsErrCode(err error, code uint16) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.code == code
}

func NewInternalError(format string, args ...any) *Error {
	return newError(ErrInternal, fmt.Sprintf(format, args...))
}

func NewNYI(format string, args ...any) *Error {
	return newError(ErrNYI, fmt.Sprintf(format, args...))
}

func NewConstraintViolation(format string, args ...any) *Error {
	return newError(ErrConstraintViolation, fmt.Sprintf(format, args...))
}

func NewDuplicateEntry(entry string, key string) *Error {
	return newError(ErrDuplicateEntry, entry, key)
}

func NewCatalogError(format string, args ...any) *Error {
	return newError(ErrCatalog, fmt.Sprintf(format, args...))
}

func NewNotFound() *Error {
	return newError(ErrNotFound)
}

func NewTxnWriteConflict(format string, args ...any) *Error {
	return newError(ErrTxnWriteConflict, fmt.Sprintf(format, args...))
}
