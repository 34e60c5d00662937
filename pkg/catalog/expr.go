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

package catalog

import (
	"fmt"

	"github.com/pidb/duckdb/pkg/common/dberr"
	"github.com/pidb/duckdb/pkg/container/types"
	"github.com/pidb/duckdb/pkg/containers"
)

// Expr is a bound expression produced by the external binder. The storage
// core only evaluates it over a batch; compilation is out of scope here.
type Expr interface {
	ReturnType() types.Type
	Eval(bat *containers.Batch) (containers.Vector, error)
	String() string
}

// ConstExpr yields the same value for every row.
type ConstExpr struct {
	Typ    types.Type
	Val    any
	IsNull bool
}

func (e *ConstExpr) ReturnType() types.Type { return e.Typ }

func (e *ConstExpr) Eval(bat *containers.Batch) (containers.Vector, error) {
	vec := containers.MakeVector(e.Typ)
	for i := 0; i < bat.Length(); i++ {
		vec.Append(e.Val, e.IsNull)
	}
	return vec, nil
}

func (e *ConstExpr) String() string {
	if e.IsNull {
		return "NULL"
	}
	return fmt.Sprintf("%v", e.Val)
}

// ColumnExpr yields one column of the input batch by storage position.
type ColumnExpr struct {
	Typ    types.Type
	ColIdx int
	Name   string
}

func (e *ColumnExpr) ReturnType() types.Type { return e.Typ }

func (e *ColumnExpr) Eval(bat *containers.Batch) (containers.Vector, error) {
	return bat.Vecs[e.ColIdx].CloneWindow(0, bat.Length()), nil
}

func (e *ColumnExpr) String() string { return e.Name }

// CastExpr converts the child expression's rows to the target type.
type CastExpr struct {
	Target types.Type
	Child  Expr
}

func (e *CastExpr) ReturnType() types.Type { return e.Target }

func (e *CastExpr) Eval(bat *containers.Batch) (containers.Vector, error) {
	src, err := e.Child.Eval(bat)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	out := containers.MakeVector(e.Target)
	for i := 0; i < src.Length(); i++ {
		if src.IsNull(i) {
			out.Append(nil, true)
			continue
		}
		v, err := CastValue(src.Get(i), e.Target)
		if err != nil {
			out.Close()
			return nil, err
		}
		out.Append(v, false)
	}
	return out, nil
}

func (e *CastExpr) String() string {
	return fmt.Sprintf("CAST(%s AS %s)", e.Child, e.Target)
}

// FuncExpr adapts an externally compiled expression into the bound form the
// core evaluates. The function receives the full input batch.
type FuncExpr struct {
	Typ  types.Type
	Name string
	Fn   func(bat *containers.Batch) (containers.Vector, error)
}

func (e *FuncExpr) ReturnType() types.Type { return e.Typ }

func (e *FuncExpr) Eval(bat *containers.Batch) (containers.Vector, error) {
	return e.Fn(bat)
}

func (e *FuncExpr) String() string { return e.Name }

func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		return int64(x), true
	case float32:
		return int64(x), true
	case float64:
		return int64(x), true
	}
	return 0, false
}

// CastValue converts a single value to the target logical type.
func CastValue(v any, target types.Type) (any, error) {
	switch target.Oid {
	case types.T_char, types.T_varchar:
		if b, ok := v.([]byte); ok {
			return b, nil
		}
		return []byte(fmt.Sprintf("%v", v)), nil
	case types.T_float32:
		if n, ok := toInt64(v); ok {
			return float32(n), nil
		}
	case types.T_float64:
		if f, ok := v.(float64); ok {
			return f, nil
		}
		if n, ok := toInt64(v); ok {
			return float64(n), nil
		}
	case types.T_bool:
		if n, ok := toInt64(v); ok {
			return n != 0, nil
		}
	case types.T_int8:
		if n, ok := toInt64(v); ok {
			return int8(n), nil
		}
	case types.T_int16:
		if n, ok := toInt64(v); ok {
			return int16(n), nil
		}
	case types.T_int32:
		if n, ok := toInt64(v); ok {
			return int32(n), nil
		}
	case types.T_int64:
		if n, ok := toInt64(v); ok {
			return n, nil
		}
	case types.T_uint8:
		if n, ok := toInt64(v); ok {
			return uint8(n), nil
		}
	case types.T_uint16:
		if n, ok := toInt64(v); ok {
			return uint16(n), nil
		}
	case types.T_uint32:
		if n, ok := toInt64(v); ok {
			return uint32(n), nil
		}
	case types.T_uint64:
		if n, ok := toInt64(v); ok {
			return uint64(n), nil
		}
	}
	return nil, dberr.NewInternalError("cannot cast %T to %s", v, target)
}
