// Copyright 2025 The WageBound Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package wagebound

import (
	"math"
	"time"
)

// DType is the declared or inferred type of a table column.
type DType string

const (
	DTypeInt64    DType = "int64"
	DTypeFloat64  DType = "float64"
	DTypeBool     DType = "bool"
	DTypeString   DType = "string"
	DTypeDatetime DType = "datetime"
	DTypeObject   DType = "object"
)

// IsNumeric reports whether values of the type can be compared numerically without coercion.
func (d DType) IsNumeric() bool {
	return d == DTypeInt64 || d == DTypeFloat64
}

// IsNull reports whether v is a missing value: nil or a floating NaN.
func IsNull(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	}
	return false
}

type valueKind int

const (
	kindNull valueKind = iota
	kindInt
	kindFloat
	kindBool
	kindString
	kindTime
	kindOther
)

func kindOf(v interface{}) valueKind {
	if IsNull(v) {
		return kindNull
	}
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return kindInt
	case float32, float64:
		return kindFloat
	case bool:
		return kindBool
	case string:
		return kindString
	case time.Time:
		return kindTime
	}
	return kindOther
}

// InferDType infers a column type from its non-null values.
// Integer columns stay int64 even when they contain nulls.
func InferDType(values []interface{}) DType {
	seen := map[valueKind]bool{}
	for _, v := range values {
		k := kindOf(v)
		if k == kindNull {
			continue
		}
		seen[k] = true
	}

	switch {
	case len(seen) == 0:
		return DTypeObject
	case len(seen) == 1 && seen[kindInt]:
		return DTypeInt64
	case len(seen) == 1 && seen[kindFloat]:
		return DTypeFloat64
	case len(seen) == 2 && seen[kindInt] && seen[kindFloat]:
		return DTypeFloat64
	case len(seen) == 1 && seen[kindBool]:
		return DTypeBool
	case len(seen) == 1 && seen[kindString]:
		return DTypeString
	case len(seen) == 1 && seen[kindTime]:
		return DTypeDatetime
	}
	return DTypeObject
}
