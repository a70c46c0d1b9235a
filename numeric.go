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
	"strconv"
	"strings"

	"golang.org/x/text/width"
)

// ToFloat coerces v to a float64. Values that cannot be read as a number
// (nulls, bools, times, malformed strings) return NaN and false.
//
// Strings are trimmed, full-width digits are folded to ASCII and thousands
// separators are dropped, so "１２,３４５" reads as 12345.
func ToFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return math.NaN(), false
	case float64:
		return x, !math.IsNaN(x)
	case float32:
		return float64(x), !math.IsNaN(float64(x))
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case string:
		return parseNumericString(x)
	case []byte:
		return parseNumericString(string(x))
	}
	return math.NaN(), false
}

func parseNumericString(s string) (float64, bool) {
	s = strings.TrimSpace(width.Narrow.String(s))
	if s == "" {
		return math.NaN(), false
	}
	s = strings.ReplaceAll(s, ",", "")

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return math.NaN(), false
	}
	return f, true
}

// ToFloats coerces a column of values, see ToFloat.
func ToFloats(values []interface{}) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i], _ = ToFloat(v)
	}
	return out
}
