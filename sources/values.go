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

package sources

import (
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// normalizeValue maps driver values onto the value kinds tables work with:
// int64, float64, bool, string, time.Time and nil.
func normalizeValue(v interface{}) interface{} {
	switch x := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(x)
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case int64, float64, bool, string, time.Time:
		return x
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint:
		return normalizeUint(uint64(x))
	case uint64:
		return normalizeUint(x)
	case float32:
		return float64(x)
	case interface{ Float64() (float64, bool) }:
		// decimals
		f, _ := x.Float64()
		return f
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		return normalizeValue(rv.Elem().Interface())
	}
	return v
}

func normalizeUint(u uint64) interface{} {
	if u > math.MaxInt64 {
		return float64(u)
	}
	return int64(u)
}

// parseCells converts raw text cells column by column. Empty cells become nil.
// With parseNumbers, a column whose non-empty cells all read as integers
// becomes int64 and one whose cells all read as numbers becomes float64.
func parseCells(header []string, records [][]string, parseNumbers bool) [][]interface{} {
	rows := make([][]interface{}, len(records))
	for i := range records {
		rows[i] = make([]interface{}, len(header))
	}

	for j := range header {
		allInt, allFloat := parseNumbers, parseNumbers
		for _, rec := range records {
			cell := cellAt(rec, j)
			if cell == "" || (!allInt && !allFloat) {
				continue
			}
			cell = strings.TrimSpace(cell)
			if _, err := strconv.ParseInt(cell, 10, 64); err != nil {
				allInt = false
			}
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				allFloat = false
			}
		}

		for i, rec := range records {
			cell := cellAt(rec, j)
			switch {
			case cell == "":
				rows[i][j] = nil
			case allInt:
				n, _ := strconv.ParseInt(strings.TrimSpace(cell), 10, 64)
				rows[i][j] = n
			case allFloat:
				f, _ := strconv.ParseFloat(strings.TrimSpace(cell), 64)
				rows[i][j] = f
			default:
				rows[i][j] = cell
			}
		}
	}
	return rows
}

// cellAt returns cell j of rec; short records read as empty.
func cellAt(rec []string, j int) string {
	if j >= len(rec) {
		return ""
	}
	return rec[j]
}

// headerNames trims header cells, names blank ones "Unnamed: <index>" and
// suffixes repeated names with ".1", ".2", ...
func headerNames(raw []string) []string {
	names := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	for i, h := range raw {
		name := strings.TrimSpace(h)
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		if n, dup := seen[name]; dup {
			base := name
			for {
				n++
				name = base + "." + strconv.Itoa(n)
				if _, taken := seen[name]; !taken {
					break
				}
			}
			seen[base] = n
		}
		seen[name] = 0
		names[i] = name
	}
	return names
}
