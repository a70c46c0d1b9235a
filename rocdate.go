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
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/width"
)

// DateLayout selects how PrepareDateColumns reads date strings.
type DateLayout string

const (
	// DateLayoutROC reads Minguo calendar dates such as 1130105, 990105 or 113/01/05.
	DateLayoutROC DateLayout = "roc"
	// DateLayoutISO reads Gregorian dates such as 2024-01-05, 2024/01/05 or 20240105.
	DateLayoutISO DateLayout = "iso"
)

// rocYearOffset converts a Minguo year to a Gregorian one.
const rocYearOffset = 1911

var (
	rocCompactRegex   = regexp.MustCompile(`^(\d{2,3})(\d{2})(\d{2})$`)
	rocSeparatedRegex = regexp.MustCompile(`^(\d{1,3})[/\-.](\d{1,2})[/\-.](\d{1,2})$`)

	isoLayouts = []string{
		"2006-01-02",
		"2006/01/02",
		"20060102",
		"2006-01-02 15:04:05",
		time.RFC3339,
	}
)

// ParseDate reads s with the given layout.
func ParseDate(s string, layout DateLayout) (time.Time, error) {
	s = strings.TrimSpace(width.Narrow.String(s))
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	switch layout {
	case DateLayoutROC:
		return parseROCDate(s)
	case DateLayoutISO, "":
		for _, l := range isoLayouts {
			if t, err := time.Parse(l, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognised date: %s", s)
	default:
		return time.Time{}, fmt.Errorf("unsupported date layout: %s", layout)
	}
}

func parseROCDate(s string) (time.Time, error) {
	// values read from spreadsheets often arrive as "1130105.0"
	s = strings.TrimSuffix(s, ".0")

	matches := rocCompactRegex.FindStringSubmatch(s)
	if matches == nil {
		matches = rocSeparatedRegex.FindStringSubmatch(s)
	}
	if matches == nil {
		return time.Time{}, fmt.Errorf("unrecognised ROC date: %s", s)
	}

	year, _ := strconv.Atoi(matches[1])
	month, _ := strconv.Atoi(matches[2])
	day, _ := strconv.Atoi(matches[3])
	if year <= 0 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("invalid ROC date: %s", s)
	}

	t := time.Date(year+rocYearOffset, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day {
		return time.Time{}, fmt.Errorf("invalid ROC date: %s", s)
	}
	return t, nil
}

// PrepareDateColumns returns a copy of t where the listed columns are
// converted to datetime. Absent columns are skipped; values that cannot be
// parsed become null. Integer cells are read by their decimal digits, so
// 1130105 works under DateLayoutROC.
func PrepareDateColumns(t *Table, layout DateLayout, cols ...string) (*Table, error) {
	out := t
	for _, col := range cols {
		values, ok := out.Column(col)
		if !ok {
			continue
		}

		converted := make([]interface{}, len(values))
		for i, v := range values {
			converted[i] = toDate(v, layout)
		}

		var err error
		out, err = out.WithColumn(Column{Name: col, Type: DTypeDatetime}, converted)
		if err != nil {
			return nil, fmt.Errorf("failed to convert date column %s: %w", col, err)
		}
	}
	return out, nil
}

func toDate(v interface{}, layout DateLayout) interface{} {
	var s string
	switch x := v.(type) {
	case time.Time:
		return x
	case string:
		s = x
	default:
		if IsNull(v) {
			return nil
		}
		f, ok := ToFloat(v)
		if !ok || f != float64(int64(f)) {
			return nil
		}
		s = strconv.FormatInt(int64(f), 10)
	}

	d, err := ParseDate(s, layout)
	if err != nil {
		return nil
	}
	return d
}
