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

import "fmt"

type verifyOptions struct {
	useColsExpected []string
	useColsActual   []string
	dateCols        []string
	dateLayout      DateLayout
}

// VerifyOption tunes VerifyTables.
type VerifyOption func(*verifyOptions)

// WithUseColumns keeps only the given columns (plus the key columns) of each
// side before comparing. A nil slice keeps every column of that side.
func WithUseColumns(expectedCols, actualCols []string) VerifyOption {
	return func(o *verifyOptions) {
		o.useColsExpected = expectedCols
		o.useColsActual = actualCols
	}
}

// WithDateColumns converts the given columns on both sides to dates first.
func WithDateColumns(layout DateLayout, cols ...string) VerifyOption {
	return func(o *verifyOptions) {
		o.dateLayout = layout
		o.dateCols = append(o.dateCols, cols...)
	}
}

// VerifyTables prepares expected and actual (column projection, date
// conversion) and compares them with CompareDatasets. The inputs are not modified.
func VerifyTables(expected, actual *Table, cfg VerifyConfig, opts ...VerifyOption) (*VerifyResult, error) {
	var o verifyOptions
	for _, opt := range opts {
		opt(&o)
	}

	if o.useColsExpected != nil {
		expected = expected.Select(append(append([]string(nil), cfg.KeyCols...), o.useColsExpected...)...)
	}
	if o.useColsActual != nil {
		actual = actual.Select(append(append([]string(nil), cfg.KeyCols...), o.useColsActual...)...)
	}

	if len(o.dateCols) > 0 {
		var err error
		if expected, err = PrepareDateColumns(expected, o.dateLayout, o.dateCols...); err != nil {
			return nil, fmt.Errorf("expected: %w", err)
		}
		if actual, err = PrepareDateColumns(actual, o.dateLayout, o.dateCols...); err != nil {
			return nil, fmt.Errorf("actual: %w", err)
		}
	}

	return CompareDatasets(expected, actual, cfg)
}
