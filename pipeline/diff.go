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

package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Hsu-Huahsing/WageBound"
	"github.com/Hsu-Huahsing/WageBound/sources"
)

type DiffOptions struct {
	// Sheet is read from both workbooks; empty reads the first sheet.
	Sheet  string
	Verify wagebound.VerifyConfig
	// Encoding applies when the outputs are CSV files.
	Encoding      string
	VerifyOptions []wagebound.VerifyOption
}

// DiffBetweenVersions compares the output of a previous model version with the
// current one. The previous output plays the expected side. Files ending in
// .csv are read as CSV, everything else as Excel workbooks.
func DiffBetweenVersions(ctx context.Context, previous, current string, opts DiffOptions) (*wagebound.VerifyResult, error) {
	if opts.Verify.Rtol == 0 && opts.Verify.Atol == 0 {
		opts.Verify.Rtol = wagebound.DefaultRtol
	}
	if opts.Verify.LabelExpected == "" {
		opts.Verify.LabelExpected = "prev"
	}
	if opts.Verify.LabelActual == "" {
		opts.Verify.LabelActual = "cur"
	}

	prev, err := loadOutput(ctx, previous, opts)
	if err != nil {
		return nil, fmt.Errorf("previous version: %w", err)
	}
	cur, err := loadOutput(ctx, current, opts)
	if err != nil {
		return nil, fmt.Errorf("current version: %w", err)
	}

	return wagebound.VerifyTables(prev, cur, opts.Verify, opts.VerifyOptions...)
}

func loadOutput(ctx context.Context, path string, opts DiffOptions) (*wagebound.Table, error) {
	var src sources.TableSource
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		src = &sources.CSVSource{
			Path:    path,
			Options: sources.CSVOptions{Encoding: opts.Encoding, ParseNumbers: true},
		}
	} else {
		src = &sources.ExcelSource{Path: path, Sheet: opts.Sheet, ParseNumbers: true}
	}
	return src.Load(ctx)
}
