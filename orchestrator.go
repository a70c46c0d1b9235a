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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// VerificationRecord is the normalised result of one registered check.
type VerificationRecord struct {
	Name    string                 `json:"name"`
	Passed  bool                   `json:"passed"`
	Level   string                 `json:"level"`
	Message string                 `json:"message,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// RunOptions selects and configures the checks run by RunVerifications.
type RunOptions struct {
	// Include restricts the run to these names when non-empty.
	Include []string
	// Exclude removes names after Include is applied.
	Exclude []string
	// Strict aborts on the first check error instead of recording it.
	Strict  bool
	Context CheckContext
	Logger  *slog.Logger
}

// CheckPanicError wraps a panic raised inside a check.
type CheckPanicError struct {
	Name  string
	Value interface{}
}

func (e *CheckPanicError) Error() string {
	return fmt.Sprintf("check %s panicked: %v", e.Name, e.Value)
}

// RunVerifications runs the selected checks of reg against t in registry
// order and returns one record per check. With Strict unset, a check that
// fails to run (error or panic) is recorded as a failed "error" record and the
// remaining checks still run.
func RunVerifications(ctx context.Context, t *Table, reg *Registry, opts RunOptions) ([]VerificationRecord, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	names := selectChecks(reg.Names(), opts.Include, opts.Exclude)
	records := make([]VerificationRecord, 0, len(names))

	for _, name := range names {
		factory, ok := reg.lookup(name)
		if !ok {
			continue
		}

		startTime := time.Now()
		outcome, err := runCheck(ctx, name, factory, t, opts.Context)
		elapsed := time.Since(startTime).Milliseconds()

		if err != nil {
			if opts.Strict {
				return records, fmt.Errorf("check %s failed: %w", name, err)
			}
			logger.Warn("check failed to run", "check", name, "error", err.Error())
			records = append(records, VerificationRecord{
				Name:    name,
				Passed:  false,
				Level:   LevelError,
				Message: err.Error(),
			})
			continue
		}

		logger.Debug("check completed", "check", name, "passed", outcome.Passed, "elapsed_ms", elapsed)
		records = append(records, normalizeOutcome(name, outcome))
	}

	return records, nil
}

func runCheck(ctx context.Context, name string, factory CheckFactory, t *Table, checkCtx CheckContext) (outcome CheckOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &CheckPanicError{Name: name, Value: r}
		}
	}()

	check := factory()
	if check == nil {
		return CheckOutcome{}, fmt.Errorf("check factory returned nil")
	}
	return check.Run(ctx, t, checkCtx)
}

func normalizeOutcome(name string, o CheckOutcome) VerificationRecord {
	level := o.Level
	if level == "" {
		level = LevelInfo
		if !o.Passed {
			level = LevelError
		}
	}
	return VerificationRecord{
		Name:    name,
		Passed:  o.Passed,
		Level:   level,
		Message: o.Message,
		Details: o.Details,
	}
}

func selectChecks(names, include, exclude []string) []string {
	var inc map[string]bool
	if len(include) > 0 {
		inc = make(map[string]bool, len(include))
		for _, n := range include {
			inc[n] = true
		}
	}
	exc := make(map[string]bool, len(exclude))
	for _, n := range exclude {
		exc[n] = true
	}

	out := make([]string, 0, len(names))
	for _, n := range names {
		if inc != nil && !inc[n] {
			continue
		}
		if exc[n] {
			continue
		}
		out = append(out, n)
	}
	return out
}

// VerificationColumns are the columns of VerificationRecordsTable.
var VerificationColumns = []Column{
	{Name: "name", Type: DTypeString},
	{Name: "passed", Type: DTypeBool},
	{Name: "level", Type: DTypeString},
	{Name: "message", Type: DTypeString},
	{Name: "details", Type: DTypeString},
}

// VerificationRecordsTable builds a table with one row per record. Details are
// rendered as JSON.
func VerificationRecordsTable(records []VerificationRecord) *Table {
	rows := make([][]interface{}, len(records))
	for i, r := range records {
		var details interface{}
		if len(r.Details) > 0 {
			if b, err := json.Marshal(r.Details); err == nil {
				details = string(b)
			} else {
				details = fmt.Sprintf("%v", r.Details)
			}
		}
		rows[i] = []interface{}{r.Name, r.Passed, r.Level, r.Message, details}
	}
	t, err := NewTable(VerificationColumns, rows)
	if err != nil {
		panic(err)
	}
	return t
}
