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

// Package pipeline runs the comparisons and validations of a checks file
// against their data sources and collects the results into a RunReport.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Hsu-Huahsing/WageBound"
	"github.com/Hsu-Huahsing/WageBound/sources"
)

const (
	Version = "v0.4.0"

	defaultMaxConcurrentJobs = 4
	defaultPoolSize          = 4
)

// Loader loads the table a dataset reference points at.
type Loader func(ctx context.Context, ds *wagebound.DataSource, ref wagebound.DatasetRef) (*wagebound.Table, error)

type Options struct {
	// MaxConcurrentJobs bounds how many comparisons and validations run at once.
	MaxConcurrentJobs int
	// PoolSize is the connection pool size of database sources and the
	// concurrency of column profiling.
	PoolSize int
	// Loader replaces the default loader built on the sources package.
	Loader Loader
	// SkipOutput disables persisting the report to the checks file's output block.
	SkipOutput bool
	Logger     *slog.Logger
}

type Runner struct {
	opts   Options
	loader Loader
	logger *slog.Logger
}

func NewRunner(opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.MaxConcurrentJobs < 1 {
		opts.MaxConcurrentJobs = defaultMaxConcurrentJobs
	}
	if opts.PoolSize < 1 {
		opts.PoolSize = defaultPoolSize
	}

	r := &Runner{opts: opts, loader: opts.Loader, logger: logger}
	if r.loader == nil {
		r.loader = func(ctx context.Context, ds *wagebound.DataSource, ref wagebound.DatasetRef) (*wagebound.Table, error) {
			return sources.Load(ctx, ds, ref, opts.PoolSize, logger)
		}
	}
	return r
}

// Run executes every comparison and validation of cfg. A job that fails
// records its error in its outcome and the other jobs continue; the returned
// error only reports a failure to persist the report.
func (r *Runner) Run(ctx context.Context, cfg *wagebound.VerifyFileConfig) (*RunReport, error) {
	report := &RunReport{
		RunID:       uuid.New(),
		Version:     Version,
		StartedAt:   time.Now(),
		Comparisons: make([]*ComparisonOutcome, len(cfg.Comparisons)),
		Validations: make([]*ValidationOutcome, len(cfg.Validations)),
	}
	logger := r.logger.With("run_id", report.RunID.String())
	logger.Info("starting verification run",
		"comparisons", len(cfg.Comparisons),
		"validations", len(cfg.Validations))

	taskPool := wagebound.NewTaskPool(ctx, r.opts.MaxConcurrentJobs, logger)
	jobErrors := map[string]*string{}

	for i := range cfg.Comparisons {
		c := cfg.Comparisons[i]
		outcome := &ComparisonOutcome{Name: c.Name}
		report.Comparisons[i] = outcome
		id := "comparison:" + c.Name
		jobErrors[id] = &outcome.Error

		taskPool.Enqueue(id, func(ctx context.Context) error {
			startTime := time.Now()
			err := r.runComparison(ctx, cfg, c, outcome)
			outcome.DurationMs = time.Since(startTime).Milliseconds()
			return err
		})
	}

	for i := range cfg.Validations {
		v := cfg.Validations[i]
		outcome := &ValidationOutcome{Name: v.Name}
		report.Validations[i] = outcome
		id := "validation:" + v.Name
		jobErrors[id] = &outcome.Error

		taskPool.Enqueue(id, func(ctx context.Context) error {
			startTime := time.Now()
			err := r.runValidation(ctx, cfg, v, outcome)
			outcome.DurationMs = time.Since(startTime).Milliseconds()
			return err
		})
	}

	taskPool.Join()

	for _, err := range taskPool.Errors() {
		var taskErr *wagebound.TaskError
		if errors.As(err, &taskErr) {
			if msg, ok := jobErrors[taskErr.TaskID]; ok {
				*msg = taskErr.Err.Error()
			}
		}
	}

	report.FinishedAt = time.Now()
	logger.Info("finished verification run",
		"ok", report.Ok(),
		"elapsed_ms", report.FinishedAt.Sub(report.StartedAt).Milliseconds())

	if cfg.Output != nil && !r.opts.SkipOutput {
		if err := r.persist(ctx, cfg, report); err != nil {
			return report, fmt.Errorf("failed to write run report: %w", err)
		}
	}

	return report, nil
}

func (r *Runner) load(ctx context.Context, cfg *wagebound.VerifyFileConfig, ref wagebound.DatasetRef) (*wagebound.Table, error) {
	ds, ok := cfg.DataSource(ref.DataSource)
	if !ok {
		return nil, fmt.Errorf("unknown data source %q", ref.DataSource)
	}
	return r.loader(ctx, ds, ref)
}

func (r *Runner) runComparison(ctx context.Context, cfg *wagebound.VerifyFileConfig, c wagebound.ComparisonConfig, outcome *ComparisonOutcome) error {
	expected, err := r.load(ctx, cfg, c.Expected)
	if err != nil {
		return fmt.Errorf("expected: %w", err)
	}
	actual, err := r.load(ctx, cfg, c.Actual)
	if err != nil {
		return fmt.Errorf("actual: %w", err)
	}

	res, err := wagebound.VerifyTables(expected, actual, c.VerifyConfig(), c.VerifyOptions()...)
	if err != nil {
		return err
	}
	outcome.Result = res

	r.logger.Debug("comparison completed",
		"comparison", c.Name,
		"diff_rows", res.DiffRows.Len(),
		"missing_in_expected", res.MissingInExpected.Len(),
		"missing_in_actual", res.MissingInActual.Len())
	return nil
}

func (r *Runner) runValidation(ctx context.Context, cfg *wagebound.VerifyFileConfig, v wagebound.ValidationConfig, outcome *ValidationOutcome) error {
	t, err := r.load(ctx, cfg, v.Dataset)
	if err != nil {
		return err
	}

	rules, reg, err := v.BuildChecks()
	if err != nil {
		return err
	}

	outcome.Issues = wagebound.RunRules(t, rules...)

	records, err := wagebound.RunVerifications(ctx, t, reg, wagebound.RunOptions{
		Include: v.Include,
		Exclude: v.Exclude,
		Strict:  v.Strict,
		Logger:  r.logger,
	})
	outcome.Checks = records
	if err != nil {
		return err
	}

	if v.Profile {
		outcome.Profile = wagebound.ProfileTable(ctx, t, r.opts.PoolSize, r.logger)
	}

	r.logger.Debug("validation completed",
		"validation", v.Name,
		"issues", len(outcome.Issues),
		"checks", len(outcome.Checks))
	return nil
}
