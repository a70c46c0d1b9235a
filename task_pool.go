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
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// TaskError ties a failed task to its id.
type TaskError struct {
	TaskID string
	Err    error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s: %v", e.TaskID, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// TaskPool runs tasks on at most poolSize goroutines at a time and collects
// their errors. Tasks queued after ctx is done are skipped with ctx's error.
type TaskPool struct {
	ctx       context.Context
	semaphore chan struct{}
	logger    *slog.Logger
	wg        sync.WaitGroup
	mu        sync.Mutex
	errors    []error
}

func NewTaskPool(ctx context.Context, poolSize int, logger *slog.Logger) *TaskPool {
	if logger == nil {
		// noop logger by default
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if poolSize < 1 {
		poolSize = 1
	}

	return &TaskPool{
		ctx:       ctx,
		semaphore: make(chan struct{}, poolSize),
		logger:    logger,
	}
}

func (tp *TaskPool) Enqueue(id string, task func(ctx context.Context) error) {
	tp.wg.Add(1)
	go func() {
		defer tp.wg.Done()

		select {
		case tp.semaphore <- struct{}{}:
		case <-tp.ctx.Done():
			tp.fail(id, tp.ctx.Err())
			return
		}
		defer func() { <-tp.semaphore }()

		tp.logger.Debug("executing task", "task_id", id)
		exeStartTime := time.Now()
		if err := runTask(tp.ctx, task); err != nil {
			tp.fail(id, err)
		}
		elapsed := time.Since(exeStartTime).Milliseconds()
		tp.logger.Debug("completed task", "task_id", id, "elapsed_ms", elapsed)
	}()
}

func runTask(ctx context.Context, task func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return task(ctx)
}

func (tp *TaskPool) fail(id string, err error) {
	tp.logger.Error("task failed", "task_id", id, "error", err.Error())
	tp.mu.Lock()
	tp.errors = append(tp.errors, &TaskError{TaskID: id, Err: err})
	tp.mu.Unlock()
}

// Join waits for every queued task to finish.
func (tp *TaskPool) Join() {
	tp.wg.Wait()
}

func (tp *TaskPool) Errors() []error {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	errsCopy := make([]error, len(tp.errors))
	copy(errsCopy, tp.errors)
	return errsCopy
}
