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
	"errors"
	"fmt"
	"sync"
)

const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

var ErrUnknownCheck = errors.New("unsupported check type")

// CheckContext carries caller-supplied values to every check of a run.
type CheckContext map[string]interface{}

// CheckOutcome is what a registered check reports about a table.
type CheckOutcome struct {
	Passed bool `json:"passed"`
	// Level defaults to "info" for passed checks and "error" otherwise.
	Level   string                 `json:"level,omitempty"`
	Message string                 `json:"message,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Check is the interface that wraps a named verification over one table.
type Check interface {
	// Run inspects t and reports an outcome. A returned error means the check
	// itself could not run, not that the data failed it.
	Run(ctx context.Context, t *Table, checkCtx CheckContext) (CheckOutcome, error)
}

// CheckFunc adapts a plain function to Check.
type CheckFunc func(ctx context.Context, t *Table, checkCtx CheckContext) (CheckOutcome, error)

func (f CheckFunc) Run(ctx context.Context, t *Table, checkCtx CheckContext) (CheckOutcome, error) {
	return f(ctx, t, checkCtx)
}

// CheckFactory builds a fresh Check for every run.
type CheckFactory func() Check

// Registry maps names to checks and keeps registration order.
type Registry struct {
	mu      sync.RWMutex
	names   []string
	entries map[string]CheckFactory
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]CheckFactory)}
}

// Register adds a check under name. check may be a Check, a CheckFunc or a
// function with the same signature, or a CheckFactory / func() Check that is
// called once per run. Registering an existing name replaces the check but
// keeps its position.
func (r *Registry) Register(name string, check interface{}) error {
	if name == "" {
		return fmt.Errorf("check name must not be empty")
	}

	factory, err := toFactory(check)
	if err != nil {
		return fmt.Errorf("check %s: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[name]; !exists {
		r.names = append(r.names, name)
	}
	r.entries[name] = factory
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(name string, check interface{}) {
	if err := r.Register(name, check); err != nil {
		panic(err)
	}
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.names...)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}

func (r *Registry) lookup(name string) (CheckFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.entries[name]
	return f, ok
}

func toFactory(check interface{}) (CheckFactory, error) {
	switch c := check.(type) {
	case nil:
		return nil, fmt.Errorf("%w: nil", ErrUnknownCheck)
	case CheckFactory:
		return c, nil
	case func() Check:
		return c, nil
	case CheckFunc:
		return func() Check { return c }, nil
	case func(context.Context, *Table, CheckContext) (CheckOutcome, error):
		return func() Check { return CheckFunc(c) }, nil
	case Check:
		return func() Check { return c }, nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnknownCheck, check)
}
