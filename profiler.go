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
	"sort"
	"strings"
	"sync"
	"time"
)

// TableMetrics represents the profile of a table.
type TableMetrics struct {
	ProfiledAt          int64                     `json:"profiled_at"`
	TotalRows           uint64                    `json:"total_rows"`
	ColumnsMetrics      map[string]*ColumnMetrics `json:"columns_metrics"`
	ProfilingDurationMs int64                     `json:"profiling_duration_ms"`
	Errors              []error                   `json:"-"`
}

// ColumnMetrics represents the profile of a column.
type ColumnMetrics struct {
	ColumnName          string   `json:"col_name"`
	ColumnPosition      uint     `json:"col_position"`
	DataType            DType    `json:"data_type"`
	NullCount           uint64   `json:"null_count"`
	BlankCount          *int64   `json:"blank_count,omitempty"`         // string only
	MinValue            *float64 `json:"min_value,omitempty"`           // numeric only
	MaxValue            *float64 `json:"max_value,omitempty"`           // numeric only
	AvgValue            *float64 `json:"avg_value,omitempty"`           // numeric only
	StddevValue         *float64 `json:"stddev_value,omitempty"`        // numeric only (Population StdDev)
	MostFrequentValue   *string  `json:"most_frequent_value,omitempty"` // nil when the most frequent value is null
	ProfilingDurationMs int64    `json:"profiling_duration_ms"`
}

// ProfileTable computes column metrics for t, running at most maxConcurrent
// column tasks at once.
func ProfileTable(ctx context.Context, t *Table, maxConcurrent int, logger *slog.Logger) *TableMetrics {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	startTime := time.Now()
	taskPool := NewTaskPool(ctx, maxConcurrent, logger)

	var metricsLock sync.Mutex
	metrics := &TableMetrics{
		ProfiledAt:     startTime.Unix(),
		TotalRows:      uint64(t.Len()),
		ColumnsMetrics: make(map[string]*ColumnMetrics, len(t.columns)),
	}

	for pos, col := range t.Columns() {
		column := col
		position := uint(pos)
		taskPool.Enqueue(fmt.Sprintf("task:%s:profile", column.Name), func(ctx context.Context) error {
			colStartTime := time.Now()
			values, _ := t.Column(column.Name)
			colMetrics := profileColumn(column, position, values)
			colMetrics.ProfilingDurationMs = time.Since(colStartTime).Milliseconds()

			metricsLock.Lock()
			metrics.ColumnsMetrics[column.Name] = colMetrics
			metricsLock.Unlock()

			logger.Debug("finished processing column",
				"col_name", column.Name,
				"proc_duration_ms", colMetrics.ProfilingDurationMs)
			return nil
		})
	}

	taskPool.Join()

	metrics.Errors = taskPool.Errors()
	metrics.ProfilingDurationMs = time.Since(startTime).Milliseconds()

	logger.Debug("finished data profiling for table",
		"columns", len(metrics.ColumnsMetrics),
		"profile_duration_ms", metrics.ProfilingDurationMs)

	return metrics
}

func profileColumn(column Column, position uint, values []interface{}) *ColumnMetrics {
	m := &ColumnMetrics{
		ColumnName:     column.Name,
		ColumnPosition: position,
		DataType:       column.Type,
	}

	counts := map[string]int{}
	labels := map[string]string{}
	for _, v := range values {
		if IsNull(v) {
			m.NullCount++
			continue
		}
		key := canonicalValue(v)
		counts[key]++
		labels[key] = fmt.Sprintf("%v", v)
	}

	if column.Type == DTypeString || column.Type == DTypeObject {
		var blanks int64
		for _, v := range values {
			if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
				blanks++
			}
		}
		m.BlankCount = &blanks
	}

	if column.Type.IsNumeric() {
		stats := numericStats(ToFloats(values))
		if stats.n > 0 {
			minV, maxV, avg, stddev := stats.min, stats.max, stats.mean(), stats.stddev()
			m.MinValue, m.MaxValue, m.AvgValue, m.StddevValue = &minV, &maxV, &avg, &stddev
		}
	}

	// stays nil when null is strictly the most common value
	if len(counts) > 0 {
		keys := make([]string, 0, len(counts))
		for k := range counts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		best := keys[0]
		for _, k := range keys[1:] {
			if counts[k] > counts[best] {
				best = k
			}
		}
		if uint64(counts[best]) >= m.NullCount {
			label := labels[best]
			m.MostFrequentValue = &label
		}
	}

	return m
}
