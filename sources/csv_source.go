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
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/Hsu-Huahsing/WageBound"
)

type CSVOptions struct {
	// Encoding names the file encoding, e.g. "utf-8", "big5" or "cp950".
	// Empty means UTF-8. A byte order mark always wins.
	Encoding string
	// Delimiter defaults to a comma.
	Delimiter    string
	ParseNumbers bool
}

// CSVSource reads a delimited text file with a header row.
type CSVSource struct {
	Path    string
	Options CSVOptions
}

func (s *CSVSource) Load(ctx context.Context) (*wagebound.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := ReadCSV(f, s.Options)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.Path, err)
	}
	return t, nil
}

// ReadCSV reads a table from r. The first record is the header.
func ReadCSV(r io.Reader, opts CSVOptions) (*wagebound.Table, error) {
	enc, err := lookupEncoding(opts.Encoding)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder())))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	if opts.Delimiter != "" {
		d, size := utf8.DecodeRuneInString(opts.Delimiter)
		if size != len(opts.Delimiter) {
			return nil, fmt.Errorf("delimiter must be a single character: %q", opts.Delimiter)
		}
		reader.Comma = d
	}

	header, err := reader.Read()
	if err == io.EOF {
		return wagebound.EmptyTable(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	return buildTable(header, records, opts.ParseNumbers)
}

func buildTable(header []string, records [][]string, parseNumbers bool) (*wagebound.Table, error) {
	names := headerNames(header)
	columns := make([]wagebound.Column, len(names))
	for i, name := range names {
		columns[i] = wagebound.Column{Name: name}
	}
	return wagebound.NewTable(columns, parseCells(names, records, parseNumbers))
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8", "utf-8-sig":
		return unicode.UTF8, nil
	case "big5", "cp950", "ms950", "big5-hkscs":
		return traditionalchinese.Big5, nil
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding: %s", name)
	}
	return enc, nil
}
