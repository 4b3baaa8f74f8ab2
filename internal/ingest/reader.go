package ingest

import (
	"context"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"

	apperrors "stocklens/internal/errors"
	"stocklens/internal/table"
)

// missingTokens are the cell values read as missing
var missingTokens = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

const ctxCheckInterval = 1024

// Options tunes parsing
type Options struct {
	// Comma is the field delimiter; zero means ','.
	Comma rune
	// Thousands is stripped from numeric candidates before parsing, e.g. ",".
	Thousands string
	// Name labels the source in errors and metadata.
	Name string
}

// IsMissingToken reports whether s is read as a missing value
func IsMissingToken(s string) bool {
	_, ok := missingTokens[strings.TrimSpace(s)]
	return ok
}

// LoadFile opens path, reads it as CSV and closes it before returning.
func LoadFile(ctx context.Context, path string, opts Options) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.NewNotFoundError(path, err)
		}
		return nil, apperrors.NewStorageError("failed to open input", err).WithContext("path", path)
	}
	defer f.Close()

	if opts.Name == "" {
		opts.Name = filepath.Base(path)
	}
	return ReadCSV(ctx, f, opts)
}

// ReadCSV parses r into a table. The header row is required.
func ReadCSV(ctx context.Context, r io.Reader, opts Options) (*table.Table, error) {
	digest, _ := blake2b.New256(nil)
	counter := &countingWriter{h: digest}

	reader := csv.NewReader(io.TeeReader(r, counter))
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}
	reader.FieldsPerRecord = 0

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, parseError(opts.Name, "input is empty, a header row is required", nil)
		}
		return nil, parseError(opts.Name, "failed to read header", err)
	}
	names := normalizeHeader(header)

	var raw [][]string
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, parseError(opts.Name, fmt.Sprintf("malformed row near line %d", line), err)
		}
		raw = append(raw, record)

		if len(raw)%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
	}

	tbl, err := buildTable(names, raw, opts.Thousands)
	if err != nil {
		return nil, parseError(opts.Name, "failed to build table", err)
	}

	tbl.Source = table.Source{
		Name:   opts.Name,
		Bytes:  counter.n,
		Digest: hex.EncodeToString(digest.Sum(nil)),
	}
	return tbl, nil
}

// normalizeHeader trims names, strips a UTF-8 BOM, names blank headers and
// suffixes repeated names with ".1", ".2", ...
func normalizeHeader(header []string) []string {
	names := make([]string, len(header))
	taken := make(map[string]bool, len(header))
	repeats := make(map[string]int)
	for i, h := range header {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		name := h
		for taken[name] {
			repeats[h]++
			name = fmt.Sprintf("%s.%d", h, repeats[h])
		}
		taken[name] = true
		names[i] = name
	}
	return names
}

func buildTable(names []string, raw [][]string, thousands string) (*table.Table, error) {
	columns := make([]table.Column, len(names))
	parsed := make([][]table.Value, len(raw))
	for i := range parsed {
		parsed[i] = make([]table.Value, len(names))
	}

	for c, name := range names {
		kind := table.KindNumber
		for _, rec := range raw {
			cell := strings.TrimSpace(rec[c])
			if IsMissingToken(cell) {
				continue
			}
			if _, ok := parseNumber(cell, thousands); !ok {
				kind = table.KindString
				break
			}
		}
		columns[c] = table.Column{Name: name, Kind: kind}

		for r, rec := range raw {
			cell := strings.TrimSpace(rec[c])
			switch {
			case IsMissingToken(cell):
				parsed[r][c] = table.Missing()
			case kind == table.KindNumber:
				f, _ := parseNumber(cell, thousands)
				parsed[r][c] = table.Number(f)
			default:
				parsed[r][c] = table.String(cell)
			}
		}
	}

	tbl, err := table.New(columns)
	if err != nil {
		return nil, err
	}
	for _, row := range parsed {
		if err := tbl.AppendRow(row); err != nil {
			return nil, err
		}
	}
	return tbl, nil
}

func parseNumber(cell, thousands string) (float64, bool) {
	if thousands != "" {
		cell = strings.ReplaceAll(cell, thousands, "")
	}
	f, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func parseError(name, message string, cause error) error {
	appErr := apperrors.NewParsingError(message, cause)
	if name != "" {
		appErr.WithContext("source", name)
	}
	return appErr
}

// countingWriter feeds the digest and counts consumed bytes
type countingWriter struct {
	h hash.Hash
	n int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.n += int64(len(p))
	return w.h.Write(p)
}
