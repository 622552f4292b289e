package engine

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const utf8BOM = "\uFEFF"

// Participants implements Engine.
func (e *ExecEngine) Participants(ctx context.Context, csvPath string) ([]string, error) {
	return ReadParticipants(ctx, csvPath)
}

// ReadParticipants returns the values of the first column whose header
// contains "email", ignoring case. Blank cells are skipped.
func ReadParticipants(ctx context.Context, csvPath string) ([]string, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadCSV, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty file", ErrNoParticipantColumn)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrReadCSV, err)
	}

	col := -1
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, utf8BOM)
		}
		if strings.Contains(strings.ToLower(name), "email") {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, ErrNoParticipantColumn
	}

	var ids []string
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrReadCSV, err)
		}
		if col >= len(row) {
			continue
		}
		if id := strings.TrimSpace(row[col]); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
