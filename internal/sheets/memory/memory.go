package memory

import (
	"context"
	"fmt"
	"sync"

	ports "rateios/internal/sheets"
)

// Store keeps tables in memory keyed by sheet name. It stands in for the
// Google Sheets publisher in tests and dry runs.
type Store struct {
	mu     sync.Mutex
	tables map[string][][]any
	writes int
}

var (
	_ ports.TableWriter = (*Store)(nil)
	_ ports.TableReader = (*Store)(nil)
)

func New() *Store {
	return &Store{tables: make(map[string][][]any)}
}

// ReplaceTable stores a copy of rows under sheet and returns a synthetic
// range reference.
func (s *Store) ReplaceTable(_ context.Context, sheet string, rows [][]any) (string, error) {
	if sheet == "" {
		return "", fmt.Errorf("sheet name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[sheet] = copyTable(rows)
	s.writes++
	return fmt.Sprintf("mem:%s!%d", sheet, len(rows)), nil
}

// ReadTable returns a copy of the table stored under sheet.
func (s *Store) ReadTable(_ context.Context, sheet string) ([][]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[sheet]
	if !ok {
		return nil, fmt.Errorf("sheet %q not found", sheet)
	}
	return copyTable(t), nil
}

// Writes reports how many tables were replaced.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func copyTable(in [][]any) [][]any {
	out := make([][]any, len(in))
	for i, row := range in {
		out[i] = append([]any(nil), row...)
	}
	return out
}
