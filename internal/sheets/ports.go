package sheets

import "context"

// Ports for outbound adapters.
type (
	// TableWriter replaces the content of a named tab with a table whose
	// first row is the header.
	TableWriter interface {
		ReplaceTable(ctx context.Context, sheet string, rows [][]any) (rangeRef string, err error)
	}

	// TableReader returns the values currently stored in a tab.
	TableReader interface {
		ReadTable(ctx context.Context, sheet string) ([][]any, error)
	}
)
