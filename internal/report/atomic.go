package report

import (
	"fmt"
	"os"
	"path/filepath"

	"rateios/internal/core"

	"github.com/xuri/excelize/v2"
)

// save writes f to path through a temp file in the same directory, so a
// crash never leaves a truncated workbook behind. Failures are returned as
// *core.WriteError.
func save(f *excelize.File, path string) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &core.WriteError{Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*.xlsx")
	if err != nil {
		return &core.WriteError{Path: path, Err: err}
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := f.Write(tmp); err != nil {
		_ = tmp.Close()
		return &core.WriteError{Path: path, Err: fmt.Errorf("encode workbook: %w", err)}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return &core.WriteError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &core.WriteError{Path: path, Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return &core.WriteError{Path: path, Err: err}
	}
	return verify(path)
}

func verify(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return &core.WriteError{Path: path, Err: err}
	}
	if info.Size() == 0 {
		return &core.WriteError{Path: path, Err: fmt.Errorf("empty file")}
	}
	return nil
}
