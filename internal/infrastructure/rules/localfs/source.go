// Package localfs loads the business-rule table from a file on disk.
// CSV (UTF-8 or Big5), XLSX and PDF documents are supported; the format is
// picked from the file extension.
package localfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kirillkom/vat-compliance-checker/internal/core/domain"
)

type Source struct {
	path string
}

func New(path string) *Source {
	if strings.TrimSpace(path) == "" {
		path = "rules.csv"
	}
	return &Source{path: path}
}

func (s *Source) Path() string {
	return s.path
}

// LoadRules returns a nil table when the file does not exist.
func (s *Source) LoadRules(_ context.Context) (*domain.RuleTable, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, domain.WrapError(domain.ErrInvalidInput, "read rules file", err)
	}

	var table *domain.RuleTable
	switch ext := strings.ToLower(filepath.Ext(s.path)); ext {
	case ".csv", ".txt", "":
		table, err = parseCSV(raw)
	case ".xlsx", ".xlsm":
		table, err = parseXLSX(raw)
	case ".pdf":
		table, err = parsePDF(raw)
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "load rules", fmt.Errorf("unsupported rules file extension %q", ext))
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse rules file", err)
	}
	if table == nil {
		return nil, nil
	}
	table.Source = filepath.Base(s.path)
	return table, nil
}

func headerAndRows(records [][]string) *domain.RuleTable {
	records = dropBlankRows(records)
	if len(records) == 0 {
		return &domain.RuleTable{}
	}
	return &domain.RuleTable{Header: records[0], Rows: records[1:]}
}

func dropBlankRows(records [][]string) [][]string {
	out := records[:0]
	for _, record := range records {
		blank := true
		for i := range record {
			record[i] = strings.TrimSpace(record[i])
			if record[i] != "" {
				blank = false
			}
		}
		if !blank {
			out = append(out, record)
		}
	}
	return out
}
