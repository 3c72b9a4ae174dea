package projects

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/proximity-cli/internal/fetcher"
)

// XLSXSource reads the registry from a workbook export with one sheet per
// registry tab and headers in the first row.
type XLSXSource struct {
	Path   string
	Sheets []string
}

// Load implements Source. Requested sheets missing from the workbook are
// skipped; a workbook containing none of them is an error.
func (s XLSXSource) Load(_ context.Context) (*Registry, error) {
	sheets := s.Sheets
	if len(sheets) == 0 {
		sheets = []string{SheetGeneration, SheetTransmission}
	}

	present, err := fetcher.SheetNames(s.Path)
	if err != nil {
		return nil, eris.Wrap(err, "projects: open workbook")
	}
	have := make(map[string]bool, len(present))
	for _, n := range present {
		have[n] = true
	}

	reg := NewRegistry()
	for _, name := range sheets {
		if !have[name] {
			zap.L().Warn("projects: sheet missing from workbook", zap.String("sheet", name))
			continue
		}
		rows, err := fetcher.ReadXLSX(s.Path, fetcher.XLSXOptions{SheetName: name})
		if err != nil {
			return nil, eris.Wrapf(err, "projects: read sheet %s", name)
		}
		headers, projects := rowsToProjects(name, rows)
		reg.AddSheet(name, headers, projects)
	}

	if len(reg.Sheets()) == 0 {
		return nil, eris.Errorf("projects: workbook %s has none of %v", s.Path, sheets)
	}
	return reg, nil
}

// rowsToProjects maps data rows onto the header row. Row numbers are the
// 1-based spreadsheet rows.
func rowsToProjects(sheet string, rows [][]string) ([]string, []Project) {
	if len(rows) == 0 {
		return nil, []Project{}
	}

	var headers []string
	index := make(map[int]string)
	for i, h := range rows[0] {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		headers = append(headers, h)
		index[i] = h
	}

	projects := make([]Project, 0, len(rows)-1)
	for n, row := range rows[1:] {
		p := Project{Sheet: sheet, Row: n + 2, Fields: make(map[string]string, len(index))}
		empty := true
		for i, h := range index {
			v := ""
			if i < len(row) {
				v = strings.TrimSpace(row[i])
			}
			if v != "" {
				empty = false
			}
			p.Fields[h] = v
		}
		if !empty {
			projects = append(projects, p)
		}
	}
	return headers, projects
}
