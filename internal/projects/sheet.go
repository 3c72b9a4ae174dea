package projects

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/proximity-cli/internal/fetcher"
)

const columnPrefix = "Columna_"

// SheetPayload is the spreadsheet web-app response. Each sheet is a list of
// rows keyed Columna_N; the first row maps those keys to header names and
// data rows carry their spreadsheet row in _rowNumber.
type SheetPayload struct {
	Status  string                      `json:"status"`
	Message string                      `json:"message,omitempty"`
	Data    map[string][]map[string]any `json:"data"`
}

// SheetClient reads the registry from the spreadsheet web-app.
type SheetClient struct {
	fetcher fetcher.Fetcher
	url     string
	sheets  []string
}

// NewSheetClient creates a client for the web-app at url reading the given
// sheets.
func NewSheetClient(f fetcher.Fetcher, url string, sheets []string) *SheetClient {
	if len(sheets) == 0 {
		sheets = []string{SheetGeneration, SheetTransmission}
	}
	return &SheetClient{fetcher: f, url: url, sheets: sheets}
}

// Load implements Source.
func (c *SheetClient) Load(ctx context.Context) (*Registry, error) {
	rc, err := c.fetcher.Download(ctx, c.url)
	if err != nil {
		return nil, eris.Wrap(err, "projects: fetch sheet")
	}
	defer rc.Close() //nolint:errcheck

	payload, err := fetcher.DecodeJSONObjectNumbers[SheetPayload](rc)
	if err != nil {
		return nil, eris.Wrap(err, "projects: decode sheet")
	}
	return ParsePayload(payload, c.sheets)
}

// ParsePayload builds a registry from a web-app payload. A status other than
// "success" is an error; a requested sheet with fewer than two rows is empty.
func ParsePayload(p *SheetPayload, sheets []string) (*Registry, error) {
	if p == nil || p.Status != "success" {
		msg := ""
		if p != nil {
			msg = p.Status + " " + p.Message
		}
		return nil, eris.Errorf("projects: sheet returned %q", strings.TrimSpace(msg))
	}

	reg := NewRegistry()
	for _, name := range sheets {
		headers, rows := parseSheet(name, p.Data[name])
		reg.AddSheet(name, headers, rows)
	}
	zap.L().Debug("projects: loaded sheet payload", zap.Int("projects", reg.Len()))
	return reg, nil
}

func parseSheet(name string, raw []map[string]any) ([]string, []Project) {
	if len(raw) < 2 {
		return nil, []Project{}
	}

	mapping := raw[0]
	keys := columnKeys(mapping)

	headerOf := make(map[string]string, len(keys))
	headers := make([]string, 0, len(keys))
	for _, k := range keys {
		h := cellString(mapping[k])
		if h == "" {
			continue
		}
		headerOf[k] = h
		headers = append(headers, h)
	}

	rows := make([]Project, 0, len(raw)-1)
	for _, r := range raw[1:] {
		p := Project{Sheet: name, Fields: make(map[string]string, len(headerOf))}
		if n, err := strconv.Atoi(cellString(r["_rowNumber"])); err == nil {
			p.Row = n
		}
		for k, v := range r {
			if h, ok := headerOf[k]; ok {
				p.Fields[h] = cellString(v)
			}
		}
		rows = append(rows, p)
	}
	return headers, rows
}

// columnKeys returns the Columna_N keys of a header row ordered by N.
func columnKeys(row map[string]any) []string {
	var keys []string
	for k := range row {
		if strings.HasPrefix(k, columnPrefix) {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(strings.TrimPrefix(keys[i], columnPrefix))
		b, errB := strconv.Atoi(strings.TrimPrefix(keys[j], columnPrefix))
		if errA != nil || errB != nil {
			return keys[i] < keys[j]
		}
		return a < b
	})
	return keys
}

func cellString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}
