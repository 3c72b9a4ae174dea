package fetcher

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func createTestXLSX(t *testing.T, names []string, sheets map[string][][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	for _, name := range names {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, rowData := range sheets[name] {
			row := sheet.AddRow()
			for _, cellData := range rowData {
				row.AddCell().SetString(cellData)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "test.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestReadXLSX(t *testing.T) {
	path := createTestXLSX(t, []string{"BBDD.GEN", "BBDD.TRA"}, map[string][][]string{
		"BBDD.GEN": {
			{"Nombre del proyecto", "Latitud", "Longitud"},
			{"Solar Uno", "19.5", "-99.1"},
		},
		"BBDD.TRA": {
			{"Nombre de la obra", "Tensión ( kV)"},
			{"LT Norte", "400"},
			{"LT Sur", "230"},
		},
	})

	tests := []struct {
		name     string
		opts     XLSXOptions
		wantRows int
		wantErr  bool
	}{
		{name: "first sheet by default", opts: XLSXOptions{}, wantRows: 2},
		{name: "by name", opts: XLSXOptions{SheetName: "BBDD.TRA"}, wantRows: 3},
		{name: "by index", opts: XLSXOptions{SheetIndex: 1}, wantRows: 3},
		{name: "skip header", opts: XLSXOptions{SheetName: "BBDD.TRA", SkipRows: 1}, wantRows: 2},
		{name: "unknown name", opts: XLSXOptions{SheetName: "nope"}, wantErr: true},
		{name: "index out of range", opts: XLSXOptions{SheetIndex: 5}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := ReadXLSX(path, tt.opts)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, rows, tt.wantRows)
		})
	}
}

func TestSheetNames(t *testing.T) {
	path := createTestXLSX(t, []string{"BBDD.GEN", "BBDD.TRA"}, nil)
	names, err := SheetNames(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"BBDD.GEN", "BBDD.TRA"}, names)

	_, err = SheetNames(filepath.Join(t.TempDir(), "missing.xlsx"))
	require.Error(t, err)
}
