package projects

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/proximity-cli/internal/fetcher"
)

const payloadJSON = `{
  "status": "success",
  "data": {
    "BBDD.GEN": [
      {"Columna_1": "Nombre del proyecto ", "Columna_2": "Latitud", "Columna_3": "Longitud", "Columna_4": "", "Columna_10": "Tecnología", "Columna_11": "Estatus del trámite"},
      {"_rowNumber": 2, "Columna_1": "Parque Solar Tepeyac", "Columna_2": 19.4326, "Columna_3": "-99.1332°", "Columna_4": "ignored", "Columna_10": "Solar", "Columna_11": "Permiso otorgado"},
      {"_rowNumber": 3, "Columna_1": "Eólica Istmo", "Columna_2": "16.5", "Columna_3": "-95.0", "Columna_10": null}
    ],
    "BBDD.TRA": [
      {"Columna_1": "Nombre de la obra", "Columna_2": "Tensión ( kV)"},
      {"_rowNumber": 2, "Columna_1": "LT Manzanillo", "Columna_2": 400}
    ]
  }
}`

func mustParse(t *testing.T) *Registry {
	t.Helper()
	p, err := fetcher.DecodeJSONObjectNumbers[SheetPayload](strings.NewReader(payloadJSON))
	require.NoError(t, err)
	reg, err := ParsePayload(p, []string{SheetGeneration, SheetTransmission})
	require.NoError(t, err)
	return reg
}

func TestParsePayload(t *testing.T) {
	reg := mustParse(t)

	assert.Equal(t, []string{SheetGeneration, SheetTransmission}, reg.Sheets())
	assert.Equal(t, []string{"Nombre del proyecto", "Latitud", "Longitud", "Tecnología", "Estatus del trámite"}, reg.Headers(SheetGeneration))
	assert.Equal(t, 3, reg.Len())

	gen := reg.Sheet(SheetGeneration)
	require.Len(t, gen, 2)
	assert.Equal(t, 2, gen[0].Row)
	assert.Equal(t, "Parque Solar Tepeyac", gen[0].Name())
	assert.Equal(t, "19.4326", gen[0].Get(ColLatitude))
	assert.NotContains(t, gen[0].Fields, "")
	assert.Equal(t, "", gen[1].Get(ColTechnology))

	tra := reg.Sheet(SheetTransmission)
	require.Len(t, tra, 1)
	assert.Equal(t, "LT Manzanillo", tra[0].Name())
	assert.Equal(t, "400", tra[0].Get(ColVoltage))
}

func TestParsePayload_Errors(t *testing.T) {
	_, err := ParsePayload(&SheetPayload{Status: "error", Message: "quota"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota")

	_, err = ParsePayload(nil, nil)
	require.Error(t, err)
}

func TestParsePayload_ShortSheet(t *testing.T) {
	reg, err := ParsePayload(&SheetPayload{
		Status: "success",
		Data: map[string][]map[string]any{
			SheetGeneration: {{"Columna_1": "Nombre del proyecto"}},
		},
	}, []string{SheetGeneration, SheetTransmission})
	require.NoError(t, err)
	assert.Equal(t, 0, reg.Len())
	assert.NotNil(t, reg.Sheet(SheetGeneration))
}

func TestColumnKeys(t *testing.T) {
	keys := columnKeys(map[string]any{"Columna_10": "", "Columna_2": "", "_rowNumber": 1, "Columna_1": ""})
	assert.Equal(t, []string{"Columna_1", "Columna_2", "Columna_10"}, keys)
}

func TestRegistry_Find(t *testing.T) {
	reg := mustParse(t)

	p, ok := reg.Find("  eolica ISTMO ")
	require.True(t, ok)
	assert.Equal(t, 3, p.Row)

	p, ok = reg.Find("lt manzanillo")
	require.True(t, ok)
	assert.Equal(t, SheetTransmission, p.Sheet)

	_, ok = reg.Find("")
	assert.False(t, ok)
	_, ok = reg.Find("Inexistente")
	assert.False(t, ok)
}

func TestRegistry_Search(t *testing.T) {
	reg := mustParse(t)

	assert.Len(t, reg.Search("", ""), 3)
	assert.Len(t, reg.Search("", SheetTransmission), 1)
	assert.Len(t, reg.Search("SOLAR", ""), 1)
	assert.Len(t, reg.Search("eolica", ""), 1)
	assert.Len(t, reg.Search("solar", SheetTransmission), 0)
}

func TestProject_Subject(t *testing.T) {
	tests := []struct {
		name    string
		fields  map[string]string
		wantLon float64
		wantLat float64
		wantErr bool
	}{
		{
			name:    "degree sign on longitude",
			fields:  map[string]string{ColProjectName: "A", ColLatitude: "19.4326", ColLongitude: " -99.1332° "},
			wantLon: -99.1332,
			wantLat: 19.4326,
		},
		{
			name:    "missing latitude",
			fields:  map[string]string{ColProjectName: "B", ColLongitude: "-99"},
			wantErr: true,
		},
		{
			name:    "unparseable longitude",
			fields:  map[string]string{ColLatitude: "19", ColLongitude: "oeste"},
			wantErr: true,
		},
		{
			name:    "latitude out of range",
			fields:  map[string]string{ColLatitude: "-99.1", ColLongitude: "19.4"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Project{Fields: tt.fields}.Subject()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.wantLon, s.Lon, 1e-9)
			assert.InDelta(t, tt.wantLat, s.Lat, 1e-9)
		})
	}
}

func TestProject_SubjectIdentity(t *testing.T) {
	p := Project{Fields: map[string]string{
		ColWorkName:     "Central Norte",
		ColLatitude:     "25",
		ColLongitude:    "-100",
		ColPermit:       "E/9/GEN/2023",
		ColLeadCompany:  "Grupo Norte",
		ColBusinessName: "",
	}}
	s, err := p.Subject()
	require.NoError(t, err)
	assert.Equal(t, "Central Norte", s.Name)
	assert.Equal(t, "E/9/GEN/2023", s.Permit)
	assert.Equal(t, "Grupo Norte", s.Operator)
}

func TestProject_Kind(t *testing.T) {
	assert.Equal(t, "Solar", Project{Fields: map[string]string{ColTechnology: "Solar", ColVoltage: "400"}}.Kind())
	assert.Equal(t, "Transmisión", Project{Fields: map[string]string{ColVoltage: "400"}}.Kind())
	assert.Equal(t, "Proyecto", Project{}.Kind())
}

func TestProject_Phase(t *testing.T) {
	tests := []struct {
		stage    string
		state    string
		expected Phase
	}{
		{"En operación", "", PhaseOperation},
		{"Terminado", "", PhaseOperation},
		{"En construcción", "", PhaseConstruction},
		{"", "En ejecución", PhaseConstruction},
		{"Cancelado", "", PhaseSuspended},
		{"Reevaluación", "", PhaseEvaluation},
		{"", "", PhasePending},
		{"Por iniciar", "", PhasePending},
	}
	for _, tt := range tests {
		t.Run(tt.stage+tt.state, func(t *testing.T) {
			p := Project{Fields: map[string]string{ColStage: tt.stage, ColState: tt.state}}
			assert.Equal(t, tt.expected, p.Phase())
		})
	}
}

func TestStages(t *testing.T) {
	statuses := func(stages []Stage) []Status {
		out := make([]Status, len(stages))
		for i, s := range stages {
			out[i] = s.Status
		}
		return out
	}

	tests := []struct {
		name     string
		status   string
		works    string
		expected []Status
	}{
		{"no status", "", "", []Status{StatusGreen, StatusYellow, StatusGray, StatusGray}},
		{"granted", "Permiso OTORGADO", "", []Status{StatusGreen, StatusGreen, StatusGreen, StatusYellow}},
		{"approved with works date", "Aprobado", "2025-03-01", []Status{StatusGreen, StatusGreen, StatusGreen, StatusGreen}},
		{"in evaluation", "En evaluación", "", []Status{StatusGreen, StatusYellow, StatusGray, StatusGray}},
		{"in review accentless", "en tramite", "", []Status{StatusGreen, StatusYellow, StatusGray, StatusGray}},
		{"requirement", "Prevención emitida por CRE", "", []Status{StatusGreen, StatusGreen, StatusGreen, StatusYellow}},
		{"blocked", "Solicitud desechada", "", []Status{StatusGreen, StatusRed, StatusGray, StatusGray}},
		{"suspended with works date", "Suspendido", "2026", []Status{StatusGreen, StatusRed, StatusGray, StatusGreen}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Project{Fields: map[string]string{ColPermitStatus: tt.status, ColWorksStart: tt.works}}
			stages := Stages(p)
			require.Len(t, stages, 4)
			assert.Equal(t, tt.expected, statuses(stages))
		})
	}
}

func TestSheetClient_Load(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(payloadJSON))
	}))
	defer srv.Close()

	hf := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{Timeout: 5 * time.Second, MaxRetries: 1, HostRate: 1000})
	client := NewSheetClient(hf, srv.URL+"/exec", nil)

	reg, err := client.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, reg.Len())
}

func TestSheetClient_BadPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>login required</html>`))
	}))
	defer srv.Close()

	hf := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{Timeout: 5 * time.Second, MaxRetries: 1, HostRate: 1000})
	_, err := NewSheetClient(hf, srv.URL, nil).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "projects: decode sheet")
}

func TestXLSXSource_Load(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetGeneration)
	require.NoError(t, err)
	for _, r := range [][]string{
		{"Nombre del proyecto", " Latitud ", "Longitud", ""},
		{"Solar Bajío", "21.1", "-101.6°", "x"},
		{"", "", "", ""},
		{"Eólica Golfo", "22.2"},
	} {
		row := sheet.AddRow()
		for _, c := range r {
			row.AddCell().SetString(c)
		}
	}
	_, err = f.AddSheet("Notas")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "registro.xlsx")
	require.NoError(t, f.Save(path))

	reg, err := XLSXSource{Path: path}.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{SheetGeneration}, reg.Sheets())
	assert.Equal(t, []string{"Nombre del proyecto", "Latitud", "Longitud"}, reg.Headers(SheetGeneration))

	rows := reg.Sheet(SheetGeneration)
	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[0].Row)
	assert.Equal(t, 4, rows[1].Row)
	assert.Equal(t, "", rows[1].Get(ColLongitude))

	s, err := rows[0].Subject()
	require.NoError(t, err)
	assert.InDelta(t, -101.6, s.Lon, 1e-9)

	_, err = XLSXSource{Path: path, Sheets: []string{"Otra"}}.Load(context.Background())
	require.Error(t, err)
}
