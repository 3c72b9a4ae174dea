// Package projects loads the candidate-project registry kept in the
// planning spreadsheet and turns its rows into analysis subjects.
package projects

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/proximity-cli/internal/model"
	"github.com/sells-group/proximity-cli/internal/resolve"
)

// Registry sheet names.
const (
	SheetGeneration   = "BBDD.GEN"
	SheetTransmission = "BBDD.TRA"
)

// Column headers read by this package.
const (
	ColProjectName  = "Nombre del proyecto"
	ColWorkName     = "Nombre de la obra"
	ColLatitude     = "Latitud"
	ColLongitude    = "Longitud"
	ColTechnology   = "Tecnología"
	ColVoltage      = "Tensión ( kV)"
	ColPermit       = "NumeroPermiso"
	ColBusinessName = "Razón_social"
	ColLeadCompany  = "EmpresaLíder"
	ColPermitStatus = "Estatus del trámite"
	ColWorksStart   = "Fecha estimada de inicio de obras"
	ColStage        = "Etapa del proyecto"
	ColState        = "Estado"
)

// Project is one registry row keyed by trimmed header.
type Project struct {
	Sheet  string            `json:"sheet"`
	Row    int               `json:"row"`
	Fields map[string]string `json:"fields"`
}

// Get returns the trimmed value of column key.
func (p Project) Get(key string) string {
	return strings.TrimSpace(p.Fields[key])
}

// First returns the first non-empty value among keys.
func (p Project) First(keys ...string) string {
	for _, k := range keys {
		if v := p.Get(k); v != "" {
			return v
		}
	}
	return ""
}

// Name returns the project or work name.
func (p Project) Name() string {
	return p.First(ColProjectName, ColWorkName)
}

// Kind returns the technology, "Transmisión" for rows with a voltage, or
// "Proyecto".
func (p Project) Kind() string {
	if t := p.Get(ColTechnology); t != "" {
		return t
	}
	if p.Get(ColVoltage) != "" {
		return "Transmisión"
	}
	return "Proyecto"
}

// Matches reports whether any field contains term, ignoring case and
// accents. An empty term matches every project.
func (p Project) Matches(term string) bool {
	needle := resolve.Normalize(term)
	if needle == "" {
		return true
	}
	for _, v := range p.Fields {
		if strings.Contains(resolve.Normalize(v), needle) {
			return true
		}
	}
	return false
}

// Subject builds the analysis subject for the project's location.
func (p Project) Subject() (model.Subject, error) {
	lat, err := parseCoordinate(p.Get(ColLatitude), 90)
	if err != nil {
		return model.Subject{}, eris.Wrapf(err, "projects: latitude of %q", p.Name())
	}
	lon, err := parseCoordinate(p.Get(ColLongitude), 180)
	if err != nil {
		return model.Subject{}, eris.Wrapf(err, "projects: longitude of %q", p.Name())
	}
	return model.Subject{
		Name:     p.Name(),
		Lon:      lon,
		Lat:      lat,
		Permit:   p.Get(ColPermit),
		Operator: p.First(ColBusinessName, ColLeadCompany),
	}, nil
}

// parseCoordinate parses a decimal degree value, tolerating a degree sign.
func parseCoordinate(raw string, limit float64) (float64, error) {
	s := strings.TrimSpace(strings.ReplaceAll(raw, "°", ""))
	if s == "" {
		return 0, eris.New("missing coordinate")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "parse %q", raw)
	}
	if v < -limit || v > limit {
		return 0, eris.Errorf("coordinate %v out of range", v)
	}
	return v, nil
}
