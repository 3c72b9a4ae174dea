package analysis

import "github.com/sells-group/proximity-cli/internal/model"

// Property keys used by the plants layer for identity and capacity.
const (
	KeyPermit           = "NumeroPermiso"
	KeyBusinessName     = "Razón_social"
	KeyLeadCompany      = "EmpresaLíder"
	KeyOperatingMW      = "Capacidad_operacion_MW"
	KeyAuthorizedMW     = "Capacidad_autorizada_MW"
	defaultPlantName    = "Central sin nombre"
	defaultStationName  = "Subestación sin nombre"
	defaultLineName     = "Línea de transmisión"
	defaultRamsarName   = "Sitio Ramsar"
	defaultANPName      = "Área Natural Protegida"
	defaultADVCName     = "ADVC"
	defaultUnknownLabel = "Elemento sin nombre"
)

// nameFields lists, per category, the property keys tried in order for a
// display name, followed by the label used when none is set.
var nameFields = map[model.Category]struct {
	keys     []string
	fallback string
}{
	model.CategoryPlants:      {[]string{KeyBusinessName, KeyLeadCompany, KeyPermit}, defaultPlantName},
	model.CategorySubstations: {[]string{"Nombre", "nombre", "NOMBRE", "Subestacion"}, defaultStationName},
	model.CategoryLines:       {[]string{"nombre_lt", "Nombre", "NOMBRE", "LT"}, defaultLineName},
	model.CategoryRamsar:      {[]string{"RAMSAR", "NOMBRE", "nombre"}, defaultRamsarName},
	model.CategoryANP:         {[]string{"NOMBRE", "nombre", "name"}, defaultANPName},
	model.CategoryADVC:        {[]string{"ADVC", "NOMBRE", "nombre"}, defaultADVCName},
}

// DisplayName picks the display name of a feature in category c.
func DisplayName(c model.Category, p model.Properties) string {
	f, ok := nameFields[c]
	if !ok {
		return defaultUnknownLabel
	}
	if s := p.First(f.keys...); s != "" {
		return s
	}
	return f.fallback
}

// PlantPermit returns the permit number identity key of a plant.
func PlantPermit(p model.Properties) string {
	return p.String(KeyPermit)
}

// PlantOperator returns the operator name identity key of a plant.
func PlantOperator(p model.Properties) string {
	return p.First(KeyBusinessName, KeyLeadCompany)
}

// PlantCapacityMW sums operating and authorized capacity. Missing or
// non-numeric values count as zero.
func PlantCapacityMW(p model.Properties) float64 {
	var total float64
	for _, k := range []string{KeyOperatingMW, KeyAuthorizedMW} {
		if v, ok := p.Float(k); ok {
			total += v
		}
	}
	return total
}
