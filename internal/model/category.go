package model

// Category identifies one of the analyzed infrastructure or protected-land layers.
type Category string

const (
	CategoryPlants      Category = "plants"
	CategoryLines       Category = "lines"
	CategorySubstations Category = "substations"
	CategoryRamsar      Category = "ramsar"
	CategoryANP         Category = "anp"
	CategoryADVC        Category = "advc"
)

// Categories lists every category in presentation order.
var Categories = []Category{
	CategoryPlants,
	CategoryLines,
	CategorySubstations,
	CategoryRamsar,
	CategoryANP,
	CategoryADVC,
}

// Kind describes how features in a category are measured against the subject.
type Kind string

const (
	KindPoint          Kind = "point"          // Point features, self-exclusion applies
	KindLine           Kind = "line"           // minimum distance to line geometry
	KindRepresentative Kind = "representative" // distance to a single stand-in point
	KindArea           Kind = "area"           // buffer overlap, then boundary distance
)

var categoryKinds = map[Category]Kind{
	CategoryPlants:      KindPoint,
	CategoryLines:       KindLine,
	CategorySubstations: KindRepresentative,
	CategoryRamsar:      KindArea,
	CategoryANP:         KindArea,
	CategoryADVC:        KindArea,
}

var categoryLabels = map[Category]string{
	CategoryPlants:      "Centrales",
	CategoryLines:       "Líneas",
	CategorySubstations: "Subestaciones",
	CategoryRamsar:      "Ramsar",
	CategoryANP:         "ANP",
	CategoryADVC:        "ADVC",
}

// Kind returns the measurement kind for the category.
func (c Category) Kind() Kind {
	return categoryKinds[c]
}

// Label returns the short display label used by list and chart consumers.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	_, ok := categoryKinds[c]
	return ok
}
