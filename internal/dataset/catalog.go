// Package dataset resolves each analysis category to a parsed feature
// collection, trying the category's sources in order.
package dataset

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/proximity-cli/internal/model"
)

// Source formats. An empty format is inferred from the URL extension.
const (
	FormatGeoJSON   = "geojson"
	FormatShapefile = "shapefile"
)

// Source lists the candidate locations of one category's layer.
type Source struct {
	Category model.Category `yaml:"category"`
	URLs     []string       `yaml:"urls"`
	Required bool           `yaml:"required"`
	Format   string         `yaml:"format,omitempty"`
}

// Catalog is the set of sources for every category.
type Catalog struct {
	Sources []Source `yaml:"sources"`
}

// DefaultCatalog returns the published infrastructure and protected-land
// layers. Only plants are required.
func DefaultCatalog() Catalog {
	return Catalog{Sources: []Source{
		{
			Category: model.CategoryPlants,
			Required: true,
			URLs: []string{
				"https://cdn.sassoapps.com/geojson/Centrales_El%C3%A9ctricas_privadas_y_de_CFE.geojson",
			},
		},
		{
			Category: model.CategoryLines,
			URLs: []string{
				"https://cdn.sassoapps.com/Mapas/Electricidad/lineasdetransmision.geojson",
				"https://cdn.sassoapps.com/geojson/L%C3%ADneas_de_Transmisi%C3%B3n.geojson",
			},
		},
		{
			Category: model.CategorySubstations,
			URLs: []string{
				"https://cdn.sassoapps.com/Mapas/Electricidad/subestaciones.geojson",
				"https://cdn.sassoapps.com/geojson/Subestaciones_El%C3%A9ctricas.geojson",
			},
		},
		{
			Category: model.CategoryRamsar,
			URLs:     []string{"https://cdn.sassoapps.com/Gabvy/ramsar.geojson"},
		},
		{
			Category: model.CategoryANP,
			URLs:     []string{"https://cdn.sassoapps.com/Mapas/ANP2025.geojson"},
		},
		{
			Category: model.CategoryADVC,
			URLs: []string{
				"https://cdn.sassoapps.com/Mapas/areas_destinadas_voluntariamentea_la_conservaci%C3%B3n.geojson",
			},
		},
	}}
}

// LoadCatalog reads a catalog from a YAML file. Categories the file omits
// keep their default sources.
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, eris.Wrapf(err, "dataset: read catalog %s", path)
	}

	var file Catalog
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Catalog{}, eris.Wrap(err, "dataset: parse catalog")
	}

	if err := file.Validate(); err != nil {
		return Catalog{}, err
	}
	return DefaultCatalog().Merge(file), nil
}

// Merge returns c with every source in override replacing the source of the
// same category.
func (c Catalog) Merge(override Catalog) Catalog {
	out := Catalog{Sources: make([]Source, 0, len(c.Sources))}
	replaced := make(map[model.Category]Source, len(override.Sources))
	for _, s := range override.Sources {
		replaced[s.Category] = s
	}
	seen := make(map[model.Category]bool)
	for _, s := range c.Sources {
		if r, ok := replaced[s.Category]; ok {
			s = r
		}
		out.Sources = append(out.Sources, s)
		seen[s.Category] = true
	}
	for _, s := range override.Sources {
		if !seen[s.Category] {
			out.Sources = append(out.Sources, s)
			seen[s.Category] = true
		}
	}
	return out
}

// Validate checks that every source names a known category, lists at least
// one URL, uses a known format and appears once.
func (c Catalog) Validate() error {
	seen := make(map[model.Category]bool)
	for _, s := range c.Sources {
		if !s.Category.Valid() {
			return eris.Errorf("dataset: unknown category %q", s.Category)
		}
		if seen[s.Category] {
			return eris.Errorf("dataset: duplicate source for %q", s.Category)
		}
		seen[s.Category] = true
		if len(s.URLs) == 0 {
			return eris.Errorf("dataset: no urls for %q", s.Category)
		}
		switch s.Format {
		case "", FormatGeoJSON, FormatShapefile:
		default:
			return eris.Errorf("dataset: unknown format %q for %q", s.Format, s.Category)
		}
	}
	return nil
}

// Source returns the source for category cat.
func (c Catalog) Source(cat model.Category) (Source, bool) {
	for _, s := range c.Sources {
		if s.Category == cat {
			return s, true
		}
	}
	return Source{}, false
}
