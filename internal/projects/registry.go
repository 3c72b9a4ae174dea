package projects

import (
	"context"

	"github.com/sells-group/proximity-cli/internal/resolve"
)

// Source loads a registry snapshot.
type Source interface {
	Load(ctx context.Context) (*Registry, error)
}

// Registry is an immutable snapshot of the project spreadsheet.
type Registry struct {
	sheets   []string
	headers  map[string][]string
	projects map[string][]Project
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		headers:  make(map[string][]string),
		projects: make(map[string][]Project),
	}
}

// AddSheet stores the headers and rows of one sheet, replacing any earlier
// sheet of the same name.
func (r *Registry) AddSheet(name string, headers []string, rows []Project) {
	if _, ok := r.projects[name]; !ok {
		r.sheets = append(r.sheets, name)
	}
	r.headers[name] = headers
	r.projects[name] = rows
}

// Sheets lists sheet names in load order.
func (r *Registry) Sheets() []string {
	return r.sheets
}

// Headers returns the column headers of a sheet.
func (r *Registry) Headers(sheet string) []string {
	return r.headers[sheet]
}

// Sheet returns the projects of one sheet.
func (r *Registry) Sheet(name string) []Project {
	return r.projects[name]
}

// All returns every project, sheet by sheet.
func (r *Registry) All() []Project {
	var out []Project
	for _, s := range r.sheets {
		out = append(out, r.projects[s]...)
	}
	return out
}

// Len returns the number of projects across sheets.
func (r *Registry) Len() int {
	n := 0
	for _, rows := range r.projects {
		n += len(rows)
	}
	return n
}

// Find returns the first project whose name matches name ignoring case,
// accents and surrounding whitespace.
func (r *Registry) Find(name string) (Project, bool) {
	for _, p := range r.All() {
		if resolve.SameIdentity(p.Name(), name) {
			return p, true
		}
	}
	return Project{}, false
}

// Search returns projects with any field containing term. Restricting to a
// sheet is optional; an empty sheet searches all of them.
func (r *Registry) Search(term, sheet string) []Project {
	rows := r.All()
	if sheet != "" {
		rows = r.Sheet(sheet)
	}
	out := []Project{}
	for _, p := range rows {
		if p.Matches(term) {
			out = append(out, p)
		}
	}
	return out
}
