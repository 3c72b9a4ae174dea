package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/sells-group/proximity-cli/internal/analysis"
	"github.com/sells-group/proximity-cli/internal/dataset"
	"github.com/sells-group/proximity-cli/internal/model"
	"github.com/sells-group/proximity-cli/internal/projects"
)

// bundleJSON is the --json shape of an analysis, with the buffer as a
// GeoJSON polygon.
type bundleJSON struct {
	*model.ResultBundle
	Total  int             `json:"total"`
	Buffer json.RawMessage `json:"buffer,omitempty"`
	RunID  string          `json:"run_id,omitempty"`
}

func writeBundleJSON(out io.Writer, b *model.ResultBundle, runID string) error {
	doc := bundleJSON{ResultBundle: b, Total: b.Total(), RunID: runID}
	if b.Buffer != nil {
		raw, err := dataset.EncodeGeometry(b.Buffer)
		if err != nil {
			return err
		}
		doc.Buffer = raw
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// formatBundle writes a per-category summary. limit caps the rows listed per
// category; counts always reflect every result.
func formatBundle(out io.Writer, b *model.ResultBundle, limit int) {
	name := b.Subject.Name
	if name == "" {
		name = "Sitio"
	}
	_, _ = fmt.Fprintf(out, "%s (%.5f, %.5f), radio %.1f km: %d elementos\n\n",
		name, b.Subject.Lat, b.Subject.Lon, b.RadiusKM, b.Total())

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, c := range model.Categories {
		results := b.Results[c]
		_, _ = fmt.Fprintf(w, "%s\t%d\t\n", strings.ToUpper(c.Label()), b.Counts[c])
		for i, r := range results {
			if limit > 0 && i == limit {
				_, _ = fmt.Fprintf(w, "  ... %d más\t\t\n", len(results)-limit)
				break
			}
			_, _ = fmt.Fprintf(w, "  %s\t%s\t\n", truncate(r.Name, 48), describeDistance(r))
		}
	}
	_ = w.Flush()
}

func describeDistance(r model.ProximityResult) string {
	if r.Intersects {
		return "intersecta"
	}
	return fmt.Sprintf("%.2f km", r.DistanceKM)
}

func formatScan(out io.Writer, s model.Subject, sum analysis.ScanSummary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if s.Name != "" {
		_, _ = fmt.Fprintf(w, "Sitio:\t%s\n", s.Name)
	}
	_, _ = fmt.Fprintf(w, "Radio:\t%.1f km\n", sum.RadiusKM)
	_, _ = fmt.Fprintf(w, "Centrales:\t%d\n", sum.Count)
	_, _ = fmt.Fprintf(w, "Capacidad:\t%.1f MW\n", sum.CapacityMW)
	_ = w.Flush()
}

func formatProjects(out io.Writer, list []projects.Project) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SHEET\tROW\tNAME\tKIND\tPHASE")
	_, _ = fmt.Fprintln(w, "-----\t---\t----\t----\t-----")
	for _, p := range list {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", p.Sheet, p.Row, truncate(p.Name(), 40), p.Kind(), p.Phase())
	}
	_ = w.Flush()
}

func formatProject(out io.Writer, p projects.Project, headers []string) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "%s\t(%s fila %d)\n", p.Name(), p.Sheet, p.Row)
	_, _ = fmt.Fprintf(w, "Tipo:\t%s\n", p.Kind())
	_, _ = fmt.Fprintf(w, "Fase:\t%s\n\n", p.Phase())
	for _, h := range headers {
		if v := p.Get(h); v != "" {
			_, _ = fmt.Fprintf(w, "%s:\t%s\n", h, v)
		}
	}
	_, _ = fmt.Fprintln(w)
	for _, st := range projects.Stages(p) {
		_, _ = fmt.Fprintf(w, "[%s]\t%s\t%s\n", st.Status, st.Label, st.Description)
	}
	_ = w.Flush()
}

func formatDatasetResults(out io.Writer, results []dataset.Result) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CATEGORY\tFEATURES\tSKIPPED\tGEOMETRY\tSOURCE")
	_, _ = fmt.Fprintln(w, "--------\t--------\t-------\t--------\t------")
	for _, r := range results {
		source := r.SourceURL
		if r.Degraded() {
			source = "unavailable"
			if r.Err != nil {
				source += ": " + truncate(r.Err.Error(), 60)
			}
		}
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n", r.Category, r.Collection.Len(), r.Skipped, geometrySummary(r.Collection), source)
	}
	_ = w.Flush()
}

// geometrySummary counts features per geometry type, e.g. "MultiPolygon:2 Point:5".
func geometrySummary(fc *model.FeatureCollection) string {
	if fc.Len() == 0 {
		return "-"
	}
	counts := make(map[string]int)
	for i := range fc.Features {
		t := fc.Features[i].GeometryType()
		if t == "" {
			t = "none"
		}
		counts[t]++
	}
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Strings(types)
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = fmt.Sprintf("%s:%d", t, counts[t])
	}
	return strings.Join(parts, " ")
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.AnalysisRun) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSUBJECT\tRADIUS\tRESULTS\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t-------\t------\t-------\t-------")

	for _, r := range runs {
		subject := r.Subject.Name
		if subject == "" {
			subject = fmt.Sprintf("%.4f, %.4f", r.Subject.Lat, r.Subject.Lon)
		}
		total := 0
		for _, n := range r.Counts {
			total += n
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%.1f km\t%d\t%s\n",
			truncateID(r.ID),
			truncate(subject, 30),
			r.RadiusKM,
			total,
			r.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// truncate shortens s to n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
