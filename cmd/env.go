package main

import (
	"context"
	"fmt"
	"math"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/proximity-cli/internal/analysis"
	"github.com/sells-group/proximity-cli/internal/dataset"
	"github.com/sells-group/proximity-cli/internal/fetcher"
	"github.com/sells-group/proximity-cli/internal/model"
	"github.com/sells-group/proximity-cli/internal/projects"
	"github.com/sells-group/proximity-cli/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "proximity.db"
		}
		st, err = store.NewSQLite(dsn)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

func initFetcher() *fetcher.Router {
	return fetcher.NewRouter(
		fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent:  cfg.Fetch.UserAgent,
			Timeout:    cfg.Fetch.Timeout(),
			MaxRetries: cfg.Fetch.MaxRetries,
			HostRate:   rate.Limit(cfg.Fetch.HostRate),
		}),
		fetcher.NewFTPFetcher(fetcher.FTPOptions{Timeout: cfg.Fetch.Timeout()}),
	)
}

func initResolver() (*dataset.Resolver, error) {
	catalog := dataset.DefaultCatalog()
	if path := cfg.Datasets.CatalogPath; path != "" {
		c, err := dataset.LoadCatalog(path)
		if err != nil {
			return nil, err
		}
		catalog = c
	}
	return dataset.NewResolver(initFetcher(), catalog, cfg.Fetch.TempDir), nil
}

// loadDatasets resolves every category layer once.
func loadDatasets(ctx context.Context) (analysis.Datasets, []dataset.Result, error) {
	resolver, err := initResolver()
	if err != nil {
		return nil, nil, err
	}
	ds, results, err := resolver.ResolveAll(ctx)
	if err != nil {
		return nil, nil, eris.Wrap(err, "load datasets")
	}
	for _, r := range results {
		zap.L().Info("dataset ready",
			zap.String("category", string(r.Category)),
			zap.Int("features", r.Collection.Len()),
			zap.Bool("degraded", r.Degraded()),
		)
	}
	return analysis.Datasets(ds), results, nil
}

func initProjectSource() (projects.Source, error) {
	if path := cfg.Projects.XLSXPath; path != "" {
		return projects.XLSXSource{Path: path, Sheets: cfg.Projects.Sheets}, nil
	}
	if u := cfg.Projects.SheetURL; u != "" {
		return projects.NewSheetClient(initFetcher(), u, cfg.Projects.Sheets), nil
	}
	return nil, eris.New("project registry not configured (set PROXIMITY_PROJECTS_SHEET_URL or PROXIMITY_PROJECTS_XLSX_PATH)")
}

func loadRegistry(ctx context.Context) (*projects.Registry, error) {
	src, err := initProjectSource()
	if err != nil {
		return nil, err
	}
	reg, err := src.Load(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "load project registry")
	}
	return reg, nil
}

// subjectFlags selects the analysis subject either by coordinates or by a
// registry project.
type subjectFlags struct {
	lon, lat float64
	name     string
	permit   string
	operator string
	project  string
}

func (f *subjectFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.lon, "lon", 0, "subject longitude (decimal degrees)")
	cmd.Flags().Float64Var(&f.lat, "lat", 0, "subject latitude (decimal degrees)")
	cmd.Flags().StringVar(&f.name, "name", "", "subject display name")
	cmd.Flags().StringVar(&f.permit, "permit", "", "subject permit number, excludes its own plant record")
	cmd.Flags().StringVar(&f.operator, "operator", "", "subject operator name, excludes its own plant record")
	cmd.Flags().StringVar(&f.project, "project", "", "take the subject from a registry project by name")
	cmd.MarkFlagsMutuallyExclusive("project", "lon")
	cmd.MarkFlagsMutuallyExclusive("project", "lat")
}

// subject builds the subject. Explicit identity flags override the values a
// project provides.
func (f *subjectFlags) subject(cmd *cobra.Command) (model.Subject, error) {
	var s model.Subject

	if f.project != "" {
		reg, err := loadRegistry(cmd.Context())
		if err != nil {
			return s, err
		}
		p, ok := reg.Find(f.project)
		if !ok {
			return s, eris.Errorf("project not found: %s", f.project)
		}
		if s, err = p.Subject(); err != nil {
			return s, err
		}
	} else {
		if !cmd.Flags().Changed("lon") || !cmd.Flags().Changed("lat") {
			return s, eris.New("either --project or both --lon and --lat are required")
		}
		if err := checkCoordinates(f.lon, f.lat); err != nil {
			return s, err
		}
		s = model.Subject{Lon: f.lon, Lat: f.lat}
	}

	if f.name != "" {
		s.Name = f.name
	}
	if f.permit != "" {
		s.Permit = f.permit
	}
	if f.operator != "" {
		s.Operator = f.operator
	}
	return s, nil
}

func checkCoordinates(lon, lat float64) error {
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return fmt.Errorf("longitude %v out of range", lon)
	}
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return fmt.Errorf("latitude %v out of range", lat)
	}
	return nil
}

// radiusFlag returns the --radius value, or def when the flag was not set.
func radiusFlag(cmd *cobra.Command, def float64) (float64, error) {
	if !cmd.Flags().Changed("radius") {
		return def, nil
	}
	r, _ := cmd.Flags().GetFloat64("radius")
	if !analysis.ValidRadius(r) {
		return 0, fmt.Errorf("--radius must be a positive number of kilometers, got %v", r)
	}
	return r, nil
}
