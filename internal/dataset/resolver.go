package dataset

import (
	"context"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/proximity-cli/internal/fetcher"
	"github.com/sells-group/proximity-cli/internal/model"
)

// Result describes how one category was resolved.
type Result struct {
	Category   model.Category
	Collection *model.FeatureCollection
	// SourceURL is the URL that produced Collection, or "" when an optional
	// category fell back to an empty collection.
	SourceURL string
	Skipped   int
	// Err is the last source error of a degraded optional category.
	Err error
}

// Degraded reports whether the category fell back to an empty collection.
func (r Result) Degraded() bool {
	return r.SourceURL == ""
}

// Resolver loads category layers through a Fetcher.
type Resolver struct {
	fetcher fetcher.Fetcher
	catalog Catalog
	tempDir string
}

// NewResolver creates a Resolver. Shapefile archives are unpacked under
// tempDir, or the system temp directory when empty.
func NewResolver(f fetcher.Fetcher, catalog Catalog, tempDir string) *Resolver {
	return &Resolver{fetcher: f, catalog: catalog, tempDir: tempDir}
}

// Catalog returns the resolver's catalog.
func (r *Resolver) Catalog() Catalog {
	return r.catalog
}

// ResolveCategory resolves category c from the catalog. A category with no
// catalog entry resolves to an empty collection.
func (r *Resolver) ResolveCategory(ctx context.Context, c model.Category) (Result, error) {
	src, ok := r.catalog.Source(c)
	if !ok {
		return Result{Category: c, Collection: model.EmptyCollection()}, nil
	}
	return r.Resolve(ctx, src)
}

// Resolve tries each URL of src in order and returns the first layer that
// loads. When every URL fails, a required source returns an error wrapping
// the last failure and an optional source returns an empty collection.
func (r *Resolver) Resolve(ctx context.Context, src Source) (Result, error) {
	log := zap.L().With(zap.String("category", string(src.Category)))

	lastErr := eris.Errorf("dataset: no sources for %s", src.Category)
	for _, u := range src.URLs {
		if ctx.Err() != nil {
			return Result{}, eris.Wrap(ctx.Err(), "dataset: resolve cancelled")
		}

		fc, skipped, err := r.load(ctx, u, formatOf(src.Format, u))
		if err != nil {
			lastErr = err
			log.Warn("dataset: source failed, trying next", zap.String("url", u), zap.Error(err))
			continue
		}

		if skipped > 0 {
			log.Debug("dataset: dropped malformed features", zap.Int("skipped", skipped))
		}
		log.Debug("dataset: resolved", zap.String("url", u), zap.Int("features", fc.Len()))
		return Result{Category: src.Category, Collection: fc, SourceURL: u, Skipped: skipped}, nil
	}

	if src.Required {
		return Result{}, eris.Wrapf(lastErr, "dataset: resolve required category %s", src.Category)
	}

	log.Warn("dataset: optional category unavailable, using empty collection", zap.Error(lastErr))
	return Result{Category: src.Category, Collection: model.EmptyCollection(), Err: lastErr}, nil
}

// ResolveAll resolves every category. Required categories are resolved
// first so a missing mandatory layer fails before optional downloads start;
// optional categories are then fetched concurrently.
func (r *Resolver) ResolveAll(ctx context.Context) (map[model.Category]*model.FeatureCollection, []Result, error) {
	results := make([]Result, len(model.Categories))

	var optional []int
	for i, c := range model.Categories {
		src, ok := r.catalog.Source(c)
		if !ok || !src.Required {
			optional = append(optional, i)
			continue
		}
		res, err := r.Resolve(ctx, src)
		if err != nil {
			return nil, nil, err
		}
		results[i] = res
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, i := range optional {
		g.Go(func() error {
			res, err := r.ResolveCategory(gctx, model.Categories[i])
			if err != nil {
				return err
			}
			mu.Lock()
			results[i] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	datasets := make(map[model.Category]*model.FeatureCollection, len(results))
	for _, res := range results {
		datasets[res.Category] = res.Collection
	}
	return datasets, results, nil
}

func (r *Resolver) load(ctx context.Context, rawURL, format string) (*model.FeatureCollection, int, error) {
	if format == FormatShapefile {
		return r.loadShapefile(ctx, rawURL)
	}

	rc, err := r.fetcher.Download(ctx, rawURL)
	if err != nil {
		return nil, 0, eris.Wrapf(err, "dataset: download %s", rawURL)
	}
	defer rc.Close() //nolint:errcheck

	return DecodeGeoJSON(rc)
}

// loadShapefile downloads a zipped shapefile, or a bare .shp with its .shx
// and .dbf siblings, into a scratch directory and decodes it.
func (r *Resolver) loadShapefile(ctx context.Context, rawURL string) (*model.FeatureCollection, int, error) {
	dir, err := os.MkdirTemp(r.tempDir, "dataset-*")
	if err != nil {
		return nil, 0, eris.Wrap(err, "dataset: create temp dir")
	}
	defer os.RemoveAll(dir) //nolint:errcheck

	var shpPath string
	switch urlExt(rawURL) {
	case ".zip":
		archive := filepath.Join(dir, "layer.zip")
		if _, err := r.fetcher.DownloadToFile(ctx, rawURL, archive); err != nil {
			return nil, 0, eris.Wrapf(err, "dataset: download %s", rawURL)
		}
		files, err := fetcher.ExtractZIP(archive, filepath.Join(dir, "layer"))
		if err != nil {
			return nil, 0, err
		}
		p, ok := fetcher.FindByExt(files, ".shp")
		if !ok {
			return nil, 0, eris.Errorf("dataset: no .shp in archive %s", rawURL)
		}
		shpPath = p
	default:
		for _, sib := range []string{".shp", ".shx", ".dbf"} {
			src := siblingURL(rawURL, sib)
			if _, err := r.fetcher.DownloadToFile(ctx, src, filepath.Join(dir, "layer"+sib)); err != nil {
				return nil, 0, eris.Wrapf(err, "dataset: download %s", src)
			}
		}
		shpPath = filepath.Join(dir, "layer.shp")
	}

	return DecodeShapefile(shpPath)
}

// formatOf returns the explicit format or infers one from the URL.
func formatOf(explicit, rawURL string) string {
	if explicit != "" {
		return explicit
	}
	switch urlExt(rawURL) {
	case ".zip", ".shp":
		return FormatShapefile
	default:
		return FormatGeoJSON
	}
}

// urlExt returns the lower-cased extension of the URL path, ignoring any
// query string.
func urlExt(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		p = u.Path
	}
	return strings.ToLower(path.Ext(p))
}

// siblingURL swaps the extension of the URL path for ext.
func siblingURL(rawURL, ext string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" {
		return strings.TrimSuffix(rawURL, path.Ext(rawURL)) + ext
	}
	u.Path = strings.TrimSuffix(u.Path, path.Ext(u.Path)) + ext
	u.RawPath = ""
	return u.String()
}
