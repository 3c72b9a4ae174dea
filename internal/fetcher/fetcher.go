// Package fetcher downloads dataset sources over HTTP, FTP or from the local
// filesystem and unpacks common container formats.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// Fetcher defines the interface for downloading remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to the given path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// Router dispatches a download to the fetcher registered for the URL scheme.
// URLs without a scheme, and file:// URLs, are read from the local disk.
type Router struct {
	HTTP Fetcher
	FTP  Fetcher
	File Fetcher
}

// NewRouter builds a Router over the given HTTP and FTP fetchers.
func NewRouter(http, ftp Fetcher) *Router {
	return &Router{HTTP: http, FTP: ftp, File: FileFetcher{}}
}

// Download implements Fetcher.
func (r *Router) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	f, err := r.route(rawURL)
	if err != nil {
		return nil, err
	}
	return f.Download(ctx, rawURL)
}

// DownloadToFile implements Fetcher.
func (r *Router) DownloadToFile(ctx context.Context, rawURL, path string) (int64, error) {
	f, err := r.route(rawURL)
	if err != nil {
		return 0, err
	}
	return f.DownloadToFile(ctx, rawURL, path)
}

func (r *Router) route(rawURL string) (Fetcher, error) {
	var f Fetcher
	switch Scheme(rawURL) {
	case "http", "https":
		f = r.HTTP
	case "ftp":
		f = r.FTP
	case "file", "":
		f = r.File
	default:
		return nil, eris.Errorf("fetcher: unsupported scheme in %q", rawURL)
	}
	if f == nil {
		return nil, eris.Errorf("fetcher: no fetcher configured for %q", rawURL)
	}
	return f, nil
}

// Scheme returns the lower-cased URL scheme, or "" for a plain path.
// Windows drive letters are not treated as schemes.
func Scheme(rawURL string) string {
	i := strings.Index(rawURL, "://")
	if i <= 1 {
		return ""
	}
	return strings.ToLower(rawURL[:i])
}

// FileFetcher reads file:// URLs and plain paths.
type FileFetcher struct{}

// Download opens the local file.
func (FileFetcher) Download(_ context.Context, rawURL string) (io.ReadCloser, error) {
	path, err := localPath(rawURL)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "file: open")
	}
	return f, nil
}

// DownloadToFile copies the local file to path.
func (ff FileFetcher) DownloadToFile(ctx context.Context, rawURL, path string) (int64, error) {
	rc, err := ff.Download(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer rc.Close() //nolint:errcheck
	return writeFile(rc, path)
}

func localPath(rawURL string) (string, error) {
	if Scheme(rawURL) != "file" {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", eris.Wrap(err, "file: parse url")
	}
	if u.Path == "" {
		return "", eris.Errorf("file: empty path in %q", rawURL)
	}
	return u.Path, nil
}

// writeFile drains r into a new file at path.
func writeFile(r io.Reader, path string) (int64, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrap(err, "create file")
	}
	defer file.Close() //nolint:errcheck

	n, err := io.Copy(file, r)
	if err != nil {
		return n, eris.Wrap(err, "write file")
	}
	return n, nil
}
