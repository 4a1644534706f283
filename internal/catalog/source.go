package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	domerrors "github.com/garyellow/course-advisor/internal/errors"
	"github.com/garyellow/course-advisor/internal/r2client"
)

// R2Prefix marks a source that lives in the R2 bucket.
const R2Prefix = "r2://"

// Source yields the raw dataset bytes.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	String() string
}

// ObjectDownloader fetches objects by key. *r2client.Client implements it.
type ObjectDownloader interface {
	Download(ctx context.Context, key string) (io.ReadCloser, string, error)
}

// FileSource reads a local CSV, transparently decompressing *.zst files.
type FileSource struct {
	Path string
}

// Open opens the file.
func (s FileSource) Open(_ context.Context) (io.ReadCloser, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open catalog file: %w", err)
	}
	if !r2client.IsCompressed(s.Path) {
		return f, nil
	}
	rc, err := r2client.NewDecompressReader(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return rc, nil
}

func (s FileSource) String() string { return s.Path }

// ObjectSource reads a catalog object from R2.
type ObjectSource struct {
	Client ObjectDownloader
	Key    string
}

// Open downloads the object.
func (s ObjectSource) Open(ctx context.Context) (io.ReadCloser, error) {
	body, _, err := s.Client.Download(ctx, s.Key)
	if err != nil {
		return nil, fmt.Errorf("download catalog: %w", err)
	}
	if !r2client.IsCompressed(s.Key) {
		return body, nil
	}
	rc, err := r2client.NewDecompressReader(body)
	if err != nil {
		_ = body.Close()
		return nil, err
	}
	return rc, nil
}

func (s ObjectSource) String() string { return R2Prefix + s.Key }

// NewSource resolves a CATALOG_SOURCE value. objects may be nil when the
// source is a local path.
func NewSource(location string, objects ObjectDownloader) (Source, error) {
	if key, ok := strings.CutPrefix(location, R2Prefix); ok {
		if objects == nil {
			return nil, fmt.Errorf("catalog source %q requires an R2 client", location)
		}
		if key == "" {
			return nil, domerrors.NewValidationError("CATALOG_SOURCE", "empty r2 object key")
		}
		return ObjectSource{Client: objects, Key: key}, nil
	}
	if location == "" {
		return nil, domerrors.NewValidationError("CATALOG_SOURCE", "empty path")
	}
	return FileSource{Path: location}, nil
}

// Load opens src and parses it. Rejected rows are logged and skipped.
// A source that yields no valid courses returns errors.ErrCatalogEmpty.
func Load(ctx context.Context, src Source) (*Result, error) {
	start := time.Now()

	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	res, err := Parse(rc)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", src, err)
	}

	for i, rerr := range res.Rejected {
		if i == 5 {
			slog.WarnContext(ctx, "more catalog rows rejected",
				"remaining", len(res.Rejected)-i)
			break
		}
		slog.WarnContext(ctx, "catalog row rejected",
			"line", rerr.Line,
			"error", rerr.Err)
	}

	if len(res.Courses) == 0 {
		return res, fmt.Errorf("load %s: %w", src, domerrors.ErrCatalogEmpty)
	}

	slog.InfoContext(ctx, "catalog loaded",
		"source", src.String(),
		"courses", len(res.Courses),
		"rejected", len(res.Rejected),
		"duplicates", res.Duplicates,
		"duration_ms", time.Since(start).Milliseconds())
	return res, nil
}
