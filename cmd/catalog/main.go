// Package main is the catalog maintenance tool: it imports a course dataset
// into SQLite, publishes a compressed copy to R2 and prints catalog stats.
package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"maps"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/garyellow/course-advisor/internal/catalog"
	"github.com/garyellow/course-advisor/internal/config"
	"github.com/garyellow/course-advisor/internal/r2client"
	"github.com/garyellow/course-advisor/internal/storage"
)

const usage = `Usage: catalog <command> [flags]

Commands:
  import   Load the catalog source into the SQLite database
  publish  Compress a local CSV with zstd and upload it to R2 (skipped when unchanged, -force to override)
  stats    Print counts for the stored catalog
`

// defaultPublishKey is where publish uploads when -key is not given.
const defaultPublishKey = "catalog/udemy_courses.csv" + r2client.CompressedSuffix

func main() {
	if len(os.Args) < 2 {
		_, _ = fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Args[1], os.Args[2:], os.Stdout); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "catalog %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, cmd string, args []string, out io.Writer) error {
	switch cmd {
	case "import":
		fs := flag.NewFlagSet("import", flag.ContinueOnError)
		source := fs.String("source", cfg.CatalogSource, "CSV path (.csv or .csv.zst) or r2://<key>")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return runImport(ctx, cfg, *source, out)

	case "publish":
		fs := flag.NewFlagSet("publish", flag.ContinueOnError)
		file := fs.String("file", cfg.CatalogSource, "Local CSV file to publish")
		key := fs.String("key", defaultPublishKey, "Destination object key")
		force := fs.Bool("force", false, "Upload even if the stored catalog is unchanged")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if !cfg.HasR2() {
			return errors.New("R2 credentials are not configured")
		}
		client, err := newR2Client(ctx, cfg)
		if err != nil {
			return err
		}
		return runPublish(ctx, client, *file, *key, *force, out)

	case "stats":
		return runStats(ctx, cfg, out)

	default:
		return fmt.Errorf("unknown command %q\n\n%s", cmd, usage)
	}
}

func newR2Client(ctx context.Context, cfg *config.Config) (*r2client.Client, error) {
	return r2client.New(ctx, r2client.Config{
		Endpoint:    cfg.R2Endpoint,
		AccessKeyID: cfg.R2AccessKeyID,
		SecretKey:   cfg.R2SecretAccessKey,
		BucketName:  cfg.R2Bucket,
	})
}

func openDB(ctx context.Context, cfg *config.Config) (*storage.DB, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return storage.New(ctx, cfg.SQLitePath(), cfg.DescriptionCacheTTL)
}

func runImport(ctx context.Context, cfg *config.Config, location string, out io.Writer) error {
	var objects catalog.ObjectDownloader
	if cfg.HasR2() {
		client, err := newR2Client(ctx, cfg)
		if err != nil {
			return err
		}
		objects = client
	}
	src, err := catalog.NewSource(location, objects)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, config.CatalogImport)
	defer cancel()

	start := time.Now()
	res, err := catalog.Load(ctx, src)
	if err != nil {
		return err
	}

	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := db.ReplaceCourses(ctx, src.String(), res.Courses); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "✅ Imported %d courses from %s in %s\n",
		len(res.Courses), src, time.Since(start).Round(time.Millisecond))
	if len(res.Rejected) > 0 || res.Duplicates > 0 {
		_, _ = fmt.Fprintf(out, "⚠️  Skipped %d invalid rows and %d duplicates\n", len(res.Rejected), res.Duplicates)
	}
	return nil
}

// objectUploader is the part of *r2client.Client used by publish.
type objectStore interface {
	Stat(ctx context.Context, key string) (r2client.ObjectInfo, error)
	Upload(ctx context.Context, obj r2client.Object) (string, error)
}

// runPublish validates a local CSV, compresses it and uploads it. An object
// built from the same CSV is left alone unless force is set.
func runPublish(ctx context.Context, store objectStore, path, key string, force bool, out io.Writer) error {
	if r2client.IsCompressed(path) {
		return fmt.Errorf("%s is already compressed, publish the plain CSV", path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}

	res, err := catalog.Parse(bytes.NewReader(raw))
	if err != nil {
		return err
	}
	if len(res.Courses) == 0 {
		return fmt.Errorf("%s has no valid courses", path)
	}

	sum := sha256.Sum256(raw)
	digest := hex.EncodeToString(sum[:])
	if !force {
		info, err := store.Stat(ctx, key)
		switch {
		case err == nil && info.Metadata[r2client.MetaSourceSHA256] == digest:
			_, _ = fmt.Fprintf(out, "✅ r2://%s is already up to date (etag %s)\n", key, info.ETag)
			return nil
		case err != nil && !errors.Is(err, r2client.ErrNotFound):
			return err
		}
	}

	var compressed bytes.Buffer
	if _, err := r2client.Compress(&compressed, bytes.NewReader(raw)); err != nil {
		return err
	}

	etag, err := store.Upload(ctx, r2client.Object{
		Key:         key,
		Body:        bytes.NewReader(compressed.Bytes()),
		ContentType: r2client.ContentTypeZstd,
		Metadata:    map[string]string{r2client.MetaSourceSHA256: digest},
	})
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "✅ Published %d courses to r2://%s (%d → %d bytes, etag %s)\n",
		len(res.Courses), key, len(raw), compressed.Len(), etag)
	return nil
}

func runStats(ctx context.Context, cfg *config.Config, out io.Writer) error {
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	stats, err := db.Stats(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Source\t%s\n", orDash(stats.Source))
	imported := "-"
	if !stats.ImportedAt.IsZero() {
		imported = stats.ImportedAt.Format(time.RFC3339)
	}
	_, _ = fmt.Fprintf(w, "Imported\t%s\n", imported)
	_, _ = fmt.Fprintf(w, "Courses\t%d (%d paid, %d free)\n", stats.Courses, stats.Paid, stats.Free)
	_, _ = fmt.Fprintf(w, "Cached overviews\t%d\n", stats.Descriptions)
	writeCounts(w, "Subject", stats.BySubject)
	writeCounts(w, "Level", stats.ByLevel)
	return w.Flush()
}

func writeCounts(w io.Writer, label string, counts map[string]int) {
	for _, k := range slices.Sorted(maps.Keys(counts)) {
		_, _ = fmt.Fprintf(w, "%s: %s\t%d\n", label, orDash(k), counts[k])
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
