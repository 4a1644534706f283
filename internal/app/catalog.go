package app

import (
	"context"
	"fmt"
	"time"

	"github.com/garyellow/course-advisor/internal/catalog"
	"github.com/garyellow/course-advisor/internal/config"
	"github.com/garyellow/course-advisor/internal/retrieval"
	"golang.org/x/sync/errgroup"
)

// loadCatalog imports the configured source at startup. If the import fails
// the index is rebuilt from the last catalog stored in SQLite, so a broken
// file or an R2 outage does not keep the service unready.
func (a *Application) loadCatalog(ctx context.Context) {
	importCtx, cancel := context.WithTimeout(ctx, config.CatalogImport)
	defer cancel()

	err := a.importCatalog(importCtx)
	if err == nil {
		return
	}
	a.logger.WithError(err).WithField("source", a.source.String()).Error("Catalog import failed")

	if err := a.restoreCatalog(importCtx); err != nil {
		a.logger.WithError(err).Error("No stored catalog to fall back to, service stays unready")
	}
}

// importCatalog loads the source, stores it and swaps in a fresh index.
// The previous index keeps serving until the swap.
func (a *Application) importCatalog(ctx context.Context) error {
	a.importMu.Lock()
	defer a.importMu.Unlock()

	start := time.Now()
	res, err := catalog.Load(ctx, a.source)
	if res != nil {
		a.metrics.RecordRowsRejected(len(res.Rejected))
	}
	if err != nil {
		a.metrics.RecordCatalogReload("error")
		return err
	}

	var idx *retrieval.Index
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.db.ReplaceCourses(gctx, a.source.String(), res.Courses)
	})
	g.Go(func() error {
		var err error
		idx, err = retrieval.Build(res.Courses)
		return err
	})
	if err := g.Wait(); err != nil {
		a.metrics.RecordCatalogReload("error")
		return fmt.Errorf("import catalog: %w", err)
	}

	a.retriever.Swap(idx)
	a.metrics.RecordCatalogReload("success")
	a.logger.WithField("courses", idx.Len()).
		WithField("vocabulary", idx.VocabularySize()).
		WithField("rejected", len(res.Rejected)).
		WithField("duplicates", res.Duplicates).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("Catalog index ready")
	return nil
}

// restoreCatalog builds the index from the stored catalog.
func (a *Application) restoreCatalog(ctx context.Context) error {
	courses, err := a.db.ListCourses(ctx)
	if err != nil {
		return err
	}
	idx, err := retrieval.Build(courses)
	if err != nil {
		return fmt.Errorf("restore catalog: %w", err)
	}
	a.retriever.Swap(idx)
	a.logger.WithField("courses", idx.Len()).Warn("Serving the stored catalog")
	return nil
}

// watchCatalog reimports a local source whenever the file changes.
func (a *Application) watchCatalog(ctx context.Context) {
	fileSrc, ok := a.source.(catalog.FileSource)
	if !ok {
		a.logger.WithField("source", a.source.String()).Warn("Catalog watch only supports local files")
		return
	}

	w, err := catalog.NewWatcher(fileSrc.Path, config.CatalogReloadDebounce)
	if err != nil {
		a.logger.WithError(err).Error("Catalog watcher failed to start")
		return
	}
	defer func() { _ = w.Close() }()

	a.logger.WithField("path", fileSrc.Path).Info("Watching catalog for changes")
	w.Run(ctx, func(ctx context.Context) {
		reloadCtx, cancel := context.WithTimeout(ctx, config.CatalogImport)
		defer cancel()
		if err := a.importCatalog(reloadCtx); err != nil {
			a.logger.WithError(err).Warn("Catalog reload failed, keeping the current index")
		}
	})
}
