package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/garyellow/course-advisor/internal/catalog"
	"github.com/garyellow/course-advisor/internal/config"
	"github.com/garyellow/course-advisor/internal/ctxutil"
	"github.com/garyellow/course-advisor/internal/dialogue"
	"github.com/garyellow/course-advisor/internal/logger"
	"github.com/garyellow/course-advisor/internal/storage"
)

// Local runs one conversation in-process, without the HTTP server. It
// shares the catalog database and description cache with the server.
type Local struct {
	app       *Application
	sessionID string
}

// NewLocal loads the catalog and prepares a conversation with the given id.
// The LINE webhook is never started in local mode.
func NewLocal(ctx context.Context, cfg *config.Config, log *logger.Logger, sessionID string) (*Local, error) {
	if sessionID == "" {
		return nil, errors.New("session id is required")
	}
	local := *cfg
	local.LineChannelSecret, local.LineChannelToken = "", ""
	local.CatalogWatch = false

	db, err := storage.New(ctx, local.SQLitePath(), local.DescriptionCacheTTL)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	app, err := newApplication(ctx, &local, log, db, prometheus.NewRegistry())
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	app.loadCatalog(ctx)
	if !app.retriever.Ready() {
		app.closeResources()
		return nil, fmt.Errorf("catalog %s could not be loaded", app.source)
	}
	return &Local{app: app, sessionID: sessionID}, nil
}

// SessionID returns the conversation id.
func (l *Local) SessionID() string { return l.sessionID }

// Send runs one dialogue turn.
func (l *Local) Send(ctx context.Context, message string) (dialogue.Reply, error) {
	ctx = ctxutil.WithChannel(ctx, ctxutil.ChannelCLI)
	ctx = ctxutil.WithSessionID(ctx, l.sessionID)
	ctx, cancel := context.WithTimeout(ctx, config.ChatTurn)
	defer cancel()

	session := l.app.sessions.GetOrCreate(l.sessionID)
	return l.app.engine.Handle(ctx, session, message), nil
}

// Describe returns a course and its overview.
func (l *Local) Describe(ctx context.Context, courseID int) (catalog.Course, string, error) {
	return l.app.details.CourseDetail(ctx, courseID)
}

// Close releases the database and model clients.
func (l *Local) Close() {
	l.app.closeResources()
}
