// Package main is a terminal chat client for the course advisor.
//
// Usage:
//
//	chat [-config chat.yaml] [-server http://localhost:10000]
//
// Without a server the conversation runs in-process against the catalog
// named by CATALOG_SOURCE.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/garyellow/course-advisor/internal/app"
	"github.com/garyellow/course-advisor/internal/config"
	"github.com/garyellow/course-advisor/internal/logger"
	"github.com/garyellow/course-advisor/internal/tui"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "chat: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	configPath := fs.String("config", "chat.yaml", "settings file")
	server := fs.String("server", "", "server base URL (overrides the settings file)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadChatConfig(*configPath)
	if err != nil {
		return err
	}
	if *server != "" {
		cfg.Server = *server
	}
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.NewString()
	}

	client, closeFn, err := newClient(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	_, err = tea.NewProgram(tui.New(client, cfg.Title, cfg.timeout()), tea.WithAltScreen()).Run()
	return err
}

// newClient connects to the configured server or builds an in-process
// conversation. The returned func releases its resources.
func newClient(ctx context.Context, cfg *chatConfig) (tui.Client, func(), error) {
	if cfg.Server != "" {
		return tui.NewHTTPClient(cfg.Server, cfg.SessionID, cfg.timeout()), func() {}, nil
	}

	srvCfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	// The screen owns stdout, so logs go to a file or nowhere.
	var w io.Writer = io.Discard
	closeLog := func() {}
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closeLog = func() { _ = f.Close() }
	}

	local, err := app.NewLocal(ctx, srvCfg, logger.NewWithWriter(srvCfg.LogLevel, w), cfg.SessionID)
	if err != nil {
		closeLog()
		return nil, nil, err
	}
	return local, func() {
		local.Close()
		closeLog()
	}, nil
}
