package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Mickeymouse32/torii-frontend/internal/config"
	"github.com/Mickeymouse32/torii-frontend/internal/dashboard"
	"github.com/Mickeymouse32/torii-frontend/internal/db"
	"github.com/Mickeymouse32/torii-frontend/internal/logging"
	"github.com/Mickeymouse32/torii-frontend/internal/manifest"
	"github.com/Mickeymouse32/torii-frontend/internal/photostore/local"
	"github.com/Mickeymouse32/torii-frontend/internal/remote"
	"github.com/Mickeymouse32/torii-frontend/internal/session"
	"github.com/Mickeymouse32/torii-frontend/internal/staging"
	"github.com/Mickeymouse32/torii-frontend/internal/store"
	"github.com/Mickeymouse32/torii-frontend/internal/submission"
	"github.com/Mickeymouse32/torii-frontend/internal/tui"
)

var errSignIn = errors.New("your session has expired, sign in again and update TORII_TOKEN")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := config.Load()

	var err error
	if len(os.Args) > 1 && os.Args[1] == "create" {
		err = runCreate(ctx, cfg, os.Args[2:])
	} else {
		err = runDashboard(ctx, cfg)
	}
	if err != nil {
		stop()
		log.Fatalf("torii: %v", err)
	}
}

// signIn reads the configured credential and checks it may use the
// dashboard.
func signIn(cfg *config.Config, logger *slog.Logger) (*session.Token, error) {
	tok, err := session.New(cfg.Token)
	if err != nil {
		if errors.Is(err, session.ErrNoToken) {
			return nil, errors.New("not signed in, set TORII_TOKEN to your bearer token")
		}
		return nil, err
	}
	if tok.Expired() {
		return nil, errSignIn
	}
	if err := tok.RequireRole(cfg.AllowedRoles...); err != nil {
		return nil, err
	}
	tok.OnExpire(func() {
		logger.Warn("session expired", "name", tok.Claims().Name)
	})
	return tok, nil
}

func runDashboard(ctx context.Context, cfg *config.Config) error {
	// The dashboard owns the terminal, so logs only go to the file.
	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer cleanup()

	tok, err := signIn(cfg, logger)
	if err != nil {
		return err
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return err
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	previews, err := local.NewPreviewStore(cfg.PreviewPath, logger)
	if err != nil {
		logger.Error("failed to initialize preview store", "error", err)
		return err
	}

	client := remote.NewClient(cfg.APIURL, cfg.HTTPTimeout, logger)
	cache := dashboard.NewCache()
	images := staging.New(previews, logger)

	deps := &tui.Deps{
		Cache:      cache,
		Query:      dashboard.NewQueryModel(cache, client, tok, logger),
		Status:     dashboard.NewStatusModel(cache, client, tok, logger),
		Deletion:   dashboard.NewDeletionModel(cache, client, tok, logger),
		Submission: submission.New(client, images, store.NewDraftStore(database), tok, logger),
		Images:     images,
		Greeting:   tok.FirstName(),
		Logger:     logger,
	}

	logger.Info("dashboard started", "api_url", cfg.APIURL)
	final, err := tea.NewProgram(tui.New(ctx, deps), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		logger.Error("dashboard error", "error", err)
		return err
	}
	if app, ok := final.(tui.App); ok && app.SessionExpired() {
		return errSignIn
	}
	return nil
}

// runCreate submits the listing described by a manifest file without the
// interactive form.
func runCreate(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	path := fs.String("f", "", "Listing manifest (YAML)")
	quiet := fs.Bool("q", false, "Only log to TORII_LOG_FILE")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return errors.New("create: -f is required")
	}

	var console io.Writer = os.Stderr
	if *quiet {
		console = nil
	}
	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile, console)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer cleanup()

	tok, err := signIn(cfg, logger)
	if err != nil {
		return err
	}

	m, err := manifest.Load(*path)
	if err != nil {
		return err
	}
	candidates, err := m.Candidates()
	if err != nil {
		return err
	}

	previews, err := local.NewPreviewStore(cfg.PreviewPath, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize preview store: %w", err)
	}
	images := staging.New(previews, logger)
	defer images.ClearAll(context.WithoutCancel(ctx))

	for slot, c := range candidates {
		if err := images.Stage(ctx, slot, c); err != nil {
			return fmt.Errorf("image %d (%s): %w", slot+1, c.Name, err)
		}
	}

	client := remote.NewClient(cfg.APIURL, cfg.HTTPTimeout, logger)
	form := submission.New(client, images, nil, tok, logger)

	listing, err := form.Submit(ctx, m.Form())
	if err != nil {
		if errors.Is(err, remote.ErrSessionExpired) {
			return errSignIn
		}
		return err
	}

	if listing != nil && listing.ID != "" {
		fmt.Printf("created listing %s (%s)\n", listing.ID, listing.Title)
	} else {
		fmt.Println("listing created")
	}
	return nil
}
