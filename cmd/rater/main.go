// cmd/rater/main.go
//
// Entry point for the rating desk. Run `rater` inside a project directory
// that has (or should get) a .rater/ folder.
//
// Flow:
// 1. Handle the non-interactive subcommands (export, validate)
// 2. Load config, corpus and the stored ratings into a Session
// 3. Start the optional export server and S3 uploader
// 4. Launch the TUI and flush the store when it exits

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/kingrea/rating-desk/internal/config"
	"github.com/kingrea/rating-desk/internal/corpus"
	"github.com/kingrea/rating-desk/internal/exportserver"
	"github.com/kingrea/rating-desk/internal/logbook"
	"github.com/kingrea/rating-desk/internal/logging"
	"github.com/kingrea/rating-desk/internal/objectstore"
	"github.com/kingrea/rating-desk/internal/persist"
	"github.com/kingrea/rating-desk/internal/session"
	"github.com/kingrea/rating-desk/internal/tui"
)

func main() {
	cwd, err := os.Getwd()
	if err != nil {
		die("get working directory: %v", err)
	}
	if handleExportCommand(cwd) || handleValidateCommand(cwd) {
		return
	}
	if len(os.Args) > 1 {
		fmt.Fprintln(os.Stderr, "Usage: rater [export [path] | validate]")
		os.Exit(2)
	}

	cfg := loadConfig(cwd)
	if err := run(cfg); err != nil {
		die("%v", err)
	}
}

// run owns every resource opened after config load, so its deferred
// cleanup (diagnostic log, context, export server) runs before main exits.
func run(cfg *config.Config) error {
	id := uuid.NewString()
	book, err := logbook.New(cfg.JournalPath(), logbook.WithTag(id[:8]))
	if err != nil {
		return fmt.Errorf("open logbook: %w", err)
	}
	diag, err := logging.New(cfg)
	if err != nil {
		return fmt.Errorf("open diagnostic log: %w", err)
	}
	defer diag.Close()
	docs, err := corpus.Load(cfg.DataPath(), cfg.Models())
	if err != nil {
		book.Error("Corpus load failed: %v", err)
		return fmt.Errorf("load corpus: %w", err)
	}
	sess, err := session.Open(session.Params{
		Documents: docs,
		Models:    cfg.Models(),
		Raters:    cfg.Labelers(),
		Persist:   persist.New(cfg.StorePath()),
		Logbook:   book,
	}, session.WithID(id))
	if err != nil {
		book.Error("Session open failed: %v", err)
		return fmt.Errorf("open session: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := []tui.AppOption{
		tui.WithLogbook(book),
		tui.WithExportDir(cfg.ExportDir()),
	}

	settings := exportserver.SettingsFromConfig(cfg)
	if settings.Enabled {
		srv := exportserver.NewServer(settings, exportserver.ExporterFunc(sess.Export), exportserver.WithLogger(diag))
		if err := srv.Start(ctx); err != nil {
			book.Warn("Export server unavailable: %v", err)
		} else {
			book.Info("Export server · %s/export", srv.BaseURL())
			opts = append(opts, tui.WithServerURL(srv.BaseURL()))
			defer func() {
				shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
				defer stop()
				_ = srv.Shutdown(shutdownCtx)
			}()
		}
	}

	if s3Settings := objectstore.SettingsFromConfig(cfg); s3Settings.Enabled() {
		client, err := objectstore.New(ctx, s3Settings)
		if err != nil {
			book.Warn("S3 upload disabled: %v", err)
			diag.Printf("objectstore: %v", err)
		} else {
			diag.Printf("objectstore: uploading exports to s3://%s/%s", s3Settings.Bucket, s3Settings.Prefix)
			opts = append(opts, tui.WithUploader(client))
		}
	}

	app, err := tui.NewApp(sess, opts...)
	if err != nil {
		return fmt.Errorf("build ui: %w", err)
	}
	p := tea.NewProgram(app, tea.WithAltScreen())
	_, runErr := p.Run()
	// The UI saves on quit; this catches exits that bypass it.
	if err := sess.Save(); err != nil {
		diag.Printf("final save failed: %v", err)
		return fmt.Errorf("saving ratings: %w", err)
	}
	if runErr != nil {
		return fmt.Errorf("run TUI: %w", runErr)
	}
	return nil
}

func loadConfig(cwd string) *config.Config {
	if err := config.InitRaterDir(cwd); err != nil {
		die("init %s: %v", config.RaterDir, err)
	}
	cfg, err := config.NewConfig(cwd)
	if err != nil {
		die("load config: %v", err)
	}
	return cfg
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
