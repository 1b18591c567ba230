package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	api "github.com/rpupo63/portfolio-site-backend/api"
	"github.com/rpupo63/portfolio-site-backend/backup"
	"github.com/rpupo63/portfolio-site-backend/config"
	"github.com/rpupo63/portfolio-site-backend/content"
	"github.com/rpupo63/portfolio-site-backend/database"
	"github.com/rpupo63/portfolio-site-backend/logger"
	"github.com/rpupo63/portfolio-site-backend/supabase"
)

func main() {
	fmt.Println("Initializing app...")

	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: Error loading .env file: %v\n", err)
	}

	env := config.New()
	cfg, err := config.Load(env)
	if err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, cfg.Env)
	ctx := context.Background()

	client := supabase.New(cfg.Supabase.URL, cfg.Supabase.AnonKey,
		supabase.WithHTTPClient(&http.Client{Timeout: cfg.Supabase.HTTPTimeout}),
		supabase.WithTokenStore(supabase.NewFileTokenStore(cfg.Supabase.TokenFile)),
	)

	log.Info().Str("url", client.BaseURL()).Str("backend", cfg.ContentBackend).Msg("Backend client ready")

	var store content.Store
	switch cfg.ContentBackend {
	case config.BackendPostgres:
		db, err := openDatabase(ctx, cfg, env, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Error connecting to database")
		}
		if db == nil {
			return
		}
		store = database.NewStore(*db)
	default:
		store = content.NewRESTStore(client)
	}

	manager := content.NewManager(store)
	manager.OnReady(func(snap content.Snapshot) {
		log.Info().Int("projects", len(snap.Projects)).Bool("settings", snap.Settings != nil).Msg("Content ready")
	})

	backups, err := backup.NewSink(ctx, cfg.Backup)
	if err != nil {
		log.Fatal().Err(err).Msg("Error configuring backups")
	}

	// One-shot export for cron jobs
	if config.GetBool(env, "EXPORT_BACKUP", false) {
		if err := exportBackup(ctx, manager, backups, log); err != nil {
			log.Fatal().Err(err).Msg("Backup failed")
		}
		return
	}

	// The server still starts when this fails; content routes retry the load.
	if _, err := manager.Load(ctx); err != nil {
		log.Error().Err(err).Msg("Initial content load failed")
	}

	server, err := api.NewServer(api.Deps{
		Config:    cfg,
		Content:   manager,
		Sessions:  supabase.NewSessions(client),
		Uploader:  client,
		PublicURL: client.PublicURL,
		Backups:   backups,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing server")
	}

	// Listen for interrupt signals to gracefully shutdown the server
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, syscall.SIGINT, syscall.SIGTERM)

	serve(server, interrupts, cfg.Server.ShutdownTimeout, log)
}

type runnable interface {
	Start(errChannel chan<- error)
	ShutdownGracefully(timeout time.Duration)
}

// serve runs server until it fails or a signal arrives, then shuts it down
// and returns the cause.
func serve(server runnable, interrupts <-chan os.Signal, timeout time.Duration, log zerolog.Logger) error {
	// Start and listenToInterrupt may both send; neither may block on exit.
	errChannel := make(chan error, 2)

	go server.Start(errChannel)
	go listenToInterrupt(interrupts, errChannel)

	fatalErr := <-errChannel
	log.Info().Msgf("Closing server: %v", fatalErr)

	server.ShutdownGracefully(timeout)
	return fatalErr
}

// openDatabase connects, then runs the migration and schema report modes.
// It returns nil when a one-shot mode has finished and the process should
// exit.
func openDatabase(ctx context.Context, cfg config.Config, env map[string]string, log zerolog.Logger) (*database.Database, error) {
	log.Info().Str("host", cfg.Database.Host).Msg("Connecting to Supabase database...")
	gormDB, err := database.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	db := database.New(gormDB)

	if steps := config.GetInt(env, "MIGRATE_STEPS", 0); steps != 0 {
		if err := db.MigrateStep(steps); err != nil {
			return nil, err
		}
		log.Info().Int("steps", steps).Msg("Migration steps applied")
		return nil, nil
	}
	if cfg.Database.RunMigrations {
		if err := db.RunMigrations(); err != nil {
			return nil, err
		}
	}

	reports, err := db.ColumnReport(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range reports {
		event := log.Info()
		if !r.OK() {
			event = log.Warn()
		}
		event.Str("table", r.Table).
			Bool("exists", r.Exists).
			Strs("missing", r.Missing).
			Strs("unmapped", r.Unmapped).
			Msg("Column report")
	}
	if strings.ToLower(env["GENERATE_COLUMN_REPORT"]) == "true" {
		return nil, nil
	}

	return &db, nil
}

func exportBackup(ctx context.Context, manager *content.Manager, sink backup.Sink, log zerolog.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	if _, err := manager.Load(ctx); err != nil {
		return err
	}
	var buf strings.Builder
	if err := manager.ExportJSON(&buf); err != nil {
		return err
	}
	if manager.Settings() == nil && len(manager.Projects()) == 0 {
		return errors.New("refusing to write an empty backup")
	}

	location, err := sink.Save(ctx, manager.BackupFilename(), []byte(buf.String()))
	if err != nil {
		return err
	}
	log.Info().Str("location", location).Msg("Backup written")
	return nil
}

// listenToInterrupt waits for a signal and then sends an error to the error channel.
func listenToInterrupt(interrupts <-chan os.Signal, errChannel chan<- error) {
	errChannel <- fmt.Errorf("%s", <-interrupts)
}
