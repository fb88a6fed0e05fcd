package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Amine830/ReadSphere-sub000/internal/database/boltstore"
	"github.com/Amine830/ReadSphere-sub000/internal/database/sqlitestore"
	"github.com/Amine830/ReadSphere-sub000/internal/handlers"
	"github.com/Amine830/ReadSphere-sub000/internal/moderation"
	"github.com/Amine830/ReadSphere-sub000/internal/notify"
	"github.com/Amine830/ReadSphere-sub000/internal/routing"
	"github.com/Amine830/ReadSphere-sub000/internal/tracing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Configure zerolog
	// Set log level from environment (default: info)
	logLevel := os.Getenv("LOG_LEVEL")
	switch logLevel {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info", "":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	// Use pretty console logging in development, JSON in production
	if os.Getenv("LOG_FORMAT") == "json" {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	log.Info().Msg("Starting ReadSphere moderation service")

	port := os.Getenv("PORT")
	if port == "" {
		port = "18920"
	}

	dataDir := os.Getenv("READSPHERE_DATA_DIR")
	if dataDir == "" {
		base := os.Getenv("XDG_DATA_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to get home directory")
			}
			base = filepath.Join(home, ".local", "share")
		}
		dataDir = filepath.Join(base, "readsphere")
	}

	// Tracing is optional; a missing collector only costs dropped spans.
	ctx := context.Background()
	if os.Getenv("TRACING_ENABLED") == "true" {
		tp, err := tracing.Init(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize tracing, continuing without it")
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := tp.Shutdown(shutdownCtx); err != nil {
					log.Warn().Err(err).Msg("Tracer shutdown failed")
				}
			}()
			log.Info().Msg("Tracing initialized")
		}
	}

	// Primary store: books, comments, reports, audit log.
	corePath := filepath.Join(dataDir, "readsphere.db")
	store, err := sqlitestore.Open(sqlitestore.Options{Path: corePath})
	if err != nil {
		log.Fatal().Err(err).Str("path", corePath).Msg("Failed to open database")
	}
	defer store.Close()
	log.Info().Str("path", corePath).Msg("Database opened")

	// Notification inbox store.
	inboxPath := filepath.Join(dataDir, "inbox.db")
	inboxDB, err := boltstore.Open(boltstore.Options{Path: inboxPath})
	if err != nil {
		log.Fatal().Err(err).Str("path", inboxPath).Msg("Failed to open inbox database")
	}
	defer inboxDB.Close()
	inbox := inboxDB.NotificationStore()

	// Moderation roles; an empty path disables moderation endpoints.
	roles, err := moderation.NewRoles(os.Getenv("MODERATION_CONFIG"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load moderation roles")
	}
	if !roles.IsEnabled() {
		log.Warn().Msg("No moderators configured, set MODERATION_CONFIG to enable moderation")
	}

	notifier := notify.NewInboxNotifier(inbox, roles)
	engine := moderation.NewEngine(store, roles, notifier)

	h := handlers.NewHandler(engine, store, roles, inbox)

	handler := routing.SetupRouter(routing.Config{
		Handlers: h,
		Logger:   log.Logger,
	})

	log.Info().
		Str("address", "0.0.0.0:"+port).
		Str("url", "http://localhost:"+port).
		Int("moderators", len(roles.ListModerators())).
		Msg("Starting HTTP server")

	if err := http.ListenAndServe("0.0.0.0:"+port, handler); err != nil {
		log.Fatal().Err(err).Msg("Server failed to start")
	}
}
