package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/spf13/cobra"

	"github.com/paes-prep/backend/internal/config"
	"github.com/paes-prep/backend/internal/content"
	"github.com/paes-prep/backend/internal/database"
	"github.com/paes-prep/backend/internal/diagnostic"
	"github.com/paes-prep/backend/internal/generator"
	"github.com/paes-prep/backend/internal/middleware"
	"github.com/paes-prep/backend/internal/models"
	"github.com/paes-prep/backend/internal/scoring"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "paes",
		Short:        "Adaptive diagnostics and exam simulations for PAES preparation",
		SilenceUsage: true,
	}
	config.RegisterFlags(root.PersistentFlags())
	root.AddCommand(serveCmd(), migrateCmd(), importCmd(), tokenCmd())
	return root
}

// loadConfig installs the process logger and returns the validated config.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(config.New(cmd.Flags()))
	if err != nil {
		return config.Config{}, err
	}
	slog.SetDefault(config.NewLogger(cfg.LogLevel, cfg.LogFormat))
	return cfg, nil
}

func openDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	db, err := database.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := database.Migrate(db, cfg.DBDriver, slog.Default()); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.JWTSecret == "" {
		return errors.New("jwt-secret is required (set PAES_JWT_SECRET)")
	}
	log := slog.Default()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	llm, model, err := generator.NewLLMClient(ctx, cfg.Generator, log)
	if err != nil {
		return fmt.Errorf("create generator: %w", err)
	}

	store := diagnostic.NewStore(db)
	source := content.NewAdapter(store, generator.NewGenerator(llm, model, log), log)
	svc := diagnostic.NewService(
		store,
		diagnostic.NewComposer(source, diagnostic.WithLogger(log)),
		diagnostic.NewSimulationComposer(source, diagnostic.WithLogger(log)),
		scoring.NewEngine(scoring.WithLogger(log)),
		diagnostic.Defaults{
			OfficialRatio:  cfg.OfficialRatio,
			TotalQuestions: cfg.Questions,
			Difficulty:     cfg.Difficulty,
		},
		log,
	)
	auth := middleware.NewAuthenticator(cfg.JWTSecret, "paes-prep", cfg.TokenTTL)

	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(auth.Middleware)
	diagnostic.NewHandler(svc, cfg.RequestTimeout, log).RegisterRoutes(api)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status, code := "ok", http.StatusOK
		if err := db.PingContext(r.Context()); err != nil {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]string{"status": status})
	}).Methods("GET")

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           c.Handler(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "addr", cfg.Addr, "db_driver", cfg.DBDriver)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			db, err := openDB(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return db.Close()
		},
	}
}

// importCmd loads official questions into the bank from a JSON array file.
func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import validated official questions from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read questions file: %w", err)
			}
			var questions []models.Question
			if err := json.Unmarshal(data, &questions); err != nil {
				return fmt.Errorf("parse questions file: %w", err)
			}

			db, err := openDB(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			store := diagnostic.NewStore(db)

			imported, skipped := 0, 0
			for _, q := range questions {
				if q.ID == "" {
					q.ID = uuid.NewString()
				}
				if err := q.Validate(); err != nil {
					slog.Warn("skipping invalid question", "error", err)
					skipped++
					continue
				}
				if err := store.SaveQuestion(cmd.Context(), q, true); err != nil {
					return err
				}
				imported++
			}
			slog.Info("import finished", "imported", imported, "skipped", skipped)
			return nil
		},
	}
	return cmd
}

// tokenCmd issues a bearer token for local testing.
func tokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token USER_ID",
		Short: "Issue a bearer token for a user id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.JWTSecret == "" {
				return errors.New("jwt-secret is required (set PAES_JWT_SECRET)")
			}
			tok, err := middleware.NewAuthenticator(cfg.JWTSecret, "paes-prep", cfg.TokenTTL).IssueToken(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
}
