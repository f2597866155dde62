package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diewo77/odo-invoices/internal/config"
	"github.com/diewo77/odo-invoices/internal/db"
	"github.com/diewo77/odo-invoices/internal/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:          "server",
	Short:        "Serve the invoice JSON API",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Bring the database schema up to date and exit",
	Long: `Apply the schema and exit.

With DB_DRIVER=postgres and MIGRATIONS=1 the embedded SQL migrations are run;
otherwise the tables are created with AutoMigrate.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrate()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap loads configuration and opens the database.
func bootstrap() (*config.Config, *logger.Logger, *gorm.DB, error) {
	// a missing dotenv file is fine, the environment may already be set
	_ = godotenv.Load(envFile)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}
	log, err := logger.NewLogger(cfg.Log.Level)
	if err != nil {
		return nil, nil, nil, err
	}
	gdb, err := db.Connect(cfg.Database, log)
	if err != nil {
		log.Errorw("database connection failed", "error", err)
		return nil, nil, nil, err
	}
	return cfg, log, gdb, nil
}

func runMigrate() error {
	cfg, log, gdb, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()

	if err := db.Migrate(gdb, cfg, log); err != nil {
		log.Errorw("migration failed", "error", err)
		return err
	}
	log.Infow("migrations completed")
	return nil
}

func runServer() error {
	cfg, log, gdb, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()

	if err := db.Migrate(gdb, cfg, log); err != nil {
		log.Errorw("migration failed", "error", err)
		return err
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      withLogging(log, NewApp(gdb, log)),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infow("server starting", "port", cfg.Server.Port, "driver", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		log.Errorw("server error", "error", err)
		return err
	case sig := <-quit:
		log.Infow("shutdown signal received", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("error during shutdown", "error", err)
		return err
	}
	log.Infow("server stopped gracefully")
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withLogging logs one line per request.
func withLogging(log *logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Infow("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
