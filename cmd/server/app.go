package main

import (
	"net/http"

	"github.com/diewo77/odo-invoices/httpx"
	"github.com/diewo77/odo-invoices/internal/handlers"
	"github.com/diewo77/odo-invoices/internal/logger"
	"github.com/diewo77/odo-invoices/internal/services"
	"github.com/diewo77/odo-invoices/internal/store"
	"gorm.io/gorm"
)

// App is the main application handler that sets up all routes.
type App struct {
	mux *http.ServeMux
	db  *gorm.DB
	log *logger.Logger
}

// NewApp wires store, service and handlers on top of db.
func NewApp(db *gorm.DB, log *logger.Logger) *App {
	if log == nil {
		log = logger.NewNop()
	}
	app := &App{
		mux: http.NewServeMux(),
		db:  db,
		log: log,
	}
	app.setupRoutes()
	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

func (a *App) setupRoutes() {
	svc := services.NewInvoiceService(store.NewGormStore(a.db), a.log.With("component", "invoices"))
	handlers.NewInvoiceHandler(svc, a.log).Register(a.mux)

	a.mux.HandleFunc("GET /healthz", a.healthz)
}

// healthz reports whether the database answers.
func (a *App) healthz(w http.ResponseWriter, r *http.Request) {
	if err := a.db.WithContext(r.Context()).Exec("SELECT 1").Error; err != nil {
		a.log.Warnw("health check failed", "error", err)
		httpx.JSON(w, http.StatusServiceUnavailable, httpx.StatusResponse{Status: "error", Message: "database unavailable"})
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.StatusResponse{Status: "ok"})
}
