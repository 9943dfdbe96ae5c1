package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/bengkelmitra/bengkelmitra/internal/catalog"
	"github.com/bengkelmitra/bengkelmitra/internal/commission"
	"github.com/bengkelmitra/bengkelmitra/internal/ledger"
	"github.com/bengkelmitra/bengkelmitra/internal/observability"
	"github.com/bengkelmitra/bengkelmitra/internal/reports"
	"github.com/bengkelmitra/bengkelmitra/internal/servicejob"
	"github.com/bengkelmitra/bengkelmitra/internal/settings"
	"github.com/bengkelmitra/bengkelmitra/internal/stock"
	"github.com/bengkelmitra/bengkelmitra/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	UsersHandler      *users.Handler
	UsersRepo         users.RoleLookup
	CatalogHandler    *catalog.Handler
	StockHandler      *stock.Handler
	LedgerHandler     *ledger.Handler
	ServiceJobHandler *servicejob.Handler
	CommissionHandler *commission.Handler
	ReportsHandler    *reports.Handler
	SettingsHandler   *settings.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router. Everything under /api requires the
// X-User identity header; /login, /healthz and /metrics stay open.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())

	params.UsersHandler.MountLogin(r)

	r.Route("/api", func(r chi.Router) {
		r.Use(users.Identity(params.UsersRepo))

		params.UsersHandler.MountRoutes(r)
		params.CatalogHandler.MountRoutes(r)
		params.StockHandler.MountRoutes(r)
		params.LedgerHandler.MountRoutes(r)
		params.ServiceJobHandler.MountRoutes(r)
		params.CommissionHandler.MountRoutes(r)
		params.ReportsHandler.MountRoutes(r)
		params.SettingsHandler.MountRoutes(r)
	})

	return r
}
