package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/medicao-erp/medicao-erp/internal/billing"
	"github.com/medicao-erp/medicao-erp/internal/contracts"
	"github.com/medicao-erp/medicao-erp/internal/masterdata/partners"
	"github.com/medicao-erp/medicao-erp/internal/masterdata/products"
	"github.com/medicao-erp/medicao-erp/internal/measurement"
	"github.com/medicao-erp/medicao-erp/internal/sales/orders"
	"github.com/medicao-erp/medicao-erp/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	MeasurementHandler *measurement.Handler
	BillingHandler     *billing.Handler
	PartnerHandler     *partners.Handler
	ProductHandler     *products.Handler
	OrderHandler       *orders.Handler
	ContractHandler    *contracts.Handler
	JobHandler         *jobs.Handler
}

// NewRouter constructs the chi.Router with service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		if params.MeasurementHandler != nil {
			measurement.Routes(r, params.MeasurementHandler)
		}
		if params.BillingHandler != nil {
			billing.Routes(r, params.BillingHandler)
		}
		if params.PartnerHandler != nil {
			partners.Routes(r, params.PartnerHandler)
		}
		if params.ProductHandler != nil {
			products.Routes(r, params.ProductHandler)
		}
		if params.OrderHandler != nil {
			orders.Routes(r, params.OrderHandler)
		}
		if params.ContractHandler != nil {
			contracts.Routes(r, params.ContractHandler)
		}
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	return r
}
