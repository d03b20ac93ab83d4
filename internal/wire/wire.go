// internal/wire/wire.go
package wire

import (
	"net/http"

	"ground-booking/internal/adaptor"
	"ground-booking/internal/usecase"
	"ground-booking/pkg/middleware"
	"ground-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// App menyimpan semua dependencies
type App struct {
	Router  *chi.Mux
	Service *usecase.Service
}

// Wiring builds services and handlers and mounts every route. gatherer backs
// /metrics.
func Wiring(deps usecase.Deps, gatherer prometheus.Gatherer) *App {
	service := usecase.NewService(deps)
	handler := adaptor.NewHandler(service, deps.Log)

	router := setupRouter(handler, deps, gatherer)

	return &App{
		Router:  router,
		Service: service,
	}
}

// setupRouter konfigurasi Chi router
func setupRouter(handler *adaptor.Handler, deps usecase.Deps, gatherer prometheus.Gatherer) *chi.Mux {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(deps.Log, deps.Metrics))
	r.Use(middleware.Recover(deps.Log))
	r.Use(middleware.CORS())

	// Apply routes
	wireHold(r, handler.Hold, deps.Config, deps.Log)
	wireBooking(r, handler.Booking, deps.Config, deps.Log)
	wirePayment(r, handler.Payment, deps.Config, deps.Log)
	wireAvailability(r, handler.Availability)

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.ResponseSuccess(w, "OK", nil)
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	return r
}
