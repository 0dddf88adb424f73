package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aidosgk/kaspi-orders-backend/api/controllers"
	"github.com/aidosgk/kaspi-orders-backend/api/middleware"
	"github.com/aidosgk/kaspi-orders-backend/internal/analytics"
	"github.com/aidosgk/kaspi-orders-backend/internal/inventory"
	"github.com/aidosgk/kaspi-orders-backend/internal/profit"
	"github.com/aidosgk/kaspi-orders-backend/internal/settings"
	"github.com/aidosgk/kaspi-orders-backend/pkg/config"
	"github.com/aidosgk/kaspi-orders-backend/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	database controllers.Pinger,
	cache controllers.Pinger,
	registry *prometheus.Registry,
	settingsService settings.Service,
	analyticsService analytics.Service,
	profitService profit.Service,
	inventoryService inventory.Service,
	salesCounter *inventory.SalesCounter,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.API.CORSOrigins...),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, database, cache, logg))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/analytics", func(r chi.Router) {
			r.Get("/aggregate", controllers.AnalyticsAggregate(analyticsService, settingsService, logg))
			r.Get("/orders", controllers.AnalyticsOrders(analyticsService, settingsService, logg))
		})

		r.Route("/profit", func(r chi.Router) {
			r.Get("/orders/{id}", controllers.OrderProfit(profitService, logg))
			r.Put("/costs/{number}", controllers.SetManualCost(profitService, logg))
			r.Get("/report", controllers.ProfitReport(profitService, settingsService, logg))
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Post("/receipts", controllers.ReceiveStock(inventoryService, logg))
			r.Get("/stock", controllers.StockSummary(inventoryService, logg))
			r.Put("/thresholds/{code}", controllers.SetStockThreshold(inventoryService, logg))
			r.Post("/recalc", controllers.RecalcStock(inventoryService, salesCounter, settingsService, logg))
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/business-day", controllers.GetBusinessDay(settingsService, logg))
			r.Put("/business-day", controllers.PutBusinessDay(settingsService, logg))
			r.Get("/fees", controllers.GetFees(settingsService, logg))
			r.Put("/fees", controllers.PutFees(settingsService, logg))
		})
	})

	return r
}
