package transport

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/souqplus/analytics/internal/analytics"
	"github.com/souqplus/analytics/internal/handler"
	"github.com/souqplus/analytics/internal/telemetry"
)

// NewRouter wires the dashboard API around one analytics service.
func NewRouter(svc *analytics.Service) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(countRequests)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	h := handler.NewDashboardHandler(svc)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/summary", h.Summary)
		r.Get("/revenue/daily", h.DailyRevenue)
		r.Get("/revenue/by-city", h.RevenueByCity)
		r.Get("/revenue/by-channel", h.RevenueByChannel)
		r.Get("/revenue/by-category", h.RevenueByCategory)
		r.Get("/products/top", h.TopProducts)
		r.Get("/coupons", h.CouponUsage)
		r.Get("/customers/lifetime-value", h.CustomerLifetimeValue)
		r.Get("/operations/delay-reasons", h.TopDelayReasons)
		r.Get("/operations/delays-by-zone", h.DelaysByZone)
		r.Get("/operations/returns-by-city", h.ReturnsByCity)
		r.Get("/operations/returns-by-category", h.ReturnsByCategory)
		r.Get("/operations/warehouse-performance", h.WarehousePerformance)
	})

	return r
}

// countRequests records one counter increment per served request,
// labelled by route pattern and status class.
func countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		status := strconv.Itoa(ww.Status()/100) + "xx"
		telemetry.RequestsTotal.WithLabelValues(route, status).Inc()
	})
}
