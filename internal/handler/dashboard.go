package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/souqplus/analytics/internal/analytics"
)

// AnalyticsService is the slice of the metric service the handlers need.
type AnalyticsService interface {
	Summary(f analytics.Filter) (*analytics.Summary, error)
	DailyRevenue(f analytics.Filter) ([]analytics.TimePoint, error)
	RevenueByCity(f analytics.Filter) ([]analytics.KeyValue, error)
	RevenueByChannel(f analytics.Filter) ([]analytics.KeyValue, error)
	RevenueByCategory(f analytics.Filter) ([]analytics.KeyValue, error)
	TopProducts(f analytics.Filter, n int) ([]analytics.KeyValue, error)
	CouponUsage(f analytics.Filter) ([]analytics.KeyValue, error)
	CustomerLifetimeValue(f analytics.Filter, asOf time.Time) ([]analytics.KeyValue, error)
	TopDelayReasons(f analytics.Filter, n int) ([]analytics.KeyValue, error)
	DelaysByZone(f analytics.Filter) ([]analytics.KeyValue, error)
	ReturnsByCity(f analytics.Filter) ([]analytics.KeyValue, error)
	ReturnsByCategory(f analytics.Filter) ([]analytics.KeyValue, error)
	WarehousePerformance(f analytics.Filter) ([]analytics.WarehouseSplit, error)
}

// DashboardHandler serves metric results to the rendering layer.
type DashboardHandler struct {
	svc AnalyticsService
	now func() time.Time
}

// NewDashboardHandler creates a DashboardHandler.
func NewDashboardHandler(svc AnalyticsService) *DashboardHandler {
	return &DashboardHandler{svc: svc, now: time.Now}
}

const dateLayout = "2006-01-02"

// parseFilter reads the filter selection from query parameters:
// from/to (ISO dates, both or neither), cities and channels
// (comma-separated sets).
func parseFilter(r *http.Request) (analytics.Filter, error) {
	var f analytics.Filter
	q := r.URL.Query()

	from, to := q.Get("from"), q.Get("to")
	if (from == "") != (to == "") {
		return f, fmt.Errorf("%w: date range requires both from and to", analytics.ErrInvalidFilter)
	}
	if from != "" {
		start, err := time.Parse(dateLayout, from)
		if err != nil {
			return f, fmt.Errorf("%w: unparseable from date %q", analytics.ErrInvalidFilter, from)
		}
		end, err := time.Parse(dateLayout, to)
		if err != nil {
			return f, fmt.Errorf("%w: unparseable to date %q", analytics.ErrInvalidFilter, to)
		}
		f.DateRange = &analytics.DateRange{From: start, To: end}
	}

	f.Cities = splitSet(q.Get("cities"))
	f.Channels = splitSet(q.Get("channels"))

	if err := f.Validate(); err != nil {
		return f, err
	}
	return f, nil
}

func splitSet(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseLimit reads the optional n query parameter; zero means the
// metric's own default.
func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("n")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: n must be a non-negative integer", analytics.ErrInvalidFilter)
	}
	return n, nil
}

// rankedHandler wraps the common shape of breakdown endpoints.
func (h *DashboardHandler) rankedHandler(compute func(analytics.Filter) ([]analytics.KeyValue, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := parseFilter(r)
		if err != nil {
			respondWithError(w, mapErrorToStatusCode(err), err.Error())
			return
		}
		result, err := compute(f)
		if err != nil {
			respondWithError(w, mapErrorToStatusCode(err), err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, result)
	}
}

// Summary handles GET /api/v1/summary.
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}
	sum, err := h.svc.Summary(f)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, sum)
}

// DailyRevenue handles GET /api/v1/revenue/daily.
func (h *DashboardHandler) DailyRevenue(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}
	series, err := h.svc.DailyRevenue(f)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, series)
}

// RevenueByCity handles GET /api/v1/revenue/by-city.
func (h *DashboardHandler) RevenueByCity(w http.ResponseWriter, r *http.Request) {
	h.rankedHandler(h.svc.RevenueByCity)(w, r)
}

// RevenueByChannel handles GET /api/v1/revenue/by-channel.
func (h *DashboardHandler) RevenueByChannel(w http.ResponseWriter, r *http.Request) {
	h.rankedHandler(h.svc.RevenueByChannel)(w, r)
}

// RevenueByCategory handles GET /api/v1/revenue/by-category.
func (h *DashboardHandler) RevenueByCategory(w http.ResponseWriter, r *http.Request) {
	h.rankedHandler(h.svc.RevenueByCategory)(w, r)
}

// TopProducts handles GET /api/v1/products/top.
func (h *DashboardHandler) TopProducts(w http.ResponseWriter, r *http.Request) {
	n, err := parseLimit(r)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}
	h.rankedHandler(func(f analytics.Filter) ([]analytics.KeyValue, error) {
		return h.svc.TopProducts(f, n)
	})(w, r)
}

// CouponUsage handles GET /api/v1/coupons.
func (h *DashboardHandler) CouponUsage(w http.ResponseWriter, r *http.Request) {
	h.rankedHandler(h.svc.CouponUsage)(w, r)
}

// CustomerLifetimeValue handles GET /api/v1/customers/lifetime-value.
func (h *DashboardHandler) CustomerLifetimeValue(w http.ResponseWriter, r *http.Request) {
	h.rankedHandler(func(f analytics.Filter) ([]analytics.KeyValue, error) {
		return h.svc.CustomerLifetimeValue(f, h.now())
	})(w, r)
}

// TopDelayReasons handles GET /api/v1/operations/delay-reasons.
func (h *DashboardHandler) TopDelayReasons(w http.ResponseWriter, r *http.Request) {
	n, err := parseLimit(r)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}
	h.rankedHandler(func(f analytics.Filter) ([]analytics.KeyValue, error) {
		return h.svc.TopDelayReasons(f, n)
	})(w, r)
}

// DelaysByZone handles GET /api/v1/operations/delays-by-zone.
func (h *DashboardHandler) DelaysByZone(w http.ResponseWriter, r *http.Request) {
	h.rankedHandler(h.svc.DelaysByZone)(w, r)
}

// ReturnsByCity handles GET /api/v1/operations/returns-by-city.
func (h *DashboardHandler) ReturnsByCity(w http.ResponseWriter, r *http.Request) {
	h.rankedHandler(h.svc.ReturnsByCity)(w, r)
}

// ReturnsByCategory handles GET /api/v1/operations/returns-by-category.
func (h *DashboardHandler) ReturnsByCategory(w http.ResponseWriter, r *http.Request) {
	h.rankedHandler(h.svc.ReturnsByCategory)(w, r)
}

// WarehousePerformance handles GET /api/v1/operations/warehouse-performance.
func (h *DashboardHandler) WarehousePerformance(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}
	splits, err := h.svc.WarehousePerformance(f)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, splits)
}
