package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/souqplus/analytics/internal/analytics"
)

type mockAnalyticsService struct {
	SummaryFunc               func(f analytics.Filter) (*analytics.Summary, error)
	DailyRevenueFunc          func(f analytics.Filter) ([]analytics.TimePoint, error)
	RevenueByCityFunc         func(f analytics.Filter) ([]analytics.KeyValue, error)
	RevenueByChannelFunc      func(f analytics.Filter) ([]analytics.KeyValue, error)
	RevenueByCategoryFunc     func(f analytics.Filter) ([]analytics.KeyValue, error)
	TopProductsFunc           func(f analytics.Filter, n int) ([]analytics.KeyValue, error)
	CouponUsageFunc           func(f analytics.Filter) ([]analytics.KeyValue, error)
	CustomerLifetimeValueFunc func(f analytics.Filter, asOf time.Time) ([]analytics.KeyValue, error)
	TopDelayReasonsFunc       func(f analytics.Filter, n int) ([]analytics.KeyValue, error)
	ReturnsByCityFunc         func(f analytics.Filter) ([]analytics.KeyValue, error)
	ReturnsByCategoryFunc     func(f analytics.Filter) ([]analytics.KeyValue, error)
	DelaysByZoneFunc          func(f analytics.Filter) ([]analytics.KeyValue, error)
	WarehousePerformanceFunc  func(f analytics.Filter) ([]analytics.WarehouseSplit, error)
}

func (m *mockAnalyticsService) Summary(f analytics.Filter) (*analytics.Summary, error) {
	return m.SummaryFunc(f)
}

func (m *mockAnalyticsService) DailyRevenue(f analytics.Filter) ([]analytics.TimePoint, error) {
	return m.DailyRevenueFunc(f)
}

func (m *mockAnalyticsService) RevenueByCity(f analytics.Filter) ([]analytics.KeyValue, error) {
	return m.RevenueByCityFunc(f)
}

func (m *mockAnalyticsService) RevenueByChannel(f analytics.Filter) ([]analytics.KeyValue, error) {
	return m.RevenueByChannelFunc(f)
}

func (m *mockAnalyticsService) RevenueByCategory(f analytics.Filter) ([]analytics.KeyValue, error) {
	return m.RevenueByCategoryFunc(f)
}

func (m *mockAnalyticsService) TopProducts(f analytics.Filter, n int) ([]analytics.KeyValue, error) {
	return m.TopProductsFunc(f, n)
}

func (m *mockAnalyticsService) CouponUsage(f analytics.Filter) ([]analytics.KeyValue, error) {
	return m.CouponUsageFunc(f)
}

func (m *mockAnalyticsService) CustomerLifetimeValue(f analytics.Filter, asOf time.Time) ([]analytics.KeyValue, error) {
	return m.CustomerLifetimeValueFunc(f, asOf)
}

func (m *mockAnalyticsService) TopDelayReasons(f analytics.Filter, n int) ([]analytics.KeyValue, error) {
	return m.TopDelayReasonsFunc(f, n)
}

func (m *mockAnalyticsService) ReturnsByCity(f analytics.Filter) ([]analytics.KeyValue, error) {
	return m.ReturnsByCityFunc(f)
}

func (m *mockAnalyticsService) ReturnsByCategory(f analytics.Filter) ([]analytics.KeyValue, error) {
	return m.ReturnsByCategoryFunc(f)
}

func (m *mockAnalyticsService) DelaysByZone(f analytics.Filter) ([]analytics.KeyValue, error) {
	return m.DelaysByZoneFunc(f)
}

func (m *mockAnalyticsService) WarehousePerformance(f analytics.Filter) ([]analytics.WarehouseSplit, error) {
	return m.WarehousePerformanceFunc(f)
}

func TestDashboardHandler_Summary(t *testing.T) {
	tests := []struct {
		name           string
		target         string
		summary        func(f analytics.Filter) (*analytics.Summary, error)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:   "success",
			target: "/api/v1/summary?from=2025-01-01&to=2025-01-31&cities=Dubai",
			summary: func(f analytics.Filter) (*analytics.Summary, error) {
				return &analytics.Summary{
					TotalRevenue:      600,
					OrderCount:        3,
					AverageOrderValue: analytics.DefinedRatio(200),
				}, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "undefined_ratios_render_as_null",
			target: "/api/v1/summary",
			summary: func(f analytics.Filter) (*analytics.Summary, error) {
				return &analytics.Summary{}, nil
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"average_order_value":null`,
		},
		{
			name:           "inverted_date_range",
			target:         "/api/v1/summary?from=2025-02-01&to=2025-01-01",
			summary:        nil, // parseFilter rejects before the service is called
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "invalid filter",
		},
		{
			name:           "from_without_to",
			target:         "/api/v1/summary?from=2025-01-01",
			summary:        nil,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unparseable_date",
			target:         "/api/v1/summary?from=yesterday&to=2025-01-31",
			summary:        nil,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "service_error",
			target: "/api/v1/summary",
			summary: func(f analytics.Filter) (*analytics.Summary, error) {
				return nil, fmt.Errorf("%w: bad selection", analytics.ErrInvalidFilter)
			},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewDashboardHandler(&mockAnalyticsService{SummaryFunc: tt.summary})

			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			rec := httptest.NewRecorder()
			h.Summary(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedBody != "" {
				assert.Contains(t, rec.Body.String(), tt.expectedBody)
			}
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			}
		})
	}
}

func TestDashboardHandler_FilterIsPassedThrough(t *testing.T) {
	var got analytics.Filter
	h := NewDashboardHandler(&mockAnalyticsService{
		RevenueByCityFunc: func(f analytics.Filter) ([]analytics.KeyValue, error) {
			got = f
			return nil, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/revenue/by-city?from=2025-01-01&to=2025-01-31&cities=Dubai,Sharjah&channels=web", nil)
	rec := httptest.NewRecorder()
	h.RevenueByCity(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got.DateRange)
	assert.Equal(t, []string{"Dubai", "Sharjah"}, got.Cities)
	assert.Equal(t, []string{"web"}, got.Channels)
}

func TestDashboardHandler_TopProducts(t *testing.T) {
	tests := []struct {
		name           string
		target         string
		expectedN      int
		expectedStatus int
	}{
		{"default_limit", "/api/v1/products/top", 0, http.StatusOK},
		{"explicit_limit", "/api/v1/products/top?n=3", 3, http.StatusOK},
		{"negative_limit", "/api/v1/products/top?n=-1", 0, http.StatusBadRequest},
		{"garbage_limit", "/api/v1/products/top?n=five", 0, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotN int
			h := NewDashboardHandler(&mockAnalyticsService{
				TopProductsFunc: func(f analytics.Filter, n int) ([]analytics.KeyValue, error) {
					gotN = n
					return []analytics.KeyValue{}, nil
				},
			})

			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			rec := httptest.NewRecorder()
			h.TopProducts(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, tt.expectedN, gotN)
			}
		})
	}
}

func TestDashboardHandler_CustomerLifetimeValue_UsesClock(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	var gotAsOf time.Time
	h := NewDashboardHandler(&mockAnalyticsService{
		CustomerLifetimeValueFunc: func(f analytics.Filter, asOf time.Time) ([]analytics.KeyValue, error) {
			gotAsOf = asOf
			return nil, nil
		},
	})
	h.now = func() time.Time { return fixed }

	req := httptest.NewRequest(http.MethodGet, "/api/v1/customers/lifetime-value", nil)
	rec := httptest.NewRecorder()
	h.CustomerLifetimeValue(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, fixed, gotAsOf)
}
