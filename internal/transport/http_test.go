package transport

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/souqplus/analytics/internal/analytics"
	"github.com/souqplus/analytics/internal/dataset"
)

func testRouterService() *analytics.Service {
	return analytics.NewService(&dataset.Dataset{
		Customers: []dataset.Customer{
			{ID: "CUST-1", SignupDate: mustDate("2024-01-01"), City: "Dubai"},
		},
		Orders: []dataset.Order{
			{ID: "ORD-1", CustomerID: "CUST-1", OrderDate: mustDate("2025-01-10"), Status: dataset.StatusDelivered, Channel: "web", TotalRevenue: 100},
		},
		Items: []dataset.OrderItem{
			{OrderID: "ORD-1", ProductID: "PROD-1", Quantity: 1, LineRevenue: 100},
		},
	})
}

func mustDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestRouterRoutes(t *testing.T) {
	r := NewRouter(testRouterService())

	tests := []struct {
		target         string
		expectedStatus int
	}{
		{"/health", http.StatusOK},
		{"/api/v1/summary", http.StatusOK},
		{"/api/v1/revenue/daily", http.StatusOK},
		{"/api/v1/revenue/by-city", http.StatusOK},
		{"/api/v1/products/top?n=2", http.StatusOK},
		{"/api/v1/operations/delays-by-zone", http.StatusOK},
		{"/api/v1/operations/returns-by-category", http.StatusOK},
		{"/api/v1/operations/warehouse-performance", http.StatusOK},
		{"/api/v1/summary?from=2025-02-01&to=2025-01-01", http.StatusBadRequest},
		{"/api/v1/nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tt.expectedStatus, rec.Code)
		})
	}
}

func TestRouterSummaryBody(t *testing.T) {
	r := NewRouter(testRouterService())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/summary", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total_revenue":100`)
	assert.Contains(t, rec.Body.String(), `"order_count":1`)
}
