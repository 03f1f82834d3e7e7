package analytics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/souqplus/analytics/internal/dataset"
	"github.com/souqplus/analytics/internal/telemetry"
)

// Summary bundles the headline KPIs of the executive view for one
// filter selection.
type Summary struct {
	TotalRevenue       float64        `json:"total_revenue"`
	RevenueDelta       Ratio          `json:"revenue_delta"`
	OrderCount         int            `json:"order_count"`
	AverageOrderValue  Ratio          `json:"average_order_value"`
	TotalDiscount      float64        `json:"total_discount"`
	TotalRefund        float64        `json:"total_refund"`
	ReturnRate         Ratio          `json:"return_rate"`
	OnTimeDeliveryRate Ratio          `json:"on_time_delivery_rate"`
	AverageDelayDays   Ratio          `json:"average_delay_days"`
	DiscountImpact     DiscountImpact `json:"discount_impact"`
	Warnings           int            `json:"warnings"`
}

// Service computes metrics over one loaded dataset. The denormalized
// view is built once at construction; every metric call re-filters it.
// Summaries are memoized by (filter fingerprint, dataset version):
// recomputation is pure, so a cached result is always valid for the
// life of the dataset.
type Service struct {
	ds     *dataset.Dataset
	rows   []Row
	report JoinReport

	mu    sync.Mutex
	cache map[string]*Summary
}

// NewService builds the denormalized view and wraps it in a Service.
func NewService(ds *dataset.Dataset) *Service {
	rows, report := BuildView(ds)
	return &Service{
		ds:     ds,
		rows:   rows,
		report: report,
		cache:  make(map[string]*Summary),
	}
}

// Rows exposes the denormalized view, mainly for tests.
func (s *Service) Rows() []Row { return s.rows }

// Warnings is the total data-quality warning count for the session:
// rows skipped at load time plus rows dropped by the join.
func (s *Service) Warnings() int {
	return s.ds.Warnings + s.report.Total()
}

func (s *Service) observe(metric string) *prometheus.Timer {
	return prometheus.NewTimer(telemetry.ComputeDuration.WithLabelValues(metric))
}

// Summary computes (or recalls) the KPI summary for a selection.
func (s *Service) Summary(f Filter) (*Summary, error) {
	pred, err := f.Predicate()
	if err != nil {
		return nil, err
	}

	key := f.Fingerprint() + "@" + s.ds.Version.String()
	s.mu.Lock()
	if cached, ok := s.cache[key]; ok {
		s.mu.Unlock()
		telemetry.CacheHits.Inc()
		return cached, nil
	}
	s.mu.Unlock()

	defer s.observe("summary").ObserveDuration()

	sum := &Summary{
		TotalRevenue:       TotalRevenue(s.rows, pred),
		OrderCount:         OrderCount(s.rows, pred),
		AverageOrderValue:  AverageOrderValue(s.rows, pred),
		TotalDiscount:      TotalDiscount(s.rows, pred),
		TotalRefund:        TotalRefund(s.rows, pred),
		ReturnRate:         ReturnRate(s.rows, pred),
		OnTimeDeliveryRate: OnTimeDeliveryRate(s.rows, pred),
		AverageDelayDays:   AverageDelayDays(s.rows, pred),
		DiscountImpact:     DiscountImpactReport(s.rows, pred),
		Warnings:           s.Warnings(),
	}
	sum.RevenueDelta = s.revenueDelta(f, sum.TotalRevenue)

	s.mu.Lock()
	s.cache[key] = sum
	s.mu.Unlock()
	return sum, nil
}

// revenueDelta compares the selection's revenue against the window of
// equal length immediately before it. Without a date range there is no
// previous period to compare to.
func (s *Service) revenueDelta(f Filter, current float64) Ratio {
	if f.DateRange == nil {
		return Undefined
	}

	span := f.DateRange.To.Sub(f.DateRange.From) + 24*time.Hour
	previous := f
	previous.DateRange = &DateRange{
		From: f.DateRange.From.Add(-span),
		To:   f.DateRange.From.Add(-24 * time.Hour),
	}
	pred, err := previous.Predicate()
	if err != nil {
		return Undefined
	}
	return PeriodOverPeriodDelta(current, TotalRevenue(s.rows, pred))
}

func (s *Service) DailyRevenue(f Filter) ([]TimePoint, error) {
	pred, err := f.Predicate()
	if err != nil {
		return nil, err
	}
	defer s.observe("daily_revenue").ObserveDuration()
	return DailyRevenue(s.rows, pred), nil
}

func (s *Service) RevenueByCity(f Filter) ([]KeyValue, error) {
	pred, err := f.Predicate()
	if err != nil {
		return nil, err
	}
	defer s.observe("revenue_by_city").ObserveDuration()
	return RevenueByCity(s.rows, pred), nil
}

func (s *Service) RevenueByChannel(f Filter) ([]KeyValue, error) {
	pred, err := f.Predicate()
	if err != nil {
		return nil, err
	}
	defer s.observe("revenue_by_channel").ObserveDuration()
	return RevenueByChannel(s.rows, pred), nil
}

func (s *Service) RevenueByCategory(f Filter) ([]KeyValue, error) {
	pred, err := f.Predicate()
	if err != nil {
		return nil, err
	}
	defer s.observe("revenue_by_category").ObserveDuration()
	return RevenueByCategory(s.rows, pred), nil
}

func (s *Service) TopProducts(f Filter, n int) ([]KeyValue, error) {
	pred, err := f.Predicate()
	if err != nil {
		return nil, err
	}
	defer s.observe("top_products").ObserveDuration()
	return TopProductsByRevenue(s.rows, pred, n), nil
}

func (s *Service) CouponUsage(f Filter) ([]KeyValue, error) {
	pred, err := f.Predicate()
	if err != nil {
		return nil, err
	}
	defer s.observe("coupon_usage").ObserveDuration()
	return CouponUsage(s.rows, pred), nil
}

func (s *Service) CustomerLifetimeValue(f Filter, asOf time.Time) ([]KeyValue, error) {
	pred, err := f.Predicate()
	if err != nil {
		return nil, err
	}
	defer s.observe("customer_lifetime_value").ObserveDuration()
	return CustomerLifetimeValue(s.rows, pred, asOf), nil
}

func (s *Service) TopDelayReasons(f Filter, n int) ([]KeyValue, error) {
	pred, err := f.Predicate()
	if err != nil {
		return nil, err
	}
	defer s.observe("top_delay_reasons").ObserveDuration()
	return TopDelayReasons(s.rows, pred, n), nil
}

func (s *Service) ReturnsByCity(f Filter) ([]KeyValue, error) {
	pred, err := f.Predicate()
	if err != nil {
		return nil, err
	}
	defer s.observe("returns_by_city").ObserveDuration()
	return ReturnsByCity(s.rows, pred), nil
}

func (s *Service) ReturnsByCategory(f Filter) ([]KeyValue, error) {
	pred, err := f.Predicate()
	if err != nil {
		return nil, err
	}
	defer s.observe("returns_by_category").ObserveDuration()
	return ReturnsByCategory(s.rows, pred), nil
}

func (s *Service) DelaysByZone(f Filter) ([]KeyValue, error) {
	pred, err := f.Predicate()
	if err != nil {
		return nil, err
	}
	defer s.observe("delays_by_zone").ObserveDuration()
	return DelaysByZone(s.rows, pred), nil
}

func (s *Service) WarehousePerformance(f Filter) ([]WarehouseSplit, error) {
	pred, err := f.Predicate()
	if err != nil {
		return nil, err
	}
	defer s.observe("warehouse_performance").ObserveDuration()
	return WarehousePerformance(s.rows, pred), nil
}
