package analytics

import (
	"encoding/json"
	"math"
	"sort"
	"time"
)

// Ratio is a division result that may be undefined. Undefined ratios
// are never errors: they marshal to JSON null and the renderer shows
// "N/A". Every rate and average in this package returns one.
type Ratio struct {
	Value   float64
	Defined bool
}

// DefinedRatio wraps a known value.
func DefinedRatio(v float64) Ratio { return Ratio{Value: v, Defined: true} }

// Undefined is the sentinel for division-by-zero cases.
var Undefined = Ratio{}

func (r Ratio) MarshalJSON() ([]byte, error) {
	if !r.Defined {
		return []byte("null"), nil
	}
	return json.Marshal(r.Value)
}

// KeyValue is one entry of a ranked breakdown.
type KeyValue struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// TimePoint is one entry of a time series.
type TimePoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// DiscountImpact contrasts net revenue from discounted orders against
// full-price orders, both absolute and as a share of the total.
type DiscountImpact struct {
	DiscountedRevenue   float64 `json:"discounted_revenue"`
	UndiscountedRevenue float64 `json:"undiscounted_revenue"`
	DiscountedShare     Ratio   `json:"discounted_share"`
	UndiscountedShare   Ratio   `json:"undiscounted_share"`
}

// TotalRevenue is the sum of item line revenue minus order discounts.
// The discount is counted once per order no matter how many item rows
// the order expands to. Rows without an item contribute no line revenue
// but their order's discount still applies.
func TotalRevenue(rows []Row, pred Predicate) float64 {
	var items float64
	discounts := make(map[string]float64)
	for _, r := range rows {
		if !pred(r) {
			continue
		}
		if r.Item != nil {
			items += r.Item.LineRevenue
		}
		discounts[r.Order.ID] = r.Order.DiscountAmount
	}
	var disc float64
	for _, d := range discounts {
		disc += d
	}
	return items - disc
}

// OrderCount counts distinct orders in the selection.
func OrderCount(rows []Row, pred Predicate) int {
	seen := make(map[string]bool)
	for _, r := range rows {
		if pred(r) {
			seen[r.Order.ID] = true
		}
	}
	return len(seen)
}

// AverageOrderValue is TotalRevenue / OrderCount, undefined for an
// empty selection.
func AverageOrderValue(rows []Row, pred Predicate) Ratio {
	n := OrderCount(rows, pred)
	if n == 0 {
		return Undefined
	}
	return DefinedRatio(TotalRevenue(rows, pred) / float64(n))
}

// PeriodOverPeriodDelta is the relative change from previous to current.
// A zero previous period yields an undefined ratio, not a divide fault.
func PeriodOverPeriodDelta(current, previous float64) Ratio {
	if previous == 0 {
		return Undefined
	}
	return DefinedRatio((current - previous) / previous)
}

// RevenueByCity ranks cities by net revenue (line revenue minus the
// per-order discount, attributed to the customer's city). The values
// partition TotalRevenue over the same selection. Descending by value,
// ties by city name ascending.
func RevenueByCity(rows []Row, pred Predicate) []KeyValue {
	return netRevenueBy(rows, pred, func(r Row) string { return r.Customer.City })
}

// RevenueByChannel ranks order channels by net revenue.
func RevenueByChannel(rows []Row, pred Predicate) []KeyValue {
	return netRevenueBy(rows, pred, func(r Row) string { return r.Order.Channel })
}

// netRevenueBy groups net revenue by an order-level dimension. The
// discount dedup works because every row of one order maps to the same
// group key.
func netRevenueBy(rows []Row, pred Predicate, key func(Row) string) []KeyValue {
	revenue := make(map[string]float64)
	discounted := make(map[string]bool)
	for _, r := range rows {
		if !pred(r) {
			continue
		}
		k := key(r)
		revenue[k] += lineRevenue(r)
		if !discounted[r.Order.ID] {
			discounted[r.Order.ID] = true
			revenue[k] -= r.Order.DiscountAmount
		}
	}
	return rank(revenue, 0)
}

// RevenueByCategory ranks product categories by gross line revenue.
// Order discounts are not attributed to categories because a discount
// applies to the whole order, not a single line.
func RevenueByCategory(rows []Row, pred Predicate) []KeyValue {
	revenue := make(map[string]float64)
	for _, r := range rows {
		if !pred(r) || r.Item == nil {
			continue
		}
		revenue[r.Item.Category] += r.Item.LineRevenue
	}
	return rank(revenue, 0)
}

// TopProductsByRevenue ranks products by line revenue and keeps the top
// n (default 5). Descending by value, ties by product ID ascending.
func TopProductsByRevenue(rows []Row, pred Predicate, n int) []KeyValue {
	if n <= 0 {
		n = 5
	}
	revenue := make(map[string]float64)
	for _, r := range rows {
		if !pred(r) || r.Item == nil {
			continue
		}
		revenue[r.Item.ProductID] += r.Item.LineRevenue
	}
	return rank(revenue, n)
}

// OnTimeDeliveryRate is the share of fulfilled orders delivered at or
// before the promised date. Orders without a fulfillment event are not
// in the denominator; an empty denominator is undefined.
func OnTimeDeliveryRate(rows []Row, pred Predicate) Ratio {
	fulfilled := make(map[string]bool)
	onTime := make(map[string]bool)
	for _, r := range rows {
		if !pred(r) || r.Fulfillment == nil {
			continue
		}
		fulfilled[r.Order.ID] = true
		if !r.Fulfillment.ActualDeliveryDate.After(r.Fulfillment.PromisedDate) {
			onTime[r.Order.ID] = true
		}
	}
	if len(fulfilled) == 0 {
		return Undefined
	}
	return DefinedRatio(float64(len(onTime)) / float64(len(fulfilled)))
}

// AverageDelayDays is the mean delay, in days, over delayed orders only.
// On-time orders are excluded entirely rather than counted as zero.
func AverageDelayDays(rows []Row, pred Predicate) Ratio {
	delays := make(map[string]float64)
	for _, r := range rows {
		if !pred(r) || r.Fulfillment == nil {
			continue
		}
		if r.Fulfillment.ActualDeliveryDate.After(r.Fulfillment.PromisedDate) {
			delays[r.Order.ID] = r.Fulfillment.ActualDeliveryDate.Sub(r.Fulfillment.PromisedDate).Hours() / 24
		}
	}
	if len(delays) == 0 {
		return Undefined
	}
	var sum float64
	for _, d := range delays {
		sum += d
	}
	return DefinedRatio(sum / float64(len(delays)))
}

// ReturnRate is the share of distinct orders with a return.
func ReturnRate(rows []Row, pred Predicate) Ratio {
	n := OrderCount(rows, pred)
	if n == 0 {
		return Undefined
	}
	returned := make(map[string]bool)
	for _, r := range rows {
		if pred(r) && r.Return != nil {
			returned[r.Order.ID] = true
		}
	}
	return DefinedRatio(float64(len(returned)) / float64(n))
}

// TotalDiscount sums order discounts, once per order.
func TotalDiscount(rows []Row, pred Predicate) float64 {
	discounts := make(map[string]float64)
	for _, r := range rows {
		if pred(r) {
			discounts[r.Order.ID] = r.Order.DiscountAmount
		}
	}
	var sum float64
	for _, d := range discounts {
		sum += d
	}
	return sum
}

// TotalRefund sums the refund amount of each returned order, once per
// order.
func TotalRefund(rows []Row, pred Predicate) float64 {
	refunds := make(map[string]float64)
	for _, r := range rows {
		if pred(r) && r.Return != nil {
			refunds[r.Order.ID] = r.Return.RefundAmount
		}
	}
	var sum float64
	for _, a := range refunds {
		sum += a
	}
	return sum
}

// CustomerLifetimeValue ranks customers by net revenue divided by their
// tenure in days since signup as of asOf. Tenure is floored at one day
// so fresh signups do not divide by zero.
func CustomerLifetimeValue(rows []Row, pred Predicate, asOf time.Time) []KeyValue {
	revenue := make(map[string]float64)
	signup := make(map[string]time.Time)
	discounted := make(map[string]bool)
	for _, r := range rows {
		if !pred(r) {
			continue
		}
		id := r.Customer.ID
		signup[id] = r.Customer.SignupDate
		revenue[id] += lineRevenue(r)
		if !discounted[r.Order.ID] {
			discounted[r.Order.ID] = true
			revenue[id] -= r.Order.DiscountAmount
		}
	}

	clv := make(map[string]float64, len(revenue))
	for id, rev := range revenue {
		tenure := math.Floor(asOf.Sub(signup[id]).Hours() / 24)
		if tenure < 1 {
			tenure = 1
		}
		clv[id] = rev / tenure
	}
	return rank(clv, 0)
}

// DiscountImpactReport splits net revenue between orders that carried a
// discount and orders that did not. Shares are fractions of the
// combined total and undefined when the total is zero.
func DiscountImpactReport(rows []Row, pred Predicate) DiscountImpact {
	withDiscount := func(r Row) bool { return pred(r) && r.Order.DiscountAmount > 0 }
	withoutDiscount := func(r Row) bool { return pred(r) && r.Order.DiscountAmount == 0 }

	impact := DiscountImpact{
		DiscountedRevenue:   TotalRevenue(rows, withDiscount),
		UndiscountedRevenue: TotalRevenue(rows, withoutDiscount),
	}
	total := impact.DiscountedRevenue + impact.UndiscountedRevenue
	if total != 0 {
		impact.DiscountedShare = DefinedRatio(impact.DiscountedRevenue / total)
		impact.UndiscountedShare = DefinedRatio(impact.UndiscountedRevenue / total)
	}
	return impact
}

// CouponUsage counts distinct orders per non-empty coupon code, ranked
// by count descending, ties by code ascending.
func CouponUsage(rows []Row, pred Predicate) []KeyValue {
	seen := make(map[string]bool)
	counts := make(map[string]float64)
	for _, r := range rows {
		if !pred(r) || r.Order.CouponCode == "" || seen[r.Order.ID] {
			continue
		}
		seen[r.Order.ID] = true
		counts[r.Order.CouponCode]++
	}
	return rank(counts, 0)
}

// TopDelayReasons counts delayed orders per delay reason and keeps the
// top n (default 10). A delayed delivery without a recorded reason is
// reported as "unknown".
func TopDelayReasons(rows []Row, pred Predicate, n int) []KeyValue {
	if n <= 0 {
		n = 10
	}
	seen := make(map[string]bool)
	counts := make(map[string]float64)
	for _, r := range rows {
		if !pred(r) || r.Fulfillment == nil || seen[r.Order.ID] {
			continue
		}
		if !r.Fulfillment.ActualDeliveryDate.After(r.Fulfillment.PromisedDate) {
			continue
		}
		seen[r.Order.ID] = true
		reason := r.Fulfillment.DelayReason
		if reason == "" {
			reason = "unknown"
		}
		counts[reason]++
	}
	return rank(counts, n)
}

// ReturnsByCity counts returned orders per city, ranked. Any joined
// return counts, including pending ones with no refund paid yet.
func ReturnsByCity(rows []Row, pred Predicate) []KeyValue {
	seen := make(map[string]bool)
	counts := make(map[string]float64)
	for _, r := range rows {
		if !pred(r) || r.Return == nil || seen[r.Order.ID] {
			continue
		}
		seen[r.Order.ID] = true
		counts[r.Customer.City]++
	}
	return rank(counts, 0)
}

// ReturnsByCategory counts returned line items per product category,
// ranked. An order returned with items in two categories counts once in
// each; rows without an item are skipped.
func ReturnsByCategory(rows []Row, pred Predicate) []KeyValue {
	counts := make(map[string]float64)
	for _, r := range rows {
		if !pred(r) || r.Return == nil || r.Item == nil {
			continue
		}
		counts[r.Item.Category]++
	}
	return rank(counts, 0)
}

// DelaysByZone counts delayed orders per delivery zone, ranked. A
// delayed delivery without a recorded zone is reported as "unknown".
func DelaysByZone(rows []Row, pred Predicate) []KeyValue {
	seen := make(map[string]bool)
	counts := make(map[string]float64)
	for _, r := range rows {
		if !pred(r) || r.Fulfillment == nil || seen[r.Order.ID] {
			continue
		}
		if !r.Fulfillment.ActualDeliveryDate.After(r.Fulfillment.PromisedDate) {
			continue
		}
		seen[r.Order.ID] = true
		zone := r.Fulfillment.DeliveryZone
		if zone == "" {
			zone = "unknown"
		}
		counts[zone]++
	}
	return rank(counts, 0)
}

// WarehouseSplit is the delivery outcome split for one warehouse.
type WarehouseSplit struct {
	Warehouse string `json:"warehouse"`
	OnTime    int    `json:"on_time"`
	Delayed   int    `json:"delayed"`
}

// WarehousePerformance splits fulfilled orders into on-time and delayed
// per warehouse, sorted by total deliveries descending, ties by
// warehouse ID ascending. A missing warehouse ID is reported as
// "unknown".
func WarehousePerformance(rows []Row, pred Predicate) []WarehouseSplit {
	seen := make(map[string]bool)
	splits := make(map[string]*WarehouseSplit)
	for _, r := range rows {
		if !pred(r) || r.Fulfillment == nil || seen[r.Order.ID] {
			continue
		}
		seen[r.Order.ID] = true
		wh := r.Fulfillment.WarehouseID
		if wh == "" {
			wh = "unknown"
		}
		split, ok := splits[wh]
		if !ok {
			split = &WarehouseSplit{Warehouse: wh}
			splits[wh] = split
		}
		if r.Fulfillment.ActualDeliveryDate.After(r.Fulfillment.PromisedDate) {
			split.Delayed++
		} else {
			split.OnTime++
		}
	}

	out := make([]WarehouseSplit, 0, len(splits))
	for _, s := range splits {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].OnTime+out[i].Delayed, out[j].OnTime+out[j].Delayed
		if ti != tj {
			return ti > tj
		}
		return out[i].Warehouse < out[j].Warehouse
	})
	return out
}

// DailyRevenue is the net revenue time series per order date, ascending.
func DailyRevenue(rows []Row, pred Predicate) []TimePoint {
	revenue := make(map[time.Time]float64)
	discounted := make(map[string]bool)
	for _, r := range rows {
		if !pred(r) {
			continue
		}
		day := r.Order.OrderDate.Truncate(24 * time.Hour)
		revenue[day] += lineRevenue(r)
		if !discounted[r.Order.ID] {
			discounted[r.Order.ID] = true
			revenue[day] -= r.Order.DiscountAmount
		}
	}

	series := make([]TimePoint, 0, len(revenue))
	for day, v := range revenue {
		series = append(series, TimePoint{Date: day, Value: v})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
	return series
}

// lineRevenue is the item contribution of one row, zero for rows whose
// order expanded without items.
func lineRevenue(r Row) float64 {
	if r.Item == nil {
		return 0
	}
	return r.Item.LineRevenue
}

// rank converts a grouped map into a sorted breakdown: value descending,
// key ascending on ties. limit <= 0 keeps everything.
func rank(values map[string]float64, limit int) []KeyValue {
	out := make([]KeyValue, 0, len(values))
	for k, v := range values {
		out = append(out, KeyValue{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Key < out[j].Key
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
