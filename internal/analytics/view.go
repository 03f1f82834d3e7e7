package analytics

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/souqplus/analytics/internal/dataset"
)

// Row is one denormalized record: an order joined with its customer,
// one of its items, and the order's (at most one) fulfillment event and
// return. Item, Fulfillment and Return are nil when absent.
type Row struct {
	Order       dataset.Order
	Customer    dataset.Customer
	Item        *dataset.OrderItem
	Fulfillment *dataset.FulfillmentEvent
	Return      *dataset.Return
}

// Predicate decides whether a row belongs to the current selection.
type Predicate func(Row) bool

// All matches every row.
func All(Row) bool { return true }

// OrphanOrderError reports an order whose customer is missing from the
// customer table. The policy is drop and warn, never fail.
type OrphanOrderError struct {
	OrderID    string
	CustomerID string
}

func (e *OrphanOrderError) Error() string {
	return fmt.Sprintf("analytics: order %s references missing customer %s", e.OrderID, e.CustomerID)
}

// JoinReport counts the data-quality issues found while building the
// denormalized view.
type JoinReport struct {
	// OrphanOrders is the number of orders dropped for a missing customer.
	OrphanOrders int
	// OrphanRows counts items, fulfillment events and returns that
	// reference no known order.
	OrphanRows int
	// DuplicateEvents counts extra fulfillment events or returns beyond
	// the one kept per order.
	DuplicateEvents int
}

// Total is the warning count surfaced to the user.
func (r JoinReport) Total() int {
	return r.OrphanOrders + r.OrphanRows + r.DuplicateEvents
}

// BuildView flattens the dataset into denormalized rows:
//
//   - left-outer join Order -> Customer; orders with a missing customer
//     are dropped and counted, never fatal
//   - one row per order item; an order with no items contributes a
//     single row with a nil Item
//   - at most one fulfillment event and one return per order; when
//     duplicates exist the most recent by date wins, equal dates break
//     toward the later input row
//
// Output is deterministic: rows are ordered by order ID, then by item
// product ID, regardless of input ordering.
func BuildView(ds *dataset.Dataset) ([]Row, JoinReport) {
	var report JoinReport

	customers := make(map[string]dataset.Customer, len(ds.Customers))
	for _, c := range ds.Customers {
		customers[c.ID] = c
	}

	orderIDs := make(map[string]bool, len(ds.Orders))
	for _, o := range ds.Orders {
		orderIDs[o.ID] = true
	}

	items := make(map[string][]dataset.OrderItem)
	for _, it := range ds.Items {
		if !orderIDs[it.OrderID] {
			log.Warn().Str("order_id", it.OrderID).Str("product_id", it.ProductID).
				Msg("order item references missing order, dropping")
			report.OrphanRows++
			continue
		}
		items[it.OrderID] = append(items[it.OrderID], it)
	}
	for id := range items {
		its := items[id]
		sort.SliceStable(its, func(i, j int) bool { return its[i].ProductID < its[j].ProductID })
	}

	fulfillment := make(map[string]dataset.FulfillmentEvent)
	for _, ev := range ds.Fulfillment {
		if !orderIDs[ev.OrderID] {
			log.Warn().Str("order_id", ev.OrderID).Msg("fulfillment event references missing order, dropping")
			report.OrphanRows++
			continue
		}
		prev, ok := fulfillment[ev.OrderID]
		if ok {
			report.DuplicateEvents++
			if ev.ActualDeliveryDate.Before(prev.ActualDeliveryDate) {
				continue
			}
		}
		fulfillment[ev.OrderID] = ev
	}

	returns := make(map[string]dataset.Return)
	for _, ret := range ds.Returns {
		if !orderIDs[ret.OrderID] {
			log.Warn().Str("order_id", ret.OrderID).Msg("return references missing order, dropping")
			report.OrphanRows++
			continue
		}
		prev, ok := returns[ret.OrderID]
		if ok {
			report.DuplicateEvents++
			if ret.ReturnDate.Before(prev.ReturnDate) {
				continue
			}
		}
		returns[ret.OrderID] = ret
	}

	orders := make([]dataset.Order, len(ds.Orders))
	copy(orders, ds.Orders)
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })

	rows := make([]Row, 0, len(ds.Items)+len(ds.Orders))
	for _, o := range orders {
		cust, ok := customers[o.CustomerID]
		if !ok {
			err := &OrphanOrderError{OrderID: o.ID, CustomerID: o.CustomerID}
			log.Warn().Err(err).Msg("dropping orphan order")
			report.OrphanOrders++
			continue
		}

		base := Row{Order: o, Customer: cust}
		if ev, ok := fulfillment[o.ID]; ok {
			evCopy := ev
			base.Fulfillment = &evCopy
		}
		if ret, ok := returns[o.ID]; ok {
			retCopy := ret
			base.Return = &retCopy
		}

		its := items[o.ID]
		if len(its) == 0 {
			rows = append(rows, base)
			continue
		}
		for i := range its {
			row := base
			item := its[i]
			row.Item = &item
			rows = append(rows, row)
		}
	}

	return rows, report
}
