package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/souqplus/analytics/internal/telemetry"
)

const (
	customersFile   = "customers.csv"
	ordersFile      = "orders.csv"
	orderItemsFile  = "order_items.csv"
	fulfillmentFile = "fulfillment.csv"
	returnsFile     = "returns.csv"
)

// Load reads the five CSV tables from dir into a Dataset. Missing files
// and missing required columns are fatal; rows that fail to parse or
// validate are skipped with a warning. Columns are identified by header
// name, not position.
func Load(dir string) (*Dataset, error) {
	ds := &Dataset{}
	v := validator.New()

	steps := []struct {
		file  string
		strip bool
		parse func(t *table) error
	}{
		{customersFile, false, func(t *table) error { return ds.parseCustomers(t, v) }},
		{ordersFile, false, func(t *table) error { return ds.parseOrders(t, v) }},
		{orderItemsFile, true, func(t *table) error { return ds.parseOrderItems(t, v) }},
		{fulfillmentFile, false, func(t *table) error { return ds.parseFulfillment(t, v) }},
		{returnsFile, false, func(t *table) error { return ds.parseReturns(t, v) }},
	}

	for _, step := range steps {
		f, err := os.Open(filepath.Join(dir, step.file))
		if err != nil {
			return nil, fmt.Errorf("dataset: failed to open %s: %w", step.file, err)
		}
		t, err := readTable(f, step.file, step.strip)
		f.Close()
		if err != nil {
			return nil, err
		}
		if err := step.parse(t); err != nil {
			return nil, err
		}
	}

	version, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("dataset: failed to generate version: %w", err)
	}
	ds.Version = version

	log.Info().
		Str("version", ds.Version.String()).
		Int("customers", len(ds.Customers)).
		Int("orders", len(ds.Orders)).
		Int("order_items", len(ds.Items)).
		Int("fulfillment_events", len(ds.Fulfillment)).
		Int("returns", len(ds.Returns)).
		Int("warnings", ds.Warnings).
		Msg("dataset loaded")

	return ds, nil
}

// table is one parsed CSV file: a case-insensitive header index plus
// the raw data rows.
type table struct {
	file string
	cols map[string]int
	rows [][]string
}

// readTable parses CSV content into a table. stripQuotes handles exports
// where every data line arrives wrapped in one extra level of quotes.
func readTable(r io.Reader, file string, stripQuotes bool) (*table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("dataset: failed to read %s: %w", file, err)
	}

	content := strings.TrimPrefix(string(data), "\ufeff")
	if stripQuotes {
		lines := strings.Split(strings.TrimSpace(content), "\n")
		for i, line := range lines {
			lines[i] = strings.Trim(strings.TrimSpace(line), `"`)
		}
		content = strings.Join(lines, "\n")
	}

	reader := csv.NewReader(strings.NewReader(content))
	reader.TrimLeadingSpace = true
	// Ragged rows are a data-quality problem, not a schema problem: let
	// them through here so validation can skip them with a warning.
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("dataset: failed to read %s header: %w", file, err)
	}

	t := &table{file: file, cols: make(map[string]int, len(header))}
	for i, h := range header {
		t.cols[strings.ToLower(strings.TrimSpace(h))] = i
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("dataset: malformed row in %s: %w", file, err)
		}
		t.rows = append(t.rows, row)
	}

	return t, nil
}

// require checks that every named column exists in the header.
func (t *table) require(cols ...string) error {
	for _, c := range cols {
		if _, ok := t.cols[c]; !ok {
			return fmt.Errorf("dataset: %s is missing required column %q", t.file, c)
		}
	}
	return nil
}

func (t *table) cell(row []string, col string) string {
	i, ok := t.cols[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// dateFormats accepted for date cells, tried in order.
var dateFormats = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("dataset: unparseable date %q", s)
}

// parseMoney accepts an empty cell as zero; optional monetary columns
// (discounts, unit price) default that way.
func parseMoney(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("dataset: unparseable amount %q", s)
	}
	return f, nil
}

// parseRequiredMoney rejects an empty cell: a missing value in a
// required monetary column is a data-quality problem, not a zero.
func parseRequiredMoney(s string) (float64, error) {
	if s == "" {
		return 0, fmt.Errorf("dataset: missing required amount")
	}
	return parseMoney(s)
}

// skipRow records one dropped row: log, dataset warning count, metric.
func (ds *Dataset) skipRow(file string, line int, err error) {
	log.Warn().Err(err).Str("file", file).Int("row", line).Msg("skipping row")
	ds.Warnings++
	telemetry.RowsSkipped.Inc()
}

func (ds *Dataset) parseCustomers(t *table, v *validator.Validate) error {
	if err := t.require("customer_id", "signup_date", "city"); err != nil {
		return err
	}
	for i, row := range t.rows {
		signup, err := parseDate(t.cell(row, "signup_date"))
		if err != nil {
			ds.skipRow(t.file, i+2, err)
			continue
		}
		c := Customer{
			ID:            t.cell(row, "customer_id"),
			SignupDate:    signup,
			SignupChannel: t.cell(row, "signup_channel"),
			Segment:       t.cell(row, "segment"),
			City:          t.cell(row, "city"),
		}
		if err := v.Struct(c); err != nil {
			ds.skipRow(t.file, i+2, err)
			continue
		}
		ds.Customers = append(ds.Customers, c)
	}
	return nil
}

func (ds *Dataset) parseOrders(t *table, v *validator.Validate) error {
	if err := t.require("order_id", "customer_id", "order_date", "status", "channel", "total_revenue"); err != nil {
		return err
	}
	for i, row := range t.rows {
		date, err := parseDate(t.cell(row, "order_date"))
		if err != nil {
			ds.skipRow(t.file, i+2, err)
			continue
		}
		status, err := ParseOrderStatus(t.cell(row, "status"))
		if err != nil {
			ds.skipRow(t.file, i+2, err)
			continue
		}
		discount, err := parseMoney(t.cell(row, "discount_amount"))
		if err != nil {
			ds.skipRow(t.file, i+2, err)
			continue
		}
		revenue, err := parseRequiredMoney(t.cell(row, "total_revenue"))
		if err != nil {
			ds.skipRow(t.file, i+2, err)
			continue
		}
		o := Order{
			ID:             t.cell(row, "order_id"),
			CustomerID:     t.cell(row, "customer_id"),
			OrderDate:      date,
			Status:         status,
			Channel:        t.cell(row, "channel"),
			PaymentMethod:  t.cell(row, "payment_method"),
			CouponCode:     t.cell(row, "coupon_code"),
			DiscountAmount: discount,
			TotalRevenue:   revenue,
		}
		if err := v.Struct(o); err != nil {
			ds.skipRow(t.file, i+2, err)
			continue
		}
		ds.Orders = append(ds.Orders, o)
	}
	return nil
}

func (ds *Dataset) parseOrderItems(t *table, v *validator.Validate) error {
	if err := t.require("order_id", "product_id", "quantity", "line_revenue"); err != nil {
		return err
	}
	for i, row := range t.rows {
		unitPrice, err := parseMoney(t.cell(row, "unit_price"))
		if err != nil {
			ds.skipRow(t.file, i+2, err)
			continue
		}
		lineRevenue, err := parseRequiredMoney(t.cell(row, "line_revenue"))
		if err != nil {
			ds.skipRow(t.file, i+2, err)
			continue
		}
		qty, err := strconv.Atoi(t.cell(row, "quantity"))
		if err != nil {
			ds.skipRow(t.file, i+2, fmt.Errorf("dataset: unparseable quantity %q", t.cell(row, "quantity")))
			continue
		}
		it := OrderItem{
			OrderID:     t.cell(row, "order_id"),
			ProductID:   t.cell(row, "product_id"),
			Category:    t.cell(row, "category"),
			UnitPrice:   unitPrice,
			Quantity:    qty,
			LineRevenue: lineRevenue,
		}
		if err := v.Struct(it); err != nil {
			ds.skipRow(t.file, i+2, err)
			continue
		}
		ds.Items = append(ds.Items, it)
	}
	return nil
}

func (ds *Dataset) parseFulfillment(t *table, v *validator.Validate) error {
	if err := t.require("order_id", "promised_date", "actual_delivery_date"); err != nil {
		return err
	}
	for i, row := range t.rows {
		promised, err := parseDate(t.cell(row, "promised_date"))
		if err != nil {
			ds.skipRow(t.file, i+2, err)
			continue
		}
		actual, err := parseDate(t.cell(row, "actual_delivery_date"))
		if err != nil {
			ds.skipRow(t.file, i+2, err)
			continue
		}
		ev := FulfillmentEvent{
			OrderID:            t.cell(row, "order_id"),
			WarehouseID:        t.cell(row, "warehouse_id"),
			DeliveryPartnerID:  t.cell(row, "delivery_partner_id"),
			PromisedDate:       promised,
			ActualDeliveryDate: actual,
			DelayReason:        t.cell(row, "delay_reason"),
			DeliveryZone:       t.cell(row, "delivery_zone"),
		}
		if err := v.Struct(ev); err != nil {
			ds.skipRow(t.file, i+2, err)
			continue
		}
		ds.Fulfillment = append(ds.Fulfillment, ev)
	}
	return nil
}

func (ds *Dataset) parseReturns(t *table, v *validator.Validate) error {
	if err := t.require("order_id", "refund_status", "return_date"); err != nil {
		return err
	}
	for i, row := range t.rows {
		status, err := ParseRefundStatus(t.cell(row, "refund_status"))
		if err != nil {
			ds.skipRow(t.file, i+2, err)
			continue
		}
		date, err := parseDate(t.cell(row, "return_date"))
		if err != nil {
			ds.skipRow(t.file, i+2, err)
			continue
		}
		amount, err := parseRequiredMoney(t.cell(row, "refund_amount"))
		if err != nil {
			ds.skipRow(t.file, i+2, err)
			continue
		}
		ret := Return{
			OrderID:      t.cell(row, "order_id"),
			Reason:       t.cell(row, "reason"),
			RefundStatus: status,
			RefundAmount: amount,
			ReturnDate:   date,
		}
		if err := v.Struct(ret); err != nil {
			ds.skipRow(t.file, i+2, err)
			continue
		}
		ds.Returns = append(ds.Returns, ret)
	}
	return nil
}
