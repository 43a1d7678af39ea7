package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/docrender/internal/documents"
	"github.com/odyssey-erp/docrender/internal/printing/format"
)

// fakeHandle answers queries by the table named after FROM.
type fakeHandle struct {
	tables  map[string][][]any
	err     error
	queries []string
	args    [][]any
}

func (f *fakeHandle) result(query string, args []any) [][]any {
	f.queries = append(f.queries, query)
	f.args = append(f.args, args)
	fields := strings.Fields(query[strings.Index(query, "FROM")+len("FROM"):])
	return f.tables[fields[0]]
}

func (f *fakeHandle) QueryRows(_ context.Context, query string, args ...any) (Rows, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &fakeRows{data: f.result(query, args), pos: -1}, nil
}

func (f *fakeHandle) QueryRow(_ context.Context, query string, args ...any) Row {
	if f.err != nil {
		return fakeRow{err: f.err}
	}
	data := f.result(query, args)
	if len(data) == 0 {
		return fakeRow{err: errNoRows}
	}
	return fakeRow{values: data[0]}
}

type fakeRows struct {
	data [][]any
	pos  int
}

func (r *fakeRows) Next() bool             { r.pos++; return r.pos < len(r.data) }
func (r *fakeRows) Scan(dest ...any) error { return assign(r.data[r.pos], dest) }
func (r *fakeRows) Err() error             { return nil }
func (r *fakeRows) Close()                 {}

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assign(r.values, dest)
}

func assign(values []any, dest []any) error {
	if len(values) != len(dest) {
		return fmt.Errorf("scan: %d values into %d targets", len(values), len(dest))
	}
	for i, d := range dest {
		if s, ok := d.(sql.Scanner); ok {
			if err := s.Scan(values[i]); err != nil {
				return err
			}
			continue
		}
		target := reflect.ValueOf(d).Elem()
		target.Set(reflect.ValueOf(values[i]).Convert(target.Type()))
	}
	return nil
}

var issued = time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

func documentRow() []any {
	return []any{
		int64(10), "sales_invoice", int64(1), int64(4), "INV-1", "1", "F-77",
		"A", issued, "", "5", "abc",
		"C001", "Jane Doe", "12345678Z", "NIF",
		"jane@example.test", "600", "",
		"High St 5", "", "28001", "Madrid", "", "ES",
		int64(3), int64(7), "SEUR", "TRK1",
		"", "TRANS", "Leave at the door", issued.AddDate(0, 1, 0),
		"1234ABC", int64(1),
	}
}

func TestRebind(t *testing.T) {
	assert.Equal(t, "a = $1 AND b = '?' AND c = $2", Rebind("a = ? AND b = '?' AND c = ?"))
	assert.Equal(t, "SELECT 1", Rebind("SELECT 1"))
}

func TestLenientScan(t *testing.T) {
	cases := []struct {
		src  any
		want string
	}{
		{"21", "21"},
		{[]byte("10.5"), "10.5"},
		{"21,5", "21.5"},
		{"n/a", "0"},
		{"", "0"},
		{nil, "0"},
		{int64(4), "4"},
		{float64(1.25), "1.25"},
	}
	for _, tc := range cases {
		var l Lenient
		require.NoError(t, l.Scan(tc.src))
		assert.True(t, decimal.RequireFromString(tc.want).Equal(l.Decimal), "%v", tc.src)
	}
}

func TestLoadDocument(t *testing.T) {
	h := &fakeHandle{tables: map[string][][]any{
		"documents":       {documentRow()},
		"document_fields": {{"qr_url", "https://pay.example.test/1"}},
	}}
	s := New(h, nil)

	doc, err := s.Load(context.Background(), documents.Ref{Kind: documents.KindSalesInvoice, ID: 10})
	require.NoError(t, err)

	assert.Equal(t, documents.KindSalesInvoice, doc.Kind)
	assert.Equal(t, "F-77", doc.Number2)
	assert.True(t, decimal.NewFromInt(5).Equal(doc.Discount1))
	assert.True(t, doc.Discount2.IsZero(), "malformed discount reads as zero")
	assert.Equal(t, "Jane Doe", doc.Subject.Name)
	assert.Equal(t, int64(7), doc.ShippingContactID)
	require.NotNil(t, doc.OfferExpiry)
	assert.Equal(t, issued.AddDate(0, 1, 0), *doc.OfferExpiry)
	assert.True(t, doc.Editable)
	assert.Equal(t, "https://pay.example.test/1", doc.Field("qr_url"))
	assert.Equal(t, []any{"sales_invoice", int64(10)}, h.args[0])
}

func TestLoadDocumentNotFound(t *testing.T) {
	s := New(&fakeHandle{}, nil)
	_, err := s.Load(context.Background(), documents.Ref{Kind: documents.KindSalesOrder, ID: 99})
	assert.ErrorIs(t, err, documents.ErrNotFound)
}

func TestLoadDocumentBackendError(t *testing.T) {
	boom := errors.New("connection reset")
	s := New(&fakeHandle{err: boom}, nil)
	_, err := s.Load(context.Background(), documents.Ref{Kind: documents.KindSalesOrder, ID: 1})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, documents.ErrNotFound)
}

func TestLinesAreLenient(t *testing.T) {
	h := &fakeHandle{tables: map[string][][]any{
		"document_lines": {
			{int64(1), "REF", "Item", "2", "50", "0", "0", "100", "IVA21", "21", "", "n/a", int64(0), int64(1), int64(0), int64(0)},
			{int64(2), "", "Freight", "1", "10", "0", "0", "10", "", "", "", "", int64(1), int64(0), int64(0), int64(1)},
		},
	}}
	lines, err := New(h, nil).Lines(context.Background(), documents.Document{ID: 10})
	require.NoError(t, err)
	require.Len(t, lines, 2)

	assert.True(t, decimal.NewFromInt(21).Equal(lines[0].TaxRate))
	assert.True(t, lines[0].WithholdingRate.IsZero())
	assert.True(t, lines[0].PageBreak)
	assert.True(t, lines[1].Supplied)
	assert.True(t, lines[1].HideQuantity)
	assert.Contains(t, h.queries[0], "ORDER BY sort_order DESC, id ASC")
}

func TestReceiptsOnlyForSalesInvoices(t *testing.T) {
	paidAt := issued.AddDate(0, 0, 3)
	h := &fakeHandle{tables: map[string][][]any{
		"receipts": {
			{int64(1), 1, "TRANS", "C001", "60.5", issued, int64(1), paidAt, ""},
			{int64(2), 2, "TRANS", "C001", "60.5", issued.AddDate(0, 1, 0), int64(0), nil, "https://pay"},
		},
	}}
	s := New(h, nil)

	none, err := s.Receipts(context.Background(), documents.Document{ID: 1, Kind: documents.KindSalesOrder})
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.Empty(t, h.queries)

	receipts, err := s.Receipts(context.Background(), documents.Document{ID: 1, Kind: documents.KindSalesInvoice})
	require.NoError(t, err)
	require.Len(t, receipts, 2)
	assert.True(t, receipts[0].Paid)
	require.NotNil(t, receipts[0].PaidAt)
	assert.Nil(t, receipts[1].PaidAt)
	assert.Equal(t, "https://pay", receipts[1].PayURL)
}

func TestMasterDataMissingIsZero(t *testing.T) {
	s := New(&fakeHandle{tables: map[string][][]any{
		"taxes": {{"IVA21", "VAT 21%", "21"}},
	}}, nil)
	ctx := context.Background()

	tax, err := s.TaxByCode(ctx, "IVA21")
	require.NoError(t, err)
	assert.Equal(t, "VAT 21%", tax.Description)

	carrier, err := s.CarrierByCode(ctx, "NOPE")
	require.NoError(t, err)
	assert.Empty(t, carrier.Name)

	contact, err := s.ContactByID(ctx, 42)
	require.NoError(t, err)
	assert.Zero(t, contact.ID)
}

func TestPaymentMethodFlags(t *testing.T) {
	s := New(&fakeHandle{tables: map[string][][]any{
		"payment_methods": {{"DEBIT", "Direct debit", int64(1), ""}},
	}}, nil)
	m, err := s.PaymentMethodByCode(context.Background(), "DEBIT")
	require.NoError(t, err)
	assert.True(t, m.DirectDebit)
}

func TestFormatSource(t *testing.T) {
	h := &fakeHandle{tables: map[string][][]any{
		"print_format_options": {{"template", "banner"}, {"color1", "#112233"}},
		"print_settings":       {{"footer_text", "Acme Ltd"}},
	}}
	s := New(h, nil)
	ctx := context.Background()

	layer, err := s.FormatRecord(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, format.Layer{"template": "banner", "color1": "#112233"}, layer)

	global, err := s.GlobalSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Acme Ltd", global["footer_text"])

	_, err = New(&fakeHandle{}, nil).FormatRecord(ctx, 5)
	assert.ErrorIs(t, err, format.ErrFormatNotFound)
}
