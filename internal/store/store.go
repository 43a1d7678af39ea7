package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/odyssey-erp/docrender/internal/documents"
)

// Store implements documents.Store, masterdata.Finder and format.Source.
type Store struct {
	h      Handle
	logger *slog.Logger
}

// New wraps a query handle.
func New(h Handle, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{h: h, logger: logger}
}

const documentColumns = `id, kind, company_id, COALESCE(format_id, 0), code, COALESCE(number, ''), COALESCE(number2, ''),
	COALESCE(series, ''), doc_date, COALESCE(rectified_code, ''), discount1, discount2,
	COALESCE(subject_code, ''), COALESCE(subject_name, ''), COALESCE(subject_tax_id, ''), COALESCE(subject_tax_id_type, ''),
	COALESCE(subject_email, ''), COALESCE(subject_phone1, ''), COALESCE(subject_phone2, ''),
	COALESCE(street, ''), COALESCE(box, ''), COALESCE(postal_code, ''), COALESCE(city, ''), COALESCE(province, ''), COALESCE(country_code, ''),
	COALESCE(billing_contact_id, 0), COALESCE(shipping_contact_id, 0), COALESCE(carrier_code, ''), COALESCE(tracking_code, ''),
	COALESCE(agent_code, ''), COALESCE(payment_method, ''), COALESCE(observations, ''), offer_expiry,
	COALESCE(vehicle_registration, ''), editable`

// Load implements documents.Store.
func (s *Store) Load(ctx context.Context, ref documents.Ref) (documents.Document, error) {
	var (
		d          documents.Document
		kind       string
		d1, d2     Lenient
		offerUntil sql.NullTime
		editable   int64
	)
	err := s.h.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE kind = ? AND id = ?`, string(ref.Kind), ref.ID).Scan(
		&d.ID, &kind, &d.CompanyID, &d.FormatID, &d.Code, &d.Number, &d.Number2,
		&d.Series, &d.Date, &d.RectifiedCode, &d1, &d2,
		&d.Subject.Code, &d.Subject.Name, &d.Subject.TaxID, &d.Subject.TaxIDType,
		&d.Subject.Email, &d.Subject.Phone1, &d.Subject.Phone2,
		&d.Address.Street, &d.Address.Box, &d.Address.PostalCode, &d.Address.City, &d.Address.Province, &d.Address.CountryCode,
		&d.BillingContactID, &d.ShippingContactID, &d.CarrierCode, &d.TrackingCode,
		&d.AgentCode, &d.PaymentMethod, &d.Observations, &offerUntil,
		&d.VehicleRegistration, &editable,
	)
	if errors.Is(err, errNoRows) {
		return documents.Document{}, fmt.Errorf("%w: %s %d", documents.ErrNotFound, ref.Kind, ref.ID)
	}
	if err != nil {
		return documents.Document{}, fmt.Errorf("store: load document: %w", err)
	}
	d.Kind = documents.Kind(kind)
	d.Discount1, d.Discount2 = d1.Decimal, d2.Decimal
	d.Editable = editable != 0
	if offerUntil.Valid {
		t := offerUntil.Time
		d.OfferExpiry = &t
	}

	extra, err := s.fields(ctx, d.ID)
	if err != nil {
		return documents.Document{}, err
	}
	d.Extra = extra
	return d, nil
}

func (s *Store) fields(ctx context.Context, docID int64) (map[string]string, error) {
	rows, err := s.h.QueryRows(ctx, `SELECT name, COALESCE(value, '') FROM document_fields WHERE document_id = ?`, docID)
	if err != nil {
		return nil, fmt.Errorf("store: document fields: %w", err)
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("store: scan document field: %w", err)
		}
		out[name] = value
	}
	return out, rows.Err()
}

// Lines implements documents.Store. Lines come back in print order.
func (s *Store) Lines(ctx context.Context, doc documents.Document) ([]documents.Line, error) {
	rows, err := s.h.QueryRows(ctx, `
		SELECT id, COALESCE(reference, ''), COALESCE(description, ''), quantity, unit_price, discount, discount2, total,
		       COALESCE(tax_code, ''), tax_rate, surcharge_rate, withholding_rate,
		       supplied, page_break, hide_price, hide_quantity
		FROM document_lines
		WHERE document_id = ?
		ORDER BY sort_order DESC, id ASC`, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("store: lines: %w", err)
	}
	defer rows.Close()

	var out []documents.Line
	for rows.Next() {
		var (
			l                                 documents.Line
			qty, price, dto, dto2, total      Lenient
			tax, surcharge, withholding       Lenient
			supplied, brk, hidePrice, hideQty int64
		)
		if err := rows.Scan(&l.ID, &l.Reference, &l.Description, &qty, &price, &dto, &dto2, &total,
			&l.TaxCode, &tax, &surcharge, &withholding,
			&supplied, &brk, &hidePrice, &hideQty); err != nil {
			return nil, fmt.Errorf("store: scan line: %w", err)
		}
		l.Quantity, l.UnitPrice, l.Discount, l.Discount2, l.Total = qty.Decimal, price.Decimal, dto.Decimal, dto2.Decimal, total.Decimal
		l.TaxRate, l.SurchargeRate, l.WithholdingRate = tax.Decimal, surcharge.Decimal, withholding.Decimal
		l.Supplied, l.PageBreak, l.HidePrice, l.HideQuantity = supplied != 0, brk != 0, hidePrice != 0, hideQty != 0
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: lines: %w", err)
	}
	return out, nil
}

// Receipts implements documents.Store. Only customer invoices have receipts.
func (s *Store) Receipts(ctx context.Context, doc documents.Document) ([]documents.Receipt, error) {
	if doc.Kind != documents.KindSalesInvoice {
		return nil, nil
	}
	rows, err := s.h.QueryRows(ctx, `
		SELECT id, number, COALESCE(payment_method, ''), COALESCE(customer_code, ''), amount, expiration, paid, paid_at, COALESCE(pay_url, '')
		FROM receipts
		WHERE document_id = ?
		ORDER BY number ASC`, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("store: receipts: %w", err)
	}
	defer rows.Close()

	var out []documents.Receipt
	for rows.Next() {
		var (
			r      documents.Receipt
			amount Lenient
			paid   int64
			paidAt sql.NullTime
		)
		if err := rows.Scan(&r.ID, &r.Number, &r.PaymentMethod, &r.CustomerCode, &amount, &r.Expiration, &paid, &paidAt, &r.PayURL); err != nil {
			return nil, fmt.Errorf("store: scan receipt: %w", err)
		}
		r.Amount = amount.Decimal
		r.Paid = paid != 0
		if paidAt.Valid {
			t := paidAt.Time
			r.PaidAt = &t
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: receipts: %w", err)
	}
	return out, nil
}

// Ping checks the connection with a trivial query.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	var one int64
	if err := s.h.QueryRow(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("store: ping: %w", err)
	}
	return nil
}
