package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/odyssey-erp/docrender/internal/masterdata"
)

// one scans a single row; a missing row is not an error.
func (s *Store) one(ctx context.Context, what, query string, args []any, dest ...any) error {
	err := s.h.QueryRow(ctx, query, args...).Scan(dest...)
	if err == nil || errors.Is(err, errNoRows) {
		return err
	}
	return fmt.Errorf("store: %s: %w", what, err)
}

func found(err error) error {
	if errors.Is(err, errNoRows) {
		return nil
	}
	return err
}

// TaxByCode implements masterdata.Finder.
func (s *Store) TaxByCode(ctx context.Context, code string) (masterdata.Tax, error) {
	var (
		t    masterdata.Tax
		rate Lenient
	)
	err := s.one(ctx, "tax", `SELECT code, COALESCE(description, ''), rate FROM taxes WHERE code = ?`, []any{code}, &t.Code, &t.Description, &rate)
	if err != nil {
		return masterdata.Tax{}, found(err)
	}
	t.Rate = rate.Decimal
	return t, nil
}

// PaymentMethodByCode implements masterdata.Finder.
func (s *Store) PaymentMethodByCode(ctx context.Context, code string) (masterdata.PaymentMethod, error) {
	var (
		p     masterdata.PaymentMethod
		debit int64
	)
	err := s.one(ctx, "payment method",
		`SELECT code, COALESCE(description, ''), direct_debit, COALESCE(bank_code, '') FROM payment_methods WHERE code = ?`,
		[]any{code}, &p.Code, &p.Description, &debit, &p.BankCode)
	if err != nil {
		return masterdata.PaymentMethod{}, found(err)
	}
	p.DirectDebit = debit != 0
	return p, nil
}

// BankAccountByCode implements masterdata.Finder.
func (s *Store) BankAccountByCode(ctx context.Context, code string) (masterdata.BankAccount, error) {
	var b masterdata.BankAccount
	err := s.one(ctx, "bank account",
		`SELECT code, COALESCE(iban, ''), COALESCE(swift, '') FROM bank_accounts WHERE code = ?`,
		[]any{code}, &b.Code, &b.IBAN, &b.Swift)
	return b, found(err)
}

// CustomerBankAccount implements masterdata.Finder. The main account wins,
// then the oldest.
func (s *Store) CustomerBankAccount(ctx context.Context, customerCode string) (masterdata.CustomerBankAccount, error) {
	var (
		b    masterdata.CustomerBankAccount
		main int64
	)
	err := s.one(ctx, "customer bank account",
		`SELECT customer_code, COALESCE(iban, ''), COALESCE(swift, ''), main FROM customer_bank_accounts
		 WHERE customer_code = ? ORDER BY main DESC, id ASC LIMIT 1`,
		[]any{customerCode}, &b.CustomerCode, &b.IBAN, &b.Swift, &main)
	if err != nil {
		return masterdata.CustomerBankAccount{}, found(err)
	}
	b.Main = main != 0
	return b, nil
}

// CarrierByCode implements masterdata.Finder.
func (s *Store) CarrierByCode(ctx context.Context, code string) (masterdata.Carrier, error) {
	var c masterdata.Carrier
	err := s.one(ctx, "carrier", `SELECT code, COALESCE(name, '') FROM carriers WHERE code = ?`, []any{code}, &c.Code, &c.Name)
	return c, found(err)
}

// AgentByCode implements masterdata.Finder.
func (s *Store) AgentByCode(ctx context.Context, code string) (masterdata.Agent, error) {
	var a masterdata.Agent
	err := s.one(ctx, "agent", `SELECT code, COALESCE(name, '') FROM agents WHERE code = ?`, []any{code}, &a.Code, &a.Name)
	return a, found(err)
}

// ContactByID implements masterdata.Finder.
func (s *Store) ContactByID(ctx context.Context, id int64) (masterdata.Contact, error) {
	var c masterdata.Contact
	err := s.one(ctx, "contact",
		`SELECT id, COALESCE(first_name, ''), COALESCE(last_name, ''),
		        COALESCE(street, ''), COALESCE(box, ''), COALESCE(postal_code, ''), COALESCE(city, ''), COALESCE(province, ''), COALESCE(country_code, ''),
		        COALESCE(phone1, ''), COALESCE(phone2, '')
		 FROM contacts WHERE id = ?`,
		[]any{id}, &c.ID, &c.FirstName, &c.LastName,
		&c.Address.Street, &c.Address.Box, &c.Address.PostalCode, &c.Address.City, &c.Address.Province, &c.Address.CountryCode,
		&c.Phone1, &c.Phone2)
	if err != nil {
		return masterdata.Contact{}, found(err)
	}
	return c, nil
}

// CompanyByID implements masterdata.Finder.
func (s *Store) CompanyByID(ctx context.Context, id int64) (masterdata.Company, error) {
	var c masterdata.Company
	err := s.one(ctx, "company",
		`SELECT id, COALESCE(name, ''), COALESCE(tax_id, ''), COALESCE(tax_id_type, ''),
		        COALESCE(street, ''), COALESCE(box, ''), COALESCE(postal_code, ''), COALESCE(city, ''), COALESCE(province, ''), COALESCE(country_code, ''),
		        COALESCE(phone1, ''), COALESCE(phone2, ''), COALESCE(email, ''), COALESCE(web, ''), COALESCE(logo_url, '')
		 FROM companies WHERE id = ?`,
		[]any{id}, &c.ID, &c.Name, &c.TaxID, &c.TaxIDType,
		&c.Address.Street, &c.Address.Box, &c.Address.PostalCode, &c.Address.City, &c.Address.Province, &c.Address.CountryCode,
		&c.Phone1, &c.Phone2, &c.Email, &c.Web, &c.LogoURL)
	if err != nil {
		return masterdata.Company{}, found(err)
	}
	return c, nil
}

// CountryByCode implements masterdata.Finder.
func (s *Store) CountryByCode(ctx context.Context, code string) (masterdata.Country, error) {
	var c masterdata.Country
	err := s.one(ctx, "country", `SELECT code, COALESCE(name, '') FROM countries WHERE code = ?`, []any{code}, &c.Code, &c.Name)
	return c, found(err)
}

// LotMovements implements masterdata.Finder.
func (s *Store) LotMovements(ctx context.Context, docKind string, docID, lineID int64, reference string) ([]masterdata.LotMovement, error) {
	rows, err := s.h.QueryRows(ctx,
		`SELECT COALESCE(serial_number, ''), quantity, moved_at FROM lot_movements
		 WHERE doc_kind = ? AND document_id = ? AND line_id = ? AND reference = ?
		 ORDER BY moved_at ASC, id ASC`,
		docKind, docID, lineID, reference)
	if err != nil {
		return nil, fmt.Errorf("store: lot movements: %w", err)
	}
	defer rows.Close()

	var out []masterdata.LotMovement
	for rows.Next() {
		var (
			m   masterdata.LotMovement
			qty Lenient
		)
		if err := rows.Scan(&m.SerialNumber, &qty, &m.Date); err != nil {
			return nil, fmt.Errorf("store: scan lot movement: %w", err)
		}
		m.Quantity = qty.Decimal
		out = append(out, m)
	}
	return out, rows.Err()
}
