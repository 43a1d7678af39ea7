package masterdata

import (
	"context"
	"log/slog"
	"sync"
)

// Finder is implemented by persistence backends. A missing record is reported
// as a zero value with a nil error.
type Finder interface {
	TaxByCode(ctx context.Context, code string) (Tax, error)
	PaymentMethodByCode(ctx context.Context, code string) (PaymentMethod, error)
	BankAccountByCode(ctx context.Context, code string) (BankAccount, error)
	CustomerBankAccount(ctx context.Context, customerCode string) (CustomerBankAccount, error)
	CarrierByCode(ctx context.Context, code string) (Carrier, error)
	AgentByCode(ctx context.Context, code string) (Agent, error)
	ContactByID(ctx context.Context, id int64) (Contact, error)
	CompanyByID(ctx context.Context, id int64) (Company, error)
	CountryByCode(ctx context.Context, code string) (Country, error)
	LotMovements(ctx context.Context, docKind string, docID, lineID int64, reference string) ([]LotMovement, error)
}

// Lookups resolves master data for one render. Every method returns the
// record or its zero value; failures are logged and never surface.
type Lookups struct {
	finder Finder
	logger *slog.Logger

	mu        sync.Mutex
	taxes     map[string]Tax
	methods   map[string]PaymentMethod
	banks     map[string]BankAccount
	customers map[string]CustomerBankAccount
	carriers  map[string]Carrier
	agents    map[string]Agent
	contacts  map[int64]Contact
	companies map[int64]Company
	countries map[string]Country
}

// NewLookups scopes a Finder to a single render. A nil finder yields empty records.
func NewLookups(finder Finder, logger *slog.Logger) *Lookups {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lookups{
		finder:    finder,
		logger:    logger,
		taxes:     map[string]Tax{},
		methods:   map[string]PaymentMethod{},
		banks:     map[string]BankAccount{},
		customers: map[string]CustomerBankAccount{},
		carriers:  map[string]Carrier{},
		agents:    map[string]Agent{},
		contacts:  map[int64]Contact{},
		companies: map[int64]Company{},
		countries: map[string]Country{},
	}
}

func memo[K comparable, V any](l *Lookups, cache map[K]V, key K, what string, load func() (V, error)) V {
	var zero V
	if l.finder == nil {
		return zero
	}
	l.mu.Lock()
	v, ok := cache[key]
	l.mu.Unlock()
	if ok {
		return v
	}
	v, err := load()
	if err != nil {
		l.logger.Warn("masterdata lookup failed", slog.String("record", what), slog.Any("key", key), slog.Any("error", err))
		v = zero
	}
	l.mu.Lock()
	cache[key] = v
	l.mu.Unlock()
	return v
}

// Tax resolves a tax code.
func (l *Lookups) Tax(ctx context.Context, code string) Tax {
	if code == "" {
		return Tax{}
	}
	return memo(l, l.taxes, code, "tax", func() (Tax, error) { return l.finder.TaxByCode(ctx, code) })
}

// PaymentMethod resolves a payment method code.
func (l *Lookups) PaymentMethod(ctx context.Context, code string) PaymentMethod {
	if code == "" {
		return PaymentMethod{}
	}
	return memo(l, l.methods, code, "payment_method", func() (PaymentMethod, error) {
		return l.finder.PaymentMethodByCode(ctx, code)
	})
}

// BankAccount resolves a company bank account.
func (l *Lookups) BankAccount(ctx context.Context, code string) BankAccount {
	if code == "" {
		return BankAccount{}
	}
	return memo(l, l.banks, code, "bank_account", func() (BankAccount, error) {
		return l.finder.BankAccountByCode(ctx, code)
	})
}

// CustomerBankAccount resolves the main bank account of a customer.
func (l *Lookups) CustomerBankAccount(ctx context.Context, customerCode string) CustomerBankAccount {
	if customerCode == "" {
		return CustomerBankAccount{}
	}
	return memo(l, l.customers, customerCode, "customer_bank_account", func() (CustomerBankAccount, error) {
		return l.finder.CustomerBankAccount(ctx, customerCode)
	})
}

// Carrier resolves a carrier code.
func (l *Lookups) Carrier(ctx context.Context, code string) Carrier {
	if code == "" {
		return Carrier{}
	}
	return memo(l, l.carriers, code, "carrier", func() (Carrier, error) { return l.finder.CarrierByCode(ctx, code) })
}

// Agent resolves an agent code.
func (l *Lookups) Agent(ctx context.Context, code string) Agent {
	if code == "" {
		return Agent{}
	}
	return memo(l, l.agents, code, "agent", func() (Agent, error) { return l.finder.AgentByCode(ctx, code) })
}

// Contact resolves a contact by id.
func (l *Lookups) Contact(ctx context.Context, id int64) Contact {
	if id == 0 {
		return Contact{}
	}
	return memo(l, l.contacts, id, "contact", func() (Contact, error) { return l.finder.ContactByID(ctx, id) })
}

// Company resolves the issuing company.
func (l *Lookups) Company(ctx context.Context, id int64) Company {
	if id == 0 {
		return Company{}
	}
	return memo(l, l.companies, id, "company", func() (Company, error) { return l.finder.CompanyByID(ctx, id) })
}

// CountryName resolves an ISO code to its name, or "" when unknown.
func (l *Lookups) CountryName(ctx context.Context, code string) string {
	if code == "" {
		return ""
	}
	return memo(l, l.countries, code, "country", func() (Country, error) {
		return l.finder.CountryByCode(ctx, code)
	}).Name
}

// LotMovements lists the batch/serial movements of a line. Not memoised: each
// line is asked once per render.
func (l *Lookups) LotMovements(ctx context.Context, docKind string, docID, lineID int64, reference string) []LotMovement {
	if l.finder == nil {
		return nil
	}
	moves, err := l.finder.LotMovements(ctx, docKind, docID, lineID, reference)
	if err != nil {
		l.logger.Warn("masterdata lookup failed", slog.String("record", "lot_movements"), slog.Int64("line_id", lineID), slog.Any("error", err))
		return nil
	}
	return moves
}
