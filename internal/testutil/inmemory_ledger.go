package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/responsiv/subscribe-plugin/internal/domain/ledger"
	ierr "github.com/responsiv/subscribe-plugin/internal/errors"
	"github.com/responsiv/subscribe-plugin/internal/types"
)

// InMemoryLedger implements ledger.Ledger. Payments settle synchronously and
// fire the registered paid handlers, which lets workflow tests drive the
// whole payment loop in process.
type InMemoryLedger struct {
	mu       sync.Mutex
	clock    types.Clock
	invoices map[string]*ledger.Invoice
	order    []string
	profiles map[string]bool
	handlers []ledger.PaidHandler
}

func NewInMemoryLedger(clock types.Clock) *InMemoryLedger {
	return &InMemoryLedger{
		clock:    clock,
		invoices: make(map[string]*ledger.Invoice),
		profiles: make(map[string]bool),
	}
}

// SetPaymentProfile registers or removes a stored payment method for a user.
func (l *InMemoryLedger) SetPaymentProfile(userID string, hasProfile bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.profiles[userID] = hasProfile
}

func (l *InMemoryLedger) FindOrCreateUnpaidInvoice(ctx context.Context, userID string, related types.RelatedRef, throwaway bool) (*ledger.Invoice, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, id := range l.order {
		invoice := l.invoices[id]
		if invoice.UserID == userID && invoice.Related.Equal(related) && invoice.IsUnpaid() {
			return invoice, nil
		}
	}

	now := l.clock.Now()
	invoice := &ledger.Invoice{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		UserID:      userID,
		Related:     related,
		Status:      types.InvoiceStatusApproved,
		Total:       decimal.Zero,
		IsThrowaway: throwaway,
		BaseModel:   types.NewBaseModel(now),
	}
	l.invoices[invoice.ID] = invoice
	l.order = append(l.order, invoice.ID)
	return invoice, nil
}

func (l *InMemoryLedger) AddItem(ctx context.Context, invoiceID string, price decimal.Decimal, description string, related types.RelatedRef) (*ledger.InvoiceItem, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	invoice, err := l.get(invoiceID)
	if err != nil {
		return nil, err
	}

	item := &ledger.InvoiceItem{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_LINE_ITEM),
		InvoiceID:   invoiceID,
		Related:     related,
		Quantity:    1,
		Price:       price,
		Description: description,
		BaseModel:   types.NewBaseModel(l.clock.Now()),
	}
	invoice.Items = append(invoice.Items, item)
	invoice.Total = sumItems(invoice)
	return item, nil
}

func (l *InMemoryLedger) FindItemByRelated(ctx context.Context, invoiceID string, related types.RelatedRef) (*ledger.InvoiceItem, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	invoice, err := l.get(invoiceID)
	if err != nil {
		return nil, err
	}

	for _, item := range invoice.Items {
		if item.Related.Equal(related) {
			return item, nil
		}
	}
	return nil, nil
}

func (l *InMemoryLedger) ClearItems(ctx context.Context, invoiceID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	invoice, err := l.get(invoiceID)
	if err != nil {
		return err
	}
	invoice.Items = nil
	invoice.Total = decimal.Zero
	return nil
}

func (l *InMemoryLedger) Get(ctx context.Context, invoiceID string) (*ledger.Invoice, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.get(invoiceID)
}

func (l *InMemoryLedger) ListUnpaidByRelated(ctx context.Context, related types.RelatedRef) ([]*ledger.Invoice, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var result []*ledger.Invoice
	for _, id := range l.order {
		invoice := l.invoices[id]
		if invoice.Related.Equal(related) && invoice.IsUnpaid() {
			result = append(result, invoice)
		}
	}
	return result, nil
}

func (l *InMemoryLedger) MarkApproved(ctx context.Context, invoiceID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	invoice, err := l.get(invoiceID)
	if err != nil {
		return err
	}
	if invoice.IsPaid() || invoice.IsVoid() {
		return ierr.NewErrorf("invoice %s is already settled", invoiceID).
			Mark(ierr.ErrInvalidOperation)
	}
	invoice.Status = types.InvoiceStatusApproved
	return nil
}

func (l *InMemoryLedger) Void(ctx context.Context, invoiceID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	invoice, err := l.get(invoiceID)
	if err != nil {
		return err
	}
	invoice.Status = types.InvoiceStatusVoid
	return nil
}

func (l *InMemoryLedger) TouchTotals(ctx context.Context, invoiceID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	invoice, err := l.get(invoiceID)
	if err != nil {
		return err
	}
	invoice.Total = sumItems(invoice)
	return nil
}

func (l *InMemoryLedger) SetThrowaway(ctx context.Context, invoiceID string, throwaway bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	invoice, err := l.get(invoiceID)
	if err != nil {
		return err
	}
	invoice.IsThrowaway = throwaway
	return nil
}

func (l *InMemoryLedger) SetDueDate(ctx context.Context, invoiceID string, dueAt *time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	invoice, err := l.get(invoiceID)
	if err != nil {
		return err
	}
	invoice.DueAt = dueAt
	return nil
}

func (l *InMemoryLedger) SubmitManualPayment(ctx context.Context, invoiceID string, reason string) error {
	invoice, err := l.settle(invoiceID)
	if err != nil {
		return err
	}
	return l.firePaid(ctx, invoice)
}

func (l *InMemoryLedger) AttemptProfilePayment(ctx context.Context, invoice *ledger.Invoice) (bool, error) {
	l.mu.Lock()
	hasProfile := l.profiles[invoice.UserID]
	l.mu.Unlock()

	if !hasProfile {
		return false, nil
	}

	settled, err := l.settle(invoice.ID)
	if err != nil {
		return false, err
	}
	if err := l.firePaid(ctx, settled); err != nil {
		return false, err
	}
	return true, nil
}

func (l *InMemoryLedger) HasPaymentProfile(ctx context.Context, userID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.profiles[userID], nil
}

func (l *InMemoryLedger) OnInvoicePaid(handler ledger.PaidHandler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers = append(l.handlers, handler)
}

// Invoices returns every invoice in creation order.
func (l *InMemoryLedger) Invoices() []*ledger.Invoice {
	l.mu.Lock()
	defer l.mu.Unlock()

	result := make([]*ledger.Invoice, 0, len(l.order))
	for _, id := range l.order {
		result = append(result, l.invoices[id])
	}
	return result
}

func (l *InMemoryLedger) get(invoiceID string) (*ledger.Invoice, error) {
	invoice, exists := l.invoices[invoiceID]
	if !exists {
		return nil, ierr.NewErrorf("invoice %s not found", invoiceID).
			Mark(ierr.ErrNotFound)
	}
	return invoice, nil
}

// settle marks the invoice paid. Handlers fire outside the lock so they can
// call back into the ledger.
func (l *InMemoryLedger) settle(invoiceID string) (*ledger.Invoice, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	invoice, err := l.get(invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.IsVoid() {
		return nil, ierr.NewErrorf("invoice %s is void", invoiceID).
			Mark(ierr.ErrInvalidOperation)
	}

	now := l.clock.Now()
	invoice.Status = types.InvoiceStatusPaid
	invoice.PaidAt = &now
	return invoice, nil
}

func (l *InMemoryLedger) firePaid(ctx context.Context, invoice *ledger.Invoice) error {
	l.mu.Lock()
	handlers := make([]ledger.PaidHandler, len(l.handlers))
	copy(handlers, l.handlers)
	l.mu.Unlock()

	for _, handler := range handlers {
		if err := handler(ctx, invoice); err != nil {
			return err
		}
	}
	return nil
}

func sumItems(invoice *ledger.Invoice) decimal.Decimal {
	total := decimal.Zero
	for _, item := range invoice.Items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}
