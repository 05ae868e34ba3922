package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/responsiv/subscribe-plugin/internal/types"
)

// PaidHandler is invoked by the ledger whenever an invoice is paid.
type PaidHandler func(ctx context.Context, invoice *Invoice) error

// Ledger is the external billing system this core drives. It creates and
// settles invoices; the subscription core reacts to its payment events.
type Ledger interface {
	// FindOrCreateUnpaidInvoice returns the single unpaid invoice for the
	// user and related entity, creating one if none exists.
	FindOrCreateUnpaidInvoice(ctx context.Context, userID string, related types.RelatedRef, throwaway bool) (*Invoice, error)

	// AddItem appends a line item to the invoice.
	AddItem(ctx context.Context, invoiceID string, price decimal.Decimal, description string, related types.RelatedRef) (*InvoiceItem, error)

	// FindItemByRelated returns the existing line item on the invoice for
	// the related entity, or nil when there is none.
	FindItemByRelated(ctx context.Context, invoiceID string, related types.RelatedRef) (*InvoiceItem, error)

	// ClearItems removes every line item from the invoice.
	ClearItems(ctx context.Context, invoiceID string) error

	Get(ctx context.Context, invoiceID string) (*Invoice, error)

	// ListUnpaidByRelated returns the unpaid invoices linked to the entity.
	ListUnpaidByRelated(ctx context.Context, related types.RelatedRef) ([]*Invoice, error)

	MarkApproved(ctx context.Context, invoiceID string) error
	Void(ctx context.Context, invoiceID string) error

	// TouchTotals recomputes the invoice total from its line items.
	TouchTotals(ctx context.Context, invoiceID string) error

	SetThrowaway(ctx context.Context, invoiceID string, throwaway bool) error
	SetDueDate(ctx context.Context, invoiceID string, dueAt *time.Time) error

	// SubmitManualPayment settles the invoice out of band and fires the
	// paid notification.
	SubmitManualPayment(ctx context.Context, invoiceID string, reason string) error

	// AttemptProfilePayment charges the user's stored payment method. A
	// false return is a definite decline, never an error.
	AttemptProfilePayment(ctx context.Context, invoice *Invoice) (bool, error)

	// HasPaymentProfile reports whether the user has a stored payment method.
	HasPaymentProfile(ctx context.Context, userID string) (bool, error)

	// OnInvoicePaid registers a handler for payment notifications.
	OnInvoicePaid(handler PaidHandler)
}
