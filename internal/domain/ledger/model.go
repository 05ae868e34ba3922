package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/responsiv/subscribe-plugin/internal/types"
)

// Invoice is the billing ledger's view of an invoice. This core consumes
// invoices, it does not own their lifecycle.
type Invoice struct {
	ID          string              `json:"id"`
	UserID      string              `json:"user_id"`
	Related     types.RelatedRef    `json:"related"`
	Status      types.InvoiceStatus `json:"status"`
	Total       decimal.Decimal     `json:"total"`
	IsThrowaway bool                `json:"is_throwaway"`
	DueAt       *time.Time          `json:"due_at,omitempty"`
	PaidAt      *time.Time          `json:"paid_at,omitempty"`
	Items       []*InvoiceItem      `json:"items,omitempty"`

	types.BaseModel
}

// InvoiceItem is a single line on an invoice, optionally linked to the
// entity it bills for.
type InvoiceItem struct {
	ID          string           `json:"id"`
	InvoiceID   string           `json:"invoice_id"`
	Related     types.RelatedRef `json:"related,omitempty"`
	Quantity    int              `json:"quantity"`
	Price       decimal.Decimal  `json:"price"`
	Description string           `json:"description"`

	types.BaseModel
}

// IsPaid reports whether the invoice has been settled.
func (i *Invoice) IsPaid() bool {
	return i.Status == types.InvoiceStatusPaid
}

// IsVoid reports whether the invoice has been voided.
func (i *Invoice) IsVoid() bool {
	return i.Status == types.InvoiceStatusVoid
}

// IsUnpaid reports whether the invoice still awaits payment.
func (i *Invoice) IsUnpaid() bool {
	return !i.IsPaid() && !i.IsVoid()
}
