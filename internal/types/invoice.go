package types

// InvoiceStatus is the ledger-side lifecycle of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusApproved InvoiceStatus = "approved"
	InvoiceStatusPaid     InvoiceStatus = "paid"
	InvoiceStatusVoid     InvoiceStatus = "void"
)

func (s InvoiceStatus) String() string {
	return string(s)
}

// RelatedKind discriminates the entity an invoice or line item is linked to.
type RelatedKind string

const (
	RelatedKindMembership RelatedKind = "membership"
	RelatedKindService    RelatedKind = "service"
)

// RelatedRef is a tagged reference to the entity an invoice or invoice item
// belongs to. The ledger stores it opaquely; this core resolves it by kind.
type RelatedRef struct {
	Kind RelatedKind `json:"kind"`
	ID   string      `json:"id"`
}

func MembershipRef(id string) RelatedRef {
	return RelatedRef{Kind: RelatedKindMembership, ID: id}
}

func ServiceRef(id string) RelatedRef {
	return RelatedRef{Kind: RelatedKindService, ID: id}
}

func (r RelatedRef) IsZero() bool {
	return r.Kind == "" && r.ID == ""
}

func (r RelatedRef) Equal(other RelatedRef) bool {
	return r.Kind == other.Kind && r.ID == other.ID
}
