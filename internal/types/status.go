package types

// StatusCode is a lifecycle state code from the fixed status vocabulary.
type StatusCode string

const (
	StatusNew       StatusCode = "new"
	StatusTrial     StatusCode = "trial"
	StatusPending   StatusCode = "pending"
	StatusActive    StatusCode = "active"
	StatusGrace     StatusCode = "grace"
	StatusPastDue   StatusCode = "pastdue"
	StatusCancelled StatusCode = "cancelled"
	StatusComplete  StatusCode = "complete"
)

func (s StatusCode) String() string {
	return string(s)
}

// IsActiveFamily reports whether the status counts as an in-force
// subscription state when resolving a membership's active service.
func (s StatusCode) IsActiveFamily() bool {
	switch s {
	case StatusActive, StatusTrial, StatusGrace:
		return true
	}
	return false
}

// IsTerminal reports whether no further automatic processing applies.
func (s StatusCode) IsTerminal() bool {
	switch s {
	case StatusCancelled, StatusComplete:
		return true
	}
	return false
}
