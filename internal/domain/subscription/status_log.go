package subscription

import (
	"time"
)

// StatusLog is one append-only audit record of a status transition.
type StatusLog struct {
	ID           string    `json:"id"`
	StatusID     string    `json:"status_id"`
	ServiceID    string    `json:"service_id"`
	MembershipID string    `json:"membership_id"`
	Comment      string    `json:"comment,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
