package membership

import (
	"time"

	ierr "github.com/responsiv/subscribe-plugin/internal/errors"
	"github.com/responsiv/subscribe-plugin/internal/types"
)

// Membership ties a user to their subscription services. A user has at most
// one membership per throwaway flag; the throwaway one exists while the user
// is still comparing plans and has not paid.
type Membership struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	IsThrowaway bool   `json:"is_throwaway"`

	IsTrialUsed      bool       `json:"is_trial_used"`
	TrialPeriodStart *time.Time `json:"trial_period_start,omitempty"`
	TrialPeriodEnd   *time.Time `json:"trial_period_end,omitempty"`

	// ActiveServiceID caches the most recently activated service still in an
	// active-family status.
	ActiveServiceID string `json:"active_service_id,omitempty"`

	LastProcessAt *time.Time `json:"last_process_at,omitempty"`

	types.BaseModel
}

func (m *Membership) Validate() error {
	if m.UserID == "" {
		return ierr.NewError("membership user is required").Mark(ierr.ErrValidation)
	}
	return nil
}

// SetTrialPeriod computes the membership's trial window once. The window
// belongs to the membership, not the service, so switching plans during a
// trial does not restart it.
func (m *Membership) SetTrialPeriod(now time.Time, trialDays int) {
	end := now.AddDate(0, 0, trialDays)
	m.IsTrialUsed = true
	m.TrialPeriodStart = &now
	m.TrialPeriodEnd = &end
}

// IsTrialActive reports whether the trial window is in force at now.
func (m *Membership) IsTrialActive(now time.Time) bool {
	if !m.IsTrialUsed || m.TrialPeriodEnd == nil {
		return false
	}
	return m.TrialPeriodEnd.After(now)
}
