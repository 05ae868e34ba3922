package dunning

import (
	"fmt"
	"sort"
	"strings"

	ierr "github.com/responsiv/subscribe-plugin/internal/errors"
	"github.com/responsiv/subscribe-plugin/internal/types"
)

// DunningPlan describes how failed renewals escalate: an ordered set of
// paths, each triggered after a number of failed attempts. Execution of the
// escalation is handled elsewhere; these are pure descriptors.
type DunningPlan struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Paths []*DunningPath `json:"paths,omitempty"`

	types.BaseModel
}

// DunningPath is one escalation step of a dunning plan.
type DunningPath struct {
	ID            string `json:"id"`
	DunningPlanID string `json:"dunning_plan_id"`

	FailedAttempts int `json:"failed_attempts"`

	// TargetStatus must be cancelled or pastdue when set.
	TargetStatus     types.StatusCode `json:"target_status,omitempty"`
	TargetStatusName string           `json:"target_status_name,omitempty"`

	UserTemplate   string `json:"user_template,omitempty"`
	AdminTemplate  string `json:"admin_template,omitempty"`
	AdminGroupName string `json:"admin_group_name,omitempty"`

	types.BaseModel
}

func (p *DunningPlan) Validate() error {
	if p.Name == "" {
		return ierr.NewError("dunning plan name is required").Mark(ierr.ErrValidation)
	}
	for _, path := range p.Paths {
		if err := path.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (p *DunningPath) Validate() error {
	if p.FailedAttempts < 1 {
		return ierr.NewError("dunning path failed_attempts must be at least 1").
			Mark(ierr.ErrValidation)
	}
	switch p.TargetStatus {
	case "", types.StatusCancelled, types.StatusPastDue:
	default:
		return ierr.NewErrorf("invalid dunning target status: %s", p.TargetStatus).
			WithHint("Target status must be cancelled or pastdue").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// SortedPaths returns the paths ordered by their failed-attempt threshold.
func (p *DunningPlan) SortedPaths() []*DunningPath {
	paths := make([]*DunningPath, len(p.Paths))
	copy(paths, p.Paths)
	sort.SliceStable(paths, func(i, j int) bool {
		return paths[i].FailedAttempts < paths[j].FailedAttempts
	})
	return paths
}

// PathForAttempt returns the escalation step matching the given failure
// count, or nil when none applies.
func (p *DunningPlan) PathForAttempt(failedAttempts int) *DunningPath {
	for _, path := range p.Paths {
		if path.FailedAttempts == failedAttempts {
			return path
		}
	}
	return nil
}

// Description renders the path as a human readable sentence for admin
// screens and logs.
func (p *DunningPath) Description() string {
	noun := "attempts"
	if p.FailedAttempts == 1 {
		noun = "attempt"
	}
	message := fmt.Sprintf("After %d failed renewal %s, ", p.FailedAttempts, noun)

	var actions []string

	if p.TargetStatus != "" {
		name := p.TargetStatusName
		if name == "" {
			name = string(p.TargetStatus)
		}
		actions = append(actions, fmt.Sprintf("change the subscription status to %q", name))
	}

	if p.UserTemplate != "" {
		actions = append(actions, fmt.Sprintf("send the %q notification to the user", p.UserTemplate))
	}

	if p.AdminTemplate != "" {
		adminMessage := fmt.Sprintf("send the %q notification to administrators", p.AdminTemplate)
		if p.AdminGroupName != "" {
			adminMessage += fmt.Sprintf(" in group %q", p.AdminGroupName)
		}
		actions = append(actions, adminMessage)
	}

	if len(actions) == 0 {
		actions = append(actions, "do nothing")
	}

	return message + strings.Join(actions, " and ") + "."
}
