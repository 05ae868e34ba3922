package subscription

import (
	ierr "github.com/responsiv/subscribe-plugin/internal/errors"
	"github.com/responsiv/subscribe-plugin/internal/types"
)

// Status is one entry of the fixed lifecycle vocabulary. The set is seeded
// once and read-only afterwards, so lookups never hit storage.
type Status struct {
	ID   string           `json:"id"`
	Code types.StatusCode `json:"code"`
	Name string           `json:"name"`
}

// StatusSet is the seeded, process-wide status registry.
type StatusSet struct {
	byID   map[string]*Status
	byCode map[types.StatusCode]*Status
}

// SeedStatuses builds the full status vocabulary.
func SeedStatuses() *StatusSet {
	seed := []struct {
		code types.StatusCode
		name string
	}{
		{types.StatusNew, "New"},
		{types.StatusTrial, "Trial"},
		{types.StatusPending, "Pending"},
		{types.StatusActive, "Active"},
		{types.StatusGrace, "Grace"},
		{types.StatusPastDue, "Past Due"},
		{types.StatusCancelled, "Cancelled"},
		{types.StatusComplete, "Complete"},
	}

	set := &StatusSet{
		byID:   make(map[string]*Status, len(seed)),
		byCode: make(map[types.StatusCode]*Status, len(seed)),
	}
	for _, s := range seed {
		status := &Status{
			ID:   "status_" + string(s.code),
			Code: s.code,
			Name: s.name,
		}
		set.byID[status.ID] = status
		set.byCode[status.Code] = status
	}
	return set
}

// GetByCode looks up a status by its code.
func (s *StatusSet) GetByCode(code types.StatusCode) (*Status, error) {
	status, ok := s.byCode[code]
	if !ok {
		return nil, ierr.NewErrorf("unknown status code: %s", code).
			Mark(ierr.ErrNotFound)
	}
	return status, nil
}

// GetByID looks up a status by its identifier.
func (s *StatusSet) GetByID(id string) (*Status, error) {
	status, ok := s.byID[id]
	if !ok {
		return nil, ierr.NewErrorf("unknown status id: %s", id).
			Mark(ierr.ErrNotFound)
	}
	return status, nil
}

// CodeOf resolves a service's status id to its code. Unknown ids resolve to
// the empty code.
func (s *StatusSet) CodeOf(service *Service) types.StatusCode {
	if status, ok := s.byID[service.StatusID]; ok {
		return status.Code
	}
	return ""
}
