package types

import "time"

// BaseModel holds the timestamp fields shared by every domain model.
type BaseModel struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewBaseModel initializes the timestamps from the given instant.
func NewBaseModel(now time.Time) BaseModel {
	return BaseModel{CreatedAt: now, UpdatedAt: now}
}
