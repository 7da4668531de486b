package models

import "time"

// Support worker states
const (
	WorkerStatusActive   = "active"
	WorkerStatusInactive = "inactive"
	WorkerStatusOnLeave  = "on_leave"
)

// SupportWorker is a personal support worker tracked by the CRM.
type SupportWorker struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Status    string    `json:"status"` // "active", "inactive", "on_leave"
	Region    string    `json:"region"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Visit is a single client visit performed by a support worker.
type Visit struct {
	ID           string     `json:"id"`
	WorkerID     string     `json:"worker_id"`
	ClientName   string     `json:"client_name"`
	Location     string     `json:"location"`
	ScheduledAt  time.Time  `json:"scheduled_at"`
	CheckedInAt  *time.Time `json:"checked_in_at,omitempty"`
	CheckedOutAt *time.Time `json:"checked_out_at,omitempty"`
	Notes        string     `json:"notes"`
	CreatedAt    time.Time  `json:"created_at"`
}

// WorkerFilter narrows roster listings.
type WorkerFilter struct {
	Query  string // matches name or email, case-insensitive
	Status string
	Region string
	Limit  int
	Offset int
}

// VisitFilter narrows visit listings for a worker.
type VisitFilter struct {
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}
