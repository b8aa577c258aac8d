package contact

import (
	"time"

	"github.com/wolfman30/portfolio-contact/internal/notify"
)

// Status tracks where the site owner is with a submission.
type Status string

const (
	StatusNew        Status = "new"
	StatusRead       Status = "read"
	StatusResponded  Status = "responded"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusArchived   Status = "archived"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusNew, StatusRead, StatusResponded, StatusInProgress, StatusCompleted, StatusArchived}

func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Priority is the owner-assigned urgency of a submission.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// RequestMeta is what the transport layer knows about the caller.
type RequestMeta struct {
	ClientIP    string
	ClientAgent string
}

// SubmissionRequest is a validated, normalized contact form entry that has not
// been stored yet.
type SubmissionRequest struct {
	Name        string `field:"name" validate:"required,max=100"`
	Email       string `field:"email" validate:"required,email"`
	Phone       string `field:"phone" validate:"omitempty,max=20"`
	Subject     string `field:"subject" validate:"required,max=200"`
	Message     string `field:"message" validate:"required,max=2000"`
	ProjectType string
	Budget      string
	Timeline    string
	Source      string
	ClientIP    string
	ClientAgent string
}

// Submission is the stored form of a contact form entry.
type Submission struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone,omitempty"`
	Subject      string     `json:"subject"`
	Message      string     `json:"message"`
	ProjectType  string     `json:"projectType"`
	Budget       string     `json:"budget,omitempty"`
	Timeline     string     `json:"timeline,omitempty"`
	Source       string     `json:"source"`
	Status       Status     `json:"status"`
	Priority     Priority   `json:"priority"`
	EmailSent    bool       `json:"emailSent"`
	ChatSent     bool       `json:"whatsappSent"`
	Notes        string     `json:"notes,omitempty"`
	IPAddress    string     `json:"ipAddress,omitempty"`
	UserAgent    string     `json:"userAgent,omitempty"`
	ResponseDate *time.Time `json:"responseDate,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Redacted returns a copy without the caller's network metadata.
func (s Submission) Redacted() Submission {
	s.IPAddress = ""
	s.UserAgent = ""
	return s
}

// Payload projects the fields notification channels render.
func (s *Submission) Payload() notify.Payload {
	return notify.Payload{
		ContactID:   s.ID,
		Name:        s.Name,
		Email:       s.Email,
		Phone:       s.Phone,
		Subject:     s.Subject,
		Message:     s.Message,
		ProjectType: s.ProjectType,
		Budget:      s.Budget,
		Timeline:    s.Timeline,
		Source:      s.Source,
	}
}

// DeliveryFlags records which notification channels delivered.
type DeliveryFlags struct {
	EmailSent bool
	ChatSent  bool
}

// ListFilter narrows and pages the admin listing.
type ListFilter struct {
	Status   Status
	Priority Priority
	Limit    int
	Offset   int
}

// AdminPatch is a partial update made by the site owner. Nil fields are left
// unchanged.
type AdminPatch struct {
	Status       *Status
	Priority     *Priority
	Notes        *string
	ResponseDate *time.Time
}

// Result is what Submit hands back to the transport layer.
type Result struct {
	ID            string
	Notifications []notify.Outcome
}
