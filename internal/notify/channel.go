package notify

import (
	"context"
	"errors"
)

// Kind identifies a notification transport.
type Kind string

const (
	KindEmail    Kind = "email"
	KindWhatsApp Kind = "whatsapp"
)

var (
	// ErrNotConfigured is reported by a channel whose credentials or
	// destination were absent at construction time.
	ErrNotConfigured = errors.New("not configured")

	// ErrTransport is reported when the underlying provider call failed.
	ErrTransport = errors.New("transport failure")
)

// Payload carries the submission fields a channel needs to render its alert.
type Payload struct {
	ContactID   string
	Name        string
	Email       string
	Phone       string
	Subject     string
	Message     string
	ProjectType string
	Budget      string
	Timeline    string
	Source      string
}

// Outcome is the result of one channel attempt.
type Outcome struct {
	Channel     Kind   `json:"type"`
	Success     bool   `json:"success"`
	ReferenceID string `json:"id,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Channel delivers a formatted alert about a submission through one transport.
// Implementations resolve their configuration once at construction and must be
// safe for concurrent use.
type Channel interface {
	Kind() Kind
	Notify(ctx context.Context, p Payload) (Outcome, error)
}

// ChannelError is the error shape every channel returns. Reason is one of
// ErrNotConfigured or ErrTransport.
type ChannelError struct {
	Channel Kind
	Reason  error
	Err     error
}

func (e *ChannelError) Error() string {
	if e.Err == nil {
		return e.Reason.Error()
	}
	return e.Reason.Error() + ": " + e.Err.Error()
}

func (e *ChannelError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Reason}
	}
	return []error{e.Reason, e.Err}
}

func notConfigured(kind Kind) error {
	return &ChannelError{Channel: kind, Reason: ErrNotConfigured}
}

func transportError(kind Kind, err error) error {
	if errors.Is(err, ErrNotConfigured) {
		return notConfigured(kind)
	}
	return &ChannelError{Channel: kind, Reason: ErrTransport, Err: err}
}

func delivered(kind Kind, ref string) Outcome {
	return Outcome{Channel: kind, Success: true, ReferenceID: ref}
}

func failed(kind Kind, err error) Outcome {
	return Outcome{Channel: kind, Success: false, Error: err.Error()}
}

// EmailSent reports whether the email channel delivered.
func EmailSent(outcomes []Outcome) bool {
	return succeeded(outcomes, KindEmail)
}

// ChatSent reports whether the WhatsApp channel delivered.
func ChatSent(outcomes []Outcome) bool {
	return succeeded(outcomes, KindWhatsApp)
}

func succeeded(outcomes []Outcome, kind Kind) bool {
	for _, o := range outcomes {
		if o.Channel == kind && o.Success {
			return true
		}
	}
	return false
}
