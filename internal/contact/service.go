package contact

import (
	"context"
	"errors"
	"time"

	"github.com/wolfman30/portfolio-contact/internal/notify"
	"github.com/wolfman30/portfolio-contact/internal/observability/metrics"
	"github.com/wolfman30/portfolio-contact/pkg/logging"
)

// Notifier fans a stored submission out to the notification channels.
type Notifier interface {
	Dispatch(ctx context.Context, p notify.Payload) []notify.Outcome
}

// Service runs the contact submission pipeline: validate, store, notify,
// record delivery flags.
type Service struct {
	repo     Repository
	notifier Notifier
	metrics  *metrics.ContactMetrics
	logger   *logging.Logger
	now      func() time.Time
}

// NewService creates a contact service.
func NewService(repo Repository, notifier Notifier, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) WithMetrics(m *metrics.ContactMetrics) *Service {
	s.metrics = m
	return s
}

// Submit validates and stores one contact form entry, then notifies the site
// owner. Only validation and the initial write can fail the call; channel and
// flag-update failures are reported in the result or logged.
func (s *Service) Submit(ctx context.Context, fields map[string]any, meta RequestMeta) (*Result, error) {
	req, err := ParseSubmission(fields, meta)
	if err != nil {
		s.metrics.ObserveSubmission("invalid")
		return nil, err
	}

	sub, err := s.repo.Create(ctx, req)
	if err != nil {
		var verr *ValidationError
		perr := &PersistenceError{Op: "create", Schema: errors.As(err, &verr), Err: err}
		if perr.Schema {
			s.metrics.ObserveSubmission("invalid")
			s.logger.Warn("contact submission rejected by store", "error", err)
		} else {
			s.metrics.ObserveSubmission("error")
			s.logger.Error("failed to store contact submission", "error", err)
		}
		return nil, perr
	}
	s.metrics.ObserveSubmission("created")
	s.logger.Info("contact submission stored", "contact_id", sub.ID, "source", sub.Source)

	// The record exists now; the rest runs to completion even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	var outcomes []notify.Outcome
	if s.notifier != nil {
		outcomes = s.notifier.Dispatch(ctx, sub.Payload())
	}

	flags := DeliveryFlags{
		EmailSent: notify.EmailSent(outcomes),
		ChatSent:  notify.ChatSent(outcomes),
	}
	if err := s.repo.UpdateFlags(ctx, sub.ID, flags); err != nil {
		s.metrics.ObserveFlagUpdateError()
		s.logger.Error("failed to record notification flags", "error", &FlagUpdateError{ID: sub.ID, Err: err}, "contact_id", sub.ID)
	}

	return &Result{ID: sub.ID, Notifications: outcomes}, nil
}

// ListResult is one page of submissions for the admin view.
type ListResult struct {
	Submissions []Submission
	Total       int
	Stats       map[Status]int
}

// List returns a redacted page of submissions and per-status counts.
func (s *Service) List(ctx context.Context, filter ListFilter) (*ListResult, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, &ValidationError{Kind: KindInvalidField, Fields: []string{"status"}, Messages: []string{"invalid status filter"}}
	}
	if filter.Priority != "" && !filter.Priority.Valid() {
		return nil, &ValidationError{Kind: KindInvalidField, Fields: []string{"priority"}, Messages: []string{"invalid priority filter"}}
	}

	subs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	stats, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Submission, len(subs))
	for i, sub := range subs {
		out[i] = sub.Redacted()
	}
	return &ListResult{Submissions: out, Total: total, Stats: stats}, nil
}

// Update applies an owner edit. Moving to "responded" stamps the response date.
func (s *Service) Update(ctx context.Context, id string, patch AdminPatch) (*Submission, error) {
	var fields, msgs []string
	if patch.Status != nil && !patch.Status.Valid() {
		fields = append(fields, "status")
		msgs = append(msgs, "invalid status: "+string(*patch.Status))
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		fields = append(fields, "priority")
		msgs = append(msgs, "invalid priority: "+string(*patch.Priority))
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Kind: KindInvalidField, Fields: fields, Messages: msgs}
	}

	if patch.Status != nil && *patch.Status == StatusResponded {
		now := s.now()
		patch.ResponseDate = &now
	}

	sub, err := s.repo.UpdateAdmin(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.logger.Info("contact submission updated", "contact_id", id, "status", sub.Status, "priority", sub.Priority)
	redacted := sub.Redacted()
	return &redacted, nil
}
