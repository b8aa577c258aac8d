package contact

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository owns the submission lifecycle. Create applies the store's schema
// rules and reports a *ValidationError when they reject the record.
type Repository interface {
	Create(ctx context.Context, req SubmissionRequest) (*Submission, error)
	UpdateFlags(ctx context.Context, id string, flags DeliveryFlags) error
	GetByID(ctx context.Context, id string) (*Submission, error)
	List(ctx context.Context, filter ListFilter) ([]*Submission, int, error)
	CountByStatus(ctx context.Context) (map[Status]int, error)
	UpdateAdmin(ctx context.Context, id string, patch AdminPatch) (*Submission, error)
}

// InMemoryRepository keeps submissions in a map. Used in development and tests.
type InMemoryRepository struct {
	mu          sync.RWMutex
	submissions map[string]*Submission
	now         func() time.Time
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		submissions: make(map[string]*Submission),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (r *InMemoryRepository) Create(ctx context.Context, req SubmissionRequest) (*Submission, error) {
	if err := checkSchema(req); err != nil {
		return nil, err
	}

	now := r.now()
	sub := &Submission{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Subject:     req.Subject,
		Message:     req.Message,
		ProjectType: req.ProjectType,
		Budget:      req.Budget,
		Timeline:    req.Timeline,
		Source:      req.Source,
		Status:      StatusNew,
		Priority:    PriorityMedium,
		IPAddress:   req.ClientIP,
		UserAgent:   req.ClientAgent,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	r.mu.Lock()
	r.submissions[sub.ID] = sub
	r.mu.Unlock()

	out := *sub
	return &out, nil
}

func (r *InMemoryRepository) UpdateFlags(ctx context.Context, id string, flags DeliveryFlags) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.submissions[id]
	if !ok {
		return ErrSubmissionNotFound
	}
	sub.EmailSent = flags.EmailSent
	sub.ChatSent = flags.ChatSent
	sub.UpdatedAt = r.now()
	return nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sub, ok := r.submissions[id]
	if !ok {
		return nil, ErrSubmissionNotFound
	}
	out := *sub
	return &out, nil
}

// List returns one page, newest first, plus the total matching count.
func (r *InMemoryRepository) List(ctx context.Context, filter ListFilter) ([]*Submission, int, error) {
	r.mu.RLock()
	var matched []*Submission
	for _, sub := range r.submissions {
		if filter.Status != "" && sub.Status != filter.Status {
			continue
		}
		if filter.Priority != "" && sub.Priority != filter.Priority {
			continue
		}
		out := *sub
		matched = append(matched, &out)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	offset := max(filter.Offset, 0)
	if offset >= total {
		return []*Submission{}, total, nil
	}
	end := total
	if filter.Limit > 0 && filter.Limit < total-offset {
		end = offset + filter.Limit
	}
	return matched[offset:end], total, nil
}

func (r *InMemoryRepository) CountByStatus(ctx context.Context) (map[Status]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[Status]int)
	for _, sub := range r.submissions {
		counts[sub.Status]++
	}
	return counts, nil
}

func (r *InMemoryRepository) UpdateAdmin(ctx context.Context, id string, patch AdminPatch) (*Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.submissions[id]
	if !ok {
		return nil, ErrSubmissionNotFound
	}
	if patch.Status != nil {
		sub.Status = *patch.Status
	}
	if patch.Priority != nil {
		sub.Priority = *patch.Priority
	}
	if patch.Notes != nil {
		sub.Notes = *patch.Notes
	}
	if patch.ResponseDate != nil {
		t := *patch.ResponseDate
		sub.ResponseDate = &t
	}
	sub.UpdatedAt = r.now()

	out := *sub
	return &out, nil
}

var _ Repository = (*InMemoryRepository)(nil)
