package contact

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/portfolio-contact/internal/notify"
	"github.com/wolfman30/portfolio-contact/pkg/logging"
)

// recordingRepo wraps the in-memory store and counts calls.
type recordingRepo struct {
	*InMemoryRepository
	creates     int
	flagUpdates int
	createErr   error
	flagErr     error
}

func newRecordingRepo() *recordingRepo {
	return &recordingRepo{InMemoryRepository: NewInMemoryRepository()}
}

func (r *recordingRepo) Create(ctx context.Context, req SubmissionRequest) (*Submission, error) {
	r.creates++
	if r.createErr != nil {
		return nil, r.createErr
	}
	return r.InMemoryRepository.Create(ctx, req)
}

func (r *recordingRepo) UpdateFlags(ctx context.Context, id string, flags DeliveryFlags) error {
	r.flagUpdates++
	if r.flagErr != nil {
		return r.flagErr
	}
	return r.InMemoryRepository.UpdateFlags(ctx, id, flags)
}

type recordingNotifier struct {
	calls    int
	payload  notify.Payload
	outcomes []notify.Outcome
	ctxErr   error
}

func (n *recordingNotifier) Dispatch(ctx context.Context, p notify.Payload) []notify.Outcome {
	n.calls++
	n.payload = p
	n.ctxErr = ctx.Err()
	return n.outcomes
}

func bothSent() []notify.Outcome {
	return []notify.Outcome{
		{Channel: notify.KindEmail, Success: true, ReferenceID: "msg-1"},
		{Channel: notify.KindWhatsApp, Success: true, ReferenceID: "SM1"},
	}
}

func bothFailed() []notify.Outcome {
	return []notify.Outcome{
		{Channel: notify.KindEmail, Success: false, Error: "transport failure: smtp down"},
		{Channel: notify.KindWhatsApp, Success: false, Error: "not configured"},
	}
}

func TestSubmit_ValidationGate(t *testing.T) {
	for _, missing := range []string{"name", "email", "subject", "message"} {
		t.Run(missing, func(t *testing.T) {
			repo := newRecordingRepo()
			notifier := &recordingNotifier{outcomes: bothSent()}
			svc := NewService(repo, notifier, logging.Discard())

			fields := validFields()
			fields[missing] = "  "
			_, err := svc.Submit(context.Background(), fields, RequestMeta{})

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, []string{missing}, verr.Fields)
			assert.Zero(t, repo.creates)
			assert.Zero(t, repo.flagUpdates)
			assert.Zero(t, notifier.calls)
		})
	}
}

func TestSubmit_StoresNotifiesAndRecordsFlags(t *testing.T) {
	repo := newRecordingRepo()
	notifier := &recordingNotifier{outcomes: bothSent()}
	svc := NewService(repo, notifier, logging.Discard())

	res, err := svc.Submit(context.Background(), validFields(), RequestMeta{ClientIP: "198.51.100.7"})
	require.NoError(t, err)
	require.NotEmpty(t, res.ID)
	assert.Len(t, res.Notifications, 2)

	assert.Equal(t, 1, notifier.calls)
	assert.Equal(t, res.ID, notifier.payload.ContactID)
	assert.Equal(t, "alice@example.com", notifier.payload.Email)

	stored, err := repo.GetByID(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", stored.Email)
	assert.Equal(t, StatusNew, stored.Status)
	assert.Equal(t, PriorityMedium, stored.Priority)
	assert.True(t, stored.EmailSent)
	assert.True(t, stored.ChatSent)
	assert.Equal(t, "198.51.100.7", stored.IPAddress)
}

func TestSubmit_PersistsEvenWhenAllChannelsFail(t *testing.T) {
	repo := newRecordingRepo()
	svc := NewService(repo, &recordingNotifier{outcomes: bothFailed()}, logging.Discard())

	res, err := svc.Submit(context.Background(), validFields(), RequestMeta{})
	require.NoError(t, err)
	require.NotEmpty(t, res.ID)

	stored, err := repo.GetByID(context.Background(), res.ID)
	require.NoError(t, err)
	assert.False(t, stored.EmailSent)
	assert.False(t, stored.ChatSent)
	assert.Equal(t, 1, repo.flagUpdates)
}

func TestSubmit_PersistenceFailureSkipsDispatch(t *testing.T) {
	tests := []struct {
		name      string
		createErr error
		schema    bool
	}{
		{"infra", errors.New("connection refused"), false},
		{"schema", &ValidationError{Kind: KindInvalidField, Fields: []string{"email"}, Messages: []string{"Please enter a valid email"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newRecordingRepo()
			repo.createErr = tt.createErr
			notifier := &recordingNotifier{outcomes: bothSent()}
			svc := NewService(repo, notifier, logging.Discard())

			_, err := svc.Submit(context.Background(), validFields(), RequestMeta{})

			var perr *PersistenceError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.schema, perr.Schema)
			assert.ErrorIs(t, err, tt.createErr)
			assert.Zero(t, notifier.calls)
			assert.Zero(t, repo.flagUpdates)
		})
	}
}

func TestSubmit_FlagUpdateFailureIsNotSurfaced(t *testing.T) {
	repo := newRecordingRepo()
	repo.flagErr = errors.New("write timeout")
	svc := NewService(repo, &recordingNotifier{outcomes: bothSent()}, logging.Discard())

	res, err := svc.Submit(context.Background(), validFields(), RequestMeta{})
	require.NoError(t, err)
	assert.NotEmpty(t, res.ID)
	assert.Len(t, res.Notifications, 2)
}

func TestSubmit_DispatchSurvivesCallerCancellation(t *testing.T) {
	repo := newRecordingRepo()
	notifier := &recordingNotifier{outcomes: bothSent()}
	svc := NewService(repo, notifier, logging.Discard())

	// The in-memory store ignores cancellation, so the record is written and
	// only the detached dispatch context is under test.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := svc.Submit(ctx, validFields(), RequestMeta{})
	require.NoError(t, err)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, 1, notifier.calls)
	assert.NoError(t, notifier.ctxErr)
	assert.Equal(t, 1, repo.flagUpdates)
}

func TestUpdate_RespondedStampsResponseDate(t *testing.T) {
	repo := NewInMemoryRepository()
	svc := NewService(repo, nil, logging.Discard())
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	req, err := ParseSubmission(validFields(), RequestMeta{ClientIP: "192.0.2.1"})
	require.NoError(t, err)
	sub, err := repo.Create(context.Background(), req)
	require.NoError(t, err)

	status := StatusResponded
	notes := "replied by email"
	updated, err := svc.Update(context.Background(), sub.ID, AdminPatch{Status: &status, Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, StatusResponded, updated.Status)
	assert.Equal(t, notes, updated.Notes)
	require.NotNil(t, updated.ResponseDate)
	assert.True(t, updated.ResponseDate.Equal(fixed))
	assert.Empty(t, updated.IPAddress)

	read := StatusRead
	updated, err = svc.Update(context.Background(), sub.ID, AdminPatch{Status: &read})
	require.NoError(t, err)
	require.NotNil(t, updated.ResponseDate, "response date is kept once set")
}

func TestUpdate_RejectsUnknownEnums(t *testing.T) {
	svc := NewService(NewInMemoryRepository(), nil, logging.Discard())
	status := Status("spam")
	priority := Priority("critical")

	_, err := svc.Update(context.Background(), "any", AdminPatch{Status: &status, Priority: &priority})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"status", "priority"}, verr.Fields)
}

func TestUpdate_NotFound(t *testing.T) {
	svc := NewService(NewInMemoryRepository(), nil, logging.Discard())
	status := StatusRead
	_, err := svc.Update(context.Background(), "missing", AdminPatch{Status: &status})
	assert.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestList_RedactsAndCounts(t *testing.T) {
	repo := NewInMemoryRepository()
	svc := NewService(repo, &recordingNotifier{}, logging.Discard())
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	repo.now = func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Minute) }

	var ids []string
	for i := 0; i < 3; i++ {
		res, err := svc.Submit(context.Background(), validFields(), RequestMeta{ClientIP: "192.0.2.1", ClientAgent: "test"})
		require.NoError(t, err)
		ids = append(ids, res.ID)
	}
	archived := StatusArchived
	_, err := svc.Update(context.Background(), ids[0], AdminPatch{Status: &archived})
	require.NoError(t, err)

	result, err := svc.List(context.Background(), ListFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Total)
	require.Len(t, result.Submissions, 2)
	assert.Equal(t, ids[2], result.Submissions[0].ID, "newest first")
	for _, s := range result.Submissions {
		assert.Empty(t, s.IPAddress)
		assert.Empty(t, s.UserAgent)
	}
	assert.Equal(t, 2, result.Stats[StatusNew])
	assert.Equal(t, 1, result.Stats[StatusArchived])

	filtered, err := svc.List(context.Background(), ListFilter{Status: StatusArchived, Limit: 10})
	require.NoError(t, err)
	require.Len(t, filtered.Submissions, 1)
	assert.Equal(t, ids[0], filtered.Submissions[0].ID)

	_, err = svc.List(context.Background(), ListFilter{Status: "bogus"})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}
