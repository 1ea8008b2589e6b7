package service_test

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/events"
	"github.com/spec-kit/helpdesk-core/internal/repository"
	"github.com/spec-kit/helpdesk-core/internal/service"
	"github.com/spec-kit/helpdesk-core/pkg/util/errorutil"
)

// fakeTicketRepo is an in-memory TicketRepository with the same observable
// semantics as the remote-backed one.
type fakeTicketRepo struct {
	mu          sync.Mutex
	nextID      int64
	tickets     map[int64]*domain.Ticket
	updateCalls int
	lastFilter  repository.TicketFilter
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[int64]*domain.Ticket)}
}

func (f *fakeTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	ticket.ID = f.nextID
	ticket.CreatedAt = time.Now()
	copied := *ticket
	f.tickets[ticket.ID] = &copied
	return nil
}

func (f *fakeTicketRepo) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket, ok := f.tickets[id]
	if !ok {
		return nil, errorutil.NewNotFound("ticket", map[string]any{"id": id})
	}
	copied := *ticket
	return &copied, nil
}

func (f *fakeTicketRepo) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	var result []domain.Ticket
	for _, ticket := range f.tickets {
		if filter.Status != nil && ticket.Status != *filter.Status {
			continue
		}
		if filter.Category != nil && ticket.Category != *filter.Category {
			continue
		}
		result = append(result, *ticket)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

func (f *fakeTicketRepo) UpdateFields(ctx context.Context, id int64, fields repository.TicketUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	ticket, ok := f.tickets[id]
	if !ok {
		return errorutil.NewNotFound("ticket", map[string]any{"id": id})
	}
	if fields.Notes != nil {
		ticket.Notes = *fields.Notes
	}
	if fields.Status != nil {
		ticket.Status = *fields.Status
	}
	if fields.Priority != nil {
		ticket.Priority = *fields.Priority
	}
	if fields.AssignedAgent != nil {
		ticket.AssignedAgent = *fields.AssignedAgent
	}
	if fields.Category != nil {
		ticket.Category = *fields.Category
	}
	return nil
}

func (f *fakeTicketRepo) BulkRecategorize(ctx context.Context, filter repository.RecategorizeFilter, newCategory string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, ticket := range f.tickets {
		if ticket.Category == newCategory {
			continue
		}
		if filter.Status != nil && ticket.Status != *filter.Status {
			continue
		}
		if filter.Category != nil && ticket.Category != *filter.Category {
			continue
		}
		ticket.Category = newCategory
		count++
	}
	return count, nil
}

// recordingDispatcher hands published events to the test over a channel so
// the asynchronous publish can be awaited.
type recordingDispatcher struct {
	events chan events.Event
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{events: make(chan events.Event, 8)}
}

func (d *recordingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.events <- event
	return nil
}

func (d *recordingDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {}

func (d *recordingDispatcher) wait(t *testing.T) events.Event {
	t.Helper()
	select {
	case event := <-d.events:
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("no event published")
		return events.Event{}
	}
}

func newTestService(t *testing.T) (*service.TicketService, *fakeTicketRepo, *recordingDispatcher) {
	t.Helper()
	repo := newFakeTicketRepo()
	dispatcher := newRecordingDispatcher()
	svc := service.NewTicketService(service.TicketDependencies{
		TicketRepo: repo,
		Dispatcher: dispatcher,
		Logger:     zap.NewNop(),
	})
	return svc, repo, dispatcher
}

func TestCreateAppliesDefaults(t *testing.T) {
	svc, _, _ := newTestService(t)

	ticket, err := svc.Create(context.Background(), service.TicketCreateInput{
		ReporterName:  "Jane Doe",
		ReporterEmail: "jane@x.com",
		Issue:         "Cannot log in",
	})
	require.NoError(t, err)

	assert.NotZero(t, ticket.ID)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	assert.Equal(t, "Account / Authentication", ticket.Category)
	assert.Empty(t, ticket.Notes)
	assert.Empty(t, ticket.AssignedAgent)
}

func TestCreateRoundTrip(t *testing.T) {
	svc, _, _ := newTestService(t)

	created, err := svc.Create(context.Background(), service.TicketCreateInput{
		ReporterName:  "Sam",
		ReporterEmail: "sam@x.com",
		Issue:         "it's broken",
		Priority:      domain.TicketPriorityHigh,
	})
	require.NoError(t, err)

	fetched, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "it's broken", fetched.Issue)
	assert.Equal(t, "Sam", fetched.ReporterName)
	assert.Equal(t, domain.TicketPriorityHigh, fetched.Priority)
	assert.Equal(t, domain.TicketStatusOpen, fetched.Status)
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := newTestService(t)

	tests := []struct {
		name  string
		input service.TicketCreateInput
		field string
	}{
		{"missing name", service.TicketCreateInput{ReporterEmail: "a@x", Issue: "b"}, "name"},
		{"missing email", service.TicketCreateInput{ReporterName: "A", Issue: "b"}, "email"},
		{"missing issue", service.TicketCreateInput{ReporterName: "A", ReporterEmail: "a@x"}, "issue"},
		{"blank issue", service.TicketCreateInput{ReporterName: "A", ReporterEmail: "a@x", Issue: "   "}, "issue"},
		{"bad priority", service.TicketCreateInput{ReporterName: "A", ReporterEmail: "a@x", Issue: "b", Priority: "Critical"}, "priority"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.input)
			require.Error(t, err)
			domainErr := errorutil.ToDomainError(err)
			assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
			assert.Equal(t, tc.field, domainErr.Details["field"])
		})
	}
}

func TestCreateExplicitCategoryWins(t *testing.T) {
	svc, _, _ := newTestService(t)

	ticket, err := svc.Create(context.Background(), service.TicketCreateInput{
		ReporterName:  "A",
		ReporterEmail: "a@x",
		Issue:         "password reset",
		Category:      "Week 3: Misc",
	})
	require.NoError(t, err)
	assert.Equal(t, "Week 3: Misc", ticket.Category)
}

func TestCreatePublishesEvent(t *testing.T) {
	svc, _, dispatcher := newTestService(t)

	ticket, err := svc.Create(context.Background(), service.TicketCreateInput{
		ReporterName:  "Jane Doe",
		ReporterEmail: "jane@x.com",
		Issue:         "Cannot log in",
	})
	require.NoError(t, err)

	event := dispatcher.wait(t)
	assert.Equal(t, events.EventTicketCreated, event.Type)
	assert.Equal(t, ticket.ID, event.TicketID)
	assert.NotEmpty(t, event.ID)

	payload, ok := event.Payload.(events.TicketCreatedPayload)
	require.True(t, ok)
	assert.Equal(t, "Jane Doe", payload.ReporterName)
	assert.Equal(t, "Cannot log in", payload.Issue)
	assert.Equal(t, domain.TicketPriorityMedium, payload.Priority)
}

func TestUpdatePartialMerge(t *testing.T) {
	svc, _, _ := newTestService(t)

	created, err := svc.Create(context.Background(), service.TicketCreateInput{
		ReporterName:  "Jane Doe",
		ReporterEmail: "jane@x.com",
		Issue:         "Cannot log in",
	})
	require.NoError(t, err)

	status := domain.TicketStatusInProgress
	updated, err := svc.Update(context.Background(), created.ID, service.TicketUpdateInput{Status: &status})
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)
	assert.Equal(t, created.ReporterName, updated.ReporterName)
	assert.Equal(t, created.Issue, updated.Issue)
	assert.Equal(t, created.Priority, updated.Priority)
	assert.Equal(t, created.Category, updated.Category)
	assert.Empty(t, updated.Notes)
}

func TestUpdateRejectsInvalidEnumsBeforeStore(t *testing.T) {
	svc, repo, _ := newTestService(t)

	badStatus := domain.TicketStatus("Escalated")
	_, err := svc.Update(context.Background(), 1, service.TicketUpdateInput{Status: &badStatus})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", errorutil.ToDomainError(err).Code)

	badPriority := domain.TicketPriority("Urgent")
	_, err = svc.Update(context.Background(), 1, service.TicketUpdateInput{Priority: &badPriority})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", errorutil.ToDomainError(err).Code)

	assert.Zero(t, repo.updateCalls)
}

func TestUpdateNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	notes := "looked into it"
	_, err := svc.Update(context.Background(), 404, service.TicketUpdateInput{Notes: &notes})
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", errorutil.ToDomainError(err).Code)
}

func TestUpdateNoFields(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Update(context.Background(), 1, service.TicketUpdateInput{})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", errorutil.ToDomainError(err).Code)
}

func TestStatusTransitionsUnguarded(t *testing.T) {
	svc, _, _ := newTestService(t)

	created, err := svc.Create(context.Background(), service.TicketCreateInput{
		ReporterName: "A", ReporterEmail: "a@x", Issue: "b",
	})
	require.NoError(t, err)

	// Resolved is not terminal: any status may follow any other.
	for _, status := range []domain.TicketStatus{
		domain.TicketStatusResolved,
		domain.TicketStatusOpen,
		domain.TicketStatusInProgress,
	} {
		s := status
		_, err := svc.Update(context.Background(), created.ID, service.TicketUpdateInput{Status: &s})
		require.NoError(t, err)
	}
}

func TestBulkRecategorizeValidation(t *testing.T) {
	svc, _, _ := newTestService(t)

	status := domain.TicketStatusResolved
	_, err := svc.BulkRecategorize(context.Background(), service.RecategorizeInput{Status: &status})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", errorutil.ToDomainError(err).Code)

	_, err = svc.BulkRecategorize(context.Background(), service.RecategorizeInput{NewCategory: "Week 1"})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", errorutil.ToDomainError(err).Code)
}

func TestBulkRecategorizeIdempotent(t *testing.T) {
	svc, _, _ := newTestService(t)

	for i := 0; i < 3; i++ {
		created, err := svc.Create(context.Background(), service.TicketCreateInput{
			ReporterName: "A", ReporterEmail: "a@x", Issue: "no match here",
		})
		require.NoError(t, err)
		status := domain.TicketStatusResolved
		_, err = svc.Update(context.Background(), created.ID, service.TicketUpdateInput{Status: &status})
		require.NoError(t, err)
	}

	status := domain.TicketStatusResolved
	input := service.RecategorizeInput{Status: &status, NewCategory: "Week 1"}

	first, err := svc.BulkRecategorize(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, int64(3), first)

	second, err := svc.BulkRecategorize(context.Background(), input)
	require.NoError(t, err)
	assert.Zero(t, second)
}

func TestEndToEndScenario(t *testing.T) {
	svc, _, _ := newTestService(t)

	created, err := svc.Create(context.Background(), service.TicketCreateInput{
		ReporterName:  "Jane Doe",
		ReporterEmail: "jane@x.com",
		Issue:         "Cannot log in",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, created.Status)
	assert.Equal(t, domain.TicketPriorityMedium, created.Priority)
	assert.Equal(t, "Account / Authentication", created.Category)

	status := domain.TicketStatusResolved
	notes := "password reset"
	_, err = svc.Update(context.Background(), created.ID, service.TicketUpdateInput{
		Status: &status,
		Notes:  &notes,
	})
	require.NoError(t, err)

	resolved := domain.TicketStatusResolved
	listed, err := svc.List(context.Background(), service.TicketListInput{Status: &resolved})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)
	assert.Equal(t, "password reset", listed[0].Notes)
}
