package service

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/category"
	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/events"
	"github.com/spec-kit/helpdesk-core/internal/remotedb"
	"github.com/spec-kit/helpdesk-core/internal/repository"
	"github.com/spec-kit/helpdesk-core/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows: validation, defaulting,
// categorization and the notification side-channel.
type TicketService struct {
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// TicketCreateInput describes ticket creation payload. Category is optional;
// when absent the issue text is classified.
type TicketCreateInput struct {
	ReporterName  string
	ReporterEmail string
	Issue         string
	Priority      domain.TicketPriority
	Category      string
}

// TicketUpdateInput is a partial field set; nil fields are left unchanged.
type TicketUpdateInput struct {
	Notes         *string
	Status        *domain.TicketStatus
	Priority      *domain.TicketPriority
	AssignedAgent *string
	Category      *string
}

// TicketListInput describes list filters. Zero value means "all tickets,
// newest first".
type TicketListInput struct {
	Status        *domain.TicketStatus
	Category      *string
	AssignedAgent *string
	OldestFirst   bool
}

// RecategorizeInput moves all tickets matching the predicate into
// NewCategory.
type RecategorizeInput struct {
	Status      *domain.TicketStatus
	Category    *string
	NewCategory string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// Create validates and defaults the input, persists the ticket and fires the
// best-effort creation notification. The notification runs detached from the
// request: its outcome never delays or fails the response.
func (s *TicketService) Create(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	name := strings.TrimSpace(input.ReporterName)
	email := strings.TrimSpace(input.ReporterEmail)
	issue := strings.TrimSpace(input.Issue)
	if name == "" {
		return nil, errorutil.NewValidationError("name is required", map[string]any{"field": "name"})
	}
	if email == "" {
		return nil, errorutil.NewValidationError("email is required", map[string]any{"field": "email"})
	}
	if issue == "" {
		return nil, errorutil.NewValidationError("issue is required", map[string]any{"field": "issue"})
	}

	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !domain.ValidPriority(priority) {
		return nil, errorutil.NewValidationError("invalid priority", map[string]any{"field": "priority", "value": string(priority)})
	}

	cat := strings.TrimSpace(input.Category)
	if cat == "" {
		cat = category.Classify(issue)
	}

	ticket := &domain.Ticket{
		ReporterName:  name,
		ReporterEmail: email,
		Issue:         issue,
		Notes:         "",
		Status:        domain.TicketStatusOpen,
		Priority:      priority,
		AssignedAgent: "",
		Category:      cat,
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}

	s.publishAsync(events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			ReporterName:  ticket.ReporterName,
			ReporterEmail: ticket.ReporterEmail,
			Issue:         ticket.Issue,
			Priority:      ticket.Priority,
			Category:      ticket.Category,
		},
	})
	return ticket, nil
}

// Get fetches a single ticket.
func (s *TicketService) Get(ctx context.Context, id int64) (*domain.Ticket, error) {
	return s.tickets.GetByID(ctx, id)
}

// Update applies a partial field merge. Enum values are rejected here before
// any store call; status transitions themselves are unguarded, any status
// may follow any other.
func (s *TicketService) Update(ctx context.Context, id int64, input TicketUpdateInput) (*domain.Ticket, error) {
	if input.Status != nil && !domain.ValidStatus(*input.Status) {
		return nil, errorutil.NewValidationError("invalid status", map[string]any{"field": "status", "value": string(*input.Status)})
	}
	if input.Priority != nil && !domain.ValidPriority(*input.Priority) {
		return nil, errorutil.NewValidationError("invalid priority", map[string]any{"field": "priority", "value": string(*input.Priority)})
	}
	if input.Category != nil && strings.TrimSpace(*input.Category) == "" {
		return nil, errorutil.NewValidationError("category must not be empty", map[string]any{"field": "category"})
	}

	fields := repository.TicketUpdate{
		Notes:         input.Notes,
		Status:        input.Status,
		Priority:      input.Priority,
		AssignedAgent: input.AssignedAgent,
		Category:      input.Category,
	}
	if fields.Empty() {
		return nil, errorutil.NewValidationError("no fields to update", nil)
	}
	if err := s.tickets.UpdateFields(ctx, id, fields); err != nil {
		return nil, err
	}
	return s.tickets.GetByID(ctx, id)
}

// List returns tickets filtered per input, newest first unless OldestFirst.
func (s *TicketService) List(ctx context.Context, input TicketListInput) ([]domain.Ticket, error) {
	if input.Status != nil && !domain.ValidStatus(*input.Status) {
		return nil, errorutil.NewValidationError("invalid status", map[string]any{"field": "status", "value": string(*input.Status)})
	}
	filter := repository.TicketFilter{
		Status:        input.Status,
		Category:      input.Category,
		AssignedAgent: input.AssignedAgent,
		SortAscending: input.OldestFirst,
	}
	return s.tickets.List(ctx, filter)
}

// BulkRecategorize moves every ticket matching the predicate into the named
// category in one statement and returns the number of rows changed. Running
// the same move twice changes zero additional rows.
func (s *TicketService) BulkRecategorize(ctx context.Context, input RecategorizeInput) (int64, error) {
	newCategory := strings.TrimSpace(input.NewCategory)
	if newCategory == "" {
		return 0, errorutil.NewValidationError("new_category is required", map[string]any{"field": "new_category"})
	}
	if input.Status != nil && !domain.ValidStatus(*input.Status) {
		return 0, errorutil.NewValidationError("invalid status", map[string]any{"field": "status", "value": string(*input.Status)})
	}
	filter := repository.RecategorizeFilter{
		Status:   input.Status,
		Category: input.Category,
	}
	if filter.Empty() {
		return 0, errorutil.NewValidationError("a status or category predicate is required", nil)
	}

	count, err := s.tickets.BulkRecategorize(ctx, filter, newCategory)
	if err != nil {
		return 0, err
	}

	s.publishAsync(events.Event{
		Type: events.EventTicketRecategorized,
		Payload: events.TicketRecategorizedPayload{
			NewCategory: newCategory,
			Updated:     count,
		},
	})
	return count, nil
}

// ExportCSV streams the full ticket set, newest first, as CSV.
func (s *TicketService) ExportCSV(ctx context.Context, w io.Writer) error {
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{})
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	header := []string{"ID", "Timestamp", "Name", "Email", "Issue", "Notes", "Status", "Priority", "Assigned Agent", "Category"}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, t := range tickets {
		record := []string{
			strconv.FormatInt(t.ID, 10),
			t.CreatedAt.Format(remotedb.TimeLayout),
			t.ReporterName,
			t.ReporterEmail,
			t.Issue,
			t.Notes,
			string(t.Status),
			string(t.Priority),
			t.AssignedAgent,
			t.Category,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// publishAsync fires the event on a detached context so the caller's request
// lifecycle never gates delivery. Once fired it runs to completion or the
// subscriber's own timeout.
func (s *TicketService) publishAsync(event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = time.Now()
	go func() {
		if err := s.dispatcher.Publish(context.Background(), event); err != nil {
			s.logger.Warn("event publish failed", zap.String("event", string(event.Type)), zap.Error(err))
		}
	}()
}
