package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/remotedb"
	"github.com/spec-kit/helpdesk-core/pkg/util/errorutil"
)

// Executor runs one statement against the backing store. *remotedb.Client
// satisfies it; tests substitute fakes.
type Executor interface {
	Execute(ctx context.Context, statement string, params []any) (*remotedb.Result, error)
}

// TicketFilter captures list parameters.
type TicketFilter struct {
	Status        *domain.TicketStatus
	Category      *string
	AssignedAgent *string
	SortAscending bool
}

// TicketUpdate is a partial field set: nil means "leave unchanged". Notes
// overwrite rather than append.
type TicketUpdate struct {
	Notes         *string
	Status        *domain.TicketStatus
	Priority      *domain.TicketPriority
	AssignedAgent *string
	Category      *string
}

// Empty reports whether the update carries no fields at all.
func (u TicketUpdate) Empty() bool {
	return u.Notes == nil && u.Status == nil && u.Priority == nil &&
		u.AssignedAgent == nil && u.Category == nil
}

// RecategorizeFilter selects the tickets a bulk recategorization moves.
type RecategorizeFilter struct {
	Status   *domain.TicketStatus
	Category *string
}

// Empty reports whether no predicate was supplied.
func (f RecategorizeFilter) Empty() bool {
	return f.Status == nil && f.Category == nil
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	UpdateFields(ctx context.Context, id int64, fields TicketUpdate) error
	BulkRecategorize(ctx context.Context, filter RecategorizeFilter, newCategory string) (int64, error)
}

type ticketRepository struct {
	exec            Executor
	defaultCategory string
	now             func() time.Time
}

// NewTicketRepository instantiates the repository. defaultCategory backfills
// rows written before the category column existed.
func NewTicketRepository(exec Executor, defaultCategory string) TicketRepository {
	return &ticketRepository{
		exec:            exec,
		defaultCategory: defaultCategory,
		now:             time.Now,
	}
}

const ticketColumns = "id, timestamp, name, email, issue, notes, status, priority, assigned_agent, category"

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	createdAt := r.now()
	const query = `
        INSERT INTO tickets (timestamp, name, email, issue, notes, status, priority, assigned_agent, category)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.exec.Execute(ctx, query, []any{
		createdAt.Format(remotedb.TimeLayout),
		ticket.ReporterName,
		ticket.ReporterEmail,
		ticket.Issue,
		ticket.Notes,
		string(ticket.Status),
		string(ticket.Priority),
		ticket.AssignedAgent,
		ticket.Category,
	})
	if err != nil {
		return mapExecError(err, false)
	}
	if res.LastInsertID == 0 {
		return errorutil.NewInternalError(fmt.Errorf("remote store did not assign a ticket id"))
	}
	ticket.ID = res.LastInsertID
	ticket.CreatedAt = createdAt
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := fmt.Sprintf("SELECT %s FROM tickets WHERE id = ?", ticketColumns)
	res, err := r.exec.Execute(ctx, query, []any{id})
	if err != nil {
		return nil, mapExecError(err, true)
	}
	if len(res.Rows) == 0 {
		return nil, errorutil.NewNotFound("ticket", map[string]any{"id": id})
	}
	ticket := r.scanTicket(res.Rows[0])
	return &ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{}
	args := []any{}
	if filter.Status != nil {
		clauses = append(clauses, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.Category != nil {
		clauses = append(clauses, "category = ?")
		args = append(args, *filter.Category)
	}
	if filter.AssignedAgent != nil {
		clauses = append(clauses, "assigned_agent = ?")
		args = append(args, *filter.AssignedAgent)
	}

	query := fmt.Sprintf("SELECT %s FROM tickets", ticketColumns)
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	// Equal timestamps tie-break on id so the order is deterministic.
	if filter.SortAscending {
		query += " ORDER BY timestamp ASC, id ASC"
	} else {
		query += " ORDER BY timestamp DESC, id DESC"
	}

	res, err := r.exec.Execute(ctx, query, args)
	if err != nil {
		return nil, mapExecError(err, true)
	}
	tickets := make([]domain.Ticket, 0, len(res.Rows))
	for _, row := range res.Rows {
		tickets = append(tickets, r.scanTicket(row))
	}
	return tickets, nil
}

func (r *ticketRepository) UpdateFields(ctx context.Context, id int64, fields TicketUpdate) error {
	if fields.Empty() {
		return errorutil.NewValidationError("no fields to update", nil)
	}

	sets := []string{}
	args := []any{}
	if fields.Notes != nil {
		sets = append(sets, "notes = ?")
		args = append(args, *fields.Notes)
	}
	if fields.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*fields.Status))
	}
	if fields.Priority != nil {
		sets = append(sets, "priority = ?")
		args = append(args, string(*fields.Priority))
	}
	if fields.AssignedAgent != nil {
		sets = append(sets, "assigned_agent = ?")
		args = append(args, *fields.AssignedAgent)
	}
	if fields.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *fields.Category)
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE tickets SET %s WHERE id = ?", strings.Join(sets, ", "))
	res, err := r.exec.Execute(ctx, query, args)
	if err != nil {
		return mapExecError(err, false)
	}
	if res.Changes == 0 {
		return errorutil.NewNotFound("ticket", map[string]any{"id": id})
	}
	return nil
}

func (r *ticketRepository) BulkRecategorize(ctx context.Context, filter RecategorizeFilter, newCategory string) (int64, error) {
	// Rows already in the target category are excluded, which makes
	// re-running the same recategorization change zero rows. The IS NULL
	// arm keeps rows predating the category column in scope.
	clauses := []string{"(category IS NULL OR category <> ?)"}
	args := []any{newCategory, newCategory}
	if filter.Status != nil {
		clauses = append(clauses, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.Category != nil {
		// Legacy null categories read back as the default label, so a
		// predicate on that label has to match them too.
		if *filter.Category == r.defaultCategory {
			clauses = append(clauses, "(category = ? OR category IS NULL)")
		} else {
			clauses = append(clauses, "category = ?")
		}
		args = append(args, *filter.Category)
	}

	query := fmt.Sprintf("UPDATE tickets SET category = ? WHERE %s", strings.Join(clauses, " AND "))
	res, err := r.exec.Execute(ctx, query, args)
	if err != nil {
		return 0, mapExecError(err, false)
	}
	return res.Changes, nil
}

func (r *ticketRepository) scanTicket(row remotedb.Row) domain.Ticket {
	ticket := domain.Ticket{
		ID:            row.Int64("id"),
		CreatedAt:     row.Time("timestamp"),
		ReporterName:  row.String("name"),
		ReporterEmail: row.String("email"),
		Issue:         row.String("issue"),
		Notes:         row.String("notes"),
		Status:        domain.TicketStatus(row.String("status")),
		Priority:      domain.TicketPriority(row.String("priority")),
		AssignedAgent: row.String("assigned_agent"),
		Category:      row.String("category"),
	}
	if ticket.Status == "" {
		ticket.Status = domain.TicketStatusOpen
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}
	// Rows predating the category column come back null; the label is
	// never empty above this layer.
	if ticket.Category == "" {
		ticket.Category = r.defaultCategory
	}
	return ticket
}

func mapExecError(err error, read bool) error {
	var connErr *remotedb.ConnectionError
	if errors.As(err, &connErr) {
		return errorutil.NewConnectionFailure(err, read)
	}
	var remoteErr *remotedb.RemoteError
	if errors.As(err, &remoteErr) {
		return errorutil.NewRemoteRejected(err)
	}
	return err
}
