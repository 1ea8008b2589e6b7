package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Name     string                `json:"name"`
	Email    string                `json:"email"`
	Issue    string                `json:"issue"`
	Priority domain.TicketPriority `json:"priority"`
	Category string                `json:"category"`
}

// UpdateTicketRequest carries a partial field merge; absent fields keep
// their prior values.
type UpdateTicketRequest struct {
	Notes         *string                `json:"notes"`
	Status        *domain.TicketStatus   `json:"status"`
	Priority      *domain.TicketPriority `json:"priority"`
	AssignedAgent *string                `json:"assigned_agent"`
	Category      *string                `json:"category"`
}

// RecategorizeRequest payload for bulk folder moves.
type RecategorizeRequest struct {
	Status      *domain.TicketStatus `json:"status"`
	Category    *string              `json:"category"`
	NewCategory string               `json:"new_category"`
}

// RecategorizeResponse reports how many tickets moved.
type RecategorizeResponse struct {
	Updated int64 `json:"updated"`
}

// TicketResponse is the full ticket representation.
type TicketResponse struct {
	ID            int64                 `json:"id"`
	CreatedAt     time.Time             `json:"created_at"`
	Name          string                `json:"name"`
	Email         string                `json:"email"`
	Issue         string                `json:"issue"`
	Notes         string                `json:"notes"`
	Status        domain.TicketStatus   `json:"status"`
	Priority      domain.TicketPriority `json:"priority"`
	AssignedAgent string                `json:"assigned_agent"`
	Category      string                `json:"category"`
}
