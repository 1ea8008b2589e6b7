package events

import (
	"time"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketRecategorized EventType = "ticket_recategorized"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  int64       `json:"ticket_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload carries what the notification side-channel needs.
type TicketCreatedPayload struct {
	ReporterName  string                `json:"reporter_name"`
	ReporterEmail string                `json:"reporter_email"`
	Issue         string                `json:"issue"`
	Priority      domain.TicketPriority `json:"priority"`
	Category      string                `json:"category"`
}

// TicketRecategorizedPayload describes a bulk folder move.
type TicketRecategorizedPayload struct {
	NewCategory string `json:"new_category"`
	Updated     int64  `json:"updated"`
}
