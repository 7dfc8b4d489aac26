// Package service contains the connection state machine and the
// suggestion engine.
package service

import (
	"context"

	"weave/internal/models"
)

// Event types published on every edge-state change.
const (
	EventConnectionRequested = "connection.requested"
	EventConnectionAccepted  = "connection.accepted"
	EventConnectionRemoved   = "connection.removed"
	EventConnectionSeen      = "connection.seen"
)

// ConnectionEvent describes a single edge-state change. It carries the
// connection id, both participant ids and the new state.
type ConnectionEvent struct {
	Type         string                  `json:"type"`
	ConnectionID uint                    `json:"connection_id"`
	AuthorID     uint                    `json:"author_id"`
	RecipientID  uint                    `json:"recipient_id"`
	Status       models.ConnectionStatus `json:"status"`
	Seen         bool                    `json:"seen"`
}

// EventEmitter delivers connection events to the given recipients.
// Implementations must be fire-and-forget: Emit never blocks the mutation
// path and delivery failures are swallowed (logged) rather than reported.
type EventEmitter interface {
	Emit(ctx context.Context, recipients []uint, event ConnectionEvent)
}

// NoopEmitter discards all events. Used when no transport is configured
// and in tests that do not care about notifications.
type NoopEmitter struct{}

// Emit implements EventEmitter.
func (NoopEmitter) Emit(context.Context, []uint, ConnectionEvent) {}

func connectionEvent(eventType string, conn *models.Connection) ConnectionEvent {
	return ConnectionEvent{
		Type:         eventType,
		ConnectionID: conn.ID,
		AuthorID:     conn.AuthorID,
		RecipientID:  conn.RecipientID,
		Status:       conn.Status,
		Seen:         conn.Seen,
	}
}
