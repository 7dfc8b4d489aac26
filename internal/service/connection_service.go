package service

import (
	"context"

	"weave/internal/models"
	"weave/internal/repository"
)

// ConnectionService governs the connection state machine: which status
// transitions are legal and who is authorized to perform them. All
// mutations are serialized per unordered pair via pairLocks; the unique
// pair index at the store layer backs this up.
type ConnectionService struct {
	connRepo repository.ConnectionRepository
	userRepo repository.UserRepository
	emitter  EventEmitter
	pairs    *pairLocks
}

// NewConnectionService returns a new ConnectionService. A nil emitter
// disables event delivery.
func NewConnectionService(connRepo repository.ConnectionRepository, userRepo repository.UserRepository, emitter EventEmitter) *ConnectionService {
	if emitter == nil {
		emitter = NoopEmitter{}
	}
	return &ConnectionService{
		connRepo: connRepo,
		userRepo: userRepo,
		emitter:  emitter,
		pairs:    newPairLocks(),
	}
}

// SendRequest creates a pending edge authored by senderID. It fails with
// NotFound for an unknown recipient and Conflict when any edge already
// exists between the pair, in either direction.
func (s *ConnectionService) SendRequest(ctx context.Context, senderID, recipientID uint) (*models.Connection, error) {
	if senderID == recipientID {
		return nil, models.NewValidationError("Cannot send a connection request to yourself")
	}

	if _, err := s.userRepo.GetByID(ctx, recipientID); err != nil {
		return nil, err
	}

	release := s.pairs.Lock(senderID, recipientID)
	defer release()

	existing, err := s.connRepo.GetBetween(ctx, senderID, recipientID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("Connection request already exists")
	}

	conn := &models.Connection{
		AuthorID:    senderID,
		RecipientID: recipientID,
		Status:      models.ConnectionStatusPending,
	}
	if err := s.connRepo.Create(ctx, conn); err != nil {
		return nil, err
	}

	conn, err = s.connRepo.GetByID(ctx, conn.ID)
	if err != nil {
		return nil, err
	}

	s.emitter.Emit(ctx, []uint{conn.AuthorID, conn.RecipientID},
		connectionEvent(EventConnectionRequested, conn))
	return conn, nil
}

// Accept transitions a pending edge to accepted. Only the recipient may
// accept; accepting an already-accepted edge is a Conflict.
func (s *ConnectionService) Accept(ctx context.Context, userID, connectionID uint) (*models.Connection, error) {
	conn, err := s.connRepo.GetByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if conn.RecipientID != userID {
		return nil, models.NewForbiddenError("Only the recipient can accept a connection request")
	}

	release := s.pairs.Lock(conn.AuthorID, conn.RecipientID)
	defer release()

	// Re-read under the lock; a concurrent removal or accept may have
	// changed the record since the authorization check.
	conn, err = s.connRepo.GetByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if conn.Status == models.ConnectionStatusAccepted {
		return nil, models.NewConflictError("Connection is already accepted")
	}

	if err := s.connRepo.UpdateStatus(ctx, connectionID, models.ConnectionStatusAccepted); err != nil {
		return nil, err
	}

	conn, err = s.connRepo.GetByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}

	s.emitter.Emit(ctx, []uint{conn.AuthorID, conn.RecipientID},
		connectionEvent(EventConnectionAccepted, conn))
	return conn, nil
}

// RemoveOrReject deletes the edge regardless of its status. It is the only
// way to leave pending without accepting and the only way to end an
// accepted relationship. Either participant may call it.
func (s *ConnectionService) RemoveOrReject(ctx context.Context, userID, connectionID uint) (*models.Connection, error) {
	conn, err := s.connRepo.GetByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if !conn.Involves(userID) {
		return nil, models.NewForbiddenError("Only a participant can remove a connection")
	}

	release := s.pairs.Lock(conn.AuthorID, conn.RecipientID)
	defer release()

	conn, err = s.connRepo.GetByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}

	if err := s.connRepo.Delete(ctx, connectionID); err != nil {
		return nil, err
	}

	s.emitter.Emit(ctx, []uint{conn.AuthorID, conn.RecipientID},
		connectionEvent(EventConnectionRemoved, conn))
	return conn, nil
}

// MarkSeen records that the recipient has viewed the request. Marking an
// already-seen edge is a no-op, not an error, and emits nothing.
func (s *ConnectionService) MarkSeen(ctx context.Context, userID, connectionID uint) (*models.Connection, error) {
	conn, err := s.connRepo.GetByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if conn.RecipientID != userID {
		return nil, models.NewForbiddenError("Only the recipient can mark a connection as seen")
	}
	if conn.Seen {
		return conn, nil
	}

	release := s.pairs.Lock(conn.AuthorID, conn.RecipientID)
	defer release()

	if err := s.connRepo.SetSeen(ctx, connectionID); err != nil {
		return nil, err
	}
	conn, err = s.connRepo.GetByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}

	// Seen is private to the recipient; the author is not notified.
	s.emitter.Emit(ctx, []uint{conn.RecipientID},
		connectionEvent(EventConnectionSeen, conn))
	return conn, nil
}

// ListForUser returns the user's edges filtered by status. An invalid or
// empty status defaults to accepted.
func (s *ConnectionService) ListForUser(ctx context.Context, userID uint, status models.ConnectionStatus) ([]models.Connection, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	if !status.Valid() {
		status = models.ConnectionStatusAccepted
	}
	return s.connRepo.ListForUserByStatus(ctx, userID, status)
}
