package repository

import (
	"context"
	"errors"

	"weave/internal/models"
	"weave/internal/observability"

	"gorm.io/gorm"
)

// ConnectionRepository defines the interface for connection graph operations.
// Edges are stored directed (author -> recipient) but looked up undirected
// for existence and adjacency.
type ConnectionRepository interface {
	Create(ctx context.Context, conn *models.Connection) error
	GetByID(ctx context.Context, id uint) (*models.Connection, error)
	// GetBetween returns the edge between the unordered pair (a, b) in
	// either direction, or nil if none exists.
	GetBetween(ctx context.Context, a, b uint) (*models.Connection, error)
	ListForUser(ctx context.Context, userID uint) ([]models.Connection, error)
	ListForUserByStatus(ctx context.Context, userID uint, status models.ConnectionStatus) ([]models.Connection, error)
	UpdateStatus(ctx context.Context, id uint, status models.ConnectionStatus) error
	SetSeen(ctx context.Context, id uint) error
	Delete(ctx context.Context, id uint) error
	// NeighborIDs returns the ids of all users adjacent to userID through
	// an edge in any of the given statuses, in either direction.
	NeighborIDs(ctx context.Context, userID uint, statuses ...models.ConnectionStatus) ([]uint, error)
}

type connectionRepository struct {
	db      *gorm.DB
	metrics *observability.DatabaseMetrics
}

// NewConnectionRepository creates a new connection repository
func NewConnectionRepository(db *gorm.DB) ConnectionRepository {
	return &connectionRepository{db: db, metrics: observability.NewDatabaseMetrics(db)}
}

func (r *connectionRepository) Create(ctx context.Context, conn *models.Connection) error {
	if err := r.db.WithContext(ctx).Create(conn).Error; err != nil {
		// The unique pair index backs up the service-level duplicate
		// check; surface a violation as the same Conflict the caller
		// would have seen from the check itself.
		if isUniqueViolation(err) {
			return models.NewConflictError("Connection request already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *connectionRepository) GetByID(ctx context.Context, id uint) (*models.Connection, error) {
	var conn models.Connection
	if err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Recipient").
		First(&conn, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Connection", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &conn, nil
}

func (r *connectionRepository) GetBetween(ctx context.Context, a, b uint) (*models.Connection, error) {
	defer r.metrics.TrackQuery("get_between", "connections")()

	var conn models.Connection
	if err := r.db.WithContext(ctx).
		Where("(author_id = ? AND recipient_id = ?) OR (author_id = ? AND recipient_id = ?)",
			a, b, b, a).
		First(&conn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &conn, nil
}

func (r *connectionRepository) ListForUser(ctx context.Context, userID uint) ([]models.Connection, error) {
	var conns []models.Connection
	if err := r.db.WithContext(ctx).
		Where("author_id = ? OR recipient_id = ?", userID, userID).
		Preload("Author").
		Preload("Recipient").
		Order("id").
		Find(&conns).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return conns, nil
}

func (r *connectionRepository) ListForUserByStatus(ctx context.Context, userID uint, status models.ConnectionStatus) ([]models.Connection, error) {
	defer r.metrics.TrackQuery("list_by_status", "connections")()

	var conns []models.Connection
	if err := r.db.WithContext(ctx).
		Where("(author_id = ? OR recipient_id = ?) AND status = ?", userID, userID, status).
		Preload("Author").
		Preload("Recipient").
		Order("id").
		Find(&conns).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return conns, nil
}

func (r *connectionRepository) UpdateStatus(ctx context.Context, id uint, status models.ConnectionStatus) error {
	if err := r.db.WithContext(ctx).
		Model(&models.Connection{}).
		Where("id = ?", id).
		Update("status", status).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *connectionRepository) SetSeen(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).
		Model(&models.Connection{}).
		Where("id = ?", id).
		Update("seen", true).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *connectionRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.Connection{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *connectionRepository) NeighborIDs(ctx context.Context, userID uint, statuses ...models.ConnectionStatus) ([]uint, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	defer r.metrics.TrackQuery("neighbor_ids", "connections")()

	var edges []models.Connection
	if err := r.db.WithContext(ctx).
		Select("author_id", "recipient_id").
		Where("(author_id = ? OR recipient_id = ?) AND status IN ?", userID, userID, statuses).
		Find(&edges).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	seen := make(map[uint]struct{}, len(edges))
	ids := make([]uint, 0, len(edges))
	for i := range edges {
		other := edges[i].OtherParticipant(userID)
		if _, ok := seen[other]; ok {
			continue
		}
		seen[other] = struct{}{}
		ids = append(ids, other)
	}
	return ids, nil
}
