package models

import (
	"time"
)

// ConnectionStatus represents the status of a connection between two users.
type ConnectionStatus string

const (
	// ConnectionStatusPending indicates a request awaiting the recipient's answer.
	ConnectionStatusPending ConnectionStatus = "pending"
	// ConnectionStatusAccepted indicates an established connection.
	ConnectionStatusAccepted ConnectionStatus = "accepted"
)

// Valid reports whether s is a known connection status.
func (s ConnectionStatus) Valid() bool {
	return s == ConnectionStatusPending || s == ConnectionStatusAccepted
}

// Connection is a directed edge between two users. The author is the user
// who sent the request, the recipient the one who can accept it; direction
// is fixed at creation and never swapped. For existence checks the edge is
// treated as undirected: at most one connection may exist per unordered
// pair, in either direction.
type Connection struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	AuthorID    uint             `gorm:"not null;uniqueIndex:idx_connection_pair" json:"author_id"`
	RecipientID uint             `gorm:"not null;uniqueIndex:idx_connection_pair" json:"recipient_id"`
	Status      ConnectionStatus `gorm:"type:varchar(20);default:'pending';index:idx_connections_status" json:"status"`
	// Seen records whether the recipient has viewed the pending request.
	// It only ever transitions false -> true.
	Seen      bool      `gorm:"not null;default:false" json:"seen"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Author    User `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Recipient User `gorm:"foreignKey:RecipientID" json:"recipient,omitempty"`
}

// TableName specifies the table name for GORM
func (Connection) TableName() string {
	return "connections"
}

// Involves reports whether userID is the author or the recipient of the edge.
func (c *Connection) Involves(userID uint) bool {
	return c.AuthorID == userID || c.RecipientID == userID
}

// OtherParticipant returns the participant that is not userID. Callers must
// ensure userID is a participant first.
func (c *Connection) OtherParticipant(userID uint) uint {
	if c.AuthorID == userID {
		return c.RecipientID
	}
	return c.AuthorID
}
