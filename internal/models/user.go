// Package models contains data structures for the application's domain models.
package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// User represents a member of the Weave network. Profile attributes are
// nullable: an attribute that was never filled in contributes nothing to
// similarity scoring and never penalizes a candidate.
type User struct {
	ID             uint    `gorm:"primaryKey" json:"id"`
	Email          string  `gorm:"unique;not null" json:"email"`
	Password       string  `gorm:"not null" json:"-"`
	FirstName      *string `json:"first_name"`
	LastName       *string `json:"last_name"`
	Profession     *string `json:"profession"`
	Bio            *string `json:"bio"`
	NativeLanguage *string `json:"native_language"`
	// Hobbies is a comma-separated list of hobby tags. Nil means the user
	// never picked any.
	Hobbies *string `gorm:"type:text" json:"hobbies"`
	Points  int     `json:"points"`
	// ProfileComplete is a derived value, persisted for query convenience.
	// It is recomputed from the attributes after every batch of profile
	// writes and is never accepted as client input.
	ProfileComplete bool           `json:"profile_complete"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// HobbyList splits the stored hobby tags into a slice. Empty entries are
// dropped so a trailing comma does not produce a phantom hobby.
func (u *User) HobbyList() []string {
	if u.Hobbies == nil {
		return nil
	}
	var hobbies []string
	for _, h := range strings.Split(*u.Hobbies, ",") {
		h = strings.TrimSpace(h)
		if h != "" {
			hobbies = append(hobbies, h)
		}
	}
	return hobbies
}

// ComputeProfileComplete derives profile completeness from the current
// attribute set: first name, last name and at least one hobby tag must all
// be present. Pure function of the attributes; callers persist the result
// after a batch of profile writes.
func (u *User) ComputeProfileComplete() bool {
	return u.FirstName != nil && u.LastName != nil && len(u.HobbyList()) > 0
}

// UserSummary is the public identity projection returned by suggestion and
// connection endpoints. Scores and private fields are never exposed.
type UserSummary struct {
	ID             uint    `json:"id"`
	FirstName      *string `json:"first_name"`
	LastName       *string `json:"last_name"`
	Profession     *string `json:"profession"`
	NativeLanguage *string `json:"native_language"`
}

// Summary returns the public identity projection of the user.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:             u.ID,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Profession:     u.Profession,
		NativeLanguage: u.NativeLanguage,
	}
}
