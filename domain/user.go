package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents a registered account. Users own Posts and Likes; deleting a User
// deletes both through the database's ON DELETE CASCADE constraints.
// Password only ever holds the bcrypt hash once the User has been stored,
// and it is never serialized.
type User struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Username string    `json:"username" gorm:"type:varchar(50);not null"`
	Email    string    `json:"email" gorm:"type:varchar(50);not null;uniqueIndex"`
	Password string    `json:"-" gorm:"type:text;not null"`

	Posts []Post `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Likes []Like `json:"-" gorm:"constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a new UUID to users that don't have one yet.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// UserService is a set of methods to manipulate and work with the User model.
type UserService interface {
	Users(ctx context.Context, page Page) ([]User, error)
	Search(ctx context.Context, q string, page Page) ([]User, error)
	ByID(ctx context.Context, id uuid.UUID) (*User, error)
	ByUsername(ctx context.Context, username string) (*User, error)
	LikedPosts(ctx context.Context, id uuid.UUID) ([]Post, error)
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, id uuid.UUID, upd UserUpdate) (*User, error)
	ChangePassword(ctx context.Context, id uuid.UUID, upd PasswordUpdate) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// UserUpdate holds the fields of a partial user update. Nil fields are left untouched.
type UserUpdate struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// PasswordUpdate is used to replace a user's password after verifying the old one.
type PasswordUpdate struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}
