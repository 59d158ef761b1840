package user

import "context"

// Store is the system-of-record port for users. Implementations return
// sentinel.ErrNotFound for missing rows and sentinel.ErrConflict when a
// unique attribute is already taken.
type Store interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id int64) error
}
