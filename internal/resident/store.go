package resident

import "context"

// Store is the system-of-record port for residents. Lookups never return
// logically deleted rows. Implementations return sentinel.ErrNotFound for
// missing rows and sentinel.ErrConflict for duplicate identity-document
// numbers.
type Store interface {
	GetByID(ctx context.Context, id int64) (*Resident, error)
	GetByUserID(ctx context.Context, userID int64) (*Resident, error)
	GetByIDCard(ctx context.Context, idCard string) (*Resident, error)
	Create(ctx context.Context, r *Resident) error
	Update(ctx context.Context, r *Resident) error
	// Delete marks the row logically deleted; the row survives for audit.
	Delete(ctx context.Context, id int64) error
}
