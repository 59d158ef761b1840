package resident

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"popreg/pkg/platform/sentinel"
)

// PostgresStore persists residents in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed resident store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const residentColumns = `id, user_id, real_name, id_card, gender, birth_date, nationality,
	registered_address, current_address, occupation, education, marital_status,
	contact_phone, emergency_contact, emergency_phone, remark, avatar,
	create_time, update_time, deleted`

func (s *PostgresStore) GetByID(ctx context.Context, id int64) (*Resident, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+residentColumns+` FROM residents WHERE id = $1 AND deleted = false`, id)
	return scanResident(row)
}

func (s *PostgresStore) GetByUserID(ctx context.Context, userID int64) (*Resident, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+residentColumns+` FROM residents WHERE user_id = $1 AND deleted = false`, userID)
	return scanResident(row)
}

func (s *PostgresStore) GetByIDCard(ctx context.Context, idCard string) (*Resident, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+residentColumns+` FROM residents WHERE id_card = $1 AND deleted = false`, idCard)
	return scanResident(row)
}

func (s *PostgresStore) Create(ctx context.Context, r *Resident) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO residents (user_id, real_name, id_card, gender, birth_date, nationality,
		   registered_address, current_address, occupation, education, marital_status,
		   contact_phone, emergency_contact, emergency_phone, remark, avatar,
		   create_time, update_time, deleted)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, now(), now(), false)
		 RETURNING id, create_time, update_time`,
		r.UserID, r.RealName, r.IDCard, r.Gender, r.BirthDate, r.Nationality,
		r.RegisteredAddress, r.CurrentAddress, r.Occupation, r.Education, r.MaritalStatus,
		r.ContactPhone, r.EmergencyContact, r.EmergencyPhone, r.Remark, r.Avatar,
	).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create resident: %w", translateErr(err))
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, r *Resident) error {
	err := s.db.QueryRowContext(ctx,
		`UPDATE residents
		 SET user_id = $2, real_name = $3, id_card = $4, gender = $5, birth_date = $6,
		     nationality = $7, registered_address = $8, current_address = $9,
		     occupation = $10, education = $11, marital_status = $12, contact_phone = $13,
		     emergency_contact = $14, emergency_phone = $15, remark = $16, avatar = $17,
		     update_time = now()
		 WHERE id = $1 AND deleted = false
		 RETURNING update_time`,
		r.ID, r.UserID, r.RealName, r.IDCard, r.Gender, r.BirthDate,
		r.Nationality, r.RegisteredAddress, r.CurrentAddress,
		r.Occupation, r.Education, r.MaritalStatus, r.ContactPhone,
		r.EmergencyContact, r.EmergencyPhone, r.Remark, r.Avatar,
	).Scan(&r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update resident: %w", translateErr(err))
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE residents SET deleted = true, update_time = now() WHERE id = $1 AND deleted = false`, id)
	if err != nil {
		return fmt.Errorf("delete resident: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanResident(row *sql.Row) (*Resident, error) {
	var r Resident
	err := row.Scan(&r.ID, &r.UserID, &r.RealName, &r.IDCard, &r.Gender, &r.BirthDate,
		&r.Nationality, &r.RegisteredAddress, &r.CurrentAddress, &r.Occupation,
		&r.Education, &r.MaritalStatus, &r.ContactPhone, &r.EmergencyContact,
		&r.EmergencyPhone, &r.Remark, &r.Avatar, &r.CreatedAt, &r.UpdatedAt, &r.Deleted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan resident: %w", err)
	}
	return &r, nil
}

// translateErr maps postgres unique violations to the conflict sentinel.
func translateErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return sentinel.ErrConflict
	}
	return err
}
