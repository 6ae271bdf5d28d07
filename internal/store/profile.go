package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/civiclens/webclient/types"
)

// ProfileRepository reads the profiles table.
type ProfileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) GetByID(ctx context.Context, id string) (types.Profile, error) {
	const query = `
		SELECT id, email, name, role, department, created_at, updated_at
		FROM profiles
		WHERE id = $1`
	var (
		profile                       types.Profile
		email, name, role, department sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&profile.ID,
		&email,
		&name,
		&role,
		&department,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Profile{}, ErrNotFound
		}
		return types.Profile{}, err
	}
	profile.Email = email.String
	profile.Name = name.String
	profile.Role = role.String
	profile.Department = department.String
	return profile, nil
}
