package repository

import (
	"context"

	"github.com/debdutta777/noobwriter-sub000/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProfileRepository struct {
	db *pgxpool.Pool
}

func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetByID retrieves a profile. Returns nil when absent.
func (r *ProfileRepository) GetByID(ctx context.Context, id int64) (*domain.Profile, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, username, role, created_at FROM profiles WHERE id = $1
	`, id)

	var p domain.Profile
	if err := row.Scan(&p.ID, &p.Username, &p.Role, &p.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return &p, nil
}

// GetRole returns the caller's role for admin gating. Missing profiles read
// as RoleReader so the gate fails closed.
func (r *ProfileRepository) GetRole(ctx context.Context, id int64) (domain.Role, error) {
	var role domain.Role
	err := r.db.QueryRow(ctx, `SELECT role FROM profiles WHERE id = $1`, id).Scan(&role)
	if err == pgx.ErrNoRows {
		return domain.RoleReader, nil
	}
	return role, err
}

// Create inserts a profile under the id assigned by the main app. Identity
// lives there; this exists for seeding and tests.
func (r *ProfileRepository) Create(ctx context.Context, p *domain.Profile) error {
	if p.Role == "" {
		p.Role = domain.RoleReader
	}
	return r.db.QueryRow(ctx, `
		INSERT INTO profiles (id, username, role)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, p.ID, p.Username, p.Role).Scan(&p.CreatedAt)
}
