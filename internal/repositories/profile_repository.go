package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"finportal/internal/models"
)

type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	MarkEmailVerified(ctx context.Context, id string) error
	MarkEmailVerifiedByEmail(ctx context.Context, email string) error
	RecordLogin(ctx context.Context, id string, at time.Time) error
	IsEmailVerified(ctx context.Context, id string) (bool, error)
}

type profileRepository struct {
	DB *sql.DB
}

func NewProfileRepository(db *sql.DB) ProfileRepository {
	return &profileRepository{DB: db}
}

const profileCols = `id, email, COALESCE(full_name,''), COALESCE(role,'user'), COALESCE(email_verified,FALSE),
	COALESCE(login_count,0), last_login_at, COALESCE(balance,0), created_at`

func scanProfile(row interface{ Scan(...any) error }) (*models.Profile, error) {
	p := &models.Profile{}
	var lastLogin sql.NullTime
	err := row.Scan(&p.ID, &p.Email, &p.FullName, &p.Role, &p.EmailVerified,
		&p.LoginCount, &lastLogin, &p.Balance, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		p.LastLoginAt = &t
	}
	return p, nil
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	p, err := scanProfile(r.DB.QueryRowContext(ctx, `SELECT `+profileCols+` FROM profiles WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("profile by id: %w", err)
	}
	return p, nil
}

func (r *profileRepository) MarkEmailVerified(ctx context.Context, id string) error {
	if _, err := r.DB.ExecContext(ctx, `UPDATE profiles SET email_verified = TRUE, updated_at = NOW() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("mark email verified: %w", err)
	}
	return nil
}

func (r *profileRepository) MarkEmailVerifiedByEmail(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := r.DB.ExecContext(ctx, `UPDATE profiles SET email_verified = TRUE, updated_at = NOW() WHERE lower(email) = $1`, email); err != nil {
		return fmt.Errorf("mark email verified by email: %w", err)
	}
	return nil
}

// RecordLogin bumps the login counter; last write wins.
func (r *profileRepository) RecordLogin(ctx context.Context, id string, at time.Time) error {
	const q = `
		UPDATE profiles
		SET login_count = COALESCE(login_count, 0) + 1, last_login_at = $2, updated_at = NOW()
		WHERE id = $1
	`
	if _, err := r.DB.ExecContext(ctx, q, id, at); err != nil {
		return fmt.Errorf("record login: %w", err)
	}
	return nil
}

// IsEmailVerified reports the profile's flag. A user without a profile row has nothing to gate on.
func (r *profileRepository) IsEmailVerified(ctx context.Context, id string) (bool, error) {
	var verified sql.NullBool
	err := r.DB.QueryRowContext(ctx, `SELECT email_verified FROM profiles WHERE id = $1`, id).Scan(&verified)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("email verified flag: %w", err)
	}
	return verified.Valid && verified.Bool, nil
}
