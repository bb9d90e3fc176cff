package store

import (
	"context"
	"strings"

	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/google/uuid"

	"barangayreport/internal/models"
)

const userColumns = `id,username,password_hash,role,created_at`

func (s *Store) CreateUser(ctx context.Context, username, passwordHash string, role models.Role) (models.User, error) {
	u := models.User{
		ID:           uuid.NewString(),
		Username:     strings.TrimSpace(username),
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now(),
	}
	_, err := s.exec(ctx,
		`INSERT INTO users(id,username,password_hash,role,created_at) VALUES(?,?,?,?,?)`,
		u.ID, u.Username, u.PasswordHash, string(u.Role), u.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, ErrConflict
		}
		return models.User{}, err
	}
	return u, nil
}

// EnsureUser creates the account or resets its password and role.
func (s *Store) EnsureUser(ctx context.Context, username, passwordHash string, role models.Role) error {
	username = strings.TrimSpace(username)
	if username == "" || passwordHash == "" {
		return nil
	}
	u, err := s.GetUserByUsername(ctx, username)
	if err == ErrNotFound {
		_, err = s.CreateUser(ctx, username, passwordHash, role)
		return err
	}
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, `UPDATE users SET password_hash=?, role=? WHERE id=?`, passwordHash, string(role), u.ID)
	return err
}

func (s *Store) GetUserByID(ctx context.Context, id string) (models.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id=?`, id)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE username=?`, strings.TrimSpace(username))
}

func (s *Store) getUser(ctx context.Context, query string, arg string) (models.User, error) {
	var u models.User
	if err := sqlscan.Get(ctx, s.q, &u, s.rebind(query), arg); err != nil {
		if sqlscan.NotFound(err) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	out := []models.User{}
	if err := sqlscan.Select(ctx, s.q, &out, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`); err != nil {
		return nil, err
	}
	return out, nil
}
