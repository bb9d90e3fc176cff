// Package service handles accounts and sessions: login, logout, session
// validation and admin user management.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"barangayreport/internal/apperr"
	"barangayreport/internal/audit"
	"barangayreport/internal/auth"
	"barangayreport/internal/config"
	"barangayreport/internal/metrics"
	"barangayreport/internal/models"
	"barangayreport/internal/store"
)

var (
	ErrInvalidCredentials = &apperr.Error{Kind: apperr.KindAuthenticationRequired, Message: "invalid username or password"}
	ErrInvalidSession     = &apperr.Error{Kind: apperr.KindAuthenticationRequired, Message: "invalid session"}
)

const (
	moduleAuth  = "Authentication"
	moduleUsers = "Users"

	maxUsernameLength = 64
)

type Recorder interface {
	Record(ctx context.Context, e audit.Entry)
}

type Service struct {
	cfg     config.Config
	st      *store.Store
	audit   Recorder
	metrics *metrics.Metrics
	log     *zap.Logger
	hasher  auth.Params
	now     func() time.Time
}

type Option func(*Service)

// WithPasswordParams overrides the Argon2id cost for new hashes.
func WithPasswordParams(p auth.Params) Option {
	return func(s *Service) { s.hasher = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(cfg config.Config, st *store.Store, rec Recorder, m *metrics.Metrics, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		cfg:     cfg,
		st:      st,
		audit:   rec,
		metrics: m,
		log:     logger.Named("accounts"),
		hasher:  auth.DefaultParams,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Login(ctx context.Context, username, password string) (rawToken string, user models.User, err error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", models.User{}, apperr.Validation("username and password are required")
	}
	u, err := s.st.GetUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		s.failedLogin(ctx, nil, username, "User not found")
		return "", models.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return "", models.User{}, apperr.Persistence("load user", err)
	}
	if !auth.VerifyPassword(u.PasswordHash, password) {
		s.failedLogin(ctx, &u, username, "Invalid password")
		return "", models.User{}, ErrInvalidCredentials
	}

	raw, tokenHash, err := auth.NewOpaqueToken()
	if err != nil {
		return "", models.User{}, err
	}
	client := audit.ClientFrom(ctx)
	now := s.now()
	sess := models.Session{
		ID:            uuid.NewString(),
		UserID:        u.ID,
		TokenHash:     tokenHash,
		IPAddress:     client.IP,
		UserAgent:     client.UserAgent,
		ExpiresAt:     now.Add(s.cfg.SessionAbsoluteTimeout),
		IdleExpiresAt: now.Add(s.cfg.SessionIdleTimeout),
		CreatedAt:     now,
		LastSeenAt:    now,
	}
	if err := s.st.CreateSession(ctx, sess); err != nil {
		return "", models.User{}, apperr.Persistence("create session", err)
	}
	s.metrics.LoginAttempt("success")
	s.audit.Record(ctx, audit.Entry{
		Actor:        &u,
		Action:       "User logged in",
		Module:       moduleAuth,
		AffectedData: "Username: " + u.Username,
		Metadata:     models.Metadata{"sessionId": sess.ID},
	})
	return raw, u, nil
}

func (s *Service) failedLogin(ctx context.Context, u *models.User, username, reason string) {
	s.metrics.LoginAttempt("failure")
	s.log.Info("login failed", zap.String("username", username), zap.String("reason", reason))
	s.audit.Record(ctx, audit.Entry{
		Actor:        u,
		Action:       "Failed login attempt",
		Module:       moduleAuth,
		AffectedData: "Username: " + username,
		Metadata:     models.Metadata{"reason": reason},
	})
}

// ValidateSession resolves a raw session token to its user and slides the
// idle expiry forward.
func (s *Service) ValidateSession(ctx context.Context, rawToken string) (models.User, models.Session, error) {
	if rawToken == "" {
		return models.User{}, models.Session{}, ErrInvalidSession
	}
	sess, err := s.st.GetSessionByTokenHash(ctx, auth.HashToken(rawToken))
	if errors.Is(err, store.ErrNotFound) {
		return models.User{}, models.Session{}, ErrInvalidSession
	}
	if err != nil {
		return models.User{}, models.Session{}, apperr.Persistence("load session", err)
	}
	now := s.now()
	if sess.RevokedAt != nil || now.After(sess.ExpiresAt) || now.After(sess.IdleExpiresAt) {
		return models.User{}, models.Session{}, ErrInvalidSession
	}
	idle := now.Add(s.cfg.SessionIdleTimeout)
	if idle.After(sess.ExpiresAt) {
		idle = sess.ExpiresAt
	}
	if err := s.st.TouchSession(ctx, sess.ID, idle); err != nil {
		s.log.Warn("session touch failed", zap.String("session_id", sess.ID), zap.Error(err))
	}
	u, err := s.st.GetUserByID(ctx, sess.UserID)
	if err != nil {
		return models.User{}, models.Session{}, ErrInvalidSession
	}
	return u, sess, nil
}

func (s *Service) Logout(ctx context.Context, actor *models.User, sess models.Session) error {
	if err := s.st.RevokeSession(ctx, sess.ID); err != nil {
		return apperr.Persistence("revoke session", err)
	}
	entry := audit.Entry{Actor: actor, Action: "User logged out", Module: moduleAuth}
	if actor != nil {
		entry.AffectedData = "Username: " + actor.Username
	}
	s.audit.Record(ctx, entry)
	return nil
}

type CreateUserInput struct {
	Username string
	Password string
	Role     string
}

func (s *Service) CreateUser(ctx context.Context, actor *models.User, in CreateUserInput) (models.User, error) {
	if err := requireAdmin(actor, "only admins may create users"); err != nil {
		return models.User{}, err
	}
	username := strings.TrimSpace(in.Username)
	if username == "" || utf8.RuneCountInString(username) > maxUsernameLength {
		return models.User{}, apperr.Validation("username must be 1 to %d characters", maxUsernameLength)
	}
	if err := auth.CheckPasswordPolicy(in.Password); err != nil {
		return models.User{}, apperr.Validation("%s", err.Error())
	}
	role := models.Role(strings.ToLower(strings.TrimSpace(in.Role)))
	if role == "" {
		role = models.RoleResident
	}
	if !role.Valid() {
		return models.User{}, apperr.Validation("role must be resident, official or admin")
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return models.User{}, err
	}
	u, err := s.st.CreateUser(ctx, username, hash, role)
	if errors.Is(err, store.ErrConflict) {
		return models.User{}, apperr.Conflict("username %q is already taken", username)
	}
	if err != nil {
		return models.User{}, apperr.Persistence("create user", err)
	}
	s.audit.Record(ctx, audit.Entry{
		Actor:        actor,
		Action:       "Created user account",
		Module:       moduleUsers,
		AffectedData: fmt.Sprintf("Username: %s, Role: %s", u.Username, u.Role),
		Metadata:     models.Metadata{"userId": u.ID, "role": string(u.Role)},
	})
	return u, nil
}

func (s *Service) ListUsers(ctx context.Context, actor *models.User) ([]models.User, error) {
	if err := requireAdmin(actor, "only admins may list users"); err != nil {
		return nil, err
	}
	users, err := s.st.ListUsers(ctx)
	if err != nil {
		return nil, apperr.Persistence("list users", err)
	}
	return users, nil
}

// EnsureBootstrapAdmin creates or resets the admin account named in config.
func (s *Service) EnsureBootstrapAdmin(ctx context.Context) error {
	username := strings.TrimSpace(s.cfg.BootstrapAdminUsername)
	if username == "" {
		return nil
	}
	hash, err := s.hasher.Hash(s.cfg.BootstrapAdminPassword)
	if err != nil {
		return fmt.Errorf("hash bootstrap admin password: %w", err)
	}
	if err := s.st.EnsureUser(ctx, username, hash, models.RoleAdmin); err != nil {
		return fmt.Errorf("ensure bootstrap admin: %w", err)
	}
	s.log.Info("bootstrap admin ensured", zap.String("username", username))
	return nil
}

func requireAdmin(actor *models.User, msg string) error {
	if actor == nil {
		return apperr.ErrAuthenticationRequired
	}
	if actor.Role != models.RoleAdmin {
		return apperr.Forbidden("%s", msg)
	}
	return nil
}
