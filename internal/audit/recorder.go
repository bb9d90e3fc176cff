// Package audit writes and queries the append-only system log. Writes are
// best-effort: a failed write is logged and counted but never reaches the
// caller.
package audit

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"barangayreport/internal/apperr"
	"barangayreport/internal/metrics"
	"barangayreport/internal/models"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

type Sink interface {
	InsertSystemLog(ctx context.Context, l *models.SystemLog) error
	QuerySystemLogs(ctx context.Context, q models.LogQuery) ([]models.SystemLog, error)
}

// UserLookup is implemented by sinks that can resolve an actor's user record.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (models.User, error)
}

type Entry struct {
	Actor        *models.User
	Action       string
	Module       string
	AffectedData string
	Metadata     models.Metadata
}

type Filter struct {
	Role   string
	Module string
	UserID string
	Search string
	Limit  int
}

type Recorder struct {
	sink         Sink
	log          *zap.Logger
	metrics      *metrics.Metrics
	defaultLimit int
	maxLimit     int
}

type Option func(*Recorder)

// WithLimits overrides the query page size defaults.
func WithLimits(def, max int) Option {
	return func(r *Recorder) {
		if def > 0 {
			r.defaultLimit = def
		}
		if max > 0 {
			r.maxLimit = max
		}
	}
}

func NewRecorder(sink Sink, logger *zap.Logger, m *metrics.Metrics, opts ...Option) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Recorder{
		sink:         sink,
		log:          logger.Named("audit"),
		metrics:      m,
		defaultLimit: DefaultLimit,
		maxLimit:     MaxLimit,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.defaultLimit > r.maxLimit {
		r.defaultLimit = r.maxLimit
	}
	return r
}

// Record persists e with the client address and user agent carried by ctx.
// The write is detached from ctx cancellation.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	ctx = context.WithoutCancel(ctx)
	client := ClientFrom(ctx)
	l := models.SystemLog{
		Action:    e.Action,
		Module:    e.Module,
		IPAddress: client.IP,
		UserAgent: client.UserAgent,
		Metadata:  e.Metadata,
	}
	if e.Actor != nil && e.Actor.ID != "" {
		id, name, role := e.Actor.ID, e.Actor.Username, string(e.Actor.Role)
		l.UserID = &id
		if name == "" || role == "" {
			name, role = r.resolveActor(ctx, id, name, role)
		}
		if name != "" {
			l.UserName = &name
		}
		if role != "" {
			l.UserRole = &role
		}
	}
	if e.AffectedData != "" {
		data := e.AffectedData
		l.AffectedData = &data
	}
	if err := r.sink.InsertSystemLog(ctx, &l); err != nil {
		r.metrics.AuditWriteFailed()
		r.log.Error("audit log write failed",
			zap.String("action", e.Action),
			zap.String("module", e.Module),
			zap.Stringp("user_id", l.UserID),
			zap.Error(err),
		)
	}
}

// resolveActor fills a missing username or role from the user record when
// the sink can look users up.
func (r *Recorder) resolveActor(ctx context.Context, id, name, role string) (string, string) {
	users, ok := r.sink.(UserLookup)
	if !ok {
		return name, role
	}
	u, err := users.GetUserByID(ctx, id)
	if err != nil {
		r.log.Warn("audit actor lookup failed", zap.String("user_id", id), zap.Error(err))
		return name, role
	}
	if name == "" {
		name = u.Username
	}
	if role == "" {
		role = string(u.Role)
	}
	return name, role
}

// Query returns system log entries for an admin, newest first.
func (r *Recorder) Query(ctx context.Context, actor *models.User, f Filter) ([]models.SystemLog, error) {
	if actor == nil {
		return nil, apperr.ErrAuthenticationRequired
	}
	if actor.Role != models.RoleAdmin {
		return nil, apperr.Forbidden("only admins may view system logs")
	}
	limit := f.Limit
	switch {
	case limit < 0:
		return nil, apperr.Validation("limit must be a positive integer")
	case limit == 0:
		limit = r.defaultLimit
	case limit > r.maxLimit:
		limit = r.maxLimit
	}
	logs, err := r.sink.QuerySystemLogs(ctx, models.LogQuery{
		Role:   strings.TrimSpace(f.Role),
		Module: strings.TrimSpace(f.Module),
		UserID: strings.TrimSpace(f.UserID),
		Search: strings.TrimSpace(f.Search),
		Limit:  limit,
	})
	if err != nil {
		return nil, apperr.Persistence("query system logs", err)
	}
	return logs, nil
}

// ParseLimit reads a limit query value. An empty value selects the default.
func ParseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, apperr.Validation("limit must be a positive integer")
	}
	return n, nil
}
