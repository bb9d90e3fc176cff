package store

import (
	"context"
	"strings"

	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/google/uuid"

	"barangayreport/internal/models"
)

func (s *Store) InsertSystemLog(ctx context.Context, l *models.SystemLog) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.Timestamp.IsZero() {
		l.Timestamp = now()
	}
	_, err := s.exec(ctx,
		`INSERT INTO system_logs(id,user_id,user_name,user_role,action,affected_data,module,ip_address,user_agent,metadata,logged_at) VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
		l.ID, l.UserID, l.UserName, l.UserRole, l.Action, l.AffectedData, l.Module, l.IPAddress, l.UserAgent, l.Metadata, l.Timestamp,
	)
	return err
}

// QuerySystemLogs returns entries newest first. A non-positive Limit means no limit.
func (s *Store) QuerySystemLogs(ctx context.Context, q models.LogQuery) ([]models.SystemLog, error) {
	var where []string
	var args []any
	if q.Role != "" {
		where = append(where, "user_role=?")
		args = append(args, q.Role)
	}
	if q.Module != "" {
		where = append(where, "module=?")
		args = append(args, q.Module)
	}
	if q.UserID != "" {
		where = append(where, "user_id=?")
		args = append(args, q.UserID)
	}
	if term := strings.TrimSpace(q.Search); term != "" {
		pattern := escapeLike(term)
		where = append(where, `(LOWER(action) LIKE ? ESCAPE '!' OR LOWER(COALESCE(affected_data, '')) LIKE ? ESCAPE '!' OR LOWER(COALESCE(user_name, '')) LIKE ? ESCAPE '!')`)
		args = append(args, pattern, pattern, pattern)
	}
	query := `SELECT id,user_id,user_name,user_role,action,affected_data,module,ip_address,user_agent,metadata,logged_at FROM system_logs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY logged_at DESC, id DESC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	out := []models.SystemLog{}
	if err := sqlscan.Select(ctx, s.q, &out, s.rebind(query), args...); err != nil {
		return nil, err
	}
	return out, nil
}
