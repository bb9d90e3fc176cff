package store

import (
	"context"
	"strings"

	"github.com/georgysavva/scany/v2/sqlscan"

	"barangayreport/internal/models"
)

const memoSelect = `SELECT m.id, m.title, m.description, m.category, m.status, m.effective_date, m.file_url,
	m.issued_by, u.username AS issuer_name, m.created_at, m.updated_at
	FROM memos m LEFT JOIN users u ON u.id = m.issued_by`

func (s *Store) CreateMemo(ctx context.Context, m *models.Memo) error {
	ts := now()
	m.CreatedAt = ts
	m.UpdatedAt = ts
	_, err := s.exec(ctx,
		`INSERT INTO memos(id,title,description,category,status,effective_date,file_url,issued_by,created_at,updated_at) VALUES(?,?,?,?,?,?,?,?,?,?)`,
		m.ID, m.Title, m.Description, string(m.Category), string(m.Status), m.EffectiveDate, m.FileURL, m.IssuedBy, m.CreatedAt, m.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (s *Store) GetMemo(ctx context.Context, id string) (models.Memo, error) {
	var m models.Memo
	err := sqlscan.Get(ctx, s.q, &m, s.rebind(memoSelect+` WHERE m.id=?`), id)
	if sqlscan.NotFound(err) {
		return models.Memo{}, ErrNotFound
	}
	if err != nil {
		return models.Memo{}, err
	}
	return m, nil
}

// ListMemos returns memos newest first. OnlyApproved overrides Status.
func (s *Store) ListMemos(ctx context.Context, q models.MemoQuery) ([]models.Memo, error) {
	var where []string
	var args []any
	switch {
	case q.OnlyApproved:
		where = append(where, "m.status=?")
		args = append(args, string(models.MemoApproved))
	case q.Status != "":
		where = append(where, "m.status=?")
		args = append(args, string(q.Status))
	}
	if q.Category != "" {
		where = append(where, "m.category=?")
		args = append(args, string(q.Category))
	}
	query := memoSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY m.created_at DESC, m.id DESC"

	out := []models.Memo{}
	if err := sqlscan.Select(ctx, s.q, &out, s.rebind(query), args...); err != nil {
		return nil, err
	}
	return out, nil
}

// DecideMemo moves a pending memo to status. ErrConflict means the memo was
// no longer pending.
func (s *Store) DecideMemo(ctx context.Context, id string, status models.MemoStatus) error {
	res, err := s.exec(ctx,
		`UPDATE memos SET status=?, updated_at=? WHERE id=? AND status=?`,
		string(status), now(), id, string(models.MemoPending),
	)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}
