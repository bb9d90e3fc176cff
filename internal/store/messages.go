package store

import (
	"context"

	"github.com/georgysavva/scany/v2/sqlscan"

	"barangayreport/internal/models"
)

// AppendMessage assigns the next sequence number for the report and inserts
// m. Callers run it inside InTx next to the report update so the sequence is
// taken under the report row lock.
func (s *Store) AppendMessage(ctx context.Context, m *models.ReportMessage) error {
	if err := s.q.QueryRowContext(ctx,
		s.rebind(`SELECT COALESCE(MAX(seq), 0) + 1 FROM report_messages WHERE report_id=?`), m.ReportID,
	).Scan(&m.Seq); err != nil {
		return err
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now()
	}
	if m.Images == nil {
		m.Images = models.StringList{}
	}
	_, err := s.exec(ctx,
		`INSERT INTO report_messages(id,report_id,seq,sender_id,sender_role,message,images,created_at) VALUES(?,?,?,?,?,?,?,?)`,
		m.ID, m.ReportID, m.Seq, m.SenderID, string(m.SenderRole), m.Message, m.Images, m.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

// ListMessages returns the thread of a report in append order.
func (s *Store) ListMessages(ctx context.Context, reportID string) ([]models.ReportMessage, error) {
	out := []models.ReportMessage{}
	err := sqlscan.Select(ctx, s.q, &out, s.rebind(
		`SELECT m.id, m.report_id, m.seq, m.sender_id, m.sender_role, u.username AS sender_name, m.message, m.images, m.created_at
		FROM report_messages m LEFT JOIN users u ON u.id = m.sender_id
		WHERE m.report_id=? ORDER BY m.seq ASC`), reportID)
	if err != nil {
		return nil, err
	}
	return out, nil
}
