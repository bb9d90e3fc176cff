package store

import (
	"context"
	"strings"

	"github.com/georgysavva/scany/v2/sqlscan"

	"barangayreport/internal/models"
)

const reportSelect = `SELECT r.id, r.category, r.description, r.priority, r.location, r.status,
	r.images, r.additional_info, r.additional_info_images, r.admin_feedback,
	r.submitted_by, u.username AS submitter_name, r.submitted_at, r.updated_at
	FROM reports r LEFT JOIN users u ON u.id = r.submitted_by`

// CreateReport inserts r and fills its timestamps.
func (s *Store) CreateReport(ctx context.Context, r *models.Report) error {
	ts := now()
	r.SubmittedAt = ts
	r.UpdatedAt = ts
	if r.Images == nil {
		r.Images = models.StringList{}
	}
	if r.AdditionalInfoImages == nil {
		r.AdditionalInfoImages = models.StringList{}
	}
	_, err := s.exec(ctx,
		`INSERT INTO reports(id,category,description,priority,location,status,images,additional_info,additional_info_images,admin_feedback,submitted_by,submitted_at,updated_at)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		r.ID, r.Category, r.Description, string(r.Priority), r.Location, string(r.Status),
		r.Images, r.AdditionalInfo, r.AdditionalInfoImages, r.AdminFeedback,
		r.SubmittedBy, r.SubmittedAt, r.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (s *Store) GetReport(ctx context.Context, id string) (models.Report, error) {
	var r models.Report
	err := sqlscan.Get(ctx, s.q, &r, s.rebind(reportSelect+` WHERE r.id=?`), id)
	if sqlscan.NotFound(err) {
		return models.Report{}, ErrNotFound
	}
	if err != nil {
		return models.Report{}, err
	}
	return r, nil
}

// ListReports returns matching reports, newest submission first.
func (s *Store) ListReports(ctx context.Context, q models.ReportQuery) ([]models.Report, error) {
	var where []string
	var args []any
	if q.SubmittedBy != "" {
		where = append(where, "r.submitted_by=?")
		args = append(args, q.SubmittedBy)
	}
	if q.Status != "" {
		where = append(where, "r.status=?")
		args = append(args, string(q.Status))
	}
	if q.Category != "" {
		where = append(where, "r.category=?")
		args = append(args, q.Category)
	}
	query := reportSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY r.submitted_at DESC, r.id DESC"

	out := []models.Report{}
	if err := sqlscan.Select(ctx, s.q, &out, s.rebind(query), args...); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateReport applies patch only while the report is still in the expected
// status. It returns ErrNotFound for a missing report and ErrConflict when
// the status moved underneath the caller.
func (s *Store) UpdateReport(ctx context.Context, id string, expected models.ReportStatus, patch models.ReportPatch) error {
	sets := []string{}
	args := []any{}
	if patch.Status != nil {
		sets = append(sets, "status=?")
		args = append(args, string(*patch.Status))
	}
	if patch.AdminFeedback != nil {
		sets = append(sets, "admin_feedback=?")
		args = append(args, *patch.AdminFeedback)
	}
	if patch.AdditionalInfo != nil {
		sets = append(sets, "additional_info=?")
		args = append(args, *patch.AdditionalInfo)
	}
	if patch.AdditionalInfoImages != nil {
		sets = append(sets, "additional_info_images=?")
		args = append(args, patch.AdditionalInfoImages)
	}
	updatedAt := patch.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now()
	}
	sets = append(sets, "updated_at=?")
	args = append(args, updatedAt, id, string(expected))

	res, err := s.exec(ctx, `UPDATE reports SET `+strings.Join(sets, ", ")+` WHERE id=? AND status=?`, args...)
	if err != nil {
		return err
	}
	if err := requireOneRow(res); err != ErrConflict {
		return err
	}
	var n int
	if err := s.q.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM reports WHERE id=?`), id).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrConflict
}

// ApplyReportUpdate writes the conditional report update and appends msgs in
// one transaction. Sequence numbers are assigned into msgs.
func (s *Store) ApplyReportUpdate(ctx context.Context, id string, expected models.ReportStatus, patch models.ReportPatch, msgs []*models.ReportMessage) error {
	return s.InTx(ctx, func(ctx context.Context, tx *Store) error {
		if err := tx.UpdateReport(ctx, id, expected, patch); err != nil {
			return err
		}
		for _, m := range msgs {
			m.ReportID = id
			if err := tx.AppendMessage(ctx, m); err != nil {
				return err
			}
		}
		return nil
	})
}
