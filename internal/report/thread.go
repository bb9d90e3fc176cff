package report

import (
	"context"

	"barangayreport/internal/apperr"
	"barangayreport/internal/models"
)

// Messages returns the report thread in append order. Read access follows Get.
func (m *Manager) Messages(ctx context.Context, actor *models.User, reportID string) ([]models.ReportMessage, error) {
	if _, err := m.Get(ctx, actor, reportID); err != nil {
		return nil, err
	}
	msgs, err := m.repo.ListMessages(ctx, reportID)
	if err != nil {
		return nil, apperr.Persistence("list messages", err)
	}
	return msgs, nil
}
