package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"barangayreport/internal/apperr"
	"barangayreport/internal/audit"
	"barangayreport/internal/models"
)

// Patch is a partial report update. Nil fields are not touched.
type Patch struct {
	Status               *string
	AdminFeedback        *string
	AdditionalInfo       *string
	AdditionalInfoImages []string
}

func (p Patch) empty() bool {
	return p.Status == nil && p.AdminFeedback == nil && p.AdditionalInfo == nil && p.AdditionalInfoImages == nil
}

// Update applies p to the report. The report row and any thread messages are
// written in one transaction; the audit entry follows the commit.
func (m *Manager) Update(ctx context.Context, actor *models.User, id string, p Patch) (models.Report, error) {
	if actor == nil {
		return models.Report{}, apperr.ErrAuthenticationRequired
	}
	if p.empty() {
		return models.Report{}, apperr.Validation("no changes supplied")
	}
	var requested models.ReportStatus
	if p.Status != nil {
		requested = models.ReportStatus(strings.TrimSpace(*p.Status))
		if !ValidStatus(requested) {
			return models.Report{}, apperr.Validation("invalid status %q", *p.Status)
		}
	}
	feedback, err := optionalText("adminFeedback", p.AdminFeedback)
	if err != nil {
		return models.Report{}, err
	}
	info, err := optionalText("additionalInfo", p.AdditionalInfo)
	if err != nil {
		return models.Report{}, err
	}
	if p.AdditionalInfoImages != nil && info == nil {
		return models.Report{}, apperr.Validation("additionalInfoImages requires additionalInfo")
	}

	current, err := m.repo.GetReport(ctx, id)
	if err != nil {
		return models.Report{}, translate("load report", err)
	}

	if (p.Status != nil || feedback != nil) && !actor.Role.Privileged() {
		return models.Report{}, apperr.Forbidden("only officials and admins may change status or request information")
	}
	if info != nil && actor.ID != current.SubmittedBy {
		return models.Report{}, apperr.Forbidden("only the resident who filed the report may provide additional information")
	}

	from := current.Status
	target := from
	switch {
	case p.Status != nil:
		target = requested
	case feedback != nil && from == models.StatusInProgress:
		target = models.StatusValidation
	case info != nil && from == models.StatusValidation:
		target = models.StatusReviewed
	}
	statusChanged := target != from
	if statusChanged && !CanTransition(from, target) {
		return models.Report{}, apperr.InvalidTransition("cannot move report from %s to %s", from, target)
	}

	var patch models.ReportPatch
	var msgs []*models.ReportMessage
	changes := []string{}
	if statusChanged {
		patch.Status = &target
		changes = append(changes, "status")
	}
	if feedback != nil {
		patch.AdminFeedback = feedback
		changes = append(changes, "adminFeedback")
		msgs = append(msgs, &models.ReportMessage{
			ID:         uuid.NewString(),
			SenderID:   actor.ID,
			SenderRole: actor.Role,
			Message:    *feedback,
			Images:     models.StringList{},
		})
	}
	if info != nil {
		images := cleanList(p.AdditionalInfoImages)
		patch.AdditionalInfo = info
		patch.AdditionalInfoImages = images
		changes = append(changes, "additionalInfo")
		msgs = append(msgs, &models.ReportMessage{
			ID:         uuid.NewString(),
			SenderID:   actor.ID,
			SenderRole: actor.Role,
			Message:    *info,
			Images:     images,
		})
	}

	if err := m.repo.ApplyReportUpdate(ctx, current.ID, from, patch, msgs); err != nil {
		return models.Report{}, translate("update report", err)
	}
	// The update is committed; finish on a detached context.
	ctx = context.WithoutCancel(ctx)
	if statusChanged {
		m.metrics.ReportTransitioned(string(from), string(target))
		m.log.Debug("report status changed",
			zap.String("report_id", current.ID),
			zap.String("from", string(from)),
			zap.String("to", string(target)),
		)
	}

	m.audit.Record(ctx, updateEntry(actor, current.ID, from, target, feedback != nil, info != nil, changes))

	updated, err := m.repo.GetReport(ctx, current.ID)
	if err != nil {
		return models.Report{}, translate("reload report", err)
	}
	return updated, nil
}

// updateEntry picks one audit label per update. A status change takes
// precedence over the thread messages written with it.
func updateEntry(actor *models.User, id string, from, to models.ReportStatus, feedback, info bool, changes []string) audit.Entry {
	e := audit.Entry{
		Actor:    actor,
		Module:   auditModule,
		Metadata: models.Metadata{"reportId": id, "changes": changes},
	}
	switch {
	case from != to:
		e.Action = "Updated report status"
		e.AffectedData = fmt.Sprintf("Report ID: %s - Status changed from %s to %s", id, from, to)
		e.Metadata["fromStatus"] = string(from)
		e.Metadata["toStatus"] = string(to)
	case info:
		e.Action = "Provided additional information"
		e.AffectedData = fmt.Sprintf("Report ID: %s - Responded to admin inquiry", id)
	case feedback:
		e.Action = "Requested additional information"
		e.AffectedData = fmt.Sprintf("Report ID: %s - Requested additional info from resident", id)
	default:
		e.Action = "Updated report"
		e.AffectedData = fmt.Sprintf("Report ID: %s", id)
	}
	return e
}

func optionalText(field string, v *string) (*string, error) {
	if v == nil {
		return nil, nil
	}
	text := strings.TrimSpace(*v)
	if text == "" {
		return nil, apperr.Validation("%s must not be empty", field)
	}
	return &text, nil
}
