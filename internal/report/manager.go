// Package report owns the incident report lifecycle and its message thread.
package report

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"barangayreport/internal/apperr"
	"barangayreport/internal/audit"
	"barangayreport/internal/metrics"
	"barangayreport/internal/models"
	"barangayreport/internal/store"
)

const auditModule = "Reports"

type Repository interface {
	CreateReport(ctx context.Context, r *models.Report) error
	GetReport(ctx context.Context, id string) (models.Report, error)
	ListReports(ctx context.Context, q models.ReportQuery) ([]models.Report, error)
	ApplyReportUpdate(ctx context.Context, id string, expected models.ReportStatus, patch models.ReportPatch, msgs []*models.ReportMessage) error
	ListMessages(ctx context.Context, reportID string) ([]models.ReportMessage, error)
}

type Recorder interface {
	Record(ctx context.Context, e audit.Entry)
}

type Manager struct {
	repo    Repository
	audit   Recorder
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewManager(repo Repository, rec Recorder, m *metrics.Metrics, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{repo: repo, audit: rec, metrics: m, log: logger.Named("reports")}
}

type SubmitInput struct {
	Category    string
	Description string
	Priority    string
	Location    string
	Images      []string
}

func (m *Manager) Submit(ctx context.Context, actor *models.User, in SubmitInput) (models.Report, error) {
	if actor == nil {
		return models.Report{}, apperr.ErrAuthenticationRequired
	}
	r := models.Report{
		ID:          uuid.NewString(),
		Category:    strings.TrimSpace(in.Category),
		Description: strings.TrimSpace(in.Description),
		Priority:    models.Priority(strings.ToLower(strings.TrimSpace(in.Priority))),
		Location:    strings.TrimSpace(in.Location),
		Status:      models.StatusSubmitted,
		Images:      cleanList(in.Images),
		SubmittedBy: actor.ID,
	}
	if missing := missingFields(map[string]string{
		"category":    r.Category,
		"description": r.Description,
		"priority":    string(r.Priority),
		"location":    r.Location,
	}); missing != "" {
		return models.Report{}, apperr.Validation("missing required fields: %s", missing)
	}
	if !r.Priority.Valid() {
		return models.Report{}, apperr.Validation("priority must be one of low, medium, high, critical")
	}
	if err := m.repo.CreateReport(ctx, &r); err != nil {
		return models.Report{}, apperr.Persistence("create report", err)
	}
	name := actor.Username
	r.SubmitterName = &name

	m.audit.Record(ctx, audit.Entry{
		Actor:        actor,
		Action:       "Submitted report",
		Module:       auditModule,
		AffectedData: fmt.Sprintf("Report ID: %s, Category: %s, Priority: %s", r.ID, r.Category, r.Priority),
		Metadata: models.Metadata{
			"reportId": r.ID,
			"category": r.Category,
			"priority": string(r.Priority),
			"location": r.Location,
		},
	})
	return r, nil
}

// Get returns a report the actor may read. Residents only see their own.
func (m *Manager) Get(ctx context.Context, actor *models.User, id string) (models.Report, error) {
	if actor == nil {
		return models.Report{}, apperr.ErrAuthenticationRequired
	}
	r, err := m.repo.GetReport(ctx, id)
	if err != nil {
		return models.Report{}, translate("load report", err)
	}
	if !canRead(actor, r) {
		return models.Report{}, apperr.Forbidden("you may only view your own reports")
	}
	return r, nil
}

type ListFilter struct {
	Status   string
	Category string
}

// List returns all reports for triage, newest first.
func (m *Manager) List(ctx context.Context, actor *models.User, f ListFilter) ([]models.Report, error) {
	if actor == nil {
		return nil, apperr.ErrAuthenticationRequired
	}
	if !actor.Role.Privileged() {
		return nil, apperr.Forbidden("only officials and admins may list all reports")
	}
	q := models.ReportQuery{Category: filterValue(f.Category)}
	if status := filterValue(f.Status); status != "" {
		q.Status = models.ReportStatus(status)
		if !ValidStatus(q.Status) {
			return nil, apperr.Validation("unknown status %q", status)
		}
	}
	reports, err := m.repo.ListReports(ctx, q)
	if err != nil {
		return nil, apperr.Persistence("list reports", err)
	}
	return reports, nil
}

func (m *Manager) ListBySubmitter(ctx context.Context, actor *models.User, userID string) ([]models.Report, error) {
	if actor == nil {
		return nil, apperr.ErrAuthenticationRequired
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperr.Validation("user id is required")
	}
	if !actor.Role.Privileged() && actor.ID != userID {
		return nil, apperr.Forbidden("you may only list your own reports")
	}
	reports, err := m.repo.ListReports(ctx, models.ReportQuery{SubmittedBy: userID})
	if err != nil {
		return nil, apperr.Persistence("list reports", err)
	}
	return reports, nil
}

func canRead(actor *models.User, r models.Report) bool {
	return actor.Role.Privileged() || actor.ID == r.SubmittedBy
}

// translate maps store sentinels onto API error kinds.
func translate(op string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound("report not found")
	case errors.Is(err, store.ErrConflict):
		return apperr.InvalidTransition("report was modified concurrently")
	}
	return apperr.Persistence(op, err)
}

// filterValue treats "all" as no filter.
func filterValue(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, "all") {
		return ""
	}
	return v
}

func missingFields(fields map[string]string) string {
	var missing []string
	for _, name := range []string{"category", "description", "priority", "location"} {
		if v, ok := fields[name]; ok && v == "" {
			missing = append(missing, name)
		}
	}
	return strings.Join(missing, ", ")
}

func cleanList(in []string) models.StringList {
	out := models.StringList{}
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
