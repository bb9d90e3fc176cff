// Package memo implements the memo and ordinance approval workflow.
package memo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"barangayreport/internal/apperr"
	"barangayreport/internal/audit"
	"barangayreport/internal/metrics"
	"barangayreport/internal/models"
	"barangayreport/internal/store"
)

const auditModule = "Memos"

type Repository interface {
	CreateMemo(ctx context.Context, m *models.Memo) error
	GetMemo(ctx context.Context, id string) (models.Memo, error)
	ListMemos(ctx context.Context, q models.MemoQuery) ([]models.Memo, error)
	DecideMemo(ctx context.Context, id string, status models.MemoStatus) error
}

type Recorder interface {
	Record(ctx context.Context, e audit.Entry)
}

type Workflow struct {
	repo    Repository
	audit   Recorder
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewWorkflow(repo Repository, rec Recorder, m *metrics.Metrics, logger *zap.Logger) *Workflow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workflow{repo: repo, audit: rec, metrics: m, log: logger.Named("memos")}
}

type CreateInput struct {
	Title         string
	Description   string
	Category      string
	EffectiveDate string
	FileURL       string
}

// Create files a memo. Admin memos are published immediately; official memos
// wait for an admin decision.
func (w *Workflow) Create(ctx context.Context, actor *models.User, in CreateInput) (models.Memo, error) {
	if actor == nil {
		return models.Memo{}, apperr.ErrAuthenticationRequired
	}
	if !actor.Role.Privileged() {
		return models.Memo{}, apperr.Forbidden("residents cannot create memos")
	}
	m := models.Memo{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Category:    models.MemoCategory(strings.ToLower(strings.TrimSpace(in.Category))),
		Status:      models.MemoPending,
		IssuedBy:    actor.ID,
	}
	if m.Title == "" || m.Description == "" || m.Category == "" {
		return models.Memo{}, apperr.Validation("title, description and category are required")
	}
	if !m.Category.Valid() {
		return models.Memo{}, apperr.Validation("category must be memo or ordinance")
	}
	if raw := strings.TrimSpace(in.EffectiveDate); raw != "" {
		eff, err := ParseEffectiveDate(raw)
		if err != nil {
			return models.Memo{}, err
		}
		m.EffectiveDate = &eff
	}
	if url := strings.TrimSpace(in.FileURL); url != "" {
		m.FileURL = &url
	}
	if actor.Role == models.RoleAdmin {
		m.Status = models.MemoApproved
	}

	if err := w.repo.CreateMemo(ctx, &m); err != nil {
		return models.Memo{}, apperr.Persistence("create memo", err)
	}
	name := actor.Username
	m.IssuerName = &name

	action := "Created memo/ordinance request"
	if m.Status == models.MemoApproved {
		action = "Published memo/ordinance"
	}
	w.audit.Record(ctx, audit.Entry{
		Actor:        actor,
		Action:       action,
		Module:       auditModule,
		AffectedData: fmt.Sprintf("Memo ID: %s, Title: %s, Category: %s, Status: %s", m.ID, m.Title, m.Category, m.Status),
		Metadata:     models.Metadata{"memoId": m.ID, "category": string(m.Category), "status": string(m.Status)},
	})
	return m, nil
}

type ListFilter struct {
	Status           string
	Category         string
	ShowOnlyApproved bool
}

// List returns memos newest first. Residents only ever see approved memos.
func (w *Workflow) List(ctx context.Context, actor *models.User, f ListFilter) ([]models.Memo, error) {
	if actor == nil {
		return nil, apperr.ErrAuthenticationRequired
	}
	q := models.MemoQuery{OnlyApproved: f.ShowOnlyApproved || !actor.Role.Privileged()}
	if status := filterValue(f.Status); status != "" {
		q.Status = models.MemoStatus(status)
		if !validStatus(q.Status) {
			return nil, apperr.Validation("unknown memo status %q", status)
		}
	}
	if category := filterValue(f.Category); category != "" {
		q.Category = models.MemoCategory(category)
		if !q.Category.Valid() {
			return nil, apperr.Validation("category must be memo or ordinance")
		}
	}
	memos, err := w.repo.ListMemos(ctx, q)
	if err != nil {
		return nil, apperr.Persistence("list memos", err)
	}
	return memos, nil
}

func (w *Workflow) Get(ctx context.Context, actor *models.User, id string) (models.Memo, error) {
	if actor == nil {
		return models.Memo{}, apperr.ErrAuthenticationRequired
	}
	m, err := w.repo.GetMemo(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return models.Memo{}, apperr.NotFound("memo not found")
	}
	if err != nil {
		return models.Memo{}, apperr.Persistence("load memo", err)
	}
	if !actor.Role.Privileged() && m.Status != models.MemoApproved {
		return models.Memo{}, apperr.NotFound("memo not found")
	}
	return m, nil
}

// Decide approves or rejects a pending memo. Decisions are final.
func (w *Workflow) Decide(ctx context.Context, actor *models.User, id, decision string) (models.Memo, error) {
	if actor == nil {
		return models.Memo{}, apperr.ErrAuthenticationRequired
	}
	if actor.Role != models.RoleAdmin {
		return models.Memo{}, apperr.Forbidden("only admins may approve or reject memos")
	}
	to := models.MemoStatus(strings.ToLower(strings.TrimSpace(decision)))
	if to != models.MemoApproved && to != models.MemoRejected {
		return models.Memo{}, apperr.Validation("decision must be approved or rejected")
	}
	current, err := w.repo.GetMemo(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return models.Memo{}, apperr.NotFound("memo not found")
	}
	if err != nil {
		return models.Memo{}, apperr.Persistence("load memo", err)
	}
	if current.Status != models.MemoPending {
		return models.Memo{}, apperr.InvalidTransition("memo is already %s", current.Status)
	}
	if err := w.repo.DecideMemo(ctx, id, to); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return models.Memo{}, apperr.InvalidTransition("memo was decided concurrently")
		}
		return models.Memo{}, apperr.Persistence("decide memo", err)
	}
	ctx = context.WithoutCancel(ctx)
	w.metrics.MemoDecided(string(to))

	action := "Rejected memo/ordinance"
	if to == models.MemoApproved {
		action = "Approved and published memo/ordinance"
	}
	w.audit.Record(ctx, audit.Entry{
		Actor:        actor,
		Action:       action,
		Module:       auditModule,
		AffectedData: fmt.Sprintf("Memo ID: %s, Title: %s, Status: %s → %s", current.ID, current.Title, current.Status, to),
		Metadata:     models.Metadata{"memoId": current.ID, "fromStatus": string(current.Status), "toStatus": string(to)},
	})

	updated, err := w.repo.GetMemo(ctx, id)
	if err != nil {
		return models.Memo{}, apperr.Persistence("reload memo", err)
	}
	return updated, nil
}

// ParseEffectiveDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
func ParseEffectiveDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	return time.Time{}, apperr.Validation("effectiveDate must be an RFC 3339 timestamp or YYYY-MM-DD")
}

func validStatus(s models.MemoStatus) bool {
	return s == models.MemoPending || s == models.MemoApproved || s == models.MemoRejected
}

func filterValue(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "all" {
		return ""
	}
	return v
}
