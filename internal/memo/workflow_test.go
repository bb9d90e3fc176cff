package memo

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"barangayreport/internal/apperr"
	"barangayreport/internal/audit"
	"barangayreport/internal/db"
	"barangayreport/internal/metrics"
	"barangayreport/internal/models"
	"barangayreport/internal/store"
)

type fakeRecorder struct {
	entries []audit.Entry
}

func (f *fakeRecorder) Record(_ context.Context, e audit.Entry) {
	f.entries = append(f.entries, e)
}

type fixture struct {
	st       *store.Store
	wf       *Workflow
	rec      *fakeRecorder
	metrics  *metrics.Metrics
	resident *models.User
	official *models.User
	admin    *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	sqdb, err := db.OpenSQLite(filepath.Join(t.TempDir(), "memos.db"), 4, 4, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqdb.Close() })
	require.NoError(t, db.Migrate(ctx, sqdb, db.DialectSQLite, zap.NewNop()))
	st := store.New(sqdb, db.DialectSQLite)

	user := func(name string, role models.Role) *models.User {
		u, err := st.CreateUser(ctx, name, "hash", role)
		require.NoError(t, err)
		return &u
	}
	f := &fixture{
		st:       st,
		rec:      &fakeRecorder{},
		metrics:  metrics.New(prometheus.NewRegistry()),
		resident: user("juan", models.RoleResident),
		official: user("kagawad", models.RoleOfficial),
		admin:    user("captain", models.RoleAdmin),
	}
	f.wf = NewWorkflow(st, f.rec, f.metrics, zap.NewNop())
	return f
}

func TestCreateStatusFollowsRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.wf.Create(ctx, f.resident, CreateInput{Title: "t", Description: "d", Category: "memo"})
	require.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.wf.Create(ctx, nil, CreateInput{})
	require.ErrorIs(t, err, apperr.ErrAuthenticationRequired)

	published, err := f.wf.Create(ctx, f.admin, CreateInput{
		Title: "Clean-up drive", Description: "Saturday 6am", Category: "memo", EffectiveDate: "2026-11-01",
	})
	require.NoError(t, err)
	assert.Equal(t, models.MemoApproved, published.Status)
	require.NotNil(t, published.EffectiveDate)
	assert.Equal(t, time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC), *published.EffectiveDate)
	assert.Equal(t, "Published memo/ordinance", f.rec.entries[0].Action)
	assert.Equal(t, "Memo ID: "+published.ID+", Title: Clean-up drive, Category: memo, Status: approved", f.rec.entries[0].AffectedData)

	request, err := f.wf.Create(ctx, f.official, CreateInput{
		Title: "Curfew", Description: "10pm for minors", Category: "Ordinance",
		EffectiveDate: "2026-12-01T08:00:00+08:00", FileURL: "https://files.example.org/curfew.pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, models.MemoPending, request.Status)
	assert.Equal(t, models.CategoryOrdinance, request.Category)
	assert.Equal(t, time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC), *request.EffectiveDate)
	assert.Equal(t, "https://files.example.org/curfew.pdf", *request.FileURL)
	assert.Equal(t, "kagawad", *request.IssuerName)
	assert.Equal(t, "Created memo/ordinance request", f.rec.entries[1].Action)
	assert.Equal(t, "Memos", f.rec.entries[1].Module)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, in := range []CreateInput{
		{Description: "d", Category: "memo"},
		{Title: "t", Category: "memo"},
		{Title: "t", Description: "d"},
		{Title: "t", Description: "d", Category: "notice"},
		{Title: "t", Description: "d", Category: "memo", EffectiveDate: "next week"},
	} {
		_, err := f.wf.Create(ctx, f.admin, in)
		require.ErrorIs(t, err, apperr.ErrValidation, "%+v", in)
	}
	assert.Empty(t, f.rec.entries)
}

func TestResidentsOnlySeeApproved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.wf.Create(ctx, f.admin, CreateInput{Title: "Public", Description: "d", Category: "memo"})
	require.NoError(t, err)
	pending, err := f.wf.Create(ctx, f.official, CreateInput{Title: "Draft", Description: "d", Category: "ordinance"})
	require.NoError(t, err)

	visible, err := f.wf.List(ctx, f.resident, ListFilter{Status: "pending"})
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "Public", visible[0].Title)

	_, err = f.wf.Get(ctx, f.resident, pending.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	all, err := f.wf.List(ctx, f.official, ListFilter{Status: "all", Category: "all"})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyPending, err := f.wf.List(ctx, f.admin, ListFilter{Status: "pending"})
	require.NoError(t, err)
	require.Len(t, onlyPending, 1)
	assert.Equal(t, pending.ID, onlyPending[0].ID)

	approvedOnly, err := f.wf.List(ctx, f.admin, ListFilter{ShowOnlyApproved: true})
	require.NoError(t, err)
	assert.Len(t, approvedOnly, 1)

	ordinances, err := f.wf.List(ctx, f.admin, ListFilter{Category: "ordinance"})
	require.NoError(t, err)
	assert.Len(t, ordinances, 1)

	_, err = f.wf.List(ctx, f.admin, ListFilter{Status: "archived"})
	require.ErrorIs(t, err, apperr.ErrValidation)

	got, err := f.wf.Get(ctx, f.official, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, "Draft", got.Title)
}

func TestDecideIsTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m, err := f.wf.Create(ctx, f.official, CreateInput{Title: "Curfew", Description: "d", Category: "ordinance"})
	require.NoError(t, err)

	_, err = f.wf.Decide(ctx, f.official, m.ID, "approved")
	require.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.wf.Decide(ctx, f.admin, m.ID, "pending")
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.wf.Decide(ctx, f.admin, "missing", "approved")
	require.ErrorIs(t, err, apperr.ErrNotFound)

	decided, err := f.wf.Decide(ctx, f.admin, m.ID, "approved")
	require.NoError(t, err)
	assert.Equal(t, models.MemoApproved, decided.Status)
	last := f.rec.entries[len(f.rec.entries)-1]
	assert.Equal(t, "Approved and published memo/ordinance", last.Action)
	assert.Equal(t, "Memo ID: "+m.ID+", Title: Curfew, Status: pending → approved", last.AffectedData)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.MemoDecisions.WithLabelValues("approved")))

	visible, err := f.wf.List(ctx, f.resident, ListFilter{})
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, m.ID, visible[0].ID)

	_, err = f.wf.Decide(ctx, f.admin, m.ID, "rejected")
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestRejectRecordsLabel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m, err := f.wf.Create(ctx, f.official, CreateInput{Title: "Fee", Description: "d", Category: "memo"})
	require.NoError(t, err)

	decided, err := f.wf.Decide(ctx, f.admin, m.ID, "Rejected")
	require.NoError(t, err)
	assert.Equal(t, models.MemoRejected, decided.Status)
	assert.Equal(t, "Rejected memo/ordinance", f.rec.entries[len(f.rec.entries)-1].Action)
}

type racingRepo struct {
	Repository
	memo models.Memo
}

func (r racingRepo) GetMemo(context.Context, string) (models.Memo, error) { return r.memo, nil }

func (r racingRepo) DecideMemo(context.Context, string, models.MemoStatus) error {
	return store.ErrConflict
}

func TestDecideLosingRaceIsInvalidTransition(t *testing.T) {
	rec := &fakeRecorder{}
	wf := NewWorkflow(racingRepo{memo: models.Memo{ID: "m1", Status: models.MemoPending}}, rec, nil, nil)

	_, err := wf.Decide(context.Background(), &models.User{ID: "a", Role: models.RoleAdmin}, "m1", "approved")
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)
	assert.Empty(t, rec.entries)
}

type cancelAfterDecide struct {
	*store.Store
	cancel context.CancelFunc
}

func (c cancelAfterDecide) DecideMemo(ctx context.Context, id string, status models.MemoStatus) error {
	err := c.Store.DecideMemo(ctx, id, status)
	c.cancel()
	return err
}

func TestDecideFinishesAfterClientCancels(t *testing.T) {
	f := newFixture(t)
	m, err := f.wf.Create(context.Background(), f.official, CreateInput{Title: "Curfew", Description: "d", Category: "ordinance"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wf := NewWorkflow(cancelAfterDecide{Store: f.st, cancel: cancel}, audit.NewRecorder(f.st, zap.NewNop(), nil), nil, nil)

	decided, err := wf.Decide(ctx, f.admin, m.ID, "approved")
	require.NoError(t, err)
	assert.Equal(t, models.MemoApproved, decided.Status)

	logs, err := f.st.QuerySystemLogs(context.Background(), models.LogQuery{Module: "Memos"})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "Approved and published memo/ordinance", logs[0].Action)
}

func TestParseEffectiveDate(t *testing.T) {
	got, err := ParseEffectiveDate("2026-05-01T10:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 1, 10, 30, 0, 0, time.UTC), got)

	got, err = ParseEffectiveDate("2026-05-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseEffectiveDate("05/01/2026")
	require.ErrorIs(t, err, apperr.ErrValidation)
}
