package audit

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"barangayreport/internal/apperr"
	"barangayreport/internal/db"
	"barangayreport/internal/metrics"
	"barangayreport/internal/models"
	"barangayreport/internal/store"
)

type failingSink struct{ err error }

func (f failingSink) InsertSystemLog(context.Context, *models.SystemLog) error { return f.err }

func (f failingSink) QuerySystemLogs(context.Context, models.LogQuery) ([]models.SystemLog, error) {
	return nil, f.err
}

type recordingSink struct {
	logs  []models.SystemLog
	query models.LogQuery
}

func (r *recordingSink) InsertSystemLog(_ context.Context, l *models.SystemLog) error {
	r.logs = append(r.logs, *l)
	return nil
}

func (r *recordingSink) QuerySystemLogs(_ context.Context, q models.LogQuery) ([]models.SystemLog, error) {
	r.query = q
	return r.logs, nil
}

var admin = &models.User{ID: "u-admin", Username: "captain", Role: models.RoleAdmin}

func TestRecordFillsActorAndClient(t *testing.T) {
	sink := &recordingSink{}
	rec := NewRecorder(sink, zap.NewNop(), nil)

	ctx := WithClient(context.Background(), Client{IP: "203.0.113.7", UserAgent: "Mozilla/5.0"})
	rec.Record(ctx, Entry{
		Actor:        admin,
		Action:       "Published memo/ordinance",
		Module:       "Memos",
		AffectedData: "Memo ID: m1",
		Metadata:     models.Metadata{"memoId": "m1"},
	})

	require.Len(t, sink.logs, 1)
	got := sink.logs[0]
	assert.Equal(t, "u-admin", *got.UserID)
	assert.Equal(t, "captain", *got.UserName)
	assert.Equal(t, "admin", *got.UserRole)
	assert.Equal(t, "203.0.113.7", got.IPAddress)
	assert.Equal(t, "Mozilla/5.0", got.UserAgent)
	assert.Equal(t, "Memo ID: m1", *got.AffectedData)
}

func TestRecordWithoutClientOrActor(t *testing.T) {
	sink := &recordingSink{}
	rec := NewRecorder(sink, nil, nil)

	rec.Record(context.Background(), Entry{Action: "Failed login attempt", Module: "Authentication"})

	require.Len(t, sink.logs, 1)
	got := sink.logs[0]
	assert.Nil(t, got.UserID)
	assert.Nil(t, got.UserName)
	assert.Nil(t, got.AffectedData)
	assert.Equal(t, "unknown", got.IPAddress)
	assert.Equal(t, "unknown", got.UserAgent)
}

func TestRecordFailureIsSwallowedLoggedAndCounted(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	m := metrics.New(prometheus.NewRegistry())
	rec := NewRecorder(failingSink{err: errors.New("database is locked")}, zap.New(core), m)

	assert.NotPanics(t, func() {
		rec.Record(context.Background(), Entry{Actor: admin, Action: "Updated report status", Module: "Reports"})
	})

	entries := logs.FilterMessage("audit log write failed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "Updated report status", fields["action"])
	assert.Equal(t, "database is locked", fields["error"])
	assert.Equal(t, "audit", entries[0].LoggerName)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuditWriteFailures))
}

func TestQueryAuthorization(t *testing.T) {
	rec := NewRecorder(&recordingSink{}, nil, nil)

	_, err := rec.Query(context.Background(), nil, Filter{})
	require.ErrorIs(t, err, apperr.ErrAuthenticationRequired)

	for _, role := range []models.Role{models.RoleResident, models.RoleOfficial} {
		_, err = rec.Query(context.Background(), &models.User{ID: "x", Role: role}, Filter{})
		require.ErrorIs(t, err, apperr.ErrForbidden)
	}
}

func TestQueryLimits(t *testing.T) {
	sink := &recordingSink{}
	rec := NewRecorder(sink, nil, nil, WithLimits(50, 200))

	_, err := rec.Query(context.Background(), admin, Filter{})
	require.NoError(t, err)
	assert.Equal(t, 50, sink.query.Limit)

	_, err = rec.Query(context.Background(), admin, Filter{Limit: 5000, Search: "  memo "})
	require.NoError(t, err)
	assert.Equal(t, 200, sink.query.Limit)
	assert.Equal(t, "memo", sink.query.Search)

	_, err = rec.Query(context.Background(), admin, Filter{Limit: -1})
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestQueryPersistenceFailure(t *testing.T) {
	rec := NewRecorder(failingSink{err: errors.New("boom")}, nil, nil)
	_, err := rec.Query(context.Background(), admin, Filter{})
	require.ErrorIs(t, err, apperr.ErrPersistence)
}

func TestParseLimit(t *testing.T) {
	n, err := ParseLimit("")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = ParseLimit("25")
	require.NoError(t, err)
	assert.Equal(t, 25, n)

	for _, raw := range []string{"0", "-3", "ten", "1.5"} {
		_, err = ParseLimit(raw)
		require.ErrorIs(t, err, apperr.ErrValidation, raw)
	}
}

func TestQueryAgainstStore(t *testing.T) {
	ctx := context.Background()
	sqdb, err := db.OpenSQLite(filepath.Join(t.TempDir(), "audit.db"), 4, 4, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqdb.Close() })
	require.NoError(t, db.Migrate(ctx, sqdb, db.DialectSQLite, nil))
	rec := NewRecorder(store.New(sqdb, db.DialectSQLite), zap.NewNop(), nil)

	official := &models.User{ID: "u-off", Username: "kagawad", Role: models.RoleOfficial}
	rec.Record(ctx, Entry{Actor: admin, Action: "Published memo/ordinance", Module: "Memos", AffectedData: "Memo ID: m1, Title: Curfew"})
	rec.Record(ctx, Entry{Actor: official, Action: "Created memo/ordinance request", Module: "Memos"})
	rec.Record(ctx, Entry{Actor: admin, Action: "User logged in", Module: "Authentication", AffectedData: "Username: captain"})

	logs, err := rec.Query(ctx, admin, Filter{Role: "admin", Search: "MEMO"})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "Published memo/ordinance", logs[0].Action)

	logs, err = rec.Query(ctx, admin, Filter{Module: "Memos"})
	require.NoError(t, err)
	assert.Len(t, logs, 2)

	logs, err = rec.Query(ctx, admin, Filter{UserID: "u-off"})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "kagawad", *logs[0].UserName)
}

func TestRecordSurvivesCancelledContextAndResolvesActor(t *testing.T) {
	ctx := context.Background()
	sqdb, err := db.OpenSQLite(filepath.Join(t.TempDir(), "audit.db"), 4, 4, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqdb.Close() })
	require.NoError(t, db.Migrate(ctx, sqdb, db.DialectSQLite, nil))
	st := store.New(sqdb, db.DialectSQLite)
	u, err := st.CreateUser(ctx, "kagawad", "hash", models.RoleOfficial)
	require.NoError(t, err)
	rec := NewRecorder(st, zap.NewNop(), nil)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	rec.Record(cancelled, Entry{Actor: &models.User{ID: u.ID}, Action: "Updated report status", Module: "Reports"})

	logs, err := st.QuerySystemLogs(ctx, models.LogQuery{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.NotNil(t, logs[0].UserName)
	assert.Equal(t, "kagawad", *logs[0].UserName)
	assert.Equal(t, "official", *logs[0].UserRole)
}
