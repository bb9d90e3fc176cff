package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"barangayreport/internal/audit"
	"barangayreport/internal/config"
	"barangayreport/internal/db"
	"barangayreport/internal/memo"
	"barangayreport/internal/metrics"
	"barangayreport/internal/middleware"
	"barangayreport/internal/models"
	"barangayreport/internal/report"
	"barangayreport/internal/service"
	"barangayreport/internal/util"
	"barangayreport/internal/version"
)

type Deps struct {
	Config   config.Config
	DB       *sql.DB
	Dialect  db.Dialect
	Accounts *service.Service
	Reports  *report.Manager
	Memos    *memo.Workflow
	Audit    *audit.Recorder
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

type Handlers struct {
	cfg      config.Config
	db       *sql.DB
	dialect  db.Dialect
	accounts *service.Service
	reports  *report.Manager
	memos    *memo.Workflow
	audit    *audit.Recorder
	log      *zap.Logger
}

const maxBodyBytes = 1 << 20

func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	h := &Handlers{
		cfg:      d.Config,
		db:       d.DB,
		dialect:  d.Dialect,
		accounts: d.Accounts,
		reports:  d.Reports,
		memos:    d.Memos,
		audit:    d.Audit,
		log:      logger.Named("api"),
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.ClientInfo(d.Config.TrustProxy))
	r.Use(middleware.RequestLogger(logger, d.Metrics, d.Config.TrustProxy))
	r.Use(middleware.SecurityHeaders)
	if len(d.Config.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   d.Config.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", "X-CSRF-Token"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
		}))
	}

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		util.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", h.Ready)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Use(h.rateLimit(d.Config.APIRateLimit))
		r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
			util.WriteJSON(w, http.StatusOK, version.Current())
		})
		r.With(h.rateLimit(d.Config.LoginRateLimit)).Post("/auth/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authn(h.accounts, h.cfg.SessionCookieName))
			r.Use(middleware.CSRFFromCookie(h.cfg.CSRFCookieName))

			r.Post("/auth/logout", h.Logout)
			r.Get("/auth/me", h.Me)

			r.Get("/reports", h.ListReports)
			r.Post("/reports", h.SubmitReport)
			r.Get("/reports/user/{userId}", h.ListUserReports)
			r.Get("/reports/{id}", h.GetReport)
			r.Patch("/reports/{id}", h.UpdateReport)
			r.Get("/reports/{id}/messages", h.ListReportMessages)

			r.Get("/memos", h.ListMemos)
			r.Post("/memos", h.CreateMemo)
			r.Get("/memos/{id}", h.GetMemo)
			r.Patch("/memos/{id}", h.DecideMemo)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleAdmin))
				r.Get("/logs", h.QueryLogs)
				r.Get("/users", h.ListUsers)
				r.Post("/users", h.CreateUser)
			})
		})
	})

	return r
}

// rateLimit allows perMinute requests per client address.
func (h *Handlers) rateLimit(perMinute int) func(http.Handler) http.Handler {
	key := httprate.KeyByIP
	if h.cfg.TrustProxy {
		key = httprate.KeyByRealIP
	}
	return httprate.Limit(perMinute, time.Minute,
		httprate.WithKeyFuncs(key),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			util.WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many requests", middleware.RequestID(r.Context()))
		}),
	)
}

func (h *Handlers) Ready(w http.ResponseWriter, r *http.Request) {
	ready := map[string]any{
		"checked_at": time.Now().UTC().Format(time.RFC3339),
	}
	comp := map[string]any{"ok": true, "dialect": string(h.dialect)}
	ready["components"] = map[string]any{"database": comp}

	if err := h.db.PingContext(r.Context()); err != nil {
		comp["ok"] = false
		comp["error"] = err.Error()
		ready["status"] = "degraded"
		util.WriteJSON(w, http.StatusServiceUnavailable, ready)
		return
	}
	if v, err := db.SchemaVersion(r.Context(), h.db, h.dialect); err == nil {
		comp["schema_version"] = v
	} else {
		h.log.Warn("schema version lookup failed", zap.Error(err))
	}
	ready["status"] = "ready"
	util.WriteJSON(w, http.StatusOK, ready)
}
