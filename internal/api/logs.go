package api

import (
	"net/http"

	"barangayreport/internal/audit"
	"barangayreport/internal/middleware"
	"barangayreport/internal/util"
)

func (h *Handlers) QueryLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := audit.ParseLimit(q.Get("limit"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	logs, err := h.audit.Query(r.Context(), middleware.Actor(r.Context()), audit.Filter{
		Role:   q.Get("role"),
		Module: q.Get("module"),
		UserID: q.Get("userId"),
		Search: q.Get("search"),
		Limit:  limit,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, logs)
}
