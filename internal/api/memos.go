package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"barangayreport/internal/memo"
	"barangayreport/internal/middleware"
	"barangayreport/internal/util"
)

type createMemoRequest struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	Category      string `json:"category"`
	EffectiveDate string `json:"effectiveDate"`
	FileURL       string `json:"fileUrl"`
}

func (h *Handlers) CreateMemo(w http.ResponseWriter, r *http.Request) {
	var req createMemoRequest
	if !decode(w, r, &req) {
		return
	}
	m, err := h.memos.Create(r.Context(), middleware.Actor(r.Context()), memo.CreateInput{
		Title:         req.Title,
		Description:   req.Description,
		Category:      req.Category,
		EffectiveDate: req.EffectiveDate,
		FileURL:       req.FileURL,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusCreated, m)
}

func (h *Handlers) ListMemos(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	onlyApproved, _ := strconv.ParseBool(strings.TrimSpace(q.Get("showOnlyApproved")))
	memos, err := h.memos.List(r.Context(), middleware.Actor(r.Context()), memo.ListFilter{
		Status:           q.Get("status"),
		Category:         q.Get("category"),
		ShowOnlyApproved: onlyApproved,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, memos)
}

func (h *Handlers) GetMemo(w http.ResponseWriter, r *http.Request) {
	m, err := h.memos.Get(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, m)
}

// DecideMemo accepts {"decision": ...} or the older {"status": ...} body.
func (h *Handlers) DecideMemo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Decision string `json:"decision"`
		Status   string `json:"status"`
	}
	if !decode(w, r, &req) {
		return
	}
	decision := req.Decision
	if strings.TrimSpace(decision) == "" {
		decision = req.Status
	}
	m, err := h.memos.Decide(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "id"), decision)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, m)
}
