package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"barangayreport/internal/middleware"
	"barangayreport/internal/report"
	"barangayreport/internal/util"
)

type submitReportRequest struct {
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Priority    string   `json:"priority"`
	Location    string   `json:"location"`
	Images      []string `json:"images"`
}

type updateReportRequest struct {
	Status               *string  `json:"status"`
	AdminFeedback        *string  `json:"adminFeedback"`
	AdditionalInfo       *string  `json:"additionalInfo"`
	AdditionalInfoImages []string `json:"additionalInfoImages"`
}

func (h *Handlers) SubmitReport(w http.ResponseWriter, r *http.Request) {
	var req submitReportRequest
	if !decode(w, r, &req) {
		return
	}
	rep, err := h.reports.Submit(r.Context(), middleware.Actor(r.Context()), report.SubmitInput{
		Category:    req.Category,
		Description: req.Description,
		Priority:    req.Priority,
		Location:    req.Location,
		Images:      req.Images,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusCreated, rep)
}

func (h *Handlers) ListReports(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	reports, err := h.reports.List(r.Context(), middleware.Actor(r.Context()), report.ListFilter{
		Status:   q.Get("status"),
		Category: q.Get("category"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, reports)
}

func (h *Handlers) ListUserReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.reports.ListBySubmitter(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "userId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, reports)
}

func (h *Handlers) GetReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.reports.Get(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, rep)
}

func (h *Handlers) UpdateReport(w http.ResponseWriter, r *http.Request) {
	var req updateReportRequest
	if !decode(w, r, &req) {
		return
	}
	rep, err := h.reports.Update(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "id"), report.Patch{
		Status:               req.Status,
		AdminFeedback:        req.AdminFeedback,
		AdditionalInfo:       req.AdditionalInfo,
		AdditionalInfoImages: req.AdditionalInfoImages,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, rep)
}

func (h *Handlers) ListReportMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.reports.Messages(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, msgs)
}
