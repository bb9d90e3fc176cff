package report

import "barangayreport/internal/models"

// transitions lists the statuses reachable from each status. resolved is terminal.
var transitions = map[models.ReportStatus][]models.ReportStatus{
	models.StatusSubmitted:  {models.StatusReviewed},
	models.StatusReviewed:   {models.StatusInProgress},
	models.StatusInProgress: {models.StatusValidation},
	models.StatusValidation: {models.StatusResolved, models.StatusReviewed},
	models.StatusResolved:   nil,
}

func ValidStatus(s models.ReportStatus) bool {
	_, ok := transitions[s]
	return ok
}

func CanTransition(from, to models.ReportStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses returns the statuses reachable from s.
func NextStatuses(s models.ReportStatus) []models.ReportStatus {
	out := make([]models.ReportStatus, len(transitions[s]))
	copy(out, transitions[s])
	return out
}
