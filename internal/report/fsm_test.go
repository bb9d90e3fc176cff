package report

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"barangayreport/internal/models"
)

func TestTransitionTable(t *testing.T) {
	all := []models.ReportStatus{
		models.StatusSubmitted, models.StatusReviewed, models.StatusInProgress, models.StatusValidation, models.StatusResolved,
	}
	allowed := map[[2]models.ReportStatus]bool{}
	for _, edge := range [][2]models.ReportStatus{
		{models.StatusSubmitted, models.StatusReviewed},
		{models.StatusReviewed, models.StatusInProgress},
		{models.StatusInProgress, models.StatusValidation},
		{models.StatusValidation, models.StatusResolved},
		{models.StatusValidation, models.StatusReviewed},
	} {
		allowed[edge] = true
	}
	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[[2]models.ReportStatus{from, to}], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
	assert.Empty(t, NextStatuses(models.StatusResolved))
	assert.False(t, ValidStatus("closed"))
	assert.True(t, ValidStatus(models.StatusInProgress))
}

func TestNextStatusesReturnsCopy(t *testing.T) {
	next := NextStatuses(models.StatusValidation)
	next[0] = "tampered"
	assert.True(t, CanTransition(models.StatusValidation, models.StatusResolved))
}
