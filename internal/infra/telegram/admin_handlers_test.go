package telegram

import (
	"errors"
	"fmt"
	"testing"

	"guardian_bot/internal/app"
	"guardian_bot/internal/domain/report"
	idb "guardian_bot/internal/infra/database"

	"github.com/stretchr/testify/assert"
)

func TestAdminErrorText(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
		expected bool
	}{
		{"unauthorized", app.ErrAdminNotAuthorized, "not allowed", true},
		{"validation", &app.ValidationError{Field: "status", Reason: "unknown status \"x\""}, "invalid status", true},
		{"transition", fmt.Errorf("advance: %w", &report.TransitionError{From: report.StatusResolved, To: report.StatusUnhandled}), "/report_force", true},
		{"not found", idb.ErrReportNotFound, "not found", true},
		{"store down", fmt.Errorf("list: %w", idb.ErrStoreUnavailable), "unavailable", false},
		{"other", errors.New("boom"), "boom", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, expected := adminErrorText(tt.err)
			assert.Contains(t, text, tt.contains)
			assert.Equal(t, tt.expected, expected)
		})
	}
}
